package service

import (
	"context"
	"sync"
	"time"

	"github.com/tenantworks/platform/internal/broadcast"
	"github.com/tenantworks/platform/internal/model"
	"github.com/tenantworks/platform/internal/store"
)

// fakeConversationStore is an in-memory ConversationStore.
type fakeConversationStore struct {
	mu            sync.Mutex
	conversations map[string]*model.Conversation
	unread        map[string]int // conversationID+":"+userID
}

func newFakeConversationStore() *fakeConversationStore {
	return &fakeConversationStore{
		conversations: map[string]*model.Conversation{},
		unread:        map[string]int{},
	}
}

func (f *fakeConversationStore) Create(_ context.Context, conv *model.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *conv
	f.conversations[conv.ID] = &cp
	return nil
}

func (f *fakeConversationStore) Get(_ context.Context, tenantID, conversationID string) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.conversations[conversationID]
	if !ok || conv.TenantID != tenantID {
		return nil, nil
	}
	cp := *conv
	return &cp, nil
}

func (f *fakeConversationStore) ListForUser(_ context.Context, tenantID, userID string) ([]model.ConversationView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ConversationView
	for _, conv := range f.conversations {
		if conv.TenantID != tenantID {
			continue
		}
		for _, p := range conv.Participants {
			if p.UserID == userID {
				out = append(out, model.ConversationView{
					Conversation: *conv,
					UnreadCount:  f.unread[conv.ID+":"+userID],
				})
				break
			}
		}
	}
	return out, nil
}

func (f *fakeConversationStore) Delete(_ context.Context, tenantID, conversationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.conversations[conversationID]
	if !ok || conv.TenantID != tenantID {
		return store.ErrNotFound
	}
	delete(f.conversations, conversationID)
	return nil
}

func (f *fakeConversationStore) AddParticipant(_ context.Context, conversationID string, p model.Participant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv := f.conversations[conversationID]
	for _, existing := range conv.Participants {
		if existing.UserID == p.UserID {
			return nil
		}
	}
	conv.Participants = append(conv.Participants, p)
	return nil
}

func (f *fakeConversationStore) RemoveParticipant(_ context.Context, conversationID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv := f.conversations[conversationID]
	for i, p := range conv.Participants {
		if p.UserID == userID {
			conv.Participants = append(conv.Participants[:i], conv.Participants[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeConversationStore) IsParticipant(_ context.Context, tenantID, conversationID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.conversations[conversationID]
	if !ok || conv.TenantID != tenantID {
		return false, nil
	}
	for _, p := range conv.Participants {
		if p.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeConversationStore) MarkRead(_ context.Context, conversationID, userID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unread[conversationID+":"+userID] = 0
	conv := f.conversations[conversationID]
	for i := range conv.Participants {
		if conv.Participants[i].UserID == userID {
			t := at
			conv.Participants[i].LastReadAt = &t
		}
	}
	return nil
}

func (f *fakeConversationStore) UnreadCount(_ context.Context, conversationID, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unread[conversationID+":"+userID], nil
}

func (f *fakeConversationStore) setUnread(conversationID, userID string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unread[conversationID+":"+userID] = n
}

// fakeMessageStore is an in-memory MessageStore keeping insertion order.
type fakeMessageStore struct {
	mu       sync.Mutex
	messages []model.Message
	tenants  map[string]string // messageID -> tenantID
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{tenants: map[string]string{}}
}

func (f *fakeMessageStore) Insert(_ context.Context, tenantID string, msg *model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, *msg)
	f.tenants[msg.ID] = tenantID
	return nil
}

func (f *fakeMessageStore) List(_ context.Context, tenantID, conversationID, afterID string, limit int) ([]model.Message, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Message
	started := afterID == ""
	for _, m := range f.messages {
		if m.ConversationID != conversationID || f.tenants[m.ID] != tenantID {
			continue
		}
		if !started {
			if m.ID == afterID {
				started = true
			}
			continue
		}
		out = append(out, m)
	}
	hasMore := len(out) > limit
	if hasMore {
		out = out[:limit]
	}
	return out, hasMore, nil
}

func (f *fakeMessageStore) Get(_ context.Context, tenantID, messageID string) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.ID == messageID && f.tenants[m.ID] == tenantID {
			cp := m
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeMessageStore) Edit(_ context.Context, tenantID, messageID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.messages {
		if f.messages[i].ID == messageID && f.tenants[messageID] == tenantID {
			now := time.Now()
			f.messages[i].Content = content
			f.messages[i].IsEdited = true
			f.messages[i].EditedAt = &now
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeMessageStore) Latest(_ context.Context, tenantID, conversationID string) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.messages) - 1; i >= 0; i-- {
		m := f.messages[i]
		if m.ConversationID == conversationID && f.tenants[m.ID] == tenantID {
			cp := m
			return &cp, nil
		}
	}
	return nil, nil
}

// fakePublisher records published events and can be told to fail.
type fakePublisher struct {
	mu      sync.Mutex
	events  []publishedEvent
	typing  []model.TypingSignal
	failErr error
}

type publishedEvent struct {
	channel broadcast.Channel
	event   model.Event
}

func (f *fakePublisher) PublishEvent(_ context.Context, ch broadcast.Channel, event *model.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	f.events = append(f.events, publishedEvent{channel: ch, event: *event})
	return nil
}

func (f *fakePublisher) PublishTyping(ch broadcast.Channel, signal *model.TypingSignal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	f.typing = append(f.typing, *signal)
	return nil
}

func (f *fakePublisher) eventsNamed(name model.EventName) []publishedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []publishedEvent
	for _, e := range f.events {
		if e.event.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// fakeTyping is an in-memory TypingStore.
type fakeTyping struct {
	mu     sync.Mutex
	typing map[string]bool // tenantID+":"+conversationID+":"+userID
}

func newFakeTyping() *fakeTyping {
	return &fakeTyping{typing: map[string]bool{}}
}

func (f *fakeTyping) SetTyping(_ context.Context, tenantID, conversationID, userID string, isTyping bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := tenantID + ":" + conversationID + ":" + userID
	if isTyping {
		f.typing[key] = true
	} else {
		delete(f.typing, key)
	}
	return nil
}

func (f *fakeTyping) TypingUsers(_ context.Context, tenantID, conversationID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := tenantID + ":" + conversationID + ":"
	var out []string
	for key := range f.typing {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			out = append(out, key[len(prefix):])
		}
	}
	return out, nil
}

// fakeNavigationStore is an in-memory NavigationStore.
type fakeNavigationStore struct {
	mu      sync.Mutex
	configs map[string]*model.NavigationConfiguration
	items   []model.NavigationItem
}

func newFakeNavigationStore() *fakeNavigationStore {
	return &fakeNavigationStore{configs: map[string]*model.NavigationConfiguration{}}
}

func (f *fakeNavigationStore) Save(_ context.Context, cfg *model.NavigationConfiguration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *cfg
	f.configs[cfg.ID] = &cp
	return nil
}

func (f *fakeNavigationStore) Activate(_ context.Context, tenantID, configID, updatedBy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	target, ok := f.configs[configID]
	if !ok || target.TenantID != tenantID {
		return store.ErrNotFound
	}
	for _, cfg := range f.configs {
		if cfg.TenantID == tenantID && sameTarget(cfg, target) {
			cfg.IsActive = false
		}
	}
	target.IsActive = true
	target.UpdatedBy = updatedBy
	return nil
}

func sameTarget(a, b *model.NavigationConfiguration) bool {
	return deref(a.UserID) == deref(b.UserID) && deref(a.RoleID) == deref(b.RoleID)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (f *fakeNavigationStore) Get(_ context.Context, tenantID, configID string) (*model.NavigationConfiguration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg, ok := f.configs[configID]
	if !ok || cfg.TenantID != tenantID {
		return nil, nil
	}
	cp := *cfg
	return &cp, nil
}

func (f *fakeNavigationStore) List(_ context.Context, tenantID string) ([]model.NavigationConfiguration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.NavigationConfiguration
	for _, cfg := range f.configs {
		if cfg.TenantID == tenantID {
			out = append(out, *cfg)
		}
	}
	return out, nil
}

func (f *fakeNavigationStore) Delete(_ context.Context, tenantID, configID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg, ok := f.configs[configID]
	if !ok || cfg.TenantID != tenantID {
		return store.ErrNotFound
	}
	delete(f.configs, configID)
	return nil
}

func (f *fakeNavigationStore) ActiveForUser(_ context.Context, tenantID, userID string) (*model.NavigationConfiguration, error) {
	return f.active(tenantID, userID, "")
}

func (f *fakeNavigationStore) ActiveForRole(_ context.Context, tenantID, roleID string) (*model.NavigationConfiguration, error) {
	return f.active(tenantID, "", roleID)
}

func (f *fakeNavigationStore) ActiveDefault(_ context.Context, tenantID string) (*model.NavigationConfiguration, error) {
	return f.active(tenantID, "", "")
}

func (f *fakeNavigationStore) active(tenantID, userID, roleID string) (*model.NavigationConfiguration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cfg := range f.configs {
		if cfg.TenantID == tenantID && cfg.IsActive && deref(cfg.UserID) == userID && deref(cfg.RoleID) == roleID {
			cp := *cfg
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeNavigationStore) ListItems(_ context.Context) ([]model.NavigationItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.NavigationItem(nil), f.items...), nil
}

// fakePermissions serves a fixed permission set per user.
type fakePermissions struct {
	byUser map[string][]string
}

func (f *fakePermissions) GetUserPermissions(_ context.Context, _, userID string) ([]string, error) {
	return f.byUser[userID], nil
}
