package broadcast

import (
	"context"
	"fmt"
	"strings"

	"github.com/tenantworks/platform/internal/model"
)

// ChannelKind distinguishes per-conversation channels from the tenant-wide
// notification channel.
type ChannelKind string

const (
	KindConversation ChannelKind = "conversation"
	KindTenant       ChannelKind = "tenant"
)

// Channel is a private broadcast channel a client may subscribe to.
type Channel struct {
	Kind           ChannelKind
	TenantID       string
	ConversationID string
}

// ConversationChannel names the private channel of one conversation.
func ConversationChannel(tenantID, conversationID string) Channel {
	return Channel{Kind: KindConversation, TenantID: tenantID, ConversationID: conversationID}
}

// TenantChannel names the tenant-wide notification channel.
func TenantChannel(tenantID string) Channel {
	return Channel{Kind: KindTenant, TenantID: tenantID}
}

// Name returns the client-facing channel name:
// tenant:{tenantId}:conversation:{conversationId} or
// tenant:{tenantId}:notifications.
func (c Channel) Name() string {
	if c.Kind == KindConversation {
		return fmt.Sprintf("tenant:%s:conversation:%s", c.TenantID, c.ConversationID)
	}
	return fmt.Sprintf("tenant:%s:notifications", c.TenantID)
}

// eventSubject maps the channel onto a durable-event NATS subject.
func (c Channel) eventSubject() string {
	if c.Kind == KindConversation {
		return fmt.Sprintf("events.%s.conversation.%s", c.TenantID, c.ConversationID)
	}
	return fmt.Sprintf("events.%s.notifications", c.TenantID)
}

// whisperSubject maps the channel onto the ephemeral whisper subject. Only
// conversation channels carry whispers.
func (c Channel) whisperSubject() string {
	return fmt.Sprintf("whisper.%s.conversation.%s", c.TenantID, c.ConversationID)
}

// ParseChannel parses a client-provided channel name.
func ParseChannel(name string) (Channel, error) {
	parts := strings.Split(name, ":")
	switch {
	case len(parts) == 3 && parts[0] == "tenant" && parts[2] == "notifications" && parts[1] != "":
		return TenantChannel(parts[1]), nil
	case len(parts) == 4 && parts[0] == "tenant" && parts[2] == "conversation" && parts[1] != "" && parts[3] != "":
		return ConversationChannel(parts[1], parts[3]), nil
	}
	return Channel{}, fmt.Errorf("malformed channel name %q", name)
}

// ParticipantChecker reports conversation membership. Satisfied by
// store.ConversationStore.
type ParticipantChecker interface {
	IsParticipant(ctx context.Context, tenantID, conversationID, userID string) (bool, error)
}

// Authorizer gates channel subscriptions.
type Authorizer struct {
	participants ParticipantChecker
}

// NewAuthorizer creates a channel authorizer.
func NewAuthorizer(participants ParticipantChecker) *Authorizer {
	return &Authorizer{participants: participants}
}

// Authorize reports whether the identity may subscribe to the channel:
// tenant channels require a matching tenant, conversation channels
// additionally require a participant row.
func (a *Authorizer) Authorize(ctx context.Context, ch Channel, ident model.Identity) (bool, error) {
	if ch.TenantID != ident.TenantID {
		return false, nil
	}
	if ch.Kind == KindTenant {
		return true, nil
	}
	return a.participants.IsParticipant(ctx, ident.TenantID, ch.ConversationID, ident.UserID)
}
