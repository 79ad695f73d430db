// Package reconcile implements the client-side optimistic-send state
// machine. A submitted message is shown immediately under a temporary id,
// then replaced by the canonical server message when the HTTP response or
// the broadcast echo arrives, whichever comes first. No ordering guarantee
// exists between the two, so confirmation must be idempotent: the visible
// list never holds both the temporary and the confirmed representation of
// the same logical message.
package reconcile

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tenantworks/platform/internal/model"
)

// TempIDPrefix marks locally fabricated message ids. Server-issued ids
// never carry it.
const TempIDPrefix = "tmp-"

// IsTempID reports whether id is a locally fabricated id.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// Outbox tracks the pending optimistic messages of one conversation.
type Outbox struct {
	mu               sync.Mutex
	conversationType model.ConversationType
	seq              uint64
	pending          []model.Message
}

// NewOutbox creates an outbox for a conversation of the given type.
// Optimistic insertion happens only for direct conversations; group and
// channel sends wait for the server echo so the fan-out race cannot show
// duplicate-looking entries.
func NewOutbox(conversationType model.ConversationType) *Outbox {
	return &Outbox{conversationType: conversationType}
}

// Submit registers an outgoing message. The returned message carries a
// temporary id. inserted reports whether the caller should show it
// immediately; when false the caller renders nothing until confirmation.
func (o *Outbox) Submit(authorID, content string) (msg model.Message, inserted bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.seq++
	msg = model.Message{
		ID:        fmt.Sprintf("%s%d", TempIDPrefix, o.seq),
		UserID:    authorID,
		Content:   content,
		Type:      model.MessageText,
		CreatedAt: time.Now(),
	}

	if o.conversationType != model.ConversationDirect {
		return msg, false
	}

	o.pending = append(o.pending, msg)
	return msg, true
}

// Confirm matches a canonical server message against the pending entries.
// Matching is by (content, author) against the oldest pending entry, with a
// temp-id guard: a message that itself carries a temporary id never
// confirms anything. It returns the temporary id to remove from the
// visible list, or ok=false when nothing matched (for example the echo of
// another client's message).
func (o *Outbox) Confirm(msg model.Message) (tempID string, ok bool) {
	if IsTempID(msg.ID) {
		return "", false
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	for i, p := range o.pending {
		if p.Content == msg.Content && p.UserID == msg.UserID {
			tempID = p.ID
			o.pending = append(o.pending[:i], o.pending[i+1:]...)
			return tempID, true
		}
	}
	return "", false
}

// Fail discards a pending entry after a send error. The caller removes the
// temporary entry from the visible list and notifies the user; there is no
// automatic retry.
func (o *Outbox) Fail(tempID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i, p := range o.pending {
		if p.ID == tempID {
			o.pending = append(o.pending[:i], o.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Pending returns a snapshot of the unconfirmed entries, oldest first.
func (o *Outbox) Pending() []model.Message {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]model.Message, len(o.pending))
	copy(out, o.pending)
	return out
}

// Apply folds a canonical server message into a visible list: the matching
// temporary entry (if any) is removed and the canonical message appended,
// unless it is already present. The input slice is not mutated.
func (o *Outbox) Apply(visible []model.Message, msg model.Message) []model.Message {
	tempID, matched := o.Confirm(msg)

	out := make([]model.Message, 0, len(visible)+1)
	present := false
	for _, m := range visible {
		if matched && m.ID == tempID {
			continue
		}
		if m.ID == msg.ID {
			// Already applied via the other delivery path.
			present = true
		}
		out = append(out, m)
	}
	if !present {
		out = append(out, msg)
	}
	return out
}
