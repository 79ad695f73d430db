package broadcast

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenantworks/platform/internal/model"
)

func TestChannelNames(t *testing.T) {
	assert.Equal(t, "tenant:t1:conversation:c1", ConversationChannel("t1", "c1").Name())
	assert.Equal(t, "tenant:t1:notifications", TenantChannel("t1").Name())
}

func TestChannelSubjects(t *testing.T) {
	conv := ConversationChannel("t1", "c1")
	assert.Equal(t, "events.t1.conversation.c1", conv.eventSubject())
	assert.Equal(t, "whisper.t1.conversation.c1", conv.whisperSubject())

	assert.Equal(t, "events.t1.notifications", TenantChannel("t1").eventSubject())
}

func TestParseChannel(t *testing.T) {
	ch, err := ParseChannel("tenant:t1:conversation:c1")
	require.NoError(t, err)
	assert.Equal(t, KindConversation, ch.Kind)
	assert.Equal(t, "t1", ch.TenantID)
	assert.Equal(t, "c1", ch.ConversationID)

	ch, err = ParseChannel("tenant:t1:notifications")
	require.NoError(t, err)
	assert.Equal(t, KindTenant, ch.Kind)

	for _, bad := range []string{
		"",
		"tenant:t1",
		"tenant::notifications",
		"tenant:t1:conversation:",
		"team:t1:notifications",
		"tenant:t1:conversation:c1:extra",
	} {
		_, err := ParseChannel(bad)
		assert.Error(t, err, "name %q should not parse", bad)
	}
}

type staticParticipants struct {
	member bool
}

func (s staticParticipants) IsParticipant(context.Context, string, string, string) (bool, error) {
	return s.member, nil
}

func TestAuthorize(t *testing.T) {
	ident := model.Identity{UserID: "alice", TenantID: "t1"}

	auth := NewAuthorizer(staticParticipants{member: true})

	ok, err := auth.Authorize(context.Background(), TenantChannel("t1"), ident)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = auth.Authorize(context.Background(), TenantChannel("t2"), ident)
	require.NoError(t, err)
	assert.False(t, ok, "tenant mismatch is always refused")

	ok, err = auth.Authorize(context.Background(), ConversationChannel("t1", "c1"), ident)
	require.NoError(t, err)
	assert.True(t, ok)

	auth = NewAuthorizer(staticParticipants{member: false})
	ok, err = auth.Authorize(context.Background(), ConversationChannel("t1", "c1"), ident)
	require.NoError(t, err)
	assert.False(t, ok, "conversation channels require membership")
}
