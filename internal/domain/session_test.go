package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLifecycle(t *testing.T) {
	s := NewSession("conn-1")
	assert.Equal(t, StateConnecting, s.State())

	require.NoError(t, s.Authenticate("user-1", "user@example.com", "member"))
	assert.Equal(t, StateAuthenticated, s.State())
	assert.Equal(t, "user-1", s.UserID())
	assert.Equal(t, "user@example.com", s.Email())
	assert.Equal(t, "member", s.UserType())

	require.NoError(t, s.Activate())
	assert.True(t, s.IsActive())

	s.Close()
	assert.Equal(t, StateClosed, s.State())
}

func TestSessionAuthenticateTwice(t *testing.T) {
	s := NewSession("conn-1")
	require.NoError(t, s.Authenticate("user-1", "", ""))
	assert.Error(t, s.Authenticate("user-2", "", ""))
	assert.Equal(t, "user-1", s.UserID())
}

func TestSessionActivateRequiresAuth(t *testing.T) {
	s := NewSession("conn-1")
	assert.Error(t, s.Activate())
}

func TestSessionNoReopenAfterClose(t *testing.T) {
	s := NewSession("conn-1")
	s.Close()

	assert.Error(t, s.Authenticate("user-1", "", ""))
	assert.Error(t, s.Activate())
	assert.Equal(t, StateClosed, s.State())

	s.Close()
	assert.Equal(t, StateClosed, s.State())
}

func TestSessionChannelMembership(t *testing.T) {
	s := NewSession("conn-1")

	assert.False(t, s.InChannel("general"))
	s.JoinChannel("general")
	s.JoinChannel("random")
	assert.True(t, s.InChannel("general"))
	assert.Len(t, s.Channels(), 2)

	assert.True(t, s.LeaveChannel("general"))
	assert.False(t, s.InChannel("general"))
	assert.False(t, s.LeaveChannel("general"))
}

func TestGroupReactions(t *testing.T) {
	groups := GroupReactions([]Reaction{
		{MessageID: "m1", UserID: "u1", Emoji: "👍"},
		{MessageID: "m1", UserID: "u2", Emoji: "🔥"},
		{MessageID: "m1", UserID: "u3", Emoji: "👍"},
	})

	require.Len(t, groups, 2)
	assert.Equal(t, "👍", groups[0].Emoji)
	assert.Equal(t, 2, groups[0].Count)
	assert.Equal(t, []string{"u1", "u3"}, groups[0].Users)
	assert.Equal(t, "🔥", groups[1].Emoji)
	assert.Equal(t, 1, groups[1].Count)
}

func TestGroupReactionsEmpty(t *testing.T) {
	assert.Empty(t, GroupReactions(nil))
}

func TestMessageRecipientID(t *testing.T) {
	dm := &Message{MessageType: MessageTypeDM, Metadata: Metadata{MetaRecipientID: "u2"}}
	assert.True(t, dm.IsDM())
	assert.Equal(t, "u2", dm.RecipientID())

	channel := &Message{MessageType: MessageTypeText, ConversationID: "general"}
	assert.False(t, channel.IsDM())
	assert.Equal(t, "", channel.RecipientID())
}
