package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavechat/messaging-gateway/internal/domain"
)

func TestMemoryStoreCreateAssignsIDAndTimestamp(t *testing.T) {
	s, err := NewMemoryStore("")
	require.NoError(t, err)

	created, err := s.Create(context.Background(), &domain.Message{
		ConversationID: "general",
		AuthorID:       "user-1",
		Content:        "hello",
		MessageType:    domain.MessageTypeText,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
}

func TestMemoryStoreListFiltersAndLimits(t *testing.T) {
	s, err := NewMemoryStore("")
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.Create(ctx, &domain.Message{ConversationID: "general", AuthorID: "user-1", Content: "g"})
		require.NoError(t, err)
	}
	_, err = s.Create(ctx, &domain.Message{ConversationID: "random", AuthorID: "user-1", Content: "r"})
	require.NoError(t, err)

	msgs, err := s.List(ctx, "general", 50)
	require.NoError(t, err)
	assert.Len(t, msgs, 5)

	// Limit keeps the most recent messages in chronological order.
	limited, err := s.List(ctx, "general", 3)
	require.NoError(t, err)
	require.Len(t, limited, 3)
	assert.Equal(t, msgs[2].ID, limited[0].ID)
	assert.Equal(t, msgs[4].ID, limited[2].ID)
}

func TestMemoryStoreGet(t *testing.T) {
	s, err := NewMemoryStore("")
	require.NoError(t, err)
	ctx := context.Background()

	created, err := s.Create(ctx, &domain.Message{ConversationID: "general", AuthorID: "user-1", Content: "hi"})
	require.NoError(t, err)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Content)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryStoreUnsupportedOperations(t *testing.T) {
	s, err := NewMemoryStore("")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Update(ctx, "m1", MessagePatch{}, "user-1")
	assert.ErrorIs(t, err, domain.ErrFeatureUnavailable)

	_, err = s.Delete(ctx, "m1", "user-1")
	assert.ErrorIs(t, err, domain.ErrFeatureUnavailable)

	_, err = s.MarkRead(ctx, "m1", time.Now())
	assert.ErrorIs(t, err, domain.ErrFeatureUnavailable)

	_, err = s.ToggleReaction(ctx, "m1", "user-1", "👍")
	assert.ErrorIs(t, err, domain.ErrFeatureUnavailable)

	_, err = s.ListReactions(ctx, "m1")
	assert.ErrorIs(t, err, domain.ErrFeatureUnavailable)

	assert.Equal(t, Capabilities{}, s.Capabilities())
}

func TestMemoryStoreFilePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "messages.json")
	ctx := context.Background()

	s, err := NewMemoryStore(path)
	require.NoError(t, err)

	created, err := s.Create(ctx, &domain.Message{ConversationID: "general", AuthorID: "user-1", Content: "persisted"})
	require.NoError(t, err)

	reopened, err := NewMemoryStore(path)
	require.NoError(t, err)

	got, err := reopened.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "persisted", got.Content)
}

func TestMemoryStoreStats(t *testing.T) {
	s, err := NewMemoryStore("")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Create(ctx, &domain.Message{ConversationID: "general", AuthorID: "user-1", Content: "a"})
	require.NoError(t, err)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Messages)
	assert.NotZero(t, stats.QueryCount)
}
