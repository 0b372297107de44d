package store

import (
	"context"
	"time"

	"github.com/wavechat/messaging-gateway/internal/domain"
)

// Capabilities describes what the active backend supports. Degraded
// backends must report missing capabilities so clients can disable the
// matching UI affordances instead of silently no-oping.
type Capabilities struct {
	Edit      bool
	Delete    bool
	Reactions bool
	ReadFlags bool
}

// MessagePatch is an author-scoped partial update.
type MessagePatch struct {
	Content *string
	Edited  *bool
}

// Stats is a coarse backend snapshot for the observability feed.
type Stats struct {
	Messages   int64
	Reactions  int64
	QueryCount uint64
}

// MessageStore persists messages and reactions. Implementations are safe
// for concurrent use; cross-connection races on the same message surface as
// ErrNotFound / ErrUnauthorized, never as corrupted state.
type MessageStore interface {
	// Create stores the message, assigning its id and timestamp.
	Create(ctx context.Context, msg *domain.Message) (*domain.Message, error)
	// List returns up to limit most recent messages in ascending creation
	// order, optionally filtered by channel (empty channelID means all).
	List(ctx context.Context, channelID string, limit int) ([]*domain.Message, error)
	// Get returns one message or domain.ErrNotFound.
	Get(ctx context.Context, messageID string) (*domain.Message, error)
	// Update applies an author-scoped patch. Returns domain.ErrUnauthorized
	// when requestingUserID is not the author.
	Update(ctx context.Context, messageID string, patch MessagePatch, requestingUserID string) (*domain.Message, error)
	// Delete removes a message, author-checked like Update.
	Delete(ctx context.Context, messageID, requestingUserID string) (bool, error)
	// MarkRead flags a message read at the given time. Recipient checks are
	// the caller's responsibility.
	MarkRead(ctx context.Context, messageID string, readAt time.Time) (*domain.Message, error)

	// ToggleReaction atomically adds or removes the (message, user, emoji)
	// reaction and reports whether it now exists.
	ToggleReaction(ctx context.Context, messageID, userID, emoji string) (bool, error)
	AddReaction(ctx context.Context, messageID, userID, emoji string) error
	RemoveReaction(ctx context.Context, messageID, userID, emoji string) error
	ListReactions(ctx context.Context, messageID string) ([]domain.Reaction, error)

	Capabilities() Capabilities
	Stats(ctx context.Context) (Stats, error)
	Close() error
}
