package store

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wavechat/messaging-gateway/internal/domain"
	"github.com/wavechat/messaging-gateway/pkg/database"
)

// GormStore is the durable backend. It supports the full capability set.
type GormStore struct {
	db      *gorm.DB
	queries atomic.Uint64
}

// NewGormStore connects per the database config and migrates the message
// and reaction tables.
func NewGormStore(cfg *database.Config) (*GormStore, error) {
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if err := database.AutoMigrate(db, &domain.Message{}, &domain.Reaction{}); err != nil {
		return nil, fmt.Errorf("migrate message store: %w", err)
	}
	return &GormStore{db: db}, nil
}

// NewGormStoreFromDB wraps an existing connection. The caller owns migration.
func NewGormStoreFromDB(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Create(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	s.queries.Add(1)

	if msg.ID == "" {
		msg.ID = newMessageID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("%w: create message: %v", domain.ErrStoreUnavailable, err)
	}
	return msg, nil
}

func (s *GormStore) List(ctx context.Context, channelID string, limit int) ([]*domain.Message, error) {
	s.queries.Add(1)

	q := s.db.WithContext(ctx).Model(&domain.Message{})
	if channelID != "" {
		q = q.Where("conversation_id = ?", channelID)
	}

	var messages []*domain.Message
	// Newest first to apply the limit, then reversed so clients backfill in
	// creation order. Message ids are time-sortable.
	if err := q.Order("id DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("%w: list messages: %v", domain.ErrStoreUnavailable, err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *GormStore) Get(ctx context.Context, messageID string) (*domain.Message, error) {
	s.queries.Add(1)

	var msg domain.Message
	err := s.db.WithContext(ctx).First(&msg, "id = ?", messageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get message: %v", domain.ErrStoreUnavailable, err)
	}
	return &msg, nil
}

func (s *GormStore) Update(ctx context.Context, messageID string, patch MessagePatch, requestingUserID string) (*domain.Message, error) {
	s.queries.Add(1)

	var updated *domain.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var msg domain.Message
		if err := tx.First(&msg, "id = ?", messageID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if msg.AuthorID != requestingUserID {
			return domain.ErrUnauthorized
		}
		if patch.Content != nil {
			msg.Content = *patch.Content
		}
		if patch.Edited != nil {
			msg.Edited = *patch.Edited
		}
		if err := tx.Save(&msg).Error; err != nil {
			return err
		}
		updated = &msg
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUnauthorized) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: update message: %v", domain.ErrStoreUnavailable, err)
	}
	return updated, nil
}

func (s *GormStore) Delete(ctx context.Context, messageID, requestingUserID string) (bool, error) {
	s.queries.Add(1)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var msg domain.Message
		if err := tx.First(&msg, "id = ?", messageID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if msg.AuthorID != requestingUserID {
			return domain.ErrUnauthorized
		}
		if err := tx.Delete(&domain.Message{}, "id = ?", messageID).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Reaction{}, "message_id = ?", messageID).Error
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUnauthorized) {
			return false, err
		}
		return false, fmt.Errorf("%w: delete message: %v", domain.ErrStoreUnavailable, err)
	}
	return true, nil
}

func (s *GormStore) MarkRead(ctx context.Context, messageID string, readAt time.Time) (*domain.Message, error) {
	s.queries.Add(1)

	var updated *domain.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var msg domain.Message
		if err := tx.First(&msg, "id = ?", messageID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if msg.Metadata == nil {
			msg.Metadata = domain.Metadata{}
		}
		msg.Metadata[domain.MetaRead] = true
		msg.Metadata[domain.MetaReadAt] = readAt.UTC().Format(time.RFC3339Nano)
		if err := tx.Save(&msg).Error; err != nil {
			return err
		}
		updated = &msg
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: mark read: %v", domain.ErrStoreUnavailable, err)
	}
	return updated, nil
}

// ToggleReaction flips the (message, user, emoji) reaction inside one
// transaction so concurrent toggles from the same user never double-insert.
func (s *GormStore) ToggleReaction(ctx context.Context, messageID, userID, emoji string) (bool, error) {
	s.queries.Add(1)

	var added bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&domain.Reaction{}, "message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			added = false
			return nil
		}
		added = true
		return tx.Create(&domain.Reaction{
			MessageID: messageID,
			UserID:    userID,
			Emoji:     emoji,
			CreatedAt: time.Now().UTC(),
		}).Error
	})
	if err != nil {
		return false, fmt.Errorf("%w: toggle reaction: %v", domain.ErrStoreUnavailable, err)
	}
	return added, nil
}

func (s *GormStore) AddReaction(ctx context.Context, messageID, userID, emoji string) error {
	s.queries.Add(1)

	err := s.db.WithContext(ctx).Create(&domain.Reaction{
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
		CreatedAt: time.Now().UTC(),
	}).Error
	if err != nil {
		return fmt.Errorf("%w: add reaction: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *GormStore) RemoveReaction(ctx context.Context, messageID, userID, emoji string) error {
	s.queries.Add(1)

	err := s.db.WithContext(ctx).
		Delete(&domain.Reaction{}, "message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji).Error
	if err != nil {
		return fmt.Errorf("%w: remove reaction: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *GormStore) ListReactions(ctx context.Context, messageID string) ([]domain.Reaction, error) {
	s.queries.Add(1)

	var reactions []domain.Reaction
	err := s.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&reactions, "message_id = ?", messageID).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list reactions: %v", domain.ErrStoreUnavailable, err)
	}
	return reactions, nil
}

func (s *GormStore) Capabilities() Capabilities {
	return Capabilities{Edit: true, Delete: true, Reactions: true, ReadFlags: true}
}

func (s *GormStore) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	if err := s.db.WithContext(ctx).Model(&domain.Message{}).Count(&stats.Messages).Error; err != nil {
		return stats, fmt.Errorf("%w: message count: %v", domain.ErrStoreUnavailable, err)
	}
	if err := s.db.WithContext(ctx).Model(&domain.Reaction{}).Count(&stats.Reactions).Error; err != nil {
		return stats, fmt.Errorf("%w: reaction count: %v", domain.ErrStoreUnavailable, err)
	}
	stats.QueryCount = s.queries.Load()
	return stats, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// newMessageID returns a time-sortable message id.
func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
