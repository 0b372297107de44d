package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wavechat/messaging-gateway/internal/domain"
	"github.com/wavechat/messaging-gateway/pkg/log"
)

// MemoryStore is the degraded fallback when no database is attached.
// Messages are held in memory and optionally mirrored to a JSON file so a
// restart keeps history. Edit, delete, reactions, and read flags are not
// supported and report ErrFeatureUnavailable so clients can disable those
// affordances.
type MemoryStore struct {
	mu       sync.RWMutex
	messages []*domain.Message
	byID     map[string]*domain.Message
	filePath string
	queries  atomic.Uint64
}

// NewMemoryStore creates the fallback store. filePath may be empty for a
// purely in-memory store; otherwise existing history is loaded from it.
func NewMemoryStore(filePath string) (*MemoryStore, error) {
	s := &MemoryStore{
		byID:     make(map[string]*domain.Message),
		filePath: filePath,
	}
	if filePath != "" {
		if err := s.load(); err != nil {
			return nil, fmt.Errorf("load message file: %w", err)
		}
	}
	return s, nil
}

func (s *MemoryStore) load() error {
	data, err := os.ReadFile(s.filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	var messages []*domain.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return err
	}
	s.messages = messages
	for _, m := range messages {
		s.byID[m.ID] = m
	}
	return nil
}

// persist rewrites the backing file. Best effort: a write failure degrades
// durability, not availability.
func (s *MemoryStore) persist() {
	if s.filePath == "" {
		return
	}

	data, err := json.MarshalIndent(s.messages, "", "  ")
	if err != nil {
		l := log.L()
		l.Warn().Err(err).Msg("failed to encode message file")
		return
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		l := log.L()
		l.Warn().Err(err).Msg("failed to create message file directory")
		return
	}
	if err := os.WriteFile(s.filePath, data, 0o644); err != nil {
		l := log.L()
		l.Warn().Str("path", s.filePath).Err(err).Msg("failed to write message file")
	}
}

func (s *MemoryStore) Create(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	s.queries.Add(1)

	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID == "" {
		msg.ID = newMessageID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	stored := *msg
	s.messages = append(s.messages, &stored)
	s.byID[stored.ID] = &stored
	s.persist()

	out := stored
	return &out, nil
}

func (s *MemoryStore) List(ctx context.Context, channelID string, limit int) ([]*domain.Message, error) {
	s.queries.Add(1)

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*domain.Message, 0, limit)
	for _, m := range s.messages {
		if channelID == "" || m.ConversationID == channelID {
			matched = append(matched, m)
		}
	}
	if limit > 0 && len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}

	out := make([]*domain.Message, len(matched))
	for i, m := range matched {
		copied := *m
		out[i] = &copied
	}
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, messageID string) (*domain.Message, error) {
	s.queries.Add(1)

	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.byID[messageID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *m
	return &copied, nil
}

func (s *MemoryStore) Update(ctx context.Context, messageID string, patch MessagePatch, requestingUserID string) (*domain.Message, error) {
	return nil, fmt.Errorf("%w: message editing requires a database backend", domain.ErrFeatureUnavailable)
}

func (s *MemoryStore) Delete(ctx context.Context, messageID, requestingUserID string) (bool, error) {
	return false, fmt.Errorf("%w: message deletion requires a database backend", domain.ErrFeatureUnavailable)
}

func (s *MemoryStore) MarkRead(ctx context.Context, messageID string, readAt time.Time) (*domain.Message, error) {
	return nil, fmt.Errorf("%w: read receipts require a database backend", domain.ErrFeatureUnavailable)
}

func (s *MemoryStore) ToggleReaction(ctx context.Context, messageID, userID, emoji string) (bool, error) {
	return false, fmt.Errorf("%w: reactions require a database backend", domain.ErrFeatureUnavailable)
}

func (s *MemoryStore) AddReaction(ctx context.Context, messageID, userID, emoji string) error {
	return fmt.Errorf("%w: reactions require a database backend", domain.ErrFeatureUnavailable)
}

func (s *MemoryStore) RemoveReaction(ctx context.Context, messageID, userID, emoji string) error {
	return fmt.Errorf("%w: reactions require a database backend", domain.ErrFeatureUnavailable)
}

func (s *MemoryStore) ListReactions(ctx context.Context, messageID string) ([]domain.Reaction, error) {
	return nil, fmt.Errorf("%w: reactions require a database backend", domain.ErrFeatureUnavailable)
}

func (s *MemoryStore) Capabilities() Capabilities {
	return Capabilities{}
}

func (s *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Messages:   int64(len(s.messages)),
		QueryCount: s.queries.Load(),
	}, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
