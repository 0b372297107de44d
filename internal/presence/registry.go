package presence

import (
	"sync"
	"time"

	"github.com/wavechat/messaging-gateway/internal/domain"
	"github.com/wavechat/messaging-gateway/pkg/log"
)

// ConnectionMeta is the connection-side data recorded with a presence entry.
type ConnectionMeta struct {
	ConnectionID string
	Email        string
}

// Registry tracks user presence in memory. A disconnect marks the user
// offline and schedules removal after a grace window; a reconnect before the
// window elapses cancels the pending removal, so rapid reconnects never lose
// online status. Shared across all connection handlers.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*domain.PresenceEntry
	timers  map[string]*time.Timer // userID -> pending removal
	grace   time.Duration
}

func NewRegistry(grace time.Duration) *Registry {
	return &Registry{
		entries: make(map[string]*domain.PresenceEntry),
		timers:  make(map[string]*time.Timer),
		grace:   grace,
	}
}

// SetOnline upserts the user's entry as online and cancels any pending
// removal. Returns a copy of the stored entry.
func (r *Registry) SetOnline(userID string, meta ConnectionMeta) domain.PresenceEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.timers[userID]; ok {
		t.Stop()
		delete(r.timers, userID)
	}

	entry := &domain.PresenceEntry{
		UserID:       userID,
		ConnectionID: meta.ConnectionID,
		Email:        meta.Email,
		Status:       domain.StatusOnline,
		LastSeen:     time.Now(),
	}
	r.entries[userID] = entry
	return *entry
}

// SetOffline marks the user offline and schedules removal after the grace
// window. Reports whether the user was tracked.
func (r *Registry) SetOffline(userID string) (domain.PresenceEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[userID]
	if !ok {
		return domain.PresenceEntry{}, false
	}

	entry.Status = domain.StatusOffline
	entry.LastSeen = time.Now()

	if t, ok := r.timers[userID]; ok {
		t.Stop()
	}
	r.timers[userID] = time.AfterFunc(r.grace, func() {
		r.remove(userID)
	})

	return *entry, true
}

// remove deletes the entry once the grace window fires, unless the user
// came back online in the meantime.
func (r *Registry) remove(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.timers, userID)
	entry, ok := r.entries[userID]
	if !ok || entry.Status != domain.StatusOffline {
		return
	}
	delete(r.entries, userID)
	l := log.L()
	l.Debug().Str(log.FieldUserID, userID).Msg("presence entry removed after grace period")
}

// Get returns a copy of the user's entry.
func (r *Registry) Get(userID string) (domain.PresenceEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[userID]
	if !ok {
		return domain.PresenceEntry{}, false
	}
	return *entry, true
}

// ListOnline returns a snapshot of all tracked entries, including those in
// a pending-offline grace window. Later mutations do not affect the result.
func (r *Registry) ListOnline() []domain.PresenceEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.PresenceEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, *entry)
	}
	return out
}

// OnlineCount returns the number of users currently online.
func (r *Registry) OnlineCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, entry := range r.entries {
		if entry.Status == domain.StatusOnline {
			n++
		}
	}
	return n
}

// Close cancels all pending removal timers.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for userID, t := range r.timers {
		t.Stop()
		delete(r.timers, userID)
	}
}
