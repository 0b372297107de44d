package domain

import (
	"fmt"
	"sync"
	"time"
)

// SessionState is the per-connection lifecycle state.
type SessionState int32

const (
	StateConnecting SessionState = iota
	StateAuthenticated
	StateActive
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session holds the authenticated identity and channel memberships of one
// connection. It is owned by the session handler for the connection's
// lifetime and destroyed on disconnect. There is no transition out of
// StateClosed.
type Session struct {
	ConnectionID string
	CreatedAt    time.Time

	userID       string
	email        string
	userType     string
	state        SessionState
	channels     map[string]struct{}
	lastActiveAt time.Time
	mu           sync.RWMutex
}

func NewSession(connectionID string) *Session {
	now := time.Now()
	return &Session{
		ConnectionID: connectionID,
		CreatedAt:    now,
		state:        StateConnecting,
		channels:     make(map[string]struct{}),
		lastActiveAt: now,
	}
}

// Authenticate records verified identity claims. Valid only while connecting.
func (s *Session) Authenticate(userID, email, userType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnecting {
		return fmt.Errorf("cannot authenticate session in state %s", s.state)
	}
	s.userID = userID
	s.email = email
	s.userType = userType
	s.state = StateAuthenticated
	s.lastActiveAt = time.Now()
	return nil
}

// Activate marks the session live (presence registered, personal scope
// joined). Valid only after authentication.
func (s *Session) Activate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAuthenticated {
		return fmt.Errorf("cannot activate session in state %s", s.state)
	}
	s.state = StateActive
	s.lastActiveAt = time.Now()
	return nil
}

// Close finalises the session. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateClosed
}

func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) IsActive() bool {
	return s.State() == StateActive
}

func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *Session) Email() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.email
}

func (s *Session) UserType() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userType
}

// JoinChannel records a channel membership.
func (s *Session) JoinChannel(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels[channelID] = struct{}{}
	s.lastActiveAt = time.Now()
}

// LeaveChannel removes a membership and reports whether it existed.
func (s *Session) LeaveChannel(channelID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.channels[channelID]
	delete(s.channels, channelID)
	s.lastActiveAt = time.Now()
	return ok
}

// InChannel reports membership.
func (s *Session) InChannel(channelID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.channels[channelID]
	return ok
}

// Channels returns a snapshot of joined channel ids.
func (s *Session) Channels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.channels))
	for id := range s.channels {
		out = append(out, id)
	}
	return out
}

// UpdateActivity bumps the last-activity timestamp.
func (s *Session) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActiveAt = time.Now()
}

// LastActiveAt returns the last-activity timestamp.
func (s *Session) LastActiveAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActiveAt
}
