// Package session holds the per-user interactive context: usage counters,
// entitlement state and chat history.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/superbrain-ai/superbrain/internal/domain/chat"
)

// Session is one user's interactive context. All mutable state is guarded by
// an internal mutex: several in-flight requests may be multiplexed onto the
// same session, and the usage increment must not lose updates.
type Session struct {
	mu                 sync.Mutex
	id                 string
	requestCount       int
	premium            bool
	premiumActivatedAt time.Time
	history            []chat.Turn
	historyLimit       int
	createdAt          time.Time
	lastSeenAt         time.Time
}

// Snapshot is an immutable copy of session state, taken under the lock.
// Used for persistence and for consistent multi-field reads.
type Snapshot struct {
	ID                 string
	RequestCount       int
	Premium            bool
	PremiumActivatedAt time.Time // zero when never activated
	History            []chat.Turn
	CreatedAt          time.Time
	LastSeenAt         time.Time
}

// New creates a fresh free-tier session.
// historyLimit bounds the stored chat turns; 0 means unbounded.
func New(id string, historyLimit int, now time.Time) (*Session, error) {
	if id == "" {
		return nil, fmt.Errorf("session ID is required")
	}
	if historyLimit < 0 {
		return nil, fmt.Errorf("history limit must not be negative")
	}
	return &Session{
		id:           id,
		historyLimit: historyLimit,
		createdAt:    now,
		lastSeenAt:   now,
	}, nil
}

// Reconstruct restores a session from a snapshot without validation (storage hydration).
func Reconstruct(snap Snapshot, historyLimit int) *Session {
	return &Session{
		id:                 snap.ID,
		requestCount:       snap.RequestCount,
		premium:            snap.Premium,
		premiumActivatedAt: snap.PremiumActivatedAt,
		history:            append([]chat.Turn(nil), snap.History...),
		historyLimit:       historyLimit,
		createdAt:          snap.CreatedAt,
		lastSeenAt:         snap.LastSeenAt,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// RequestCount returns the number of completions counted against the free allowance.
func (s *Session) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requestCount
}

// IsPremium reports whether the session has been unlocked.
func (s *Session) IsPremium() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.premium
}

// PremiumActivatedAt returns the unlock timestamp; ok is false for free sessions.
func (s *Session) PremiumActivatedAt() (at time.Time, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.premiumActivatedAt, s.premium
}

// RegisterUsage counts one fulfilled completion and returns the resulting count.
// No-op for premium sessions: their usage is never metered.
func (s *Session) RegisterUsage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.premium {
		return s.requestCount
	}
	s.requestCount++
	return s.requestCount
}

// Unlock switches the session to premium, resets the usage count and stamps
// the activation time. Idempotent: a second unlock keeps the original stamp.
func (s *Session) Unlock(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.premium {
		return
	}
	s.premium = true
	s.requestCount = 0
	s.premiumActivatedAt = now
}

// History returns a copy of the stored turns, oldest first.
func (s *Session) History() []chat.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.Turn(nil), s.history...)
}

// HistoryLen returns the number of stored turns.
func (s *Session) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// AppendExchange records a fulfilled user/assistant exchange, dropping the
// oldest turns when the history limit is exceeded.
func (s *Session) AppendExchange(user, assistant chat.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, user, assistant)
	if s.historyLimit > 0 && len(s.history) > s.historyLimit {
		overflow := len(s.history) - s.historyLimit
		s.history = append([]chat.Turn(nil), s.history[overflow:]...)
	}
}

// ClearHistory drops the conversation while keeping counters and entitlement.
func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

// CreatedAt returns the session creation time.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// LastSeenAt returns the time of the last interaction.
func (s *Session) LastSeenAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeenAt
}

// Touch marks the session as just used.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.After(s.lastSeenAt) {
		s.lastSeenAt = now
	}
}

// Expired reports whether the session has been idle longer than ttl.
// A non-positive ttl means sessions never expire.
func (s *Session) Expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeenAt) > ttl
}

// Snapshot returns a consistent copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:                 s.id,
		RequestCount:       s.requestCount,
		Premium:            s.premium,
		PremiumActivatedAt: s.premiumActivatedAt,
		History:            append([]chat.Turn(nil), s.history...),
		CreatedAt:          s.createdAt,
		LastSeenAt:         s.lastSeenAt,
	}
}
