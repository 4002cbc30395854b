// Package session manages the lifetime of interactive sessions: creation,
// lookup, idle expiry and optional write-behind persistence.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/superbrain-ai/superbrain/internal/domain"
	"github.com/superbrain-ai/superbrain/internal/domain/chat"
	domsess "github.com/superbrain-ai/superbrain/internal/domain/session"
	"github.com/superbrain-ai/superbrain/internal/metrics"
)

// idPrefix marks generated session identifiers.
const idPrefix = "sess_"

// persistTimeout bounds write-behind store calls. Uses a background context
// so persistence is detached from the request lifecycle.
const persistTimeout = 2 * time.Second

// defaultSweepInterval is how often idle sessions are evicted.
const defaultSweepInterval = 5 * time.Minute

// Repository is the persistence interface for sessions. All calls are
// write-behind: failures are logged by the manager, never surfaced.
type Repository interface {
	Save(ctx context.Context, snap domsess.Snapshot) error
	Load(ctx context.Context, id string) (domsess.Snapshot, error)
	IncrementUsage(ctx context.Context, id string, delta int64) error
	AppendHistory(ctx context.Context, id string, turns []chat.Turn, maxTurns int) error
	ClearHistory(ctx context.Context, id string) error
	Touch(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// Config holds session lifecycle parameters.
type Config struct {
	TTL           time.Duration // idle expiry; non-positive means sessions never expire
	HistoryLimit  int           // chat turns kept per session; 0 means unbounded
	SweepInterval time.Duration // idle sweep cadence; defaults to 5m
}

// Manager owns the live session set. In-memory state is authoritative; an
// attached repository is a write-behind replica used to survive restarts.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*domsess.Session
	cfg      Config
	repo     Repository
	logger   *zap.Logger
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// NewManager creates a session manager without persistence.
func NewManager(cfg Config, logger *zap.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*domsess.Session),
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

// WithRepository attaches a write-behind store. Sessions missing from memory
// are hydrated from it on lookup.
func (m *Manager) WithRepository(repo Repository) *Manager {
	m.repo = repo
	return m
}

// WithClock overrides the time source (test-only).
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// NewID returns a fresh session identifier.
func NewID() string {
	return idPrefix + uuid.NewString()
}

// ValidID reports whether id looks like a generated session identifier.
func ValidID(id string) bool {
	if !strings.HasPrefix(id, idPrefix) {
		return false
	}
	_, err := uuid.Parse(id[len(idPrefix):])
	return err == nil
}

// Create registers a fresh free-tier session and returns it.
func (m *Manager) Create() *domsess.Session {
	now := m.now().UTC()
	id := NewID()
	sess := domsess.Reconstruct(domsess.Snapshot{
		ID:         id,
		CreatedAt:  now,
		LastSeenAt: now,
	}, m.cfg.HistoryLimit)

	m.mu.Lock()
	m.sessions[id] = sess
	active := len(m.sessions)
	m.mu.Unlock()

	metrics.ActiveSessions.Inc()
	m.logger.Debug("Session created",
		zap.String("session_id", id),
		zap.Int("active", active),
	)

	m.persistSnapshot(sess)
	return sess
}

// Get returns the live session with the given ID, touching its idle timer.
// Unknown, expired and unhydratable IDs yield domain.ErrSessionNotFound.
func (m *Manager) Get(ctx context.Context, id string) (*domsess.Session, error) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	m.mu.Unlock()

	now := m.now().UTC()
	if ok {
		if sess.Expired(now, m.cfg.TTL) {
			m.evict(id)
			return nil, domain.ErrSessionNotFound
		}
		m.touch(sess, now)
		return sess, nil
	}

	if m.repo == nil {
		return nil, domain.ErrSessionNotFound
	}
	return m.hydrate(ctx, id, now)
}

// GetOrCreate resolves the session for a request. A blank or malformed ID,
// and any miss, yields a fresh session.
func (m *Manager) GetOrCreate(ctx context.Context, id string) *domsess.Session {
	if !ValidID(id) {
		return m.Create()
	}
	sess, err := m.Get(ctx, id)
	if err != nil {
		return m.Create()
	}
	return sess
}

// Destroy forgets a session entirely, both in memory and in the store.
func (m *Manager) Destroy(sess *domsess.Session) {
	id := sess.ID()
	m.evict(id)

	if m.repo == nil {
		return
	}
	ctx, cancel := persistContext()
	defer cancel()
	if err := m.repo.Delete(ctx, id); err != nil {
		m.logger.Warn("Failed to delete persisted session",
			zap.String("session_id", id), zap.Error(err))
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// StartSweeper launches the background idle-session sweeper. No-op when
// sessions never expire.
func (m *Manager) StartSweeper() {
	if m.cfg.TTL <= 0 {
		return
	}
	interval := m.cfg.SweepInterval
	if interval <= 0 {
		interval = defaultSweepInterval
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stop:
				return
			case <-ticker.C:
				m.sweep(m.now().UTC())
			}
		}
	}()
}

// Close stops the sweeper. Idempotent.
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// RecordUsage persists the usage counter increment for a metered completion.
func (m *Manager) RecordUsage(sess *domsess.Session) {
	if m.repo == nil {
		return
	}
	ctx, cancel := persistContext()
	defer cancel()
	if err := m.repo.IncrementUsage(ctx, sess.ID(), 1); err != nil {
		m.logger.Warn("Failed to persist usage counter",
			zap.String("session_id", sess.ID()), zap.Error(err))
	}
}

// RecordUnlock persists the full scalar state after a premium unlock.
func (m *Manager) RecordUnlock(sess *domsess.Session) {
	m.persistSnapshot(sess)
}

// RecordExchange persists a fulfilled chat exchange.
func (m *Manager) RecordExchange(sess *domsess.Session, user, assistant chat.Turn) {
	if m.repo == nil {
		return
	}
	ctx, cancel := persistContext()
	defer cancel()
	err := m.repo.AppendHistory(ctx, sess.ID(), []chat.Turn{user, assistant}, m.cfg.HistoryLimit)
	if err != nil {
		m.logger.Warn("Failed to persist chat exchange",
			zap.String("session_id", sess.ID()), zap.Error(err))
	}
}

// RecordClear persists a history wipe.
func (m *Manager) RecordClear(sess *domsess.Session) {
	if m.repo == nil {
		return
	}
	ctx, cancel := persistContext()
	defer cancel()
	if err := m.repo.ClearHistory(ctx, sess.ID()); err != nil {
		m.logger.Warn("Failed to clear persisted history",
			zap.String("session_id", sess.ID()), zap.Error(err))
	}
}

// sweep evicts sessions idle longer than the TTL and returns how many.
func (m *Manager) sweep(now time.Time) int {
	m.mu.Lock()
	removed := 0
	for id, sess := range m.sessions {
		if sess.Expired(now, m.cfg.TTL) {
			delete(m.sessions, id)
			removed++
		}
	}
	active := len(m.sessions)
	m.mu.Unlock()

	if removed > 0 {
		metrics.ActiveSessions.Sub(float64(removed))
		m.logger.Info("Swept idle sessions",
			zap.Int("removed", removed),
			zap.Int("active", active),
		)
	}
	return removed
}

func (m *Manager) hydrate(ctx context.Context, id string, now time.Time) (*domsess.Session, error) {
	snap, err := m.repo.Load(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrSessionNotFound) {
			m.logger.Warn("Failed to hydrate session, starting fresh",
				zap.String("session_id", id), zap.Error(err))
		}
		return nil, domain.ErrSessionNotFound
	}

	sess := domsess.Reconstruct(snap, m.cfg.HistoryLimit)

	m.mu.Lock()
	if existing, ok := m.sessions[id]; ok {
		// Lost a concurrent hydration race; keep the first one.
		sess = existing
	} else {
		m.sessions[id] = sess
		metrics.ActiveSessions.Inc()
	}
	m.mu.Unlock()

	m.touch(sess, now)
	m.logger.Debug("Session hydrated", zap.String("session_id", id))
	return sess, nil
}

func (m *Manager) touch(sess *domsess.Session, now time.Time) {
	sess.Touch(now)
	if m.repo == nil {
		return
	}
	ctx, cancel := persistContext()
	defer cancel()
	if err := m.repo.Touch(ctx, sess.ID()); err != nil {
		m.logger.Warn("Failed to refresh session TTL",
			zap.String("session_id", sess.ID()), zap.Error(err))
	}
}

func (m *Manager) evict(id string) {
	m.mu.Lock()
	_, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if ok {
		metrics.ActiveSessions.Dec()
	}
}

func (m *Manager) persistSnapshot(sess *domsess.Session) {
	if m.repo == nil {
		return
	}
	ctx, cancel := persistContext()
	defer cancel()
	if err := m.repo.Save(ctx, sess.Snapshot()); err != nil {
		m.logger.Warn("Failed to persist session",
			zap.String("session_id", sess.ID()), zap.Error(err))
	}
}

func persistContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), persistTimeout)
}
