// Package entitlement gates and accounts for session usage: free-tier
// admission, usage counting and the premium unlock.
package entitlement

import (
	"time"

	"go.uber.org/zap"

	"github.com/superbrain-ai/superbrain/internal/domain"
	"github.com/superbrain-ai/superbrain/internal/domain/session"
	"github.com/superbrain-ai/superbrain/internal/metrics"
)

// Policy is the process-wide usage policy: free-tier cap and unlock secret.
// Loaded once at startup, immutable thereafter.
type Policy struct {
	FreeLimit    int
	UnlockSecret string
}

// UsageRecorder persists entitlement changes after they are applied in
// memory (write-behind). Implementations must never block on failures.
type UsageRecorder interface {
	RecordUsage(sess *session.Session)
	RecordUnlock(sess *session.Session)
}

// Tracker answers "is another request allowed", records fulfilled requests
// and upgrades sessions given the correct code. It performs no I/O itself;
// all state lives on the session aggregate passed into every call.
type Tracker struct {
	policy   Policy
	logger   *zap.Logger
	now      func() time.Time
	recorder UsageRecorder
}

// New creates a Tracker with the given policy.
func New(policy Policy, logger *zap.Logger) *Tracker {
	return &Tracker{
		policy: policy,
		logger: logger,
		now:    time.Now,
	}
}

// WithRecorder attaches a persistence observer for usage and unlock events.
func (t *Tracker) WithRecorder(r UsageRecorder) *Tracker {
	t.recorder = r
	return t
}

// WithClock overrides the time source (test-only).
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// FreeLimit returns the free-tier request cap.
func (t *Tracker) FreeLimit() int { return t.policy.FreeLimit }

// CanUse reports whether the session may make another completion request.
// Premium sessions always pass; free sessions pass while under the limit.
func (t *Tracker) CanUse(sess *session.Session) bool {
	if sess.IsPremium() {
		return true
	}
	return sess.RequestCount() < t.policy.FreeLimit
}

// Admit is CanUse with a typed refusal: nil when allowed, otherwise a
// *domain.QuotaExceededError naming the configured limit.
func (t *Tracker) Admit(sess *session.Session) error {
	if t.CanUse(sess) {
		return nil
	}
	metrics.QuotaRejectionsTotal.Inc()
	t.logger.Info("Free quota exhausted",
		zap.String("session_id", sess.ID()),
		zap.Int("request_count", sess.RequestCount()),
		zap.Int("free_limit", t.policy.FreeLimit),
	)
	return domain.NewQuotaExceeded(t.policy.FreeLimit)
}

// RegisterUsage counts one successfully fulfilled completion against the
// session. Call it once per fulfilled request and never for failed ones.
// No-op for premium sessions.
func (t *Tracker) RegisterUsage(sess *session.Session) {
	count := sess.RegisterUsage()
	premium := sess.IsPremium()
	if t.recorder != nil && !premium {
		t.recorder.RecordUsage(sess)
	}
	t.logger.Debug("Usage registered",
		zap.String("session_id", sess.ID()),
		zap.Int("request_count", count),
		zap.Bool("premium", premium),
	)
}

// AttemptUnlock upgrades the session to premium iff the supplied code is
// non-empty and exactly equals the configured secret. Case-sensitive, no
// normalization. An empty configured secret never matches anything.
// Returns false on mismatch, leaving the session untouched.
func (t *Tracker) AttemptUnlock(sess *session.Session, code string) bool {
	if code == "" || t.policy.UnlockSecret == "" {
		metrics.UnlockAttemptsTotal.WithLabelValues("rejected").Inc()
		return false
	}
	if code != t.policy.UnlockSecret {
		metrics.UnlockAttemptsTotal.WithLabelValues("rejected").Inc()
		t.logger.Info("Unlock rejected", zap.String("session_id", sess.ID()))
		return false
	}

	sess.Unlock(t.now().UTC())
	if t.recorder != nil {
		t.recorder.RecordUnlock(sess)
	}
	metrics.UnlockAttemptsTotal.WithLabelValues("ok").Inc()
	t.logger.Info("Session unlocked to premium", zap.String("session_id", sess.ID()))
	return true
}
