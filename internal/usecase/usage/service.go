// Package usage builds the read-only projection of a session against the
// usage policy, as shown to clients next to every reply.
package usage

import (
	"github.com/superbrain-ai/superbrain/internal/domain/session"
	domusage "github.com/superbrain-ai/superbrain/internal/domain/usage"
)

// Service handles usage reporting.
type Service struct {
	policy PolicyReader
}

// New creates a Service. policy can be nil (limit reported as 0).
func New(policy PolicyReader) *Service {
	return &Service{policy: policy}
}

// GetReport projects the session against the policy limit current at read
// time. Counted usage is never discarded: a lowered limit retroactively
// gates sessions already over it.
func (s *Service) GetReport(sess *session.Session) domusage.Report {
	snap := sess.Snapshot()

	limit := 0
	if s.policy != nil {
		limit = s.policy.FreeLimit()
	}

	plan := domusage.PlanFree
	var premiumSince int64
	if snap.Premium {
		plan = domusage.PlanPremium
		premiumSince = snap.PremiumActivatedAt.UnixMilli()
	}
	return domusage.New(plan, limit, snap.RequestCount, premiumSince)
}
