// Package usage holds the read-only projection of a session's allowance.
package usage

// Plan is the entitlement tier of a session.
type Plan string

// Entitlement tier constants.
const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

// Unlimited is the Remaining value reported for premium sessions.
const Unlimited = -1

// Report is a point-in-time view of a session against the usage policy.
type Report struct {
	plan         Plan
	limit        int
	used         int
	premiumSince int64 // unix millis, 0 for free sessions
}

// New creates a usage report snapshot.
func New(plan Plan, limit, used int, premiumSince int64) Report {
	return Report{
		plan:         plan,
		limit:        limit,
		used:         used,
		premiumSince: premiumSince,
	}
}

// Plan returns the entitlement tier.
func (r Report) Plan() Plan { return r.plan }

// Limit returns the free-tier request cap.
func (r Report) Limit() int { return r.limit }

// Used returns completions counted against the free allowance.
func (r Report) Used() int { return r.used }

// Remaining returns requests left in the free allowance, Unlimited for premium.
func (r Report) Remaining() int {
	if r.plan == PlanPremium {
		return Unlimited
	}
	remaining := r.limit - r.used
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Exhausted reports whether the free allowance is spent.
func (r Report) Exhausted() bool {
	return r.plan != PlanPremium && r.used >= r.limit
}

// PremiumSince returns the unlock timestamp (unix millis), 0 for free sessions.
func (r Report) PremiumSince() int64 { return r.premiumSince }
