package usage

import (
	"testing"
	"time"

	"github.com/superbrain-ai/superbrain/internal/domain/session"
	domusage "github.com/superbrain-ai/superbrain/internal/domain/usage"
)

// --- Mock ---

type mockPolicyReader struct {
	freeLimit int
}

func (m *mockPolicyReader) FreeLimit() int { return m.freeLimit }

// --- Helpers ---

func newSession(t *testing.T) *session.Session {
	t.Helper()
	s, err := session.New("sess_test", 0, time.Now())
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	return s
}

// --- Tests ---

func TestGetReport_Free(t *testing.T) {
	svc := New(&mockPolicyReader{freeLimit: 10})
	s := newSession(t)
	s.RegisterUsage()
	s.RegisterUsage()

	r := svc.GetReport(s)
	if r.Plan() != domusage.PlanFree {
		t.Errorf("Plan = %q, want free", r.Plan())
	}
	if r.Limit() != 10 {
		t.Errorf("Limit = %d, want 10", r.Limit())
	}
	if r.Used() != 2 {
		t.Errorf("Used = %d, want 2", r.Used())
	}
	if r.Remaining() != 8 {
		t.Errorf("Remaining = %d, want 8", r.Remaining())
	}
	if r.Exhausted() {
		t.Error("report should not be exhausted")
	}
	if r.PremiumSince() != 0 {
		t.Errorf("PremiumSince = %d, want 0 for free", r.PremiumSince())
	}
}

func TestGetReport_Premium(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := New(&mockPolicyReader{freeLimit: 10})
	s := newSession(t)
	s.Unlock(at)

	r := svc.GetReport(s)
	if r.Plan() != domusage.PlanPremium {
		t.Errorf("Plan = %q, want premium", r.Plan())
	}
	if r.Remaining() != domusage.Unlimited {
		t.Errorf("Remaining = %d, want %d", r.Remaining(), domusage.Unlimited)
	}
	if r.Exhausted() {
		t.Error("premium report must never be exhausted")
	}
	if r.PremiumSince() != at.UnixMilli() {
		t.Errorf("PremiumSince = %d, want %d", r.PremiumSince(), at.UnixMilli())
	}
}

func TestGetReport_Exhausted(t *testing.T) {
	svc := New(&mockPolicyReader{freeLimit: 2})
	s := newSession(t)
	s.RegisterUsage()
	s.RegisterUsage()

	r := svc.GetReport(s)
	if !r.Exhausted() {
		t.Error("report should be exhausted at the limit")
	}
	if r.Remaining() != 0 {
		t.Errorf("Remaining = %d, want 0", r.Remaining())
	}
}

func TestGetReport_OverLimitClampsAtZero(t *testing.T) {
	// A policy lowered between restarts can leave sessions over the limit;
	// remaining reports 0, not a negative number.
	svc := New(&mockPolicyReader{freeLimit: 2})
	s := newSession(t)
	for i := 0; i < 5; i++ {
		s.RegisterUsage()
	}

	r := svc.GetReport(s)
	if r.Used() != 5 {
		t.Errorf("Used = %d, want 5 (counted usage is never discarded)", r.Used())
	}
	if r.Remaining() != 0 {
		t.Errorf("Remaining = %d, want 0", r.Remaining())
	}
	if !r.Exhausted() {
		t.Error("report should be exhausted over the limit")
	}
}

func TestGetReport_NilPolicyReader(t *testing.T) {
	svc := New(nil)
	s := newSession(t)

	r := svc.GetReport(s)
	if r.Limit() != 0 {
		t.Errorf("Limit = %d, want 0", r.Limit())
	}
	if r.Remaining() != 0 {
		t.Errorf("Remaining = %d, want 0", r.Remaining())
	}
}
