package usage

import "testing"

func TestNew_Free(t *testing.T) {
	r := New(PlanFree, 10, 4, 0)
	if r.Plan() != PlanFree {
		t.Errorf("Plan() = %q", r.Plan())
	}
	if r.Limit() != 10 {
		t.Errorf("Limit() = %d", r.Limit())
	}
	if r.Used() != 4 {
		t.Errorf("Used() = %d", r.Used())
	}
	if r.Remaining() != 6 {
		t.Errorf("Remaining() = %d, want 6", r.Remaining())
	}
	if r.Exhausted() {
		t.Error("Exhausted() = true, want false")
	}
	if r.PremiumSince() != 0 {
		t.Errorf("PremiumSince() = %d, want 0", r.PremiumSince())
	}
}

func TestRemaining_ClampsAtZero(t *testing.T) {
	r := New(PlanFree, 3, 7, 0)
	if r.Remaining() != 0 {
		t.Errorf("Remaining() = %d, want 0", r.Remaining())
	}
	if !r.Exhausted() {
		t.Error("Exhausted() = false, want true")
	}
}

func TestRemaining_ExactLimit(t *testing.T) {
	r := New(PlanFree, 3, 3, 0)
	if r.Remaining() != 0 {
		t.Errorf("Remaining() = %d, want 0", r.Remaining())
	}
	if !r.Exhausted() {
		t.Error("Exhausted() = false, want true")
	}
}

func TestPremium_Unlimited(t *testing.T) {
	r := New(PlanPremium, 10, 0, 1700000000000)
	if r.Remaining() != Unlimited {
		t.Errorf("Remaining() = %d, want %d", r.Remaining(), Unlimited)
	}
	if r.Exhausted() {
		t.Error("premium report must never be exhausted")
	}
	if r.PremiumSince() != 1700000000000 {
		t.Errorf("PremiumSince() = %d", r.PremiumSince())
	}
}
