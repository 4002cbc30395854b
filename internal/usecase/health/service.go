package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates a non-critical component failure; completions still work.
	Degraded Status = "degraded"
	// Unhealthy indicates the completion provider is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status   Status
	Checks   map[string]CheckResult
	Sessions int
}

// Service coordinates health checks.
type Service struct {
	store    StorePinger
	provider ProviderChecker
	sessions SessionCounter
}

// New creates a Service. store and sessions can be nil (memory-only mode).
func New(store StorePinger, provider ProviderChecker, sessions SessionCounter) *Service {
	return &Service{store: store, provider: provider, sessions: sessions}
}

// Check runs health checks against all components. A failing provider makes
// the service unhealthy; a failing store only degrades it, since sessions
// keep working from memory.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.store != nil {
		if err := s.store.Ping(ctx); err != nil {
			checks["store"] = CheckError
		} else {
			checks["store"] = CheckOK
		}
	}

	if s.provider != nil {
		if err := s.provider.HealthCheck(ctx); err != nil {
			checks["provider"] = CheckError
		} else {
			checks["provider"] = CheckOK
		}
	}

	status := Healthy
	for name, v := range checks {
		if v != CheckError {
			continue
		}
		if name == "provider" {
			status = Unhealthy
			break
		}
		status = Degraded
	}

	sessions := 0
	if s.sessions != nil {
		sessions = s.sessions.Count()
	}

	return Report{Status: status, Checks: checks, Sessions: sessions}
}
