package health

import "context"

// StorePinger checks session store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks completion provider availability.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}

// SessionCounter reports the live session count.
type SessionCounter interface {
	Count() int
}
