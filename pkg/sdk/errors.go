package sdk

import (
	"errors"
	"fmt"

	"github.com/superbrain-ai/superbrain/internal/domain"
)

// Sentinel errors re-exported from the domain layer, so errors.Is checks
// work the same against the embedded client and this one.
var (
	ErrQuotaExceeded   = domain.ErrQuotaExceeded
	ErrProviderError   = domain.ErrProviderError
	ErrSessionNotFound = domain.ErrSessionNotFound
)

// ErrUnauthorized marks a request rejected by API key auth.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a decoded error response from the server. Unwrap yields the
// matching package sentinel, so errors.Is works against the errors above.
type APIError struct {
	Status  int    // HTTP status code
	Code    string // machine-readable error code
	Message string
	Limit   int // free-tier cap, populated on quota refusals
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("unexpected status %d (%s)", e.Status, e.Code)
}

func (e *APIError) Unwrap() error {
	switch e.Code {
	case "quota_exceeded":
		return ErrQuotaExceeded
	case "provider_error":
		return ErrProviderError
	case "session_not_found":
		return ErrSessionNotFound
	case "unauthorized":
		return ErrUnauthorized
	}
	return nil
}
