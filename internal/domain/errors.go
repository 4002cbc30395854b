package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound signals a missing or expired session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrQuotaExceeded signals an exhausted free-tier allowance.
	ErrQuotaExceeded = errors.New("free quota exceeded")
	// ErrProviderError signals a completion provider failure.
	ErrProviderError = errors.New("completion provider error")
	// ErrEmptyInstruction signals a blank user instruction.
	ErrEmptyInstruction = errors.New("user instruction is empty")
	// ErrMessageTooLarge signals a chat message over the size cap.
	ErrMessageTooLarge = errors.New("message exceeds maximum size")
)

// QuotaExceededError wraps ErrQuotaExceeded with the configured free limit,
// so the refusal shown to the user names the cap that was hit.
type QuotaExceededError struct {
	Limit int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s: free limit of %d requests reached, unlock premium to continue", ErrQuotaExceeded.Error(), e.Limit)
}

func (e *QuotaExceededError) Unwrap() error { return ErrQuotaExceeded }

// NewQuotaExceeded creates a quota exceeded error naming the limit.
func NewQuotaExceeded(limit int) error {
	return &QuotaExceededError{Limit: limit}
}

// ProviderError wraps ErrProviderError with a readable description of the
// upstream failure. StatusCode is 0 when the failure never reached HTTP.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (status %d)", ErrProviderError.Error(), e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", ErrProviderError.Error(), e.Message)
}

func (e *ProviderError) Unwrap() error { return ErrProviderError }

// NewProviderError creates a provider error carrying the upstream status code.
func NewProviderError(statusCode int, message string) error {
	return &ProviderError{StatusCode: statusCode, Message: message}
}
