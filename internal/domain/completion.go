package domain

import (
	"context"

	"github.com/superbrain-ai/superbrain/internal/domain/chat"
)

// Completer is the shared completion provider contract between layers.
// One call, one reply; retries are the caller's decision and nobody makes it.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error)
}

// HealthChecker verifies completion provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// CompletionRequest describes one provider invocation: a system instruction,
// optional prior turns, and the user instruction, in that order.
type CompletionRequest struct {
	System string
	Priors []chat.Turn
	User   string
}

// Messages flattens the request into the ordered role-tagged list sent
// upstream: system first (skipped when blank), then priors, then the user turn.
func (r CompletionRequest) Messages() []chat.Turn {
	msgs := make([]chat.Turn, 0, len(r.Priors)+2)
	if r.System != "" {
		msgs = append(msgs, chat.Reconstruct(chat.RoleSystem, r.System))
	}
	msgs = append(msgs, r.Priors...)
	msgs = append(msgs, chat.Reconstruct(chat.RoleUser, r.User))
	return msgs
}

// CompletionResult carries the reply text and token usage reported upstream.
type CompletionResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
