package completion

import (
	"context"

	"github.com/superbrain-ai/superbrain/internal/domain"
	"github.com/superbrain-ai/superbrain/internal/domain/session"
)

// Completer invokes the external completion provider.
type Completer interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResult, error)
}

// Admitter gates requests before the provider call and records fulfilled ones.
type Admitter interface {
	Admit(sess *session.Session) error
	RegisterUsage(sess *session.Session)
}
