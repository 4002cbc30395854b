package chat

import (
	"context"

	"github.com/superbrain-ai/superbrain/internal/domain"
	"github.com/superbrain-ai/superbrain/internal/domain/chat"
	"github.com/superbrain-ai/superbrain/internal/domain/session"
)

// Gateway performs one admission-checked completion call.
type Gateway interface {
	Complete(ctx context.Context, sess *session.Session, systemInstruction, userInstruction string, priors []chat.Turn) (domain.CompletionResult, error)
}

// ExchangeRecorder persists history changes after they are applied in
// memory (write-behind).
type ExchangeRecorder interface {
	RecordExchange(sess *session.Session, user, assistant chat.Turn)
	RecordClear(sess *session.Session)
}
