// Package completion is the gateway between admission control and the
// external completion provider.
package completion

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/superbrain-ai/superbrain/internal/domain"
	"github.com/superbrain-ai/superbrain/internal/domain/chat"
	"github.com/superbrain-ai/superbrain/internal/domain/session"
)

// Service runs admission-gated completions. Per invocation it makes exactly
// one provider call when admitted and zero otherwise; there are no retries.
type Service struct {
	completer Completer
	tracker   Admitter
	logger    *zap.Logger
}

// New creates a completion Service.
func New(completer Completer, tracker Admitter, logger *zap.Logger) *Service {
	return &Service{
		completer: completer,
		tracker:   tracker,
		logger:    logger,
	}
}

// Complete asks the provider for a reply to userInstruction, framed by
// systemInstruction and any prior turns, on behalf of the given session.
//
// Admission is checked first: an exhausted free session gets a quota error
// without any provider call and without session mutation. Usage is registered
// once on success only; a failed provider call never consumes quota.
func (s *Service) Complete(
	ctx context.Context, sess *session.Session,
	systemInstruction, userInstruction string, priors []chat.Turn,
) (domain.CompletionResult, error) {
	if userInstruction == "" {
		return domain.CompletionResult{}, domain.ErrEmptyInstruction
	}

	if err := s.tracker.Admit(sess); err != nil {
		return domain.CompletionResult{}, fmt.Errorf("admit: %w", err)
	}

	req := domain.CompletionRequest{
		System: systemInstruction,
		Priors: priors,
		User:   userInstruction,
	}

	result, err := s.completer.Complete(ctx, req)
	if err != nil {
		return domain.CompletionResult{}, fmt.Errorf("complete: %w", err)
	}

	s.tracker.RegisterUsage(sess)
	domain.UsageFromContext(ctx).AddTokens(result.TotalTokens)

	s.logger.Debug("Completion fulfilled",
		zap.String("session_id", sess.ID()),
		zap.Int("prior_turns", len(priors)),
		zap.Int("total_tokens", result.TotalTokens),
	)
	return result, nil
}
