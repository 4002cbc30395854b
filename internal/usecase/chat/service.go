// Package chat drives the conversational mode: every message replays the
// session history as context for the completion call, and each fulfilled
// exchange extends that history.
package chat

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/superbrain-ai/superbrain/internal/domain"
	"github.com/superbrain-ai/superbrain/internal/domain/chat"
	"github.com/superbrain-ai/superbrain/internal/domain/session"
)

// Service implements the chat mode on top of the completion gateway.
type Service struct {
	gateway  Gateway
	system   string
	recorder ExchangeRecorder
	logger   *zap.Logger
}

// New creates a chat service. systemInstruction is sent as the system turn
// of every chat completion; blank means no system turn.
func New(gateway Gateway, systemInstruction string, logger *zap.Logger) *Service {
	return &Service{
		gateway: gateway,
		system:  systemInstruction,
		logger:  logger,
	}
}

// WithRecorder attaches a persistence observer for history changes.
func (s *Service) WithRecorder(r ExchangeRecorder) *Service {
	s.recorder = r
	return s
}

// Send submits one user message. The stored history rides along as prior
// turns; on success the (user, assistant) pair is appended to it. A failed
// or refused call leaves the history untouched.
func (s *Service) Send(ctx context.Context, sess *session.Session, message string) (domain.CompletionResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return domain.CompletionResult{}, domain.ErrEmptyInstruction
	}
	if len(message) > chat.MaxTextSize {
		return domain.CompletionResult{}, domain.ErrMessageTooLarge
	}

	userTurn, err := chat.New(chat.RoleUser, message)
	if err != nil {
		return domain.CompletionResult{}, fmt.Errorf("user turn: %w", err)
	}

	priors := sess.History()
	result, err := s.gateway.Complete(ctx, sess, s.system, message, priors)
	if err != nil {
		return domain.CompletionResult{}, err
	}

	// Provider output is stored verbatim, even when empty.
	assistantTurn := chat.Reconstruct(chat.RoleAssistant, result.Text)
	sess.AppendExchange(userTurn, assistantTurn)
	if s.recorder != nil {
		s.recorder.RecordExchange(sess, userTurn, assistantTurn)
	}

	s.logger.Debug("Chat exchange recorded",
		zap.String("session_id", sess.ID()),
		zap.Int("history_len", sess.HistoryLen()),
	)
	return result, nil
}

// History returns the stored turns, oldest first.
func (s *Service) History(sess *session.Session) []chat.Turn {
	return sess.History()
}

// Clear drops the conversation, keeping usage counters and entitlement.
func (s *Service) Clear(sess *session.Session) {
	sess.ClearHistory()
	if s.recorder != nil {
		s.recorder.RecordClear(sess)
	}
	s.logger.Debug("Chat history cleared", zap.String("session_id", sess.ID()))
}
