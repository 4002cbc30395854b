package superbrain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/superbrain-ai/superbrain/internal/domain"
	"github.com/superbrain-ai/superbrain/internal/domain/chat"
	domsess "github.com/superbrain-ai/superbrain/internal/domain/session"
	"github.com/superbrain-ai/superbrain/internal/domain/usage"
)

// Turn roles as they appear in History and in prior turns.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one utterance in a conversation.
type Turn struct {
	Role string
	Text string
}

// Completion is the outcome of a fulfilled completion call.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Usage describes a session's standing against the usage policy.
type Usage struct {
	Plan         string // "free" or "premium"
	Limit        int    // free-tier allowance
	Used         int    // completions counted so far
	Remaining    int    // -1 means unlimited
	Exhausted    bool
	PremiumSince time.Time // zero for free sessions
}

// Session is a handle on one user's interactive context. Handles are cheap
// and safe for concurrent use; all state lives in the Client.
type Session struct {
	id string
	c  *Client
}

// NewSession starts a fresh free-tier session.
func (c *Client) NewSession() *Session {
	sess := c.manager.Create()
	return &Session{id: sess.ID(), c: c}
}

// Session returns a handle on an existing session. Unknown and expired IDs
// yield ErrSessionNotFound.
func (c *Client) Session(ctx context.Context, id string) (*Session, error) {
	if _, err := c.manager.Get(ctx, id); err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	return &Session{id: id, c: c}, nil
}

// ID returns the session identifier. With a store attached the identifier
// stays valid across process restarts.
func (s *Session) ID() string { return s.id }

// Complete runs one admission-gated completion outside the chat history.
// systemInstruction may be blank; prior turns frame the request when given.
func (s *Session) Complete(
	ctx context.Context, systemInstruction, userInstruction string, priors ...Turn,
) (Completion, error) {
	sess, err := s.resolve(ctx)
	if err != nil {
		return Completion{}, err
	}
	priorTurns, err := toChatTurns(priors)
	if err != nil {
		return Completion{}, err
	}
	result, err := s.c.completions.Complete(
		ctx, sess, systemInstruction, strings.TrimSpace(userInstruction), priorTurns,
	)
	if err != nil {
		return Completion{}, err
	}
	return fromCompletionResult(result), nil
}

// Send runs one chat exchange: the message is answered in the context of the
// stored history and the fulfilled exchange is appended to it.
func (s *Session) Send(ctx context.Context, message string) (Completion, error) {
	sess, err := s.resolve(ctx)
	if err != nil {
		return Completion{}, err
	}
	result, err := s.c.chat.Send(ctx, sess, message)
	if err != nil {
		return Completion{}, err
	}
	return fromCompletionResult(result), nil
}

// History returns the stored conversation, oldest first.
func (s *Session) History(ctx context.Context) ([]Turn, error) {
	sess, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return fromChatTurns(s.c.chat.History(sess)), nil
}

// ClearHistory drops the conversation, keeping usage and entitlement intact.
func (s *Session) ClearHistory(ctx context.Context) error {
	sess, err := s.resolve(ctx)
	if err != nil {
		return err
	}
	s.c.chat.Clear(sess)
	return nil
}

// Unlock upgrades the session to premium when code matches the configured
// unlock code. A wrong code returns false and changes nothing.
func (s *Session) Unlock(ctx context.Context, code string) (bool, error) {
	sess, err := s.resolve(ctx)
	if err != nil {
		return false, err
	}
	return s.c.tracker.AttemptUnlock(sess, code), nil
}

// Usage reports the session's standing against the usage policy.
func (s *Session) Usage(ctx context.Context) (Usage, error) {
	sess, err := s.resolve(ctx)
	if err != nil {
		return Usage{}, err
	}
	return fromUsageReport(s.c.usage.GetReport(sess)), nil
}

// Destroy forgets the session. Destroying a gone session is a no-op.
func (s *Session) Destroy(ctx context.Context) {
	sess, err := s.c.manager.Get(ctx, s.id)
	if err != nil {
		return
	}
	s.c.manager.Destroy(sess)
}

func (s *Session) resolve(ctx context.Context) (*domsess.Session, error) {
	sess, err := s.c.manager.Get(ctx, s.id)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", s.id, err)
	}
	return sess, nil
}

func toChatTurns(turns []Turn) ([]chat.Turn, error) {
	if len(turns) == 0 {
		return nil, nil
	}
	out := make([]chat.Turn, len(turns))
	for i, t := range turns {
		ct, err := chat.New(chat.Role(t.Role), t.Text)
		if err != nil {
			return nil, fmt.Errorf("prior turn %d: %w", i, err)
		}
		out[i] = ct
	}
	return out, nil
}

func fromChatTurns(turns []chat.Turn) []Turn {
	out := make([]Turn, len(turns))
	for i, t := range turns {
		out[i] = Turn{Role: string(t.Role()), Text: t.Text()}
	}
	return out
}

func fromCompletionResult(r domain.CompletionResult) Completion {
	return Completion{
		Text:             r.Text,
		PromptTokens:     r.PromptTokens,
		CompletionTokens: r.CompletionTokens,
		TotalTokens:      r.TotalTokens,
	}
}

func fromUsageReport(rep usage.Report) Usage {
	u := Usage{
		Plan:      string(rep.Plan()),
		Limit:     rep.Limit(),
		Used:      rep.Used(),
		Remaining: rep.Remaining(),
		Exhausted: rep.Exhausted(),
	}
	if ms := rep.PremiumSince(); ms > 0 {
		u.PremiumSince = time.UnixMilli(ms).UTC()
	}
	return u
}
