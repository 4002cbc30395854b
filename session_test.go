package superbrain

import (
	"context"
	"errors"
	"testing"
)

func newTestClient(t *testing.T, completer Completer) *Client {
	t.Helper()
	c, err := New(
		WithCompleter(completer),
		WithFreeLimit(3),
		WithUnlockCode("ABC123"),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func fixedCompleter(text string) *mockCompleter {
	return &mockCompleter{
		fn: func(_ context.Context, _ []Turn) (Completion, error) {
			return Completion{Text: text, PromptTokens: 12, CompletionTokens: 4, TotalTokens: 16}, nil
		},
	}
}

func TestSession_QuotaLifecycle(t *testing.T) {
	calls := 0
	c := newTestClient(t, &mockCompleter{
		fn: func(_ context.Context, _ []Turn) (Completion, error) {
			calls++
			return Completion{Text: "Sure", TotalTokens: 9}, nil
		},
	})
	sess := c.NewSession()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := sess.Complete(ctx, "", "hello")
		if err != nil {
			t.Fatalf("call %d: %v", i+1, err)
		}
		if result.Text != "Sure" {
			t.Fatalf("call %d text = %q, want Sure", i+1, result.Text)
		}
	}

	_, err := sess.Complete(ctx, "", "one more")
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("err = %v, want ErrQuotaExceeded", err)
	}
	var qe *QuotaExceededError
	if !errors.As(err, &qe) {
		t.Fatalf("err = %v, want *QuotaExceededError", err)
	}
	if qe.Limit != 3 {
		t.Errorf("limit = %d, want 3", qe.Limit)
	}
	if calls != 3 {
		t.Errorf("provider calls = %d, want 3", calls)
	}

	u, err := sess.Usage(ctx)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if u.Used != 3 || u.Remaining != 0 || !u.Exhausted {
		t.Errorf("usage = %+v, want used 3, remaining 0, exhausted", u)
	}
}

func TestSession_UnlockIsCaseSensitive(t *testing.T) {
	c := newTestClient(t, fixedCompleter("ok"))
	sess := c.NewSession()
	ctx := context.Background()

	ok, err := sess.Unlock(ctx, "abc123")
	if err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if ok {
		t.Error("lowercase code must not unlock")
	}
	u, err := sess.Usage(ctx)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if u.Plan != "free" {
		t.Errorf("plan = %q, want free after rejected code", u.Plan)
	}

	ok, err = sess.Unlock(ctx, "ABC123")
	if err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if !ok {
		t.Fatal("exact code must unlock")
	}
}

func TestSession_UnlockRestoresService(t *testing.T) {
	c := newTestClient(t, fixedCompleter("ok"))
	sess := c.NewSession()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := sess.Complete(ctx, "", "hello"); err != nil {
			t.Fatalf("call %d: %v", i+1, err)
		}
	}
	if _, err := sess.Complete(ctx, "", "hello"); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("err = %v, want ErrQuotaExceeded", err)
	}

	ok, err := sess.Unlock(ctx, "ABC123")
	if err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if !ok {
		t.Fatal("expected unlock to succeed")
	}

	u, err := sess.Usage(ctx)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if u.Plan != "premium" || u.Used != 0 || u.Remaining != -1 {
		t.Errorf("usage = %+v, want premium, used 0, unlimited", u)
	}
	if u.PremiumSince.IsZero() {
		t.Error("expected PremiumSince to be set")
	}

	// Premium calls succeed and are never metered.
	for i := 0; i < 4; i++ {
		if _, err := sess.Complete(ctx, "", "hello"); err != nil {
			t.Fatalf("premium call %d: %v", i+1, err)
		}
	}
	u, err = sess.Usage(ctx)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if u.Used != 0 {
		t.Errorf("used = %d, want 0 after premium calls", u.Used)
	}
}

func TestSession_UnlockDisabledWithoutCode(t *testing.T) {
	c, err := New(WithCompleter(fixedCompleter("ok")))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(c.Close)
	sess := c.NewSession()

	for _, code := range []string{"", "ABC123"} {
		ok, err := sess.Unlock(context.Background(), code)
		if err != nil {
			t.Fatalf("unlock %q: %v", code, err)
		}
		if ok {
			t.Errorf("code %q unlocked with unlocking disabled", code)
		}
	}
}

func TestSession_ProviderFailureKeepsQuota(t *testing.T) {
	c := newTestClient(t, &mockCompleter{
		fn: func(_ context.Context, _ []Turn) (Completion, error) {
			return Completion{}, errors.New("upstream unavailable")
		},
	})
	sess := c.NewSession()
	ctx := context.Background()

	_, err := sess.Complete(ctx, "", "hello")
	if err == nil {
		t.Fatal("expected provider failure")
	}
	if errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("err = %v, want a non-quota failure", err)
	}

	u, err := sess.Usage(ctx)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if u.Used != 0 {
		t.Errorf("used = %d, want 0 after failed call", u.Used)
	}

	// A failed exchange leaves no trace in the history either.
	if _, err := sess.Send(ctx, "hello"); err == nil {
		t.Fatal("expected send to fail")
	}
	history, err := sess.History(ctx)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("history = %d turns, want 0", len(history))
	}
}

func TestSession_ChatFlow(t *testing.T) {
	c := newTestClient(t, fixedCompleter("Reply"))
	sess := c.NewSession()
	ctx := context.Background()

	if _, err := sess.Send(ctx, "first"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := sess.Send(ctx, "second"); err != nil {
		t.Fatalf("send: %v", err)
	}

	history, err := sess.History(ctx)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("history = %d turns, want 4", len(history))
	}
	if history[0].Role != RoleUser || history[0].Text != "first" {
		t.Errorf("turn[0] = %+v, want user/first", history[0])
	}
	if history[1].Role != RoleAssistant || history[1].Text != "Reply" {
		t.Errorf("turn[1] = %+v, want assistant/Reply", history[1])
	}
	if history[2].Role != RoleUser || history[2].Text != "second" {
		t.Errorf("turn[2] = %+v, want user/second", history[2])
	}

	u, err := sess.Usage(ctx)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if u.Used != 2 {
		t.Errorf("used = %d, want 2", u.Used)
	}

	if err := sess.ClearHistory(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	history, err = sess.History(ctx)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("history = %d turns after clear, want 0", len(history))
	}

	// Clearing the conversation does not refund usage.
	u, err = sess.Usage(ctx)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if u.Used != 2 {
		t.Errorf("used = %d after clear, want 2", u.Used)
	}
}

func TestSession_CompletePriorsOrdered(t *testing.T) {
	var got []Turn
	c := newTestClient(t, &mockCompleter{
		fn: func(_ context.Context, turns []Turn) (Completion, error) {
			got = turns
			return Completion{Text: "Bonjour"}, nil
		},
	})
	sess := c.NewSession()
	ctx := context.Background()

	_, err := sess.Complete(ctx, "Translate to French.", "Good morning",
		Turn{Role: RoleUser, Text: "Hello"},
		Turn{Role: RoleAssistant, Text: "Bonjour"},
	)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	want := []Turn{
		{Role: RoleSystem, Text: "Translate to French."},
		{Role: RoleUser, Text: "Hello"},
		{Role: RoleAssistant, Text: "Bonjour"},
		{Role: RoleUser, Text: "Good morning"},
	}
	if len(got) != len(want) {
		t.Fatalf("turns = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("turn[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	// One-shot completions never touch the chat history.
	history, err := sess.History(ctx)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("history = %d turns, want 0", len(history))
	}
}

func TestSession_CompleteRejectsBadPriorRole(t *testing.T) {
	c := newTestClient(t, fixedCompleter("ok"))
	sess := c.NewSession()

	_, err := sess.Complete(context.Background(), "", "hi", Turn{Role: "narrator", Text: "x"})
	if err == nil {
		t.Fatal("expected error for unknown prior role")
	}
}

func TestSession_EmptyInstruction(t *testing.T) {
	calls := 0
	c := newTestClient(t, &mockCompleter{
		fn: func(_ context.Context, _ []Turn) (Completion, error) {
			calls++
			return Completion{Text: "ok"}, nil
		},
	})
	sess := c.NewSession()

	_, err := sess.Complete(context.Background(), "", "   ")
	if !errors.Is(err, ErrEmptyInstruction) {
		t.Fatalf("err = %v, want ErrEmptyInstruction", err)
	}
	if calls != 0 {
		t.Errorf("provider calls = %d, want 0", calls)
	}
}

func TestClient_SessionLookup(t *testing.T) {
	c := newTestClient(t, fixedCompleter("ok"))
	ctx := context.Background()

	created := c.NewSession()
	found, err := c.Session(ctx, created.ID())
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if found.ID() != created.ID() {
		t.Errorf("id = %q, want %q", found.ID(), created.ID())
	}

	_, err = c.Session(ctx, "sess_9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}

	created.Destroy(ctx)
	if n := c.ActiveSessions(); n != 0 {
		t.Errorf("active sessions = %d, want 0", n)
	}
	_, err = c.Session(ctx, created.ID())
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound after destroy", err)
	}

	// Stale handles fail the same way; a second destroy is a no-op.
	_, err = found.Usage(ctx)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound on stale handle", err)
	}
	created.Destroy(ctx)
}
