package sdk

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/superbrain-ai/superbrain/internal/domain"
	chiTransport "github.com/superbrain-ai/superbrain/internal/transport/chi"
	chatuc "github.com/superbrain-ai/superbrain/internal/usecase/chat"
	completionuc "github.com/superbrain-ai/superbrain/internal/usecase/completion"
	"github.com/superbrain-ai/superbrain/internal/usecase/entitlement"
	healthuc "github.com/superbrain-ai/superbrain/internal/usecase/health"
	sessionuc "github.com/superbrain-ai/superbrain/internal/usecase/session"
	usageuc "github.com/superbrain-ai/superbrain/internal/usecase/usage"
)

// fakeCompleter stands in for the provider behind the real handler stack.
type fakeCompleter struct {
	result domain.CompletionResult
	err    error
	calls  int
}

func (f *fakeCompleter) Complete(_ context.Context, _ domain.CompletionRequest) (domain.CompletionResult, error) {
	f.calls++
	if f.err != nil {
		return domain.CompletionResult{}, f.err
	}
	return f.result, nil
}

func okResult() domain.CompletionResult {
	return domain.CompletionResult{
		Text:             "Hello there",
		PromptTokens:     10,
		CompletionTokens: 5,
		TotalTokens:      15,
	}
}

// newTestServer runs the real router around a fake provider:
// free limit 3, unlock code "ABC123".
func newTestServer(t *testing.T, completer completionuc.Completer, middlewares ...func(http.Handler) http.Handler) *httptest.Server {
	t.Helper()
	logger := zap.NewNop()

	manager := sessionuc.NewManager(sessionuc.Config{HistoryLimit: 40}, logger)
	t.Cleanup(manager.Close)

	tracker := entitlement.New(entitlement.Policy{FreeLimit: 3, UnlockSecret: "ABC123"}, logger)
	completions := completionuc.New(completer, tracker, logger)
	chatSvc := chatuc.New(completions, "You are a helpful assistant.", logger)
	usageSvc := usageuc.New(tracker)
	healthSvc := healthuc.New(nil, nil, manager)

	server := chiTransport.NewServer(manager, completions, chatSvc, tracker, usageSvc, healthSvc, logger)
	ts := httptest.NewServer(chiTransport.NewRouter(server, middlewares...))
	t.Cleanup(ts.Close)
	return ts
}

func newTestClient(t *testing.T, ts *httptest.Server, opts ...Option) *Client {
	t.Helper()
	client, err := New(append([]Option{WithBaseURL(ts.URL)}, opts...)...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNew_NoBaseURL(t *testing.T) {
	_, err := New()
	if err == nil {
		t.Fatal("expected error when no base URL provided")
	}
}

func TestComplete_SessionCarriedAcrossCalls(t *testing.T) {
	ts := newTestServer(t, &fakeCompleter{result: okResult()})
	client := newTestClient(t, ts)
	ctx := context.Background()

	if client.SessionID() != "" {
		t.Errorf("session id = %q before first call, want empty", client.SessionID())
	}

	first, err := client.Complete(ctx, "Be brief.", "Say hi")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if first.Text != "Hello there" {
		t.Errorf("text = %q, want Hello there", first.Text)
	}
	if first.Usage.Used != 1 {
		t.Errorf("used = %d, want 1", first.Usage.Used)
	}

	id := client.SessionID()
	if id == "" {
		t.Fatal("expected a session id after the first call")
	}

	second, err := client.Complete(ctx, "", "Say hi again")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if second.Usage.Used != 2 {
		t.Errorf("used = %d, want 2 on the same session", second.Usage.Used)
	}
	if client.SessionID() != id {
		t.Errorf("session id changed: %q, want %q", client.SessionID(), id)
	}
}

func TestComplete_QuotaLifecycle(t *testing.T) {
	completer := &fakeCompleter{result: okResult()}
	ts := newTestServer(t, completer)
	client := newTestClient(t, ts)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := client.Complete(ctx, "", "hello"); err != nil {
			t.Fatalf("call %d: %v", i+1, err)
		}
	}

	_, err := client.Complete(ctx, "", "one more")
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("err = %v, want ErrQuotaExceeded", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusPaymentRequired {
		t.Errorf("status = %d, want 402", apiErr.Status)
	}
	if apiErr.Limit != 3 {
		t.Errorf("limit = %d, want 3", apiErr.Limit)
	}
	if !strings.Contains(apiErr.Message, "3") {
		t.Errorf("message = %q, want it to name the limit", apiErr.Message)
	}
	if completer.calls != 3 {
		t.Errorf("provider calls = %d, want 3", completer.calls)
	}
}

func TestUnlock_Flow(t *testing.T) {
	ts := newTestServer(t, &fakeCompleter{result: okResult()})
	client := newTestClient(t, ts)
	ctx := context.Background()

	// Codes are case-sensitive.
	res, err := client.Unlock(ctx, "abc123")
	if err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if res.Unlocked {
		t.Error("lowercase code must not unlock")
	}
	if res.Usage.Plan != "free" {
		t.Errorf("plan = %q, want free", res.Usage.Plan)
	}

	res, err = client.Unlock(ctx, "ABC123")
	if err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if !res.Unlocked {
		t.Fatal("exact code must unlock")
	}
	if res.Usage.Plan != "premium" || res.Usage.Remaining != -1 {
		t.Errorf("usage = %+v, want premium/unlimited", res.Usage)
	}
	if res.Usage.PremiumSinceAt == nil {
		t.Error("expected premium_since_at to be set")
	}
}

func TestChat_HistoryRoundTrip(t *testing.T) {
	ts := newTestServer(t, &fakeCompleter{result: okResult()})
	client := newTestClient(t, ts)
	ctx := context.Background()

	if _, err := client.Send(ctx, "first"); err != nil {
		t.Fatalf("send: %v", err)
	}
	reply, err := client.Send(ctx, "second")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if reply.Reply != "Hello there" {
		t.Errorf("reply = %q, want Hello there", reply.Reply)
	}
	if reply.Usage.Used != 2 {
		t.Errorf("used = %d, want 2", reply.Usage.Used)
	}

	turns, err := client.History(ctx)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(turns) != 4 {
		t.Fatalf("history = %d turns, want 4", len(turns))
	}
	if turns[0].Role != RoleUser || turns[0].Text != "first" {
		t.Errorf("turn[0] = %+v, want user/first", turns[0])
	}
	if turns[1].Role != RoleAssistant {
		t.Errorf("turn[1] = %+v, want assistant", turns[1])
	}

	if err := client.ClearHistory(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	turns, err = client.History(ctx)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("history = %d turns after clear, want 0", len(turns))
	}

	// Usage survives the wipe.
	usage, err := client.Usage(ctx)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if usage.Used != 2 {
		t.Errorf("used = %d after clear, want 2", usage.Used)
	}
}

func TestProviderFailure_KeepsQuota(t *testing.T) {
	ts := newTestServer(t, &fakeCompleter{err: domain.NewProviderError(503, "upstream overloaded")})
	client := newTestClient(t, ts)
	ctx := context.Background()

	_, err := client.Send(ctx, "hello")
	if !errors.Is(err, ErrProviderError) {
		t.Fatalf("err = %v, want ErrProviderError", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", apiErr.Status)
	}

	usage, err := client.Usage(ctx)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if usage.Used != 0 {
		t.Errorf("used = %d, want 0 after failed call", usage.Used)
	}
}

func TestDestroySession(t *testing.T) {
	ts := newTestServer(t, &fakeCompleter{result: okResult()})
	client := newTestClient(t, ts)
	ctx := context.Background()

	if _, err := client.Complete(ctx, "", "hello"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	first := client.SessionID()

	if err := client.DestroySession(ctx); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if client.SessionID() != "" {
		t.Errorf("session id = %q after destroy, want empty", client.SessionID())
	}

	// The next call starts a fresh session with a clean allowance.
	usage, err := client.Usage(ctx)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if usage.Used != 0 {
		t.Errorf("used = %d, want 0 on a fresh session", usage.Used)
	}
	if client.SessionID() == first {
		t.Error("expected a new session id after destroy")
	}
}

func TestWithSessionID_Resumes(t *testing.T) {
	ts := newTestServer(t, &fakeCompleter{result: okResult()})
	first := newTestClient(t, ts)
	ctx := context.Background()

	res, err := first.Unlock(ctx, "ABC123")
	if err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if !res.Unlocked {
		t.Fatal("expected unlock to succeed")
	}

	second := newTestClient(t, ts, WithSessionID(first.SessionID()))
	usage, err := second.Usage(ctx)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if usage.Plan != "premium" {
		t.Errorf("plan = %q, want premium on the resumed session", usage.Plan)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	ts := newTestServer(t, &fakeCompleter{result: okResult()},
		chiTransport.BearerAuthMiddleware([]string{"test-key"}))
	ctx := context.Background()

	unauthed := newTestClient(t, ts)
	_, err := unauthed.Usage(ctx)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", apiErr.Status)
	}

	// Health stays reachable without a key.
	if _, err := unauthed.Health(ctx); err != nil {
		t.Errorf("health without key: %v", err)
	}

	authed := newTestClient(t, ts, WithAPIKey("test-key"))
	if _, err := authed.Usage(ctx); err != nil {
		t.Errorf("usage with key: %v", err)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &fakeCompleter{result: okResult()})
	client := newTestClient(t, ts)

	status, err := client.Health(context.Background())
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if status.Status != "ok" {
		t.Errorf("status = %q, want ok", status.Status)
	}
}

type failingChecker struct{}

func (failingChecker) HealthCheck(_ context.Context) error {
	return errors.New("provider unreachable")
}

func TestHealth_UnhealthyStillDecodes(t *testing.T) {
	logger := zap.NewNop()
	manager := sessionuc.NewManager(sessionuc.Config{HistoryLimit: 40}, logger)
	t.Cleanup(manager.Close)

	tracker := entitlement.New(entitlement.Policy{FreeLimit: 3, UnlockSecret: "ABC123"}, logger)
	completions := completionuc.New(&fakeCompleter{result: okResult()}, tracker, logger)
	chatSvc := chatuc.New(completions, "You are a helpful assistant.", logger)
	usageSvc := usageuc.New(tracker)
	healthSvc := healthuc.New(nil, failingChecker{}, manager)

	server := chiTransport.NewServer(manager, completions, chatSvc, tracker, usageSvc, healthSvc, logger)
	ts := httptest.NewServer(chiTransport.NewRouter(server))
	t.Cleanup(ts.Close)

	client := newTestClient(t, ts)
	status, err := client.Health(context.Background())
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if status.Status != "error" {
		t.Errorf("status = %q, want error", status.Status)
	}
	if status.Checks["provider"] != "error" {
		t.Errorf("provider check = %q, want error", status.Checks["provider"])
	}
}

func TestWithPrometheus_RegistersMetrics(t *testing.T) {
	ts := newTestServer(t, &fakeCompleter{result: okResult()})
	reg := prometheus.NewRegistry()
	client := newTestClient(t, ts,
		WithPrometheus(reg),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	if _, err := client.Usage(context.Background()); err != nil {
		t.Fatalf("usage: %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "superbrain_sdk_operations_total" {
			found = true
		}
	}
	if !found {
		t.Error("expected superbrain_sdk_operations_total to be registered")
	}
}

func TestWithBaseURL_TrailingSlash(t *testing.T) {
	ts := newTestServer(t, &fakeCompleter{result: okResult()})
	client, err := New(WithBaseURL(ts.URL + "/"))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, err := client.Usage(context.Background()); err != nil {
		t.Errorf("usage: %v", err)
	}
}
