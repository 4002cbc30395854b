// Package superbrain embeds the completion gateway in-process: sessions,
// free-tier quota tracking, premium unlock and chat history behind a single
// Client, with optional Redis or Valkey persistence.
package superbrain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/superbrain-ai/superbrain/internal/db"
	dbRedis "github.com/superbrain-ai/superbrain/internal/db/redis"
	"github.com/superbrain-ai/superbrain/internal/domain"
	sessionrepo "github.com/superbrain-ai/superbrain/internal/repository/session"
	openaiCompl "github.com/superbrain-ai/superbrain/internal/transport/openai"
	chatuc "github.com/superbrain-ai/superbrain/internal/usecase/chat"
	completionuc "github.com/superbrain-ai/superbrain/internal/usecase/completion"
	"github.com/superbrain-ai/superbrain/internal/usecase/entitlement"
	sessionuc "github.com/superbrain-ai/superbrain/internal/usecase/session"
	usageuc "github.com/superbrain-ai/superbrain/internal/usecase/usage"
)

const defaultReadinessTimeout = 10 * time.Second

// Sentinels re-exported so embedding callers can branch on refusals without
// reaching into internal packages. Match with errors.Is.
var (
	// ErrQuotaExceeded marks a refusal to serve an exhausted free session.
	ErrQuotaExceeded = domain.ErrQuotaExceeded
	// ErrSessionNotFound marks a lookup of an unknown or expired session.
	ErrSessionNotFound = domain.ErrSessionNotFound
	// ErrEmptyInstruction marks a blank user instruction.
	ErrEmptyInstruction = domain.ErrEmptyInstruction
)

// QuotaExceededError carries the free limit that was hit; match with errors.As.
type QuotaExceededError = domain.QuotaExceededError

// ProviderError carries the upstream status of a failed provider call.
type ProviderError = domain.ProviderError

// Completer produces one reply for an ordered conversation. Implement it to
// route completions through a custom provider.
type Completer interface {
	Complete(ctx context.Context, turns []Turn) (Completion, error)
}

// Client is the embedded superbrain entry point.
type Client struct {
	store       db.Store
	manager     *sessionuc.Manager
	tracker     *entitlement.Tracker
	completions *completionuc.Service
	chat        *chatuc.Service
	usage       *usageuc.Service
}

// New creates an embedded Client. Without WithRedis or WithValkey all state
// lives in process memory and vanishes with the Client.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		freeLimit:         defaultFreeLimit,
		historyLimit:      defaultHistoryLimit,
		systemInstruction: defaultSystemInstruction,
	}
	for _, o := range opts {
		o(cfg)
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if store != nil {
		ctx := context.Background()
		if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("superbrain: store not ready: %w", err)
		}
	}

	return wireClient(store, cfg), nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "", "memory":
		return nil, nil
	case "redis", "valkey":
		// Same wire protocol, one client.
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("superbrain: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("superbrain: unknown driver %q", cfg.driver)
	}
}

func wireClient(store db.Store, cfg *clientConfig) *Client {
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	manager := sessionuc.NewManager(sessionuc.Config{
		TTL:          cfg.sessionTTL,
		HistoryLimit: cfg.historyLimit,
	}, logger)
	if store != nil {
		manager = manager.WithRepository(sessionrepo.New(store, cfg.sessionTTL))
	}
	manager.StartSweeper()

	tracker := entitlement.New(entitlement.Policy{
		FreeLimit:    cfg.freeLimit,
		UnlockSecret: cfg.unlockCode,
	}, logger).WithRecorder(manager)

	// Completer: noop when not configured (unlock and usage still work,
	// completion calls return an error).
	var completer domain.Completer = noopCompleter{}
	switch {
	case cfg.completer != nil:
		completer = &completerAdapter{inner: cfg.completer}
	case cfg.apiKey != "":
		completer = openaiCompl.NewCompleter(&openaiCompl.Config{
			APIKey:  cfg.apiKey,
			BaseURL: cfg.baseURL,
			Model:   cfg.model,
			Timeout: cfg.providerTimeout,
			Logger:  logger,
		})
	}

	completions := completionuc.New(completer, tracker, logger)
	chatSvc := chatuc.New(completions, cfg.systemInstruction, logger).WithRecorder(manager)

	return &Client{
		store:       store,
		manager:     manager,
		tracker:     tracker,
		completions: completions,
		chat:        chatSvc,
		usage:       usageuc.New(tracker),
	}
}

// Close stops background work and releases the store connection.
func (c *Client) Close() {
	if c.manager != nil {
		c.manager.Close()
	}
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks store connectivity. The in-memory driver is always reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// ActiveSessions returns the number of live sessions.
func (c *Client) ActiveSessions() int {
	return c.manager.Count()
}

// completerAdapter wraps the public Completer to satisfy domain.Completer.
type completerAdapter struct {
	inner Completer
}

func (a *completerAdapter) Complete(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResult, error) {
	r, err := a.inner.Complete(ctx, fromChatTurns(req.Messages()))
	if err != nil {
		return domain.CompletionResult{}, fmt.Errorf("complete: %w", err)
	}
	return domain.CompletionResult{
		Text:             r.Text,
		PromptTokens:     r.PromptTokens,
		CompletionTokens: r.CompletionTokens,
		TotalTokens:      r.TotalTokens,
	}, nil
}

// noopCompleter errors on every call (used when no provider is configured).
type noopCompleter struct{}

func (noopCompleter) Complete(_ context.Context, _ domain.CompletionRequest) (domain.CompletionResult, error) {
	return domain.CompletionResult{}, errors.New(
		"superbrain: completion provider not configured (use WithOpenAI or WithCompleter)",
	)
}
