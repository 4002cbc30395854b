package superbrain

import (
	"time"

	"go.uber.org/zap"
)

// Defaults applied by New unless an Option overrides them.
const (
	defaultFreeLimit         = 10
	defaultHistoryLimit      = 40
	defaultSystemInstruction = "You are a helpful assistant."
)

// Option configures the Client.
type Option func(*clientConfig)

type clientConfig struct {
	driver   string
	addrs    []string
	password string

	freeLimit         int
	unlockCode        string
	systemInstruction string

	apiKey          string
	baseURL         string
	model           string
	providerTimeout time.Duration
	completer       Completer

	sessionTTL   time.Duration
	historyLimit int

	logger *zap.Logger
}

// WithValkey persists sessions in a Valkey instance.
func WithValkey(addr, password string) Option {
	return func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	}
}

// WithRedis persists sessions in a Redis instance.
func WithRedis(addr, password string) Option {
	return func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	}
}

// WithOpenAI routes completions through the OpenAI API.
func WithOpenAI(apiKey string) Option {
	return func(c *clientConfig) { c.apiKey = apiKey }
}

// WithBaseURL points the provider at an OpenAI-compatible endpoint
// (default: api.openai.com).
func WithBaseURL(url string) Option {
	return func(c *clientConfig) { c.baseURL = url }
}

// WithModel sets the completion model (default: gpt-4o-mini).
func WithModel(model string) Option {
	return func(c *clientConfig) { c.model = model }
}

// WithProviderTimeout bounds each provider call (default: no limit).
func WithProviderTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.providerTimeout = d }
}

// WithCompleter plugs in a custom completion provider instead of OpenAI.
func WithCompleter(completer Completer) Option {
	return func(c *clientConfig) { c.completer = completer }
}

// WithFreeLimit sets the free-tier completion allowance (default: 10).
func WithFreeLimit(n int) Option {
	return func(c *clientConfig) { c.freeLimit = n }
}

// WithUnlockCode sets the premium unlock code. Empty keeps unlocking
// disabled, which is the default.
func WithUnlockCode(code string) Option {
	return func(c *clientConfig) { c.unlockCode = code }
}

// WithSystemInstruction sets the default chat system prompt.
func WithSystemInstruction(instruction string) Option {
	return func(c *clientConfig) { c.systemInstruction = instruction }
}

// WithSessionTTL sets the idle expiry for sessions (default: never).
func WithSessionTTL(d time.Duration) Option {
	return func(c *clientConfig) { c.sessionTTL = d }
}

// WithHistoryLimit bounds stored chat turns per session (default: 40).
func WithHistoryLimit(n int) Option {
	return func(c *clientConfig) { c.historyLimit = n }
}

// WithLogger attaches a zap logger (default: no logging).
func WithLogger(logger *zap.Logger) Option {
	return func(c *clientConfig) { c.logger = logger }
}
