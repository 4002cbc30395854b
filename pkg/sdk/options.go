package sdk

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	baseURL    string
	apiKey     string
	sessionID  string
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithBaseURL points the client at a superbrain server,
// e.g. "http://localhost:8080".
func WithBaseURL(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.baseURL = url
	})
}

// WithAPIKey authenticates every request with a bearer token.
func WithAPIKey(key string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = key
	})
}

// WithSessionID resumes an existing session instead of starting fresh.
func WithSessionID(id string) Option {
	return optionFunc(func(c *clientConfig) {
		c.sessionID = id
	})
}

// WithHTTPClient overrides the HTTP client, e.g. to add a proxy or custom
// transport. WithTimeout is ignored when this option is set.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithTimeout bounds each request (default: 30s).
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithLogger enables per-operation logging.
func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = logger
	})
}

// WithPrometheus registers client operation metrics with the given registry.
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
