package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/superbrain-ai/superbrain/internal/domain"
	"github.com/superbrain-ai/superbrain/internal/metrics"
)

// Completer is a chat completion provider using the OpenAI-compatible API.
type Completer struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// Config holds the completion provider settings.
type Config struct {
	APIKey  string
	BaseURL string // empty = api.openai.com
	Model   string // empty = gpt-4o-mini
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewCompleter creates an OpenAI-compatible chat completion provider.
func NewCompleter(cfg *Config) *Completer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	return &Completer{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		logger: cfg.Logger,
	}
}

// Model returns the configured model identifier.
func (c *Completer) Model() string { return c.model }

// Complete implements domain.Completer: one chat completion call, the first
// choice's text back, with transport-level metrics.
func (c *Completer) Complete(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResult, error) {
	turns := req.Messages()
	messages := make([]openai.ChatCompletionMessage, len(turns))
	for i, turn := range turns {
		messages[i] = openai.ChatCompletionMessage{
			Role:    string(turn.Role()),
			Content: turn.Text(),
		}
	}

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})

	duration := time.Since(start)

	if err != nil {
		metrics.CompletionRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return domain.CompletionResult{}, parseAPIError(err)
	}

	if len(resp.Choices) == 0 {
		metrics.CompletionRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return domain.CompletionResult{}, domain.NewProviderError(0, "empty completion response")
	}

	metrics.CompletionRequestsTotal.WithLabelValues(c.model, "success").Inc()
	metrics.CompletionRequestDuration.WithLabelValues(c.model).Observe(duration.Seconds())

	usage := resp.Usage
	if usage.TotalTokens > 0 {
		metrics.CompletionTokensTotal.WithLabelValues(c.model, "prompt").Add(float64(usage.PromptTokens))
		metrics.CompletionTokensTotal.WithLabelValues(c.model, "completion").Add(float64(usage.CompletionTokens))
	}

	c.logger.Debug("Completion request done",
		zap.String("model", c.model),
		zap.Duration("duration", duration),
		zap.Int("messages", len(messages)),
		zap.Int("total_tokens", usage.TotalTokens),
	)

	return domain.CompletionResult{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Completer) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return domain.NewProviderError(0, "list models: "+err.Error())
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// Every failure becomes a *domain.ProviderError for correct 502 mapping.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractMessage(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return domain.NewProviderError(reqErr.HTTPStatusCode, detail)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return domain.NewProviderError(apiErr.HTTPStatusCode, apiErr.Message)
	}

	return domain.NewProviderError(0, err.Error())
}

// extractMessage pulls error.message out of an OpenAI-format JSON error body.
func extractMessage(body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return ""
}
