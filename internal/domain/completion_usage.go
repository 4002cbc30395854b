package domain

import "context"

type completionUsageKey struct{}

// CompletionUsage collects token usage for a single HTTP request.
// The handler puts a mutable pointer into the context before calling the
// service; the service writes after the provider call; the handler reads it
// for response headers and the canonical log line.
type CompletionUsage struct {
	TotalTokens int
	Used        bool
}

// NewContextWithUsage returns a context with an attached usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *CompletionUsage) {
	u := &CompletionUsage{}
	return context.WithValue(ctx, completionUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *CompletionUsage {
	u, _ := ctx.Value(completionUsageKey{}).(*CompletionUsage)
	return u
}

// AddTokens records consumed tokens.
func (u *CompletionUsage) AddTokens(n int) {
	if u != nil {
		u.TotalTokens += n
		u.Used = true
	}
}
