package chi

import "time"

// ErrorCode classifies API failures for clients.
type ErrorCode string

// Error codes returned in ErrorResponse.
const (
	ErrorCodeBadRequest       ErrorCode = "bad_request"
	ErrorCodeUnauthorized     ErrorCode = "unauthorized"
	ErrorCodeValidationFailed ErrorCode = "validation_failed"
	ErrorCodeQuotaExceeded    ErrorCode = "quota_exceeded"
	ErrorCodeProviderError    ErrorCode = "provider_error"
	ErrorCodeSessionNotFound  ErrorCode = "session_not_found"
	ErrorCodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// CompletionRequest is the body of POST /api/v1/completions.
// Mode is a free-form client label (e.g. "email_writer"); it is logged for
// traffic breakdowns but never interpreted.
type CompletionRequest struct {
	Mode              string `json:"mode,omitempty"`
	SystemInstruction string `json:"system_instruction,omitempty"`
	UserInstruction   string `json:"user_instruction"`
}

// CompletionResponse carries a one-shot provider reply.
type CompletionResponse struct {
	Text             string        `json:"text"`
	PromptTokens     int           `json:"prompt_tokens"`
	CompletionTokens int           `json:"completion_tokens"`
	TotalTokens      int           `json:"total_tokens"`
	Usage            UsageResponse `json:"usage"`
}

// ChatRequest is the body of POST /api/v1/chat/messages.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse carries the assistant reply for a conversational exchange.
type ChatResponse struct {
	Reply       string        `json:"reply"`
	TotalTokens int           `json:"total_tokens"`
	Usage       UsageResponse `json:"usage"`
}

// HistoryTurn is one stored conversation turn.
type HistoryTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// HistoryListResponse is the stored conversation, oldest first.
type HistoryListResponse struct {
	Items []HistoryTurn `json:"items"`
	Total int           `json:"total"`
}

// UnlockRequest is the body of POST /api/v1/unlock.
type UnlockRequest struct {
	Code string `json:"code"`
}

// UnlockResponse reports the outcome of an unlock attempt. A wrong code is
// not an error: Unlocked is simply false.
type UnlockResponse struct {
	Unlocked bool          `json:"unlocked"`
	Usage    UsageResponse `json:"usage"`
}

// UsageResponse is the session's allowance projection.
type UsageResponse struct {
	Plan           string     `json:"plan"`
	Limit          int        `json:"limit"`
	Used           int        `json:"used"`
	Remaining      int        `json:"remaining"` // -1 means unlimited
	Exhausted      bool       `json:"exhausted"`
	PremiumSinceAt *time.Time `json:"premium_since_at,omitempty"`
}

// HealthResponse is the aggregated health report.
type HealthResponse struct {
	Status   string            `json:"status"`
	Checks   map[string]string `json:"checks,omitempty"`
	Sessions int               `json:"sessions"`
}
