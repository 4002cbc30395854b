package sdk

import "time"

// Turn roles as they appear in History.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Completion is a fulfilled one-shot completion.
type Completion struct {
	Text             string `json:"text"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	Usage            Usage  `json:"usage"`
}

// Reply is a fulfilled chat exchange.
type Reply struct {
	Reply       string `json:"reply"`
	TotalTokens int    `json:"total_tokens"`
	Usage       Usage  `json:"usage"`
}

// Turn is one stored conversation utterance.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// UnlockResult reports the outcome of an unlock attempt. A wrong code is not
// an error: Unlocked is simply false.
type UnlockResult struct {
	Unlocked bool  `json:"unlocked"`
	Usage    Usage `json:"usage"`
}

// Usage is the session's standing against the usage policy.
type Usage struct {
	Plan           string     `json:"plan"`
	Limit          int        `json:"limit"`
	Used           int        `json:"used"`
	Remaining      int        `json:"remaining"` // -1 means unlimited
	Exhausted      bool       `json:"exhausted"`
	PremiumSinceAt *time.Time `json:"premium_since_at,omitempty"`
}

// HealthStatus is the aggregated service health.
type HealthStatus struct {
	Status   string            `json:"status"`
	Checks   map[string]string `json:"checks,omitempty"`
	Sessions int               `json:"sessions"`
}

// Request bodies mirror the server wire format.

type completionRequest struct {
	SystemInstruction string `json:"system_instruction,omitempty"`
	UserInstruction   string `json:"user_instruction"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type unlockRequest struct {
	Code string `json:"code"`
}

type historyListResponse struct {
	Items []Turn `json:"items"`
	Total int    `json:"total"`
}
