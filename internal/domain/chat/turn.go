// Package chat holds the conversation value objects shared between the
// completion gateway, the chat service and session storage.
package chat

import "fmt"

// Role tags who produced a turn.
type Role string

// Conversation role constants, matching the provider wire values.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid checks if the role is one of the supported values.
func (r Role) IsValid() bool {
	return r == RoleSystem || r == RoleUser || r == RoleAssistant
}

// MaxTextSize is the maximum turn text size in bytes.
const MaxTextSize = 32768 // 32KB

// Turn is one role-tagged utterance (immutable value object).
type Turn struct {
	role Role
	text string
}

// New validates and creates a Turn.
// Role must be a known value; text must be non-empty and within MaxTextSize.
func New(role Role, text string) (Turn, error) {
	if !role.IsValid() {
		return Turn{}, fmt.Errorf("unknown role %q", role)
	}
	if text == "" {
		return Turn{}, fmt.Errorf("turn text is required")
	}
	if len(text) > MaxTextSize {
		return Turn{}, fmt.Errorf("turn text too large (max %d bytes)", MaxTextSize)
	}
	return Turn{role: role, text: text}, nil
}

// Reconstruct creates a Turn without validation (storage hydration).
func Reconstruct(role Role, text string) Turn {
	return Turn{role: role, text: text}
}

// Role returns who produced the turn.
func (t Turn) Role() Role { return t.role }

// Text returns the turn content.
func (t Turn) Text() string { return t.text }
