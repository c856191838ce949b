package context

import "time"

// Role is the speaker of one conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ContextMessage is one turn held in a conversation context.
type ContextMessage struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Tokens    int       `json:"tokens"`
	CreatedAt time.Time `json:"createdAt"`
}

// ConversationContext is the rolling window of turns for one conversation.
type ConversationContext struct {
	ID          string           `json:"id"`
	Window      ContextWindow    `json:"window"`
	Messages    []ContextMessage `json:"messages"`
	TotalTokens int              `json:"totalTokens"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// EstimateTokens approximates the token cost of a text. Four characters
// per token, never less than one.
func EstimateTokens(text string) int {
	tokens := len(text) / 4
	if tokens < 1 {
		return 1
	}
	return tokens
}
