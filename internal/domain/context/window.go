package context

import "fmt"

// Default window sizing.
const (
	DefaultMaxTokens      = 4096
	DefaultReservedTokens = 256
)

// OverflowStrategy selects what happens when a conversation outgrows its
// window.
type OverflowStrategy string

const (
	// TruncateOldest evicts messages from the front until the new one
	// fits.
	TruncateOldest OverflowStrategy = "truncate_oldest"
	// Summarize is accepted but currently behaves as TruncateOldest;
	// summarization needs a provider round trip this layer does not own.
	Summarize OverflowStrategy = "summarize"
	// Fail rejects the message instead of evicting.
	Fail OverflowStrategy = "fail"
)

// ContextWindow bounds one conversation's token usage.
type ContextWindow struct {
	MaxTokens        int              `json:"maxTokens"`
	ReservedTokens   int              `json:"reservedTokens"`
	OverflowStrategy OverflowStrategy `json:"overflowStrategy"`
}

// NewContextWindow builds a window with the default budget and
// truncate-oldest overflow.
func NewContextWindow() ContextWindow {
	return ContextWindow{
		MaxTokens:        DefaultMaxTokens,
		ReservedTokens:   DefaultReservedTokens,
		OverflowStrategy: TruncateOldest,
	}
}

// AvailableTokens is the budget left for conversation content after the
// reservation.
func (w ContextWindow) AvailableTokens() int {
	available := w.MaxTokens - w.ReservedTokens
	if available < 0 {
		return 0
	}
	return available
}

// WindowFullError reports a message rejected under the Fail strategy.
type WindowFullError struct {
	Needed    int
	Available int
}

func (e *WindowFullError) Error() string {
	return fmt.Sprintf("context window full: need %d tokens, %d available", e.Needed, e.Available)
}
