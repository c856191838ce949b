package anthropic

// Request is the messages API payload.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response is the non-streaming messages API result.
type Response struct {
	Model      string         `json:"model"`
	Content    []ContentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
}

// ContentBlock is one response content segment.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// StreamEvent is one SSE data payload. Anthropic tags payloads with a
// preceding "event:" line; Type repeats the tag inside the JSON.
type StreamEvent struct {
	Type  string       `json:"type"`
	Delta *EventDelta  `json:"delta,omitempty"`
	Error *StreamError `json:"error,omitempty"`
}

// EventDelta is the incremental update inside content_block_delta.
type EventDelta struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// StreamError is the payload of an error event.
type StreamError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
