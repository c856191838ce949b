package llm

// GenerateRequest is the uniform request across providers.
type GenerateRequest struct {
	Prompt      string            `json:"prompt"`
	Model       string            `json:"model,omitempty"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// GenerateResponse is the uniform non-streaming result.
type GenerateResponse struct {
	Content      string `json:"content"`
	Model        string `json:"model,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// ChunkType discriminates stream chunks.
type ChunkType string

const (
	ChunkDelta ChunkType = "delta"
	ChunkDone  ChunkType = "done"
)

// StreamChunk is one element of a provider stream. A successful stream is
// zero or more delta chunks followed by exactly one done chunk.
type StreamChunk struct {
	Type ChunkType `json:"type"`
	Text string    `json:"text,omitempty"`
}

// Delta builds a delta chunk.
func Delta(text string) StreamChunk {
	return StreamChunk{Type: ChunkDelta, Text: text}
}

// Done builds the terminal chunk.
func Done() StreamChunk {
	return StreamChunk{Type: ChunkDone}
}
