package openai

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	llm "github.com/nexis-chat/nexis/gateway/internal/infrastructure/llm"
)

// ParseSSEStream reads a chat-completions text/event-stream, forwarding
// content deltas and terminating with exactly one done chunk.
//
// Termination:
//
//	L1: a choice with non-null finish_reason (some APIs never send [DONE])
//	L2: the "data: [DONE]" sentinel
//	L3: 60s read idle timeout against stalled connections
func ParseSSEStream(ctx context.Context, reader io.Reader, deltaCh chan<- llm.StreamChunk) error {
	idleTimeout := 60 * time.Second
	tReader := &timedReader{r: reader, timeout: idleTimeout}

	scanner := bufio.NewScanner(tReader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024) // 1MB max line

scan:
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return llm.NewTransportError(ctx.Err())
		default:
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var chunk StreamChunkData
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return llm.NewDecodeError(fmt.Errorf("malformed SSE chunk: %w", err))
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		if choice.Delta.Content != "" {
			select {
			case deltaCh <- llm.Delta(choice.Delta.Content):
			case <-ctx.Done():
				return llm.NewTransportError(ctx.Err())
			}
		}
		if choice.FinishReason != nil {
			break scan
		}
	}

	if err := scanner.Err(); err != nil {
		if isIdleTimeoutErr(err) {
			return llm.NewTransportError(fmt.Errorf("SSE stream stalled: no data for %v", idleTimeout))
		}
		return llm.NewTransportError(err)
	}

	select {
	case deltaCh <- llm.Done():
	case <-ctx.Done():
		return llm.NewTransportError(ctx.Err())
	}
	return nil
}

// --- SSE idle timeout support ---

var errIdleTimeout = fmt.Errorf("SSE read idle timeout")

// timedReader wraps an io.Reader and applies a per-Read deadline.
type timedReader struct {
	r       io.Reader
	timeout time.Duration
}

func (t *timedReader) Read(p []byte) (int, error) {
	type result struct {
		n   int
		err error
	}
	ch := make(chan result, 1)
	go func() {
		n, err := t.r.Read(p)
		ch <- result{n, err}
	}()

	select {
	case res := <-ch:
		return res.n, res.err
	case <-time.After(t.timeout):
		return 0, errIdleTimeout
	}
}

func isIdleTimeoutErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "SSE read idle timeout")
}
