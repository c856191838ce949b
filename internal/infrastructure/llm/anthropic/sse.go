package anthropic

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

// ParseSSEStream reads Anthropic's event-tagged SSE format.
//
// Events handled:
//
//	content_block_delta → forward delta.text (empty fragments skipped)
//	message_stop        → stream complete, emit done
//	error               → surface the provider message
//	ping and the rest   → ignored
func ParseSSEStream(ctx context.Context, reader io.Reader, deltaCh chan<- llm.StreamChunk) error {
	idleTimeout := 60 * time.Second
	tReader := &timedReader{r: reader, timeout: idleTimeout}

	scanner := bufio.NewScanner(tReader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var currentEventType string

scan:
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return llm.NewTransportError(ctx.Err())
		default:
		}

		line := scanner.Text()

		// Anthropic SSE: "event: <type>" followed by "data: <json>"
		if strings.HasPrefix(line, "event: ") {
			currentEventType = strings.TrimPrefix(line, "event: ")
			continue
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		switch currentEventType {
		case "content_block_delta":
			var evt StreamEvent
			if err := json.Unmarshal([]byte(data), &evt); err != nil {
				return llm.NewDecodeError(fmt.Errorf("malformed content_block_delta: %w", err))
			}
			if evt.Delta != nil && evt.Delta.Text != "" {
				select {
				case deltaCh <- llm.Delta(evt.Delta.Text):
				case <-ctx.Done():
					return llm.NewTransportError(ctx.Err())
				}
			}

		case "message_stop":
			break scan

		case "error":
			var evt StreamEvent
			if err := json.Unmarshal([]byte(data), &evt); err != nil {
				return llm.NewDecodeError(fmt.Errorf("malformed error event: %w", err))
			}
			if evt.Error != nil {
				return llm.NewMessageError(evt.Error.Message)
			}
			return llm.NewMessageError("provider signalled an unspecified error")

		case "ping", "message_start", "content_block_start", "content_block_stop", "message_delta":
			// Metadata and heartbeats carry no stream output.
		}

		currentEventType = ""
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

// --- SSE idle timeout support (same pattern as the OpenAI dialect) ---

var errIdleTimeout = fmt.Errorf("SSE read idle timeout")

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
