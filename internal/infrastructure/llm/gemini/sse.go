package gemini

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

// ParseSSEStream reads Gemini's streamGenerateContent SSE format. Each
// data line is a full Response; candidate part text is forwarded as deltas
// and a candidate carrying finishReason ends the stream.
func ParseSSEStream(ctx context.Context, reader io.Reader, deltaCh chan<- llm.StreamChunk) error {
	idleTimeout := 60 * time.Second
	tReader := &timedReader{r: reader, timeout: idleTimeout}

	scanner := bufio.NewScanner(tReader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

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

		var chunk Response
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return llm.NewDecodeError(fmt.Errorf("malformed SSE chunk: %w", err))
		}

		for _, candidate := range chunk.Candidates {
			for _, part := range candidate.Content.Parts {
				if part.Text == "" {
					continue
				}
				select {
				case deltaCh <- llm.Delta(part.Text):
				case <-ctx.Done():
					return llm.NewTransportError(ctx.Err())
				}
			}
			if candidate.FinishReason != "" {
				break scan
			}
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
