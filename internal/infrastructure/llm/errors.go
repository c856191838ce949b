package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies provider failures.
type ErrorKind string

const (
	// KindMockQueueEmpty signals an exhausted mock response queue.
	KindMockQueueEmpty ErrorKind = "mock_queue_empty"
	// KindMessage is a semantic error signalled by the provider itself.
	KindMessage ErrorKind = "message"
	// KindTransport covers network, DNS, and TLS failures.
	KindTransport ErrorKind = "transport"
	// KindHTTPStatus is any non-2xx HTTP response.
	KindHTTPStatus ErrorKind = "http_status"
	// KindDecode is malformed JSON or SSE.
	KindDecode ErrorKind = "decode"
	// KindRetryExhausted wraps the last error after all retries failed.
	KindRetryExhausted ErrorKind = "retry_exhausted"
)

// ProviderError is the uniform provider failure type.
type ProviderError struct {
	Kind     ErrorKind
	Message  string
	Status   int   // set for KindHTTPStatus
	Attempts int   // set for KindRetryExhausted
	LastErr  error // set for KindRetryExhausted
}

func (e *ProviderError) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("provider returned HTTP %d: %s", e.Status, e.Message)
	case KindRetryExhausted:
		return fmt.Sprintf("retry exhausted after %d attempts: %v", e.Attempts, e.LastErr)
	case KindMockQueueEmpty:
		return "mock provider queue is empty"
	default:
		return fmt.Sprintf("provider error (%s): %s", e.Kind, e.Message)
	}
}

func (e *ProviderError) Unwrap() error {
	return e.LastErr
}

// NewMessageError builds a provider-signalled semantic error.
func NewMessageError(message string) *ProviderError {
	return &ProviderError{Kind: KindMessage, Message: message}
}

// NewTransportError wraps a network-level failure.
func NewTransportError(err error) *ProviderError {
	return &ProviderError{Kind: KindTransport, Message: err.Error()}
}

// NewHTTPStatusError builds an error for a non-2xx response. The body should
// already be reduced to the provider's error message when one was parseable.
func NewHTTPStatusError(status int, body string) *ProviderError {
	return &ProviderError{Kind: KindHTTPStatus, Status: status, Message: body}
}

// NewDecodeError wraps a malformed payload failure.
func NewDecodeError(err error) *ProviderError {
	return &ProviderError{Kind: KindDecode, Message: err.Error()}
}

// NewRetryExhaustedError wraps the final error after attempts retries.
func NewRetryExhaustedError(attempts int, lastErr error) *ProviderError {
	return &ProviderError{Kind: KindRetryExhausted, Attempts: attempts, LastErr: lastErr}
}

// ErrMockQueueEmpty is returned by the mock provider when nothing is queued.
var ErrMockQueueEmpty = &ProviderError{Kind: KindMockQueueEmpty}

// KindOf extracts the error kind, or "" for non-provider errors.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsRetriable reports whether the error is worth retrying: transport
// failures, 5xx responses, and 429.
func IsRetriable(err error) bool {
	var pe *ProviderError
	if !errors.As(err, &pe) {
		return false
	}
	switch pe.Kind {
	case KindTransport:
		return true
	case KindHTTPStatus:
		return pe.Status >= 500 || pe.Status == http.StatusTooManyRequests
	default:
		return false
	}
}

// errorEnvelope matches the error shapes the upstream dialects emit.
type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

// ExtractErrorMessage pulls the provider's error message out of a non-2xx
// body. Falls back to the raw body when no envelope is recognized.
func ExtractErrorMessage(body []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil {
		if env.Error.Message != "" {
			return env.Error.Message
		}
		if env.Message != "" {
			return env.Message
		}
	}
	return string(body)
}
