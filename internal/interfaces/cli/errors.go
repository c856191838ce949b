package cli

import "fmt"

// InvalidArgumentError reports a bad command line argument before any
// network call is made.
type InvalidArgumentError struct {
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return "invalid argument: " + e.Reason
}

// TransportError wraps a failure to reach the server at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "http transport error: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError reports a non-success HTTP response with its body.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.Status, e.Body)
}

// DecodeError reports an unparseable success body.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "json decode error: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// WebSocketError wraps dial and frame-level failures.
type WebSocketError struct {
	Err error
}

func (e *WebSocketError) Error() string {
	return "websocket error: " + e.Err.Error()
}

func (e *WebSocketError) Unwrap() error { return e.Err }

// WebSocketTimeoutError reports no frame arriving within the window.
type WebSocketTimeoutError struct {
	TimeoutMS int
}

func (e *WebSocketTimeoutError) Error() string {
	return fmt.Sprintf("timeout waiting for websocket frame after %dms", e.TimeoutMS)
}

// ErrWebSocketClosed reports the peer closing before any frame arrived.
var ErrWebSocketClosed = fmt.Errorf("connection closed before receiving a websocket frame")
