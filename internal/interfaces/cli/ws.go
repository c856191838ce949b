package cli

import (
	"time"

	"github.com/gorilla/websocket"
)

// DefaultWSTimeoutMS is the single-shot receive window.
const DefaultWSTimeoutMS = 5000

// ConnectOnce dials the WebSocket endpoint, optionally sends one text
// frame, and waits for the first text reply. With no message to send it
// reports the successful connect with an empty reply.
func ConnectOnce(url, message string, timeoutMS int) (string, error) {
	if timeoutMS <= 0 {
		timeoutMS = DefaultWSTimeoutMS
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return "", &WebSocketError{Err: err}
	}
	defer conn.Close()

	if message == "" {
		return "", nil
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(message)); err != nil {
		return "", &WebSocketError{Err: err}
	}

	conn.SetReadDeadline(time.Now().Add(time.Duration(timeoutMS) * time.Millisecond))
	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return "", ErrWebSocketClosed
			}
			if netErr, ok := err.(interface{ Timeout() bool }); ok && netErr.Timeout() {
				return "", &WebSocketTimeoutError{TimeoutMS: timeoutMS}
			}
			return "", &WebSocketError{Err: err}
		}
		switch msgType {
		case websocket.TextMessage:
			return string(payload), nil
		case websocket.BinaryMessage:
			return "<binary frame>", nil
		}
	}
}
