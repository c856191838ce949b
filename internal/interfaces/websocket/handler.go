package websocket

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nexis-chat/nexis/gateway/internal/application/gateway"
	"go.uber.org/zap"
)

const (
	maxMessageSize = 512 * 1024
	readDeadline   = 60 * time.Second
	writeDeadline  = 10 * time.Second
	pingInterval   = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades HTTP requests to WebSocket sessions. Text frames are
// echoed back to the sender; room broadcasts from the gateway arrive on
// the same outbound channel. Binary frames are read and dropped.
type Handler struct {
	conns  *gateway.ConnectionManager
	logger *zap.Logger
}

// NewHandler creates the WebSocket handler over the shared connection pool.
func NewHandler(conns *gateway.ConnectionManager, logger *zap.Logger) *Handler {
	return &Handler{
		conns:  conns,
		logger: logger.With(zap.String("component", "websocket")),
	}
}

// ServeWS admits the session into the pool and upgrades the connection.
// A saturated pool is refused with 503 before the upgrade handshake.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	memberID := r.URL.Query().Get("member")
	roomID := r.URL.Query().Get("room")

	session := h.conns.TryAddConnection(memberID, roomID)
	if session == nil {
		http.Error(w, `{"error":"connection pool saturated"}`, http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.conns.Remove(session.ID)
		h.logger.Error("Failed to upgrade connection", zap.Error(err))
		return
	}

	h.logger.Info("Client connected",
		zap.String("connection_id", session.ID),
		zap.String("member", memberID),
		zap.String("room", roomID),
	)

	go h.writePump(conn, session)
	go h.readPump(conn, session)
}

// readPump consumes inbound frames. Text frames are queued back on the
// session's outbound channel so the client sees its own message echoed.
func (h *Handler) readPump(conn *websocket.Conn, session *gateway.Connection) {
	defer func() {
		h.conns.Remove(session.ID)
		conn.Close()
		h.logger.Info("Client disconnected",
			zap.String("connection_id", session.ID),
		)
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket read error", zap.Error(err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		select {
		case session.Send <- payload:
		default:
			// The outbound channel is full; the consumer is not keeping
			// up, so tear the session down instead of buffering reads.
			h.logger.Warn("Outbound channel full, closing session",
				zap.String("connection_id", session.ID),
			)
			return
		}
	}
}

// writePump drains the session's outbound channel and keeps the
// connection alive with periodic pings.
func (h *Handler) writePump(conn *websocket.Conn, session *gateway.Connection) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case payload, ok := <-session.Send:
			conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
