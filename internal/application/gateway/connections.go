package gateway

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nexis-chat/nexis/gateway/internal/infrastructure/monitoring"
	"github.com/nexis-chat/nexis/gateway/pkg/safego"
	"go.uber.org/zap"
)

// Connection pool sizing.
const (
	DefaultMaxConnections = 10000
	sendBufferSize        = 256
	broadcastBufferSize   = 1000
)

// Connection is one live WebSocket session.
type Connection struct {
	ID          string
	MemberID    string
	RoomID      string
	ConnectedAt time.Time
	Send        chan []byte
}

// ConnectionManager tracks live sessions and fans messages out to rooms.
// The pool is bounded; admission past the cap is refused.
type ConnectionManager struct {
	mu        sync.RWMutex
	conns     map[string]*Connection
	byRoom    map[string]map[string]*Connection
	maxSize   int
	broadcast chan []byte
	done      chan struct{}
	closeOnce sync.Once
	logger    *zap.Logger
}

// NewConnectionManager creates a manager with the given pool cap and
// starts the announcement dispatcher.
func NewConnectionManager(maxSize int, logger *zap.Logger) *ConnectionManager {
	if maxSize <= 0 {
		maxSize = DefaultMaxConnections
	}
	m := &ConnectionManager{
		conns:     make(map[string]*Connection),
		byRoom:    make(map[string]map[string]*Connection),
		maxSize:   maxSize,
		broadcast: make(chan []byte, broadcastBufferSize),
		done:      make(chan struct{}),
		logger:    logger.With(zap.String("component", "connections")),
	}
	safego.Go(m.logger, "broadcast-dispatcher", m.dispatch)
	return m
}

// TryAddConnection admits a session, or returns nil when the pool is full.
func (m *ConnectionManager) TryAddConnection(memberID, roomID string) *Connection {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.conns) >= m.maxSize {
		monitoring.ConnectionErrors.WithLabelValues("pool_saturated").Inc()
		m.logger.Warn("Connection pool saturated",
			zap.Int("max", m.maxSize),
		)
		return nil
	}

	conn := &Connection{
		ID:          uuid.NewString(),
		MemberID:    memberID,
		RoomID:      roomID,
		ConnectedAt: time.Now().UTC(),
		Send:        make(chan []byte, sendBufferSize),
	}
	m.conns[conn.ID] = conn
	if roomID != "" {
		if m.byRoom[roomID] == nil {
			m.byRoom[roomID] = make(map[string]*Connection)
		}
		m.byRoom[roomID][conn.ID] = conn
	}

	monitoring.ConnectionsTotal.Inc()
	monitoring.ConnectionsActive.Set(float64(len(m.conns)))
	return conn
}

// Remove drops a session and closes its send channel.
func (m *ConnectionManager) Remove(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.conns[connID]
	if !ok {
		return
	}
	delete(m.conns, connID)
	if conn.RoomID != "" {
		delete(m.byRoom[conn.RoomID], connID)
		if len(m.byRoom[conn.RoomID]) == 0 {
			delete(m.byRoom, conn.RoomID)
		}
	}
	close(conn.Send)
	monitoring.ConnectionsActive.Set(float64(len(m.conns)))
}

// Count reports the live session count.
func (m *ConnectionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

// BroadcastToRoom queues payload for every session in the room. Sessions
// with a full send buffer are skipped rather than blocking the sender.
func (m *ConnectionManager) BroadcastToRoom(roomID string, payload []byte) int {
	// The read lock is held through the sends; Remove closes Send under
	// the write lock, so no send can race a close.
	m.mu.RLock()
	defer m.mu.RUnlock()

	delivered := 0
	for _, conn := range m.byRoom[roomID] {
		select {
		case conn.Send <- payload:
			delivered++
			monitoring.MessagesSent.Inc()
		default:
			monitoring.ConnectionErrors.WithLabelValues("send_buffer_full").Inc()
		}
	}
	return delivered
}

// Announce queues a global announcement for every live session. It
// reports false when the announcement buffer is full.
func (m *ConnectionManager) Announce(payload []byte) bool {
	select {
	case m.broadcast <- payload:
		return true
	default:
		monitoring.ConnectionErrors.WithLabelValues("broadcast_buffer_full").Inc()
		return false
	}
}

// Close stops the announcement dispatcher. Live sessions are untouched.
func (m *ConnectionManager) Close() {
	m.closeOnce.Do(func() { close(m.done) })
}

func (m *ConnectionManager) dispatch() {
	for {
		select {
		case payload := <-m.broadcast:
			m.broadcastAll(payload)
		case <-m.done:
			return
		}
	}
}

func (m *ConnectionManager) broadcastAll(payload []byte) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, conn := range m.conns {
		select {
		case conn.Send <- payload:
			monitoring.MessagesSent.Inc()
		default:
			monitoring.ConnectionErrors.WithLabelValues("send_buffer_full").Inc()
		}
	}
}
