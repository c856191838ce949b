package context

import (
	"sync"
	"time"

	"github.com/nexis-chat/nexis/gateway/pkg/errors"
	"go.uber.org/zap"
)

// Manager owns conversation contexts and enforces their windows.
type Manager struct {
	mu       sync.RWMutex
	contexts map[string]*ConversationContext
	logger   *zap.Logger
}

// NewManager creates an empty context manager.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		contexts: make(map[string]*ConversationContext),
		logger:   logger.With(zap.String("component", "context-manager")),
	}
}

// Create registers a conversation with the given window. Creating an
// existing id fails.
func (m *Manager) Create(id string, window ContextWindow) (*ConversationContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.contexts[id]; ok {
		return nil, errors.NewAlreadyExistsError("context " + id + " already exists")
	}
	now := time.Now().UTC()
	cc := &ConversationContext{
		ID:        id,
		Window:    window,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.contexts[id] = cc
	return m.snapshot(cc), nil
}

// Get returns a copy of the conversation or a not-found error.
func (m *Manager) Get(id string) (*ConversationContext, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cc, ok := m.contexts[id]
	if !ok {
		return nil, errors.NewNotFoundError("context " + id + " not found")
	}
	return m.snapshot(cc), nil
}

// Delete removes a conversation or returns a not-found error.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.contexts[id]; !ok {
		return errors.NewNotFoundError("context " + id + " not found")
	}
	delete(m.contexts, id)
	return nil
}

// AddMessage appends a turn, applying the window's overflow strategy when
// the estimated cost does not fit.
func (m *Manager) AddMessage(id string, role Role, content string) (*ConversationContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cc, ok := m.contexts[id]
	if !ok {
		return nil, errors.NewNotFoundError("context " + id + " not found")
	}

	needed := EstimateTokens(content)
	available := cc.Window.AvailableTokens() - cc.TotalTokens

	if needed > available {
		switch cc.Window.OverflowStrategy {
		case Fail:
			return nil, &WindowFullError{Needed: needed, Available: available}
		case TruncateOldest, Summarize, "":
			// Summarize falls through to truncation until a summarizer
			// backend exists. Only the deficit has to be freed; the
			// window may still have headroom.
			m.truncateOldest(cc, needed-available)
		}
	}

	cc.Messages = append(cc.Messages, ContextMessage{
		Role:      role,
		Content:   content,
		Tokens:    needed,
		CreatedAt: time.Now().UTC(),
	})
	cc.TotalTokens += needed
	cc.UpdatedAt = time.Now().UTC()
	return m.snapshot(cc), nil
}

// truncateOldest evicts from the front until the deficit is freed or a
// single message remains.
func (m *Manager) truncateOldest(cc *ConversationContext, deficit int) {
	freed := 0
	for freed < deficit && len(cc.Messages) > 1 {
		evicted := cc.Messages[0]
		cc.Messages = cc.Messages[1:]
		cc.TotalTokens -= evicted.Tokens
		freed += evicted.Tokens
	}
	if freed > 0 {
		m.logger.Debug("Context truncated",
			zap.String("context_id", cc.ID),
			zap.Int("freed_tokens", freed),
		)
	}
}

func (m *Manager) snapshot(cc *ConversationContext) *ConversationContext {
	copied := *cc
	copied.Messages = make([]ContextMessage, len(cc.Messages))
	copy(copied.Messages, cc.Messages)
	return &copied
}
