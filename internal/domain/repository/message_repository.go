package repository

import (
	"context"

	"github.com/nexis-chat/nexis/gateway/internal/domain/chat"
)

// MessageRepository persists room messages.
type MessageRepository interface {
	// Save creates or updates a message.
	Save(ctx context.Context, msg *chat.StoredMessage) error

	// FindByID returns a message or a not-found error.
	FindByID(ctx context.Context, id string) (*chat.StoredMessage, error)

	// FindByRoomID returns a room's messages in creation order.
	FindByRoomID(ctx context.Context, roomID string, limit, offset int) ([]*chat.StoredMessage, error)

	// Count returns the number of messages in a room.
	Count(ctx context.Context, roomID string) (int64, error)

	// Delete removes a message or returns a not-found error.
	Delete(ctx context.Context, id string) error
}
