package repository

import (
	"context"

	"github.com/nexis-chat/nexis/gateway/internal/domain/chat"
)

// RoomRepository persists rooms.
type RoomRepository interface {
	// Save creates or updates a room.
	Save(ctx context.Context, room *chat.Room) error

	// FindByID returns a room or a not-found error.
	FindByID(ctx context.Context, id string) (*chat.Room, error)

	// List returns every room ordered by creation time.
	List(ctx context.Context) ([]*chat.Room, error)

	// Delete removes a room or returns a not-found error.
	Delete(ctx context.Context, id string) error
}
