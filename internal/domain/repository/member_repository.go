package repository

import (
	"context"

	"github.com/nexis-chat/nexis/gateway/internal/domain/chat"
)

// MemberRepository persists members and room membership.
type MemberRepository interface {
	// Save creates or updates a member record.
	Save(ctx context.Context, member *chat.Member) error

	// FindByMemberID returns a member by canonical member id or a
	// not-found error.
	FindByMemberID(ctx context.Context, memberID string) (*chat.Member, error)

	// AddToRoom joins a member to a room. Repeats are no-ops.
	AddToRoom(ctx context.Context, roomID, memberID string) error

	// ListRoomMembers returns the member ids joined to a room.
	ListRoomMembers(ctx context.Context, roomID string) ([]string, error)

	// IsRoomMember reports whether the member has joined the room.
	IsRoomMember(ctx context.Context, roomID, memberID string) (bool, error)
}
