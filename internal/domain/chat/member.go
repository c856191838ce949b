package chat

import (
	"time"

	"github.com/nexis-chat/nexis/gateway/internal/domain/protocol"
)

// Member is a registered participant: a human, agent or bot that can join
// rooms.
type Member struct {
	ID          string             `json:"id"`
	MemberID    protocol.MemberID  `json:"memberId"`
	DisplayName string             `json:"displayName,omitempty"`
	Email       string             `json:"email,omitempty"`
	TenantID    string             `json:"tenantId,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
}

// NewMember registers a participant under a fresh record id.
func NewMember(memberID protocol.MemberID, displayName string) *Member {
	return &Member{
		ID:          NewMemberRecordID(),
		MemberID:    memberID,
		DisplayName: displayName,
		CreatedAt:   time.Now().UTC(),
	}
}

// RoomMembership ties a member to a room.
type RoomMembership struct {
	RoomID   string            `json:"roomId"`
	MemberID protocol.MemberID `json:"memberId"`
	JoinedAt time.Time         `json:"joinedAt"`
}
