package chat

import (
	"strings"

	"github.com/google/uuid"
)

// NewRoomID returns "room_" followed by 32 hex characters of a random UUID.
func NewRoomID() string {
	return "room_" + hex32()
}

// NewMessageID returns "msg_" followed by 32 hex characters of a random UUID.
func NewMessageID() string {
	return "msg_" + hex32()
}

// NewMemberRecordID returns "member_" followed by 32 hex characters.
func NewMemberRecordID() string {
	return "member_" + hex32()
}

func hex32() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
