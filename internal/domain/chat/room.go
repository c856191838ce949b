package chat

import "time"

// Room is a named collection of members and ordered messages.
type Room struct {
	ID        string
	Name      string
	Topic     string
	CreatedAt time.Time
}

// NewRoom creates an empty room with a fresh id.
func NewRoom(name, topic string) Room {
	return Room{
		ID:        NewRoomID(),
		Name:      name,
		Topic:     topic,
		CreatedAt: time.Now().UTC(),
	}
}

// StoredMessage is a message as held in room state and returned by the
// room fetch API.
type StoredMessage struct {
	ID        string
	RoomID    string
	Sender    string
	Text      string
	ReplyTo   string
	CreatedAt time.Time
}
