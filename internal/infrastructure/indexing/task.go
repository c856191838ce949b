package indexing

import (
	"time"

	"github.com/google/uuid"
)

// DefaultMaxTaskRetries bounds how many times a failed task is requeued.
const DefaultMaxTaskRetries = 3

// IndexTask is one message waiting to be embedded and stored.
type IndexTask struct {
	ID         string
	MessageID  string
	RoomID     string
	Sender     string
	Content    string
	Metadata   map[string]string
	Attempts   int
	MaxRetries int
	CreatedAt  time.Time
}

// NewIndexTask builds a task for a room message.
func NewIndexTask(messageID, roomID, sender, content string) *IndexTask {
	return &IndexTask{
		ID:         uuid.NewString(),
		MessageID:  messageID,
		RoomID:     roomID,
		Sender:     sender,
		Content:    content,
		MaxRetries: DefaultMaxTaskRetries,
		CreatedAt:  time.Now().UTC(),
	}
}

// CanRetry reports whether the task has attempt budget left.
func (t *IndexTask) CanRetry() bool {
	return t.Attempts < t.MaxRetries
}
