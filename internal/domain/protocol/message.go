package protocol

import (
	"encoding/json"
	"errors"
	"time"
)

// ContentType discriminates the message content variants.
type ContentType string

const (
	ContentTypeText ContentType = "text"
	ContentTypeCode ContentType = "code"
	ContentTypeTool ContentType = "tool"
)

// MessageContent is the tagged message body. Exactly the fields for the
// active variant are populated; Type selects the variant on the wire.
type MessageContent struct {
	Type ContentType `json:"type"`

	// Text variant
	Text string `json:"text,omitempty"`

	// Code variant
	Code     string `json:"code,omitempty"`
	Language string `json:"language,omitempty"`

	// Tool variant
	ToolName string          `json:"toolName,omitempty"`
	Input    json.RawMessage `json:"input,omitempty"`
}

// TextContent builds a text body.
func TextContent(text string) MessageContent {
	return MessageContent{Type: ContentTypeText, Text: text}
}

// CodeContent builds a code body. Language may be empty.
func CodeContent(code, language string) MessageContent {
	return MessageContent{Type: ContentTypeCode, Code: code, Language: language}
}

// ToolContent builds a tool invocation body.
func ToolContent(toolName string, input json.RawMessage) MessageContent {
	return MessageContent{Type: ContentTypeTool, ToolName: toolName, Input: input}
}

// Message is the room message envelope. Wire form uses camelCase keys.
type Message struct {
	ID        string          `json:"id"`
	RoomID    string          `json:"roomId"`
	Sender    MemberID        `json:"sender"`
	Content   MessageContent  `json:"content"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	ReplyTo   string          `json:"replyTo,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
}

// NewMessage constructs a message with CreatedAt stamped now.
// UpdatedAt stays unset until the body mutates.
func NewMessage(id, roomID string, sender MemberID, content MessageContent) *Message {
	return &Message{
		ID:        id,
		RoomID:    roomID,
		Sender:    sender,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// NewTextMessage constructs a text message.
func NewTextMessage(id, roomID string, sender MemberID, text string) *Message {
	return NewMessage(id, roomID, sender, TextContent(text))
}

// ErrEmptyMessageID and ErrEmptyRoomID are the validation failures.
var (
	ErrEmptyMessageID = errors.New("message id must not be empty")
	ErrEmptyRoomID    = errors.New("message room id must not be empty")
)

// Validate checks the envelope invariants.
func (m *Message) Validate() error {
	if m.ID == "" {
		return ErrEmptyMessageID
	}
	if m.RoomID == "" {
		return ErrEmptyRoomID
	}
	return nil
}

// SetMetadata replaces the metadata payload and stamps UpdatedAt.
func (m *Message) SetMetadata(metadata json.RawMessage) {
	m.Metadata = metadata
	m.touch()
}

// SetReplyTo links the message to an earlier one and stamps UpdatedAt.
func (m *Message) SetReplyTo(messageID string) {
	m.ReplyTo = messageID
	m.touch()
}

func (m *Message) touch() {
	now := time.Now().UTC()
	m.UpdatedAt = &now
}
