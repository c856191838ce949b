package models

import "time"

// RoomModel maps rooms.
type RoomModel struct {
	ID        string    `gorm:"primaryKey;type:text"`
	Name      string    `gorm:"not null;index"`
	Topic     string
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName overrides the gorm default.
func (RoomModel) TableName() string { return "rooms" }

// MessageModel maps messages.
type MessageModel struct {
	ID        string    `gorm:"primaryKey;type:text"`
	RoomID    string    `gorm:"not null;index"`
	SenderID  string    `gorm:"not null;index"`
	Content   string    `gorm:"not null"`
	ReplyTo   string
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time
}

// TableName overrides the gorm default.
func (MessageModel) TableName() string { return "messages" }

// MemberModel maps members.
type MemberModel struct {
	ID          string    `gorm:"primaryKey;type:text"`
	MemberID    string    `gorm:"not null;uniqueIndex"`
	Type        string    `gorm:"not null"`
	DisplayName string
	Email       string    `gorm:"uniqueIndex"`
	TenantID    string    `gorm:"index"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time
}

// TableName overrides the gorm default.
func (MemberModel) TableName() string { return "members" }

// RoomMemberModel maps room membership.
type RoomMemberModel struct {
	RoomID   string    `gorm:"primaryKey;type:text"`
	MemberID string    `gorm:"primaryKey;type:text"`
	JoinedAt time.Time `gorm:"not null"`
}

// TableName overrides the gorm default.
func (RoomMemberModel) TableName() string { return "room_members" }
