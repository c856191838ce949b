package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nexis-chat/nexis/gateway/internal/application/gateway"
	"github.com/nexis-chat/nexis/gateway/pkg/errors"
	"go.uber.org/zap"
)

// RoomHandler serves room creation, fetch and invites.
type RoomHandler struct {
	chat   *gateway.ChatService
	logger *zap.Logger
}

// NewRoomHandler creates the room handler.
func NewRoomHandler(chat *gateway.ChatService, logger *zap.Logger) *RoomHandler {
	return &RoomHandler{chat: chat, logger: logger}
}

type createRoomRequest struct {
	Name  string `json:"name"`
	Topic string `json:"topic,omitempty"`
}

// CreateRoom handles POST /v1/rooms.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.NewInvalidInputError("invalid request body"))
		return
	}

	room, err := h.chat.CreateRoom(c.Request.Context(), req.Name, req.Topic)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":   room.ID,
		"name": room.Name,
	})
}

type messageView struct {
	ID      string `json:"id"`
	Sender  string `json:"sender"`
	Text    string `json:"text"`
	ReplyTo string `json:"replyTo,omitempty"`
}

// GetRoom handles GET /v1/rooms/:id.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	view, err := h.chat.GetRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	messages := make([]messageView, 0, len(view.Messages))
	for _, msg := range view.Messages {
		messages = append(messages, messageView{
			ID:      msg.ID,
			Sender:  msg.Sender,
			Text:    msg.Text,
			ReplyTo: msg.ReplyTo,
		})
	}

	body := gin.H{
		"id":       view.Room.ID,
		"name":     view.Room.Name,
		"messages": messages,
		"members":  view.Members,
	}
	if view.Room.Topic != "" {
		body["topic"] = view.Room.Topic
	}
	c.JSON(http.StatusOK, body)
}

type inviteRequest struct {
	MemberID string `json:"memberId"`
}

// InviteMember handles POST /v1/rooms/:id/invite. Re-inviting an existing
// member succeeds with the same body.
func (h *RoomHandler) InviteMember(c *gin.Context) {
	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.NewInvalidInputError("invalid request body"))
		return
	}

	roomID := c.Param("id")
	if err := h.chat.InviteMember(c.Request.Context(), roomID, req.MemberID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"roomId":   roomID,
		"memberId": req.MemberID,
	})
}
