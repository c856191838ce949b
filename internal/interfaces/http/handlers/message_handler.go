package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nexis-chat/nexis/gateway/internal/application/gateway"
	"github.com/nexis-chat/nexis/gateway/pkg/errors"
	"go.uber.org/zap"
)

// MessageHandler serves message sends.
type MessageHandler struct {
	chat   *gateway.ChatService
	logger *zap.Logger
}

// NewMessageHandler creates the message handler.
func NewMessageHandler(chat *gateway.ChatService, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{chat: chat, logger: logger}
}

type sendMessageRequest struct {
	RoomID  string `json:"roomId"`
	Sender  string `json:"sender"`
	Text    string `json:"text"`
	ReplyTo string `json:"replyTo,omitempty"`
}

// SendMessage handles POST /v1/messages.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.NewInvalidInputError("invalid request body"))
		return
	}

	msg, err := h.chat.SendMessage(c.Request.Context(), req.RoomID, req.Sender, req.Text, req.ReplyTo)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": msg.ID})
}
