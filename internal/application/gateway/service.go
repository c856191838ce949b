package gateway

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nexis-chat/nexis/gateway/internal/domain/chat"
	"github.com/nexis-chat/nexis/gateway/internal/domain/protocol"
	"github.com/nexis-chat/nexis/gateway/internal/domain/repository"
	"github.com/nexis-chat/nexis/gateway/internal/infrastructure/indexing"
	"github.com/nexis-chat/nexis/gateway/internal/infrastructure/monitoring"
	"github.com/nexis-chat/nexis/gateway/pkg/errors"
	"go.uber.org/zap"
)

// RoomView is the full room fetch payload: the room plus its messages and
// member roster.
type RoomView struct {
	Room     *chat.Room
	Messages []*chat.StoredMessage
	Members  []string
}

// ChatService implements the gateway's room, message and member
// operations. Repositories are always touched in room, message, member
// order so cross-entity operations cannot deadlock against each other.
type ChatService struct {
	rooms    repository.RoomRepository
	messages repository.MessageRepository
	members  repository.MemberRepository

	writes    *Semaphore
	conns     *ConnectionManager
	indexQ    *indexing.Queue
	responder *AIResponder
	logger    *zap.Logger
}

// NewChatService wires the gateway service. indexQ and conns may be nil
// when indexing or fan-out is disabled.
func NewChatService(
	rooms repository.RoomRepository,
	messages repository.MessageRepository,
	members repository.MemberRepository,
	writes *Semaphore,
	conns *ConnectionManager,
	indexQ *indexing.Queue,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		rooms:    rooms,
		messages: messages,
		members:  members,
		writes:   writes,
		conns:    conns,
		indexQ:   indexQ,
		logger:   logger.With(zap.String("component", "chat-service")),
	}
}

// SetResponder attaches the assistant responder. Messages mentioning the
// assistant then receive a generated reply.
func (s *ChatService) SetResponder(r *AIResponder) {
	s.responder = r
}

// CreateRoom creates a named room.
func (s *ChatService) CreateRoom(ctx context.Context, name, topic string) (*chat.Room, error) {
	if !s.writes.TryAcquire() {
		return nil, errors.NewServiceUnavailableError("write capacity exhausted, retry later")
	}
	defer s.writes.Release()

	if strings.TrimSpace(name) == "" {
		return nil, errors.NewInvalidInputError("room name must not be empty")
	}

	room := chat.NewRoom(name, topic)
	if err := s.rooms.Save(ctx, &room); err != nil {
		return nil, err
	}

	monitoring.RoomsActive.Inc()
	s.logger.Info("Room created",
		zap.String("room_id", room.ID),
		zap.String("name", room.Name),
	)
	return &room, nil
}

// SendMessage validates and stores a message, then fans it out and queues
// it for indexing. Saturated write admission fails fast with a
// service-unavailable error.
func (s *ChatService) SendMessage(ctx context.Context, roomID, sender, text, replyTo string) (*chat.StoredMessage, error) {
	if !s.writes.TryAcquire() {
		return nil, errors.NewServiceUnavailableError("write capacity exhausted, retry later")
	}
	defer s.writes.Release()

	start := time.Now()
	monitoring.MessagesReceived.Inc()

	// Senders are free-form display strings on the wire; only the invite
	// path enforces the member id grammar.
	if strings.TrimSpace(sender) == "" {
		return nil, errors.NewInvalidInputError("sender must not be empty")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.NewInvalidInputError("message text must not be empty")
	}

	if _, err := s.rooms.FindByID(ctx, roomID); err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NewNotFoundError("room not found")
		}
		return nil, err
	}
	if replyTo != "" {
		if _, err := s.messages.FindByID(ctx, replyTo); err != nil {
			if errors.IsNotFound(err) {
				return nil, errors.NewInvalidInputError("replyTo message not found")
			}
			return nil, err
		}
	}

	msg := &chat.StoredMessage{
		ID:        chat.NewMessageID(),
		RoomID:    roomID,
		Sender:    sender,
		Text:      text,
		ReplyTo:   replyTo,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.messages.Save(ctx, msg); err != nil {
		return nil, err
	}

	monitoring.MessagesByType.WithLabelValues("text").Inc()
	monitoring.MessageSize.Observe(float64(len(text)))
	monitoring.MessageLatency.Observe(time.Since(start).Seconds())

	// Fan-out and indexing happen after the write is durable.
	s.broadcast(msg)
	s.enqueueIndex(msg)
	if s.responder != nil && s.responder.shouldReply(sender, text) {
		s.responder.reply(s, roomID, msg.ID, text)
	}

	return msg, nil
}

// GetRoom returns the room with its messages in order and its member
// roster.
func (s *ChatService) GetRoom(ctx context.Context, roomID string) (*RoomView, error) {
	room, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NewNotFoundError("room not found")
		}
		return nil, err
	}
	msgs, err := s.messages.FindByRoomID(ctx, roomID, 0, 0)
	if err != nil {
		return nil, err
	}
	roster, err := s.members.ListRoomMembers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return &RoomView{Room: room, Messages: msgs, Members: roster}, nil
}

// InviteMember joins a member to a room. Re-inviting is a no-op success.
func (s *ChatService) InviteMember(ctx context.Context, roomID, memberID string) error {
	if !s.writes.TryAcquire() {
		return errors.NewServiceUnavailableError("write capacity exhausted, retry later")
	}
	defer s.writes.Release()

	parsed, err := protocol.ParseMemberID(memberID)
	if err != nil {
		return errors.NewInvalidInputError("invalid member id: " + err.Error())
	}

	if _, err := s.rooms.FindByID(ctx, roomID); err != nil {
		if errors.IsNotFound(err) {
			return errors.NewNotFoundError("room not found")
		}
		return err
	}

	if _, err := s.members.FindByMemberID(ctx, memberID); err != nil {
		if !errors.IsNotFound(err) {
			return err
		}
		member := chat.NewMember(parsed, parsed.Identifier)
		if err := s.members.Save(ctx, member); err != nil {
			return err
		}
	}
	if err := s.members.AddToRoom(ctx, roomID, memberID); err != nil {
		return err
	}

	roster, err := s.members.ListRoomMembers(ctx, roomID)
	if err == nil {
		monitoring.RoomMembers.WithLabelValues(roomID).Set(float64(len(roster)))
	}
	return nil
}

// wireMessage is the fan-out payload sent to room subscribers.
type wireMessage struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	ReplyTo   string    `json:"replyTo,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *ChatService) broadcast(msg *chat.StoredMessage) {
	if s.conns == nil {
		return
	}
	payload, err := json.Marshal(wireMessage{
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		Sender:    msg.Sender,
		Text:      msg.Text,
		ReplyTo:   msg.ReplyTo,
		CreatedAt: msg.CreatedAt,
	})
	if err != nil {
		return
	}
	s.conns.BroadcastToRoom(msg.RoomID, payload)
}

func (s *ChatService) enqueueIndex(msg *chat.StoredMessage) {
	if s.indexQ == nil {
		return
	}
	task := indexing.NewIndexTask(msg.ID, msg.RoomID, msg.Sender, msg.Text)
	if !s.indexQ.Enqueue(task) {
		s.logger.Warn("Index enqueue rejected",
			zap.String("message_id", msg.ID),
		)
	}
}
