package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nexis-chat/nexis/gateway/internal/domain/chat"
	"github.com/nexis-chat/nexis/gateway/internal/domain/protocol"
	"github.com/nexis-chat/nexis/gateway/internal/domain/repository"
	domainErrors "github.com/nexis-chat/nexis/gateway/pkg/errors"
)

// MemoryRoomRepository keeps rooms in process memory.
type MemoryRoomRepository struct {
	mu    sync.RWMutex
	rooms map[string]chat.Room
}

// NewMemoryRoomRepository creates an empty in-memory room repository.
func NewMemoryRoomRepository() repository.RoomRepository {
	return &MemoryRoomRepository{rooms: make(map[string]chat.Room)}
}

func (r *MemoryRoomRepository) Save(ctx context.Context, room *chat.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[room.ID] = *room
	return nil
}

func (r *MemoryRoomRepository) FindByID(ctx context.Context, id string) (*chat.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[id]
	if !ok {
		return nil, domainErrors.NewNotFoundError("room not found")
	}
	return &room, nil
}

func (r *MemoryRoomRepository) List(ctx context.Context) ([]*chat.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*chat.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		copied := room
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRoomRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[id]; !ok {
		return domainErrors.NewNotFoundError("room not found")
	}
	delete(r.rooms, id)
	return nil
}

// MemoryMessageRepository keeps messages in process memory.
type MemoryMessageRepository struct {
	mu     sync.RWMutex
	byID   map[string]chat.StoredMessage
	byRoom map[string][]string
}

// NewMemoryMessageRepository creates an empty in-memory message
// repository.
func NewMemoryMessageRepository() repository.MessageRepository {
	return &MemoryMessageRepository{
		byID:   make(map[string]chat.StoredMessage),
		byRoom: make(map[string][]string),
	}
}

func (r *MemoryMessageRepository) Save(ctx context.Context, msg *chat.StoredMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[msg.ID]; !exists {
		r.byRoom[msg.RoomID] = append(r.byRoom[msg.RoomID], msg.ID)
	}
	r.byID[msg.ID] = *msg
	return nil
}

func (r *MemoryMessageRepository) FindByID(ctx context.Context, id string) (*chat.StoredMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	msg, ok := r.byID[id]
	if !ok {
		return nil, domainErrors.NewNotFoundError("message not found")
	}
	return &msg, nil
}

func (r *MemoryMessageRepository) FindByRoomID(ctx context.Context, roomID string, limit, offset int) ([]*chat.StoredMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byRoom[roomID]
	if offset >= len(ids) {
		return []*chat.StoredMessage{}, nil
	}
	ids = ids[offset:]
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	out := make([]*chat.StoredMessage, 0, len(ids))
	for _, id := range ids {
		msg := r.byID[id]
		out = append(out, &msg)
	}
	return out, nil
}

func (r *MemoryMessageRepository) Count(ctx context.Context, roomID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byRoom[roomID])), nil
}

func (r *MemoryMessageRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.byID[id]
	if !ok {
		return domainErrors.NewNotFoundError("message not found")
	}
	delete(r.byID, id)
	ids := r.byRoom[msg.RoomID]
	for i, mid := range ids {
		if mid == id {
			r.byRoom[msg.RoomID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

// MemoryMemberRepository keeps members and room membership in process
// memory.
type MemoryMemberRepository struct {
	mu      sync.RWMutex
	members map[string]chat.Member
	rooms   map[string][]chat.RoomMembership
}

// NewMemoryMemberRepository creates an empty in-memory member repository.
func NewMemoryMemberRepository() repository.MemberRepository {
	return &MemoryMemberRepository{
		members: make(map[string]chat.Member),
		rooms:   make(map[string][]chat.RoomMembership),
	}
}

func (r *MemoryMemberRepository) Save(ctx context.Context, member *chat.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[member.MemberID.String()] = *member
	return nil
}

func (r *MemoryMemberRepository) FindByMemberID(ctx context.Context, memberID string) (*chat.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	member, ok := r.members[memberID]
	if !ok {
		return nil, domainErrors.NewNotFoundError("member not found")
	}
	return &member, nil
}

func (r *MemoryMemberRepository) AddToRoom(ctx context.Context, roomID, memberID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.rooms[roomID] {
		if m.MemberID.String() == memberID {
			return nil
		}
	}
	parsed, err := protocol.ParseMemberID(memberID)
	if err != nil {
		return domainErrors.NewInvalidInputError(err.Error())
	}
	r.rooms[roomID] = append(r.rooms[roomID], chat.RoomMembership{
		RoomID:   roomID,
		MemberID: parsed,
		JoinedAt: time.Now().UTC(),
	})
	return nil
}

func (r *MemoryMemberRepository) ListRoomMembers(ctx context.Context, roomID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	memberships := r.rooms[roomID]
	out := make([]string, 0, len(memberships))
	for _, m := range memberships {
		out = append(out, m.MemberID.String())
	}
	return out, nil
}

func (r *MemoryMemberRepository) IsRoomMember(ctx context.Context, roomID, memberID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.rooms[roomID] {
		if m.MemberID.String() == memberID {
			return true, nil
		}
	}
	return false, nil
}
