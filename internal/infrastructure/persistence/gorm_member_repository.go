package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nexis-chat/nexis/gateway/internal/domain/chat"
	"github.com/nexis-chat/nexis/gateway/internal/domain/protocol"
	"github.com/nexis-chat/nexis/gateway/internal/domain/repository"
	"github.com/nexis-chat/nexis/gateway/internal/infrastructure/persistence/models"
	domainErrors "github.com/nexis-chat/nexis/gateway/pkg/errors"
)

// GormMemberRepository is the database-backed member repository.
type GormMemberRepository struct {
	db *gorm.DB
}

// NewGormMemberRepository creates a member repository over a gorm
// connection.
func NewGormMemberRepository(db *gorm.DB) repository.MemberRepository {
	return &GormMemberRepository{db: db}
}

func (r *GormMemberRepository) Save(ctx context.Context, member *chat.Member) error {
	model := &models.MemberModel{
		ID:          member.ID,
		MemberID:    member.MemberID.String(),
		Type:        string(member.MemberID.Type),
		DisplayName: member.DisplayName,
		Email:       member.Email,
		TenantID:    member.TenantID,
		CreatedAt:   member.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return domainErrors.NewInternalError("failed to save member: " + err.Error())
	}
	return nil
}

func (r *GormMemberRepository) FindByMemberID(ctx context.Context, memberID string) (*chat.Member, error) {
	var model models.MemberModel
	if err := r.db.WithContext(ctx).First(&model, "member_id = ?", memberID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.NewNotFoundError("member not found")
		}
		return nil, domainErrors.NewInternalError("failed to find member: " + err.Error())
	}

	parsed, err := protocol.ParseMemberID(model.MemberID)
	if err != nil {
		return nil, domainErrors.NewInternalError("stored member id is malformed: " + err.Error())
	}
	return &chat.Member{
		ID:          model.ID,
		MemberID:    parsed,
		DisplayName: model.DisplayName,
		Email:       model.Email,
		TenantID:    model.TenantID,
		CreatedAt:   model.CreatedAt,
	}, nil
}

func (r *GormMemberRepository) AddToRoom(ctx context.Context, roomID, memberID string) error {
	model := &models.RoomMemberModel{
		RoomID:   roomID,
		MemberID: memberID,
		JoinedAt: time.Now().UTC(),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(model).Error
	if err != nil {
		return domainErrors.NewInternalError("failed to add room member: " + err.Error())
	}
	return nil
}

func (r *GormMemberRepository) ListRoomMembers(ctx context.Context, roomID string) ([]string, error) {
	var rows []models.RoomMemberModel
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("joined_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, domainErrors.NewInternalError("failed to list room members: " + err.Error())
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.MemberID)
	}
	return ids, nil
}

func (r *GormMemberRepository) IsRoomMember(ctx context.Context, roomID, memberID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RoomMemberModel{}).
		Where("room_id = ? AND member_id = ?", roomID, memberID).
		Count(&count).Error
	if err != nil {
		return false, domainErrors.NewInternalError("failed to check room membership: " + err.Error())
	}
	return count > 0, nil
}
