package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/nexis-chat/nexis/gateway/internal/domain/chat"
	"github.com/nexis-chat/nexis/gateway/internal/domain/repository"
	"github.com/nexis-chat/nexis/gateway/internal/infrastructure/persistence/models"
	domainErrors "github.com/nexis-chat/nexis/gateway/pkg/errors"
)

// GormRoomRepository is the database-backed room repository.
type GormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository creates a room repository over a gorm connection.
func NewGormRoomRepository(db *gorm.DB) repository.RoomRepository {
	return &GormRoomRepository{db: db}
}

func (r *GormRoomRepository) Save(ctx context.Context, room *chat.Room) error {
	model := &models.RoomModel{
		ID:        room.ID,
		Name:      room.Name,
		Topic:     room.Topic,
		CreatedAt: room.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return domainErrors.NewInternalError("failed to save room: " + err.Error())
	}
	return nil
}

func (r *GormRoomRepository) FindByID(ctx context.Context, id string) (*chat.Room, error) {
	var model models.RoomModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.NewNotFoundError("room not found")
		}
		return nil, domainErrors.NewInternalError("failed to find room: " + err.Error())
	}
	return roomFromModel(&model), nil
}

func (r *GormRoomRepository) List(ctx context.Context) ([]*chat.Room, error) {
	var rows []models.RoomModel
	if err := r.db.WithContext(ctx).Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, domainErrors.NewInternalError("failed to list rooms: " + err.Error())
	}
	rooms := make([]*chat.Room, 0, len(rows))
	for i := range rows {
		rooms = append(rooms, roomFromModel(&rows[i]))
	}
	return rooms, nil
}

func (r *GormRoomRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.RoomModel{}, "id = ?", id)
	if result.Error != nil {
		return domainErrors.NewInternalError("failed to delete room: " + result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return domainErrors.NewNotFoundError("room not found")
	}
	return nil
}

func roomFromModel(model *models.RoomModel) *chat.Room {
	return &chat.Room{
		ID:        model.ID,
		Name:      model.Name,
		Topic:     model.Topic,
		CreatedAt: model.CreatedAt,
	}
}
