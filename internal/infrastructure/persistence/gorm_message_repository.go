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

// GormMessageRepository is the database-backed message repository.
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a message repository over a gorm
// connection.
func NewGormMessageRepository(db *gorm.DB) repository.MessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Save(ctx context.Context, msg *chat.StoredMessage) error {
	model := &models.MessageModel{
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		SenderID:  msg.Sender,
		Content:   msg.Text,
		ReplyTo:   msg.ReplyTo,
		CreatedAt: msg.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return domainErrors.NewInternalError("failed to save message: " + err.Error())
	}
	return nil
}

func (r *GormMessageRepository) FindByID(ctx context.Context, id string) (*chat.StoredMessage, error) {
	var model models.MessageModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.NewNotFoundError("message not found")
		}
		return nil, domainErrors.NewInternalError("failed to find message: " + err.Error())
	}
	return messageFromModel(&model), nil
}

func (r *GormMessageRepository) FindByRoomID(ctx context.Context, roomID string, limit, offset int) ([]*chat.StoredMessage, error) {
	query := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []models.MessageModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, domainErrors.NewInternalError("failed to find messages: " + err.Error())
	}
	messages := make([]*chat.StoredMessage, 0, len(rows))
	for i := range rows {
		messages = append(messages, messageFromModel(&rows[i]))
	}
	return messages, nil
}

func (r *GormMessageRepository) Count(ctx context.Context, roomID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.MessageModel{}).
		Where("room_id = ?", roomID).
		Count(&count).Error
	if err != nil {
		return 0, domainErrors.NewInternalError("failed to count messages: " + err.Error())
	}
	return count, nil
}

func (r *GormMessageRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.MessageModel{}, "id = ?", id)
	if result.Error != nil {
		return domainErrors.NewInternalError("failed to delete message: " + result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return domainErrors.NewNotFoundError("message not found")
	}
	return nil
}

func messageFromModel(model *models.MessageModel) *chat.StoredMessage {
	return &chat.StoredMessage{
		ID:        model.ID,
		RoomID:    model.RoomID,
		Sender:    model.SenderID,
		Text:      model.Content,
		ReplyTo:   model.ReplyTo,
		CreatedAt: model.CreatedAt,
	}
}
