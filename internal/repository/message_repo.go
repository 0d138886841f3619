package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/webchat-api/internal/models"
)

// MessageRepository handles persistence for chat messages.
type MessageRepository interface {
	List(ctx context.Context) ([]models.Message, error)
	FindByID(ctx context.Context, id uint) (models.Message, error)
	ListByRoom(ctx context.Context, roomID uint) ([]models.Message, error)
	ListBySender(ctx context.Context, senderID uint, newestFirst bool) ([]models.Message, error)
	SearchByKeyword(ctx context.Context, keyword string) ([]models.Message, error)
	Create(ctx context.Context, message *models.Message) error
	UpdateContent(ctx context.Context, id uint, content string) error
	Delete(ctx context.Context, id uint) error
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository constructs a repository backed by GORM.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) List(ctx context.Context) ([]models.Message, error) {
	var messages []models.Message
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) FindByID(ctx context.Context, id uint) (models.Message, error) {
	var message models.Message
	if err := r.db.WithContext(ctx).First(&message, id).Error; err != nil {
		return models.Message{}, err
	}
	return message, nil
}

func (r *messageRepository) ListByRoom(ctx context.Context, roomID uint) ([]models.Message, error) {
	var messages []models.Message
	if err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("sent_at ASC").
		Order("id ASC").
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) ListBySender(ctx context.Context, senderID uint, newestFirst bool) ([]models.Message, error) {
	query := r.db.WithContext(ctx).Where("sender_id = ?", senderID)
	if newestFirst {
		query = query.Order("sent_at DESC").Order("id DESC")
	} else {
		query = query.Order("sent_at ASC").Order("id ASC")
	}

	var messages []models.Message
	if err := query.Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

// SearchByKeyword matches keyword as a case-insensitive substring of the content.
func (r *messageRepository) SearchByKeyword(ctx context.Context, keyword string) ([]models.Message, error) {
	pattern := "%" + escapeLike(strings.ToLower(keyword)) + "%"

	var messages []models.Message
	if err := r.db.WithContext(ctx).
		Where("LOWER(content) LIKE ? ESCAPE '\\'", pattern).
		Order("id ASC").
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(message).Error
}

func (r *messageRepository) UpdateContent(ctx context.Context, id uint, content string) error {
	result := r.db.WithContext(ctx).Model(&models.Message{}).Where("id = ?", id).Update("content", content)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *messageRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Message{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
