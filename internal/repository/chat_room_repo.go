package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/webchat-api/internal/models"
)

// ChatRoomRepository handles persistence for chat rooms and their participants.
type ChatRoomRepository interface {
	List(ctx context.Context) ([]models.ChatRoom, error)
	FindByID(ctx context.Context, id uint) (models.ChatRoom, error)
	FindByName(ctx context.Context, name string) (models.ChatRoom, error)
	ListByParticipant(ctx context.Context, username string) ([]models.ChatRoom, error)
	ListByMessageContent(ctx context.Context, content string) ([]models.ChatRoom, error)
	IsParticipant(ctx context.Context, roomID, userID uint) (bool, error)
	Create(ctx context.Context, room *models.ChatRoom) error
	Update(ctx context.Context, room *models.ChatRoom) error
	AddParticipant(ctx context.Context, roomID uint, user models.User) error
	RemoveParticipant(ctx context.Context, roomID uint, user models.User) error
	Delete(ctx context.Context, id uint) error
}

type chatRoomRepository struct {
	db *gorm.DB
}

// NewChatRoomRepository constructs a repository backed by GORM.
func NewChatRoomRepository(db *gorm.DB) ChatRoomRepository {
	return &chatRoomRepository{db: db}
}

func (r *chatRoomRepository) withParticipants(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Participants", func(db *gorm.DB) *gorm.DB {
		return db.Order("users.id ASC")
	})
}

func (r *chatRoomRepository) List(ctx context.Context) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	if err := r.withParticipants(ctx).Order("id ASC").Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *chatRoomRepository) FindByID(ctx context.Context, id uint) (models.ChatRoom, error) {
	var room models.ChatRoom
	if err := r.withParticipants(ctx).First(&room, id).Error; err != nil {
		return models.ChatRoom{}, err
	}
	return room, nil
}

func (r *chatRoomRepository) FindByName(ctx context.Context, name string) (models.ChatRoom, error) {
	var room models.ChatRoom
	if err := r.withParticipants(ctx).Where("name = ?", name).Order("id ASC").First(&room).Error; err != nil {
		return models.ChatRoom{}, err
	}
	return room, nil
}

func (r *chatRoomRepository) ListByParticipant(ctx context.Context, username string) ([]models.ChatRoom, error) {
	members := r.db.WithContext(ctx).
		Table("chat_room_participants").
		Select("chat_room_participants.chat_room_id").
		Joins("JOIN users ON users.id = chat_room_participants.user_id").
		Where("users.username = ?", username)

	var rooms []models.ChatRoom
	if err := r.withParticipants(ctx).Where("id IN (?)", members).Order("id ASC").Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *chatRoomRepository) ListByMessageContent(ctx context.Context, content string) ([]models.ChatRoom, error) {
	withMessage := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Select("room_id").
		Where("content = ?", content)

	var rooms []models.ChatRoom
	if err := r.withParticipants(ctx).Where("id IN (?)", withMessage).Order("id ASC").Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *chatRoomRepository) IsParticipant(ctx context.Context, roomID, userID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Table("chat_room_participants").
		Where("chat_room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *chatRoomRepository) Create(ctx context.Context, room *models.ChatRoom) error {
	return r.db.WithContext(ctx).Create(room).Error
}

func (r *chatRoomRepository) Update(ctx context.Context, room *models.ChatRoom) error {
	return r.db.WithContext(ctx).Model(&models.ChatRoom{ID: room.ID}).Updates(map[string]interface{}{
		"name":        room.Name,
		"description": room.Description,
	}).Error
}

func (r *chatRoomRepository) AddParticipant(ctx context.Context, roomID uint, user models.User) error {
	return r.db.WithContext(ctx).
		Model(&models.ChatRoom{ID: roomID}).
		Association("Participants").
		Append(&user)
}

func (r *chatRoomRepository) RemoveParticipant(ctx context.Context, roomID uint, user models.User) error {
	return r.db.WithContext(ctx).
		Model(&models.ChatRoom{ID: roomID}).
		Association("Participants").
		Delete(&user)
}

// Delete removes the room together with its messages and membership rows.
func (r *chatRoomRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM chat_room_participants WHERE chat_room_id = ?", id).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.ChatRoom{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
