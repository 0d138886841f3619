package dto

import (
	"time"

	"github.com/noah-isme/webchat-api/internal/models"
)

// MessageSendRequest posts a message into a room. SenderID defaults to the caller.
type MessageSendRequest struct {
	Content  string `json:"content" validate:"required,min=5,max=255"`
	RoomID   uint   `json:"room_id" validate:"required"`
	SenderID uint   `json:"sender_id"`
}

// MessageUpdateRequest rewrites the content of an existing message.
type MessageUpdateRequest struct {
	Content string `json:"content"`
}

// MessageResponse is the serialized representation of a message.
type MessageResponse struct {
	ID       uint      `json:"id"`
	Content  string    `json:"content"`
	SentAt   time.Time `json:"sent_at"`
	SenderID uint      `json:"sender_id"`
	RoomID   uint      `json:"room_id"`
}

// NewMessageResponse converts a model into a DTO.
func NewMessageResponse(message models.Message) MessageResponse {
	return MessageResponse{
		ID:       message.ID,
		Content:  message.Content,
		SentAt:   message.SentAt,
		SenderID: message.SenderID,
		RoomID:   message.RoomID,
	}
}

// NewMessageResponseSlice converts a slice of models into DTOs.
func NewMessageResponseSlice(messages []models.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(messages))
	for _, message := range messages {
		out = append(out, NewMessageResponse(message))
	}
	return out
}
