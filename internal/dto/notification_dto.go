package dto

import (
	"time"

	"github.com/noah-isme/webchat-api/internal/models"
)

// NotificationCreateRequest describes the payload to create a notification.
type NotificationCreateRequest struct {
	Content     string `json:"content" validate:"required,min=5,max=255"`
	RecipientID uint   `json:"recipient_id" validate:"required"`
}

// NotificationUpdateRequest rewrites the content of a notification.
type NotificationUpdateRequest struct {
	Content string `json:"content"`
}

// NotificationMarkRequest selects the recipient whose notifications are flipped.
type NotificationMarkRequest struct {
	RecipientID uint `json:"recipient_id"`
}

// NotificationResponse represents notification data returned to clients.
type NotificationResponse struct {
	ID          uint      `json:"id"`
	Content     string    `json:"content"`
	SentAt      time.Time `json:"sent_at"`
	Status      string    `json:"status"`
	RecipientID uint      `json:"recipient_id"`
}

// NotificationBulkResponse reports the outcome of a bulk status change or delete.
type NotificationBulkResponse struct {
	RecipientID uint   `json:"recipient_id"`
	Status      string `json:"status,omitempty"`
	Affected    int64  `json:"affected"`
}

// NewNotificationResponse converts a notification model to DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:          model.ID,
		Content:     model.Content,
		SentAt:      model.SentAt,
		Status:      model.Status,
		RecipientID: model.RecipientID,
	}
}

// NewNotificationResponseSlice converts a slice to DTOs.
func NewNotificationResponseSlice(items []models.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewNotificationResponse(item))
	}
	return out
}
