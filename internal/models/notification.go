package models

import "time"

// Notification read states.
const (
	NotificationStatusRead   = "read"
	NotificationStatusUnread = "unread"
)

// Notification is a short text addressed to a single recipient.
type Notification struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Content     string    `gorm:"size:255;not null" json:"content"`
	SentAt      time.Time `gorm:"not null" json:"sent_at"`
	Status      string    `gorm:"size:16;index:idx_notifications_recipient_status,priority:2;not null;default:unread" json:"status"`
	RecipientID uint      `gorm:"index:idx_notifications_recipient_status,priority:1;not null" json:"recipient_id"`
	Recipient   User      `gorm:"foreignKey:RecipientID" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
