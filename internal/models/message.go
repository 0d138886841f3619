package models

import "time"

// Message is a single chat line posted by a sender into a room.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Content   string    `gorm:"size:255;not null" json:"content"`
	SentAt    time.Time `gorm:"index;not null" json:"sent_at"`
	SenderID  uint      `gorm:"index;not null" json:"sender_id"`
	Sender    User      `gorm:"foreignKey:SenderID" json:"-"`
	RoomID    uint      `gorm:"index;not null" json:"room_id"`
	Room      ChatRoom  `gorm:"foreignKey:RoomID" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
