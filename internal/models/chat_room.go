package models

import "time"

// ChatRoom groups participants and the messages they exchange.
type ChatRoom struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:15;index;not null" json:"name"`
	Description  string    `gorm:"size:255;not null" json:"description"`
	Participants []User    `gorm:"many2many:chat_room_participants;" json:"participants"`
	Messages     []Message `gorm:"foreignKey:RoomID" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasParticipant reports whether the user is part of the room's participant set.
func (r ChatRoom) HasParticipant(userID uint) bool {
	for _, participant := range r.Participants {
		if participant.ID == userID {
			return true
		}
	}
	return false
}
