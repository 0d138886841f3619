package dto

import (
	"time"

	"github.com/noah-isme/webchat-api/internal/models"
)

// ChatRoomCreateRequest is the payload for opening a new room.
type ChatRoomCreateRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=15"`
	Description string `json:"description" validate:"required,min=2,max=255"`
}

// ChatRoomUpdateRequest renames a room and rewrites its description.
type ChatRoomUpdateRequest struct {
	Name        string `json:"name" validate:"omitempty,min=2,max=15"`
	Description string `json:"description" validate:"omitempty,min=2,max=255"`
}

// ChatRoomParticipantRequest identifies the user to add to a room.
type ChatRoomParticipantRequest struct {
	UserID uint `json:"user_id" validate:"required"`
}

// ParticipantResponse is the trimmed user shape embedded in rooms.
type ParticipantResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	Status   string `json:"status"`
}

// ChatRoomResponse represents a room and its participants.
type ChatRoomResponse struct {
	ID           uint                  `json:"id"`
	Name         string                `json:"name"`
	Description  string                `json:"description"`
	Participants []ParticipantResponse `json:"participants"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// BlockedUsersResponse lists the users barred from a room.
type BlockedUsersResponse struct {
	RoomID  uint   `json:"room_id"`
	UserIDs []uint `json:"user_ids"`
}

// NewChatRoomResponse converts a room model, including preloaded participants, into a DTO.
func NewChatRoomResponse(room models.ChatRoom) ChatRoomResponse {
	participants := make([]ParticipantResponse, 0, len(room.Participants))
	for _, user := range room.Participants {
		participants = append(participants, ParticipantResponse{
			ID:       user.ID,
			Username: user.Username,
			Avatar:   user.Avatar,
			Status:   user.Status,
		})
	}

	return ChatRoomResponse{
		ID:           room.ID,
		Name:         room.Name,
		Description:  room.Description,
		Participants: participants,
		CreatedAt:    room.CreatedAt,
		UpdatedAt:    room.UpdatedAt,
	}
}

// NewChatRoomResponseSlice converts rooms into DTOs.
func NewChatRoomResponseSlice(rooms []models.ChatRoom) []ChatRoomResponse {
	out := make([]ChatRoomResponse, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, NewChatRoomResponse(room))
	}
	return out
}
