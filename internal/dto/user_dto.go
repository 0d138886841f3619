package dto

import (
	"time"

	"github.com/noah-isme/webchat-api/internal/models"
)

// UserRegisterRequest is the payload for creating a user or admin account.
type UserRegisterRequest struct {
	Username string `json:"username" validate:"required,min=2,max=20"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=30"`
}

// UserUpdateRequest replaces the profile fields of an account. Every field must change.
type UserUpdateRequest struct {
	Username string `json:"username" validate:"omitempty,min=2,max=20"`
	Email    string `json:"email" validate:"omitempty,email,max=255"`
	Password string `json:"password" validate:"omitempty,min=8,max=30"`
}

// UserAvatarRequest sets the avatar to an already hosted image.
type UserAvatarRequest struct {
	Avatar string `json:"avatar" validate:"required,url,max=512"`
}

// UserStatusRequest flips the presence flag.
type UserStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=online offline"`
}

// UserResponse is the public representation of an account.
type UserResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar,omitempty"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUserResponse converts a user model into a DTO.
func NewUserResponse(user models.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Avatar:    user.Avatar,
		Role:      user.Role,
		Status:    user.Status,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// NewUserResponseSlice converts a slice of users into DTOs.
func NewUserResponseSlice(users []models.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, user := range users {
		out = append(out, NewUserResponse(user))
	}
	return out
}
