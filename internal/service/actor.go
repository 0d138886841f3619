package service

import "github.com/noah-isme/webchat-api/internal/models"

// Actor represents the authenticated principal performing an operation.
type Actor struct {
	ID   uint
	Role string
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// CanActFor reports whether the actor may act on behalf of userID.
func (a Actor) CanActFor(userID uint) bool {
	return a.IsAdmin() || (a.ID != 0 && a.ID == userID)
}
