package handler

import (
	"context"
	"errors"

	"github.com/noah-isme/webchat-api/internal/middleware"
	"github.com/noah-isme/webchat-api/internal/service"
)

// PrincipalLookup lets Authenticate resolve token subjects against the user service,
// so deleted accounts lose access and role changes apply to live tokens.
func PrincipalLookup(users service.UserService) middleware.PrincipalLookup {
	return func(ctx context.Context, userID uint) (string, error) {
		user, err := users.Get(ctx, userID)
		if errors.Is(err, service.ErrNotFound) {
			return "", middleware.ErrUnknownPrincipal
		}
		if err != nil {
			return "", err
		}
		return user.Role, nil
	}
}
