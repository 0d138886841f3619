package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/webchat-api/internal/utils"
)

// Locals keys populated by Authenticate.
const (
	LocalUserID   = "user_id"
	LocalUserRole = "user_role"
	LocalUsername = "username"
)

// ErrUnknownPrincipal is returned by a PrincipalLookup when the token subject no longer exists.
var ErrUnknownPrincipal = errors.New("principal no longer exists")

// PrincipalLookup resolves the current role of a token subject.
type PrincipalLookup func(ctx context.Context, userID uint) (role string, err error)

// Authenticate parses an optional bearer token. Requests without an
// Authorization header pass through anonymously; a malformed or invalid token
// is rejected with 401. When lookup is set the subject must still exist and
// its stored role replaces the one in the claims.
func Authenticate(secret string, lookup PrincipalLookup) fiber.Handler {
	key := []byte(secret)

	return func(c *fiber.Ctx) error {
		authorization := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if authorization == "" {
			authorization = bearerFromQuery(c)
		}
		if authorization == "" {
			return c.Next()
		}

		const bearer = "Bearer "
		if len(authorization) < len(bearer) || !strings.EqualFold(authorization[:len(bearer)], bearer) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return key, nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		userID := extractUserIDFromClaims(claims)
		if userID == nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token subject")
		}

		role := extractUserRoleFromClaims(claims)
		if lookup != nil {
			current, err := lookup(c.UserContext(), *userID)
			switch {
			case errors.Is(err, ErrUnknownPrincipal):
				return utils.SendError(c, fiber.StatusUnauthorized, "account no longer exists")
			case err != nil:
				return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
			}
			role = strings.ToLower(strings.TrimSpace(current))
		}

		c.Locals(LocalUserID, *userID)
		if role != "" {
			c.Locals(LocalUserRole, role)
		}
		if username, ok := claims["username"].(string); ok {
			c.Locals(LocalUsername, username)
		}

		return c.Next()
	}
}

// bearerFromQuery accepts ?access_token= on websocket upgrades, where browsers
// cannot set headers.
func bearerFromQuery(c *fiber.Ctx) string {
	if !strings.EqualFold(c.Get(fiber.HeaderUpgrade), "websocket") {
		return ""
	}
	if token := strings.TrimSpace(c.Query("access_token")); token != "" {
		return "Bearer " + token
	}
	return ""
}

func extractUserIDFromClaims(claims jwt.MapClaims) *uint {
	keys := []string{"sub", "user_id", "id"}
	for _, key := range keys {
		if value, ok := claims[key]; ok {
			if normalized, err := normalizeUserID(value); err == nil && normalized > 0 {
				return &normalized
			}
		}
	}

	return nil
}

func normalizeUserID(value interface{}) (uint, error) {
	switch v := value.(type) {
	case float64:
		if v < 0 {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(v), nil
	case string:
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, err
		}
		return uint(parsed), nil
	case int:
		if v < 0 {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(v), nil
	default:
		return 0, fmt.Errorf("unsupported subject type")
	}
}

func extractUserRoleFromClaims(claims jwt.MapClaims) string {
	candidates := []string{"role", "roles"}
	for _, key := range candidates {
		if value, ok := claims[key]; ok {
			if role := normalizeRole(value); role != "" {
				return role
			}
		}
	}
	return ""
}

func normalizeRole(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case []interface{}:
		for _, item := range v {
			if str, ok := item.(string); ok {
				role := strings.ToLower(strings.TrimSpace(str))
				if role != "" {
					return role
				}
			}
		}
	default:
		return ""
	}
	return ""
}
