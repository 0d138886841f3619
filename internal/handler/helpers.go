package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/webchat-api/internal/middleware"
	"github.com/noah-isme/webchat-api/internal/models"
	"github.com/noah-isme/webchat-api/internal/observability"
	"github.com/noah-isme/webchat-api/internal/service"
	"github.com/noah-isme/webchat-api/internal/utils"
)

// Route guards shared by every handler.
var (
	anyPrincipal = middleware.RequireRole(models.RoleUser, models.RoleAdmin)
	adminOnly    = middleware.RequireRole(models.RoleAdmin)
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

// pathID parses a positive integer path parameter.
func pathID(c *fiber.Ctx, name string) (uint, bool) {
	parsed, err := strconv.ParseUint(strings.TrimSpace(c.Params(name)), 10, 64)
	if err != nil || parsed == 0 {
		return 0, false
	}
	return uint(parsed), true
}

func missingID(c *fiber.Ctx, entity string) error {
	return utils.SendError(c, fiber.StatusNotFound, fmt.Sprintf("%s id must be specified.", entity))
}

func userIDFromContext(c *fiber.Ctx) uint {
	if v := c.Locals(middleware.LocalUserID); v != nil {
		if id, ok := v.(uint); ok {
			return id
		}
		if id, ok := v.(int); ok {
			if id < 0 {
				return 0
			}
			return uint(id)
		}
	}
	return 0
}

func userRoleFromContext(c *fiber.Ctx) string {
	if v := c.Locals(middleware.LocalUserRole); v != nil {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return ""
}

func actorFromContext(c *fiber.Ctx) service.Actor {
	return service.Actor{
		ID:   userIDFromContext(c),
		Role: userRoleFromContext(c),
	}
}

// requestContext carries the request's user context and correlation id into services.
func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return observability.WithCorrelationID(ctx, middleware.GetCorrelationID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// respondError maps service errors onto HTTP statuses. Unclassified errors are
// logged and reported as 500 without leaking their message.
func respondError(c *fiber.Ctx, base zerolog.Logger, err error, action string) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, service.ErrBadRequest), isValidationError(err):
		status = fiber.StatusBadRequest
	case errors.Is(err, service.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, service.ErrUnauthorized):
		status = fiber.StatusUnauthorized
	}

	if status == fiber.StatusInternalServerError {
		requestLogger(base, c).Error().Err(err).Msg(action)
		return utils.SendError(c, status, "internal server error")
	}
	return utils.SendError(c, status, err.Error())
}
