package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/webchat-api/internal/dto"
	"github.com/noah-isme/webchat-api/internal/service"
	"github.com/noah-isme/webchat-api/internal/utils"
)

// AuthHandler exposes login and logout.
type AuthHandler struct {
	service service.AuthService
	logger  zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(service service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register attaches routes.
func (h *AuthHandler) Register(router fiber.Router) {
	router.Post("/login", h.login)
	router.Post("/logout", anyPrincipal, h.logout)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	resp, err := h.service.Login(requestContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to log in")
	}
	return utils.SendSuccess(c, "login successful", resp)
}

func (h *AuthHandler) logout(c *fiber.Ctx) error {
	user, err := h.service.Logout(requestContext(c), actorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to log out")
	}
	return utils.SendSuccess(c, "logout successful", user)
}
