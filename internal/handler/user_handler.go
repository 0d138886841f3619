package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/webchat-api/internal/dto"
	"github.com/noah-isme/webchat-api/internal/service"
	"github.com/noah-isme/webchat-api/internal/utils"
)

// UserHandler exposes account endpoints.
type UserHandler struct {
	service service.UserService
	logger  zerolog.Logger
}

// NewUserHandler constructs the handler.
func NewUserHandler(service service.UserService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger.With().Str("component", "user_handler").Logger(),
	}
}

// Register attaches routes.
func (h *UserHandler) Register(router fiber.Router) {
	router.Get("", adminOnly, h.list)
	router.Get("/search", anyPrincipal, h.search)
	router.Post("/register", h.register)
	router.Post("/register-admin", adminOnly, h.registerAdmin)
	router.Get("/:id", anyPrincipal, h.get)
	router.Post("/:id/avatar", anyPrincipal, h.avatar)
	router.Put("/:id/status", anyPrincipal, h.updateStatus)
	router.Put("/:id", anyPrincipal, h.update)
	router.Delete("/:id", adminOnly, h.delete)
}

func (h *UserHandler) list(c *fiber.Ctx) error {
	users, err := h.service.List(requestContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to list users")
	}
	return utils.SendSuccess(c, "users retrieved", users)
}

func (h *UserHandler) get(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return missingID(c, "User")
	}

	user, err := h.service.Get(requestContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to fetch user")
	}
	return utils.SendSuccess(c, "user retrieved", user)
}

func (h *UserHandler) search(c *fiber.Ctx) error {
	user, err := h.service.Search(requestContext(c), c.Query("identifier"))
	if err != nil {
		return respondError(c, h.logger, err, "failed to search users")
	}
	return utils.SendSuccess(c, "user found", user)
}

func (h *UserHandler) register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.service.Register(requestContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to register user")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "user registered", user)
}

func (h *UserHandler) registerAdmin(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.service.RegisterAdmin(requestContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to register admin")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "admin registered", user)
}

// avatar accepts either a multipart "file" upload or a JSON body with a hosted URL.
func (h *UserHandler) avatar(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return missingID(c, "User")
	}

	ctx := requestContext(c)
	actor := actorFromContext(c)

	if strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm) {
		file, err := c.FormFile("file")
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "file is required")
		}

		reader, err := file.Open()
		if err != nil {
			h.logger.Error().Err(err).Msg("failed to open avatar upload")
			return utils.SendError(c, fiber.StatusBadRequest, "unable to read uploaded file")
		}
		defer reader.Close()

		user, err := h.service.UploadAvatar(ctx, actor, id, reader)
		if err != nil {
			return respondError(c, h.logger, err, "failed to upload avatar")
		}
		return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, "avatar updated", user)
	}

	var req dto.UserAvatarRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.service.UpdateAvatar(ctx, actor, id, req.Avatar)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update avatar")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, "avatar updated", user)
}

func (h *UserHandler) update(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return missingID(c, "User")
	}

	var req dto.UserUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.service.Update(requestContext(c), actorFromContext(c), id, req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update user")
	}
	return utils.SendSuccess(c, "user updated", user)
}

func (h *UserHandler) updateStatus(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return missingID(c, "User")
	}

	var req dto.UserStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.service.UpdateStatus(requestContext(c), actorFromContext(c), id, req.Status)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update user status")
	}
	return utils.SendSuccess(c, "user status updated", user)
}

func (h *UserHandler) delete(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return missingID(c, "User")
	}

	if err := h.service.Delete(requestContext(c), id); err != nil {
		return respondError(c, h.logger, err, "failed to delete user")
	}
	return utils.SendSuccess(c, "user deleted", nil)
}
