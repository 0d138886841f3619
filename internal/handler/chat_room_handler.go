package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/webchat-api/internal/dto"
	"github.com/noah-isme/webchat-api/internal/service"
	"github.com/noah-isme/webchat-api/internal/utils"
)

// ChatRoomHandler exposes room, participant and block-list endpoints.
type ChatRoomHandler struct {
	service service.ChatRoomService
	logger  zerolog.Logger
}

// NewChatRoomHandler constructs the handler.
func NewChatRoomHandler(service service.ChatRoomService, logger zerolog.Logger) *ChatRoomHandler {
	return &ChatRoomHandler{
		service: service,
		logger:  logger.With().Str("component", "chat_room_handler").Logger(),
	}
}

// Register attaches routes.
func (h *ChatRoomHandler) Register(router fiber.Router) {
	router.Get("", adminOnly, h.list)
	router.Get("/search", adminOnly, h.search)
	router.Get("/name/:name", anyPrincipal, h.getByName)
	router.Get("/user/:username", adminOnly, h.listByUsername)
	router.Get("/:id", anyPrincipal, h.get)
	router.Get("/:id/blocked", adminOnly, h.blocked)
	router.Post("", anyPrincipal, h.create)
	router.Post("/:id/participants", anyPrincipal, h.addParticipant)
	router.Post("/:id/restrict/:userId", adminOnly, h.restrict)
	router.Put("/:id", anyPrincipal, h.update)
	router.Delete("/:id/participants/:userId", anyPrincipal, h.removeParticipant)
	router.Delete("/:id", adminOnly, h.delete)
}

func (h *ChatRoomHandler) list(c *fiber.Ctx) error {
	rooms, err := h.service.List(requestContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to list chat rooms")
	}
	return utils.SendSuccess(c, "chat rooms retrieved", rooms)
}

func (h *ChatRoomHandler) get(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return missingID(c, "Room")
	}

	room, err := h.service.Get(requestContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to fetch chat room")
	}
	return utils.SendSuccess(c, "chat room retrieved", room)
}

func (h *ChatRoomHandler) getByName(c *fiber.Ctx) error {
	room, err := h.service.GetByName(requestContext(c), c.Params("name"))
	if err != nil {
		return respondError(c, h.logger, err, "failed to fetch chat room by name")
	}
	return utils.SendSuccess(c, "chat room retrieved", room)
}

func (h *ChatRoomHandler) listByUsername(c *fiber.Ctx) error {
	rooms, err := h.service.ListByUsername(requestContext(c), c.Params("username"))
	if err != nil {
		return respondError(c, h.logger, err, "failed to list chat rooms for user")
	}
	return utils.SendSuccess(c, "chat rooms retrieved", rooms)
}

func (h *ChatRoomHandler) search(c *fiber.Ctx) error {
	value := c.Query("value")
	ctx := requestContext(c)

	var (
		rooms []dto.ChatRoomResponse
		err   error
	)
	switch strings.ToLower(strings.TrimSpace(c.Query("filter"))) {
	case "message":
		rooms, err = h.service.SearchByMessage(ctx, value)
	case "participant":
		rooms, err = h.service.SearchByParticipant(ctx, value)
	default:
		return utils.SendError(c, fiber.StatusBadRequest, "filter must be one of: message, participant")
	}
	if err != nil {
		return respondError(c, h.logger, err, "failed to search chat rooms")
	}
	return utils.SendSuccess(c, "chat rooms retrieved", rooms)
}

func (h *ChatRoomHandler) create(c *fiber.Ctx) error {
	var req dto.ChatRoomCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	room, err := h.service.Create(requestContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to create chat room")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "chat room created", room)
}

func (h *ChatRoomHandler) addParticipant(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return missingID(c, "Room")
	}

	var req dto.ChatRoomParticipantRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.UserID == 0 {
		return utils.SendError(c, fiber.StatusNotFound, "User id must be specified.")
	}

	room, err := h.service.AddParticipant(requestContext(c), id, req.UserID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to add participant")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "participant added", room)
}

func (h *ChatRoomHandler) removeParticipant(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return missingID(c, "Room")
	}
	userID, ok := pathID(c, "userId")
	if !ok {
		return missingID(c, "User")
	}

	room, err := h.service.RemoveParticipant(requestContext(c), id, userID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to remove participant")
	}
	return utils.SendSuccess(c, "participant removed", room)
}

func (h *ChatRoomHandler) update(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return missingID(c, "Room")
	}

	var req dto.ChatRoomUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	room, err := h.service.Update(requestContext(c), id, req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update chat room")
	}
	return utils.SendSuccess(c, "chat room updated", room)
}

func (h *ChatRoomHandler) delete(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return missingID(c, "Room")
	}

	if err := h.service.Delete(requestContext(c), id); err != nil {
		return respondError(c, h.logger, err, "failed to delete chat room")
	}
	return utils.SendSuccess(c, "chat room deleted", nil)
}

// restrict blocks or unblocks a user depending on ?sort=block|unblock.
func (h *ChatRoomHandler) restrict(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return missingID(c, "Room")
	}
	userID, ok := pathID(c, "userId")
	if !ok {
		return missingID(c, "User")
	}

	ctx := requestContext(c)
	switch strings.ToLower(strings.TrimSpace(c.Query("sort"))) {
	case "block":
		result, err := h.service.Block(ctx, id, userID)
		if err != nil {
			return respondError(c, h.logger, err, "failed to block user")
		}
		return utils.SendSuccess(c, "user blocked", result)
	case "unblock":
		result, err := h.service.Unblock(ctx, id, userID)
		if err != nil {
			return respondError(c, h.logger, err, "failed to unblock user")
		}
		return utils.SendSuccess(c, "user unblocked", result)
	default:
		return utils.SendError(c, fiber.StatusBadRequest, "sort must be one of: block, unblock")
	}
}

func (h *ChatRoomHandler) blocked(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return missingID(c, "Room")
	}

	result, err := h.service.BlockedUsers(requestContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list blocked users")
	}
	return utils.SendSuccess(c, "blocked users retrieved", result)
}
