package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/webchat-api/internal/dto"
	"github.com/noah-isme/webchat-api/internal/service"
	"github.com/noah-isme/webchat-api/internal/utils"
)

// MessageHandler exposes message endpoints.
type MessageHandler struct {
	service     service.MessageService
	sendLimiter fiber.Handler
	logger      zerolog.Logger
}

// NewMessageHandler constructs the handler. sendLimiter guards POST and may be nil.
func NewMessageHandler(service service.MessageService, sendLimiter fiber.Handler, logger zerolog.Logger) *MessageHandler {
	if sendLimiter == nil {
		sendLimiter = func(c *fiber.Ctx) error { return c.Next() }
	}
	return &MessageHandler{
		service:     service,
		sendLimiter: sendLimiter,
		logger:      logger.With().Str("component", "message_handler").Logger(),
	}
}

// Register attaches routes.
func (h *MessageHandler) Register(router fiber.Router) {
	router.Get("", adminOnly, h.list)
	router.Get("/sort", anyPrincipal, h.sorted)
	router.Get("/filter/:id", anyPrincipal, h.filter)
	router.Get("/:id", anyPrincipal, h.get)
	router.Post("", anyPrincipal, h.sendLimiter, h.send)
	router.Put("/:id", anyPrincipal, h.update)
	router.Delete("/:id", anyPrincipal, h.delete)
}

func (h *MessageHandler) list(c *fiber.Ctx) error {
	messages, err := h.service.List(requestContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to list messages")
	}
	return utils.SendSuccess(c, "messages retrieved", messages)
}

func (h *MessageHandler) get(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return missingID(c, "Message")
	}

	message, err := h.service.Get(requestContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to fetch message")
	}
	return utils.SendSuccess(c, "message retrieved", message)
}

// filter lists the messages of a room (type=chat) or of a sender (type=user).
func (h *MessageHandler) filter(c *fiber.Ctx) error {
	kind := strings.ToLower(strings.TrimSpace(c.Query("type")))
	order := strings.ToLower(strings.TrimSpace(c.Query("sort", "asc")))
	if order != "asc" && order != "desc" {
		return utils.SendError(c, fiber.StatusBadRequest, "sort must be one of: asc, desc")
	}

	ctx := requestContext(c)
	switch kind {
	case "chat":
		id, ok := pathID(c, "id")
		if !ok {
			return missingID(c, "Room")
		}
		messages, err := h.service.ListByRoom(ctx, id)
		if err != nil {
			return respondError(c, h.logger, err, "failed to list room messages")
		}
		return utils.SendSuccess(c, "messages retrieved", messages)
	case "user":
		id, ok := pathID(c, "id")
		if !ok {
			return missingID(c, "User")
		}
		messages, err := h.service.ListBySender(ctx, id, order == "desc")
		if err != nil {
			return respondError(c, h.logger, err, "failed to list sender messages")
		}
		return utils.SendSuccess(c, "messages retrieved", messages)
	default:
		return utils.SendError(c, fiber.StatusBadRequest, "type must be one of: chat, user")
	}
}

// sorted searches by keyword when given, otherwise pages by limit and offset.
func (h *MessageHandler) sorted(c *fiber.Ctx) error {
	ctx := requestContext(c)

	if keyword := strings.TrimSpace(c.Query("keyword")); keyword != "" {
		messages, err := h.service.SearchByKeyword(ctx, keyword)
		if err != nil {
			return respondError(c, h.logger, err, "failed to search messages")
		}
		return utils.SendSuccess(c, "messages retrieved", messages)
	}

	if c.Query("limit") == "" || c.Query("offset") == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "limit and offset must be defined")
	}
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}
	offset, err := parseQueryInt(c, "offset")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid offset")
	}

	page, err := h.service.Page(ctx, limit, offset)
	if err != nil {
		return respondError(c, h.logger, err, "failed to page messages")
	}
	return utils.OK(c, page.Items, "messages retrieved", page.Meta)
}

func (h *MessageHandler) send(c *fiber.Ctx) error {
	var req dto.MessageSendRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	message, err := h.service.Send(requestContext(c), actorFromContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to send message")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "message sent", message)
}

func (h *MessageHandler) update(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return missingID(c, "Message")
	}

	var req dto.MessageUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	message, err := h.service.Update(requestContext(c), actorFromContext(c), id, req.Content)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update message")
	}
	return utils.SendSuccess(c, "message updated", message)
}

func (h *MessageHandler) delete(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return missingID(c, "Message")
	}

	if err := h.service.Delete(requestContext(c), actorFromContext(c), id); err != nil {
		return respondError(c, h.logger, err, "failed to delete message")
	}
	return utils.SendSuccess(c, "message deleted", nil)
}
