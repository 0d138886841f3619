package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/webchat-api/internal/dto"
	"github.com/noah-isme/webchat-api/internal/service"
	"github.com/noah-isme/webchat-api/internal/utils"
)

// NotificationHandler exposes notification endpoints.
type NotificationHandler struct {
	service service.NotificationService
	logger  zerolog.Logger
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(service service.NotificationService, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger.With().Str("component", "notification_handler").Logger(),
	}
}

// Register attaches routes.
func (h *NotificationHandler) Register(router fiber.Router) {
	router.Use(anyPrincipal)
	router.Get("", h.list)
	router.Get("/pagination", h.paginate)
	router.Get("/:id", h.get)
	router.Post("", h.create)
	router.Put("", h.markAll)
	router.Put("/:id", h.update)
	router.Delete("/user/:id", h.deleteForUser)
	router.Delete("/:id", h.delete)
}

// list returns every notification, or with ?sort=read|unread the recipient's
// notifications in that state.
func (h *NotificationHandler) list(c *fiber.Ctx) error {
	ctx := requestContext(c)

	status := strings.TrimSpace(c.Query("sort"))
	if status == "" {
		items, err := h.service.List(ctx)
		if err != nil {
			return respondError(c, h.logger, err, "failed to list notifications")
		}
		return utils.SendSuccess(c, "notifications retrieved", items)
	}

	recipientID := userIDFromContext(c)
	if raw := strings.TrimSpace(c.Query("recipient_id")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || parsed == 0 {
			return utils.SendError(c, fiber.StatusNotFound, "Recipient id must be specified.")
		}
		recipientID = uint(parsed)
	}
	if !actorFromContext(c).CanActFor(recipientID) {
		return utils.SendError(c, fiber.StatusForbidden, "You may only read your own notifications.")
	}

	items, err := h.service.ListByStatus(ctx, recipientID, status)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list notifications by status")
	}
	return utils.SendSuccess(c, "notifications retrieved", items)
}

func (h *NotificationHandler) paginate(c *fiber.Ctx) error {
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

	page, err := h.service.Page(requestContext(c), limit, offset)
	if err != nil {
		return respondError(c, h.logger, err, "failed to page notifications")
	}
	return utils.OK(c, page.Items, "notifications retrieved", page.Meta)
}

func (h *NotificationHandler) get(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return missingID(c, "Notification")
	}

	item, err := h.service.Get(requestContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to fetch notification")
	}
	return utils.SendSuccess(c, "notification retrieved", item)
}

func (h *NotificationHandler) create(c *fiber.Ctx) error {
	var req dto.NotificationCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	item, err := h.service.Create(requestContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to create notification")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "notification created", item)
}

func (h *NotificationHandler) update(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return missingID(c, "Notification")
	}

	var req dto.NotificationUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	item, err := h.service.Update(requestContext(c), id, req.Content)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update notification")
	}
	return utils.SendSuccess(c, "notification updated", item)
}

// markAll flips every notification of the recipient (default: the caller) to ?mark=read|unread.
func (h *NotificationHandler) markAll(c *fiber.Ctx) error {
	mark := strings.TrimSpace(c.Query("mark"))
	if mark == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "mark must be one of: read, unread")
	}

	var req dto.NotificationMarkRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}
	if req.RecipientID == 0 {
		req.RecipientID = userIDFromContext(c)
	}
	if !actorFromContext(c).CanActFor(req.RecipientID) {
		return utils.SendError(c, fiber.StatusForbidden, "You may only mark your own notifications.")
	}

	result, err := h.service.MarkAll(requestContext(c), req.RecipientID, mark)
	if err != nil {
		return respondError(c, h.logger, err, "failed to mark notifications")
	}
	return utils.SendSuccess(c, "notifications marked", result)
}

func (h *NotificationHandler) delete(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return missingID(c, "Notification")
	}

	if err := h.service.Delete(requestContext(c), id); err != nil {
		return respondError(c, h.logger, err, "failed to delete notification")
	}
	return utils.SendSuccess(c, "notification deleted", nil)
}

func (h *NotificationHandler) deleteForUser(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return missingID(c, "User")
	}
	if !actorFromContext(c).CanActFor(id) {
		return utils.SendError(c, fiber.StatusForbidden, "You may only delete your own notifications.")
	}

	result, err := h.service.DeleteAllForUser(requestContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to delete notifications for user")
	}
	return utils.SendSuccess(c, "notifications deleted", result)
}
