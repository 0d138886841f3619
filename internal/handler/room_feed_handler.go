package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/webchat-api/internal/middleware"
	"github.com/noah-isme/webchat-api/internal/service"
	"github.com/noah-isme/webchat-api/internal/utils"
)

// RoomFeedHandler upgrades participants to a websocket that streams room message events.
type RoomFeedHandler struct {
	feed   *service.RoomFeed
	rooms  service.ChatRoomService
	logger zerolog.Logger
}

// NewRoomFeedHandler creates the handler.
func NewRoomFeedHandler(feed *service.RoomFeed, rooms service.ChatRoomService, logger zerolog.Logger) *RoomFeedHandler {
	return &RoomFeedHandler{
		feed:   feed,
		rooms:  rooms,
		logger: logger.With().Str("component", "room_feed_handler").Logger(),
	}
}

// Register binds the feed route under the provided router group.
func (h *RoomFeedHandler) Register(router fiber.Router) {
	router.Get("/:id", anyPrincipal, h.authorize, websocket.New(h.handleConnection))
}

// authorize runs before the upgrade so failures still get an HTTP response.
func (h *RoomFeedHandler) authorize(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	id, ok := pathID(c, "id")
	if !ok {
		return missingID(c, "Room")
	}

	room, err := h.rooms.Get(requestContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load room for feed")
	}

	actor := actorFromContext(c)
	if !actor.IsAdmin() {
		member := false
		for _, participant := range room.Participants {
			if participant.ID == actor.ID {
				member = true
				break
			}
		}
		if !member {
			return utils.SendError(c, fiber.StatusForbidden, "Only participants may follow this room.")
		}
	}

	c.Locals("room_id", id)
	c.Locals("request_ctx", requestContext(c))
	return c.Next()
}

func (h *RoomFeedHandler) handleConnection(conn *websocket.Conn) {
	roomID, _ := conn.Locals("room_id").(uint)
	userID, _ := conn.Locals(middleware.LocalUserID).(uint)
	correlation, _ := conn.Locals(middleware.LocalCorrelationID).(string)
	baseCtx, _ := conn.Locals("request_ctx").(context.Context)

	opts := service.FeedConnectionOptions{
		RoomID:        roomID,
		UserID:        userID,
		CorrelationID: correlation,
		Context:       baseCtx,
	}

	h.logger.Info().Uint("user_id", userID).Uint("room_id", roomID).Msg("room feed connected")
	h.feed.ServeConnection(conn, opts)
	h.logger.Info().Uint("user_id", userID).Uint("room_id", roomID).Msg("room feed disconnected")
}
