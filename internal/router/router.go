package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/webchat-api/internal/config"
	"github.com/noah-isme/webchat-api/internal/handler"
	"github.com/noah-isme/webchat-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler         *handler.AuthHandler
	UserHandler         *handler.UserHandler
	ChatRoomHandler     *handler.ChatRoomHandler
	MessageHandler      *handler.MessageHandler
	NotificationHandler *handler.NotificationHandler
	RoomFeedHandler     *handler.RoomFeedHandler
	AuthMiddleware      fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	authMiddleware := deps.AuthMiddleware
	if authMiddleware == nil {
		authMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	}, authMiddleware)
	api.Get("/health", handler.HealthCheck(cfg))

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(api.Group("/auth"))
	}
	if deps.UserHandler != nil {
		deps.UserHandler.Register(api.Group("/users"))
	}
	if deps.ChatRoomHandler != nil {
		deps.ChatRoomHandler.Register(api.Group("/chat-rooms"))
	}
	if deps.RoomFeedHandler != nil {
		deps.RoomFeedHandler.Register(api.Group("/ws/chat-rooms"))
	}
	if deps.MessageHandler != nil {
		deps.MessageHandler.Register(api.Group("/message"))
	}
	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(api.Group("/notifications"))
	}
}
