package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/noah-isme/webchat-api/internal/observability"
)

// LocalCorrelationID is the Locals key holding the request correlation id.
const LocalCorrelationID = "correlation_id"

const maxCorrelationIDLength = 128

// CorrelationID adopts the caller's X-Correlation-ID (or X-Request-ID) and mints
// one otherwise. The id is echoed in the response and bound to the user context
// so services can stamp it on the events they emit.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := inboundCorrelationID(c)
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals(LocalCorrelationID, id)
		c.Set(observability.HeaderCorrelationID, id)
		c.SetUserContext(observability.WithCorrelationID(c.UserContext(), id))
		return c.Next()
	}
}

func inboundCorrelationID(c *fiber.Ctx) string {
	for _, header := range []string{observability.HeaderCorrelationID, fiber.HeaderXRequestID} {
		id := strings.TrimSpace(c.Get(header))
		if id != "" && len(id) <= maxCorrelationIDLength {
			return id
		}
	}
	return ""
}

// GetCorrelationID returns the correlation id of the active request.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals(LocalCorrelationID).(string); ok {
		return id
	}
	return observability.CorrelationID(c.UserContext())
}
