package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/webchat-api/internal/config"
	"github.com/noah-isme/webchat-api/internal/handler"
	"github.com/noah-isme/webchat-api/internal/middleware"
	"github.com/noah-isme/webchat-api/internal/service"
)

type stubUsers struct {
	service.UserService
}

func TestRegisterMountsHealthAndApplication(t *testing.T) {
	app := fiber.New()
	Register(app, config.Config{AppName: "WebChat API"}, Dependencies{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "WebChat API", resp.Header.Get("X-Application"))
}

func TestRegisterGuardsRoutesWithAuthentication(t *testing.T) {
	app := fiber.New()
	Register(app, config.Config{AppName: "WebChat API"}, Dependencies{
		UserHandler:    handler.NewUserHandler(stubUsers{}, zerolog.Nop()),
		AuthMiddleware: middleware.Authenticate("router-secret", nil),
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/users", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
