package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/webchat-api/internal/dto"
	"github.com/noah-isme/webchat-api/internal/handler"
	"github.com/noah-isme/webchat-api/internal/service"
)

type mockAuthService struct {
	err       error
	lastLogin dto.LoginRequest
	lastActor service.Actor
}

func (m *mockAuthService) Login(_ context.Context, req dto.LoginRequest) (dto.LoginResponse, error) {
	m.lastLogin = req
	if m.err != nil {
		return dto.LoginResponse{}, m.err
	}
	return dto.LoginResponse{
		Token:     "signed-token",
		ExpiresAt: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		User:      dto.UserResponse{ID: 7, Username: req.Username, Status: "online"},
	}, nil
}

func (m *mockAuthService) Logout(_ context.Context, actor service.Actor) (dto.UserResponse, error) {
	m.lastActor = actor
	return dto.UserResponse{ID: actor.ID, Status: "offline"}, m.err
}

func authApp(svc service.AuthService, id uint, role string) *fiber.App {
	return newApp("/api/v1/auth", handler.NewAuthHandler(svc, testLogger()), id, role)
}

func TestAuthHandlerLogin(t *testing.T) {
	svc := &mockAuthService{}

	resp, body := doJSON(t, authApp(svc, 0, ""), http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "alice",
		"password": "password-alice",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "alice", svc.lastLogin.Username)

	var login dto.LoginResponse
	require.NoError(t, json.Unmarshal(body.Data, &login))
	require.Equal(t, "signed-token", login.Token)
	require.Equal(t, "online", login.User.Status)
}

func TestAuthHandlerLoginRejectsBadCredentials(t *testing.T) {
	svc := &mockAuthService{err: &service.Error{Kind: service.ErrUnauthorized, Message: "Invalid username or password."}}

	resp, body := doJSON(t, authApp(svc, 0, ""), http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "Invalid username or password.", body.Message)
}

func TestAuthHandlerLogout(t *testing.T) {
	svc := &mockAuthService{}

	resp, _ := doJSON(t, authApp(svc, 0, ""), http.MethodPost, "/api/v1/auth/logout", nil)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, body := doJSON(t, authApp(svc, 7, "user"), http.MethodPost, "/api/v1/auth/logout", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(7), svc.lastActor.ID)

	var user dto.UserResponse
	require.NoError(t, json.Unmarshal(body.Data, &user))
	require.Equal(t, "offline", user.Status)
}
