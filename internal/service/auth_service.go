package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/webchat-api/internal/dto"
	"github.com/noah-isme/webchat-api/internal/models"
	"github.com/noah-isme/webchat-api/internal/repository"
	"github.com/noah-isme/webchat-api/pkg/password"
)

const invalidCredentials = "Invalid username or password."

// AuthService exchanges credentials for bearer tokens and tracks presence.
type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error)
	Logout(ctx context.Context, actor Actor) (dto.UserResponse, error)
}

type authService struct {
	repo   repository.UserRepository
	users  UserService
	hasher password.Hasher
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

// NewAuthService constructs the authentication service.
func NewAuthService(repo repository.UserRepository, users UserService, hasher password.Hasher, secret string, ttl time.Duration, logger zerolog.Logger) AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &authService{
		repo:   repo,
		users:  users,
		hasher: hasher,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		logger: logger.With().Str("component", "auth_service").Logger(),
	}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return dto.LoginResponse{}, unauthorized(invalidCredentials)
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LoginResponse{}, unauthorized(invalidCredentials)
		}
		return dto.LoginResponse{}, err
	}

	ok, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil || !ok {
		s.logger.Info().Uint("user_id", user.ID).Msg("rejected login attempt")
		return dto.LoginResponse{}, unauthorized(invalidCredentials)
	}

	actor := Actor{ID: user.ID, Role: user.Role}
	response, err := s.users.UpdateStatus(ctx, actor, user.ID, models.UserStatusOnline)
	if err != nil {
		return dto.LoginResponse{}, err
	}

	expiresAt := s.now().Add(s.ttl).UTC()
	token, err := s.issue(user, expiresAt)
	if err != nil {
		return dto.LoginResponse{}, err
	}

	s.logger.Info().Uint("user_id", user.ID).Msg("user logged in")

	return dto.LoginResponse{Token: token, ExpiresAt: expiresAt, User: response}, nil
}

func (s *authService) Logout(ctx context.Context, actor Actor) (dto.UserResponse, error) {
	if actor.ID == 0 {
		return dto.UserResponse{}, unauthorized("authentication required")
	}

	response, err := s.users.UpdateStatus(ctx, actor, actor.ID, models.UserStatusOffline)
	if err != nil {
		return dto.UserResponse{}, err
	}

	s.logger.Info().Uint("user_id", actor.ID).Msg("user logged out")
	return response, nil
}

func (s *authService) issue(user models.User, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(user.ID), 10),
		"username": user.Username,
		"role":     user.Role,
		"iat":      s.now().Unix(),
		"exp":      expiresAt.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
