package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/webchat-api/internal/blocklist"
	"github.com/noah-isme/webchat-api/internal/cache"
	"github.com/noah-isme/webchat-api/internal/dto"
	"github.com/noah-isme/webchat-api/internal/models"
	"github.com/noah-isme/webchat-api/internal/repository"
	"github.com/noah-isme/webchat-api/pkg/password"
)

var allowedAvatarTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/gif":  {},
	"image/webp": {},
}

// AvatarStorage uploads avatar images and returns their public URL.
type AvatarStorage interface {
	UploadAvatar(ctx context.Context, userID uint, reader io.Reader) (string, error)
}

// UserService manages chat accounts.
type UserService interface {
	List(ctx context.Context) ([]dto.UserResponse, error)
	Get(ctx context.Context, id uint) (dto.UserResponse, error)
	Search(ctx context.Context, identifier string) (dto.UserResponse, error)
	Register(ctx context.Context, req dto.UserRegisterRequest) (dto.UserResponse, error)
	RegisterAdmin(ctx context.Context, req dto.UserRegisterRequest) (dto.UserResponse, error)
	UpdateAvatar(ctx context.Context, actor Actor, id uint, avatarURL string) (dto.UserResponse, error)
	UploadAvatar(ctx context.Context, actor Actor, id uint, reader io.Reader) (dto.UserResponse, error)
	Update(ctx context.Context, actor Actor, id uint, req dto.UserUpdateRequest) (dto.UserResponse, error)
	UpdateStatus(ctx context.Context, actor Actor, id uint, status string) (dto.UserResponse, error)
	Delete(ctx context.Context, id uint) error
	EnsureAdmin(ctx context.Context, username, email, secret string) error
}

type userService struct {
	repo          repository.UserRepository
	hasher        password.Hasher
	avatars       AvatarStorage
	blocks        *blocklist.Registry
	validator     *validator.Validate
	entities      *cache.Cache
	queries       *cache.Cache
	related       []*cache.Cache
	maxAvatarSize int64
	logger        zerolog.Logger
}

// UserServiceOptions carries the optional collaborators of the user service.
type UserServiceOptions struct {
	Avatars         AvatarStorage
	Blocks          *blocklist.Registry
	Cache           cache.Store
	AvatarMaxSizeMB int
}

// NewUserService constructs the account service.
func NewUserService(repo repository.UserRepository, hasher password.Hasher, validate *validator.Validate, opts UserServiceOptions, logger zerolog.Logger) UserService {
	if validate == nil {
		validate = NewValidator()
	}
	if opts.AvatarMaxSizeMB <= 0 {
		opts.AvatarMaxSizeMB = 2
	}

	entities, queries := cache.Pair(opts.Cache, usersCache, logger)
	related := make([]*cache.Cache, 0, 6)
	for _, aggregate := range []string{chatRoomsCache, messagesCache, notificationsCache} {
		e, q := cache.Pair(opts.Cache, aggregate, logger)
		related = append(related, e, q)
	}

	return &userService{
		repo:          repo,
		hasher:        hasher,
		avatars:       opts.Avatars,
		blocks:        opts.Blocks,
		validator:     validate,
		entities:      entities,
		queries:       queries,
		related:       related,
		maxAvatarSize: int64(opts.AvatarMaxSizeMB) * 1024 * 1024,
		logger:        logger.With().Str("component", "user_service").Logger(),
	}
}

func (s *userService) List(ctx context.Context) ([]dto.UserResponse, error) {
	return cache.Memoize(ctx, s.queries, cache.Fingerprint("List"), func(ctx context.Context) ([]dto.UserResponse, error) {
		users, err := s.repo.List(ctx)
		if err != nil {
			return nil, err
		}
		return dto.NewUserResponseSlice(users), nil
	})
}

func (s *userService) Get(ctx context.Context, id uint) (dto.UserResponse, error) {
	return cache.Memoize(ctx, s.entities, cache.IDKey(id), func(ctx context.Context) (dto.UserResponse, error) {
		user, err := s.find(ctx, id)
		if err != nil {
			return dto.UserResponse{}, err
		}
		return dto.NewUserResponse(user), nil
	})
}

func (s *userService) Search(ctx context.Context, identifier string) (dto.UserResponse, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return dto.UserResponse{}, badRequest("Search keyword must be defined.")
	}

	return cache.Memoize(ctx, s.queries, cache.Fingerprint("Search", strings.ToLower(identifier)), func(ctx context.Context) (dto.UserResponse, error) {
		users, err := s.repo.Search(ctx, identifier)
		if err != nil {
			return dto.UserResponse{}, err
		}
		if len(users) == 0 {
			return dto.UserResponse{}, notFound("User with keyword %s not found.", identifier)
		}
		return dto.NewUserResponse(users[0]), nil
	})
}

func (s *userService) Register(ctx context.Context, req dto.UserRegisterRequest) (dto.UserResponse, error) {
	return s.register(ctx, req, models.RoleUser)
}

func (s *userService) RegisterAdmin(ctx context.Context, req dto.UserRegisterRequest) (dto.UserResponse, error) {
	return s.register(ctx, req, models.RoleAdmin)
}

func (s *userService) register(ctx context.Context, req dto.UserRegisterRequest, role string) (dto.UserResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if err := s.validator.Struct(req); err != nil {
		return dto.UserResponse{}, invalid(err)
	}

	if err := s.ensureUnique(ctx, req.Username, req.Email, 0); err != nil {
		return dto.UserResponse{}, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return dto.UserResponse{}, err
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
		Status:       models.UserStatusOnline,
	}
	if err := s.repo.Create(ctx, &user); err != nil {
		return dto.UserResponse{}, err
	}

	s.logger.Info().Uint("user_id", user.ID).Str("role", role).Str("email", maskEmail(user.Email)).Msg("user registered")

	response := dto.NewUserResponse(user)
	s.refresh(ctx, response)
	return response, nil
}

func (s *userService) UpdateAvatar(ctx context.Context, actor Actor, id uint, avatarURL string) (dto.UserResponse, error) {
	if err := s.validator.Struct(dto.UserAvatarRequest{Avatar: avatarURL}); err != nil {
		return dto.UserResponse{}, invalid(err)
	}
	return s.setAvatar(ctx, actor, id, strings.TrimSpace(avatarURL))
}

func (s *userService) UploadAvatar(ctx context.Context, actor Actor, id uint, reader io.Reader) (dto.UserResponse, error) {
	if s.avatars == nil {
		return dto.UserResponse{}, badRequest("Avatar uploads are not configured.")
	}
	if !actor.CanActFor(id) {
		return dto.UserResponse{}, forbidden("You may only change your own avatar.")
	}
	if _, err := s.find(ctx, id); err != nil {
		return dto.UserResponse{}, err
	}
	if reader == nil {
		return dto.UserResponse{}, badRequest("Avatar file must be provided.")
	}

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(reader, s.maxAvatarSize+1)); err != nil {
		return dto.UserResponse{}, err
	}
	if buf.Len() == 0 {
		return dto.UserResponse{}, badRequest("Avatar file must not be empty.")
	}
	if int64(buf.Len()) > s.maxAvatarSize {
		return dto.UserResponse{}, badRequest("Avatar exceeds the maximum allowed size.")
	}

	detected := mimetype.Detect(buf.Bytes()).String()
	if _, ok := allowedAvatarTypes[normalizeMime(detected)]; !ok {
		return dto.UserResponse{}, badRequest("Avatar type %s is not allowed.", detected)
	}

	url, err := s.avatars.UploadAvatar(ctx, id, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return dto.UserResponse{}, err
	}

	return s.setAvatar(ctx, actor, id, url)
}

func (s *userService) setAvatar(ctx context.Context, actor Actor, id uint, url string) (dto.UserResponse, error) {
	if !actor.CanActFor(id) {
		return dto.UserResponse{}, forbidden("You may only change your own avatar.")
	}

	user, err := s.find(ctx, id)
	if err != nil {
		return dto.UserResponse{}, err
	}

	user.Avatar = url
	if err := s.repo.Update(ctx, &user); err != nil {
		return dto.UserResponse{}, err
	}

	response := dto.NewUserResponse(user)
	s.refresh(ctx, response)
	s.evictRooms(ctx)
	return response, nil
}

// Update replaces username, password and email. Each must be provided, differ
// from the stored value and stay unique.
func (s *userService) Update(ctx context.Context, actor Actor, id uint, req dto.UserUpdateRequest) (dto.UserResponse, error) {
	if !actor.CanActFor(id) {
		return dto.UserResponse{}, forbidden("You may only update your own account.")
	}

	user, err := s.find(ctx, id)
	if err != nil {
		return dto.UserResponse{}, err
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if req.Username == "" || req.Username == user.Username {
		return dto.UserResponse{}, badRequest("Username must be filled completely or this username is already set.")
	}
	if req.Password == "" {
		return dto.UserResponse{}, badRequest("Password must be filled completely or this password is already set.")
	}
	if same, err := s.hasher.Verify(req.Password, user.PasswordHash); err == nil && same {
		return dto.UserResponse{}, badRequest("Password must be filled completely or this password is already set.")
	}
	if req.Email == "" || strings.EqualFold(req.Email, user.Email) {
		return dto.UserResponse{}, badRequest("Email must be filled completely or this email is already set.")
	}

	if err := s.validator.Struct(req); err != nil {
		return dto.UserResponse{}, invalid(err)
	}
	if err := s.ensureUnique(ctx, req.Username, req.Email, user.ID); err != nil {
		return dto.UserResponse{}, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return dto.UserResponse{}, err
	}

	user.Username = req.Username
	user.Email = req.Email
	user.PasswordHash = hash
	if err := s.repo.Update(ctx, &user); err != nil {
		return dto.UserResponse{}, err
	}

	s.logger.Info().Uint("user_id", user.ID).Msg("user updated")

	response := dto.NewUserResponse(user)
	s.refresh(ctx, response)
	s.evictRooms(ctx)
	return response, nil
}

func (s *userService) UpdateStatus(ctx context.Context, actor Actor, id uint, status string) (dto.UserResponse, error) {
	if !actor.CanActFor(id) {
		return dto.UserResponse{}, forbidden("You may only change your own status.")
	}

	status = strings.ToLower(strings.TrimSpace(status))
	if status != models.UserStatusOnline && status != models.UserStatusOffline {
		return dto.UserResponse{}, badRequest("Status must be one of: online, offline.")
	}

	return s.setStatus(ctx, id, status)
}

func (s *userService) setStatus(ctx context.Context, id uint, status string) (dto.UserResponse, error) {
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return dto.UserResponse{}, lookup(err, "User with id %d not found.", id)
	}

	user, err := s.find(ctx, id)
	if err != nil {
		return dto.UserResponse{}, err
	}

	response := dto.NewUserResponse(user)
	s.refresh(ctx, response)
	s.evictRooms(ctx)
	return response, nil
}

func (s *userService) Delete(ctx context.Context, id uint) error {
	if _, err := s.find(ctx, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return lookup(err, "User with id %d not found.", id)
	}

	if s.blocks != nil {
		s.blocks.ForgetUser(id)
	}

	s.entities.Evict(ctx, cache.IDKey(id))
	s.queries.EvictAll(ctx)
	for _, c := range s.related {
		c.EvictAll(ctx)
	}

	s.logger.Info().Uint("user_id", id).Msg("user deleted")
	return nil
}

// EnsureAdmin creates the bootstrap admin unless the username already exists.
func (s *userService) EnsureAdmin(ctx context.Context, username, email, secret string) error {
	_, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	_, err = s.RegisterAdmin(ctx, dto.UserRegisterRequest{Username: username, Email: email, Password: secret})
	return err
}

func (s *userService) find(ctx context.Context, id uint) (models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return models.User{}, lookup(err, "User with id %d not found.", id)
	}
	return user, nil
}

func (s *userService) ensureUnique(ctx context.Context, username, email string, excludeID uint) error {
	taken, err := s.repo.UsernameTaken(ctx, username, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return badRequest("The name has already been taken.")
	}

	taken, err = s.repo.EmailTaken(ctx, email, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return badRequest("The email has already been taken.")
	}
	return nil
}

func (s *userService) refresh(ctx context.Context, user dto.UserResponse) {
	key := cache.IDKey(user.ID)
	s.entities.Evict(ctx, key)
	s.entities.Put(ctx, key, user)
	s.queries.EvictAll(ctx)
}

// evictRooms drops room views that embed participant details.
func (s *userService) evictRooms(ctx context.Context) {
	for _, c := range s.related[:2] {
		c.EvictAll(ctx)
	}
}

func normalizeMime(value string) string {
	if idx := strings.Index(value, ";"); idx >= 0 {
		value = value[:idx]
	}
	return strings.ToLower(strings.TrimSpace(value))
}

// maskEmail keeps an address recognisable in logs without recording it in full.
func maskEmail(email string) string {
	email = strings.TrimSpace(strings.ToLower(email))
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return "***"
	}
	if len(local) <= 2 {
		return local[:1] + "***@" + domain
	}
	return local[:1] + "***" + local[len(local)-1:] + "@" + domain
}
