package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/webchat-api/internal/cache"
	"github.com/noah-isme/webchat-api/internal/dto"
	"github.com/noah-isme/webchat-api/internal/models"
	"github.com/noah-isme/webchat-api/internal/repository"
	"github.com/noah-isme/webchat-api/internal/utils"
)

// NotificationService manages per-user notifications.
type NotificationService interface {
	List(ctx context.Context) ([]dto.NotificationResponse, error)
	Get(ctx context.Context, id uint) (dto.NotificationResponse, error)
	ListByStatus(ctx context.Context, recipientID uint, status string) ([]dto.NotificationResponse, error)
	Page(ctx context.Context, limit, offset int) (dto.OffsetPage[dto.NotificationResponse], error)
	Create(ctx context.Context, req dto.NotificationCreateRequest) (dto.NotificationResponse, error)
	Update(ctx context.Context, id uint, content string) (dto.NotificationResponse, error)
	MarkAll(ctx context.Context, recipientID uint, status string) (dto.NotificationBulkResponse, error)
	Delete(ctx context.Context, id uint) error
	DeleteAllForUser(ctx context.Context, userID uint) (dto.NotificationBulkResponse, error)
}

type notificationService struct {
	repo      repository.NotificationRepository
	users     repository.UserRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	entities  *cache.Cache
	queries   *cache.Cache
	tracer    trace.Tracer
	now       func() time.Time
	logger    zerolog.Logger
}

// NewNotificationService constructs the notification service. store may be nil.
func NewNotificationService(repo repository.NotificationRepository, users repository.UserRepository, store cache.Store, validate *validator.Validate, logger zerolog.Logger) NotificationService {
	if validate == nil {
		validate = NewValidator()
	}

	entities, queries := cache.Pair(store, notificationsCache, logger)
	return &notificationService{
		repo:      repo,
		users:     users,
		validator: validate,
		sanitizer: newContentSanitizer(),
		entities:  entities,
		queries:   queries,
		tracer:    otel.Tracer("github.com/noah-isme/webchat-api/internal/service/notification"),
		now:       time.Now,
		logger:    logger.With().Str("component", "notification_service").Logger(),
	}
}

func (s *notificationService) List(ctx context.Context) ([]dto.NotificationResponse, error) {
	return cache.Memoize(ctx, s.queries, cache.Fingerprint("List"), s.listAll)
}

func (s *notificationService) listAll(ctx context.Context) ([]dto.NotificationResponse, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewNotificationResponseSlice(items), nil
}

func (s *notificationService) Get(ctx context.Context, id uint) (dto.NotificationResponse, error) {
	return cache.Memoize(ctx, s.entities, cache.IDKey(id), func(ctx context.Context) (dto.NotificationResponse, error) {
		item, err := s.find(ctx, id)
		if err != nil {
			return dto.NotificationResponse{}, err
		}
		return dto.NewNotificationResponse(item), nil
	})
}

func (s *notificationService) ListByStatus(ctx context.Context, recipientID uint, status string) ([]dto.NotificationResponse, error) {
	status, err := parseNotificationStatus(status)
	if err != nil {
		return nil, err
	}

	return cache.Memoize(ctx, s.queries, cache.Fingerprint("ListByStatus", recipientID, status), func(ctx context.Context) ([]dto.NotificationResponse, error) {
		if err := s.ensureRecipient(ctx, recipientID); err != nil {
			return nil, err
		}
		items, err := s.repo.ListByRecipientStatus(ctx, recipientID, status)
		if err != nil {
			return nil, err
		}
		return dto.NewNotificationResponseSlice(items), nil
	})
}

func (s *notificationService) Page(ctx context.Context, limit, offset int) (dto.OffsetPage[dto.NotificationResponse], error) {
	return cache.Memoize(ctx, s.queries, cache.Fingerprint("Page", limit, offset), func(ctx context.Context) (dto.OffsetPage[dto.NotificationResponse], error) {
		all, err := s.listAll(ctx)
		if err != nil {
			return dto.OffsetPage[dto.NotificationResponse]{}, err
		}

		items := utils.Paginate(all, limit, offset)
		return dto.OffsetPage[dto.NotificationResponse]{
			Items: items,
			Meta:  dto.OffsetMeta{Limit: limit, Offset: offset, Returned: len(items), Total: len(all)},
		}, nil
	})
}

func (s *notificationService) Create(ctx context.Context, req dto.NotificationCreateRequest) (dto.NotificationResponse, error) {
	if _, err := s.users.FindByID(ctx, req.RecipientID); err != nil {
		return dto.NotificationResponse{}, lookup(err, "User with id %d not found.", req.RecipientID)
	}

	req.Content = sanitizeContent(s.sanitizer, req.Content)
	if err := s.validator.Struct(req); err != nil {
		return dto.NotificationResponse{}, invalid(err)
	}

	item := models.Notification{
		Content:     req.Content,
		SentAt:      s.now().UTC(),
		Status:      models.NotificationStatusUnread,
		RecipientID: req.RecipientID,
	}
	if err := s.repo.Create(ctx, &item); err != nil {
		return dto.NotificationResponse{}, err
	}

	response := dto.NewNotificationResponse(item)
	s.refresh(ctx, response)
	return response, nil
}

// Update rewrites the content of a notification. The content must change.
func (s *notificationService) Update(ctx context.Context, id uint, content string) (dto.NotificationResponse, error) {
	item, err := s.find(ctx, id)
	if err != nil {
		return dto.NotificationResponse{}, err
	}

	content = sanitizeContent(s.sanitizer, content)
	if content == "" || content == item.Content {
		return dto.NotificationResponse{}, badRequest("Notification must be defined or should not be the same as the existing notification.")
	}
	if err := s.validator.Var(content, "min=5,max=255"); err != nil {
		return dto.NotificationResponse{}, badRequest("content must be between 5 and 255 characters")
	}

	if err := s.repo.UpdateContent(ctx, id, content); err != nil {
		return dto.NotificationResponse{}, lookup(err, "Notification with id %d not found.", id)
	}

	item.Content = content
	response := dto.NewNotificationResponse(item)
	s.refresh(ctx, response)
	return response, nil
}

// MarkAll flips every notification of the recipient to status in one
// transaction and drops the whole notification cache.
func (s *notificationService) MarkAll(ctx context.Context, recipientID uint, status string) (dto.NotificationBulkResponse, error) {
	status, err := parseNotificationStatus(status)
	if err != nil {
		return dto.NotificationBulkResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "notification.mark_all", trace.WithAttributes(
		attribute.Int64("notification.recipient_id", int64(recipientID)),
		attribute.String("notification.status", status),
	))
	defer span.End()

	if err := s.ensureRecipient(ctx, recipientID); err != nil {
		span.RecordError(err)
		return dto.NotificationBulkResponse{}, err
	}

	affected, err := s.repo.MarkAll(ctx, recipientID, status)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "bulk update failed")
		return dto.NotificationBulkResponse{}, err
	}

	s.evictAll(ctx)

	span.SetAttributes(attribute.Int64("notification.affected", affected))
	span.SetStatus(codes.Ok, "marked")
	s.logger.Info().Uint("recipient_id", recipientID).Str("status", status).Int64("affected", affected).Msg("notifications marked")

	return dto.NotificationBulkResponse{RecipientID: recipientID, Status: status, Affected: affected}, nil
}

func (s *notificationService) Delete(ctx context.Context, id uint) error {
	if _, err := s.find(ctx, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return lookup(err, "Notification with id %d not found.", id)
	}

	s.entities.Evict(ctx, cache.IDKey(id))
	s.queries.EvictAll(ctx)
	return nil
}

func (s *notificationService) DeleteAllForUser(ctx context.Context, userID uint) (dto.NotificationBulkResponse, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return dto.NotificationBulkResponse{}, lookup(err, "User with id %d not found.", userID)
	}

	removed, err := s.repo.DeleteByRecipient(ctx, userID)
	if err != nil {
		return dto.NotificationBulkResponse{}, err
	}

	s.evictAll(ctx)
	return dto.NotificationBulkResponse{RecipientID: userID, Affected: removed}, nil
}

func (s *notificationService) ensureRecipient(ctx context.Context, recipientID uint) error {
	if _, err := s.users.FindByID(ctx, recipientID); err != nil {
		return lookup(err, "Recipient with id %d not found.", recipientID)
	}
	return nil
}

func (s *notificationService) find(ctx context.Context, id uint) (models.Notification, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return models.Notification{}, lookup(err, "Notification with id %d not found.", id)
	}
	return item, nil
}

func (s *notificationService) refresh(ctx context.Context, item dto.NotificationResponse) {
	key := cache.IDKey(item.ID)
	s.entities.Evict(ctx, key)
	s.entities.Put(ctx, key, item)
	s.queries.EvictAll(ctx)
}

func (s *notificationService) evictAll(ctx context.Context) {
	s.entities.EvictAll(ctx)
	s.queries.EvictAll(ctx)
}

func parseNotificationStatus(status string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case models.NotificationStatusRead:
		return models.NotificationStatusRead, nil
	case models.NotificationStatusUnread:
		return models.NotificationStatusUnread, nil
	default:
		return "", badRequest("Status must be one of: read, unread.")
	}
}
