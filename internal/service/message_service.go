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

	"github.com/noah-isme/webchat-api/internal/blocklist"
	"github.com/noah-isme/webchat-api/internal/cache"
	"github.com/noah-isme/webchat-api/internal/dto"
	"github.com/noah-isme/webchat-api/internal/events"
	"github.com/noah-isme/webchat-api/internal/models"
	"github.com/noah-isme/webchat-api/internal/repository"
	"github.com/noah-isme/webchat-api/internal/utils"
)

// MessageService manages chat messages and emits their lifecycle events.
type MessageService interface {
	List(ctx context.Context) ([]dto.MessageResponse, error)
	Get(ctx context.Context, id uint) (dto.MessageResponse, error)
	ListByRoom(ctx context.Context, roomID uint) ([]dto.MessageResponse, error)
	ListBySender(ctx context.Context, senderID uint, newestFirst bool) ([]dto.MessageResponse, error)
	SearchByKeyword(ctx context.Context, keyword string) ([]dto.MessageResponse, error)
	Page(ctx context.Context, limit, offset int) (dto.OffsetPage[dto.MessageResponse], error)
	Send(ctx context.Context, actor Actor, req dto.MessageSendRequest) (dto.MessageResponse, error)
	Update(ctx context.Context, actor Actor, id uint, content string) (dto.MessageResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
}

type messageService struct {
	messages    repository.MessageRepository
	rooms       repository.ChatRoomRepository
	users       repository.UserRepository
	blocks      *blocklist.Registry
	emitter     *events.MessageEmitter
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	entities    *cache.Cache
	queries     *cache.Cache
	roomQueries *cache.Cache // room searches match on message content
	tracer      trace.Tracer
	now         func() time.Time
	logger      zerolog.Logger
}

// NewMessageService constructs the message service. emitter and store may be nil.
func NewMessageService(messages repository.MessageRepository, rooms repository.ChatRoomRepository, users repository.UserRepository, blocks *blocklist.Registry, emitter *events.MessageEmitter, store cache.Store, validate *validator.Validate, logger zerolog.Logger) MessageService {
	if validate == nil {
		validate = NewValidator()
	}
	if blocks == nil {
		blocks = blocklist.New()
	}

	entities, queries := cache.Pair(store, messagesCache, logger)
	_, roomQueries := cache.Pair(store, chatRoomsCache, logger)
	return &messageService{
		messages:    messages,
		rooms:       rooms,
		users:       users,
		blocks:      blocks,
		emitter:     emitter,
		validator:   validate,
		sanitizer:   newContentSanitizer(),
		entities:    entities,
		queries:     queries,
		roomQueries: roomQueries,
		tracer:      otel.Tracer("github.com/noah-isme/webchat-api/internal/service/message"),
		now:         time.Now,
		logger:      logger.With().Str("component", "message_service").Logger(),
	}
}

func (s *messageService) List(ctx context.Context) ([]dto.MessageResponse, error) {
	return cache.Memoize(ctx, s.queries, cache.Fingerprint("List"), s.listAll)
}

func (s *messageService) listAll(ctx context.Context) ([]dto.MessageResponse, error) {
	messages, err := s.messages.List(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewMessageResponseSlice(messages), nil
}

func (s *messageService) Get(ctx context.Context, id uint) (dto.MessageResponse, error) {
	return cache.Memoize(ctx, s.entities, cache.IDKey(id), func(ctx context.Context) (dto.MessageResponse, error) {
		message, err := s.find(ctx, id)
		if err != nil {
			return dto.MessageResponse{}, err
		}
		return dto.NewMessageResponse(message), nil
	})
}

func (s *messageService) ListByRoom(ctx context.Context, roomID uint) ([]dto.MessageResponse, error) {
	return cache.Memoize(ctx, s.queries, cache.Fingerprint("ListByRoom", roomID), func(ctx context.Context) ([]dto.MessageResponse, error) {
		if _, err := s.rooms.FindByID(ctx, roomID); err != nil {
			return nil, lookup(err, "Room with id %d not found.", roomID)
		}
		messages, err := s.messages.ListByRoom(ctx, roomID)
		if err != nil {
			return nil, err
		}
		return dto.NewMessageResponseSlice(messages), nil
	})
}

func (s *messageService) ListBySender(ctx context.Context, senderID uint, newestFirst bool) ([]dto.MessageResponse, error) {
	return cache.Memoize(ctx, s.queries, cache.Fingerprint("ListBySender", senderID, newestFirst), func(ctx context.Context) ([]dto.MessageResponse, error) {
		if _, err := s.users.FindByID(ctx, senderID); err != nil {
			return nil, lookup(err, "User with id %d not found.", senderID)
		}
		messages, err := s.messages.ListBySender(ctx, senderID, newestFirst)
		if err != nil {
			return nil, err
		}
		return dto.NewMessageResponseSlice(messages), nil
	})
}

// SearchByKeyword matches the trimmed keyword case-insensitively within message content.
func (s *messageService) SearchByKeyword(ctx context.Context, keyword string) ([]dto.MessageResponse, error) {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return nil, badRequest("Keyword must be defined.")
	}

	return cache.Memoize(ctx, s.queries, cache.Fingerprint("SearchByKeyword", keyword), func(ctx context.Context) ([]dto.MessageResponse, error) {
		messages, err := s.messages.SearchByKeyword(ctx, keyword)
		if err != nil {
			return nil, err
		}
		return dto.NewMessageResponseSlice(messages), nil
	})
}

func (s *messageService) Page(ctx context.Context, limit, offset int) (dto.OffsetPage[dto.MessageResponse], error) {
	return cache.Memoize(ctx, s.queries, cache.Fingerprint("Page", limit, offset), func(ctx context.Context) (dto.OffsetPage[dto.MessageResponse], error) {
		all, err := s.listAll(ctx)
		if err != nil {
			return dto.OffsetPage[dto.MessageResponse]{}, err
		}

		items := utils.Paginate(all, limit, offset)
		return dto.OffsetPage[dto.MessageResponse]{
			Items: items,
			Meta:  dto.OffsetMeta{Limit: limit, Offset: offset, Returned: len(items), Total: len(all)},
		}, nil
	})
}

func (s *messageService) Send(ctx context.Context, actor Actor, req dto.MessageSendRequest) (dto.MessageResponse, error) {
	if req.SenderID == 0 {
		req.SenderID = actor.ID
	}

	ctx, span := s.tracer.Start(ctx, "message.send", trace.WithAttributes(
		attribute.Int64("message.room_id", int64(req.RoomID)),
		attribute.Int64("message.sender_id", int64(req.SenderID)),
	))
	defer span.End()

	response, err := s.send(ctx, actor, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		return dto.MessageResponse{}, err
	}

	span.SetAttributes(attribute.Int64("message.id", int64(response.ID)))
	span.SetStatus(codes.Ok, "sent")
	return response, nil
}

func (s *messageService) send(ctx context.Context, actor Actor, req dto.MessageSendRequest) (dto.MessageResponse, error) {
	if !actor.CanActFor(req.SenderID) {
		return dto.MessageResponse{}, forbidden("You may only send messages as yourself.")
	}

	if _, err := s.rooms.FindByID(ctx, req.RoomID); err != nil {
		return dto.MessageResponse{}, lookup(err, "Room with id %d not found.", req.RoomID)
	}
	if _, err := s.users.FindByID(ctx, req.SenderID); err != nil {
		return dto.MessageResponse{}, lookup(err, "Sender with id %d not found.", req.SenderID)
	}

	if s.blocks.IsBlocked(req.SenderID, req.RoomID) {
		return dto.MessageResponse{}, forbidden("Sender with id %d is blocked in this room.", req.SenderID)
	}

	member, err := s.rooms.IsParticipant(ctx, req.RoomID, req.SenderID)
	if err != nil {
		return dto.MessageResponse{}, err
	}
	if !member {
		return dto.MessageResponse{}, badRequest("Sender with id %d is not a participant of this room.", req.SenderID)
	}

	req.Content = sanitizeContent(s.sanitizer, req.Content)
	if err := s.validator.Struct(req); err != nil {
		return dto.MessageResponse{}, invalid(err)
	}

	message := models.Message{
		Content:  req.Content,
		SentAt:   s.now().UTC(),
		SenderID: req.SenderID,
		RoomID:   req.RoomID,
	}
	if err := s.messages.Create(ctx, &message); err != nil {
		return dto.MessageResponse{}, err
	}

	response := dto.NewMessageResponse(message)
	s.refresh(ctx, response)

	s.emitter.Emit(ctx, events.MessageEvent{
		Action:    events.ActionCreated,
		MessageID: message.ID,
		RoomID:    message.RoomID,
		SenderID:  message.SenderID,
		Content:   message.Content,
		SentAt:    message.SentAt,
	})

	s.logger.Info().Uint("message_id", message.ID).Uint("room_id", message.RoomID).Msg("message sent")
	return response, nil
}

// Update rewrites the content of a message. The content must change.
func (s *messageService) Update(ctx context.Context, actor Actor, id uint, content string) (dto.MessageResponse, error) {
	ctx, span := s.tracer.Start(ctx, "message.update", trace.WithAttributes(attribute.Int64("message.id", int64(id))))
	defer span.End()

	message, err := s.owned(ctx, actor, id)
	if err != nil {
		span.RecordError(err)
		return dto.MessageResponse{}, err
	}

	content = sanitizeContent(s.sanitizer, content)
	if content == "" || content == message.Content {
		return dto.MessageResponse{}, badRequest("Message content must be defined or should not be the same as the existing message.")
	}
	if err := s.validator.Var(content, "min=5,max=255"); err != nil {
		return dto.MessageResponse{}, badRequest("content must be between 5 and 255 characters")
	}

	if err := s.messages.UpdateContent(ctx, id, content); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return dto.MessageResponse{}, lookup(err, "Message with id %d not found.", id)
	}

	message.Content = content
	response := dto.NewMessageResponse(message)
	s.refresh(ctx, response)

	s.emitter.Emit(ctx, events.MessageEvent{
		Action:    events.ActionUpdated,
		MessageID: message.ID,
		RoomID:    message.RoomID,
		SenderID:  message.SenderID,
		Content:   message.Content,
		SentAt:    message.SentAt,
	})

	span.SetStatus(codes.Ok, "updated")
	return response, nil
}

func (s *messageService) Delete(ctx context.Context, actor Actor, id uint) error {
	ctx, span := s.tracer.Start(ctx, "message.delete", trace.WithAttributes(attribute.Int64("message.id", int64(id))))
	defer span.End()

	message, err := s.owned(ctx, actor, id)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if err := s.messages.Delete(ctx, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return lookup(err, "Message with id %d not found.", id)
	}

	s.entities.Evict(ctx, cache.IDKey(id))
	s.queries.EvictAll(ctx)
	s.roomQueries.EvictAll(ctx)

	s.emitter.Emit(ctx, events.MessageEvent{
		Action:    events.ActionDeleted,
		MessageID: message.ID,
		RoomID:    message.RoomID,
		SenderID:  message.SenderID,
		SentAt:    message.SentAt,
	})

	s.logger.Info().Uint("message_id", id).Msg("message deleted")
	span.SetStatus(codes.Ok, "deleted")
	return nil
}

// owned loads a message the actor may modify.
func (s *messageService) owned(ctx context.Context, actor Actor, id uint) (models.Message, error) {
	message, err := s.find(ctx, id)
	if err != nil {
		return models.Message{}, err
	}
	if !actor.CanActFor(message.SenderID) {
		return models.Message{}, forbidden("Only the sender may modify this message.")
	}
	return message, nil
}

func (s *messageService) find(ctx context.Context, id uint) (models.Message, error) {
	message, err := s.messages.FindByID(ctx, id)
	if err != nil {
		return models.Message{}, lookup(err, "Message with id %d not found.", id)
	}
	return message, nil
}

func (s *messageService) refresh(ctx context.Context, message dto.MessageResponse) {
	key := cache.IDKey(message.ID)
	s.entities.Evict(ctx, key)
	s.entities.Put(ctx, key, message)
	s.queries.EvictAll(ctx)
	s.roomQueries.EvictAll(ctx)
}
