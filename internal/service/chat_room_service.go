package service

import (
	"context"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/webchat-api/internal/blocklist"
	"github.com/noah-isme/webchat-api/internal/cache"
	"github.com/noah-isme/webchat-api/internal/dto"
	"github.com/noah-isme/webchat-api/internal/models"
	"github.com/noah-isme/webchat-api/internal/repository"
)

// ChatRoomService manages rooms, their participants and the per-room block list.
type ChatRoomService interface {
	List(ctx context.Context) ([]dto.ChatRoomResponse, error)
	Get(ctx context.Context, id uint) (dto.ChatRoomResponse, error)
	GetByName(ctx context.Context, name string) (dto.ChatRoomResponse, error)
	ListByUsername(ctx context.Context, username string) ([]dto.ChatRoomResponse, error)
	SearchByMessage(ctx context.Context, content string) ([]dto.ChatRoomResponse, error)
	SearchByParticipant(ctx context.Context, username string) ([]dto.ChatRoomResponse, error)
	Create(ctx context.Context, req dto.ChatRoomCreateRequest) (dto.ChatRoomResponse, error)
	AddParticipant(ctx context.Context, roomID, userID uint) (dto.ChatRoomResponse, error)
	RemoveParticipant(ctx context.Context, roomID, userID uint) (dto.ChatRoomResponse, error)
	Update(ctx context.Context, roomID uint, req dto.ChatRoomUpdateRequest) (dto.ChatRoomResponse, error)
	Delete(ctx context.Context, roomID uint) error
	Block(ctx context.Context, roomID, userID uint) (dto.BlockedUsersResponse, error)
	Unblock(ctx context.Context, roomID, userID uint) (dto.BlockedUsersResponse, error)
	BlockedUsers(ctx context.Context, roomID uint) (dto.BlockedUsersResponse, error)
}

// RoomSubscriptions disconnects live followers of a room.
type RoomSubscriptions interface {
	Kick(roomID, userID uint) int
	CloseRoom(roomID uint) int
}

type noSubscriptions struct{}

func (noSubscriptions) Kick(uint, uint) int { return 0 }
func (noSubscriptions) CloseRoom(uint) int  { return 0 }

type chatRoomService struct {
	rooms     repository.ChatRoomRepository
	users     repository.UserRepository
	blocks    *blocklist.Registry
	feed      RoomSubscriptions
	validator *validator.Validate
	entities  *cache.Cache
	queries   *cache.Cache
	messages  []*cache.Cache
	logger    zerolog.Logger

	// membership serialises participant and block list changes.
	membership sync.Mutex
}

// NewChatRoomService constructs the room service. store may be nil to disable
// caching and feed may be nil when no live followers are served.
func NewChatRoomService(rooms repository.ChatRoomRepository, users repository.UserRepository, blocks *blocklist.Registry, feed RoomSubscriptions, store cache.Store, validate *validator.Validate, logger zerolog.Logger) ChatRoomService {
	if validate == nil {
		validate = NewValidator()
	}
	if blocks == nil {
		blocks = blocklist.New()
	}
	if feed == nil {
		feed = noSubscriptions{}
	}

	entities, queries := cache.Pair(store, chatRoomsCache, logger)
	messageEntities, messageQueries := cache.Pair(store, messagesCache, logger)
	return &chatRoomService{
		rooms:     rooms,
		users:     users,
		blocks:    blocks,
		feed:      feed,
		validator: validate,
		entities:  entities,
		queries:   queries,
		messages:  []*cache.Cache{messageEntities, messageQueries},
		logger:    logger.With().Str("component", "chat_room_service").Logger(),
	}
}

func (s *chatRoomService) List(ctx context.Context) ([]dto.ChatRoomResponse, error) {
	return cache.Memoize(ctx, s.queries, cache.Fingerprint("List"), func(ctx context.Context) ([]dto.ChatRoomResponse, error) {
		rooms, err := s.rooms.List(ctx)
		if err != nil {
			return nil, err
		}
		return dto.NewChatRoomResponseSlice(rooms), nil
	})
}

func (s *chatRoomService) Get(ctx context.Context, id uint) (dto.ChatRoomResponse, error) {
	return cache.Memoize(ctx, s.entities, cache.IDKey(id), func(ctx context.Context) (dto.ChatRoomResponse, error) {
		room, err := s.findRoom(ctx, id)
		if err != nil {
			return dto.ChatRoomResponse{}, err
		}
		return dto.NewChatRoomResponse(room), nil
	})
}

func (s *chatRoomService) GetByName(ctx context.Context, name string) (dto.ChatRoomResponse, error) {
	name = strings.TrimSpace(name)
	return cache.Memoize(ctx, s.queries, cache.Fingerprint("GetByName", name), func(ctx context.Context) (dto.ChatRoomResponse, error) {
		room, err := s.rooms.FindByName(ctx, name)
		if err != nil {
			return dto.ChatRoomResponse{}, lookup(err, "Room with name %s not found.", name)
		}
		return dto.NewChatRoomResponse(room), nil
	})
}

func (s *chatRoomService) ListByUsername(ctx context.Context, username string) ([]dto.ChatRoomResponse, error) {
	username = strings.TrimSpace(username)
	return cache.Memoize(ctx, s.queries, cache.Fingerprint("ListByUsername", username), func(ctx context.Context) ([]dto.ChatRoomResponse, error) {
		rooms, err := s.rooms.ListByParticipant(ctx, username)
		if err != nil {
			return nil, err
		}
		return dto.NewChatRoomResponseSlice(rooms), nil
	})
}

func (s *chatRoomService) SearchByMessage(ctx context.Context, content string) ([]dto.ChatRoomResponse, error) {
	return cache.Memoize(ctx, s.queries, cache.Fingerprint("SearchByMessage", content), func(ctx context.Context) ([]dto.ChatRoomResponse, error) {
		rooms, err := s.rooms.ListByMessageContent(ctx, content)
		if err != nil {
			return nil, err
		}
		if len(rooms) == 0 {
			return nil, notFound("Room with message %s not found.", content)
		}
		return dto.NewChatRoomResponseSlice(rooms), nil
	})
}

func (s *chatRoomService) SearchByParticipant(ctx context.Context, username string) ([]dto.ChatRoomResponse, error) {
	username = strings.TrimSpace(username)
	return cache.Memoize(ctx, s.queries, cache.Fingerprint("SearchByParticipant", username), func(ctx context.Context) ([]dto.ChatRoomResponse, error) {
		rooms, err := s.rooms.ListByParticipant(ctx, username)
		if err != nil {
			return nil, err
		}
		if len(rooms) == 0 {
			return nil, notFound("Room with participant %s not found.", username)
		}
		return dto.NewChatRoomResponseSlice(rooms), nil
	})
}

func (s *chatRoomService) Create(ctx context.Context, req dto.ChatRoomCreateRequest) (dto.ChatRoomResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if err := s.validator.Struct(req); err != nil {
		return dto.ChatRoomResponse{}, invalid(err)
	}

	room := models.ChatRoom{Name: req.Name, Description: req.Description}
	if err := s.rooms.Create(ctx, &room); err != nil {
		return dto.ChatRoomResponse{}, err
	}

	s.logger.Info().Uint("room_id", room.ID).Str("name", room.Name).Msg("chat room created")

	response := dto.NewChatRoomResponse(room)
	s.refresh(ctx, response)
	return response, nil
}

func (s *chatRoomService) AddParticipant(ctx context.Context, roomID, userID uint) (dto.ChatRoomResponse, error) {
	s.membership.Lock()
	defer s.membership.Unlock()

	room, err := s.findRoom(ctx, roomID)
	if err != nil {
		return dto.ChatRoomResponse{}, err
	}
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return dto.ChatRoomResponse{}, err
	}

	if s.blocks.IsBlocked(userID, roomID) {
		return dto.ChatRoomResponse{}, forbidden("User with id %d is blocked in this room.", userID)
	}
	if room.HasParticipant(userID) {
		return dto.ChatRoomResponse{}, badRequest("User is already in this room.")
	}

	if err := s.rooms.AddParticipant(ctx, roomID, user); err != nil {
		return dto.ChatRoomResponse{}, err
	}

	return s.reload(ctx, roomID)
}

func (s *chatRoomService) RemoveParticipant(ctx context.Context, roomID, userID uint) (dto.ChatRoomResponse, error) {
	s.membership.Lock()
	defer s.membership.Unlock()

	room, err := s.findRoom(ctx, roomID)
	if err != nil {
		return dto.ChatRoomResponse{}, err
	}
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return dto.ChatRoomResponse{}, err
	}

	if !room.HasParticipant(userID) {
		return dto.ChatRoomResponse{}, badRequest("User is not in this room.")
	}

	if err := s.rooms.RemoveParticipant(ctx, roomID, user); err != nil {
		return dto.ChatRoomResponse{}, err
	}
	s.feed.Kick(roomID, userID)

	return s.reload(ctx, roomID)
}

// Update renames the room and rewrites its description. Both values must be
// provided and differ from the stored ones.
func (s *chatRoomService) Update(ctx context.Context, roomID uint, req dto.ChatRoomUpdateRequest) (dto.ChatRoomResponse, error) {
	room, err := s.findRoom(ctx, roomID)
	if err != nil {
		return dto.ChatRoomResponse{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)

	if req.Name == "" || req.Name == room.Name {
		return dto.ChatRoomResponse{}, badRequest("Room name must be defined or should not be the same as the existing name.")
	}
	if req.Description == "" || req.Description == room.Description {
		return dto.ChatRoomResponse{}, badRequest("Description must be defined or should not be the same as the existing description.")
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.ChatRoomResponse{}, invalid(err)
	}

	room.Name = req.Name
	room.Description = req.Description
	if err := s.rooms.Update(ctx, &room); err != nil {
		return dto.ChatRoomResponse{}, err
	}

	return s.reload(ctx, roomID)
}

func (s *chatRoomService) Delete(ctx context.Context, roomID uint) error {
	if _, err := s.findRoom(ctx, roomID); err != nil {
		return err
	}

	if err := s.rooms.Delete(ctx, roomID); err != nil {
		return lookup(err, "Room with id %d not found.", roomID)
	}

	s.blocks.ForgetRoom(roomID)
	s.feed.CloseRoom(roomID)
	s.entities.Evict(ctx, cache.IDKey(roomID))
	s.queries.EvictAll(ctx)
	for _, c := range s.messages {
		c.EvictAll(ctx)
	}

	s.logger.Info().Uint("room_id", roomID).Msg("chat room deleted")
	return nil
}

// Block bars the user from the room and removes them from its participants.
func (s *chatRoomService) Block(ctx context.Context, roomID, userID uint) (dto.BlockedUsersResponse, error) {
	s.membership.Lock()
	defer s.membership.Unlock()

	room, err := s.findRoom(ctx, roomID)
	if err != nil {
		return dto.BlockedUsersResponse{}, err
	}
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return dto.BlockedUsersResponse{}, err
	}

	if !s.blocks.Block(userID, roomID) {
		return dto.BlockedUsersResponse{}, badRequest("User with id %d is already blocked in this room.", userID)
	}

	if room.HasParticipant(userID) {
		if err := s.rooms.RemoveParticipant(ctx, roomID, user); err != nil {
			s.blocks.Unblock(userID, roomID)
			return dto.BlockedUsersResponse{}, err
		}
		if _, err := s.reload(ctx, roomID); err != nil {
			return dto.BlockedUsersResponse{}, err
		}
	}

	s.feed.Kick(roomID, userID)
	s.logger.Info().Uint("room_id", roomID).Uint("user_id", userID).Msg("user blocked in room")
	return s.blocked(roomID), nil
}

func (s *chatRoomService) Unblock(ctx context.Context, roomID, userID uint) (dto.BlockedUsersResponse, error) {
	s.membership.Lock()
	defer s.membership.Unlock()

	if _, err := s.findRoom(ctx, roomID); err != nil {
		return dto.BlockedUsersResponse{}, err
	}
	if _, err := s.findUser(ctx, userID); err != nil {
		return dto.BlockedUsersResponse{}, err
	}

	if !s.blocks.Unblock(userID, roomID) {
		return dto.BlockedUsersResponse{}, badRequest("User with id %d is not blocked in this room.", userID)
	}

	s.logger.Info().Uint("room_id", roomID).Uint("user_id", userID).Msg("user unblocked in room")
	return s.blocked(roomID), nil
}

func (s *chatRoomService) BlockedUsers(ctx context.Context, roomID uint) (dto.BlockedUsersResponse, error) {
	if _, err := s.findRoom(ctx, roomID); err != nil {
		return dto.BlockedUsersResponse{}, err
	}
	return s.blocked(roomID), nil
}

func (s *chatRoomService) blocked(roomID uint) dto.BlockedUsersResponse {
	return dto.BlockedUsersResponse{RoomID: roomID, UserIDs: s.blocks.BlockedUsers(roomID)}
}

func (s *chatRoomService) reload(ctx context.Context, roomID uint) (dto.ChatRoomResponse, error) {
	room, err := s.findRoom(ctx, roomID)
	if err != nil {
		return dto.ChatRoomResponse{}, err
	}

	response := dto.NewChatRoomResponse(room)
	s.refresh(ctx, response)
	return response, nil
}

func (s *chatRoomService) refresh(ctx context.Context, room dto.ChatRoomResponse) {
	key := cache.IDKey(room.ID)
	s.entities.Evict(ctx, key)
	s.entities.Put(ctx, key, room)
	s.queries.EvictAll(ctx)
}

func (s *chatRoomService) findRoom(ctx context.Context, id uint) (models.ChatRoom, error) {
	room, err := s.rooms.FindByID(ctx, id)
	if err != nil {
		return models.ChatRoom{}, lookup(err, "Room with id %d not found.", id)
	}
	return room, nil
}

func (s *chatRoomService) findUser(ctx context.Context, id uint) (models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return models.User{}, lookup(err, "User with id %d not found.", id)
	}
	return user, nil
}
