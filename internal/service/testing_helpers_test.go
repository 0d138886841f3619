package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/webchat-api/internal/blocklist"
	"github.com/noah-isme/webchat-api/internal/cache"
	"github.com/noah-isme/webchat-api/internal/dto"
	"github.com/noah-isme/webchat-api/internal/events"
	"github.com/noah-isme/webchat-api/internal/models"
	"github.com/noah-isme/webchat-api/internal/repository"
	"github.com/noah-isme/webchat-api/pkg/password"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type fixture struct {
	db            *gorm.DB
	store         *cache.MemoryStore
	blocks        *blocklist.Registry
	feed          *RoomFeed
	hasher        password.Hasher
	users         repository.UserRepository
	rooms         repository.ChatRoomRepository
	messages      repository.MessageRepository
	notifications repository.NotificationRepository
	publisher     *capturePublisher
	emitter       *events.MessageEmitter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.ChatRoom{}, &models.Message{}, &models.Notification{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	publisher := &capturePublisher{}
	return &fixture{
		db:            db,
		store:         cache.NewMemoryStore(),
		blocks:        blocklist.New(),
		feed:          NewRoomFeed(testLogger()),
		hasher:        password.NewBcrypt(bcrypt.MinCost),
		users:         repository.NewUserRepository(db),
		rooms:         repository.NewChatRoomRepository(db),
		messages:      repository.NewMessageRepository(db),
		notifications: repository.NewNotificationRepository(db),
		publisher:     publisher,
		emitter:       events.NewMessageEmitter(publisher, testLogger()),
	}
}

func (f *fixture) userService(opts UserServiceOptions) UserService {
	opts.Cache = f.store
	opts.Blocks = f.blocks
	return NewUserService(f.users, f.hasher, NewValidator(), opts, testLogger())
}

func (f *fixture) roomService() ChatRoomService {
	return NewChatRoomService(f.rooms, f.users, f.blocks, f.feed, f.store, NewValidator(), testLogger())
}

func (f *fixture) messageService() MessageService {
	return NewMessageService(f.messages, f.rooms, f.users, f.blocks, f.emitter, f.store, NewValidator(), testLogger())
}

func (f *fixture) notificationService() NotificationService {
	return NewNotificationService(f.notifications, f.users, f.store, NewValidator(), testLogger())
}

func (f *fixture) createUser(t *testing.T, username string) dto.UserResponse {
	t.Helper()
	user, err := f.userService(UserServiceOptions{}).Register(context.Background(), dto.UserRegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "password-" + username,
	})
	require.NoError(t, err)
	return user
}

func (f *fixture) createRoom(t *testing.T, name string, members ...dto.UserResponse) dto.ChatRoomResponse {
	t.Helper()
	svc := f.roomService()
	room, err := svc.Create(context.Background(), dto.ChatRoomCreateRequest{Name: name, Description: name + " room"})
	require.NoError(t, err)
	for _, member := range members {
		room, err = svc.AddParticipant(context.Background(), room.ID, member.ID)
		require.NoError(t, err)
	}
	return room
}

type capturePublisher struct {
	mu     sync.Mutex
	events []events.MessageEvent
	keys   []string
}

func (p *capturePublisher) Publish(_ context.Context, topic, key string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var event events.MessageEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return err
	}
	p.events = append(p.events, event)
	p.keys = append(p.keys, key)
	return nil
}

func (p *capturePublisher) snapshot() ([]events.MessageEvent, []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.MessageEvent(nil), p.events...), append([]string(nil), p.keys...)
}

func requireKind(t *testing.T, err error, kind error) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, kind)
}
