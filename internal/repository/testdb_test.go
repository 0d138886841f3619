package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/webchat-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.ChatRoom{}, &models.Message{}, &models.Notification{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		Role:         models.RoleUser,
		Status:       models.UserStatusOnline,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedRoom(t *testing.T, db *gorm.DB, name string, participants ...models.User) models.ChatRoom {
	t.Helper()
	room := models.ChatRoom{Name: name, Description: name + " room", Participants: participants}
	require.NoError(t, db.Create(&room).Error)
	return room
}

func seedMessage(t *testing.T, db *gorm.DB, sender models.User, room models.ChatRoom, content string, sentAt time.Time) models.Message {
	t.Helper()
	message := models.Message{Content: content, SenderID: sender.ID, RoomID: room.ID, SentAt: sentAt}
	require.NoError(t, db.Omit("Sender", "Room").Create(&message).Error)
	return message
}
