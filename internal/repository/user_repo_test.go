package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/webchat-api/internal/models"
)

func TestUserRepositorySearchIsCaseInsensitiveSubstring(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	seedUser(t, db, "Alice")
	seedUser(t, db, "bob")

	users, err := repo.Search(ctx, "LIC")
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, "Alice", users[0].Username)

	users, err = repo.Search(ctx, "EXAMPLE.com")
	require.NoError(t, err)
	require.Len(t, users, 2)

	users, err = repo.Search(ctx, "100%")
	require.NoError(t, err)
	require.Empty(t, users)
}

func TestUserRepositoryTakenExcludesSelf(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")

	taken, err := repo.UsernameTaken(ctx, "alice", 0)
	require.NoError(t, err)
	require.True(t, taken)

	taken, err = repo.UsernameTaken(ctx, "alice", alice.ID)
	require.NoError(t, err)
	require.False(t, taken)

	taken, err = repo.EmailTaken(ctx, "ALICE@example.com", 0)
	require.NoError(t, err)
	require.True(t, taken)
}

func TestUserRepositoryUpdateStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	require.NoError(t, repo.UpdateStatus(ctx, alice.ID, models.UserStatusOffline))

	stored, err := repo.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, models.UserStatusOffline, stored.Status)

	require.ErrorIs(t, repo.UpdateStatus(ctx, 999, models.UserStatusOffline), gorm.ErrRecordNotFound)
}

func TestUserRepositoryDeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	room := seedRoom(t, db, "general", alice, bob)
	seedMessage(t, db, alice, room, "hello from alice", time.Now())
	seedMessage(t, db, bob, room, "hello from bob", time.Now())
	require.NoError(t, db.Create(&models.Notification{Content: "welcome", RecipientID: alice.ID, Status: models.NotificationStatusUnread, SentAt: time.Now()}).Error)

	require.NoError(t, repo.Delete(ctx, alice.ID))

	_, err := repo.FindByID(ctx, alice.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var messages int64
	require.NoError(t, db.Model(&models.Message{}).Count(&messages).Error)
	require.Equal(t, int64(1), messages)

	var notifications int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&notifications).Error)
	require.Zero(t, notifications)

	rooms := NewChatRoomRepository(db)
	stored, err := rooms.FindByID(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, stored.Participants, 1)
	require.Equal(t, bob.ID, stored.Participants[0].ID)

	require.ErrorIs(t, repo.Delete(ctx, alice.ID), gorm.ErrRecordNotFound)
}
