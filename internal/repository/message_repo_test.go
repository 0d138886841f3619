package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/webchat-api/internal/models"
)

func TestMessageRepositoryOrdering(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	room := seedRoom(t, db, "general", alice)
	other := seedRoom(t, db, "random", alice)

	base := time.Now().Add(-time.Hour)
	later := seedMessage(t, db, alice, room, "second message", base.Add(2*time.Minute))
	earlier := seedMessage(t, db, alice, room, "first message", base)
	seedMessage(t, db, alice, other, "elsewhere", base.Add(time.Minute))

	byRoom, err := repo.ListByRoom(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, byRoom, 2)
	require.Equal(t, earlier.ID, byRoom[0].ID)
	require.Equal(t, later.ID, byRoom[1].ID)

	asc, err := repo.ListBySender(ctx, alice.ID, false)
	require.NoError(t, err)
	require.Len(t, asc, 3)
	require.Equal(t, earlier.ID, asc[0].ID)

	desc, err := repo.ListBySender(ctx, alice.ID, true)
	require.NoError(t, err)
	require.Equal(t, later.ID, desc[0].ID)
}

func TestMessageRepositoryKeywordSearch(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	room := seedRoom(t, db, "general", alice)
	seedMessage(t, db, alice, room, "Hello World", time.Now())
	seedMessage(t, db, alice, room, "goodbye", time.Now())

	found, err := repo.SearchByKeyword(ctx, "world")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "Hello World", found[0].Content)
}

func TestMessageRepositoryCreateUpdateDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	room := seedRoom(t, db, "general", alice)

	message := models.Message{Content: "hello there", SenderID: alice.ID, RoomID: room.ID, SentAt: time.Now()}
	require.NoError(t, repo.Create(ctx, &message))
	require.NotZero(t, message.ID)

	require.NoError(t, repo.UpdateContent(ctx, message.ID, "edited text"))
	stored, err := repo.FindByID(ctx, message.ID)
	require.NoError(t, err)
	require.Equal(t, "edited text", stored.Content)

	require.NoError(t, repo.Delete(ctx, message.ID))
	require.ErrorIs(t, repo.Delete(ctx, message.ID), gorm.ErrRecordNotFound)
	require.ErrorIs(t, repo.UpdateContent(ctx, message.ID, "again"), gorm.ErrRecordNotFound)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}
