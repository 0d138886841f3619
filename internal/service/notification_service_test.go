package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/webchat-api/internal/cache"
	"github.com/noah-isme/webchat-api/internal/dto"
	"github.com/noah-isme/webchat-api/internal/models"
)

func TestNotificationServiceCreate(t *testing.T) {
	f := newFixture(t)
	svc := f.notificationService()
	ctx := context.Background()
	alice := f.createUser(t, "alice")

	created, err := svc.Create(ctx, dto.NotificationCreateRequest{RecipientID: alice.ID, Content: "<i>welcome aboard</i>"})
	require.NoError(t, err)
	require.Equal(t, "welcome aboard", created.Content)
	require.Equal(t, models.NotificationStatusUnread, created.Status)

	_, err = svc.Create(ctx, dto.NotificationCreateRequest{RecipientID: 404, Content: "welcome aboard"})
	requireKind(t, err, ErrNotFound)

	_, err = svc.Create(ctx, dto.NotificationCreateRequest{RecipientID: alice.ID, Content: "hey"})
	requireKind(t, err, ErrBadRequest)
}

func TestNotificationServiceMarkAllEvictsCache(t *testing.T) {
	f := newFixture(t)
	svc := f.notificationService()
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")

	first, err := svc.Create(ctx, dto.NotificationCreateRequest{RecipientID: alice.ID, Content: "first notice"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, dto.NotificationCreateRequest{RecipientID: alice.ID, Content: "second notice"})
	require.NoError(t, err)
	other, err := svc.Create(ctx, dto.NotificationCreateRequest{RecipientID: bob.ID, Content: "for bob only"})
	require.NoError(t, err)

	unread, err := svc.ListByStatus(ctx, alice.ID, "unread")
	require.NoError(t, err)
	require.Len(t, unread, 2)

	result, err := svc.MarkAll(ctx, alice.ID, "READ")
	require.NoError(t, err)
	require.Equal(t, dto.NotificationBulkResponse{RecipientID: alice.ID, Status: models.NotificationStatusRead, Affected: 2}, result)

	entities := cache.New(f.store, notificationsCache, testLogger())
	var cached dto.NotificationResponse
	require.False(t, entities.Get(ctx, cache.IDKey(first.ID), &cached))

	got, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, models.NotificationStatusRead, got.Status)

	unread, err = svc.ListByStatus(ctx, alice.ID, "unread")
	require.NoError(t, err)
	require.Empty(t, unread)

	untouched, err := svc.Get(ctx, other.ID)
	require.NoError(t, err)
	require.Equal(t, models.NotificationStatusUnread, untouched.Status)

	again, err := svc.MarkAll(ctx, alice.ID, "read")
	require.NoError(t, err)
	require.Zero(t, again.Affected)

	_, err = svc.MarkAll(ctx, alice.ID, "archived")
	requireKind(t, err, ErrBadRequest)

	_, err = svc.MarkAll(ctx, 404, "read")
	requireKind(t, err, ErrNotFound)
	require.Equal(t, "Recipient with id 404 not found.", err.Error())
}

func TestNotificationServiceUpdateAndDelete(t *testing.T) {
	f := newFixture(t)
	svc := f.notificationService()
	ctx := context.Background()
	alice := f.createUser(t, "alice")

	created, err := svc.Create(ctx, dto.NotificationCreateRequest{RecipientID: alice.ID, Content: "first notice"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, created.ID, "first notice")
	requireKind(t, err, ErrBadRequest)

	updated, err := svc.Update(ctx, created.ID, "revised notice")
	require.NoError(t, err)
	require.Equal(t, "revised notice", updated.Content)

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.Get(ctx, created.ID)
	requireKind(t, err, ErrNotFound)
	requireKind(t, svc.Delete(ctx, created.ID), ErrNotFound)
}

func TestNotificationServiceDeleteAllForUser(t *testing.T) {
	f := newFixture(t)
	svc := f.notificationService()
	ctx := context.Background()
	alice := f.createUser(t, "alice")

	for _, content := range []string{"first notice", "second notice"} {
		_, err := svc.Create(ctx, dto.NotificationCreateRequest{RecipientID: alice.ID, Content: content})
		require.NoError(t, err)
	}

	result, err := svc.DeleteAllForUser(ctx, alice.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, result.Affected)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Empty(t, all)

	_, err = svc.DeleteAllForUser(ctx, 404)
	requireKind(t, err, ErrNotFound)
}

func TestNotificationServicePage(t *testing.T) {
	f := newFixture(t)
	svc := f.notificationService()
	ctx := context.Background()
	alice := f.createUser(t, "alice")

	for _, content := range []string{"first notice", "second notice", "third notice"} {
		_, err := svc.Create(ctx, dto.NotificationCreateRequest{RecipientID: alice.ID, Content: content})
		require.NoError(t, err)
	}

	page, err := svc.Page(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, "third notice", page.Items[0].Content)
	require.Equal(t, 3, page.Meta.Total)
}
