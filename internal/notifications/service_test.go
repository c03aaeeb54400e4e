package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prokemal2012/Filx/internal/models"
	"github.com/prokemal2012/Filx/internal/ranking"
	"github.com/prokemal2012/Filx/internal/storage/memory"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T) *Service {
	t.Helper()
	store := memory.New()
	for _, id := range []string{"alice", "bob"} {
		require.NoError(t, store.UpsertUser(context.Background(), models.User{ID: id, Name: id, CreatedAt: now}))
	}
	return NewService(store, ranking.FixedClock(now))
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("to self by default", func(t *testing.T) {
		svc := newService(t)
		n, err := svc.Create(ctx, "alice", CreateInput{Title: " Reminder ", Message: "Finish review", Type: "system"})
		require.NoError(t, err)
		assert.Equal(t, "alice", n.UserID)
		assert.Equal(t, "Reminder", n.Title)
		assert.False(t, n.Read)
		assert.True(t, n.CreatedAt.Equal(now))
	})

	t.Run("to another user", func(t *testing.T) {
		svc := newService(t)
		n, err := svc.Create(ctx, "alice", CreateInput{
			Title: "Hello", Message: "Nice paper", Type: "message", TargetUserID: "bob",
			Data: map[string]any{"documentId": "d1"},
		})
		require.NoError(t, err)
		assert.Equal(t, "bob", n.UserID)

		inbox, err := svc.List(ctx, "bob")
		require.NoError(t, err)
		require.Len(t, inbox.Notifications, 1)
		assert.Equal(t, "d1", inbox.Notifications[0].Data["documentId"])

		inbox, err = svc.List(ctx, "alice")
		require.NoError(t, err)
		assert.Empty(t, inbox.Notifications)
	})

	t.Run("unknown target", func(t *testing.T) {
		svc := newService(t)
		_, err := svc.Create(ctx, "alice", CreateInput{Title: "Hello", Message: "Hi", Type: "message", TargetUserID: "ghost"})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("missing fields", func(t *testing.T) {
		svc := newService(t)
		_, err := svc.Create(ctx, "alice", CreateInput{Title: "Hello", Message: "  "})
		require.ErrorIs(t, err, models.ErrInvalidInput)

		var ve *models.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "Missing required fields", ve.Message)
		fields := make([]string, 0, len(ve.Details))
		for _, d := range ve.Details {
			fields = append(fields, d.Field)
		}
		assert.ElementsMatch(t, []string{"message", "type"}, fields)
	})
}

func TestMark(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	var ids []string
	for _, title := range []string{"one", "two", "three"} {
		n, err := svc.Create(ctx, "alice", CreateInput{Title: title, Message: "m", Type: "system"})
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}
	other, err := svc.Create(ctx, "bob", CreateInput{Title: "bob's", Message: "m", Type: "system"})
	require.NoError(t, err)

	inbox, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, inbox.Unread)
	assert.Equal(t, "three", inbox.Notifications[0].Title, "newest first")

	res, err := svc.Mark(ctx, "alice", MarkInput{NotificationID: ids[0]})
	require.NoError(t, err)
	assert.Equal(t, "Notification marked as read", res.Message)

	_, err = svc.Mark(ctx, "alice", MarkInput{NotificationID: other.ID})
	assert.ErrorIs(t, err, models.ErrNotFound)

	res, err = svc.Mark(ctx, "alice", MarkInput{MarkAll: true})
	require.NoError(t, err)
	assert.Equal(t, &MarkResult{Message: "Marked 2 notifications as read", Marked: 2}, res)

	inbox, err = svc.List(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, inbox.Unread)

	inbox, err = svc.List(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, inbox.Unread)

	_, err = svc.Mark(ctx, "alice", MarkInput{})
	require.ErrorIs(t, err, models.ErrInvalidInput)
	var ve *models.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "Missing notificationId or markAll flag", ve.Message)
}
