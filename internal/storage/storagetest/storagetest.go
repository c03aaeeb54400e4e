// Package storagetest holds behavior checks shared by every storage.Store
// implementation.
package storagetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/prokemal2012/Filx/internal/models"
	"github.com/prokemal2012/Filx/internal/storage"
)

// Factory returns an empty store owned by t
type Factory func(t *testing.T) storage.Store

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// Run exercises newStore against the storage.Store contract
func Run(t *testing.T, newStore Factory) {
	t.Run("Documents", func(t *testing.T) { testDocuments(t, newStore(t)) })
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("Toggle", func(t *testing.T) { testToggle(t, newStore(t)) })
	t.Run("ConcurrentToggle", func(t *testing.T) { testConcurrentToggle(t, newStore(t)) })
	t.Run("QueryInteractions", func(t *testing.T) { testQueryInteractions(t, newStore(t)) })
	t.Run("Activities", func(t *testing.T) { testActivities(t, newStore(t)) })
	t.Run("IndexState", func(t *testing.T) { testIndexState(t, newStore(t)) })
	t.Run("Comments", func(t *testing.T) { testComments(t, newStore(t)) })
	t.Run("CommentLikes", func(t *testing.T) { testCommentLikes(t, newStore(t)) })
	t.Run("Notifications", func(t *testing.T) { testNotifications(t, newStore(t)) })
}

func testDocuments(t *testing.T, s storage.Store) {
	ctx := context.Background()

	docs := []models.Document{
		{ID: "d1", UserID: "u1", Title: "One", Content: "alpha", Category: "Science", Tags: []string{"physics", "math"}, IsPublic: true, Size: 42, CreatedAt: base, UpdatedAt: base},
		{ID: "d2", UserID: "u1", Title: "Two", Category: "Cooking", CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(time.Hour)},
		{ID: "d3", UserID: "u2", Title: "Three", Category: "Science", IsPublic: true, CreatedAt: base.Add(2 * time.Hour), UpdatedAt: base.Add(2 * time.Hour)},
	}
	for _, d := range docs {
		require.NoError(t, s.UpsertDocument(ctx, d))
	}

	got, err := s.GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "One", got.Title)
	assert.Equal(t, []string{"physics", "math"}, got.Tags)
	assert.Equal(t, int64(42), got.Size)
	assert.True(t, got.IsPublic)
	assert.True(t, got.CreatedAt.Equal(base))

	_, err = s.GetDocument(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	all, err := s.ListDocuments(ctx, storage.DocumentFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"d1", "d2", "d3"}, documentIDs(all))

	public, err := s.ListDocuments(ctx, storage.DocumentFilter{PublicOnly: true, Category: "Science"})
	require.NoError(t, err)
	assert.Equal(t, []string{"d1", "d3"}, documentIDs(public))

	owned, err := s.ListDocuments(ctx, storage.DocumentFilter{OwnerID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"d1", "d2"}, documentIDs(owned))

	// Upsert replaces in place and keeps the listing position
	updated := docs[0]
	updated.Title = "One, revised"
	updated.IsPublic = false
	require.NoError(t, s.UpsertDocument(ctx, updated))
	got, err = s.GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "One, revised", got.Title)
	assert.False(t, got.IsPublic)
	all, err = s.ListDocuments(ctx, storage.DocumentFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"d1", "d2", "d3"}, documentIDs(all))

	require.NoError(t, s.DeleteDocument(ctx, "d2"))
	assert.ErrorIs(t, s.DeleteDocument(ctx, "d2"), models.ErrNotFound)
	all, err = s.ListDocuments(ctx, storage.DocumentFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"d1", "d3"}, documentIDs(all))
}

func testUsers(t *testing.T, s storage.Store) {
	ctx := context.Background()

	require.NoError(t, s.UpsertUser(ctx, models.User{ID: "u1", Name: "Alice", Email: "a@example.com", CreatedAt: base}))
	require.NoError(t, s.UpsertUser(ctx, models.User{ID: "u2", Name: "Bob", Email: "b@example.com", Verified: true, CreatedAt: base}))

	u, err := s.GetUser(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, "Bob", u.Name)
	assert.True(t, u.Verified)

	_, err = s.GetUser(ctx, "ghost")
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, s.UpsertUser(ctx, models.User{ID: "u1", Name: "Alice B", Email: "a@example.com", Bio: "Reader", CreatedAt: base}))
	u, err = s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice B", u.Name)
	assert.Equal(t, "Reader", u.Bio)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "u1", users[0].ID)
	assert.Equal(t, "u2", users[1].ID)
}

func testToggle(t *testing.T, s storage.Store) {
	ctx := context.Background()

	like := models.Interaction{
		ID: "i1", UserID: "u1", TargetID: "d1", TargetType: models.TargetDocument,
		Type: models.InteractionLike, Timestamp: base,
		Document: &models.DocumentSnapshot{Title: "One", Category: "Science", Tags: []string{"physics"}},
	}
	res, err := s.ToggleInteraction(ctx, like)
	require.NoError(t, err)
	assert.Equal(t, storage.ToggleResult{Active: true, Count: 1}, res)

	other := like
	other.ID, other.UserID = "i2", "u2"
	res, err = s.ToggleInteraction(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, storage.ToggleResult{Active: true, Count: 2}, res)

	// A bookmark on the same target is a separate edge
	bm := like
	bm.ID, bm.Type = "i3", models.InteractionBookmark
	res, err = s.ToggleInteraction(ctx, bm)
	require.NoError(t, err)
	assert.Equal(t, storage.ToggleResult{Active: true, Count: 1}, res)

	stored, err := s.QueryInteractions(ctx, storage.InteractionFilter{UserID: "u1", Type: models.InteractionLike})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.NotNil(t, stored[0].Document)
	assert.Equal(t, "Science", stored[0].Document.Category)
	assert.Equal(t, []string{"physics"}, stored[0].Document.Tags)
	assert.True(t, stored[0].Timestamp.Equal(base))

	retry := like
	retry.ID = "i4"
	res, err = s.ToggleInteraction(ctx, retry)
	require.NoError(t, err)
	assert.Equal(t, storage.ToggleResult{Active: false, Count: 1}, res)

	n, err := s.CountInteractions(ctx, storage.InteractionFilter{TargetID: "d1"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	follow := models.Interaction{
		ID: "f1", UserID: "u1", TargetID: "u2", TargetType: models.TargetUser,
		Type: models.InteractionFollow, Timestamp: base,
		Followee: &models.FolloweeSnapshot{Name: "Bob"},
	}
	_, err = s.ToggleInteraction(ctx, follow)
	require.NoError(t, err)
	follows, err := s.QueryInteractions(ctx, storage.InteractionFilter{Type: models.InteractionFollow})
	require.NoError(t, err)
	require.Len(t, follows, 1)
	require.NotNil(t, follows[0].Followee)
	assert.Equal(t, "Bob", follows[0].Followee.Name)
	assert.Nil(t, follows[0].Document)
}

func testConcurrentToggle(t *testing.T, s storage.Store) {
	ctx := context.Background()
	const users = 16

	var g errgroup.Group
	for n := range users {
		g.Go(func() error {
			_, err := s.ToggleInteraction(ctx, models.Interaction{
				ID:         fmt.Sprintf("c%d", n),
				UserID:     fmt.Sprintf("u%d", n),
				TargetID:   "d1",
				TargetType: models.TargetDocument,
				Type:       models.InteractionLike,
				Timestamp:  base,
			})
			return err
		})
	}
	require.NoError(t, g.Wait())

	n, err := s.CountInteractions(ctx, storage.InteractionFilter{TargetID: "d1", Type: models.InteractionLike})
	require.NoError(t, err)
	assert.Equal(t, users, n)
}

func testQueryInteractions(t *testing.T, s storage.Store) {
	ctx := context.Background()

	for n, uid := range []string{"u1", "u2", "u3"} {
		_, err := s.ToggleInteraction(ctx, models.Interaction{
			ID: fmt.Sprintf("i%d", n), UserID: uid, TargetID: "d1", TargetType: models.TargetDocument,
			Type: models.InteractionLike, Timestamp: base.Add(time.Duration(n) * time.Hour),
		})
		require.NoError(t, err)
	}

	all, err := s.QueryInteractions(ctx, storage.InteractionFilter{TargetID: "d1"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "u1", all[0].UserID, "insertion order")

	// Since is exclusive
	recent, err := s.QueryInteractions(ctx, storage.InteractionFilter{Since: base})
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "u2", recent[0].UserID)

	n, err := s.CountInteractions(ctx, storage.InteractionFilter{TargetType: models.TargetUser})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testActivities(t *testing.T, s storage.Store) {
	ctx := context.Background()
	count := 3

	acts := []models.Activity{
		{ID: "a1", UserID: "u1", Action: models.ActionDocumentCreated, EntityType: models.EntityDocument, EntityID: "d1", Timestamp: base,
			Details: models.ActivityDetails{DocumentTitle: "One", Tags: []string{"physics"}}},
		{ID: "a2", UserID: "u2", Action: models.ActionDocumentLiked, EntityType: models.EntityDocument, EntityID: "d1", Timestamp: base.Add(time.Hour),
			Details: models.ActivityDetails{DocumentTitle: "One", LikeCount: &count}},
		{ID: "a3", UserID: "u1", Action: models.ActionUserFollowed, EntityType: models.EntityUser, EntityID: "u2", Timestamp: base.Add(time.Hour)},
		{ID: "a4", UserID: "u3", Action: models.ActionProfileUpdated, EntityType: models.EntityUser, EntityID: "u3", Timestamp: base.Add(2 * time.Hour)},
	}
	for _, a := range acts {
		require.NoError(t, s.AppendActivity(ctx, a))
	}

	all, err := s.QueryActivities(ctx, storage.ActivityFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a4", "a3", "a2", "a1"}, activityIDs(all), "newest first, later appends win ties")

	liked := all[2]
	require.NotNil(t, liked.Details.LikeCount)
	assert.Equal(t, 3, *liked.Details.LikeCount)
	assert.Equal(t, []string{"physics"}, all[3].Details.Tags)

	mine, err := s.QueryActivities(ctx, storage.ActivityFilter{UserIDs: []string{"u1", "u3"}, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"a4", "a3"}, activityIDs(mine))

	docs, err := s.QueryActivities(ctx, storage.ActivityFilter{EntityType: models.EntityDocument, Since: base})
	require.NoError(t, err)
	assert.Equal(t, []string{"a2"}, activityIDs(docs))
}

func testIndexState(t *testing.T, s storage.Store) {
	ctx := context.Background()

	hash, err := s.IndexedHash(ctx, "d1")
	require.NoError(t, err)
	assert.Empty(t, hash)

	require.NoError(t, s.SetIndexedHash(ctx, "d2", "h2"))
	require.NoError(t, s.SetIndexedHash(ctx, "d1", "h1"))
	require.NoError(t, s.SetIndexedHash(ctx, "d1", "h1b"))

	hash, err = s.IndexedHash(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "h1b", hash)

	ids, err := s.ListIndexed(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"d1", "d2"}, ids)

	require.NoError(t, s.DeleteIndexed(ctx, "d1"))
	require.NoError(t, s.DeleteIndexed(ctx, "never-indexed"))
	ids, err = s.ListIndexed(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"d2"}, ids)
}

func testComments(t *testing.T, s storage.Store) {
	ctx := context.Background()

	for _, c := range []models.Comment{
		{ID: "c1", DocumentID: "d1", UserID: "u1", Content: "First", CreatedAt: base},
		{ID: "c2", DocumentID: "d2", UserID: "u1", Content: "Elsewhere", CreatedAt: base},
		{ID: "c3", DocumentID: "d1", UserID: "u2", ParentID: "c1", Content: "Reply", CreatedAt: base.Add(time.Minute)},
	} {
		require.NoError(t, s.AddComment(ctx, c))
	}

	got, err := s.GetComment(ctx, "c3")
	require.NoError(t, err)
	assert.Equal(t, "c1", got.ParentID)
	assert.Equal(t, "Reply", got.Content)
	assert.True(t, got.CreatedAt.Equal(base.Add(time.Minute)))

	_, err = s.GetComment(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	list, err := s.ListComments(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c1", list[0].ID)
	assert.Empty(t, list[0].ParentID)
	assert.Equal(t, "c3", list[1].ID)

	none, err := s.ListComments(ctx, "d9")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testCommentLikes(t *testing.T, s storage.Store) {
	ctx := context.Background()

	res, err := s.ToggleCommentLike(ctx, "c1", "u1", base)
	require.NoError(t, err)
	assert.Equal(t, storage.ToggleResult{Active: true, Count: 1}, res)

	res, err = s.ToggleCommentLike(ctx, "c1", "u2", base.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, storage.ToggleResult{Active: true, Count: 2}, res)

	_, err = s.ToggleCommentLike(ctx, "c2", "u2", base)
	require.NoError(t, err)

	likers, err := s.CommentLikers(ctx, []string{"c1", "c2", "c3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, likers["c1"])
	assert.Equal(t, []string{"u2"}, likers["c2"])
	assert.Empty(t, likers["c3"])

	res, err = s.ToggleCommentLike(ctx, "c1", "u1", base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, storage.ToggleResult{Active: false, Count: 1}, res)

	likers, err = s.CommentLikers(ctx, []string{"c1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, likers["c1"])

	likers, err = s.CommentLikers(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, likers)
}

func testNotifications(t *testing.T, s storage.Store) {
	ctx := context.Background()

	for _, n := range []models.Notification{
		{ID: "n1", UserID: "u1", Type: "system", Title: "Welcome", Message: "Hi", CreatedAt: base},
		{ID: "n2", UserID: "u1", Type: models.NotificationComment, Title: "New comment", Message: "u2 commented",
			Data: map[string]any{"documentId": "d1"}, CreatedAt: base.Add(time.Hour)},
		{ID: "n3", UserID: "u2", Type: "system", Title: "Welcome", Message: "Hi", CreatedAt: base},
	} {
		require.NoError(t, s.AddNotification(ctx, n))
	}

	list, err := s.ListNotifications(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "n2", list[0].ID, "newest first")
	assert.Equal(t, map[string]any{"documentId": "d1"}, list[0].Data)
	assert.False(t, list[0].Read)
	assert.Nil(t, list[1].Data)

	// Another user's notification cannot be marked
	assert.ErrorIs(t, s.MarkNotificationRead(ctx, "u1", "n3"), models.ErrNotFound)
	assert.ErrorIs(t, s.MarkNotificationRead(ctx, "u1", "missing"), models.ErrNotFound)

	require.NoError(t, s.MarkNotificationRead(ctx, "u1", "n1"))
	require.NoError(t, s.MarkNotificationRead(ctx, "u1", "n1"))

	marked, err := s.MarkAllNotificationsRead(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	marked, err = s.MarkAllNotificationsRead(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, marked)

	list, err = s.ListNotifications(ctx, "u1")
	require.NoError(t, err)
	for _, n := range list {
		assert.True(t, n.Read, n.ID)
	}

	other, err := s.ListNotifications(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.False(t, other[0].Read)
}

func documentIDs(docs []models.Document) []string {
	ids := make([]string, len(docs))
	for i := range docs {
		ids[i] = docs[i].ID
	}
	return ids
}

func activityIDs(acts []models.Activity) []string {
	ids := make([]string, len(acts))
	for i := range acts {
		ids[i] = acts[i].ID
	}
	return ids
}
