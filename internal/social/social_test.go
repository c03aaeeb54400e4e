package social

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prokemal2012/Filx/internal/models"
	"github.com/prokemal2012/Filx/internal/ranking"
	"github.com/prokemal2012/Filx/internal/storage"
	"github.com/prokemal2012/Filx/internal/storage/memory"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	ctx := context.Background()
	for i, id := range []string{"alice", "bob", "carol"} {
		require.NoError(t, store.UpsertUser(ctx, models.User{
			ID: id, Name: id, CreatedAt: now.Add(time.Duration(i) * time.Hour),
		}))
	}
	for _, doc := range []models.Document{
		{ID: "d1", UserID: "bob", Title: "Public Paper", Category: "Science", Tags: []string{"physics"}, IsPublic: true, CreatedAt: now},
		{ID: "d2", UserID: "bob", Title: "Private Notes", IsPublic: false, CreatedAt: now},
		{ID: "d3", UserID: "carol", Title: "Recipes", Category: "Cooking", IsPublic: true, CreatedAt: now},
	} {
		require.NoError(t, store.UpsertDocument(ctx, doc))
	}
	return NewService(store, ranking.FixedClock(now)), store
}

func activities(t *testing.T, store *memory.Store, userID string) []models.Activity {
	t.Helper()
	acts, err := store.QueryActivities(context.Background(), storage.ActivityFilter{UserIDs: []string{userID}})
	require.NoError(t, err)
	return acts
}

func fieldOf(t *testing.T, err error) models.FieldError {
	t.Helper()
	var ve *models.ValidationError
	require.True(t, errors.As(err, &ve), "expected validation error, got %v", err)
	require.NotEmpty(t, ve.Details)
	return ve.Details[0]
}

func TestToggleLike(t *testing.T) {
	ctx := context.Background()

	t.Run("like then unlike", func(t *testing.T) {
		svc, store := newService(t)

		res, err := svc.ToggleLike(ctx, "alice", "d1")
		require.NoError(t, err)
		assert.Equal(t, &LikeResult{Liked: true, LikeCount: 1}, res)

		res, err = svc.ToggleLike(ctx, "carol", "d1")
		require.NoError(t, err)
		assert.Equal(t, 2, res.LikeCount)

		res, err = svc.ToggleLike(ctx, "alice", "d1")
		require.NoError(t, err)
		assert.Equal(t, &LikeResult{Liked: false, LikeCount: 1}, res)

		acts := activities(t, store, "alice")
		require.Len(t, acts, 2)
		actions := []string{acts[0].Action, acts[1].Action}
		assert.ElementsMatch(t, []string{models.ActionDocumentLiked, models.ActionDocumentUnliked}, actions)
		for _, a := range acts {
			assert.Equal(t, "Public Paper", a.Details.DocumentTitle)
			assert.Equal(t, "bob", a.Details.DocumentOwner)
			require.NotNil(t, a.Details.LikeCount)
		}
	})

	t.Run("snapshot carries category and tags", func(t *testing.T) {
		svc, store := newService(t)
		_, err := svc.ToggleLike(ctx, "alice", "d1")
		require.NoError(t, err)

		edges, err := store.QueryInteractions(ctx, storage.InteractionFilter{UserID: "alice"})
		require.NoError(t, err)
		require.Len(t, edges, 1)
		cat, ok := edges[0].Category()
		assert.True(t, ok)
		assert.Equal(t, "Science", cat)
		assert.Equal(t, []string{"physics"}, edges[0].Tags())
		assert.NotEmpty(t, edges[0].ID)
	})

	t.Run("missing document id", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.ToggleLike(ctx, "alice", "")
		require.ErrorIs(t, err, models.ErrInvalidInput)
		assert.Equal(t, "documentId", fieldOf(t, err).Field)
	})

	t.Run("unknown document", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.ToggleLike(ctx, "alice", "nope")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("private document of another user", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.ToggleLike(ctx, "alice", "d2")
		assert.ErrorIs(t, err, models.ErrNotFound)

		res, err := svc.ToggleLike(ctx, "bob", "d2")
		require.NoError(t, err)
		assert.True(t, res.Liked)
	})
}

// failingActivities commits interactions but refuses to append activities
type failingActivities struct {
	*memory.Store
}

func (failingActivities) AppendActivity(context.Context, models.Activity) error {
	return models.ErrStoreUnavailable
}

func TestToggleSurvivesActivityFailure(t *testing.T) {
	ctx := context.Background()
	_, store := newService(t)
	svc := NewService(failingActivities{store}, ranking.FixedClock(now))

	like, err := svc.ToggleLike(ctx, "alice", "d1")
	require.NoError(t, err)
	assert.Equal(t, &LikeResult{Liked: true, LikeCount: 1}, like)

	bm, err := svc.ToggleBookmark(ctx, "alice", "d1")
	require.NoError(t, err)
	assert.True(t, bm.Bookmarked)

	follow, err := svc.ToggleFollow(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, follow.Following)

	n, err := store.CountInteractions(ctx, storage.InteractionFilter{UserID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Empty(t, activities(t, store, "alice"))
}

func TestToggleBookmark(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	res, err := svc.ToggleBookmark(ctx, "alice", "d3")
	require.NoError(t, err)
	assert.Equal(t, &BookmarkResult{Bookmarked: true, BookmarkCount: 1}, res)

	res, err = svc.ToggleBookmark(ctx, "alice", "d3")
	require.NoError(t, err)
	assert.Equal(t, &BookmarkResult{Bookmarked: false, BookmarkCount: 0}, res)

	acts := activities(t, store, "alice")
	require.Len(t, acts, 1)
	assert.Equal(t, models.ActionDocumentBookmarked, acts[0].Action)
	assert.Equal(t, "carol", acts[0].Details.DocumentOwner)
}

func TestToggleFollow(t *testing.T) {
	ctx := context.Background()

	t.Run("follow records both sides", func(t *testing.T) {
		svc, store := newService(t)

		res, err := svc.ToggleFollow(ctx, "alice", "bob")
		require.NoError(t, err)
		assert.Equal(t, &FollowResult{Following: true, FollowerCount: 1}, res)

		mine := activities(t, store, "alice")
		require.Len(t, mine, 1)
		assert.Equal(t, models.ActionUserFollowed, mine[0].Action)
		assert.Equal(t, "bob", mine[0].Details.TargetUserName)

		theirs := activities(t, store, "bob")
		require.Len(t, theirs, 1)
		assert.Equal(t, models.ActionUserGainedFollower, theirs[0].Action)
		assert.Equal(t, "alice", theirs[0].EntityID)
		assert.Equal(t, "alice", theirs[0].Details.FollowerName)
		require.NotNil(t, theirs[0].Details.FollowerCount)
		assert.Equal(t, 1, *theirs[0].Details.FollowerCount)
	})

	t.Run("unfollow", func(t *testing.T) {
		svc, store := newService(t)
		_, err := svc.ToggleFollow(ctx, "alice", "bob")
		require.NoError(t, err)

		res, err := svc.ToggleFollow(ctx, "alice", "bob")
		require.NoError(t, err)
		assert.Equal(t, &FollowResult{Following: false, FollowerCount: 0}, res)

		mine := activities(t, store, "alice")
		require.Len(t, mine, 2)
		assert.Len(t, activities(t, store, "bob"), 1)
	})

	t.Run("self follow", func(t *testing.T) {
		svc, store := newService(t)
		_, err := svc.ToggleFollow(ctx, "alice", "alice")
		require.ErrorIs(t, err, models.ErrInvalidInput)
		assert.Equal(t, "Cannot follow yourself", fieldOf(t, err).Message)

		n, err := store.CountInteractions(ctx, storage.InteractionFilter{UserID: "alice"})
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Empty(t, activities(t, store, "alice"))
	})

	t.Run("missing target", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.ToggleFollow(ctx, "alice", "")
		require.ErrorIs(t, err, models.ErrInvalidInput)
		assert.Equal(t, "targetUserId", fieldOf(t, err).Field)
	})

	t.Run("unknown target", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.ToggleFollow(ctx, "alice", "ghost")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestConnections(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	for _, f := range [][2]string{{"alice", "bob"}, {"carol", "bob"}, {"bob", "alice"}} {
		_, err := svc.ToggleFollow(ctx, f[0], f[1])
		require.NoError(t, err)
	}
	store.AddInteraction(models.Interaction{
		ID: "x", UserID: "ghost", TargetID: "bob",
		TargetType: models.TargetUser, Type: models.InteractionFollow, Timestamp: now,
	})

	conns, err := svc.Connections(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, conns.Followers, 2)
	// carol's account is newer than alice's
	assert.Equal(t, "carol", conns.Followers[0].ID)
	assert.Equal(t, "alice", conns.Followers[1].ID)
	assert.Equal(t, 2, conns.FollowerCount)
	require.Len(t, conns.Following, 1)
	assert.Equal(t, 1, conns.FollowingCount)

	ok, err := svc.IsFollowing(ctx, "carol", "bob")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.IsFollowing(ctx, "bob", "carol")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.ToggleLike(ctx, "alice", "d1")
	require.NoError(t, err)
	_, err = svc.ToggleLike(ctx, "carol", "d1")
	require.NoError(t, err)
	_, err = svc.ToggleBookmark(ctx, "carol", "d1")
	require.NoError(t, err)

	st, err := svc.Status(ctx, "alice", "d1", "document")
	require.NoError(t, err)
	assert.Equal(t, &Status{Liked: true, LikeCount: 2, BookmarkCount: 1}, st)

	_, err = svc.Status(ctx, "alice", "d1", "comment")
	require.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Equal(t, "targetType", fieldOf(t, err).Field)

	_, err = svc.Status(ctx, "alice", "", "")
	var ve *models.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Details, 2)
}

func TestUserCounts(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, _ = svc.ToggleLike(ctx, "alice", "d1")
	_, _ = svc.ToggleLike(ctx, "alice", "d3")
	_, _ = svc.ToggleBookmark(ctx, "alice", "d3")
	_, _ = svc.ToggleFollow(ctx, "alice", "carol")

	counts, err := svc.UserCounts(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, &Counts{Favorites: 2, Bookmarks: 1, Following: 1}, counts)
}

func TestSavedLists(t *testing.T) {
	ctx := context.Background()
	_, store := newService(t)

	clock := now
	svc := NewService(store, func() time.Time { return clock })
	for _, id := range []string{"d1", "d3"} {
		_, err := svc.ToggleBookmark(ctx, "alice", id)
		require.NoError(t, err)
		_, err = svc.ToggleLike(ctx, "alice", id)
		require.NoError(t, err)
		clock = clock.Add(time.Minute)
	}
	store.AddInteraction(models.Interaction{
		ID: "gone", UserID: "alice", TargetID: "deleted",
		TargetType: models.TargetDocument, Type: models.InteractionLike, Timestamp: clock,
	})

	likes, err := svc.Likes(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, likes, 2)
	assert.Equal(t, "d3", likes[0].ID)
	assert.Equal(t, "carol", likes[0].Author.Name)
	assert.Equal(t, "d1", likes[1].ID)

	page, err := svc.Bookmarks(ctx, "alice", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "d3", page[0].ID)

	page, err = svc.Bookmarks(ctx, "alice", 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "d1", page[0].ID)

	page, err = svc.Bookmarks(ctx, "alice", 3, 1)
	require.NoError(t, err)
	assert.Empty(t, page)

	for _, p := range []int{576460752303423489, math.MaxInt} {
		page, err = svc.Bookmarks(ctx, "alice", p, 16)
		require.NoError(t, err, "page %d", p)
		assert.Empty(t, page, "page %d", p)
	}
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("updates given fields", func(t *testing.T) {
		svc, store := newService(t)
		name := "  Alice A.  "
		bio := "Reader"
		u, err := svc.UpdateProfile(ctx, "alice", ProfileUpdate{Name: &name, Bio: &bio})
		require.NoError(t, err)
		assert.Equal(t, "Alice A.", u.Name)

		stored, err := store.GetUser(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "Reader", stored.Bio)

		acts := activities(t, store, "alice")
		require.Len(t, acts, 1)
		assert.Equal(t, models.ActionProfileUpdated, acts[0].Action)
	})

	t.Run("rejects bad avatar", func(t *testing.T) {
		svc, store := newService(t)
		bad := "not a url"
		_, err := svc.UpdateProfile(ctx, "alice", ProfileUpdate{AvatarURL: &bad})
		require.ErrorIs(t, err, models.ErrInvalidInput)
		assert.Equal(t, "avatarUrl", fieldOf(t, err).Field)
		assert.Empty(t, activities(t, store, "alice"))
	})

	t.Run("unknown user", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.UpdateProfile(ctx, "ghost", ProfileUpdate{})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}
