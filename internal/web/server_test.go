package web

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prokemal2012/Filx/internal/comments"
	"github.com/prokemal2012/Filx/internal/config"
	"github.com/prokemal2012/Filx/internal/documents"
	"github.com/prokemal2012/Filx/internal/explore"
	"github.com/prokemal2012/Filx/internal/feed"
	"github.com/prokemal2012/Filx/internal/models"
	"github.com/prokemal2012/Filx/internal/notifications"
	"github.com/prokemal2012/Filx/internal/ranking"
	"github.com/prokemal2012/Filx/internal/search"
	"github.com/prokemal2012/Filx/internal/social"
	"github.com/prokemal2012/Filx/internal/storage/memory"
	indexsync "github.com/prokemal2012/Filx/internal/sync"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testEnv struct {
	handler http.Handler
	store   *memory.Store
	tokens  *TokenManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	store := memory.New()
	for _, id := range []string{"alice", "bob"} {
		require.NoError(t, store.UpsertUser(ctx, models.User{ID: id, Name: id, CreatedAt: time.Now()}))
	}
	require.NoError(t, store.UpsertDocument(ctx, models.Document{
		ID: "d1", UserID: "bob", Title: "Bob's paper", Category: "Science", IsPublic: true,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}))

	idx, err := search.OpenMem()
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	cfg := config.Default()
	cfg.Auth.JWTSecret = testSecret
	tokens, err := NewTokenManager(cfg.Auth)
	require.NoError(t, err)

	srv := NewServer(Deps{
		Store:     store,
		Index:     idx,
		Feed:      feed.NewService(store, cfg.Ranking, nil),
		Explore:   explore.NewAggregator(store, cfg.Aggregation()),
		Social:    social.NewService(store, nil),
		Documents: documents.NewService(store, indexsync.NewWorker(store, idx, 1), idx, nil),
		Comments:  comments.NewService(store, nil),
		Notices:   notifications.NewService(store, nil),
		Tokens:    tokens,
	}, config.RateLimitConfig{})

	return &testEnv{handler: srv.Handler(), store: store, tokens: tokens}
}

func (e *testEnv) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		token, err := e.tokens.Issue(Session{UserID: user, Name: user})
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: "auth", Value: token})
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 1, body["documents_in_db"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "filx_api_requests_total")
}

func TestAuthentication(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/feed", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", decode[errorResponse](t, rec).Error)

	t.Run("bearer token", func(t *testing.T) {
		token, err := env.tokens.Issue(Session{UserID: "alice"})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/api/user-counts", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		env.tokens.now = func() time.Time { return time.Now().Add(-30 * 24 * time.Hour) }
		token, err := env.tokens.Issue(Session{UserID: "alice"})
		env.tokens.now = time.Now
		require.NoError(t, err)

		_, err = env.tokens.Resolve(bearer(token))
		assert.ErrorIs(t, err, models.ErrUnauthenticated)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewTokenManager(config.AuthConfig{JWTSecret: strings.Repeat("x", 32), TokenTTL: time.Hour, Issuer: "filx"})
		require.NoError(t, err)
		token, err := other.Issue(Session{UserID: "alice"})
		require.NoError(t, err)

		_, err = env.tokens.Resolve(bearer(token))
		assert.ErrorIs(t, err, models.ErrUnauthenticated)
	})
}

func bearer(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestLikeFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/interactions/like", "alice", map[string]string{"documentId": "d1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, social.LikeResult{Liked: true, LikeCount: 1}, decode[social.LikeResult](t, rec))

	rec = env.do(t, http.MethodGet, "/api/interactions/status?documentId=d1", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[social.Status](t, rec)
	assert.True(t, st.Liked)
	assert.Equal(t, 1, st.LikeCount)

	rec = env.do(t, http.MethodGet, "/api/interactions/likes", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]social.SavedDocument](t, rec), 1)

	rec = env.do(t, http.MethodGet, "/api/trending-documents", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	trending := decode[[]explore.TrendingDocument](t, rec)
	require.Len(t, trending, 1)
	assert.Equal(t, 1, trending[0].Likes)
}

func TestErrorMapping(t *testing.T) {
	env := newTestEnv(t)

	t.Run("missing field is 400 with details", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/interactions/like", "alice", map[string]string{})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		body := decode[errorResponse](t, rec)
		assert.Equal(t, "Missing required field", body.Error)
		require.Len(t, body.Details, 1)
		assert.Equal(t, "documentId", body.Details[0].Field)
	})

	t.Run("self follow", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/interactions/follow", "alice", map[string]string{"targetUserId": "alice"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Cannot follow yourself", decode[errorResponse](t, rec).Details[0].Message)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/interactions/follow", strings.NewReader("{"))
		token, err := env.tokens.Issue(Session{UserID: "alice"})
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: "auth", Value: token})
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown document is 404", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/documents/nope", "alice", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("editing someone else's document is 403", func(t *testing.T) {
		rec := env.do(t, http.MethodPut, "/api/documents/d1", "alice", map[string]string{"title": "Mine now"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestDocumentLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/documents", "alice", map[string]any{
		"title": "Entropy explained", "content": "thermodynamics", "isPublic": true, "tags": []string{"physics"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	doc := decode[models.Document](t, rec)
	assert.Equal(t, "alice", doc.UserID)

	rec = env.do(t, http.MethodGet, "/api/search?q=thermodynamics&type=documents", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[documents.Results](t, rec)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, doc.ID, res.Documents[0].ID)

	rec = env.do(t, http.MethodGet, "/api/users/alice/documents", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]documents.View](t, rec), 1)

	rec = env.do(t, http.MethodGet, "/api/recent-activity", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	recent := decode[struct {
		Activities []feed.NarratedActivity `json:"activities"`
	}](t, rec)
	require.Len(t, recent.Activities, 1)
	assert.Contains(t, recent.Activities[0].Message, "Entropy explained")

	rec = env.do(t, http.MethodDelete, "/api/documents/"+doc.ID, "alice", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/documents/"+doc.ID, "alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFeedAndExplore(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/interactions/follow", "alice", map[string]string{"targetUserId": "bob"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/feed?limit=10", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	f := decode[feed.Feed](t, rec)
	assert.NotEmpty(t, f.Items)
	assert.False(t, f.HasMore)

	rec = env.do(t, http.MethodGet, "/api/interactions/connections", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	conns := decode[social.Connections](t, rec)
	assert.Equal(t, 1, conns.FollowerCount)

	for _, path := range []string{
		"/api/explore", "/api/trending-topics", "/api/categories",
		"/api/categories/trending", "/api/interactions/feed?includeOwn=true",
		"/api/interactions/bookmarks", "/api/user-counts",
	} {
		rec := env.do(t, http.MethodGet, path, "alice", nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestIsFollowing(t *testing.T) {
	env := newTestEnv(t)

	following := func(user, target string) bool {
		t.Helper()
		rec := env.do(t, http.MethodGet, "/api/interactions/following/"+target, user, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return decode[map[string]bool](t, rec)["isFollowing"]
	}

	assert.False(t, following("alice", "bob"))

	rec := env.do(t, http.MethodPost, "/api/interactions/follow", "alice", map[string]string{"targetUserId": "bob"})
	require.Equal(t, http.StatusOK, rec.Code)

	assert.True(t, following("alice", "bob"))
	assert.False(t, following("bob", "alice"))
	assert.False(t, following("alice", "nobody"))

	rec = env.do(t, http.MethodGet, "/api/interactions/following/bob", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHugePagination(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/interactions/bookmark", "alice", map[string]string{"documentId": "d1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/feed?offset=9223372036854775797", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	f := decode[feed.Feed](t, rec)
	assert.Empty(t, f.Items)
	assert.False(t, f.HasMore)

	rec = env.do(t, http.MethodGet, "/api/interactions/feed?includeOwn=true&page=576460752303423489&limit=16", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := decode[feed.ActivityPage](t, rec)
	assert.Empty(t, page.Activities)

	rec = env.do(t, http.MethodGet, "/api/interactions/bookmarks?page=576460752303423489&limit=16", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, decode[[]social.SavedDocument](t, rec))
}

func TestComments(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/documents/d1/comments", "alice", map[string]string{"content": "Nice work"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[struct {
		Comment comments.View `json:"comment"`
	}](t, rec).Comment
	assert.Equal(t, "Nice work", created.Content)
	assert.Equal(t, "alice", created.Author.Name)

	rec = env.do(t, http.MethodPost, "/api/comments/"+created.ID+"/reply", "bob", map[string]string{"content": "Thanks"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reply := decode[struct {
		Reply comments.View `json:"reply"`
	}](t, rec).Reply
	assert.Equal(t, created.ID, reply.ParentID)

	rec = env.do(t, http.MethodPost, "/api/comments/"+created.ID+"/like", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, comments.LikeResult{Liked: true, LikeCount: 1}, decode[comments.LikeResult](t, rec))

	rec = env.do(t, http.MethodGet, "/api/documents/d1/comments", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	thread := decode[comments.Thread](t, rec)
	assert.Equal(t, 2, thread.Total)

	t.Run("validation", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/documents/d1/comments", "alice", map[string]string{"content": ""})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "content", decode[errorResponse](t, rec).Details[0].Field)

		rec = env.do(t, http.MethodPost, "/api/comments/missing/reply", "alice", map[string]string{"content": "hi"})
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = env.do(t, http.MethodGet, "/api/documents/missing/comments", "alice", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestNotifications(t *testing.T) {
	env := newTestEnv(t)

	// Alice's comment on Bob's document notifies Bob
	rec := env.do(t, http.MethodPost, "/api/documents/d1/comments", "alice", map[string]string{"content": "Hello"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/notifications", "alice", map[string]string{
		"title": "Ping", "message": "Read my reply", "type": "message", "targetUserId": "bob",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/notifications", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	inbox := decode[notifications.Inbox](t, rec)
	require.Len(t, inbox.Notifications, 2)
	assert.Equal(t, 2, inbox.Unread)

	rec = env.do(t, http.MethodPut, "/api/notifications", "bob", map[string]string{"notificationId": inbox.Notifications[0].ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPut, "/api/notifications", "alice", map[string]string{"notificationId": inbox.Notifications[1].ID})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/notifications", "bob", map[string]bool{"markAll": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Marked 1 notifications as read", decode[notifications.MarkResult](t, rec).Message)

	rec = env.do(t, http.MethodPut, "/api/notifications", "bob", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/notifications", "alice", map[string]string{"title": "Ping"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfileUpdate(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/profile", "alice", map[string]string{"name": "Alice Liddell"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Alice Liddell", decode[models.User](t, rec).Name)

	rec = env.do(t, http.MethodPut, "/api/profile", "alice", map[string]string{"avatarUrl": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t)
	srv := NewServer(Deps{Tokens: env.tokens}, config.RateLimitConfig{Enabled: true, Requests: 1, Window: time.Minute})
	h := srv.Handler()

	codes := make([]int, 0, 2)
	for range 2 {
		req := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	// Unauthenticated, so the first is rejected by the session check
	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusTooManyRequests}, codes)
}
