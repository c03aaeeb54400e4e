package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prokemal2012/Filx/internal/models"
	"github.com/prokemal2012/Filx/internal/ranking"
	"github.com/prokemal2012/Filx/internal/search"
	"github.com/prokemal2012/Filx/internal/storage"
	"github.com/prokemal2012/Filx/internal/storage/memory"
	indexsync "github.com/prokemal2012/Filx/internal/sync"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	for _, id := range []string{"alice", "bob"} {
		require.NoError(t, store.UpsertUser(context.Background(), models.User{ID: id, Name: id, Bio: id + " writes about science"}))
	}

	idx, err := search.OpenMem()
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	worker := indexsync.NewWorker(store, idx, 1)
	return NewService(store, worker, idx, ranking.FixedClock(now)), store
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("stores, records and indexes", func(t *testing.T) {
		svc, store := newService(t)
		doc, err := svc.Create(ctx, "alice", CreateInput{
			Title: "  Quantum Primer ", Content: "qubits", Tags: []string{" physics", "physics", ""}, IsPublic: true,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, doc.ID)
		assert.Equal(t, "Quantum Primer", doc.Title)
		assert.Equal(t, DefaultCategory, doc.Category)
		assert.Equal(t, []string{"physics"}, doc.Tags)
		assert.Equal(t, now, doc.CreatedAt)

		acts, err := store.QueryActivities(ctx, storage.ActivityFilter{UserIDs: []string{"alice"}})
		require.NoError(t, err)
		require.Len(t, acts, 1)
		assert.Equal(t, models.ActionDocumentCreated, acts[0].Action)
		assert.Equal(t, "Quantum Primer", acts[0].Details.DocumentTitle)
		assert.Equal(t, []string{"physics"}, acts[0].Details.Tags)

		hash, err := store.IndexedHash(ctx, doc.ID)
		require.NoError(t, err)
		assert.NotEmpty(t, hash)
	})

	t.Run("title required", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.Create(ctx, "alice", CreateInput{Title: "   "})
		require.ErrorIs(t, err, models.ErrInvalidInput)

		var ve *models.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "title", ve.Details[0].Field)
	})
}

// rejectActivities stores documents but refuses to append activities
type rejectActivities struct {
	*memory.Store
}

func (rejectActivities) AppendActivity(context.Context, models.Activity) error {
	return models.ErrStoreUnavailable
}

func TestCreateSurvivesActivityFailure(t *testing.T) {
	ctx := context.Background()
	_, store := newService(t)
	idx, err := search.OpenMem()
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	svc := NewService(rejectActivities{store}, indexsync.NewWorker(store, idx, 1), idx, ranking.FixedClock(now))

	doc, err := svc.Create(ctx, "alice", CreateInput{Title: "Kept", Content: "body", IsPublic: true})
	require.NoError(t, err)

	stored, err := store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kept", stored.Title)

	hash, err := store.IndexedHash(ctx, doc.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, hash, "indexing still runs")

	require.NoError(t, svc.Delete(ctx, "alice", doc.ID))
	_, err = store.GetDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateDelete(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	doc, err := svc.Create(ctx, "alice", CreateInput{Title: "Draft", IsPublic: true})
	require.NoError(t, err)

	title := "Final"
	private := false

	_, err = svc.Update(ctx, "bob", doc.ID, UpdateInput{Title: &title})
	assert.ErrorIs(t, err, models.ErrForbidden)

	updated, err := svc.Update(ctx, "alice", doc.ID, UpdateInput{Title: &title, IsPublic: &private})
	require.NoError(t, err)
	assert.Equal(t, "Final", updated.Title)
	assert.False(t, updated.IsPublic)

	// Now private, so bob cannot even see it
	_, err = svc.Update(ctx, "bob", doc.ID, UpdateInput{Title: &title})
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "bob", doc.ID), models.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, "alice", doc.ID))
	_, err = store.GetDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	hash, err := store.IndexedHash(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, hash)

	acts, err := store.QueryActivities(ctx, storage.ActivityFilter{UserIDs: []string{"alice"}})
	require.NoError(t, err)
	assert.Len(t, acts, 3)
}

func TestGetAndList(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	pub, err := svc.Create(ctx, "alice", CreateInput{Title: "Public", IsPublic: true})
	require.NoError(t, err)
	priv, err := svc.Create(ctx, "alice", CreateInput{Title: "Private"})
	require.NoError(t, err)

	view, err := svc.Get(ctx, "bob", pub.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", view.Author.Name)

	_, err = svc.Get(ctx, "bob", priv.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = svc.Get(ctx, "alice", priv.ID)
	assert.NoError(t, err)

	mine, err := svc.ListByOwner(ctx, "alice", "alice")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	theirs, err := svc.ListByOwner(ctx, "bob", "alice")
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Equal(t, pub.ID, theirs[0].ID)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.Create(ctx, "alice", CreateInput{Title: "Quantum primer", Content: "entanglement", IsPublic: true})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "bob", CreateInput{Title: "Quantum diary", Content: "entanglement"})
	require.NoError(t, err)

	res, err := svc.Search(ctx, "alice", SearchRequest{Query: "entanglement", Type: "documents"})
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, "Quantum primer", res.Documents[0].Title)
	assert.Nil(t, res.Users)

	res, err = svc.Search(ctx, "bob", SearchRequest{Query: "entanglement"})
	require.NoError(t, err)
	assert.Len(t, res.Documents, 2)

	res, err = svc.Search(ctx, "bob", SearchRequest{Query: "science", Type: "users"})
	require.NoError(t, err)
	assert.Len(t, res.Users, 2)

	_, err = svc.Search(ctx, "bob", SearchRequest{Query: " "})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = svc.Search(ctx, "bob", SearchRequest{Query: "x", Type: "comments"})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = svc.Search(ctx, "bob", SearchRequest{Query: `"unterminated`})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Invalid search query", verr.Message)
}
