package search

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prokemal2012/Filx/internal/models"
)

func fixtureDocs() []models.Document {
	created := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	return []models.Document{
		{ID: "d1", UserID: "alice", Title: "Quantum computing primer", Content: "Qubits and gates", Category: "Science", Tags: []string{"physics"}, IsPublic: true, CreatedAt: created},
		{ID: "d2", UserID: "bob", Title: "Quantum notes", Content: "Private scratch work", Category: "Science", IsPublic: false, CreatedAt: created},
		{ID: "d3", UserID: "carol", Title: "Bread baking", Content: "Flour water salt", Category: "Cooking", IsPublic: true, CreatedAt: created},
	}
}

func ids(results []*Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.ID)
	}
	return out
}

func TestIndexSearch(t *testing.T) {
	idx, err := OpenMem()
	require.NoError(t, err)
	defer idx.Close()

	docs := fixtureDocs()
	for i := range docs {
		require.NoError(t, idx.IndexDocument(&docs[i]))
	}

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	t.Run("private documents hidden from others", func(t *testing.T) {
		res, err := idx.Search(Query{Text: "quantum", ViewerID: "alice"})
		require.NoError(t, err)
		assert.Equal(t, []string{"d1"}, ids(res))
		assert.Equal(t, "Quantum computing primer", res[0].Title)
	})

	t.Run("owner sees private documents", func(t *testing.T) {
		res, err := idx.Search(Query{Text: "quantum", ViewerID: "bob"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"d1", "d2"}, ids(res))
	})

	t.Run("category filter", func(t *testing.T) {
		res, err := idx.Search(Query{Text: "bread quantum", ViewerID: "alice", Category: "Cooking"})
		require.NoError(t, err)
		assert.Equal(t, []string{"d3"}, ids(res))
	})

	t.Run("owner filter", func(t *testing.T) {
		res, err := idx.Search(Query{Text: "quantum", ViewerID: "bob", OwnerID: "bob"})
		require.NoError(t, err)
		assert.Equal(t, []string{"d2"}, ids(res))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, idx.Delete("d3"))
		res, err := idx.Search(Query{Text: "bread", ViewerID: "alice"})
		require.NoError(t, err)
		assert.Empty(t, res)
	})
}

func TestSearchRejectsMalformedQuery(t *testing.T) {
	idx, err := OpenMem()
	require.NoError(t, err)
	defer idx.Close()

	for _, text := range []string{`"unterminated`, "title:", "+"} {
		_, err := idx.Search(Query{Text: text})
		assert.ErrorIs(t, err, models.ErrInvalidInput, text)

		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr, text)
		assert.Equal(t, "q", verr.Details[0].Field)
	}
}

func TestOpenPersistent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.bleve")

	idx, err := Open(path)
	require.NoError(t, err)
	doc := fixtureDocs()[0]
	require.NoError(t, idx.IndexDocument(&doc))
	require.NoError(t, idx.Close())

	idx, err = Open(path)
	require.NoError(t, err)
	defer idx.Close()

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}
