package ranking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prokemal2012/Filx/internal/models"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func like(user, doc, category string, tags ...string) models.Interaction {
	return models.Interaction{
		ID: user + "-like-" + doc, UserID: user, TargetID: doc,
		TargetType: models.TargetDocument, Type: models.InteractionLike, Timestamp: now,
		Document: &models.DocumentSnapshot{Title: doc, Category: category, Tags: tags},
	}
}

func follow(user, target string) models.Interaction {
	return models.Interaction{
		ID: user + "-follow-" + target, UserID: user, TargetID: target,
		TargetType: models.TargetUser, Type: models.InteractionFollow, Timestamp: now,
		Followee: &models.FolloweeSnapshot{Name: target},
	}
}

func TestEstimatePreferences(t *testing.T) {
	w := DefaultWeights()

	t.Run("no interactions yields empty vector", func(t *testing.T) {
		prefs := EstimatePreferences(nil, "alice", w)
		assert.True(t, prefs.Empty())
		assert.NotNil(t, prefs.Categories)
	})

	t.Run("ignores other users", func(t *testing.T) {
		prefs := EstimatePreferences([]models.Interaction{like("bob", "d1", "Science")}, "alice", w)
		assert.True(t, prefs.Empty())
	})

	t.Run("weights by interaction type", func(t *testing.T) {
		bookmark := like("alice", "d2", "Science", "physics")
		bookmark.Type = models.InteractionBookmark

		prefs := EstimatePreferences([]models.Interaction{
			like("alice", "d1", "Science", "physics", "math"),
			bookmark,
			follow("alice", "bob"),
		}, "alice", w)

		assert.Equal(t, 8.0, prefs.Categories["Science"])
		assert.Equal(t, 8.0, prefs.Tags["physics"])
		assert.Equal(t, 3.0, prefs.Tags["math"])
		assert.Equal(t, 2.0, prefs.Authors["bob"])
		assert.Len(t, prefs.Authors, 1)
	})

	t.Run("likes never populate authors", func(t *testing.T) {
		prefs := EstimatePreferences([]models.Interaction{like("alice", "d1", "")}, "alice", w)
		assert.Empty(t, prefs.Authors)
		assert.Empty(t, prefs.Categories)
	})
}

func TestFollowedAuthors(t *testing.T) {
	interactions := []models.Interaction{
		follow("alice", "bob"),
		like("alice", "d1", "Science"),
		follow("carol", "dave"),
		follow("alice", "erin"),
	}
	assert.Equal(t, []string{"bob", "erin"}, FollowedAuthors(interactions, "alice"))
	assert.Nil(t, FollowedAuthors(interactions, "nobody"))
}

func TestScore(t *testing.T) {
	scorer := NewScorer(DefaultWeights(), FixedClock(now))

	t.Run("empty preferences reduce to recency and visibility", func(t *testing.T) {
		doc := &models.Document{UserID: "bob", CreatedAt: now.Add(-5 * day), IsPublic: true}
		assert.InDelta(t, 15.0+5.0, scorer.Score(doc, NewPreferences(), nil), 1e-9)
	})

	t.Run("recency floors at zero", func(t *testing.T) {
		doc := &models.Document{UserID: "bob", CreatedAt: now.Add(-45 * day)}
		assert.Equal(t, 0.0, scorer.Score(doc, NewPreferences(), nil))
	})

	t.Run("recency decays fractionally", func(t *testing.T) {
		doc := &models.Document{UserID: "bob", CreatedAt: now.Add(-12 * time.Hour)}
		assert.InDelta(t, 19.5, scorer.Score(doc, NewPreferences(), nil), 1e-9)
	})

	t.Run("all terms add up", func(t *testing.T) {
		prefs := NewPreferences()
		prefs.Categories["Science"] = 3
		prefs.Tags["physics"] = 5
		prefs.Tags["math"] = 3
		prefs.Authors["bob"] = 2

		doc := &models.Document{
			UserID:    "bob",
			Category:  "Science",
			Tags:      []string{"physics", "math", "art"},
			IsPublic:  true,
			CreatedAt: now,
		}
		followed := Set([]string{"bob"})

		// 100 + 2*3 + (5+3) + 1.5*2 + 20 + 5
		assert.InDelta(t, 142.0, scorer.Score(doc, prefs, followed), 1e-9)
	})
}

func TestScoreAll(t *testing.T) {
	scorer := NewScorer(DefaultWeights(), FixedClock(now))

	docs := []models.Document{
		{ID: "mine", UserID: "alice", CreatedAt: now, IsPublic: true},
		{ID: "old", UserID: "bob", CreatedAt: now.Add(-30 * day)},
		{ID: "a", UserID: "carol", CreatedAt: now.Add(-2 * day)},
		{ID: "b", UserID: "dave", CreatedAt: now.Add(-2 * day)},
		{ID: "followed", UserID: "erin", CreatedAt: now.Add(-60 * day)},
	}

	scored := scorer.ScoreAll(docs, "alice", NewPreferences(), Set([]string{"erin"}))
	require.Len(t, scored, 4)

	var ids []string
	for _, s := range scored {
		ids = append(ids, s.Document.ID)
		assert.NotEqual(t, "alice", s.Document.UserID)
	}
	assert.Equal(t, []string{"followed", "a", "b", "old"}, ids)
}
