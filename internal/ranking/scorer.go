package ranking

import (
	"math"
	"sort"
	"time"

	"github.com/prokemal2012/Filx/internal/models"
)

const day = 24 * time.Hour

// Scorer ranks candidate documents for one viewer
type Scorer struct {
	weights Weights
	now     Clock
}

// NewScorer creates a scorer. A nil clock uses the wall clock.
func NewScorer(w Weights, now Clock) *Scorer {
	if now == nil {
		now = SystemClock
	}
	return &Scorer{weights: w, now: now}
}

// ScoredDocument pairs a document with its score for one ranking pass
type ScoredDocument struct {
	Document models.Document
	Score    float64
}

// Score computes the additive relevance of doc. The followed-author bonus and
// the author preference term are independent and may both apply.
func (s *Scorer) Score(doc *models.Document, prefs Preferences, followed map[string]struct{}) float64 {
	return s.score(doc, prefs, followed, s.now())
}

func (s *Scorer) score(doc *models.Document, prefs Preferences, followed map[string]struct{}, now time.Time) float64 {
	w := s.weights
	var score float64

	// 1. Followed author
	if _, ok := followed[doc.UserID]; ok {
		score += w.FollowedAuthorBonus
	}

	// 2. Category preference
	if doc.Category != "" {
		if weight, ok := prefs.Categories[doc.Category]; ok {
			score += w.Category * weight
		}
	}

	// 3. Tag preference, summed over matching tags
	for _, tag := range doc.Tags {
		if weight, ok := prefs.Tags[tag]; ok {
			score += w.Tag * weight
		}
	}

	// 4. Author preference
	if weight, ok := prefs.Authors[doc.UserID]; ok {
		score += w.Author * weight
	}

	// 5. Recency, linear decay floored at zero
	days := now.Sub(doc.CreatedAt).Hours() / day.Hours()
	score += math.Max(0, w.RecencyDays-days)

	// 6. Visibility
	if doc.IsPublic {
		score += w.Public
	}

	return score
}

// ScoreAll scores every document not owned by viewerID and returns them
// ordered by score, highest first. Equal scores keep input order.
func (s *Scorer) ScoreAll(docs []models.Document, viewerID string, prefs Preferences, followed map[string]struct{}) []ScoredDocument {
	now := s.now()

	scored := make([]ScoredDocument, 0, len(docs))
	for i := range docs {
		if docs[i].UserID == viewerID {
			continue
		}
		scored = append(scored, ScoredDocument{
			Document: docs[i],
			Score:    s.score(&docs[i], prefs, followed, now),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return scored
}
