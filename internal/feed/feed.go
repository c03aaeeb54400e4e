package feed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/prokemal2012/Filx/internal/logging"
	"github.com/prokemal2012/Filx/internal/models"
	"github.com/prokemal2012/Filx/internal/ranking"
	"github.com/prokemal2012/Filx/internal/storage"
)

// ItemType distinguishes feed entries
type ItemType string

const (
	ItemRecentDocument ItemType = "recent_document"
	ItemActivity       ItemType = "activity"
)

// Item is one feed entry. Exactly one of Document and Activity is set.
type Item struct {
	ID        string                   `json:"id"`
	Type      ItemType                 `json:"type"`
	Timestamp time.Time                `json:"timestamp"`
	Document  *DocumentItem            `json:"document,omitempty"`
	Activity  *models.EnrichedActivity `json:"activity,omitempty"`
}

// DocumentItem is a scored candidate document joined with its author
type DocumentItem struct {
	models.Document
	Author models.AuthorSummary `json:"author"`
	Score  float64              `json:"score"`
}

// Stats summarizes how a feed was built
type Stats struct {
	FollowingCount  int `json:"followingCount"`
	ActivitiesCount int `json:"activitiesCount"`
	TrendingCount   int `json:"trendingCount"`
	RecentCount     int `json:"recentCount"`
}

// Feed is one page of a personalized feed
type Feed struct {
	Items   []Item `json:"items"`
	Total   int    `json:"total"`
	HasMore bool   `json:"hasMore"`
	Stats   Stats  `json:"stats"`
}

// GetFeed builds the personalized feed of userID and returns the page
// [offset, offset+limit). Documents are selected by score, then every item is
// ordered by time.
func (s *Service) GetFeed(ctx context.Context, userID string, limit, offset int) (*Feed, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if offset < 0 {
		offset = 0
	}

	// 1. Read one snapshot of the stores
	snap, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	// 2. Score every visible candidate
	prefs := ranking.EstimatePreferences(snap.interactions, userID, s.weights)
	candidates := make([]models.Document, 0, len(snap.documents))
	docsByID := make(map[string]*models.Document, len(snap.documents))
	for i := range snap.documents {
		doc := &snap.documents[i]
		docsByID[doc.ID] = doc
		if doc.VisibleTo(userID) {
			candidates = append(candidates, *doc)
		}
	}
	scored := s.scorer.ScoreAll(candidates, userID, prefs, ranking.Set(snap.followed))

	items := make([]Item, 0, len(scored))
	for i := range scored {
		doc := scored[i].Document
		items = append(items, Item{
			ID:        "document-" + doc.ID,
			Type:      ItemRecentDocument,
			Timestamp: doc.CreatedAt,
			Document: &DocumentItem{
				Document: doc,
				Author:   models.ResolveAuthor(snap.users, doc.UserID),
				Score:    scored[i].Score,
			},
		})
	}

	// 3. Document activities of followed users
	activityCount := 0
	if len(snap.followed) > 0 {
		activities, err := s.store.QueryActivities(ctx, storage.ActivityFilter{
			UserIDs:    snap.followed,
			EntityType: models.EntityDocument,
		})
		if err != nil {
			return nil, fmt.Errorf("load activities: %w", err)
		}

		for _, a := range activities {
			if a.Action == models.ActionUserFollowed {
				continue
			}
			enriched := &models.EnrichedActivity{
				Activity: a,
				User:     models.ResolveAuthor(snap.users, a.UserID),
			}
			if doc, ok := docsByID[a.EntityID]; ok && doc.VisibleTo(userID) {
				enriched.Document = doc.Ref()
			} else if !ok {
				logging.Ctx(ctx).Debug().Str("activity", a.ID).Str("document", a.EntityID).Msg("activity references a missing document")
			}
			items = append(items, Item{
				ID:        "activity-" + a.ID,
				Type:      ItemActivity,
				Timestamp: a.Timestamp,
				Activity:  enriched,
			})
			activityCount++
		}
	}

	// 4. Merge by time and paginate
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})

	total := len(items)
	return &Feed{
		Items:   page(items, offset, limit),
		Total:   total,
		HasMore: hasMore(total, offset, limit),
		Stats: Stats{
			FollowingCount:  len(snap.followed),
			ActivitiesCount: activityCount,
			RecentCount:     len(scored),
		},
	}, nil
}

// page returns items[offset:offset+limit], clamped. It never adds offset
// and limit, so huge values cannot overflow.
func page[T any](items []T, offset, limit int) []T {
	if offset < 0 || offset >= len(items) || limit <= 0 {
		return []T{}
	}
	end := offset + min(limit, len(items)-offset)
	return items[offset:end]
}

// hasMore reports offset+limit < total without computing the sum
func hasMore(total, offset, limit int) bool {
	return offset < total && limit < total-offset
}

// pageOffset converts a 1-based page number to an offset, saturating at
// math.MaxInt instead of wrapping
func pageOffset(pageNum, limit int) int {
	if pageNum < 1 || limit <= 0 {
		return 0
	}
	if pageNum-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (pageNum - 1) * limit
}

func isNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}
