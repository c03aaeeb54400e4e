// Package explore computes the windowed trending lists and the explore page
// sections. None of it depends on a viewer's preferences.
package explore

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/prokemal2012/Filx/internal/models"
	"github.com/prokemal2012/Filx/internal/ranking"
	"github.com/prokemal2012/Filx/internal/storage"
)

// Store is the subset of storage the aggregator reads
type Store interface {
	storage.InteractionStore
	storage.ActivityStore
	storage.DocumentStore
	storage.UserStore
}

// Random is the source of the discovery section. *rand.Rand satisfies it.
type Random interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// globalRandom uses the concurrency-safe top-level generator
type globalRandom struct{}

func (globalRandom) IntN(n int) int                     { return rand.IntN(n) }
func (globalRandom) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// Config tunes the trending window and section sizes
type Config struct {
	Window        time.Duration `koanf:"window" validate:"gt=0"`
	LikeScore     float64       `koanf:"like_score" validate:"gte=0"`
	BookmarkScore float64       `koanf:"bookmark_score" validate:"gte=0"`

	TopicCap      int `koanf:"topic_cap" validate:"gt=0"`
	MinTopics     int `koanf:"min_topics" validate:"gte=0"`
	TopicLimit    int `koanf:"topic_limit" validate:"gt=0"`
	DocumentLimit int `koanf:"document_limit" validate:"gt=0"`
	CategoryLimit int `koanf:"category_limit" validate:"gt=0"`

	Sections SectionSizes `koanf:"sections"`
}

// SectionSizes caps each explore section
type SectionSizes struct {
	Trending       int           `koanf:"trending" validate:"gt=0"`
	Recent         int           `koanf:"recent" validate:"gt=0"`
	PopularAuthors int           `koanf:"popular_authors" validate:"gt=0"`
	Categories     int           `koanf:"categories" validate:"gt=0"`
	CategoryDocs   int           `koanf:"category_docs" validate:"gt=0"`
	Discovery      int           `koanf:"discovery" validate:"gt=0"`
	NewWithin      time.Duration `koanf:"new_within" validate:"gt=0"`
}

// DefaultConfig returns the production configuration
func DefaultConfig() Config {
	return Config{
		Window:        7 * 24 * time.Hour,
		LikeScore:     3,
		BookmarkScore: 2,
		TopicCap:      20,
		MinTopics:     5,
		TopicLimit:    10,
		DocumentLimit: 5,
		CategoryLimit: 10,
		Sections: SectionSizes{
			Trending:       6,
			Recent:         8,
			PopularAuthors: 6,
			Categories:     6,
			CategoryDocs:   3,
			Discovery:      6,
			NewWithin:      24 * time.Hour,
		},
	}
}

// Aggregator computes trending and explore views
type Aggregator struct {
	store Store
	cfg   Config
	now   ranking.Clock
	rng   Random
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithClock sets the clock
func WithClock(now ranking.Clock) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithRandom sets the random source of the discovery section
func WithRandom(rng Random) Option {
	return func(a *Aggregator) { a.rng = rng }
}

// NewAggregator creates an aggregator
func NewAggregator(store Store, cfg Config, opts ...Option) *Aggregator {
	a := &Aggregator{
		store: store,
		cfg:   cfg,
		now:   ranking.SystemClock,
		rng:   globalRandom{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// dataset is one consistent read of the collections a view needs
type dataset struct {
	documents    []models.Document
	users        []models.User
	userIndex    map[string]*models.User
	interactions []models.Interaction
	activities   []models.Activity
}

// loadSpec selects the collections to read; nil skips one
type loadSpec struct {
	documents    *storage.DocumentFilter
	users        bool
	interactions *storage.InteractionFilter
	activities   *storage.ActivityFilter
}

// load reads the requested collections in parallel
func (a *Aggregator) load(ctx context.Context, spec loadSpec) (*dataset, error) {
	ds := &dataset{}
	g, gctx := errgroup.WithContext(ctx)

	if spec.documents != nil {
		g.Go(func() error {
			var err error
			if ds.documents, err = a.store.ListDocuments(gctx, *spec.documents); err != nil {
				return fmt.Errorf("load documents: %w", err)
			}
			return nil
		})
	}
	if spec.users {
		g.Go(func() error {
			var err error
			if ds.users, err = a.store.ListUsers(gctx); err != nil {
				return fmt.Errorf("load users: %w", err)
			}
			return nil
		})
	}
	if spec.interactions != nil {
		g.Go(func() error {
			var err error
			if ds.interactions, err = a.store.QueryInteractions(gctx, *spec.interactions); err != nil {
				return fmt.Errorf("load interactions: %w", err)
			}
			return nil
		})
	}
	if spec.activities != nil {
		g.Go(func() error {
			var err error
			if ds.activities, err = a.store.QueryActivities(gctx, *spec.activities); err != nil {
				return fmt.Errorf("load activities: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	ds.userIndex = models.IndexUsers(ds.users)
	return ds, nil
}

// windowStart is the beginning of the trailing trending window
func (a *Aggregator) windowStart(now time.Time) time.Time {
	return now.Add(-a.cfg.Window)
}

// interactionScore is the trending weight of one document interaction
func (a *Aggregator) interactionScore(t models.InteractionType) float64 {
	switch t {
	case models.InteractionLike:
		return a.cfg.LikeScore
	case models.InteractionBookmark:
		return a.cfg.BookmarkScore
	}
	return 0
}

// newestFirst orders documents by creation time, newest first, keeping
// input order on ties
func newestFirst(docs []models.Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
}

func limitOr(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return limit
}

func truncate[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
