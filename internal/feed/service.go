// Package feed assembles personalized feeds from scored documents and the
// activity log of followed users.
package feed

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/prokemal2012/Filx/internal/models"
	"github.com/prokemal2012/Filx/internal/ranking"
	"github.com/prokemal2012/Filx/internal/storage"
)

// Default page sizes
const (
	DefaultLimit         = 20
	DefaultActivityLimit = 20
	DefaultRecentLimit   = 10
)

// Store is the subset of storage the feed reads
type Store interface {
	storage.InteractionStore
	storage.ActivityStore
	storage.DocumentStore
	storage.UserStore
}

// Service builds feeds
type Service struct {
	store   Store
	weights ranking.Weights
	scorer  *ranking.Scorer
}

// NewService creates a feed service. A nil clock uses the wall clock.
func NewService(store Store, weights ranking.Weights, now ranking.Clock) *Service {
	return &Service{
		store:   store,
		weights: weights,
		scorer:  ranking.NewScorer(weights, now),
	}
}

// snapshot is one consistent read of everything a feed request needs
type snapshot struct {
	interactions []models.Interaction // the viewer's own
	documents    []models.Document
	users        map[string]*models.User
	followed     []string
}

// load reads the viewer's interactions, all documents and all users in parallel
func (s *Service) load(ctx context.Context, userID string) (*snapshot, error) {
	snap := &snapshot{}
	var users []models.User

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.interactions, err = s.store.QueryInteractions(gctx, storage.InteractionFilter{UserID: userID})
		if err != nil {
			return fmt.Errorf("load interactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		snap.documents, err = s.store.ListDocuments(gctx, storage.DocumentFilter{})
		if err != nil {
			return fmt.Errorf("load documents: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		users, err = s.store.ListUsers(gctx)
		if err != nil {
			return fmt.Errorf("load users: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap.users = models.IndexUsers(users)
	snap.followed = ranking.FollowedAuthors(snap.interactions, userID)
	return snap, nil
}

// followedUsers returns the ids userID follows
func (s *Service) followedUsers(ctx context.Context, userID string) ([]string, error) {
	follows, err := s.store.QueryInteractions(ctx, storage.InteractionFilter{
		UserID:     userID,
		Type:       models.InteractionFollow,
		TargetType: models.TargetUser,
	})
	if err != nil {
		return nil, fmt.Errorf("load follows: %w", err)
	}
	return ranking.FollowedAuthors(follows, userID), nil
}

// resolveUser joins id onto the user store, degrading to the placeholder
func (s *Service) resolveUser(ctx context.Context, cache map[string]models.AuthorSummary, id string) (models.AuthorSummary, error) {
	if summary, ok := cache[id]; ok {
		return summary, nil
	}
	summary := models.UnknownAuthor(id)
	u, err := s.store.GetUser(ctx, id)
	switch {
	case err == nil:
		summary = u.Summary()
	case !isNotFound(err):
		return models.AuthorSummary{}, err
	}
	cache[id] = summary
	return summary, nil
}
