package social

import (
	"context"
	"errors"
	"sort"

	"github.com/prokemal2012/Filx/internal/models"
	"github.com/prokemal2012/Filx/internal/storage"
)

// Connections lists both sides of a user's follow graph
type Connections struct {
	Followers      []models.User `json:"followers"`
	Following      []models.User `json:"following"`
	FollowerCount  int           `json:"followerCount"`
	FollowingCount int           `json:"followingCount"`
}

// Connections returns who follows userID and whom userID follows. Edges
// whose user no longer exists are left out of both the lists and the counts.
func (s *Service) Connections(ctx context.Context, userID string) (*Connections, error) {
	followers, err := s.Followers(ctx, userID)
	if err != nil {
		return nil, err
	}
	following, err := s.Following(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Connections{
		Followers:      followers,
		Following:      following,
		FollowerCount:  len(followers),
		FollowingCount: len(following),
	}, nil
}

// Followers returns the users following userID, newest account first
func (s *Service) Followers(ctx context.Context, userID string) ([]models.User, error) {
	edges, err := s.store.QueryInteractions(ctx, storage.InteractionFilter{
		TargetID:   userID,
		TargetType: models.TargetUser,
		Type:       models.InteractionFollow,
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.UserID)
	}
	return s.users(ctx, ids)
}

// Following returns the users userID follows, newest account first
func (s *Service) Following(ctx context.Context, userID string) ([]models.User, error) {
	edges, err := s.store.QueryInteractions(ctx, storage.InteractionFilter{
		UserID:     userID,
		TargetType: models.TargetUser,
		Type:       models.InteractionFollow,
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.TargetID)
	}
	return s.users(ctx, ids)
}

// IsFollowing reports whether userID follows targetID
func (s *Service) IsFollowing(ctx context.Context, userID, targetID string) (bool, error) {
	n, err := s.store.CountInteractions(ctx, storage.InteractionFilter{
		UserID:     userID,
		TargetID:   targetID,
		TargetType: models.TargetUser,
		Type:       models.InteractionFollow,
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// users resolves ids, skipping dangling references
func (s *Service) users(ctx context.Context, ids []string) ([]models.User, error) {
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		u, err := s.store.GetUser(ctx, id)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
