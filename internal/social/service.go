// Package social answers follower queries over the interaction log and
// applies the like, bookmark and follow toggles.
package social

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/prokemal2012/Filx/internal/logging"
	"github.com/prokemal2012/Filx/internal/metrics"
	"github.com/prokemal2012/Filx/internal/models"
	"github.com/prokemal2012/Filx/internal/ranking"
	"github.com/prokemal2012/Filx/internal/storage"
)

// Store is the subset of storage the social service uses
type Store interface {
	storage.InteractionStore
	storage.ActivityStore
	storage.DocumentStore
	storage.UserStore
}

// Service applies toggles and answers graph queries
type Service struct {
	store Store
	now   ranking.Clock
	newID func() string
}

// NewService creates a social service. A nil clock uses the wall clock.
func NewService(store Store, now ranking.Clock) *Service {
	if now == nil {
		now = ranking.SystemClock
	}
	return &Service{store: store, now: now, newID: uuid.NewString}
}

// LikeResult is the outcome of a like toggle
type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"likeCount"`
}

// BookmarkResult is the outcome of a bookmark toggle
type BookmarkResult struct {
	Bookmarked    bool `json:"bookmarked"`
	BookmarkCount int  `json:"bookmarkCount"`
}

// FollowResult is the outcome of a follow toggle
type FollowResult struct {
	Following     bool `json:"following"`
	FollowerCount int  `json:"followerCount"`
}

// ToggleLike likes documentID, or unlikes it if already liked
func (s *Service) ToggleLike(ctx context.Context, userID, documentID string) (*LikeResult, error) {
	if documentID == "" {
		return nil, models.NewFieldError("Missing required field", "documentId", "Document ID is required")
	}
	doc, err := s.visibleDocument(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}

	res, err := s.toggle(ctx, models.Interaction{
		UserID:     userID,
		TargetID:   doc.ID,
		TargetType: models.TargetDocument,
		Type:       models.InteractionLike,
		Document:   models.SnapshotDocument(doc),
	})
	if err != nil {
		return nil, err
	}

	action := models.ActionDocumentUnliked
	if res.Active {
		action = models.ActionDocumentLiked
	}
	count := res.Count
	s.record(ctx, userID, action, models.EntityDocument, doc.ID, models.ActivityDetails{
		DocumentTitle: doc.Title,
		DocumentOwner: doc.UserID,
		LikeCount:     &count,
	})

	return &LikeResult{Liked: res.Active, LikeCount: res.Count}, nil
}

// ToggleBookmark bookmarks documentID, or removes the bookmark. Only adding
// a bookmark is recorded as an activity.
func (s *Service) ToggleBookmark(ctx context.Context, userID, documentID string) (*BookmarkResult, error) {
	if documentID == "" {
		return nil, models.NewFieldError("Missing required field", "documentId", "Document ID is required")
	}
	doc, err := s.visibleDocument(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}

	res, err := s.toggle(ctx, models.Interaction{
		UserID:     userID,
		TargetID:   doc.ID,
		TargetType: models.TargetDocument,
		Type:       models.InteractionBookmark,
		Document:   models.SnapshotDocument(doc),
	})
	if err != nil {
		return nil, err
	}

	if res.Active {
		s.record(ctx, userID, models.ActionDocumentBookmarked, models.EntityDocument, doc.ID, models.ActivityDetails{
			DocumentTitle: doc.Title,
			DocumentOwner: doc.UserID,
		})
	}

	return &BookmarkResult{Bookmarked: res.Active, BookmarkCount: res.Count}, nil
}

// ToggleFollow follows targetUserID, or unfollows. Following records an
// activity for both users; unfollowing records one for the follower.
func (s *Service) ToggleFollow(ctx context.Context, userID, targetUserID string) (*FollowResult, error) {
	if targetUserID == "" {
		return nil, models.NewFieldError("Missing required field", "targetUserId", "Target user ID is required")
	}
	if targetUserID == userID {
		return nil, models.NewFieldError("Invalid operation", "targetUserId", "Cannot follow yourself")
	}

	target, err := s.store.GetUser(ctx, targetUserID)
	if err != nil {
		return nil, err
	}

	res, err := s.toggle(ctx, models.Interaction{
		UserID:     userID,
		TargetID:   target.ID,
		TargetType: models.TargetUser,
		Type:       models.InteractionFollow,
		Followee:   &models.FolloweeSnapshot{Name: target.Name},
	})
	if err != nil {
		return nil, err
	}

	count := res.Count
	if !res.Active {
		s.record(ctx, userID, models.ActionUserUnfollowed, models.EntityUser, target.ID, models.ActivityDetails{
			TargetUserName: target.Name,
			FollowerCount:  &count,
		})
		return &FollowResult{Following: false, FollowerCount: count}, nil
	}

	s.record(ctx, userID, models.ActionUserFollowed, models.EntityUser, target.ID, models.ActivityDetails{
		TargetUserName: target.Name,
	})

	followerName := models.UnknownUserName
	if follower, err := s.store.GetUser(ctx, userID); err == nil {
		followerName = follower.Name
	} else if !errors.Is(err, models.ErrNotFound) {
		logging.Ctx(ctx).Warn().Err(err).Str("user", userID).Msg("failed to resolve follower name")
	}
	s.record(ctx, target.ID, models.ActionUserGainedFollower, models.EntityUser, userID, models.ActivityDetails{
		FollowerName:  followerName,
		FollowerCount: &count,
	})

	return &FollowResult{Following: true, FollowerCount: count}, nil
}

// visibleDocument loads a document the user may interact with. Private
// documents of others are reported as not found.
func (s *Service) visibleDocument(ctx context.Context, userID, documentID string) (*models.Document, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !doc.VisibleTo(userID) {
		return nil, fmt.Errorf("document %s: %w", documentID, models.ErrNotFound)
	}
	return doc, nil
}

func (s *Service) toggle(ctx context.Context, in models.Interaction) (storage.ToggleResult, error) {
	in.ID = s.newID()
	in.Timestamp = s.now()

	res, err := s.store.ToggleInteraction(ctx, in)
	if err != nil {
		return storage.ToggleResult{}, fmt.Errorf("toggle %s: %w", in.Type, err)
	}

	metrics.RecordToggle(string(in.Type), res.Active)
	logging.Ctx(ctx).Debug().
		Str("user", in.UserID).
		Str("target", in.TargetID).
		Str("type", string(in.Type)).
		Bool("active", res.Active).
		Int("count", res.Count).
		Msg("interaction toggled")
	return res, nil
}

// record appends an activity. It runs after the state change has committed,
// so a failure is logged and the caller still reports the change.
func (s *Service) record(ctx context.Context, userID, action string, entity models.EntityType, entityID string, details models.ActivityDetails) {
	err := s.store.AppendActivity(ctx, models.Activity{
		ID:         s.newID(),
		UserID:     userID,
		Action:     action,
		EntityType: entity,
		EntityID:   entityID,
		Timestamp:  s.now(),
		Details:    details,
	})
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("user", userID).
			Str("action", action).
			Str("entity", entityID).
			Msg("failed to record activity")
	}
}
