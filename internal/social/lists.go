package social

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prokemal2012/Filx/internal/models"
	"github.com/prokemal2012/Filx/internal/storage"
	"github.com/prokemal2012/Filx/internal/validation"
)

// DefaultBookmarkLimit is the bookmark page size when none is given
const DefaultBookmarkLimit = 10

// Status is the viewer's relation to a document or user plus its counters
type Status struct {
	Liked         bool `json:"liked"`
	Bookmarked    bool `json:"bookmarked"`
	Following     bool `json:"following"`
	LikeCount     int  `json:"likeCount"`
	BookmarkCount int  `json:"bookmarkCount"`
	FollowerCount int  `json:"followerCount"`
}

// Status reports how userID relates to targetID. targetType must be
// "document" or "user".
func (s *Service) Status(ctx context.Context, userID, targetID, targetType string) (*Status, error) {
	var missing []models.FieldError
	if targetID == "" {
		missing = append(missing, models.FieldError{Field: "targetId", Message: "Target ID is required"})
	}
	if targetType == "" {
		missing = append(missing, models.FieldError{Field: "targetType", Message: "Target type is required"})
	}
	if len(missing) > 0 {
		return nil, &models.ValidationError{Message: "Missing required parameters", Details: missing}
	}
	if _, err := models.ParseTargetType(targetType); err != nil {
		return nil, models.NewFieldError("Invalid target type", "targetType", `Target type must be "document" or "user"`)
	}

	edges, err := s.store.QueryInteractions(ctx, storage.InteractionFilter{TargetID: targetID})
	if err != nil {
		return nil, err
	}

	st := &Status{}
	for _, e := range edges {
		mine := e.UserID == userID
		switch e.Type {
		case models.InteractionLike:
			st.LikeCount++
			st.Liked = st.Liked || mine
		case models.InteractionBookmark:
			st.BookmarkCount++
			st.Bookmarked = st.Bookmarked || mine
		case models.InteractionFollow:
			st.FollowerCount++
			st.Following = st.Following || mine
		}
	}
	return st, nil
}

// Counts summarizes what a user has liked, bookmarked and followed
type Counts struct {
	Favorites int `json:"favorites"`
	Bookmarks int `json:"bookmarks"`
	Following int `json:"following"`
}

// UserCounts returns the interaction totals made by userID
func (s *Service) UserCounts(ctx context.Context, userID string) (*Counts, error) {
	edges, err := s.store.QueryInteractions(ctx, storage.InteractionFilter{UserID: userID})
	if err != nil {
		return nil, err
	}

	c := &Counts{}
	for i := range edges {
		switch {
		case edges[i].Type == models.InteractionLike:
			c.Favorites++
		case edges[i].Type == models.InteractionBookmark:
			c.Bookmarks++
		case edges[i].IsFollow():
			c.Following++
		}
	}
	return c, nil
}

// SavedDocument is a liked or bookmarked document with the time it was saved
type SavedDocument struct {
	models.Document
	Author  models.AuthorSummary `json:"author"`
	SavedAt time.Time            `json:"savedAt"`
}

// Bookmarks returns a page of the user's bookmarked documents, most recently
// bookmarked first. page is 1-based.
func (s *Service) Bookmarks(ctx context.Context, userID string, page, limit int) ([]SavedDocument, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultBookmarkLimit
	}

	edges, err := s.saved(ctx, userID, models.InteractionBookmark)
	if err != nil {
		return nil, err
	}

	// Compare pages before multiplying so a huge page cannot wrap negative
	pages := len(edges) / limit
	if len(edges)%limit != 0 {
		pages++
	}
	if page > pages {
		return []SavedDocument{}, nil
	}
	start := (page - 1) * limit
	end := start + min(limit, len(edges)-start)
	return s.resolveSaved(ctx, userID, edges[start:end])
}

// Likes returns every document the user has liked, most recently liked first
func (s *Service) Likes(ctx context.Context, userID string) ([]SavedDocument, error) {
	edges, err := s.saved(ctx, userID, models.InteractionLike)
	if err != nil {
		return nil, err
	}
	return s.resolveSaved(ctx, userID, edges)
}

func (s *Service) saved(ctx context.Context, userID string, kind models.InteractionType) ([]models.Interaction, error) {
	edges, err := s.store.QueryInteractions(ctx, storage.InteractionFilter{
		UserID:     userID,
		TargetType: models.TargetDocument,
		Type:       kind,
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(edges, func(i, j int) bool {
		return edges[i].Timestamp.After(edges[j].Timestamp)
	})
	return edges, nil
}

// resolveSaved joins edges onto their documents. Deleted documents, and
// documents that have since become private to someone else, are skipped.
func (s *Service) resolveSaved(ctx context.Context, userID string, edges []models.Interaction) ([]SavedDocument, error) {
	out := make([]SavedDocument, 0, len(edges))
	authors := make(map[string]models.AuthorSummary)
	for _, e := range edges {
		doc, err := s.store.GetDocument(ctx, e.TargetID)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !doc.VisibleTo(userID) {
			continue
		}

		author, ok := authors[doc.UserID]
		if !ok {
			author, err = s.author(ctx, doc.UserID)
			if err != nil {
				return nil, err
			}
			authors[doc.UserID] = author
		}
		out = append(out, SavedDocument{Document: *doc, Author: author, SavedAt: e.Timestamp})
	}
	return out, nil
}

func (s *Service) author(ctx context.Context, id string) (models.AuthorSummary, error) {
	u, err := s.store.GetUser(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return models.UnknownAuthor(id), nil
	}
	if err != nil {
		return models.AuthorSummary{}, err
	}
	return u.Summary(), nil
}

// ProfileUpdate carries the editable profile fields. Nil fields are left as is.
type ProfileUpdate struct {
	Name      *string `json:"name" validate:"omitempty,min=1,max=100"`
	Bio       *string `json:"bio" validate:"omitempty,max=500"`
	AvatarURL *string `json:"avatarUrl" validate:"omitempty,url"`
}

// UpdateProfile applies upd to the user and records profile.updated
func (s *Service) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*models.User, error) {
	trim(upd.Name)
	trim(upd.Bio)
	trim(upd.AvatarURL)
	if err := validation.Struct("Invalid profile data", upd); err != nil {
		return nil, err
	}

	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Bio != nil {
		u.Bio = *upd.Bio
	}
	if upd.AvatarURL != nil {
		u.AvatarURL = *upd.AvatarURL
	}

	if err := s.store.UpsertUser(ctx, *u); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	s.record(ctx, userID, models.ActionProfileUpdated, models.EntityUser, userID, models.ActivityDetails{})
	return u, nil
}

func trim(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}
