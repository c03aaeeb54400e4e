package feed

import (
	"context"
	"fmt"

	"github.com/prokemal2012/Filx/internal/logging"
	"github.com/prokemal2012/Filx/internal/models"
	"github.com/prokemal2012/Filx/internal/storage"
)

// ActivityItem is an enriched activity with the engagement of its document
type ActivityItem struct {
	models.EnrichedActivity
	Likes        int  `json:"likes"`
	Bookmarks    int  `json:"bookmarks"`
	IsLiked      bool `json:"isLiked"`
	IsBookmarked bool `json:"isBookmarked"`
}

// ActivityPage is one page of the activity feed
type ActivityPage struct {
	Activities []ActivityItem `json:"activities"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
}

// ActivityFeed returns the activities of the users userID follows, newest
// first. The viewer's own activities are included when includeOwn is set or
// when they follow nobody. page is 1-based.
func (s *Service) ActivityFeed(ctx context.Context, userID string, pageNum, limit int, includeOwn bool) (*ActivityPage, error) {
	if pageNum < 1 {
		pageNum = 1
	}
	if limit <= 0 {
		limit = DefaultActivityLimit
	}

	followed, err := s.followedUsers(ctx, userID)
	if err != nil {
		return nil, err
	}

	relevant := followed
	if includeOwn || len(followed) == 0 {
		relevant = append(append([]string{}, followed...), userID)
	}

	activities, err := s.store.QueryActivities(ctx, storage.ActivityFilter{UserIDs: relevant})
	if err != nil {
		return nil, fmt.Errorf("load activities: %w", err)
	}

	paged := page(activities, pageOffset(pageNum, limit), limit)
	users := make(map[string]models.AuthorSummary)
	items := make([]ActivityItem, 0, len(paged))

	for _, a := range paged {
		author, err := s.resolveUser(ctx, users, a.UserID)
		if err != nil {
			return nil, err
		}
		item := ActivityItem{EnrichedActivity: models.EnrichedActivity{Activity: a, User: author}}

		if a.EntityType == models.EntityDocument {
			if err := s.engagement(ctx, userID, &item); err != nil {
				return nil, err
			}
		}
		items = append(items, item)
	}

	return &ActivityPage{
		Activities: items,
		Total:      len(activities),
		Page:       pageNum,
		Limit:      limit,
	}, nil
}

// engagement fills the document summary and like/bookmark counters of item
func (s *Service) engagement(ctx context.Context, viewerID string, item *ActivityItem) error {
	doc, err := s.store.GetDocument(ctx, item.EntityID)
	if isNotFound(err) {
		logging.Ctx(ctx).Debug().Str("document", item.EntityID).Msg("activity references a missing document")
		return nil
	}
	if err != nil {
		return err
	}
	if !doc.VisibleTo(viewerID) {
		return nil
	}
	item.Document = doc.Ref()

	count := func(f storage.InteractionFilter) (int, error) {
		f.TargetID = doc.ID
		f.TargetType = models.TargetDocument
		return s.store.CountInteractions(ctx, f)
	}

	if item.Likes, err = count(storage.InteractionFilter{Type: models.InteractionLike}); err != nil {
		return err
	}
	if item.Bookmarks, err = count(storage.InteractionFilter{Type: models.InteractionBookmark}); err != nil {
		return err
	}
	liked, err := count(storage.InteractionFilter{UserID: viewerID, Type: models.InteractionLike})
	if err != nil {
		return err
	}
	bookmarked, err := count(storage.InteractionFilter{UserID: viewerID, Type: models.InteractionBookmark})
	if err != nil {
		return err
	}
	item.IsLiked = liked > 0
	item.IsBookmarked = bookmarked > 0
	return nil
}

// Narration kinds
const (
	KindActivity = "activity"
	KindFollow   = "follow"
	KindLike     = "like"
	KindBookmark = "bookmark"
	KindUpload   = "upload"
	KindProfile  = "profile"
)

// narratedActions are the actions shown in a user's recent activity
var narratedActions = map[string]bool{
	models.ActionUserFollowed:       true,
	models.ActionDocumentCreated:    true,
	models.ActionProfileUpdated:     true,
	models.ActionDocumentLiked:      true,
	models.ActionDocumentBookmarked: true,
}

// NarratedActivity is an activity rendered as a sentence
type NarratedActivity struct {
	models.Activity
	Message  string  `json:"message"`
	Kind     string  `json:"type"`
	Document string  `json:"document,omitempty"`
	Avatar   *string `json:"avatar"`
}

// RecentActivity returns the latest narrated activities of userID
func (s *Service) RecentActivity(ctx context.Context, userID string, limit int) ([]NarratedActivity, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	activities, err := s.store.QueryActivities(ctx, storage.ActivityFilter{UserIDs: []string{userID}})
	if err != nil {
		return nil, fmt.Errorf("load activities: %w", err)
	}

	author, err := s.resolveUser(ctx, make(map[string]models.AuthorSummary), userID)
	if err != nil {
		return nil, err
	}

	out := make([]NarratedActivity, 0, limit)
	for _, a := range activities {
		if !narratedActions[a.Action] {
			continue
		}
		out = append(out, narrate(a, author))
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func narrate(a models.Activity, author models.AuthorSummary) NarratedActivity {
	n := NarratedActivity{
		Activity: a,
		Message:  author.Name + " did something",
		Kind:     KindActivity,
		Avatar:   author.AvatarURL,
	}

	d := a.Details
	switch {
	case a.Action == models.ActionUserFollowed && d.TargetUserName != "":
		n.Message = fmt.Sprintf("%s started following %s", author.Name, d.TargetUserName)
		n.Kind = KindFollow
	case a.Action == models.ActionDocumentLiked && d.DocumentTitle != "":
		n.Message = fmt.Sprintf("%s liked \"%s\"", author.Name, d.DocumentTitle)
		n.Kind = KindLike
		n.Document = d.DocumentTitle
	case a.Action == models.ActionDocumentBookmarked && d.DocumentTitle != "":
		n.Message = fmt.Sprintf("%s bookmarked \"%s\"", author.Name, d.DocumentTitle)
		n.Kind = KindBookmark
		n.Document = d.DocumentTitle
	case a.Action == models.ActionDocumentCreated && d.DocumentTitle != "":
		n.Message = fmt.Sprintf("%s uploaded \"%s\"", author.Name, d.DocumentTitle)
		n.Kind = KindUpload
		n.Document = d.DocumentTitle
	case a.Action == models.ActionProfileUpdated:
		n.Message = author.Name + " updated their profile"
		n.Kind = KindProfile
	}
	return n
}
