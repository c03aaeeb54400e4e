// Package comments holds discussion threads on documents: comments,
// replies and comment likes.
package comments

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/prokemal2012/Filx/internal/logging"
	"github.com/prokemal2012/Filx/internal/metrics"
	"github.com/prokemal2012/Filx/internal/models"
	"github.com/prokemal2012/Filx/internal/ranking"
	"github.com/prokemal2012/Filx/internal/storage"
	"github.com/prokemal2012/Filx/internal/validation"
)

// Store is the subset of storage the comment service uses
type Store interface {
	storage.CommentStore
	storage.DocumentStore
	storage.UserStore
	storage.ActivityStore
	storage.NotificationStore
}

// Service manages comments
type Service struct {
	store Store
	now   ranking.Clock
	newID func() string
}

// NewService creates a comment service. A nil clock uses the wall clock.
func NewService(store Store, now ranking.Clock) *Service {
	if now == nil {
		now = ranking.SystemClock
	}
	return &Service{store: store, now: now, newID: uuid.NewString}
}

// View is a comment joined with its author and like state
type View struct {
	models.Comment
	Author models.AuthorSummary `json:"author"`
	Likes  int                  `json:"likes"`
	Liked  bool                 `json:"liked"`
}

// Thread is every comment on a document, newest first
type Thread struct {
	Comments []View `json:"comments"`
	Total    int    `json:"total"`
}

// Input is the body of a new comment or reply
type Input struct {
	Content string `json:"content" validate:"required,max=1000"`
}

// LikeResult is the outcome of a comment like toggle
type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"likeCount"`
}

// List returns the comments on a document the viewer can see
func (s *Service) List(ctx context.Context, viewerID, documentID string) (*Thread, error) {
	if _, err := s.visibleDocument(ctx, viewerID, documentID); err != nil {
		return nil, err
	}

	comments, err := s.store.ListComments(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	// Later comments win ties
	slices.Reverse(comments)
	sort.SliceStable(comments, func(a, b int) bool {
		return comments[a].CreatedAt.After(comments[b].CreatedAt)
	})

	ids := make([]string, len(comments))
	for i := range comments {
		ids[i] = comments[i].ID
	}
	likers, err := s.store.CommentLikers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load comment likes: %w", err)
	}

	authors := make(map[string]models.AuthorSummary)
	views := make([]View, 0, len(comments))
	for _, c := range comments {
		author, err := s.author(ctx, authors, c.UserID)
		if err != nil {
			return nil, err
		}
		liked := likers[c.ID]
		views = append(views, View{
			Comment: c,
			Author:  author,
			Likes:   len(liked),
			Liked:   slices.Contains(liked, viewerID),
		})
	}
	return &Thread{Comments: views, Total: len(views)}, nil
}

// Add comments on a document, records comment.created and notifies the
// document owner
func (s *Service) Add(ctx context.Context, userID, documentID string, in Input) (*View, error) {
	content, err := validContent(in)
	if err != nil {
		return nil, err
	}
	doc, err := s.visibleDocument(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}

	c := models.Comment{
		ID:         s.newID(),
		DocumentID: doc.ID,
		UserID:     userID,
		Content:    content,
		CreatedAt:  s.now(),
	}
	if err := s.store.AddComment(ctx, c); err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}

	s.record(ctx, userID, models.ActionCommentCreated, c.ID, models.ActivityDetails{
		DocumentID:    doc.ID,
		CommentLength: utf8.RuneCountInString(content),
	})
	author := s.notify(ctx, userID, doc.UserID, "New comment", fmt.Sprintf("commented on %q", doc.Title), map[string]any{
		"documentId": doc.ID,
		"commentId":  c.ID,
	})
	return &View{Comment: c, Author: author}, nil
}

// Reply answers parentID on the same document, records comment.replied and
// notifies the parent's author
func (s *Service) Reply(ctx context.Context, userID, parentID string, in Input) (*View, error) {
	content, err := validContent(in)
	if err != nil {
		return nil, err
	}
	parent, err := s.store.GetComment(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.visibleDocument(ctx, userID, parent.DocumentID); err != nil {
		return nil, err
	}

	reply := models.Comment{
		ID:         s.newID(),
		DocumentID: parent.DocumentID,
		UserID:     userID,
		ParentID:   parent.ID,
		Content:    content,
		CreatedAt:  s.now(),
	}
	if err := s.store.AddComment(ctx, reply); err != nil {
		return nil, fmt.Errorf("add reply: %w", err)
	}

	s.record(ctx, userID, models.ActionCommentReplied, reply.ID, models.ActivityDetails{
		DocumentID:      parent.DocumentID,
		ParentCommentID: parent.ID,
		CommentLength:   utf8.RuneCountInString(content),
	})
	author := s.notify(ctx, userID, parent.UserID, "New reply", "replied to your comment", map[string]any{
		"documentId": parent.DocumentID,
		"commentId":  reply.ID,
		"parentId":   parent.ID,
	})
	return &View{Comment: reply, Author: author}, nil
}

// ToggleLike likes commentID, or unlikes it if already liked
func (s *Service) ToggleLike(ctx context.Context, userID, commentID string) (*LikeResult, error) {
	c, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.visibleDocument(ctx, userID, c.DocumentID); err != nil {
		return nil, err
	}

	res, err := s.store.ToggleCommentLike(ctx, c.ID, userID, s.now())
	if err != nil {
		return nil, fmt.Errorf("toggle comment like: %w", err)
	}

	metrics.RecordToggle("comment_like", res.Active)
	logging.Ctx(ctx).Debug().
		Str("user", userID).
		Str("comment", c.ID).
		Bool("active", res.Active).
		Int("count", res.Count).
		Msg("comment like toggled")
	return &LikeResult{Liked: res.Active, LikeCount: res.Count}, nil
}

func validContent(in Input) (string, error) {
	in.Content = strings.TrimSpace(in.Content)
	if err := validation.Struct("Invalid comment", in); err != nil {
		return "", err
	}
	return in.Content, nil
}

// visibleDocument loads the commented document. Private documents of
// others are reported as not found.
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

func (s *Service) author(ctx context.Context, cache map[string]models.AuthorSummary, id string) (models.AuthorSummary, error) {
	if a, ok := cache[id]; ok {
		return a, nil
	}
	u, err := s.store.GetUser(ctx, id)
	var a models.AuthorSummary
	switch {
	case err == nil:
		a = u.Summary()
	case errors.Is(err, models.ErrNotFound):
		a = models.UnknownAuthor(id)
	default:
		return models.AuthorSummary{}, err
	}
	cache[id] = a
	return a, nil
}

// record appends an activity for a stored comment. Failures are logged.
func (s *Service) record(ctx context.Context, userID, action, commentID string, details models.ActivityDetails) {
	err := s.store.AppendActivity(ctx, models.Activity{
		ID:         s.newID(),
		UserID:     userID,
		Action:     action,
		EntityType: models.EntityComment,
		EntityID:   commentID,
		Timestamp:  s.now(),
		Details:    details,
	})
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("user", userID).
			Str("action", action).
			Str("comment", commentID).
			Msg("failed to record activity")
	}
}

// notify tells recipientID that actorID commented, unless they are the same
// user, and returns the actor's author summary. Failures are logged.
func (s *Service) notify(ctx context.Context, actorID, recipientID, title, message string, data map[string]any) models.AuthorSummary {
	author, err := s.author(ctx, make(map[string]models.AuthorSummary), actorID)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("user", actorID).Msg("failed to resolve comment author")
		author = models.UnknownAuthor(actorID)
	}
	if recipientID == actorID {
		return author
	}

	err = s.store.AddNotification(ctx, models.Notification{
		ID:        s.newID(),
		UserID:    recipientID,
		Type:      models.NotificationComment,
		Title:     title,
		Message:   author.Name + " " + message,
		Data:      data,
		CreatedAt: s.now(),
	})
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("recipient", recipientID).Msg("failed to send notification")
	}
	return author
}
