package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/prokemal2012/Filx/internal/models"
)

// InteractionFilter selects interactions. Zero-valued fields match anything.
type InteractionFilter struct {
	UserID     string
	TargetID   string
	TargetType models.TargetType
	Type       models.InteractionType
	Since      time.Time // Strictly after, when non-zero
}

// Matches reports whether i satisfies the filter
func (f InteractionFilter) Matches(i *models.Interaction) bool {
	if f.UserID != "" && i.UserID != f.UserID {
		return false
	}
	if f.TargetID != "" && i.TargetID != f.TargetID {
		return false
	}
	if f.TargetType != "" && i.TargetType != f.TargetType {
		return false
	}
	if f.Type != "" && i.Type != f.Type {
		return false
	}
	if !f.Since.IsZero() && !i.Timestamp.After(f.Since) {
		return false
	}
	return true
}

// ActivityFilter selects activities. Results are newest first.
type ActivityFilter struct {
	UserIDs    []string // Empty matches every user
	EntityType models.EntityType
	Since      time.Time
	Limit      int // 0 = unlimited
}

// Matches reports whether a satisfies the filter, ignoring Limit
func (f ActivityFilter) Matches(a *models.Activity) bool {
	if len(f.UserIDs) > 0 {
		found := false
		for _, id := range f.UserIDs {
			if id == a.UserID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.EntityType != "" && a.EntityType != f.EntityType {
		return false
	}
	if !f.Since.IsZero() && !a.Timestamp.After(f.Since) {
		return false
	}
	return true
}

// DocumentFilter selects documents. Results are in creation order.
type DocumentFilter struct {
	OwnerID    string
	PublicOnly bool
	Category   string
}

// Matches reports whether d satisfies the filter
func (f DocumentFilter) Matches(d *models.Document) bool {
	if f.OwnerID != "" && d.UserID != f.OwnerID {
		return false
	}
	if f.PublicOnly && !d.IsPublic {
		return false
	}
	if f.Category != "" && d.Category != f.Category {
		return false
	}
	return true
}

// ToggleResult is the outcome of an atomic toggle
type ToggleResult struct {
	Active bool // true if the interaction now exists
	Count  int  // interactions of the same type on the same target after the toggle
}

// InteractionStore is the indexed interaction log
type InteractionStore interface {
	QueryInteractions(ctx context.Context, filter InteractionFilter) ([]models.Interaction, error)
	CountInteractions(ctx context.Context, filter InteractionFilter) (int, error)
	// ToggleInteraction removes the (UserID, TargetID, Type) edge if present,
	// otherwise inserts i. The read-modify-write is atomic.
	ToggleInteraction(ctx context.Context, i models.Interaction) (ToggleResult, error)
}

// ActivityStore is the append-only activity log
type ActivityStore interface {
	AppendActivity(ctx context.Context, a models.Activity) error
	QueryActivities(ctx context.Context, filter ActivityFilter) ([]models.Activity, error)
}

// DocumentStore holds document metadata
type DocumentStore interface {
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]models.Document, error)
	UpsertDocument(ctx context.Context, doc models.Document) error
	DeleteDocument(ctx context.Context, id string) error
}

// UserStore is a read-mostly user lookup
type UserStore interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpsertUser(ctx context.Context, u models.User) error
}

// IndexStateStore remembers which document content the search index holds
type IndexStateStore interface {
	IndexedHash(ctx context.Context, documentID string) (string, error)
	SetIndexedHash(ctx context.Context, documentID, hash string) error
	ListIndexed(ctx context.Context) ([]string, error)
	DeleteIndexed(ctx context.Context, documentID string) error
}

// CommentStore holds document comments and their likes
type CommentStore interface {
	AddComment(ctx context.Context, c models.Comment) error
	GetComment(ctx context.Context, id string) (*models.Comment, error)
	// ListComments returns the comments and replies on a document in
	// creation order.
	ListComments(ctx context.Context, documentID string) ([]models.Comment, error)
	// ToggleCommentLike removes userID's like on the comment if present,
	// otherwise adds it. Count is the comment's like count afterwards.
	ToggleCommentLike(ctx context.Context, commentID, userID string, at time.Time) (ToggleResult, error)
	// CommentLikers returns who likes each of the given comments
	CommentLikers(ctx context.Context, commentIDs []string) (map[string][]string, error)
}

// NotificationStore holds per-user notifications
type NotificationStore interface {
	AddNotification(ctx context.Context, n models.Notification) error
	// ListNotifications returns userID's notifications, newest first
	ListNotifications(ctx context.Context, userID string) ([]models.Notification, error)
	// MarkNotificationRead returns ErrNotFound unless id exists and belongs to userID
	MarkNotificationRead(ctx context.Context, userID, id string) error
	// MarkAllNotificationsRead returns how many unread notifications it marked
	MarkAllNotificationsRead(ctx context.Context, userID string) (int, error)
}

// Store bundles every collection the services read
type Store interface {
	InteractionStore
	ActivityStore
	DocumentStore
	UserStore
	IndexStateStore
	CommentStore
	NotificationStore
}

// unavailable wraps a driver failure in the StoreUnavailable sentinel
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, models.ErrStoreUnavailable, err)
}
