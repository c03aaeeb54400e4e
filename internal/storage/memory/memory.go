// Package memory provides an in-memory implementation of storage.Store.
// It is used by tests and by the CLI when no database path is configured.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prokemal2012/Filx/internal/models"
	"github.com/prokemal2012/Filx/internal/storage"
)

// Ensure Store implements the storage interface.
var _ storage.Store = (*Store)(nil)

// Store is an in-memory store. Slices keep insertion order.
type Store struct {
	mu           sync.RWMutex
	interactions []models.Interaction
	activities   []models.Activity
	documents    []models.Document
	users        []models.User
	indexed      map[string]string

	comments      []models.Comment
	commentLikes  map[string][]string // comment ID to liker IDs, in like order
	notifications []models.Notification
}

// New creates an empty in-memory store
func New() *Store {
	return &Store{
		indexed:      make(map[string]string),
		commentLikes: make(map[string][]string),
	}
}

// QueryInteractions returns matching interactions in insertion order
func (s *Store) QueryInteractions(ctx context.Context, filter storage.InteractionFilter) ([]models.Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Interaction
	for i := range s.interactions {
		if filter.Matches(&s.interactions[i]) {
			out = append(out, s.interactions[i])
		}
	}
	return out, nil
}

// CountInteractions returns the number of matching interactions
func (s *Store) CountInteractions(ctx context.Context, filter storage.InteractionFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for i := range s.interactions {
		if filter.Matches(&s.interactions[i]) {
			count++
		}
	}
	return count, nil
}

// ToggleInteraction removes the matching edge or inserts i under the write lock
func (s *Store) ToggleInteraction(ctx context.Context, i models.Interaction) (storage.ToggleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result storage.ToggleResult

	idx := -1
	for n := range s.interactions {
		e := &s.interactions[n]
		if e.UserID == i.UserID && e.TargetID == i.TargetID && e.Type == i.Type {
			idx = n
			break
		}
	}

	if idx >= 0 {
		s.interactions = append(s.interactions[:idx], s.interactions[idx+1:]...)
	} else {
		s.interactions = append(s.interactions, i)
		result.Active = true
	}

	for n := range s.interactions {
		if s.interactions[n].TargetID == i.TargetID && s.interactions[n].Type == i.Type {
			result.Count++
		}
	}
	return result, nil
}

// AddInteraction appends an interaction without toggle semantics.
// Fixtures use it to seed historical edges.
func (s *Store) AddInteraction(i models.Interaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interactions = append(s.interactions, i)
}

// AppendActivity records a new activity
func (s *Store) AppendActivity(ctx context.Context, a models.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities = append(s.activities, a)
	return nil
}

// QueryActivities returns matching activities, newest first
func (s *Store) QueryActivities(ctx context.Context, filter storage.ActivityFilter) ([]models.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Activity
	// Walk backwards so equal timestamps keep newest-appended first
	for i := len(s.activities) - 1; i >= 0; i-- {
		if filter.Matches(&s.activities[i]) {
			out = append(out, s.activities[i])
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Timestamp.After(out[b].Timestamp)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// GetDocument retrieves a document by ID
func (s *Store) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.documents {
		if s.documents[i].ID == id {
			doc := s.documents[i]
			return &doc, nil
		}
	}
	return nil, fmt.Errorf("document %s: %w", id, models.ErrNotFound)
}

// ListDocuments retrieves matching documents in creation order
func (s *Store) ListDocuments(ctx context.Context, filter storage.DocumentFilter) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Document
	for i := range s.documents {
		if filter.Matches(&s.documents[i]) {
			out = append(out, s.documents[i])
		}
	}
	return out, nil
}

// UpsertDocument inserts or replaces a document
func (s *Store) UpsertDocument(ctx context.Context, doc models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.documents {
		if s.documents[i].ID == doc.ID {
			s.documents[i] = doc
			return nil
		}
	}
	s.documents = append(s.documents, doc)
	return nil
}

// DeleteDocument removes a document
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.documents {
		if s.documents[i].ID == id {
			s.documents = append(s.documents[:i], s.documents[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("document %s: %w", id, models.ErrNotFound)
}

// GetUser retrieves a user by ID
func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.users {
		if s.users[i].ID == id {
			u := s.users[i]
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
}

// ListUsers returns every user in registration order
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.User, len(s.users))
	copy(out, s.users)
	return out, nil
}

// UpsertUser inserts or replaces a user
func (s *Store) UpsertUser(ctx context.Context, u models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.users {
		if s.users[i].ID == u.ID {
			s.users[i] = u
			return nil
		}
	}
	s.users = append(s.users, u)
	return nil
}

// IndexedHash returns the content hash last written to the search index
func (s *Store) IndexedHash(ctx context.Context, documentID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexed[documentID], nil
}

// SetIndexedHash records that documentID was indexed with the given hash
func (s *Store) SetIndexedHash(ctx context.Context, documentID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexed[documentID] = hash
	return nil
}

// ListIndexed returns the ids of every indexed document
func (s *Store) ListIndexed(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.indexed))
	for id := range s.indexed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// DeleteIndexed forgets the index state of a document
func (s *Store) DeleteIndexed(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.indexed, documentID)
	return nil
}

// AddComment stores a new comment or reply
func (s *Store) AddComment(ctx context.Context, c models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments = append(s.comments, c)
	return nil
}

// GetComment retrieves a comment by ID
func (s *Store) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.comments {
		if s.comments[i].ID == id {
			c := s.comments[i]
			return &c, nil
		}
	}
	return nil, fmt.Errorf("comment %s: %w", id, models.ErrNotFound)
}

// ListComments returns the comments on a document in creation order
func (s *Store) ListComments(ctx context.Context, documentID string) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Comment
	for i := range s.comments {
		if s.comments[i].DocumentID == documentID {
			out = append(out, s.comments[i])
		}
	}
	return out, nil
}

// ToggleCommentLike removes or adds userID's like under the write lock
func (s *Store) ToggleCommentLike(ctx context.Context, commentID, userID string, at time.Time) (storage.ToggleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	likers := s.commentLikes[commentID]
	for i, id := range likers {
		if id == userID {
			likers = append(likers[:i:i], likers[i+1:]...)
			s.commentLikes[commentID] = likers
			return storage.ToggleResult{Active: false, Count: len(likers)}, nil
		}
	}
	likers = append(likers, userID)
	s.commentLikes[commentID] = likers
	return storage.ToggleResult{Active: true, Count: len(likers)}, nil
}

// CommentLikers returns who likes each of the given comments
func (s *Store) CommentLikers(ctx context.Context, commentIDs []string) (map[string][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]string, len(commentIDs))
	for _, id := range commentIDs {
		if likers := s.commentLikes[id]; len(likers) > 0 {
			out[id] = append([]string(nil), likers...)
		}
	}
	return out, nil
}

// AddNotification stores a new notification
func (s *Store) AddNotification(ctx context.Context, n models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, n)
	return nil
}

// ListNotifications returns userID's notifications, newest first
func (s *Store) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Notification
	for i := len(s.notifications) - 1; i >= 0; i-- {
		if s.notifications[i].UserID == userID {
			out = append(out, s.notifications[i])
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	return out, nil
}

// MarkNotificationRead marks one of userID's notifications as read
func (s *Store) MarkNotificationRead(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notifications {
		if n := &s.notifications[i]; n.ID == id && n.UserID == userID {
			n.Read = true
			return nil
		}
	}
	return fmt.Errorf("notification %s: %w", id, models.ErrNotFound)
}

// MarkAllNotificationsRead marks every unread notification of userID as read
func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	marked := 0
	for i := range s.notifications {
		if n := &s.notifications[i]; n.UserID == userID && !n.Read {
			n.Read = true
			marked++
		}
	}
	return marked, nil
}
