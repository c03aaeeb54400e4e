// Package documents owns document metadata: creation and edits by their
// owner, visibility-aware reads and keyword search.
package documents

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/prokemal2012/Filx/internal/logging"
	"github.com/prokemal2012/Filx/internal/models"
	"github.com/prokemal2012/Filx/internal/ranking"
	"github.com/prokemal2012/Filx/internal/search"
	"github.com/prokemal2012/Filx/internal/storage"
	"github.com/prokemal2012/Filx/internal/validation"
)

// DefaultCategory is assigned to documents created without one
const DefaultCategory = "General"

// Store is the subset of storage the document service uses
type Store interface {
	storage.DocumentStore
	storage.ActivityStore
	storage.UserStore
}

// Indexer keeps the search index in step with document writes
type Indexer interface {
	Put(ctx context.Context, doc *models.Document) error
	Remove(ctx context.Context, id string) error
}

// Searcher runs keyword queries against the index
type Searcher interface {
	Search(q search.Query) ([]*search.Result, error)
}

// Service manages documents
type Service struct {
	store    Store
	indexer  Indexer
	searcher Searcher
	now      ranking.Clock
	newID    func() string
}

// NewService creates a document service. A nil clock uses the wall clock.
func NewService(store Store, indexer Indexer, searcher Searcher, now ranking.Clock) *Service {
	if now == nil {
		now = ranking.SystemClock
	}
	return &Service{
		store:    store,
		indexer:  indexer,
		searcher: searcher,
		now:      now,
		newID:    uuid.NewString,
	}
}

// View is a document joined with its author
type View struct {
	models.Document
	Author models.AuthorSummary `json:"author"`
}

// CreateInput holds the fields of a new document
type CreateInput struct {
	Title        string   `json:"title" validate:"required,max=200"`
	Content      string   `json:"content"`
	Description  string   `json:"description" validate:"max=1000"`
	Type         string   `json:"type" validate:"max=100"`
	Size         int64    `json:"size" validate:"gte=0"`
	Category     string   `json:"category" validate:"max=50"`
	Tags         []string `json:"tags" validate:"max=20,dive,min=1,max=50"`
	IsPublic     bool     `json:"isPublic"`
	ThumbnailURL string   `json:"thumbnailUrl" validate:"omitempty,url"`
}

// UpdateInput holds the editable fields of a document. Nil fields are left as is.
type UpdateInput struct {
	Title        *string   `json:"title" validate:"omitempty,min=1,max=200"`
	Content      *string   `json:"content"`
	Description  *string   `json:"description" validate:"omitempty,max=1000"`
	Category     *string   `json:"category" validate:"omitempty,max=50"`
	Tags         *[]string `json:"tags" validate:"omitempty,max=20,dive,min=1,max=50"`
	IsPublic     *bool     `json:"isPublic"`
	ThumbnailURL *string   `json:"thumbnailUrl" validate:"omitempty,url"`
}

// Create stores a new document owned by userID, records document.created
// and indexes it
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*models.Document, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Category = strings.TrimSpace(in.Category)
	in.Tags = cleanTags(in.Tags)
	if err := validation.Struct("Invalid document data", in); err != nil {
		return nil, err
	}
	if in.Category == "" {
		in.Category = DefaultCategory
	}

	now := s.now()
	doc := models.Document{
		ID:           s.newID(),
		UserID:       userID,
		Title:        in.Title,
		Content:      in.Content,
		Description:  in.Description,
		Type:         in.Type,
		Size:         in.Size,
		Category:     in.Category,
		Tags:         in.Tags,
		IsPublic:     in.IsPublic,
		ThumbnailURL: in.ThumbnailURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.UpsertDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	s.record(ctx, userID, models.ActionDocumentCreated, &doc)
	s.index(ctx, &doc)
	return &doc, nil
}

// Update applies in to a document owned by userID
func (s *Service) Update(ctx context.Context, userID, id string, in UpdateInput) (*models.Document, error) {
	if in.Title != nil {
		*in.Title = strings.TrimSpace(*in.Title)
	}
	if in.Tags != nil {
		*in.Tags = cleanTags(*in.Tags)
	}
	if err := validation.Struct("Invalid document data", in); err != nil {
		return nil, err
	}

	doc, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		doc.Title = *in.Title
	}
	if in.Content != nil {
		doc.Content = *in.Content
	}
	if in.Description != nil {
		doc.Description = *in.Description
	}
	if in.Category != nil {
		doc.Category = strings.TrimSpace(*in.Category)
		if doc.Category == "" {
			doc.Category = DefaultCategory
		}
	}
	if in.Tags != nil {
		doc.Tags = *in.Tags
	}
	if in.IsPublic != nil {
		doc.IsPublic = *in.IsPublic
	}
	if in.ThumbnailURL != nil {
		doc.ThumbnailURL = *in.ThumbnailURL
	}
	doc.UpdatedAt = s.now()

	if err := s.store.UpsertDocument(ctx, *doc); err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}
	s.record(ctx, userID, models.ActionDocumentUpdated, doc)
	s.index(ctx, doc)
	return doc, nil
}

// Delete removes a document owned by userID
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	doc, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	s.record(ctx, userID, models.ActionDocumentDeleted, doc)
	if s.indexer != nil {
		if err := s.indexer.Remove(ctx, id); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("document", id).Msg("Failed to remove document from index")
		}
	}
	return nil
}

// Get returns a document the viewer may see. Private documents of other
// users are reported as not found.
func (s *Service) Get(ctx context.Context, viewerID, id string) (*View, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if !doc.VisibleTo(viewerID) {
		return nil, fmt.Errorf("document %s: %w", id, models.ErrNotFound)
	}
	author, err := s.author(ctx, doc.UserID)
	if err != nil {
		return nil, err
	}
	return &View{Document: *doc, Author: author}, nil
}

// ListByOwner returns ownerID's documents, newest first. Other viewers only
// see the public ones.
func (s *Service) ListByOwner(ctx context.Context, viewerID, ownerID string) ([]View, error) {
	docs, err := s.store.ListDocuments(ctx, storage.DocumentFilter{
		OwnerID:    ownerID,
		PublicOnly: viewerID != ownerID,
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})

	author, err := s.author(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]View, 0, len(docs))
	for _, d := range docs {
		out = append(out, View{Document: d, Author: author})
	}
	return out, nil
}

// owned loads a document for modification by userID
func (s *Service) owned(ctx context.Context, userID, id string) (*models.Document, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if !doc.VisibleTo(userID) {
		return nil, fmt.Errorf("document %s: %w", id, models.ErrNotFound)
	}
	if doc.UserID != userID {
		return nil, fmt.Errorf("document %s: %w", id, models.ErrForbidden)
	}
	return doc, nil
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

// record appends an activity for a committed change. Failures are logged.
func (s *Service) record(ctx context.Context, userID, action string, doc *models.Document) {
	details := models.ActivityDetails{DocumentTitle: doc.Title}
	if action != models.ActionDocumentDeleted {
		details.Category = doc.Category
		details.Tags = doc.Tags
	}
	err := s.store.AppendActivity(ctx, models.Activity{
		ID:         s.newID(),
		UserID:     userID,
		Action:     action,
		EntityType: models.EntityDocument,
		EntityID:   doc.ID,
		Timestamp:  s.now(),
		Details:    details,
	})
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("document", doc.ID).
			Str("action", action).
			Msg("failed to record activity")
	}
}

// index pushes doc to the search index. Failures are left for the next
// index sync to repair.
func (s *Service) index(ctx context.Context, doc *models.Document) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.Put(ctx, doc); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("document", doc.ID).Msg("Failed to index document")
	}
}

// cleanTags trims tags and drops empty and repeated ones
func cleanTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
