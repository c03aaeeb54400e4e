package documents

import (
	"context"
	"errors"
	"strings"

	"github.com/prokemal2012/Filx/internal/models"
	"github.com/prokemal2012/Filx/internal/search"
	"github.com/prokemal2012/Filx/internal/validation"
)

// DefaultSearchLimit caps results when no limit is given
const DefaultSearchLimit = 20

// SearchRequest is a keyword search over documents and users
type SearchRequest struct {
	Query    string `json:"q" validate:"required"`
	Type     string `json:"type" validate:"omitempty,oneof=all documents users"`
	Category string `json:"category"`
	OwnerID  string `json:"userId"`
	Limit    int    `json:"limit" validate:"gte=0,lte=100"`
}

// Hit is a matching document
type Hit struct {
	View
	Score      float64             `json:"score"`
	Highlights map[string][]string `json:"highlights,omitempty"`
}

// Results groups document and user matches. A group is nil when the
// request type excluded it.
type Results struct {
	Documents []Hit                  `json:"documents,omitempty"`
	Users     []models.AuthorSummary `json:"users,omitempty"`
}

// Search finds documents visible to viewerID and users whose name matches
func (s *Service) Search(ctx context.Context, viewerID string, req SearchRequest) (*Results, error) {
	req.Query = strings.TrimSpace(req.Query)
	if err := validation.Struct("Search query is required", req); err != nil {
		return nil, err
	}
	if req.Type == "" {
		req.Type = "all"
	}
	if req.Limit == 0 {
		req.Limit = DefaultSearchLimit
	}

	res := &Results{}
	if req.Type == "all" || req.Type == "documents" {
		hits, err := s.searchDocuments(ctx, viewerID, req)
		if err != nil {
			return nil, err
		}
		res.Documents = hits
	}
	if req.Type == "all" || req.Type == "users" {
		users, err := s.searchUsers(ctx, req.Query, req.Limit)
		if err != nil {
			return nil, err
		}
		res.Users = users
	}
	return res, nil
}

func (s *Service) searchDocuments(ctx context.Context, viewerID string, req SearchRequest) ([]Hit, error) {
	results, err := s.searcher.Search(search.Query{
		Text:     req.Query,
		ViewerID: viewerID,
		Category: req.Category,
		OwnerID:  req.OwnerID,
		Limit:    req.Limit,
	})
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(results))
	authors := make(map[string]models.AuthorSummary)
	for _, r := range results {
		// The index may lag behind the store
		doc, err := s.store.GetDocument(ctx, r.ID)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !doc.VisibleTo(viewerID) {
			continue
		}

		author, ok := authors[doc.UserID]
		if !ok {
			if author, err = s.author(ctx, doc.UserID); err != nil {
				return nil, err
			}
			authors[doc.UserID] = author
		}
		hits = append(hits, Hit{
			View:       View{Document: *doc, Author: author},
			Score:      r.Score,
			Highlights: r.Fragments,
		})
	}
	return hits, nil
}

func (s *Service) searchUsers(ctx context.Context, q string, limit int) ([]models.AuthorSummary, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(q)
	out := make([]models.AuthorSummary, 0)
	for i := range users {
		if len(out) >= limit {
			break
		}
		if strings.Contains(strings.ToLower(users[i].Name), needle) ||
			strings.Contains(strings.ToLower(users[i].Bio), needle) {
			out = append(out, users[i].Summary())
		}
	}
	return out, nil
}
