package explore

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/prokemal2012/Filx/internal/models"
	"github.com/prokemal2012/Filx/internal/storage"
)

// TrendingDocument is the card shown in trending lists. Views and Downloads
// are never recorded and are always zero.
type TrendingDocument struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Author      models.AuthorSummary `json:"author"`
	Thumbnail   string               `json:"thumbnail,omitempty"`
	Category    string               `json:"category"`
	Type        string               `json:"type"`
	Pages       int                  `json:"pages"`
	Likes       int                  `json:"likes"`
	Bookmarks   int                  `json:"bookmarks"`
	Views       int                  `json:"views"`
	Downloads   int                  `json:"downloads"`
	Score       float64              `json:"score"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

// documentStats accumulates windowed engagement for one document
type documentStats struct {
	doc       *models.Document
	likes     int
	bookmarks int
	score     float64
}

// TrendingDocuments ranks public documents by the likes and bookmarks they
// received inside the trending window. Documents without recent engagement
// score 0 and keep their creation order behind the rest.
func (a *Aggregator) TrendingDocuments(ctx context.Context, limit int) ([]TrendingDocument, error) {
	limit = limitOr(limit, a.cfg.DocumentLimit)
	now := a.now()

	ds, err := a.load(ctx, loadSpec{
		documents: &storage.DocumentFilter{PublicOnly: true},
		users:     true,
		interactions: &storage.InteractionFilter{
			TargetType: models.TargetDocument,
			Since:      a.windowStart(now),
		},
	})
	if err != nil {
		return nil, err
	}

	ranked := a.rankDocuments(ds.documents, ds.interactions)
	ranked = truncate(ranked, limit)

	out := make([]TrendingDocument, 0, len(ranked))
	for _, st := range ranked {
		out = append(out, trendingCard(st, ds.userIndex))
	}
	return out, nil
}

// rankDocuments scores docs from the windowed interactions. The result is
// sorted by score, highest first, with ties in docs order.
func (a *Aggregator) rankDocuments(docs []models.Document, windowed []models.Interaction) []*documentStats {
	ranked := make([]*documentStats, 0, len(docs))
	byID := make(map[string]*documentStats, len(docs))
	for i := range docs {
		st := &documentStats{doc: &docs[i]}
		ranked = append(ranked, st)
		byID[docs[i].ID] = st
	}

	for _, in := range windowed {
		st, ok := byID[in.TargetID]
		if !ok || in.TargetType != models.TargetDocument {
			continue
		}
		switch in.Type {
		case models.InteractionLike:
			st.likes++
		case models.InteractionBookmark:
			st.bookmarks++
		}
		st.score += a.interactionScore(in.Type)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	return ranked
}

func trendingCard(st *documentStats, users map[string]*models.User) TrendingDocument {
	doc := st.doc

	description := doc.Description
	if description == "" {
		description = excerpt(doc.Content, 100)
	}

	category := doc.Category
	if category == "" && len(doc.Tags) > 0 {
		category = doc.Tags[0]
	}
	if category == "" {
		category = "General"
	}

	kind := "DOC"
	if strings.Contains(strings.ToLower(doc.Type), "pdf") {
		kind = "PDF"
	}

	return TrendingDocument{
		ID:          doc.ID,
		Title:       doc.Title,
		Description: description,
		Author:      models.ResolveAuthor(users, doc.UserID),
		Thumbnail:   doc.ThumbnailURL,
		Category:    category,
		Type:        kind,
		Pages:       pageCount(doc.Content),
		Likes:       st.likes,
		Bookmarks:   st.bookmarks,
		Score:       st.score,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}

// excerpt returns the first n runes of s followed by an ellipsis
func excerpt(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes) + "..."
}

// pageCount estimates pages at 500 characters each
func pageCount(content string) int {
	length := len([]rune(content))
	if length == 0 {
		length = 1000
	}
	return int(math.Ceil(float64(length) / 500))
}
