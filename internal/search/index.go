package search

import (
	"errors"
	"fmt"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/prokemal2012/Filx/internal/models"
)

// Index wraps a Bleve search index over documents
type Index struct {
	index bleve.Index
}

// IndexedDocument is the indexed form of a document
type IndexedDocument struct {
	ID          string
	Title       string
	Content     string
	Description string
	Category    string
	Tags        []string
	OwnerID     string
	IsPublic    bool
	CreatedAt   time.Time
}

// Result is one search hit
type Result struct {
	ID        string
	Title     string
	Score     float64
	Fragments map[string][]string // Highlighted snippets
}

// Query is a keyword search restricted to what a viewer may see
type Query struct {
	Text     string
	ViewerID string
	Category string // optional exact match
	OwnerID  string // optional exact match
	Limit    int
}

// Open opens or creates a Bleve index at path
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	return &Index{index: idx}, nil
}

// OpenMem creates an index that lives only in memory
func OpenMem() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create memory index: %w", err)
	}
	return &Index{index: idx}, nil
}

// buildIndexMapping analyzes text fields in English and keeps identifiers,
// category and tags as exact keywords
func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = "en"

	keywordFieldMapping := bleve.NewTextFieldMapping()
	keywordFieldMapping.Analyzer = keyword.Name

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("ID", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("Title", textFieldMapping)
	docMapping.AddFieldMappingsAt("Content", textFieldMapping)
	docMapping.AddFieldMappingsAt("Description", textFieldMapping)
	docMapping.AddFieldMappingsAt("Category", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("Tags", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("OwnerID", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("IsPublic", bleve.NewBooleanFieldMapping())
	docMapping.AddFieldMappingsAt("CreatedAt", bleve.NewDateTimeFieldMapping())

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", docMapping)
	indexMapping.DefaultAnalyzer = "en"

	return indexMapping
}

// Close closes the index
func (i *Index) Close() error {
	return i.index.Close()
}

func toIndexed(doc *models.Document) *IndexedDocument {
	return &IndexedDocument{
		ID:          doc.ID,
		Title:       doc.Title,
		Content:     doc.Content,
		Description: doc.Description,
		Category:    doc.Category,
		Tags:        doc.Tags,
		OwnerID:     doc.UserID,
		IsPublic:    doc.IsPublic,
		CreatedAt:   doc.CreatedAt,
	}
}

// IndexDocument adds or replaces a document in the index
func (i *Index) IndexDocument(doc *models.Document) error {
	if err := i.index.Index(doc.ID, toIndexed(doc)); err != nil {
		return fmt.Errorf("index %s: %w", doc.ID, err)
	}
	return nil
}

// Delete removes a document from the index
func (i *Index) Delete(id string) error {
	return i.index.Delete(id)
}

// Search runs q.Text as a query string. Hits are limited to public
// documents and documents owned by q.ViewerID.
func (i *Index) Search(q Query) ([]*Result, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}

	// 1. Text query (supports quotes, boolean operators, fuzzy ~).
	// Malformed syntax is the caller's input error, not an index failure.
	text := bleve.NewQueryStringQuery(q.Text)
	if _, err := text.Parse(); err != nil {
		return nil, models.NewFieldError("Invalid search query", "q", err.Error())
	}
	must := []query.Query{text}

	// 2. Visibility
	public := bleve.NewBoolFieldQuery(true)
	public.SetField("IsPublic")
	visible := bleve.NewDisjunctionQuery(public)
	if q.ViewerID != "" {
		visible.AddQuery(termQuery("OwnerID", q.ViewerID))
	}
	must = append(must, visible)

	// 3. Optional exact filters
	if q.Category != "" {
		must = append(must, termQuery("Category", q.Category))
	}
	if q.OwnerID != "" {
		must = append(must, termQuery("OwnerID", q.OwnerID))
	}

	req := bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(must...), limit, 0, false)
	req.Highlight = bleve.NewHighlightWithStyle("html")
	req.Fields = []string{"Title"}

	results, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	out := make([]*Result, 0, len(results.Hits))
	for _, hit := range results.Hits {
		r := &Result{
			ID:        hit.ID,
			Score:     hit.Score,
			Fragments: hit.Fragments,
		}
		if title, ok := hit.Fields["Title"].(string); ok {
			r.Title = title
		}
		out = append(out, r)
	}
	return out, nil
}

func termQuery(field, term string) query.Query {
	q := bleve.NewTermQuery(term)
	q.SetField(field)
	return q
}

// Count returns the number of documents in the index
func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}
