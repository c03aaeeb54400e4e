package explore

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/prokemal2012/Filx/internal/models"
	"github.com/prokemal2012/Filx/internal/storage"
)

// Topic is a tag or category with its growth inside the trending window
type Topic struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Count    int    `json:"count"`
	Growth   int    `json:"growth"`
	Category string `json:"category"`
}

// TopicList is a page of trending topics
type TopicList struct {
	Topics []Topic `json:"topics"`
	Total  int     `json:"total"`
}

// fallbackTopics pad the trending list of a quiet platform
var fallbackTopics = []Topic{
	{ID: "ai-ml", Name: "AI & ML", Count: 15, Growth: 45, Category: "Technology"},
	{ID: "web-development", Name: "Web Development", Count: 12, Growth: 32, Category: "Technology"},
	{ID: "data-science", Name: "Data Science", Count: 10, Growth: 28, Category: "Technology"},
	{ID: "design", Name: "Design", Count: 8, Growth: 22, Category: "Creative"},
	{ID: "business", Name: "Business", Count: 7, Growth: 18, Category: "Business"},
}

// TrendingTopics counts every tag and category across all documents and
// measures how many document activities mentioned each tag inside the window.
// growth = round(100 * recent / total).
func (a *Aggregator) TrendingTopics(ctx context.Context, limit int) (*TopicList, error) {
	limit = limitOr(limit, a.cfg.TopicLimit)
	now := a.now()

	ds, err := a.load(ctx, loadSpec{
		documents: &storage.DocumentFilter{},
		activities: &storage.ActivityFilter{
			EntityType: models.EntityDocument,
			Since:      a.windowStart(now),
		},
	})
	if err != nil {
		return nil, err
	}

	// 1. Total occurrences, in first-seen order
	var names []string
	counts := make(map[string]int)
	add := func(name string) {
		if _, ok := counts[name]; !ok {
			names = append(names, name)
		}
		counts[name]++
	}
	for _, doc := range ds.documents {
		for _, tag := range doc.Tags {
			add(tag)
		}
		if doc.Category != "" {
			add(doc.Category)
		}
	}

	// 2. Recent mentions
	recent := make(map[string]int)
	for _, act := range ds.activities {
		for _, tag := range act.Details.Tags {
			recent[tag]++
		}
	}

	// 3. Rank by growth, then total
	topics := make([]Topic, 0, len(names))
	for _, name := range names {
		total := counts[name]
		growth := 0
		if total > 0 {
			growth = int(math.Round(100 * float64(recent[name]) / float64(total)))
		}
		topics = append(topics, Topic{
			ID:       Slug(name),
			Name:     name,
			Count:    total,
			Growth:   growth,
			Category: CategoryForTag(name),
		})
	}
	sort.SliceStable(topics, func(i, j int) bool {
		if topics[i].Growth != topics[j].Growth {
			return topics[i].Growth > topics[j].Growth
		}
		return topics[i].Count > topics[j].Count
	})
	topics = truncate(topics, a.cfg.TopicCap)

	// 4. Pad a sparse list
	if len(topics) < a.cfg.MinTopics {
		present := make(map[string]bool, len(topics))
		for _, t := range topics {
			present[t.ID] = true
		}
		for _, t := range fallbackTopics {
			if !present[t.ID] {
				topics = append(topics, t)
			}
		}
	}

	return &TopicList{
		Topics: truncate(topics, limit),
		Total:  len(topics),
	}, nil
}

// TagCategory is a tag with the number of documents carrying it
type TagCategory struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Categories lists every document tag by frequency, most used first
func (a *Aggregator) Categories(ctx context.Context) ([]TagCategory, error) {
	docs, err := a.store.ListDocuments(ctx, storage.DocumentFilter{})
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	var out []TagCategory
	index := make(map[string]int)
	for _, doc := range docs {
		for _, tag := range doc.Tags {
			if i, ok := index[tag]; ok {
				out[i].Count++
				continue
			}
			index[tag] = len(out)
			out = append(out, TagCategory{ID: Slug(tag), Name: tag, Count: 1})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if out == nil {
		out = []TagCategory{}
	}
	return out, nil
}

// Contributor is an author ranked by documents in a category
type Contributor struct {
	models.AuthorSummary
	DocumentCount int `json:"documentCount"`
}

// CategoryTrend is a public category with its recent engagement
type CategoryTrend struct {
	Category        string         `json:"category"`
	DocumentCount   int            `json:"documentCount"`
	RecentDocuments []DocumentCard `json:"recentDocuments"`
	RecentActivity  int            `json:"recentActivity"`
	TopContributors []Contributor  `json:"topContributors"`
	Description     string         `json:"description"`
}

// CategoryTrendList is a page of trending categories
type CategoryTrendList struct {
	Categories []CategoryTrend `json:"categories"`
	Total      int            `json:"total"`
}

// TrendingCategories ranks public categories by document count plus twice
// the document activities recorded on them inside the window
func (a *Aggregator) TrendingCategories(ctx context.Context, limit int) (*CategoryTrendList, error) {
	limit = limitOr(limit, a.cfg.CategoryLimit)
	now := a.now()

	ds, err := a.load(ctx, loadSpec{
		documents: &storage.DocumentFilter{PublicOnly: true},
		users:     true,
		activities: &storage.ActivityFilter{
			EntityType: models.EntityDocument,
			Since:      a.windowStart(now),
		},
	})
	if err != nil {
		return nil, err
	}

	// Group in first-seen order
	var order []string
	groups := make(map[string][]models.Document)
	docCategory := make(map[string]string)
	for _, doc := range ds.documents {
		if doc.Category == "" {
			continue
		}
		if _, ok := groups[doc.Category]; !ok {
			order = append(order, doc.Category)
		}
		groups[doc.Category] = append(groups[doc.Category], doc)
		docCategory[doc.ID] = doc.Category
	}

	activity := make(map[string]int)
	for _, act := range ds.activities {
		if category, ok := docCategory[act.EntityID]; ok {
			activity[category]++
		}
	}

	trends := make([]CategoryTrend, 0, len(order))
	for _, name := range order {
		docs := groups[name]
		trends = append(trends, CategoryTrend{
			Category:        name,
			DocumentCount:   len(docs),
			RecentDocuments: a.recentCards(docs, ds.userIndex, 5),
			RecentActivity:  activity[name],
			TopContributors: topContributors(docs, ds.userIndex, 3),
			Description:     fmt.Sprintf("%d documents with %d recent activities", len(docs), activity[name]),
		})
	}

	sort.SliceStable(trends, func(i, j int) bool {
		return trends[i].DocumentCount+2*trends[i].RecentActivity >
			trends[j].DocumentCount+2*trends[j].RecentActivity
	})

	return &CategoryTrendList{
		Categories: truncate(trends, limit),
		Total:      len(trends),
	}, nil
}

func (a *Aggregator) recentCards(docs []models.Document, users map[string]*models.User, n int) []DocumentCard {
	sorted := append([]models.Document(nil), docs...)
	newestFirst(sorted)
	sorted = truncate(sorted, n)

	cards := make([]DocumentCard, 0, len(sorted))
	for i := range sorted {
		cards = append(cards, a.card(&sorted[i], users, 0))
	}
	return cards
}

func topContributors(docs []models.Document, users map[string]*models.User, n int) []Contributor {
	var out []Contributor
	index := make(map[string]int)
	for _, doc := range docs {
		if i, ok := index[doc.UserID]; ok {
			out[i].DocumentCount++
			continue
		}
		index[doc.UserID] = len(out)
		out = append(out, Contributor{AuthorSummary: models.ResolveAuthor(users, doc.UserID), DocumentCount: 1})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DocumentCount > out[j].DocumentCount
	})
	return truncate(out, n)
}

var whitespace = regexp.MustCompile(`\s+`)

// Slug lowercases name and joins its words with dashes
func Slug(name string) string {
	return whitespace.ReplaceAllString(strings.ToLower(name), "-")
}

// tagKeywords map keyword fragments to broad categories, checked in order
var tagKeywords = []struct {
	category string
	keywords []string
}{
	{"Technology", []string{"ai", "ml", "tech", "dev", "code", "programming"}},
	{"Creative", []string{"design", "art", "creative"}},
	{"Business", []string{"business", "marketing", "finance"}},
	{"Science", []string{"science", "research", "data"}},
	{"Education", []string{"education", "learning", "tutorial"}},
}

// CategoryForTag buckets a free-form tag into a broad category
func CategoryForTag(tag string) string {
	lower := strings.ToLower(tag)
	for _, group := range tagKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.category
			}
		}
	}
	return "General"
}
