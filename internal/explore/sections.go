package explore

import (
	"context"
	"sort"

	"github.com/prokemal2012/Filx/internal/models"
	"github.com/prokemal2012/Filx/internal/ranking"
	"github.com/prokemal2012/Filx/internal/storage"
)

// SectionType identifies an explore section
type SectionType string

const (
	SectionTrending        SectionType = "trending"
	SectionRecent          SectionType = "recent"
	SectionPopularAuthors  SectionType = "popular_authors"
	SectionCategories      SectionType = "categories"
	SectionRandomDiscovery SectionType = "random_discovery"
)

// Section is one block of the explore page. Items holds a slice of
// DocumentCard, AuthorCard or CategoryCard depending on Type.
type Section struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Type       SectionType `json:"type"`
	Items      any         `json:"items"`
	TotalCount int         `json:"totalCount"`
}

// DocumentCard is a document joined with its author
type DocumentCard struct {
	models.Document
	Author          models.AuthorSummary `json:"author"`
	Score           float64              `json:"score,omitempty"`
	IsNew           bool                 `json:"isNew,omitempty"`
	DiscoveryReason string               `json:"discoveryReason,omitempty"`
}

// AuthorCard is a suggested author
type AuthorCard struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	AvatarURL       *string `json:"avatarUrl"`
	Bio             string  `json:"bio,omitempty"`
	DocumentCount   int     `json:"documentCount"`
	LikesReceived   int     `json:"likesReceived"`
	PopularityScore int     `json:"popularityScore"`
	IsFollowing     bool    `json:"isFollowing"`
}

// CategoryCard summarizes the public documents of one category
type CategoryCard struct {
	Name            string         `json:"name"`
	DocumentCount   int            `json:"documentCount"`
	AuthorCount     int            `json:"authorCount"`
	RecentDocuments []DocumentCard `json:"recentDocuments"`
}

// UserStats are the platform totals shown beside the explore page
type UserStats struct {
	TotalDocuments  int `json:"totalDocuments"`
	TotalUsers      int `json:"totalUsers"`
	TotalCategories int `json:"totalCategories"`
	UserFollowing   int `json:"userFollowing"`
}

// Explore is the full explore page
type Explore struct {
	Sections      []Section `json:"sections"`
	TotalSections int       `json:"totalSections"`
	UserStats     UserStats `json:"userStats"`
}

// discoveryReasons label the random discovery cards. They are cosmetic.
var discoveryReasons = []string{
	"Hidden gem",
	"Underrated content",
	"Unique perspective",
	"Creative approach",
	"Worth exploring",
	"Fresh take",
	"Interesting find",
	"Community favorite",
}

// ExploreSections builds every explore section for userID. Apart from the
// discovery section the result is deterministic for a given store state.
func (a *Aggregator) ExploreSections(ctx context.Context, userID string) (*Explore, error) {
	now := a.now()

	ds, err := a.load(ctx, loadSpec{
		documents:    &storage.DocumentFilter{PublicOnly: true},
		users:        true,
		interactions: &storage.InteractionFilter{},
	})
	if err != nil {
		return nil, err
	}

	followed := ranking.FollowedAuthors(ds.interactions, userID)
	followedSet := ranking.Set(followed)

	sizes := a.cfg.Sections
	var sections []Section

	// 1. Trending: public documents with engagement inside the window
	windowStart := a.windowStart(now)
	var windowed []models.Interaction
	for _, in := range ds.interactions {
		if in.TargetType == models.TargetDocument && in.Timestamp.After(windowStart) {
			windowed = append(windowed, in)
		}
	}
	var trending []DocumentCard
	for _, st := range a.rankDocuments(ds.documents, windowed) {
		if st.score <= 0 || len(trending) == sizes.Trending {
			break
		}
		trending = append(trending, a.card(st.doc, ds.userIndex, st.score))
	}
	sections = append(sections, newSection("trending", "Trending Now", SectionTrending, trending, len(trending)))

	// 2. Recent uploads by others
	others := make([]models.Document, 0, len(ds.documents))
	for _, doc := range ds.documents {
		if doc.UserID != userID {
			others = append(others, doc)
		}
	}
	recentDocs := append([]models.Document(nil), others...)
	newestFirst(recentDocs)
	recentDocs = truncate(recentDocs, sizes.Recent)

	recent := make([]DocumentCard, 0, len(recentDocs))
	for i := range recentDocs {
		c := a.card(&recentDocs[i], ds.userIndex, 0)
		c.IsNew = now.Sub(recentDocs[i].CreatedAt) < sizes.NewWithin
		recent = append(recent, c)
	}
	sections = append(sections, newSection("recent", "Recently Added", SectionRecent, recent, len(recent)))

	// 3. Popular authors
	authors := a.popularAuthors(ds, userID, followedSet)
	sections = append(sections, newSection("popular_authors", "Popular Authors", SectionPopularAuthors, authors, len(authors)))

	// 4. Categories
	categories := a.categoryCards(ds)
	shown := truncate(categories, sizes.Categories)
	sections = append(sections, newSection("categories", "Browse by Category", SectionCategories, shown, len(categories)))

	// 5. Random discovery
	discovery := a.discover(others, ds.userIndex)
	sections = append(sections, newSection("random_discovery", "Discover Something New", SectionRandomDiscovery, discovery, len(discovery)))

	return &Explore{
		Sections:      sections,
		TotalSections: len(sections),
		UserStats: UserStats{
			TotalDocuments:  len(ds.documents),
			TotalUsers:      len(ds.users),
			TotalCategories: len(categories),
			UserFollowing:   len(followed),
		},
	}, nil
}

func newSection[T any](id, title string, kind SectionType, items []T, total int) Section {
	if items == nil {
		items = []T{}
	}
	return Section{ID: id, Title: title, Type: kind, Items: items, TotalCount: total}
}

func (a *Aggregator) card(doc *models.Document, users map[string]*models.User, score float64) DocumentCard {
	return DocumentCard{
		Document: *doc,
		Author:   models.ResolveAuthor(users, doc.UserID),
		Score:    score,
	}
}

// popularAuthors ranks authors other than userID and the users they follow
// by public documents plus twice the likes those documents received
func (a *Aggregator) popularAuthors(ds *dataset, userID string, followed map[string]struct{}) []AuthorCard {
	docCounts := make(map[string]int)
	owners := make(map[string]string, len(ds.documents))
	for _, doc := range ds.documents {
		docCounts[doc.UserID]++
		owners[doc.ID] = doc.UserID
	}

	likes := make(map[string]int)
	for _, in := range ds.interactions {
		if in.Type != models.InteractionLike || in.TargetType != models.TargetDocument {
			continue
		}
		if owner, ok := owners[in.TargetID]; ok {
			likes[owner]++
		}
	}

	var cards []AuthorCard
	for i := range ds.users {
		u := &ds.users[i]
		if u.ID == userID {
			continue
		}
		if _, ok := followed[u.ID]; ok {
			continue
		}
		if docCounts[u.ID] == 0 {
			continue
		}
		summary := u.Summary()
		cards = append(cards, AuthorCard{
			ID:              u.ID,
			Name:            u.Name,
			AvatarURL:       summary.AvatarURL,
			Bio:             u.Bio,
			DocumentCount:   docCounts[u.ID],
			LikesReceived:   likes[u.ID],
			PopularityScore: docCounts[u.ID] + 2*likes[u.ID],
		})
	}

	sort.SliceStable(cards, func(i, j int) bool {
		return cards[i].PopularityScore > cards[j].PopularityScore
	})
	return truncate(cards, a.cfg.Sections.PopularAuthors)
}

// categoryCards groups public documents by category, largest first. Equal
// counts are ordered by name.
func (a *Aggregator) categoryCards(ds *dataset) []CategoryCard {
	groups := make(map[string][]models.Document)
	for _, doc := range ds.documents {
		if doc.Category != "" {
			groups[doc.Category] = append(groups[doc.Category], doc)
		}
	}

	cards := make([]CategoryCard, 0, len(groups))
	for name, docs := range groups {
		authorSet := make(map[string]struct{})
		for _, doc := range docs {
			authorSet[doc.UserID] = struct{}{}
		}

		newestFirst(docs)
		docs = truncate(docs, a.cfg.Sections.CategoryDocs)
		recent := make([]DocumentCard, 0, len(docs))
		for i := range docs {
			recent = append(recent, a.card(&docs[i], ds.userIndex, 0))
		}

		cards = append(cards, CategoryCard{
			Name:            name,
			DocumentCount:   len(groups[name]),
			AuthorCount:     len(authorSet),
			RecentDocuments: recent,
		})
	}

	sort.Slice(cards, func(i, j int) bool {
		if cards[i].DocumentCount != cards[j].DocumentCount {
			return cards[i].DocumentCount > cards[j].DocumentCount
		}
		return cards[i].Name < cards[j].Name
	})
	return cards
}

// discover samples candidates uniformly and labels each with a reason
func (a *Aggregator) discover(candidates []models.Document, users map[string]*models.User) []DocumentCard {
	pool := append([]models.Document(nil), candidates...)
	a.rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	pool = truncate(pool, a.cfg.Sections.Discovery)

	out := make([]DocumentCard, 0, len(pool))
	for i := range pool {
		c := a.card(&pool[i], users, 0)
		c.DiscoveryReason = discoveryReasons[a.rng.IntN(len(discoveryReasons))]
		out = append(out, c)
	}
	return out
}
