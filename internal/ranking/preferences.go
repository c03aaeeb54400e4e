package ranking

import "github.com/prokemal2012/Filx/internal/models"

// Preferences is a per-user weighted affinity vector. It is rebuilt on every
// request and never stored.
type Preferences struct {
	Categories map[string]float64 `json:"categories"`
	Tags       map[string]float64 `json:"tags"`
	Authors    map[string]float64 `json:"authors"`
}

// NewPreferences returns an empty vector
func NewPreferences() Preferences {
	return Preferences{
		Categories: make(map[string]float64),
		Tags:       make(map[string]float64),
		Authors:    make(map[string]float64),
	}
}

// Empty reports whether no affinity has been recorded
func (p Preferences) Empty() bool {
	return len(p.Categories) == 0 && len(p.Tags) == 0 && len(p.Authors) == 0
}

// EstimatePreferences accumulates userID's interactions into a preference
// vector. Interactions of other users are ignored, so callers may pass the
// unfiltered log. There is no time decay.
func EstimatePreferences(interactions []models.Interaction, userID string, w Weights) Preferences {
	prefs := NewPreferences()

	for i := range interactions {
		in := &interactions[i]
		if in.UserID != userID {
			continue
		}
		weight := w.ForType(in.Type)

		if in.IsFollow() {
			prefs.Authors[in.TargetID] += weight
		}

		// Snapshot fields count regardless of interaction type
		if category, ok := in.Category(); ok {
			prefs.Categories[category] += weight
		}
		for _, tag := range in.Tags() {
			prefs.Tags[tag] += weight
		}
	}

	return prefs
}

// FollowedAuthors returns the ids userID follows, in follow order
func FollowedAuthors(interactions []models.Interaction, userID string) []string {
	var ids []string
	for i := range interactions {
		if interactions[i].UserID == userID && interactions[i].IsFollow() {
			ids = append(ids, interactions[i].TargetID)
		}
	}
	return ids
}

// Set builds a membership set from ids
func Set(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
