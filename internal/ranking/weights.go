// Package ranking derives per-user preference vectors from the interaction
// log and scores candidate documents against them.
package ranking

import (
	"time"

	"github.com/prokemal2012/Filx/internal/models"
)

// Weights holds every constant of the preference and scoring formulas
type Weights struct {
	// Per-interaction contribution to the preference vector
	Like     float64 `koanf:"like" validate:"gte=0"`
	Bookmark float64 `koanf:"bookmark" validate:"gte=0"`
	Follow   float64 `koanf:"follow" validate:"gte=0"`

	// Document score terms
	FollowedAuthorBonus float64 `koanf:"followed_author_bonus" validate:"gte=0"`
	Category            float64 `koanf:"category" validate:"gte=0"`
	Tag                 float64 `koanf:"tag" validate:"gte=0"`
	Author              float64 `koanf:"author" validate:"gte=0"`
	RecencyDays         float64 `koanf:"recency_days" validate:"gte=0"`
	Public              float64 `koanf:"public" validate:"gte=0"`
}

// DefaultWeights returns the production weights
func DefaultWeights() Weights {
	return Weights{
		Like:                3,
		Bookmark:            5,
		Follow:              2,
		FollowedAuthorBonus: 100,
		Category:            2,
		Tag:                 1,
		Author:              1.5,
		RecencyDays:         20,
		Public:              5,
	}
}

// ForType returns the preference weight of an interaction type.
// Unknown types count 1.
func (w Weights) ForType(t models.InteractionType) float64 {
	switch t {
	case models.InteractionLike:
		return w.Like
	case models.InteractionBookmark:
		return w.Bookmark
	case models.InteractionFollow:
		return w.Follow
	}
	return 1
}

// Clock returns the current time. Tests inject a fixed one.
type Clock func() time.Time

// SystemClock is the wall clock
func SystemClock() time.Time {
	return time.Now()
}

// FixedClock returns a Clock that always reports t
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
