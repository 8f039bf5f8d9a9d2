package feed

import (
	"fmt"

	"github.com/jaladseva/eseva-portal/content"
)

const (
	// DefaultDaysThreshold is the recency window applied when none is given.
	DefaultDaysThreshold = 2
	// DefaultMaxItems is the result cap applied when none is given.
	DefaultMaxItems = 7

	globalCacheKey      = "recent-blogs-cache"
	categoryCachePrefix = "category-blogs-cache"
)

// Scope identifies one cached feed: an optional category plus the recency
// window and result cap. Two scopes with identical fields share one cache
// entry.
type Scope struct {
	Category      string
	DaysThreshold int
	MaxItems      int
}

// NewScope builds a scope, filling defaults for non-positive parameters.
func NewScope(category string, daysThreshold, maxItems int) Scope {
	if daysThreshold <= 0 {
		daysThreshold = DefaultDaysThreshold
	}
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	return Scope{Category: category, DaysThreshold: daysThreshold, MaxItems: maxItems}
}

// Key returns the storage key for the scope. The global feed keeps its
// legacy fixed key; category feeds encode every parameter so different
// windows never collide.
func (s Scope) Key() string {
	if s.Category == "" {
		return globalCacheKey
	}
	return fmt.Sprintf("%s-%s-%d-%d", categoryCachePrefix, s.Category, s.DaysThreshold, s.MaxItems)
}

// Entry is the persisted cache record for a scope.
type Entry struct {
	Blogs         []content.Post `json:"blogs"`
	Timestamp     int64          `json:"timestamp"`
	Category      string         `json:"category,omitempty"`
	DaysThreshold int            `json:"daysThreshold"`
	MaxItems      int            `json:"maxItems"`
}

// matches reports whether the entry was written for exactly this scope.
// Entries recorded under different parameters are unusable even when the
// storage key collides (the global key predates parameter encoding).
func (e *Entry) matches(scope Scope) bool {
	return e.Category == scope.Category &&
		e.DaysThreshold == scope.DaysThreshold &&
		e.MaxItems == scope.MaxItems
}
