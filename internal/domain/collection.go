package domain

import "time"

// CollectionType distinguishes rule-based collections from hand-curated ones.
type CollectionType string

// Collection types.
const (
	CollectionSmart  CollectionType = "smart"
	CollectionCustom CollectionType = "custom"
)

// SmartRule identifies the membership predicate of a smart collection.
type SmartRule string

// Smart collection rules.
const (
	RuleReadingNow SmartRule = "reading_now"
	RuleFinished   SmartRule = "finished"
	RuleFavorites  SmartRule = "favorites"
)

// Collection groups books. Custom collections carry explicit membership
// (recorded on Book.CollectionIDs); smart collections compute membership
// from book state and are seeded at first run.
type Collection struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Type      CollectionType `json:"type"`
	Icon      string         `json:"icon,omitempty"`
	Rule      SmartRule      `json:"rule,omitempty"`
	IsDefault bool           `json:"is_default,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewCustomCollection creates a user-defined collection.
func NewCustomCollection(collectionID, name, icon string) *Collection {
	now := time.Now()
	return &Collection{
		ID:        collectionID,
		Name:      name,
		Type:      CollectionCustom,
		Icon:      icon,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsSmart reports whether membership is computed rather than curated.
func (c *Collection) IsSmart() bool {
	return c.Type == CollectionSmart
}

// Matches evaluates a smart collection's rule against a book.
// Custom collections always return false here; their membership
// lives on the book itself.
func (c *Collection) Matches(b *Book) bool {
	if !c.IsSmart() {
		return false
	}
	switch c.Rule {
	case RuleReadingNow:
		return b.InProgress()
	case RuleFinished:
		return b.IsFinished()
	case RuleFavorites:
		return b.IsFavorite
	default:
		return false
	}
}

// Contains reports whether a book belongs to this collection,
// resolving smart rules and custom membership uniformly.
func (c *Collection) Contains(b *Book) bool {
	if c.IsSmart() {
		return c.Matches(b)
	}
	return b.InCollection(c.ID)
}

// Touch bumps the updated timestamp.
func (c *Collection) Touch() {
	c.UpdatedAt = time.Now()
}

// SeedCollections returns the smart collections created at first run.
// They are not deletable.
func SeedCollections() []*Collection {
	now := time.Now()
	seed := func(collectionID, name, icon string, rule SmartRule) *Collection {
		return &Collection{
			ID:        collectionID,
			Name:      name,
			Type:      CollectionSmart,
			Icon:      icon,
			Rule:      rule,
			IsDefault: true,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	return []*Collection{
		seed("col-reading-now", "Reading Now", "book-open", RuleReadingNow),
		seed("col-finished", "Finished", "check-circle", RuleFinished),
		seed("col-favorites", "Favorites", "heart", RuleFavorites),
	}
}
