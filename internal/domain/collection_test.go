package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollection_Matches(t *testing.T) {
	reading := &Book{ID: "book-1", Progress: 42}
	finished := &Book{ID: "book-2", Progress: 100}
	untouched := &Book{ID: "book-3", Progress: 0}
	favorite := &Book{ID: "book-4", IsFavorite: true}

	tests := []struct {
		name string
		rule SmartRule
		book *Book
		want bool
	}{
		{"reading now matches in-progress", RuleReadingNow, reading, true},
		{"reading now rejects finished", RuleReadingNow, finished, false},
		{"reading now rejects untouched", RuleReadingNow, untouched, false},
		{"finished matches complete", RuleFinished, finished, true},
		{"finished rejects in-progress", RuleFinished, reading, false},
		{"favorites matches flagged", RuleFavorites, favorite, true},
		{"favorites rejects unflagged", RuleFavorites, reading, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Collection{Type: CollectionSmart, Rule: tt.rule}
			assert.Equal(t, tt.want, c.Matches(tt.book))
		})
	}
}

func TestCollection_Matches_CustomNeverMatches(t *testing.T) {
	c := NewCustomCollection("col-x", "Sci-Fi", "rocket")
	b := &Book{ID: "book-1", Progress: 50, IsFavorite: true}
	assert.False(t, c.Matches(b))
}

func TestCollection_Contains(t *testing.T) {
	custom := NewCustomCollection("col-scifi", "Sci-Fi", "rocket")
	smart := &Collection{ID: "col-finished", Type: CollectionSmart, Rule: RuleFinished}

	member := &Book{ID: "book-1", CollectionIDs: []string{"col-scifi"}}
	finished := &Book{ID: "book-2", Progress: 100}

	assert.True(t, custom.Contains(member))
	assert.False(t, custom.Contains(finished))
	assert.True(t, smart.Contains(finished))
	assert.False(t, smart.Contains(member))
}

func TestSeedCollections(t *testing.T) {
	seeds := SeedCollections()
	assert.Len(t, seeds, 3)

	for _, c := range seeds {
		assert.True(t, c.IsSmart())
		assert.True(t, c.IsDefault)
		assert.NotEmpty(t, c.Rule)
	}
}

func TestBook_CollectionMembership(t *testing.T) {
	b := NewBook("book-1", "Dune", "Frank Herbert")

	assert.True(t, b.JoinCollection("col-a"))
	assert.False(t, b.JoinCollection("col-a"), "joining twice should be a no-op")
	assert.True(t, b.InCollection("col-a"))

	assert.True(t, b.LeaveCollection("col-a"))
	assert.False(t, b.LeaveCollection("col-a"), "leaving twice should be a no-op")
	assert.False(t, b.InCollection("col-a"))
}
