package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luminareader/lumina-server/internal/domain"
)

// setupTestIndex creates a temporary search index for testing.
func setupTestIndex(t *testing.T) (*LibraryIndex, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "search-test-*")
	require.NoError(t, err)

	index, err := NewLibraryIndex(Options{
		DataPath: tmpDir,
		Logger:   nil,
	})
	require.NoError(t, err)

	cleanup := func() {
		_ = index.Close()
		_ = os.RemoveAll(tmpDir)
	}

	return index, cleanup
}

func TestNewLibraryIndex(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestLibraryIndex_IndexBook(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	book := domain.NewBook("book-123", "The Hobbit", "J.R.R. Tolkien")

	err := index.IndexBook(context.Background(), book)
	require.NoError(t, err)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestLibraryIndex_IndexBook_ReplacesExisting(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	ctx := context.Background()

	book := domain.NewBook("book-1", "Dracula", "Bram Stoker")
	require.NoError(t, index.IndexBook(ctx, book))

	// Reindexing the same ID replaces the document, as on book updates
	book.Title = "Emma"
	book.Author = "Jane Austen"
	require.NoError(t, index.IndexBook(ctx, book))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	result, err := index.Search(ctx, Params{Query: "Emma", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), result.Total)

	result, err = index.Search(ctx, Params{Query: "Dracula", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), result.Total)
}

func TestLibraryIndex_IndexBooks_Batch(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	books := []*domain.Book{
		domain.NewBook("book-1", "Book One", ""),
		domain.NewBook("book-2", "Book Two", ""),
		domain.NewBook("book-3", "Book Three", ""),
	}

	err := index.IndexBooks(books)
	require.NoError(t, err)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}

func TestLibraryIndex_DeleteBook(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	ctx := context.Background()

	book := domain.NewBook("book-123", "Test Book", "")
	require.NoError(t, index.IndexBook(ctx, book))

	err := index.DeleteBook(ctx, "book-123")
	require.NoError(t, err)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestLibraryIndex_Search_Title(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	books := []*domain.Book{
		domain.NewBook("book-1", "The Hobbit", "J.R.R. Tolkien"),
		domain.NewBook("book-2", "The Lord of the Rings", "J.R.R. Tolkien"),
		domain.NewBook("book-3", "Emma", "Jane Austen"),
	}
	require.NoError(t, index.IndexBooks(books))

	result, err := index.Search(context.Background(), Params{
		Query: "Hobbit",
		Limit: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), result.Total)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "book-1", result.Hits[0].ID)
	assert.Equal(t, "The Hobbit", result.Hits[0].Title)
	assert.Equal(t, "J.R.R. Tolkien", result.Hits[0].Author)
}

func TestLibraryIndex_Search_Author(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	books := []*domain.Book{
		domain.NewBook("book-1", "The Hobbit", "J.R.R. Tolkien"),
		domain.NewBook("book-2", "The Lord of the Rings", "J.R.R. Tolkien"),
		domain.NewBook("book-3", "Emma", "Jane Austen"),
	}
	require.NoError(t, index.IndexBooks(books))

	result, err := index.Search(context.Background(), Params{
		Query: "Tolkien",
		Limit: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), result.Total)
}

func TestLibraryIndex_Search_Prefix(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	book := domain.NewBook("book-1", "The Hobbit", "")
	require.NoError(t, index.IndexBook(context.Background(), book))

	// Prefix of "Hobbit", as typed mid-word in the search box
	result, err := index.Search(context.Background(), Params{
		Query: "Hobb",
		Limit: 10,
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.Total, uint64(1))
}

func TestLibraryIndex_Search_Typo(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	book := domain.NewBook("book-1", "The Hobbit", "")
	require.NoError(t, index.IndexBook(context.Background(), book))

	// One edit away from "hobbit"; the fuzzy clause should still find it
	result, err := index.Search(context.Background(), Params{
		Query: "hobit",
		Limit: 10,
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.Total, uint64(1))
}

func TestLibraryIndex_Search_FavoritesOnly(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	favorite := domain.NewBook("book-1", "The Hobbit", "")
	favorite.IsFavorite = true
	other := domain.NewBook("book-2", "Emma", "")

	require.NoError(t, index.IndexBooks([]*domain.Book{favorite, other}))

	result, err := index.Search(context.Background(), Params{
		FavoritesOnly: true,
		Limit:         10,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), result.Total)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "book-1", result.Hits[0].ID)
	assert.True(t, result.Hits[0].Favorite)
}

func TestLibraryIndex_Search_Collection(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	inside := domain.NewBook("book-1", "The Hobbit", "")
	inside.JoinCollection("col-reading")
	inside.JoinCollection("col-fantasy")
	outside := domain.NewBook("book-2", "Emma", "")
	outside.JoinCollection("col-classics")

	require.NoError(t, index.IndexBooks([]*domain.Book{inside, outside}))

	result, err := index.Search(context.Background(), Params{
		CollectionID: "col-fantasy",
		Limit:        10,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), result.Total)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "book-1", result.Hits[0].ID)
}

func TestLibraryIndex_Search_ProgressRange(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	unread := domain.NewBook("book-1", "Unread", "")
	halfway := domain.NewBook("book-2", "Halfway", "")
	halfway.Progress = 50
	finished := domain.NewBook("book-3", "Finished", "")
	finished.Progress = 100

	require.NoError(t, index.IndexBooks([]*domain.Book{unread, halfway, finished}))

	// The upper bound is inclusive, so a finished book at exactly 100 matches
	result, err := index.Search(context.Background(), Params{
		MinProgress: 40,
		MaxProgress: 100,
		Limit:       10,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), result.Total)

	ids := []string{result.Hits[0].ID, result.Hits[1].ID}
	assert.ElementsMatch(t, []string{"book-2", "book-3"}, ids)
}

func TestLibraryIndex_Search_SortByRecent(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	base := time.Now()

	oldest := domain.NewBook("book-1", "Oldest", "")
	oldest.AddedAt = base.Add(-2 * time.Hour)
	middle := domain.NewBook("book-2", "Middle", "")
	middle.AddedAt = base.Add(-time.Hour)
	newest := domain.NewBook("book-3", "Newest", "")
	newest.AddedAt = base

	require.NoError(t, index.IndexBooks([]*domain.Book{oldest, middle, newest}))

	result, err := index.Search(context.Background(), Params{
		SortBy: "recent",
		Limit:  10,
	})
	require.NoError(t, err)
	require.Len(t, result.Hits, 3)
	assert.Equal(t, "book-3", result.Hits[0].ID)
	assert.Equal(t, "book-2", result.Hits[1].ID)
	assert.Equal(t, "book-1", result.Hits[2].ID)
}

func TestLibraryIndex_Search_SortByTitle(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	books := []*domain.Book{
		domain.NewBook("book-1", "Hobbit", ""),
		domain.NewBook("book-2", "Dracula", ""),
		domain.NewBook("book-3", "Emma", ""),
	}
	require.NoError(t, index.IndexBooks(books))

	result, err := index.Search(context.Background(), Params{
		SortBy: "title",
		Limit:  10,
	})
	require.NoError(t, err)
	require.Len(t, result.Hits, 3)
	assert.Equal(t, "Dracula", result.Hits[0].Title)
	assert.Equal(t, "Emma", result.Hits[1].Title)
	assert.Equal(t, "Hobbit", result.Hits[2].Title)
}

func TestLibraryIndex_Search_Highlight(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	book := domain.NewBook("book-1", "The Hobbit", "J.R.R. Tolkien")
	require.NoError(t, index.IndexBook(context.Background(), book))

	result, err := index.Search(context.Background(), Params{
		Query:     "Hobbit",
		Limit:     10,
		Highlight: true,
	})
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	require.Contains(t, result.Hits[0].Highlights, "title")
	assert.Contains(t, result.Hits[0].Highlights["title"], "Hobbit")
}

func TestLibraryIndex_MatchingIDs(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	books := []*domain.Book{
		domain.NewBook("book-1", "Emma", "Jane Austen"),
		domain.NewBook("book-2", "Jane Eyre", "Charlotte Bronte"),
		domain.NewBook("book-3", "Dracula", "Bram Stoker"),
	}
	require.NoError(t, index.IndexBooks(books))

	ids, err := index.MatchingIDs(context.Background(), "Jane")
	require.NoError(t, err)
	require.Len(t, ids, 2)

	// A title match outranks an author match
	assert.Equal(t, "book-2", ids[0])
	assert.Equal(t, "book-1", ids[1])
}

func TestLibraryIndex_MatchingIDs_EmptyIndex(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	ids, err := index.MatchingIDs(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestLibraryIndex_Rebuild(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	book := domain.NewBook("book-1", "Test", "")
	require.NoError(t, index.IndexBook(context.Background(), book))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	// Rebuild - should clear the index
	err = index.Rebuild()
	require.NoError(t, err)

	count, err = index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestLibraryIndex_Persistence(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "search-persist-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	// Create index and add a book
	index1, err := NewLibraryIndex(Options{DataPath: tmpDir})
	require.NoError(t, err)

	book := domain.NewBook("book-1", "Test Book", "")
	require.NoError(t, index1.IndexBook(context.Background(), book))

	err = index1.Close()
	require.NoError(t, err)

	// Reopen index and verify the book is still there
	index2, err := NewLibraryIndex(Options{DataPath: tmpDir})
	require.NoError(t, err)
	defer index2.Close()

	count, err := index2.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	result, err := index2.Search(context.Background(), Params{Query: "Test", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), result.Total)
}

func TestLibraryIndex_MappingVersionMismatchRebuilds(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "search-version-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	index1, err := NewLibraryIndex(Options{DataPath: tmpDir})
	require.NoError(t, err)

	book := domain.NewBook("book-1", "Test Book", "")
	require.NoError(t, index1.IndexBook(context.Background(), book))
	require.NoError(t, index1.Close())

	// Simulate an index written by an older mapping
	versionPath := filepath.Join(tmpDir, "library.version")
	require.NoError(t, os.WriteFile(versionPath, []byte("0"), 0644))

	index2, err := NewLibraryIndex(Options{DataPath: tmpDir})
	require.NoError(t, err)
	defer index2.Close()

	count, err := index2.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestNewBookDocument(t *testing.T) {
	book := domain.NewBook("book-123", "The Great Book", "Jane Author")
	book.IsFavorite = true
	book.Progress = 42
	book.CollectionIDs = []string{"col-1", "col-2"}
	book.MarkOpened()

	doc := NewBookDocument(book)

	assert.Equal(t, "book-123", doc.ID)
	assert.Equal(t, "The Great Book", doc.Title)
	assert.Equal(t, "Jane Author", doc.Author)
	assert.True(t, doc.Favorite)
	assert.Equal(t, 42, doc.Progress)
	assert.Equal(t, []string{"col-1", "col-2"}, doc.CollectionIDs)
	assert.Equal(t, book.AddedAt.UnixMilli(), doc.AddedAt)
	assert.Equal(t, book.LastOpened.UnixMilli(), doc.LastOpened)
}

func TestNewBookDocument_NeverOpened(t *testing.T) {
	book := domain.NewBook("book-123", "Untouched", "")

	doc := NewBookDocument(book)

	assert.Zero(t, doc.LastOpened)
	m := doc.ToMap()
	assert.NotContains(t, m, "last_opened")
	assert.NotContains(t, m, "author")
}

func TestDefaultParams(t *testing.T) {
	params := DefaultParams()

	assert.Equal(t, 50, params.Limit)
	assert.Equal(t, "relevance", params.SortBy)
	assert.True(t, params.Highlight)
}
