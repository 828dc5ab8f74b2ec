package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luminareader/lumina-server/internal/domain"
)

func TestGetBookmarks_Empty(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	// A book with no bookmarks yields an empty list, not an error
	bookmarks, err := store.GetBookmarks(ctx, "book-001")
	require.NoError(t, err)
	assert.NotNil(t, bookmarks)
	assert.Empty(t, bookmarks)
}

func TestSaveBookmarks_RoundTrip(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	// Newest-first ordering must survive the round trip untouched
	bookmarks := []*domain.Bookmark{
		domain.NewBookmark("bm-003", "epubcfi(/6/12!/4/2:0)", "Chapter 5"),
		domain.NewBookmark("bm-002", "epubcfi(/6/8!/4/2:0)", "Chapter 3"),
		domain.NewBookmark("bm-001", "epubcfi(/6/4!/4/2:0)", "Chapter 1"),
	}

	err := store.SaveBookmarks(ctx, "book-001", bookmarks)
	require.NoError(t, err)

	retrieved, err := store.GetBookmarks(ctx, "book-001")
	require.NoError(t, err)
	require.Len(t, retrieved, 3)
	assert.Equal(t, "bm-003", retrieved[0].ID)
	assert.Equal(t, "bm-002", retrieved[1].ID)
	assert.Equal(t, "bm-001", retrieved[2].ID)
}

func TestSaveBookmarks_Replaces(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	first := []*domain.Bookmark{domain.NewBookmark("bm-001", "epubcfi(/6/4!/2:0)", "One")}
	require.NoError(t, store.SaveBookmarks(ctx, "book-001", first))

	second := []*domain.Bookmark{domain.NewBookmark("bm-002", "epubcfi(/6/8!/2:0)", "Two")}
	require.NoError(t, store.SaveBookmarks(ctx, "book-001", second))

	retrieved, err := store.GetBookmarks(ctx, "book-001")
	require.NoError(t, err)
	require.Len(t, retrieved, 1)
	assert.Equal(t, "bm-002", retrieved[0].ID)
}

func TestDeleteBookmarks(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	bookmarks := []*domain.Bookmark{domain.NewBookmark("bm-001", "epubcfi(/6/4!/2:0)", "One")}
	require.NoError(t, store.SaveBookmarks(ctx, "book-001", bookmarks))

	require.NoError(t, store.DeleteBookmarks(ctx, "book-001"))

	retrieved, err := store.GetBookmarks(ctx, "book-001")
	require.NoError(t, err)
	assert.Empty(t, retrieved)
}

func TestGetHighlights_Empty(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	highlights, err := store.GetHighlights(ctx, "book-001")
	require.NoError(t, err)
	assert.NotNil(t, highlights)
	assert.Empty(t, highlights)
}

func TestSaveHighlights_RoundTrip(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	hl := domain.NewHighlight("hl-001", "epubcfi(/6/4!/2:10)", "call me ishmael", "yellow")
	hl.Note = "great opening"
	highlights := []*domain.Highlight{
		hl,
		domain.NewHighlight("hl-002", "epubcfi(/6/4!/2:80)", "some years ago", "blue"),
	}

	err := store.SaveHighlights(ctx, "book-001", highlights)
	require.NoError(t, err)

	retrieved, err := store.GetHighlights(ctx, "book-001")
	require.NoError(t, err)
	require.Len(t, retrieved, 2)
	assert.Equal(t, "hl-001", retrieved[0].ID)
	assert.Equal(t, "call me ishmael", retrieved[0].Text)
	assert.Equal(t, "great opening", retrieved[0].Note)
	assert.Equal(t, "blue", retrieved[1].Color)
}

func TestAnnotations_PerBookIsolation(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	require.NoError(t, store.SaveBookmarks(ctx, "book-001",
		[]*domain.Bookmark{domain.NewBookmark("bm-001", "epubcfi(/6/4!/2:0)", "One")}))
	require.NoError(t, store.SaveBookmarks(ctx, "book-002",
		[]*domain.Bookmark{domain.NewBookmark("bm-002", "epubcfi(/6/8!/2:0)", "Two")}))

	require.NoError(t, store.DeleteBookmarks(ctx, "book-001"))

	// book-002's bookmarks are untouched
	retrieved, err := store.GetBookmarks(ctx, "book-002")
	require.NoError(t, err)
	require.Len(t, retrieved, 1)
	assert.Equal(t, "bm-002", retrieved[0].ID)
}
