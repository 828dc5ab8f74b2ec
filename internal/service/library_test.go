package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luminareader/lumina-server/internal/archive"
	"github.com/luminareader/lumina-server/internal/domain"
	"github.com/luminareader/lumina-server/internal/engine"
	"github.com/luminareader/lumina-server/internal/engine/enginetest"
	apperr "github.com/luminareader/lumina-server/internal/errors"
	"github.com/luminareader/lumina-server/internal/media/covers"
	"github.com/luminareader/lumina-server/internal/notify"
	"github.com/luminareader/lumina-server/internal/search"
	"github.com/luminareader/lumina-server/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type libraryFixture struct {
	svc      *LibraryService
	store    *store.Store
	engines  *enginetest.Factory
	provider archive.Provider
	covers   *covers.Storage
	index    *search.LibraryIndex
	center   *notify.Center
}

func setupLibrary(t *testing.T) *libraryFixture {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "lumina-service-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	st, err := store.New(filepath.Join(tmpDir, "db"), nil, store.NewNoopEmitter())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	index, err := search.NewLibraryIndex(search.Options{
		DataPath: filepath.Join(tmpDir, "index"),
		Logger:   discardLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })
	st.SetSearchIndexer(index)

	provider, err := archive.NewFilesystemProvider(filepath.Join(tmpDir, "archives"))
	require.NoError(t, err)

	coverStorage, err := covers.NewStorage(filepath.Join(tmpDir, "covers"))
	require.NoError(t, err)

	engines := enginetest.NewFactory()
	center := notify.NewCenter(notify.DefaultTTL, discardLogger(), nil)
	t.Cleanup(center.Close)

	svc := NewLibraryService(
		st,
		provider,
		covers.NewProcessor(coverStorage, discardLogger()),
		engines,
		index,
		center,
		discardLogger(),
	)

	return &libraryFixture{
		svc:      svc,
		store:    st,
		engines:  engines,
		provider: provider,
		covers:   coverStorage,
		index:    index,
		center:   center,
	}
}

// epubBytes fabricates bytes that pass the zip-signature check. The fake
// engine never parses them, so a recognizable payload is all that matters.
func epubBytes(payload string) []byte {
	return append([]byte("PK\x03\x04"), payload...)
}

func coverJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 400, 600))
	for y := 0; y < 600; y++ {
		for x := 0; x < 400; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: 80, B: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func seedBook(t *testing.T, f *libraryFixture, book *domain.Book) {
	t.Helper()
	require.NoError(t, f.store.CreateBook(context.Background(), book))
}

func TestLibraryService_ImportBook(t *testing.T) {
	f := setupLibrary(t)
	ctx := context.Background()

	f.engines.Meta = engine.Metadata{Title: "The Hobbit", Author: "J.R.R. Tolkien"}
	f.engines.Cover = coverJPEG(t)
	f.engines.CoverType = "image/jpeg"

	book, err := f.svc.ImportBook(ctx, "the-hobbit.epub", epubBytes("hobbit"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(book.ID, "book-"))
	assert.Equal(t, "The Hobbit", book.Title)
	assert.Equal(t, "J.R.R. Tolkien", book.Author)
	assert.Len(t, book.ContentHash, 64)
	assert.NotEmpty(t, book.CoverPath)
	assert.NotEmpty(t, book.CoverBlurHash)

	// Archive bytes are retrievable.
	stored, err := f.provider.GetBytes(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, epubBytes("hobbit"), stored)

	// Record persisted and indexed.
	loaded, err := f.store.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, book.Title, loaded.Title)

	count, err := f.index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	// Cover landed on disk.
	assert.True(t, f.covers.Exists(book.ID))

	// The import surfaced a success toast.
	toasts := f.center.Active()
	require.Len(t, toasts, 1)
	assert.Equal(t, domain.ToastSuccess, toasts[0].Kind)
	assert.Contains(t, toasts[0].Message, "The Hobbit")

	// The throwaway metadata engine was torn down.
	assert.True(t, f.engines.Engine(0).Destroyed())
}

func TestLibraryService_ImportBook_RejectsNonZip(t *testing.T) {
	f := setupLibrary(t)

	_, err := f.svc.ImportBook(context.Background(), "novel.epub", []byte("not an epub"))
	assert.ErrorIs(t, err, apperr.ErrInvalidArchive)

	_, err = f.svc.ImportBook(context.Background(), "empty.epub", nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidArchive)
}

func TestLibraryService_ImportBook_ParseFailure(t *testing.T) {
	f := setupLibrary(t)
	f.engines.ReadyErr = apperr.InvalidArchive("missing container.xml")

	_, err := f.svc.ImportBook(context.Background(), "broken.epub", epubBytes("broken"))
	assert.ErrorIs(t, err, apperr.ErrInvalidArchive)

	// Nothing was persisted.
	books, err := f.store.ListBooks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestLibraryService_ImportBook_DedupGuard(t *testing.T) {
	f := setupLibrary(t)
	ctx := context.Background()
	data := epubBytes("same-file")

	first, err := f.svc.ImportBook(ctx, "copy-one.epub", data)
	require.NoError(t, err)

	// Same bytes arriving through another path import exactly once.
	_, err = f.svc.ImportBook(ctx, "copy-two.epub", data)
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)

	books, err := f.store.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, first.ID, books[0].ID)

	// Different bytes import fine.
	_, err = f.svc.ImportBook(ctx, "another.epub", epubBytes("different-file"))
	assert.NoError(t, err)
}

func TestLibraryService_ImportBook_TitleFallsBackToFilename(t *testing.T) {
	f := setupLibrary(t)
	f.engines.Meta = engine.Metadata{}

	book, err := f.svc.ImportBook(context.Background(), "/drop/pride_and_prejudice.epub", epubBytes("pp"))
	require.NoError(t, err)
	assert.Equal(t, "pride and prejudice", book.Title)
	assert.Empty(t, book.Author)
}

func TestLibraryService_ImportBook_BadCoverDoesNotFailImport(t *testing.T) {
	f := setupLibrary(t)
	f.engines.Cover = []byte("not an image")
	f.engines.CoverType = "image/jpeg"

	book, err := f.svc.ImportBook(context.Background(), "book.epub", epubBytes("bad-cover"))
	require.NoError(t, err)
	assert.Empty(t, book.CoverPath)
	assert.Empty(t, book.CoverBlurHash)
	assert.False(t, f.covers.Exists(book.ID))
}

func TestLibraryService_Get(t *testing.T) {
	f := setupLibrary(t)
	ctx := context.Background()

	seedBook(t, f, domain.NewBook("book-1", "Emma", "Jane Austen"))

	book, err := f.svc.Get(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, "Emma", book.Title)

	_, err = f.svc.Get(ctx, "book-missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestLibraryService_UpdateProgress_Clamps(t *testing.T) {
	f := setupLibrary(t)
	ctx := context.Background()
	seedBook(t, f, domain.NewBook("book-1", "Emma", "Jane Austen"))

	book, err := f.svc.UpdateProgress(ctx, "book-1", "epubcfi(/6/4!/4/2)", 150)
	require.NoError(t, err)
	assert.Equal(t, 100, book.Progress)
	assert.Equal(t, "epubcfi(/6/4!/4/2)", book.CFI)

	book, err = f.svc.UpdateProgress(ctx, "book-1", "epubcfi(/6/2!/4/2)", -10)
	require.NoError(t, err)
	assert.Equal(t, 0, book.Progress)

	book, err = f.svc.UpdateProgress(ctx, "book-1", "epubcfi(/6/8!/4/2)", 55)
	require.NoError(t, err)
	assert.Equal(t, 55, book.Progress)

	// Persisted, not just returned.
	loaded, err := f.store.GetBook(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, 55, loaded.Progress)
	assert.Equal(t, "epubcfi(/6/8!/4/2)", loaded.CFI)
}

func TestLibraryService_SetFavorite(t *testing.T) {
	f := setupLibrary(t)
	ctx := context.Background()
	seedBook(t, f, domain.NewBook("book-1", "Emma", "Jane Austen"))

	book, err := f.svc.SetFavorite(ctx, "book-1", true)
	require.NoError(t, err)
	assert.True(t, book.IsFavorite)

	loaded, err := f.store.GetBook(ctx, "book-1")
	require.NoError(t, err)
	assert.True(t, loaded.IsFavorite)

	// Setting the same value again is a no-op, not an error.
	_, err = f.svc.SetFavorite(ctx, "book-1", true)
	assert.NoError(t, err)

	book, err = f.svc.SetFavorite(ctx, "book-1", false)
	require.NoError(t, err)
	assert.False(t, book.IsFavorite)
}

func TestLibraryService_List_SortsByTitleIgnoringArticles(t *testing.T) {
	f := setupLibrary(t)
	ctx := context.Background()

	seedBook(t, f, domain.NewBook("book-1", "The Zebra Notebook", "A"))
	seedBook(t, f, domain.NewBook("book-2", "Aardvark Summer", "B"))
	seedBook(t, f, domain.NewBook("book-3", "The Middle Passage", "C"))

	books, err := f.svc.List(ctx, ListParams{})
	require.NoError(t, err)
	require.Len(t, books, 3)
	assert.Equal(t, "Aardvark Summer", books[0].Title)
	assert.Equal(t, "The Middle Passage", books[1].Title)
	assert.Equal(t, "The Zebra Notebook", books[2].Title)

	books, err = f.svc.List(ctx, ListParams{SortBy: "title", SortOrder: "desc"})
	require.NoError(t, err)
	assert.Equal(t, "The Zebra Notebook", books[0].Title)
}

func TestLibraryService_List_SortsByRecent(t *testing.T) {
	f := setupLibrary(t)
	ctx := context.Background()
	base := time.Now()

	old := domain.NewBook("book-1", "Old", "A")
	old.AddedAt = base.Add(-48 * time.Hour)

	newer := domain.NewBook("book-2", "Newer", "B")
	newer.AddedAt = base.Add(-24 * time.Hour)

	// Opened recently; the open wins over its old AddedAt.
	opened := domain.NewBook("book-3", "Opened", "C")
	opened.AddedAt = base.Add(-72 * time.Hour)
	openedAt := base.Add(-1 * time.Hour)
	opened.LastOpened = &openedAt

	seedBook(t, f, old)
	seedBook(t, f, newer)
	seedBook(t, f, opened)

	books, err := f.svc.List(ctx, ListParams{SortBy: "recent"})
	require.NoError(t, err)
	require.Len(t, books, 3)
	assert.Equal(t, "Opened", books[0].Title)
	assert.Equal(t, "Newer", books[1].Title)
	assert.Equal(t, "Old", books[2].Title)
}

func TestLibraryService_List_SortsByProgress(t *testing.T) {
	f := setupLibrary(t)
	ctx := context.Background()

	for i, progress := range []int{10, 90, 50} {
		book := domain.NewBook("book-"+string(rune('a'+i)), "Book "+string(rune('A'+i)), "")
		book.Progress = progress
		seedBook(t, f, book)
	}

	books, err := f.svc.List(ctx, ListParams{SortBy: "progress"})
	require.NoError(t, err)
	require.Len(t, books, 3)
	assert.Equal(t, 90, books[0].Progress)
	assert.Equal(t, 50, books[1].Progress)
	assert.Equal(t, 10, books[2].Progress)
}

func TestLibraryService_List_Filters(t *testing.T) {
	f := setupLibrary(t)
	ctx := context.Background()

	fav := domain.NewBook("book-1", "Favorite", "A")
	fav.IsFavorite = true
	seedBook(t, f, fav)

	inProgress := domain.NewBook("book-2", "Reading", "B")
	inProgress.Progress = 40
	seedBook(t, f, inProgress)

	member := domain.NewBook("book-3", "Shelved", "C")
	member.JoinCollection("col-custom")
	seedBook(t, f, member)

	require.NoError(t, f.store.CreateCollection(ctx, domain.NewCustomCollection("col-custom", "My Shelf", "")))
	for _, c := range domain.SeedCollections() {
		require.NoError(t, f.store.CreateCollection(ctx, c))
	}

	t.Run("favorites only", func(t *testing.T) {
		books, err := f.svc.List(ctx, ListParams{FavoritesOnly: true})
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, "Favorite", books[0].Title)
	})

	t.Run("custom collection membership", func(t *testing.T) {
		books, err := f.svc.List(ctx, ListParams{CollectionID: "col-custom"})
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, "Shelved", books[0].Title)
	})

	t.Run("smart collection resolves its rule", func(t *testing.T) {
		books, err := f.svc.List(ctx, ListParams{CollectionID: "col-reading-now"})
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, "Reading", books[0].Title)
	})

	t.Run("unknown collection", func(t *testing.T) {
		_, err := f.svc.List(ctx, ListParams{CollectionID: "col-missing"})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestLibraryService_List_Query(t *testing.T) {
	f := setupLibrary(t)
	ctx := context.Background()

	seedBook(t, f, domain.NewBook("book-1", "The Hobbit", "J.R.R. Tolkien"))
	seedBook(t, f, domain.NewBook("book-2", "Dracula", "Bram Stoker"))

	books, err := f.svc.List(ctx, ListParams{Query: "hobbit"})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "The Hobbit", books[0].Title)

	// Query combines with filters.
	books, err = f.svc.List(ctx, ListParams{Query: "hobbit", FavoritesOnly: true})
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestLibraryService_Delete_RemovesEverythingTheBookOwns(t *testing.T) {
	f := setupLibrary(t)
	ctx := context.Background()

	f.engines.Meta = engine.Metadata{Title: "Emma", Author: "Jane Austen"}
	f.engines.Cover = coverJPEG(t)
	f.engines.CoverType = "image/jpeg"

	book, err := f.svc.ImportBook(ctx, "emma.epub", epubBytes("emma"))
	require.NoError(t, err)

	require.NoError(t, f.store.SaveBookmarks(ctx, book.ID, []*domain.Bookmark{
		domain.NewBookmark("bm-1", "epubcfi(/6/4!/4/2)", "p. 12"),
	}))

	require.NoError(t, f.svc.Delete(ctx, book.ID))

	_, err = f.store.GetBook(ctx, book.ID)
	assert.ErrorIs(t, err, store.ErrBookNotFound)

	exists, err := f.provider.Exists(ctx, book.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	assert.False(t, f.covers.Exists(book.ID))

	bookmarks, err := f.store.GetBookmarks(ctx, book.ID)
	require.NoError(t, err)
	assert.Empty(t, bookmarks)

	count, err := f.index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestLibraryService_Delete_NotFound(t *testing.T) {
	f := setupLibrary(t)
	err := f.svc.Delete(context.Background(), "book-missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestLibraryService_ClearLibrary_SparesEverythingElse(t *testing.T) {
	f := setupLibrary(t)
	ctx := context.Background()

	seedBook(t, f, domain.NewBook("book-1", "Emma", "Jane Austen"))
	seedBook(t, f, domain.NewBook("book-2", "Dracula", "Bram Stoker"))

	require.NoError(t, f.store.CreateCollection(ctx, domain.NewCustomCollection("col-1", "Keep Me", "")))
	require.NoError(t, f.store.SavePreferences(ctx, domain.NewPreferences()))
	require.NoError(t, f.store.SaveBookmarks(ctx, "book-1", []*domain.Bookmark{
		domain.NewBookmark("bm-1", "epubcfi(/6/4!/4/2)", "p. 12"),
	}))
	require.NoError(t, f.store.SaveBlob(ctx, "book-1", epubBytes("emma")))

	removed, err := f.svc.ClearLibrary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	books, err := f.store.ListBooks(ctx)
	require.NoError(t, err)
	assert.Empty(t, books)

	count, err := f.index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)

	// Everything outside the book namespace survived.
	collections, err := f.store.ListCollections(ctx)
	require.NoError(t, err)
	assert.Len(t, collections, 1)

	_, err = f.store.GetPreferences(ctx)
	assert.NoError(t, err)

	bookmarks, err := f.store.GetBookmarks(ctx, "book-1")
	require.NoError(t, err)
	assert.Len(t, bookmarks, 1)

	_, err = f.store.GetBlob(ctx, "book-1")
	assert.NoError(t, err)
}

func TestLibraryService_RebuildSearchIndex(t *testing.T) {
	f := setupLibrary(t)
	ctx := context.Background()

	seedBook(t, f, domain.NewBook("book-1", "The Hobbit", "J.R.R. Tolkien"))
	seedBook(t, f, domain.NewBook("book-2", "Dracula", "Bram Stoker"))

	// Wipe the index behind the store's back, as a crash between the two
	// writes would.
	require.NoError(t, f.index.Rebuild())
	count, err := f.index.DocumentCount()
	require.NoError(t, err)
	require.Equal(t, uint64(0), count)

	indexed, err := f.svc.RebuildSearchIndex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, indexed)

	ids, err := f.index.MatchingIDs(ctx, "hobbit")
	require.NoError(t, err)
	assert.Equal(t, []string{"book-1"}, ids)
}

func TestLibraryService_Search(t *testing.T) {
	f := setupLibrary(t)
	ctx := context.Background()

	seedBook(t, f, domain.NewBook("book-1", "The Hobbit", "J.R.R. Tolkien"))

	// Zero Limit gets the default page size instead of zero hits.
	result, err := f.svc.Search(ctx, search.Params{Query: "hobbit"})
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "book-1", result.Hits[0].ID)
}
