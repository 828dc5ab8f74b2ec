// Package service provides the business logic layer: library management,
// collections, reading preferences, and the import pipeline that turns an
// uploaded EPUB into a library book.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/luminareader/lumina-server/internal/archive"
	"github.com/luminareader/lumina-server/internal/domain"
	"github.com/luminareader/lumina-server/internal/engine"
	apperr "github.com/luminareader/lumina-server/internal/errors"
	"github.com/luminareader/lumina-server/internal/media/covers"
	"github.com/luminareader/lumina-server/internal/normalize"
	"github.com/luminareader/lumina-server/internal/notify"
	"github.com/luminareader/lumina-server/internal/search"
	"github.com/luminareader/lumina-server/internal/store"
)

// ListParams controls library listing. The zero value lists everything
// sorted by title.
type ListParams struct {
	// SortBy is one of title, author, recent, progress. Empty means title,
	// except when Query is set, where empty keeps relevance order.
	SortBy string
	// SortOrder is asc or desc. Empty picks the natural order for the
	// sort key: ascending for title and author, descending for the rest.
	SortOrder     string
	FavoritesOnly bool
	CollectionID  string
	Query         string
}

// LibraryService orchestrates book operations: listing, progress,
// favorites, import, and deletion with cleanup of everything a book owns.
type LibraryService struct {
	store    *store.Store
	archive  archive.Provider
	covers   *covers.Processor
	engines  engine.Factory
	index    *search.LibraryIndex
	notifier *notify.Center
	logger   *slog.Logger
}

// NewLibraryService creates a new library service.
func NewLibraryService(
	store *store.Store,
	archive archive.Provider,
	covers *covers.Processor,
	engines engine.Factory,
	index *search.LibraryIndex,
	notifier *notify.Center,
	logger *slog.Logger,
) *LibraryService {
	return &LibraryService{
		store:    store,
		archive:  archive,
		covers:   covers,
		engines:  engines,
		index:    index,
		notifier: notifier,
		logger:   logger,
	}
}

// List returns library books with the requested filters and ordering.
// Collection filtering resolves smart collection rules, so listing
// "Reading Now" works the same as listing a hand-curated shelf.
func (s *LibraryService) List(ctx context.Context, params ListParams) ([]*domain.Book, error) {
	books, err := s.store.ListBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	if params.CollectionID != "" {
		collection, err := s.getCollection(ctx, params.CollectionID)
		if err != nil {
			return nil, err
		}
		books = filterBooks(books, collection.Contains)
	}

	if params.FavoritesOnly {
		books = filterBooks(books, func(b *domain.Book) bool { return b.IsFavorite })
	}

	if q := strings.TrimSpace(params.Query); q != "" {
		ids, err := s.index.MatchingIDs(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("search library: %w", err)
		}
		books = intersectByID(books, ids)
		if params.SortBy == "" {
			// MatchingIDs returns relevance order; keep it.
			return books, nil
		}
	}

	sortBooks(books, params.SortBy, params.SortOrder)
	return books, nil
}

// Get retrieves a single book by ID.
func (s *LibraryService) Get(ctx context.Context, bookID string) (*domain.Book, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		if errors.Is(err, store.ErrBookNotFound) {
			return nil, apperr.NotFoundf("book %s not found", bookID)
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

// UpdateProgress records a reading position. Progress is clamped to
// [0, 100]; the CFI is stored as given. This is the only write path the
// reader session uses.
func (s *LibraryService) UpdateProgress(ctx context.Context, bookID, cfi string, progress int) (*domain.Book, error) {
	book, err := s.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}

	book.SetPosition(cfi, progress)
	if err := s.store.UpdateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}
	return book, nil
}

// SetFavorite marks or unmarks a book as a favorite.
func (s *LibraryService) SetFavorite(ctx context.Context, bookID string, favorite bool) (*domain.Book, error) {
	book, err := s.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book.IsFavorite == favorite {
		return book, nil
	}

	book.IsFavorite = favorite
	if err := s.store.UpdateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}
	return book, nil
}

// Delete removes a book and everything it owns: the record, the archive
// bytes, bookmarks, highlights, the cover, and the index entry. The record
// goes first; leftover artifacts from a partially failed cleanup are
// logged, never returned.
func (s *LibraryService) Delete(ctx context.Context, bookID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	book, err := s.Get(ctx, bookID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteBook(ctx, bookID); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}

	if err := s.archive.DeleteBytes(ctx, bookID); err != nil {
		s.logger.Warn("delete archive bytes", "book_id", bookID, "error", err)
	}
	if err := s.store.DeleteBookmarks(ctx, bookID); err != nil {
		s.logger.Warn("delete bookmarks", "book_id", bookID, "error", err)
	}
	if err := s.store.DeleteHighlights(ctx, bookID); err != nil {
		s.logger.Warn("delete highlights", "book_id", bookID, "error", err)
	}
	if book.CoverPath != "" {
		if err := s.covers.Remove(bookID); err != nil {
			s.logger.Warn("delete cover", "book_id", bookID, "error", err)
		}
	}

	s.logger.Info("book removed from library", "book_id", bookID, "title", book.Title)
	return nil
}

// ClearLibrary removes every book record and its index projection, and
// nothing else. Collections, preferences, bookmarks, highlights, and
// archive blobs all survive. Returns the number of books removed.
func (s *LibraryService) ClearLibrary(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	removed, err := s.store.ClearBooks(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear books: %w", err)
	}

	s.logger.Info("library cleared", "removed", removed)
	return removed, nil
}

// Search runs a full-text query against the library index, with highlights
// and relevance scoring. Listing endpoints that only need filtered IDs go
// through List instead.
func (s *LibraryService) Search(ctx context.Context, params search.Params) (*search.Result, error) {
	if params.Limit <= 0 {
		params.Limit = search.DefaultParams().Limit
	}
	return s.index.Search(ctx, params)
}

// RebuildSearchIndex discards the index and reprojects every book from the
// store. Returns the number of books indexed.
func (s *LibraryService) RebuildSearchIndex(ctx context.Context) (int, error) {
	books, err := s.store.ListBooks(ctx)
	if err != nil {
		return 0, fmt.Errorf("list books: %w", err)
	}

	if err := s.index.Rebuild(); err != nil {
		return 0, fmt.Errorf("rebuild index: %w", err)
	}
	if err := s.index.IndexBooks(books); err != nil {
		return 0, fmt.Errorf("reindex books: %w", err)
	}

	s.logger.Info("search index rebuilt", "books", len(books))
	return len(books), nil
}

func (s *LibraryService) getCollection(ctx context.Context, collectionID string) (*domain.Collection, error) {
	collection, err := s.store.GetCollection(ctx, collectionID)
	if err != nil {
		if errors.Is(err, store.ErrCollectionNotFound) {
			return nil, apperr.NotFoundf("collection %s not found", collectionID)
		}
		return nil, fmt.Errorf("get collection: %w", err)
	}
	return collection, nil
}

func filterBooks(books []*domain.Book, keep func(*domain.Book) bool) []*domain.Book {
	out := books[:0:0]
	for _, b := range books {
		if keep(b) {
			out = append(out, b)
		}
	}
	return out
}

// intersectByID keeps the books whose IDs appear in ids, in ids order.
func intersectByID(books []*domain.Book, ids []string) []*domain.Book {
	byID := make(map[string]*domain.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}
	out := make([]*domain.Book, 0, len(ids))
	for _, bookID := range ids {
		if b, ok := byID[bookID]; ok {
			out = append(out, b)
		}
	}
	return out
}

func sortBooks(books []*domain.Book, sortBy, order string) {
	if order == "" {
		switch sortBy {
		case "recent", "progress":
			order = "desc"
		default:
			order = "asc"
		}
	}

	var less func(a, b *domain.Book) bool
	switch sortBy {
	case "author":
		less = func(a, b *domain.Book) bool {
			ka, kb := normalize.SortKey(a.Author), normalize.SortKey(b.Author)
			if ka != kb {
				return ka < kb
			}
			return normalize.SortKey(a.Title) < normalize.SortKey(b.Title)
		}
	case "recent":
		less = func(a, b *domain.Book) bool {
			return lastActivity(a).Before(lastActivity(b))
		}
	case "progress":
		less = func(a, b *domain.Book) bool {
			if a.Progress != b.Progress {
				return a.Progress < b.Progress
			}
			return normalize.SortKey(a.Title) < normalize.SortKey(b.Title)
		}
	default:
		less = func(a, b *domain.Book) bool {
			return normalize.SortKey(a.Title) < normalize.SortKey(b.Title)
		}
	}

	sort.SliceStable(books, func(i, j int) bool {
		if order == "desc" {
			return less(books[j], books[i])
		}
		return less(books[i], books[j])
	})
}

// lastActivity is the recency sort key: when the book was last opened,
// or when it was added for books never opened.
func lastActivity(b *domain.Book) time.Time {
	if b.LastOpened != nil {
		return *b.LastOpened
	}
	return b.AddedAt
}
