package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/luminareader/lumina-server/internal/domain"
	apperr "github.com/luminareader/lumina-server/internal/errors"
	"github.com/luminareader/lumina-server/internal/id"
	"github.com/luminareader/lumina-server/internal/normalize"
	"github.com/luminareader/lumina-server/internal/store"
)

// CollectionService manages collections. Custom collections carry curated
// membership recorded on the books themselves; smart collections compute
// membership from book state and cannot be deleted or curated.
type CollectionService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewCollectionService creates a new collection service.
func NewCollectionService(store *store.Store, logger *slog.Logger) *CollectionService {
	return &CollectionService{
		store:  store,
		logger: logger,
	}
}

// SeedDefaults creates the built-in smart collections on a fresh install.
// A store that already has any collection is left alone.
func (s *CollectionService) SeedDefaults(ctx context.Context) error {
	existing, err := s.store.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	seeded := domain.SeedCollections()
	for _, collection := range seeded {
		if err := s.store.CreateCollection(ctx, collection); err != nil {
			return fmt.Errorf("seed collection %s: %w", collection.ID, err)
		}
	}

	s.logger.Info("default collections seeded", "count", len(seeded))
	return nil
}

// Create adds a custom collection.
func (s *CollectionService) Create(ctx context.Context, name, icon string) (*domain.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("collection name cannot be empty")
	}

	collectionID, err := id.Generate(id.PrefixCollection)
	if err != nil {
		return nil, fmt.Errorf("generate collection ID: %w", err)
	}

	collection := domain.NewCustomCollection(collectionID, name, icon)
	if err := s.store.CreateCollection(ctx, collection); err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return collection, nil
}

// Get retrieves a collection by ID.
func (s *CollectionService) Get(ctx context.Context, collectionID string) (*domain.Collection, error) {
	collection, err := s.store.GetCollection(ctx, collectionID)
	if err != nil {
		if errors.Is(err, store.ErrCollectionNotFound) {
			return nil, apperr.NotFoundf("collection %s not found", collectionID)
		}
		return nil, fmt.Errorf("get collection: %w", err)
	}
	return collection, nil
}

// Rename changes a collection's display name.
func (s *CollectionService) Rename(ctx context.Context, collectionID, name string) (*domain.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("collection name cannot be empty")
	}

	collection, err := s.Get(ctx, collectionID)
	if err != nil {
		return nil, err
	}

	collection.Name = name
	collection.Touch()
	if err := s.store.UpdateCollection(ctx, collection); err != nil {
		return nil, fmt.Errorf("update collection: %w", err)
	}
	return collection, nil
}

// SetIcon changes a collection's icon. An empty icon clears it.
func (s *CollectionService) SetIcon(ctx context.Context, collectionID, icon string) (*domain.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	collection, err := s.Get(ctx, collectionID)
	if err != nil {
		return nil, err
	}

	collection.Icon = icon
	collection.Touch()
	if err := s.store.UpdateCollection(ctx, collection); err != nil {
		return nil, fmt.Errorf("update collection: %w", err)
	}
	return collection, nil
}

// Delete removes a custom collection and scrubs its membership from every
// book. Smart collections refuse deletion.
func (s *CollectionService) Delete(ctx context.Context, collectionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	collection, err := s.Get(ctx, collectionID)
	if err != nil {
		return err
	}
	if collection.IsSmart() {
		return apperr.ErrCollectionProtected
	}

	if err := s.store.DeleteCollection(ctx, collectionID); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}

	// Membership lives on the books; a dangling ID is inert but scrubbing
	// keeps the records clean.
	books, err := s.store.ListBooks(ctx)
	if err != nil {
		s.logger.Warn("list books for membership scrub", "collection_id", collectionID, "error", err)
		return nil
	}
	for _, book := range books {
		if book.LeaveCollection(collectionID) {
			if err := s.store.UpdateBook(ctx, book); err != nil {
				s.logger.Warn("scrub collection membership", "collection_id", collectionID, "book_id", book.ID, "error", err)
			}
		}
	}
	return nil
}

// AddBook adds a book to a custom collection. Adding a book that is
// already a member is a no-op.
func (s *CollectionService) AddBook(ctx context.Context, collectionID, bookID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	collection, err := s.Get(ctx, collectionID)
	if err != nil {
		return err
	}
	if collection.IsSmart() {
		return apperr.Validationf("membership of %q is computed from book state", collection.Name)
	}

	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		if errors.Is(err, store.ErrBookNotFound) {
			return apperr.NotFoundf("book %s not found", bookID)
		}
		return fmt.Errorf("get book: %w", err)
	}

	if !book.JoinCollection(collectionID) {
		return nil
	}
	if err := s.store.UpdateBook(ctx, book); err != nil {
		return fmt.Errorf("update book: %w", err)
	}

	s.touch(ctx, collection)
	return nil
}

// RemoveBook removes a book from a custom collection. Removing a
// non-member is a no-op.
func (s *CollectionService) RemoveBook(ctx context.Context, collectionID, bookID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	collection, err := s.Get(ctx, collectionID)
	if err != nil {
		return err
	}
	if collection.IsSmart() {
		return apperr.Validationf("membership of %q is computed from book state", collection.Name)
	}

	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		if errors.Is(err, store.ErrBookNotFound) {
			return apperr.NotFoundf("book %s not found", bookID)
		}
		return fmt.Errorf("get book: %w", err)
	}

	if !book.LeaveCollection(collectionID) {
		return nil
	}
	if err := s.store.UpdateBook(ctx, book); err != nil {
		return fmt.Errorf("update book: %w", err)
	}

	s.touch(ctx, collection)
	return nil
}

// List returns all collections, built-in smart ones first, each group
// sorted by name.
func (s *CollectionService) List(ctx context.Context) ([]*domain.Collection, error) {
	collections, err := s.store.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}

	sort.SliceStable(collections, func(i, j int) bool {
		a, b := collections[i], collections[j]
		if a.IsDefault != b.IsDefault {
			return a.IsDefault
		}
		return normalize.SortKey(a.Name) < normalize.SortKey(b.Name)
	})
	return collections, nil
}

// BooksIn returns the members of a collection, resolving smart rules and
// curated membership uniformly, sorted by title.
func (s *CollectionService) BooksIn(ctx context.Context, collectionID string) ([]*domain.Book, error) {
	collection, err := s.Get(ctx, collectionID)
	if err != nil {
		return nil, err
	}

	books, err := s.store.ListBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	members := filterBooks(books, collection.Contains)
	sortBooks(members, "title", "asc")
	return members, nil
}

// touch bumps the collection's UpdatedAt after a membership change. The
// book write already happened; a stale timestamp is not worth failing for.
func (s *CollectionService) touch(ctx context.Context, collection *domain.Collection) {
	collection.Touch()
	if err := s.store.UpdateCollection(ctx, collection); err != nil {
		s.logger.Warn("touch collection", "collection_id", collection.ID, "error", err)
	}
}
