package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/luminareader/lumina-server/internal/domain"
)

const bookPrefix = "book:"

// Book operations.

// CreateBook creates a new book record.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	key := []byte(bookPrefix + book.ID)

	exists, err := s.exists(key)
	if err != nil {
		return fmt.Errorf("check book exists: %w", err)
	}
	if exists {
		return ErrBookExists
	}

	if err := s.set(key, book); err != nil {
		return fmt.Errorf("create book: %w", err)
	}

	if s.searchIndexer != nil {
		if err := s.searchIndexer.IndexBook(ctx, book); err != nil && s.logger != nil {
			s.logger.Warn("failed to index book", "id", book.ID, "error", err)
		}
	}

	if s.logger != nil {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "book created",
			slog.String("id", book.ID),
			slog.String("title", book.Title),
			slog.String("author", book.Author),
		)
	}
	s.emit(BookCreated{Book: book})
	return nil
}

// GetBook retrieves a book by ID.
func (s *Store) GetBook(ctx context.Context, bookID string) (*domain.Book, error) {
	key := []byte(bookPrefix + bookID)

	var book domain.Book
	err := s.get(key, &book)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return &book, nil
}

// UpdateBook updates an existing book record.
func (s *Store) UpdateBook(ctx context.Context, book *domain.Book) error {
	key := []byte(bookPrefix + book.ID)

	exists, err := s.exists(key)
	if err != nil {
		return fmt.Errorf("check book exists: %w", err)
	}
	if !exists {
		return ErrBookNotFound
	}

	if err := s.set(key, book); err != nil {
		return fmt.Errorf("update book: %w", err)
	}

	if s.searchIndexer != nil {
		if err := s.searchIndexer.IndexBook(ctx, book); err != nil && s.logger != nil {
			s.logger.Warn("failed to reindex book", "id", book.ID, "error", err)
		}
	}

	if s.logger != nil {
		s.logger.Debug("book updated", "id", book.ID, "title", book.Title)
	}
	s.emit(BookUpdated{Book: book})
	return nil
}

// DeleteBook removes a book record. Collection membership lives on the
// record itself, so no cascade is needed. Bookmarks, highlights, and
// archive blobs are separate namespaces and are removed by their owners.
func (s *Store) DeleteBook(ctx context.Context, bookID string) error {
	book, err := s.GetBook(ctx, bookID)
	if err != nil {
		return err
	}

	if err := s.delete([]byte(bookPrefix + bookID)); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}

	if s.searchIndexer != nil {
		if err := s.searchIndexer.DeleteBook(ctx, bookID); err != nil && s.logger != nil {
			s.logger.Warn("failed to deindex book", "id", bookID, "error", err)
		}
	}

	if s.logger != nil {
		s.logger.Info("book deleted", "id", bookID, "title", book.Title)
	}
	s.emit(BookDeleted{BookID: bookID})
	return nil
}

// BookExists checks if a book exists by ID.
func (s *Store) BookExists(ctx context.Context, bookID string) (bool, error) {
	return s.exists([]byte(bookPrefix + bookID))
}

// ListBooks returns every book record in key order. Library-scale data
// (hundreds of books, not millions) makes a full scan the right shape;
// sorting and filtering are projections on top.
func (s *Store) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	return listPrefix[domain.Book](s, bookPrefix)
}

// ClearBooks removes every key in the book namespace and nothing else.
// Collections, preferences, bookmarks, highlights, and archive blobs all
// survive a clear. Returns the number of records removed.
func (s *Store) ClearBooks(ctx context.Context) (int, error) {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(bookPrefix)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(bookPrefix)); it.ValidForPrefix([]byte(bookPrefix)); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("collect book keys: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("clear books: %w", err)
	}

	if s.searchIndexer != nil {
		for _, key := range keys {
			bookID := string(key[len(bookPrefix):])
			if err := s.searchIndexer.DeleteBook(ctx, bookID); err != nil && s.logger != nil {
				s.logger.Warn("failed to deindex book", "id", bookID, "error", err)
			}
		}
	}

	if s.logger != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "book list cleared",
			slog.Int("removed", len(keys)),
		)
	}
	s.emit(LibraryCleared{Removed: len(keys)})
	return len(keys), nil
}
