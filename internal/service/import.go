package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/luminareader/lumina-server/internal/archive"
	"github.com/luminareader/lumina-server/internal/domain"
	apperr "github.com/luminareader/lumina-server/internal/errors"
	"github.com/luminareader/lumina-server/internal/id"
)

// ImportBook runs the import pipeline on raw EPUB bytes: structural
// validation, content-hash dedup, metadata and cover extraction through a
// throwaway engine, archive persistence, and record creation. The filename
// is only a fallback title for EPUBs with no title in their metadata.
//
// Uploads and the watched drop folder both land here, so a file dropped
// into the folder and then uploaded again imports exactly once.
func (s *LibraryService) ImportBook(ctx context.Context, filename string, data []byte) (*domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := archive.ValidateEPUB(data); err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)
	contentHash := hex.EncodeToString(sum[:])
	existing, err := s.findByContentHash(ctx, contentHash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.AlreadyExistsf("%q is already in the library", existing.Title)
	}

	eng, err := s.engines.Open(ctx, data)
	if err != nil {
		return nil, apperr.InvalidArchive("EPUB could not be opened").WithCause(err)
	}
	defer func() {
		if derr := eng.Destroy(); derr != nil {
			s.logger.Warn("destroy import engine", "error", derr)
		}
	}()

	if err := eng.WaitReady(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, apperr.InvalidArchive("EPUB failed to parse").WithCause(err)
	}

	meta := eng.Metadata()
	title := strings.TrimSpace(meta.Title)
	if title == "" {
		title = titleFromFilename(filename)
	}

	bookID, err := id.Generate(id.PrefixBook)
	if err != nil {
		return nil, fmt.Errorf("generate book ID: %w", err)
	}

	if err := s.archive.SaveBytes(ctx, bookID, data); err != nil {
		return nil, fmt.Errorf("store archive: %w", err)
	}

	book := domain.NewBook(bookID, title, strings.TrimSpace(meta.Author))
	book.ContentHash = contentHash

	// A book without a cover is fine; a failed import over a bad cover
	// is not.
	if coverData, mediaType, ok := eng.CoverImage(); ok {
		cover, err := s.covers.Process(bookID, coverData, mediaType)
		if err != nil {
			s.logger.Warn("cover processing failed", "book_id", bookID, "error", err)
		} else {
			book.CoverPath = cover.Path
			book.CoverBlurHash = cover.BlurHash
		}
	}

	if err := s.store.CreateBook(ctx, book); err != nil {
		// The record never landed; remove what did.
		if derr := s.archive.DeleteBytes(ctx, bookID); derr != nil {
			s.logger.Warn("roll back archive bytes", "book_id", bookID, "error", derr)
		}
		if book.CoverPath != "" {
			if derr := s.covers.Remove(bookID); derr != nil {
				s.logger.Warn("roll back cover", "book_id", bookID, "error", derr)
			}
		}
		return nil, fmt.Errorf("create book: %w", err)
	}

	s.notifier.Success(fmt.Sprintf("Added %q to the library", title))
	s.logger.Info("book imported",
		"book_id", bookID,
		"title", title,
		"author", book.Author,
		"bytes", len(data),
	)
	return book, nil
}

func (s *LibraryService) findByContentHash(ctx context.Context, contentHash string) (*domain.Book, error) {
	books, err := s.store.ListBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	for _, b := range books {
		if b.ContentHash == contentHash {
			return b, nil
		}
	}
	return nil, nil
}

func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.TrimSpace(strings.ReplaceAll(base, "_", " "))
	if base == "" || base == "." {
		return "Untitled"
	}
	return base
}
