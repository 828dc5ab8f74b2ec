package search

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/luminareader/lumina-server/internal/domain"
)

// LibraryIndex wraps a Bleve index with book-level operations.
//
// Thread safety: All public methods are safe for concurrent use.
// The mutex protects against index corruption during rebuild operations.
type LibraryIndex struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex // Protects index operations during rebuild
}

// Options configures the library index.
type Options struct {
	DataPath string       // Directory for index storage
	Logger   *slog.Logger // Logger for operations (uses stderr if nil)
}

// mappingVersion is incremented whenever the index mapping changes.
// A mismatch on startup triggers an automatic rebuild. The store is the
// source of truth, so dropping the index loses nothing.
const mappingVersion = "2"

// NewLibraryIndex creates or opens the library search index.
// If an existing index is found, it opens it. Otherwise, creates a new one.
// If the existing index is corrupted or has an outdated mapping, it's removed and recreated.
func NewLibraryIndex(opts Options) (*LibraryIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	indexPath := filepath.Join(opts.DataPath, "library.bleve")
	versionPath := filepath.Join(opts.DataPath, "library.version")

	var index bleve.Index
	var err error
	needsRebuild := false

	// Check mapping version - rebuild if version file missing or mismatched
	indexExists := false
	if _, statErr := os.Stat(indexPath); statErr == nil {
		indexExists = true
	}

	if indexExists {
		existingVersion, readErr := os.ReadFile(versionPath)
		if readErr != nil {
			// Version file missing but index exists - this is an old index
			logger.Info("search index has no version file, will rebuild with current mapping",
				"new_version", mappingVersion,
			)
			needsRebuild = true
		} else if string(existingVersion) != mappingVersion {
			logger.Info("search index mapping version changed, will rebuild",
				"old_version", string(existingVersion),
				"new_version", mappingVersion,
			)
			needsRebuild = true
		}
	}

	// Try to open existing index (if not forcing rebuild)
	if !needsRebuild && indexExists {
		index, err = bleve.Open(indexPath)
		if err != nil {
			logger.Warn("failed to open existing index, will recreate",
				"path", indexPath,
				"error", err,
			)
			needsRebuild = true
		}
	}

	// Remove old index if rebuild needed
	if needsRebuild {
		if removeErr := os.RemoveAll(indexPath); removeErr != nil {
			return nil, fmt.Errorf("remove old index: %w", removeErr)
		}
		index = nil
	}

	// Create new index if needed
	if index == nil {
		indexMapping := buildIndexMapping()
		index, err = bleve.New(indexPath, indexMapping)
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		// Write version file
		if writeErr := os.WriteFile(versionPath, []byte(mappingVersion), 0644); writeErr != nil {
			logger.Warn("failed to write search version file", "error", writeErr)
		}
		logger.Info("created new search index", "path", indexPath, "mapping_version", mappingVersion)
	} else {
		logger.Info("opened existing search index", "path", indexPath)
	}

	return &LibraryIndex{
		index:  index,
		path:   indexPath,
		logger: logger,
	}, nil
}

// Close closes the index and releases resources.
func (ix *LibraryIndex) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.index.Close()
}

// IndexBook adds or replaces a book in the index. Indexing an ID that is
// already present overwrites the previous document.
func (ix *LibraryIndex) IndexBook(_ context.Context, book *domain.Book) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	doc := NewBookDocument(book)
	// Convert to map to ensure field names match the mapping (lowercase)
	return ix.index.Index(doc.ID, doc.ToMap())
}

// IndexBooks indexes multiple books in a batch. Used for the startup
// resync and after a rebuild; significantly faster than calling IndexBook
// in a loop. Large libraries are processed in chunks to keep memory flat.
func (ix *LibraryIndex) IndexBooks(books []*domain.Book) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	const batchSize = 500

	for i := 0; i < len(books); i += batchSize {
		end := i + batchSize
		if end > len(books) {
			end = len(books)
		}
		chunk := books[i:end]

		batch := ix.index.NewBatch()
		for _, book := range chunk {
			doc := NewBookDocument(book)
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}

		if err := ix.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// DeleteBook removes a book from the index. Deleting an absent ID is a no-op.
func (ix *LibraryIndex) DeleteBook(_ context.Context, bookID string) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.index.Delete(bookID)
}

// DocumentCount returns the total number of indexed books.
func (ix *LibraryIndex) DocumentCount() (uint64, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.index.DocCount()
}

// Rebuild drops the existing index and creates a fresh, empty one.
// Callers reindex from the store afterwards.
//
// IMPORTANT: This acquires an exclusive lock and blocks all other
// operations, so it belongs in startup or maintenance paths only.
func (ix *LibraryIndex) Rebuild() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	// Close existing index
	if err := ix.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}

	// Remove index directory
	if err := os.RemoveAll(ix.path); err != nil {
		return fmt.Errorf("remove index: %w", err)
	}

	// Create fresh index
	indexMapping := buildIndexMapping()
	index, err := bleve.New(ix.path, indexMapping)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	ix.index = index
	ix.logger.Info("rebuilt search index", "path", ix.path)

	return nil
}
