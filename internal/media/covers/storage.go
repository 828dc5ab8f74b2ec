package covers

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Storage manages cover files on disk.
// Thread-safe for concurrent operations.
type Storage struct {
	basePath string
	mu       sync.RWMutex // Protects file operations
}

// NewStorage creates cover storage rooted at the given directory,
// creating it if needed. Covers are stored as {bookID}.jpg.
func NewStorage(basePath string) (*Storage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create covers directory: %w", err)
	}

	return &Storage{
		basePath: basePath,
	}, nil
}

// Save stores cover data for a book, replacing any previous cover.
func (s *Storage) Save(bookID string, imgData []byte) error {
	if bookID == "" {
		return fmt.Errorf("book ID cannot be empty")
	}

	if len(imgData) == 0 {
		return fmt.Errorf("image data cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(bookID)

	if err := os.WriteFile(path, imgData, 0644); err != nil {
		return fmt.Errorf("failed to write cover file: %w", err)
	}

	return nil
}

// Get retrieves cover data for a book.
func (s *Storage) Get(bookID string) ([]byte, error) {
	if bookID == "" {
		return nil, fmt.Errorf("book ID cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	path := s.Path(bookID)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("cover not found for %s: %w", bookID, err)
		}
		return nil, fmt.Errorf("failed to read cover file: %w", err)
	}

	return data, nil
}

// Exists checks if a cover exists for a book.
func (s *Storage) Exists(bookID string) bool {
	if bookID == "" {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.Path(bookID))
	return err == nil
}

// Delete removes a book's cover. Deleting an absent cover is not an error.
func (s *Storage) Delete(bookID string) error {
	if bookID == "" {
		return fmt.Errorf("book ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Path(bookID)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete cover file: %w", err)
	}

	return nil
}

// Hash computes the SHA256 hash of a stored cover.
// Returns a hex-encoded string for ETag/cache validation.
func (s *Storage) Hash(bookID string) (string, error) {
	data, err := s.Get(bookID)
	if err != nil {
		return "", err
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash), nil
}

// Path returns the full filesystem path for a book's cover.
func (s *Storage) Path(bookID string) string {
	return filepath.Join(s.basePath, fmt.Sprintf("%s.jpg", bookID))
}
