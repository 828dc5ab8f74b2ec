// Package processor drives the import drop folder: it turns settled-file
// events from the watcher into library imports, removing each file once
// its bytes live in the library.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/luminareader/lumina-server/internal/domain"
	apperr "github.com/luminareader/lumina-server/internal/errors"
	"github.com/luminareader/lumina-server/internal/watcher"
)

// BookImporter runs the import pipeline on raw EPUB bytes. Implemented by
// the library service.
type BookImporter interface {
	ImportBook(ctx context.Context, filename string, data []byte) (*domain.Book, error)
}

// Notifier surfaces import failures to the user. Implemented by the
// notification center.
type Notifier interface {
	Error(message string) *domain.Toast
}

// Importer consumes watcher events and imports each file exactly once.
// The in-flight guard covers the window where a file is announced again
// (a second write event, a sweep racing the watch loop) before the first
// import finished.
type Importer struct {
	library  BookImporter
	notifier Notifier
	logger   *slog.Logger
	inFlight *SyncMap[string, string]
}

// NewImporter creates an importer over the shared import pipeline.
func NewImporter(library BookImporter, notifier Notifier, logger *slog.Logger) *Importer {
	return &Importer{
		library:  library,
		notifier: notifier,
		logger:   logger,
		inFlight: NewSyncMap[string, string](),
	}
}

// Run imports files from events until the channel closes or ctx is
// cancelled.
func (p *Importer) Run(ctx context.Context, events <-chan watcher.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			p.ImportFile(ctx, event.Path)
		}
	}
}

// ImportFile imports one dropped file. On success, and on a duplicate,
// the file is removed from the drop folder; any other failure leaves it
// in place so the user can see what did not import.
func (p *Importer) ImportFile(ctx context.Context, path string) {
	jobID := uuid.NewString()
	if _, busy := p.inFlight.LoadOrStore(path, jobID); busy {
		return
	}
	defer p.inFlight.Delete(path)

	log := p.logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	log = log.With("job_id", jobID, "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn("read dropped file failed", "error", err)
		return
	}

	book, err := p.library.ImportBook(ctx, filepath.Base(path), data)
	switch {
	case err == nil:
		log.Info("drop folder import complete", "book_id", book.ID, "title", book.Title)
	case errors.Is(err, apperr.ErrAlreadyExists):
		log.Info("dropped file already in library, removing")
	case errors.Is(err, context.Canceled):
		return
	default:
		log.Error("drop folder import failed", "error", err)
		if p.notifier != nil {
			p.notifier.Error(fmt.Sprintf("Could not import %q.", filepath.Base(path)))
		}
		return
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn("remove imported file failed", "error", err)
	}
}
