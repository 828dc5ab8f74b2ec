package providers

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"

	"github.com/luminareader/lumina-server/internal/config"
	"github.com/luminareader/lumina-server/internal/logger"
	"github.com/luminareader/lumina-server/internal/processor"
	"github.com/luminareader/lumina-server/internal/service"
	"github.com/luminareader/lumina-server/internal/watcher"
)

// ImportWorkerHandle owns the drop-folder watcher and the importer
// consuming its events. Disabled by config it holds nothing.
type ImportWorkerHandle struct {
	watcher *watcher.Watcher
	cancel  context.CancelFunc
}

// Shutdown implements do.Shutdowner.
func (h *ImportWorkerHandle) Shutdown() error {
	if h.watcher == nil {
		return nil
	}
	h.cancel()
	return h.watcher.Close()
}

// ProvideImportWorker provides the drop-folder import pipeline: a
// filesystem watcher on the import directory feeding the importer.
func ProvideImportWorker(i do.Injector) (*ImportWorkerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	if !cfg.Import.WatchFolder {
		return &ImportWorkerHandle{}, nil
	}

	log := do.MustInvoke[*logger.Logger](i)
	library := do.MustInvoke[*service.LibraryService](i)
	toasts := do.MustInvoke[*NotifyCenterHandle](i)

	w, err := watcher.New(cfg.ImportDir(), watcher.Options{}, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("create import watcher: %w", err)
	}
	importer := processor.NewImporter(library, toasts.Center, log.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	go w.Start(ctx)
	go importer.Run(ctx, w.Events())

	return &ImportWorkerHandle{watcher: w, cancel: cancel}, nil
}
