// Package epub adapts taylorskalyo/goreader to the engine capability
// interface. Parsing runs in the background after Open; WaitReady joins it.
package epub

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	goepub "github.com/taylorskalyo/goreader/epub"

	"github.com/luminareader/lumina-server/internal/domain"
	"github.com/luminareader/lumina-server/internal/engine"
	apperr "github.com/luminareader/lumina-server/internal/errors"
	"github.com/luminareader/lumina-server/internal/normalize"
)

// Factory opens goreader-backed engines.
type Factory struct {
	logger *slog.Logger
}

// NewFactory creates the factory.
func NewFactory(logger *slog.Logger) *Factory {
	return &Factory{logger: logger}
}

// Open starts parsing the archive in the background and returns immediately.
func (f *Factory) Open(ctx context.Context, data []byte) (engine.Engine, error) {
	if len(data) == 0 {
		return nil, apperr.InvalidArchive("archive is empty")
	}

	e := &Engine{
		logger: f.logger,
		ready:  make(chan struct{}),
		texts:  make(map[int]string),
	}
	e.locations = &locationIndex{engine: e}

	go e.parse(data)
	return e, nil
}

// Engine is one parsed EPUB. All exported methods are safe for concurrent
// use; the session serializes the interesting ones anyway.
type Engine struct {
	logger *slog.Logger

	ready    chan struct{} // closed when parsing finishes
	parseErr error         // set before ready is closed

	mu        sync.Mutex
	destroyed bool
	rendition *rendition

	book      *goepub.Rootfile
	meta      engine.Metadata
	toc       []domain.TOCEntry
	spine     []goepub.Itemref
	spineItem []engine.SpineItem
	coverData []byte
	coverType string

	textMu sync.Mutex
	texts  map[int]string

	locations *locationIndex
}

// parse does the heavy lifting off the caller's goroutine. Results are
// published by closing the ready channel; a Destroy racing the parse just
// means nobody ever reads them.
func (e *Engine) parse(data []byte) {
	defer close(e.ready)

	zr, err := goepub.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		e.parseErr = apperr.InvalidArchive("archive failed to parse").WithCause(err)
		return
	}
	if len(zr.Rootfiles) == 0 {
		e.parseErr = apperr.InvalidArchive("archive has no rootfile")
		return
	}
	book := zr.Rootfiles[0]

	var spine []goepub.Itemref
	var items []engine.SpineItem
	for _, ref := range book.Spine.Itemrefs {
		if ref.Item == nil {
			continue
		}
		items = append(items, engine.SpineItem{
			Index: len(spine),
			ID:    ref.Item.ID,
			HREF:  ref.Item.HREF,
		})
		spine = append(spine, ref)
	}
	if len(spine) == 0 {
		e.parseErr = apperr.InvalidArchive("archive has an empty spine")
		return
	}

	e.book = book
	e.spine = spine
	e.spineItem = items
	e.meta = engine.Metadata{
		Title:       normalize.Clean(book.Metadata.Title),
		Author:      normalize.Clean(book.Metadata.Creator),
		Language:    normalize.LanguageCode(book.Metadata.Language),
		Identifier:  normalize.Clean(book.Metadata.Identifier),
		Publisher:   normalize.Clean(book.Metadata.Publisher),
		Description: normalize.Clean(book.Metadata.Description),
	}
	e.toc = e.parseTOC()
	e.coverData, e.coverType = e.findCover()

	if e.logger != nil {
		e.logger.Debug("epub parsed",
			"title", e.meta.Title,
			"spine_items", len(spine),
			"toc_entries", len(e.toc),
		)
	}
}

// WaitReady blocks until parsing finishes, the engine is destroyed, or ctx
// expires. Context errors come back raw; the session classifies them.
func (e *Engine) WaitReady(ctx context.Context) error {
	select {
	case <-e.ready:
	case <-ctx.Done():
		return ctx.Err()
	}

	if e.parseErr != nil {
		return e.parseErr
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return apperr.EngineOperation("engine destroyed")
	}
	return nil
}

// parsed reports whether the background parse has published its results.
// The channel close is the synchronization point; fields written by parse
// may only be read after it.
func (e *Engine) parsed() bool {
	select {
	case <-e.ready:
		return e.parseErr == nil
	default:
		return false
	}
}

// Metadata implements engine.Engine. Zero value until ready.
func (e *Engine) Metadata() engine.Metadata {
	if !e.parsed() {
		return engine.Metadata{}
	}
	return e.meta
}

// TOC implements engine.Engine. Nil until ready.
func (e *Engine) TOC() []domain.TOCEntry {
	if !e.parsed() {
		return nil
	}
	return e.toc
}

// Spine implements engine.Engine. Nil until ready.
func (e *Engine) Spine() []engine.SpineItem {
	if !e.parsed() {
		return nil
	}
	return e.spineItem
}

// CoverImage implements engine.Engine.
func (e *Engine) CoverImage() ([]byte, string, bool) {
	if !e.parsed() || len(e.coverData) == 0 {
		return nil, "", false
	}
	return e.coverData, e.coverType, true
}

// Locations implements engine.Engine.
func (e *Engine) Locations() engine.Locations { return e.locations }

// SpineText extracts and caches the plain text of one spine document.
func (e *Engine) SpineText(ctx context.Context, index int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !e.parsed() {
		return "", apperr.EngineOperation("engine not ready")
	}

	e.mu.Lock()
	destroyed := e.destroyed
	e.mu.Unlock()
	if destroyed {
		return "", apperr.EngineOperation("engine destroyed")
	}
	if index < 0 || index >= len(e.spine) {
		return "", apperr.EngineOperationf("spine index %d out of range", index)
	}

	e.textMu.Lock()
	if text, ok := e.texts[index]; ok {
		e.textMu.Unlock()
		return text, nil
	}
	e.textMu.Unlock()

	r, err := e.spine[index].Item.Open()
	if err != nil {
		return "", fmt.Errorf("open spine item %d: %w", index, err)
	}
	raw, err := io.ReadAll(r)
	r.Close()
	if err != nil {
		return "", fmt.Errorf("read spine item %d: %w", index, err)
	}

	text := extractText(string(raw))

	e.textMu.Lock()
	e.texts[index] = text
	e.textMu.Unlock()
	return text, nil
}

// RenderTo binds the engine to a surface. One rendition per engine.
func (e *Engine) RenderTo(cfg engine.RenderConfig) (engine.Rendition, error) {
	select {
	case <-e.ready:
	default:
		return nil, apperr.EngineOperation("engine not ready")
	}
	if e.parseErr != nil {
		return nil, e.parseErr
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return nil, apperr.EngineOperation("engine destroyed")
	}
	if e.rendition != nil {
		return nil, apperr.EngineOperation("engine already rendered to a surface")
	}

	e.rendition = newRendition(e, cfg)
	return e.rendition, nil
}

// Destroy tears the engine down. Safe mid-parse, safe to call twice.
func (e *Engine) Destroy() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return nil
	}
	e.destroyed = true

	if e.rendition != nil {
		e.rendition.teardown()
		e.rendition = nil
	}

	e.textMu.Lock()
	e.texts = make(map[int]string)
	e.textMu.Unlock()

	return nil
}

// findCover locates the cover image by the usual manifest conventions:
// an image item whose id or href mentions "cover", else the first image.
func (e *Engine) findCover() ([]byte, string) {
	var fallback *goepub.Item
	for i := range e.book.Manifest.Items {
		item := &e.book.Manifest.Items[i]
		if !strings.HasPrefix(item.MediaType, "image/") {
			continue
		}
		if strings.Contains(strings.ToLower(item.ID), "cover") ||
			strings.Contains(strings.ToLower(item.HREF), "cover") {
			if data := readItem(item); data != nil {
				return data, item.MediaType
			}
		}
		if fallback == nil {
			fallback = item
		}
	}
	if fallback != nil {
		if data := readItem(fallback); data != nil {
			return data, fallback.MediaType
		}
	}
	return nil, ""
}

func readItem(item *goepub.Item) []byte {
	r, err := item.Open()
	if err != nil {
		return nil
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil
	}
	return data
}
