package epub

import (
	"context"
	"sync"

	"github.com/luminareader/lumina-server/internal/engine"
	apperr "github.com/luminareader/lumina-server/internal/errors"
)

// rendition tracks the displayed position over the location index. Handlers
// fire synchronously on the navigating goroutine, after the lock is
// released, so a handler may call back into the rendition.
type rendition struct {
	e   *Engine
	cfg engine.RenderConfig

	mu            sync.Mutex
	torndown      bool
	displayed     bool
	current       int
	handlers      map[int]func(engine.Location)
	nextHandlerID int

	// Styling state as last applied by the session.
	theme     string
	font      string
	fontSize  int
	overrides map[string]string

	// Highlight mirror, keyed by cfi.
	annotations map[string]string
}

func newRendition(e *Engine, cfg engine.RenderConfig) *rendition {
	return &rendition{
		e:           e,
		cfg:         cfg,
		handlers:    make(map[int]func(engine.Location)),
		overrides:   make(map[string]string),
		annotations: make(map[string]string),
	}
}

// step is how many locations one page turn moves.
func (r *rendition) step() int {
	if r.cfg.TwoPage {
		return 2
	}
	return 1
}

// Display implements engine.Rendition.
func (r *rendition) Display(ctx context.Context, cfi string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	idx := 0
	if cfi != "" {
		spineIndex, charOffset, err := engine.ParseCFI(cfi)
		if err != nil {
			return err
		}
		idx = r.e.locations.nearest(spineIndex, charOffset)
	}

	r.mu.Lock()
	if r.torndown {
		r.mu.Unlock()
		return apperr.EngineOperation("rendition torn down")
	}
	if r.e.locations.count() == 0 {
		r.mu.Unlock()
		return apperr.EngineOperation("locations not generated")
	}
	r.current = idx
	r.displayed = true
	location := r.locationLocked()
	handlers := r.handlersLocked()
	r.mu.Unlock()

	fire(handlers, location)
	return nil
}

// Next implements engine.Rendition.
func (r *rendition) Next(ctx context.Context) error {
	return r.move(ctx, r.step())
}

// Prev implements engine.Rendition.
func (r *rendition) Prev(ctx context.Context) error {
	return r.move(ctx, -r.step())
}

func (r *rendition) move(ctx context.Context, delta int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	if r.torndown {
		r.mu.Unlock()
		return apperr.EngineOperation("rendition torn down")
	}
	if !r.displayed {
		r.mu.Unlock()
		return apperr.EngineOperation("nothing displayed")
	}

	next := r.current + delta
	if next < 0 {
		next = 0
	}
	if max := r.e.locations.count() - 1; next > max {
		next = max
	}
	if next == r.current {
		r.mu.Unlock()
		return nil
	}
	r.current = next
	location := r.locationLocked()
	handlers := r.handlersLocked()
	r.mu.Unlock()

	fire(handlers, location)
	return nil
}

// CurrentLocation implements engine.Rendition.
func (r *rendition) CurrentLocation() (engine.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.torndown {
		return engine.Location{}, apperr.InvalidPosition("rendition torn down")
	}
	if !r.displayed {
		return engine.Location{}, apperr.InvalidPosition("nothing displayed yet")
	}
	return r.locationLocked(), nil
}

// locationLocked builds the Location for the current index. Caller holds mu.
func (r *rendition) locationLocked() engine.Location {
	total := r.e.locations.count()
	entry, _ := r.e.locations.at(r.current)

	pct := 0.0
	if total > 1 {
		pct = float64(r.current) / float64(total-1)
	}

	return engine.Location{
		CFI:        engine.PositionCFI(entry.spineIndex, entry.charOffset),
		Percentage: pct,
		SpineIndex: entry.spineIndex,
		Page:       r.current + 1,
		TotalPages: total,
	}
}

// OnRelocated implements engine.Rendition.
func (r *rendition) OnRelocated(handler func(engine.Location)) engine.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextHandlerID++
	id := r.nextHandlerID
	r.handlers[id] = handler

	return &subscription{cancel: func() {
		r.mu.Lock()
		delete(r.handlers, id)
		r.mu.Unlock()
	}}
}

func (r *rendition) handlersLocked() []func(engine.Location) {
	out := make([]func(engine.Location), 0, len(r.handlers))
	for _, h := range r.handlers {
		out = append(out, h)
	}
	return out
}

func fire(handlers []func(engine.Location), location engine.Location) {
	for _, h := range handlers {
		h(location)
	}
}

// subscription detaches one relocation handler. Cancelling twice is fine;
// map deletion does not care.
type subscription struct {
	cancel func()
}

// Cancel implements engine.Subscription.
func (s *subscription) Cancel() { s.cancel() }

// teardown cancels every handler and blocks further use. Idempotent.
func (r *rendition) teardown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.torndown = true
	r.handlers = make(map[int]func(engine.Location))
	r.annotations = make(map[string]string)
}

// handlerCount supports the engine tests.
func (r *rendition) handlerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handlers)
}

// Themes implements engine.Rendition.
func (r *rendition) Themes() engine.Themes { return (*themeSurface)(r) }

// Annotations implements engine.Rendition.
func (r *rendition) Annotations() engine.Annotations { return (*annotationSurface)(r) }

// themeSurface applies styling state. The host records what the session
// applied; the UI reads it back from the session snapshot.
type themeSurface rendition

func (t *themeSurface) guard() error {
	if t.torndown {
		return apperr.EngineOperation("rendition torn down")
	}
	return nil
}

// Select implements engine.Themes.
func (t *themeSurface) Select(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.guard(); err != nil {
		return err
	}
	t.theme = name
	return nil
}

// Font implements engine.Themes.
func (t *themeSurface) Font(family string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.guard(); err != nil {
		return err
	}
	t.font = family
	return nil
}

// FontSize implements engine.Themes.
func (t *themeSurface) FontSize(percent int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.guard(); err != nil {
		return err
	}
	t.fontSize = percent
	return nil
}

// Override implements engine.Themes.
func (t *themeSurface) Override(property, value string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.guard(); err != nil {
		return err
	}
	t.overrides[property] = value
	return nil
}

// annotationSurface mirrors highlight ranges into the rendition.
type annotationSurface rendition

func (a *annotationSurface) guard() error {
	if a.torndown {
		return apperr.EngineOperation("rendition torn down")
	}
	return nil
}

// Add implements engine.Annotations.
func (a *annotationSurface) Add(kind, cfi string) error {
	if _, _, err := engine.ParseCFI(cfi); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.guard(); err != nil {
		return err
	}
	a.annotations[cfi] = kind
	return nil
}

// Remove implements engine.Annotations.
func (a *annotationSurface) Remove(cfi string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.guard(); err != nil {
		return err
	}
	delete(a.annotations, cfi)
	return nil
}

// Clear implements engine.Annotations.
func (a *annotationSurface) Clear() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.guard(); err != nil {
		return err
	}
	a.annotations = make(map[string]string)
	return nil
}
