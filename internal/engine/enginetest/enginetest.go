// Package enginetest provides a controllable fake engine for exercising the
// reader session: readiness that resolves after a configurable delay,
// injectable failures, and an ordered cross-engine call log so tests can
// assert sequencing between a torn-down engine and its replacement.
package enginetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/luminareader/lumina-server/internal/domain"
	"github.com/luminareader/lumina-server/internal/engine"
	apperr "github.com/luminareader/lumina-server/internal/errors"
)

// Factory opens fake engines. The exported fields configure every engine
// opened afterwards; tests may change them between opens.
type Factory struct {
	mu sync.Mutex

	// OpenErr fails Open itself.
	OpenErr error
	// ReadyDelay is how long WaitReady blocks before resolving.
	ReadyDelay time.Duration
	// ReadyErr is what WaitReady resolves to after the delay.
	ReadyErr error

	Meta       engine.Metadata
	TOC        []domain.TOCEntry
	SpineTexts []string
	// SpineErrs injects per-index SpineText failures.
	SpineErrs map[int]error
	Cover     []byte
	CoverType string
	// LocationCount is what Generate reports. Defaults to 100.
	LocationCount int

	// RenderErr, GenerateErr, DisplayErr, and ThemeErr seed the matching
	// failure on every engine opened afterwards.
	RenderErr   error
	GenerateErr error
	DisplayErr  error
	ThemeErr    error

	opened []*Engine
	log    []string
}

// NewFactory creates a fake factory with a two-chapter book.
func NewFactory() *Factory {
	return &Factory{
		Meta: engine.Metadata{Title: "Fake Book", Author: "Fake Author"},
		TOC: []domain.TOCEntry{
			{ID: "nav-1", Label: "Chapter One", HREF: "ch1.xhtml"},
			{ID: "nav-2", Label: "Chapter Two", HREF: "ch2.xhtml"},
		},
		SpineTexts:    []string{"the first chapter text", "the second chapter text"},
		LocationCount: 100,
	}
}

// Open implements engine.Factory.
func (f *Factory) Open(ctx context.Context, data []byte) (engine.Engine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.OpenErr != nil {
		return nil, f.OpenErr
	}

	e := &Engine{
		factory:       f,
		index:         len(f.opened),
		readyDelay:    f.ReadyDelay,
		readyErr:      f.ReadyErr,
		meta:          f.Meta,
		toc:           f.TOC,
		spineTexts:    f.SpineTexts,
		spineErrs:     f.SpineErrs,
		cover:         f.Cover,
		coverType:     f.CoverType,
		locationCount: f.LocationCount,
		RenderErr:     f.RenderErr,
		GenerateErr:   f.GenerateErr,
		displayErr:    f.DisplayErr,
		themeErr:      f.ThemeErr,
	}
	f.opened = append(f.opened, e)
	return e, nil
}

// Opened returns every engine this factory has created, in order.
func (f *Factory) Opened() []*Engine {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Engine, len(f.opened))
	copy(out, f.opened)
	return out
}

// Engine returns the n-th opened engine.
func (f *Factory) Engine(n int) *Engine {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened[n]
}

// OpenCount reports how many engines were opened.
func (f *Factory) OpenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.opened)
}

// SetReadyDelay changes the readiness delay for engines opened afterwards.
// Safe to call while another open is in flight.
func (f *Factory) SetReadyDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ReadyDelay = d
}

// Calls returns the ordered log of operations across all engines, entries
// shaped like "engine0.destroy" or "engine1.display".
func (f *Factory) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.log))
	copy(out, f.log)
	return out
}

// CallIndex returns the position of the first matching call, or -1.
func (f *Factory) CallIndex(call string) int {
	for i, c := range f.Calls() {
		if c == call {
			return i
		}
	}
	return -1
}

func (f *Factory) record(engineIndex int, op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log = append(f.log, fmt.Sprintf("engine%d.%s", engineIndex, op))
}

// Engine is one fake engine instance.
type Engine struct {
	factory *Factory
	index   int

	readyDelay time.Duration
	readyErr   error

	meta          engine.Metadata
	toc           []domain.TOCEntry
	spineTexts    []string
	spineErrs     map[int]error
	cover         []byte
	coverType     string
	locationCount int

	mu           sync.Mutex
	destroyed    bool
	destroyCalls int
	rendition    *Rendition
	generated    bool
	displayErr   error
	themeErr     error
	// RenderErr fails RenderTo.
	RenderErr error
	// GenerateErr fails Locations().Generate.
	GenerateErr error
	// DestroyErr is reported by the first Destroy; teardown still happens.
	DestroyErr error
}

// WaitReady implements engine.Engine. It resolves after the configured
// delay with the configured error, or earlier with the context's error.
func (e *Engine) WaitReady(ctx context.Context) error {
	e.factory.record(e.index, "wait_ready")

	if e.readyDelay > 0 {
		select {
		case <-time.After(e.readyDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}
	return e.readyErr
}

// Metadata implements engine.Engine.
func (e *Engine) Metadata() engine.Metadata { return e.meta }

// TOC implements engine.Engine.
func (e *Engine) TOC() []domain.TOCEntry { return e.toc }

// Spine implements engine.Engine.
func (e *Engine) Spine() []engine.SpineItem {
	items := make([]engine.SpineItem, len(e.spineTexts))
	for i := range e.spineTexts {
		items[i] = engine.SpineItem{
			Index: i,
			ID:    fmt.Sprintf("ch%d", i+1),
			HREF:  fmt.Sprintf("ch%d.xhtml", i+1),
		}
	}
	return items
}

// SpineText implements engine.Engine.
func (e *Engine) SpineText(ctx context.Context, index int) (string, error) {
	e.factory.record(e.index, fmt.Sprintf("spine_text:%d", index))

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := e.spineErrs[index]; err != nil {
		return "", err
	}
	if index < 0 || index >= len(e.spineTexts) {
		return "", apperr.EngineOperationf("spine index %d out of range", index)
	}
	return e.spineTexts[index], nil
}

// CoverImage implements engine.Engine.
func (e *Engine) CoverImage() ([]byte, string, bool) {
	if len(e.cover) == 0 {
		return nil, "", false
	}
	return e.cover, e.coverType, true
}

// Locations implements engine.Engine.
func (e *Engine) Locations() engine.Locations { return (*fakeLocations)(e) }

// RenderTo implements engine.Engine.
func (e *Engine) RenderTo(cfg engine.RenderConfig) (engine.Rendition, error) {
	e.factory.record(e.index, "render_to")

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.RenderErr != nil {
		return nil, e.RenderErr
	}
	if e.destroyed {
		return nil, apperr.EngineOperation("engine destroyed")
	}
	if e.rendition != nil {
		return nil, apperr.EngineOperation("engine already rendered to a surface")
	}

	e.rendition = &Rendition{
		engine:     e,
		cfg:        cfg,
		handlers:   map[int]func(engine.Location){},
		DisplayErr: e.displayErr,
		ThemeErr:   e.themeErr,
	}
	return e.rendition, nil
}

// Destroy implements engine.Engine. Count every call; tear down once.
func (e *Engine) Destroy() error {
	e.factory.record(e.index, "destroy")

	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroyCalls++
	if e.destroyed {
		return nil
	}
	e.destroyed = true
	if e.rendition != nil {
		// Torn down but kept reachable so tests can inspect it.
		e.rendition.teardown()
	}
	return e.DestroyErr
}

// Destroyed reports whether Destroy ran.
func (e *Engine) Destroyed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.destroyed
}

// DestroyCalls reports how many times Destroy was invoked.
func (e *Engine) DestroyCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.destroyCalls
}

// Rendition returns the live rendition, or nil before RenderTo.
func (e *Engine) Rendition() *Rendition {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rendition
}

// fakeLocations implements engine.Locations over a flat index of
// locationCount entries, CFIs encoded as permille offsets in spine 0.
type fakeLocations Engine

// Generate implements engine.Locations.
func (l *fakeLocations) Generate(ctx context.Context, charsPerLocation int) (int, error) {
	e := (*Engine)(l)
	e.factory.record(e.index, "locations.generate")

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.GenerateErr != nil {
		return 0, e.GenerateErr
	}
	e.generated = true
	return e.locationCount, nil
}

// CFIFromPercentage implements engine.Locations.
func (l *fakeLocations) CFIFromPercentage(pct float64) (string, error) {
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}
	return engine.PositionCFI(0, int(pct*1000)), nil
}

// PercentageFromCFI implements engine.Locations.
func (l *fakeLocations) PercentageFromCFI(cfi string) (float64, error) {
	_, offset, err := engine.ParseCFI(cfi)
	if err != nil {
		return 0, err
	}
	pct := float64(offset) / 1000
	if pct > 1 {
		pct = 1
	}
	return pct, nil
}

// Rendition is the fake rendition. Navigation records calls but does not
// emit relocations on its own; tests drive EmitRelocated explicitly.
type Rendition struct {
	engine *Engine
	cfg    engine.RenderConfig

	mu            sync.Mutex
	torndown      bool
	displayed     bool
	current       engine.Location
	handlers      map[int]func(engine.Location)
	nextHandlerID int

	// DisplayErr, NavErr, and CurrentErr inject failures.
	DisplayErr error
	NavErr     error
	CurrentErr error
	// ThemeErr fails every themes call.
	ThemeErr error

	displayedCFIs []string
	annotations   map[string]string
	theme         string
	font          string
	fontSize      int
}

// Display implements engine.Rendition.
func (r *Rendition) Display(ctx context.Context, cfi string) error {
	r.engine.factory.record(r.engine.index, "display")

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.torndown {
		return apperr.EngineOperation("rendition torn down")
	}
	if r.DisplayErr != nil {
		return r.DisplayErr
	}
	r.displayed = true
	r.displayedCFIs = append(r.displayedCFIs, cfi)
	if cfi != "" {
		r.current = engine.Location{CFI: cfi}
	} else {
		r.current = engine.Location{CFI: engine.PositionCFI(0, 0)}
	}
	return nil
}

// Next implements engine.Rendition.
func (r *Rendition) Next(ctx context.Context) error {
	r.engine.factory.record(r.engine.index, "next")
	return r.nav()
}

// Prev implements engine.Rendition.
func (r *Rendition) Prev(ctx context.Context) error {
	r.engine.factory.record(r.engine.index, "prev")
	return r.nav()
}

func (r *Rendition) nav() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.torndown {
		return apperr.EngineOperation("rendition torn down")
	}
	if !r.displayed {
		return apperr.EngineOperation("nothing displayed")
	}
	return r.NavErr
}

// CurrentLocation implements engine.Rendition.
func (r *Rendition) CurrentLocation() (engine.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CurrentErr != nil {
		return engine.Location{}, r.CurrentErr
	}
	if !r.displayed {
		return engine.Location{}, apperr.InvalidPosition("nothing displayed yet")
	}
	return r.current, nil
}

// OnRelocated implements engine.Rendition.
func (r *Rendition) OnRelocated(handler func(engine.Location)) engine.Subscription {
	r.engine.factory.record(r.engine.index, "on_relocated")

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

// EmitRelocated fires every handler with the given location, simulating an
// engine-driven relocation.
func (r *Rendition) EmitRelocated(location engine.Location) {
	r.mu.Lock()
	r.current = location
	handlers := make([]func(engine.Location), 0, len(r.handlers))
	for _, h := range r.handlers {
		handlers = append(handlers, h)
	}
	r.mu.Unlock()

	for _, h := range handlers {
		h(location)
	}
}

// HandlerCount reports the live relocation handlers.
func (r *Rendition) HandlerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handlers)
}

// DisplayedCFIs returns every cfi passed to Display, in order.
func (r *Rendition) DisplayedCFIs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.displayedCFIs))
	copy(out, r.displayedCFIs)
	return out
}

// Config returns the render configuration this rendition was created with.
func (r *Rendition) Config() engine.RenderConfig {
	return r.cfg
}

// Theme reports the last applied theme name.
func (r *Rendition) Theme() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.theme
}

// FontSizeValue reports the last applied font size.
func (r *Rendition) FontSizeValue() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fontSize
}

// AnnotationCount reports how many annotations are applied.
func (r *Rendition) AnnotationCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.annotations)
}

func (r *Rendition) teardown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.torndown = true
	r.handlers = map[int]func(engine.Location){}
	r.annotations = nil
}

// Themes implements engine.Rendition.
func (r *Rendition) Themes() engine.Themes { return (*fakeThemes)(r) }

// Annotations implements engine.Rendition.
func (r *Rendition) Annotations() engine.Annotations { return (*fakeAnnotations)(r) }

type fakeThemes Rendition

// Select implements engine.Themes.
func (t *fakeThemes) Select(name string) error {
	r := (*Rendition)(t)
	r.engine.factory.record(r.engine.index, "themes.select:"+name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ThemeErr != nil {
		return r.ThemeErr
	}
	r.theme = name
	return nil
}

// Font implements engine.Themes.
func (t *fakeThemes) Font(family string) error {
	r := (*Rendition)(t)
	r.engine.factory.record(r.engine.index, "themes.font")

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ThemeErr != nil {
		return r.ThemeErr
	}
	r.font = family
	return nil
}

// FontSize implements engine.Themes.
func (t *fakeThemes) FontSize(percent int) error {
	r := (*Rendition)(t)
	r.engine.factory.record(r.engine.index, fmt.Sprintf("themes.font_size:%d", percent))

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ThemeErr != nil {
		return r.ThemeErr
	}
	r.fontSize = percent
	return nil
}

// Override implements engine.Themes.
func (t *fakeThemes) Override(property, value string) error {
	r := (*Rendition)(t)
	r.engine.factory.record(r.engine.index, "themes.override:"+property)
	return nil
}

type fakeAnnotations Rendition

// Add implements engine.Annotations.
func (a *fakeAnnotations) Add(kind, cfi string) error {
	r := (*Rendition)(a)
	r.engine.factory.record(r.engine.index, "annotations.add")

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.torndown {
		return apperr.EngineOperation("rendition torn down")
	}
	if r.annotations == nil {
		r.annotations = map[string]string{}
	}
	r.annotations[cfi] = kind
	return nil
}

// Remove implements engine.Annotations.
func (a *fakeAnnotations) Remove(cfi string) error {
	r := (*Rendition)(a)
	r.engine.factory.record(r.engine.index, "annotations.remove")

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.annotations, cfi)
	return nil
}

// Clear implements engine.Annotations.
func (a *fakeAnnotations) Clear() error {
	r := (*Rendition)(a)
	r.engine.factory.record(r.engine.index, "annotations.clear")

	r.mu.Lock()
	defer r.mu.Unlock()
	r.annotations = map[string]string{}
	return nil
}

type subscription struct {
	cancel func()
}

// Cancel implements engine.Subscription.
func (s *subscription) Cancel() { s.cancel() }
