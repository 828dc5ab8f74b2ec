// Package reader owns the lifecycle of one open book: fetching its archive
// bytes, constructing and tearing down the rendering engine, reconciling the
// engine-ready and display-surface-ready signals, and applying reading
// preferences after first display so pages never flash unstyled.
//
// The session is guarded by a single mutex, but the open flow's waits (byte
// fetch, engine readiness, surface polling) all run unlocked. Every
// re-acquisition re-checks the session token: a newer OpenBook or CloseBook
// bumps the token, so a superseded flow and any callbacks it registered
// become no-ops instead of mutating state they no longer own.
package reader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/luminareader/lumina-server/internal/archive"
	"github.com/luminareader/lumina-server/internal/config"
	"github.com/luminareader/lumina-server/internal/domain"
	"github.com/luminareader/lumina-server/internal/engine"
	apperr "github.com/luminareader/lumina-server/internal/errors"
	"github.com/luminareader/lumina-server/internal/notify"
	"github.com/luminareader/lumina-server/internal/store"
)

// State is the session's lifecycle phase.
type State string

// Session states.
const (
	StateIdle              State = "idle"
	StateOpening           State = "opening"
	StateWaitingForSurface State = "waiting_for_surface"
	StateDisplaying        State = "displaying"
	StateClosing           State = "closing"
)

// LoadingStep is the coarse progress phase within an open.
type LoadingStep string

// Loading steps, in open-flow order.
const (
	StepFetchingBytes   LoadingStep = "fetching_bytes"
	StepConstructing    LoadingStep = "constructing_engine"
	StepAwaitingEngine  LoadingStep = "awaiting_engine"
	StepAwaitingSurface LoadingStep = "awaiting_surface"
	StepRendering       LoadingStep = "rendering"
)

// locationCharacters is the slice size for the engine's location index.
const locationCharacters = 1024

// Session manages the one open book. All methods are safe for concurrent
// use; a newer OpenBook always wins over one still in flight.
type Session struct {
	factory  engine.Factory
	provider archive.Provider
	store    *store.Store
	surface  *Surface
	toasts   *notify.Center
	events   store.EventEmitter
	cfg      config.ReaderConfig
	logger   *slog.Logger

	mu           sync.Mutex
	token        uint64
	state        State
	step         LoadingStep
	activeBookID string
	engine       engine.Engine
	rendition    engine.Rendition
	subscription engine.Subscription
	meta         engine.Metadata
	toc          []domain.TOCEntry
	bookmarks    []*domain.Bookmark
	highlights   []*domain.Highlight
	prefs        *domain.Preferences
	current      engine.Location

	progressTimer *time.Timer
	pendingLoc    engine.Location
	hasPending    bool
}

// NewSession creates an idle session.
func NewSession(
	factory engine.Factory,
	provider archive.Provider,
	store *store.Store,
	surface *Surface,
	toasts *notify.Center,
	events store.EventEmitter,
	cfg config.ReaderConfig,
	logger *slog.Logger,
) *Session {
	if surface == nil {
		surface = NewSurface()
	}
	if cfg.SurfacePollInterval <= 0 {
		cfg.SurfacePollInterval = 100 * time.Millisecond
	}
	if cfg.SurfacePollMaxAttempts <= 0 {
		cfg.SurfacePollMaxAttempts = 50
	}
	if cfg.EngineReadyTimeout <= 0 {
		cfg.EngineReadyTimeout = 10 * time.Second
	}
	if cfg.ProgressDebounce <= 0 {
		cfg.ProgressDebounce = time.Second
	}
	if cfg.SearchWorkers <= 0 {
		cfg.SearchWorkers = 4
	}

	return &Session{
		factory:  factory,
		provider: provider,
		store:    store,
		surface:  surface,
		toasts:   toasts,
		events:   events,
		cfg:      cfg,
		logger:   logger,
		state:    StateIdle,
	}
}

// Surface returns the display surface this session watches.
func (s *Session) Surface() *Surface {
	return s.surface
}

// OpenBook opens a book end to end: tear down whatever is open, fetch the
// archive, construct an engine, wait for engine and surface readiness,
// display at the saved position, then apply preferences and register the
// relocation listener. It returns once the book is displaying or the
// attempt failed. A concurrent OpenBook supersedes this one, in which case
// it returns a session-superseded error and touches nothing further.
func (s *Session) OpenBook(ctx context.Context, bookID string) error {
	if bookID == "" {
		return apperr.Validation("book id is required")
	}

	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		if errors.Is(err, store.ErrBookNotFound) {
			return apperr.NotFoundf("book %s not found", bookID)
		}
		return apperr.Wrap(err, apperr.CodeInternal, "load book record")
	}

	// Take over the session: tear down the current book synchronously and
	// invalidate every callback belonging to earlier opens.
	s.mu.Lock()
	s.token++
	token := s.token
	pw := s.teardownLocked()
	s.state = StateOpening
	s.step = StepFetchingBytes
	s.activeBookID = bookID
	s.mu.Unlock()

	s.flushPendingWrite(pw)
	s.emit(StateChanged{State: StateOpening, Step: StepFetchingBytes, BookID: bookID})
	if s.logger != nil {
		s.logger.Info("opening book", "book_id", bookID, "title", book.Title)
	}

	data, err := s.provider.GetBytes(ctx, bookID)
	if err != nil {
		return s.failOpen(token, bookID, apperr.Wrapf(err, apperr.CodeByteFetchFailed,
			"archive bytes unavailable for book %s", bookID))
	}

	// A corrupted file can pass the import boundary and only fail at parse
	// time, so re-check the container signature before constructing.
	if err := archive.ValidateEPUB(data); err != nil {
		return s.failOpen(token, bookID, err)
	}

	if !s.advance(token, StateOpening, StepConstructing, bookID) {
		return apperr.SessionSuperseded("superseded while fetching bytes")
	}

	// Construct and record the engine in one critical section. Construction
	// is non-blocking (parsing happens behind WaitReady), and recording it
	// atomically means a concurrent teardown can always see and destroy it:
	// there is never an instant with two live engines.
	s.mu.Lock()
	if token != s.token {
		s.mu.Unlock()
		return apperr.SessionSuperseded("superseded while fetching bytes")
	}
	eng, err := s.factory.Open(ctx, data)
	if err != nil {
		s.mu.Unlock()
		return s.failOpen(token, bookID, err)
	}
	s.engine = eng
	s.step = StepAwaitingEngine
	s.mu.Unlock()
	s.emit(StateChanged{State: StateOpening, Step: StepAwaitingEngine, BookID: bookID})

	readyCtx, cancel := context.WithTimeout(ctx, s.cfg.EngineReadyTimeout)
	err = eng.WaitReady(readyCtx)
	cancel()
	if err != nil {
		return s.failOpen(token, bookID, classifyReadyErr(err))
	}

	if !s.advance(token, StateWaitingForSurface, StepAwaitingSurface, bookID) {
		return apperr.SessionSuperseded("superseded while awaiting engine readiness")
	}

	width, height, err := s.awaitSurface(ctx, token)
	if err != nil {
		if errors.Is(err, apperr.ErrSessionSuperseded) {
			return err
		}
		return s.failOpen(token, bookID, err)
	}

	if !s.advance(token, StateWaitingForSurface, StepRendering, bookID) {
		return apperr.SessionSuperseded("superseded while awaiting surface")
	}

	prefs := s.loadPreferences(ctx)
	bookmarks, highlights := s.loadAnnotations(ctx, bookID)

	rendition, err := eng.RenderTo(engine.DefaultRenderConfig(width, height, prefs.IsTwoPageView))
	if err != nil {
		return s.failOpen(token, bookID, apperr.Wrap(err, apperr.CodeEngineOperationFail, "render to surface"))
	}

	if _, err := eng.Locations().Generate(ctx, locationCharacters); err != nil {
		return s.failOpen(token, bookID, apperr.Wrap(err, apperr.CodeEngineOperationFail, "generate location index"))
	}

	if err := rendition.Display(ctx, book.CFI); err != nil {
		return s.failOpen(token, bookID, apperr.Wrap(err, apperr.CodeEngineOperationFail, "display content"))
	}

	// Preferences are applied only after first display; earlier calls are
	// no-ops for the engine, later ones flash unstyled content.
	s.applyPreferences(rendition, prefs)
	s.applyAnnotations(rendition, highlights)

	sub := rendition.OnRelocated(s.relocated(token, bookID))

	current, err := rendition.CurrentLocation()
	if err != nil {
		current = engine.Location{CFI: book.CFI}
	}

	s.mu.Lock()
	if token != s.token {
		s.mu.Unlock()
		sub.Cancel()
		return apperr.SessionSuperseded("superseded while displaying")
	}
	s.rendition = rendition
	s.subscription = sub
	s.meta = eng.Metadata()
	s.toc = eng.TOC()
	s.bookmarks = bookmarks
	s.highlights = highlights
	s.prefs = prefs
	s.current = current
	s.state = StateDisplaying
	s.step = ""
	s.mu.Unlock()

	s.emit(StateChanged{State: StateDisplaying, BookID: bookID})
	s.markOpened(bookID)
	if s.logger != nil {
		s.logger.Info("book displayed",
			"book_id", bookID,
			"title", book.Title,
			"restore_cfi", book.CFI,
			"surface", fmt.Sprintf("%dx%d", width, height))
	}
	return nil
}

// CloseBook tears the session down to idle. Calling it with nothing open,
// or calling it twice, is a no-op. Teardown is total: engine destroy
// failures are logged and swallowed, and a pending progress write is
// flushed so the last position survives.
func (s *Session) CloseBook() {
	s.mu.Lock()
	if s.state == StateIdle {
		s.mu.Unlock()
		return
	}
	s.token++
	bookID := s.activeBookID
	s.state = StateClosing
	pw := s.teardownLocked()
	s.mu.Unlock()

	s.flushPendingWrite(pw)
	s.emit(StateChanged{State: StateIdle})
	if s.logger != nil {
		s.logger.Info("book closed", "book_id", bookID)
	}
}

// Snapshot is the session's externally visible state.
type Snapshot struct {
	State        State               `json:"state"`
	Step         LoadingStep         `json:"step,omitempty"`
	BookID       string              `json:"book_id,omitempty"`
	Metadata     engine.Metadata     `json:"metadata"`
	TOC          []domain.TOCEntry   `json:"toc,omitempty"`
	Bookmarks    []*domain.Bookmark  `json:"bookmarks,omitempty"`
	Highlights   []*domain.Highlight `json:"highlights,omitempty"`
	Location     engine.Location     `json:"location"`
	SurfaceReady bool                `json:"surface_ready"`
}

// Snapshot returns a copy of the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:        s.state,
		Step:         s.step,
		BookID:       s.activeBookID,
		Metadata:     s.meta,
		Location:     s.current,
		SurfaceReady: s.surface.Ready(),
	}
	snap.TOC = append(snap.TOC, s.toc...)
	snap.Bookmarks = append(snap.Bookmarks, s.bookmarks...)
	snap.Highlights = append(snap.Highlights, s.highlights...)
	return snap
}

// State returns the session's lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ActiveBookID returns the open book's id, or "" when idle.
func (s *Session) ActiveBookID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeBookID
}

// TOC returns the open book's table of contents.
func (s *Session) TOC() []domain.TOCEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.TOCEntry(nil), s.toc...)
}

// CurrentLocation returns the last known reading position.
func (s *Session) CurrentLocation() engine.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// advance moves this open attempt forward if it still owns the session.
func (s *Session) advance(token uint64, state State, step LoadingStep, bookID string) bool {
	s.mu.Lock()
	if token != s.token {
		s.mu.Unlock()
		return false
	}
	s.state = state
	s.step = step
	s.mu.Unlock()

	s.emit(StateChanged{State: state, Step: step, BookID: bookID})
	return true
}

// awaitSurface polls the display surface until it reports non-zero bounds,
// under the configured interval and attempt bound.
func (s *Session) awaitSurface(ctx context.Context, token uint64) (int, int, error) {
	for attempt := 0; attempt < s.cfg.SurfacePollMaxAttempts; attempt++ {
		if w, h := s.surface.Bounds(); w > 0 && h > 0 {
			return w, h, nil
		}
		if !s.tokenValid(token) {
			return 0, 0, apperr.SessionSuperseded("superseded while awaiting surface")
		}
		select {
		case <-ctx.Done():
			return 0, 0, ctx.Err()
		case <-time.After(s.cfg.SurfacePollInterval):
		}
	}
	return 0, 0, apperr.SurfaceTimeout(fmt.Sprintf(
		"display surface not ready after %d attempts", s.cfg.SurfacePollMaxAttempts))
}

func (s *Session) tokenValid(token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return token == s.token
}

// failOpen aborts this open attempt: unless a newer open already took over,
// it tears the session down to idle, surfaces the failure, and returns the
// classified error.
func (s *Session) failOpen(token uint64, bookID string, err error) error {
	s.mu.Lock()
	if token != s.token {
		s.mu.Unlock()
		return apperr.SessionSuperseded("superseded before failure could apply")
	}
	s.token++
	pw := s.teardownLocked()
	s.mu.Unlock()

	s.flushPendingWrite(pw)
	s.emit(StateChanged{State: StateIdle})

	canceled := errors.Is(err, context.Canceled)
	if s.logger != nil && !canceled {
		s.logger.Error("open book failed", "book_id", bookID, "error", err)
	}
	if s.toasts != nil && !canceled {
		s.toasts.Error(openFailureMessage(err))
	}
	return err
}

// teardownLocked releases everything the session owns and resets it to
// idle defaults. Must run with the mutex held; the caller flushes the
// returned pending progress write after unlocking.
func (s *Session) teardownLocked() pendingWrite {
	var pw pendingWrite
	if s.progressTimer != nil {
		s.progressTimer.Stop()
		s.progressTimer = nil
	}
	if s.hasPending {
		pw = pendingWrite{bookID: s.activeBookID, loc: s.pendingLoc, valid: true}
		s.hasPending = false
	}
	if s.subscription != nil {
		s.subscription.Cancel()
		s.subscription = nil
	}
	if s.engine != nil {
		s.destroyEngine(s.engine)
		s.engine = nil
	}
	s.rendition = nil
	s.meta = engine.Metadata{}
	s.toc = nil
	s.bookmarks = nil
	s.highlights = nil
	s.prefs = nil
	s.current = engine.Location{}
	s.activeBookID = ""
	s.state = StateIdle
	s.step = ""
	return pw
}

// destroyEngine destroys an engine, swallowing failures. A broken engine
// must never stop teardown from completing.
func (s *Session) destroyEngine(eng engine.Engine) {
	if err := eng.Destroy(); err != nil && s.logger != nil {
		s.logger.Warn("engine destroy failed", "error", err)
	}
}

// relocated builds the navigation listener for one open attempt. The
// captured token makes callbacks from superseded engines inert.
func (s *Session) relocated(token uint64, bookID string) func(engine.Location) {
	return func(loc engine.Location) {
		s.mu.Lock()
		if token != s.token {
			s.mu.Unlock()
			return
		}
		s.current = loc
		s.pendingLoc = loc
		s.hasPending = true
		if s.progressTimer != nil {
			s.progressTimer.Stop()
		}
		s.progressTimer = time.AfterFunc(s.cfg.ProgressDebounce, func() {
			s.flushProgress(token, bookID)
		})
		s.mu.Unlock()

		s.emit(LocationChanged{BookID: bookID, Location: loc})
	}
}

// flushProgress writes the debounced position once the window elapses,
// unless the book was closed or replaced in the meantime.
func (s *Session) flushProgress(token uint64, bookID string) {
	s.mu.Lock()
	if token != s.token || !s.hasPending {
		s.mu.Unlock()
		return
	}
	loc := s.pendingLoc
	s.hasPending = false
	s.mu.Unlock()

	s.writeProgress(bookID, loc)
}

type pendingWrite struct {
	bookID string
	loc    engine.Location
	valid  bool
}

func (s *Session) flushPendingWrite(pw pendingWrite) {
	if !pw.valid {
		return
	}
	s.writeProgress(pw.bookID, pw.loc)
}

// writeProgress persists a reading position. Failures are logged and
// swallowed; background housekeeping never breaks the session.
func (s *Session) writeProgress(bookID string, loc engine.Location) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("progress write: load book failed", "book_id", bookID, "error", err)
		}
		return
	}
	book.SetPosition(loc.CFI, progressPercent(loc.Percentage))
	if err := s.store.UpdateBook(ctx, book); err != nil {
		if s.logger != nil {
			s.logger.Warn("progress write failed", "book_id", bookID, "error", err)
		}
		return
	}
	if s.logger != nil {
		s.logger.Debug("progress written", "book_id", bookID, "cfi", loc.CFI, "progress", book.Progress)
	}
}

// markOpened stamps the book's last-opened time.
func (s *Session) markOpened(bookID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return
	}
	book.MarkOpened()
	if err := s.store.UpdateBook(ctx, book); err != nil && s.logger != nil {
		s.logger.Warn("mark opened failed", "book_id", bookID, "error", err)
	}
}

// loadPreferences reads the stored preferences, falling back to defaults
// on a fresh install.
func (s *Session) loadPreferences(ctx context.Context) *domain.Preferences {
	prefs, err := s.store.GetPreferences(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrPreferencesNotFound) && s.logger != nil {
			s.logger.Warn("load preferences failed, using defaults", "error", err)
		}
		return domain.NewPreferences()
	}
	return prefs
}

// loadAnnotations reads the book's bookmarks and highlights. Missing or
// unreadable lists degrade to empty, never block an open.
func (s *Session) loadAnnotations(ctx context.Context, bookID string) ([]*domain.Bookmark, []*domain.Highlight) {
	bookmarks, err := s.store.GetBookmarks(ctx, bookID)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("load bookmarks failed", "book_id", bookID, "error", err)
		}
		bookmarks = nil
	}
	highlights, err := s.store.GetHighlights(ctx, bookID)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("load highlights failed", "book_id", bookID, "error", err)
		}
		highlights = nil
	}
	return bookmarks, highlights
}

// applyPreferences pushes theme, font, and size into the live rendition.
// Failures are logged, not fatal: a book that displays with default
// styling beats one that refuses to open.
func (s *Session) applyPreferences(rendition engine.Rendition, prefs *domain.Preferences) {
	themes := rendition.Themes()
	if err := themes.Select(string(prefs.CurrentTheme)); err != nil && s.logger != nil {
		s.logger.Warn("apply theme failed", "theme", prefs.CurrentTheme, "error", err)
	}
	if font, ok := domain.FontByID(prefs.ReadingFont); ok {
		if err := themes.Font(font.Stack); err != nil && s.logger != nil {
			s.logger.Warn("apply font failed", "font", prefs.ReadingFont, "error", err)
		}
	}
	if err := themes.FontSize(prefs.FontSize); err != nil && s.logger != nil {
		s.logger.Warn("apply font size failed", "size", prefs.FontSize, "error", err)
	}
}

// applyAnnotations paints stored highlights onto the rendition. Engines
// drop visual annotations on re-paint, so this also runs after theme
// changes.
func (s *Session) applyAnnotations(rendition engine.Rendition, highlights []*domain.Highlight) {
	annotations := rendition.Annotations()
	for _, h := range highlights {
		if err := annotations.Add("highlight", h.CFI); err != nil && s.logger != nil {
			s.logger.Warn("apply highlight failed", "highlight_id", h.ID, "error", err)
		}
	}
}

func (s *Session) emit(event any) {
	if s.events != nil {
		s.events.Emit(event)
	}
}

// classifyReadyErr maps a readiness-wait failure onto the error taxonomy.
// The engine reports parse failures as typed errors already; a deadline
// here means the engine never became ready.
func classifyReadyErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.EngineReadyTimeout("rendering engine did not become ready in time")
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Wrap(err, apperr.CodeEngineOperationFail, "await engine readiness")
}

// openFailureMessage is the short user-facing text for an open failure.
// Technical detail stays in the logs.
func openFailureMessage(err error) string {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		return "Could not open the book."
	}
	switch appErr.Code {
	case apperr.CodeByteFetchFailed:
		return "Could not load the book file. Check the library and try again."
	case apperr.CodeInvalidArchive:
		return "This file is not a valid EPUB."
	case apperr.CodeEngineReadyTimeout:
		return "The book is taking too long to prepare. Try again."
	case apperr.CodeSurfaceTimeout:
		return "The reading view did not appear. Try again."
	default:
		return "Could not open the book."
	}
}

func progressPercent(pct float64) int {
	return domain.ClampProgress(int(math.Round(pct * 100)))
}
