// Package engine defines the capability interface the reader session
// consumes. The session never sees a concrete engine type; any adapter that
// satisfies these interfaces can sit behind it, including the test fake.
package engine

import (
	"context"

	"github.com/luminareader/lumina-server/internal/domain"
)

// Factory constructs an engine instance from raw archive bytes. Construction
// returns quickly; parsing continues in the background until WaitReady.
type Factory interface {
	Open(ctx context.Context, data []byte) (Engine, error)
}

// Engine is one book's parsed archive. Exclusively owned by the reader
// session. Destroy must be safe at any point, including mid-parse, and
// must be idempotent.
type Engine interface {
	// WaitReady blocks until background parsing finishes or ctx expires.
	WaitReady(ctx context.Context) error

	Metadata() Metadata
	TOC() []domain.TOCEntry
	Spine() []SpineItem

	// SpineText extracts the plain text of one spine document. Used by the
	// in-book search fan-out and by location generation.
	SpineText(ctx context.Context, index int) (string, error)

	// CoverImage returns the cover's bytes and media type, if the archive
	// declares one.
	CoverImage() ([]byte, string, bool)

	Locations() Locations

	// RenderTo binds the engine to a display surface and returns the
	// rendition that paints it. At most one rendition per engine.
	RenderTo(cfg RenderConfig) (Rendition, error)

	Destroy() error
}

// Rendition is the per-surface view of an engine: it holds the current
// position and reports relocations.
type Rendition interface {
	// Display jumps to a position. An empty cfi displays the beginning.
	Display(ctx context.Context, cfi string) error
	Next(ctx context.Context) error
	Prev(ctx context.Context) error

	// CurrentLocation reports the position now displayed. Fails with a
	// typed error while a transition is in flight.
	CurrentLocation() (Location, error)

	// OnRelocated registers a handler for position changes. The returned
	// subscription must be cancelled on teardown.
	OnRelocated(handler func(Location)) Subscription

	Themes() Themes
	Annotations() Annotations
}

// Themes is the rendition's styling surface.
type Themes interface {
	Select(name string) error
	Font(family string) error
	FontSize(percent int) error
	Override(property, value string) error
}

// Annotations mirrors the session's highlights into the painted view.
type Annotations interface {
	Add(kind, cfi string) error
	Remove(cfi string) error
	Clear() error
}

// Locations is the engine's position index. Generate must run before the
// percentage conversions have anything to work with.
type Locations interface {
	// Generate builds the location index, one entry per charsPerLocation
	// characters of spine text. Returns the number of locations.
	Generate(ctx context.Context, charsPerLocation int) (int, error)
	CFIFromPercentage(pct float64) (string, error)
	PercentageFromCFI(cfi string) (float64, error)
}

// Subscription is a registered listener. Cancel is idempotent.
type Subscription interface {
	Cancel()
}

// Metadata is the engine-reported book identity.
type Metadata struct {
	Title       string `json:"title"`
	Author      string `json:"author,omitempty"`
	Language    string `json:"language,omitempty"`
	Identifier  string `json:"identifier,omitempty"`
	Publisher   string `json:"publisher,omitempty"`
	Description string `json:"description,omitempty"`
}

// SpineItem is one content document in reading order.
type SpineItem struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
	HREF  string `json:"href"`
}

// Location is a resolved reading position.
type Location struct {
	CFI        string  `json:"cfi"`
	Percentage float64 `json:"percentage"` // 0..1
	SpineIndex int     `json:"spine_index"`
	Page       int     `json:"page"`
	TotalPages int     `json:"total_pages"`
}

// Flow selects the layout mode.
type Flow string

// Flow modes. Only paginated flow is used; scrolled exists for tooling.
const (
	FlowPaginated Flow = "paginated"
	FlowScrolled  Flow = "scrolled"
)

// RenderConfig is the minimal rendering configuration. Scripted content
// stays disabled; spread heuristics are avoided because they destabilize
// navigation.
type RenderConfig struct {
	Width        int  `json:"width"`
	Height       int  `json:"height"`
	Flow         Flow `json:"flow"`
	TwoPage      bool `json:"two_page"`
	AllowScripts bool `json:"allow_scripts"`
}

// DefaultRenderConfig returns the configuration the session always renders
// with, sized to the reported surface.
func DefaultRenderConfig(width, height int, twoPage bool) RenderConfig {
	return RenderConfig{
		Width:        width,
		Height:       height,
		Flow:         FlowPaginated,
		TwoPage:      twoPage,
		AllowScripts: false,
	}
}
