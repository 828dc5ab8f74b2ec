package reader

import "github.com/luminareader/lumina-server/internal/engine"

// Session events, consumed by the SSE layer.

// StateChanged is emitted on every session state transition.
type StateChanged struct {
	State  State       `json:"state"`
	Step   LoadingStep `json:"step,omitempty"`
	BookID string      `json:"book_id,omitempty"`
}

// LocationChanged is emitted when the engine reports a relocation.
type LocationChanged struct {
	BookID   string          `json:"book_id"`
	Location engine.Location `json:"location"`
}
