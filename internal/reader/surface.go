package reader

import "sync"

// Surface tracks the UI shell's reported viewport. The shell reports its
// bounds when the reading view mounts and clears them when it unmounts.
// The session treats non-zero bounds as "mounted and laid out"; there is
// no reliable single mount event to subscribe to, so the open flow polls
// this under an explicit retry policy instead.
type Surface struct {
	mu     sync.Mutex
	width  int
	height int
}

// NewSurface creates an unmounted surface.
func NewSurface() *Surface {
	return &Surface{}
}

// SetBounds records the viewport dimensions reported by the UI shell.
// Zero or negative dimensions are treated as "not laid out yet".
func (s *Surface) SetBounds(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	s.width = width
	s.height = height
}

// Clear marks the surface unmounted.
func (s *Surface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = 0
	s.height = 0
}

// Bounds returns the last reported dimensions.
func (s *Surface) Bounds() (width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Ready reports whether the surface is mounted with non-zero layout.
func (s *Surface) Ready() bool {
	w, h := s.Bounds()
	return w > 0 && h > 0
}
