package reader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSurface(t *testing.T) {
	s := NewSurface()
	assert.False(t, s.Ready())

	s.SetBounds(800, 600)
	assert.True(t, s.Ready())
	w, h := s.Bounds()
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)

	s.Clear()
	assert.False(t, s.Ready())
}

func TestSurface_ZeroDimensionIsNotReady(t *testing.T) {
	s := NewSurface()

	s.SetBounds(800, 0)
	assert.False(t, s.Ready(), "a mounted but unlaid-out surface is not ready")

	s.SetBounds(0, 600)
	assert.False(t, s.Ready())

	s.SetBounds(-10, -10)
	assert.False(t, s.Ready())
	w, h := s.Bounds()
	assert.Zero(t, w)
	assert.Zero(t, h)
}
