package epub

import (
	"context"
	"sort"
	"sync"

	"github.com/luminareader/lumina-server/internal/engine"
	apperr "github.com/luminareader/lumina-server/internal/errors"
)

// loc is one entry of the location index: a character offset into a spine
// document.
type loc struct {
	spineIndex int
	charOffset int
}

// locationIndex implements engine.Locations over evenly-sized text slices.
type locationIndex struct {
	engine *Engine

	mu   sync.RWMutex
	locs []loc
}

// Generate walks the spine and records a location every charsPerLocation
// characters. A document that fails to extract is skipped; the index still
// covers the rest of the book.
func (l *locationIndex) Generate(ctx context.Context, charsPerLocation int) (int, error) {
	if charsPerLocation <= 0 {
		return 0, apperr.EngineOperation("chars per location must be positive")
	}
	if !l.engine.parsed() {
		return 0, apperr.EngineOperation("engine not ready")
	}

	var locs []loc
	for i := range l.engine.spine {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		text, err := l.engine.SpineText(ctx, i)
		if err != nil {
			if l.engine.logger != nil {
				l.engine.logger.Warn("skipping spine item in location index", "index", i, "error", err)
			}
			continue
		}

		if len(text) == 0 {
			locs = append(locs, loc{spineIndex: i})
			continue
		}
		for off := 0; off < len(text); off += charsPerLocation {
			locs = append(locs, loc{spineIndex: i, charOffset: off})
		}
	}

	if len(locs) == 0 {
		locs = []loc{{}}
	}

	l.mu.Lock()
	l.locs = locs
	l.mu.Unlock()
	return len(locs), nil
}

// CFIFromPercentage maps a 0..1 fraction to the CFI of the nearest location.
func (l *locationIndex) CFIFromPercentage(pct float64) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.locs) == 0 {
		return "", apperr.EngineOperation("locations not generated")
	}

	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}

	idx := int(pct*float64(len(l.locs)-1) + 0.5)
	entry := l.locs[idx]
	return engine.PositionCFI(entry.spineIndex, entry.charOffset), nil
}

// PercentageFromCFI maps a CFI to its fraction of the location index.
func (l *locationIndex) PercentageFromCFI(cfi string) (float64, error) {
	spineIndex, charOffset, err := engine.ParseCFI(cfi)
	if err != nil {
		return 0, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.locs) == 0 {
		return 0, apperr.EngineOperation("locations not generated")
	}
	if len(l.locs) == 1 {
		return 0, nil
	}

	idx := l.nearestLocked(spineIndex, charOffset)
	return float64(idx) / float64(len(l.locs)-1), nil
}

// nearest returns the index of the last location at or before the position.
func (l *locationIndex) nearest(spineIndex, charOffset int) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.nearestLocked(spineIndex, charOffset)
}

func (l *locationIndex) nearestLocked(spineIndex, charOffset int) int {
	// First location strictly after the position...
	n := sort.Search(len(l.locs), func(i int) bool {
		e := l.locs[i]
		if e.spineIndex != spineIndex {
			return e.spineIndex > spineIndex
		}
		return e.charOffset > charOffset
	})
	// ...then step back onto it or before it.
	if n == 0 {
		return 0
	}
	return n - 1
}

// count returns the size of the generated index.
func (l *locationIndex) count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.locs)
}

// at returns one location entry.
func (l *locationIndex) at(idx int) (loc, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if idx < 0 || idx >= len(l.locs) {
		return loc{}, false
	}
	return l.locs[idx], true
}
