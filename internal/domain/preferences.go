package domain

import "time"

// Theme is a reading color scheme.
type Theme string

// Available themes.
const (
	ThemeLight Theme = "light"
	ThemeSepia Theme = "sepia"
	ThemeDark  Theme = "dark"
)

// Font size bounds, in percent of the base size, stepped by 10.
const (
	FontSizeMin  = 60
	FontSizeMax  = 200
	FontSizeStep = 10
)

// ReadingFont is one entry of the fixed font catalog.
type ReadingFont struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Stack string `json:"stack"`
}

// FontCatalog is the fixed set of reading fonts the UI offers.
// The first entry is the default.
func FontCatalog() []ReadingFont {
	return []ReadingFont{
		{ID: "literata", Name: "Literata", Stack: `"Literata", Georgia, serif`},
		{ID: "georgia", Name: "Georgia", Stack: `Georgia, "Times New Roman", serif`},
		{ID: "palatino", Name: "Palatino", Stack: `"Palatino Linotype", Palatino, serif`},
		{ID: "atkinson", Name: "Atkinson Hyperlegible", Stack: `"Atkinson Hyperlegible", sans-serif`},
		{ID: "inter", Name: "Inter", Stack: `"Inter", "Helvetica Neue", sans-serif`},
		{ID: "open-dyslexic", Name: "OpenDyslexic", Stack: `"OpenDyslexic", sans-serif`},
	}
}

// FontByID looks up a catalog font.
func FontByID(fontID string) (ReadingFont, bool) {
	for _, f := range FontCatalog() {
		if f.ID == fontID {
			return f, true
		}
	}
	return ReadingFont{}, false
}

// ValidTheme reports whether a theme name is known.
func ValidTheme(t Theme) bool {
	switch t {
	case ThemeLight, ThemeSepia, ThemeDark:
		return true
	default:
		return false
	}
}

// Preferences holds the user's reading settings. Loaded once at startup,
// persisted on every change.
type Preferences struct {
	CurrentTheme  Theme     `json:"current_theme"`
	FontSize      int       `json:"font_size"`
	ReadingFont   string    `json:"reading_font"`
	IsTwoPageView bool      `json:"is_two_page_view"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewPreferences creates preferences with defaults.
func NewPreferences() *Preferences {
	return &Preferences{
		CurrentTheme: ThemeLight,
		FontSize:     100,
		ReadingFont:  FontCatalog()[0].ID,
		UpdatedAt:    time.Now(),
	}
}

// ClampFontSize bounds a size into [FontSizeMin, FontSizeMax] and snaps it
// to the nearest step.
func ClampFontSize(size int) int {
	if size < FontSizeMin {
		return FontSizeMin
	}
	if size > FontSizeMax {
		return FontSizeMax
	}
	// Snap to the step grid, rounding down.
	return size - (size-FontSizeMin)%FontSizeStep
}

// Touch bumps the updated timestamp.
func (p *Preferences) Touch() {
	p.UpdatedAt = time.Now()
}
