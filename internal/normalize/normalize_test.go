package normalize

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"The Left Hand of Darkness", "the-left-hand-of-darkness"},
		{"Ender's Game", "ender-s-game"},
		{"Où es-tu?", "ou-es-tu"},
		{"Über die Berge", "uber-die-berge"},
		{"  spaced   out  ", "spaced-out"},
		{"---", ""},
		{"", ""},
		{"Book #1: Origins!!!", "book-1-origins"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := Slugify(tt.input)
			if result != tt.expected {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSortKey(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"The Dispossessed", "dispossessed"},
		{"A Wizard of Earthsea", "wizard of earthsea"},
		{"An Unkindness of Ghosts", "unkindness of ghosts"},
		{"Neuromancer", "neuromancer"},
		{"Éloge de l'ombre", "eloge de l'ombre"},
		// Only the first article is stripped
		{"The A Team", "a team"},
		// "Another" is not "an other"
		{"Another Country", "another country"},
		{"  The  Stars  ", "stars"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := SortKey(tt.input)
			if result != tt.expected {
				t.Errorf("SortKey(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestLanguageCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		// ISO 639-1 codes (passthrough)
		{"en", "en"},
		{"de", "de"},
		// ISO 639-2 codes
		{"eng", "en"},
		{"deu", "de"},
		{"ger", "de"}, // bibliographic variant
		// Locale codes
		{"en-US", "en"},
		{"en_GB", "en"},
		// Language names
		{"English", "en"},
		{"GERMAN", "de"},
		// Edge cases
		{"", ""},
		{"  fr  ", "fr"},
		{"xx", ""},
		{"klingon", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := LanguageCode(tt.input)
			if result != tt.expected {
				t.Errorf("LanguageCode(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"null bytes", "Dune\x00", "Dune"},
		{"control chars", "Du\x01ne\x7f", "Dune"},
		{"keeps tabs and newlines", "a\tb\nc", "a\tb\nc"},
		{"trims space", "  Dune  ", "Dune"},
		{"plain", "Dune", "Dune"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Clean(tt.input)
			if result != tt.expected {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
