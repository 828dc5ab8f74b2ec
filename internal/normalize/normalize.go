// Package normalize provides utilities for normalizing strings that arrive
// from EPUB metadata, which is frequently messy: null bytes, stray control
// characters, inconsistent language tags, decorative whitespace.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	// Matches any non-alphanumeric character.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	// Matches multiple hyphens.
	multipleHyphens = regexp.MustCompile(`-+`)
)

// Slugify converts a string to a filesystem- and URL-safe slug.
// "The Left Hand of Darkness" -> "the-left-hand-of-darkness".
// "Ender's Game" -> "ender-s-game".
func Slugify(s string) string {
	// Normalize unicode (decompose accented characters).
	s = norm.NFKD.String(s)

	// Remove non-ASCII characters.
	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)

	// Lowercase.
	s = strings.ToLower(s)

	// Replace non-alphanumeric with hyphens.
	s = nonAlphanumeric.ReplaceAllString(s, "-")

	// Collapse multiple hyphens.
	s = multipleHyphens.ReplaceAllString(s, "-")

	// Trim leading/trailing hyphens.
	s = strings.Trim(s, "-")

	return s
}

// Leading articles ignored when sorting titles.
var sortArticles = []string{"the ", "a ", "an "}

// SortKey folds a title or author name into a key suitable for ordering the
// library: diacritics stripped, case folded, leading English articles
// dropped. "The Dispossessed" sorts under D.
func SortKey(s string) string {
	// Decompose, then drop the combining marks left behind.
	s = norm.NFKD.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Mn, r) {
			return -1
		}
		return r
	}, s)

	s = strings.ToLower(strings.TrimSpace(s))

	for _, article := range sortArticles {
		if strings.HasPrefix(s, article) {
			s = s[len(article):]
			break
		}
	}

	return strings.TrimSpace(s)
}

// iso639_2to1 maps ISO 639-2 (3-letter) codes seen in EPUB dc:language
// elements to ISO 639-1 (2-letter) codes. Covers the terminological codes
// plus the bibliographic variants publishers actually emit.
var iso639_2to1 = map[string]string{
	"eng": "en", "spa": "es", "fra": "fr", "deu": "de", "ita": "it",
	"por": "pt", "nld": "nl", "rus": "ru", "jpn": "ja", "zho": "zh",
	"kor": "ko", "ara": "ar", "pol": "pl", "swe": "sv", "nor": "no",
	"dan": "da", "fin": "fi", "tur": "tr", "ell": "el", "heb": "he",
	"ces": "cs", "hun": "hu", "ron": "ro", "ukr": "uk", "cat": "ca",
	// Bibliographic variants.
	"ger": "de", "fre": "fr", "dut": "nl", "chi": "zh", "cze": "cs",
	"gre": "el", "rum": "ro",
}

// languageNameToCode maps language names, which some EPUBs put in
// dc:language despite the EPUB spec, to ISO 639-1 codes.
var languageNameToCode = map[string]string{
	"english": "en", "spanish": "es", "french": "fr", "german": "de",
	"italian": "it", "portuguese": "pt", "dutch": "nl", "russian": "ru",
	"japanese": "ja", "chinese": "zh", "korean": "ko", "arabic": "ar",
	"polish": "pl", "swedish": "sv", "norwegian": "no", "danish": "da",
	"finnish": "fi", "turkish": "tr", "greek": "el", "hebrew": "he",
	"czech": "cs", "hungarian": "hu", "romanian": "ro", "ukrainian": "uk",
	"catalan": "ca",
}

// validISO639_1 holds the two-letter codes accepted as-is.
var validISO639_1 = func() map[string]bool {
	m := make(map[string]bool)
	for _, code := range iso639_2to1 {
		m[code] = true
	}
	return m
}()

// LanguageCode converts the language representations found in EPUB metadata
// to ISO 639-1 codes:
//   - ISO 639-1 codes: "en" -> "en"
//   - ISO 639-2 codes: "eng" -> "en"
//   - Locale codes: "en-US", "en_GB" -> "en"
//   - Language names: "English" -> "en"
//
// Returns empty string for unrecognized values.
func LanguageCode(raw string) string {
	if raw == "" {
		return ""
	}

	s := strings.ToLower(strings.TrimSpace(Clean(raw)))
	if s == "" {
		return ""
	}

	// Locale codes carry a region suffix; keep the language part.
	if idx := strings.IndexAny(s, "-_"); idx > 0 {
		s = s[:idx]
	}

	if len(s) == 2 && validISO639_1[s] {
		return s
	}

	if len(s) == 3 {
		if code, ok := iso639_2to1[s]; ok {
			return code
		}
	}

	if code, ok := languageNameToCode[s]; ok {
		return code
	}

	return ""
}

// Clean removes null bytes and control characters from a metadata string
// and trims surrounding whitespace. OPF files in the wild contain both.
func Clean(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == 0 || (unicode.IsControl(r) && r != '\n' && r != '\t') {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
