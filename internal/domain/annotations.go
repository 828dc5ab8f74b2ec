package domain

import "time"

// Bookmark marks a single position in a book. The UI-facing list is
// ordered newest-first.
type Bookmark struct {
	ID        string    `json:"id"`
	CFI       string    `json:"cfi"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
}

// NewBookmark creates a bookmark at the given position.
func NewBookmark(bookmarkID, cfi, label string) *Bookmark {
	return &Bookmark{
		ID:        bookmarkID,
		CFI:       cfi,
		Label:     label,
		CreatedAt: time.Now(),
	}
}

// Highlight anchors a text selection. Lists keep creation order.
type Highlight struct {
	ID        string    `json:"id"`
	CFI       string    `json:"cfi"`
	Text      string    `json:"text"`
	Color     string    `json:"color,omitempty"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewHighlight creates a highlight over the given range.
func NewHighlight(highlightID, cfi, text, color string) *Highlight {
	return &Highlight{
		ID:        highlightID,
		CFI:       cfi,
		Text:      text,
		Color:     color,
		CreatedAt: time.Now(),
	}
}
