package domain

// TOCEntry is one node of a book's navigation document. Derived from the
// engine at load time, never persisted.
type TOCEntry struct {
	ID       string     `json:"id"`
	Label    string     `json:"label"`
	HREF     string     `json:"href"`
	Subitems []TOCEntry `json:"subitems,omitempty"`
}

// SearchResult is one match from an in-book search. Transient,
// regenerated per query.
type SearchResult struct {
	CFI     string `json:"cfi"`
	Excerpt string `json:"excerpt"`
	Chapter string `json:"chapter,omitempty"`
}

// FlattenTOC walks entries depth-first into a single ordered list.
func FlattenTOC(entries []TOCEntry) []TOCEntry {
	var flat []TOCEntry
	var walk func(items []TOCEntry)
	walk = func(items []TOCEntry) {
		for _, item := range items {
			sub := item.Subitems
			item.Subitems = nil
			flat = append(flat, item)
			walk(sub)
		}
	}
	walk(entries)
	return flat
}
