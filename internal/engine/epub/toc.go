package epub

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/luminareader/lumina-server/internal/domain"
	"github.com/luminareader/lumina-server/internal/normalize"
)

// NCX XML structures for parsing toc.ncx
type ncx struct {
	NavMap navMap `xml:"navMap"`
}

type navMap struct {
	NavPoints []navPoint `xml:"navPoint"`
}

type navPoint struct {
	ID       string     `xml:"id,attr"`
	Label    navLabel   `xml:"navLabel"`
	Content  navContent `xml:"content"`
	Children []navPoint `xml:"navPoint"`
}

type navLabel struct {
	Text string `xml:"text"`
}

type navContent struct {
	Src string `xml:"src,attr"`
}

// parseTOC builds the navigation tree from the NCX document. Books without
// one get a flat TOC synthesized from the spine.
func (e *Engine) parseTOC() []domain.TOCEntry {
	data := e.readNCX()
	if data == nil {
		return e.spineTOC()
	}

	var doc ncx
	if err := xml.Unmarshal(data, &doc); err != nil {
		if e.logger != nil {
			e.logger.Warn("failed to parse NCX, falling back to spine", "error", err)
		}
		return e.spineTOC()
	}

	entries := tocEntries(doc.NavMap.NavPoints)
	if len(entries) == 0 {
		return e.spineTOC()
	}
	return entries
}

// readNCX finds the NCX in the manifest, by media type first, then by
// file extension.
func (e *Engine) readNCX() []byte {
	for i := range e.book.Manifest.Items {
		item := &e.book.Manifest.Items[i]
		if item.MediaType == "application/x-dtbncx+xml" {
			return readItem(item)
		}
	}
	for i := range e.book.Manifest.Items {
		item := &e.book.Manifest.Items[i]
		if strings.HasSuffix(strings.ToLower(item.HREF), ".ncx") {
			return readItem(item)
		}
	}
	return nil
}

func tocEntries(points []navPoint) []domain.TOCEntry {
	var entries []domain.TOCEntry
	for i, np := range points {
		id := np.ID
		if id == "" {
			id = fmt.Sprintf("nav-%d", i+1)
		}
		entries = append(entries, domain.TOCEntry{
			ID:       id,
			Label:    normalize.Clean(np.Label.Text),
			HREF:     np.Content.Src,
			Subitems: tocEntries(np.Children),
		})
	}
	return entries
}

// spineTOC synthesizes one entry per spine document.
func (e *Engine) spineTOC() []domain.TOCEntry {
	entries := make([]domain.TOCEntry, 0, len(e.spineItem))
	for _, item := range e.spineItem {
		entries = append(entries, domain.TOCEntry{
			ID:    fmt.Sprintf("spine-%d", item.Index+1),
			Label: fmt.Sprintf("Section %d", item.Index+1),
			HREF:  item.HREF,
		})
	}
	return entries
}
