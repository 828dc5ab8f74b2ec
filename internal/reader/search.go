package reader

import (
	"context"
	"path"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/luminareader/lumina-server/internal/domain"
	"github.com/luminareader/lumina-server/internal/engine"
	apperr "github.com/luminareader/lumina-server/internal/errors"
)

// excerptRadius is how much context surrounds a match, in bytes, snapped
// to rune boundaries.
const excerptRadius = 60

// Search scans every spine document for the query and returns matches in
// document order. A blank query returns immediately with no results and no
// engine calls. Documents that fail to extract are skipped; the search
// still returns the rest, and only fails outright when every document was
// unreadable.
func (s *Session) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	s.mu.Lock()
	if s.state != StateDisplaying || s.engine == nil {
		s.mu.Unlock()
		return nil, apperr.NoActiveBook("open a book to search")
	}
	eng := s.engine
	token := s.token
	toc := append([]domain.TOCEntry(nil), s.toc...)
	s.mu.Unlock()

	spine := eng.Spine()
	if len(spine) == 0 {
		return nil, nil
	}

	pattern, err := regexp.Compile("(?i)" + regexp.QuoteMeta(query))
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeSearchFailed, "compile query")
	}

	chapters := chapterLabels(spine, toc)

	workers := s.cfg.SearchWorkers
	if workers > len(spine) {
		workers = len(spine)
	}

	// Disjoint per-index slots, so workers need no shared lock.
	results := make([][]domain.SearchResult, len(spine))
	errs := make([]error, len(spine))

	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indexes {
				text, err := eng.SpineText(ctx, idx)
				if err != nil {
					errs[idx] = err
					continue
				}
				results[idx] = findMatches(text, pattern, idx, chapters[idx])
			}
		}()
	}
	for i := range spine {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	var out []domain.SearchResult
	failed := 0
	for i := range spine {
		if errs[i] != nil {
			failed++
			if s.logger != nil {
				s.logger.Warn("spine document skipped during search", "index", i, "error", errs[i])
			}
			continue
		}
		out = append(out, results[i]...)
	}

	if failed == len(spine) {
		return nil, apperr.SearchFailed("no spine document could be searched")
	}
	if !s.tokenValid(token) {
		return nil, apperr.SessionSuperseded("book changed during search")
	}

	if s.logger != nil {
		s.logger.Debug("search finished", "query", query, "matches", len(out), "skipped_documents", failed)
	}
	return out, nil
}

// findMatches collects every match in one document. Offsets are byte
// offsets into the extracted text, the same unit the location index uses.
func findMatches(text string, pattern *regexp.Regexp, spineIndex int, chapter string) []domain.SearchResult {
	var out []domain.SearchResult
	for _, m := range pattern.FindAllStringIndex(text, -1) {
		out = append(out, domain.SearchResult{
			CFI:     engine.PositionCFI(spineIndex, m[0]),
			Excerpt: excerpt(text, m[0], m[1]),
			Chapter: chapter,
		})
	}
	return out
}

// excerpt cuts the text around a match, expanding to rune boundaries so
// multi-byte characters never get split.
func excerpt(text string, start, end int) string {
	from := start - excerptRadius
	if from < 0 {
		from = 0
	}
	for from > 0 && !utf8.RuneStart(text[from]) {
		from--
	}

	to := end + excerptRadius
	if to > len(text) {
		to = len(text)
	}
	for to < len(text) && !utf8.RuneStart(text[to]) {
		to++
	}

	snippet := strings.TrimSpace(text[from:to])
	if from > 0 {
		snippet = "…" + snippet
	}
	if to < len(text) {
		snippet += "…"
	}
	return snippet
}

// chapterLabels maps each spine index to a TOC label by comparing href
// file names, ignoring directories and fragments.
func chapterLabels(spine []engine.SpineItem, toc []domain.TOCEntry) []string {
	labelByFile := make(map[string]string)
	for _, entry := range domain.FlattenTOC(toc) {
		href := entry.HREF
		if i := strings.IndexByte(href, '#'); i >= 0 {
			href = href[:i]
		}
		file := path.Base(href)
		if _, taken := labelByFile[file]; !taken && file != "." && file != "" {
			labelByFile[file] = entry.Label
		}
	}

	labels := make([]string, len(spine))
	for i, item := range spine {
		labels[i] = labelByFile[path.Base(item.HREF)]
	}
	return labels
}
