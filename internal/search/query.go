package search

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Params configures a library search.
type Params struct {
	Query string // User's search text; empty matches everything

	// Filters
	FavoritesOnly bool
	CollectionID  string // Restrict to one collection's members
	MinProgress   int    // Whole percents; zero means unbounded
	MaxProgress   int

	// Pagination
	Limit  int
	Offset int

	// Sorting
	SortBy    string // "relevance", "title", "author", "recent", "progress"
	SortOrder string // "asc", "desc"

	Highlight bool // Include match highlighting
}

// DefaultParams returns sensible defaults.
func DefaultParams() Params {
	return Params{
		Limit:     50,
		Offset:    0,
		SortBy:    "relevance",
		SortOrder: "desc",
		Highlight: true,
	}
}

// Result is one page of search hits.
type Result struct {
	Query  string `json:"query"`
	Total  uint64 `json:"total"`
	TookMs int64  `json:"took_ms"`
	Hits   []Hit  `json:"hits"`
}

// Hit is a single matching book.
type Hit struct {
	ID         string            `json:"id"`
	Score      float64           `json:"score"`
	Title      string            `json:"title"`
	Author     string            `json:"author,omitempty"`
	Progress   int               `json:"progress"`
	Favorite   bool              `json:"favorite"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// Search executes a search query.
func (ix *LibraryIndex) Search(ctx context.Context, params Params) (*Result, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	searchQuery := buildBookQuery(params)

	searchRequest := bleve.NewSearchRequestOptions(searchQuery, params.Limit, params.Offset, false)

	addSorting(searchRequest, params)

	if params.Highlight {
		searchRequest.Highlight = bleve.NewHighlight()
		searchRequest.Highlight.AddField("title")
		searchRequest.Highlight.AddField("author")
	}

	// Request stored fields
	searchRequest.Fields = []string{"id", "title", "author", "progress", "favorite"}

	searchResult, err := ix.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &Result{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		bookHit := Hit{
			ID:    hit.ID,
			Score: hit.Score,
		}

		// Extract stored fields
		if t, ok := hit.Fields["title"].(string); ok {
			bookHit.Title = t
		}
		if a, ok := hit.Fields["author"].(string); ok {
			bookHit.Author = a
		}
		if p, ok := hit.Fields["progress"].(float64); ok {
			bookHit.Progress = int(p)
		}
		if f, ok := hit.Fields["favorite"].(bool); ok {
			bookHit.Favorite = f
		}

		// Extract highlights
		if len(hit.Fragments) > 0 {
			bookHit.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					bookHit.Highlights[field] = fragments[0]
				}
			}
		}

		result.Hits = append(result.Hits, bookHit)
	}

	return result, nil
}

// MatchingIDs runs the text query alone and returns book IDs in relevance
// order. The library listing uses this to narrow a store read, so it
// returns every match rather than a page.
func (ix *LibraryIndex) MatchingIDs(ctx context.Context, text string) ([]string, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	count, err := ix.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	if count == 0 {
		return nil, nil
	}

	searchQuery := buildBookQuery(Params{Query: text})
	searchRequest := bleve.NewSearchRequestOptions(searchQuery, int(count), 0, false)
	searchRequest.SortBy([]string{"-_score"})

	searchResult, err := ix.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	ids := make([]string, 0, len(searchResult.Hits))
	for _, hit := range searchResult.Hits {
		ids = append(ids, hit.ID)
	}

	return ids, nil
}

// buildBookQuery constructs the Bleve query from params.
func buildBookQuery(params Params) query.Query {
	var queries []query.Query

	// Main text query. The title is the primary target; author matches
	// rank below exact title matches but above fuzzy ones.
	if params.Query != "" {
		textQueries := []query.Query{}

		titleMatch := bleve.NewMatchQuery(params.Query)
		titleMatch.SetField("title")
		titleMatch.SetBoost(3.0)
		textQueries = append(textQueries, titleMatch)

		authorMatch := bleve.NewMatchQuery(params.Query)
		authorMatch.SetField("author")
		authorMatch.SetBoost(2.0)
		textQueries = append(textQueries, authorMatch)

		// Fuzzy matching for typo tolerance on the title
		fuzzyQuery := bleve.NewFuzzyQuery(params.Query)
		fuzzyQuery.SetFuzziness(1)
		fuzzyQuery.SetField("title")
		fuzzyQuery.SetBoost(0.8)
		textQueries = append(textQueries, fuzzyQuery)

		// Prefix query for find-as-you-type (minimum 2 chars)
		if len(params.Query) >= 2 {
			prefixQuery := bleve.NewPrefixQuery(strings.ToLower(params.Query))
			prefixQuery.SetField("title")
			prefixQuery.SetBoost(0.5)
			textQueries = append(textQueries, prefixQuery)
		}

		// Combine with OR (match any field)
		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	// Favorites filter
	if params.FavoritesOnly {
		favQuery := bleve.NewBoolFieldQuery(true)
		favQuery.SetField("favorite")
		queries = append(queries, favQuery)
	}

	// Collection membership filter (exact match)
	if params.CollectionID != "" {
		colQuery := bleve.NewTermQuery(params.CollectionID)
		colQuery.SetField("collection_ids")
		queries = append(queries, colQuery)
	}

	// Progress range filter. Inclusive on both ends so MaxProgress 100
	// still matches finished books.
	if params.MinProgress > 0 || params.MaxProgress > 0 {
		min := float64(params.MinProgress)
		max := float64(params.MaxProgress)
		if params.MaxProgress == 0 {
			max = math.MaxFloat64
		}
		inclusive := true
		rangeQuery := bleve.NewNumericRangeInclusiveQuery(&min, &max, &inclusive, &inclusive)
		rangeQuery.SetField("progress")
		queries = append(queries, rangeQuery)
	}

	// Combine all queries with AND
	if len(queries) == 0 {
		return bleve.NewMatchAllQuery()
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewConjunctionQuery(queries...)
}

// addSorting configures sort order.
func addSorting(req *bleve.SearchRequest, params Params) {
	switch params.SortBy {
	case "title":
		if params.SortOrder == "desc" {
			req.SortBy([]string{"-title"})
		} else {
			req.SortBy([]string{"title"})
		}
	case "author":
		if params.SortOrder == "desc" {
			req.SortBy([]string{"-author", "-title"})
		} else {
			req.SortBy([]string{"author", "title"})
		}
	case "recent":
		if params.SortOrder == "asc" {
			req.SortBy([]string{"added_at"})
		} else {
			req.SortBy([]string{"-added_at"})
		}
	case "progress":
		if params.SortOrder == "asc" {
			req.SortBy([]string{"progress"})
		} else {
			req.SortBy([]string{"-progress"})
		}
	default:
		// Relevance (score) is default - Bleve handles this
		req.SortBy([]string{"-_score"})
	}
}
