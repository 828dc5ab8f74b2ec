package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for book documents.
//
// The mapping is designed with these priorities:
//  1. Fast full-text search on titles and authors with English stemming
//  2. Exact keyword matching for collection filters
//  3. Numeric range queries over reading progress
//  4. Term vectors on display fields for highlighting
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()

	// Use English analyzer as default for text fields
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// --- Text fields (full-text searchable) ---

	// Title - primary search target
	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = en.AnalyzerName
	titleFieldMapping.Store = true
	titleFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("title", titleFieldMapping)

	// Author - searchable alongside the title
	authorFieldMapping := bleve.NewTextFieldMapping()
	authorFieldMapping.Analyzer = en.AnalyzerName
	authorFieldMapping.Store = true
	authorFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("author", authorFieldMapping)

	// --- Keyword fields (exact match) ---

	// ID - stored but not analyzed
	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	// Collection IDs are opaque tokens; keyword analysis keeps them intact
	collectionsFieldMapping := bleve.NewTextFieldMapping()
	collectionsFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("collection_ids", collectionsFieldMapping)

	// --- Boolean and numeric fields (filters, sorting) ---

	favoriteFieldMapping := bleve.NewBooleanFieldMapping()
	favoriteFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("favorite", favoriteFieldMapping)

	// Progress - for range filtering and sorting
	progressFieldMapping := bleve.NewNumericFieldMapping()
	progressFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("progress", progressFieldMapping)

	// Timestamps - for sorting by recency
	addedAtFieldMapping := bleve.NewNumericFieldMapping()
	addedAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("added_at", addedAtFieldMapping)

	lastOpenedFieldMapping := bleve.NewNumericFieldMapping()
	lastOpenedFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("last_opened", lastOpenedFieldMapping)

	// Register the document mapping
	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
