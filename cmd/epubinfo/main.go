// Package main provides a tool to inspect an EPUB archive the way the
// server will see it: metadata, spine, table of contents, and location
// count, all through the same engine adapter the reader session uses.
//
// Usage:
//
//	go run ./cmd/epubinfo path/to/book.epub
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/luminareader/lumina-server/internal/domain"
	"github.com/luminareader/lumina-server/internal/engine/epub"
)

const charsPerLocation = 1024

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <book.epub>\n", os.Args[0])
		os.Exit(2)
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		log.Fatalf("Failed to read archive: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	factory := epub.NewFactory(slog.New(slog.DiscardHandler))
	e, err := factory.Open(ctx, data)
	if err != nil {
		log.Fatalf("Failed to open archive: %v", err)
	}
	defer e.Destroy()

	if err := e.WaitReady(ctx); err != nil {
		log.Fatalf("Archive failed to parse: %v", err)
	}

	meta := e.Metadata()
	fmt.Printf("Title:      %s\n", meta.Title)
	fmt.Printf("Author:     %s\n", meta.Author)
	if meta.Language != "" {
		fmt.Printf("Language:   %s\n", meta.Language)
	}
	if meta.Identifier != "" {
		fmt.Printf("Identifier: %s\n", meta.Identifier)
	}
	if meta.Publisher != "" {
		fmt.Printf("Publisher:  %s\n", meta.Publisher)
	}
	if _, mediaType, ok := e.CoverImage(); ok {
		fmt.Printf("Cover:      %s\n", mediaType)
	}

	spine := e.Spine()
	fmt.Printf("\nSpine (%d documents):\n", len(spine))
	for _, item := range spine {
		fmt.Printf("  %3d  %s\n", item.Index, item.HREF)
	}

	toc := e.TOC()
	fmt.Printf("\nTable of contents (%d entries):\n", len(toc))
	printTOC(toc, 1)

	count, err := e.Locations().Generate(ctx, charsPerLocation)
	if err != nil {
		log.Fatalf("Failed to generate locations: %v", err)
	}
	fmt.Printf("\nLocations:  %d (%d chars each)\n", count, charsPerLocation)
}

func printTOC(entries []domain.TOCEntry, depth int) {
	for _, entry := range entries {
		fmt.Printf("  %s%s  (%s)\n", strings.Repeat("  ", depth-1), entry.Label, entry.HREF)
		printTOC(entry.Subitems, depth+1)
	}
}
