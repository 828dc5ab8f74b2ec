// Package main provides a tool to seed the library with test books.
//
// It assembles small valid EPUB archives in memory, pushes them through the
// real import pipeline, and scatters reading progress and favorites so the
// smart collections have something to show.
//
// Usage:
//
//	LUMINA_DATA_DIR=~/lumina go run ./cmd/seed
package main

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"time"

	"github.com/luminareader/lumina-server/internal/archive"
	"github.com/luminareader/lumina-server/internal/config"
	"github.com/luminareader/lumina-server/internal/engine/epub"
	"github.com/luminareader/lumina-server/internal/media/covers"
	"github.com/luminareader/lumina-server/internal/notify"
	"github.com/luminareader/lumina-server/internal/search"
	"github.com/luminareader/lumina-server/internal/service"
	"github.com/luminareader/lumina-server/internal/store"
)

type seedBook struct {
	title    string
	author   string
	chapters []string
	progress int
	favorite bool
}

var books = []seedBook{
	{
		title:  "The Clockwork Orchard",
		author: "Maren Holt",
		chapters: []string{
			"The orchard ticked through winter, every branch wound tight.",
			"By spring the gears had rusted and the apples rang like bells.",
			"Nobody remembered who had built the trees, only who pruned them.",
		},
		progress: 42,
		favorite: true,
	},
	{
		title:  "Letters from the Shallows",
		author: "Tomas Eira",
		chapters: []string{
			"The first letter arrived damp, as all of them would.",
			"She answered in pencil so the tide could edit her.",
		},
		progress: 100,
	},
	{
		title:  "A Field Guide to Absent Birds",
		author: "Priya Nandakumar",
		chapters: []string{
			"This guide catalogs only the birds you will not see.",
			"Listen for the silence shaped like a wingbeat.",
			"The index is deliberately incomplete.",
		},
	},
	{
		title:  "Night Trains of the Interior",
		author: "Maren Holt",
		chapters: []string{
			"Every timetable in this country is a work of optimistic fiction.",
			"The sleeper car smelled of oranges and old arguments.",
		},
		progress: 7,
	},
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	fmt.Printf("Seeding library at: %s\n", cfg.Data.BaseDir)

	st, err := store.New(cfg.DBDir(), nil, store.NewNoopEmitter())
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	logger := slog.New(slog.DiscardHandler)

	index, err := search.NewLibraryIndex(search.Options{
		DataPath: cfg.SearchDir(),
		Logger:   logger,
	})
	if err != nil {
		log.Fatalf("Failed to open search index: %v", err)
	}
	defer index.Close()
	st.SetSearchIndexer(index)

	provider, err := archive.NewProvider(cfg, st, logger)
	if err != nil {
		log.Fatalf("Failed to create archive provider: %v", err)
	}
	coverStorage, err := covers.NewStorage(cfg.CoversDir())
	if err != nil {
		log.Fatalf("Failed to create cover storage: %v", err)
	}

	toasts := notify.NewCenter(notify.DefaultTTL, logger, nil)
	defer toasts.Close()

	library := service.NewLibraryService(
		st,
		provider,
		covers.NewProcessor(coverStorage, logger),
		epub.NewFactory(logger),
		index,
		toasts,
		logger,
	)
	collections := service.NewCollectionService(st, logger)

	ctx := context.Background()
	if err := collections.SeedDefaults(ctx); err != nil {
		log.Fatalf("Failed to seed collections: %v", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	imported := 0
	for _, sb := range books {
		data, err := buildEPUB(sb)
		if err != nil {
			log.Fatalf("Failed to assemble %q: %v", sb.title, err)
		}

		book, err := library.ImportBook(ctx, sb.title+".epub", data)
		if err != nil {
			fmt.Printf("  skip %q: %v\n", sb.title, err)
			continue
		}
		imported++

		if sb.progress > 0 {
			cfi := fmt.Sprintf("epubcfi(/6/%d!/4/2/1:0)", 2+rng.Intn(4)*2)
			if _, err := library.UpdateProgress(ctx, book.ID, cfi, sb.progress); err != nil {
				log.Fatalf("Failed to set progress on %q: %v", sb.title, err)
			}
		}
		if sb.favorite {
			if _, err := library.SetFavorite(ctx, book.ID, true); err != nil {
				log.Fatalf("Failed to favorite %q: %v", sb.title, err)
			}
		}
		fmt.Printf("  imported %q (%s)\n", book.Title, book.ID)
	}

	fmt.Printf("Done: %d books imported\n", imported)
}

// buildEPUB assembles a minimal valid EPUB archive in memory.
func buildEPUB(sb seedBook) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	add := func(name, content string) error {
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		_, err = w.Write([]byte(content))
		return err
	}

	if err := add("mimetype", "application/epub+zip"); err != nil {
		return nil, err
	}
	if err := add("META-INF/container.xml", `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`); err != nil {
		return nil, err
	}

	manifest := ""
	spine := ""
	navPoints := ""
	for i := range sb.chapters {
		manifest += fmt.Sprintf(`<item id="ch%d" href="ch%d.xhtml" media-type="application/xhtml+xml"/>`, i+1, i+1)
		spine += fmt.Sprintf(`<itemref idref="ch%d"/>`, i+1)
		navPoints += fmt.Sprintf(`<navPoint id="nav-%d" playOrder="%d">
      <navLabel><text>Chapter %d</text></navLabel>
      <content src="ch%d.xhtml"/>
    </navPoint>`, i+1, i+1, i+1, i+1)
	}
	manifest += `<item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>`

	opf := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" unique-identifier="bookid" version="2.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>%s</dc:title>
    <dc:creator>%s</dc:creator>
    <dc:language>en</dc:language>
    <dc:identifier id="bookid">seed-%s</dc:identifier>
  </metadata>
  <manifest>%s</manifest>
  <spine toc="ncx">%s</spine>
</package>`, sb.title, sb.author, sb.title, manifest, spine)
	if err := add("OEBPS/content.opf", opf); err != nil {
		return nil, err
	}

	for i, text := range sb.chapters {
		page := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>Chapter %d</title></head>
<body><p>%s</p></body></html>`, i+1, text)
		if err := add(fmt.Sprintf("OEBPS/ch%d.xhtml", i+1), page); err != nil {
			return nil, err
		}
	}

	ncx := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>%s</navMap>
</ncx>`, navPoints)
	if err := add("OEBPS/toc.ncx", ncx); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
