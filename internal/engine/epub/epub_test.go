package epub

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luminareader/lumina-server/internal/engine"
	apperr "github.com/luminareader/lumina-server/internal/errors"
)

// epubFixture describes the test book buildTestEPUB assembles.
type epubFixture struct {
	title    string
	author   string
	language string
	chapters []string // body text, one per spine document
	withNCX  bool
	cover    []byte
}

func defaultFixture() epubFixture {
	return epubFixture{
		title:    "The Test Book",
		author:   "Jane Tester",
		language: "en",
		chapters: []string{
			"alpha bravo charlie delta echo",
			"foxtrot golf hotel india",
		},
		withNCX: true,
		cover:   []byte("png-bytes-stand-in"),
	}
}

// buildTestEPUB assembles a minimal valid EPUB in memory.
func buildTestEPUB(t *testing.T, fx epubFixture) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	add := func(name, content string) {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}

	add("mimetype", "application/epub+zip")
	add("META-INF/container.xml", `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`)

	manifest := ""
	spine := ""
	for i := range fx.chapters {
		manifest += fmt.Sprintf(`<item id="ch%d" href="ch%d.xhtml" media-type="application/xhtml+xml"/>`, i+1, i+1)
		spine += fmt.Sprintf(`<itemref idref="ch%d"/>`, i+1)
	}
	if fx.withNCX {
		manifest += `<item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>`
	}
	if fx.cover != nil {
		manifest += `<item id="cover-image" href="cover.png" media-type="image/png"/>`
	}

	add("OEBPS/content.opf", fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" unique-identifier="bookid" version="2.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>%s</dc:title>
    <dc:creator>%s</dc:creator>
    <dc:language>%s</dc:language>
    <dc:identifier id="bookid">test-book-1</dc:identifier>
  </metadata>
  <manifest>%s</manifest>
  <spine toc="ncx">%s</spine>
</package>`, fx.title, fx.author, fx.language, manifest, spine))

	for i, text := range fx.chapters {
		add(fmt.Sprintf("OEBPS/ch%d.xhtml", i+1), fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>Chapter %d</title></head>
<body><p>%s</p></body></html>`, i+1, text))
	}

	if fx.withNCX {
		add("OEBPS/toc.ncx", `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="nav-1" playOrder="1">
      <navLabel><text>Chapter One</text></navLabel>
      <content src="ch1.xhtml"/>
      <navPoint id="nav-1-1" playOrder="2">
        <navLabel><text>Part A</text></navLabel>
        <content src="ch1.xhtml#a"/>
      </navPoint>
    </navPoint>
    <navPoint id="nav-2" playOrder="3">
      <navLabel><text>Chapter Two</text></navLabel>
      <content src="ch2.xhtml"/>
    </navPoint>
  </navMap>
</ncx>`)
	}

	if fx.cover != nil {
		w, err := zw.Create("OEBPS/cover.png")
		require.NoError(t, err)
		_, err = w.Write(fx.cover)
		require.NoError(t, err)
	}

	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// openReady opens an engine and waits for the parse to finish.
func openReady(t *testing.T, data []byte) engine.Engine {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	e, err := NewFactory(nil).Open(ctx, data)
	require.NoError(t, err)
	t.Cleanup(func() { e.Destroy() })

	require.NoError(t, e.WaitReady(ctx))
	return e
}

func TestOpen_ParsesMetadata(t *testing.T) {
	e := openReady(t, buildTestEPUB(t, defaultFixture()))

	meta := e.Metadata()
	assert.Equal(t, "The Test Book", meta.Title)
	assert.Equal(t, "Jane Tester", meta.Author)
	assert.Equal(t, "en", meta.Language)
	assert.Equal(t, "test-book-1", meta.Identifier)

	spine := e.Spine()
	require.Len(t, spine, 2)
	assert.Equal(t, 0, spine[0].Index)
	assert.Equal(t, "ch1.xhtml", spine[0].HREF)
}

func TestOpen_ParsesTOC(t *testing.T) {
	e := openReady(t, buildTestEPUB(t, defaultFixture()))

	toc := e.TOC()
	require.Len(t, toc, 2)
	assert.Equal(t, "Chapter One", toc[0].Label)
	assert.Equal(t, "ch1.xhtml", toc[0].HREF)
	require.Len(t, toc[0].Subitems, 1)
	assert.Equal(t, "Part A", toc[0].Subitems[0].Label)
	assert.Equal(t, "Chapter Two", toc[1].Label)
	assert.Empty(t, toc[1].Subitems)
}

func TestOpen_TOCFallsBackToSpine(t *testing.T) {
	fx := defaultFixture()
	fx.withNCX = false
	e := openReady(t, buildTestEPUB(t, fx))

	toc := e.TOC()
	require.Len(t, toc, 2)
	assert.Equal(t, "Section 1", toc[0].Label)
	assert.Equal(t, "Section 2", toc[1].Label)
}

func TestOpen_InvalidArchive(t *testing.T) {
	ctx := context.Background()

	e, err := NewFactory(nil).Open(ctx, []byte("PK\x03\x04 but not actually a zip"))
	require.NoError(t, err)
	defer e.Destroy()

	// Mid-parse invalidity surfaces as an invalid archive, not a timeout
	err = e.WaitReady(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInvalidArchive)
}

func TestOpen_EmptyData(t *testing.T) {
	_, err := NewFactory(nil).Open(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInvalidArchive)
}

func TestSpineText(t *testing.T) {
	e := openReady(t, buildTestEPUB(t, defaultFixture()))
	ctx := context.Background()

	text, err := e.SpineText(ctx, 0)
	require.NoError(t, err)
	assert.Contains(t, text, "alpha bravo charlie delta echo")

	// Second call hits the cache and must agree
	again, err := e.SpineText(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, text, again)

	_, err = e.SpineText(ctx, 99)
	assert.ErrorIs(t, err, apperr.ErrEngineOperation)
}

func TestCoverImage(t *testing.T) {
	e := openReady(t, buildTestEPUB(t, defaultFixture()))

	data, mediaType, ok := e.CoverImage()
	require.True(t, ok)
	assert.Equal(t, []byte("png-bytes-stand-in"), data)
	assert.Equal(t, "image/png", mediaType)
}

func TestCoverImage_None(t *testing.T) {
	fx := defaultFixture()
	fx.cover = nil
	e := openReady(t, buildTestEPUB(t, fx))

	_, _, ok := e.CoverImage()
	assert.False(t, ok)
}

func TestLocations_Generate(t *testing.T) {
	e := openReady(t, buildTestEPUB(t, defaultFixture()))
	ctx := context.Background()

	// ch1 is 30 chars -> offsets 0,10,20; ch2 is 24 chars -> 0,10,20
	count, err := e.Locations().Generate(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 6, count)

	first, err := e.Locations().CFIFromPercentage(0)
	require.NoError(t, err)
	assert.Equal(t, engine.PositionCFI(0, 0), first)

	last, err := e.Locations().CFIFromPercentage(1)
	require.NoError(t, err)
	assert.Equal(t, engine.PositionCFI(1, 20), last)

	pct, err := e.Locations().PercentageFromCFI(last)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, pct, 0.001)

	pct, err = e.Locations().PercentageFromCFI(first)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, pct, 0.001)
}

func TestLocations_NotGenerated(t *testing.T) {
	e := openReady(t, buildTestEPUB(t, defaultFixture()))

	_, err := e.Locations().CFIFromPercentage(0.5)
	assert.ErrorIs(t, err, apperr.ErrEngineOperation)

	_, err = e.Locations().PercentageFromCFI(engine.PositionCFI(0, 0))
	assert.ErrorIs(t, err, apperr.ErrEngineOperation)
}

func renderReady(t *testing.T) (engine.Engine, engine.Rendition) {
	t.Helper()

	e := openReady(t, buildTestEPUB(t, defaultFixture()))
	_, err := e.Locations().Generate(context.Background(), 10)
	require.NoError(t, err)

	r, err := e.RenderTo(engine.DefaultRenderConfig(800, 600, false))
	require.NoError(t, err)
	return e, r
}

func TestRendition_DisplayAndNavigate(t *testing.T) {
	_, r := renderReady(t)
	ctx := context.Background()

	var relocations []engine.Location
	sub := r.OnRelocated(func(l engine.Location) {
		relocations = append(relocations, l)
	})
	defer sub.Cancel()

	require.NoError(t, r.Display(ctx, ""))

	location, err := r.CurrentLocation()
	require.NoError(t, err)
	assert.Equal(t, 1, location.Page)
	assert.Equal(t, 6, location.TotalPages)
	assert.Equal(t, 0.0, location.Percentage)

	require.NoError(t, r.Next(ctx))
	location, err = r.CurrentLocation()
	require.NoError(t, err)
	assert.Equal(t, 2, location.Page)

	require.NoError(t, r.Prev(ctx))
	location, err = r.CurrentLocation()
	require.NoError(t, err)
	assert.Equal(t, 1, location.Page)

	// display + next + prev
	assert.Len(t, relocations, 3)
}

func TestRendition_PrevAtStartStays(t *testing.T) {
	_, r := renderReady(t)
	ctx := context.Background()

	fired := 0
	sub := r.OnRelocated(func(engine.Location) { fired++ })
	defer sub.Cancel()

	require.NoError(t, r.Display(ctx, ""))
	require.NoError(t, r.Prev(ctx))

	location, err := r.CurrentLocation()
	require.NoError(t, err)
	assert.Equal(t, 1, location.Page)
	// no relocation fired for the clamped prev
	assert.Equal(t, 1, fired)
}

func TestRendition_DisplayAtCFI(t *testing.T) {
	_, r := renderReady(t)
	ctx := context.Background()

	require.NoError(t, r.Display(ctx, engine.PositionCFI(1, 10)))

	location, err := r.CurrentLocation()
	require.NoError(t, err)
	assert.Equal(t, 1, location.SpineIndex)
	assert.Equal(t, engine.PositionCFI(1, 10), location.CFI)
}

func TestRendition_TwoPageStep(t *testing.T) {
	e := openReady(t, buildTestEPUB(t, defaultFixture()))
	_, err := e.Locations().Generate(context.Background(), 10)
	require.NoError(t, err)

	r, err := e.RenderTo(engine.DefaultRenderConfig(800, 600, true))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, r.Display(ctx, ""))
	require.NoError(t, r.Next(ctx))

	location, err := r.CurrentLocation()
	require.NoError(t, err)
	assert.Equal(t, 3, location.Page)
}

func TestRendition_CurrentLocationBeforeDisplay(t *testing.T) {
	_, r := renderReady(t)

	_, err := r.CurrentLocation()
	assert.ErrorIs(t, err, apperr.ErrInvalidPosition)
}

func TestRendition_SubscriptionCancel(t *testing.T) {
	_, r := renderReady(t)
	ctx := context.Background()

	fired := 0
	sub := r.OnRelocated(func(engine.Location) { fired++ })

	require.NoError(t, r.Display(ctx, ""))
	sub.Cancel()
	sub.Cancel() // idempotent
	require.NoError(t, r.Next(ctx))

	assert.Equal(t, 1, fired)
}

func TestRenderTo_OnlyOnce(t *testing.T) {
	e, _ := renderReady(t)

	_, err := e.RenderTo(engine.DefaultRenderConfig(800, 600, false))
	assert.ErrorIs(t, err, apperr.ErrEngineOperation)
}

func TestThemesAndAnnotations(t *testing.T) {
	_, r := renderReady(t)

	themes := r.Themes()
	require.NoError(t, themes.Select("dark"))
	require.NoError(t, themes.Font(`"Literata", Georgia, serif`))
	require.NoError(t, themes.FontSize(120))
	require.NoError(t, themes.Override("line-height", "1.6"))

	annotations := r.Annotations()
	require.NoError(t, annotations.Add("highlight", engine.PositionCFI(0, 5)))
	require.NoError(t, annotations.Remove(engine.PositionCFI(0, 5)))
	require.NoError(t, annotations.Clear())

	err := annotations.Add("highlight", "garbage")
	assert.ErrorIs(t, err, apperr.ErrInvalidPosition)
}

func TestDestroy_Idempotent(t *testing.T) {
	e, r := renderReady(t)
	ctx := context.Background()

	require.NoError(t, r.Display(ctx, ""))
	require.NoError(t, e.Destroy())
	require.NoError(t, e.Destroy())

	// Everything downstream refuses to run after destroy
	err := r.Next(ctx)
	assert.ErrorIs(t, err, apperr.ErrEngineOperation)

	_, err = e.SpineText(ctx, 0)
	assert.ErrorIs(t, err, apperr.ErrEngineOperation)
}

func TestDestroy_ClearsHandlers(t *testing.T) {
	e := openReady(t, buildTestEPUB(t, defaultFixture()))
	_, err := e.Locations().Generate(context.Background(), 10)
	require.NoError(t, err)

	r, err := e.RenderTo(engine.DefaultRenderConfig(800, 600, false))
	require.NoError(t, err)

	r.OnRelocated(func(engine.Location) {})
	r.OnRelocated(func(engine.Location) {})

	inner := r.(*rendition)
	assert.Equal(t, 2, inner.handlerCount())

	require.NoError(t, e.Destroy())
	assert.Equal(t, 0, inner.handlerCount())
}

func TestDestroy_AfterWaitReady(t *testing.T) {
	ctx := context.Background()

	e, err := NewFactory(nil).Open(ctx, buildTestEPUB(t, defaultFixture()))
	require.NoError(t, err)

	require.NoError(t, e.Destroy())

	err = e.WaitReady(ctx)
	assert.ErrorIs(t, err, apperr.ErrEngineOperation)
}
