// Package covers normalizes and stores book cover images.
// Covers arrive as whatever the EPUB embeds (JPEG, PNG, GIF, WebP); the
// processor re-encodes them as bounded JPEGs and computes a BlurHash
// placeholder so the UI can paint something before the file loads.
package covers

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"log/slog"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	// maxCoverWidth bounds stored covers. Library grids render well below
	// this, and some EPUBs embed print-resolution art.
	maxCoverWidth = 600

	// maxCoverPixels rejects absurd dimensions before decoding allocates
	// for them.
	maxCoverPixels = 50 << 20

	jpegQuality = 85
)

// Cover describes a processed and stored cover.
type Cover struct {
	Path     string // Filesystem path of the stored JPEG
	BlurHash string // Placeholder hash; empty if computation failed
}

// Processor converts embedded cover data into stored display covers.
type Processor struct {
	storage *Storage
	logger  *slog.Logger
}

// NewProcessor creates a new Processor instance.
func NewProcessor(storage *Storage, logger *slog.Logger) *Processor {
	return &Processor{
		storage: storage,
		logger:  logger,
	}
}

// Process decodes cover data, scales it down if oversized, stores it as a
// JPEG, and computes its BlurHash. mediaType is the archive's declared
// type; decoding trusts the actual bytes.
func (p *Processor) Process(bookID string, data []byte, mediaType string) (Cover, error) {
	if len(data) == 0 {
		return Cover{}, fmt.Errorf("image data cannot be empty")
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Cover{}, fmt.Errorf("decode cover config: %w", err)
	}
	if cfg.Width*cfg.Height > maxCoverPixels {
		return Cover{}, fmt.Errorf("cover dimensions %dx%d exceed limit", cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Cover{}, fmt.Errorf("decode cover: %w", err)
	}

	img = scaleToWidth(img, maxCoverWidth)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return Cover{}, fmt.Errorf("encode cover: %w", err)
	}

	if err := p.storage.Save(bookID, buf.Bytes()); err != nil {
		return Cover{}, fmt.Errorf("save cover: %w", err)
	}

	cover := Cover{Path: p.storage.Path(bookID)}

	// The placeholder is best-effort; the cover itself is already stored.
	hash, err := ComputeBlurHash(img)
	if err != nil {
		if p.logger != nil {
			p.logger.Warn("failed to compute cover blurhash",
				"book_id", bookID,
				"error", err,
			)
		}
	} else {
		cover.BlurHash = hash
	}

	if p.logger != nil {
		p.logger.Debug("processed cover",
			"book_id", bookID,
			"declared_type", mediaType,
			"decoded_format", format,
			"stored_bytes", buf.Len(),
		)
	}

	return cover, nil
}

// Remove deletes a book's stored cover.
func (p *Processor) Remove(bookID string) error {
	return p.storage.Delete(bookID)
}

// scaleToWidth downscales img to the given width, preserving aspect ratio.
// Images at or below the limit pass through untouched.
func scaleToWidth(img image.Image, width int) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() <= width {
		return img
	}

	height := (bounds.Dy() * width) / bounds.Dx()
	if height < 1 {
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
