package covers

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStorage(t *testing.T) *Storage {
	t.Helper()

	storage, err := NewStorage(t.TempDir())
	require.NoError(t, err)
	return storage
}

// makeTestImage builds a two-tone image so the BlurHash has something to
// encode besides a flat color.
func makeTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x < width/2 {
				img.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
			} else {
				img.Set(x, y, color.RGBA{R: 30, G: 30, B: 200, A: 255})
			}
		}
	}
	return img
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNewStorage(t *testing.T) {
	t.Run("creates the covers directory", func(t *testing.T) {
		base := t.TempDir() + "/nested/covers"

		storage, err := NewStorage(base)
		require.NoError(t, err)
		require.NotNil(t, storage)

		info, err := os.Stat(base)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("returns error for empty path", func(t *testing.T) {
		storage, err := NewStorage("")
		assert.Error(t, err)
		assert.Nil(t, storage)
	})
}

func TestStorage_SaveAndGet(t *testing.T) {
	t.Run("round trips cover data", func(t *testing.T) {
		storage := setupTestStorage(t)
		data := []byte("jpeg bytes")

		require.NoError(t, storage.Save("book-123", data))

		got, err := storage.Get("book-123")
		require.NoError(t, err)
		assert.Equal(t, data, got)
	})

	t.Run("returns error for empty book ID", func(t *testing.T) {
		storage := setupTestStorage(t)

		err := storage.Save("", []byte("data"))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "book ID cannot be empty")
	})

	t.Run("returns error for empty data", func(t *testing.T) {
		storage := setupTestStorage(t)

		err := storage.Save("book-123", nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "image data cannot be empty")
	})

	t.Run("overwrites an existing cover", func(t *testing.T) {
		storage := setupTestStorage(t)

		require.NoError(t, storage.Save("book-123", []byte("old")))
		require.NoError(t, storage.Save("book-123", []byte("new")))

		got, err := storage.Get("book-123")
		require.NoError(t, err)
		assert.Equal(t, []byte("new"), got)
	})

	t.Run("returns error for a missing cover", func(t *testing.T) {
		storage := setupTestStorage(t)

		got, err := storage.Get("missing")
		assert.Error(t, err)
		assert.Nil(t, got)
	})
}

func TestStorage_Exists(t *testing.T) {
	storage := setupTestStorage(t)

	assert.False(t, storage.Exists("book-123"))
	assert.False(t, storage.Exists(""))

	require.NoError(t, storage.Save("book-123", []byte("data")))
	assert.True(t, storage.Exists("book-123"))
}

func TestStorage_Delete(t *testing.T) {
	t.Run("removes a stored cover", func(t *testing.T) {
		storage := setupTestStorage(t)

		require.NoError(t, storage.Save("book-123", []byte("data")))
		require.NoError(t, storage.Delete("book-123"))
		assert.False(t, storage.Exists("book-123"))
	})

	t.Run("deleting a missing cover is not an error", func(t *testing.T) {
		storage := setupTestStorage(t)

		assert.NoError(t, storage.Delete("never-saved"))
	})
}

func TestStorage_Hash(t *testing.T) {
	storage := setupTestStorage(t)

	require.NoError(t, storage.Save("book-123", []byte("data")))

	hash1, err := storage.Hash("book-123")
	require.NoError(t, err)
	assert.Len(t, hash1, 64) // hex-encoded SHA256

	hash2, err := storage.Hash("book-123")
	require.NoError(t, err)
	assert.Equal(t, hash1, hash2)

	_, err = storage.Hash("missing")
	assert.Error(t, err)
}

func TestProcessor_Process(t *testing.T) {
	t.Run("scales oversized covers and stores JPEG", func(t *testing.T) {
		storage := setupTestStorage(t)
		processor := NewProcessor(storage, nil)

		data := encodeJPEG(t, makeTestImage(1200, 1800))

		cover, err := processor.Process("book-1", data, "image/jpeg")
		require.NoError(t, err)
		assert.Equal(t, storage.Path("book-1"), cover.Path)
		assert.NotEmpty(t, cover.BlurHash)

		stored, err := storage.Get("book-1")
		require.NoError(t, err)

		img, format, err := image.Decode(bytes.NewReader(stored))
		require.NoError(t, err)
		assert.Equal(t, "jpeg", format)
		assert.Equal(t, maxCoverWidth, img.Bounds().Dx())
		assert.Equal(t, 900, img.Bounds().Dy())
	})

	t.Run("keeps small covers at their native size", func(t *testing.T) {
		storage := setupTestStorage(t)
		processor := NewProcessor(storage, nil)

		data := encodePNG(t, makeTestImage(300, 400))

		cover, err := processor.Process("book-2", data, "image/png")
		require.NoError(t, err)
		assert.NotEmpty(t, cover.BlurHash)

		stored, err := storage.Get("book-2")
		require.NoError(t, err)

		img, format, err := image.Decode(bytes.NewReader(stored))
		require.NoError(t, err)
		assert.Equal(t, "jpeg", format)
		assert.Equal(t, 300, img.Bounds().Dx())
		assert.Equal(t, 400, img.Bounds().Dy())
	})

	t.Run("rejects undecodable data", func(t *testing.T) {
		storage := setupTestStorage(t)
		processor := NewProcessor(storage, nil)

		_, err := processor.Process("book-3", []byte("not an image"), "image/jpeg")
		assert.Error(t, err)
		assert.False(t, storage.Exists("book-3"))
	})

	t.Run("rejects empty data", func(t *testing.T) {
		storage := setupTestStorage(t)
		processor := NewProcessor(storage, nil)

		_, err := processor.Process("book-4", nil, "image/jpeg")
		assert.Error(t, err)
	})
}

func TestProcessor_Remove(t *testing.T) {
	storage := setupTestStorage(t)
	processor := NewProcessor(storage, nil)

	data := encodeJPEG(t, makeTestImage(100, 150))
	_, err := processor.Process("book-1", data, "image/jpeg")
	require.NoError(t, err)
	require.True(t, storage.Exists("book-1"))

	require.NoError(t, processor.Remove("book-1"))
	assert.False(t, storage.Exists("book-1"))
}

func TestComputeBlurHash(t *testing.T) {
	img := makeTestImage(500, 300)

	hash1, err := ComputeBlurHash(img)
	require.NoError(t, err)
	assert.NotEmpty(t, hash1)

	// Deterministic for the same pixels
	hash2, err := ComputeBlurHash(img)
	require.NoError(t, err)
	assert.Equal(t, hash1, hash2)

	// Already-small images skip the resize path
	small, err := ComputeBlurHash(makeTestImage(32, 32))
	require.NoError(t, err)
	assert.NotEmpty(t, small)
}
