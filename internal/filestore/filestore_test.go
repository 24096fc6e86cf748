package filestore

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSaveAndThumbnail(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, 50)
	require.NoError(t, err)

	_, err = store.Save("d1_upload.png", encodePNG(t, 200, 100))
	require.NoError(t, err)

	require.NoError(t, store.Thumbnail("d1_upload.png", "d1"))

	// The original upload is replaced by the scaled png.
	_, err = os.Stat(filepath.Join(dir, "d1_upload.png"))
	assert.True(t, os.IsNotExist(err))

	f, err := os.Open(filepath.Join(dir, "d1.png"))
	require.NoError(t, err)
	defer f.Close()

	thumb, err := png.Decode(f)
	require.NoError(t, err)

	bounds := thumb.Bounds()
	assert.Equal(t, 50, bounds.Dx())
	assert.Equal(t, 25, bounds.Dy()) // aspect ratio preserved
}

func TestThumbnailRejectsNonImage(t *testing.T) {
	store, err := New(t.TempDir(), 50)
	require.NoError(t, err)

	_, err = store.Save("d1_upload.bin", []byte("not an image"))
	require.NoError(t, err)

	require.Error(t, store.Thumbnail("d1_upload.bin", "d1"))
}

func TestSaveStripsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, 50)
	require.NoError(t, err)

	path, err := store.Save("../../escape.png", encodePNG(t, 10, 10))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "escape.png"), path)
}
