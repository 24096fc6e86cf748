package filestore

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	_ "image/gif"
	_ "image/jpeg"
)

// Store keeps doctor portrait files on local disk. Thumbnails are produced
// asynchronously by the caller; a failed thumbnail never fails the upload.
type Store struct {
	dir           string
	thumbnailSize int
}

func New(dir string, thumbnailSize int) (*Store, error) {
	if thumbnailSize <= 0 {
		thumbnailSize = 300
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create photo directory: %w", err)
	}
	return &Store{dir: dir, thumbnailSize: thumbnailSize}, nil
}

// Save writes the uploaded bytes under the given filename and returns the
// absolute path.
func (s *Store) Save(filename string, data []byte) (string, error) {
	path := filepath.Join(s.dir, filepath.Base(filename))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save photo: %w", err)
	}
	return path, nil
}

// Path returns the on-disk location for a stored file name.
func (s *Store) Path(filename string) string {
	return filepath.Join(s.dir, filepath.Base(filename))
}

// Thumbnail decodes src, scales it to fit within the configured square, saves
// the result as <doctorID>.png and removes the original upload.
func (s *Store) Thumbnail(srcFilename, doctorID string) error {
	srcPath := s.Path(srcFilename)
	f, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open photo: %w", err)
	}
	img, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("failed to decode photo: %w", err)
	}

	thumb := scaleToFit(img, s.thumbnailSize)

	dstPath := s.Path(doctorID + ".png")
	out, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("failed to create thumbnail: %w", err)
	}
	defer out.Close()

	if err := png.Encode(out, thumb); err != nil {
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	if srcPath != dstPath {
		os.Remove(srcPath)
	}
	return nil
}

// scaleToFit downsamples img so its longer edge is at most max pixels,
// preserving aspect ratio. Nearest-neighbor is good enough for avatars.
func scaleToFit(img image.Image, max int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= max && h <= max {
		return img
	}

	scale := float64(max) / float64(w)
	if h > w {
		scale = float64(max) / float64(h)
	}
	nw := int(float64(w) * scale)
	nh := int(float64(h) * scale)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	for y := 0; y < nh; y++ {
		sy := bounds.Min.Y + y*h/nh
		for x := 0; x < nw; x++ {
			sx := bounds.Min.X + x*w/nw
			dst.Set(x, y, img.At(sx, sy))
		}
	}
	return dst
}
