package vision

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ErrEmptyFrame is returned when an image or representation has no pixels.
var ErrEmptyFrame = errors.New("empty frame")

// Loader reads a raw image from disk
type Loader interface {
	Load(path string) (image.Image, error)
}

// FileLoader decodes any format registered with the imaging package
type FileLoader struct {
	// AutoOrient applies the EXIF orientation tag when present.
	AutoOrient bool
}

// Load reads and decodes the image at path
func (l FileLoader) Load(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(l.AutoOrient))
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", path, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("failed to read image %s: %w", path, ErrEmptyFrame)
	}
	return img, nil
}
