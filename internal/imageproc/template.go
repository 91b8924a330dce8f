// Package imageproc prepares images for matching: grayscale conversion,
// template decoding and compact template signatures.
package imageproc

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrInvalidTemplate is returned when a template image is missing, cannot be
// decoded, or has no pixels.
var ErrInvalidTemplate = errors.New("invalid template")

// LoadTemplate decodes the image at path and converts it to grayscale.
func LoadTemplate(path string, mode GrayMode) (*image.Gray, error) {
	img, err := DecodeGray(path, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	if img.Rect.Empty() {
		return nil, fmt.Errorf("%w: %s has no pixels", ErrInvalidTemplate, path)
	}
	return img, nil
}

// DecodeGray reads any registered image format from path as grayscale.
func DecodeGray(path string, mode GrayMode) (*image.Gray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return ToGray(img, mode), nil
}

// DecodeSize returns the pixel dimensions of the image at path without
// decoding its pixel data.
func DecodeSize(path string) (width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decode config %s: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}
