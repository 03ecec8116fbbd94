// Package imaging holds the image handle passed between node properties.
//
// Pixel storage is owned by the host. Nodes receive and forward *Image
// values; they never allocate or mutate the underlying pixels.
package imaging

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// SupportedExtensions lists the file extensions the host can open.
var SupportedExtensions = []string{".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff"}

// Image is an opaque reference to host-owned pixel data.
type Image struct {
	Name   string
	pixels image.Image
}

// New wraps pixel data in a handle.
func New(name string, pixels image.Image) *Image {
	return &Image{Name: name, pixels: pixels}
}

// Pixels returns the underlying pixel data.
func (i *Image) Pixels() image.Image {
	if i == nil {
		return nil
	}
	return i.pixels
}

// Bounds returns the pixel bounds, or the empty rectangle for a nil handle.
func (i *Image) Bounds() image.Rectangle {
	if i == nil || i.pixels == nil {
		return image.Rectangle{}
	}
	return i.pixels.Bounds()
}

// IsSupportedFile reports whether path has an extension the host can open.
func IsSupportedFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// Load opens an image file. The content is sniffed before decoding so a
// non-image file fails with a clear error instead of a decoder message.
func Load(path string) (*Image, error) {
	if !IsSupportedFile(path) {
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}

	kind, err := filetype.MatchFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}
	if kind == filetype.Unknown || kind.MIME.Type != "image" {
		return nil, fmt.Errorf("file is not an image: %s", path)
	}

	pixels, err := imgio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return New(filepath.Base(path), pixels), nil
}

// Save writes the image to path, choosing the encoder from the extension.
func Save(path string, img *Image) error {
	if img == nil || img.pixels == nil {
		return fmt.Errorf("no image to save")
	}

	var enc imgio.Encoder
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		enc = imgio.PNGEncoder()
	case ".jpg", ".jpeg":
		enc = imgio.JPEGEncoder(95)
	case ".bmp":
		enc = imgio.BMPEncoder()
	default:
		return fmt.Errorf("unsupported output file type: %s", filepath.Ext(path))
	}

	if err := imgio.Save(path, img.pixels, enc); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}
