// Package media extracts display metadata from uploaded files. Extraction is
// best effort: a file that cannot be decoded simply has no dimensions, and
// absence never blocks message creation.
package media

import (
	"image"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// Dimensions holds pixel dimensions probed from an image file.
type Dimensions struct {
	Width  int
	Height int
}

// ProbeImage reads image dimensions from a file on disk. It reports false for
// missing files, non-image content, and formats without a registered decoder.
func ProbeImage(path string) (Dimensions, bool) {
	file, err := os.Open(path)
	if err != nil {
		return Dimensions{}, false
	}
	defer file.Close()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return Dimensions{}, false
	}
	return Dimensions{Width: cfg.Width, Height: cfg.Height}, true
}
