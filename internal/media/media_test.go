package media

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestProbeImage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	imagePath := filepath.Join(dir, "brief.png")
	file, err := os.Create(imagePath)
	if err != nil {
		t.Fatalf("create image file: %v", err)
	}
	if err := png.Encode(file, image.NewRGBA(image.Rect(0, 0, 24, 16))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("close image file: %v", err)
	}

	dims, ok := ProbeImage(imagePath)
	if !ok {
		t.Fatal("expected probe to succeed")
	}
	if dims.Width != 24 || dims.Height != 16 {
		t.Fatalf("unexpected dimensions %+v", dims)
	}
}

func TestProbeImageToleratesBadInput(t *testing.T) {
	t.Parallel()

	if _, ok := ProbeImage(filepath.Join(t.TempDir(), "missing.png")); ok {
		t.Fatal("expected missing file to report absent dimensions")
	}

	notImage := filepath.Join(t.TempDir(), "contract.pdf")
	if err := os.WriteFile(notImage, []byte("%PDF-1.4 not an image"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, ok := ProbeImage(notImage); ok {
		t.Fatal("expected non-image content to report absent dimensions")
	}
}
