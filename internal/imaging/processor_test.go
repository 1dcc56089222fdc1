package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// createTestImage creates a simple gradient image with the given dimensions.
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encoding test image: %v", err)
	}
	return buf.Bytes()
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg magic bytes", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "jpeg"},
		{"png magic bytes", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "png"},
		{"gif magic bytes", []byte{0x47, 0x49, 0x46, 0x38, 0x39, 0x61}, "gif"},
		{"unknown", []byte{0x00, 0x01, 0x02, 0x03}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectFormat(tt.data); got != tt.want {
				t.Errorf("detectFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProcessStoresOriginalAndVariants(t *testing.T) {
	dir := t.TempDir()
	p := NewProcessor(dir)

	data := encodeJPEG(t, createTestImage(2000, 1500))

	result, err := p.Process(bytes.NewReader(data), "photo.jpg")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if result.Width != 2000 || result.Height != 1500 {
		t.Errorf("dimensions = %dx%d, want 2000x1500", result.Width, result.Height)
	}

	if _, err := os.Stat(filepath.Join(dir, result.Path)); err != nil {
		t.Errorf("original not stored: %v", err)
	}
	for variant := range Variants {
		if _, err := os.Stat(filepath.Join(dir, VariantPath(result.Path, variant))); err != nil {
			t.Errorf("%s variant not stored: %v", variant, err)
		}
	}
}

func TestProcessThumbnailDimensions(t *testing.T) {
	dir := t.TempDir()
	p := NewProcessor(dir)

	data := encodeJPEG(t, createTestImage(2000, 1500))
	result, err := p.Process(bytes.NewReader(data), "photo.jpg")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, VariantPath(result.Path, "thumbnail")))
	if err != nil {
		t.Fatalf("opening thumbnail: %v", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decoding thumbnail: %v", err)
	}
	want := Variants["thumbnail"]
	if cfg.Width != want.Width || cfg.Height != want.Height {
		t.Errorf("thumbnail = %dx%d, want %dx%d", cfg.Width, cfg.Height, want.Width, want.Height)
	}
}

func TestProcessRejectsNonImage(t *testing.T) {
	p := NewProcessor(t.TempDir())

	_, err := p.Process(bytes.NewReader([]byte("not an image at all")), "note.txt")
	if err == nil {
		t.Fatal("Process accepted non-image data")
	}
}

func TestProcessPNGKeepsFormat(t *testing.T) {
	dir := t.TempDir()
	p := NewProcessor(dir)

	var buf bytes.Buffer
	if err := png.Encode(&buf, createTestImage(100, 100)); err != nil {
		t.Fatalf("encoding png: %v", err)
	}

	result, err := p.Process(bytes.NewReader(buf.Bytes()), "pixel.png")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if filepath.Ext(result.Path) != ".png" {
		t.Errorf("stored extension = %q, want .png", filepath.Ext(result.Path))
	}
}

func TestDeleteRemovesAllFiles(t *testing.T) {
	dir := t.TempDir()
	p := NewProcessor(dir)

	data := encodeJPEG(t, createTestImage(2000, 1500))
	result, err := p.Process(bytes.NewReader(data), "photo.jpg")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if err := p.Delete(result.Path); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, result.Path)); !os.IsNotExist(err) {
		t.Errorf("original still exists: %v", err)
	}
	for variant := range Variants {
		if _, err := os.Stat(filepath.Join(dir, VariantPath(result.Path, variant))); !os.IsNotExist(err) {
			t.Errorf("%s variant still exists: %v", variant, err)
		}
	}

	// Deleting twice is harmless.
	if err := p.Delete(result.Path); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestApplyOrientationRotates(t *testing.T) {
	img := createTestImage(40, 20)

	rotated := applyOrientation(img, 6)
	b := rotated.Bounds()
	if b.Dx() != 20 || b.Dy() != 40 {
		t.Errorf("orientation 6 = %dx%d, want 20x40", b.Dx(), b.Dy())
	}

	same := applyOrientation(img, 1)
	if same.Bounds() != img.Bounds() {
		t.Error("orientation 1 must not change the image")
	}
}
