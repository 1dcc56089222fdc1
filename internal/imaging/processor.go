// Package imaging processes post image uploads using pure Go libraries.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // WebP decoder
)

// MaxUploadSize is the largest accepted image upload.
const MaxUploadSize = 10 << 20 // 10 MiB

// VariantConfig defines settings for a generated image variant.
type VariantConfig struct {
	Width   int
	Height  int
	Quality int
	Crop    bool // true = crop to exact size, false = fit within bounds
}

// Variants are the sizes generated for every post image.
var Variants = map[string]VariantConfig{
	"thumbnail": {Width: 300, Height: 200, Quality: 80, Crop: true},
	"display":   {Width: 1280, Height: 960, Quality: 88, Crop: false},
}

// ProcessResult describes a stored post image.
type ProcessResult struct {
	// Path is the original image path relative to the upload directory.
	Path   string
	Width  int
	Height int
	Size   int64
}

// Processor stores and resizes post images under a single upload directory.
type Processor struct {
	uploadDir string
}

// NewProcessor creates a Processor rooted at uploadDir.
func NewProcessor(uploadDir string) *Processor {
	return &Processor{uploadDir: uploadDir}
}

// Process reads an uploaded image, normalizes its orientation, stores the
// original under a random name and generates the standard variants. The
// returned path identifies the original; variant paths are derived from it.
func (p *Processor) Process(reader io.Reader, filename string) (*ProcessResult, error) {
	data, err := io.ReadAll(io.LimitReader(reader, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	if len(data) > MaxUploadSize {
		return nil, fmt.Errorf("image exceeds %d bytes", MaxUploadSize)
	}

	format := detectFormat(data)
	if format == "" {
		return nil, fmt.Errorf("unsupported image format")
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	// Honor the EXIF orientation, then re-encode without metadata.
	img = applyOrientation(img, readExifOrientation(bytes.NewReader(data)))

	bounds := img.Bounds()

	encoded, err := encodeImage(img, format, 95)
	if err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}

	name := uuid.New().String() + extensionFor(format)
	relPath := filepath.Join("originals", name)
	if err := p.writeFile(relPath, encoded); err != nil {
		return nil, fmt.Errorf("saving original image: %w", err)
	}

	for variant, cfg := range Variants {
		if err := p.createVariant(img, format, variant, name, cfg); err != nil {
			// A failed variant must not lose the upload; the original
			// still serves.
			continue
		}
	}

	return &ProcessResult{
		Path:   relPath,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Size:   int64(len(encoded)),
	}, nil
}

// VariantPath maps an original image path to the path of one of its
// variants.
func VariantPath(originalPath, variant string) string {
	return filepath.Join(variant, filepath.Base(originalPath))
}

func (p *Processor) createVariant(img image.Image, format, variant, name string, cfg VariantConfig) error {
	bounds := img.Bounds()
	if bounds.Dx() <= cfg.Width && bounds.Dy() <= cfg.Height && !cfg.Crop {
		// Source already fits; store it as-is for the variant.
		encoded, err := encodeImage(img, format, cfg.Quality)
		if err != nil {
			return err
		}
		return p.writeFile(filepath.Join(variant, name), encoded)
	}

	var resized image.Image
	if cfg.Crop {
		resized = imaging.Fill(img, cfg.Width, cfg.Height, imaging.Center, imaging.Lanczos)
	} else {
		resized = imaging.Fit(img, cfg.Width, cfg.Height, imaging.Lanczos)
	}

	encoded, err := encodeImage(resized, format, cfg.Quality)
	if err != nil {
		return err
	}
	return p.writeFile(filepath.Join(variant, name), encoded)
}

func (p *Processor) writeFile(relPath string, data []byte) error {
	fullPath := filepath.Join(p.uploadDir, relPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(fullPath, data, 0o644)
}

// Delete removes an image's original and all of its variants.
func (p *Processor) Delete(originalPath string) error {
	name := filepath.Base(originalPath)

	if err := os.Remove(filepath.Join(p.uploadDir, originalPath)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting original: %w", err)
	}
	for variant := range Variants {
		if err := os.Remove(filepath.Join(p.uploadDir, variant, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("deleting %s variant: %w", variant, err)
		}
	}
	return nil
}

// readExifOrientation returns the EXIF orientation tag, or 1 (normal) if it
// cannot be determined.
func readExifOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}

	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}

	orientation, err := tag.Int(0)
	if err != nil {
		return 1
	}

	return orientation
}

// applyOrientation normalizes an image according to its EXIF orientation.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.FlipH(imaging.Rotate270(img))
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.FlipH(imaging.Rotate90(img))
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

func encodeImage(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
	case "gif":
		if err := gif.Encode(&buf, img, nil); err != nil {
			return nil, err
		}
	default:
		// JPEG output also covers WebP input, which has no pure Go encoder.
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// detectFormat sniffs the image format from raw bytes. An empty string
// means the data is not a supported image.
func detectFormat(data []byte) string {
	contentType := http.DetectContentType(data)
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	switch contentType {
	case "image/jpeg":
		return "jpeg"
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return ""
	}
}

func extensionFor(format string) string {
	switch format {
	case "png":
		return ".png"
	case "gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
