package thumbnail

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	MaxWidth = 1024
	// MaxSourcePixels bounds the decoded size of a stored raster picture.
	MaxSourcePixels = 32_000_000
	// maxHeightRatio bounds the height of a rasterized SVG relative to its width.
	maxHeightRatio = 4
)

// ErrUnsupportedImage is returned when the payload is neither a decodable raster image nor SVG.
var ErrUnsupportedImage = errors.New("unsupported image format")

// Render produces a PNG no wider than width, preserving aspect ratio. Images already narrower
// than width keep their size. SVG input is rasterized at width.
func Render(data []byte, width int) ([]byte, error) {
	if width <= 0 || width > MaxWidth {
		return nil, fmt.Errorf("width must be between 1 and %d, got %d", MaxWidth, width)
	}
	slog.Debug("thumbnail: start", "input_size_bytes", len(data), "width", width)

	if isSVGData(data) {
		return renderSVG(data, width)
	}

	config, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if config.Width <= 0 || config.Height <= 0 || int64(config.Width)*int64(config.Height) > MaxSourcePixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrUnsupportedImage, config.Width, config.Height, MaxSourcePixels)
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	bounds := src.Bounds()
	targetW, targetH := scaledSize(bounds.Dx(), bounds.Dy(), width)
	slog.Debug("thumbnail: decoded raster image",
		"format", format,
		"orig_width", bounds.Dx(),
		"orig_height", bounds.Dy(),
		"target_width", targetW,
		"target_height", targetH)

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	return encodePNG(dst)
}

// scaledSize fits (w, h) into maxWidth keeping the aspect ratio; never upscales.
func scaledSize(w, h, maxWidth int) (int, int) {
	if w <= 0 || h <= 0 {
		return 1, 1
	}
	if w <= maxWidth {
		return w, h
	}
	targetH := int(float64(h) * float64(maxWidth) / float64(w))
	if targetH < 1 {
		targetH = 1
	}
	return maxWidth, targetH
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail as PNG: %w", err)
	}
	slog.Debug("thumbnail: encoding complete", "output_size_bytes", buf.Len())
	return buf.Bytes(), nil
}
