package pdfrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	"github.com/disintegration/imaging"
)

// MediaTypePNG is the only output format
const MediaTypePNG = "image/png"

// MaxSurfacePixels bounds the area of a single surface (16384 x 16384)
const MaxSurfacePixels = 1 << 28

// SmoothingQuality selects the resampling filter used when a bitmap is fitted to a surface
type SmoothingQuality string

const (
	SmoothingLow    SmoothingQuality = "low"
	SmoothingMedium SmoothingQuality = "medium"
	SmoothingHigh   SmoothingQuality = "high"
)

// Host provides off-screen raster surfaces
type Host interface {
	CreateSurface(width, height int) *Surface
}

// RasterHost is the in-process Host backed by image.RGBA buffers
type RasterHost struct {
	// MaxPixels overrides MaxSurfacePixels when positive
	MaxPixels int
}

// CreateSurface returns an unallocated surface, the buffer is allocated by Context2D
func (h RasterHost) CreateSurface(width, height int) *Surface {
	maxPixels := h.MaxPixels
	if maxPixels <= 0 {
		maxPixels = MaxSurfacePixels
	}
	return &Surface{Width: width, Height: height, maxPixels: maxPixels}
}

// Surface is an off-screen pixel buffer
type Surface struct {
	Width     int
	Height    int
	maxPixels int
	context   *DrawContext
}

// Context2D returns the surface's drawing context, or nil when the surface
// dimensions cannot be backed by a buffer.
func (s *Surface) Context2D() *DrawContext {
	if s.context != nil {
		return s.context
	}
	if s.Width <= 0 || s.Height <= 0 {
		return nil
	}
	if s.Width > s.maxPixels/s.Height {
		return nil
	}
	s.context = &DrawContext{
		ImageSmoothingEnabled: true,
		ImageSmoothingQuality: SmoothingLow,
		canvas:                image.NewRGBA(image.Rect(0, 0, s.Width, s.Height)),
	}
	return s.context
}

// ToBlob encodes the surface. quality only applies to lossy formats but is
// always passed to the encoder.
func (s *Surface) ToBlob(mediaType string, quality float64) ([]byte, error) {
	if s.context == nil {
		return nil, fmt.Errorf("surface has no drawing context")
	}
	format, err := formatFor(mediaType)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	err = imaging.Encode(&buf, s.context.canvas, format,
		imaging.JPEGQuality(int(quality*100)),
		imaging.PNGCompressionLevel(png.DefaultCompression))
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatFor(mediaType string) (imaging.Format, error) {
	switch mediaType {
	case MediaTypePNG:
		return imaging.PNG, nil
	case "image/jpeg":
		return imaging.JPEG, nil
	}
	return 0, fmt.Errorf("unsupported image type %q", mediaType)
}

// DrawContext is the 2-D drawing context of a Surface
type DrawContext struct {
	ImageSmoothingEnabled bool
	ImageSmoothingQuality SmoothingQuality
	canvas                *image.RGBA
}

// Bounds is the drawable area
func (c *DrawContext) Bounds() image.Rectangle {
	return c.canvas.Bounds()
}

// Canvas exposes the backing buffer
func (c *DrawContext) Canvas() *image.RGBA {
	return c.canvas
}

// DrawImage paints src over the whole surface, resampling when sizes differ
func (c *DrawContext) DrawImage(src image.Image) {
	bounds := c.canvas.Bounds()
	if src.Bounds().Dx() != bounds.Dx() || src.Bounds().Dy() != bounds.Dy() {
		src = imaging.Resize(src, bounds.Dx(), bounds.Dy(), c.filter())
	}
	draw.Draw(c.canvas, bounds, src, src.Bounds().Min, draw.Over)
}

// filter maps the smoothing settings onto an imaging resampling filter
func (c *DrawContext) filter() imaging.ResampleFilter {
	if !c.ImageSmoothingEnabled {
		return imaging.NearestNeighbor
	}
	switch c.ImageSmoothingQuality {
	case SmoothingHigh:
		return imaging.Lanczos
	case SmoothingMedium:
		return imaging.CatmullRom
	default:
		return imaging.Linear
	}
}
