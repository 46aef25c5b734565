package pdfrenderer

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
)

func TestSurfaceContext2D(t *testing.T) {
	host := RasterHost{}

	if ctx := host.CreateSurface(0, 100).Context2D(); ctx != nil {
		t.Error("Expected no context for zero width surface")
	}
	if ctx := host.CreateSurface(100, -1).Context2D(); ctx != nil {
		t.Error("Expected no context for negative height surface")
	}
	if ctx := (RasterHost{MaxPixels: 100}).CreateSurface(11, 10).Context2D(); ctx != nil {
		t.Error("Expected no context for oversize surface")
	}

	surface := host.CreateSurface(30, 20)
	ctx := surface.Context2D()
	if ctx == nil {
		t.Fatal("Expected a drawing context")
	}
	if ctx != surface.Context2D() {
		t.Error("Expected the same context on repeated calls")
	}
	if got := ctx.Bounds().Size(); got.X != 30 || got.Y != 20 {
		t.Errorf("Expected 30x20 canvas, got %dx%d", got.X, got.Y)
	}
}

func TestDrawImageResamplesToSurface(t *testing.T) {
	surface := RasterHost{}.CreateSurface(40, 40)
	ctx := surface.Context2D()
	ctx.ImageSmoothingQuality = SmoothingHigh

	src := imaging.New(10, 10, color.NRGBA{B: 255, A: 255})
	ctx.DrawImage(src)

	got := ctx.Canvas().RGBAAt(39, 39)
	if got.B != 255 || got.A != 255 {
		t.Errorf("Expected the resampled source to cover the surface, got %v at (39,39)", got)
	}
}

func TestDrawContextFilter(t *testing.T) {
	ctx := &DrawContext{}
	tests := []struct {
		enabled bool
		quality SmoothingQuality
		want    float64 // filter support radius
	}{
		{false, SmoothingHigh, imaging.NearestNeighbor.Support},
		{true, SmoothingLow, imaging.Linear.Support},
		{true, SmoothingMedium, imaging.CatmullRom.Support},
		{true, SmoothingHigh, imaging.Lanczos.Support},
	}
	for _, tt := range tests {
		ctx.ImageSmoothingEnabled = tt.enabled
		ctx.ImageSmoothingQuality = tt.quality
		if got := ctx.filter().Support; got != tt.want {
			t.Errorf("enabled=%v quality=%q: expected support %v, got %v", tt.enabled, tt.quality, tt.want, got)
		}
	}
}

func TestSurfaceToBlob(t *testing.T) {
	surface := RasterHost{}.CreateSurface(16, 8)
	if _, err := surface.ToBlob(MediaTypePNG, EncodeQuality); err == nil {
		t.Error("Expected an error encoding a surface without a context")
	}

	surface.Context2D().DrawImage(image.NewRGBA(image.Rect(0, 0, 16, 8)))
	data, err := surface.ToBlob(MediaTypePNG, EncodeQuality)
	if err != nil {
		t.Fatalf("ToBlob failed: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Output is not a PNG: %v", err)
	}
	if got := img.Bounds().Size(); got.X != 16 || got.Y != 8 {
		t.Errorf("Expected 16x8 image, got %dx%d", got.X, got.Y)
	}

	if _, err := surface.ToBlob("image/webp", EncodeQuality); err == nil {
		t.Error("Expected an error for an unsupported media type")
	}
}

func TestViewport(t *testing.T) {
	vp := NewViewport(612, 792, RenderScale)
	if vp.PixelWidth() != 1224 || vp.PixelHeight() != 1584 {
		t.Errorf("Expected 1224x1584, got %dx%d", vp.PixelWidth(), vp.PixelHeight())
	}
	if vp.DPI() != 144 {
		t.Errorf("Expected 144 DPI, got %v", vp.DPI())
	}

	// Fractional sizes are truncated like a canvas dimension
	vp = NewViewport(595.28, 841.89, RenderScale)
	if vp.PixelWidth() != 1190 || vp.PixelHeight() != 1683 {
		t.Errorf("Expected 1190x1683, got %dx%d", vp.PixelWidth(), vp.PixelHeight())
	}
}
