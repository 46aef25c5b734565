package pdfrenderer

import (
	"context"
	"log/slog"
	"math"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger = slog.Default()

// WorkerSrc is where the rendering worker binary is served from. It is a
// same-origin path under the web root, never a remote location.
const WorkerSrc = "/pdfium.worker.wasm"

// WorkerOptions is the worker configuration surface a Module exposes.
type WorkerOptions struct {
	// WorkerSrc is the location of the worker binary, relative to WorkerRoot.
	WorkerSrc string
	// WorkerRoot is the directory WorkerSrc is resolved against.
	WorkerRoot string
	MinIdle    int
	MaxIdle    int
	MaxTotal   int
}

// Module is what an Importer yields. It must be configured through its
// WorkerOptions before Start is called.
type Module interface {
	// WorkerOptions returns the worker configuration surface, nil if the
	// module does not have one.
	WorkerOptions() *WorkerOptions

	// Start brings up the module's workers and returns the engine handle
	Start(ctx context.Context) (Engine, error)
}

// Importer loads a Module. It is called at most once per successful load.
type Importer func(ctx context.Context) (Module, error)

// Engine is the loaded rendering engine, shared by all conversions
type Engine interface {
	// GetDocument parses raw PDF bytes into a document
	GetDocument(ctx context.Context, data []byte) (Document, error)
}

// Document is a parsed PDF
type Document interface {
	NumPages() int
	// GetPage fetches a page by its 1-based number
	GetPage(ctx context.Context, pageNumber int) (Page, error)
	Close() error
}

// Page is a single page of a Document
type Page interface {
	GetViewport(scale float64) Viewport
	// Render paints the page onto the drawing context at the given viewport
	Render(ctx context.Context, drawContext *DrawContext, viewport Viewport) error
}

// Viewport is the pixel-space rectangle a page is rasterized into
type Viewport struct {
	Width  float64
	Height float64
	Scale  float64
}

// NewViewport scales a page size given in points
func NewViewport(widthPt, heightPt, scale float64) Viewport {
	return Viewport{Width: widthPt * scale, Height: heightPt * scale, Scale: scale}
}

// PixelWidth is the surface width needed for the viewport
func (v Viewport) PixelWidth() int {
	return int(math.Floor(v.Width))
}

// PixelHeight is the surface height needed for the viewport
func (v Viewport) PixelHeight() int {
	return int(math.Floor(v.Height))
}

// DPI is the render resolution matching the viewport scale (PDF points are 1/72 in)
func (v Viewport) DPI() float64 {
	return 72 * v.Scale
}

// ImporterFor picks the engine importer by its configured name, pdfium unless fitz is asked for
func ImporterFor(name string) Importer {
	if name == "fitz" {
		return ImportFitz
	}
	return ImportPDFium
}
