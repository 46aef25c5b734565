package pdfrenderer

import (
	"context"
	"fmt"

	"github.com/gen2brain/go-fitz"
)

// fitzModule is the go-fitz module (requires CGo and MuPDF). MuPDF renders
// in-process, the worker options only bound concurrent renders.
type fitzModule struct {
	options WorkerOptions
}

// ImportFitz is the Importer for the go-fitz engine
func ImportFitz(ctx context.Context) (Module, error) {
	return &fitzModule{}, nil
}

func (m *fitzModule) WorkerOptions() *WorkerOptions {
	return &m.options
}

func (m *fitzModule) Start(ctx context.Context) (Engine, error) {
	workers := m.options.MaxTotal
	if workers < 1 {
		workers = 1
	}
	return &FitzRenderer{slots: make(chan struct{}, workers)}, nil
}

// FitzRenderer implements Engine using go-fitz
type FitzRenderer struct {
	slots chan struct{}
}

// GetDocument opens the PDF from memory, holding a render slot until the document is closed
func (r *FitzRenderer) GetDocument(ctx context.Context, data []byte) (Document, error) {
	select {
	case r.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		<-r.slots
		return nil, fmt.Errorf("unable to open PDF document: %w", err)
	}
	return &fitzDocument{doc: doc, release: func() { <-r.slots }}, nil
}

type fitzDocument struct {
	doc     *fitz.Document
	release func()
}

func (d *fitzDocument) NumPages() int {
	return d.doc.NumPage()
}

func (d *fitzDocument) GetPage(ctx context.Context, pageNumber int) (Page, error) {
	if pageNumber < 1 || pageNumber > d.doc.NumPage() {
		return nil, fmt.Errorf("page %d out of range (document has %d)", pageNumber, d.doc.NumPage())
	}
	bound, err := d.doc.Bound(pageNumber - 1)
	if err != nil {
		return nil, fmt.Errorf("unable to get size of page %d: %w", pageNumber, err)
	}
	return &fitzPage{doc: d.doc, index: pageNumber - 1, width: float64(bound.Dx()), height: float64(bound.Dy())}, nil
}

func (d *fitzDocument) Close() error {
	defer d.release()
	return d.doc.Close()
}

type fitzPage struct {
	doc    *fitz.Document
	index  int
	width  float64 // points
	height float64
}

func (p *fitzPage) GetViewport(scale float64) Viewport {
	return NewViewport(p.width, p.height, scale)
}

func (p *fitzPage) Render(ctx context.Context, drawContext *DrawContext, viewport Viewport) error {
	img, err := p.doc.ImageDPI(p.index, viewport.DPI())
	if err != nil {
		return fmt.Errorf("unable to render page %d: %w", p.index+1, err)
	}
	drawContext.DrawImage(img)
	return nil
}
