package pdfrenderer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"sync/atomic"
	"time"
)

// fakeModule is a Module whose Start hands back a prepared engine
type fakeModule struct {
	options  *WorkerOptions
	engine   Engine
	startErr error
}

func (m *fakeModule) WorkerOptions() *WorkerOptions { return m.options }

func (m *fakeModule) Start(ctx context.Context) (Engine, error) {
	return m.engine, m.startErr
}

// countingImporter fails the first `failures` imports, then yields module
type countingImporter struct {
	failures int32
	module   *fakeModule
	gate     chan struct{} // when set, imports wait for it to close
	calls    atomic.Int32
}

func newImporter(engine Engine, failures int) *countingImporter {
	return &countingImporter{
		failures: int32(failures),
		module:   &fakeModule{options: &WorkerOptions{}, engine: engine},
	}
}

func (c *countingImporter) Import(ctx context.Context) (Module, error) {
	n := c.calls.Add(1)
	if c.gate != nil {
		<-c.gate
	}
	if n <= c.failures {
		return nil, fmt.Errorf("network error on attempt %d", n)
	}
	return c.module, nil
}

// recordingSleep records retry pauses instead of waiting
type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleep) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

func (r *recordingSleep) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

type fakeEngine struct {
	doc Document
	err error
}

func (e *fakeEngine) GetDocument(ctx context.Context, data []byte) (Document, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.doc, nil
}

type fakeDocument struct {
	pages  []Page
	closed atomic.Bool
}

func (d *fakeDocument) NumPages() int { return len(d.pages) }

func (d *fakeDocument) GetPage(ctx context.Context, pageNumber int) (Page, error) {
	if pageNumber < 1 || pageNumber > len(d.pages) {
		return nil, errors.New("invalid page request")
	}
	return d.pages[pageNumber-1], nil
}

func (d *fakeDocument) Close() error {
	d.closed.Store(true)
	return nil
}

// fakePage paints itself red. A US letter page is 612 x 792 points.
type fakePage struct {
	widthPt, heightPt float64
	block             chan struct{}
	renderErr         error

	mu                sync.Mutex // conversions may share a page
	renderedQuality   SmoothingQuality
	renderedSmoothing bool
	renders           int
}

// rendered returns the smoothing settings of the last render and the render count
func (p *fakePage) rendered() (bool, SmoothingQuality, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.renderedSmoothing, p.renderedQuality, p.renders
}

func (p *fakePage) GetViewport(scale float64) Viewport {
	return NewViewport(p.widthPt, p.heightPt, scale)
}

func (p *fakePage) Render(ctx context.Context, drawContext *DrawContext, viewport Viewport) error {
	if p.block != nil {
		<-p.block
	}
	if p.renderErr != nil {
		return p.renderErr
	}
	p.mu.Lock()
	p.renderedQuality = drawContext.ImageSmoothingQuality
	p.renderedSmoothing = drawContext.ImageSmoothingEnabled
	p.renders++
	p.mu.Unlock()
	img := image.NewRGBA(image.Rect(0, 0, viewport.PixelWidth(), viewport.PixelHeight()))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 255, A: 255}}, image.Point{}, draw.Src)
	drawContext.DrawImage(img)
	return nil
}

func newFakeEngine(page *fakePage) (*fakeEngine, *fakeDocument) {
	doc := &fakeDocument{pages: []Page{page}}
	return &fakeEngine{doc: doc}, doc
}
