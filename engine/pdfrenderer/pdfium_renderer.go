package pdfrenderer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"
)

// instanceTimeout is how long a conversion waits for a free pdfium worker
const instanceTimeout = 30 * time.Second

// pdfiumModule is the go-pdfium WebAssembly module before its workers start
type pdfiumModule struct {
	options WorkerOptions
}

// ImportPDFium is the Importer for the PDFium WebAssembly engine (pure Go, no CGo)
func ImportPDFium(ctx context.Context) (Module, error) {
	return &pdfiumModule{}, nil
}

func (m *pdfiumModule) WorkerOptions() *WorkerOptions {
	return &m.options
}

// Start initializes the WebAssembly worker pool from the locally served worker binary
func (m *pdfiumModule) Start(ctx context.Context) (Engine, error) {
	config := webassembly.Config{
		MinIdle:  m.options.MinIdle,
		MaxIdle:  m.options.MaxIdle,
		MaxTotal: m.options.MaxTotal,
	}

	workerPath := filepath.Join(m.options.WorkerRoot, filepath.FromSlash(strings.TrimPrefix(m.options.WorkerSrc, "/")))
	wasm, err := os.ReadFile(workerPath)
	switch {
	case err == nil:
		config.WASM = wasm
		Logger.Info("Using local PDFium worker", "path", workerPath, "bytes", len(wasm))
	case errors.Is(err, os.ErrNotExist):
		Logger.Warn("Local PDFium worker not found, using the bundled build", "path", workerPath)
	default:
		return nil, fmt.Errorf("unable to read PDFium worker %s: %w", workerPath, err)
	}

	pool, err := webassembly.Init(config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PDFium WebAssembly: %w", err)
	}
	return &PDFiumRenderer{pool: pool}, nil
}

// PDFiumRenderer implements Engine using a go-pdfium WebAssembly worker pool
type PDFiumRenderer struct {
	pool pdfium.Pool
}

// GetDocument checks out a worker for the lifetime of the document
func (r *PDFiumRenderer) GetDocument(ctx context.Context, data []byte) (Document, error) {
	instance, err := r.pool.GetInstance(instanceTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to get PDFium instance: %w", err)
	}

	doc, err := instance.OpenDocument(&requests.OpenDocument{
		File: &data,
	})
	if err != nil {
		instance.Close()
		return nil, fmt.Errorf("unable to open PDF document: %w", err)
	}

	pageCount, err := instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{
		Document: doc.Document,
	})
	if err != nil {
		instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: doc.Document})
		instance.Close()
		return nil, fmt.Errorf("unable to get page count: %w", err)
	}

	return &pdfiumDocument{instance: instance, document: doc.Document, pages: pageCount.PageCount}, nil
}

// Close shuts down the worker pool
func (r *PDFiumRenderer) Close() error {
	if r.pool != nil {
		err := r.pool.Close()
		r.pool = nil
		return err
	}
	return nil
}

type pdfiumDocument struct {
	instance pdfium.Pdfium
	document references.FPDF_DOCUMENT
	pages    int
}

func (d *pdfiumDocument) NumPages() int {
	return d.pages
}

func (d *pdfiumDocument) GetPage(ctx context.Context, pageNumber int) (Page, error) {
	if pageNumber < 1 || pageNumber > d.pages {
		return nil, fmt.Errorf("page %d out of range (document has %d)", pageNumber, d.pages)
	}
	page := requests.Page{
		ByIndex: &requests.PageByIndex{
			Document: d.document,
			Index:    pageNumber - 1,
		},
	}
	size, err := d.instance.GetPageSize(&requests.GetPageSize{Page: page})
	if err != nil {
		return nil, fmt.Errorf("unable to get size of page %d: %w", pageNumber, err)
	}
	return &pdfiumPage{instance: d.instance, page: page, width: size.Width, height: size.Height}, nil
}

// Close releases the document and returns the worker to the pool
func (d *pdfiumDocument) Close() error {
	_, err := d.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{
		Document: d.document,
	})
	if closeErr := d.instance.Close(); err == nil {
		err = closeErr
	}
	return err
}

type pdfiumPage struct {
	instance pdfium.Pdfium
	page     requests.Page
	width    float64 // points
	height   float64
}

func (p *pdfiumPage) GetViewport(scale float64) Viewport {
	return NewViewport(p.width, p.height, scale)
}

func (p *pdfiumPage) Render(ctx context.Context, drawContext *DrawContext, viewport Viewport) error {
	bounds := drawContext.Bounds()
	pageRender, err := p.instance.RenderPageInPixels(&requests.RenderPageInPixels{
		Page:   p.page,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	})
	if err != nil {
		return fmt.Errorf("unable to render page: %w", err)
	}
	// Cleanup frees the WebAssembly bitmap backing the image
	defer pageRender.Cleanup()

	drawContext.DrawImage(pageRender.Result.Image)
	return nil
}
