package pdfrenderer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	// RenderScale is the magnification applied to the page's native size
	RenderScale = 2.0
	// EncodeQuality is passed to the encoder, PNG ignores it
	EncodeQuality = 0.9
	// DefaultTimeout bounds a whole conversion
	DefaultTimeout = 30 * time.Second
)

// ObjectURLs creates displayable, revocable references to encoded images
type ObjectURLs interface {
	CreateObjectURL(data []byte, mediaType string) string
	RevokeObjectURL(url string) bool
}

// Converter turns the first page of a PDF into a PNG preview
type Converter struct {
	Loader       *Loader
	Host         Host
	URLs         ObjectURLs
	LoadAttempts int
	Timeout      time.Duration
}

// NewConverter creates a Converter with the default raster host, attempts and timeout
func NewConverter(loader *Loader, urls ObjectURLs) *Converter {
	return &Converter{
		Loader:       loader,
		Host:         RasterHost{},
		URLs:         urls,
		LoadAttempts: DefaultLoadAttempts,
		Timeout:      DefaultTimeout,
	}
}

// ConvertPdfToImage converts src and always returns a result. The pipeline is
// raced against the converter's timeout; if the timeout wins the pipeline is
// left running and its eventual result is discarded.
//
// On failure result.Err wraps one of the Err* sentinels in this package, or is
// ctx.Err() when the caller's context ends before the pipeline finishes.
func (c *Converter) ConvertPdfToImage(ctx context.Context, src Source) ConversionResult {
	if c.Host == nil || c.URLs == nil {
		return c.fail(src, ErrEnvironmentUnsupported)
	}
	if !isPDF(src) {
		return c.fail(src, ErrNotAPdf)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	results := make(chan ConversionResult, 1)
	go func() {
		results <- c.convert(context.WithoutCancel(ctx), src)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-results:
		return result
	case <-timer.C:
		go c.discard(src, results)
		return c.fail(src, ErrConversionTimedOut)
	case <-ctx.Done():
		go c.discard(src, results)
		return c.fail(src, ctx.Err())
	}
}

// discard waits for an abandoned pipeline and releases its object URL
func (c *Converter) discard(src Source, results <-chan ConversionResult) {
	late := <-results
	if late.ImageURL != "" {
		c.URLs.RevokeObjectURL(late.ImageURL)
	}
	Logger.Debug("Discarded late conversion result", "file", src.Name(), "error", late.Error)
}

func (c *Converter) fail(src Source, err error) ConversionResult {
	result := errorResult(err)
	name := ""
	if src != nil {
		name = src.Name()
	}
	Logger.Error("PDF conversion error", "file", name, "error", err)
	return result
}

// convert runs the pipeline steps in order, stopping at the first failure
func (c *Converter) convert(ctx context.Context, src Source) (result ConversionResult) {
	defer func() {
		if r := recover(); r != nil {
			result = c.fail(src, fmt.Errorf("failed to convert PDF: %v", r))
		}
	}()

	engine, err := c.Loader.LoadWithRetry(ctx, c.LoadAttempts)
	if err != nil {
		return c.fail(src, fmt.Errorf("%w: %w", ErrEngineUnavailable, err))
	}

	data, err := readAll(src)
	if err != nil {
		return c.fail(src, err)
	}

	doc, err := engine.GetDocument(ctx, data)
	if err != nil {
		return c.fail(src, fmt.Errorf("%w: %w", ErrDocumentDecodeFailed, err))
	}
	if doc == nil {
		return c.fail(src, ErrDocumentDecodeFailed)
	}
	defer doc.Close()

	page, err := doc.GetPage(ctx, 1)
	if err != nil {
		return c.fail(src, fmt.Errorf("%w: %w", ErrPageNotFound, err))
	}
	if page == nil {
		return c.fail(src, ErrPageNotFound)
	}

	viewport := page.GetViewport(RenderScale)
	surface := c.Host.CreateSurface(viewport.PixelWidth(), viewport.PixelHeight())
	drawContext := surface.Context2D()
	if drawContext == nil {
		return c.fail(src, ErrSurfaceUnavailable)
	}

	drawContext.ImageSmoothingEnabled = true
	drawContext.ImageSmoothingQuality = SmoothingHigh

	started := time.Now()
	if err := page.Render(ctx, drawContext, viewport); err != nil {
		return c.fail(src, fmt.Errorf("failed to render page: %w", err))
	}
	Logger.Debug("Rendered first page", "file", src.Name(),
		"width", surface.Width, "height", surface.Height, "elapsed", time.Since(started))

	blob, err := surface.ToBlob(MediaTypePNG, EncodeQuality)
	if err != nil {
		return c.fail(src, fmt.Errorf("%w: %w", ErrEncodeFailed, err))
	}
	if len(blob) == 0 {
		return c.fail(src, ErrEncodeFailed)
	}

	imageFile := &ImageFile{FileName: ImageName(src.Name()), MediaType: MediaTypePNG, Data: blob}
	imageURL := c.URLs.CreateObjectURL(blob, MediaTypePNG)
	Logger.Info("Converted PDF to image", "file", src.Name(), "image", imageFile.FileName, "bytes", len(blob))
	return successResult(imageURL, imageFile)
}

func isPDF(src Source) bool {
	if src == nil {
		return false
	}
	return strings.Contains(src.Type(), "pdf") || strings.HasSuffix(strings.ToLower(src.Name()), ".pdf")
}

func readAll(src Source) ([]byte, error) {
	reader, err := src.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmptyOrUnreadableFile, err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmptyOrUnreadableFile, err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyOrUnreadableFile
	}
	return data, nil
}
