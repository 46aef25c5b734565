package pdfrenderer

import (
	"errors"
	"strings"
)

var (
	ErrEnvironmentUnsupported = errors.New("PDF conversion requires a raster host")
	ErrNotAPdf                = errors.New("file is not a PDF")
	ErrEngineLoadFailed       = errors.New("failed to load PDF engine")
	ErrEngineLoadExhausted    = errors.New("failed to load PDF engine after multiple attempts")
	ErrEngineInvalid          = errors.New("invalid PDF engine loaded")
	ErrEngineUnavailable      = errors.New("PDF engine failed to load")
	ErrEmptyOrUnreadableFile  = errors.New("failed to read file data")
	ErrDocumentDecodeFailed   = errors.New("failed to load PDF document")
	ErrPageNotFound           = errors.New("failed to get first page")
	ErrSurfaceUnavailable     = errors.New("failed to get drawing context")
	ErrEncodeFailed           = errors.New("failed to create image blob")
	ErrEngineVersionMismatch  = errors.New("PDF engine version mismatch")
	ErrConversionTimedOut     = errors.New("PDF conversion timed out")
)

// VersionMismatchMessage is reported instead of the engine's own diagnostic
// when its main module and worker disagree on version.
const VersionMismatchMessage = "PDF engine version mismatch. Please refresh the page and try again."

// isVersionMismatch reports whether an engine error is the module/worker
// version skew diagnostic
func isVersionMismatch(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "API version") && strings.Contains(msg, "Worker version")
}
