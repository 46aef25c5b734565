package pdfrenderer

import (
	"bytes"
	"io"
	"mime/multipart"
	"regexp"
)

// Source is an uploaded file to convert
type Source interface {
	Name() string
	// Type is the declared media type, it may be empty
	Type() string
	Open() (io.ReadCloser, error)
}

// ImageFile is a named in-memory file, the encoded preview
type ImageFile struct {
	FileName  string `json:"name"`
	MediaType string `json:"type"`
	Data      []byte `json:"-"`
}

// NewFileSource wraps in-memory content as a Source
func NewFileSource(name, mediaType string, data []byte) *ImageFile {
	return &ImageFile{FileName: name, MediaType: mediaType, Data: data}
}

func (f *ImageFile) Name() string { return f.FileName }
func (f *ImageFile) Type() string { return f.MediaType }
func (f *ImageFile) Size() int    { return len(f.Data) }

func (f *ImageFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.Data)), nil
}

// MultipartSource adapts an uploaded form file
type MultipartSource struct {
	Header *multipart.FileHeader
}

func (m MultipartSource) Name() string { return m.Header.Filename }
func (m MultipartSource) Type() string { return m.Header.Header.Get("Content-Type") }

func (m MultipartSource) Open() (io.ReadCloser, error) {
	return m.Header.Open()
}

// ConversionResult is either a preview or an error, never both
type ConversionResult struct {
	ImageURL string     `json:"imageUrl"`
	File     *ImageFile `json:"file"`
	Error    string     `json:"error,omitempty"`
	// Err is the underlying error for errors.Is, not serialized
	Err error `json:"-"`
}

// OK reports whether the result carries a preview
func (r ConversionResult) OK() bool {
	return r.Error == ""
}

func successResult(imageURL string, file *ImageFile) ConversionResult {
	return ConversionResult{ImageURL: imageURL, File: file}
}

func errorResult(err error) ConversionResult {
	message := err.Error()
	if isVersionMismatch(err) {
		message = VersionMismatchMessage
		err = ErrEngineVersionMismatch
	}
	return ConversionResult{ImageURL: "", File: nil, Error: message, Err: err}
}

var pdfSuffix = regexp.MustCompile(`(?i)\.pdf$`)

// ImageName derives the preview file name from the source name
func ImageName(sourceName string) string {
	return pdfSuffix.ReplaceAllString(sourceName, "") + ".png"
}
