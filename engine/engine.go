package engine

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/drummonds/resumereview/database"
	"github.com/drummonds/resumereview/engine/pdfrenderer"
	"github.com/ledongthuc/pdf"
	"github.com/oklog/ulid/v2"
)

// errInvalidResumeID is returned for ids that are not ULIDs, so they can never escape the upload path
var errInvalidResumeID = errors.New("invalid resume id")

// resumeFiles are the on-disk locations of a resume and its preview
type resumeFiles struct {
	PDF   string
	Image string
}

func (serverHandler *ServerHandler) resumeFiles(id string) (resumeFiles, error) {
	if _, err := ulid.ParseStrict(id); err != nil {
		return resumeFiles{}, fmt.Errorf("%w: %q", errInvalidResumeID, id)
	}
	base := filepath.Join(serverHandler.ServerConfig.UploadPath, id)
	return resumeFiles{PDF: base + ".pdf", Image: base + ".png"}, nil
}

// storeResume writes the uploaded PDF and its rendered preview to the upload folder
func (serverHandler *ServerHandler) storeResume(id string, pdfData []byte, preview *pdfrenderer.ImageFile) (resumeFiles, error) {
	files, err := serverHandler.resumeFiles(id)
	if err != nil {
		return files, err
	}
	if err := os.MkdirAll(serverHandler.ServerConfig.UploadPath, os.ModePerm); err != nil {
		Logger.Error("Unable to create upload folder", "path", serverHandler.ServerConfig.UploadPath, "error", err)
		return files, err
	}
	if err := os.WriteFile(files.PDF, pdfData, 0644); err != nil {
		Logger.Error("Unable to write uploaded resume", "path", files.PDF, "error", err)
		return files, err
	}
	if err := os.WriteFile(files.Image, preview.Data, 0644); err != nil {
		Logger.Error("Unable to write resume preview", "path", files.Image, "error", err)
		DeleteFile(files.PDF)
		return files, err
	}
	return files, nil
}

// removeResumeFiles deletes both files of a resume, missing files are ignored
func (serverHandler *ServerHandler) removeResumeFiles(id string) error {
	files, err := serverHandler.resumeFiles(id)
	if err != nil {
		return err
	}
	return errors.Join(DeleteFile(files.PDF), DeleteFile(files.Image))
}

// DeleteFile deletes a file, a file that is already gone is not an error
func DeleteFile(filePath string) error {
	err := os.RemoveAll(filePath)
	if err != nil {
		Logger.Error("Error deleting File", "path", filePath, "error", err)
		return err
	}
	return nil
}

// pdfProcessing extracts the plain text of a PDF held in memory
func pdfProcessing(fileName string, data []byte) (fullText string, err error) {
	defer func() {
		if r := recover(); r != nil {
			Logger.Warn("Panic recovered extracting PDF text", "fileName", fileName, "panic", r)
			fullText, err = "", fmt.Errorf("unable to extract PDF text: %v", r)
		}
	}()
	Logger.Debug("Extracting text", "fileName", fileName)
	result, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		Logger.Warn("Unable to open PDF for text extraction", "fileName", fileName, "error", err)
		return "", err
	}
	var buf bytes.Buffer
	text, err := result.GetPlainText()
	if err != nil {
		Logger.Warn("Unable to convert PDF to text", "fileName", fileName, "error", err)
		return "", err
	}
	if _, err := buf.ReadFrom(text); err != nil {
		return "", err
	}
	fullText = strings.TrimSpace(buf.String())
	if fullText == "" {
		Logger.Info("PDF text result is empty", "fileName", fileName)
	}
	return fullText, nil
}

// newResumeID allocates a time ordered id for an upload
func newResumeID() (string, error) {
	id, err := database.CalculateUUID(timeNow())
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
