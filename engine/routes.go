package engine

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/drummonds/resumereview/config"
	"github.com/drummonds/resumereview/database"
	"github.com/drummonds/resumereview/engine/blobstore"
	"github.com/drummonds/resumereview/engine/pdfrenderer"
	"github.com/labstack/echo/v4"
)

var timeNow = time.Now

// ServerHandler will inject the variables needed into routes
type ServerHandler struct {
	DB           database.Repository
	Echo         *echo.Echo
	ServerConfig config.ServerConfig
	Loader       *pdfrenderer.Loader
	Converter    *pdfrenderer.Converter
	Blobs        *blobstore.Store
}

// NewServerHandler wires the renderer and object URL store from the server config
func NewServerHandler(db database.Repository, e *echo.Echo, serverConfig config.ServerConfig) *ServerHandler {
	renderer := serverConfig.RendererConfig
	loader := pdfrenderer.NewLoader(pdfrenderer.ImporterFor(renderer.Engine),
		pdfrenderer.WithWorkerRoot(serverConfig.WebRoot),
		pdfrenderer.WithWorkers(renderer.Workers),
		pdfrenderer.WithRetryDelay(renderer.EngineRetryDelay),
	)
	blobs := blobstore.New()
	converter := pdfrenderer.NewConverter(loader, blobs)
	converter.LoadAttempts = renderer.EngineLoadAttempts
	converter.Timeout = renderer.ConversionTimeout
	return &ServerHandler{
		DB:           db,
		Echo:         e,
		ServerConfig: serverConfig,
		Loader:       loader,
		Converter:    converter,
		Blobs:        blobs,
	}
}

// AddRoutes registers every API and file route on the echo server
func (serverHandler *ServerHandler) AddRoutes() {
	e := serverHandler.Echo

	// API routes
	e.POST("/api/convert", serverHandler.ConvertPdf)
	e.POST("/api/resume/upload", serverHandler.UploadResume)
	e.GET("/api/resume/:id", serverHandler.GetResume)
	e.DELETE("/api/resume/:id", serverHandler.DeleteResume)
	e.GET("/api/resumes", serverHandler.GetResumes)
	e.GET("/api/health", serverHandler.GetHealth)

	// File routes, not JSON so not under /api/*
	e.GET("/resume/:id/pdf", serverHandler.GetResumePdf)
	e.GET("/resume/:id/image", serverHandler.GetResumeImage)
	e.GET(blobstore.URLPrefix+":id", serverHandler.GetBlob)
	e.DELETE(blobstore.URLPrefix+":id", serverHandler.RevokeBlob)
	e.GET(pdfrenderer.WorkerSrc, serverHandler.GetWorker)
}

// ConvertPdf renders the first page of the uploaded PDF to a PNG behind an object URL
// @Summary Convert a PDF to a preview image
// @Description Render page one of the uploaded PDF at 2x scale. Failures are reported in the error field.
// @Tags Convert
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "PDF to convert"
// @Success 200 {object} pdfrenderer.ConversionResult "Conversion result"
// @Failure 400 {object} map[string]interface{} "No file uploaded"
// @Router /convert [post]
func (serverHandler *ServerHandler) ConvertPdf(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "No file uploaded",
		})
	}
	result := serverHandler.Converter.ConvertPdfToImage(c.Request().Context(), pdfrenderer.MultipartSource{Header: fileHeader})
	return c.JSON(http.StatusOK, result)
}

// UploadResume converts, stores and records an uploaded resume
// @Summary Upload a resume
// @Description Store the resume PDF, its preview image and extracted text
// @Tags Resumes
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Resume PDF"
// @Param companyName formData string false "Company name"
// @Param jobTitle formData string false "Job title"
// @Param jobDescription formData string false "Job description"
// @Success 200 {object} database.Resume "Stored resume"
// @Failure 400 {object} map[string]interface{} "No file uploaded"
// @Failure 422 {object} map[string]interface{} "Conversion failed"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /resume/upload [post]
func (serverHandler *ServerHandler) UploadResume(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "No file uploaded",
		})
	}
	source := pdfrenderer.MultipartSource{Header: fileHeader}

	Logger.Info("Converting resume", "fileName", fileHeader.Filename)
	result := serverHandler.Converter.ConvertPdfToImage(c.Request().Context(), source)
	if !result.OK() {
		return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
			"error": result.Error,
		})
	}
	// The preview is written to disk, the object URL is not needed past this request
	defer serverHandler.Blobs.RevokeObjectURL(result.ImageURL)

	pdfData, err := readSource(source)
	if err != nil {
		Logger.Error("Unable to read uploaded resume", "fileName", fileHeader.Filename, "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse(err))
	}

	id, err := newResumeID()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse(err))
	}
	if _, err := serverHandler.storeResume(id, pdfData, result.File); err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse(err))
	}

	resumeText, err := pdfProcessing(fileHeader.Filename, pdfData)
	if err != nil {
		resumeText = "" // a preview without text is still useful
	}

	resume := database.Resume{
		ID:             id,
		CompanyName:    c.FormValue("companyName"),
		JobTitle:       c.FormValue("jobTitle"),
		JobDescription: c.FormValue("jobDescription"),
		ImagePath:      "/resume/" + id + "/image",
		ResumePath:     "/resume/" + id + "/pdf",
		ResumeText:     resumeText,
		UploadedAt:     timeNow().UTC(),
	}
	if err := database.SaveResume(&resume, serverHandler.DB); err != nil {
		serverHandler.removeResumeFiles(id)
		return c.JSON(http.StatusInternalServerError, errorResponse(err))
	}
	Logger.Info("Resume stored", "id", id, "fileName", fileHeader.Filename)
	return c.JSON(http.StatusOK, resume)
}

// GetResume will return a resume by id
// @Summary Get a resume by ID
// @Tags Resumes
// @Produce json
// @Param id path string true "Resume ULID"
// @Success 200 {object} database.Resume "Resume details"
// @Failure 404 {object} map[string]interface{} "Resume not found"
// @Router /resume/{id} [get]
func (serverHandler *ServerHandler) GetResume(c echo.Context) error {
	id := c.Param("id")
	resume, httpStatus, err := database.FetchResume(id, serverHandler.DB)
	if err != nil {
		Logger.Error("GetResume API call failed", "id", id, "error", err)
		return c.JSON(httpStatus, map[string]interface{}{
			"error": err.Error(),
		})
	}
	return c.JSON(httpStatus, resume)
}

// GetResumes returns every stored resume, newest first
func (serverHandler *ServerHandler) GetResumes(c echo.Context) error {
	resumes, err := database.FetchAllResumes(serverHandler.DB)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to list resumes",
		})
	}
	return c.JSON(http.StatusOK, resumes)
}

// DeleteResume removes a resume record and its files
func (serverHandler *ServerHandler) DeleteResume(c echo.Context) error {
	id := c.Param("id")
	if err := database.DeleteResume(id, serverHandler.DB); err != nil {
		if errors.Is(err, database.ErrResumeNotFound) {
			return c.JSON(http.StatusNotFound, map[string]interface{}{
				"error": err.Error(),
			})
		}
		Logger.Error("Unable to delete resume", "id", id, "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse(err))
	}
	if err := serverHandler.removeResumeFiles(id); err != nil {
		Logger.Warn("Resume deleted but files remain", "id", id, "error", err)
	}
	return c.JSON(http.StatusOK, "Resume Deleted")
}

// GetResumePdf serves the stored resume PDF
func (serverHandler *ServerHandler) GetResumePdf(c echo.Context) error {
	return serverHandler.serveResumeFile(c, func(files resumeFiles) string { return files.PDF })
}

// GetResumeImage serves the stored preview image
func (serverHandler *ServerHandler) GetResumeImage(c echo.Context) error {
	return serverHandler.serveResumeFile(c, func(files resumeFiles) string { return files.Image })
}

func (serverHandler *ServerHandler) serveResumeFile(c echo.Context, pick func(resumeFiles) string) error {
	id := c.Param("id")
	if _, httpStatus, err := database.FetchResume(id, serverHandler.DB); err != nil {
		return c.JSON(httpStatus, map[string]interface{}{
			"error": err.Error(),
		})
	}
	files, err := serverHandler.resumeFiles(id)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": err.Error(),
		})
	}
	return c.File(pick(files))
}

// GetBlob serves the data behind an object URL
func (serverHandler *ServerHandler) GetBlob(c echo.Context) error {
	blob, ok := serverHandler.Blobs.Get(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "Object URL not found or revoked",
		})
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Blob(http.StatusOK, blob.MediaType, blob.Data)
}

// RevokeBlob releases an object URL once the caller has finished with it
func (serverHandler *ServerHandler) RevokeBlob(c echo.Context) error {
	if !serverHandler.Blobs.RevokeObjectURL(blobstore.URLPrefix + c.Param("id")) {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "Object URL not found or revoked",
		})
	}
	return c.NoContent(http.StatusNoContent)
}

// GetWorker serves the rendering worker binary from the web root
func (serverHandler *ServerHandler) GetWorker(c echo.Context) error {
	workerPath := filepath.Join(serverHandler.ServerConfig.WebRoot, strings.TrimPrefix(pdfrenderer.WorkerSrc, "/"))
	c.Response().Header().Set(echo.HeaderContentType, "application/wasm")
	return c.File(workerPath)
}

// GetHealth reports the engine load state
// @Summary Health check
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]interface{} "Engine and store status"
// @Router /health [get]
func (serverHandler *ServerHandler) GetHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"engine":      serverHandler.ServerConfig.Engine,
		"engineState": serverHandler.Loader.State().String(),
		"objectUrls":  serverHandler.Blobs.Len(),
	})
}

// errorResponse is the JSON body for a failed request
func errorResponse(err error) map[string]interface{} {
	return map[string]interface{}{
		"error": err.Error(),
	}
}

func readSource(source pdfrenderer.Source) ([]byte, error) {
	reader, err := source.Open()
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}
