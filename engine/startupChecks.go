package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/drummonds/resumereview/config"
	"github.com/drummonds/resumereview/engine/pdfrenderer"
)

// StartupChecks performs all the checks to make sure everything works
func (serverHandler *ServerHandler) StartupChecks() error {
	if err := uploadDirectoryChecks(serverHandler.ServerConfig); err != nil {
		return err
	}
	workerChecks(serverHandler.ServerConfig)
	return nil
}

// uploadDirectoryChecks ensures the upload directory exists
func uploadDirectoryChecks(serverConfig config.ServerConfig) error {
	if serverConfig.UploadPath == "" {
		Logger.Error("Upload path not configured")
		return fmt.Errorf("upload path not configured")
	}

	uploadInfo, err := os.Stat(serverConfig.UploadPath)
	if err != nil {
		if os.IsNotExist(err) {
			Logger.Info("Creating upload directory", "path", serverConfig.UploadPath)
			err = os.MkdirAll(serverConfig.UploadPath, 0755)
			if err != nil {
				Logger.Error("Failed to create upload directory", "path", serverConfig.UploadPath, "error", err)
				return err
			}
			Logger.Info("Upload directory created successfully", "path", serverConfig.UploadPath)
			return nil
		}
		Logger.Error("Error checking upload directory", "path", serverConfig.UploadPath, "error", err)
		return err
	}

	if !uploadInfo.IsDir() {
		Logger.Error("Upload path exists but is not a directory", "path", serverConfig.UploadPath)
		return fmt.Errorf("upload path is not a directory: %s", serverConfig.UploadPath)
	}

	Logger.Info("Upload directory exists", "path", serverConfig.UploadPath)
	return nil
}

// workerChecks warns when the same-origin worker binary is not in the web root.
// It returns whether the binary was found.
func workerChecks(serverConfig config.ServerConfig) bool {
	workerPath := filepath.Join(serverConfig.WebRoot, strings.TrimPrefix(pdfrenderer.WorkerSrc, "/"))
	workerInfo, err := os.Stat(workerPath)
	if err != nil || workerInfo.IsDir() {
		if serverConfig.Engine == "pdfium" {
			Logger.Warn("PDF worker binary not found, the bundled pdfium build will be used", "path", workerPath)
		} else {
			Logger.Info("PDF worker binary not found, it is only needed by the pdfium engine", "path", workerPath)
		}
		return false
	}
	Logger.Info("PDF worker binary found", "path", workerPath, "size", workerInfo.Size())
	return true
}

// WarmEngine loads the PDF engine in the background so the first upload does not wait for it
func (serverHandler *ServerHandler) WarmEngine(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				Logger.Error("Panic recovered warming PDF engine", "panic", r)
				done <- fmt.Errorf("panic warming PDF engine: %v", r)
			}
			close(done)
		}()
		_, err := serverHandler.Loader.LoadWithRetry(ctx, serverHandler.ServerConfig.EngineLoadAttempts)
		if err != nil {
			Logger.Error("PDF engine warm up failed, conversions will retry", "error", err)
			done <- err
			return
		}
		Logger.Info("PDF engine warmed up", "engine", serverHandler.ServerConfig.Engine)
	}()
	return done
}
