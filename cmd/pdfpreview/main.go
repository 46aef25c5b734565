package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	config "github.com/drummonds/resumereview/config"
	"github.com/drummonds/resumereview/engine/blobstore"
	"github.com/drummonds/resumereview/engine/pdfrenderer"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

func main() {
	engineName := flag.String("engine", "pdfium", "PDF engine to render with (pdfium or fitz)")
	webRoot := flag.String("webroot", "public", "Directory holding pdfium.worker.wasm")
	outDir := flag.String("out", ".", "Directory to write the preview image to")
	timeout := flag.Duration("timeout", pdfrenderer.DefaultTimeout, "Conversion timeout")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: pdfpreview [flags] resume.pdf")
		flag.PrintDefaults()
		os.Exit(2)
	}

	Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	config.Logger = Logger
	pdfrenderer.Logger = Logger

	if err := run(flag.Arg(0), pdfrenderer.ImporterFor(*engineName), *webRoot, *outDir, *timeout); err != nil {
		fmt.Fprintln(os.Stderr, "pdfpreview:", err)
		os.Exit(1)
	}
}

// run renders the first page of path into outDir
func run(path string, importer pdfrenderer.Importer, webRoot, outDir string, timeout time.Duration) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	loader := pdfrenderer.NewLoader(importer, pdfrenderer.WithWorkerRoot(webRoot))
	blobs := blobstore.New()
	converter := pdfrenderer.NewConverter(loader, blobs)
	converter.Timeout = timeout

	mediaType := ""
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		mediaType = "application/pdf"
	}
	result := converter.ConvertPdfToImage(context.Background(), pdfrenderer.NewFileSource(filepath.Base(path), mediaType, data))
	if !result.OK() {
		return fmt.Errorf("%s", result.Error)
	}
	defer blobs.RevokeObjectURL(result.ImageURL)

	target := filepath.Join(outDir, result.File.Name())
	if err := os.WriteFile(target, result.File.Data, 0644); err != nil {
		return err
	}
	fmt.Printf("%s (%d bytes)\n", target, result.File.Size())
	return nil
}
