package config

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "45s")
	if got := getEnvDuration("TEST_DURATION", time.Second); got != 45*time.Second {
		t.Errorf("Expected 45s, got %v", got)
	}

	t.Setenv("TEST_DURATION", "not-a-duration")
	if got := getEnvDuration("TEST_DURATION", time.Second); got != time.Second {
		t.Errorf("Expected fallback of 1s for invalid value, got %v", got)
	}

	t.Setenv("TEST_DURATION", "-5s")
	if got := getEnvDuration("TEST_DURATION", time.Second); got != time.Second {
		t.Errorf("Expected fallback of 1s for negative value, got %v", got)
	}
}

func TestLoadRendererConfig_Defaults(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	got := loadRendererConfig(logger)
	want := DefaultRendererConfig()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Renderer config mismatch (-want +got):\n%s", diff)
	}
	if got.ConversionTimeout != 30*time.Second {
		t.Errorf("Expected 30s conversion timeout, got %v", got.ConversionTimeout)
	}
	if got.EngineLoadAttempts != 3 {
		t.Errorf("Expected 3 load attempts, got %d", got.EngineLoadAttempts)
	}
}

func TestLoadRendererConfig_Overrides(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	t.Setenv("PDF_ENGINE", "fitz")
	t.Setenv("PDF_WORKERS", "4")
	t.Setenv("ENGINE_LOAD_ATTEMPTS", "0")
	t.Setenv("CONVERSION_TIMEOUT", "10s")

	got := loadRendererConfig(logger)
	if got.Engine != "fitz" {
		t.Errorf("Expected fitz engine, got %s", got.Engine)
	}
	if got.Workers != 4 {
		t.Errorf("Expected 4 workers, got %d", got.Workers)
	}
	if got.EngineLoadAttempts != 3 {
		t.Errorf("Expected invalid attempt count to fall back to 3, got %d", got.EngineLoadAttempts)
	}
	if got.ConversionTimeout != 10*time.Second {
		t.Errorf("Expected 10s timeout, got %v", got.ConversionTimeout)
	}
}

func TestLoadRendererConfig_UnknownEngine(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	t.Setenv("PDF_ENGINE", "ghostscript")

	got := loadRendererConfig(logger)
	if got.Engine != "pdfium" {
		t.Errorf("Expected unknown engine to fall back to pdfium, got %s", got.Engine)
	}
}
