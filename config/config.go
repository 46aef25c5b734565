package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// ServerConfig contains all of the server settings
type ServerConfig struct {
	ListenAddrIP     string
	ListenAddrPort   string
	DatabaseType     string
	DatabaseHost     string
	DatabasePort     string
	DatabaseUser     string
	DatabasePassword string `json:"-"`
	DatabaseDbname   string
	DatabaseSslmode  string
	UploadPath       string // absolute path where resumes and previews are written
	WebRoot          string // absolute path of the static web root, holds the worker binary
	MaxUploadMB      int
	RendererConfig
}

// RendererConfig stores the PDF renderer settings
type RendererConfig struct {
	Engine             string // pdfium or fitz
	Workers            int
	EngineLoadAttempts int
	EngineRetryDelay   time.Duration
	ConversionTimeout  time.Duration
	BlobTTL            time.Duration
	BlobSweepInterval  time.Duration
}

// DefaultRendererConfig returns the renderer settings used when nothing is configured
func DefaultRendererConfig() RendererConfig {
	return RendererConfig{
		Engine:             "pdfium",
		Workers:            1,
		EngineLoadAttempts: 3,
		EngineRetryDelay:   time.Second,
		ConversionTimeout:  30 * time.Second,
		BlobTTL:            30 * time.Minute,
		BlobSweepInterval:  5 * time.Minute,
	}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolVal
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intVal
}

// getEnvDuration gets a duration environment variable (eg "30s") with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

// absPath resolves a configured path, falling back to the raw value on error
func absPath(logger *slog.Logger, name, value string) string {
	abs, err := filepath.Abs(filepath.ToSlash(value))
	if err != nil {
		logger.Error("Failed creating absolute path", "setting", name, "path", value, "error", err)
		return value
	}
	return abs
}

// SetupServer loads configuration and returns ServerConfig and Logger
func SetupServer() (ServerConfig, *slog.Logger) {
	serverConfigLive := ServerConfig{}

	// Load .env file (silently ignore if doesn't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("config.env")

	logger := setupLogging()
	Logger = logger

	// Server configuration
	serverConfigLive.ListenAddrPort = getEnv("SERVER_PORT", "8000")
	serverConfigLive.ListenAddrIP = getEnv("SERVER_ADDR", "")

	// Database configuration
	serverConfigLive.DatabaseType = getEnv("DATABASE_TYPE", "sqlite")
	serverConfigLive.DatabaseHost = getEnv("DATABASE_HOST", "localhost")
	serverConfigLive.DatabasePort = getEnv("DATABASE_PORT", "5432")
	serverConfigLive.DatabaseUser = getEnv("DATABASE_USER", "resumereview")
	serverConfigLive.DatabasePassword = getEnv("DATABASE_PASSWORD", "")
	serverConfigLive.DatabaseDbname = getEnv("DATABASE_NAME", "databases/resumereview.sqlite")
	serverConfigLive.DatabaseSslmode = getEnv("DATABASE_SSLMODE", "disable")

	logger.Info("Database configuration loaded", "type", serverConfigLive.DatabaseType)

	// Storage configuration
	serverConfigLive.UploadPath = absPath(logger, "UPLOAD_PATH", getEnv("UPLOAD_PATH", "uploads"))
	serverConfigLive.WebRoot = absPath(logger, "WEB_ROOT", getEnv("WEB_ROOT", "public"))
	serverConfigLive.MaxUploadMB = getEnvInt("MAX_UPLOAD_MB", 20)
	if serverConfigLive.MaxUploadMB < 1 {
		serverConfigLive.MaxUploadMB = 20
	}

	serverConfigLive.RendererConfig = loadRendererConfig(logger)

	fmt.Println("\n========================================")
	fmt.Println("   resumereview - Resume Review Service")
	fmt.Println("========================================")
	fmt.Printf("Server will start on: %s:%s\n", serverConfigLive.ListenAddrIP, serverConfigLive.ListenAddrPort)
	if serverConfigLive.ListenAddrIP == "" {
		fmt.Println("(Listening on all network interfaces)")
	}
	fmt.Printf("Detailed logs: %s\n", getEnv("LOG_FILE", "resumereview.log"))
	fmt.Println("Initializing...")

	return serverConfigLive, logger
}

// loadRendererConfig reads the PDF renderer settings on top of the defaults
func loadRendererConfig(logger *slog.Logger) RendererConfig {
	defaults := DefaultRendererConfig()
	rendererConfig := RendererConfig{
		Engine:             getEnv("PDF_ENGINE", defaults.Engine),
		Workers:            getEnvInt("PDF_WORKERS", defaults.Workers),
		EngineLoadAttempts: getEnvInt("ENGINE_LOAD_ATTEMPTS", defaults.EngineLoadAttempts),
		EngineRetryDelay:   getEnvDuration("ENGINE_RETRY_DELAY", defaults.EngineRetryDelay),
		ConversionTimeout:  getEnvDuration("CONVERSION_TIMEOUT", defaults.ConversionTimeout),
		BlobTTL:            getEnvDuration("BLOB_TTL", defaults.BlobTTL),
		BlobSweepInterval:  getEnvDuration("BLOB_SWEEP_INTERVAL", defaults.BlobSweepInterval),
	}
	if rendererConfig.Engine != "pdfium" && rendererConfig.Engine != "fitz" {
		logger.Warn("Unknown PDF engine, falling back to pdfium", "engine", rendererConfig.Engine)
		rendererConfig.Engine = "pdfium"
	}
	if rendererConfig.Workers < 1 {
		rendererConfig.Workers = defaults.Workers
	}
	if rendererConfig.EngineLoadAttempts < 1 {
		rendererConfig.EngineLoadAttempts = defaults.EngineLoadAttempts
	}
	if getEnvBool("PDF_WORKERS_PER_CPU", false) {
		logger.Info("PDF_WORKERS_PER_CPU is set, ignoring PDF_WORKERS")
		rendererConfig.Workers = runtime.NumCPU()
	}
	logger.Info("Renderer configuration loaded",
		"engine", rendererConfig.Engine,
		"workers", rendererConfig.Workers,
		"timeout", rendererConfig.ConversionTimeout)
	return rendererConfig
}

// setupLogging configures the application logger
func setupLogging() *slog.Logger {
	logLevel := getEnv("LOG_LEVEL", "debug")
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelDebug
	}

	handlerOptions := &slog.HandlerOptions{Level: level}

	logOutput := getEnv("LOG_OUTPUT", "file")
	var logWriter io.Writer

	if logOutput == "stdout" {
		logWriter = os.Stdout
	} else {
		logPath, err := filepath.Abs(filepath.ToSlash(getEnv("LOG_FILE", "resumereview.log")))
		if err != nil {
			fmt.Printf("Error creating log file path: %v\n", err)
			logWriter = os.Stdout
		} else {
			logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err != nil {
				fmt.Printf("Failed to open log file: %v\n", err)
				logWriter = os.Stdout
			} else {
				logWriter = logFile
				fmt.Println("Logging to file: ", logPath)
			}
		}
	}

	handler := slog.NewTextHandler(logWriter, handlerOptions)
	return slog.New(handler)
}
