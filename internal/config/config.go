package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Auth
	DocsplitAPIKey string

	// Split output
	OutputRoot       string
	StrictConfidence bool
	SplitAtomic      bool

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// Logging
	LogLevel slog.Level

	// PDF
	PDFFallbackPdfcpu bool
}

// LoadDotenv loads path into the environment if the file exists. Variables
// already set are left alone.
func LoadDotenv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		DocsplitAPIKey: os.Getenv("DOCSPLIT_API_KEY"),

		OutputRoot:       envOr("OUTPUT_ROOT", "./data/splits"),
		StrictConfidence: envBool("STRICT_CONFIDENCE", false),
		SplitAtomic:      envBool("SPLIT_ATOMIC", false),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 104857600), // 100MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		LogLevel: envLevel("LOG_LEVEL", slog.LevelInfo),

		PDFFallbackPdfcpu: envBool("PDF_FALLBACK_PDFCPU", true),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 104857600
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

// Validate checks the settings the HTTP service needs. The CLI split and
// count commands do not call it.
func (c Config) Validate() error {
	if c.DocsplitAPIKey == "" {
		return fmt.Errorf("DOCSPLIT_API_KEY is required")
	}
	if c.OutputRoot == "" {
		return fmt.Errorf("OUTPUT_ROOT is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envLevel(key string, fallback slog.Level) slog.Level {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(v)); err != nil {
		return fallback
	}
	return l
}
