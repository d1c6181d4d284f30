// Package config loads kellyfolio's runtime configuration from environment
// variables (with optional .env file support for local development), the
// same pattern the rest of the service uses for startup-time configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the full set of environment-sourced runtime settings.
type Config struct {
	// Port is the HTTP bind port for the allocate/analyze facade.
	Port int
	// LogLevel names a zerolog level ("debug", "info", "warn", "error").
	LogLevel string
	// DevMode enables pretty (human-readable) log output and permissive CORS.
	DevMode bool

	// DataDir is where the run-history SQLite database lives.
	DataDir string

	// ArchiveBucket, when non-empty, enables S3 response archival.
	ArchiveBucket string
	// ArchivePrefix is prepended to every archived object key.
	ArchivePrefix string
	// AWSRegion is the region used for the S3 client when archival is enabled.
	AWSRegion string

	// SolverTolerance, RelaxationFactor, and MaxIterations override the
	// solver's numerical defaults when set to a positive value.
	SolverTolerance  float64
	RelaxationFactor float64
	MaxIterations    int

	// RecomputeCronSchedule is a standard 5-field cron expression for the
	// scheduled-recomputation job. Empty disables scheduling.
	RecomputeCronSchedule string
}

// Load reads configuration from a .env file (if present) and the process
// environment. An optional dataDir argument, when non-empty, takes
// precedence over DATA_DIR/KELLYFOLIO_DATA_DIR for the data directory —
// mirroring a CLI flag overriding its environment-variable equivalent. The
// resolved data directory is created if it does not already exist.
func Load(dataDir ...string) (*Config, error) {
	_ = godotenv.Load() // optional; missing .env is not an error

	cfg := &Config{
		Port:                  getEnvInt("PORT", 8080),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		DevMode:               getEnvBool("DEV_MODE", false),
		ArchiveBucket:         getEnv("ARCHIVE_BUCKET", ""),
		ArchivePrefix:         getEnv("ARCHIVE_PREFIX", "runs/"),
		AWSRegion:             getEnv("AWS_REGION", "us-east-1"),
		SolverTolerance:       getEnvFloat("SOLVER_TOLERANCE", 0),
		RelaxationFactor:      getEnvFloat("RELAXATION_FACTOR", 0),
		MaxIterations:         getEnvInt("MAX_ITERATIONS", 0),
		RecomputeCronSchedule: getEnv("RECOMPUTE_CRON_SCHEDULE", ""),
	}

	resolvedDataDir := ""
	if len(dataDir) > 0 && dataDir[0] != "" {
		resolvedDataDir = dataDir[0]
	} else if v := os.Getenv("KELLYFOLIO_DATA_DIR"); v != "" {
		resolvedDataDir = v
	} else if v := os.Getenv("DATA_DIR"); v != "" {
		resolvedDataDir = v
	} else {
		resolvedDataDir = "./data"
	}

	absDataDir, err := filepath.Abs(resolvedDataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg.DataDir = absDataDir
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
