// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Database  DatabaseConfig
	Catalog   CatalogConfig
	Profile   ProfileConfig
	Inference InferenceConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DatabaseConfig holds persistence configuration.
type DatabaseConfig struct {
	// Path is the SQLite database file.
	Path string
}

// CatalogConfig holds upstream catalog API configuration.
type CatalogConfig struct {
	BaseURL  string
	APIToken string
	// PageSize is the fixed request page size (default: 100).
	PageSize int
	// PollInterval is the per-app download period (default: 12h).
	PollInterval time.Duration
	// Force triggers an immediate download run for every enabled app at startup.
	Force bool
	// DumpDir is where malformed page bodies are persisted for postmortem.
	DumpDir string
}

// ProfileConfig holds batched profile lookup configuration.
type ProfileConfig struct {
	BaseURL string
	// BatchSize caps how many ids go into one lookup call (default: 100).
	BatchSize int
	// RetryDelay is the fixed wait after a rate-limit response (default: 30s).
	RetryDelay time.Duration
	// MaxAttempts bounds rate-limit retries per batch (default: 3).
	MaxAttempts int
}

// InferenceConfig holds extraction backend configuration.
type InferenceConfig struct {
	// Enabled controls whether items are offered to the extraction backend.
	Enabled bool
	BaseURL string
	// Language is the detected language the backend is tuned for (default: English).
	Language string
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dbPath := flag.String("db-path", "", "Path to the SQLite database file")
	catalogURL := flag.String("catalog-url", "", "Base URL of the upstream catalog API")
	catalogToken := flag.String("catalog-token", "", "API token for the upstream catalog")
	pageSize := flag.String("page-size", "", "Catalog request page size (default: 100)")
	pollInterval := flag.String("poll-interval", "", "Per-app download period (default: 12h)")
	force := flag.String("force-download", "", "Force an immediate download run at startup (default: false)")
	dumpDir := flag.String("dump-dir", "", "Directory for malformed page dumps")
	profileURL := flag.String("profile-url", "", "Base URL of the profile lookup API")
	inferenceEnabled := flag.String("inference-enabled", "", "Offer items to the extraction backend (default: true)")
	inferenceURL := flag.String("inference-url", "", "Base URL of the extraction backend")
	envFile := flag.String("env-file", ".env", "Path to .env file")
	flag.Parse()

	// Load the .env file first so environment variables can override nothing
	// and flags can override everything.
	if err := loadEnvFile(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Environment: pick(*env, os.Getenv("WORKSHOP_ENV"), "development"),
		},
		Logger: LoggerConfig{
			Level: pick(*logLevel, os.Getenv("WORKSHOP_LOG_LEVEL"), "info"),
		},
		Database: DatabaseConfig{
			Path: pick(*dbPath, os.Getenv("WORKSHOP_DB_PATH"), "workshop.db"),
		},
		Catalog: CatalogConfig{
			BaseURL:  pick(*catalogURL, os.Getenv("WORKSHOP_CATALOG_URL"), "https://api.steampowered.com"),
			APIToken: pick(*catalogToken, os.Getenv("WORKSHOP_CATALOG_TOKEN"), ""),
			DumpDir:  pick(*dumpDir, os.Getenv("WORKSHOP_DUMP_DIR"), "data/bad-pages"),
		},
		Profile: ProfileConfig{
			BaseURL: pick(*profileURL, os.Getenv("WORKSHOP_PROFILE_URL"), "https://api.steampowered.com"),
		},
		Inference: InferenceConfig{
			BaseURL:  pick(*inferenceURL, os.Getenv("WORKSHOP_INFERENCE_URL"), "http://localhost:5005"),
			Language: pick("", os.Getenv("WORKSHOP_INFERENCE_LANGUAGE"), "English"),
		},
	}

	var err error
	cfg.Catalog.PageSize, err = pickInt(*pageSize, os.Getenv("WORKSHOP_PAGE_SIZE"), 100)
	if err != nil {
		return nil, fmt.Errorf("page size: %w", err)
	}
	cfg.Catalog.PollInterval, err = pickDuration(*pollInterval, os.Getenv("WORKSHOP_POLL_INTERVAL"), 12*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("poll interval: %w", err)
	}
	cfg.Catalog.Force, err = pickBool(*force, os.Getenv("WORKSHOP_FORCE_DOWNLOAD"), false)
	if err != nil {
		return nil, fmt.Errorf("force download: %w", err)
	}
	cfg.Profile.BatchSize, err = pickInt("", os.Getenv("WORKSHOP_PROFILE_BATCH_SIZE"), 100)
	if err != nil {
		return nil, fmt.Errorf("profile batch size: %w", err)
	}
	cfg.Profile.RetryDelay, err = pickDuration("", os.Getenv("WORKSHOP_PROFILE_RETRY_DELAY"), 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("profile retry delay: %w", err)
	}
	cfg.Profile.MaxAttempts, err = pickInt("", os.Getenv("WORKSHOP_PROFILE_MAX_ATTEMPTS"), 3)
	if err != nil {
		return nil, fmt.Errorf("profile max attempts: %w", err)
	}
	cfg.Inference.Enabled, err = pickBool(*inferenceEnabled, os.Getenv("WORKSHOP_INFERENCE_ENABLED"), true)
	if err != nil {
		return nil, fmt.Errorf("inference enabled: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks cross-field constraints.
func (c *Config) validate() error {
	if c.Catalog.PageSize <= 0 {
		return errors.New("catalog page size must be positive")
	}
	if c.Catalog.PollInterval <= 0 {
		return errors.New("catalog poll interval must be positive")
	}
	if c.Profile.BatchSize <= 0 {
		return errors.New("profile batch size must be positive")
	}
	if c.Profile.MaxAttempts <= 0 {
		return errors.New("profile max attempts must be positive")
	}
	return nil
}

// pick returns the first non-empty value.
func pick(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func pickInt(flagVal, envVal string, def int) (int, error) {
	if v := pick(flagVal, envVal); v != "" {
		return strconv.Atoi(v)
	}
	return def, nil
}

func pickDuration(flagVal, envVal string, def time.Duration) (time.Duration, error) {
	if v := pick(flagVal, envVal); v != "" {
		return time.ParseDuration(v)
	}
	return def, nil
}

func pickBool(flagVal, envVal string, def bool) (bool, error) {
	if v := pick(flagVal, envVal); v != "" {
		return strconv.ParseBool(v)
	}
	return def, nil
}

// loadEnvFile reads KEY=VALUE pairs into the process environment.
// Existing environment variables are not overridden.
func loadEnvFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, value)
		}
	}
	return scanner.Err()
}
