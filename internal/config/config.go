// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Provider modes for book archive bytes.
const (
	ProviderAuto       = "auto"
	ProviderFilesystem = "fs"
	ProviderStore      = "store"
)

// Config holds the application configuration.
type Config struct {
	App    AppConfig
	Logger LoggerConfig
	Data   DataConfig
	Server ServerConfig
	Reader ReaderConfig
	Import ImportConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds on-disk layout configuration.
type DataConfig struct {
	// BaseDir is the root for everything Lumina persists (default: ~/Lumina).
	BaseDir string
	// ProviderMode selects where archive bytes live: auto, fs, or store.
	// Auto probes whether BooksDir is writable and falls back to the store.
	ProviderMode string
}

// ServerConfig holds the local HTTP surface configuration.
type ServerConfig struct {
	Host         string
	Port         string
	UIOrigin     string // CORS origin of the desktop UI shell
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// ReaderConfig holds reader session policy knobs.
type ReaderConfig struct {
	// SurfacePollInterval and SurfacePollMaxAttempts bound the display
	// surface readiness handshake. Defaults (100ms x 50) keep the whole
	// wait under five seconds.
	SurfacePollInterval    time.Duration
	SurfacePollMaxAttempts int
	// EngineReadyTimeout bounds the wait for the engine's ready signal.
	EngineReadyTimeout time.Duration
	// ProgressDebounce is how long relocations settle before progress is persisted.
	ProgressDebounce time.Duration
	// SearchWorkers bounds the spine search fan-out.
	SearchWorkers int
}

// ImportConfig holds import pipeline configuration.
type ImportConfig struct {
	// WatchFolder enables the fsnotify watcher on {BaseDir}/import.
	WatchFolder bool
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataDir := flag.String("data-dir", "", "Base directory for Lumina data")
	providerMode := flag.String("provider", "", "Archive byte provider (auto, fs, store)")

	serverHost := flag.String("host", "", "Listen address (default: 127.0.0.1)")
	serverPort := flag.String("port", "", "Server port (default: 8765)")
	uiOrigin := flag.String("ui-origin", "", "Allowed UI origin for CORS (default: http://localhost:5173)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	surfacePollInterval := flag.String("surface-poll-interval", "", "Display surface poll interval (default: 100ms)")
	surfacePollAttempts := flag.String("surface-poll-attempts", "", "Display surface poll attempts (default: 50)")
	engineReadyTimeout := flag.String("engine-ready-timeout", "", "Engine readiness timeout (default: 10s)")
	progressDebounce := flag.String("progress-debounce", "", "Progress write debounce window (default: 1s)")
	searchWorkers := flag.String("search-workers", "", "Spine search worker count (default: 4)")

	watchFolder := flag.String("watch-import", "", "Watch {data}/import for dropped EPUBs (default: true)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BaseDir:      getConfigValue(*dataDir, "LUMINA_DATA_DIR", ""),
			ProviderMode: getConfigValue(*providerMode, "LUMINA_PROVIDER", ProviderAuto),
		},
		Server: ServerConfig{
			Host:     getConfigValue(*serverHost, "SERVER_HOST", "127.0.0.1"),
			Port:     getConfigValue(*serverPort, "SERVER_PORT", "8765"),
			UIOrigin: getConfigValue(*uiOrigin, "UI_ORIGIN", "http://localhost:5173"),
		},
		Reader: ReaderConfig{
			SurfacePollMaxAttempts: getIntConfigValue(*surfacePollAttempts, "SURFACE_POLL_ATTEMPTS", 50),
			SearchWorkers:          getIntConfigValue(*searchWorkers, "SEARCH_WORKERS", 4),
		},
		Import: ImportConfig{
			WatchFolder: getBoolConfigValue(*watchFolder, "WATCH_IMPORT", true),
		},
	}

	var err error
	if cfg.Server.ReadTimeout, err = getDurationConfigValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.WriteTimeout, err = getDurationConfigValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.IdleTimeout, err = getDurationConfigValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, err
	}
	if cfg.Reader.SurfacePollInterval, err = getDurationConfigValue(*surfacePollInterval, "SURFACE_POLL_INTERVAL", "100ms"); err != nil {
		return nil, err
	}
	if cfg.Reader.EngineReadyTimeout, err = getDurationConfigValue(*engineReadyTimeout, "ENGINE_READY_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.Reader.ProgressDebounce, err = getDurationConfigValue(*progressDebounce, "PROGRESS_DEBOUNCE", "1s"); err != nil {
		return nil, err
	}

	if err := cfg.expandBaseDir(); err != nil {
		return nil, fmt.Errorf("invalid data dir: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Derived directories under BaseDir.

// DBDir is where the badger store lives.
func (c *Config) DBDir() string { return filepath.Join(c.Data.BaseDir, "db") }

// BooksDir is where the filesystem byte provider keeps archives.
func (c *Config) BooksDir() string { return filepath.Join(c.Data.BaseDir, "books") }

// CoversDir is where extracted cover images live.
func (c *Config) CoversDir() string { return filepath.Join(c.Data.BaseDir, "covers") }

// ImportDir is the watched drop folder.
func (c *Config) ImportDir() string { return filepath.Join(c.Data.BaseDir, "import") }

// SearchDir is where the bleve index lives.
func (c *Config) SearchDir() string { return filepath.Join(c.Data.BaseDir, "search") }

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BaseDir == "" {
		return errors.New("data dir cannot be empty after expansion")
	}

	switch c.Data.ProviderMode {
	case ProviderAuto, ProviderFilesystem, ProviderStore:
	default:
		return fmt.Errorf("invalid provider mode: %s (must be auto, fs, or store)", c.Data.ProviderMode)
	}

	if c.Reader.SurfacePollInterval <= 0 {
		return errors.New("surface poll interval must be positive")
	}
	if c.Reader.SurfacePollMaxAttempts <= 0 {
		return errors.New("surface poll attempts must be positive")
	}
	if c.Reader.SearchWorkers <= 0 {
		return errors.New("search workers must be positive")
	}

	return nil
}

// expandBaseDir expands ~ and makes the path absolute, defaulting to ~/Lumina.
func (c *Config) expandBaseDir() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Lumina")

	expanded, err := expandPath(c.Data.BaseDir, defaultPath)
	if err != nil {
		return err
	}
	c.Data.BaseDir = expanded
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getDurationConfigValue returns a duration from flag, env var, or default.
func getDurationConfigValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", envKey, strValue, err)
	}
	return d, nil
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		// Env vars take precedence over the .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
