// Package config provides cache configuration management with support for
// environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the cache configuration.
type Config struct {
	App        AppConfig
	Logger     LoggerConfig
	Store      StoreConfig
	Sync       SyncConfig
	Pagination PaginationConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StoreConfig holds local entity store configuration.
type StoreConfig struct {
	// Path is the directory of the Badger database.
	Path string
	// InMemory opens the store without a backing directory. Used by tests
	// and throwaway sessions; all data is lost on close.
	InMemory bool
}

// SyncConfig holds sync-freshness configuration.
type SyncConfig struct {
	// TTL is the freshness window granted to locally written records
	// before the sync layer should consider them stale.
	TTL time.Duration
}

// PaginationConfig holds list slicing bounds.
type PaginationConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	storePath := flag.String("store-path", "", "Directory for the local entity store")
	syncTTL := flag.String("sync-ttl", "", "Freshness window for locally written records (e.g., 5m)")
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
		Store: StoreConfig{
			Path:     getConfigValue(*storePath, "STORE_PATH", ""),
			InMemory: getBoolConfigValue("", "STORE_IN_MEMORY", false),
		},
		Pagination: PaginationConfig{
			DefaultLimit: getIntConfigValue("", "PAGE_DEFAULT_LIMIT", 50),
			MaxLimit:     getIntConfigValue("", "PAGE_MAX_LIMIT", 200),
		},
	}

	ttlStr := getConfigValue(*syncTTL, "SYNC_TTL", "5m")
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid sync ttl %q: %w", ttlStr, err)
	}
	cfg.Sync.TTL = ttl

	if err := cfg.expandStorePath(); err != nil {
		return nil, fmt.Errorf("invalid store path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

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

	if !c.Store.InMemory && c.Store.Path == "" {
		return errors.New("store path cannot be empty after expansion")
	}

	if c.Sync.TTL <= 0 {
		return errors.New("sync ttl must be positive")
	}

	if c.Pagination.DefaultLimit <= 0 || c.Pagination.MaxLimit < c.Pagination.DefaultLimit {
		return fmt.Errorf("invalid pagination bounds: default %d, max %d",
			c.Pagination.DefaultLimit, c.Pagination.MaxLimit)
	}

	return nil
}

// expandStorePath expands ~ and makes the path absolute.
// Defaults to ~/.mesh-cache/db when unset.
func (c *Config) expandStorePath() error {
	if c.Store.InMemory {
		return nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, ".mesh-cache", "db")

	expanded, err := expandPath(c.Store.Path, defaultPath)
	if err != nil {
		return err
	}
	c.Store.Path = expanded
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

// getBoolConfigValue returns the first parseable value from flag, env var, or default.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	if flagValue != "" {
		if b, err := strconv.ParseBool(flagValue); err == nil {
			return b
		}
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		if b, err := strconv.ParseBool(envValue); err == nil {
			return b
		}
	}
	return defaultValue
}

// getIntConfigValue returns the first parseable value from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	if flagValue != "" {
		if n, err := strconv.Atoi(flagValue); err == nil {
			return n
		}
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		if n, err := strconv.Atoi(envValue); err == nil {
			return n
		}
	}
	return defaultValue
}

// loadEnvFile loads KEY=VALUE pairs from a file into the environment.
// Existing environment variables are never overwritten.
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

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
	return scanner.Err()
}
