package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the dashboard sync engine
type Config struct {
	// Graph API settings
	API APIConfig `yaml:"api" json:"api"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Sync flow settings
	Sync SyncConfig `yaml:"sync" json:"sync"`

	// Local storage settings
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// APIConfig holds Graph API client configuration
type APIConfig struct {
	BaseURL string        `yaml:"base_url" json:"base_url"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// RateLimitConfig holds the rolling-window call budget
type RateLimitConfig struct {
	MaxCalls int           `yaml:"max_calls" json:"max_calls"`
	Window   time.Duration `yaml:"window" json:"window"`
}

// SyncConfig holds page depths for the sync flows
type SyncConfig struct {
	ShallowPages int `yaml:"shallow_pages" json:"shallow_pages"`
	DeepPages    int `yaml:"deep_pages" json:"deep_pages"`
	PageSize     int `yaml:"page_size" json:"page_size"`
}

// StorageConfig holds local data directory settings
type StorageConfig struct {
	DataDirectory string `yaml:"data_directory" json:"data_directory"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "https://graph.instagram.com",
			Timeout: 30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			MaxCalls: 180, // provider allows 200, keep a margin
			Window:   time.Hour,
		},
		Sync: SyncConfig{
			ShallowPages: 2,
			DeepPages:    4,
			PageSize:     25,
		},
		Storage: StorageConfig{
			DataDirectory: "",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if baseURL := os.Getenv("IGDASH_API_BASE_URL"); baseURL != "" {
		c.API.BaseURL = baseURL
	}
	if timeout := os.Getenv("IGDASH_API_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			c.API.Timeout = d
		}
	}
	if maxCalls := os.Getenv("IGDASH_RATE_MAX_CALLS"); maxCalls != "" {
		if val, err := strconv.Atoi(maxCalls); err == nil && val > 0 {
			c.RateLimit.MaxCalls = val
		}
	}
	if dataDir := os.Getenv("IGDASH_DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
	}
	if logLevel := os.Getenv("IGDASH_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".igdash.yaml",
		".igdash.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "igdash", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "igdash", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".igdash.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("API base URL is required"))
	} else if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		errs = append(errs, errors.New("API base URL must be an http(s) URL"))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("API timeout must be positive"))
	}

	if c.RateLimit.MaxCalls <= 0 {
		errs = append(errs, errors.New("max calls must be positive"))
	}
	if c.RateLimit.MaxCalls > 200 {
		errs = append(errs, errors.New("max calls exceeds the provider's 200-call ceiling"))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate window must be positive"))
	}

	if c.Sync.ShallowPages <= 0 || c.Sync.DeepPages <= 0 {
		errs = append(errs, errors.New("sync page depths must be positive"))
	}
	if c.Sync.DeepPages < c.Sync.ShallowPages {
		errs = append(errs, errors.New("deep page depth must be at least the shallow depth"))
	}
	if c.Sync.PageSize <= 0 || c.Sync.PageSize > 25 {
		errs = append(errs, errors.New("page size must be between 1 and 25"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DataDirectory resolves the directory for durable local state (document
// store, rate-limit window). An explicit setting wins; otherwise the
// OS-appropriate data directory is used.
func (c *Config) DataDirectory() (string, error) {
	if c.Storage.DataDirectory != "" {
		return c.Storage.DataDirectory, nil
	}

	var dataDir string
	switch runtime.GOOS {
	case "linux":
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "igdash")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "igdash")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "igdash")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "igdash")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	return dataDir, nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if baseURL, ok := flags["api-base-url"].(string); ok && baseURL != "" {
		c.API.BaseURL = baseURL
	}
	if dataDir, ok := flags["data-dir"].(string); ok && dataDir != "" {
		c.Storage.DataDirectory = dataDir
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igdash.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
