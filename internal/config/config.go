package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shelfdesk/lms-client/internal/logger"
)

const (
	// DefaultPageSize is the number of books shown per catalog page
	DefaultPageSize = 9
	// DefaultAdminPageSize is the number of rows in the category table
	DefaultAdminPageSize = 6
	// DefaultBorrowDayLimit applies when the backend does not publish one
	DefaultBorrowDayLimit = 14
)

// Config holds all configuration for the client
type Config struct {
	// Backend API
	API struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"api"`

	// Logging configuration
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	// Catalog browsing
	Catalog struct {
		PageSize int           `yaml:"page_size"`
		CacheTTL time.Duration `yaml:"cache_ttl"`
	} `yaml:"catalog"`

	// Category administration
	Admin struct {
		PageSize int `yaml:"page_size"`
	} `yaml:"admin"`

	// Borrowing
	Borrow struct {
		DefaultDayLimit int `yaml:"default_day_limit"`
	} `yaml:"borrow"`

	// Local persisted state
	Storage struct {
		Path          string `yaml:"path"`
		EncryptionKey string `yaml:"encryption_key"`
	} `yaml:"storage"`
}

// Defaults returns a configuration populated with default values only
func Defaults() *Config {
	cfg := &Config{}
	cfg.API.Timeout = 30 * time.Second
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "console"
	cfg.Catalog.PageSize = DefaultPageSize
	cfg.Catalog.CacheTTL = 5 * time.Minute
	cfg.Admin.PageSize = DefaultAdminPageSize
	cfg.Borrow.DefaultDayLimit = DefaultBorrowDayLimit
	cfg.Storage.Path = "./data/lms-client.db"
	return cfg
}

// Load loads configuration from a file (if specified) and environment variables.
// Priority: 1) environment variables, 2) config file, 3) defaults.
// Command line flags are applied by the caller on top of the result.
func Load(configFile string) (*Config, error) {
	log := logger.Get().Component("config")
	cfg := Defaults()

	if configFile != "" {
		fileCfg, err := LoadFromFile(configFile)
		if err != nil {
			return nil, err
		}
		mergeConfigs(cfg, fileCfg)
		log.Debug("Loaded configuration file", map[string]interface{}{
			"path": configFile,
		})
	}

	loadFromEnv(cfg)
	cfg.API.BaseURL = strings.TrimSuffix(cfg.API.BaseURL, "/")

	log.Debug("Configuration resolved", map[string]interface{}{
		"api_base_url":   cfg.API.BaseURL,
		"api_timeout":    cfg.API.Timeout.String(),
		"page_size":      cfg.Catalog.PageSize,
		"storage_path":   cfg.Storage.Path,
		"has_encryption": cfg.Storage.EncryptionKey != "",
	})

	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	if !filepath.IsAbs(path) {
		abspath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = abspath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	var missing []string

	if c.API.BaseURL == "" {
		missing = append(missing, "LMS_API_BASE_URL")
	}

	if len(missing) > 0 {
		return &ConfigError{
			Field: strings.Join(missing, ", "),
			Msg:   "required configuration values are missing",
		}
	}

	if c.Catalog.PageSize <= 0 {
		return &ConfigError{Field: "catalog.page_size", Msg: "must be positive"}
	}
	if c.Admin.PageSize <= 0 {
		return &ConfigError{Field: "admin.page_size", Msg: "must be positive"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Field + " " + e.Msg
}

// loadFromEnv loads configuration from environment variables
func loadFromEnv(cfg *Config) {
	if url := os.Getenv("LMS_API_BASE_URL"); url != "" {
		cfg.API.BaseURL = url
	}
	if timeout := getDurationFromEnv("LMS_API_TIMEOUT", 0); timeout > 0 {
		cfg.API.Timeout = timeout
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}

	if pageSize := getIntFromEnv("LMS_PAGE_SIZE", 0); pageSize > 0 {
		cfg.Catalog.PageSize = pageSize
	}
	if ttl := getDurationFromEnv("LMS_CACHE_TTL", 0); ttl > 0 {
		cfg.Catalog.CacheTTL = ttl
	}
	if pageSize := getIntFromEnv("LMS_ADMIN_PAGE_SIZE", 0); pageSize > 0 {
		cfg.Admin.PageSize = pageSize
	}

	if path := os.Getenv("LMS_STORAGE_PATH"); path != "" {
		cfg.Storage.Path = path
	}
	if key := os.Getenv("LMS_ENCRYPTION_KEY"); key != "" {
		cfg.Storage.EncryptionKey = key
	}
}

func getIntFromEnv(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		i, err := strconv.Atoi(value)
		if err != nil {
			logger.Get().Warn("Failed to parse int from env var", map[string]interface{}{
				"var":   key,
				"error": err.Error(),
			})
			return fallback
		}
		return i
	}
	return fallback
}

// getDurationFromEnv reads a duration from an environment variable or returns a default value
func getDurationFromEnv(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(value)
		if err != nil {
			logger.Get().Warn("Failed to parse duration from env var", map[string]interface{}{
				"var":   key,
				"error": err.Error(),
			})
			return fallback
		}
		return d
	}
	return fallback
}

// mergeConfigs merges non-zero values from src into dst
func mergeConfigs(dst, src *Config) {
	mergeValue(reflect.ValueOf(dst).Elem(), reflect.ValueOf(src).Elem())
}

func mergeValue(dst, src reflect.Value) {
	for i := 0; i < dst.NumField(); i++ {
		dstField := dst.Field(i)
		srcField := src.Field(i)

		if !dstField.CanSet() {
			continue
		}

		switch dstField.Kind() {
		case reflect.Struct:
			mergeValue(dstField, srcField)
		case reflect.String:
			if srcField.String() != "" {
				dstField.SetString(srcField.String())
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if srcField.Int() != 0 {
				dstField.SetInt(srcField.Int())
			}
		case reflect.Float32, reflect.Float64:
			if srcField.Float() != 0 {
				dstField.SetFloat(srcField.Float())
			}
		case reflect.Bool:
			if srcField.Bool() {
				dstField.SetBool(true)
			}
		}
	}
}
