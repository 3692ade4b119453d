package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"datalens/internal/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Config represents the complete application configuration
type Config struct {
	Backend   BackendConfig
	State     StateConfig
	UI        UIConfig
	DevServer DevServerConfig
	Log       LogConfig
}

// BackendConfig holds the dataset API connection settings
type BackendConfig struct {
	BaseURL string `validate:"required,url"`
	Token   string
	// Timeout of 0 leaves requests unbounded.
	Timeout time.Duration `validate:"gte=0"`
}

// StateConfig selects where notes and tour progress are kept
type StateConfig struct {
	Backend     string `validate:"required,oneof=memory badger postgres"`
	BadgerPath  string `validate:"required_if=Backend badger"`
	DatabaseURL string `validate:"required_if=Backend postgres"`
}

// UIConfig holds workspace interaction settings
type UIConfig struct {
	FilterDebounce time.Duration `validate:"gt=0"`
	NotesDebounce  time.Duration `validate:"gt=0"`
	ChartWidth     int           `validate:"gte=200"`
	ChartHeight    int           `validate:"gte=150"`
	ExportDir      string        `validate:"required"`
}

// DevServerConfig holds settings for the local backend stand-in
type DevServerConfig struct {
	Port       string `validate:"required,numeric"`
	DataDir    string `validate:"required"`
	Restricted []string
	// Key is the hex AES-256 key for downloads; random per run when empty
	Key     string `validate:"omitempty,hexadecimal,len=64"`
	GinMode string `validate:"omitempty,oneof=debug release test"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string
	File  string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Backend:   loadBackendConfig(),
		State:     loadStateConfig(),
		UI:        loadUIConfig(),
		DevServer: loadDevServerConfig(),
		Log: LogConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "INFO"),
			File:  getEnvOrDefault("LOG_FILE", ""),
		},
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct constraints on cfg
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return errors.Wrap(errors.ConfigInvalid(err.Error()), "configuration validation failed")
	}
	return nil
}

func loadBackendConfig() BackendConfig {
	return BackendConfig{
		BaseURL: strings.TrimRight(getEnvOrDefault("DATALENS_API_URL", "http://localhost:8000"), "/"),
		Token:   getEnvOrDefault("DATALENS_API_TOKEN", ""),
		Timeout: getEnvDurationOrDefault("DATALENS_API_TIMEOUT", 0),
	}
}

func loadStateConfig() StateConfig {
	return StateConfig{
		Backend:     getEnvOrDefault("STATE_BACKEND", "badger"),
		BadgerPath:  getEnvOrDefault("BADGER_PATH", ".datalens/state"),
		DatabaseURL: getEnvOrDefault("DATABASE_URL", ""),
	}
}

func loadUIConfig() UIConfig {
	return UIConfig{
		FilterDebounce: getEnvDurationOrDefault("FILTER_DEBOUNCE", 500*time.Millisecond),
		NotesDebounce:  getEnvDurationOrDefault("NOTES_DEBOUNCE", time.Second),
		ChartWidth:     getEnvIntOrDefault("CHART_WIDTH", 800),
		ChartHeight:    getEnvIntOrDefault("CHART_HEIGHT", 420),
		ExportDir:      getEnvOrDefault("EXPORT_DIR", "."),
	}
}

func loadDevServerConfig() DevServerConfig {
	return DevServerConfig{
		Port:       getEnvOrDefault("DEVSERVER_PORT", "8000"),
		DataDir:    getEnvOrDefault("DEVSERVER_DATA_DIR", "./data"),
		Restricted: getEnvListOrDefault("DEVSERVER_RESTRICTED", nil),
		Key:        getEnvOrDefault("DEVSERVER_KEY", ""),
		GinMode:    getEnvOrDefault("GIN_MODE", "debug"),
	}
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
