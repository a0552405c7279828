package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gobwas/glob"
	"github.com/orgoj/mongolog/formatter"
	"github.com/orgoj/mongolog/record"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	AppLog struct {
		Level string `yaml:"level"`
		Path  string `yaml:"path"` // empty logs to stderr
	} `yaml:"app_log"`

	Mongo struct {
		Host           string `yaml:"host" validate:"required"`
		Port           int    `yaml:"port" validate:"gte=0,lte=65535"` // 0 uses the driver default
		Database       string `yaml:"database" validate:"required"`
		Collection     string `yaml:"collection" validate:"required"`
		ConnectTimeout string `yaml:"connect_timeout"` // e.g. "10s"
		WriteTimeout   string `yaml:"write_timeout"`   // "0s" or empty blocks for the write
		DriverLog      bool   `yaml:"driver_log"`
	} `yaml:"mongo"`

	Handler struct {
		Level      string   `yaml:"level"`
		LoggerName string   `yaml:"logger_name"`
		Template   string   `yaml:"template"` // e.g. "%(message)s from %(levelname)s"
		Filters    []string `yaml:"filters"`  // glob patterns on logger name
	} `yaml:"handler"`

	Reporting struct {
		RateLimit int `yaml:"rate_limit" validate:"gte=0"` // reports per minute, 0 = unlimited
	} `yaml:"reporting"`
}

// LoadConfig loads and validates the configuration from a file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var cfg Config
	// Defaults, overridden by the file
	cfg.AppLog.Level = "WARN"
	cfg.Mongo.Host = "localhost"
	cfg.Mongo.Database = "mongolog"
	cfg.Mongo.ConnectTimeout = "10s"
	cfg.Handler.Level = "NOTSET"
	cfg.Handler.LoggerName = "root"

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file '%s': %w", path, err)
	}

	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// validateConfig performs semantic validation of the configuration
func validateConfig(cfg *Config) error {
	if _, err := parseLevel(cfg.AppLog.Level); err != nil {
		return fmt.Errorf("invalid app_log.level: %w", err)
	}

	if _, err := ParseDuration(cfg.Mongo.ConnectTimeout); err != nil {
		return fmt.Errorf("invalid mongo.connect_timeout: %w", err)
	}
	if _, err := ParseTimeout(cfg.Mongo.WriteTimeout); err != nil {
		return fmt.Errorf("invalid mongo.write_timeout: %w", err)
	}
	if strings.ContainsAny(cfg.Mongo.Collection, "$\x00") {
		return fmt.Errorf("invalid mongo.collection: '%s' contains a reserved character", cfg.Mongo.Collection)
	}
	if strings.ContainsAny(cfg.Mongo.Database, "/\\. \"$") {
		return fmt.Errorf("invalid mongo.database: '%s' contains a reserved character", cfg.Mongo.Database)
	}

	if _, err := parseLevel(cfg.Handler.Level); err != nil {
		return fmt.Errorf("invalid handler.level: %w", err)
	}
	if cfg.Handler.Template != "" {
		if _, err := formatter.NewTemplate(cfg.Handler.Template); err != nil {
			return fmt.Errorf("invalid handler.template: %w", err)
		}
	}
	for i, pattern := range cfg.Handler.Filters {
		if pattern == "" {
			return fmt.Errorf("handler.filters[%d]: pattern cannot be empty", i)
		}
		if _, err := glob.Compile(pattern, '.'); err != nil {
			return fmt.Errorf("handler.filters[%d]: invalid pattern '%s': %w", i, pattern, err)
		}
	}

	return nil
}

// ValidateConfig uses go-playground/validator for struct-level validation.
// It complements the semantic validation in validateConfig.
func ValidateConfig(cfg *Config) error {
	validate := validator.New()

	err := validate.Struct(cfg)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return err
		}
		// Translate validation errors into a more readable format
		messages := make([]string, 0, len(validationErrors))
		for _, fe := range validationErrors {
			messages = append(messages, fmt.Sprintf("Field validation for '%s' failed on the '%s' tag", fe.Namespace(), fe.Tag()))
		}
		return errors.New(strings.Join(messages, "; "))
	}

	// Perform additional semantic validation (that validator can't easily handle)
	return validateConfig(cfg)
}

// parseLevel accepts an empty name as NOTSET.
func parseLevel(name string) (record.Level, error) {
	if strings.TrimSpace(name) == "" {
		return record.NOTSET, nil
	}
	return record.ParseLevel(name)
}

// ParseDuration parses a duration string (e.g., "10m", "1h30m", "7d").
// Supports standard time.ParseDuration units plus 'd' for days.
// Returns an error if the format is invalid or the duration is non-positive.
func ParseDuration(durationStr string) (time.Duration, error) {
	durationStr = strings.TrimSpace(durationStr)
	if durationStr == "" {
		return 0, errors.New("duration string cannot be empty")
	}

	// Handle 'd' suffix manually
	if strings.HasSuffix(strings.ToLower(durationStr), "d") {
		numStr := strings.TrimSuffix(strings.ToLower(durationStr), "d")
		days, err := strconv.ParseInt(numStr, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number format for days in '%s': %w", durationStr, err)
		}
		if days <= 0 {
			return 0, fmt.Errorf("duration must be positive: '%s'", durationStr)
		}
		d := time.Duration(days) * 24 * time.Hour
		if d <= 0 {
			return 0, fmt.Errorf("duration %dd results in overflow", days)
		}
		return d, nil
	}

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return 0, fmt.Errorf("invalid duration format '%s': %w", durationStr, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive: '%s'", durationStr)
	}
	return d, nil
}

// ParseTimeout is ParseDuration that also accepts an empty or zero value as 0,
// meaning no timeout.
func ParseTimeout(timeoutStr string) (time.Duration, error) {
	timeoutStr = strings.TrimSpace(timeoutStr)
	if timeoutStr == "" || timeoutStr == "0" {
		return 0, nil
	}
	if d, err := time.ParseDuration(timeoutStr); err == nil && d == 0 {
		return 0, nil
	}
	return ParseDuration(timeoutStr)
}
