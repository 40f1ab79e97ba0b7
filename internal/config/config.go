// Package config holds the application configuration, loaded from an
// optional YAML file with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"

	pkgconfig "github.com/mwhitton/agentdash/pkg/config"
	"github.com/mwhitton/agentdash/pkg/logger"
)

// AppConfig holds all application configuration
type AppConfig struct {
	// Service configuration
	ServiceName string `env:"SERVICE_NAME" yaml:"service_name" default:"agentdash"`
	Version     string `env:"VERSION" yaml:"version" default:"dev"`
	Environment string `env:"ENVIRONMENT" yaml:"environment" default:"development"`

	// Backend API configuration
	Backend BackendConfig `yaml:"backend,inline"`

	// Realtime chat configuration
	Realtime RealtimeConfig `yaml:"realtime,inline"`

	// Session/token configuration
	Session SessionConfig `yaml:"session,inline"`

	// Local dashboard bridge configuration
	Bridge BridgeConfig `yaml:"bridge,inline"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging,inline"`

	// Monitoring configuration
	Monitoring MonitoringConfig `yaml:"monitoring,inline"`
}

// Load reads configuration from the YAML file at path (ignored when
// missing) and overlays environment variables, then validates.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig
	if path == "" {
		if err := pkgconfig.GetConfigFromEnvVars(&cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	if err := pkgconfig.GetConfig(&cfg, path, true); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *AppConfig) Validate() error {
	var result error

	if err := c.Logging.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := c.Backend.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := c.Realtime.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := c.Session.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := c.Bridge.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := c.Monitoring.Validate(); err != nil {
		result = multierror.Append(result, err)
	}

	return result
}

// GetLogLevel returns the parsed logger level
func (c *AppConfig) GetLogLevel() logger.Level {
	level, err := logger.ParseLevel(c.Logging.Level)
	if err != nil {
		return logger.InfoLevel
	}
	return level
}

// IsProduction returns true if running in production environment
func (c *AppConfig) IsProduction() bool {
	return strings.ToLower(c.Environment) == "production"
}

// IsDevelopment returns true if running in development environment
func (c *AppConfig) IsDevelopment() bool {
	env := strings.ToLower(c.Environment)
	return env == "development" || env == "dev"
}

// CredentialsPath resolves the credential store file location, defaulting
// to ~/.agentdash/credentials.json when no directory is configured.
func (c *AppConfig) CredentialsPath() (string, error) {
	dir := c.Session.CredentialsDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		dir = filepath.Join(home, ".agentdash")
	}
	return filepath.Join(dir, "credentials.json"), nil
}

// LogConfig logs the current configuration (without sensitive data)
func (c *AppConfig) LogConfig(log logger.Logger) {
	log.Info("configuration loaded",
		logger.StringField("service", c.ServiceName),
		logger.StringField("version", c.Version),
		logger.StringField("environment", c.Environment),
		logger.StringField("api_url", c.Backend.BaseURL),
		logger.StringField("ws_url", c.Realtime.URL),
		logger.IntField("bridge_port", c.Bridge.Port),
		logger.BoolField("metrics_enabled", c.Monitoring.MetricsEnabled))
}
