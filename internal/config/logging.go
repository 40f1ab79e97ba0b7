package config

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/mwhitton/agentdash/pkg/logger"
)

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" yaml:"level" default:"info"`
	Format string `env:"LOG_FORMAT" yaml:"format" default:"json"`
}

// Validate validates the logging configuration.
func (c *LoggingConfig) Validate() error {
	var result error

	if _, err := logger.ParseLevel(c.Level); err != nil {
		result = multierror.Append(result, fmt.Errorf("log level must be one of [debug, info, warn, error], got %q", c.Level))
	}
	if c.Format != "json" && c.Format != "text" {
		result = multierror.Append(result, fmt.Errorf("log format must be either 'json' or 'text', got %q", c.Format))
	}

	return result
}
