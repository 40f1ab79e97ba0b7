package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// MonitoringConfig holds monitoring configuration
type MonitoringConfig struct {
	HealthCheckTimeout time.Duration `env:"HEALTH_CHECK_TIMEOUT" yaml:"health_check_timeout" default:"10s"`
	MetricsEnabled     bool          `env:"METRICS_ENABLED" yaml:"metrics_enabled" default:"false"`
	MetricsPort        int           `env:"METRICS_PORT" yaml:"metrics_port" default:"9091"`
}

// Validate validates the monitoring configuration.
func (c *MonitoringConfig) Validate() error {
	var result error

	if c.HealthCheckTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("health_check_timeout must be greater than 0"))
	}
	if c.MetricsEnabled && (c.MetricsPort < 1 || c.MetricsPort > 65535) {
		result = multierror.Append(result, fmt.Errorf("metrics_port must be between 1 and 65535, got %d", c.MetricsPort))
	}

	return result
}
