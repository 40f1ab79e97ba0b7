package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// BridgeConfig holds the local dashboard bridge server settings.
type BridgeConfig struct {
	Port           int           `env:"AGENTDASH_BRIDGE_PORT" yaml:"bridge_port" default:"8787"`
	RequestTimeout time.Duration `env:"AGENTDASH_BRIDGE_TIMEOUT" yaml:"bridge_timeout" default:"30s"`

	CORSAllowedOrigins []string `env:"AGENTDASH_BRIDGE_CORS_ORIGINS" yaml:"bridge_cors_origins" default:"http://localhost:3000,http://localhost:5173"`
}

// Validate validates the bridge configuration.
func (c *BridgeConfig) Validate() error {
	var result error

	if c.Port < 1 || c.Port > 65535 {
		result = multierror.Append(result, fmt.Errorf("bridge_port must be between 1 and 65535, got %d", c.Port))
	}
	if c.RequestTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("bridge_timeout must be greater than 0"))
	}

	return result
}
