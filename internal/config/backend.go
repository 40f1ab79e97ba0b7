package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

// BackendConfig holds the dashboard backend API settings.
type BackendConfig struct {
	BaseURL string        `env:"AGENTDASH_API_URL" yaml:"api_url" default:"https://api.agentdash.example.com"`
	Timeout time.Duration `env:"AGENTDASH_API_TIMEOUT" yaml:"api_timeout" default:"30s"`
}

// Validate validates the backend configuration.
func (c *BackendConfig) Validate() error {
	var result error

	if c.BaseURL == "" {
		result = multierror.Append(result, fmt.Errorf("api_url is required"))
	} else if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		result = multierror.Append(result, fmt.Errorf("api_url must start with http:// or https://, got %q", c.BaseURL))
	}
	if c.Timeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("api_timeout must be greater than 0"))
	}

	return result
}
