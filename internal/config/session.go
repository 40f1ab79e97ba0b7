package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// SessionConfig holds token lifecycle settings.
type SessionConfig struct {
	// CredentialsDir is where the credential store file lives. Empty means
	// ~/.agentdash.
	CredentialsDir string `env:"AGENTDASH_CREDENTIALS_DIR" yaml:"credentials_dir"`

	// ExpiryThreshold is how close to expiry an access token may be before
	// it is treated as expired.
	ExpiryThreshold time.Duration `env:"AGENTDASH_TOKEN_EXPIRY_THRESHOLD" yaml:"token_expiry_threshold" default:"120s"`

	// RefreshLead is how long before expiry the automatic refresh fires.
	RefreshLead time.Duration `env:"AGENTDASH_TOKEN_REFRESH_LEAD" yaml:"token_refresh_lead" default:"2m"`
}

// Validate validates the session configuration.
func (c *SessionConfig) Validate() error {
	var result error

	if c.ExpiryThreshold <= 0 {
		result = multierror.Append(result, fmt.Errorf("token_expiry_threshold must be greater than 0"))
	}
	if c.RefreshLead <= 0 {
		result = multierror.Append(result, fmt.Errorf("token_refresh_lead must be greater than 0"))
	}
	if c.RefreshLead < c.ExpiryThreshold {
		result = multierror.Append(result, fmt.Errorf("token_refresh_lead must not be shorter than token_expiry_threshold"))
	}

	return result
}
