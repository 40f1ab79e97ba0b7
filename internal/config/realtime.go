package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

// RealtimeConfig holds the realtime chat socket settings.
type RealtimeConfig struct {
	URL                  string        `env:"AGENTDASH_WS_URL" yaml:"ws_url" default:"wss://api.agentdash.example.com/ws/chat/"`
	ReconnectDelay       time.Duration `env:"AGENTDASH_WS_RECONNECT_DELAY" yaml:"ws_reconnect_delay" default:"3s"`
	MaxReconnectAttempts int           `env:"AGENTDASH_WS_MAX_RECONNECTS" yaml:"ws_max_reconnects" default:"5"`
}

// Validate validates the realtime configuration.
func (c *RealtimeConfig) Validate() error {
	var result error

	if c.URL == "" {
		result = multierror.Append(result, fmt.Errorf("ws_url is required"))
	} else if !strings.HasPrefix(c.URL, "ws://") && !strings.HasPrefix(c.URL, "wss://") {
		result = multierror.Append(result, fmt.Errorf("ws_url must start with ws:// or wss://, got %q", c.URL))
	}
	if c.ReconnectDelay <= 0 {
		result = multierror.Append(result, fmt.Errorf("ws_reconnect_delay must be greater than 0"))
	}
	if c.MaxReconnectAttempts < 1 {
		result = multierror.Append(result, fmt.Errorf("ws_max_reconnects must be at least 1"))
	}

	return result
}
