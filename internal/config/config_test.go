package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhitton/agentdash/pkg/logger"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "agentdash", cfg.ServiceName)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 3*time.Second, cfg.Realtime.ReconnectDelay)
	assert.Equal(t, 5, cfg.Realtime.MaxReconnectAttempts)
	assert.Equal(t, 120*time.Second, cfg.Session.ExpiryThreshold)
	assert.Equal(t, 2*time.Minute, cfg.Session.RefreshLead)
	assert.Equal(t, 8787, cfg.Bridge.Port)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.Bridge.CORSAllowedOrigins)
	assert.False(t, cfg.Monitoring.MetricsEnabled)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, logger.InfoLevel, cfg.GetLogLevel())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("AGENTDASH_API_URL", "https://staging.example.com")
	t.Setenv("AGENTDASH_WS_RECONNECT_DELAY", "1s")
	t.Setenv("AGENTDASH_BRIDGE_PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://staging.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, time.Second, cfg.Realtime.ReconnectDelay)
	assert.Equal(t, 9000, cfg.Bridge.Port)
	assert.Equal(t, logger.DebugLevel, cfg.GetLogLevel())
	assert.True(t, cfg.IsProduction())
}

func TestLoadYAMLFileWithEnvOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_url: https://file.example.com\nbridge_port: 8800\n"), 0o600))
	t.Setenv("AGENTDASH_BRIDGE_PORT", "8900")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://file.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, 8900, cfg.Bridge.Port, "env overrides file")
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{name: "bad api scheme", mutate: func(c *AppConfig) { c.Backend.BaseURL = "ftp://x" }},
		{name: "bad ws scheme", mutate: func(c *AppConfig) { c.Realtime.URL = "https://x" }},
		{name: "zero reconnects", mutate: func(c *AppConfig) { c.Realtime.MaxReconnectAttempts = 0 }},
		{name: "bad bridge port", mutate: func(c *AppConfig) { c.Bridge.Port = 70000 }},
		{name: "bad log level", mutate: func(c *AppConfig) { c.Logging.Level = "loud" }},
		{name: "bad log format", mutate: func(c *AppConfig) { c.Logging.Format = "xml" }},
		{name: "lead shorter than threshold", mutate: func(c *AppConfig) {
			c.Session.RefreshLead = time.Second
			c.Session.ExpiryThreshold = time.Minute
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestCredentialsPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Session.CredentialsDir = "/tmp/agentdash-test"
	path, err := cfg.CredentialsPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/agentdash-test", "credentials.json"), path)

	cfg.Session.CredentialsDir = ""
	path, err = cfg.CredentialsPath()
	require.NoError(t, err)
	assert.Contains(t, path, ".agentdash")
}
