// Package cli implements the agentdash commands. Every command builds
// its dependencies through one composition root so the session manager is
// always constructor-injected, never global.
package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mwhitton/agentdash/internal/api"
	appconfig "github.com/mwhitton/agentdash/internal/config"
	"github.com/mwhitton/agentdash/internal/credstore"
	"github.com/mwhitton/agentdash/internal/session"
	"github.com/mwhitton/agentdash/pkg/logger"
	"github.com/mwhitton/agentdash/pkg/metrics"
)

// App bundles the wired application graph used by the commands.
type App struct {
	Config  *appconfig.AppConfig
	Log     logger.Logger
	Metrics *metrics.Metrics
	Store   *credstore.Store
	Client  *api.Client
	Manager *session.Manager
}

// loadApp builds the application graph: config, credential store, API
// client and session manager, wired together.
func loadApp(ctx *cli.Context) (*App, error) {
	log := getLogger(ctx)

	cfg, err := appconfig.Load(ctx.String("config-file"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	m := metrics.NewMetrics(cfg.Monitoring.MetricsEnabled, log)

	credsPath, err := cfg.CredentialsPath()
	if err != nil {
		return nil, err
	}
	store, err := credstore.New(credsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	client, err := api.NewClient(api.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout,
		Logger:  log,
	})
	if err != nil {
		return nil, err
	}

	manager, err := session.NewManager(session.ManagerConfig{
		Store:           store,
		Refresher:       client,
		Logger:          log,
		Metrics:         &m,
		ExpiryThreshold: cfg.Session.ExpiryThreshold,
		RefreshLead:     cfg.Session.RefreshLead,
		OnLogout: func(reason string) {
			fmt.Printf("Session ended: %s. Please log in again.\n", reason)
		},
	})
	if err != nil {
		return nil, err
	}
	client.SetTokenSource(manager)

	return &App{
		Config:  cfg,
		Log:     log,
		Metrics: &m,
		Store:   store,
		Client:  client,
		Manager: manager,
	}, nil
}

// getLogger retrieves the logger from the CLI context metadata
func getLogger(ctx *cli.Context) logger.Logger {
	if ctx.App.Metadata != nil {
		if log, ok := ctx.App.Metadata["logger"].(logger.Logger); ok {
			return log
		}
	}

	// Fallback to default logger if not found
	return logger.NewLogger(logger.Config{
		Level:   logger.InfoLevel,
		Format:  "json",
		Service: "agentdash",
	})
}
