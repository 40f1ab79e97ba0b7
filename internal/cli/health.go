package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/mwhitton/agentdash/pkg/health"
)

// runHealthChecks verifies the credential store, the session and backend
// reachability.
func runHealthChecks(ctx *cli.Context, app *App) (*health.Status, error) {
	checker := health.New(
		health.WithTimeout(app.Config.Monitoring.HealthCheckTimeout),
		health.WithLogger(app.Log),
	)

	checker.AddCheck(health.NewCheckFunc("credential-store", func(context.Context) error {
		_, err := os.Stat(app.Store.Path())
		if err != nil {
			return fmt.Errorf("credential store unreadable: %w", err)
		}
		return nil
	}))
	checker.AddCheck(health.NewCheckFunc("session", func(context.Context) error {
		if _, ok := app.Manager.CurrentSnapshot(); !ok {
			return fmt.Errorf("no active session")
		}
		return nil
	}))
	checker.AddCheck(health.NewCheckFunc("backend", func(checkCtx context.Context) error {
		if !app.Manager.HasValidAccessToken() {
			return nil // reachability is checked on the next authenticated call
		}
		_, err := app.Client.ListStores(checkCtx)
		return err
	}))

	return checker.Run(ctx.Context)
}
