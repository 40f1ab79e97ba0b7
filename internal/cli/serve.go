package cli

import (
	"github.com/urfave/cli/v2"

	"github.com/mwhitton/agentdash/internal/server"
	"github.com/mwhitton/agentdash/pkg/logger"
)

// ServeCommand returns the command that runs the local dashboard bridge.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the local dashboard bridge server",
		Action: serveAction,
	}
}

func serveAction(ctx *cli.Context) error {
	app, err := loadApp(ctx)
	if err != nil {
		return err
	}
	app.Config.LogConfig(app.Log)

	srv, err := server.New(app.Config, app.Log, app.Metrics, app.Manager, app.Client)
	if err != nil {
		return err
	}

	app.Log.Info("Starting dashboard bridge",
		logger.StringField("version", app.Config.Version),
		logger.IntField("port", app.Config.Bridge.Port))
	return srv.Run()
}
