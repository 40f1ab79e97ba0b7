package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	commands "github.com/mwhitton/agentdash/internal/cli"
	"github.com/mwhitton/agentdash/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:    "agentdash",
		Usage:   "Manage AI sales agents for Shopify stores",
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "text",
				Usage:   "Log format (json, text)",
				EnvVars: []string{"LOG_FORMAT"},
			},
			&cli.StringFlag{
				Name:    "config-file",
				Value:   "",
				Usage:   "Path to configuration file",
				EnvVars: []string{"CONFIG_FILE"},
			},
		},
		Before: func(ctx *cli.Context) error {
			level, err := logger.ParseLevel(ctx.String("log-level"))
			if err != nil {
				return err
			}
			log := logger.NewLogger(logger.Config{
				Level:   level,
				Format:  ctx.String("log-format"),
				Service: "agentdash",
			})

			// Store logger in context for commands to use
			ctx.App.Metadata = map[string]interface{}{
				"logger": log,
			}
			return nil
		},
		Commands: []*cli.Command{
			commands.LoginCommand(),
			commands.LogoutCommand(),
			commands.StatusCommand(),
			commands.StoresCommand(),
			commands.AgentsCommand(),
			commands.AnalyticsCommand(),
			commands.ChatCommand(),
			commands.ServeCommand(),
			commands.ConfigCommand(),
		},
	}

	if err := app.RunContext(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
