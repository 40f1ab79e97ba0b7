package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mwhitton/agentdash/pkg/logger"
)

// LoginCommand returns the command that signs in to the backend.
func LoginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in and persist the session",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Usage: "Account email", Required: true},
			&cli.StringFlag{Name: "password", Usage: "Account password (prompted when omitted)"},
		},
		Action: loginAction,
	}
}

// LogoutCommand returns the command that ends the current session.
func LogoutCommand() *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "End the current session and clear stored credentials",
		Action: logoutAction,
	}
}

func loginAction(ctx *cli.Context) error {
	app, err := loadApp(ctx)
	if err != nil {
		return err
	}

	password := ctx.String("password")
	if password == "" {
		fmt.Print("Password: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimSpace(line)
	}

	resp, err := app.Client.Login(ctx.Context, ctx.String("email"), password)
	if err != nil {
		app.Log.Error("login failed", logger.ErrorField(err))
		return fmt.Errorf("login failed: %w", err)
	}
	if err := app.Manager.Login(resp); err != nil {
		return err
	}
	app.Manager.StopAutomaticRefresh() // short-lived process, no timer needed

	fmt.Printf("Logged in as %s (%s)\n", resp.User.Name, resp.User.Email)
	return nil
}

func logoutAction(ctx *cli.Context) error {
	app, err := loadApp(ctx)
	if err != nil {
		return err
	}
	app.Manager.Logout("user requested")
	return nil
}

// StatusCommand returns the command that reports session and backend health.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show session state and run health checks",
		Action: statusAction,
	}
}

func statusAction(ctx *cli.Context) error {
	app, err := loadApp(ctx)
	if err != nil {
		return err
	}

	snapshot, ok := app.Manager.CurrentSnapshot()
	if !ok {
		fmt.Println("Not logged in")
		return nil
	}

	fmt.Printf("User:       %s (%s)\n", snapshot.User.Name, snapshot.User.Email)
	fmt.Printf("Session:    %s\n", snapshot.SessionID)
	fmt.Printf("Logged in:  %s\n", snapshot.LoginTime.Format(time.RFC3339))
	fmt.Printf("Expires:    %s\n", snapshot.ExpiresAt.Format(time.RFC3339))

	switch {
	case app.Manager.HasValidAccessToken():
		fmt.Println("Token:      valid")
	case app.Manager.IsExpiringSoon():
		fmt.Println("Token:      expiring soon")
	default:
		fmt.Println("Token:      expired (will refresh on next use)")
	}

	status, err := runHealthChecks(ctx, app)
	for _, result := range status.Checks {
		state := "ok"
		if !result.Healthy {
			state = "FAILED: " + result.Error
		}
		fmt.Printf("Check %-12s %s (%s)\n", result.Name+":", state, result.Latency.Round(time.Millisecond))
	}
	return err
}
