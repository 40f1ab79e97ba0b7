package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/mwhitton/agentdash/internal/realtime"
)

// ChatCommand returns the interactive chat REPL used to try an agent live.
func ChatCommand() *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Open a live chat session with an agent",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "agent", Usage: "Agent ID", Required: true},
			&cli.StringFlag{Name: "store", Usage: "Store ID", Required: true},
		},
		Action: chatAction,
	}
}

func chatAction(ctx *cli.Context) error {
	app, err := loadApp(ctx)
	if err != nil {
		return err
	}
	if !app.Manager.EnsureValidToken(ctx.Context) {
		return fmt.Errorf("not logged in")
	}

	conn, err := realtime.NewChatConnection(realtime.Config{
		URL:                  app.Config.Realtime.URL,
		AgentID:              ctx.String("agent"),
		StoreID:              ctx.String("store"),
		Logger:               app.Log,
		Metrics:              app.Metrics,
		ReconnectDelay:       app.Config.Realtime.ReconnectDelay,
		MaxReconnectAttempts: app.Config.Realtime.MaxReconnectAttempts,
		OnEvent:              printChatEvent,
		OnStateChange: func(connected bool) {
			if connected {
				fmt.Println("[connected]")
			} else {
				fmt.Println("[disconnected]")
			}
		},
	})
	if err != nil {
		return err
	}
	defer conn.Disconnect()

	if err := conn.Connect(ctx.Context); err != nil {
		return err
	}
	fmt.Println("Type a message and press enter. /quit to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	newConversation := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			break
		}

		if !conn.SendMessage(line, newConversation) {
			fmt.Println("[queued - will send on reconnect]")
		}
		newConversation = false
	}
	return scanner.Err()
}

func printChatEvent(event realtime.Event) {
	switch e := event.(type) {
	case realtime.ChatResponse:
		fmt.Printf("agent> %s\n", e.Response)
	case realtime.ComprehensiveChatResponse:
		fmt.Printf("agent> %s\n", e.Response)
	case realtime.CustomerIDUpdate:
		fmt.Printf("[conversation attributed to customer %s]\n", e.CustomerID)
	case realtime.ErrorEvent:
		fmt.Printf("[error] %s\n", e.Message)
	}
}
