package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mwhitton/agentdash/internal/api"
)

// AgentsCommand returns the command group for AI sales agent management.
func AgentsCommand() *cli.Command {
	return &cli.Command{
		Name:  "agents",
		Usage: "Manage AI sales agents",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List agents across all stores",
				Action: agentsListAction,
			},
			{
				Name:      "show",
				Usage:     "Show one agent's configuration",
				ArgsUsage: "<agent-id>",
				Action:    agentsShowAction,
			},
			{
				Name:      "update",
				Usage:     "Update an agent's configuration",
				ArgsUsage: "<agent-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name"},
					&cli.StringFlag{Name: "tone", Usage: "Conversation tone, e.g. friendly, formal"},
					&cli.StringFlag{Name: "greeting"},
					&cli.StringFlag{Name: "instructions"},
					&cli.BoolFlag{Name: "active"},
					&cli.BoolFlag{Name: "inactive"},
				},
				Action: agentsUpdateAction,
			},
			{
				Name:      "embeddings",
				Usage:     "Rebuild product embeddings for an agent",
				ArgsUsage: "<agent-id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "status", Usage: "Only report build progress"},
				},
				Action: agentsEmbeddingsAction,
			},
			{
				Name:      "conversations",
				Usage:     "List an agent's chat threads",
				ArgsUsage: "<agent-id>",
				Action:    agentsConversationsAction,
			},
		},
	}
}

func requireAgentID(ctx *cli.Context) (string, error) {
	agentID := ctx.Args().First()
	if agentID == "" {
		return "", fmt.Errorf("agent ID is required")
	}
	return agentID, nil
}

func agentsListAction(ctx *cli.Context) error {
	app, err := loadApp(ctx)
	if err != nil {
		return err
	}

	agents, err := app.Client.ListAgents(ctx.Context)
	if err != nil {
		return err
	}
	if len(agents) == 0 {
		fmt.Println("No agents configured")
		return nil
	}

	fmt.Printf("%-38s %-20s %-38s %s\n", "ID", "NAME", "STORE", "ACTIVE")
	for _, agent := range agents {
		fmt.Printf("%-38s %-20s %-38s %t\n", agent.ID, agent.Name, agent.StoreID, agent.Active)
	}
	return nil
}

func agentsShowAction(ctx *cli.Context) error {
	app, err := loadApp(ctx)
	if err != nil {
		return err
	}
	agentID, err := requireAgentID(ctx)
	if err != nil {
		return err
	}

	agent, err := app.Client.GetAgent(ctx.Context, agentID)
	if err != nil {
		return err
	}

	fmt.Printf("Name:         %s\n", agent.Name)
	fmt.Printf("Store:        %s\n", agent.StoreID)
	fmt.Printf("Tone:         %s\n", agent.Tone)
	fmt.Printf("Active:       %t\n", agent.Active)
	fmt.Printf("Greeting:     %s\n", agent.Greeting)
	fmt.Printf("Instructions: %s\n", agent.Instructions)
	return nil
}

func agentsUpdateAction(ctx *cli.Context) error {
	app, err := loadApp(ctx)
	if err != nil {
		return err
	}
	agentID, err := requireAgentID(ctx)
	if err != nil {
		return err
	}

	var update api.AgentUpdate
	if ctx.IsSet("name") {
		name := ctx.String("name")
		update.Name = &name
	}
	if ctx.IsSet("tone") {
		tone := ctx.String("tone")
		update.Tone = &tone
	}
	if ctx.IsSet("greeting") {
		greeting := ctx.String("greeting")
		update.Greeting = &greeting
	}
	if ctx.IsSet("instructions") {
		instructions := ctx.String("instructions")
		update.Instructions = &instructions
	}
	if ctx.Bool("active") && ctx.Bool("inactive") {
		return fmt.Errorf("--active and --inactive are mutually exclusive")
	}
	if ctx.Bool("active") {
		active := true
		update.Active = &active
	}
	if ctx.Bool("inactive") {
		active := false
		update.Active = &active
	}

	agent, err := app.Client.UpdateAgent(ctx.Context, agentID, update)
	if err != nil {
		return err
	}
	fmt.Printf("Updated agent %s\n", agent.ID)
	return nil
}

func agentsEmbeddingsAction(ctx *cli.Context) error {
	app, err := loadApp(ctx)
	if err != nil {
		return err
	}
	agentID, err := requireAgentID(ctx)
	if err != nil {
		return err
	}

	var status api.EmbeddingsStatus
	if ctx.Bool("status") {
		status, err = app.Client.GetEmbeddingsStatus(ctx.Context, agentID)
	} else {
		status, err = app.Client.BuildEmbeddings(ctx.Context, agentID)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Embeddings %s (%.0f%%)\n", status.Status, status.Progress*100)
	return nil
}

func agentsConversationsAction(ctx *cli.Context) error {
	app, err := loadApp(ctx)
	if err != nil {
		return err
	}
	agentID, err := requireAgentID(ctx)
	if err != nil {
		return err
	}

	conversations, err := app.Client.ListConversations(ctx.Context, agentID)
	if err != nil {
		return err
	}
	if len(conversations) == 0 {
		fmt.Println("No conversations yet")
		return nil
	}

	fmt.Printf("%-38s %-20s %9s  %s\n", "ID", "CUSTOMER", "MESSAGES", "LAST ACTIVE")
	for _, conversation := range conversations {
		fmt.Printf("%-38s %-20s %9d  %s\n",
			conversation.ID, conversation.CustomerID, conversation.MessageCount,
			conversation.LastActiveAt.Format("2006-01-02 15:04"))
	}
	return nil
}
