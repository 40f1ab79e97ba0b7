package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// AnalyticsCommand returns the command that prints chat analytics.
func AnalyticsCommand() *cli.Command {
	return &cli.Command{
		Name:  "analytics",
		Usage: "Show chat analytics",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "store", Usage: "Limit to one store ID"},
			&cli.IntFlag{Name: "days", Value: 30, Usage: "Reporting window in days"},
		},
		Action: analyticsAction,
	}
}

func analyticsAction(ctx *cli.Context) error {
	app, err := loadApp(ctx)
	if err != nil {
		return err
	}

	summary, err := app.Client.GetAnalytics(ctx.Context, ctx.String("store"), ctx.Int("days"))
	if err != nil {
		return err
	}

	fmt.Printf("Conversations:   %d\n", summary.TotalConversations)
	fmt.Printf("Messages:        %d\n", summary.TotalMessages)
	fmt.Printf("Customers:       %d\n", summary.UniqueCustomers)
	fmt.Printf("Conversion rate: %.1f%%\n", summary.ConversionRate*100)

	if len(summary.Series) > 0 {
		fmt.Println()
		fmt.Printf("%-12s %13s %9s\n", "DATE", "CONVERSATIONS", "MESSAGES")
		for _, point := range summary.Series {
			fmt.Printf("%-12s %13d %9d\n", point.Date.Format("2006-01-02"), point.Conversations, point.Messages)
		}
	}
	return nil
}
