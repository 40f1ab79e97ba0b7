package cli

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mwhitton/agentdash/internal/api"
)

// StoresCommand returns the command group for Shopify store management.
func StoresCommand() *cli.Command {
	return &cli.Command{
		Name:  "stores",
		Usage: "Manage connected Shopify stores",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List connected stores",
				Action: storesListAction,
			},
			{
				Name:  "connect",
				Usage: "Connect a Shopify store and start its product sync",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "domain", Usage: "myshopify.com domain", Required: true},
					&cli.StringFlag{Name: "access-token", Usage: "Shopify Admin API token", Required: true},
				},
				Action: storesConnectAction,
			},
			{
				Name:      "sync",
				Usage:     "Trigger a product re-sync",
				ArgsUsage: "<store-id>",
				Action:    storesSyncAction,
			},
			{
				Name:      "delete",
				Usage:     "Disconnect a store",
				ArgsUsage: "<store-id>",
				Action:    storesDeleteAction,
			},
		},
	}
}

func storesListAction(ctx *cli.Context) error {
	app, err := loadApp(ctx)
	if err != nil {
		return err
	}

	stores, err := app.Client.ListStores(ctx.Context)
	if err != nil {
		return err
	}
	if len(stores) == 0 {
		fmt.Println("No stores connected")
		return nil
	}

	fmt.Printf("%-38s %-24s %-12s %8s  %s\n", "ID", "DOMAIN", "SYNC", "PRODUCTS", "LAST SYNC")
	for _, store := range stores {
		lastSync := "never"
		if store.LastSyncedAt != nil {
			lastSync = store.LastSyncedAt.Format(time.RFC3339)
		}
		fmt.Printf("%-38s %-24s %-12s %8d  %s\n",
			store.ID, store.Domain, store.SyncStatus, store.ProductCount, lastSync)
	}
	return nil
}

func storesConnectAction(ctx *cli.Context) error {
	app, err := loadApp(ctx)
	if err != nil {
		return err
	}

	store, err := app.Client.ConnectStore(ctx.Context, api.ConnectStoreRequest{
		Name:        ctx.String("name"),
		Domain:      ctx.String("domain"),
		AccessToken: ctx.String("access-token"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("Connected %s (%s), initial sync %s\n", store.Name, store.ID, store.SyncStatus)
	return nil
}

func storesSyncAction(ctx *cli.Context) error {
	app, err := loadApp(ctx)
	if err != nil {
		return err
	}
	storeID := ctx.Args().First()
	if storeID == "" {
		return fmt.Errorf("store ID is required")
	}

	store, err := app.Client.SyncStore(ctx.Context, storeID)
	if err != nil {
		return err
	}
	fmt.Printf("Sync started for %s: %s\n", store.ID, store.SyncStatus)
	return nil
}

func storesDeleteAction(ctx *cli.Context) error {
	app, err := loadApp(ctx)
	if err != nil {
		return err
	}
	storeID := ctx.Args().First()
	if storeID == "" {
		return fmt.Errorf("store ID is required")
	}

	if err := app.Client.DeleteStore(ctx.Context, storeID); err != nil {
		return err
	}
	fmt.Printf("Disconnected store %s\n", storeID)
	return nil
}
