package api

import (
	"context"
	"fmt"
	"time"
)

// Store is a connected Shopify store.
type Store struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Domain       string     `json:"domain"`
	SyncStatus   string     `json:"sync_status"`
	ProductCount int        `json:"product_count"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ConnectStoreRequest registers a new Shopify store for the account.
type ConnectStoreRequest struct {
	Name        string `json:"name"`
	Domain      string `json:"domain"`
	AccessToken string `json:"access_token"`
}

type storeListResponse struct {
	Stores []Store `json:"stores"`
}

// ListStores returns all stores connected to the account.
func (c *Client) ListStores(ctx context.Context) ([]Store, error) {
	var resp storeListResponse
	if err := c.get(ctx, "/api/stores/", &resp); err != nil {
		return nil, err
	}
	return resp.Stores, nil
}

// ConnectStore registers a Shopify store and starts its initial product sync.
func (c *Client) ConnectStore(ctx context.Context, req ConnectStoreRequest) (Store, error) {
	var store Store
	err := c.post(ctx, "/api/stores/", req, &store)
	return store, err
}

// DeleteStore disconnects a store and removes its synced products.
func (c *Client) DeleteStore(ctx context.Context, storeID string) error {
	return c.delete(ctx, fmt.Sprintf("/api/stores/%s/", storeID))
}

// SyncStore triggers a product re-sync for the given store.
func (c *Client) SyncStore(ctx context.Context, storeID string) (Store, error) {
	var store Store
	err := c.post(ctx, fmt.Sprintf("/api/stores/%s/sync/", storeID), nil, &store)
	return store, err
}
