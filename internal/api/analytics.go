package api

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// AnalyticsSummary aggregates chat activity over a reporting window.
type AnalyticsSummary struct {
	TotalConversations int     `json:"total_conversations"`
	TotalMessages      int     `json:"total_messages"`
	UniqueCustomers    int     `json:"unique_customers"`
	ConversionRate     float64 `json:"conversion_rate"`

	Series []AnalyticsPoint `json:"series"`
}

// AnalyticsPoint is one bucket in the analytics time series.
type AnalyticsPoint struct {
	Date          time.Time `json:"date"`
	Conversations int       `json:"conversations"`
	Messages      int       `json:"messages"`
}

// GetAnalytics fetches chat analytics for the account, optionally filtered
// to a single store. Days controls the reporting window.
func (c *Client) GetAnalytics(ctx context.Context, storeID string, days int) (AnalyticsSummary, error) {
	query := url.Values{}
	if storeID != "" {
		query.Set("store_id", storeID)
	}
	if days > 0 {
		query.Set("days", fmt.Sprintf("%d", days))
	}

	path := "/api/core/analytics/"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var summary AnalyticsSummary
	err := c.get(ctx, path, &summary)
	return summary, err
}
