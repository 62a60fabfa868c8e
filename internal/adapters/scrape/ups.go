package scrape

import (
	"context"

	"github.com/shipwatch/shipwatch/internal/adapters"
	"github.com/shipwatch/shipwatch/internal/models"
)

// The UPS tracking page is rendered client-side, so the static response
// carries no status to parse. The fetch validates that the page is reachable
// and refreshes the canonical tracking URL.
func fetchUPS(ctx context.Context, c *Client, s *models.Shipment) (adapters.StatusDelta, error) {
	pageURL := c.urlFor(models.CarrierUPS, s.TrackingNumber)
	if _, err := c.get(ctx, pageURL); err != nil {
		return adapters.StatusDelta{}, err
	}
	return adapters.StatusDelta{TrackingURL: pageURL}, nil
}
