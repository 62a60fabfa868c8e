package scrape

import (
	"context"

	"github.com/shipwatch/shipwatch/internal/adapters"
	"github.com/shipwatch/shipwatch/internal/models"
)

// Same limitation as UPS: the FedEx page is script-rendered, so this only
// checks reachability and refreshes the tracking URL.
func fetchFedEx(ctx context.Context, c *Client, s *models.Shipment) (adapters.StatusDelta, error) {
	pageURL := c.urlFor(models.CarrierFedEx, s.TrackingNumber)
	if _, err := c.get(ctx, pageURL); err != nil {
		return adapters.StatusDelta{}, err
	}
	return adapters.StatusDelta{TrackingURL: pageURL}, nil
}
