package scrape

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/shipwatch/shipwatch/internal/adapters"
	"github.com/shipwatch/shipwatch/internal/models"
)

var uspsETARe = regexp.MustCompile(`(?i)(January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},\s+\d{4}`)

// fetchUSPS parses the static USPS tracking page. Status and expected
// delivery date are best-effort: an unrecognized fragment leaves the field
// unchanged rather than failing the fetch.
func fetchUSPS(ctx context.Context, c *Client, s *models.Shipment) (adapters.StatusDelta, error) {
	pageURL := c.urlFor(models.CarrierUSPS, s.TrackingNumber)
	page, err := c.get(ctx, pageURL)
	if err != nil {
		return adapters.StatusDelta{}, err
	}

	text := pageText(page)
	delta := adapters.StatusDelta{TrackingURL: pageURL}

	if st, ok := uspsStatus(text); ok {
		delta.Status = &st
	}
	if m := uspsETARe.FindString(text); m != "" {
		normalized := strings.Join(strings.Fields(m), " ")
		if eta, err := time.Parse("January 2, 2006", normalized); err == nil {
			eta = eta.UTC()
			delta.ETA = &eta
		}
	}

	return delta, nil
}

func uspsStatus(text string) (models.Status, bool) {
	low := strings.ToLower(text)
	switch {
	case strings.Contains(low, "delivered"):
		return models.StatusDelivered, true
	case strings.Contains(low, "out for delivery"):
		return models.StatusOutForDelivery, true
	case strings.Contains(low, "in transit"), strings.Contains(low, "on its way"):
		return models.StatusInTransit, true
	case strings.Contains(low, "accepted"), strings.Contains(low, "picked up"):
		return models.StatusPending, true
	default:
		return "", false
	}
}
