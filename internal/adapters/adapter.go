package adapters

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/shipwatch/shipwatch/internal/models"
)

// Failure signals shared by every status source. The orchestrator treats them
// all the same (count the shipment as failed, retry on the next scheduled
// run); the split exists for logs and tests.
var (
	ErrNotConfigured      = errors.New("status source not configured")
	ErrNoData             = errors.New("no tracking data")
	ErrFetch              = errors.New("fetch error")
	ErrUnsupportedCarrier = errors.New("unsupported carrier")
)

// StatusDelta is the normalized set of field changes one upstream fetch
// produced, before merge. Nil pointer fields mean "leave as is".
type StatusDelta struct {
	Status      *models.Status
	ETA         *time.Time
	Carrier     *models.Carrier // set only when the upstream positively identified a different carrier
	TrackingURL string
	Description string // backfill-only: merge never overwrites an existing description
	Events      []models.TrackingEvent
	// ReplaceHistory marks Events as the upstream's full event list; the merge
	// replaces the stored history wholesale instead of appending.
	ReplaceHistory bool
}

// Adapter converts one upstream response into a StatusDelta for a shipment.
type Adapter interface {
	Fetch(ctx context.Context, s *models.Shipment) (StatusDelta, error)
}
