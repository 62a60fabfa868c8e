package reconcile

import (
	"fmt"
	"time"

	"github.com/shipwatch/shipwatch/internal/adapters"
	"github.com/shipwatch/shipwatch/internal/carriers"
	"github.com/shipwatch/shipwatch/internal/models"
)

// Reconcile merges a fetched delta into a stored shipment and returns the
// merged copy. Pure merge, no I/O; the caller persists the result. It never
// fails: malformed deltas are prevented by adapter-side validation.
//
// Rules, in order: status overwrites unconditionally when carried; ETA
// overwrites when carried, is never cleared; a positively identified carrier
// overwrites and recomputes the tracking URL; description backfills only when
// empty; history is replaced wholesale by a full upstream batch, or gains one
// synthetic event when the status changed with no events supplied.
func Reconcile(existing models.Shipment, delta adapters.StatusDelta) models.Shipment {
	out := existing
	prior := existing.Status

	if delta.Status != nil {
		out.Status = *delta.Status
	}
	if delta.ETA != nil {
		eta := *delta.ETA
		out.ETA = &eta
	}
	if delta.TrackingURL != "" {
		out.TrackingURL = delta.TrackingURL
	}
	if delta.Carrier != nil && *delta.Carrier != out.Carrier {
		out.Carrier = *delta.Carrier
		out.TrackingURL = carriers.TrackingURL(out.Carrier, out.TrackingNumber)
	}
	if out.Description == "" && delta.Description != "" {
		out.Description = delta.Description
	}

	switch {
	case delta.ReplaceHistory && len(delta.Events) > 0:
		out.History = append([]models.TrackingEvent(nil), delta.Events...)
	case len(delta.Events) == 0 && delta.Status != nil && out.Status != prior:
		out.History = append(out.History, models.TrackingEvent{
			Timestamp:   time.Now().UTC(),
			Description: fmt.Sprintf("Status changed to %s", out.Status),
			Status:      out.Status,
		})
	}

	return out
}
