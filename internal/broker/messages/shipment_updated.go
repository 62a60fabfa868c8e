package messages

import (
	"time"

	"github.com/shipwatch/shipwatch/internal/models"
)

// ShipmentUpdated is published after a successful reconcile+persist so that
// downstream consumers (notifiers, dashboards) can react without polling.
type ShipmentUpdated struct {
	ShipmentID     string         `json:"shipment_id"`
	TrackingNumber string         `json:"tracking_number"`
	Carrier        models.Carrier `json:"carrier"`
	Status         models.Status  `json:"status"`
	ETA            *time.Time     `json:"eta,omitempty"`
	CheckedAt      time.Time      `json:"checked_at"`
}
