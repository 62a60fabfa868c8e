package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Carrier string

const (
	CarrierUSPS   Carrier = "usps"
	CarrierUPS    Carrier = "ups"
	CarrierFedEx  Carrier = "fedex"
	CarrierDHL    Carrier = "dhl"
	CarrierAmazon Carrier = "amazon"
	CarrierOther  Carrier = "other"
)

// ParseCarrier maps free-form user input to a known carrier; anything
// unrecognized becomes CarrierOther.
func ParseCarrier(s string) Carrier {
	switch Carrier(strings.ToLower(strings.TrimSpace(s))) {
	case CarrierUSPS:
		return CarrierUSPS
	case CarrierUPS:
		return CarrierUPS
	case CarrierFedEx:
		return CarrierFedEx
	case CarrierDHL:
		return CarrierDHL
	case CarrierAmazon:
		return CarrierAmazon
	default:
		return CarrierOther
	}
}

type Status string

const (
	StatusPending        Status = "pending"
	StatusInTransit      Status = "in_transit"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusException      Status = "exception"
	StatusUnknown        Status = "unknown"
)

// TrackingEvent is one point-in-time carrier report. Events are never mutated
// after creation, only appended or replaced as a batch.
type TrackingEvent struct {
	Timestamp   time.Time `json:"timestamp"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
}

type Shipment struct {
	ID                 string          `json:"id"`
	Carrier            Carrier         `json:"carrier"`
	TrackingNumber     string          `json:"tracking_number"`
	TrackingURL        string          `json:"tracking_url,omitempty"`
	Description        string          `json:"description"`
	Status             Status          `json:"status"`
	ETA                *time.Time      `json:"eta,omitempty"`
	SourceEmailSubject string          `json:"source_email_subject,omitempty"`
	History            []TrackingEvent `json:"history"`
	CreatedAt          time.Time       `json:"created_at"`
	IsArchived         bool            `json:"is_archived"`
}

func NewShipment(carrier Carrier, trackingNumber string) *Shipment {
	return &Shipment{
		ID:             NewShipmentID(),
		Carrier:        carrier,
		TrackingNumber: trackingNumber,
		Status:         StatusUnknown,
		CreatedAt:      time.Now().UTC(),
	}
}

func NewShipmentID() string {
	return fmt.Sprintf("ship_%s", uuid.NewString()[:8])
}

// Trackable reports whether the shipment should still be polled for updates.
// Delivered is terminal and archived shipments are excluded from ingestion.
func (s *Shipment) Trackable() bool {
	return !s.IsArchived && s.Status != StatusDelivered
}
