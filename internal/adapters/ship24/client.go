package ship24

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/shipwatch/shipwatch/internal/adapters"
	"github.com/shipwatch/shipwatch/internal/carriers"
	"github.com/shipwatch/shipwatch/internal/models"
)

const defaultBaseURL = "https://api.ship24.com/public/v1"

type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

var milestoneStatus = map[string]models.Status{
	"delivered":        models.StatusDelivered,
	"out_for_delivery": models.StatusOutForDelivery,
	"in_transit":       models.StatusInTransit,
	"info_received":    models.StatusPending,
	"exception":        models.StatusException,
	"failed_attempt":   models.StatusException,
}

var courierCarrier = map[string]models.Carrier{
	"us-post": models.CarrierUSPS,
	"ups":     models.CarrierUPS,
	"fedex":   models.CarrierFedEx,
	"dhl":     models.CarrierDHL,
}

type resultsResp struct {
	Data struct {
		Trackings []struct {
			Shipment struct {
				StatusMilestone string `json:"statusMilestone"`
				Delivery        struct {
					EstimatedDeliveryDate string `json:"estimatedDeliveryDate"`
					Service               string `json:"service"`
				} `json:"delivery"`
			} `json:"shipment"`
			Events []struct {
				DateTime        string `json:"datetime"`
				Status          string `json:"status"`
				StatusMilestone string `json:"statusMilestone"`
				Location        string `json:"location"`
				CourierCode     string `json:"courierCode"`
			} `json:"events"`
		} `json:"trackings"`
	} `json:"data"`
}

func (c *Client) Fetch(ctx context.Context, s *models.Shipment) (adapters.StatusDelta, error) {
	if c.apiKey == "" {
		return adapters.StatusDelta{}, adapters.ErrNotConfigured
	}

	c.registerTracker(ctx, s.TrackingNumber)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/trackers/search/%s/results", c.baseURL, s.TrackingNumber), nil)
	if err != nil {
		return adapters.StatusDelta{}, errors.Wrap(err, "new request")
	}
	c.setHeaders(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return adapters.StatusDelta{}, errors.Wrap(adapters.ErrFetch, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return adapters.StatusDelta{}, errors.Wrapf(adapters.ErrNoData, "ship24 http %d", resp.StatusCode)
	}

	var rr resultsResp
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return adapters.StatusDelta{}, errors.Wrap(err, "decode ship24 response")
	}
	if len(rr.Data.Trackings) == 0 {
		return adapters.StatusDelta{}, adapters.ErrNoData
	}

	tr := rr.Data.Trackings[0]

	status := models.StatusUnknown
	if st, ok := milestoneStatus[strings.ToLower(tr.Shipment.StatusMilestone)]; ok {
		status = st
	}
	delta := adapters.StatusDelta{Status: &status}

	if eta, err := time.Parse(time.RFC3339, tr.Shipment.Delivery.EstimatedDeliveryDate); err == nil {
		eta = eta.UTC()
		delta.ETA = &eta
	}

	// Ship24 detects the courier itself; trust it over the extractor's guess.
	carrier := s.Carrier
	if len(tr.Events) > 0 {
		if mapped, ok := courierCarrier[tr.Events[0].CourierCode]; ok {
			carrier = mapped
		}
	}
	if carrier != s.Carrier {
		delta.Carrier = &carrier
	}
	delta.TrackingURL = carriers.TrackingURL(carrier, s.TrackingNumber)

	delta.Description = tr.Shipment.Delivery.Service

	now := time.Now().UTC()
	for _, e := range tr.Events {
		ts := now
		if e.DateTime != "" {
			if t, err := time.Parse(time.RFC3339, e.DateTime); err == nil {
				ts = t.UTC()
			}
		}
		evStatus := status
		if e.StatusMilestone != "" {
			evStatus = models.Status(e.StatusMilestone)
		}
		delta.Events = append(delta.Events, models.TrackingEvent{
			Timestamp:   ts,
			Location:    e.Location,
			Description: strings.Trim(fmt.Sprintf("%s - %s", e.Status, e.Location), " -"),
			Status:      evStatus,
		})
	}
	delta.ReplaceHistory = len(delta.Events) > 0

	return delta, nil
}

// registerTracker makes sure the tracker exists upstream before querying
// results. Registration is idempotent on the Ship24 side, so errors are
// deliberately ignored.
func (c *Client) registerTracker(ctx context.Context, trackingNumber string) {
	body, _ := json.Marshal(map[string]string{"trackingNumber": trackingNumber})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/trackers", bytes.NewReader(body))
	if err != nil {
		return
	}
	c.setHeaders(req)
	resp, err := c.httpc.Do(req)
	if err != nil {
		return
	}
	_ = resp.Body.Close()
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
}
