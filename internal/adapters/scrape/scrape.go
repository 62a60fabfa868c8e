package scrape

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/html"

	"github.com/shipwatch/shipwatch/internal/adapters"
	"github.com/shipwatch/shipwatch/internal/carriers"
	"github.com/shipwatch/shipwatch/internal/models"
)

// Carrier pages are served to browsers; a bare Go client UA gets blocked or
// redirected to a bot check on most of them.
const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

type fetchFunc func(ctx context.Context, c *Client, s *models.Shipment) (adapters.StatusDelta, error)

// Adding a carrier means adding one entry here plus its fetch implementation.
var strategies = map[models.Carrier]fetchFunc{
	models.CarrierUPS:   fetchUPS,
	models.CarrierUSPS:  fetchUSPS,
	models.CarrierFedEx: fetchFedEx,
}

// Client scrapes public carrier tracking pages. One sub-strategy per carrier,
// dispatched by the shipment's carrier field.
type Client struct {
	httpc  *http.Client
	urlFor func(c models.Carrier, trackingNumber string) string
}

func New() *Client {
	return &Client{
		httpc: &http.Client{
			Timeout: 30 * time.Second,
		},
		urlFor: carriers.TrackingURL,
	}
}

func (c *Client) Fetch(ctx context.Context, s *models.Shipment) (adapters.StatusDelta, error) {
	fn, ok := strategies[s.Carrier]
	if !ok {
		return adapters.StatusDelta{}, errors.Wrapf(adapters.ErrUnsupportedCarrier, "%s", s.Carrier)
	}
	return fn(ctx, c, s)
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, errors.Wrap(adapters.ErrFetch, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(adapters.ErrFetch, "http %d", resp.StatusCode)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(adapters.ErrFetch, err.Error())
	}
	return b, nil
}

// pageText flattens markup to its visible text, skipping script and style
// subtrees. The status banner and delivery date fragments are plain text
// nodes on the pages we parse.
func pageText(page []byte) string {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return string(page)
	}
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				sb.WriteString(t)
				sb.WriteString(" ")
			}
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(doc)
	return sb.String()
}
