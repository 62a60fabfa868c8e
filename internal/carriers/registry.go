package carriers

import (
	"fmt"
	"regexp"

	"github.com/shipwatch/shipwatch/internal/models"
)

// NumberPattern matches a standalone tracking number belonging to one carrier.
type NumberPattern struct {
	Carrier models.Carrier
	Re      *regexp.Regexp
}

// NumberPatterns is walked in declaration order by the extractor; the first
// carrier to claim a number wins. Adding a carrier means adding rows here.
var NumberPatterns = []NumberPattern{
	{models.CarrierUPS, regexp.MustCompile(`(?i)1Z[A-Z0-9]{16}`)},
	{models.CarrierFedEx, regexp.MustCompile(`(?i)\b\d{12}\b`)},
	{models.CarrierFedEx, regexp.MustCompile(`(?i)\b\d{15}\b`)},
	{models.CarrierFedEx, regexp.MustCompile(`(?i)\b\d{20}\b`)},
	{models.CarrierFedEx, regexp.MustCompile(`(?i)\b\d{22}\b`)},
	{models.CarrierUSPS, regexp.MustCompile(`(?i)\b9\d{21}\b`)},
	{models.CarrierUSPS, regexp.MustCompile(`(?i)\b9\d{25}\b`)},
	{models.CarrierUSPS, regexp.MustCompile(`(?i)\b[A-Z]{2}\d{9}US\b`)},
	{models.CarrierAmazon, regexp.MustCompile(`(?i)TBA\d{12,}`)},
}

// URLPattern recognizes a known carrier tracking URL. Group 1 captures the
// embedded tracking number, which may not match the standalone pattern for
// that carrier.
type URLPattern struct {
	Carrier models.Carrier
	Re      *regexp.Regexp
}

var URLPatterns = []URLPattern{
	{models.CarrierUPS, regexp.MustCompile(`(?i)ups\.com.*?tracknum=([A-Z0-9]+)`)},
	{models.CarrierFedEx, regexp.MustCompile(`(?i)fedex\.com.*?tracknumbers?=(\d+)`)},
	{models.CarrierUSPS, regexp.MustCompile(`(?i)usps\.com.*?tLabels=([A-Z0-9]+)`)},
}

// TrackingURL returns the canonical public tracking page for a carrier.
func TrackingURL(c models.Carrier, trackingNumber string) string {
	switch c {
	case models.CarrierUSPS:
		return fmt.Sprintf("https://tools.usps.com/go/TrackConfirmAction?tLabels=%s", trackingNumber)
	case models.CarrierUPS:
		return fmt.Sprintf("https://www.ups.com/track?tracknum=%s", trackingNumber)
	case models.CarrierFedEx:
		return fmt.Sprintf("https://www.fedex.com/fedextrack/?trknbr=%s", trackingNumber)
	case models.CarrierDHL:
		return fmt.Sprintf("https://www.dhl.com/en/express/tracking.html?AWB=%s", trackingNumber)
	default:
		return fmt.Sprintf("https://www.ship24.com/tracking/%s", trackingNumber)
	}
}
