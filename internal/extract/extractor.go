package extract

import (
	"regexp"

	"github.com/shipwatch/shipwatch/internal/carriers"
	"github.com/shipwatch/shipwatch/internal/models"
)

var urlRe = regexp.MustCompile(`(?i)https?://[^\s<>"']+`)

const maxSubjectLen = 200

// Extract scans an email subject and body for tracking numbers and returns one
// candidate shipment per distinct number. Carrier tracking URLs are scanned
// first, so a tracking link beats the same number appearing as plain text.
// The seen set lives for exactly one call; numbers are deduplicated by value
// alone (two carriers never legitimately share a literal number).
func Extract(subject, body string) []*models.Shipment {
	text := subject + "\n" + body
	seen := make(map[string]struct{})
	var out []*models.Shipment

	srcSubject := subject
	if len(srcSubject) > maxSubjectLen {
		srcSubject = srcSubject[:maxSubjectLen]
	}

	for _, u := range urlRe.FindAllString(text, -1) {
		for _, p := range carriers.URLPatterns {
			m := p.Re.FindStringSubmatch(u)
			if m == nil {
				continue
			}
			num := m[1]
			if _, ok := seen[num]; ok {
				continue
			}
			seen[num] = struct{}{}
			s := models.NewShipment(p.Carrier, num)
			s.TrackingURL = u
			s.SourceEmailSubject = srcSubject
			out = append(out, s)
		}
	}

	for _, p := range carriers.NumberPatterns {
		for _, num := range p.Re.FindAllString(text, -1) {
			if _, ok := seen[num]; ok {
				continue
			}
			seen[num] = struct{}{}
			s := models.NewShipment(p.Carrier, num)
			s.SourceEmailSubject = srcSubject
			out = append(out, s)
		}
	}

	return out
}
