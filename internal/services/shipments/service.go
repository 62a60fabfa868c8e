package shipments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/shipwatch/shipwatch/internal/cache"
	"github.com/shipwatch/shipwatch/internal/carriers"
	"github.com/shipwatch/shipwatch/internal/extract"
	"github.com/shipwatch/shipwatch/internal/models"
)

// Collection is the record-store collection shipments live in.
const Collection = "shipments"

// RecordStore is the excluded on-disk store, consumed at its interface
// boundary. Records are opaque blobs keyed by id; LoadAll returns most
// recently created first.
type RecordStore interface {
	Save(ctx context.Context, collection, id string, data []byte) error
	Load(ctx context.Context, collection, id string) ([]byte, bool, error)
	LoadAll(ctx context.Context, collection string) ([][]byte, error)
	Delete(ctx context.Context, collection, id string) (bool, error)
}

type Service struct {
	store      RecordStore
	cache      cache.BytesCache
	currentTTL time.Duration
}

func New(store RecordStore, c cache.BytesCache, currentTTL time.Duration) *Service {
	return &Service{store: store, cache: c, currentTTL: currentTTL}
}

type IngestResult struct {
	Created    []string `json:"created"`
	TotalFound int      `json:"total_found"`
}

// IngestEmail extracts tracking candidates from a forwarded email and
// persists the ones whose tracking number is not already stored. Duplicates
// are silently skipped, visible only as Created being shorter than
// TotalFound.
func (s *Service) IngestEmail(ctx context.Context, subject, body string) (IngestResult, error) {
	found := extract.Extract(subject, body)
	res := IngestResult{Created: []string{}, TotalFound: len(found)}
	if len(found) == 0 {
		return res, nil
	}

	// Load the stored tracking-number set once per call, not once per
	// candidate.
	existing, err := s.trackingNumberSet(ctx)
	if err != nil {
		return res, err
	}

	for _, sh := range found {
		if _, ok := existing[sh.TrackingNumber]; ok {
			continue
		}
		if err := s.Save(ctx, sh); err != nil {
			return res, err
		}
		existing[sh.TrackingNumber] = struct{}{}
		res.Created = append(res.Created, sh.ID)
	}
	return res, nil
}

// Add constructs and persists a shipment directly, bypassing extraction.
func (s *Service) Add(ctx context.Context, trackingNumber string, carrier models.Carrier, description string) (*models.Shipment, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return nil, errors.New("trackingNumber is required")
	}
	if carrier == "" {
		carrier = models.CarrierOther
	}

	sh := models.NewShipment(carrier, trackingNumber)
	sh.Description = strings.TrimSpace(description)
	sh.TrackingURL = carriers.TrackingURL(carrier, trackingNumber)
	if err := s.Save(ctx, sh); err != nil {
		return nil, err
	}
	return sh, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Shipment, bool, error) {
	if s.cache != nil && s.currentTTL > 0 {
		if b, ok, err := s.cache.Get(ctx, currentKey(id)); err == nil && ok {
			var sh models.Shipment
			if json.Unmarshal(b, &sh) == nil {
				return &sh, true, nil
			}
		}
	}

	b, ok, err := s.store.Load(ctx, Collection, id)
	if err != nil || !ok {
		return nil, false, err
	}
	var sh models.Shipment
	if err := json.Unmarshal(b, &sh); err != nil {
		return nil, false, errors.Wrap(err, "unmarshal shipment")
	}
	s.cacheSet(ctx, &sh, b)
	return &sh, true, nil
}

// List returns every stored shipment, most recently created first (store
// order).
func (s *Service) List(ctx context.Context) ([]*models.Shipment, error) {
	blobs, err := s.store.LoadAll(ctx, Collection)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Shipment, 0, len(blobs))
	for _, b := range blobs {
		var sh models.Shipment
		if err := json.Unmarshal(b, &sh); err != nil {
			return nil, errors.Wrap(err, "unmarshal shipment")
		}
		out = append(out, &sh)
	}
	return out, nil
}

func (s *Service) Save(ctx context.Context, sh *models.Shipment) error {
	b, err := json.Marshal(sh)
	if err != nil {
		return errors.Wrap(err, "marshal shipment")
	}
	if err := s.store.Save(ctx, Collection, sh.ID, b); err != nil {
		return err
	}
	s.cacheSet(ctx, sh, b)
	return nil
}

// Archive marks a shipment as user-archived, excluding it from ingestion.
func (s *Service) Archive(ctx context.Context, id string) (bool, error) {
	sh, ok, err := s.Get(ctx, id)
	if err != nil || !ok {
		return false, err
	}
	sh.IsArchived = true
	if err := s.Save(ctx, sh); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	ok, err := s.store.Delete(ctx, Collection, id)
	if err != nil {
		return false, err
	}
	if s.cache != nil {
		_ = s.cache.Del(ctx, currentKey(id))
	}
	return ok, nil
}

func (s *Service) cacheSet(ctx context.Context, sh *models.Shipment, b []byte) {
	if s.cache != nil && s.currentTTL > 0 {
		_ = s.cache.Set(ctx, currentKey(sh.ID), b, s.currentTTL)
	}
}

func (s *Service) trackingNumberSet(ctx context.Context) (map[string]struct{}, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(all))
	for _, sh := range all {
		set[sh.TrackingNumber] = struct{}{}
	}
	return set, nil
}

func currentKey(id string) string {
	return fmt.Sprintf("shipment:%s:current", id)
}
