package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shipwatch/shipwatch/internal/adapters"
	"github.com/shipwatch/shipwatch/internal/broker/messages"
	"github.com/shipwatch/shipwatch/internal/models"
	"github.com/shipwatch/shipwatch/internal/reconcile"
)

type ShipmentStore interface {
	List(ctx context.Context) ([]*models.Shipment, error)
	Save(ctx context.Context, sh *models.Shipment) error
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

// Updater walks every non-terminal shipment, fetches fresh status through the
// configured source and persists the reconciled result. Failures are isolated
// per shipment and never retried within a run; the next scheduled run is the
// retry mechanism.
type Updater struct {
	store    ShipmentStore
	source   adapters.Adapter
	producer Producer
	rl       RateLimiter

	topic string

	interval           time.Duration
	fetchTimeout       time.Duration
	concurrency        int
	rateLimitPerMinute int64

	// Held for the whole of a run: a trigger firing while a run is still in
	// progress is skipped, never overlapped.
	runMu sync.Mutex

	triggerCh chan struct{}

	startedAtUnixNano int64
	lastRunUnixNano   atomic.Int64
	totalUpdated      atomic.Int64
	totalFailed       atomic.Int64
	inFlight          atomic.Int64
	lastErrorMu       sync.Mutex
	lastError         string
}

func New(store ShipmentStore, source adapters.Adapter, producer Producer, rl RateLimiter, topic string) *Updater {
	return &Updater{
		store:             store,
		source:            source,
		producer:          producer,
		rl:                rl,
		topic:             topic,
		interval:          time.Hour,
		fetchTimeout:      30 * time.Second,
		concurrency:       4,
		triggerCh:         make(chan struct{}, 1),
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

func (u *Updater) WithSettings(interval, fetchTimeout time.Duration, concurrency int, rlPerMin int64) *Updater {
	if interval > 0 {
		u.interval = interval
	}
	if fetchTimeout > 0 {
		u.fetchTimeout = fetchTimeout
	}
	if concurrency > 0 {
		u.concurrency = concurrency
	}
	if rlPerMin > 0 {
		u.rateLimitPerMinute = rlPerMin
	}
	return u
}

// Trigger forces an immediate run (best-effort, non-blocking).
func (u *Updater) Trigger() {
	select {
	case u.triggerCh <- struct{}{}:
	default:
	}
}

type Result struct {
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

func (u *Updater) Run(ctx context.Context) error {
	t := time.NewTicker(u.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			u.RunOnce(ctx)
		case <-u.triggerCh:
			u.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single update pass. At most one run may be in progress;
// a call landing during a running pass returns immediately with zero counts.
func (u *Updater) RunOnce(ctx context.Context) Result {
	if !u.runMu.TryLock() {
		slog.Warn("update run still in progress, skipping trigger")
		return Result{}
	}
	defer u.runMu.Unlock()

	now := time.Now().UTC()
	u.lastRunUnixNano.Store(now.UnixNano())

	all, err := u.store.List(ctx)
	if err != nil {
		slog.Error("load shipments", "error", err.Error())
		u.setLastError(err.Error())
		return Result{}
	}

	var updated, failed atomic.Int64
	sem := make(chan struct{}, u.concurrency)
	var wg sync.WaitGroup
	for _, sh := range all {
		if !sh.Trackable() {
			continue
		}
		sem <- struct{}{}
		wg.Add(1)
		shCopy := sh
		u.inFlight.Add(1)
		go func() {
			defer func() {
				u.inFlight.Add(-1)
				<-sem
				wg.Done()
			}()
			if err := u.processOne(ctx, shCopy); err != nil {
				failed.Add(1)
				u.setLastError(err.Error())
				slog.Error("update shipment", "shipment_id", shCopy.ID, "tracking_number", shCopy.TrackingNumber, "error", err.Error())
				return
			}
			updated.Add(1)
		}()
	}
	wg.Wait()

	res := Result{Updated: int(updated.Load()), Failed: int(failed.Load())}
	u.totalUpdated.Add(updated.Load())
	u.totalFailed.Add(failed.Load())
	slog.Info("update run complete", "updated", res.Updated, "failed", res.Failed)
	return res
}

func (u *Updater) processOne(ctx context.Context, sh *models.Shipment) error {
	if u.rl != nil && u.rateLimitPerMinute > 0 {
		now := time.Now().UTC()
		minuteKey := fmt.Sprintf("rl:carrier:%s:%s", sh.Carrier, now.Format("200601021504"))
		allowed, n, err := u.rl.Allow(ctx, minuteKey, u.rateLimitPerMinute, 70*time.Second)
		if err == nil && !allowed {
			slog.Warn("rate limit exceeded", "carrier", sh.Carrier, "count", n)
			time.Sleep(500 * time.Millisecond)
		}
	}

	fctx, cancel := context.WithTimeout(ctx, u.fetchTimeout)
	defer cancel()

	delta, err := u.source.Fetch(fctx, sh)
	if err != nil {
		return err
	}

	merged := reconcile.Reconcile(*sh, delta)
	if err := u.store.Save(ctx, &merged); err != nil {
		return err
	}

	u.publishUpdated(ctx, &merged)
	return nil
}

// The shipment is already persisted; a publish failure only costs downstream
// a notification, so it is logged and not counted against the shipment.
func (u *Updater) publishUpdated(ctx context.Context, sh *models.Shipment) {
	if u.producer == nil || u.topic == "" {
		return
	}
	msg := messages.ShipmentUpdated{
		ShipmentID:     sh.ID,
		TrackingNumber: sh.TrackingNumber,
		Carrier:        sh.Carrier,
		Status:         sh.Status,
		ETA:            sh.ETA,
		CheckedAt:      time.Now().UTC(),
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := u.producer.Publish(ctx, u.topic, []byte(sh.ID), b); err != nil {
		slog.Error("publish shipment.updated", "shipment_id", sh.ID, "error", err.Error())
	}
}

type Stats struct {
	StartedAt    time.Time  `json:"startedAt"`
	LastRunAt    *time.Time `json:"lastRunAt,omitempty"`
	TotalUpdated int64      `json:"totalUpdated"`
	TotalFailed  int64      `json:"totalFailed"`
	InFlight     int64      `json:"inFlight"`
	LastError    string     `json:"lastError,omitempty"`
}

func (u *Updater) Stats() Stats {
	st := Stats{
		StartedAt:    time.Unix(0, u.startedAtUnixNano).UTC(),
		TotalUpdated: u.totalUpdated.Load(),
		TotalFailed:  u.totalFailed.Load(),
		InFlight:     u.inFlight.Load(),
	}
	if n := u.lastRunUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastRunAt = &t
	}
	u.lastErrorMu.Lock()
	st.LastError = u.lastError
	u.lastErrorMu.Unlock()
	return st
}

func (u *Updater) setLastError(s string) {
	u.lastErrorMu.Lock()
	u.lastError = s
	u.lastErrorMu.Unlock()
}
