package updater

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/shipwatch/shipwatch/internal/adapters"
	"github.com/shipwatch/shipwatch/internal/broker/messages"
	"github.com/shipwatch/shipwatch/internal/models"
)

type fakeStore struct {
	mu      sync.Mutex
	list    []*models.Shipment
	listErr error
	saved   []*models.Shipment
	saveErr error
}

func (f *fakeStore) List(ctx context.Context) ([]*models.Shipment, error) {
	return f.list, f.listErr
}

func (f *fakeStore) Save(ctx context.Context, sh *models.Shipment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, sh)
	return nil
}

type fakeAdapter struct {
	mu    sync.Mutex
	calls []string
	delta adapters.StatusDelta
	err   error
	block chan struct{}
}

func (f *fakeAdapter) Fetch(ctx context.Context, s *models.Shipment) (adapters.StatusDelta, error) {
	f.mu.Lock()
	f.calls = append(f.calls, s.ID)
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return f.delta, f.err
}

type fakeProducer struct {
	mu     sync.Mutex
	topics []string
	values [][]byte
	err    error
}

func (p *fakeProducer) Publish(ctx context.Context, topic string, key, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.values = append(p.values, value)
	return p.err
}

func fixtureShipments() []*models.Shipment {
	a := models.NewShipment(models.CarrierUPS, "A1")
	a.Status = models.StatusDelivered
	b := models.NewShipment(models.CarrierUPS, "B2")
	b.Status = models.StatusInTransit
	c := models.NewShipment(models.CarrierUPS, "C3")
	c.IsArchived = true
	return []*models.Shipment{a, b, c}
}

func TestUpdater_RunOnce_SkipsTerminalAndArchived(t *testing.T) {
	st := &fakeStore{list: fixtureShipments()}
	status := models.StatusOutForDelivery
	ad := &fakeAdapter{delta: adapters.StatusDelta{Status: &status}}
	fp := &fakeProducer{}

	u := New(st, ad, fp, nil, "shipment.updated")
	res := u.RunOnce(context.Background())

	require.Equal(t, Result{Updated: 1, Failed: 0}, res)
	require.Len(t, ad.calls, 1)
	require.Equal(t, st.list[1].ID, ad.calls[0])
	require.Len(t, st.saved, 1)
	require.Equal(t, models.StatusOutForDelivery, st.saved[0].Status)
}

func TestUpdater_RunOnce_FailureIsolatedPerShipment(t *testing.T) {
	b := models.NewShipment(models.CarrierUPS, "B2")
	b.Status = models.StatusInTransit
	d := models.NewShipment(models.CarrierDHL, "D4")
	d.Status = models.StatusPending
	st := &fakeStore{list: []*models.Shipment{b, d}}

	ad := &fakeAdapter{err: errors.New("upstream down")}
	u := New(st, ad, &fakeProducer{}, nil, "t")

	res := u.RunOnce(context.Background())
	require.Equal(t, Result{Updated: 0, Failed: 2}, res)
	require.Empty(t, st.saved)
	require.Equal(t, "upstream down", u.Stats().LastError)
}

func TestUpdater_RunOnce_SaveErrorCountsFailed(t *testing.T) {
	b := models.NewShipment(models.CarrierUPS, "B2")
	b.Status = models.StatusInTransit
	st := &fakeStore{list: []*models.Shipment{b}, saveErr: errors.New("disk full")}

	status := models.StatusDelivered
	ad := &fakeAdapter{delta: adapters.StatusDelta{Status: &status}}
	u := New(st, ad, &fakeProducer{}, nil, "t")

	res := u.RunOnce(context.Background())
	require.Equal(t, Result{Updated: 0, Failed: 1}, res)
}

func TestUpdater_RunOnce_PublishesUpdate(t *testing.T) {
	b := models.NewShipment(models.CarrierUPS, "B2")
	b.Status = models.StatusInTransit
	st := &fakeStore{list: []*models.Shipment{b}}

	status := models.StatusDelivered
	ad := &fakeAdapter{delta: adapters.StatusDelta{Status: &status}}
	fp := &fakeProducer{}
	u := New(st, ad, fp, nil, "shipment.updated")

	res := u.RunOnce(context.Background())
	require.Equal(t, 1, res.Updated)
	require.Len(t, fp.values, 1)
	require.Equal(t, "shipment.updated", fp.topics[0])

	var msg messages.ShipmentUpdated
	require.NoError(t, json.Unmarshal(fp.values[0], &msg))
	require.Equal(t, b.ID, msg.ShipmentID)
	require.Equal(t, models.StatusDelivered, msg.Status)
}

func TestUpdater_RunOnce_PublishFailureDoesNotFailShipment(t *testing.T) {
	b := models.NewShipment(models.CarrierUPS, "B2")
	b.Status = models.StatusInTransit
	st := &fakeStore{list: []*models.Shipment{b}}

	status := models.StatusDelivered
	ad := &fakeAdapter{delta: adapters.StatusDelta{Status: &status}}
	fp := &fakeProducer{err: errors.New("kafka down")}
	u := New(st, ad, fp, nil, "t")

	res := u.RunOnce(context.Background())
	require.Equal(t, Result{Updated: 1, Failed: 0}, res)
}

func TestUpdater_RunOnce_NoOverlap(t *testing.T) {
	b := models.NewShipment(models.CarrierUPS, "B2")
	b.Status = models.StatusInTransit
	st := &fakeStore{list: []*models.Shipment{b}}

	ad := &fakeAdapter{block: make(chan struct{})}
	u := New(st, ad, &fakeProducer{}, nil, "t")

	done := make(chan Result, 1)
	go func() { done <- u.RunOnce(context.Background()) }()

	// Wait until the first run holds the lock and is inside Fetch.
	require.Eventually(t, func() bool {
		ad.mu.Lock()
		defer ad.mu.Unlock()
		return len(ad.calls) == 1
	}, time.Second, 5*time.Millisecond)

	// A second run landing now is skipped entirely.
	res := u.RunOnce(context.Background())
	require.Equal(t, Result{}, res)
	ad.mu.Lock()
	require.Len(t, ad.calls, 1)
	ad.mu.Unlock()

	close(ad.block)
	<-done
}

func TestUpdater_Run_StopsOnContextCancel(t *testing.T) {
	st := &fakeStore{}
	u := New(st, &fakeAdapter{}, &fakeProducer{}, nil, "t").
		WithSettings(5*time.Millisecond, time.Second, 1, 0)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := u.Run(ctx)
	require.Error(t, err)
}

func TestUpdater_Trigger_NonBlocking(t *testing.T) {
	u := New(&fakeStore{}, &fakeAdapter{}, nil, nil, "t")
	u.Trigger()
	u.Trigger() // second trigger must not block even with nobody draining
}
