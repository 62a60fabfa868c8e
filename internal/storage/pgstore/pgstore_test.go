package pgstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/shipwatch/shipwatch/internal/models"
)

func TestPGStore_RecordFlow(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "admin",
			"POSTGRES_PASSWORD": "admin",
			"POSTGRES_DB":       "shipwatch_test",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := "postgres://admin:admin@" + host + ":" + port.Port() + "/shipwatch_test?sslmode=disable"
	st, err := New(dsn)
	require.NoError(t, err)
	t.Cleanup(st.Close)

	sh := models.NewShipment(models.CarrierUPS, "1Z999AA10123456784")
	sh.Description = "monitor stand"
	blob, err := json.Marshal(sh)
	require.NoError(t, err)

	require.NoError(t, st.Save(ctx, "shipments", sh.ID, blob))

	// Round-trip: the loaded blob decodes to a shipment equal in all fields.
	got, ok, err := st.Load(ctx, "shipments", sh.ID)
	require.NoError(t, err)
	require.True(t, ok)
	var loaded models.Shipment
	require.NoError(t, json.Unmarshal(got, &loaded))
	require.Equal(t, *sh, loaded)

	// Upsert replaces the blob in place.
	sh.Status = models.StatusDelivered
	blob, err = json.Marshal(sh)
	require.NoError(t, err)
	require.NoError(t, st.Save(ctx, "shipments", sh.ID, blob))

	second := models.NewShipment(models.CarrierFedEx, "123456789012")
	blob2, err := json.Marshal(second)
	require.NoError(t, err)
	require.NoError(t, st.Save(ctx, "shipments", second.ID, blob2))

	// Most recently created first.
	all, err := st.LoadAll(ctx, "shipments")
	require.NoError(t, err)
	require.Len(t, all, 2)
	var first models.Shipment
	require.NoError(t, json.Unmarshal(all[0], &first))
	require.Equal(t, second.ID, first.ID)

	// Collections are isolated.
	other, err := st.LoadAll(ctx, "other")
	require.NoError(t, err)
	require.Empty(t, other)

	ok, err = st.Delete(ctx, "shipments", sh.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = st.Delete(ctx, "shipments", sh.ID)
	require.NoError(t, err)
	require.False(t, ok)

	_, found, err := st.Load(ctx, "shipments", sh.ID)
	require.NoError(t, err)
	require.False(t, found)
}
