package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
database:
  host: "localhost"
  port: 5432
  username: "u"
  password: "p"
  name: "shipwatch"
kafka:
  host: "localhost"
  port: 9092
  shipment_updated_topic_name: "shipment.updated"
redis:
  host: "localhost"
  port: 6379
ship24:
  api_key: "sk_test"
shipwatch:
  http_addr: ":8080"
  status_source: "ship24"
  update_interval_seconds: 3600
  fetch_timeout_seconds: 30
  update_concurrency: 4
  rate_limit_per_minute: 60
  current_status_ttl_seconds: 600
`), 0o600))

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.Equal(t, "u", cfg.Database.Username)
	require.Equal(t, "shipment.updated", cfg.Kafka.ShipmentUpdatedTopicName)
	require.Equal(t, 6379, cfg.Redis.Port)
	require.Equal(t, "sk_test", cfg.Ship24.APIKey)
	require.Equal(t, ":8080", cfg.Shipwatch.HTTPAddr)
	require.Equal(t, 3600, cfg.Shipwatch.UpdateIntervalSeconds)
	require.Equal(t, 60, cfg.Shipwatch.RateLimitPerMinute)
}

func TestLoadConfig_MissingShip24KeyIsAllowed(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
database:
  host: "localhost"
  port: 5432
`), 0o600))

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.Empty(t, cfg.Ship24.APIKey)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/cfg.yaml")
	require.Error(t, err)
}
