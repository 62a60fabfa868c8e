package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/shipwatch/shipwatch/config"
	"github.com/shipwatch/shipwatch/internal/adapters"
	"github.com/shipwatch/shipwatch/internal/adapters/scrape"
	"github.com/shipwatch/shipwatch/internal/adapters/ship24"
	"github.com/shipwatch/shipwatch/internal/api/httpapi"
	"github.com/shipwatch/shipwatch/internal/broker/kafka"
	"github.com/shipwatch/shipwatch/internal/cache/rediscache"
	"github.com/shipwatch/shipwatch/internal/services/shipments"
	"github.com/shipwatch/shipwatch/internal/services/updater"
	"github.com/shipwatch/shipwatch/internal/storage/pgstore"
)

type app struct {
	cfg *config.Config

	svc *shipments.Service
	upd *updater.Updater

	httpAddr string

	closeDB       func()
	closeProducer func() error
}

func loadConfigFromEnv() (*config.Config, error) {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		return nil, fmt.Errorf("configPath env var is required")
	}
	return config.LoadConfig(cfgPath)
}

func bootstrap(cfg *config.Config) (*app, error) {
	httpAddr := cfg.Shipwatch.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	topic := cfg.Kafka.ShipmentUpdatedTopicName
	if topic == "" {
		topic = "shipment.updated"
	}
	cacheTTL := time.Duration(cfg.Shipwatch.CurrentStatusTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	interval := time.Duration(cfg.Shipwatch.UpdateIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Hour
	}
	fetchTimeout := time.Duration(cfg.Shipwatch.FetchTimeoutSeconds) * time.Second
	if fetchTimeout <= 0 {
		fetchTimeout = 30 * time.Second
	}

	sslMode := cfg.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
	st, err := openPostgresWithRetry(connString, 60*time.Second)
	if err != nil {
		return nil, err
	}

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	rc := rediscache.New(redisAddr)
	rl := rediscache.NewRateLimiter(redisAddr)

	svc := shipments.New(st, rc, cacheTTL)

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	producer := kafka.NewProducer(brokers)

	upd := updater.New(svc, statusSource(cfg), producer, rl, topic).
		WithSettings(interval, fetchTimeout, cfg.Shipwatch.UpdateConcurrency, int64(cfg.Shipwatch.RateLimitPerMinute))

	return &app{
		cfg:           cfg,
		svc:           svc,
		upd:           upd,
		httpAddr:      httpAddr,
		closeDB:       st.Close,
		closeProducer: producer.Close,
	}, nil
}

// statusSource picks the upstream strategy for the whole deployment. Ship24
// selected without an API key is allowed: each fetch then fails with "not
// configured" and is retried on the next scheduled run.
func statusSource(cfg *config.Config) adapters.Adapter {
	switch cfg.Shipwatch.StatusSource {
	case "scrape":
		return scrape.New()
	default:
		return ship24.New(cfg.Ship24.BaseURL, cfg.Ship24.APIKey)
	}
}

func openPostgresWithRetry(connString string, wait time.Duration) (*pgstore.Storage, error) {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgstore.New(connString)
		if err == nil {
			return st, nil
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	return nil, fmt.Errorf("postgres is not ready after %s: %v", wait, lastErr)
}

func (a *app) Close() {
	if a.closeProducer != nil {
		_ = a.closeProducer()
	}
	if a.closeDB != nil {
		a.closeDB()
	}
}

func (a *app) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", a.httpAddr)
	if err != nil {
		return err
	}

	go func() {
		slog.Info("updater started")
		if err := a.upd.Run(ctx); err != nil && err != context.Canceled {
			slog.Error("updater stopped", "error", err.Error())
		}
	}()

	srv := &http.Server{Handler: httpapi.NewRouter(a.svc, a.upd)}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	slog.Info("HTTP server listening", "addr", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && err != http.ErrServerClosed {
		return err
	}
	return ctx.Err()
}
