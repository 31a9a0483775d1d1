package main

import (
	"context"
	"fmt"
	"log"

	"github.com/krish2105/lulu-intelligence-dashboard/internal/cache"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/config"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/domain"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/seed"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/storage"
	chstore "github.com/krish2105/lulu-intelligence-dashboard/internal/storage/clickhouse"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/storage/memory"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/storage/migrations"
	pgstore "github.com/krish2105/lulu-intelligence-dashboard/internal/storage/postgres"
)

// stores holds the storage the server runs against.
type stores struct {
	events storage.SalesEventStore
	daily  storage.DailySalesReader
	rollup storage.DailySalesWriter // nil without an analytics store
	mode   string
}

// createStores opens the configured backends. Memory mode seeds history so
// profiles, alerts and KPIs have data from the first request.
func createStores(ctx context.Context, cfg config.Config, catalog domain.Catalog, logger *log.Logger) (*stores, func(), error) {
	if cfg.UseMemory {
		events := memory.NewSalesEventStore()
		if _, err := seed.Run(ctx, events, nil, seed.Options{
			Catalog: catalog,
			Days:    cfg.Seed.Days,
			Seed:    cfg.Seed.Seed,
			Logger:  logger,
		}); err != nil {
			return nil, nil, fmt.Errorf("seed memory store: %w", err)
		}
		return &stores{events: events, daily: events, mode: "memory"}, func() {}, nil
	}

	pool, err := pgstore.NewPoolWithOptions(ctx, cfg.PostgresDSN, pgstore.PoolOptions{
		MaxConns:          int32(cfg.PostgresPool.MaxConns),
		MinConns:          int32(cfg.PostgresPool.MinConns),
		HealthCheckPeriod: cfg.PostgresPool.HealthCheckPeriod(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	applied, err := migrations.RunPostgresMigrations(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}
	if len(applied) > 0 {
		logger.Printf("applied postgres migrations: %v", applied)
	}

	events := pgstore.NewSalesEventStore(pool)
	s := &stores{events: events, daily: events, mode: "postgres"}
	cleanup := func() { pool.Close() }

	if cfg.ClickhouseDSN == "" {
		return s, cleanup, nil
	}

	conn, chApplied, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse: %w", err)
	}
	if len(chApplied) > 0 {
		logger.Printf("applied clickhouse migrations: %v", chApplied)
	}
	rollup := chstore.NewDailySalesStore(conn)
	s.daily = rollup
	s.rollup = rollup
	s.mode = "postgres+clickhouse"

	return s, func() {
		conn.Close()
		pool.Close()
	}, nil
}

// createCache uses Redis when configured and reachable, memory otherwise.
func createCache(ctx context.Context, cfg config.Config, logger *log.Logger) (*cache.Cache, func()) {
	opts := cache.Options{
		TTLs:       cfg.Cache.TTLs(),
		DefaultTTL: cfg.Cache.DefaultTTL(),
		Timeout:    cfg.Cache.Timeout(),
		Logger:     logger,
	}

	if cfg.RedisURL != "" {
		backend, err := cache.DialRedis(ctx, cfg.RedisURL)
		if err == nil {
			logger.Println("cache backend: redis")
			return cache.New(backend, opts), func() { backend.Close() }
		}
		logger.Printf("warning: redis unavailable, using in-memory cache: %v", err)
	}

	logger.Println("cache backend: memory")
	return cache.New(cache.NewMemoryBackend(nil), opts), func() {}
}
