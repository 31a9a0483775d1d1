// Command seed runs the database migrations and loads synthetic sales history.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/krish2105/lulu-intelligence-dashboard/internal/config"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/domain"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/seed"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/storage"
	chstore "github.com/krish2105/lulu-intelligence-dashboard/internal/storage/clickhouse"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/storage/migrations"
	pgstore "github.com/krish2105/lulu-intelligence-dashboard/internal/storage/postgres"
)

func main() {
	logger := log.New(os.Stderr, "[seed] ", log.LstdFlags)

	if err := config.LoadEnvFile(".env"); err != nil {
		logger.Printf("warning: read .env: %v", err)
	}
	cfg, err := config.Load(os.Getenv(config.EnvConfigPath))
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string (required)")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickhouseDSN, "ClickHouse connection string (optional rollup)")
	days := flag.Int("days", cfg.Seed.Days, "Days of history to generate")
	seedValue := flag.Uint64("seed", cfg.Seed.Seed, "Random seed")
	locations := flag.Int("locations", cfg.Catalog.Locations, "Number of store locations")
	products := flag.Int("products", cfg.Catalog.Products, "Number of products")
	flag.Parse()

	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	applied, err := migrations.RunPostgresMigrations(ctx, pool)
	if err != nil {
		logger.Fatalf("postgres migrations: %v", err)
	}
	logger.Printf("postgres migrations applied: %v", applied)

	var rollup storage.DailySalesWriter
	if *clickhouseDSN != "" {
		conn, chApplied, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("clickhouse migrations: %v", err)
		}
		defer conn.Close()
		rollup = chstore.NewDailySalesStore(conn)
		logger.Printf("clickhouse rollup enabled, migrations applied: %v", chApplied)
	}

	start := time.Now()
	n, err := seed.Run(ctx, pgstore.NewSalesEventStore(pool), rollup, seed.Options{
		Catalog: domain.DefaultCatalog(*locations, *products),
		Days:    *days,
		Seed:    *seedValue,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatalf("seed: %v", err)
	}
	logger.Printf("done: %d rows in %v", n, time.Since(start).Round(time.Millisecond))
}
