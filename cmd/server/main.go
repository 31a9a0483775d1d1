// Package main runs the retail streaming service: the event generator, the
// alert publisher and the HTTP surface (SSE and WebSocket streams, cached KPI
// and alert queries, health, status and metrics).
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/krish2105/lulu-intelligence-dashboard/internal/alerts"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/bus"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/config"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/domain"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/generator"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/kpi"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/profile"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/stream"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Load .env file if exists
	if err := config.LoadEnvFile(".env"); err != nil {
		logger.Printf("warning: read .env: %v", err)
	}

	configPath := flag.String("config", os.Getenv(config.EnvConfigPath), "YAML configuration file")
	httpAddr := flag.String("http-addr", "", "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (optional analytics rollup)")
	redisURL := flag.String("redis-url", "", "Redis URL for the metrics cache (optional)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage seeded with synthetic history")
	interval := flag.Float64("interval", 0, "Base streaming interval in seconds")
	locations := flag.Int("locations", 0, "Number of store locations")
	products := flag.Int("products", 0, "Number of products")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	// Flags override file and environment when set.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "http-addr":
			cfg.HTTPAddr = *httpAddr
		case "postgres-dsn":
			cfg.PostgresDSN = *postgresDSN
		case "clickhouse-dsn":
			cfg.ClickhouseDSN = *clickhouseDSN
		case "redis-url":
			cfg.RedisURL = *redisURL
		case "use-memory":
			cfg.UseMemory = *useMemory
		case "interval":
			cfg.Streaming.IntervalSeconds = *interval
		case "locations":
			cfg.Catalog.Locations = *locations
		case "products":
			cfg.Catalog.Products = *products
		}
	})
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid configuration: %v (use --use-memory for in-memory storage)", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	catalog := domain.DefaultCatalog(cfg.Catalog.Locations, cfg.Catalog.Products)

	st, cleanup, err := createStores(ctx, cfg, catalog, log.New(os.Stdout, "[storage] ", log.LstdFlags))
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()
	logger.Printf("storage mode: %s", st.mode)

	metricsCache, closeCache := createCache(ctx, cfg, log.New(os.Stdout, "[cache] ", log.LstdFlags))
	defer closeCache()

	profiles := profile.LoadFrom(ctx, st.events, log.New(os.Stdout, "[profile] ", log.LstdFlags))

	b := bus.New(bus.Options{BufferSize: cfg.Streaming.BufferSize})

	gen, err := generator.New(generator.Options{
		Store:       st.events,
		Rollup:      st.rollup,
		Bus:         b,
		Profiles:    profiles,
		Catalog:     catalog,
		Interval:    cfg.Streaming.Interval(),
		MinInterval: cfg.Streaming.MinInterval(),
		Seed:        cfg.Streaming.Seed,
		Logger:      log.New(os.Stdout, "[generator] ", log.LstdFlags),
	})
	if err != nil {
		logger.Fatalf("create generator: %v", err)
	}

	alertLogger := log.New(os.Stdout, "[alerts] ", log.LstdFlags)
	alertGen := alerts.NewGenerator(st.daily, catalog, alerts.Options{
		LowStockLimit: cfg.Alerts.LowStockLimit,
		AnomalyLimit:  cfg.Alerts.AnomalyLimit,
		Logger:        alertLogger,
	})
	publisher := alerts.NewPublisher(alertGen, b, alerts.PublisherOptions{
		Interval: cfg.Alerts.Interval(),
		Cache:    metricsCache,
		Logger:   alertLogger,
	})

	a := &api{
		events:    st.events,
		kpis:      kpi.NewService(st.daily, st.events, alertGen, catalog, kpi.Options{Cache: metricsCache}),
		alerts:    alertGen,
		cache:     metricsCache,
		bus:       b,
		fanout:    stream.NewFanout(b, stream.Options{Logger: log.New(os.Stdout, "[stream] ", log.LstdFlags)}),
		generator: gen,
		catalog:   catalog,
		mode:      st.mode,
		started:   time.Now(),
	}

	g, gctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.routes(stream.WSOptions{}),
		ReadHeaderTimeout: 10 * time.Second,
		// Open streams end when the group stops.
		BaseContext: func(net.Listener) context.Context { return gctx },
	}

	// Channel to signal completion
	done := make(chan struct{})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		var sig os.Signal
		select {
		case sig = <-sigCh:
		case <-done:
			return
		}
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	g.Go(func() error { return gen.Run(gctx) })
	g.Go(func() error { return publisher.Run(gctx) })
	g.Go(func() error {
		logger.Printf("Starting HTTP server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, scancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer scancel()
		return srv.Shutdown(sctx)
	})

	err = g.Wait()
	close(done)

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Printf("Server error: %v", err)
		cleanup()
		closeCache()
		os.Exit(1)
	}
	logger.Println("Shutdown complete")
}
