// Package generator runs the synthetic sales simulation loop.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/krish2105/lulu-intelligence-dashboard/internal/bus"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/domain"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/market"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/observability"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/profile"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/storage"
)

// MaxReturnStreak is the longest run of consecutive returns; the tick after
// such a run is forced to a regular sale.
const MaxReturnStreak = 5

// EventWriter persists generated events.
type EventWriter interface {
	Insert(ctx context.Context, e *domain.SalesEvent) error
}

// Publisher delivers encoded payloads to a named channel.
type Publisher interface {
	Publish(channel string, data []byte) int
}

// Options contains configuration for creating a Generator.
type Options struct {
	Store    EventWriter              // required
	Rollup   storage.DailySalesWriter // optional analytics mirror
	Bus      Publisher                // required
	Profiles *profile.Store           // nil means defaults for every pair
	Catalog  domain.Catalog           // default: 10 locations x 50 products

	Interval       time.Duration // base delay between ticks, default 5s
	MinInterval    time.Duration // floor for the jittered delay, default 3s
	PersistTimeout time.Duration // default 5s

	Classifier market.ClassifierOptions
	Seed       uint64 // 0 seeds from the clock
	Now        func() time.Time
	Logger     *log.Logger
}

// Generator produces one sales event per tick. It owns the market model, the
// random source and the return streak; none of them are shared.
type Generator struct {
	store    EventWriter
	rollup   storage.DailySalesWriter
	bus      Publisher
	profiles *profile.Store
	catalog  domain.Catalog

	interval       time.Duration
	minInterval    time.Duration
	persistTimeout time.Duration

	rng        *rand.Rand
	market     *market.Model
	classifier *market.Classifier
	now        func() time.Time
	logger     *log.Logger

	returnStreak int

	mu     sync.Mutex
	status Status
}

// Status is a point-in-time view of the generator, safe to read from any
// goroutine.
type Status struct {
	Market      domain.MarketState
	Generated   uint64
	Failed      uint64
	LastEventAt time.Time
}

// New creates a generator.
func New(opts Options) (*Generator, error) {
	if opts.Store == nil {
		return nil, errors.New("generator: store is required")
	}
	if opts.Bus == nil {
		return nil, errors.New("generator: bus is required")
	}

	catalog := opts.Catalog
	if len(catalog.Locations) == 0 || len(catalog.Products) == 0 {
		catalog = domain.DefaultCatalog(10, 50)
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	minInterval := opts.MinInterval
	if minInterval <= 0 {
		minInterval = 3 * time.Second
	}
	persistTimeout := opts.PersistTimeout
	if persistTimeout <= 0 {
		persistTimeout = 5 * time.Second
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	classifier, err := market.NewClassifier(rng, opts.Classifier)
	if err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}

	profiles := opts.Profiles
	if profiles == nil {
		profiles = profile.Load(nil)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	g := &Generator{
		store:          opts.Store,
		rollup:         opts.Rollup,
		bus:            opts.Bus,
		profiles:       profiles,
		catalog:        catalog,
		interval:       interval,
		minInterval:    minInterval,
		persistTimeout: persistTimeout,
		rng:            rng,
		market:         market.NewModel(rng, now),
		classifier:     classifier,
		now:            now,
		logger:         logger,
	}
	g.status.Market = g.market.State()
	return g, nil
}

// Status returns the latest published snapshot.
func (g *Generator) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

func (g *Generator) record(state domain.MarketState, event *domain.SalesEvent) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.status.Market = state
	if event == nil {
		g.status.Failed++
		return
	}
	g.status.Generated++
	g.status.LastEventAt = event.CreatedAt
}

// Run ticks until ctx is cancelled. A failed tick is logged and skipped.
func (g *Generator) Run(ctx context.Context) error {
	g.logger.Printf("Generator started: interval=%v min=%v locations=%d products=%d",
		g.interval, g.minInterval, len(g.catalog.Locations), len(g.catalog.Products))

	for {
		event, err := g.safeTick(ctx)
		if err != nil {
			g.logger.Printf("tick failed: %v", err)
		}
		g.record(g.market.State(), event)

		timer := time.NewTimer(g.nextDelay())
		select {
		case <-ctx.Done():
			timer.Stop()
			g.logger.Println("Generator stopping...")
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (g *Generator) safeTick(ctx context.Context) (e *domain.SalesEvent, err error) {
	defer func() {
		if r := recover(); r != nil {
			observability.RecordTickFailure("panic")
			err = fmt.Errorf("tick panic: %v", r)
		}
	}()
	return g.Tick(ctx)
}

// nextDelay jitters the base interval by -30%..+50%.
func (g *Generator) nextDelay() time.Duration {
	d := time.Duration(float64(g.interval) * (1 + uniform(g.rng, -0.3, 0.5)))
	if d < g.minInterval {
		return g.minInterval
	}
	return d
}

// Tick generates, persists and publishes one event.
func (g *Generator) Tick(ctx context.Context) (*domain.SalesEvent, error) {
	if updated, shock := g.market.Update(); updated {
		s := g.market.State()
		observability.UpdateMarket(s.Sentiment, s.Volatility, shock)
		if shock {
			g.logger.Printf("market shock: sentiment=%.3f volatility=%.3f", s.Sentiment, s.Volatility)
		}
	}
	state := g.market.State()

	loc := g.catalog.Locations[g.rng.IntN(len(g.catalog.Locations))]
	prod := g.catalog.Products[g.rng.IntN(len(g.catalog.Products))]

	category, streak := g.damp(g.classifier.Classify(state, g.catalog.IsHighReturn(prod.ID)))

	now := g.now()
	event := &domain.SalesEvent{
		ID:          uuid.NewString(),
		Date:        domain.Day(now),
		LocationID:  loc.ID,
		ProductID:   prod.ID,
		Quantity:    quantity(g.rng, g.profiles.Get(loc.ID, prod.ID), category, state, now),
		IsStreaming: true,
		Category:    category,
		CreatedAt:   now.UTC(),
	}
	if err := event.Validate(); err != nil {
		observability.RecordTickFailure("validate")
		return nil, fmt.Errorf("generated invalid event: %w", err)
	}

	var reason string
	if category == domain.CategoryReturn {
		reason = domain.ReturnReasons[g.rng.IntN(len(domain.ReturnReasons))]
	}

	if err := g.persist(ctx, event); err != nil {
		return nil, err
	}
	// The streak follows stored events only.
	g.returnStreak = streak

	data, err := json.Marshal(newSalePayload(event, g.catalog, state, reason))
	if err != nil {
		observability.RecordTickFailure("encode")
		return nil, fmt.Errorf("encode sale payload: %w", err)
	}
	g.bus.Publish(bus.ChannelSales, data)
	observability.RecordEventGenerated(string(category), event.Quantity)

	return event, nil
}

// damp forces a regular sale once MaxReturnStreak returns happened in a row.
// It returns the category and the streak to commit once the event is stored.
func (g *Generator) damp(category domain.TransactionCategory) (domain.TransactionCategory, int) {
	if category == domain.CategoryReturn && g.returnStreak >= MaxReturnStreak {
		category = domain.CategoryRegular
	}
	if category == domain.CategoryReturn {
		return category, g.returnStreak + 1
	}
	return category, 0
}

// persist writes the event on a context that survives cancellation, so a
// shutdown never abandons a write mid-flight. The rollup mirror is best-effort.
func (g *Generator) persist(ctx context.Context, event *domain.SalesEvent) error {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.persistTimeout)
	defer cancel()

	if err := g.store.Insert(wctx, event); err != nil {
		observability.RecordTickFailure("persist")
		return fmt.Errorf("persist sales event: %w", err)
	}

	if g.rollup != nil {
		if err := g.rollup.Record(wctx, []*domain.SalesEvent{event}); err != nil {
			observability.RecordTickFailure("rollup")
			g.logger.Printf("warning: rollup mirror failed for %s: %v", event.ID, err)
		}
	}
	return nil
}
