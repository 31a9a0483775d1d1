// Package seed writes deterministic synthetic sales history so profiles,
// alerts and KPIs have data before the stream has produced any.
package seed

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/krish2105/lulu-intelligence-dashboard/internal/domain"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/storage"
)

// historyNamespace scopes the name-based UUIDs of seeded rows.
var historyNamespace = uuid.MustParse("6f1c2a8e-3b7d-4c55-9a0e-1d2f3b4c5d6e")

// Options configures history generation.
type Options struct {
	Catalog   domain.Catalog
	Days      int    // default 90
	Seed      uint64 // same seed, same history
	End       time.Time
	BatchSize int // default 5000
	Logger    *log.Logger
}

func (o *Options) defaults() {
	if o.Days <= 0 {
		o.Days = 90
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 5000
	}
	if o.End.IsZero() {
		o.End = domain.Day(time.Now()).AddDate(0, 0, -1)
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
}

// EventID is the stable identifier of the seeded row for one pair and day.
func EventID(locationID, productID int, day time.Time) string {
	name := fmt.Sprintf("history:%d:%d:%s", locationID, productID, day.Format(time.DateOnly))
	return uuid.NewSHA1(historyNamespace, []byte(name)).String()
}

// Generate builds one historical row per (location, product, day) for the
// Days days ending at End. Quantities follow a per-pair base rate with a
// weekly cycle and a weekend lift, never negative.
func Generate(opts Options) []*domain.SalesEvent {
	opts.defaults()
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x2545f4914f6cdd1d))

	end := domain.Day(opts.End)
	start := end.AddDate(0, 0, -(opts.Days - 1))

	events := make([]*domain.SalesEvent, 0, opts.Days*len(opts.Catalog.Locations)*len(opts.Catalog.Products))
	for _, loc := range opts.Catalog.Locations {
		for _, prod := range opts.Catalog.Products {
			base := 5 + rng.Float64()*55
			spread := base * 0.25
			for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
				mean := base * weeklyCycle(day)
				qty := int(math.Round(mean + rng.NormFloat64()*spread))
				events = append(events, &domain.SalesEvent{
					ID:         EventID(loc.ID, prod.ID, day),
					Date:       day,
					LocationID: loc.ID,
					ProductID:  prod.ID,
					Quantity:   max(qty, 0),
					CreatedAt:  day,
				})
			}
		}
	}
	return events
}

// weeklyCycle is the day-of-week multiplier, Monday-based, with Saturday and
// Sunday lifted by 20%.
func weeklyCycle(day time.Time) float64 {
	dow := (int(day.Weekday()) + 6) % 7
	f := 1 + 0.1*math.Sin(2*math.Pi*float64(dow)/7)
	if dow >= 5 {
		f *= 1.2
	}
	return f
}

// Run generates history and writes it to store, mirroring each batch into
// rollup when one is given. A store that already holds history is left
// untouched and Run returns 0.
func Run(ctx context.Context, store storage.SalesEventStore, rollup storage.DailySalesWriter, opts Options) (int, error) {
	opts.defaults()

	stats, err := store.Stats(ctx)
	if err != nil {
		return 0, fmt.Errorf("read store stats: %w", err)
	}
	if stats.HistoricalCount > 0 {
		opts.Logger.Printf("history already present (%d rows), skipping seed", stats.HistoricalCount)
		return 0, nil
	}

	events := Generate(opts)
	opts.Logger.Printf("seeding %d historical rows (%d days ending %s)",
		len(events), opts.Days, opts.End.Format(time.DateOnly))

	written := 0
	for i := 0; i < len(events); i += opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		batch := events[i:min(i+opts.BatchSize, len(events))]
		if err := store.InsertBulk(ctx, batch); err != nil {
			return written, fmt.Errorf("insert batch at %d: %w", i, err)
		}
		if rollup != nil {
			if err := rollup.Record(ctx, batch); err != nil {
				return written, fmt.Errorf("record rollup batch at %d: %w", i, err)
			}
		}
		written += len(batch)
	}

	opts.Logger.Printf("seeded %d historical rows", written)
	return written, nil
}
