package alerts

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/krish2105/lulu-intelligence-dashboard/internal/bus"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/domain"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/observability"
)

// Broadcaster delivers encoded payloads to a named channel.
type Broadcaster interface {
	Publish(channel string, data []byte) int
}

// Invalidator drops cached entries of a namespace or family.
type Invalidator interface {
	Invalidate(ctx context.Context, namespace string) (int, error)
}

// Cache families refreshed when the publisher pushes updates.
const (
	AlertsFamily    = "alerts_*"
	InventoryFamily = "inventory_*"
)

// PublisherOptions configures a Publisher.
type PublisherOptions struct {
	Interval time.Duration // default 60s
	Cache    Invalidator   // optional
	Logger   *log.Logger
}

// Publisher regenerates alerts periodically and pushes what changed: alerts not
// seen in the previous run go to the alerts channel, inventory estimates whose
// quantity or status moved go to the inventory channel. The first run sets the
// inventory baseline without publishing it.
type Publisher struct {
	gen      *Generator
	bus      Broadcaster
	cache    Invalidator
	interval time.Duration
	logger   *log.Logger

	seen      map[string]string // alert id -> detector
	inventory map[pairKey]domain.InventorySnapshot
}

// NewPublisher creates a publisher publishing onto b.
func NewPublisher(gen *Generator, b Broadcaster, opts PublisherOptions) *Publisher {
	interval := opts.Interval
	if interval <= 0 {
		interval = 60 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Publisher{
		gen:      gen,
		bus:      b,
		cache:    opts.Cache,
		interval: interval,
		logger:   logger,
		seen:     make(map[string]string),
	}
}

// Run publishes immediately and then on every interval until ctx is done.
func (p *Publisher) Run(ctx context.Context) error {
	p.logger.Printf("Alert publisher started, interval: %v", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		alerts, updates := p.RunOnce(ctx)
		if alerts > 0 || updates > 0 {
			p.logger.Printf("published %d alerts, %d inventory updates", alerts, updates)
		}

		select {
		case <-ctx.Done():
			p.logger.Println("Alert publisher stopping...")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce performs one detection pass and returns how many alerts and
// inventory updates were published.
func (p *Publisher) RunOnce(ctx context.Context) (alerts, updates int) {
	det := p.gen.Detect(ctx)

	// Alerts of a detector that failed this pass stay seen so they are not
	// published again once it recovers.
	next := make(map[string]string, len(det.Alerts))
	for id, detector := range p.seen {
		if _, failed := det.Failed[detector]; failed {
			next[id] = detector
		}
	}
	for _, a := range det.Alerts {
		next[a.ID] = det.Sources[a.ID]
		if _, ok := p.seen[a.ID]; ok {
			continue
		}
		if p.publish(bus.ChannelAlerts, NewAlertPayload(a)) {
			observability.RecordAlertPublished()
			alerts++
		}
	}
	p.seen = next

	if det.Inventory != nil {
		updates = p.publishInventory(det.Inventory)
	}

	if alerts > 0 {
		p.invalidate(ctx, AlertsFamily)
	}
	if updates > 0 {
		p.invalidate(ctx, InventoryFamily)
	}
	return alerts, updates
}

func (p *Publisher) publishInventory(snaps []domain.InventorySnapshot) int {
	baseline := p.inventory == nil
	next := make(map[pairKey]domain.InventorySnapshot, len(snaps))

	n := 0
	for _, s := range snaps {
		k := pairKey{s.LocationID, s.ProductID}
		next[k] = s
		if baseline {
			continue
		}
		prev, ok := p.inventory[k]
		if ok && prev.Quantity == s.Quantity && prev.Status == s.Status {
			continue
		}
		if p.publish(bus.ChannelInventory, NewInventoryPayload(s, p.gen.catalog)) {
			n++
		}
	}
	p.inventory = next
	return n
}

func (p *Publisher) publish(channel string, v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		p.logger.Printf("encode %s payload: %v", channel, err)
		return false
	}
	p.bus.Publish(channel, data)
	return true
}

func (p *Publisher) invalidate(ctx context.Context, family string) {
	if p.cache == nil {
		return
	}
	if _, err := p.cache.Invalidate(ctx, family); err != nil {
		p.logger.Printf("warning: invalidate %s: %v", family, err)
	}
}
