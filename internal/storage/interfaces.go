package storage

import (
	"context"
	"time"

	"github.com/krish2105/lulu-intelligence-dashboard/internal/domain"
)

// SalesEventStore provides access to sales_events storage.
type SalesEventStore interface {
	// Insert adds a new event. Returns ErrDuplicateKey if the id exists,
	// ErrInvalidInput if the event violates the quantity sign rule.
	Insert(ctx context.Context, e *domain.SalesEvent) error

	// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, events []*domain.SalesEvent) error

	// GetHistorical retrieves all non-streaming events, ordered by date ASC.
	GetHistorical(ctx context.Context) ([]*domain.SalesEvent, error)

	// GetLatest retrieves up to limit events ordered by created_at DESC.
	GetLatest(ctx context.Context, limit int) ([]*domain.SalesEvent, error)

	// Stats summarises row counts and the covered date range.
	Stats(ctx context.Context) (domain.SalesStats, error)
}

// DailySalesReader provides per-day aggregates used by alerting and KPIs.
type DailySalesReader interface {
	// GetDailySales retrieves aggregates for days within [start, end] (inclusive),
	// ordered by date, location, product.
	GetDailySales(ctx context.Context, start, end time.Time) ([]domain.DailySales, error)

	// LatestDate returns the most recent day with data. Returns ErrNotFound if empty.
	LatestDate(ctx context.Context) (time.Time, error)
}

// DailySalesWriter appends events to the daily rollup.
type DailySalesWriter interface {
	// Record folds events into their (date, location, product) aggregates.
	Record(ctx context.Context, events []*domain.SalesEvent) error
}

// DailySalesStore is a rollup that can be both written and read.
type DailySalesStore interface {
	DailySalesReader
	DailySalesWriter
}
