package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/krish2105/lulu-intelligence-dashboard/internal/domain"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/storage"
)

type dailyKey struct {
	date       time.Time
	locationID int
	productID  int
}

// aggregator sums quantities per (date, location, product).
type aggregator struct {
	sums map[dailyKey]*domain.DailySales
}

func newAggregator() *aggregator {
	return &aggregator{sums: make(map[dailyKey]*domain.DailySales)}
}

func (a *aggregator) add(date time.Time, locationID, productID, quantity, events int) {
	k := dailyKey{date, locationID, productID}
	row, ok := a.sums[k]
	if !ok {
		row = &domain.DailySales{Date: date, LocationID: locationID, ProductID: productID}
		a.sums[k] = row
	}
	row.Quantity += quantity
	row.Events += events
}

func (a *aggregator) rows() []domain.DailySales {
	out := make([]domain.DailySales, 0, len(a.sums))
	for _, r := range a.sums {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].LocationID != out[j].LocationID {
			return out[i].LocationID < out[j].LocationID
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out
}

// DailySalesStore is an in-memory implementation of storage.DailySalesStore.
type DailySalesStore struct {
	mu  sync.RWMutex
	agg *aggregator
}

// NewDailySalesStore creates a new in-memory daily rollup.
func NewDailySalesStore() *DailySalesStore {
	return &DailySalesStore{agg: newAggregator()}
}

// Record folds events into their (date, location, product) aggregates.
func (s *DailySalesStore) Record(_ context.Context, events []*domain.SalesEvent) error {
	for _, e := range events {
		if e == nil {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		s.agg.add(domain.Day(e.Date), e.LocationID, e.ProductID, e.Quantity, 1)
	}
	return nil
}

// GetDailySales retrieves aggregates for days within [start, end] (inclusive).
func (s *DailySalesStore) GetDailySales(_ context.Context, start, end time.Time) ([]domain.DailySales, error) {
	start, end = domain.Day(start), domain.Day(end)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.DailySales
	for _, r := range s.agg.rows() {
		if r.Date.Before(start) || r.Date.After(end) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// LatestDate returns the most recent day with data. Returns ErrNotFound if empty.
func (s *DailySalesStore) LatestDate(_ context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest time.Time
	for k := range s.agg.sums {
		if k.date.After(latest) {
			latest = k.date
		}
	}
	if latest.IsZero() {
		return time.Time{}, storage.ErrNotFound
	}
	return latest, nil
}

var _ storage.DailySalesStore = (*DailySalesStore)(nil)
