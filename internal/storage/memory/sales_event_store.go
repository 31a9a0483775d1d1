package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/krish2105/lulu-intelligence-dashboard/internal/domain"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/storage"
)

// SalesEventStore is an in-memory implementation of storage.SalesEventStore.
// It also serves daily aggregates so memory mode needs no separate rollup.
type SalesEventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SalesEvent // keyed by event id
}

// NewSalesEventStore creates a new in-memory sales event store.
func NewSalesEventStore() *SalesEventStore {
	return &SalesEventStore{
		data: make(map[string]*domain.SalesEvent),
	}
}

func checkEvent(e *domain.SalesEvent) error {
	if e == nil || e.ID == "" {
		return storage.ErrInvalidInput
	}
	if err := e.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}
	return nil
}

// Insert adds a new event. Returns ErrDuplicateKey if the id exists.
func (s *SalesEventStore) Insert(_ context.Context, e *domain.SalesEvent) error {
	if err := checkEvent(e); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.ID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *e
	s.data[e.ID] = &copy
	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *SalesEventStore) InsertBulk(_ context.Context, events []*domain.SalesEvent) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[string]struct{}, len(events))
	for _, e := range events {
		if err := checkEvent(e); err != nil {
			return err
		}
		if _, exists := s.data[e.ID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batch[e.ID]; exists {
			return storage.ErrDuplicateKey
		}
		batch[e.ID] = struct{}{}
	}

	for _, e := range events {
		copy := *e
		s.data[e.ID] = &copy
	}
	return nil
}

// GetHistorical retrieves all non-streaming events, ordered by date ASC.
func (s *SalesEventStore) GetHistorical(_ context.Context) ([]*domain.SalesEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SalesEvent
	for _, e := range s.data {
		if !e.IsStreaming {
			copy := *e
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.LocationID != b.LocationID {
			return a.LocationID < b.LocationID
		}
		if a.ProductID != b.ProductID {
			return a.ProductID < b.ProductID
		}
		return a.ID < b.ID
	})
	return result, nil
}

// GetLatest retrieves up to limit events ordered by created_at DESC.
func (s *SalesEventStore) GetLatest(_ context.Context, limit int) ([]*domain.SalesEvent, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.SalesEvent, 0, len(s.data))
	for _, e := range s.data {
		copy := *e
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Stats summarises row counts and the covered date range.
func (s *SalesEventStore) Stats(_ context.Context) (domain.SalesStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st domain.SalesStats
	for _, e := range s.data {
		if e.IsStreaming {
			st.StreamingCount++
			if e.CreatedAt.After(st.LastStreamedAt) {
				st.LastStreamedAt = e.CreatedAt
			}
		} else {
			st.HistoricalCount++
		}
		if st.FirstDate.IsZero() || e.Date.Before(st.FirstDate) {
			st.FirstDate = e.Date
		}
		if e.Date.After(st.LastDate) {
			st.LastDate = e.Date
		}
	}
	return st, nil
}

// GetDailySales aggregates events by (date, location, product) for days within [start, end].
func (s *SalesEventStore) GetDailySales(_ context.Context, start, end time.Time) ([]domain.DailySales, error) {
	start, end = domain.Day(start), domain.Day(end)

	s.mu.RLock()
	defer s.mu.RUnlock()

	agg := newAggregator()
	for _, e := range s.data {
		d := domain.Day(e.Date)
		if d.Before(start) || d.After(end) {
			continue
		}
		agg.add(d, e.LocationID, e.ProductID, e.Quantity, 1)
	}
	return agg.rows(), nil
}

// LatestDate returns the most recent day with data. Returns ErrNotFound if empty.
func (s *SalesEventStore) LatestDate(_ context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest time.Time
	for _, e := range s.data {
		if d := domain.Day(e.Date); d.After(latest) {
			latest = d
		}
	}
	if latest.IsZero() {
		return time.Time{}, storage.ErrNotFound
	}
	return latest, nil
}

var (
	_ storage.SalesEventStore  = (*SalesEventStore)(nil)
	_ storage.DailySalesReader = (*SalesEventStore)(nil)
)
