// Package profile derives per-(location, product) sales statistics from history.
package profile

import (
	"context"
	"log"
	"math"

	"github.com/krish2105/lulu-intelligence-dashboard/internal/domain"
)

// Source supplies historical events.
type Source interface {
	GetHistorical(ctx context.Context) ([]*domain.SalesEvent, error)
}

type pairKey struct {
	locationID int
	productID  int
}

// Store holds immutable profiles. Safe for concurrent reads.
type Store struct {
	profiles map[pairKey]domain.Profile
}

// Load computes profiles from historical events.
// Events with IsStreaming set are ignored.
func Load(events []*domain.SalesEvent) *Store {
	groups := make(map[pairKey][]float64)
	for _, e := range events {
		if e == nil || e.IsStreaming {
			continue
		}
		k := pairKey{e.LocationID, e.ProductID}
		groups[k] = append(groups[k], float64(e.Quantity))
	}

	profiles := make(map[pairKey]domain.Profile, len(groups))
	for k, values := range groups {
		profiles[k] = summarize(k, values)
	}
	return &Store{profiles: profiles}
}

// LoadFrom reads history from src and builds profiles. A failing source yields
// an empty store so every lookup falls back to the default profile.
func LoadFrom(ctx context.Context, src Source, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	events, err := src.GetHistorical(ctx)
	if err != nil {
		logger.Printf("profile load failed, using defaults: %v", err)
		return Load(nil)
	}
	s := Load(events)
	logger.Printf("loaded %d profiles from %d historical events", s.Len(), len(events))
	return s
}

func summarize(k pairKey, values []float64) domain.Profile {
	p := domain.Profile{
		LocationID: k.locationID,
		ProductID:  k.productID,
		Count:      len(values),
		Min:        values[0],
		Max:        values[0],
	}

	var sum float64
	for _, v := range values {
		sum += v
		p.Min = math.Min(p.Min, v)
		p.Max = math.Max(p.Max, v)
	}
	p.Mean = sum / float64(len(values))

	// Sample standard deviation; a single observation has none.
	if len(values) > 1 {
		var sq float64
		for _, v := range values {
			d := v - p.Mean
			sq += d * d
		}
		p.StdDev = math.Sqrt(sq / float64(len(values)-1))
	}
	return p
}

// Lookup returns the profile for a pair and whether history existed.
func (s *Store) Lookup(locationID, productID int) (domain.Profile, bool) {
	p, ok := s.profiles[pairKey{locationID, productID}]
	return p, ok
}

// Get returns the pair's profile, or the default profile when there is no history.
func (s *Store) Get(locationID, productID int) domain.Profile {
	if p, ok := s.Lookup(locationID, productID); ok {
		return p
	}
	p := domain.DefaultProfile
	p.LocationID = locationID
	p.ProductID = productID
	return p
}

// Len returns the number of profiled pairs.
func (s *Store) Len() int {
	return len(s.profiles)
}
