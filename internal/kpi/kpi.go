// Package kpi computes dashboard headline figures from the daily rollup and
// the event store, served through the derived metrics cache.
package kpi

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/krish2105/lulu-intelligence-dashboard/internal/alerts"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/cache"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/domain"
	"github.com/krish2105/lulu-intelligence-dashboard/internal/storage"
)

// Cache operations.
const (
	OperationSummary    = "kpis"
	OperationCategories = "inventory_categories"
)

const (
	weekDays  = 7
	monthDays = 30

	// trendBand is the relative week-over-week change treated as stable.
	trendBand = 0.05
)

// StatsSource summarises the event store.
type StatsSource interface {
	Stats(ctx context.Context) (domain.SalesStats, error)
}

// Scope narrows a summary to one location and/or product. Zero means all.
type Scope struct {
	LocationID int
	ProductID  int
}

func (s Scope) matches(r domain.DailySales) bool {
	return (s.LocationID == 0 || r.LocationID == s.LocationID) &&
		(s.ProductID == 0 || r.ProductID == s.ProductID)
}

func (s Scope) params() map[string]any {
	return map[string]any{"location_id": s.LocationID, "product_id": s.ProductID}
}

// Options configures a Service.
type Options struct {
	Cache *cache.Cache // optional
	Now   func() time.Time
}

// Service computes KPI views.
type Service struct {
	daily   storage.DailySalesReader
	stats   StatsSource
	alerts  *alerts.Generator
	catalog domain.Catalog
	cache   *cache.Cache
	now     func() time.Time
}

// NewService creates a KPI service. inventory supplies the stock estimates
// behind the category breakdown.
func NewService(daily storage.DailySalesReader, stats StatsSource, inventory *alerts.Generator, catalog domain.Catalog, opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		daily:   daily,
		stats:   stats,
		alerts:  inventory,
		catalog: catalog,
		cache:   opts.Cache,
		now:     now,
	}
}

// Summary returns the cached headline figures, computing them on a miss.
func (s *Service) Summary(ctx context.Context, scope Scope) (domain.KPISummary, cache.Status, error) {
	return cache.GetOrCompute(ctx, s.cache, OperationSummary, scope.params(), func(ctx context.Context) (domain.KPISummary, error) {
		return s.ComputeSummary(ctx, scope)
	})
}

// ComputeSummary reads the trailing month plus the week before it and folds
// them into a KPISummary.
func (s *Service) ComputeSummary(ctx context.Context, scope Scope) (domain.KPISummary, error) {
	now := s.now()
	today := domain.Day(now)
	weekAgo := today.AddDate(0, 0, -weekDays)
	monthAgo := today.AddDate(0, 0, -monthDays)
	prevWeekStart := weekAgo.AddDate(0, 0, -weekDays)

	start := monthAgo
	if prevWeekStart.Before(start) {
		start = prevWeekStart
	}
	rows, err := s.daily.GetDailySales(ctx, start, today)
	if err != nil {
		return domain.KPISummary{}, fmt.Errorf("read daily sales: %w", err)
	}

	var k domain.KPISummary
	var lastWeek, prevWeek int
	days := make(map[time.Time]struct{})
	locations := make(map[int]struct{})
	products := make(map[int]struct{})
	for _, r := range rows {
		if !scope.matches(r) {
			continue
		}
		day := domain.Day(r.Date)
		if day.Equal(today) {
			k.TotalToday += r.Quantity
		}
		switch {
		case !day.Before(weekAgo):
			k.TotalWeek += r.Quantity
			if day.Before(today) {
				lastWeek += r.Quantity
			}
		case !day.Before(prevWeekStart):
			prevWeek += r.Quantity
		}
		if !day.Before(monthAgo) {
			k.TotalMonth += r.Quantity
			days[day] = struct{}{}
			locations[r.LocationID] = struct{}{}
			products[r.ProductID] = struct{}{}
		}
	}

	if len(days) > 0 {
		k.AvgDaily = math.Round(float64(k.TotalMonth)/float64(len(days))*100) / 100
	}
	k.UniqueLocations = len(locations)
	k.UniqueProducts = len(products)
	// Trend compares the seven full days before today with the seven before those.
	k.Trend, k.TrendPercentage = Trend(lastWeek, prevWeek)

	if s.stats != nil {
		st, err := s.stats.Stats(ctx)
		if err != nil {
			return domain.KPISummary{}, fmt.Errorf("read event stats: %w", err)
		}
		k.HistoricalCount = st.HistoricalCount
		k.StreamingCount = st.StreamingCount
		k.FirstDate = st.FirstDate
		k.LastDate = st.LastDate
		k.LastStreamedAt = st.LastStreamedAt
	}

	k.ComputedAt = now.UTC()
	return k, nil
}

// Trend compares two consecutive periods. Changes within ±5% are stable, as
// is any comparison against an empty previous period.
func Trend(current, previous int) (string, float64) {
	if previous <= 0 {
		return domain.TrendStable, 0
	}
	change := float64(current-previous) / float64(previous)
	pct := math.Round(change*1000) / 10
	switch {
	case change > trendBand:
		return domain.TrendUp, pct
	case change < -trendBand:
		return domain.TrendDown, pct
	default:
		return domain.TrendStable, pct
	}
}

// Categories returns the cached category breakdown, computing it on a miss.
func (s *Service) Categories(ctx context.Context) ([]domain.CategoryBreakdown, cache.Status, error) {
	return cache.GetOrCompute(ctx, s.cache, OperationCategories, nil, s.ComputeCategories)
}

// ComputeCategories groups the 30-day inventory estimates by product
// category, largest quantity sold first.
func (s *Service) ComputeCategories(ctx context.Context) ([]domain.CategoryBreakdown, error) {
	snaps, err := s.alerts.Inventory(ctx)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[string]*domain.CategoryBreakdown)
	seen := make(map[string]map[int]struct{})
	for _, snap := range snaps {
		name := s.catalog.Product(snap.ProductID).Category
		b, ok := byCategory[name]
		if !ok {
			b = &domain.CategoryBreakdown{Category: name, StockValue: decimal.Zero}
			byCategory[name] = b
			seen[name] = make(map[int]struct{})
		}
		b.Quantity += snap.Total
		seen[name][snap.ProductID] = struct{}{}
		b.StockValue = b.StockValue.Add(snap.UnitCost.Mul(decimal.NewFromInt(int64(snap.Quantity))))
	}

	out := make([]domain.CategoryBreakdown, 0, len(byCategory))
	for name, b := range byCategory {
		b.Products = len(seen[name])
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}
