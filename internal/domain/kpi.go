package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trend directions for week-over-week comparisons.
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)

// KPISummary is the dashboard headline view.
type KPISummary struct {
	TotalToday      int
	TotalWeek       int
	TotalMonth      int
	AvgDaily        float64
	UniqueLocations int
	UniqueProducts  int
	HistoricalCount int
	StreamingCount  int
	FirstDate       time.Time
	LastDate        time.Time
	LastStreamedAt  time.Time
	Trend           string
	TrendPercentage float64
	ComputedAt      time.Time
}

// CategoryBreakdown aggregates one product category over the trailing 30 days.
type CategoryBreakdown struct {
	Category   string
	Quantity   int
	Products   int
	StockValue decimal.Decimal
}
