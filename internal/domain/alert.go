package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Alert categories.
const (
	AlertCategoryInventory = "inventory"
	AlertCategorySales     = "sales"
)

// Severity of an alert.
type Severity string

// Alert severities.
const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// AlertStatus tracks operator handling. Generated alerts are always active.
type AlertStatus string

// Alert statuses.
const (
	AlertActive       AlertStatus = "active"
	AlertAcknowledged AlertStatus = "acknowledged"
	AlertResolved     AlertStatus = "resolved"
)

// Alert is an operational alert derived from sales history.
type Alert struct {
	ID           string // deterministic hash of detector + subject + day
	Title        string
	Message      string
	Category     string // inventory | sales
	Severity     Severity
	Status       AlertStatus
	LocationID   int
	LocationName string
	ProductID    *int    // nil for store-level alerts
	ProductName  *string // nil for store-level alerts
	Quantity     *int
	CreatedAt    time.Time
}

// AlertSummary counts alerts by severity.
type AlertSummary struct {
	Total    int
	Critical int
	Warning  int
	Info     int
}

// Stock statuses derived from the inventory estimate.
const (
	StockInStock     = "in_stock"
	StockLow         = "low_stock"
	StockOut         = "out_of_stock"
	StockOverstocked = "overstocked"
)

// InventorySnapshot is an estimated stock position derived from sales velocity.
type InventorySnapshot struct {
	LocationID   int
	ProductID    int
	Quantity     int // estimated on hand, never negative
	ReorderLevel int
	MaxStock     int
	Status       string
	UnitCost     decimal.Decimal
	AvgDaily     float64 // 30-day average daily quantity
	Total        int     // 30-day total quantity
	UpdatedAt    time.Time
}

// StockValue returns quantity times unit cost.
func (s InventorySnapshot) StockValue() decimal.Decimal {
	return s.UnitCost.Mul(decimal.NewFromInt(int64(s.Quantity)))
}
