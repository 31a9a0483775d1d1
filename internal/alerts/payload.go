package alerts

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/krish2105/lulu-intelligence-dashboard/internal/domain"
)

// AlertPayload is the wire form of an alert on the alerts channel and the API.
type AlertPayload struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	Category     string    `json:"category"`
	Severity     string    `json:"severity"`
	Status       string    `json:"status"`
	LocationID   int       `json:"location_id"`
	LocationName string    `json:"location_name"`
	ProductID    *int      `json:"product_id,omitempty"`
	ProductName  *string   `json:"product_name,omitempty"`
	Quantity     *int      `json:"quantity,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewAlertPayload converts an alert.
func NewAlertPayload(a domain.Alert) AlertPayload {
	return AlertPayload{
		ID:           a.ID,
		Title:        a.Title,
		Message:      a.Message,
		Category:     a.Category,
		Severity:     string(a.Severity),
		Status:       string(a.Status),
		LocationID:   a.LocationID,
		LocationName: a.LocationName,
		ProductID:    a.ProductID,
		ProductName:  a.ProductName,
		Quantity:     a.Quantity,
		CreatedAt:    a.CreatedAt,
	}
}

// SummaryPayload is the wire form of an AlertSummary.
type SummaryPayload struct {
	Critical    int `json:"critical_alerts"`
	Warning     int `json:"warning_alerts"`
	Info        int `json:"info_alerts"`
	TotalActive int `json:"total_active"`
}

// NewSummaryPayload converts a summary.
func NewSummaryPayload(s domain.AlertSummary) SummaryPayload {
	return SummaryPayload{
		Critical:    s.Critical,
		Warning:     s.Warning,
		Info:        s.Info,
		TotalActive: s.Total,
	}
}

// InventoryPayload is the message published on the inventory channel.
type InventoryPayload struct {
	ID           string          `json:"id"`
	ProductID    int             `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Category     string          `json:"category"`
	LocationID   int             `json:"location_id"`
	LocationName string          `json:"location_name"`
	Quantity     int             `json:"quantity"`
	ReorderLevel int             `json:"reorder_level"`
	MaxStock     int             `json:"max_stock"`
	Status       string          `json:"status"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	CreatedAt    time.Time       `json:"created_at"`
}

// NewInventoryPayload converts a snapshot, resolving names through catalog.
func NewInventoryPayload(s domain.InventorySnapshot, catalog domain.Catalog) InventoryPayload {
	product := catalog.Product(s.ProductID)
	return InventoryPayload{
		ID:           fmt.Sprintf("inv-%d-%d", s.LocationID, s.ProductID),
		ProductID:    s.ProductID,
		ProductName:  product.Name,
		Category:     product.Category,
		LocationID:   s.LocationID,
		LocationName: catalog.LocationName(s.LocationID),
		Quantity:     s.Quantity,
		ReorderLevel: s.ReorderLevel,
		MaxStock:     s.MaxStock,
		Status:       s.Status,
		UnitCost:     s.UnitCost,
		CreatedAt:    s.UpdatedAt,
	}
}
