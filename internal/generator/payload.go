package generator

import (
	"math"
	"time"

	"github.com/krish2105/lulu-intelligence-dashboard/internal/domain"
)

// SalePayload is the message published on the sales channel.
type SalePayload struct {
	ID                  string    `json:"id"`
	Date                string    `json:"date"`
	LocationID          int       `json:"location_id"`
	LocationName        string    `json:"location_name"`
	ProductID           int       `json:"product_id"`
	ProductName         string    `json:"product_name"`
	CategoryTag         string    `json:"category_tag"`
	Quantity            int       `json:"quantity"`
	IsStreaming         bool      `json:"is_streaming"`
	CreatedAt           time.Time `json:"created_at"`
	TransactionCategory string    `json:"transaction_category"`
	TransactionLabel    string    `json:"transaction_label"`
	ReturnReason        string    `json:"return_reason,omitempty"`
	MarketSentiment     float64   `json:"market_sentiment"`
	IsReturn            bool      `json:"is_return"`
}

func newSalePayload(e *domain.SalesEvent, catalog domain.Catalog, state domain.MarketState, returnReason string) SalePayload {
	return SalePayload{
		ID:                  e.ID,
		Date:                e.Date.Format(time.DateOnly),
		LocationID:          e.LocationID,
		LocationName:        catalog.LocationName(e.LocationID),
		ProductID:           e.ProductID,
		ProductName:         catalog.Product(e.ProductID).Name,
		CategoryTag:         e.Category.Tag(),
		Quantity:            e.Quantity,
		IsStreaming:         e.IsStreaming,
		CreatedAt:           e.CreatedAt,
		TransactionCategory: string(e.Category),
		TransactionLabel:    e.Category.Label(),
		ReturnReason:        returnReason,
		MarketSentiment:     math.Round(state.Sentiment*1000) / 1000,
		IsReturn:            e.IsReturn(),
	}
}
