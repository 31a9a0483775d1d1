package domain

import (
	"errors"
	"testing"
	"time"
)

func TestSalesEvent_Validate(t *testing.T) {
	tests := []struct {
		name     string
		category TransactionCategory
		quantity int
		wantErr  bool
	}{
		{"historical zero", "", 0, false},
		{"historical positive", "", 12, false},
		{"historical negative", "", -1, true},
		{"return negative", CategoryReturn, -3, false},
		{"return zero", CategoryReturn, 0, true},
		{"return positive", CategoryReturn, 4, true},
		{"regular positive", CategoryRegular, 9, false},
		{"regular zero", CategoryRegular, 0, true},
		{"bulk negative", CategoryBulk, -50, true},
		{"slow positive", CategorySlow, 1, false},
		{"promotional positive", CategoryPromotional, 30, false},
		{"unknown category", TransactionCategory("gift"), 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &SalesEvent{
				LocationID: 1,
				ProductID:  1,
				Quantity:   tt.quantity,
				Category:   tt.category,
				Date:       Day(time.Now()),
			}
			err := e.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSalesEvent_ValidateSignError(t *testing.T) {
	e := &SalesEvent{LocationID: 1, ProductID: 2, Quantity: 5, Category: CategoryReturn}
	if err := e.Validate(); !errors.Is(err, ErrQuantitySign) {
		t.Errorf("expected ErrQuantitySign, got %v", err)
	}
}

func TestSalesEvent_ValidateIDs(t *testing.T) {
	e := &SalesEvent{LocationID: 0, ProductID: 2, Quantity: 5}
	if err := e.Validate(); err == nil {
		t.Error("expected error for zero location id")
	}
}

func TestMarketState_Regime(t *testing.T) {
	tests := []struct {
		sentiment float64
		want      Regime
	}{
		{0.3, RegimePessimistic},
		{0.79, RegimePessimistic},
		{0.8, RegimeNeutral},
		{1.0, RegimeNeutral},
		{1.3, RegimeNeutral},
		{1.31, RegimeOptimistic},
		{1.8, RegimeOptimistic},
	}
	for _, tt := range tests {
		got := MarketState{Sentiment: tt.sentiment}.Regime()
		if got != tt.want {
			t.Errorf("Regime(%v) = %s, want %s", tt.sentiment, got, tt.want)
		}
	}
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog(12, 55)
	if len(c.Locations) != 12 || len(c.Products) != 55 {
		t.Fatalf("catalog size = %d x %d, want 12 x 55", len(c.Locations), len(c.Products))
	}
	if c.LocationName(1) != "Lulu Hypermarket Al Barsha" {
		t.Errorf("LocationName(1) = %q", c.LocationName(1))
	}
	if c.LocationName(11) != "Store 11" {
		t.Errorf("LocationName(11) = %q", c.LocationName(11))
	}
	if !c.IsHighReturn(13) || c.IsHighReturn(1) {
		t.Error("high-return flags not applied")
	}
	if c.Product(4).Category != "Dairy" {
		t.Errorf("Product(4).Category = %q", c.Product(4).Category)
	}

	small := DefaultCatalog(2, 5)
	if small.IsHighReturn(13) {
		t.Error("product 13 is outside the catalog and must not be flagged")
	}
}

func TestUnitCost(t *testing.T) {
	if got := UnitCost("Seafood").String(); got != "65" {
		t.Errorf("UnitCost(Seafood) = %s, want 65", got)
	}
	if got := UnitCost("Gadgets").String(); got != "20" {
		t.Errorf("UnitCost(Gadgets) = %s, want 20", got)
	}
}

func TestDay(t *testing.T) {
	ts := time.Date(2024, 3, 9, 17, 45, 0, 0, time.UTC)
	want := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	if !Day(ts).Equal(want) {
		t.Errorf("Day() = %v, want %v", Day(ts), want)
	}
}
