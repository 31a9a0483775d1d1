package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrQuantitySign is returned when an event quantity contradicts its category.
var ErrQuantitySign = errors.New("quantity sign does not match transaction category")

// SalesEvent is one transaction line for a (location, product) pair.
// Historical rows carry no category; streaming rows always do.
type SalesEvent struct {
	ID          string              // UUID
	Date        time.Time           // calendar day (UTC midnight)
	LocationID  int                 // store id
	ProductID   int                 // item id
	Quantity    int                 // signed; negative only for returns
	IsStreaming bool                // produced by the generator rather than loaded history
	Category    TransactionCategory // empty for historical rows
	CreatedAt   time.Time
}

// Validate checks the quantity sign invariant:
// return => quantity < 0, other streaming categories => quantity > 0,
// uncategorised (historical) rows => quantity >= 0.
func (e *SalesEvent) Validate() error {
	if e.LocationID <= 0 || e.ProductID <= 0 {
		return fmt.Errorf("location and product ids must be positive")
	}
	switch {
	case e.Category == "":
		if e.Quantity < 0 {
			return fmt.Errorf("%w: historical quantity %d", ErrQuantitySign, e.Quantity)
		}
	case e.Category == CategoryReturn:
		if e.Quantity >= 0 {
			return fmt.Errorf("%w: return quantity %d", ErrQuantitySign, e.Quantity)
		}
	case e.Category.Valid():
		if e.Quantity <= 0 {
			return fmt.Errorf("%w: %s quantity %d", ErrQuantitySign, e.Category, e.Quantity)
		}
	default:
		return fmt.Errorf("unknown transaction category %q", e.Category)
	}
	return nil
}

// IsReturn reports whether the event is a return.
func (e *SalesEvent) IsReturn() bool {
	return e.Category == CategoryReturn
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DailySales is the per-day aggregate of one (location, product) pair.
type DailySales struct {
	Date       time.Time
	LocationID int
	ProductID  int
	Quantity   int // net of returns
	Events     int
}

// SalesStats summarises the event store.
type SalesStats struct {
	HistoricalCount int
	StreamingCount  int
	FirstDate       time.Time // zero when empty
	LastDate        time.Time
	LastStreamedAt  time.Time // zero when nothing streamed yet
}
