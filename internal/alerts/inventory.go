package alerts

import (
	"context"
	"fmt"
	"sort"

	"github.com/krish2105/lulu-intelligence-dashboard/internal/domain"
)

// InventoryWindowDays is the sales window used to estimate stock on hand.
const InventoryWindowDays = 30

// velocityTier maps average daily sales to stocking parameters.
type velocityTier struct {
	base         int // starting stock
	divisor      int // total sold / divisor is deducted from base
	reorderLevel int
	maxStock     int
}

var (
	fastTier   = velocityTier{base: 500, divisor: 10, reorderLevel: 100, maxStock: 600}
	mediumTier = velocityTier{base: 300, divisor: 15, reorderLevel: 50, maxStock: 400}
	slowTier   = velocityTier{base: 200, divisor: 20, reorderLevel: 25, maxStock: 250}
)

func tierFor(avgDaily float64) velocityTier {
	switch {
	case avgDaily > 50:
		return fastTier
	case avgDaily > 20:
		return mediumTier
	default:
		return slowTier
	}
}

// EstimateInventory derives on-hand quantity from 30-day sales and returns it
// with the tier's reorder level and max stock. The estimate is never negative.
func EstimateInventory(total int, avgDaily float64) (quantity, reorderLevel, maxStock int) {
	t := tierFor(avgDaily)
	quantity = max(t.base-total/t.divisor, 0)
	return quantity, t.reorderLevel, t.maxStock
}

// StockStatus classifies an estimated quantity.
func StockStatus(quantity, reorderLevel, maxStock int) string {
	switch {
	case quantity <= 0:
		return domain.StockOut
	case quantity <= reorderLevel:
		return domain.StockLow
	case quantity > maxStock:
		return domain.StockOverstocked
	default:
		return domain.StockInStock
	}
}

type pairKey struct {
	locationID int
	productID  int
}

// Inventory estimates stock for every pair sold in the last 30 days, lowest
// quantity first.
func (g *Generator) Inventory(ctx context.Context) ([]domain.InventorySnapshot, error) {
	now := g.now()
	today := domain.Day(now)
	rows, err := g.reader.GetDailySales(ctx, today.AddDate(0, 0, -InventoryWindowDays), today)
	if err != nil {
		return nil, fmt.Errorf("read 30-day sales: %w", err)
	}

	type acc struct{ total, days int }
	sums := make(map[pairKey]*acc)
	for _, r := range rows {
		k := pairKey{r.LocationID, r.ProductID}
		a, ok := sums[k]
		if !ok {
			a = &acc{}
			sums[k] = a
		}
		a.total += r.Quantity
		a.days++
	}

	snaps := make([]domain.InventorySnapshot, 0, len(sums))
	for k, a := range sums {
		avg := float64(a.total) / float64(a.days)
		qty, reorder, maxStock := EstimateInventory(a.total, avg)
		snaps = append(snaps, domain.InventorySnapshot{
			LocationID:   k.locationID,
			ProductID:    k.productID,
			Quantity:     qty,
			ReorderLevel: reorder,
			MaxStock:     maxStock,
			Status:       StockStatus(qty, reorder, maxStock),
			UnitCost:     domain.UnitCost(g.catalog.Product(k.productID).Category),
			AvgDaily:     avg,
			Total:        a.total,
			UpdatedAt:    now.UTC(),
		})
	}

	sort.Slice(snaps, func(i, j int) bool {
		a, b := snaps[i], snaps[j]
		if a.Quantity != b.Quantity {
			return a.Quantity < b.Quantity
		}
		if a.LocationID != b.LocationID {
			return a.LocationID < b.LocationID
		}
		return a.ProductID < b.ProductID
	})
	return snaps, nil
}

// LowStock alerts on pairs at or below their reorder level.
func (g *Generator) LowStock(ctx context.Context) ([]domain.Alert, error) {
	snaps, err := g.Inventory(ctx)
	if err != nil {
		return nil, err
	}
	return g.lowStockFrom(snaps), nil
}

// lowStockFrom expects snaps sorted by ascending quantity, as Inventory returns them.
func (g *Generator) lowStockFrom(snaps []domain.InventorySnapshot) []domain.Alert {
	now := g.now()
	var out []domain.Alert
	for _, s := range snaps {
		if len(out) == g.lowStockLimit {
			break
		}
		// Reorder levels differ by tier, so a higher quantity may still qualify.
		if s.Quantity > s.ReorderLevel {
			continue
		}

		product := g.catalog.Product(s.ProductID)
		location := g.catalog.LocationName(s.LocationID)

		severity, title := domain.SeverityWarning, "Low Stock: "+product.Name
		if s.Quantity <= 0 {
			severity, title = domain.SeverityCritical, "Out of Stock: "+product.Name
		}

		out = append(out, g.newAlert(DetectorLowStock, alertFields{
			title:    title,
			message:  fmt.Sprintf("%s at %s has only %d units remaining (reorder level: %d)", product.Name, location, s.Quantity, s.ReorderLevel),
			category: domain.AlertCategoryInventory,
			severity: severity,
			location: s.LocationID,
			product:  s.ProductID,
			quantity: &s.Quantity,
			day:      domain.Day(now),
		}))
	}
	return out
}
