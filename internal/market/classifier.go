package market

import (
	"fmt"
	"math/rand/v2"

	"github.com/krish2105/lulu-intelligence-dashboard/internal/domain"
)

// Weight is one entry of a category distribution.
type Weight struct {
	Category domain.TransactionCategory
	P        float64
}

// Distribution is an ordered weight table. Order matters: when the weights do
// not sum to 1, the last entry absorbs the difference (it gains the missing
// tail, or loses whatever mass lies past 1).
type Distribution []Weight

// Sample maps a uniform draw u in [0, 1) to a category by cumulative weight.
func (d Distribution) Sample(u float64) domain.TransactionCategory {
	var cum float64
	for _, w := range d[:len(d)-1] {
		cum += w.P
		if u < cum {
			return w.Category
		}
	}
	return d[len(d)-1].Category
}

// Sum returns the total of the declared weights.
func (d Distribution) Sum() float64 {
	var s float64
	for _, w := range d {
		s += w.P
	}
	return s
}

// Effective returns the probabilities Sample actually realises.
func (d Distribution) Effective() map[domain.TransactionCategory]float64 {
	out := make(map[domain.TransactionCategory]float64, len(d))
	var cum float64
	for _, w := range d[:len(d)-1] {
		p := w.P
		if cum+p > 1 {
			p = max(0, 1-cum)
		}
		out[w.Category] += p
		cum += p
	}
	out[d[len(d)-1].Category] += max(0, 1-cum)
	return out
}

// Regime tables, in regular, promotional, return, bulk, slow order.
var (
	Baseline = Distribution{
		{domain.CategoryRegular, 0.62},
		{domain.CategoryPromotional, 0.12},
		{domain.CategoryReturn, 0.15},
		{domain.CategoryBulk, 0.06},
		{domain.CategorySlow, 0.05},
	}

	// Pessimistic declares 1.03; slow_period is truncated to 0.07.
	Pessimistic = Distribution{
		{domain.CategoryRegular, 0.55},
		{domain.CategoryPromotional, 0.12},
		{domain.CategoryReturn, 0.20},
		{domain.CategoryBulk, 0.06},
		{domain.CategorySlow, 0.10},
	}

	// Optimistic fixes bulk, promotional and return; regular and slow split
	// the remaining 0.65 in their baseline 62:5 proportion.
	Optimistic = Distribution{
		{domain.CategoryRegular, 0.65 * 62 / 67},
		{domain.CategoryPromotional, 0.15},
		{domain.CategoryReturn, 0.10},
		{domain.CategoryBulk, 0.10},
		{domain.CategorySlow, 0.65 * 5 / 67},
	}
)

// Table returns the distribution for a market state.
func Table(state domain.MarketState) Distribution {
	switch state.Regime() {
	case domain.RegimePessimistic:
		return Pessimistic
	case domain.RegimeOptimistic:
		return Optimistic
	default:
		return Baseline
	}
}

// Default override probabilities.
const (
	DefaultForcedReturn     = 0.15
	DefaultHighReturnChance = 0.15
)

// Classifier picks a transaction category.
type Classifier struct {
	rng              *rand.Rand
	forcedReturn     float64
	highReturnChance float64
}

// ClassifierOptions configures a Classifier. Negative probabilities disable an override.
type ClassifierOptions struct {
	ForcedReturn     *float64 // default 0.15
	HighReturnChance *float64 // default 0.15
}

// NewClassifier creates a classifier drawing from rng.
func NewClassifier(rng *rand.Rand, opts ClassifierOptions) (*Classifier, error) {
	c := &Classifier{
		rng:              rng,
		forcedReturn:     DefaultForcedReturn,
		highReturnChance: DefaultHighReturnChance,
	}
	if opts.ForcedReturn != nil {
		c.forcedReturn = *opts.ForcedReturn
	}
	if opts.HighReturnChance != nil {
		c.highReturnChance = *opts.HighReturnChance
	}
	if c.forcedReturn > 1 || c.highReturnChance > 1 {
		return nil, fmt.Errorf("override probabilities must be at most 1 (got %v, %v)", c.forcedReturn, c.highReturnChance)
	}
	return c, nil
}

// Classify applies, in order: the global forced-return override, the
// high-return product override (only when highReturnItem is set), then the
// regime-weighted table. Damping is left to the caller.
func (c *Classifier) Classify(state domain.MarketState, highReturnItem bool) domain.TransactionCategory {
	if c.forcedReturn > 0 && c.rng.Float64() < c.forcedReturn {
		return domain.CategoryReturn
	}
	if highReturnItem && c.highReturnChance > 0 && c.rng.Float64() < c.highReturnChance {
		return domain.CategoryReturn
	}
	return Table(state).Sample(c.rng.Float64())
}
