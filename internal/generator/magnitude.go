package generator

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/krish2105/lulu-intelligence-dashboard/internal/domain"
)

const (
	weekendFactor    = 1.2
	noiseScale       = 1.5
	returnMeanShare  = 0.6
	returnMaxShare   = 0.8
	nonReturnCapMult = 2
)

// seasonality is a weekly wave indexed from Monday = 0.
func seasonality(t time.Time) float64 {
	dow := (int(t.Weekday()) + 6) % 7
	return 1.0 + 0.1*math.Sin(2*math.Pi*float64(dow)/7)
}

func weekend(t time.Time) float64 {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return weekendFactor
	default:
		return 1.0
	}
}

// timeOfDay reflects store traffic over the day.
func timeOfDay(t time.Time) float64 {
	switch h := t.Hour(); {
	case h < 7:
		return 0.4
	case h < 11:
		return 0.9
	case h < 14:
		return 1.2
	case h < 17:
		return 1.0
	case h < 21:
		return 1.3
	default:
		return 0.7
	}
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// baseMagnitude is the market-adjusted expected quantity plus volatility noise.
func baseMagnitude(rng *rand.Rand, p domain.Profile, state domain.MarketState, at time.Time) float64 {
	base := p.Mean * seasonality(at) * weekend(at) * timeOfDay(at) * state.Sentiment
	noise := rng.NormFloat64() * p.StdDev * state.Volatility * noiseScale
	return base + noise
}

// transform applies the category-specific adjustment to a non-return value.
func transform(rng *rand.Rand, category domain.TransactionCategory, value float64) float64 {
	switch category {
	case domain.CategoryPromotional:
		return value * uniform(rng, 1.5, 2.5)
	case domain.CategoryBulk:
		return value * uniform(rng, 3.0, 7.0)
	case domain.CategorySlow:
		return value * uniform(rng, 0.1, 0.4)
	default:
		return value + uniform(rng, -2, 2)
	}
}

// returnQuantity is always <= -1.
func returnQuantity(rng *rand.Rand, p domain.Profile) int {
	center := returnMeanShare * p.Mean
	v := uniform(rng, center-0.5*p.StdDev, center+0.5*p.StdDev)
	v = math.Min(v, returnMaxShare*p.Max)
	v = math.Max(v, 1)
	return -int(v)
}

// quantity computes the signed event quantity for category.
func quantity(rng *rand.Rand, p domain.Profile, category domain.TransactionCategory, state domain.MarketState, at time.Time) int {
	if category == domain.CategoryReturn {
		return returnQuantity(rng, p)
	}

	v := transform(rng, category, baseMagnitude(rng, p, state, at))
	upper := math.Max(nonReturnCapMult*p.Max, 1)
	v = math.Min(math.Max(v, 1), upper)
	return int(v)
}
