package domain

import "time"

// Profile holds historical sales statistics for one (location, product) pair.
type Profile struct {
	LocationID int
	ProductID  int
	Mean       float64
	StdDev     float64 // sample standard deviation
	Min        float64
	Max        float64
	Count      int
}

// DefaultProfile is used for pairs with no history.
var DefaultProfile = Profile{
	Mean:   15,
	StdDev: 5,
	Min:    0,
	Max:    100,
	Count:  0,
}

// Sentiment and volatility bounds for MarketState.
const (
	SentimentFloor   = 0.3
	SentimentCeiling = 1.8
	VolatilityFloor  = 0.8
	VolatilityCeil   = 1.6
)

// MarketState is the slowly drifting market condition.
type MarketState struct {
	Sentiment  float64 // [0.3, 1.8]; 1.0 is neutral
	Volatility float64 // [0.8, 1.6]
	UpdatedAt  time.Time
}

// Regime names the classifier table selected by sentiment.
type Regime string

// Market regimes.
const (
	RegimePessimistic Regime = "pessimistic"
	RegimeNeutral     Regime = "neutral"
	RegimeOptimistic  Regime = "optimistic"
)

// Regime returns the regime implied by the current sentiment.
func (s MarketState) Regime() Regime {
	switch {
	case s.Sentiment < 0.8:
		return RegimePessimistic
	case s.Sentiment > 1.3:
		return RegimeOptimistic
	default:
		return RegimeNeutral
	}
}
