// Package market models drifting market conditions and the transaction
// category mix they induce.
package market

import (
	"math/rand/v2"
	"time"

	"github.com/krish2105/lulu-intelligence-dashboard/internal/domain"
)

// Random walk parameters.
const (
	minUpdateInterval = 30 * time.Second
	maxUpdateInterval = 90 * time.Second

	stepStdDev  = 0.15
	walkFloor   = 0.4
	walkCeiling = 1.6

	shockProbability = 0.10
)

// ShockMagnitudes are the discrete sentiment jumps applied on a shock.
var ShockMagnitudes = []float64{-0.3, -0.2, 0.2, 0.3, 0.4}

// Model is the market state machine. It is not safe for concurrent use;
// the generator goroutine owns it.
type Model struct {
	state     domain.MarketState
	threshold time.Duration
	rng       *rand.Rand
	now       func() time.Time
}

// NewModel creates a neutral market (sentiment 1.0, volatility 1.0).
// A nil now uses time.Now.
func NewModel(rng *rand.Rand, now func() time.Time) *Model {
	if now == nil {
		now = time.Now
	}
	m := &Model{rng: rng, now: now}
	m.state = domain.MarketState{Sentiment: 1.0, Volatility: 1.0, UpdatedAt: now()}
	m.threshold = m.sampleThreshold()
	return m
}

func (m *Model) sampleThreshold() time.Duration {
	span := maxUpdateInterval - minUpdateInterval
	return minUpdateInterval + time.Duration(m.rng.Float64()*float64(span))
}

// State returns a snapshot of the current market.
func (m *Model) State() domain.MarketState {
	return m.state
}

// Update advances the walk if the sampled threshold has elapsed since the last
// update. It reports whether an update happened and whether it was a shock.
func (m *Model) Update() (updated, shock bool) {
	now := m.now()
	if now.Sub(m.state.UpdatedAt) <= m.threshold {
		return false, false
	}

	s := m.state.Sentiment
	if m.rng.Float64() < shockProbability {
		shock = true
		s = clamp(s+ShockMagnitudes[m.rng.IntN(len(ShockMagnitudes))], domain.SentimentFloor, domain.SentimentCeiling)
	} else {
		s = clamp(s+m.rng.NormFloat64()*stepStdDev, walkFloor, walkCeiling)
	}

	m.state = domain.MarketState{
		Sentiment:  s,
		Volatility: domain.VolatilityFloor + m.rng.Float64()*(domain.VolatilityCeil-domain.VolatilityFloor),
		UpdatedAt:  now,
	}
	m.threshold = m.sampleThreshold()
	return true, shock
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
