package market

import (
	"math"

	"stat-arb-go/order"
)

// Volatility maintains a time-weighted variance of price changes per
// (market, side) slot. It feeds the confidence-interval price bounds used
// by the liquidity selector.
type Volatility struct {
	decay float64
	vars  map[order.Slot]float64
	seen  map[order.Slot]bool
	last  map[order.Slot]int
}

// NewVolatility creates a tracker with the given decay factor (0,1).
func NewVolatility(decay float64) *Volatility {
	if decay <= 0 || decay >= 1 {
		decay = 0.9
	}
	return &Volatility{
		decay: decay,
		vars:  make(map[order.Slot]float64),
		seen:  make(map[order.Slot]bool),
		last:  make(map[order.Slot]int),
	}
}

// SetDecay updates the decay factor; existing estimates keep their state.
func (v *Volatility) SetDecay(decay float64) {
	if decay > 0 && decay < 1 {
		v.decay = decay
	}
}

// Observe records a new price for the slot. The first observation only
// seeds the reference price; the variance exists once a price change has
// been seen.
func (v *Volatility) Observe(marketID string, side order.Side, price int) {
	slot := order.Slot{Market: marketID, Side: side}
	prev, hasPrev := v.last[slot]
	v.last[slot] = price
	if !hasPrev {
		return
	}
	diff := float64(price - prev)
	if v.seen[slot] {
		v.vars[slot] = (1-v.decay)*diff*diff + v.decay*v.vars[slot]
	} else {
		v.vars[slot] = diff * diff
		v.seen[slot] = true
	}
}

// Value returns the current variance for the slot, false if no price
// change has been observed yet.
func (v *Volatility) Value(marketID string, side order.Side) (float64, bool) {
	slot := order.Slot{Market: marketID, Side: side}
	if !v.seen[slot] {
		return 0, false
	}
	return v.vars[slot], true
}

// StdDev returns the standard deviation for the slot, false if unknown.
func (v *Volatility) StdDev(marketID string, side order.Side) (float64, bool) {
	variance, ok := v.Value(marketID, side)
	if !ok {
		return 0, false
	}
	return math.Sqrt(variance), true
}
