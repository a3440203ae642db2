package market

import (
	"fmt"
	"strconv"
	"strings"
)

// Security is a tradable instrument paying one of a finite set of integer
// outcomes at session end. Immutable after initialization.
type Security struct {
	ID       string
	Label    string
	Payoffs  []float64
	MinPrice int
	MaxPrice int
}

// ParsePayoffs parses the venue description string ("100,0,50") into the
// per-outcome payoff list.
func ParsePayoffs(desc string) ([]float64, error) {
	parts := strings.Split(desc, ",")
	if len(parts) == 0 || desc == "" {
		return nil, fmt.Errorf("empty payoff description")
	}
	payoffs := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("parse payoff %q: %w", p, err)
		}
		payoffs = append(payoffs, float64(v))
	}
	return payoffs, nil
}

// NewSecurity builds a Security from venue market metadata.
func NewSecurity(id, label, desc string, min, max int) (Security, error) {
	if min < 0 || max <= min {
		return Security{}, fmt.Errorf("invalid price bounds [%d,%d] for market %s", min, max, id)
	}
	payoffs, err := ParsePayoffs(desc)
	if err != nil {
		return Security{}, fmt.Errorf("market %s: %w", id, err)
	}
	return Security{ID: id, Label: label, Payoffs: payoffs, MinPrice: min, MaxPrice: max}, nil
}
