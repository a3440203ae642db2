package portfolio

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"stat-arb-go/market"
)

// PayoffModel holds the per-security expected payoff and the population
// covariance matrix across all securities. Computed once at initialization
// from market metadata; immutable thereafter.
type PayoffModel struct {
	markets  []string
	index    map[string]int
	expected map[string]float64
	cov      *mat.SymDense
}

// NewPayoffModel builds the model from the session's securities. All payoff
// vectors must share the same outcome count.
func NewPayoffModel(secs []market.Security) (*PayoffModel, error) {
	if len(secs) == 0 {
		return nil, fmt.Errorf("no securities")
	}
	outcomes := len(secs[0].Payoffs)
	if outcomes == 0 {
		return nil, fmt.Errorf("market %s has no payoff outcomes", secs[0].ID)
	}
	pm := &PayoffModel{
		markets:  make([]string, 0, len(secs)),
		index:    make(map[string]int, len(secs)),
		expected: make(map[string]float64, len(secs)),
	}
	for _, sec := range secs {
		if len(sec.Payoffs) != outcomes {
			return nil, fmt.Errorf("market %s has %d outcomes, want %d", sec.ID, len(sec.Payoffs), outcomes)
		}
		pm.index[sec.ID] = len(pm.markets)
		pm.markets = append(pm.markets, sec.ID)
		pm.expected[sec.ID] = stat.Mean(sec.Payoffs, nil)
	}

	n := len(secs)
	pm.cov = mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			pm.cov.SetSym(i, j, populationCov(secs[i].Payoffs, secs[j].Payoffs,
				pm.expected[secs[i].ID], pm.expected[secs[j].ID]))
		}
	}
	return pm, nil
}

// populationCov is E[(x-mux)(y-muy)] over the outcome states.
func populationCov(x, y []float64, mux, muy float64) float64 {
	sum := 0.0
	for k := range x {
		sum += (x[k] - mux) * (y[k] - muy)
	}
	return sum / float64(len(x))
}

// Expected returns the expected payoff for a market.
func (pm *PayoffModel) Expected(marketID string) float64 {
	return pm.expected[marketID]
}

// Markets returns the model's market ids in stable order.
func (pm *PayoffModel) Markets() []string {
	return pm.markets
}
