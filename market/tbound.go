package market

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// TBound returns the integer-rounded lower or upper bound of a Student-t
// confidence interval around mu. Degrees of freedom are floored at 1; with
// zero sigma the interval collapses to mu.
func TBound(mu, sigma, confidence float64, df int, upper bool) int {
	if sigma == 0 {
		return int(math.Round(mu))
	}
	if df < 1 {
		df = 1
	}
	dist := distuv.StudentsT{Mu: mu, Sigma: sigma, Nu: float64(df)}
	p := (1 - confidence) / 2
	if upper {
		p = (1 + confidence) / 2
	}
	return int(math.Round(dist.Quantile(p)))
}
