package holtwinters

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/driftline/driftline/pkg/models"
)

// optimizeConstants searches for the smoothing constants minimising the
// in-sample one-step squared error. The constants are mapped through a
// logistic transform so Nelder-Mead can run unconstrained.
func optimizeConstants(cfg Config, y []float64) (alpha, beta, gamma float64, err error) {
	dims := 2
	if cfg.Seasonal != ComponentNone {
		dims = 3
	}

	objective := func(x []float64) float64 {
		trial := cfg
		trial.Alpha = logistic(x[0])
		trial.Beta = logistic(x[1])
		if dims == 3 {
			trial.Gamma = logistic(x[2])
		} else {
			trial.Gamma = 0.1
		}
		st, serr := smooth(trial, y)
		if serr != nil {
			return math.Inf(1)
		}
		return st.sse
	}

	initial := []float64{logit(0.3), logit(0.1), logit(0.1)}[:dims]
	problem := optimize.Problem{Func: objective}

	result, err := optimize.Minimize(problem, initial, nil, &optimize.NelderMead{})
	if err != nil {
		return 0, 0, 0, fmt.Errorf("holtwinters: constant search failed: %w (%v)",
			models.ErrNonConvergence, err)
	}
	if math.IsInf(result.F, 0) || math.IsNaN(result.F) {
		return 0, 0, 0, fmt.Errorf("holtwinters: constant search failed: %w",
			models.ErrNonConvergence)
	}

	alpha = logistic(result.X[0])
	beta = logistic(result.X[1])
	gamma = 0.1
	if dims == 3 {
		gamma = logistic(result.X[2])
	}
	return alpha, beta, gamma, nil
}

func logistic(x float64) float64 {
	v := 1 / (1 + math.Exp(-x))
	// Keep strictly inside (0, 1) so validate() accepts the result.
	return math.Min(math.Max(v, 1e-6), 1-1e-6)
}

func logit(p float64) float64 {
	return math.Log(p / (1 - p))
}
