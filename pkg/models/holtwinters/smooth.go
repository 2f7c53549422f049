package holtwinters

import (
	"fmt"
	"math"

	"github.com/driftline/driftline/pkg/models"
)

// state is the outcome of one full pass of the smoothing recursion.
type state struct {
	level     float64
	trend     float64
	seasonal  []float64
	residuals []float64
	sse       float64
}

// grow extrapolates level and trend h steps ahead.
func grow(trend Component, level, b float64, h int) float64 {
	if trend == ComponentMultiplicative {
		return level * math.Pow(b, float64(h))
	}
	return level + float64(h)*b
}

// combine applies a seasonal index to a trend-extrapolated value.
func combine(seasonal Component, v, s float64) float64 {
	if seasonal == ComponentMultiplicative {
		return v * s
	}
	return v + s
}

// deseason strips a seasonal index from an observation.
func deseason(seasonal Component, y, s float64) float64 {
	if seasonal == ComponentMultiplicative {
		return y / s
	}
	return y - s
}

// smooth runs the Holt-Winters recursion over y and returns the final state.
//
// Initialization: with seasonality, level and trend come from an ordinary
// least-squares line over the first cycle and the seasonal indices from the
// deviations of that cycle from the line. Without seasonality the first two
// samples seed level and trend directly.
func smooth(cfg Config, y []float64) (*state, error) {
	st := &state{}
	start := 0

	if cfg.Seasonal == ComponentNone {
		st.level = y[0]
		if cfg.Trend == ComponentMultiplicative {
			st.trend = y[1] / y[0]
		} else {
			st.trend = y[1] - y[0]
		}
		start = 1
	} else {
		m := cfg.Period
		intercept, slope := lineFit(y[:m])
		st.level = intercept + slope*float64(m-1)
		if cfg.Trend == ComponentMultiplicative {
			st.trend = 1
			if st.level != 0 {
				st.trend = (st.level + slope) / st.level
			}
		} else {
			st.trend = slope
		}
		st.seasonal = make([]float64, m)
		for i := 0; i < m; i++ {
			fitted := intercept + slope*float64(i)
			if cfg.Seasonal == ComponentMultiplicative {
				if fitted == 0 {
					fitted = 1
				}
				st.seasonal[i] = y[i] / fitted
			} else {
				st.seasonal[i] = y[i] - fitted
			}
		}
		start = m
	}

	for t := start; t < len(y); t++ {
		prevLevel := st.level
		base := grow(cfg.Trend, st.level, st.trend, 1)

		var sOld float64
		if cfg.Seasonal != ComponentNone {
			sOld = st.seasonal[t%cfg.Period]
		}

		predicted := base
		if cfg.Seasonal != ComponentNone {
			predicted = combine(cfg.Seasonal, base, sOld)
		}
		resid := y[t] - predicted
		st.residuals = append(st.residuals, resid)
		st.sse += resid * resid

		observed := y[t]
		if cfg.Seasonal != ComponentNone {
			observed = deseason(cfg.Seasonal, y[t], sOld)
		}
		st.level = cfg.Alpha*observed + (1-cfg.Alpha)*base

		if cfg.Trend == ComponentMultiplicative {
			ratio := 1.0
			if prevLevel != 0 {
				ratio = st.level / prevLevel
			}
			st.trend = cfg.Beta*ratio + (1-cfg.Beta)*st.trend
		} else {
			st.trend = cfg.Beta*(st.level-prevLevel) + (1-cfg.Beta)*st.trend
		}

		if cfg.Seasonal != ComponentNone {
			if cfg.Seasonal == ComponentMultiplicative {
				s := 1.0
				if base != 0 {
					s = y[t] / base
				}
				st.seasonal[t%cfg.Period] = cfg.Gamma*s + (1-cfg.Gamma)*sOld
			} else {
				st.seasonal[t%cfg.Period] = cfg.Gamma*(y[t]-base) + (1-cfg.Gamma)*sOld
			}
		}
	}

	if math.IsNaN(st.level) || math.IsInf(st.level, 0) ||
		math.IsNaN(st.trend) || math.IsInf(st.trend, 0) {
		return nil, fmt.Errorf("holtwinters: smoothing diverged: %w", models.ErrNonConvergence)
	}
	return st, nil
}

// lineFit returns the intercept and slope of the least-squares line through
// (i, y[i]).
func lineFit(y []float64) (intercept, slope float64) {
	n := float64(len(y))
	if len(y) == 1 {
		return y[0], 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range y {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	den := n*sumXX - sumX*sumX
	if den == 0 {
		return sumY / n, 0
	}
	slope = (n*sumXY - sumX*sumY) / den
	intercept = (sumY - slope*sumX) / n
	return intercept, slope
}
