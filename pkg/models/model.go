// Package models defines the contract shared by the forecasting models.
package models

import (
	"errors"
	"math"

	"github.com/driftline/driftline/pkg/timeseries"
)

var (
	ErrNotFitted      = errors.New("model is not fitted")
	ErrNonConvergence = errors.New("estimation did not converge")
	ErrNonPositive    = errors.New("multiplicative components require strictly positive values")
	ErrOverflow       = errors.New("numeric overflow")
	ErrBadHorizon     = errors.New("horizon must be at least 1")
)

// Forecaster is the fit-then-forecast capability implemented by the
// Holt-Winters and ARIMA models. Fit consumes a gap-free training series and
// freezes the fitted state; Forecast is a pure function of that state and may
// be called repeatedly.
type Forecaster interface {
	Fit(train *timeseries.Series) error
	Forecast(horizon int) (*Forecast, error)
}

// Forecast holds point forecasts for consecutive steps after the end of the
// training series, together with the one-sigma standard error of each step.
type Forecast struct {
	Series *timeseries.Series
	StdErr []float64
}

// Interval returns the lower and upper confidence bounds at the given level
// in (0, 1), assuming normally distributed forecast errors.
func (f *Forecast) Interval(level float64) (lower, upper []float64) {
	z := math.Sqrt2 * math.Erfinv(level)
	lower = make([]float64, f.Series.Len())
	upper = make([]float64, f.Series.Len())
	for i := 0; i < f.Series.Len(); i++ {
		v := f.Series.At(i)
		lower[i] = v - z*f.StdErr[i]
		upper[i] = v + z*f.StdErr[i]
	}
	return lower, upper
}
