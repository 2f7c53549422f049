// Package metrics evaluates forecasts against held-out observations.
package metrics

import (
	"errors"
	"math"

	"github.com/driftline/driftline/pkg/timeseries"
)

var ErrAlignment = errors.New("forecast and actual series are not aligned")

// checkAligned requires equal length, start and step.
func checkAligned(forecast, actual *timeseries.Series) error {
	if forecast.Len() != actual.Len() ||
		!forecast.Start().Equal(actual.Start()) ||
		forecast.Step() != actual.Step() {
		return ErrAlignment
	}
	return nil
}

// RMSE returns the root mean square error between aligned series.
func RMSE(forecast, actual *timeseries.Series) (float64, error) {
	if err := checkAligned(forecast, actual); err != nil {
		return 0, err
	}
	if forecast.Len() == 0 {
		return 0, nil
	}
	var sum float64
	for i := 0; i < forecast.Len(); i++ {
		d := forecast.At(i) - actual.At(i)
		sum += d * d
	}
	return math.Sqrt(sum / float64(forecast.Len())), nil
}

// MAE returns the mean absolute error between aligned series.
func MAE(forecast, actual *timeseries.Series) (float64, error) {
	if err := checkAligned(forecast, actual); err != nil {
		return 0, err
	}
	if forecast.Len() == 0 {
		return 0, nil
	}
	var sum float64
	for i := 0; i < forecast.Len(); i++ {
		sum += math.Abs(forecast.At(i) - actual.At(i))
	}
	return sum / float64(forecast.Len()), nil
}

// Residuals returns actual minus forecast as a series aligned to the inputs.
func Residuals(forecast, actual *timeseries.Series) (*timeseries.Series, error) {
	if err := checkAligned(forecast, actual); err != nil {
		return nil, err
	}
	v := make([]float64, actual.Len())
	for i := range v {
		v[i] = actual.At(i) - forecast.At(i)
	}
	return timeseries.New(actual.Start(), actual.Step(), v)
}
