package arima

import (
	"fmt"
	"math"

	"github.com/driftline/driftline/pkg/models"
	"github.com/driftline/driftline/pkg/timeseries"
)

// undiffStep remembers enough trailing values of a series to invert one
// differencing pass at the given lag.
type undiffStep struct {
	lag  int
	tail []float64
}

func newUndiffStep(s *timeseries.Series, lag int) undiffStep {
	tail := make([]float64, lag)
	for i := 0; i < lag; i++ {
		tail[i] = s.At(s.Len() - lag + i)
	}
	return undiffStep{lag: lag, tail: tail}
}

// invert cumulatively sums forecasts on the differenced scale back onto the
// scale this step differenced from. Overflow is surfaced, never clamped.
func (u undiffStep) invert(fc []float64) ([]float64, error) {
	hist := append([]float64{}, u.tail...)
	out := make([]float64, len(fc))
	for i, v := range fc {
		y := v + hist[len(hist)-u.lag]
		if math.IsInf(y, 0) || math.IsNaN(y) {
			return nil, fmt.Errorf("arima: integrating forecast step %d: %w", i+1, models.ErrOverflow)
		}
		hist = append(hist, y)
		out[i] = y
	}
	return out, nil
}

// Forecast predicts horizon steps past the training series. Predictions are
// built recursively on the differenced scale with future errors taken as
// zero, then integrated back through the recorded differencing passes.
func (m *Model) Forecast(horizon int) (*models.Forecast, error) {
	if !m.fitted {
		return nil, models.ErrNotFitted
	}
	if horizon < 1 {
		return nil, models.ErrBadHorizon
	}

	arLags, maLags := m.arLags(), m.maLags()
	ar, ma := m.arCoeffs(), m.maCoeffs()

	n := len(m.diffData)
	ext := make([]float64, n+horizon)
	for i, v := range m.diffData {
		ext[i] = v - m.mean
	}
	extResid := make([]float64, n+horizon)
	copy(extResid, m.residuals)

	fc := make([]float64, horizon)
	for h := 0; h < horizon; h++ {
		t := n + h
		pred := 0.0
		for i, lag := range arLags {
			if t-lag >= 0 {
				pred += ar[i] * ext[t-lag]
			}
		}
		for i, lag := range maLags {
			if t-lag >= 0 && t-lag < n {
				pred += ma[i] * extResid[t-lag]
			}
		}
		ext[t] = pred
		fc[h] = pred + m.mean
	}

	// Undo the differencing passes in reverse order of application.
	var err error
	for i := len(m.undiff) - 1; i >= 0; i-- {
		fc, err = m.undiff[i].invert(fc)
		if err != nil {
			return nil, err
		}
	}

	stderr := m.forecastStdErr(horizon)

	series, err := timeseries.New(m.origin.Add(m.step), m.step, fc)
	if err != nil {
		return nil, err
	}
	return &models.Forecast{Series: series, StdErr: stderr}, nil
}

// forecastStdErr propagates the residual variance through the psi-weight
// expansion of the fitted model, then through each integration pass.
func (m *Model) forecastStdErr(horizon int) []float64 {
	arLags, maLags := m.arLags(), m.maLags()
	ar, ma := m.arCoeffs(), m.maCoeffs()

	psi := make([]float64, horizon)
	if horizon > 0 {
		psi[0] = 1
	}
	for j := 1; j < horizon; j++ {
		for i, lag := range maLags {
			if lag == j {
				psi[j] += ma[i]
			}
		}
		for i, lag := range arLags {
			if j-lag >= 0 {
				psi[j] += ar[i] * psi[j-lag]
			}
		}
	}

	for _, step := range m.undiff {
		integrated := make([]float64, horizon)
		for j := 0; j < horizon; j++ {
			integrated[j] = psi[j]
			if j-step.lag >= 0 {
				integrated[j] += integrated[j-step.lag]
			}
		}
		psi = integrated
	}

	sigma := math.Sqrt(m.variance)
	stderr := make([]float64, horizon)
	acc := 0.0
	for h := 0; h < horizon; h++ {
		acc += psi[h] * psi[h]
		stderr[h] = sigma * math.Sqrt(acc)
	}
	return stderr
}
