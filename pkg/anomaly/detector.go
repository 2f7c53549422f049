// Package anomaly flags residuals whose rolling z-score exceeds a threshold.
package anomaly

import (
	"errors"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/driftline/driftline/pkg/timeseries"
)

var ErrBadWindow = errors.New("window size must be at least 1")

// Flag is the verdict for a single residual, aligned to the residual series.
type Flag struct {
	Time      time.Time
	Residual  float64
	Score     float64
	Anomalous bool
}

// Detector scores residuals against the mean and standard deviation of a
// trailing window. Stateless across calls, safe to reuse.
type Detector struct {
	window int
	delta  float64
}

// New creates a detector with the given trailing window size and z-score
// threshold. Callers typically use a delta between 1 and 3.
func New(window int, delta float64) (*Detector, error) {
	if window < 1 {
		return nil, ErrBadWindow
	}
	return &Detector{window: window, delta: delta}, nil
}

// Detect returns one flag per residual. The window for point t covers the
// last `window` residuals up to and including t; during warmup it shrinks to
// whatever is available so no point is skipped. A zero-variance window with a
// non-zero residual cannot produce a finite score and is resolved as a
// maximal anomaly: the flag carries a sign-matched infinite score.
func (d *Detector) Detect(residuals *timeseries.Series) []Flag {
	flags := make([]Flag, residuals.Len())
	values := residuals.Values()

	for t := range values {
		lo := t + 1 - d.window
		if lo < 0 {
			lo = 0
		}
		win := values[lo : t+1]
		mean := stat.Mean(win, nil)
		std := math.Sqrt(stat.PopVariance(win, nil))

		r := values[t]
		f := Flag{Time: residuals.TimeAt(t), Residual: r}

		if std == 0 {
			if r != 0 {
				f.Score = math.Inf(sign(r))
				f.Anomalous = true
			}
		} else {
			f.Score = (r - mean) / std
			f.Anomalous = math.Abs(f.Score) > d.delta
		}
		flags[t] = f
	}
	return flags
}

func sign(v float64) int {
	if v < 0 {
		return -1
	}
	return 1
}
