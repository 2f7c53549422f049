package timeseries

import (
	"errors"
	"math"
	"time"
)

var (
	ErrInsufficientData = errors.New("not enough known data points")
	ErrBadInterval      = errors.New("sampling interval must be positive")
	ErrBadPeriod        = errors.New("period must be a positive multiple of the sampling interval")
)

// Series is a regularly spaced sequence of observations. Missing samples are
// represented as NaN until they are filled. All transformations return a new
// Series, the receiver is never mutated.
type Series struct {
	start  time.Time
	step   time.Duration
	values []float64
}

// New builds a series from raw values. The slice is copied.
func New(start time.Time, step time.Duration, values []float64) (*Series, error) {
	if step <= 0 {
		return nil, ErrBadInterval
	}
	v := make([]float64, len(values))
	copy(v, values)
	return &Series{start: start, step: step, values: v}, nil
}

// IsGap reports whether v marks a missing observation.
func IsGap(v float64) bool {
	return math.IsNaN(v)
}

func gap() float64 {
	return math.NaN()
}

func (s *Series) Len() int            { return len(s.values) }
func (s *Series) Start() time.Time    { return s.start }
func (s *Series) Step() time.Duration { return s.step }

// End returns the timestamp of the last sample.
func (s *Series) End() time.Time {
	if len(s.values) == 0 {
		return s.start
	}
	return s.start.Add(time.Duration(len(s.values)-1) * s.step)
}

func (s *Series) At(i int) float64 {
	return s.values[i]
}

func (s *Series) TimeAt(i int) time.Time {
	return s.start.Add(time.Duration(i) * s.step)
}

// Values returns a copy of the sample values.
func (s *Series) Values() []float64 {
	v := make([]float64, len(s.values))
	copy(v, s.values)
	return v
}

// HasGaps reports whether any sample is missing.
func (s *Series) HasGaps() bool {
	for _, v := range s.values {
		if IsGap(v) {
			return true
		}
	}
	return false
}

// Slice returns the half-open sub-series [lo, hi).
func (s *Series) Slice(lo, hi int) *Series {
	v := make([]float64, hi-lo)
	copy(v, s.values[lo:hi])
	return &Series{
		start:  s.start.Add(time.Duration(lo) * s.step),
		step:   s.step,
		values: v,
	}
}

// Diff returns the lag-1 first difference. The result is one sample shorter
// and starts one step later.
func (s *Series) Diff() *Series {
	return s.DiffLag(1)
}

// DiffLag returns the lag-k difference z_t = y_t - y_{t-k}.
func (s *Series) DiffLag(k int) *Series {
	if k < 1 || len(s.values) <= k {
		return &Series{start: s.start, step: s.step}
	}
	v := make([]float64, len(s.values)-k)
	for i := range v {
		v[i] = s.values[i+k] - s.values[i]
	}
	return &Series{
		start:  s.start.Add(time.Duration(k) * s.step),
		step:   s.step,
		values: v,
	}
}

// SeasonalPeriod converts a seasonal cycle duration into a sample count for a
// series sampled at the given step. The period must be an exact multiple of
// the step and must span at least two samples.
func SeasonalPeriod(step, period time.Duration) (int, error) {
	if step <= 0 {
		return 0, ErrBadInterval
	}
	if period <= 0 || period%step != 0 {
		return 0, ErrBadPeriod
	}
	m := int(period / step)
	if m < 2 {
		return 0, ErrBadPeriod
	}
	return m, nil
}
