package anomaly

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/driftline/driftline/pkg/timeseries"
)

var testStart = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func residuals(t *testing.T, values []float64) *timeseries.Series {
	t.Helper()
	s, err := timeseries.New(testStart, time.Hour, values)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNew(t *testing.T) {
	if _, err := New(0, 2); !errors.Is(err, ErrBadWindow) {
		t.Errorf("err = %v, want ErrBadWindow", err)
	}
	if _, err := New(1, 2); err != nil {
		t.Errorf("New(1, 2) = %v", err)
	}
}

func TestDetect_SpikeOverQuietWindow(t *testing.T) {
	// A single spike over an otherwise zero window scores exactly
	// sqrt(w-1), here 3 for a window of 10.
	values := make([]float64, 20)
	values[15] = 5

	t.Run("threshold below the spike score", func(t *testing.T) {
		d, err := New(10, 2)
		if err != nil {
			t.Fatal(err)
		}
		flags := d.Detect(residuals(t, values))
		if len(flags) != len(values) {
			t.Fatalf("flags length = %d, want %d", len(flags), len(values))
		}
		for i, f := range flags {
			if f.Anomalous != (i == 15) {
				t.Errorf("flag %d anomalous = %v", i, f.Anomalous)
			}
		}
		if got := flags[15].Score; math.Abs(got-3) > 1e-12 {
			t.Errorf("spike score = %v, want 3", got)
		}
		if !flags[15].Time.Equal(testStart.Add(15 * time.Hour)) {
			t.Errorf("spike flagged at %v", flags[15].Time)
		}
	})

	t.Run("threshold above the spike score", func(t *testing.T) {
		d, err := New(10, 3.5)
		if err != nil {
			t.Fatal(err)
		}
		for i, f := range d.Detect(residuals(t, values)) {
			if f.Anomalous {
				t.Errorf("flag %d unexpectedly anomalous (score %v)", i, f.Score)
			}
		}
	})
}

func TestDetect_DegenerateWindow(t *testing.T) {
	// Identical residuals leading into a different value: the window at
	// the first point has zero variance until the deviating point joins.
	d, err := New(3, 2)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("first nonzero residual over flat history", func(t *testing.T) {
		flags := d.Detect(residuals(t, []float64{2, 2, 2, 2}))
		// Window variance is zero everywhere but the residual is non-zero,
		// so every point resolves as a maximal positive anomaly.
		for i, f := range flags {
			if !f.Anomalous {
				t.Errorf("flag %d not anomalous", i)
			}
			if !math.IsInf(f.Score, 1) {
				t.Errorf("flag %d score = %v, want +Inf", i, f.Score)
			}
		}
	})

	t.Run("negative residual gets negative infinity", func(t *testing.T) {
		flags := d.Detect(residuals(t, []float64{-1, -1}))
		for i, f := range flags {
			if !math.IsInf(f.Score, -1) {
				t.Errorf("flag %d score = %v, want -Inf", i, f.Score)
			}
		}
	})

	t.Run("zero residuals stay quiet", func(t *testing.T) {
		for i, f := range d.Detect(residuals(t, []float64{0, 0, 0})) {
			if f.Anomalous || f.Score != 0 {
				t.Errorf("flag %d = %+v, want quiet zero", i, f)
			}
		}
	})
}

func TestDetect_WarmupShrinksWindow(t *testing.T) {
	d, err := New(100, 2)
	if err != nil {
		t.Fatal(err)
	}
	// Window larger than the series: every point still gets a flag.
	flags := d.Detect(residuals(t, []float64{1, -2, 3, -4, 5}))
	if len(flags) != 5 {
		t.Fatalf("flags length = %d, want 5", len(flags))
	}
	for i, f := range flags[1:] {
		if math.IsNaN(f.Score) {
			t.Errorf("flag %d score is NaN", i+1)
		}
	}
}
