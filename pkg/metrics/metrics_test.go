package metrics

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/driftline/driftline/pkg/timeseries"
)

var testStart = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func series(t *testing.T, start time.Time, step time.Duration, values []float64) *timeseries.Series {
	t.Helper()
	s, err := timeseries.New(start, step, values)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestRMSE(t *testing.T) {
	tests := []struct {
		name     string
		forecast []float64
		actual   []float64
		want     float64
	}{
		{
			name:     "perfect forecast",
			forecast: []float64{1, 2, 3},
			actual:   []float64{1, 2, 3},
			want:     0,
		},
		{
			name:     "constant offset",
			forecast: []float64{1, 2, 3, 4},
			actual:   []float64{3, 4, 5, 6},
			want:     2,
		},
		{
			name:     "mixed errors",
			forecast: []float64{0, 0},
			actual:   []float64{3, 4},
			want:     math.Sqrt(12.5),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := series(t, testStart, time.Hour, tt.forecast)
			ac := series(t, testStart, time.Hour, tt.actual)
			got, err := RMSE(fc, ac)
			if err != nil {
				t.Fatalf("RMSE: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("RMSE = %v, want %v", got, tt.want)
			}
			swapped, err := RMSE(ac, fc)
			if err != nil {
				t.Fatalf("RMSE swapped: %v", err)
			}
			if swapped != got {
				t.Errorf("RMSE not symmetric: %v vs %v", got, swapped)
			}
		})
	}
}

func TestMAE(t *testing.T) {
	fc := series(t, testStart, time.Hour, []float64{1, 2, 3})
	ac := series(t, testStart, time.Hour, []float64{2, 0, 3})
	got, err := MAE(fc, ac)
	if err != nil {
		t.Fatalf("MAE: %v", err)
	}
	if want := 1.0; math.Abs(got-want) > 1e-12 {
		t.Errorf("MAE = %v, want %v", got, want)
	}
}

func TestResiduals(t *testing.T) {
	fc := series(t, testStart, time.Hour, []float64{1, 2, 3})
	ac := series(t, testStart, time.Hour, []float64{1.5, 1, 6})

	res, err := Residuals(fc, ac)
	if err != nil {
		t.Fatalf("Residuals: %v", err)
	}
	want := []float64{0.5, -1, 3}
	for i, w := range want {
		if res.At(i) != w {
			t.Errorf("residual %d = %v, want %v", i, res.At(i), w)
		}
	}
	if !res.Start().Equal(testStart) || res.Step() != time.Hour {
		t.Errorf("residual series not aligned to inputs")
	}
}

func TestAlignmentErrors(t *testing.T) {
	base := series(t, testStart, time.Hour, []float64{1, 2, 3})

	tests := []struct {
		name  string
		other *timeseries.Series
	}{
		{"length mismatch", series(t, testStart, time.Hour, []float64{1, 2})},
		{"start mismatch", series(t, testStart.Add(time.Hour), time.Hour, []float64{1, 2, 3})},
		{"step mismatch", series(t, testStart, time.Minute, []float64{1, 2, 3})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := RMSE(base, tt.other); !errors.Is(err, ErrAlignment) {
				t.Errorf("RMSE err = %v, want ErrAlignment", err)
			}
			if _, err := MAE(base, tt.other); !errors.Is(err, ErrAlignment) {
				t.Errorf("MAE err = %v, want ErrAlignment", err)
			}
			if _, err := Residuals(base, tt.other); !errors.Is(err, ErrAlignment) {
				t.Errorf("Residuals err = %v, want ErrAlignment", err)
			}
		})
	}
}
