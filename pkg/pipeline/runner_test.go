package pipeline

import (
	"errors"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/driftline/driftline/pkg/models"
	"github.com/driftline/driftline/pkg/models/holtwinters"
	"github.com/driftline/driftline/pkg/timeseries"
)

var testStart = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// dailySeries builds 30 days of hourly samples with a 24-hour cycle and a
// three-sample gap in the middle.
func dailySeries(t *testing.T) *timeseries.Series {
	t.Helper()
	values := make([]float64, 720)
	for i := range values {
		values[i] = 50 + 0.01*float64(i) + 10*math.Sin(2*math.Pi*float64(i)/24)
	}
	for i := 300; i < 303; i++ {
		values[i] = math.NaN()
	}
	s, err := timeseries.New(testStart, time.Hour, values)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func newSeasonalModel(t *testing.T) models.Forecaster {
	t.Helper()
	m, err := holtwinters.New(holtwinters.Config{
		Trend:    holtwinters.ComponentAdditive,
		Seasonal: holtwinters.ComponentAdditive,
		Period:   24,
		Alpha:    0.3, Beta: 0.05, Gamma: 0.2,
	})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestRunner_Run(t *testing.T) {
	cfg := Config{TrainPercent: 80, Horizon: 24, Window: 10, Delta: 2}
	r := NewRunner(zap.NewNop(), newSeasonalModel(t), cfg)

	res, err := r.Run(dailySeries(t))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Train.Len() != 576 {
		t.Errorf("train length = %d, want 576", res.Train.Len())
	}
	if res.Test.Len() != 144 {
		t.Errorf("test length = %d, want 144", res.Test.Len())
	}
	if res.Forecast.Series.Len() != 24 {
		t.Errorf("forecast length = %d, want 24", res.Forecast.Series.Len())
	}
	if len(res.Forecast.StdErr) != 24 {
		t.Errorf("stderr length = %d, want 24", len(res.Forecast.StdErr))
	}
	if !res.Forecast.Series.Start().Equal(res.Test.Start()) {
		t.Errorf("forecast starts at %v, test starts at %v",
			res.Forecast.Series.Start(), res.Test.Start())
	}

	if math.IsNaN(res.RMSE) || res.RMSE < 0 {
		t.Errorf("rmse = %v", res.RMSE)
	}
	if math.IsNaN(res.MAE) || res.MAE < 0 {
		t.Errorf("mae = %v", res.MAE)
	}
	if res.MAE > res.RMSE+1e-9 {
		t.Errorf("mae %v exceeds rmse %v", res.MAE, res.RMSE)
	}

	if len(res.Flags) != res.Test.Len() {
		t.Errorf("flags length = %d, want %d", len(res.Flags), res.Test.Len())
	}
	if res.RunID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("run id not assigned")
	}
}

func TestRunner_FullTrainSkipsEvaluation(t *testing.T) {
	cfg := Config{TrainPercent: 100, Horizon: 12, Window: 10, Delta: 2}
	r := NewRunner(nil, newSeasonalModel(t), cfg)

	res, err := r.Run(dailySeries(t))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Test.Len() != 0 {
		t.Errorf("test length = %d, want 0", res.Test.Len())
	}
	if !math.IsNaN(res.RMSE) || !math.IsNaN(res.MAE) {
		t.Errorf("rmse=%v mae=%v, want NaN for skipped evaluation", res.RMSE, res.MAE)
	}
	if res.Flags != nil {
		t.Errorf("flags = %v, want none", res.Flags)
	}
	if res.Forecast.Series.Len() != 12 {
		t.Errorf("forecast length = %d, want 12", res.Forecast.Series.Len())
	}
}

func TestRunner_Errors(t *testing.T) {
	t.Run("empty series", func(t *testing.T) {
		empty, err := timeseries.New(testStart, time.Hour, nil)
		if err != nil {
			t.Fatal(err)
		}
		r := NewRunner(nil, newSeasonalModel(t), Config{TrainPercent: 80, Horizon: 1, Window: 5, Delta: 2})
		if _, err := r.Run(empty); !errors.Is(err, ErrEmptySeries) {
			t.Errorf("err = %v, want ErrEmptySeries", err)
		}
	})

	t.Run("bad horizon", func(t *testing.T) {
		r := NewRunner(nil, newSeasonalModel(t), Config{TrainPercent: 80, Horizon: 0, Window: 5, Delta: 2})
		if _, err := r.Run(dailySeries(t)); !errors.Is(err, models.ErrBadHorizon) {
			t.Errorf("err = %v, want ErrBadHorizon", err)
		}
	})

	t.Run("model failure is wrapped", func(t *testing.T) {
		r := NewRunner(nil, newSeasonalModel(t), Config{TrainPercent: 5, Horizon: 1, Window: 5, Delta: 2})
		_, err := r.Run(dailySeries(t))
		if !errors.Is(err, timeseries.ErrInsufficientData) {
			t.Errorf("err = %v, want ErrInsufficientData", err)
		}
	})
}
