// Package pipeline wires preprocessing, model fitting, evaluation and
// anomaly detection into a single run over one series.
package pipeline

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/driftline/driftline/pkg/anomaly"
	"github.com/driftline/driftline/pkg/metrics"
	"github.com/driftline/driftline/pkg/models"
	"github.com/driftline/driftline/pkg/timeseries"
)

var ErrEmptySeries = errors.New("series is empty")

// Config controls the run. The model itself is constructed by the caller so
// variant selection stays a configuration concern, not a runtime one.
type Config struct {
	// TrainPercent of the series is used for fitting, the rest for
	// evaluation. 100 disables evaluation and anomaly detection.
	TrainPercent float64

	// Horizon is the number of samples to forecast past the training data.
	Horizon int

	// Window is the trailing window size for the rolling z-score.
	Window int

	// Delta is the z-score threshold above which a residual is flagged.
	Delta float64
}

// Result collects everything a run produces. RMSE and MAE are NaN when the
// evaluation segment is empty.
type Result struct {
	RunID    uuid.UUID
	Train    *timeseries.Series
	Test     *timeseries.Series
	Forecast *models.Forecast
	RMSE     float64
	MAE      float64
	Flags    []anomaly.Flag
}

type Runner struct {
	logger *zap.Logger
	model  models.Forecaster
	cfg    Config
}

func NewRunner(logger *zap.Logger, model models.Forecaster, cfg Config) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger, model: model, cfg: cfg}
}

// Run fills gaps, splits the series, fits the model and forecasts. When an
// evaluation segment exists the forecast over it is scored and its residuals
// searched for anomalies.
func (r *Runner) Run(series *timeseries.Series) (*Result, error) {
	if series.Len() == 0 {
		return nil, ErrEmptySeries
	}
	if r.cfg.Horizon < 1 {
		return nil, models.ErrBadHorizon
	}

	runID := uuid.New()
	logger := r.logger.With(zap.String("run_id", runID.String()))
	logger.Info("starting run",
		zap.Int("samples", series.Len()),
		zap.Duration("step", series.Step()),
		zap.Float64("train_percent", r.cfg.TrainPercent),
		zap.Int("horizon", r.cfg.Horizon))

	filled, err := timeseries.Fill(series)
	if err != nil {
		return nil, fmt.Errorf("filling gaps: %w", err)
	}

	train, test, err := timeseries.Split(filled, r.cfg.TrainPercent)
	if err != nil {
		return nil, err
	}
	logger.Debug("series split",
		zap.Int("train", train.Len()),
		zap.Int("test", test.Len()))

	if err := r.model.Fit(train); err != nil {
		return nil, fmt.Errorf("fitting model: %w", err)
	}

	steps := r.cfg.Horizon
	if test.Len() > steps {
		steps = test.Len()
	}
	fc, err := r.model.Forecast(steps)
	if err != nil {
		return nil, fmt.Errorf("forecasting: %w", err)
	}

	result := &Result{
		RunID: runID,
		Train: train,
		Test:  test,
		RMSE:  math.NaN(),
		MAE:   math.NaN(),
		Forecast: &models.Forecast{
			Series: fc.Series.Slice(0, r.cfg.Horizon),
			StdErr: fc.StdErr[:r.cfg.Horizon],
		},
	}

	if test.Len() == 0 {
		logger.Info("run complete, evaluation skipped")
		return result, nil
	}

	overTest := fc.Series.Slice(0, test.Len())
	if result.RMSE, err = metrics.RMSE(overTest, test); err != nil {
		return nil, err
	}
	if result.MAE, err = metrics.MAE(overTest, test); err != nil {
		return nil, err
	}

	residuals, err := metrics.Residuals(overTest, test)
	if err != nil {
		return nil, err
	}
	detector, err := anomaly.New(r.cfg.Window, r.cfg.Delta)
	if err != nil {
		return nil, err
	}
	result.Flags = detector.Detect(residuals)

	flagged := 0
	for _, f := range result.Flags {
		if f.Anomalous {
			flagged++
		}
	}
	logger.Info("run complete",
		zap.Float64("rmse", result.RMSE),
		zap.Float64("mae", result.MAE),
		zap.Int("anomalies", flagged))
	return result, nil
}
