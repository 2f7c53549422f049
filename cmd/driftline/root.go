package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/driftline/driftline/internal/dbg"
	"github.com/driftline/driftline/pkg/data/duckdb"
	"github.com/driftline/driftline/pkg/data/mapper"
	"github.com/driftline/driftline/pkg/models"
	"github.com/driftline/driftline/pkg/pipeline"
	"github.com/driftline/driftline/pkg/timeseries"
)

var (
	logger *zap.Logger

	flagConfig  string
	flagInput   string
	flagFormat  string
	flagTable   string
	flagFrom    string
	flagTo      string
	flagStep    time.Duration
	flagTrain   float64
	flagPeriod  time.Duration
	flagDelta   float64
	flagWindow  int
	flagOutput  string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "driftline",
	Short: "Forecast a time series and flag anomalous observations",
	Long: `driftline fits a forecasting model to a single regularly sampled time
series, evaluates it on a held-out suffix and flags observations whose
forecast residual deviates from its rolling baseline.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		d, err := loadDefaults(flagConfig)
		if err != nil {
			return err
		}
		applyDefault(cmd, "train-percent", func() { flagTrain = d.TrainPercent })
		applyDefault(cmd, "forecast-period", func() { flagPeriod = d.ForecastPeriod })
		applyDefault(cmd, "delta", func() { flagDelta = d.Delta })
		applyDefault(cmd, "window", func() { flagWindow = d.Window })
		applyDefault(cmd, "verbose", func() { flagVerbose = d.Verbose })

		logger = dbg.NewLogger(flagVerbose)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagConfig, "config", "c", "", "optional YAML config file with defaults")
	pf.StringVarP(&flagInput, "input", "i", "", "input path (CSV or binary dump) or DuckDB DSN")
	pf.StringVar(&flagFormat, "format", "csv", "input format: csv, bin or duckdb")
	pf.StringVar(&flagTable, "table", "samples", "table to read when the input is a DuckDB database")
	pf.StringVar(&flagFrom, "from", "", "start of the fetch window (RFC 3339, DuckDB input only)")
	pf.StringVar(&flagTo, "to", "", "end of the fetch window (RFC 3339, DuckDB input only)")
	pf.DurationVar(&flagStep, "step", time.Hour, "sampling interval (DuckDB input only)")
	pf.Float64VarP(&flagTrain, "train-percent", "t", 80, "percentage of the series used for fitting")
	pf.DurationVarP(&flagPeriod, "forecast-period", "f", 24*time.Hour, "length of the forecast past the training data")
	pf.Float64Var(&flagDelta, "delta", 2, "rolling z-score threshold for anomaly flags")
	pf.IntVar(&flagWindow, "window", 10, "rolling window size, in samples")
	pf.StringVarP(&flagOutput, "output", "o", "", "optional CSV output for the forecast")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	_ = rootCmd.MarkPersistentFlagRequired("input")
}

func applyDefault(cmd *cobra.Command, name string, set func()) {
	if !cmd.Flags().Changed(name) {
		set()
	}
}

func loadSeries(ctx context.Context) (*timeseries.Series, error) {
	switch flagFormat {
	case "csv":
		f, err := os.Open(flagInput)
		if err != nil {
			return nil, err
		}
		defer func() {
			_ = f.Close()
		}()
		return timeseries.ReadCSV(f)

	case "bin":
		r := mapper.NewReader(flagInput)
		if err := r.Open(); err != nil {
			return nil, err
		}
		defer r.Close()
		return r.ReadSeries()

	case "duckdb":
		from, err := time.Parse(time.RFC3339, flagFrom)
		if err != nil {
			return nil, fmt.Errorf("parsing --from: %w", err)
		}
		to, err := time.Parse(time.RFC3339, flagTo)
		if err != nil {
			return nil, fmt.Errorf("parsing --to: %w", err)
		}
		r := duckdb.NewReader(flagInput)
		if err := r.Connect(); err != nil {
			return nil, err
		}
		defer r.Close()
		return r.LoadSeries(ctx, flagTable, from, to, flagStep)

	default:
		return nil, fmt.Errorf("unknown input format %q", flagFormat)
	}
}

// stepsIn converts a duration into a sample count at the series' step.
func stepsIn(step, d time.Duration) (int, error) {
	if d <= 0 || d%step != 0 {
		return 0, fmt.Errorf("%s is not a positive multiple of the %s step", d, step)
	}
	return int(d / step), nil
}

// runModel loads the series, builds the model for its sampling interval and
// drives the shared pipeline. Period flags are converted to sample counts
// only once the actual step is known.
func runModel(ctx context.Context, build func(step time.Duration) (models.Forecaster, error)) error {
	series, err := loadSeries(ctx)
	if err != nil {
		return fmt.Errorf("loading series: %w", err)
	}

	model, err := build(series.Step())
	if err != nil {
		return err
	}

	horizon, err := stepsIn(series.Step(), flagPeriod)
	if err != nil {
		return fmt.Errorf("forecast period: %w", err)
	}

	runner := pipeline.NewRunner(logger, model, pipeline.Config{
		TrainPercent: flagTrain,
		Horizon:      horizon,
		Window:       flagWindow,
		Delta:        flagDelta,
	})
	result, err := runner.Run(series)
	if err != nil {
		return err
	}

	for _, f := range result.Flags {
		if f.Anomalous {
			logger.Warn("anomalous observation",
				zap.Time("ts", f.Time),
				zap.Float64("residual", f.Residual),
				zap.Float64("zscore", f.Score))
		}
	}

	if flagOutput != "" {
		if err := writeForecastCSV(flagOutput, result.Forecast); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}
	return nil
}

// writeForecastCSV emits one row per forecast step with the point forecast
// and its 95% bounds.
func writeForecastCSV(path string, fc *models.Forecast) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"timestamp", "value", "lower", "upper"}); err != nil {
		return err
	}
	lower, upper := fc.Interval(0.95)
	for i := 0; i < fc.Series.Len(); i++ {
		rec := []string{
			strconv.FormatInt(fc.Series.TimeAt(i).Unix(), 10),
			strconv.FormatFloat(fc.Series.At(i), 'g', -1, 64),
			strconv.FormatFloat(lower[i], 'g', -1, 64),
			strconv.FormatFloat(upper[i], 'g', -1, 64),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
