package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/driftline/driftline/pkg/models"
	"github.com/driftline/driftline/pkg/models/holtwinters"
	"github.com/driftline/driftline/pkg/timeseries"
)

var (
	flagHWTrend    string
	flagHWSeasonal string
	flagHWPeriod   time.Duration
	flagHWAlpha    float64
	flagHWBeta     float64
	flagHWGamma    float64
	flagHWOptimize bool
)

var holtWintersCmd = &cobra.Command{
	Use:   "holtwinters",
	Short: "Forecast with Holt-Winters exponential smoothing",
	RunE: func(cmd *cobra.Command, args []string) error {
		trend, err := holtwinters.ParseComponent(flagHWTrend)
		if err != nil {
			return err
		}
		seasonal, err := holtwinters.ParseComponent(flagHWSeasonal)
		if err != nil {
			return err
		}

		return runModel(cmd.Context(), func(step time.Duration) (models.Forecaster, error) {
			cfg := holtwinters.Config{
				Trend:    trend,
				Seasonal: seasonal,
				Alpha:    flagHWAlpha,
				Beta:     flagHWBeta,
				Gamma:    flagHWGamma,
				Optimize: flagHWOptimize,
			}
			if seasonal != holtwinters.ComponentNone {
				if flagHWPeriod <= 0 {
					return nil, fmt.Errorf("--seasonal-period is required with a seasonal component")
				}
				var err error
				cfg.Period, err = timeseries.SeasonalPeriod(step, flagHWPeriod)
				if err != nil {
					return nil, fmt.Errorf("seasonal period: %w", err)
				}
			}
			return holtwinters.New(cfg, holtwinters.WithLogger(logger))
		})
	},
}

func init() {
	f := holtWintersCmd.Flags()
	f.StringVar(&flagHWTrend, "trend", "additive", "trend type: additive or multiplicative")
	f.StringVar(&flagHWSeasonal, "seasonal", "none", "seasonal type: none, additive or multiplicative")
	f.DurationVarP(&flagHWPeriod, "seasonal-period", "m", 0, "seasonal cycle length")
	f.Float64Var(&flagHWAlpha, "alpha", 0.3, "level smoothing constant")
	f.Float64Var(&flagHWBeta, "beta", 0.1, "trend smoothing constant")
	f.Float64Var(&flagHWGamma, "gamma", 0.1, "seasonal smoothing constant")
	f.BoolVar(&flagHWOptimize, "optimize", false, "search for the smoothing constants instead of using the supplied ones")

	rootCmd.AddCommand(holtWintersCmd)
}
