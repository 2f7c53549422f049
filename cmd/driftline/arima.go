package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/driftline/driftline/pkg/models"
	"github.com/driftline/driftline/pkg/models/arima"
	"github.com/driftline/driftline/pkg/timeseries"
)

var (
	flagAROrder         []int
	flagARSeasonalOrder []int
	flagARPeriod        time.Duration
)

var arimaCmd = &cobra.Command{
	Use:   "arima",
	Short: "Forecast with an ARIMA model",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(flagAROrder) != 3 {
			return fmt.Errorf("--order takes exactly three values: p,d,q")
		}
		seasonal := len(flagARSeasonalOrder) > 0 || flagARPeriod > 0
		if seasonal {
			if len(flagARSeasonalOrder) != 3 {
				return fmt.Errorf("--seasonal-order takes exactly three values: P,D,Q")
			}
			if flagARPeriod <= 0 {
				return fmt.Errorf("--seasonal-period is required with --seasonal-order")
			}
		}

		return runModel(cmd.Context(), func(step time.Duration) (models.Forecaster, error) {
			cfg := arima.Config{
				Order: arima.Order{
					P: flagAROrder[0],
					D: flagAROrder[1],
					Q: flagAROrder[2],
				},
			}
			if seasonal {
				period, err := timeseries.SeasonalPeriod(step, flagARPeriod)
				if err != nil {
					return nil, fmt.Errorf("seasonal period: %w", err)
				}
				cfg.Seasonal = arima.SeasonalOrder{
					P:      flagARSeasonalOrder[0],
					D:      flagARSeasonalOrder[1],
					Q:      flagARSeasonalOrder[2],
					Period: period,
				}
			}

			model, err := arima.New(cfg, arima.WithLogger(logger))
			if err != nil {
				return nil, err
			}
			return &reportingModel{Model: model}, nil
		})
	},
}

// reportingModel logs the fit summary after a successful fit.
type reportingModel struct {
	*arima.Model
}

func (m *reportingModel) Fit(train *timeseries.Series) error {
	if err := m.Model.Fit(train); err != nil {
		return err
	}
	ar, ma := m.Coefficients()
	logger.Info("arima fit summary",
		zap.Float64s("ar", ar),
		zap.Float64s("ma", ma),
		zap.Float64("variance", m.Variance()),
		zap.Float64("aic", m.AIC()),
		zap.Float64("bic", m.BIC()))
	return nil
}

func init() {
	f := arimaCmd.Flags()
	f.IntSliceVarP(&flagAROrder, "order", "r", []int{1, 0, 0}, "ARIMA order p,d,q")
	f.IntSliceVarP(&flagARSeasonalOrder, "seasonal-order", "R", nil, "seasonal order P,D,Q")
	f.DurationVarP(&flagARPeriod, "seasonal-period", "m", 0, "seasonal cycle length")

	rootCmd.AddCommand(arimaCmd)
}
