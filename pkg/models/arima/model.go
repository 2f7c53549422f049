// Package arima implements autoregressive integrated moving average models,
// with optional seasonal orders in the style of SARIMA.
package arima

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/driftline/driftline/pkg/models"
	"github.com/driftline/driftline/pkg/timeseries"
)

// Order is the non-seasonal (p, d, q) triple.
type Order struct {
	P int // autoregressive terms
	D int // differencing passes
	Q int // moving average terms
}

// SeasonalOrder is the seasonal (P, D, Q) triple at the given period, in
// samples. The zero value disables the seasonal part.
type SeasonalOrder struct {
	P      int
	D      int
	Q      int
	Period int
}

const defaultMaxIter = 50

// Config carries the model orders. The model does not verify stationarity of
// the differenced series; choosing d (and D) appropriately is the caller's
// responsibility.
type Config struct {
	Order    Order
	Seasonal SeasonalOrder

	// MaxIter bounds the iterative refinement of the moving-average
	// coefficients. Defaults to 50.
	MaxIter int
}

func (c Config) validate() error {
	o := c.Order
	if o.P < 0 || o.D < 0 || o.Q < 0 {
		return fmt.Errorf("arima: order (%d,%d,%d) must be non-negative", o.P, o.D, o.Q)
	}
	s := c.Seasonal
	if s.P < 0 || s.D < 0 || s.Q < 0 {
		return fmt.Errorf("arima: seasonal order (%d,%d,%d) must be non-negative", s.P, s.D, s.Q)
	}
	if (s.P > 0 || s.D > 0 || s.Q > 0) && s.Period < 2 {
		return fmt.Errorf("arima: seasonal order requires a period of at least 2 samples")
	}
	return nil
}

// Model implements models.Forecaster. The fitted coefficients and the
// un-differencing context are immutable once Fit returns.
type Model struct {
	cfg    Config
	logger *zap.Logger

	phi    []float64 // non-seasonal AR coefficients
	theta  []float64 // non-seasonal MA coefficients
	sphi   []float64 // seasonal AR coefficients
	stheta []float64 // seasonal MA coefficients

	mean      float64
	variance  float64
	logLik    float64
	aic, bic  float64
	diffData  []float64 // fully differenced training values
	residuals []float64 // conditional residuals on the differenced scale
	undiff    []undiffStep

	origin time.Time
	step   time.Duration
	fitted bool
}

type Option func(*Model)

func WithLogger(logger *zap.Logger) Option {
	return func(m *Model) {
		m.logger = logger
	}
}

func New(cfg Config, opts ...Option) (*Model, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.MaxIter <= 0 {
		cfg.MaxIter = defaultMaxIter
	}
	m := &Model{cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// arLags returns the autoregressive lag set, non-seasonal lags first.
func (m *Model) arLags() []int {
	lags := make([]int, 0, m.cfg.Order.P+m.cfg.Seasonal.P)
	for i := 1; i <= m.cfg.Order.P; i++ {
		lags = append(lags, i)
	}
	for i := 1; i <= m.cfg.Seasonal.P; i++ {
		lags = append(lags, i*m.cfg.Seasonal.Period)
	}
	return lags
}

func (m *Model) maLags() []int {
	lags := make([]int, 0, m.cfg.Order.Q+m.cfg.Seasonal.Q)
	for i := 1; i <= m.cfg.Order.Q; i++ {
		lags = append(lags, i)
	}
	for i := 1; i <= m.cfg.Seasonal.Q; i++ {
		lags = append(lags, i*m.cfg.Seasonal.Period)
	}
	return lags
}

func (m *Model) arCoeffs() []float64 {
	return append(append([]float64{}, m.phi...), m.sphi...)
}

func (m *Model) maCoeffs() []float64 {
	return append(append([]float64{}, m.theta...), m.stheta...)
}

// Fit differences the training series, estimates the AR and MA coefficients
// on the differenced scale and computes the in-sample residuals. Pure AR
// models are solved in closed form through the Yule-Walker equations; any
// moving-average term triggers the bounded iterative refinement in
// estimate.go.
func (m *Model) Fit(train *timeseries.Series) error {
	o, s := m.cfg.Order, m.cfg.Seasonal

	span := o.P + o.D + o.Q + (s.P+s.D+s.Q)*s.Period
	if train.Len() <= span {
		return fmt.Errorf("arima: %d samples for order spanning %d: %w",
			train.Len(), span, timeseries.ErrInsufficientData)
	}

	// Difference down to the stationary scale, keeping the trailing
	// original values of each pass so forecasts can be integrated back.
	work := train
	var undiff []undiffStep
	for i := 0; i < o.D; i++ {
		undiff = append(undiff, newUndiffStep(work, 1))
		work = work.Diff()
	}
	for i := 0; i < s.D; i++ {
		undiff = append(undiff, newUndiffStep(work, s.Period))
		work = work.DiffLag(s.Period)
	}

	w := work.Values()
	maxLag := 0
	for _, l := range append(m.arLags(), m.maLags()...) {
		if l > maxLag {
			maxLag = l
		}
	}
	if len(w) <= maxLag+1 {
		return fmt.Errorf("arima: differenced series too short: %w",
			timeseries.ErrInsufficientData)
	}

	fit, err := estimate(m.cfg, m.arLags(), m.maLags(), w, m.logger)
	if err != nil {
		return err
	}

	m.phi = fit.ar[:o.P]
	m.sphi = fit.ar[o.P:]
	m.theta = fit.ma[:o.Q]
	m.stheta = fit.ma[o.Q:]
	m.mean = fit.mean
	m.variance = fit.variance
	m.residuals = fit.residuals
	m.diffData = w
	m.undiff = undiff
	m.origin = train.End()
	m.step = train.Step()
	m.computeIC()
	m.fitted = true

	m.logger.Debug("arima model fitted",
		zap.Float64s("ar", m.phi),
		zap.Float64s("ma", m.theta),
		zap.Float64("variance", m.variance),
		zap.Float64("aic", m.aic))
	return nil
}

// computeIC fills the Gaussian log-likelihood and the information criteria.
func (m *Model) computeIC() {
	n := len(m.residuals)
	if n == 0 || m.variance <= 0 {
		m.logLik = math.Inf(-1)
		m.aic = math.Inf(1)
		m.bic = math.Inf(1)
		return
	}
	sse := 0.0
	for _, r := range m.residuals {
		sse += r * r
	}
	nf := float64(n)
	m.logLik = -nf/2*math.Log(2*math.Pi) - nf/2*math.Log(m.variance) - sse/(2*m.variance)
	k := float64(len(m.phi) + len(m.sphi) + len(m.theta) + len(m.stheta) + 1)
	m.aic = -2*m.logLik + 2*k
	m.bic = -2*m.logLik + k*math.Log(nf)
}

// Coefficients returns the fitted AR and MA coefficients, seasonal parts
// last. Nil before Fit.
func (m *Model) Coefficients() (ar, ma []float64) {
	if !m.fitted {
		return nil, nil
	}
	return m.arCoeffs(), m.maCoeffs()
}

// Variance returns the residual variance of the fit.
func (m *Model) Variance() float64 { return m.variance }

// AIC returns the Akaike information criterion of the fit.
func (m *Model) AIC() float64 { return m.aic }

// BIC returns the Bayesian information criterion of the fit.
func (m *Model) BIC() float64 { return m.bic }

var _ models.Forecaster = (*Model)(nil)
