// Package holtwinters implements triple exponential smoothing with additive
// or multiplicative trend and seasonality.
package holtwinters

import (
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/driftline/driftline/pkg/models"
	"github.com/driftline/driftline/pkg/timeseries"
)

// Component selects how a trend or seasonal term enters the model.
type Component int

const (
	ComponentNone Component = iota
	ComponentAdditive
	ComponentMultiplicative
)

func (c Component) String() string {
	switch c {
	case ComponentNone:
		return "none"
	case ComponentAdditive:
		return "additive"
	case ComponentMultiplicative:
		return "multiplicative"
	default:
		return fmt.Sprintf("component(%d)", int(c))
	}
}

// ParseComponent maps "additive" and "multiplicative" (or their one-letter
// shorthands) to a Component.
func ParseComponent(s string) (Component, error) {
	switch s {
	case "", "none":
		return ComponentNone, nil
	case "additive", "add", "a":
		return ComponentAdditive, nil
	case "multiplicative", "mul", "m":
		return ComponentMultiplicative, nil
	default:
		return ComponentNone, fmt.Errorf("unknown component type %q", s)
	}
}

var errBadConfig = errors.New("invalid holt-winters configuration")

// Config carries the smoothing setup. Multiplicative trend or seasonality
// requires a strictly positive training series; Fit fails with
// models.ErrNonPositive otherwise.
type Config struct {
	// Trend is the trend component type, additive or multiplicative.
	Trend Component

	// Seasonal is the seasonal component type. ComponentNone disables
	// seasonality and reduces the model to Holt's linear smoothing.
	Seasonal Component

	// Period is the number of samples per seasonal cycle. Required (>= 2)
	// when Seasonal is enabled.
	Period int

	// Alpha, Beta, Gamma are the level, trend and seasonal smoothing
	// constants in (0, 1). Ignored when Optimize is set.
	Alpha, Beta, Gamma float64

	// Optimize searches for the smoothing constants that minimise the
	// in-sample one-step squared error instead of using the supplied ones.
	Optimize bool
}

func (c Config) validate() error {
	if c.Trend != ComponentAdditive && c.Trend != ComponentMultiplicative {
		return fmt.Errorf("%w: trend must be additive or multiplicative", errBadConfig)
	}
	switch c.Seasonal {
	case ComponentNone:
	case ComponentAdditive, ComponentMultiplicative:
		if c.Period < 2 {
			return fmt.Errorf("%w: seasonal period must be at least 2 samples", errBadConfig)
		}
	default:
		return fmt.Errorf("%w: unknown seasonal component", errBadConfig)
	}
	if c.Optimize {
		return nil
	}
	for _, p := range []struct {
		name  string
		value float64
	}{{"alpha", c.Alpha}, {"beta", c.Beta}, {"gamma", c.Gamma}} {
		if p.name == "gamma" && c.Seasonal == ComponentNone {
			continue
		}
		if p.value <= 0 || p.value >= 1 {
			return fmt.Errorf("%w: %s must be in (0, 1)", errBadConfig, p.name)
		}
	}
	return nil
}

// Model implements models.Forecaster. A zero Model is not usable, construct
// it with New. The fitted state is immutable once Fit returns.
type Model struct {
	cfg    Config
	logger *zap.Logger

	level    float64
	trend    float64
	seasonal []float64
	sigma    float64

	n      int
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
	m := &Model{cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Fit runs the smoothing recursion over the training series and freezes the
// final level, trend and seasonal state. The training series must span at
// least two full seasonal cycles (two samples in the non-seasonal case).
func (m *Model) Fit(train *timeseries.Series) error {
	y := train.Values()

	minLen := 2
	if m.cfg.Seasonal != ComponentNone {
		minLen = 2 * m.cfg.Period
	}
	if len(y) < minLen {
		return fmt.Errorf("holtwinters: %d samples, need %d: %w",
			len(y), minLen, timeseries.ErrInsufficientData)
	}

	if m.cfg.Trend == ComponentMultiplicative || m.cfg.Seasonal == ComponentMultiplicative {
		for _, v := range y {
			if v <= 0 {
				return fmt.Errorf("holtwinters: %w", models.ErrNonPositive)
			}
		}
	}

	cfg := m.cfg
	if cfg.Optimize {
		alpha, beta, gamma, err := optimizeConstants(cfg, y)
		if err != nil {
			return err
		}
		cfg.Alpha, cfg.Beta, cfg.Gamma = alpha, beta, gamma
		m.logger.Debug("optimized smoothing constants",
			zap.Float64("alpha", alpha),
			zap.Float64("beta", beta),
			zap.Float64("gamma", gamma))
	}

	st, err := smooth(cfg, y)
	if err != nil {
		return err
	}

	m.cfg = cfg
	m.level = st.level
	m.trend = st.trend
	m.seasonal = st.seasonal
	if len(st.residuals) > 0 {
		sq := make([]float64, len(st.residuals))
		for i, r := range st.residuals {
			sq[i] = r * r
		}
		m.sigma = math.Sqrt(stat.Mean(sq, nil))
	}
	m.n = len(y)
	m.origin = train.End()
	m.step = train.Step()
	m.fitted = true
	return nil
}

// Forecast extrapolates the frozen state h steps past the end of the
// training series.
func (m *Model) Forecast(horizon int) (*models.Forecast, error) {
	if !m.fitted {
		return nil, models.ErrNotFitted
	}
	if horizon < 1 {
		return nil, models.ErrBadHorizon
	}

	values := make([]float64, horizon)
	stderr := make([]float64, horizon)
	for h := 1; h <= horizon; h++ {
		v := grow(m.cfg.Trend, m.level, m.trend, h)
		if m.cfg.Seasonal != ComponentNone {
			idx := (m.n - 1 + h) % m.cfg.Period
			v = combine(m.cfg.Seasonal, v, m.seasonal[idx])
		}
		values[h-1] = v
		stderr[h-1] = m.sigma * math.Sqrt(float64(h))
	}

	series, err := timeseries.New(m.origin.Add(m.step), m.step, values)
	if err != nil {
		return nil, err
	}
	return &models.Forecast{Series: series, StdErr: stderr}, nil
}
