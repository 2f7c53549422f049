package arima

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/driftline/driftline/pkg/models"
)

// fitResult is the outcome of coefficient estimation on the differenced
// series. ar and ma are ordered like the lag sets they were estimated for.
type fitResult struct {
	ar, ma    []float64
	mean      float64
	variance  float64
	residuals []float64
}

// estimate solves for the AR and MA coefficients that minimise the sum of
// squared one-step prediction errors of w. With no MA lags this is a single
// closed-form solve; MA lags require the iterative least-squares refinement
// in refineMA because the regressors are themselves fitted errors.
func estimate(cfg Config, arLags, maLags []int, w []float64, logger *zap.Logger) (*fitResult, error) {
	mean := stat.Mean(w, nil)
	x := make([]float64, len(w))
	for i, v := range w {
		x[i] = v - mean
	}

	switch {
	case len(arLags) == 0 && len(maLags) == 0:
		res := &fitResult{mean: mean, residuals: x}
		res.variance = stat.Variance(x, nil)
		return res, nil

	case len(maLags) == 0:
		ar, err := fitAR(cfg, arLags, x)
		if err != nil {
			return nil, err
		}
		res := &fitResult{ar: ar, ma: []float64{}, mean: mean}
		res.residuals = conditionalResiduals(x, arLags, ar, nil, nil)
		res.variance = residualVariance(res.residuals, len(arLags))
		return res, nil

	default:
		return refineMA(cfg, arLags, maLags, x, mean, logger)
	}
}

// fitAR estimates a pure autoregression. Consecutive lags go through the
// Yule-Walker equations via Levinson-Durbin; sparse seasonal lag sets fall
// back to a least-squares solve over the lagged design matrix.
func fitAR(cfg Config, arLags []int, x []float64) ([]float64, error) {
	if cfg.Seasonal.P == 0 {
		phi := levinsonDurbin(autocorr(x, cfg.Order.P), cfg.Order.P)
		if phi == nil {
			return nil, fmt.Errorf("arima: yule-walker solve failed: %w", models.ErrNonConvergence)
		}
		return phi, nil
	}
	coef, _, err := leastSquares(x, arLags, nil, nil)
	if err != nil {
		return nil, err
	}
	return coef, nil
}

// refineMA implements a Hannan-Rissanen style estimation: a long
// autoregression supplies error proxies, then alternating least-squares
// passes re-solve the coefficients against the freshly recomputed residuals
// until the squared error settles, within cfg.MaxIter iterations.
func refineMA(cfg Config, arLags, maLags []int, x []float64, mean float64, logger *zap.Logger) (*fitResult, error) {
	n := len(x)
	maxLag := maxInt(arLags, maLags)

	// Error proxies from a long AR fit.
	long := maxLag + 2
	if long > n/4 && n/4 > 0 {
		long = n / 4
	}
	if long < 1 {
		long = 1
	}
	a := levinsonDurbin(autocorr(x, long), long)
	if a == nil {
		return nil, fmt.Errorf("arima: long autoregression failed: %w", models.ErrNonConvergence)
	}
	resid := make([]float64, n)
	for t := long; t < n; t++ {
		pred := 0.0
		for i, ai := range a {
			pred += ai * x[t-i-1]
		}
		resid[t] = x[t] - pred
	}

	// Anything beating the zero-coefficient model reduces variance.
	baseline := 0.0
	for t := maxLag; t < n; t++ {
		baseline += x[t] * x[t]
	}

	var (
		ar, ma  []float64
		bestSSE = math.Inf(1)
		bestAR  []float64
		bestMA  []float64
		bestRes []float64
	)

	prevSSE := math.Inf(1)
	for iter := 0; iter < cfg.MaxIter; iter++ {
		coef, _, err := leastSquares(x, arLags, maLags, resid)
		if err != nil {
			return nil, err
		}
		ar = coef[:len(arLags)]
		ma = coef[len(arLags):]

		resid = conditionalResiduals(x, arLags, ar, maLags, ma)
		sse := 0.0
		for t := maxLag; t < n; t++ {
			sse += resid[t] * resid[t]
		}
		if math.IsNaN(sse) || math.IsInf(sse, 0) {
			return nil, fmt.Errorf("arima: estimation diverged: %w", models.ErrNonConvergence)
		}
		if sse < bestSSE {
			bestSSE = sse
			bestAR = append([]float64{}, ar...)
			bestMA = append([]float64{}, ma...)
			bestRes = append([]float64{}, resid...)
		}
		if math.Abs(prevSSE-sse) < 1e-9*(1+sse) {
			break
		}
		prevSSE = sse
	}

	if bestSSE >= baseline {
		logger.Warn("ma refinement did not reduce residual variance",
			zap.Float64("sse", bestSSE),
			zap.Float64("baseline", baseline))
		return nil, fmt.Errorf("arima: %w", models.ErrNonConvergence)
	}

	res := &fitResult{ar: bestAR, ma: bestMA, mean: mean, residuals: bestRes}
	res.variance = residualVariance(bestRes, len(arLags)+len(maLags))
	return res, nil
}

// leastSquares regresses x_t on its own lags and, when maLags is non-empty,
// on lagged residuals. It returns the stacked coefficient vector, AR part
// first, and the residual sum of squares of the solve.
func leastSquares(x []float64, arLags []int, maLags []int, resid []float64) ([]float64, float64, error) {
	start := maxInt(arLags, maLags)
	cols := len(arLags) + len(maLags)
	rows := len(x) - start
	if rows <= cols {
		return nil, 0, fmt.Errorf("arima: %d observations for %d coefficients: %w",
			rows, cols, models.ErrNonConvergence)
	}

	a := mat.NewDense(rows, cols, nil)
	b := mat.NewVecDense(rows, nil)
	for r := 0; r < rows; r++ {
		t := start + r
		c := 0
		for _, lag := range arLags {
			a.Set(r, c, x[t-lag])
			c++
		}
		for _, lag := range maLags {
			a.Set(r, c, resid[t-lag])
			c++
		}
		b.SetVec(r, x[t])
	}

	var qr mat.QR
	qr.Factorize(a)
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, b); err != nil {
		return nil, 0, fmt.Errorf("arima: least squares solve: %w", models.ErrNonConvergence)
	}

	coef := make([]float64, cols)
	for i := range coef {
		coef[i] = beta.AtVec(i)
	}

	var fitted mat.VecDense
	fitted.MulVec(a, &beta)
	sse := 0.0
	for r := 0; r < rows; r++ {
		d := b.AtVec(r) - fitted.AtVec(r)
		sse += d * d
	}
	return coef, sse, nil
}

// conditionalResiduals recomputes one-step errors recursively, with zeros
// assumed for the presample period.
func conditionalResiduals(x []float64, arLags []int, ar []float64, maLags []int, ma []float64) []float64 {
	resid := make([]float64, len(x))
	start := maxInt(arLags, maLags)
	for t := start; t < len(x); t++ {
		pred := 0.0
		for i, lag := range arLags {
			pred += ar[i] * x[t-lag]
		}
		for i, lag := range maLags {
			pred += ma[i] * resid[t-lag]
		}
		resid[t] = x[t] - pred
	}
	return resid
}

func residualVariance(resid []float64, ncoef int) float64 {
	sse := 0.0
	for _, r := range resid {
		sse += r * r
	}
	dof := len(resid) - ncoef - 1
	if dof < 1 {
		dof = len(resid)
	}
	return sse / float64(dof)
}

// autocorr returns the sample autocorrelation up to the given lag,
// autocorr[0] == 1.
func autocorr(x []float64, maxLag int) []float64 {
	n := len(x)
	acf := make([]float64, maxLag+1)
	var c0 float64
	for _, v := range x {
		c0 += v * v
	}
	if c0 == 0 {
		return acf
	}
	acf[0] = 1
	for k := 1; k <= maxLag && k < n; k++ {
		var ck float64
		for t := k; t < n; t++ {
			ck += x[t] * x[t-k]
		}
		acf[k] = ck / c0
	}
	return acf
}

// levinsonDurbin solves the Yule-Walker equations for the AR coefficients of
// the given order. Returns nil when the recursion breaks down.
func levinsonDurbin(acf []float64, order int) []float64 {
	if order <= 0 || len(acf) <= order {
		return nil
	}

	phi := make([]float64, order)
	phi[0] = acf[1]
	v := 1 - phi[0]*phi[0]

	for i := 1; i < order; i++ {
		if v <= 0 {
			return nil
		}
		lambda := acf[i+1]
		for j := 0; j < i; j++ {
			lambda -= phi[j] * acf[i-j]
		}
		lambda /= v

		next := make([]float64, i+1)
		for j := 0; j < i; j++ {
			next[j] = phi[j] - lambda*phi[i-1-j]
		}
		next[i] = lambda
		copy(phi, next)

		v *= 1 - lambda*lambda
	}
	return phi
}

func maxInt(a, b []int) int {
	m := 0
	for _, v := range a {
		if v > m {
			m = v
		}
	}
	for _, v := range b {
		if v > m {
			m = v
		}
	}
	return m
}
