// Package synthetic generates series with known structure for demos and
// tests: a linear trend, a sinusoidal seasonal cycle and Gaussian noise,
// optionally with injected gaps and spikes.
package synthetic

import (
	"math"
	"math/rand"
	"time"

	"github.com/driftline/driftline/pkg/timeseries"
)

type Generator struct {
	rng *rand.Rand

	start time.Time
	step  time.Duration

	base        float64
	trend       float64 // per-step drift
	seasonalAmp float64
	period      int // samples per seasonal cycle, 0 disables
	noise       float64

	gaps   []int
	spikes map[int]float64
}

func NewGenerator(rng *rand.Rand, start time.Time, step time.Duration) *Generator {
	return &Generator{
		rng:    rng,
		start:  start,
		step:   step,
		base:   100,
		spikes: map[int]float64{},
	}
}

func (g *Generator) WithBase(base float64) *Generator {
	g.base = base
	return g
}

func (g *Generator) WithTrend(perStep float64) *Generator {
	g.trend = perStep
	return g
}

func (g *Generator) WithSeasonality(amplitude float64, period int) *Generator {
	g.seasonalAmp = amplitude
	g.period = period
	return g
}

func (g *Generator) WithNoise(sigma float64) *Generator {
	g.noise = sigma
	return g
}

// WithGap marks samples [at, at+length) as missing.
func (g *Generator) WithGap(at, length int) *Generator {
	for i := at; i < at+length; i++ {
		g.gaps = append(g.gaps, i)
	}
	return g
}

// WithSpike adds an offset to a single sample.
func (g *Generator) WithSpike(at int, magnitude float64) *Generator {
	g.spikes[at] = magnitude
	return g
}

// Generate produces n samples.
func (g *Generator) Generate(n int) *timeseries.Series {
	values := make([]float64, n)
	for i := 0; i < n; i++ {
		v := g.base + g.trend*float64(i)
		if g.period > 1 {
			v += g.seasonalAmp * math.Sin(2*math.Pi*float64(i)/float64(g.period))
		}
		if g.noise > 0 {
			v += g.rng.NormFloat64() * g.noise
		}
		values[i] = v
	}
	for at, magnitude := range g.spikes {
		if at >= 0 && at < n {
			values[at] += magnitude
		}
	}
	for _, at := range g.gaps {
		if at >= 0 && at < n {
			values[at] = math.NaN()
		}
	}

	s, err := timeseries.New(g.start, g.step, values)
	if err != nil {
		panic(err) // non-positive step
	}
	return s
}
