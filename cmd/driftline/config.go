package main

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// defaults layer under the command-line flags: built-in values, then the
// optional YAML file, then DRIFTLINE_* environment variables.
type defaults struct {
	TrainPercent   float64       `yaml:"train_percent" envconfig:"TRAIN_PERCENT"`
	ForecastPeriod time.Duration `yaml:"forecast_period" envconfig:"FORECAST_PERIOD"`
	Delta          float64       `yaml:"delta" envconfig:"DELTA"`
	Window         int           `yaml:"window" envconfig:"WINDOW"`
	Verbose        bool          `yaml:"verbose" envconfig:"VERBOSE"`
}

func loadDefaults(path string) (defaults, error) {
	d := defaults{
		TrainPercent:   80,
		ForecastPeriod: 24 * time.Hour,
		Delta:          2,
		Window:         10,
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return d, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &d); err != nil {
			return d, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := envconfig.Process("driftline", &d); err != nil {
		return d, fmt.Errorf("reading environment: %w", err)
	}
	return d, nil
}
