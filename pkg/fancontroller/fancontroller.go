package fancontroller

import (
	"fmt"
	"time"

	"github.com/sierrasoftworks/humane-errors-go"
)

const (
	DefaultTempMin       = 45
	DefaultTempMax       = 75
	DefaultHoldDuration  = 10 * time.Second
	DefaultShutdownDelay = 30 * time.Second
	DefaultPollInterval  = 1 * time.Second
)

// Config holds the static thresholds and timings of the fan controller.
type Config struct {
	TempMin       int           `mapstructure:"temp_min"`
	TempMax       int           `mapstructure:"temp_max"`
	HoldDuration  time.Duration `mapstructure:"hold_duration"`
	ShutdownDelay time.Duration `mapstructure:"shutdown_delay"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	Ramp          RampConfig    `mapstructure:"ramp"`
}

// DefaultConfig returns the thresholds the controller ships with.
func DefaultConfig() Config {
	return Config{
		TempMin:       DefaultTempMin,
		TempMax:       DefaultTempMax,
		HoldDuration:  DefaultHoldDuration,
		ShutdownDelay: DefaultShutdownDelay,
		PollInterval:  DefaultPollInterval,
		Ramp:          DefaultRampConfig(),
	}
}

// Validate checks the thresholds and timings for consistency.
func (c Config) Validate() humane.Error {
	if c.TempMin >= c.TempMax {
		return humane.New("temp_min must be lower than temp_max",
			fmt.Sprintf("Ensure temp_min (%d°C) is strictly below temp_max (%d°C)", c.TempMin, c.TempMax),
		)
	}
	if c.HoldDuration < 0 || c.ShutdownDelay < 0 {
		return humane.New("hold_duration and shutdown_delay must not be negative",
			"Use a duration such as 10s or 30s, or 0 to disable the delay",
		)
	}
	if c.PollInterval <= 0 {
		return humane.New("poll_interval must be positive",
			"Use a duration such as 1s",
		)
	}
	return c.Ramp.Validate()
}

// Planner maps a temperature to the baseline duty cycle, before any hold or shutdown override.
type Planner interface {
	// Plan returns the duty cycle in [0,1] for the given temperature in °C.
	Plan(temperature int) float64
}

// linearPlanner interpolates linearly between TempMin (0%) and TempMax (100%).
type linearPlanner struct {
	tempMin int
	tempMax int
}

// NewLinearPlanner creates a Planner ramping from 0 at TempMin to 1 at TempMax.
func NewLinearPlanner(config Config) (Planner, humane.Error) {
	if config.TempMin >= config.TempMax {
		return nil, humane.New("temp_min must be lower than temp_max",
			fmt.Sprintf("Ensure temp_min (%d°C) is strictly below temp_max (%d°C)", config.TempMin, config.TempMax),
		)
	}

	return &linearPlanner{
		tempMin: config.TempMin,
		tempMax: config.TempMax,
	}, nil
}

// Plan returns the duty cycle for the given temperature.
func (p *linearPlanner) Plan(temperature int) float64 {
	// At or above maximum temperature: full speed
	if temperature >= p.tempMax {
		return 1
	}

	// Below minimum temperature: off
	if temperature < p.tempMin {
		return 0
	}

	slope := 1 / float64(p.tempMax-p.tempMin)
	return Clamp(slope * float64(temperature-p.tempMin))
}

// Clamp limits a duty cycle to [0,1].
func Clamp(duty float64) float64 {
	if duty < 0 {
		return 0
	}
	if duty > 1 {
		return 1
	}
	return duty
}
