package fancontroller

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/sierrasoftworks/humane-errors-go"
)

const (
	DefaultRampStep      = 0.02
	DefaultRampMaxChange = 0.1
	DefaultRampDelay     = 100 * time.Millisecond
)

// PwmOutput is the PWM sink driving the fan.
type PwmOutput interface {
	// SetDutyCycle applies a duty cycle in [0,1].
	SetDutyCycle(value float64) error
}

// RampConfig bounds how fast the applied duty cycle may change.
type RampConfig struct {
	Step      float64       `mapstructure:"step"`
	MaxChange float64       `mapstructure:"max_change"`
	Delay     time.Duration `mapstructure:"delay"`
}

// DefaultRampConfig returns the default ramp: 0.02 fine steps, 0.1 coarse steps, 100ms apart.
func DefaultRampConfig() RampConfig {
	return RampConfig{
		Step:      DefaultRampStep,
		MaxChange: DefaultRampMaxChange,
		Delay:     DefaultRampDelay,
	}
}

// Validate checks that 0 < Step <= MaxChange <= 1.
func (c RampConfig) Validate() humane.Error {
	if c.Step <= 0 || c.Step > c.MaxChange || c.MaxChange > 1 {
		return humane.New("ramp step sizes are invalid",
			"Ensure 0 < ramp.step <= ramp.max_change <= 1",
		)
	}
	if c.Delay < 0 {
		return humane.New("ramp delay must not be negative",
			"Use a duration such as 100ms",
		)
	}
	return nil
}

// Ramp moves the PWM output towards a target in bounded increments.
type Ramp struct {
	config RampConfig
	output PwmOutput
	clock  Clock

	mu      sync.Mutex
	current float64
}

// NewRamp creates a Ramp. The output is assumed to start at 0.
func NewRamp(config RampConfig, output PwmOutput, clock Clock) (*Ramp, humane.Error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Ramp{
		config: config,
		output: output,
		clock:  clock,
	}, nil
}

// Current returns the last duty cycle applied to the output.
func (r *Ramp) Current() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Set applies value immediately, without ramping.
func (r *Ramp) Set(value float64) error {
	value = Clamp(value)
	if err := r.output.SetDutyCycle(value); err != nil {
		return err
	}

	r.mu.Lock()
	r.current = value
	r.mu.Unlock()

	dutyCycleApplied.Set(value)
	return nil
}

// StepToward moves the output from its current value towards target and blocks until it
// arrives. While further than MaxChange+Step away it moves MaxChange per increment,
// otherwise Step, sleeping Delay between increments. Once within Step it snaps to target.
// Cancelling ctx abandons the ramp at its last applied value.
func (r *Ramp) StepToward(ctx context.Context, target float64) error {
	target = Clamp(target)
	current := r.Current()
	step := r.config.Step

	for math.Abs(current-target) > step {
		change := step
		if current > target {
			change = -step
		}
		if math.Abs(current+change-target) > r.config.MaxChange {
			change = math.Copysign(r.config.MaxChange, change)
		}

		current += change
		if err := r.Set(current); err != nil {
			return err
		}

		if err := r.clock.Sleep(ctx, r.config.Delay); err != nil {
			return err
		}
	}

	return r.Set(target)
}
