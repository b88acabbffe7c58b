package fancontroller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/compute-blade-community/pifan-agent/pkg/log"
	"github.com/sierrasoftworks/humane-errors-go"
	"go.uber.org/zap"
)

// Status is the state published by the control loop after each iteration.
type Status struct {
	Temperature   int
	Target        float64
	DutyCycle     float64
	HoldActive    bool
	HoldUntil     time.Time
	ShutdownSince time.Time
	Cutoff        bool
	UpdatedAt     time.Time
}

// Loop reads the temperature once per poll interval and drives the fan towards the
// effective target. The ramp blocks the loop until it completes.
type Loop struct {
	config      Config
	thermometer *Thermometer
	planner     Planner
	hold        *HoldState
	ramp        *Ramp
	clock       Clock

	mu     sync.Mutex
	status Status
}

// NewLoop wires a control loop from its parts.
func NewLoop(config Config, source TemperatureSource, output PwmOutput, clock Clock) (*Loop, humane.Error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	planner, err := NewLinearPlanner(config)
	if err != nil {
		return nil, err
	}

	ramp, err := NewRamp(config.Ramp, output, clock)
	if err != nil {
		return nil, err
	}

	return &Loop{
		config:      config,
		thermometer: NewThermometer(source),
		planner:     planner,
		hold:        NewHoldState(config),
		ramp:        ramp,
		clock:       clock,
	}, nil
}

// Config returns the thresholds the loop runs with.
func (l *Loop) Config() Config {
	return l.config
}

// Status returns the state of the last completed iteration.
func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	status := l.status
	status.DutyCycle = l.ramp.Current()
	return status
}

// Tick runs a single control iteration. PWM write failures are logged and swallowed;
// only context cancellation is returned.
func (l *Loop) Tick(ctx context.Context) error {
	temp := l.thermometer.Read(ctx)
	now := l.clock.Now()

	decision := l.hold.Update(now, temp, l.planner.Plan(temp))
	l.publish(now, temp, decision)

	logger := log.FromContext(ctx)
	logger.Debug("fan control tick",
		zap.Int("temperature", temp),
		zap.Float64("target", decision.Target),
		zap.Bool("hold", decision.HoldActive),
		zap.Bool("cutoff", decision.Cutoff),
	)

	if decision.Cutoff {
		if err := l.ramp.Set(0); err != nil {
			logger.Error("Failed to cut off fan", zap.Error(err))
		}
		return nil
	}

	if err := l.ramp.StepToward(ctx, decision.Target); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		logger.Error("Failed to set fan speed", zap.Error(err))
	}

	return nil
}

// Run ticks until ctx is cancelled, sleeping PollInterval between iterations.
func (l *Loop) Run(ctx context.Context) error {
	log.FromContext(ctx).Info("Starting fan control loop",
		zap.Int("temp_min", l.config.TempMin),
		zap.Int("temp_max", l.config.TempMax),
		zap.Duration("poll_interval", l.config.PollInterval),
	)

	for {
		if err := l.Tick(ctx); err != nil {
			return err
		}
		if err := l.clock.Sleep(ctx, l.config.PollInterval); err != nil {
			return err
		}
	}
}

func (l *Loop) publish(now time.Time, temp int, decision Decision) {
	snapshot := l.hold.Snapshot()

	l.mu.Lock()
	l.status = Status{
		Temperature:   temp,
		Target:        decision.Target,
		HoldActive:    decision.HoldActive,
		HoldUntil:     snapshot.HoldUntil,
		ShutdownSince: snapshot.ShutdownSince,
		Cutoff:        decision.Cutoff,
		UpdatedAt:     now,
	}
	l.mu.Unlock()

	dutyCycleTarget.Set(decision.Target)
	holdActive.Set(boolGauge(decision.HoldActive))
	shutdownCutoff.Set(boolGauge(decision.Cutoff))
}
