package internal_agent

import (
	"context"
	"errors"

	"github.com/compute-blade-community/pifan-agent/pkg/agent"
	"github.com/compute-blade-community/pifan-agent/pkg/fancontroller"
	"github.com/compute-blade-community/pifan-agent/pkg/hal"
	"github.com/compute-blade-community/pifan-agent/pkg/log"
	"github.com/compute-blade-community/pifan-agent/pkg/tachometer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var componentFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pifan_agent",
	Name:      "component_failures_total",
	Help:      "Agent components that stopped with an error",
}, []string{"component"})

// Agent owns the fan hardware and runs the control loop, the tachometer
// sampler and the status API side by side.
type Agent struct {
	config  Config
	hal     hal.FanHal
	clock   fancontroller.Clock
	counter *tachometer.Counter
	sampler *tachometer.Sampler
	loop    *fancontroller.Loop

	// stopped is closed once the Run started by RunAsync has returned.
	stopped chan struct{}
}

func NewAgent(ctx context.Context, config Config, opts ...Option) (*Agent, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	a := &Agent{
		config: config,
		clock:  fancontroller.RealClock(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.hal == nil {
		fanHal, err := hal.NewHal(ctx, config.Hal)
		if err != nil {
			return nil, err
		}
		a.hal = fanHal
	}

	a.counter = tachometer.NewCounter()
	a.hal.RegisterEdgeCallback(a.counter.OnPulse)

	sampler, err := tachometer.NewSampler(a.counter, config.Tachometer, a.clock)
	if err != nil {
		return nil, multierr.Append(err, a.hal.Close())
	}
	a.sampler = sampler

	loop, err := fancontroller.NewLoop(config.Fan, a.hal, a.hal, a.clock)
	if err != nil {
		return nil, multierr.Append(err, a.hal.Close())
	}
	a.loop = loop

	return a, nil
}

// RunAsync starts the agent in a separate goroutine and cancels ctx with the
// cause if any component fails.
func (a *Agent) RunAsync(ctx context.Context, cancel context.CancelCauseFunc) {
	stopped := make(chan struct{})
	a.stopped = stopped

	go func() {
		defer close(stopped)

		log.FromContext(ctx).Info("Starting agent")
		err := a.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.FromContext(ctx).Error("Failed to run agent", zap.Error(err))
			cancel(err)
		}
	}()
}

// Run blocks until ctx is cancelled or one of the components fails; the
// first failure stops the others.
func (a *Agent) Run(origCtx context.Context) error {
	group, ctx := errgroup.WithContext(origCtx)

	log.FromContext(ctx).Info("Starting pifan agent",
		zap.String("backend", string(a.hal.Backend())),
		zap.Int("temp_min", a.config.Fan.TempMin),
		zap.Int("temp_max", a.config.Fan.TempMax),
	)

	group.Go(func() error { return a.runComponent(ctx, "hal", a.hal.Run) })
	group.Go(func() error { return a.runComponent(ctx, "tachometer", a.sampler.Run) })
	group.Go(func() error { return a.runComponent(ctx, "fan_controller", a.loop.Run) })
	group.Go(func() error { return a.runComponent(ctx, "api", a.runAPI) })

	return group.Wait()
}

func (a *Agent) runComponent(ctx context.Context, name string, run func(context.Context) error) error {
	log.FromContext(ctx).Info("Starting component", zap.String("component", name))

	err := run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		componentFailures.WithLabelValues(name).Inc()
		log.FromContext(ctx).Error("Component failed", zap.String("component", name), zap.Error(err))
	}
	return err
}

// Status aggregates the published fan state.
func (a *Agent) Status() agent.StatusResponse {
	loop := a.loop.Status()
	config := a.loop.Config()

	return agent.StatusResponse{
		Backend:               string(a.hal.Backend()),
		Temperature:           loop.Temperature,
		AuxiliaryTemperatures: hal.AuxiliaryTemperatures(a.config.Hal.HwmonRoot, a.config.Hal.AuxiliarySensors),
		RPM:                   a.sampler.RPM(),
		AverageRPM:            a.sampler.AverageRPM(),
		TargetDutyCycle:       loop.Target,
		DutyCycle:             loop.DutyCycle,
		HoldActive:            loop.HoldActive,
		HoldUntil:             agent.TimeOrNil(loop.HoldUntil),
		ShutdownPendingSince:  agent.TimeOrNil(loop.ShutdownSince),
		Cutoff:                loop.Cutoff,
		Thresholds: agent.Thresholds{
			TempMin:       config.TempMin,
			TempMax:       config.TempMax,
			HoldDuration:  config.HoldDuration,
			ShutdownDelay: config.ShutdownDelay,
			PollInterval:  config.PollInterval,
		},
		UpdatedAt: loop.UpdatedAt,
	}
}

// GracefulStop restores safe settings: the fan is left at full speed before
// the hardware is released. When the agent was started with RunAsync it first
// waits, bounded by ctx, for the components to stop so that no control loop
// iteration can overwrite the safe setting.
func (a *Agent) GracefulStop(ctx context.Context) error {
	if a.stopped != nil {
		select {
		case <-a.stopped:
		case <-ctx.Done():
			log.FromContext(ctx).Warn("Components did not stop in time, restoring safe settings anyway", zap.Error(ctx.Err()))
		}
	}

	log.FromContext(ctx).Info("Exiting, restoring safe settings")

	setErr := a.hal.SetDutyCycle(1)
	if setErr != nil {
		log.FromContext(ctx).Error("Failed to set fan speed to 100%", zap.Error(setErr))
	}

	return multierr.Combine(setErr, a.hal.Close())
}
