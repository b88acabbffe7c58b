//go:build linux && !tinygo

package hal

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/compute-blade-community/pifan-agent/pkg/log"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// edge waits are bounded so Run notices cancellation
const periphEdgeTimeout = 100 * time.Millisecond

// periphHal uses periph's register-level drivers, which give the BCM2711
// a hardware PWM on GPIO12/13/18/19 and edge detection on any pin.
type periphHal struct {
	edgeDispatcher
	ThermalZone

	frequency physic.Frequency
	pwmPin    gpio.PinIO
	tachPin   gpio.PinIO
}

var _ FanHal = &periphHal{}

func newPeriphHal(ctx context.Context, opts Opts) (*periphHal, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialise periph host drivers: %w", err)
	}

	h := &periphHal{
		ThermalZone: ThermalZone{Path: opts.ThermalZonePath},
		frequency:   physic.Frequency(opts.PwmFrequencyHz) * physic.Hertz,
	}

	h.pwmPin = gpioreg.ByName(fmt.Sprintf("GPIO%d", opts.PwmPin))
	if h.pwmPin == nil {
		return nil, fmt.Errorf("GPIO%d (fan pwm) not found", opts.PwmPin)
	}
	if err := h.pwmPin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("failed to drive GPIO%d (fan pwm) low: %w", opts.PwmPin, err)
	}

	if opts.TachPin != NoPin {
		h.tachPin = gpioreg.ByName(fmt.Sprintf("GPIO%d", opts.TachPin))
		if h.tachPin == nil {
			return nil, fmt.Errorf("GPIO%d (tachometer) not found", opts.TachPin)
		}
		pull := gpio.Float
		if opts.TachPullUp {
			pull = gpio.PullUp
		}
		if err := h.tachPin.In(pull, gpio.FallingEdge); err != nil {
			return nil, fmt.Errorf("failed to watch GPIO%d (tachometer): %w", opts.TachPin, err)
		}
	}

	log.FromContext(ctx).Info("starting hal setup",
		zap.String("hal", string(BackendPeriph)),
		zap.String("pwm", h.pwmPin.Name()),
		zap.Stringer("frequency", h.frequency))

	backendActive.WithLabelValues(string(BackendPeriph)).Set(1)
	return h, nil
}

func (h *periphHal) SetDutyCycle(value float64) error {
	duty := periphDuty(value)
	pwmOutputValue.Set(float64(duty))

	var err error
	switch duty {
	case 0:
		err = h.pwmPin.Out(gpio.Low)
	case gpio.DutyMax:
		err = h.pwmPin.Out(gpio.High)
	default:
		err = h.pwmPin.PWM(duty, h.frequency)
	}
	if err != nil {
		pwmWriteErrors.WithLabelValues(string(BackendPeriph)).Inc()
	}
	return err
}

// periphDuty maps a duty cycle onto periph's duty range. The ends are driven
// as plain levels since a 0% or 100% PWM signal is a constant line anyway.
func periphDuty(value float64) gpio.Duty {
	switch {
	case value <= 0:
		return 0
	case value >= 1:
		return gpio.DutyMax
	default:
		return gpio.Duty(math.Round(value * float64(gpio.DutyMax)))
	}
}

func (h *periphHal) Run(ctx context.Context) error {
	if h.tachPin == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	for ctx.Err() == nil {
		if h.tachPin.WaitForEdge(periphEdgeTimeout) {
			h.fire()
		}
	}
	return ctx.Err()
}

func (h *periphHal) Backend() Backend {
	return BackendPeriph
}

// Close releases the tachometer pin. The PWM pin keeps its last state.
func (h *periphHal) Close() error {
	var errs []error
	if h.tachPin != nil {
		errs = append(errs, h.tachPin.Halt())
	}
	backendActive.WithLabelValues(string(BackendPeriph)).Set(0)
	return errors.Join(errs...)
}
