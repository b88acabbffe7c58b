//go:build linux && !tinygo

package hal

import (
	"context"
	"errors"
	"fmt"

	"github.com/compute-blade-community/pifan-agent/pkg/log"
	"github.com/warthog618/gpiod"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const gpioConsumer = "pifan-agent"

type pwmDriver interface {
	SetDutyCycle(value float64) error
	Run(ctx context.Context) error
	Close() error
}

// gpiodHal counts tachometer edges through the GPIO character device and
// drives the fan either through a sysfs PWM channel or a software PWM line.
type gpiodHal struct {
	edgeDispatcher
	ThermalZone

	opts     Opts
	chip     *gpiod.Chip
	tachLine *gpiod.Line
	pwm      pwmDriver
}

var _ FanHal = &gpiodHal{}

func newGpiodHal(ctx context.Context, opts Opts) (*gpiodHal, error) {
	logger := log.FromContext(ctx)

	chip, err := gpiod.NewChip(opts.GpioChip, gpiod.WithConsumer(gpioConsumer))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", opts.GpioChip, err)
	}

	h := &gpiodHal{
		ThermalZone: ThermalZone{Path: opts.ThermalZonePath},
		opts:        opts,
		chip:        chip,
	}

	logger.Info("starting hal setup", zap.String("hal", string(BackendGpiod)), zap.String("chip", opts.GpioChip))

	if opts.PwmChip >= 0 {
		h.pwm, err = newSysfsPwm(opts.PwmChip, opts.PwmChannel, opts.PwmFrequencyHz)
		if err != nil {
			h.Close()
			return nil, err
		}
		logger.Info("using hardware pwm",
			zap.Int("pwm_chip", opts.PwmChip),
			zap.Int("pwm_channel", opts.PwmChannel),
			zap.Int("frequency_hz", opts.PwmFrequencyHz))
	} else {
		line, err := chip.RequestLine(opts.PwmPin, gpiod.AsOutput(0))
		if err != nil {
			h.Close()
			return nil, fmt.Errorf("failed to request GPIO%d (fan pwm): %w", opts.PwmPin, err)
		}
		h.pwm = newSoftPwm(line, opts.PwmFrequencyHz)
		logger.Info("using software pwm", zap.Int("pin", opts.PwmPin), zap.Int("frequency_hz", opts.PwmFrequencyHz))
	}

	h.tachLine, err = requestTachLine(chip, opts, h.handleTachEdge)
	if err != nil {
		h.Close()
		return nil, err
	}

	backendActive.WithLabelValues(string(BackendGpiod)).Set(1)
	return h, nil
}

// requestTachLine watches falling edges on the tachometer pin; the fan pulls
// the line low once per pulse. Returns nil when no tachometer is configured.
func requestTachLine(chip *gpiod.Chip, opts Opts, handler gpiod.EventHandler) (*gpiod.Line, error) {
	if opts.TachPin == NoPin {
		return nil, nil
	}

	reqOpts := []gpiod.LineReqOption{gpiod.WithEventHandler(handler), gpiod.WithFallingEdge}
	if opts.TachPullUp {
		reqOpts = append(reqOpts, gpiod.WithPullUp)
	}

	line, err := chip.RequestLine(opts.TachPin, reqOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to request GPIO%d (tachometer): %w", opts.TachPin, err)
	}
	return line, nil
}

func (h *gpiodHal) handleTachEdge(gpiod.LineEvent) {
	h.fire()
}

func (h *gpiodHal) SetDutyCycle(value float64) error {
	if err := h.pwm.SetDutyCycle(value); err != nil {
		pwmWriteErrors.WithLabelValues(string(BackendGpiod)).Inc()
		return err
	}
	return nil
}

func (h *gpiodHal) Run(parentCtx context.Context) error {
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	group := errgroup.Group{}

	group.Go(func() error {
		defer cancel()
		return h.pwm.Run(ctx)
	})

	return group.Wait()
}

func (h *gpiodHal) Backend() Backend {
	return BackendGpiod
}

func (h *gpiodHal) Close() error {
	var errs []error
	if h.pwm != nil {
		errs = append(errs, h.pwm.Close())
	}
	if h.tachLine != nil {
		errs = append(errs, h.tachLine.Close())
	}
	if h.chip != nil {
		errs = append(errs, h.chip.Close())
	}
	backendActive.WithLabelValues(string(BackendGpiod)).Set(0)
	return errors.Join(errs...)
}
