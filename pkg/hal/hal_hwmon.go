//go:build linux && !tinygo

package hal

import (
	"context"
	"errors"
	"fmt"

	"github.com/compute-blade-community/pifan-agent/pkg/log"
	"github.com/warthog618/gpiod"
	"go.uber.org/zap"
)

// hwmonHal drives the fan through the kernel pwm-fan driver (pwm1, 0-255).
// The tachometer is optional and read through the GPIO character device.
type hwmonHal struct {
	edgeDispatcher
	ThermalZone

	pwm      *hwmonPwm
	chip     *gpiod.Chip
	tachLine *gpiod.Line
}

var _ FanHal = &hwmonHal{}

func newHwmonHal(ctx context.Context, opts Opts) (*hwmonHal, error) {
	logger := log.FromContext(ctx)

	pwm, err := newHwmonPwm(opts.HwmonRoot, opts.HwmonName)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s hwmon device: %w", opts.HwmonName, err)
	}

	h := &hwmonHal{
		ThermalZone: ThermalZone{Path: opts.ThermalZonePath},
		pwm:         pwm,
	}

	logger.Info("starting hal setup", zap.String("hal", string(BackendHwmon)), zap.String("pwm", pwm.pwmPath))

	if opts.TachPin == NoPin {
		logger.Warn("no tachometer pin configured, fan rpm will read 0")
	} else {
		h.chip, err = gpiod.NewChip(opts.GpioChip, gpiod.WithConsumer(gpioConsumer))
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", opts.GpioChip, err)
		}
		h.tachLine, err = requestTachLine(h.chip, opts, h.handleTachEdge)
		if err != nil {
			h.Close()
			return nil, err
		}
	}

	backendActive.WithLabelValues(string(BackendHwmon)).Set(1)
	return h, nil
}

func (h *hwmonHal) handleTachEdge(gpiod.LineEvent) {
	h.fire()
}

func (h *hwmonHal) SetDutyCycle(value float64) error {
	if err := h.pwm.SetDutyCycle(value); err != nil {
		pwmWriteErrors.WithLabelValues(string(BackendHwmon)).Inc()
		return err
	}
	return nil
}

func (h *hwmonHal) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (h *hwmonHal) Backend() Backend {
	return BackendHwmon
}

func (h *hwmonHal) Close() error {
	var errs []error
	if h.tachLine != nil {
		errs = append(errs, h.tachLine.Close())
	}
	if h.chip != nil {
		errs = append(errs, h.chip.Close())
	}
	backendActive.WithLabelValues(string(BackendHwmon)).Set(0)
	return errors.Join(errs...)
}
