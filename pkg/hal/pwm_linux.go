//go:build linux && !tinygo

package hal

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/warthog618/gpiod"
	"gobot.io/x/gobot/sysfs"
)

// sysfsPwm drives a hardware PWM channel exported under /sys/class/pwm.
type sysfsPwm struct {
	pin    *sysfs.PWMPin
	period uint32
}

func newSysfsPwm(chip, channel, frequencyHz int) (*sysfsPwm, error) {
	pin := sysfs.NewPWMPin(channel)
	pin.Path = fmt.Sprintf("/sys/class/pwm/pwmchip%d", chip)

	if err := pin.Export(); err != nil {
		return nil, fmt.Errorf("failed to export pwm%d on pwmchip%d: %w", channel, chip, err)
	}

	p := &sysfsPwm{
		pin:    pin,
		period: uint32(time.Second / time.Duration(frequencyHz)),
	}

	if err := pin.SetPeriod(p.period); err != nil {
		return nil, fmt.Errorf("failed to set pwm period to %dns: %w", p.period, err)
	}
	if err := pin.SetDutyCycle(0); err != nil {
		return nil, fmt.Errorf("failed to reset pwm duty cycle: %w", err)
	}
	if err := pin.Enable(true); err != nil {
		return nil, fmt.Errorf("failed to enable pwm%d on pwmchip%d: %w", channel, chip, err)
	}

	return p, nil
}

func (p *sysfsPwm) SetDutyCycle(value float64) error {
	duty := uint32(math.Round(value * float64(p.period)))
	pwmOutputValue.Set(float64(duty))
	return p.pin.SetDutyCycle(duty)
}

func (p *sysfsPwm) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

// Close keeps the channel exported and enabled so the last duty cycle
// stays applied after the agent exits.
func (p *sysfsPwm) Close() error {
	return nil
}

// softPwm toggles an output line at the configured frequency.
type softPwm struct {
	line   *gpiod.Line
	period time.Duration
	duty   atomic.Uint64
}

func newSoftPwm(line *gpiod.Line, frequencyHz int) *softPwm {
	return &softPwm{
		line:   line,
		period: time.Second / time.Duration(frequencyHz),
	}
}

func (p *softPwm) SetDutyCycle(value float64) error {
	p.duty.Store(math.Float64bits(value))
	pwmOutputValue.Set(value)
	return nil
}

func (p *softPwm) dutyCycle() float64 {
	return math.Float64frombits(p.duty.Load())
}

func (p *softPwm) Run(ctx context.Context) error {
	timer := time.NewTimer(p.period)
	defer timer.Stop()

	wait := func(d time.Duration) error {
		timer.Reset(d)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}

	// drain the initial timer so Reset starts from a stopped state
	if !timer.Stop() {
		<-timer.C
	}

	for {
		high := softPwmHighTime(p.dutyCycle(), p.period)

		if high > 0 {
			if err := p.line.SetValue(1); err != nil {
				return fmt.Errorf("failed to drive fan pwm line high: %w", err)
			}
			if err := wait(high); err != nil {
				return err
			}
		}

		if high < p.period {
			if err := p.line.SetValue(0); err != nil {
				return fmt.Errorf("failed to drive fan pwm line low: %w", err)
			}
			if err := wait(p.period - high); err != nil {
				return err
			}
		}
	}
}

// Close leaves the line high if the fan was spinning at all, so it keeps
// running once the PWM goroutine is gone.
func (p *softPwm) Close() error {
	level := 0
	if p.dutyCycle() > 0 {
		level = 1
	}
	if err := p.line.SetValue(level); err != nil {
		return err
	}
	return p.line.Close()
}
