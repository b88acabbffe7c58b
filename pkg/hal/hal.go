// Package hal drives the fan hardware: the SoC temperature sensor, the PWM
// output feeding the fan and the tachometer line producing one edge per pulse.
package hal

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/compute-blade-community/pifan-agent/pkg/fancontroller"
	humane "github.com/sierrasoftworks/humane-errors-go"
)

// Backend selects the hardware implementation behind a FanHal.
type Backend string

const (
	BackendAuto      Backend = "auto"
	BackendGpiod     Backend = "gpiod"
	BackendHwmon     Backend = "hwmon"
	BackendPeriph    Backend = "periph"
	BackendSimulated Backend = "simulated"
)

const (
	DefaultGpioChip        = "gpiochip0"
	DefaultPwmPin          = 14
	DefaultTachPin         = 23
	DefaultPwmFrequencyHz  = 25
	DefaultHwmonName       = "pwmfan"
	DefaultHwmonRoot       = "/sys/class/hwmon"
	DefaultThermalZonePath = "/sys/class/thermal/thermal_zone0/temp"

	// NoPin disables an optional line (pwm_chip, tach_pin).
	NoPin = -1
)

// FanHal is the hardware the agent needs to run a single fan.
type FanHal interface {
	fancontroller.TemperatureSource
	fancontroller.PwmOutput

	// RegisterEdgeCallback installs fn as the handler for tachometer edges.
	// It must be called before Run; fn runs on the backend's event goroutine.
	RegisterEdgeCallback(fn func())

	// Run services the hardware (edge polling, software PWM) until ctx is done.
	Run(ctx context.Context) error

	// Backend names the implementation, resolving BackendAuto.
	Backend() Backend

	Close() error
}

// Opts is the explicit hardware configuration. It replaces any implicit
// global selection of the GPIO chip or pin factory.
type Opts struct {
	Backend         Backend `mapstructure:"backend"`
	GpioChip        string  `mapstructure:"gpio_chip"`
	PwmPin          int     `mapstructure:"pwm_pin"`
	PwmChip         int     `mapstructure:"pwm_chip"`
	PwmChannel      int     `mapstructure:"pwm_channel"`
	PwmFrequencyHz  int     `mapstructure:"pwm_frequency_hz"`
	TachPin         int     `mapstructure:"tach_pin"`
	TachPullUp      bool    `mapstructure:"tach_pull_up"`
	HwmonName       string  `mapstructure:"hwmon_name"`
	HwmonRoot       string  `mapstructure:"hwmon_root"`
	ThermalZonePath string  `mapstructure:"thermal_zone_path"`

	// AuxiliarySensors names hwmon devices whose temperatures are reported
	// alongside the control temperature. They never influence the fan.
	AuxiliarySensors []string `mapstructure:"auxiliary_sensors"`

	Simulated SimulatedOpts `mapstructure:"simulated"`
}

// DefaultOpts matches a Raspberry Pi 5 with the fan PWM on GPIO14 and the
// tachometer on GPIO23, driven by software PWM at 25 Hz.
func DefaultOpts() Opts {
	return Opts{
		Backend:          BackendAuto,
		GpioChip:         DefaultGpioChip,
		PwmPin:           DefaultPwmPin,
		PwmChip:          NoPin,
		PwmFrequencyHz:   DefaultPwmFrequencyHz,
		TachPin:          DefaultTachPin,
		TachPullUp:       true,
		HwmonName:        DefaultHwmonName,
		HwmonRoot:        DefaultHwmonRoot,
		ThermalZonePath:  DefaultThermalZonePath,
		AuxiliarySensors: []string{"nvme", "rp1"},
		Simulated:        DefaultSimulatedOpts(),
	}
}

func (o Opts) Validate() humane.Error {
	switch o.Backend {
	case BackendAuto, BackendGpiod, BackendHwmon, BackendPeriph, BackendSimulated:
	default:
		return humane.New(
			fmt.Sprintf("unknown hal backend %q", o.Backend),
			"Set hal.backend to one of auto, gpiod, hwmon, periph or simulated.",
		)
	}

	if o.PwmFrequencyHz <= 0 {
		return humane.New(
			"pwm_frequency_hz must be positive",
			"Use 25 for software PWM or 25000 for a 4-pin PWM fan on a hardware PWM channel.",
		)
	}

	if o.ThermalZonePath == "" {
		return humane.New(
			"thermal_zone_path must not be empty",
			"Point hal.thermal_zone_path at a file containing millidegrees Celsius, e.g. /sys/class/thermal/thermal_zone0/temp.",
		)
	}

	return nil
}

// edgeDispatcher holds the tachometer callback. Backends embed it and call
// fire from their event goroutine.
type edgeDispatcher struct {
	callback atomic.Pointer[func()]
}

func (d *edgeDispatcher) RegisterEdgeCallback(fn func()) {
	if fn == nil {
		d.callback.Store(nil)
		return
	}
	d.callback.Store(&fn)
}

func (d *edgeDispatcher) fire() {
	if fn := d.callback.Load(); fn != nil {
		edgeEventCount.Inc()
		(*fn)()
	}
}
