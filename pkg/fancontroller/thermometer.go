package fancontroller

import (
	"context"

	"github.com/compute-blade-community/pifan-agent/pkg/log"
	"go.uber.org/zap"
)

// TemperatureSource reads the raw sensor value in milli-degrees Celsius.
type TemperatureSource interface {
	ReadMilliCelsius() (int, error)
}

// Thermometer converts raw sensor readings to whole degrees Celsius.
type Thermometer struct {
	source TemperatureSource
}

// NewThermometer wraps source.
func NewThermometer(source TemperatureSource) *Thermometer {
	return &Thermometer{source: source}
}

// Read returns the temperature in °C, truncated toward zero.
// A failed read returns 0, which the controller treats as cold: the fan only stops once the
// shutdown delay has elapsed, so a single bad read never cuts the fan.
func (t *Thermometer) Read(ctx context.Context) int {
	milli, err := t.source.ReadMilliCelsius()
	if err != nil {
		log.FromContext(ctx).Debug("failed to read temperature, assuming cold", zap.Error(err))
		temperatureReadFailures.Inc()
		return 0
	}

	temp := milli / 1000
	temperature.Set(float64(temp))
	return temp
}
