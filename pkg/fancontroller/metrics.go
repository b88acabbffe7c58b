package fancontroller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	temperature = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pifan_agent",
		Name:      "temperature_celsius",
		Help:      "CPU temperature in whole degrees Celsius as seen by the fan controller",
	})

	temperatureReadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pifan_agent",
		Name:      "temperature_read_failures_total",
		Help:      "Number of failed temperature reads that were treated as 0°C",
	})

	dutyCycleTarget = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pifan_agent",
		Name:      "fan_duty_cycle_target",
		Help:      "Effective duty cycle target after hold and shutdown overrides",
	})

	dutyCycleApplied = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pifan_agent",
		Name:      "fan_duty_cycle",
		Help:      "Duty cycle currently applied to the PWM output",
	})

	holdActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pifan_agent",
		Name:      "fan_hold_active",
		Help:      "1 while the full-speed hold window is active",
	})

	shutdownCutoff = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pifan_agent",
		Name:      "fan_shutdown_cutoff",
		Help:      "1 while the fan is cut off after a sustained low temperature",
	})
)

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
