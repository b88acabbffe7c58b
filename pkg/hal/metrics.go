package hal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var backendActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "pifan_agent",
	Name:      "hal_backend",
	Help:      "Active hardware backend",
}, []string{"backend"})

var edgeEventCount = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "pifan_agent",
	Name:      "tachometer_edge_events_total",
	Help:      "Tachometer edges delivered by the hardware backend",
})

var pwmWriteErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pifan_agent",
	Name:      "pwm_write_errors_total",
	Help:      "Failed writes to the PWM output",
}, []string{"backend"})

var pwmOutputValue = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "pifan_agent",
	Name:      "pwm_output_value",
	Help:      "Last value written to the PWM hardware, in the backend's native unit",
})
