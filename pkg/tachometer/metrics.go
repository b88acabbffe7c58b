package tachometer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pulsesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pifan_agent",
		Name:      "tachometer_pulses_total",
		Help:      "Number of tachometer edges seen since the agent started",
	})

	fanRpm = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pifan_agent",
		Name:      "fan_rpm",
		Help:      "Fan speed in revolutions per minute over the last sampling window",
	})

	fanRpmAverage = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pifan_agent",
		Name:      "fan_rpm_average",
		Help:      "Fan speed in revolutions per minute averaged over the rolling window",
	})
)
