package internal_agent

import (
	"github.com/compute-blade-community/pifan-agent/pkg/fancontroller"
	"github.com/compute-blade-community/pifan-agent/pkg/hal"
)

type Option func(*Agent)

// WithHal uses fanHal instead of creating one from Config.Hal.
func WithHal(fanHal hal.FanHal) Option {
	return func(a *Agent) {
		a.hal = fanHal
	}
}

// WithClock replaces wall-clock time in the control loop and the tachometer sampler.
func WithClock(clock fancontroller.Clock) Option {
	return func(a *Agent) {
		a.clock = clock
	}
}
