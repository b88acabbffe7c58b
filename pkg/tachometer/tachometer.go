package tachometer

import (
	"math"
	"sync/atomic"
)

// Counter accumulates tachometer pulses between samples.
// OnPulse is called from the edge-event context, TakeAndReset from the sampling context.
type Counter struct {
	pulses atomic.Uint64
}

// NewCounter returns a Counter starting at zero.
func NewCounter() *Counter {
	return &Counter{}
}

// OnPulse records one tachometer edge.
func (c *Counter) OnPulse() {
	c.pulses.Add(1)
	pulsesTotal.Inc()
}

// TakeAndReset returns the pulses counted since the previous call and resets the count to zero.
func (c *Counter) TakeAndReset() uint64 {
	return c.pulses.Swap(0)
}

// Estimate converts pulses counted over elapsedSeconds into revolutions per minute, floored.
// Non-positive intervals or pulse ratios yield 0.
func Estimate(pulses uint64, elapsedSeconds float64, pulsesPerRevolution int) int {
	if elapsedSeconds <= 0 || pulsesPerRevolution <= 0 {
		return 0
	}

	revolutions := float64(pulses) / float64(pulsesPerRevolution)
	return int(math.Floor(revolutions * (60 / elapsedSeconds)))
}
