package fancontroller_test

import (
	"context"
	"errors"
	"sync"
	"time"
)

// fakeClock advances only when Sleep is called.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	return nil
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Sleeps() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sleeps)
}

// recordingOutput stores every duty cycle written to it.
type recordingOutput struct {
	mu      sync.Mutex
	applied []float64
	err     error
}

func (o *recordingOutput) SetDutyCycle(value float64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.applied = append(o.applied, value)
	return nil
}

func (o *recordingOutput) Applied() []float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]float64(nil), o.applied...)
}

func (o *recordingOutput) Last() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.applied) == 0 {
		return 0
	}
	return o.applied[len(o.applied)-1]
}

func (o *recordingOutput) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.applied = nil
}

// staticSensor returns a fixed reading, or an error when failing is set.
type staticSensor struct {
	mu      sync.Mutex
	milli   int
	failing bool
}

func (s *staticSensor) ReadMilliCelsius() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return 0, errors.New("sensor unavailable")
	}
	return s.milli, nil
}

func (s *staticSensor) SetCelsius(temp int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.milli = temp * 1000
	s.failing = false
}

func (s *staticSensor) Fail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = true
}
