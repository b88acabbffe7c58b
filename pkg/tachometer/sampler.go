package tachometer

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/asecurityteam/rolling"
	"github.com/compute-blade-community/pifan-agent/pkg/log"
	"github.com/sierrasoftworks/humane-errors-go"
	"go.uber.org/zap"
)

const (
	DefaultPulsesPerRevolution = 2
	DefaultSampleInterval      = 1 * time.Second
	DefaultRollingWindow       = 5
)

// Config describes the tachometer signal and how often it is sampled.
type Config struct {
	PulsesPerRevolution int           `mapstructure:"pulses_per_revolution"`
	SampleInterval      time.Duration `mapstructure:"sample_interval"`
	// RollingWindow is the number of samples averaged by AverageRPM.
	RollingWindow int `mapstructure:"rolling_window"`
}

// DefaultConfig returns the configuration for a standard 2-pulse PC fan.
func DefaultConfig() Config {
	return Config{
		PulsesPerRevolution: DefaultPulsesPerRevolution,
		SampleInterval:      DefaultSampleInterval,
		RollingWindow:       DefaultRollingWindow,
	}
}

// Clock provides the sampling timestamps.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Sampler periodically turns the pulse count into an RPM estimate and publishes it.
type Sampler struct {
	counter *Counter
	config  Config
	clock   Clock

	mu         sync.Mutex
	lastSample time.Time
	samples    int
	window     *rolling.PointPolicy

	rpm atomic.Int64
}

// NewSampler creates a Sampler reading from counter. A nil clock uses wall-clock time.
func NewSampler(counter *Counter, config Config, clock Clock) (*Sampler, humane.Error) {
	if config.PulsesPerRevolution <= 0 {
		return nil, humane.New("pulses_per_revolution must be positive",
			"Most PC fans emit 2 pulses per revolution, check your fan's datasheet",
		)
	}
	if config.SampleInterval <= 0 {
		return nil, humane.New("sample_interval must be positive",
			"Use a duration such as 1s",
		)
	}
	if config.RollingWindow <= 0 {
		config.RollingWindow = 1
	}
	if clock == nil {
		clock = realClock{}
	}

	return &Sampler{
		counter:    counter,
		config:     config,
		clock:      clock,
		lastSample: clock.Now(),
		window:     rolling.NewPointPolicy(rolling.NewWindow(config.RollingWindow)),
	}, nil
}

// Sample closes the current window: it takes the pulses counted since the previous sample,
// converts them using the elapsed time and publishes the result.
func (s *Sampler) Sample() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	elapsed := now.Sub(s.lastSample).Seconds()
	s.lastSample = now

	rpm := Estimate(s.counter.TakeAndReset(), elapsed, s.config.PulsesPerRevolution)

	s.window.Append(float64(rpm))
	s.samples++
	s.rpm.Store(int64(rpm))

	fanRpm.Set(float64(rpm))
	fanRpmAverage.Set(s.averageLocked())
	return rpm
}

// RPM returns the most recent estimate. Safe for concurrent use.
func (s *Sampler) RPM() int {
	return int(s.rpm.Load())
}

// AverageRPM returns the mean of the last RollingWindow estimates.
func (s *Sampler) AverageRPM() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.averageLocked()
}

func (s *Sampler) averageLocked() float64 {
	if s.samples == 0 {
		return 0
	}
	// Buckets not yet written hold 0, so only divide by the filled ones.
	filled := min(s.samples, s.config.RollingWindow)
	sum := s.window.Reduce(rolling.Sum)
	if math.IsNaN(sum) {
		return 0
	}
	return sum / float64(filled)
}

// Run samples every SampleInterval until ctx is cancelled.
func (s *Sampler) Run(ctx context.Context) error {
	log.FromContext(ctx).Info("Starting tachometer sampler",
		zap.Int("pulses_per_revolution", s.config.PulsesPerRevolution),
		zap.Duration("sample_interval", s.config.SampleInterval),
	)

	// Discard pulses counted before the first full window.
	s.mu.Lock()
	s.counter.TakeAndReset()
	s.lastSample = s.clock.Now()
	s.mu.Unlock()

	ticker := time.NewTicker(s.config.SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rpm := s.Sample()
			log.FromContext(ctx).Debug("tachometer sample", zap.Int("rpm", rpm))
		}
	}
}
