package hal

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/compute-blade-community/pifan-agent/pkg/log"
	"go.uber.org/zap"
)

const (
	DefaultSimulatedMilliCelsius        = 50000
	DefaultSimulatedMaxRPM              = 5000
	DefaultSimulatedPulsesPerRevolution = 2

	simulatedTick = 10 * time.Millisecond
)

type SimulatedOpts struct {
	// TemperatureFile, when set, is read like a thermal zone so the
	// temperature can be changed from outside the process.
	TemperatureFile     string `mapstructure:"temperature_file"`
	MilliCelsius        int    `mapstructure:"milli_celsius"`
	MaxRPM              int    `mapstructure:"max_rpm"`
	PulsesPerRevolution int    `mapstructure:"pulses_per_revolution"`
}

func DefaultSimulatedOpts() SimulatedOpts {
	return SimulatedOpts{
		MilliCelsius:        DefaultSimulatedMilliCelsius,
		MaxRPM:              DefaultSimulatedMaxRPM,
		PulsesPerRevolution: DefaultSimulatedPulsesPerRevolution,
	}
}

// Simulated is a FanHal without hardware. The fan spins at duty * MaxRPM and
// emits PulsesPerRevolution edges per revolution.
type Simulated struct {
	edgeDispatcher

	opts         SimulatedOpts
	milliCelsius atomic.Int64
	duty         atomic.Uint64

	// fractional pulses carried between ticks; owned by Run
	carry float64
}

var _ FanHal = &Simulated{}

func NewSimulated(opts SimulatedOpts) *Simulated {
	s := &Simulated{opts: opts}
	s.milliCelsius.Store(int64(opts.MilliCelsius))
	return s
}

func (s *Simulated) ReadMilliCelsius() (int, error) {
	if s.opts.TemperatureFile != "" {
		return readIntFile(s.opts.TemperatureFile)
	}
	return int(s.milliCelsius.Load()), nil
}

// SetMilliCelsius changes the reported temperature when no TemperatureFile is configured.
func (s *Simulated) SetMilliCelsius(milli int) {
	s.milliCelsius.Store(int64(milli))
}

func (s *Simulated) SetDutyCycle(value float64) error {
	value = math.Max(0, math.Min(1, value))
	s.duty.Store(math.Float64bits(value))
	pwmOutputValue.Set(value)
	return nil
}

func (s *Simulated) DutyCycle() float64 {
	return math.Float64frombits(s.duty.Load())
}

func (s *Simulated) Run(ctx context.Context) error {
	backendActive.WithLabelValues(string(BackendSimulated)).Set(1)
	log.FromContext(ctx).Info("running simulated fan", zap.Int("max_rpm", s.opts.MaxRPM))

	ticker := time.NewTicker(simulatedTick)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			s.advance(now.Sub(last))
			last = now
		}
	}
}

// advance emits the edges the fan produced during d and returns their count.
func (s *Simulated) advance(d time.Duration) int {
	perSecond := s.DutyCycle() * float64(s.opts.MaxRPM) * float64(s.opts.PulsesPerRevolution) / 60
	s.carry += perSecond * d.Seconds()

	n := int(s.carry)
	s.carry -= float64(n)
	for i := 0; i < n; i++ {
		s.fire()
	}
	return n
}

func (s *Simulated) Backend() Backend {
	return BackendSimulated
}

func (s *Simulated) Close() error {
	backendActive.WithLabelValues(string(BackendSimulated)).Set(0)
	return nil
}
