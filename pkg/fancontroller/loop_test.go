package fancontroller_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/compute-blade-community/pifan-agent/pkg/fancontroller"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoop(t *testing.T, config fancontroller.Config) (*fancontroller.Loop, *staticSensor, *recordingOutput, *fakeClock) {
	t.Helper()
	sensor := &staticSensor{}
	output := &recordingOutput{}
	clock := newFakeClock()

	loop, err := fancontroller.NewLoop(config, sensor, output, clock)
	require.Nil(t, err)
	return loop, sensor, output, clock
}

func TestLoop_TickRampsToPlannedTarget(t *testing.T) {
	t.Parallel()

	loop, sensor, output, _ := newTestLoop(t, fancontroller.DefaultConfig())
	sensor.SetCelsius(60)

	require.NoError(t, loop.Tick(context.Background()))

	assert.Equal(t, 0.5, output.Last())
	assertBoundedSteps(t, 0, output.Applied(), fancontroller.DefaultRampMaxChange)

	status := loop.Status()
	assert.Equal(t, 60, status.Temperature)
	assert.Equal(t, 0.5, status.Target)
	assert.Equal(t, 0.5, status.DutyCycle)
	assert.False(t, status.HoldActive)
	assert.False(t, status.Cutoff)
}

func TestLoop_TruncatesMilliDegrees(t *testing.T) {
	t.Parallel()

	loop, sensor, _, _ := newTestLoop(t, fancontroller.DefaultConfig())
	sensor.mu.Lock()
	sensor.milli = 74999
	sensor.mu.Unlock()

	require.NoError(t, loop.Tick(context.Background()))
	assert.Equal(t, 74, loop.Status().Temperature)
	assert.False(t, loop.Status().HoldActive)
}

func TestLoop_SensorFailureIsTreatedAsCold(t *testing.T) {
	t.Parallel()

	loop, sensor, output, clock := newTestLoop(t, fancontroller.DefaultConfig())
	sensor.SetCelsius(60)
	require.NoError(t, loop.Tick(context.Background()))
	require.Equal(t, 0.5, output.Last())

	// A failing sensor reads as 0°C: the fan ramps down but is not cut off.
	sensor.Fail()
	require.NoError(t, loop.Tick(context.Background()))
	assert.Equal(t, 0, loop.Status().Temperature)
	assert.Equal(t, 0.0, output.Last())
	assert.False(t, loop.Status().Cutoff)
	assert.False(t, loop.Status().ShutdownSince.IsZero())

	// Only a sustained failure reaches the cutoff.
	clock.Advance(fancontroller.DefaultShutdownDelay)
	require.NoError(t, loop.Tick(context.Background()))
	assert.True(t, loop.Status().Cutoff)
}

func TestLoop_CutoffSkipsRamp(t *testing.T) {
	t.Parallel()

	config := fancontroller.DefaultConfig()
	loop, sensor, output, clock := newTestLoop(t, config)

	sensor.SetCelsius(30)
	require.NoError(t, loop.Tick(context.Background()))
	clock.Advance(config.ShutdownDelay)

	output.Reset()
	sleepsBefore := clock.Sleeps()
	require.NoError(t, loop.Tick(context.Background()))

	assert.Equal(t, []float64{0}, output.Applied())
	assert.Equal(t, sleepsBefore, clock.Sleeps(), "cutoff must not ramp")
	assert.True(t, loop.Status().Cutoff)
}

func TestLoop_HoldKeepsFullSpeedAfterSpike(t *testing.T) {
	t.Parallel()

	config := fancontroller.DefaultConfig()
	loop, sensor, output, clock := newTestLoop(t, config)
	start := clock.Now()

	sensor.SetCelsius(76)
	require.NoError(t, loop.Tick(context.Background()))
	assert.Equal(t, 1.0, output.Last())

	sensor.SetCelsius(20)
	for clock.Now().Before(start.Add(config.HoldDuration)) {
		require.NoError(t, loop.Tick(context.Background()))
		assert.Equal(t, 1.0, output.Last())
		assert.True(t, loop.Status().HoldActive)
		require.NoError(t, clock.Sleep(context.Background(), config.PollInterval))
	}

	require.NoError(t, loop.Tick(context.Background()))
	assert.False(t, loop.Status().HoldActive)
	assert.Equal(t, 0.0, output.Last())
}

func TestLoop_OutputErrorsDoNotStopTheLoop(t *testing.T) {
	t.Parallel()

	loop, sensor, output, _ := newTestLoop(t, fancontroller.DefaultConfig())
	sensor.SetCelsius(70)
	output.err = errors.New("pwm write failed")

	assert.NoError(t, loop.Tick(context.Background()))
	assert.Equal(t, 0.0, loop.Status().DutyCycle)
}

func TestLoop_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	config := fancontroller.DefaultConfig()
	config.PollInterval = time.Millisecond
	config.Ramp.Delay = 0

	sensor := &staticSensor{}
	sensor.SetCelsius(50)
	output := &recordingOutput{}

	loop, herr := fancontroller.NewLoop(config, sensor, output, fancontroller.RealClock())
	require.Nil(t, herr)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := loop.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.InDelta(t, 1.0/6, output.Last(), 1e-9)
}

func TestNewLoop_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	config := fancontroller.DefaultConfig()
	config.TempMax = config.TempMin

	_, err := fancontroller.NewLoop(config, &staticSensor{}, &recordingOutput{}, newFakeClock())
	require.NotNil(t, err)
}
