package hal

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpts_Validate(t *testing.T) {
	t.Parallel()

	assert.Nil(t, DefaultOpts().Validate())

	testCases := []struct {
		name     string
		mutate   func(*Opts)
		expected string
	}{
		{"unknown backend", func(o *Opts) { o.Backend = "lgpio" }, `unknown hal backend "lgpio"`},
		{"zero frequency", func(o *Opts) { o.PwmFrequencyHz = 0 }, "pwm_frequency_hz must be positive"},
		{"empty thermal zone", func(o *Opts) { o.ThermalZonePath = "" }, "thermal_zone_path must not be empty"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			opts := DefaultOpts()
			tc.mutate(&opts)

			err := opts.Validate()
			require.NotNil(t, err)
			assert.EqualError(t, err, tc.expected)
		})
	}
}

func TestDetectBackend(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		compatible string
		expected   Backend
		expectErr  bool
	}{
		{"pi 5", "raspberrypi,5-model-b\x00brcm,bcm2712\x00", BackendGpiod, false},
		{"cm5", "raspberrypi,5-compute-module\x00brcm,bcm2712\x00", BackendGpiod, false},
		{"pi 4", "raspberrypi,4-model-b\x00brcm,bcm2711\x00", BackendPeriph, false},
		{"radxa cm5", "radxa,cm5\x00rockchip,rk3588s\x00", BackendHwmon, false},
		{"pi 3", "raspberrypi,3-model-b\x00brcm,bcm2837\x00", "", true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			backend, err := DetectBackend([]byte(tc.compatible))
			if tc.expectErr {
				assert.ErrorContains(t, err, "unsupported platform: raspberrypi,3-model-b, brcm,bcm2837")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, backend)
		})
	}
}

func TestNewHal_Simulated(t *testing.T) {
	t.Parallel()

	opts := DefaultOpts()
	opts.Backend = BackendSimulated

	fanHal, err := NewHal(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, fanHal.Close()) })

	assert.IsType(t, &Simulated{}, fanHal)

	milli, err := fanHal.ReadMilliCelsius()
	require.NoError(t, err)
	assert.Equal(t, DefaultSimulatedMilliCelsius, milli)
}

func TestNewHal_RejectsInvalidOpts(t *testing.T) {
	t.Parallel()

	opts := DefaultOpts()
	opts.Backend = "unknown"

	_, err := NewHal(context.Background(), opts)
	assert.Error(t, err)
}

func TestEdgeDispatcher(t *testing.T) {
	t.Parallel()

	var d edgeDispatcher
	d.fire()

	var count atomic.Int32
	d.RegisterEdgeCallback(func() { count.Add(1) })
	d.fire()
	d.fire()
	assert.Equal(t, int32(2), count.Load())

	d.RegisterEdgeCallback(nil)
	d.fire()
	assert.Equal(t, int32(2), count.Load())
}

func TestSoftPwmHighTime(t *testing.T) {
	t.Parallel()

	period := 40 * time.Millisecond

	assert.Equal(t, time.Duration(0), softPwmHighTime(-1, period))
	assert.Equal(t, time.Duration(0), softPwmHighTime(0, period))
	assert.Equal(t, 10*time.Millisecond, softPwmHighTime(0.25, period))
	assert.Equal(t, period, softPwmHighTime(1, period))
	assert.Equal(t, period, softPwmHighTime(2, period))
}
