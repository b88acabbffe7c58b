package internal_agent_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	internal_agent "github.com/compute-blade-community/pifan-agent/internal/agent"
	"github.com/compute-blade-community/pifan-agent/pkg/agent"
	"github.com/compute-blade-community/pifan-agent/pkg/hal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) internal_agent.Config {
	t.Helper()

	config := internal_agent.DefaultConfig()
	config.Listen.Http = "127.0.0.1:0"
	config.Hal.Backend = hal.BackendSimulated
	config.Hal.AuxiliarySensors = nil
	config.Fan.PollInterval = 10 * time.Millisecond
	config.Fan.Ramp.Delay = 0
	config.Tachometer.SampleInterval = 50 * time.Millisecond
	return config
}

func newTestAgent(t *testing.T, milliCelsius int) (*internal_agent.Agent, *hal.Simulated) {
	t.Helper()

	sim := hal.NewSimulated(hal.DefaultSimulatedOpts())
	sim.SetMilliCelsius(milliCelsius)

	a, err := internal_agent.NewAgent(context.Background(), testConfig(t), internal_agent.WithHal(sim))
	require.NoError(t, err)
	return a, sim
}

func getStatus(t *testing.T, handler http.Handler) agent.StatusResponse {
	t.Helper()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, agent.StatusPath, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var status agent.StatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	return status
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	assert.Nil(t, internal_agent.DefaultConfig().Validate())

	testCases := []struct {
		name     string
		mutate   func(*internal_agent.Config)
		expected string
	}{
		{"empty listen address", func(c *internal_agent.Config) { c.Listen.Http = "" }, "no listen address provided"},
		{"unknown backend", func(c *internal_agent.Config) { c.Hal.Backend = "gpiozero" }, `unknown hal backend "gpiozero"`},
		{"inverted thresholds", func(c *internal_agent.Config) { c.Fan.TempMin = 80 }, "temp_min must be lower than temp_max"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			config := internal_agent.DefaultConfig()
			tc.mutate(&config)

			err := config.Validate()
			require.NotNil(t, err)
			assert.EqualError(t, err, tc.expected)
		})
	}
}

func TestNewAgent_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	config := testConfig(t)
	config.Tachometer.PulsesPerRevolution = 0

	sim := hal.NewSimulated(hal.DefaultSimulatedOpts())
	_, err := internal_agent.NewAgent(context.Background(), config, internal_agent.WithHal(sim))
	assert.ErrorContains(t, err, "pulses_per_revolution must be positive")
}

func TestAgent_StatusBeforeFirstIteration(t *testing.T) {
	t.Parallel()

	a, _ := newTestAgent(t, 60000)

	status := getStatus(t, a.Handler())
	assert.Equal(t, "simulated", status.Backend)
	assert.Equal(t, 0, status.RPM)
	assert.Equal(t, 0.0, status.DutyCycle)
	assert.Nil(t, status.HoldUntil)
	assert.Nil(t, status.ShutdownPendingSince)
	assert.Equal(t, agent.Thresholds{
		TempMin:       45,
		TempMax:       75,
		HoldDuration:  10 * time.Second,
		ShutdownDelay: 30 * time.Second,
		PollInterval:  10 * time.Millisecond,
	}, status.Thresholds)
}

func TestAgent_RunDrivesFanAndPublishesState(t *testing.T) {
	t.Parallel()

	a, sim := newTestAgent(t, 60000)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	assert.Eventually(t, func() bool {
		status := a.Status()
		return status.Temperature == 60 && status.DutyCycle == 0.5 && status.RPM > 0
	}, 5*time.Second, 20*time.Millisecond)

	assert.Equal(t, 0.5, sim.DutyCycle())

	status := getStatus(t, a.Handler())
	assert.Equal(t, 0.5, status.TargetDutyCycle)
	assert.Equal(t, 50, status.DutyCyclePercent())
	assert.False(t, status.HoldActive)
	assert.False(t, status.Cutoff)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	require.NoError(t, a.GracefulStop(context.Background()))
	assert.Equal(t, 1.0, sim.DutyCycle())
}

// slowSensorHal delays every temperature read so a control loop iteration is
// still in flight when the agent is asked to stop.
type slowSensorHal struct {
	*hal.Simulated
	delay time.Duration
}

func (h *slowSensorHal) ReadMilliCelsius() (int, error) {
	time.Sleep(h.delay)
	return h.Simulated.ReadMilliCelsius()
}

func TestAgent_GracefulStopWaitsForRunningIteration(t *testing.T) {
	t.Parallel()

	sim := hal.NewSimulated(hal.DefaultSimulatedOpts())
	sim.SetMilliCelsius(60000)
	slow := &slowSensorHal{Simulated: sim, delay: 100 * time.Millisecond}

	a, err := internal_agent.NewAgent(context.Background(), testConfig(t), internal_agent.WithHal(slow))
	require.NoError(t, err)

	ctx, cancel := context.WithCancelCause(context.Background())
	a.RunAsync(ctx, cancel)

	assert.Eventually(t, func() bool {
		return sim.DutyCycle() > 0
	}, 5*time.Second, 5*time.Millisecond)

	// Stop in the middle of a temperature read, the way main does on SIGTERM.
	time.Sleep(50 * time.Millisecond)
	cancel(context.Canceled)

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelStop()
	require.NoError(t, a.GracefulStop(stopCtx))
	assert.Equal(t, 1.0, sim.DutyCycle())

	// Nothing may touch the output once the safe setting is applied.
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, 1.0, sim.DutyCycle())
}

func TestAgent_HotSpikeHoldsFullSpeed(t *testing.T) {
	t.Parallel()

	a, sim := newTestAgent(t, 80000)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = a.Run(ctx) }()

	assert.Eventually(t, func() bool {
		return a.Status().DutyCycle == 1
	}, 5*time.Second, 20*time.Millisecond)

	sim.SetMilliCelsius(50000)

	assert.Eventually(t, func() bool {
		return a.Status().Temperature == 50
	}, 5*time.Second, 10*time.Millisecond)

	status := a.Status()
	assert.True(t, status.HoldActive)
	assert.Equal(t, 1.0, status.TargetDutyCycle)
	require.NotNil(t, status.HoldUntil)
}

func TestAgent_Handler(t *testing.T) {
	t.Parallel()

	a, _ := newTestAgent(t, 40000)
	handler := a.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, agent.StatusPath, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodGet, rec.Header().Get("Allow"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, agent.HealthPath, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, agent.MetricsPath, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "pifan_agent_"))
}

func TestAgent_ServesClient(t *testing.T) {
	t.Parallel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	config := testConfig(t)
	config.Listen.Http = addr

	sim := hal.NewSimulated(hal.DefaultSimulatedOpts())
	sim.SetMilliCelsius(75000)
	a, err := internal_agent.NewAgent(context.Background(), config, internal_agent.WithHal(sim))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = a.Run(ctx) }()

	client := agent.NewClient(addr, time.Second)
	assert.Eventually(t, func() bool {
		return client.Healthy(context.Background()) == nil
	}, 5*time.Second, 20*time.Millisecond)

	assert.Eventually(t, func() bool {
		status, err := client.Status(context.Background())
		return err == nil && status.Temperature == 75 && status.HoldActive
	}, 5*time.Second, 20*time.Millisecond)
}

func TestAgent_ListenAddressInUse(t *testing.T) {
	t.Parallel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	config := testConfig(t)
	config.Listen.Http = listener.Addr().String()

	sim := hal.NewSimulated(hal.DefaultSimulatedOpts())
	a, err := internal_agent.NewAgent(context.Background(), config, internal_agent.WithHal(sim))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	err = a.Run(ctx)
	assert.ErrorContains(t, err, "failed to create http listener")
}
