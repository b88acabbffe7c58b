// Package agent holds the published state of a running pifan-agent and a
// client to read it.
package agent

import "time"

// StatusResponse is the document served on GET /status.
type StatusResponse struct {
	Backend string `json:"backend" yaml:"backend"`

	// Temperature is the control temperature in whole degrees Celsius. 0
	// means the sensor could not be read.
	Temperature           int                `json:"temperature" yaml:"temperature"`
	AuxiliaryTemperatures map[string]float64 `json:"auxiliary_temperatures,omitempty" yaml:"auxiliary_temperatures,omitempty"`

	RPM        int     `json:"rpm" yaml:"rpm"`
	AverageRPM float64 `json:"average_rpm" yaml:"average_rpm"`

	TargetDutyCycle float64 `json:"target_duty_cycle" yaml:"target_duty_cycle"`
	DutyCycle       float64 `json:"duty_cycle" yaml:"duty_cycle"`

	HoldActive           bool       `json:"hold_active" yaml:"hold_active"`
	HoldUntil            *time.Time `json:"hold_until,omitempty" yaml:"hold_until,omitempty"`
	ShutdownPendingSince *time.Time `json:"shutdown_pending_since,omitempty" yaml:"shutdown_pending_since,omitempty"`
	Cutoff               bool       `json:"cutoff" yaml:"cutoff"`

	Thresholds Thresholds `json:"thresholds" yaml:"thresholds"`
	UpdatedAt  time.Time  `json:"updated_at" yaml:"updated_at"`
}

// Thresholds are the static control parameters the agent was started with.
type Thresholds struct {
	TempMin       int           `json:"temp_min" yaml:"temp_min"`
	TempMax       int           `json:"temp_max" yaml:"temp_max"`
	HoldDuration  time.Duration `json:"hold_duration" yaml:"hold_duration"`
	ShutdownDelay time.Duration `json:"shutdown_delay" yaml:"shutdown_delay"`
	PollInterval  time.Duration `json:"poll_interval" yaml:"poll_interval"`
}

// DutyCyclePercent is DutyCycle scaled to 0-100.
func (s StatusResponse) DutyCyclePercent() int {
	return int(s.DutyCycle*100 + 0.5)
}

// TimeOrNil returns nil for the zero time so optional fields are omitted.
func TimeOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
