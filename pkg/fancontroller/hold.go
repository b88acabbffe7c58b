package fancontroller

import (
	"sync"
	"time"
)

// Decision is the effective target produced by HoldState for one control iteration.
type Decision struct {
	// Target is the duty cycle to ramp towards, in [0,1].
	Target float64
	// HoldActive is set while the full-speed hold window forces Target to 1.
	HoldActive bool
	// Cutoff is set once the shutdown delay has elapsed; the fan must be set to 0 without ramping.
	Cutoff bool
}

// HoldSnapshot is a read-only view of the hold window and shutdown timer.
type HoldSnapshot struct {
	HoldActive    bool
	HoldUntil     time.Time
	ShutdownSince time.Time
}

// HoldState tracks the full-speed hold window and the shutdown timer.
//
// Every update at or above TempMax pushes the hold expiry to now+HoldDuration, so the hold
// lasts as long as the temperature stays high and only counts down once it drops.
// The shutdown timer starts on the first update below TempMin and is cleared by any update
// at or above TempMin.
type HoldState struct {
	mu            sync.Mutex
	config        Config
	holdUntil     time.Time
	shutdownSince time.Time
	lastUpdate    time.Time
}

// NewHoldState creates a HoldState with no active hold and no running shutdown timer.
func NewHoldState(config Config) *HoldState {
	return &HoldState{config: config}
}

// Update folds a temperature sample taken at now into the state and returns the effective target.
// planned is the planner output for the same sample.
func (h *HoldState) Update(now time.Time, temperature int, planned float64) Decision {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastUpdate = now

	if temperature >= h.config.TempMax {
		h.holdUntil = now.Add(h.config.HoldDuration)
	}

	if temperature < h.config.TempMin {
		if h.shutdownSince.IsZero() {
			h.shutdownSince = now
		}
	} else {
		h.shutdownSince = time.Time{}
	}

	// The hold wins over the cutoff and over the planner.
	if h.holdActive(now) {
		return Decision{Target: 1, HoldActive: true}
	}

	if !h.shutdownSince.IsZero() && now.Sub(h.shutdownSince) >= h.config.ShutdownDelay {
		return Decision{Target: 0, Cutoff: true}
	}

	return Decision{Target: Clamp(planned)}
}

// Snapshot returns the hold window and shutdown timer as of the last update.
func (h *HoldState) Snapshot() HoldSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	return HoldSnapshot{
		HoldActive:    h.holdActive(h.lastUpdate),
		HoldUntil:     h.holdUntil,
		ShutdownSince: h.shutdownSince,
	}
}

func (h *HoldState) holdActive(now time.Time) bool {
	return !h.holdUntil.IsZero() && now.Before(h.holdUntil)
}
