package models

import "time"

// Event kinds a session can absorb.
const (
	EventLidOpen   = "LID_OPEN"
	EventFuelAdd   = "FUEL_ADD"
	EventProbeFlip = "PROBE_FLIP"
	EventBasting   = "BASTING"
)

// SessionEvent is a one-shot perturbation applied to a session's
// trajectory. MagnitudeF is signed: negative dips, positive boosts.
type SessionEvent struct {
	ID         string        `json:"id"`
	Kind       string        `json:"kind"`
	MagnitudeF float64       `json:"magnitude_f"`
	Decay      time.Duration `json:"decay"`
	AppliedAt  time.Time     `json:"applied_at"`
}

// CookingSession is a live instantiation of a profile against one channel.
// All mutable fields are owned by the session engine; nothing else writes
// them.
type CookingSession struct {
	ID        string `json:"id"`
	DeviceID  string `json:"device_id"`
	ChannelID string `json:"channel_id"`
	ProfileID string `json:"profile_id"`

	StartedAt      time.Time `json:"started_at"`
	PhaseIndex     int       `json:"phase_index"`
	PhaseStartedAt time.Time `json:"phase_started_at"`

	// PhaseRateFPerMin is rolled once on phase entry, not per tick.
	PhaseRateFPerMin float64 `json:"-"`

	LastTempF     float64   `json:"last_temp_f"`
	LastReadingAt time.Time `json:"last_reading_at"`

	Events []SessionEvent `json:"events,omitempty"`

	Completed bool `json:"completed"`
}
