package models

import (
	"errors"
	"time"
)

// Rule kinds.
const (
	AlertHighTemp   = "high_temp"
	AlertLowTemp    = "low_temp"
	AlertDisconnect = "disconnect"
	AlertLowBattery = "low_battery"
)

// AlertState is the per-rule-instance state machine position.
type AlertState string

const (
	AlertNone     AlertState = "none"
	AlertPending  AlertState = "pending"
	AlertFiring   AlertState = "firing"
	AlertResolved AlertState = "resolved"
)

// AlertRule is a threshold rule scoped to a channel (temperature kinds) or
// a whole device (disconnect/battery kinds).
type AlertRule struct {
	ID         string        `json:"id"`
	DeviceID   string        `json:"device_id"`
	ChannelID  string        `json:"channel_id,omitempty"` // empty for device-scoped kinds
	Kind       string        `json:"kind"`
	ThresholdF float64       `json:"threshold"` // °F for temp kinds, % for battery, unused for disconnect
	Debounce   time.Duration `json:"debounce"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Validate checks rule invariants. Malformed rules are rejected at
// creation, never at evaluation time.
func (r AlertRule) Validate() error {
	if r.ID == "" {
		return errors.New("alert rule: empty id")
	}
	if r.DeviceID == "" {
		return errors.New("alert rule: empty device id")
	}
	switch r.Kind {
	case AlertHighTemp, AlertLowTemp:
		if r.ChannelID == "" {
			return errors.New("alert rule: temperature kinds require a channel id")
		}
	case AlertDisconnect, AlertLowBattery:
		// device-scoped; channel must stay empty
		if r.ChannelID != "" {
			return errors.New("alert rule: device kinds must not name a channel")
		}
	default:
		return errors.New("alert rule: unknown kind " + r.Kind)
	}
	if r.Debounce < 0 {
		return errors.New("alert rule: negative debounce")
	}
	return nil
}

// AlertInstance tracks one rule's live state: the position in the state
// machine plus the two timestamps driving debounce and hysteresis.
type AlertInstance struct {
	Rule            AlertRule  `json:"rule"`
	State           AlertState `json:"state"`
	FirstObservedAt time.Time  `json:"first_observed_at"`
	LastObservedAt  time.Time  `json:"last_observed_at"`
	LastValue       float64    `json:"last_value"`
}

// AlertTransition is an externally observable state change. Only firing and
// resolved transitions are emitted.
type AlertTransition struct {
	DeviceID  string     `json:"device_id"`
	ChannelID string     `json:"channel_id,omitempty"`
	RuleID    string     `json:"rule_id"`
	Kind      string     `json:"kind"`
	State     AlertState `json:"state"`
	Value     float64    `json:"value"`
	At        time.Time  `json:"at"`
}
