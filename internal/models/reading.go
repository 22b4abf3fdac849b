package models

import "time"

// UnitFahrenheit is the only unit the built-in profiles produce.
const UnitFahrenheit = "F"

// Reading is a single temperature sample for one channel. Immutable once
// produced; the unit of data flowing through the whole pipeline.
type Reading struct {
	DeviceID    string    `json:"device_id"`
	ChannelID   string    `json:"channel_id"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Unit        string    `json:"unit"`
}

// ChannelSnapshot is the per-channel slice of a device snapshot.
type ChannelSnapshot struct {
	ChannelID   string  `json:"channel_id"`
	Temperature float64 `json:"temperature"`
	Unit        string  `json:"unit"`
	Connected   bool    `json:"connected"`
}

// Snapshot is the current cached state for a device, sent to a subscriber
// on (re)subscribe and on request.
type Snapshot struct {
	DeviceID  string            `json:"device_id"`
	Timestamp time.Time         `json:"timestamp"`
	Channels  []ChannelSnapshot `json:"channels"`
	Status    DeviceStatus      `json:"status"`
	Alerts    []AlertInstance   `json:"alerts,omitempty"`
}

// Rollup holds pre-computed recent aggregates for one channel.
type Rollup struct {
	ChannelID string    `json:"channel_id"`
	MinF      float64   `json:"min_f"`
	MaxF      float64   `json:"max_f"`
	AvgF      float64   `json:"avg_f"`
	Samples   int       `json:"samples"`
	UpdatedAt time.Time `json:"updated_at"`
}
