package models

import "time"

// Probe types supported per channel.
const (
	ProbeFood    = "food"
	ProbeAmbient = "ambient"
	ProbeSurface = "surface"
)

// Connectivity states reported in a device status snapshot.
const (
	ConnOnline   = "online"
	ConnOffline  = "offline"
	ConnDegraded = "degraded"
)

// Device is the read-through copy of a registry entry. Live values
// (temperature, battery, signal) never live here; they live in the cache.
type Device struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Simulated bool      `json:"simulated"`
	Address   string    `json:"address,omitempty"` // remote poll URL, empty for simulated
	Channels  []Channel `json:"channels"`
	CreatedAt time.Time `json:"created_at"`
}

// Channel is one probe on a device.
type Channel struct {
	ID        string `json:"id"`
	DeviceID  string `json:"device_id"`
	Name      string `json:"name"`
	ProbeType string `json:"probe_type"` // food | ambient | surface
	Unit      string `json:"unit"`       // °F
}

// DeviceStatus is the battery/signal/connectivity snapshot for one device.
type DeviceStatus struct {
	DeviceID         string    `json:"device_id"`
	BatteryPct       int       `json:"battery"`
	SignalPct        int       `json:"signal"`
	ConnectionStatus string    `json:"connection_status"` // online | offline | degraded
	LastSeen         time.Time `json:"last_seen"`
}
