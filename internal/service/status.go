package service

import (
	"math/rand"
	"sync"
	"time"

	"grillstream/internal/models"
)

// Battery/signal bounds for the simulated transport.
const (
	batteryFull     = 100
	batteryDrainMax = 1  // max % lost per status tick
	signalBandLow   = 40 // normal fluctuation band
	signalBandHigh  = 95
	signalJitter    = 6
)

// StatusEngine advances a device's battery/signal on a slower clock than
// the temperature poll. Battery decreases monotonically with occasional
// step-resets (recharge/swap); signal fluctuates within a band with a
// low-probability transient drop below the connectivity threshold.
type StatusEngine struct {
	signalFloor      int
	lowSignalProb    float64
	batteryResetProb float64

	mu  sync.Mutex
	rng *rand.Rand
}

func NewStatusEngine(signalFloor int, lowSignalProb, batteryResetProb float64) *StatusEngine {
	return &StatusEngine{
		signalFloor:      signalFloor,
		lowSignalProb:    lowSignalProb,
		batteryResetProb: batteryResetProb,
		rng:              rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Seed re-seeds the random source. Test hook.
func (s *StatusEngine) Seed(seed int64) {
	s.mu.Lock()
	s.rng = rand.New(rand.NewSource(seed))
	s.mu.Unlock()
}

// Advance produces the next status snapshot from the previous one. A zero
// previous snapshot initializes a healthy device.
func (s *StatusEngine) Advance(prev models.DeviceStatus, deviceID string, now time.Time) models.DeviceStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := prev
	st.DeviceID = deviceID
	st.LastSeen = now

	if prev.LastSeen.IsZero() {
		st.BatteryPct = batteryFull
		st.SignalPct = signalBandHigh
		st.ConnectionStatus = models.ConnOnline
		return st
	}

	// battery: monotonic drain, rare step-reset
	if s.rng.Float64() < s.batteryResetProb {
		st.BatteryPct = batteryFull
	} else {
		st.BatteryPct -= s.rng.Intn(batteryDrainMax + 1)
		if st.BatteryPct < 0 {
			st.BatteryPct = 0
		}
	}

	// signal: band fluctuation with a transient-drop chance
	if s.rng.Float64() < s.lowSignalProb {
		st.SignalPct = s.rng.Intn(s.signalFloor) // below threshold for this tick only
	} else {
		st.SignalPct += s.rng.Intn(2*signalJitter+1) - signalJitter
		if st.SignalPct < signalBandLow {
			st.SignalPct = signalBandLow
		}
		if st.SignalPct > signalBandHigh {
			st.SignalPct = signalBandHigh
		}
	}

	if st.SignalPct < s.signalFloor {
		st.ConnectionStatus = models.ConnOffline
	} else {
		st.ConnectionStatus = models.ConnOnline
	}
	return st
}
