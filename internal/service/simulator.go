package service

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"grillstream/internal/models"
	"grillstream/internal/profile"

	"github.com/google/uuid"
)

// Sentinel results of advancing a session.
var (
	// ErrSessionComplete marks a session whose profile has no remaining
	// phases. The caller ends the session; Advance never ends it itself.
	ErrSessionComplete = errors.New("session complete")
)

// Default event shapes per kind. Magnitude is signed °F at full strength;
// the contribution decays linearly to zero over the decay window.
var defaultEvents = map[string]models.SessionEvent{
	models.EventLidOpen:   {Kind: models.EventLidOpen, MagnitudeF: -15, Decay: 2 * time.Minute},
	models.EventFuelAdd:   {Kind: models.EventFuelAdd, MagnitudeF: 10, Decay: 5 * time.Minute},
	models.EventProbeFlip: {Kind: models.EventProbeFlip, MagnitudeF: -5, Decay: time.Minute},
	models.EventBasting:   {Kind: models.EventBasting, MagnitudeF: -8, Decay: 90 * time.Second},
}

// randomEventKinds is the pool drawn from for spontaneous injection.
var randomEventKinds = []string{
	models.EventLidOpen,
	models.EventFuelAdd,
	models.EventBasting,
}

// Engine computes the next reading for a session. It is pure simulation
// math plus a seeded random source; all session state lives on the
// CookingSession the caller passes in, so the caller owns locking.
type Engine struct {
	lib       *profile.Library
	eventProb float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewEngine builds an engine over the given profile library.
func NewEngine(lib *profile.Library, eventProb float64) *Engine {
	return &Engine{
		lib:       lib,
		eventProb: eventProb,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Seed re-seeds the random source. Test hook.
func (e *Engine) Seed(seed int64) {
	e.mu.Lock()
	e.rng = rand.New(rand.NewSource(seed))
	e.mu.Unlock()
}

func (e *Engine) uniform(lo, hi float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if hi <= lo {
		return lo
	}
	return lo + e.rng.Float64()*(hi-lo)
}

func (e *Engine) chance(p float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64() < p
}

func (e *Engine) pick(kinds []string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return kinds[e.rng.Intn(len(kinds))]
}

// Advance computes the next reading for the session at time now.
//
// The phase rate was rolled once on phase entry; per tick only a bounded
// noise term is added, so trajectories stay smooth. Active events modify
// the instantaneous reading only: the underlying trajectory keeps its
// pre-event rate and the event contribution decays linearly to zero.
func (e *Engine) Advance(sess *models.CookingSession, now time.Time) (models.Reading, error) {
	if sess.Completed {
		return models.Reading{}, ErrSessionComplete
	}
	prof, err := e.lib.Get(sess.ProfileID)
	if err != nil {
		// sessions are created against a validated profile; a miss here
		// means the session itself is corrupt
		return models.Reading{}, fmt.Errorf("advance session %s: %w", sess.ID, err)
	}
	if sess.PhaseIndex >= len(prof.Phases) {
		sess.Completed = true
		return models.Reading{}, ErrSessionComplete
	}
	ph := prof.Phases[sess.PhaseIndex]

	// First tick: establish the baseline, no time has passed yet.
	if sess.LastReadingAt.IsZero() {
		sess.LastTempF = prof.StartTempF
		sess.PhaseStartedAt = now
		sess.PhaseRateFPerMin = e.uniform(ph.RateMinFPerMin, ph.RateMaxFPerMin)
	} else {
		dt := now.Sub(sess.LastReadingAt)
		if dt < 0 {
			dt = 0
		}
		base := sess.LastTempF + sess.PhaseRateFPerMin*dt.Minutes()
		base += e.uniform(-ph.NoiseAmpF, ph.NoiseAmpF)

		// A rising phase holds at its target instead of overshooting.
		// Stall phases wander; only the floor/ceiling clamp applies there.
		if !ph.Stall() && sess.PhaseRateFPerMin > 0 && base > ph.TargetF {
			base = ph.TargetF
		}
		sess.LastTempF = clampF(base, prof.AmbientFloorF, prof.CeilingF)
	}
	sess.LastReadingAt = now

	// Phase exit: min duration elapsed AND (at target within epsilon OR max
	// duration exceeded). A new rate is rolled for the next phase.
	elapsed := now.Sub(sess.PhaseStartedAt)
	atTarget := absF(sess.LastTempF-ph.TargetF) <= ph.ExitEpsilonF
	if elapsed >= ph.MinDuration && (atTarget || elapsed >= ph.MaxDuration) {
		sess.PhaseIndex++
		sess.PhaseStartedAt = now
		if sess.PhaseIndex < len(prof.Phases) {
			next := prof.Phases[sess.PhaseIndex]
			sess.PhaseRateFPerMin = e.uniform(next.RateMinFPerMin, next.RateMaxFPerMin)
		}
	}

	reading := clampF(sess.LastTempF+e.eventContribution(sess, now), prof.AmbientFloorF, prof.CeilingF)

	return models.Reading{
		DeviceID:    sess.DeviceID,
		ChannelID:   sess.ChannelID,
		Timestamp:   now,
		Temperature: reading,
		Unit:        models.UnitFahrenheit,
	}, nil
}

// eventContribution sums all active event effects and prunes decayed ones.
func (e *Engine) eventContribution(sess *models.CookingSession, now time.Time) float64 {
	if len(sess.Events) == 0 {
		return 0
	}
	total := 0.0
	live := sess.Events[:0]
	for _, ev := range sess.Events {
		age := now.Sub(ev.AppliedAt)
		if age >= ev.Decay {
			continue
		}
		remaining := 1 - float64(age)/float64(ev.Decay)
		total += ev.MagnitudeF * remaining
		live = append(live, ev)
	}
	sess.Events = live
	return total
}

// NewEvent builds a one-shot event of the given kind with default shape.
func (e *Engine) NewEvent(kind string, now time.Time) (models.SessionEvent, error) {
	tpl, ok := defaultEvents[kind]
	if !ok {
		return models.SessionEvent{}, fmt.Errorf("unknown event kind %q", kind)
	}
	tpl.ID = uuid.NewString()
	tpl.AppliedAt = now
	// vary magnitude ±30% so repeated events do not look identical
	tpl.MagnitudeF *= e.uniform(0.7, 1.3)
	return tpl, nil
}

// MaybeInject rolls the per-tick event probability and, on success, applies
// a random event to the session.
func (e *Engine) MaybeInject(sess *models.CookingSession, now time.Time) {
	if e.eventProb <= 0 || !e.chance(e.eventProb) {
		return
	}
	ev, err := e.NewEvent(e.pick(randomEventKinds), now)
	if err != nil {
		return
	}
	sess.Events = append(sess.Events, ev)
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
