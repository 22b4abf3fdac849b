package profile

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownProfile is returned when a session references a profile id the
// library does not carry. Surfaced at session creation, never at advance
// time.
var ErrUnknownProfile = errors.New("unknown profile")

// Phase is one segment of a profile. Rates are °F per minute; a phase exits
// once MinDuration has elapsed and either the temperature is within
// ExitEpsilonF of the target or MaxDuration has elapsed.
type Phase struct {
	Name           string        `json:"name"`
	TargetF        float64       `json:"target_f"`
	RateMinFPerMin float64       `json:"rate_min_f_per_min"`
	RateMaxFPerMin float64       `json:"rate_max_f_per_min"`
	MinDuration    time.Duration `json:"min_duration"`
	MaxDuration    time.Duration `json:"max_duration"`
	NoiseAmpF      float64       `json:"noise_amp_f"`
	ExitEpsilonF   float64       `json:"exit_epsilon_f"`
}

// Stall reports whether this phase models a plateau: rate bounds straddle
// or hug zero while noise stays high.
func (p Phase) Stall() bool {
	return p.RateMinFPerMin <= 0 && p.RateMaxFPerMin >= 0
}

// Profile is an immutable ordered list of phases plus the physical clamps
// applied to every reading it produces.
type Profile struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Phases        []Phase `json:"phases"`
	StartTempF    float64 `json:"start_temp_f"`
	AmbientFloorF float64 `json:"ambient_floor_f"`
	CeilingF      float64 `json:"ceiling_f"`
}

// Validate checks structural invariants of a profile definition.
func (p Profile) Validate() error {
	if p.ID == "" {
		return errors.New("profile: empty id")
	}
	if len(p.Phases) == 0 {
		return fmt.Errorf("profile %s: no phases", p.ID)
	}
	if p.CeilingF <= p.AmbientFloorF {
		return fmt.Errorf("profile %s: ceiling %.1f not above floor %.1f", p.ID, p.CeilingF, p.AmbientFloorF)
	}
	for i, ph := range p.Phases {
		if ph.RateMinFPerMin > ph.RateMaxFPerMin {
			return fmt.Errorf("profile %s phase %d: rate bounds inverted", p.ID, i)
		}
		if ph.MinDuration < 0 || ph.MaxDuration < ph.MinDuration {
			return fmt.Errorf("profile %s phase %d: duration bounds inverted", p.ID, i)
		}
		if ph.NoiseAmpF < 0 {
			return fmt.Errorf("profile %s phase %d: negative noise amplitude", p.ID, i)
		}
		if ph.ExitEpsilonF <= 0 {
			return fmt.Errorf("profile %s phase %d: non-positive exit epsilon", p.ID, i)
		}
	}
	return nil
}

// Library holds the available profiles keyed by id.
type Library struct {
	profiles map[string]Profile
	order    []string
}

// NewLibrary builds a library from the given profiles, validating each.
func NewLibrary(profiles ...Profile) (*Library, error) {
	l := &Library{profiles: make(map[string]Profile, len(profiles))}
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := l.profiles[p.ID]; dup {
			return nil, fmt.Errorf("profile %s: duplicate id", p.ID)
		}
		l.profiles[p.ID] = p
		l.order = append(l.order, p.ID)
	}
	return l, nil
}

// Get returns the profile for id or ErrUnknownProfile.
func (l *Library) Get(id string) (Profile, error) {
	p, ok := l.profiles[id]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, id)
	}
	return p, nil
}

// List returns all profiles in registration order.
func (l *Library) List() []Profile {
	out := make([]Profile, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.profiles[id])
	}
	return out
}
