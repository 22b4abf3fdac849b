package profile

import "time"

// Built-in cooking profiles. Rates/noise are the documented configuration
// for the qualitative shape (rise → optional stall → rise); cadence and
// event behavior live in the service config, not here.

// BrisketSmoking: slow rise to the stall plateau, a long noisy stall from
// evaporative cooling, then a finishing rise to probe-tender temperature.
func BrisketSmoking() Profile {
	return Profile{
		ID:            "brisket_smoking",
		Name:          "Brisket (Smoking)",
		StartTempF:    40,
		AmbientFloorF: 35,
		CeilingF:      325,
		Phases: []Phase{
			{
				Name:           "initial_rise",
				TargetF:        165,
				RateMinFPerMin: 0.5,
				RateMaxFPerMin: 0.9,
				MinDuration:    90 * time.Minute,
				MaxDuration:    5 * time.Hour,
				NoiseAmpF:      0.6,
				ExitEpsilonF:   3,
			},
			{
				Name:           "stall",
				TargetF:        168,
				RateMinFPerMin: -0.05,
				RateMaxFPerMin: 0.08,
				MinDuration:    45 * time.Minute,
				MaxDuration:    3 * time.Hour,
				NoiseAmpF:      2.2,
				ExitEpsilonF:   1.5,
			},
			{
				Name:           "finish",
				TargetF:        203,
				RateMinFPerMin: 0.25,
				RateMaxFPerMin: 0.5,
				MinDuration:    60 * time.Minute,
				MaxDuration:    4 * time.Hour,
				NoiseAmpF:      0.5,
				ExitEpsilonF:   1,
			},
		},
	}
}

// PorkShoulderSmoking mirrors brisket with a slightly lower finish.
func PorkShoulderSmoking() Profile {
	return Profile{
		ID:            "pork_shoulder_smoking",
		Name:          "Pork Shoulder (Smoking)",
		StartTempF:    40,
		AmbientFloorF: 35,
		CeilingF:      325,
		Phases: []Phase{
			{Name: "initial_rise", TargetF: 160, RateMinFPerMin: 0.5, RateMaxFPerMin: 1.0, MinDuration: 60 * time.Minute, MaxDuration: 4 * time.Hour, NoiseAmpF: 0.6, ExitEpsilonF: 3},
			{Name: "stall", TargetF: 163, RateMinFPerMin: -0.05, RateMaxFPerMin: 0.1, MinDuration: 40 * time.Minute, MaxDuration: 2 * time.Hour, NoiseAmpF: 2.0, ExitEpsilonF: 1.5},
			{Name: "finish", TargetF: 198, RateMinFPerMin: 0.3, RateMaxFPerMin: 0.6, MinDuration: 45 * time.Minute, MaxDuration: 3 * time.Hour, NoiseAmpF: 0.5, ExitEpsilonF: 1},
		},
	}
}

// RibsSmoking: no stall to speak of, one steady rise.
func RibsSmoking() Profile {
	return Profile{
		ID:            "ribs_smoking",
		Name:          "Ribs (Smoking)",
		StartTempF:    40,
		AmbientFloorF: 35,
		CeilingF:      325,
		Phases: []Phase{
			{Name: "rise", TargetF: 195, RateMinFPerMin: 0.6, RateMaxFPerMin: 1.1, MinDuration: 90 * time.Minute, MaxDuration: 6 * time.Hour, NoiseAmpF: 0.8, ExitEpsilonF: 2},
		},
	}
}

// ChickenGrilling: hot and fast, higher noise from direct heat.
func ChickenGrilling() Profile {
	return Profile{
		ID:            "chicken_grilling",
		Name:          "Chicken (Grilling)",
		StartTempF:    40,
		AmbientFloorF: 35,
		CeilingF:      550,
		Phases: []Phase{
			{Name: "sear", TargetF: 120, RateMinFPerMin: 3, RateMaxFPerMin: 6, MinDuration: 5 * time.Minute, MaxDuration: 30 * time.Minute, NoiseAmpF: 1.5, ExitEpsilonF: 4},
			{Name: "finish", TargetF: 165, RateMinFPerMin: 1.5, RateMaxFPerMin: 3, MinDuration: 10 * time.Minute, MaxDuration: 45 * time.Minute, NoiseAmpF: 1.0, ExitEpsilonF: 2},
		},
	}
}

// AmbientMonitor models pit/chamber air: a fast climb to the smoke band and
// a hold with burn-cycle noise. Useful for ambient probes.
func AmbientMonitor() Profile {
	return Profile{
		ID:            "ambient_monitor",
		Name:          "Pit Ambient",
		StartTempF:    40,
		AmbientFloorF: 35,
		CeilingF:      450,
		Phases: []Phase{
			{Name: "light", TargetF: 225, RateMinFPerMin: 4, RateMaxFPerMin: 8, MinDuration: 10 * time.Minute, MaxDuration: 60 * time.Minute, NoiseAmpF: 1.5, ExitEpsilonF: 6},
			{Name: "hold", TargetF: 225, RateMinFPerMin: -0.2, RateMaxFPerMin: 0.2, MinDuration: 6 * time.Hour, MaxDuration: 16 * time.Hour, NoiseAmpF: 3.0, ExitEpsilonF: 2},
		},
	}
}

// DefaultLibrary returns the library of built-in profiles.
func DefaultLibrary() (*Library, error) {
	return NewLibrary(
		BrisketSmoking(),
		PorkShoulderSmoking(),
		RibsSmoking(),
		ChickenGrilling(),
		AmbientMonitor(),
	)
}
