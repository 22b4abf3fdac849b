package profile

import (
	"errors"
	"testing"
	"time"
)

func validProfile() Profile {
	return Profile{
		ID:            "p1",
		Name:          "P1",
		StartTempF:    40,
		AmbientFloorF: 35,
		CeilingF:      300,
		Phases: []Phase{
			{Name: "rise", TargetF: 200, RateMinFPerMin: 0.5, RateMaxFPerMin: 1, MinDuration: time.Minute, MaxDuration: time.Hour, NoiseAmpF: 0.5, ExitEpsilonF: 2},
		},
	}
}

func TestProfileValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Profile)
		ok     bool
	}{
		{"valid", func(p *Profile) {}, true},
		{"empty id", func(p *Profile) { p.ID = "" }, false},
		{"no phases", func(p *Profile) { p.Phases = nil }, false},
		{"ceiling below floor", func(p *Profile) { p.CeilingF = 30 }, false},
		{"inverted rates", func(p *Profile) { p.Phases[0].RateMinFPerMin = 2 }, false},
		{"inverted durations", func(p *Profile) { p.Phases[0].MaxDuration = time.Second }, false},
		{"negative noise", func(p *Profile) { p.Phases[0].NoiseAmpF = -1 }, false},
		{"zero epsilon", func(p *Profile) { p.Phases[0].ExitEpsilonF = 0 }, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validProfile()
			tc.mutate(&p)
			err := p.Validate()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestPhaseStall(t *testing.T) {
	rising := Phase{RateMinFPerMin: 0.5, RateMaxFPerMin: 1}
	if rising.Stall() {
		t.Fatal("rising phase reported as stall")
	}
	stall := Phase{RateMinFPerMin: -0.05, RateMaxFPerMin: 0.08}
	if !stall.Stall() {
		t.Fatal("straddling-zero phase not reported as stall")
	}
}

func TestLibrary(t *testing.T) {
	lib, err := NewLibrary(validProfile())
	if err != nil {
		t.Fatalf("new library: %v", err)
	}

	if _, err := lib.Get("p1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := lib.Get("nope"); !errors.Is(err, ErrUnknownProfile) {
		t.Fatalf("got %v, want ErrUnknownProfile", err)
	}
	if got := lib.List(); len(got) != 1 || got[0].ID != "p1" {
		t.Fatalf("list: %+v", got)
	}

	dup := validProfile()
	if _, err := NewLibrary(validProfile(), dup); err == nil {
		t.Fatal("duplicate id accepted")
	}
}

func TestDefaultLibrary_StallShapes(t *testing.T) {
	lib, err := DefaultLibrary()
	if err != nil {
		t.Fatalf("default library: %v", err)
	}

	brisket, err := lib.Get("brisket_smoking")
	if err != nil {
		t.Fatalf("get brisket: %v", err)
	}
	if len(brisket.Phases) != 3 {
		t.Fatalf("brisket has %d phases, want 3", len(brisket.Phases))
	}
	if !brisket.Phases[1].Stall() {
		t.Fatal("brisket middle phase is not a stall")
	}
	if brisket.Phases[0].Stall() || brisket.Phases[2].Stall() {
		t.Fatal("brisket rise/finish classified as stall")
	}

	ribs, err := lib.Get("ribs_smoking")
	if err != nil {
		t.Fatalf("get ribs: %v", err)
	}
	for i, ph := range ribs.Phases {
		if ph.Stall() {
			t.Fatalf("ribs phase %d classified as stall", i)
		}
	}
}
