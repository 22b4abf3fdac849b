package service

import (
	"context"
	"testing"
	"time"

	"grillstream/internal/cache"
	"grillstream/internal/models"
)

// recordingForwarder captures readings handed to the historical store.
type recordingForwarder struct {
	readings []models.Reading
}

func (f *recordingForwarder) Forward(r models.Reading) { f.readings = append(f.readings, r) }
func (f *recordingForwarder) Close()                   {}

func newPollerFixture(t *testing.T) (*Poller, *SessionService, *cache.Store, *recordingForwarder) {
	t.Helper()
	registry := &stubRegistry{devices: []models.Device{simDevice()}}
	lib := mustLibrary(flatHold())
	engine := NewEngine(lib, 0)
	sessions := NewSessionService(engine, lib, registry, testLogger())

	alerts, err := NewAlertService(&stubRuleRepo{}, testLogger())
	if err != nil {
		t.Fatalf("alert service: %v", err)
	}

	store := newTestStore()
	monitoring := NewMonitoringService(store, registry, alerts)
	dispatcher := NewDispatcher(8, store, monitoring, testLogger())
	status := NewStatusEngine(20, 0, 0)
	history := &recordingForwarder{}

	cfg := Config{
		PollInterval: 10 * time.Millisecond,
		PollTimeout:  time.Second,
		StatusEvery:  2,
		RollupEvery:  4,
	}
	p := NewPoller(cfg, registry, sessions, status, store, alerts, dispatcher, history, testLogger())
	return p, sessions, store, history
}

func TestPollerPollOnce_FansReadingsOut(t *testing.T) {
	p, sessions, store, history := newPollerFixture(t)
	ctx := context.Background()

	if _, err := sessions.Start(ctx, "dev-1", "ch-1", "test_hold"); err != nil {
		t.Fatalf("start session: %v", err)
	}

	dev := simDevice()
	accs := make(map[string]*rollupAcc)
	p.pollOnce(ctx, p.adapterFor(dev), dev, accs)

	// live cache holds the reading
	v, err := store.Get(cache.NSLive, "ch-1")
	if err != nil {
		t.Fatalf("live cache: %v", err)
	}
	r, ok := v.(models.Reading)
	if !ok || r.ChannelID != "ch-1" {
		t.Fatalf("unexpected cached value: %+v", v)
	}

	// historical forwarder saw it
	if len(history.readings) != 1 {
		t.Fatalf("history got %d readings, want 1", len(history.readings))
	}

	// rollup window accumulated it
	if accs["ch-1"] == nil || accs["ch-1"].n != 1 {
		t.Fatalf("rollup accumulator: %+v", accs["ch-1"])
	}
}

func TestPollerFlushRollups(t *testing.T) {
	p, _, store, _ := newPollerFixture(t)

	accs := map[string]*rollupAcc{"ch-1": {}}
	for _, v := range []float64{180, 205, 200} {
		accs["ch-1"].add(v)
	}
	p.flushRollups(accs)

	v, err := store.Get(cache.NSRollups, "ch-1")
	if err != nil {
		t.Fatalf("rollup cache: %v", err)
	}
	roll := v.(models.Rollup)
	if roll.MinF != 180 || roll.MaxF != 205 || roll.Samples != 3 {
		t.Fatalf("unexpected rollup: %+v", roll)
	}
	if roll.AvgF < 194 || roll.AvgF > 196 {
		t.Fatalf("avg %.2f, want ~195", roll.AvgF)
	}

	// the window resets after a flush
	if accs["ch-1"].n != 0 {
		t.Fatalf("accumulator not reset: %+v", accs["ch-1"])
	}
}

func TestPollerPollOnce_FailureMarksDegradedAndRetainsCache(t *testing.T) {
	p, sessions, store, _ := newPollerFixture(t)
	ctx := context.Background()

	if _, err := sessions.Start(ctx, "dev-1", "ch-1", "test_hold"); err != nil {
		t.Fatalf("start session: %v", err)
	}
	dev := simDevice()
	accs := make(map[string]*rollupAcc)
	p.pollOnce(ctx, p.adapterFor(dev), dev, accs)

	// a remote device with no listener fails to poll
	dead := models.Device{ID: "dev-1", Address: "http://127.0.0.1:1"}
	p.pollOnce(ctx, p.adapterFor(dead), dead, accs)

	// the last good reading survives the failed tick
	if _, err := store.Get(cache.NSLive, "ch-1"); err != nil {
		t.Fatalf("last reading evicted on poll failure: %v", err)
	}

	v, err := store.Get(cache.NSStatus, "dev-1")
	if err != nil {
		t.Fatalf("status cache: %v", err)
	}
	st := v.(models.DeviceStatus)
	if st.ConnectionStatus != models.ConnDegraded {
		t.Fatalf("status %q, want degraded", st.ConnectionStatus)
	}
}

func TestPollerRegister_PersistsDevice(t *testing.T) {
	p, _, _, _ := newPollerFixture(t)
	ctx := context.Background()

	dev := models.Device{ID: "dev-2", Name: "kettle", Simulated: true}
	if err := p.Register(ctx, dev); err != nil {
		t.Fatalf("register: %v", err)
	}

	got, err := p.Device(ctx, "dev-2")
	if err != nil {
		t.Fatalf("device: %v", err)
	}
	if got == nil || got.Name != "kettle" {
		t.Fatalf("registered device not found: %+v", got)
	}

	devices, err := p.Devices(ctx)
	if err != nil {
		t.Fatalf("devices: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("got %d devices, want 2", len(devices))
	}
}
