package service

import (
	"context"
	"time"

	"grillstream/internal/cache"
	"grillstream/internal/logger"
	"grillstream/internal/models"
	"grillstream/internal/profile"
)

// ---- Shared Stubs ----

type stubRegistry struct {
	devices []models.Device
	getErr  error
	gets    int
}

func (r *stubRegistry) List(ctx context.Context) ([]models.Device, error) {
	return r.devices, nil
}
func (r *stubRegistry) Get(ctx context.Context, id string) (*models.Device, error) {
	r.gets++
	if r.getErr != nil {
		return nil, r.getErr
	}
	for i := range r.devices {
		if r.devices[i].ID == id {
			return &r.devices[i], nil
		}
	}
	return nil, nil
}
func (r *stubRegistry) Create(ctx context.Context, d models.Device) error {
	r.devices = append(r.devices, d)
	return nil
}

type stubRuleRepo struct {
	rules   []models.AlertRule
	deleted []string
}

func (r *stubRuleRepo) List(ctx context.Context) ([]models.AlertRule, error) { return r.rules, nil }
func (r *stubRuleRepo) ListForDevice(ctx context.Context, deviceID string) ([]models.AlertRule, error) {
	var out []models.AlertRule
	for _, rule := range r.rules {
		if rule.DeviceID == deviceID {
			out = append(out, rule)
		}
	}
	return out, nil
}
func (r *stubRuleRepo) Create(ctx context.Context, rule models.AlertRule) error {
	r.rules = append(r.rules, rule)
	return nil
}
func (r *stubRuleRepo) Delete(ctx context.Context, id string) error {
	r.deleted = append(r.deleted, id)
	return nil
}

type stubAuthRepo struct {
	users  map[string]*models.User
	nextID int
}

func newStubAuthRepo() *stubAuthRepo {
	return &stubAuthRepo{users: make(map[string]*models.User), nextID: 1}
}
func (r *stubAuthRepo) Create(username, hash string) (int, error) {
	id := r.nextID
	r.nextID++
	r.users[username] = &models.User{ID: id, Username: username, PasswordHash: hash}
	return id, nil
}
func (r *stubAuthRepo) GetByUsername(username string) (*models.User, error) {
	return r.users[username], nil
}

// recorderSink collects alert transitions.
type recorderSink struct {
	transitions []models.AlertTransition
}

func (s *recorderSink) OnAlert(t models.AlertTransition) {
	s.transitions = append(s.transitions, t)
}

// stubMonitoring returns a fixed snapshot.
type stubMonitoring struct {
	snap    models.Snapshot
	snapErr error
}

func (m *stubMonitoring) Snapshot(ctx context.Context, deviceID string) (models.Snapshot, error) {
	if m.snapErr != nil {
		return models.Snapshot{}, m.snapErr
	}
	snap := m.snap
	snap.DeviceID = deviceID
	return snap, nil
}
func (m *stubMonitoring) Rollup(ctx context.Context, channelID string) (models.Rollup, error) {
	return models.Rollup{}, cache.ErrMiss
}

// ---- Shared Helpers ----

func newTestStore(opts ...cache.Option) *cache.Store {
	store, err := cache.New(map[string]time.Duration{
		cache.NSTokens:      time.Hour,
		cache.NSLive:        time.Minute,
		cache.NSStatus:      time.Minute,
		cache.NSRollups:     time.Minute,
		cache.NSRateLimit:   time.Minute,
		cache.NSSubscribers: time.Minute,
	}, opts...)
	if err != nil {
		panic(err)
	}
	return store
}

func testLogger() *logger.Logger {
	return logger.Get(logger.ErrorLevel)
}

// flatRise is a deterministic single-phase profile: fixed rate, no noise.
func flatRise() profile.Profile {
	return profile.Profile{
		ID:            "test_rise",
		Name:          "Test Rise",
		StartTempF:    100,
		AmbientFloorF: 35,
		CeilingF:      300,
		Phases: []profile.Phase{
			{
				Name:           "rise",
				TargetF:        150,
				RateMinFPerMin: 1,
				RateMaxFPerMin: 1,
				MinDuration:    10 * time.Minute,
				MaxDuration:    2 * time.Hour,
				NoiseAmpF:      0,
				ExitEpsilonF:   1,
			},
		},
	}
}

// flatHold never exits on its own within a test's horizon.
func flatHold() profile.Profile {
	p := flatRise()
	p.ID = "test_hold"
	p.Phases[0].MinDuration = 24 * time.Hour
	p.Phases[0].MaxDuration = 48 * time.Hour
	return p
}

func mustLibrary(profiles ...profile.Profile) *profile.Library {
	lib, err := profile.NewLibrary(profiles...)
	if err != nil {
		panic(err)
	}
	return lib
}
