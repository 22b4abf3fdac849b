package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"grillstream/internal/cache"
	"grillstream/internal/models"
	"grillstream/internal/service"
)

type registryStub struct {
	devices []models.Device
}

func (r *registryStub) List(ctx context.Context) ([]models.Device, error) { return r.devices, nil }
func (r *registryStub) Get(ctx context.Context, id string) (*models.Device, error) {
	for i := range r.devices {
		if r.devices[i].ID == id {
			return &r.devices[i], nil
		}
	}
	return nil, nil
}
func (r *registryStub) Create(ctx context.Context, d models.Device) error {
	r.devices = append(r.devices, d)
	return nil
}

func newDeviceRouter(reg *registryStub, store *cache.Store) (*service.Service, http.Handler) {
	poller := service.NewPoller(service.Config{PollTimeout: time.Second}, reg, nil, nil, store, nil, nil, service.NopForwarder{}, testLogger())
	s := &service.Service{
		Authorization: &mockAuth{parseID: 1},
		Monitoring:    &mockMonitoring{},
		Poller:        poller,
	}
	h := NewHandler(s, store, testLogger(), Config{})
	return s, h.InitRoutes()
}

func TestDeviceHandlers_CreateListGet(t *testing.T) {
	reg := &registryStub{}
	_, r := newDeviceRouter(reg, newTestStore())

	w := apiRequest(r, http.MethodPost, "/api/v1/devices",
		`{"name":"big green egg","simulated":true,"channels":[{"name":"brisket","probe_type":"food"},{"name":"pit","probe_type":"ambient"}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("create status=%d, body=%s", w.Code, w.Body.String())
	}
	var dev models.Device
	if err := json.Unmarshal(w.Body.Bytes(), &dev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if dev.ID == "" || len(dev.Channels) != 2 {
		t.Fatalf("unexpected device: %+v", dev)
	}
	for _, ch := range dev.Channels {
		if ch.ID == "" || ch.DeviceID != dev.ID || ch.Unit != models.UnitFahrenheit {
			t.Fatalf("unexpected channel: %+v", ch)
		}
	}

	w = apiRequest(r, http.MethodGet, "/api/v1/devices", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status=%d", w.Code)
	}

	w = apiRequest(r, http.MethodGet, "/api/v1/devices/"+dev.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status=%d", w.Code)
	}

	w = apiRequest(r, http.MethodGet, "/api/v1/devices/ghost", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing device: status=%d, want 404", w.Code)
	}
}

func TestDeviceHandlers_CreateValidation(t *testing.T) {
	reg := &registryStub{}
	_, r := newDeviceRouter(reg, newTestStore())

	cases := []struct {
		name string
		body string
	}{
		{"no channels", `{"name":"egg","simulated":true,"channels":[]}`},
		{"unknown probe type", `{"name":"egg","simulated":true,"channels":[{"name":"x","probe_type":"laser"}]}`},
		{"real device without address", `{"name":"egg","simulated":false,"channels":[{"name":"x","probe_type":"food"}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := apiRequest(r, http.MethodPost, "/api/v1/devices", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status=%d, want 400 (body=%s)", w.Code, w.Body.String())
			}
		})
	}
	if len(reg.devices) != 0 {
		t.Fatalf("invalid devices persisted: %d", len(reg.devices))
	}
}

func TestDeviceHandlers_Status(t *testing.T) {
	reg := &registryStub{}
	store := newTestStore()
	_, r := newDeviceRouter(reg, store)

	// no status yet: reported offline, not errored
	w := apiRequest(r, http.MethodGet, "/api/v1/devices/dev-1/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var st models.DeviceStatus
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	if st.ConnectionStatus != models.ConnOffline {
		t.Fatalf("empty status %q, want offline", st.ConnectionStatus)
	}

	_ = store.Set(cache.NSStatus, "dev-1", models.DeviceStatus{
		DeviceID: "dev-1", BatteryPct: 77, SignalPct: 64,
		ConnectionStatus: models.ConnOnline, LastSeen: time.Now().UTC(),
	})
	w = apiRequest(r, http.MethodGet, "/api/v1/devices/dev-1/status", "")
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	if st.BatteryPct != 77 || st.ConnectionStatus != models.ConnOnline {
		t.Fatalf("unexpected status: %+v", st)
	}
}
