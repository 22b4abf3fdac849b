package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"grillstream/internal/models"
	"grillstream/internal/profile"
	"grillstream/internal/service"

	"github.com/google/uuid"
)

func apiRequest(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSessionHandlers_StartStopInject(t *testing.T) {
	sessions := &mockSessions{
		startSess: &models.CookingSession{
			ID: uuid.NewString(), DeviceID: "dev-1", ChannelID: "ch-1",
			ProfileID: "brisket_smoking", StartedAt: time.Now().UTC(), LastTempF: 40,
		},
		injectEv: &models.SessionEvent{
			ID: uuid.NewString(), Kind: models.EventLidOpen, MagnitudeF: -15,
		},
	}
	s := &service.Service{
		Authorization:  &mockAuth{parseID: 1},
		SessionManager: sessions,
	}
	r := newTestRouter(s)

	w := apiRequest(r, http.MethodPost, "/api/v1/sessions/start",
		`{"device_id":"dev-1","channel_id":"ch-1","profile_id":"brisket_smoking"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("start status=%d, body=%s", w.Code, w.Body.String())
	}
	if sessions.lastStartProfile != "brisket_smoking" {
		t.Fatalf("Start got profile %q", sessions.lastStartProfile)
	}

	w = apiRequest(r, http.MethodPost, "/api/v1/sessions/event",
		`{"channel_id":"ch-1","kind":"LID_OPEN"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("event status=%d, body=%s", w.Code, w.Body.String())
	}
	if sessions.lastInjectKind != models.EventLidOpen {
		t.Fatalf("Inject got kind %q", sessions.lastInjectKind)
	}

	w = apiRequest(r, http.MethodPost, "/api/v1/sessions/stop", `{"channel_id":"ch-1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("stop status=%d, body=%s", w.Code, w.Body.String())
	}
	if sessions.stopCalled != 1 {
		t.Fatalf("Stop called %d times", sessions.stopCalled)
	}
}

func TestSessionHandlers_StartErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"unknown profile", fmt.Errorf("lookup: %w", profile.ErrUnknownProfile), http.StatusNotFound},
		{"unknown device", fmt.Errorf("start: %w", service.ErrDeviceNotFound), http.StatusNotFound},
		{"unknown channel", fmt.Errorf("start: %w", service.ErrChannelNotFound), http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &service.Service{
				Authorization:  &mockAuth{parseID: 1},
				SessionManager: &mockSessions{startErr: tc.err},
			}
			r := newTestRouter(s)

			w := apiRequest(r, http.MethodPost, "/api/v1/sessions/start",
				`{"device_id":"d","channel_id":"c","profile_id":"p"}`)
			if w.Code != tc.want {
				t.Fatalf("status: got %d, want %d (body=%s)", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestSessionHandlers_InjectWithoutSession(t *testing.T) {
	s := &service.Service{
		Authorization:  &mockAuth{parseID: 1},
		SessionManager: &mockSessions{injectErr: fmt.Errorf("inject: %w", service.ErrNoSession)},
	}
	r := newTestRouter(s)

	w := apiRequest(r, http.MethodPost, "/api/v1/sessions/event",
		`{"channel_id":"ch-1","kind":"LID_OPEN"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestProfileHandler_ListsBuiltins(t *testing.T) {
	lib, err := profile.DefaultLibrary()
	if err != nil {
		t.Fatalf("default library: %v", err)
	}
	s := &service.Service{
		Authorization: &mockAuth{parseID: 1},
		Profiles:      lib,
	}
	r := newTestRouter(s)

	w := apiRequest(r, http.MethodGet, "/api/v1/profiles", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Profiles []profile.Profile `json:"profiles"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	ids := map[string]bool{}
	for _, p := range resp.Profiles {
		ids[p.ID] = true
	}
	if !ids["brisket_smoking"] || !ids["ambient_monitor"] {
		t.Fatalf("missing built-in profiles: %v", ids)
	}
}
