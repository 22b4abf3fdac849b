package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"grillstream/internal/models"
	"grillstream/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func newWSServer(t *testing.T, s *service.Service) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(s, newTestStore(), testLogger(), Config{})
	r.GET("/ws", h.wsConnect)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(t *testing.T, base, query string) string {
	t.Helper()
	u, err := url.Parse(base)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	u.Scheme = "ws"
	u.Path = "/ws"
	u.RawQuery = query
	return u.String()
}

func TestWebSocket_SnapshotFirstThenReadings(t *testing.T) {
	mon := &mockMonitoring{snap: models.Snapshot{
		DeviceID:  "dev-1",
		Timestamp: time.Now().UTC(),
		Channels: []models.ChannelSnapshot{
			{ChannelID: "ch-1", Temperature: 225.4, Unit: models.UnitFahrenheit, Connected: true},
		},
	}}
	store := newTestStore()
	dispatcher := service.NewDispatcher(8, store, mon, testLogger())
	s := &service.Service{
		Authorization: &mockAuth{parseID: 7},
		Dispatcher:    dispatcher,
	}

	srv := newWSServer(t, s)

	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, _, err := dialer.Dial(wsURL(t, srv.URL, "token=tok&device_id=dev-1"), nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer conn.Close()

	type update struct {
		Type string          `json:"type"`
		Seq  uint64          `json:"seq"`
		Data json.RawMessage `json:"data"`
	}

	// first frame is always the device snapshot
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	var first update
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if first.Type != service.UpdateSnapshot {
		t.Fatalf("expected snapshot first, got %q", first.Type)
	}
	var snap models.Snapshot
	if err := json.Unmarshal(first.Data, &snap); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if snap.DeviceID != "dev-1" || len(snap.Channels) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	// a published reading follows on the same stream
	dispatcher.PublishReading(models.Reading{
		DeviceID: "dev-1", ChannelID: "ch-1",
		Timestamp: time.Now().UTC(), Temperature: 226.1, Unit: models.UnitFahrenheit,
	})

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	var second update
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("read reading: %v", err)
	}
	if second.Type != service.UpdateReading {
		t.Fatalf("expected reading, got %q", second.Type)
	}
	if second.Seq <= first.Seq {
		t.Fatalf("sequence must increase: %d then %d", first.Seq, second.Seq)
	}
}

func TestWebSocket_RejectsBadToken(t *testing.T) {
	s := &service.Service{
		Authorization: &mockAuth{parseErr: errors.New("revoked")},
	}
	srv := newWSServer(t, s)

	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	_, resp, err := dialer.Dial(wsURL(t, srv.URL, "token=bad&device_id=dev-1"), nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 response, got %+v", resp)
	}
}

func TestWebSocket_RequiresDeviceID(t *testing.T) {
	s := &service.Service{
		Authorization: &mockAuth{parseID: 1},
	}
	srv := newWSServer(t, s)

	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	_, resp, err := dialer.Dial(wsURL(t, srv.URL, "token=tok"), nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 response, got %+v", resp)
	}
}
