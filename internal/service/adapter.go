package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"grillstream/internal/models"
)

// DeviceAdapter yields the current readings for a device's channels. The
// rest of the pipeline never learns whether readings came from the session
// engine or a real polled device; the implementation is picked at
// construction time.
type DeviceAdapter interface {
	Poll(ctx context.Context, dev models.Device) ([]models.Reading, error)
}

// SimulatedAdapter drives the session engine. Channels without an active
// session yield no reading.
type SimulatedAdapter struct {
	sessions *SessionService
}

func NewSimulatedAdapter(sessions *SessionService) *SimulatedAdapter {
	return &SimulatedAdapter{sessions: sessions}
}

func (a *SimulatedAdapter) Poll(ctx context.Context, dev models.Device) ([]models.Reading, error) {
	now := time.Now().UTC()
	readings := make([]models.Reading, 0, len(dev.Channels))
	for _, ch := range dev.Channels {
		r, err := a.sessions.Advance(ch, now)
		switch {
		case errors.Is(err, ErrNoSession):
			continue
		case errors.Is(err, ErrSessionComplete):
			continue
		case err != nil:
			return nil, err
		}
		readings = append(readings, r)
	}
	return readings, nil
}

// RemoteAdapter polls a real device over HTTP and normalizes its payload
// into the same Reading type the simulator emits.
type RemoteAdapter struct {
	client *http.Client
}

func NewRemoteAdapter(timeout time.Duration) *RemoteAdapter {
	return &RemoteAdapter{client: &http.Client{Timeout: timeout}}
}

// remoteSample is the wire shape real devices report.
type remoteSample struct {
	ChannelID   string  `json:"channel_id"`
	Temperature float64 `json:"temperature"`
	Unit        string  `json:"unit"`
}

func (a *RemoteAdapter) Poll(ctx context.Context, dev models.Device) ([]models.Reading, error) {
	if dev.Address == "" {
		return nil, fmt.Errorf("device %q: no poll address", dev.ID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dev.Address, nil)
	if err != nil {
		return nil, fmt.Errorf("device %q: build poll request: %w", dev.ID, err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("device %q: poll: %w", dev.ID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("device %q: poll status %d", dev.ID, resp.StatusCode)
	}

	var samples []remoteSample
	if err := json.NewDecoder(resp.Body).Decode(&samples); err != nil {
		return nil, fmt.Errorf("device %q: malformed poll response: %w", dev.ID, err)
	}

	now := time.Now().UTC()
	readings := make([]models.Reading, 0, len(samples))
	for _, s := range samples {
		if s.ChannelID == "" {
			return nil, fmt.Errorf("device %q: sample without channel id", dev.ID)
		}
		unit := s.Unit
		if unit == "" {
			unit = models.UnitFahrenheit
		}
		readings = append(readings, models.Reading{
			DeviceID:    dev.ID,
			ChannelID:   s.ChannelID,
			Timestamp:   now,
			Temperature: s.Temperature,
			Unit:        unit,
		})
	}
	return readings, nil
}
