package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"grillstream/internal/cache"
	"grillstream/internal/models"
	"grillstream/internal/repository"
)

// AlertLister is the slice of the alert service the snapshot needs.
type AlertLister interface {
	Firing(deviceID string) []models.AlertInstance
}

// MonitoringService assembles device snapshots from the cache. The cache
// is the source of truth for current values; nothing here holds a private
// copy between calls.
type MonitoringService struct {
	store    *cache.Store
	registry repository.DeviceRegistry
	alerts   AlertLister
}

func NewMonitoringService(store *cache.Store, registry repository.DeviceRegistry, alerts AlertLister) *MonitoringService {
	return &MonitoringService{store: store, registry: registry, alerts: alerts}
}

// deviceMetaKey caches registry lookups under the status namespace, which
// carries the TTL matched to device metadata volatility.
func deviceMetaKey(id string) string { return "meta:" + id }

func (m *MonitoringService) device(ctx context.Context, deviceID string) (*models.Device, error) {
	if v, err := m.store.Get(cache.NSStatus, deviceMetaKey(deviceID)); err == nil {
		if dev, ok := v.(*models.Device); ok {
			return dev, nil
		}
	}
	dev, err := m.registry.Get(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if dev == nil {
		return nil, fmt.Errorf("%w: %q", ErrDeviceNotFound, deviceID)
	}
	_ = m.store.Set(cache.NSStatus, deviceMetaKey(deviceID), dev)
	return dev, nil
}

// Snapshot returns the current cached state for a device: last reading per
// channel, connectivity status, and firing alerts. A channel whose live
// reading has expired is reported disconnected, not errored.
func (m *MonitoringService) Snapshot(ctx context.Context, deviceID string) (models.Snapshot, error) {
	dev, err := m.device(ctx, deviceID)
	if err != nil {
		return models.Snapshot{}, err
	}

	snap := models.Snapshot{
		DeviceID:  deviceID,
		Timestamp: time.Now().UTC(),
		Channels:  make([]models.ChannelSnapshot, 0, len(dev.Channels)),
	}

	for _, ch := range dev.Channels {
		cs := models.ChannelSnapshot{ChannelID: ch.ID, Unit: ch.Unit}
		if v, err := m.store.Get(cache.NSLive, ch.ID); err == nil {
			if r, ok := v.(models.Reading); ok {
				cs.Temperature = r.Temperature
				cs.Unit = r.Unit
				cs.Connected = true
			}
		}
		snap.Channels = append(snap.Channels, cs)
	}

	if v, err := m.store.Get(cache.NSStatus, deviceID); err == nil {
		if st, ok := v.(models.DeviceStatus); ok {
			snap.Status = st
		}
	} else if errors.Is(err, cache.ErrMiss) {
		snap.Status = models.DeviceStatus{DeviceID: deviceID, ConnectionStatus: models.ConnOffline}
	}

	if m.alerts != nil {
		snap.Alerts = m.alerts.Firing(deviceID)
	}
	return snap, nil
}

// Rollup returns the pre-computed aggregates for a channel, or a miss
// error if none are fresh.
func (m *MonitoringService) Rollup(ctx context.Context, channelID string) (models.Rollup, error) {
	v, err := m.store.Get(cache.NSRollups, channelID)
	if err != nil {
		return models.Rollup{}, err
	}
	r, ok := v.(models.Rollup)
	if !ok {
		return models.Rollup{}, cache.ErrMiss
	}
	return r, nil
}
