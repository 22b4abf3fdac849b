package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"grillstream/internal/cache"
	"grillstream/internal/logger"
	"grillstream/internal/metrics"
	"grillstream/internal/models"

	"github.com/google/uuid"
)

// Update types pushed to subscribers.
const (
	UpdateSnapshot = "snapshot"
	UpdateReading  = "reading"
	UpdateStatus   = "status"
	UpdateAlert    = "alert"
)

// Update is one message on a subscriber's stream.
type Update struct {
	Type string `json:"type"`
	Seq  uint64 `json:"seq"`
	Data any    `json:"data"`
}

// Subscription is one logical stream of updates for a (client, device)
// pair. Out is drained by the transport layer (the websocket handler).
type Subscription struct {
	ID       string
	ClientID string
	DeviceID string

	out       chan Update
	closeOnce sync.Once

	// mu guards closed and seq against publishers holding a stale
	// reference to a subscription torn down mid-fanout.
	mu     sync.Mutex
	closed bool
	seq    uint64
}

// Out returns the subscriber's update stream. The channel is closed on
// unsubscribe.
func (s *Subscription) Out() <-chan Update { return s.out }

// subscriberRecord is what the bookkeeping cache namespace holds per
// subscription; its expiry detects clients that stopped heartbeating.
type subscriberRecord struct {
	ClientID    string
	DeviceID    string
	ConnectedAt time.Time
}

// Dispatcher fans cache/alert updates out to connected dashboard clients.
// A slow consumer loses its oldest buffered update rather than stalling
// the producer side; ordering per device is preserved because each device
// has exactly one publishing goroutine.
type Dispatcher struct {
	bufSize    int
	store      *cache.Store
	monitoring Monitoring
	log        *logger.Logger

	mu       sync.RWMutex
	subs     map[string]*Subscription
	byDevice map[string]map[string]*Subscription
}

func NewDispatcher(bufSize int, store *cache.Store, monitoring Monitoring, log *logger.Logger) *Dispatcher {
	if bufSize <= 0 {
		bufSize = 16
	}
	return &Dispatcher{
		bufSize:    bufSize,
		store:      store,
		monitoring: monitoring,
		log:        log,
		subs:       make(map[string]*Subscription),
		byDevice:   make(map[string]map[string]*Subscription),
	}
}

// Subscribe registers a stream for (clientID, deviceID) and queues the
// current snapshot as the first update, so a reconnecting client never
// starts blind.
func (d *Dispatcher) Subscribe(ctx context.Context, clientID, deviceID string) (*Subscription, error) {
	snap, err := d.monitoring.Snapshot(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	sub := &Subscription{
		ID:       uuid.NewString(),
		ClientID: clientID,
		DeviceID: deviceID,
		out:      make(chan Update, d.bufSize),
	}
	sub.seq++
	sub.out <- Update{Type: UpdateSnapshot, Seq: sub.seq, Data: snap}

	d.mu.Lock()
	d.subs[sub.ID] = sub
	if d.byDevice[deviceID] == nil {
		d.byDevice[deviceID] = make(map[string]*Subscription)
	}
	d.byDevice[deviceID][sub.ID] = sub
	d.mu.Unlock()

	_ = d.store.Set(cache.NSSubscribers, sub.ID, subscriberRecord{
		ClientID:    clientID,
		DeviceID:    deviceID,
		ConnectedAt: time.Now().UTC(),
	})

	metrics.SubscriberConnected()
	d.log.Infow("subscribed", "subscription", sub.ID, "client", clientID, "device", deviceID)
	return sub, nil
}

// Unsubscribe tears a subscription down. Idempotent.
func (d *Dispatcher) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	sub.closeOnce.Do(func() {
		d.mu.Lock()
		delete(d.subs, sub.ID)
		if m := d.byDevice[sub.DeviceID]; m != nil {
			delete(m, sub.ID)
			if len(m) == 0 {
				delete(d.byDevice, sub.DeviceID)
			}
		}
		d.mu.Unlock()

		// out is only closed with mu held and closed set, so a publish
		// that grabbed this sub before removal cannot send after the close
		sub.mu.Lock()
		sub.closed = true
		close(sub.out)
		sub.mu.Unlock()

		_ = d.store.Delete(cache.NSSubscribers, sub.ID)
		metrics.SubscriberDisconnected()
		d.log.Infow("unsubscribed", "subscription", sub.ID, "client", sub.ClientID)
	})
}

// Touch refreshes a subscription's bookkeeping entry. Called on client
// activity (pongs); a client that stops heartbeating lets the entry
// expire and gets reaped.
func (d *Dispatcher) Touch(sub *Subscription) {
	_ = d.store.Set(cache.NSSubscribers, sub.ID, subscriberRecord{
		ClientID:    sub.ClientID,
		DeviceID:    sub.DeviceID,
		ConnectedAt: time.Now().UTC(),
	})
}

// PublishReading fans a new reading out to the device's subscribers.
func (d *Dispatcher) PublishReading(r models.Reading) {
	d.publish(r.DeviceID, UpdateReading, r)
}

// PublishStatus fans a status snapshot out to the device's subscribers.
func (d *Dispatcher) PublishStatus(st models.DeviceStatus) {
	d.publish(st.DeviceID, UpdateStatus, st)
}

// OnAlert implements AlertSink.
func (d *Dispatcher) OnAlert(t models.AlertTransition) {
	d.publish(t.DeviceID, UpdateAlert, t)
}

func (d *Dispatcher) publish(deviceID, typ string, data any) {
	d.mu.RLock()
	targets := make([]*Subscription, 0, len(d.byDevice[deviceID]))
	for _, sub := range d.byDevice[deviceID] {
		targets = append(targets, sub)
	}
	d.mu.RUnlock()

	for _, sub := range targets {
		sub.mu.Lock()
		if sub.closed {
			sub.mu.Unlock()
			continue
		}
		sub.seq++
		upd := Update{Type: typ, Seq: sub.seq, Data: data}
		select {
		case sub.out <- upd:
			sub.mu.Unlock()
			continue
		default:
		}
		// buffer full: drop the oldest buffered update, never block
		select {
		case <-sub.out:
			metrics.UpdateDropped()
		default:
		}
		select {
		case sub.out <- upd:
		default:
		}
		sub.mu.Unlock()
	}
}

// ReapStale unsubscribes every subscription whose bookkeeping entry has
// expired out of the cache.
func (d *Dispatcher) ReapStale() int {
	d.mu.RLock()
	candidates := make([]*Subscription, 0, len(d.subs))
	for _, sub := range d.subs {
		candidates = append(candidates, sub)
	}
	d.mu.RUnlock()

	reaped := 0
	for _, sub := range candidates {
		if _, err := d.store.Get(cache.NSSubscribers, sub.ID); errors.Is(err, cache.ErrMiss) {
			d.log.Infow("reaping stale subscription", "subscription", sub.ID, "client", sub.ClientID)
			d.Unsubscribe(sub)
			reaped++
		}
	}
	return reaped
}

// RunReaper reaps stale subscriptions on the given interval until ctx is
// canceled.
func (d *Dispatcher) RunReaper(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			d.ReapStale()
		}
	}
}
