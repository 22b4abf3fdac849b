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
	"grillstream/internal/repository"
)

// rollupAcc accumulates one rollup window for a channel.
type rollupAcc struct {
	min, max, sum float64
	n             int
}

func (a *rollupAcc) add(v float64) {
	if a.n == 0 || v < a.min {
		a.min = v
	}
	if a.n == 0 || v > a.max {
		a.max = v
	}
	a.sum += v
	a.n++
}

// Poller runs one poll loop per device. Each loop owns its device's
// write path end to end: adapter poll, write-through to the live cache,
// fan-out to the evaluator, dispatcher and historical forwarder. Devices
// never share a loop, so a stalled remote poll cannot block the others.
type Poller struct {
	cfg        Config
	registry   repository.DeviceRegistry
	sessions   *SessionService
	status     *StatusEngine
	store      *cache.Store
	alerts     *AlertService
	dispatcher *Dispatcher
	history    HistoryForwarder
	log        *logger.Logger

	simulated DeviceAdapter
	remote    DeviceAdapter

	mu     sync.Mutex
	runCtx context.Context
}

func NewPoller(
	cfg Config,
	registry repository.DeviceRegistry,
	sessions *SessionService,
	status *StatusEngine,
	store *cache.Store,
	alerts *AlertService,
	dispatcher *Dispatcher,
	history HistoryForwarder,
	log *logger.Logger,
) *Poller {
	return &Poller{
		cfg:        cfg,
		registry:   registry,
		sessions:   sessions,
		status:     status,
		store:      store,
		alerts:     alerts,
		dispatcher: dispatcher,
		history:    history,
		log:        log,
		simulated:  NewSimulatedAdapter(sessions),
		remote:     NewRemoteAdapter(cfg.PollTimeout),
	}
}

// adapterFor picks the adapter at construction of the loop, not per tick.
func (p *Poller) adapterFor(dev models.Device) DeviceAdapter {
	if dev.Simulated {
		return p.simulated
	}
	return p.remote
}

// Run starts one loop per registered device and blocks until ctx is
// canceled.
func (p *Poller) Run(ctx context.Context) error {
	p.mu.Lock()
	p.runCtx = ctx
	p.mu.Unlock()

	devices, err := p.registry.List(ctx)
	if err != nil {
		return err
	}
	for _, dev := range devices {
		go p.runDevice(ctx, dev)
	}
	<-ctx.Done()
	return nil
}

// Devices lists registered devices.
func (p *Poller) Devices(ctx context.Context) ([]models.Device, error) {
	return p.registry.List(ctx)
}

// Device fetches one registered device, nil when absent.
func (p *Poller) Device(ctx context.Context, id string) (*models.Device, error) {
	return p.registry.Get(ctx, id)
}

// Register persists a new device and, when the poller is running, starts
// its poll loop immediately.
func (p *Poller) Register(ctx context.Context, dev models.Device) error {
	if err := p.registry.Create(ctx, dev); err != nil {
		return err
	}
	p.mu.Lock()
	runCtx := p.runCtx
	p.mu.Unlock()
	if runCtx != nil {
		go p.runDevice(runCtx, dev)
	}
	return nil
}

func (p *Poller) runDevice(ctx context.Context, dev models.Device) {
	adapter := p.adapterFor(dev)
	accs := make(map[string]*rollupAcc, len(dev.Channels))

	t := time.NewTicker(p.cfg.PollInterval)
	defer t.Stop()

	p.log.Infow("polling device", "device", dev.ID, "simulated", dev.Simulated, "interval", p.cfg.PollInterval)

	tick := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			tick++
			p.pollOnce(ctx, adapter, dev, accs)
			if p.cfg.StatusEvery > 0 && tick%p.cfg.StatusEvery == 0 {
				p.statusTick(dev)
			}
			if p.cfg.RollupEvery > 0 && tick%p.cfg.RollupEvery == 0 {
				p.flushRollups(accs)
			}
		}
	}
}

// pollOnce performs one adapter poll and fans the readings out. On
// failure the previous cached reading is retained and the device status
// is marked degraded; the error stops here.
func (p *Poller) pollOnce(ctx context.Context, adapter DeviceAdapter, dev models.Device, accs map[string]*rollupAcc) {
	pollCtx, cancel := context.WithTimeout(ctx, p.cfg.PollTimeout)
	defer cancel()

	readings, err := adapter.Poll(pollCtx, dev)
	if err != nil {
		metrics.PollError(dev.ID)
		p.log.Warnw("poll failed; keeping last readings", "device", dev.ID, "err", err)
		p.markDegraded(dev.ID)
		return
	}

	for _, r := range readings {
		if err := p.store.Set(cache.NSLive, r.ChannelID, r); err != nil {
			// cache-backend failure degrades to "no live data" for this
			// tick; the next tick retries
			p.log.Errorw("live cache write failed", "channel", r.ChannelID, "err", err)
			continue
		}
		metrics.ReadingProduced(dev.ID)
		p.history.Forward(r)
		p.alerts.OnReading(r)
		p.dispatcher.PublishReading(r)

		acc := accs[r.ChannelID]
		if acc == nil {
			acc = &rollupAcc{}
			accs[r.ChannelID] = acc
		}
		acc.add(r.Temperature)
	}
}

// statusTick advances battery/signal on the slower status clock.
func (p *Poller) statusTick(dev models.Device) {
	now := time.Now().UTC()

	var prev models.DeviceStatus
	if v, err := p.store.Get(cache.NSStatus, dev.ID); err == nil {
		if st, ok := v.(models.DeviceStatus); ok {
			prev = st
		}
	}

	st := p.status.Advance(prev, dev.ID, now)
	if err := p.store.Set(cache.NSStatus, dev.ID, st); err != nil {
		p.log.Errorw("status cache write failed", "device", dev.ID, "err", err)
		return
	}
	p.alerts.OnStatus(st)
	p.dispatcher.PublishStatus(st)
}

// markDegraded keeps the last status but flags connectivity as degraded.
func (p *Poller) markDegraded(deviceID string) {
	st := models.DeviceStatus{DeviceID: deviceID, ConnectionStatus: models.ConnDegraded, LastSeen: time.Now().UTC()}
	if v, err := p.store.Get(cache.NSStatus, deviceID); err == nil {
		if prev, ok := v.(models.DeviceStatus); ok {
			st = prev
			st.ConnectionStatus = models.ConnDegraded
		}
	} else if !errors.Is(err, cache.ErrMiss) {
		return
	}
	_ = p.store.Set(cache.NSStatus, deviceID, st)
	p.alerts.OnStatus(st)
	p.dispatcher.PublishStatus(st)
}

// flushRollups writes the window aggregates and resets the window.
func (p *Poller) flushRollups(accs map[string]*rollupAcc) {
	now := time.Now().UTC()
	for chID, acc := range accs {
		if acc.n == 0 {
			continue
		}
		roll := models.Rollup{
			ChannelID: chID,
			MinF:      acc.min,
			MaxF:      acc.max,
			AvgF:      acc.sum / float64(acc.n),
			Samples:   acc.n,
			UpdatedAt: now,
		}
		if err := p.store.Set(cache.NSRollups, chID, roll); err != nil {
			p.log.Errorw("rollup cache write failed", "channel", chID, "err", err)
			continue
		}
		*acc = rollupAcc{}
	}
}
