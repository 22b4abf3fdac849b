package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Namespace names. Each namespace is an independent map with its own TTL so
// eviction pressure in one can never leak into another.
const (
	NSTokens      = "tokens"      // issued auth tokens; long TTL, invalidated on logout
	NSLive        = "live"        // latest reading per channel; short TTL
	NSStatus      = "status"      // battery/signal/connectivity per device
	NSRollups     = "rollups"     // recent min/max/avg per channel
	NSRateLimit   = "ratelimit"   // fixed-window request counters
	NSSubscribers = "subscribers" // stream subscription bookkeeping
)

var (
	// ErrMiss is returned on a missing or expired key.
	ErrMiss = errors.New("cache miss")
	// ErrUnknownNamespace is returned when a namespace was never configured.
	ErrUnknownNamespace = errors.New("unknown cache namespace")
)

type entry struct {
	value     any
	expiresAt time.Time
}

type namespace struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry
}

// Observer receives cache traffic notifications, for metrics.
type Observer interface {
	Hit(namespace string)
	Miss(namespace string)
	Evict(namespace string, n int)
}

type nopObserver struct{}

func (nopObserver) Hit(string)        {}
func (nopObserver) Miss(string)       {}
func (nopObserver) Evict(string, int) {}

// Store is the arena of namespaces. Safe for concurrent use; each namespace
// carries its own lock so writers on different namespaces never contend.
type Store struct {
	namespaces map[string]*namespace
	obs        Observer
	now        func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithObserver attaches a traffic observer.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.obs = o }
}

// WithClock overrides the time source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New builds a store with one namespace per entry of ttls.
func New(ttls map[string]time.Duration, opts ...Option) (*Store, error) {
	s := &Store{
		namespaces: make(map[string]*namespace, len(ttls)),
		obs:        nopObserver{},
		now:        time.Now,
	}
	for name, ttl := range ttls {
		if ttl <= 0 {
			return nil, fmt.Errorf("cache namespace %q: non-positive ttl %v", name, ttl)
		}
		s.namespaces[name] = &namespace{ttl: ttl, entries: make(map[string]entry)}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) ns(name string) (*namespace, error) {
	n, ok := s.namespaces[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNamespace, name)
	}
	return n, nil
}

// Set writes a value. The expiry is always refreshed from the write time.
func (s *Store) Set(name, key string, value any) error {
	n, err := s.ns(name)
	if err != nil {
		return err
	}
	n.mu.Lock()
	n.entries[key] = entry{value: value, expiresAt: s.now().Add(n.ttl)}
	n.mu.Unlock()
	return nil
}

// Get returns the value for key or ErrMiss. Expired entries are evicted
// lazily here; the sweeper catches the rest.
func (s *Store) Get(name, key string) (any, error) {
	n, err := s.ns(name)
	if err != nil {
		return nil, err
	}
	n.mu.RLock()
	e, ok := n.entries[key]
	n.mu.RUnlock()
	if ok && s.now().Before(e.expiresAt) {
		s.obs.Hit(name)
		return e.value, nil
	}
	if ok {
		// expired: evict under write lock, re-checking in case of a
		// concurrent refresh
		n.mu.Lock()
		if cur, still := n.entries[key]; still && !s.now().Before(cur.expiresAt) {
			delete(n.entries, key)
			s.obs.Evict(name, 1)
		}
		n.mu.Unlock()
	}
	s.obs.Miss(name)
	return nil, ErrMiss
}

// Delete removes a key immediately (explicit invalidation, e.g. logout).
func (s *Store) Delete(name, key string) error {
	n, err := s.ns(name)
	if err != nil {
		return err
	}
	n.mu.Lock()
	delete(n.entries, key)
	n.mu.Unlock()
	return nil
}

// Increment bumps an integer counter. The window expiry is fixed when the
// counter is created and is not extended by later increments, so the whole
// counter expires atomically at window end.
func (s *Store) Increment(name, key string, delta int64) (int64, error) {
	n, err := s.ns(name)
	if err != nil {
		return 0, err
	}
	now := s.now()
	n.mu.Lock()
	defer n.mu.Unlock()
	e, ok := n.entries[key]
	if !ok || !now.Before(e.expiresAt) {
		n.entries[key] = entry{value: delta, expiresAt: now.Add(n.ttl)}
		return delta, nil
	}
	v, _ := e.value.(int64)
	v += delta
	e.value = v
	n.entries[key] = e
	return v, nil
}

// Len reports live (non-expired) entries in a namespace.
func (s *Store) Len(name string) (int, error) {
	n, err := s.ns(name)
	if err != nil {
		return 0, err
	}
	now := s.now()
	n.mu.RLock()
	defer n.mu.RUnlock()
	count := 0
	for _, e := range n.entries {
		if now.Before(e.expiresAt) {
			count++
		}
	}
	return count, nil
}

// Sweep removes every expired entry across all namespaces and returns the
// total evicted.
func (s *Store) Sweep() int {
	total := 0
	now := s.now()
	for name, n := range s.namespaces {
		evicted := 0
		n.mu.Lock()
		for key, e := range n.entries {
			if !now.Before(e.expiresAt) {
				delete(n.entries, key)
				evicted++
			}
		}
		n.mu.Unlock()
		if evicted > 0 {
			s.obs.Evict(name, evicted)
			total += evicted
		}
	}
	return total
}

// RunSweeper sweeps on the given interval until ctx is canceled. The
// staleness bound per namespace is its TTL plus at most one interval.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep()
		}
	}
}
