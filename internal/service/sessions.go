package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"grillstream/internal/logger"
	"grillstream/internal/models"
	"grillstream/internal/profile"
	"grillstream/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrDeviceNotFound  = errors.New("device not found")
	ErrChannelNotFound = errors.New("channel not found")
	ErrNoSession       = errors.New("no active session for channel")
)

// SessionService owns the live sessions, one at most per channel. All
// mutation of session state goes through its lock, so stopping a session
// can never race an in-flight advance: whichever runs second sees the
// other's result.
type SessionService struct {
	engine   *Engine
	lib      *profile.Library
	registry repository.DeviceRegistry
	log      *logger.Logger

	mu        sync.Mutex
	byChannel map[string]*models.CookingSession
}

func NewSessionService(engine *Engine, lib *profile.Library, registry repository.DeviceRegistry, log *logger.Logger) *SessionService {
	return &SessionService{
		engine:    engine,
		lib:       lib,
		registry:  registry,
		log:       log,
		byChannel: make(map[string]*models.CookingSession),
	}
}

// Start creates a session binding profileID to the channel. An unknown
// profile or channel is a configuration error reported here, never at
// advance time. Starting over an existing session replaces it.
func (s *SessionService) Start(ctx context.Context, deviceID, channelID, profileID string) (*models.CookingSession, error) {
	prof, err := s.lib.Get(profileID)
	if err != nil {
		return nil, err
	}

	dev, err := s.registry.Get(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if dev == nil {
		return nil, fmt.Errorf("%w: %q", ErrDeviceNotFound, deviceID)
	}
	found := false
	for _, ch := range dev.Channels {
		if ch.ID == channelID {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %q on device %q", ErrChannelNotFound, channelID, deviceID)
	}

	sess := &models.CookingSession{
		ID:        uuid.NewString(),
		DeviceID:  deviceID,
		ChannelID: channelID,
		ProfileID: prof.ID,
		StartedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	if old, ok := s.byChannel[channelID]; ok {
		s.log.Infow("session replaced", "channel", channelID, "old_session", old.ID)
	}
	s.byChannel[channelID] = sess
	s.mu.Unlock()

	s.log.Infow("session started", "session", sess.ID, "channel", channelID, "profile", prof.ID)
	return sess, nil
}

// Stop ends the channel's session. Idempotent: stopping a channel without
// a session is a no-op.
func (s *SessionService) Stop(ctx context.Context, channelID string) error {
	s.mu.Lock()
	sess, ok := s.byChannel[channelID]
	if ok {
		delete(s.byChannel, channelID)
	}
	s.mu.Unlock()

	if ok {
		s.log.Infow("session stopped", "session", sess.ID, "channel", channelID)
	}
	return nil
}

// Inject applies a one-shot event of the given kind to the channel's
// session. Unknown kinds and missing sessions are configuration errors.
func (s *SessionService) Inject(ctx context.Context, channelID, kind string) (*models.SessionEvent, error) {
	ev, err := s.engine.NewEvent(kind, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byChannel[channelID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoSession, channelID)
	}
	sess.Events = append(sess.Events, ev)
	return &ev, nil
}

// Active returns a copy of the channel's session, if any.
func (s *SessionService) Active(channelID string) (*models.CookingSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byChannel[channelID]
	if !ok {
		return nil, false
	}
	cp := *sess
	return &cp, true
}

// Advance produces the channel's next reading, or ErrNoSession when the
// channel has no session, or ErrSessionComplete once the profile is done
// (the session is then removed, so completion is reported once).
func (s *SessionService) Advance(ch models.Channel, now time.Time) (models.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byChannel[ch.ID]
	if !ok {
		return models.Reading{}, ErrNoSession
	}

	s.engine.MaybeInject(sess, now)
	r, err := s.engine.Advance(sess, now)
	if errors.Is(err, ErrSessionComplete) {
		delete(s.byChannel, ch.ID)
		s.log.Infow("session completed", "session", sess.ID, "channel", ch.ID, "profile", sess.ProfileID)
	}
	return r, err
}
