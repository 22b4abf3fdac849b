package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"grillstream/internal/logger"
	"grillstream/internal/metrics"
	"grillstream/internal/models"
	"grillstream/internal/repository"

	"github.com/google/uuid"
)

// AlertSink receives externally observable alert transitions (firing and
// resolved only; pending is internal).
type AlertSink interface {
	OnAlert(t models.AlertTransition)
}

// AlertService evaluates every rule scoped to an incoming reading or
// status tick. One small state machine per rule instance:
//
//	none -> pending -> firing -> resolved -> none
//
// pending promotes to firing only after the condition holds continuously
// for the rule's debounce window; firing demotes only after the condition
// stops holding for the same window (hysteresis).
type AlertService struct {
	repo repository.RuleRepo
	log  *logger.Logger

	mu        sync.Mutex
	rules     map[string]models.AlertRule
	byChannel map[string][]string // channelID -> rule ids (temp kinds)
	byDevice  map[string][]string // deviceID -> rule ids (status kinds)
	instances map[string]*models.AlertInstance
	sinks     []AlertSink
}

// NewAlertService loads persisted rules and builds the evaluation indexes.
func NewAlertService(repo repository.RuleRepo, log *logger.Logger) (*AlertService, error) {
	s := &AlertService{
		repo:      repo,
		log:       log,
		rules:     make(map[string]models.AlertRule),
		byChannel: make(map[string][]string),
		byDevice:  make(map[string][]string),
		instances: make(map[string]*models.AlertInstance),
	}
	rules, err := repo.List(context.Background())
	if err != nil {
		return nil, fmt.Errorf("load alert rules: %w", err)
	}
	for _, r := range rules {
		s.index(r)
	}
	return s, nil
}

// AddSink registers a transition consumer. Not safe to call after the
// poll loops start.
func (s *AlertService) AddSink(sink AlertSink) {
	s.sinks = append(s.sinks, sink)
}

func (s *AlertService) index(r models.AlertRule) {
	s.rules[r.ID] = r
	switch r.Kind {
	case models.AlertHighTemp, models.AlertLowTemp:
		s.byChannel[r.ChannelID] = append(s.byChannel[r.ChannelID], r.ID)
	default:
		s.byDevice[r.DeviceID] = append(s.byDevice[r.DeviceID], r.ID)
	}
	s.instances[r.ID] = &models.AlertInstance{Rule: r, State: models.AlertNone}
}

func (s *AlertService) unindex(id string) {
	r, ok := s.rules[id]
	if !ok {
		return
	}
	delete(s.rules, id)
	delete(s.instances, id)
	strip := func(ids []string) []string {
		out := ids[:0]
		for _, v := range ids {
			if v != id {
				out = append(out, v)
			}
		}
		return out
	}
	s.byChannel[r.ChannelID] = strip(s.byChannel[r.ChannelID])
	s.byDevice[r.DeviceID] = strip(s.byDevice[r.DeviceID])
}

// CreateRule validates, persists and activates a rule. Malformed rules are
// rejected here and never reach evaluation.
func (s *AlertService) CreateRule(ctx context.Context, r models.AlertRule) (models.AlertRule, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if err := r.Validate(); err != nil {
		return models.AlertRule{}, err
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return models.AlertRule{}, err
	}
	s.mu.Lock()
	s.index(r)
	s.mu.Unlock()
	return r, nil
}

// DeleteRule removes a rule and its instance.
func (s *AlertService) DeleteRule(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	s.unindex(id)
	s.mu.Unlock()
	return nil
}

// Rules lists persisted rules.
func (s *AlertService) Rules(ctx context.Context) ([]models.AlertRule, error) {
	return s.repo.List(ctx)
}

// Firing returns the currently firing instances for a device.
func (s *AlertService) Firing(deviceID string) []models.AlertInstance {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AlertInstance
	for _, inst := range s.instances {
		if inst.State == models.AlertFiring && inst.Rule.DeviceID == deviceID {
			out = append(out, *inst)
		}
	}
	return out
}

// OnReading evaluates every temperature rule scoped to the reading's
// channel. Safe for concurrent callers across devices.
func (s *AlertService) OnReading(r models.Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.byChannel[r.ChannelID] {
		rule := s.rules[id]
		var cond bool
		switch rule.Kind {
		case models.AlertHighTemp:
			cond = r.Temperature >= rule.ThresholdF
		case models.AlertLowTemp:
			cond = r.Temperature <= rule.ThresholdF
		}
		s.step(s.instances[id], cond, r.Temperature, r.Timestamp)
	}
}

// OnStatus evaluates disconnect/battery rules against a status snapshot.
func (s *AlertService) OnStatus(st models.DeviceStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.byDevice[st.DeviceID] {
		rule := s.rules[id]
		var cond bool
		var value float64
		switch rule.Kind {
		case models.AlertDisconnect:
			cond = st.ConnectionStatus != models.ConnOnline
			value = float64(st.SignalPct)
		case models.AlertLowBattery:
			cond = float64(st.BatteryPct) <= rule.ThresholdF
			value = float64(st.BatteryPct)
		}
		s.step(s.instances[id], cond, value, st.LastSeen)
	}
}

// step advances one instance's state machine. Caller holds s.mu.
func (s *AlertService) step(inst *models.AlertInstance, cond bool, value float64, now time.Time) {
	inst.LastValue = value
	switch inst.State {
	case models.AlertNone:
		if cond {
			inst.State = models.AlertPending
			inst.FirstObservedAt = now
			inst.LastObservedAt = now
			// a zero debounce window fires on the first sample
			if inst.Rule.Debounce == 0 {
				inst.State = models.AlertFiring
				s.emit(inst, now)
			}
		}
	case models.AlertPending:
		if !cond {
			inst.State = models.AlertNone
			return
		}
		inst.LastObservedAt = now
		if now.Sub(inst.FirstObservedAt) >= inst.Rule.Debounce {
			inst.State = models.AlertFiring
			s.emit(inst, now)
		}
	case models.AlertFiring:
		if cond {
			inst.LastObservedAt = now
			return
		}
		if now.Sub(inst.LastObservedAt) >= inst.Rule.Debounce {
			inst.State = models.AlertResolved
			s.emit(inst, now)
			// resolved is transient; the instance is immediately re-armed
			inst.State = models.AlertNone
			inst.FirstObservedAt = time.Time{}
			inst.LastObservedAt = time.Time{}
		}
	}
}

// emit notifies sinks of a firing/resolved transition. Caller holds s.mu;
// sinks must not call back into the service.
func (s *AlertService) emit(inst *models.AlertInstance, now time.Time) {
	t := models.AlertTransition{
		DeviceID:  inst.Rule.DeviceID,
		ChannelID: inst.Rule.ChannelID,
		RuleID:    inst.Rule.ID,
		Kind:      inst.Rule.Kind,
		State:     inst.State,
		Value:     inst.LastValue,
		At:        now,
	}
	metrics.AlertTransition(t.Kind, string(t.State))
	s.log.Infow("alert transition", "rule", t.RuleID, "kind", t.Kind, "state", t.State, "value", t.Value)
	for _, sink := range s.sinks {
		sink.OnAlert(t)
	}
}
