package service

import (
	"context"
	"time"

	"grillstream/internal/cache"
	"grillstream/internal/logger"
	"grillstream/internal/models"
	"grillstream/internal/profile"
	"grillstream/internal/repository"
)

// Config carries every tuning knob the engine reads. Populated from viper
// in main; nothing in here is hard-coded below this layer.
type Config struct {
	PollInterval     time.Duration // device poll cadence
	PollTimeout      time.Duration // per-poll deadline (remote path)
	StatusEvery      int           // status ticks once per N polls
	RollupEvery      int           // rollups recompute once per N polls
	EventProbability float64       // random event injection chance per tick per channel

	DispatchBuffer int // per-subscriber outbound buffer

	SignalFloor      int     // connectivity threshold (%)
	LowSignalProb    float64 // chance per status tick of a transient signal drop
	BatteryResetProb float64 // chance per status tick of a battery swap/recharge

	TokenTTL   time.Duration
	SigningKey string
}

// Authorization is the handler-facing auth surface.
type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
	Logout(accessToken string) error
}

// SessionManager drives cooking sessions per channel.
type SessionManager interface {
	Start(ctx context.Context, deviceID, channelID, profileID string) (*models.CookingSession, error)
	Stop(ctx context.Context, channelID string) error
	Inject(ctx context.Context, channelID, kind string) (*models.SessionEvent, error)
	Active(channelID string) (*models.CookingSession, bool)
}

// Monitoring exposes read-only snapshots assembled from the cache.
type Monitoring interface {
	Snapshot(ctx context.Context, deviceID string) (models.Snapshot, error)
	Rollup(ctx context.Context, channelID string) (models.Rollup, error)
}

// AlertManager exposes rule management and firing-alert queries.
type AlertManager interface {
	CreateRule(ctx context.Context, r models.AlertRule) (models.AlertRule, error)
	DeleteRule(ctx context.Context, id string) error
	Rules(ctx context.Context) ([]models.AlertRule, error)
	Firing(deviceID string) []models.AlertInstance
}

// Service aggregates the engine's sub-services.
type Service struct {
	Authorization
	SessionManager
	Monitoring
	AlertManager

	Profiles   *profile.Library
	Dispatcher *Dispatcher
	Poller     *Poller
}

// NewService wires repositories, cache, profile library and forwarders into
// the composed service graph.
func NewService(
	cfg Config,
	repos *repository.Repository,
	store *cache.Store,
	lib *profile.Library,
	history HistoryForwarder,
	notifier AlertSink,
	log *logger.Logger,
) (*Service, error) {
	engine := NewEngine(lib, cfg.EventProbability)
	sessions := NewSessionService(engine, lib, repos.Devices, log.Component("sessions"))

	alerts, err := NewAlertService(repos.Rules, log.Component("alerts"))
	if err != nil {
		return nil, err
	}

	monitoring := NewMonitoringService(store, repos.Devices, alerts)
	dispatcher := NewDispatcher(cfg.DispatchBuffer, store, monitoring, log.Component("dispatch"))
	alerts.AddSink(dispatcher)
	if notifier != nil {
		alerts.AddSink(notifier)
	}

	status := NewStatusEngine(cfg.SignalFloor, cfg.LowSignalProb, cfg.BatteryResetProb)
	poller := NewPoller(cfg, repos.Devices, sessions, status, store, alerts, dispatcher, history, log.Component("poller"))

	return &Service{
		Authorization:  NewAuthService(repos.Auth, store, cfg.SigningKey, cfg.TokenTTL),
		SessionManager: sessions,
		Monitoring:     monitoring,
		AlertManager:   alerts,
		Profiles:       lib,
		Dispatcher:     dispatcher,
		Poller:         poller,
	}, nil
}
