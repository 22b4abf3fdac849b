package handlers

import (
	"context"
	"time"

	"grillstream/internal/cache"
	"grillstream/internal/logger"
	"grillstream/internal/models"
	"grillstream/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error
	logoutErr     error

	lastSignUpUsername string
	lastGenUsername    string
	lastParseToken     string
	lastLogoutToken    string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}
func (m *mockAuth) Logout(token string) error {
	m.lastLogoutToken = token
	return m.logoutErr
}

type mockSessions struct {
	startSess *models.CookingSession
	startErr  error
	stopErr   error
	injectEv  *models.SessionEvent
	injectErr error

	lastStartDevice  string
	lastStartChannel string
	lastStartProfile string
	lastStopChannel  string
	lastInjectKind   string
	stopCalled       int
}

func (m *mockSessions) Start(ctx context.Context, deviceID, channelID, profileID string) (*models.CookingSession, error) {
	m.lastStartDevice = deviceID
	m.lastStartChannel = channelID
	m.lastStartProfile = profileID
	return m.startSess, m.startErr
}
func (m *mockSessions) Stop(ctx context.Context, channelID string) error {
	m.stopCalled++
	m.lastStopChannel = channelID
	return m.stopErr
}
func (m *mockSessions) Inject(ctx context.Context, channelID, kind string) (*models.SessionEvent, error) {
	m.lastInjectKind = kind
	return m.injectEv, m.injectErr
}
func (m *mockSessions) Active(channelID string) (*models.CookingSession, bool) {
	return nil, false
}

type mockMonitoring struct {
	snap    models.Snapshot
	snapErr error
	roll    models.Rollup
	rollErr error
}

func (m *mockMonitoring) Snapshot(ctx context.Context, deviceID string) (models.Snapshot, error) {
	return m.snap, m.snapErr
}
func (m *mockMonitoring) Rollup(ctx context.Context, channelID string) (models.Rollup, error) {
	return m.roll, m.rollErr
}

type mockAlerts struct {
	created   models.AlertRule
	createErr error
	deleteErr error
	rules     []models.AlertRule
	rulesErr  error
	firing    []models.AlertInstance

	lastDeleted string
}

func (m *mockAlerts) CreateRule(ctx context.Context, r models.AlertRule) (models.AlertRule, error) {
	if m.createErr != nil {
		return models.AlertRule{}, m.createErr
	}
	if m.created.ID != "" {
		return m.created, nil
	}
	return r, nil
}
func (m *mockAlerts) DeleteRule(ctx context.Context, id string) error {
	m.lastDeleted = id
	return m.deleteErr
}
func (m *mockAlerts) Rules(ctx context.Context) ([]models.AlertRule, error) {
	return m.rules, m.rulesErr
}
func (m *mockAlerts) Firing(deviceID string) []models.AlertInstance {
	return m.firing
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil, nil, Config{})
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func newTestStore() *cache.Store {
	store, err := cache.New(map[string]time.Duration{
		cache.NSTokens:      time.Hour,
		cache.NSLive:        time.Minute,
		cache.NSStatus:      time.Minute,
		cache.NSRollups:     time.Minute,
		cache.NSRateLimit:   time.Minute,
		cache.NSSubscribers: time.Minute,
	})
	if err != nil {
		panic(err)
	}
	return store
}

func testLogger() *logger.Logger {
	return logger.Get(logger.ErrorLevel)
}
