package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grillstream/internal/cache"
	"grillstream/internal/handlers"
	"grillstream/internal/logger"
	"grillstream/internal/metrics"
	"grillstream/internal/notify"
	"grillstream/internal/profile"
	"grillstream/internal/repository"
	"grillstream/internal/repository/db"
	"grillstream/internal/server"
	"grillstream/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
)

func main() {
	cfgErr := loadConfig()

	log := logger.Get(viper.GetString("log.level"))
	if cfgErr != nil {
		log.Fatalw("error reading config", "err", cfgErr)
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	conn, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	store, err := cache.New(cacheTTLs(), cache.WithObserver(metrics.CacheObserver{}))
	if err != nil {
		log.Fatalw("failed to build cache", "err", err)
	}

	lib, err := profile.DefaultLibrary()
	if err != nil {
		log.Fatalw("failed to build profile library", "err", err)
	}

	history := newHistoryForwarder(log)
	defer history.Close()

	repos := repository.NewRepository(conn)
	services, err := service.NewService(serviceConfig(), repos, store, lib, history, newNotifier(log), log)
	if err != nil {
		log.Fatalw("failed to wire services", "err", err)
	}

	apiHandler := handlers.NewHandler(services, store, log, handlers.Config{
		RateLimit: viper.GetInt("http.rate_limit"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go store.RunSweeper(ctx, durationOr("cache.sweep_interval", 30*time.Second))
	go services.Dispatcher.RunReaper(ctx, durationOr("stream.reap_interval", time.Minute))
	go func() {
		if err := services.Poller.Run(ctx); err != nil {
			log.Errorw("poller stopped", "err", err)
		}
	}()

	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	waitForShutdown(cancel, srv, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "grillstream.db")
		dbPath = "grillstream.db"
	}
	return db.InitDB(dbPath)
}

// cacheTTLs maps configured TTLs onto the cache namespaces, with
// defaults tuned for a 1s poll cadence.
func cacheTTLs() map[string]time.Duration {
	return map[string]time.Duration{
		cache.NSTokens:      durationOr("cache.ttl.tokens", 12*time.Hour),
		cache.NSLive:        durationOr("cache.ttl.live", 15*time.Second),
		cache.NSStatus:      durationOr("cache.ttl.status", time.Minute),
		cache.NSRollups:     durationOr("cache.ttl.rollups", 5*time.Minute),
		cache.NSRateLimit:   durationOr("cache.ttl.ratelimit", time.Minute),
		cache.NSSubscribers: durationOr("cache.ttl.subscribers", 2*time.Minute),
	}
}

func serviceConfig() service.Config {
	return service.Config{
		PollInterval:     durationOr("poll.interval", time.Second),
		PollTimeout:      durationOr("poll.timeout", 2*time.Second),
		StatusEvery:      intOr("poll.status_every", 10),
		RollupEvery:      intOr("poll.rollup_every", 30),
		EventProbability: viper.GetFloat64("sim.event_probability"),
		DispatchBuffer:   intOr("stream.buffer", 32),
		SignalFloor:      intOr("status.signal_floor", 20),
		LowSignalProb:    viper.GetFloat64("status.low_signal_probability"),
		BatteryResetProb: viper.GetFloat64("status.battery_reset_probability"),
		TokenTTL:         durationOr("auth.token_ttl", 12*time.Hour),
		SigningKey:       viper.GetString("auth.signing_key"),
	}
}

// newHistoryForwarder picks the InfluxDB forwarder when configured,
// otherwise readings stay cache-only.
func newHistoryForwarder(log *logger.Logger) service.HistoryForwarder {
	if !viper.GetBool("influx.enabled") {
		return service.NopForwarder{}
	}
	return service.NewInfluxForwarder(service.InfluxConfig{
		URL:    viper.GetString("influx.url"),
		Token:  viper.GetString("influx.token"),
		Org:    viper.GetString("influx.org"),
		Bucket: viper.GetString("influx.bucket"),
	}, log.Component("history"))
}

// newNotifier delivers alert transitions to the configured webhook, or
// to the log when none is set.
func newNotifier(log *logger.Logger) service.AlertSink {
	notifyLog := log.Component("notify")
	if url := viper.GetString("notify.webhook_url"); url != "" {
		ch, err := notify.NewWebhookChannel(url)
		if err != nil {
			log.Fatalw("invalid webhook url", "err", err)
		}
		return notify.NewNotifier(ch, notifyLog)
	}
	return notify.NewNotifier(notify.NewLogChannel(notifyLog), notifyLog)
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if d := viper.GetDuration(key); d > 0 {
		return d
	}
	return fallback
}

func intOr(key string, fallback int) int {
	if v := viper.GetInt(key); v > 0 {
		return v
	}
	return fallback
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
