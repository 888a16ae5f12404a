// Package bootstrap wires all dependencies and starts the application.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/pathtracker/pathtracker/adapters/clock"
	"github.com/pathtracker/pathtracker/adapters/hasher"
	"github.com/pathtracker/pathtracker/adapters/idgen"
	"github.com/pathtracker/pathtracker/adapters/metrics"
	"github.com/pathtracker/pathtracker/adapters/random"
	"github.com/pathtracker/pathtracker/adapters/sqlite"
	"github.com/pathtracker/pathtracker/app"
	"github.com/pathtracker/pathtracker/config"
	"github.com/pathtracker/pathtracker/web"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	DB         *sqlite.DB
	HTTPServer *http.Server
	Metrics    *metrics.Collector

	auth     *app.AuthService
	tracking *app.TrackingService
	sessions *app.SessionService

	holder *config.Holder
	stopCh chan struct{}

	purgeInterval time.Duration
}

// New creates and initializes the application from a loaded config.
func New(cfg *config.Config) (*App, error) {
	a := &App{
		Logger: SetupLogger(cfg.Logging),
		stopCh: make(chan struct{}),
	}
	if err := a.init(cfg); err != nil {
		return nil, err
	}
	return a, nil
}

// NewWithHotReload creates the application with a watched config file.
// Only the reloadable fields take effect without restart; see
// config.ReloadableFields.
func NewWithHotReload(path string) (*App, error) {
	logger := SetupLogger(config.LoggingConfig{Level: "info", Format: "json"})

	holder, err := config.NewHolder(path, logger)
	if err != nil {
		return nil, err
	}
	cfg := holder.Get()

	a := &App{
		Logger: SetupLogger(cfg.Logging),
		holder: holder,
		stopCh: make(chan struct{}),
	}
	if err := a.init(cfg); err != nil {
		holder.Stop()
		return nil, err
	}

	holder.OnChange(func(newCfg *config.Config) {
		if level, err := zerolog.ParseLevel(newCfg.Logging.Level); err == nil {
			zerolog.SetGlobalLevel(level)
		}
		a.tracking.SetLimits(newCfg.Tracking.DefaultBodyLimitBytes, newCfg.Tracking.MaxBatchSize)
		a.sessions.SetDefaultTTL(newCfg.Sessions.TTL)
		if a.Metrics != nil {
			a.Metrics.ConfigReloads.Inc()
			a.Metrics.ConfigLastReload.SetToCurrentTime()
		}
	})
	holder.OnReloadError(func(error) {
		if a.Metrics != nil {
			a.Metrics.ConfigReloadErrors.Inc()
		}
	})
	if err := holder.WatchFile(); err != nil {
		a.Logger.Warn().Err(err).Msg("config file watch unavailable")
	}
	holder.WatchSignals()

	return a, nil
}

func (a *App) init(cfg *config.Config) error {
	a.Logger.Info().Msg("initializing pathtracker")

	db, err := sqlite.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.DB = db
	a.Logger.Info().Str("dsn", cfg.Database.DSN).Msg("database ready")

	if cfg.Metrics.Enabled {
		a.Metrics = metrics.New()
		a.Logger.Info().Msg("prometheus metrics enabled")
	}

	clk := clock.Real{}
	ids := idgen.UUID{}
	rnd := random.Real{}
	bcrypt := hasher.NewBcrypt(hasher.DefaultCost)

	keyStore := sqlite.NewKeyStore(db)
	tenantStore := sqlite.NewTenantStore(db)
	eventStore := sqlite.NewEventStore(db)
	sessionStore := sqlite.NewSessionStore(db)

	a.auth = app.NewAuthService(keyStore, bcrypt, clk, a.Logger)
	a.tracking = app.NewTrackingService(app.TrackingDeps{
		Events:           eventStore,
		Tenants:          tenantStore,
		Clock:            clk,
		IDGen:            ids,
		Log:              a.Logger,
		DefaultBodyLimit: cfg.Tracking.DefaultBodyLimitBytes,
		MaxBatchSize:     cfg.Tracking.MaxBatchSize,
	})
	a.sessions = app.NewSessionService(sessionStore, tenantStore, rnd, clk, ids)
	a.sessions.SetDefaultTTL(cfg.Sessions.TTL)

	handler := web.NewHandler(web.Deps{
		Auth:      a.auth,
		Tracking:  a.tracking,
		Query:     app.NewQueryService(eventStore),
		Keys:      app.NewKeyService(keyStore, bcrypt, rnd, clk, ids),
		Sessions:  a.sessions,
		Settings:  app.NewSettingsService(tenantStore, clk, ids),
		DB:        db.DB,
		Collector: a.Metrics,
		Logger:    a.Logger,
	})

	a.HTTPServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	a.purgeInterval = cfg.Sessions.PurgeInterval

	return nil
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run() error {
	go a.purgeLoop()

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	close(a.stopCh)

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	// Drain in-flight usage bumps before the store goes away.
	if a.auth != nil {
		a.auth.Wait()
	}

	if a.holder != nil {
		a.holder.Stop()
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

// purgeLoop sweeps expired dashboard sessions on an interval.
func (a *App) purgeLoop() {
	interval := a.purgeInterval
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			n, err := a.sessions.PurgeExpired(ctx)
			cancel()
			if err != nil {
				a.Logger.Warn().Err(err).Msg("session purge failed")
			} else if n > 0 {
				a.Logger.Debug().Int64("deleted", n).Msg("purged expired sessions")
			}
		case <-a.stopCh:
			return
		}
	}
}

// SetupLogger builds the process logger and sets the global level.
func SetupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
