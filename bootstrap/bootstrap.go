// Package bootstrap wires all dependencies and starts the application.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/artpar/accrue/adapters/cache"
	"github.com/artpar/accrue/adapters/clock"
	apihttp "github.com/artpar/accrue/adapters/http"
	"github.com/artpar/accrue/adapters/idgen"
	"github.com/artpar/accrue/adapters/memory"
	"github.com/artpar/accrue/adapters/metrics"
	"github.com/artpar/accrue/adapters/mqtt"
	"github.com/artpar/accrue/adapters/sqlite"
	"github.com/artpar/accrue/app"
	"github.com/artpar/accrue/config"
	"github.com/artpar/accrue/ports"
)

// purgeInterval is how often expired cache entries are dropped.
const purgeInterval = time.Minute

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	DB         *sqlite.DB // nil with the memory driver
	Store      ports.Store
	Cache      *cache.Memory // nil when caching is disabled
	Metrics    *metrics.Collector
	Tracker    *app.Tracker
	HTTPServer *http.Server

	publisher ports.StatePublisher
	registry  *prometheus.Registry
	clock     ports.Clock
	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Options provides optional settings for application initialization.
type Options struct {
	Version   string
	LogOutput io.Writer            // default os.Stdout
	Clock     ports.Clock          // default clock.Real
	Publisher ports.StatePublisher // overrides the MQTT publisher from config
}

// New creates and initializes the application from cfg.
func New(cfg *config.Config, opts Options) (*App, error) {
	logger := NewLogger(cfg.Logging.Level, cfg.Logging.Format, opts.LogOutput)
	logger.Info().Str("version", opts.Version).Msg("initializing accrue")

	a := &App{
		Logger: logger,
		Config: cfg,
		clock:  opts.Clock,
		stopCh: make(chan struct{}),
	}
	if a.clock == nil {
		a.clock = clock.Real{}
	}

	if cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.Metrics = metrics.NewWithRegistry(a.registry)
		logger.Info().Msg("prometheus metrics enabled")
	}

	if err := a.initStore(); err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		a.close()
		return nil, err
	}

	a.publisher = opts.Publisher
	if a.publisher == nil && cfg.MQTT.Enabled {
		a.publisher = a.connectMQTT()
	}

	a.Tracker = app.NewTracker(a.Store, a.clock, idgen.UUID{}, logger, app.TrackerConfig{
		Location:       loc,
		Publisher:      a.publisher,
		PublishTimeout: cfg.MQTT.PublishTimeout,
		Metrics:        a.Metrics,
	})

	a.initHTTPServer(opts.Version)
	return a, nil
}

func (a *App) initStore() error {
	cfg := a.Config

	var store ports.Store
	if cfg.Database.Driver == config.DriverMemory {
		store = memory.NewStore()
		a.Logger.Warn().Msg("using in-memory storage, data is lost on exit")
	} else {
		db, err := sqlite.Open(cfg.Database.Driver, cfg.Database.Path)
		if err != nil {
			return err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return fmt.Errorf("migrate: %w", err)
		}
		a.DB = db
		store = sqlite.NewStore(db)
		a.Logger.Info().
			Str("driver", db.Driver()).
			Str("path", cfg.Database.Path).
			Msg("database initialized")
	}

	if cfg.Cache.Enabled {
		a.Cache = cache.NewMemory(a.clock, cfg.Cache.TTL)
		store = cache.NewStore(store, a.Cache, 0, a.Metrics)
		a.Logger.Info().Dur("ttl", cfg.Cache.TTL).Msg("read cache enabled")
	}

	a.Store = store
	return nil
}

// connectMQTT returns nil when the broker is unreachable. Publishing is
// best effort and never blocks startup.
func (a *App) connectMQTT() ports.StatePublisher {
	m := a.Config.MQTT
	pub, err := mqtt.New(mqtt.Options{
		Broker:         m.Broker,
		ClientID:       m.ClientID,
		TopicPrefix:    m.TopicPrefix,
		Username:       m.Username,
		Password:       m.Password,
		QoS:            byte(m.QoS),
		Retain:         m.Retain,
		ConnectTimeout: m.ConnectTimeout,
		PublishTimeout: m.PublishTimeout,
	})
	if err != nil {
		a.Logger.Warn().Err(err).Str("broker", m.Broker).Msg("mqtt unavailable, state publishing disabled")
		return nil
	}
	a.Logger.Info().Str("broker", m.Broker).Str("topic_prefix", m.TopicPrefix).Msg("mqtt state publishing enabled")
	return pub
}

func (a *App) initHTTPServer(version string) {
	cfg := a.Config

	var health *apihttp.HealthHandler
	if a.DB != nil {
		health = apihttp.NewHealthHandler(a.DB)
	} else {
		health = apihttp.NewHealthHandler(nil)
	}

	routerCfg := apihttp.RouterConfig{
		Metrics:        a.Metrics,
		EnableOpenAPI:  cfg.OpenAPI.Enabled,
		Version:        version,
		RequestTimeout: cfg.Server.RequestTimeout,
	}
	if a.registry != nil {
		routerCfg.MetricsHandler = promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
	}

	handler := apihttp.NewHandler(a.Tracker, a.Logger)
	router := apihttp.NewRouter(handler, health, a.Logger, routerCfg)

	a.HTTPServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	a.Logger.Info().Str("addr", a.HTTPServer.Addr).Msg("http server configured")
}

// ApplyConfig applies the reloadable settings of cfg to the running app.
func (a *App) ApplyConfig(cfg *config.Config) {
	level := SetLogLevel(cfg.Logging.Level)

	if a.Cache != nil {
		a.Cache.SetDefaultTTL(cfg.Cache.TTL)
	}

	if loc, err := cfg.Location(); err == nil {
		a.Tracker.SetLocation(loc)
	} else {
		a.Logger.Error().Err(err).Msg("keeping previous timezone")
	}

	if a.Metrics != nil {
		a.Metrics.ConfigReloads.Inc()
		a.Metrics.ConfigLastReload.SetToCurrentTime()
	}
	a.Logger.Info().
		Str("log_level", level.String()).
		Dur("cache_ttl", cfg.Cache.TTL).
		Str("timezone", a.Tracker.Location().String()).
		Msg("configuration applied")
}

// Watch subscribes the app to h and starts its file and signal watchers.
func (a *App) Watch(h *config.Holder) error {
	h.OnChange(a.ApplyConfig)
	h.WatchSignals()
	if err := h.WatchFile(); err != nil {
		if a.Metrics != nil {
			a.Metrics.ConfigReloadErrors.Inc()
		}
		return err
	}
	return nil
}

// Run starts the HTTP server and blocks until ctx is done, SIGINT/SIGTERM
// arrives or the server fails.
func (a *App) Run(ctx context.Context) error {
	a.startJanitor()

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		a.Shutdown()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case <-ctx.Done():
		a.Logger.Info().Msg("context cancelled, shutting down")
	}

	return a.Shutdown()
}

// startJanitor periodically purges expired cache entries.
func (a *App) startJanitor() {
	if a.Cache == nil {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(purgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := a.Cache.Purge(); n > 0 {
					a.Logger.Debug().Int("purged", n).Msg("cache entries expired")
				}
			case <-a.stopCh:
				return
			}
		}
	}()
}

// Shutdown gracefully stops the application. It is safe to call twice.
func (a *App) Shutdown() error {
	var err error
	a.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if a.HTTPServer != nil {
			if serr := a.HTTPServer.Shutdown(ctx); serr != nil {
				a.Logger.Error().Err(serr).Msg("http server shutdown error")
				err = serr
			}
		}
		close(a.stopCh)
		a.wg.Wait()
		a.close()
		a.Logger.Info().Msg("shutdown complete")
	})
	return err
}

func (a *App) close() {
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
	}
}
