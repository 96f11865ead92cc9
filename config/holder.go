package config

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// settleDelay coalesces the burst of events editors emit for one save.
const settleDelay = 100 * time.Millisecond

// Holder keeps the configuration in effect and reloads the reloadable parts
// of it when the file changes or SIGHUP arrives.
type Holder struct {
	mu        sync.RWMutex
	current   *Config
	path      string
	logger    zerolog.Logger
	watcher   *fsnotify.Watcher
	listeners []func(*Config)
	done      chan struct{}
	stopOnce  sync.Once
}

// NewHolder loads path and returns a holder for it.
func NewHolder(path string, logger zerolog.Logger) (*Holder, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}

	return &Holder{
		current: cfg,
		path:    absPath,
		logger:  logger.With().Str("component", "config").Logger(),
		done:    make(chan struct{}),
	}, nil
}

// Get returns the configuration in effect.
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload reads the file again. A file that fails to load or validate leaves
// the current configuration in place. Fields that need a restart keep their
// running values, so Get always describes what the process is doing.
// Listeners run only when something reloadable changed.
func (h *Holder) Reload() error {
	next, err := Load(h.path)
	if err != nil {
		h.logger.Error().Err(err).Str("path", h.path).Msg("config reload failed, keeping current config")
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	prev := h.current
	pinned := pinRestartOnly(prev, next)
	if *next == *prev {
		h.mu.Unlock()
		h.warnPinned(pinned)
		h.logger.Debug().Str("path", h.path).Msg("configuration unchanged")
		return nil
	}
	h.current = next
	listeners := append([]func(*Config){}, h.listeners...)
	h.mu.Unlock()

	h.warnPinned(pinned)
	h.logChanges(prev, next)
	for _, fn := range listeners {
		fn(next)
	}

	h.logger.Info().Str("path", h.path).Msg("configuration reloaded")
	return nil
}

// OnChange registers fn to receive every applied configuration.
func (h *Holder) OnChange(fn func(*Config)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

// WatchFile reloads whenever the config file is written or replaced.
func (h *Holder) WatchFile() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	// Watch the directory so atomic saves (rename over the file) are seen.
	if err := watcher.Add(filepath.Dir(h.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}
	h.watcher = watcher

	go h.watchLoop()

	h.logger.Info().Str("path", h.path).Msg("watching config file for changes")
	return nil
}

// WatchSignals reloads on SIGHUP until Stop.
func (h *Holder) WatchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go func() {
		defer signal.Stop(sigCh)
		for {
			select {
			case <-sigCh:
				h.logger.Info().Msg("received SIGHUP")
				h.Reload()
			case <-h.done:
				return
			}
		}
	}()
}

// Stop ends file and signal watching. It is safe to call more than once.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		if h.watcher != nil {
			h.watcher.Close()
		}
	})
}

func (h *Holder) watchLoop() {
	name := filepath.Base(h.path)

	settle := time.NewTimer(settleDelay)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			h.logger.Debug().Str("event", event.Op.String()).Msg("config file changed")
			settle.Reset(settleDelay)

		case <-settle.C:
			h.Reload()

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("config watcher error")

		case <-h.done:
			return
		}
	}
}

// pinRestartOnly copies the restart-only sections of prev into next and
// returns the names of those that differed.
func pinRestartOnly(prev, next *Config) []string {
	var pinned []string
	if next.Server != prev.Server {
		pinned = append(pinned, "server")
		next.Server = prev.Server
	}
	if next.Database != prev.Database {
		pinned = append(pinned, "database")
		next.Database = prev.Database
	}
	if next.Cache.Enabled != prev.Cache.Enabled {
		pinned = append(pinned, "cache.enabled")
		next.Cache.Enabled = prev.Cache.Enabled
	}
	if next.Metrics != prev.Metrics {
		pinned = append(pinned, "metrics")
		next.Metrics = prev.Metrics
	}
	if next.OpenAPI != prev.OpenAPI {
		pinned = append(pinned, "openapi")
		next.OpenAPI = prev.OpenAPI
	}
	if next.MQTT != prev.MQTT {
		pinned = append(pinned, "mqtt")
		next.MQTT = prev.MQTT
	}
	if next.Logging.Format != prev.Logging.Format {
		pinned = append(pinned, "logging.format")
		next.Logging.Format = prev.Logging.Format
	}
	return pinned
}

func (h *Holder) warnPinned(pinned []string) {
	if len(pinned) > 0 {
		h.logger.Warn().Strs("sections", pinned).Msg("ignoring changes that need a restart")
	}
}

func (h *Holder) logChanges(prev, next *Config) {
	if prev.Logging.Level != next.Logging.Level {
		h.logger.Info().
			Str("old", prev.Logging.Level).
			Str("new", next.Logging.Level).
			Msg("log level changed")
	}

	if prev.Cache.TTL != next.Cache.TTL {
		h.logger.Info().
			Dur("old", prev.Cache.TTL).
			Dur("new", next.Cache.TTL).
			Msg("cache ttl changed")
	}

	if prev.Engine.Timezone != next.Engine.Timezone {
		h.logger.Info().
			Str("old", prev.Engine.Timezone).
			Str("new", next.Engine.Timezone).
			Msg("timezone changed")
	}
}

// ReloadableFields returns which fields can be changed without restart.
func ReloadableFields() []string {
	return []string{
		"logging.level",
		"cache.ttl",
		"engine.timezone",
	}
}

// NonReloadableFields returns which fields require a restart.
func NonReloadableFields() []string {
	return []string{
		"server.host",
		"server.port",
		"database.driver",
		"database.path",
		"cache.enabled",
		"logging.format",
		"metrics",
		"openapi",
		"mqtt",
	}
}
