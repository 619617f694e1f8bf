package engine

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/juju/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/redbco/redb-docstore/pkg/anchor/adapter"
	"github.com/redbco/redb-docstore/pkg/config"
	"github.com/redbco/redb-docstore/pkg/health"
	"github.com/redbco/redb-docstore/pkg/logger"
	"github.com/redbco/redb-docstore/services/anchor/internal/database"
	"github.com/redbco/redb-docstore/services/anchor/internal/database/mongodb"
)

// Engine wires the configuration, the adapter registry, health checks and
// the metrics endpoint of the anchor service.
type Engine struct {
	config  *config.Config
	logger  *logger.Logger
	clock   clock.Clock
	drivers []adapter.Driver

	metricsRegistry *prometheus.Registry
	metrics         *database.Metrics
	health          *health.Checker
	manager         *database.ConnectionManager
	httpServer      *http.Server

	state struct {
		sync.Mutex
		isRunning bool
	}
	stopHealthLoop context.CancelFunc
	wg             sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used for retries, ready timeouts and health checks.
func WithClock(clk clock.Clock) Option {
	return func(e *Engine) {
		e.clock = clk
	}
}

// WithDrivers replaces the MongoDB drivers registered by default.
func WithDrivers(drivers ...adapter.Driver) Option {
	return func(e *Engine) {
		e.drivers = drivers
	}
}

func NewEngine(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	e := &Engine{
		config:          cfg,
		clock:           clock.WallClock,
		drivers:         mongodb.Drivers(),
		metricsRegistry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(e)
	}

	metrics, err := database.NewMetrics(e.metricsRegistry)
	if err != nil {
		return nil, err
	}
	e.metrics = metrics
	e.health = health.NewCheckerWithClock(e.clock)

	return e, nil
}

// SetLogger sets the logger for the engine
func (e *Engine) SetLogger(logger *logger.Logger) {
	e.logger = logger
}

// Manager returns the connection manager, nil before Start.
func (e *Engine) Manager() *database.ConnectionManager {
	e.state.Lock()
	defer e.state.Unlock()
	return e.manager
}

// Start registers the configured drivers and loads the configured adapters.
// It fails if any adapter does not become ready.
func (e *Engine) Start(ctx context.Context) error {
	e.state.Lock()
	defer e.state.Unlock()

	if e.state.isRunning {
		return fmt.Errorf("engine is already running")
	}

	if err := e.config.Validate(e.driverNames()); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	manager := database.NewConnectionManager(e.config.Common,
		database.WithLogger(e.logger),
		database.WithMetrics(e.metrics),
		database.WithHealthChecker(e.health),
		database.WithRegistryOptions(
			adapter.WithRegistryClock(e.clock),
			adapter.WithRegistryRetryDelay(e.config.Anchor.RetryDelay),
			adapter.WithReadyTimeout(e.config.Anchor.ReadyTimeout),
		),
	)

	if err := manager.RegisterAll(e.selectedDrivers()...); err != nil {
		return fmt.Errorf("failed to register adapters: %w", err)
	}

	requests := make([]database.LoadRequest, 0, len(e.config.Load))
	for _, l := range e.config.Load {
		requests = append(requests, database.LoadRequest{Name: l.Name, Config: l.Config})
	}
	if err := manager.LoadAll(ctx, requests); err != nil {
		if closeErr := manager.DisconnectAll(context.Background()); closeErr != nil {
			e.safeLog("warn", "Failed to release adapters after load failure: %v", closeErr)
		}
		return fmt.Errorf("failed to load adapters: %w", err)
	}
	e.manager = manager

	healthCtx, cancel := context.WithCancel(context.Background())
	e.stopHealthLoop = cancel
	e.wg.Add(1)
	go e.healthLoop(healthCtx)

	if e.config.Anchor.MetricsAddr != "" {
		e.startHTTPServer(e.config.Anchor.MetricsAddr)
	}

	e.state.isRunning = true
	e.safeLog("info", "Anchor engine started with %d adapters", len(requests))
	return nil
}

// Stop closes every adapter and the metrics endpoint.
func (e *Engine) Stop(ctx context.Context) error {
	e.state.Lock()
	defer e.state.Unlock()

	if !e.state.isRunning {
		return nil
	}
	e.state.isRunning = false

	e.stopHealthLoop()
	e.wg.Wait()

	var errs error
	if e.httpServer != nil {
		if err := e.httpServer.Shutdown(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to stop metrics server: %w", err))
		}
		e.httpServer = nil
	}
	errs = multierr.Append(errs, e.manager.DisconnectAll(ctx))

	if errs == nil {
		e.safeLog("info", "Anchor engine stopped")
	}
	return errs
}

// Run starts the engine, blocks until ctx is done, then stops it within
// the configured shutdown timeout.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	e.safeLog("info", "Shutting down anchor engine")

	stopCtx, cancel := context.WithTimeout(context.Background(), e.config.Anchor.ShutdownTimeout)
	defer cancel()
	return e.Stop(stopCtx)
}

// CheckHealth returns an error unless every adapter is ready.
func (e *Engine) CheckHealth() error {
	e.state.Lock()
	running, manager := e.state.isRunning, e.manager
	e.state.Unlock()

	if !running {
		return fmt.Errorf("engine is not running")
	}

	if status := manager.CheckHealth(); status != health.StatusHealthy {
		return fmt.Errorf("adapters are %s", status)
	}
	return nil
}

func (e *Engine) healthLoop(ctx context.Context) {
	defer e.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.clock.After(e.config.Anchor.HealthCheckInterval):
			e.manager.CheckHealth()
		}
	}
}

func (e *Engine) driverNames() []string {
	names := make([]string, 0, len(e.drivers))
	for _, d := range e.drivers {
		names = append(names, d.Name())
	}
	return names
}

// selectedDrivers returns the drivers named by the register list.
func (e *Engine) selectedDrivers() []adapter.Driver {
	byName := make(map[string]adapter.Driver, len(e.drivers))
	for _, d := range e.drivers {
		byName[d.Name()] = d
	}

	names := e.config.Drivers(e.driverNames())
	selected := make([]adapter.Driver, 0, len(names))
	for _, name := range names {
		selected = append(selected, byName[name])
	}
	return selected
}

// safeLog safely logs a message if logger is available
func (e *Engine) safeLog(level string, format string, args ...interface{}) {
	if e.logger == nil {
		return
	}
	switch level {
	case "info":
		e.logger.Info(format, args...)
	case "error":
		e.logger.Error(format, args...)
	case "warn":
		e.logger.Warn(format, args...)
	case "debug":
		e.logger.Debug(format, args...)
	}
}
