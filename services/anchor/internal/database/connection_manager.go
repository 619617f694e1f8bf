package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/redbco/redb-docstore/pkg/anchor/adapter"
	"github.com/redbco/redb-docstore/pkg/health"
	"github.com/redbco/redb-docstore/pkg/logger"
)

// maxConcurrentLoads caps the adapters LoadAll waits on at once.
const maxConcurrentLoads = 8

// ErrConnectionNotFound is returned when no cached adapter matches a lookup.
var ErrConnectionNotFound = errors.New("connection not found")

// LoadRequest names an adapter and its per-call config.
type LoadRequest struct {
	Name   string
	Config *adapter.Config
}

// ConnectionManager owns the adapter registry of the service. It loads
// adapters, follows their lifecycle events for logging, metrics and
// health, and closes them on shutdown.
type ConnectionManager struct {
	registry *adapter.Registry
	logger   *logger.Logger
	dbLogger *DatabaseLogger
	metrics  *Metrics
	health   *health.Checker

	mu      sync.Mutex
	watches map[string]func() // adapter ID -> unsubscribe
	wg      sync.WaitGroup
}

// Option configures a ConnectionManager.
type Option func(*connectionManagerOptions)

type connectionManagerOptions struct {
	logger       *logger.Logger
	metrics      *Metrics
	health       *health.Checker
	registryOpts []adapter.RegistryOption
}

// WithLogger sets the logger of the manager and of every adapter.
func WithLogger(l *logger.Logger) Option {
	return func(o *connectionManagerOptions) {
		o.logger = l
	}
}

// WithMetrics exports adapter lifecycle metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *connectionManagerOptions) {
		o.metrics = m
	}
}

// WithHealthChecker sets the checker adapter health is reported to.
func WithHealthChecker(h *health.Checker) Option {
	return func(o *connectionManagerOptions) {
		o.health = h
	}
}

// WithRegistryOptions passes options to the underlying registry.
func WithRegistryOptions(opts ...adapter.RegistryOption) Option {
	return func(o *connectionManagerOptions) {
		o.registryOpts = append(o.registryOpts, opts...)
	}
}

// NewConnectionManager creates a manager whose registry merges every
// per-call config onto common.
func NewConnectionManager(common adapter.Config, opts ...Option) *ConnectionManager {
	o := &connectionManagerOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.health == nil {
		o.health = health.NewChecker()
	}

	cm := &ConnectionManager{
		logger:   o.logger,
		dbLogger: NewDatabaseLogger(o.logger),
		metrics:  o.metrics,
		health:   o.health,
		watches:  make(map[string]func()),
	}

	registryOpts := []adapter.RegistryOption{adapter.WithAdapterHook(cm.watch)}
	if o.logger != nil {
		registryOpts = append(registryOpts, adapter.WithRegistryLogger(o.logger))
	}
	registryOpts = append(registryOpts, o.registryOpts...)
	cm.registry = adapter.NewRegistry(common, registryOpts...)

	return cm
}

// Registry returns the underlying adapter registry.
func (cm *ConnectionManager) Registry() *adapter.Registry {
	return cm.registry
}

// HealthChecker returns the checker adapter health is reported to.
func (cm *ConnectionManager) HealthChecker() *health.Checker {
	return cm.health
}

// safeLog safely logs a message if logger is available
func (cm *ConnectionManager) safeLog(level string, format string, args ...interface{}) {
	if cm.logger != nil {
		switch level {
		case "info":
			cm.logger.Info(format, args...)
		case "error":
			cm.logger.Error(format, args...)
		case "warn":
			cm.logger.Warn(format, args...)
		case "debug":
			cm.logger.Debug(format, args...)
		}
	}
}

// RegisterAll registers drivers, reporting every failure together.
func (cm *ConnectionManager) RegisterAll(drivers ...adapter.Driver) error {
	if err := cm.registry.RegisterAll(drivers...); err != nil {
		cm.safeLog("error", "Failed to register adapters: %v", err)
		return err
	}

	cm.safeLog("info", "Registered adapters: %v", cm.registry.Registered())
	return nil
}

// Load returns the ready adapter for name and cfg, building it on first use.
func (cm *ConnectionManager) Load(ctx context.Context, name string, cfg *adapter.Config) (*adapter.Adapter, error) {
	a, err := cm.registry.Load(ctx, name, cfg)
	if err != nil {
		cm.dbLogger.LogOperationFailure(DatabaseLogContext{
			AdapterType: name,
			Key:         adapter.Key(name, adapter.Merge(cm.registry.Common(), cfg)),
			Operation:   "load",
		}, err)
		return nil, fmt.Errorf("failed to load adapter %s: %w", name, err)
	}
	return a, nil
}

// LoadAll loads every request concurrently and waits for all of them.
// It fails when any adapter fails to become ready; all failures are returned.
func (cm *ConnectionManager) LoadAll(ctx context.Context, requests []LoadRequest) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs error
	)
	g.SetLimit(maxConcurrentLoads)

	for _, req := range requests {
		req := req
		g.Go(func() error {
			if _, err := cm.Load(ctx, req.Name, req.Config); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if errs == nil {
		cm.safeLog("info", "Loaded %d adapters", len(requests))
	}
	return errs
}

// GetConnection looks a cached adapter up without building it.
func (cm *ConnectionManager) GetConnection(name string, cfg *adapter.Config) (*adapter.Adapter, error) {
	a, ok, err := cm.registry.Get(name, cfg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConnectionNotFound, name)
	}
	return a, nil
}

// ListConnections returns the sorted keys of the cached adapters.
func (cm *ConnectionManager) ListConnections() []string {
	instances := cm.registry.Instances()

	keys := make([]string, 0, len(instances))
	for key := range instances {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// GetConnectionInfo describes the adapter cached under key.
func (cm *ConnectionManager) GetConnectionInfo(key string) (map[string]interface{}, error) {
	a, ok := cm.registry.Instances()[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConnectionNotFound, key)
	}

	return map[string]interface{}{
		"key":     key,
		"id":      a.ID(),
		"adapter": a.Name(),
		"state":   a.State().String(),
		"ready":   a.IsReady(),
		"uri":     adapter.HideCredentials(a.URI()),
		"models":  a.Models().Len(),
	}, nil
}

// CheckHealth records the readiness of every cached adapter and returns
// the overall status.
func (cm *ConnectionManager) CheckHealth() health.Status {
	for key, a := range cm.registry.Instances() {
		a := a
		cm.health.RunCheck(key, func() error {
			if a.IsReady() {
				return nil
			}
			return fmt.Errorf("adapter %s is %s", a.Name(), a.State())
		})
	}

	for _, check := range cm.health.GetAllChecks() {
		var err error
		if check.Status != health.StatusHealthy {
			err = errors.New(check.Message)
		}
		cm.dbLogger.LogHealthCheck(DatabaseLogContext{Key: check.Name, AdapterType: "health"}, err == nil, err)
	}
	return cm.health.GetOverallStatus()
}

// DisconnectAll closes every adapter and stops following their events.
func (cm *ConnectionManager) DisconnectAll(ctx context.Context) error {
	err := cm.registry.Shutdown(ctx)

	cm.mu.Lock()
	watches := cm.watches
	cm.watches = make(map[string]func())
	cm.mu.Unlock()

	for _, unsubscribe := range watches {
		unsubscribe()
	}
	cm.wg.Wait()
	cm.metrics.SetAdapters(0)

	if err != nil {
		cm.safeLog("error", "Errors while disconnecting adapters: %v", err)
		return fmt.Errorf("errors during disconnect all: %w", err)
	}
	cm.safeLog("info", "All adapters disconnected")
	return nil
}

// watch follows the events of a newly built adapter. It runs under the
// registry lock, before the adapter starts connecting.
func (cm *ConnectionManager) watch(a *adapter.Adapter) {
	key := adapter.Key(a.Name(), a.Config())
	events, unsubscribe := a.Subscribe()

	cm.mu.Lock()
	cm.watches[a.ID()] = unsubscribe
	count := len(cm.watches)
	cm.mu.Unlock()
	cm.metrics.SetAdapters(count)

	cm.wg.Add(1)
	go func() {
		defer cm.wg.Done()
		for e := range events {
			cm.dbLogger.LogEvent(key, e)
			cm.metrics.Observe(key, e, a.State())
			if e.Kind == adapter.EventClosed {
				cm.health.Remove(key)
			}
		}
	}()
}
