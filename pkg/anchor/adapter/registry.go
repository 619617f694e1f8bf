package adapter

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/juju/clock"
	"go.uber.org/multierr"

	"github.com/redbco/redb-docstore/pkg/logger"
)

// Registry manages the registration of drivers and caches one adapter
// instance per registry key.
type Registry struct {
	common       Config
	adapterOpts  []Option
	readyTimeout time.Duration
	logger       *logger.Logger
	hooks        []func(*Adapter)

	mu        sync.RWMutex
	drivers   map[string]Driver
	instances map[string]*Adapter
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryClock sets the clock of every adapter the registry builds.
func WithRegistryClock(clk clock.Clock) RegistryOption {
	return func(r *Registry) {
		r.adapterOpts = append(r.adapterOpts, WithClock(clk))
	}
}

// WithRegistryRetryDelay sets the retry delay of every adapter the registry builds.
func WithRegistryRetryDelay(d time.Duration) RegistryOption {
	return func(r *Registry) {
		r.adapterOpts = append(r.adapterOpts, WithRetryDelay(d))
	}
}

// WithRegistryLogger sets the logger of the registry and of every adapter it builds.
func WithRegistryLogger(l *logger.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = l
		r.adapterOpts = append(r.adapterOpts, WithLogger(l))
	}
}

// WithReadyTimeout bounds how long Load waits for an adapter to be ready.
func WithReadyTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.readyTimeout = d
		}
	}
}

// WithAdapterHook registers fn to run on every adapter the registry builds,
// before it starts connecting. fn runs under the registry lock and must not
// call back into the registry.
func WithAdapterHook(fn func(*Adapter)) RegistryOption {
	return func(r *Registry) {
		if fn != nil {
			r.hooks = append(r.hooks, fn)
		}
	}
}

// NewRegistry creates an empty registry. common is the base config every
// per-call config is merged onto.
func NewRegistry(common Config, opts ...RegistryOption) *Registry {
	r := &Registry{
		common:       common,
		readyTimeout: DefaultReadyTimeout,
		drivers:      make(map[string]Driver),
		instances:    make(map[string]*Adapter),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Key returns the cache key for a driver name and a merged config.
// An explicit connection name wins over every other field.
func Key(name string, cfg Config) string {
	if cfg.ConnectionName != "" {
		return cfg.ConnectionName
	}

	parts := []string{name}
	for _, v := range []string{cfg.DB, cfg.Database, cfg.URL, cfg.Instance} {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "_")
}

// Register registers a driver under its name.
func (r *Registry) Register(driver Driver) error {
	if driver == nil {
		return &InvalidArgumentError{Argument: "driver", Reason: "cannot register a nil driver"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := driver.Name()
	if _, exists := r.drivers[name]; exists {
		return &DuplicateAdapterError{Name: name}
	}
	r.drivers[name] = driver
	return nil
}

// RegisterAll registers every driver and returns all failures together.
func (r *Registry) RegisterAll(drivers ...Driver) error {
	var errs error
	for _, d := range drivers {
		if err := r.Register(d); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		r.safeLog("debug", "registered adapter %s", d.Name())
	}
	return errs
}

// Load returns the adapter for name and cfg, building and starting it on
// first use, and waits until it is ready. An adapter built with
// skip_connect is returned without waiting.
func (r *Registry) Load(ctx context.Context, name string, cfg *Config) (*Adapter, error) {
	a, err := r.instance(name, cfg)
	if err != nil {
		return nil, err
	}

	if a.IsReady() || a.Config().SkipConnect {
		return a, nil
	}
	if err := a.WhenReady(ctx, r.readyTimeout); err != nil {
		return nil, err
	}
	return a, nil
}

// instance is the only place adapters are constructed. Construction runs
// under the write lock, so concurrent first loads of one key build it once.
func (r *Registry) instance(name string, cfg *Config) (*Adapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	driver, ok := r.drivers[name]
	if !ok {
		return nil, &UnknownAdapterError{Name: name}
	}

	merged := Merge(r.common, cfg)
	key := Key(name, merged)
	if a, ok := r.instances[key]; ok {
		return a, nil
	}

	binding, err := driver.NewBinding(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s binding: %w", name, err)
	}
	a, err := NewAdapter(name, merged, binding, r.adapterOpts...)
	if err != nil {
		return nil, err
	}

	r.instances[key] = a
	r.safeLog("info", "created adapter %s (%s) for key %s", name, a.ID(), key)
	for _, hook := range r.hooks {
		hook(a)
	}
	a.Start()
	return a, nil
}

// Get looks an adapter up without building it. With a nil cfg and exactly
// one cached instance of that driver, that instance is returned.
func (r *Registry) Get(name string, cfg *Config) (*Adapter, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.drivers[name]; !ok {
		return nil, false, &UnknownAdapterError{Name: name}
	}

	if cfg == nil {
		var only *Adapter
		count := 0
		for _, a := range r.instances {
			if a.Name() == name {
				only = a
				count++
			}
		}
		if count == 1 {
			return only, true, nil
		}
	}

	a, ok := r.instances[Key(name, Merge(r.common, cfg))]
	return a, ok, nil
}

// Registered returns the sorted names of the registered drivers.
func (r *Registry) Registered() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.drivers))
	for name := range r.drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Instances returns a snapshot of the cached adapters by key.
func (r *Registry) Instances() map[string]*Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*Adapter, len(r.instances))
	for k, a := range r.instances {
		out[k] = a
	}
	return out
}

// Len returns the number of cached adapters.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instances)
}

// Common returns the base config.
func (r *Registry) Common() Config {
	return r.common
}

func (r *Registry) safeLog(level string, format string, args ...interface{}) {
	if r.logger == nil {
		return
	}
	switch level {
	case "info":
		r.logger.Info(format, args...)
	case "error":
		r.logger.Error(format, args...)
	case "warn":
		r.logger.Warn(format, args...)
	case "debug":
		r.logger.Debug(format, args...)
	}
}
