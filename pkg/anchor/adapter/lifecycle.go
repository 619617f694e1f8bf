package adapter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"

	"github.com/redbco/redb-docstore/pkg/logger"
)

const (
	// DefaultRetryDelay is the constant delay between reconnection attempts.
	DefaultRetryDelay = 5 * time.Second

	// DefaultReadyTimeout bounds WhenReady when no timeout is given.
	DefaultReadyTimeout = 60 * time.Second
)

// State is the lifecycle state of an adapter.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateDisconnected
	StateErroring
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateErroring:
		return "erroring"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithClock sets the clock driving retries and ready timeouts.
func WithClock(clk clock.Clock) Option {
	return func(a *Adapter) {
		if clk != nil {
			a.clock = clk
		}
	}
}

// WithRetryDelay sets the constant delay between reconnection attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.retryDelay = d
		}
	}
}

// WithLogger sets the logger used for lifecycle messages.
func WithLogger(l *logger.Logger) Option {
	return func(a *Adapter) {
		a.logger = l
	}
}

// readiness is released once, either on connection (err nil) or on the
// failure of the first connection attempt.
type readiness struct {
	done chan struct{}
	err  error
}

func newReadiness() *readiness {
	return &readiness{done: make(chan struct{})}
}

// Adapter owns the connection lifecycle of one database target:
// URI derivation, ready gating, and the fixed-delay reconnection loop.
// The database work itself is delegated to its Binding.
type Adapter struct {
	id      string
	name    string
	config  Config
	binding Binding
	models  *ModelStore
	events  *eventBus

	clock      clock.Clock
	retryDelay time.Duration
	logger     *logger.Logger

	// ctx is cancelled by Close so background attempts stop
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      State
	uri        string
	ready      bool
	attempt    uint64
	pending    *readiness
	retryTimer clock.Timer
	startErr   error

	// connectedOnce is set by the first successful connection; from then on
	// failures are recovered by the retry loop instead of reported to waiters.
	connectedOnce bool
}

// NewAdapter creates an adapter for the named driver. It does not connect;
// see Start and Connect.
func NewAdapter(name string, cfg Config, binding Binding, opts ...Option) (*Adapter, error) {
	// It means we're not on test environment but we dont get any config
	if cfg.IsZero() {
		return nil, NewConfigurationError(name, "", "missing connection configuration")
	}
	if binding == nil {
		return nil, NewConfigurationError(name, "binding", "no driver binding provided")
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &Adapter{
		id:         uuid.NewString(),
		name:       name,
		config:     cfg,
		binding:    binding,
		models:     NewModelStore(),
		events:     newEventBus(),
		clock:      clock.WallClock,
		retryDelay: DefaultRetryDelay,
		ctx:        ctx,
		cancel:     cancel,
		state:      StateIdle,
		pending:    newReadiness(),
	}
	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// Start launches the initial connection in the background unless the
// config asks to skip it.
func (a *Adapter) Start() {
	if a.config.SkipConnect {
		a.safeLog("debug", "adapter %s (%s) built with skip_connect", a.name, a.id)
		return
	}

	go func() {
		// Failures are published and handed to WhenReady waiters
		_ = a.Connect(a.ctx)
	}()
}

// Connect derives the URI and runs the binding's TryConnect then AfterConnect.
// It is a no-op while an attempt is in flight or the adapter is connected.
// A failure is always returned to the caller. Before the first successful
// connection it is also handed to WhenReady waiters and not retried; after
// it, the retry loop takes over as for a lost connection.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	switch a.state {
	case StateClosed:
		a.mu.Unlock()
		return ErrAdapterClosed
	case StateConnecting, StateConnected:
		a.mu.Unlock()
		return nil
	}

	// An explicit connect supersedes a scheduled retry
	a.stopRetryLocked()

	uri, err := BuildURI(a.name, a.config)
	if err != nil {
		a.state = StateErroring
		a.failStartLocked(err)
		a.mu.Unlock()

		a.safeLog("error", "adapter %s: %v", a.name, err)
		a.emit(Event{Kind: EventError, Err: err})
		return err
	}

	a.uri = uri
	a.ready = false
	a.startErr = nil
	a.state = StateConnecting
	a.attempt++
	attempt := a.attempt
	a.mu.Unlock()

	err = a.tryConnect(ctx, uri, attempt)
	if err == nil {
		a.safeLog("debug", "adapter %s: connect OK", a.name)
		return nil
	}
	if errors.Is(err, ErrAdapterClosed) {
		return err
	}

	connErr := NewConnectionError(a.name, uri, err)

	a.mu.Lock()
	if a.state == StateClosed {
		a.mu.Unlock()
		return ErrAdapterClosed
	}
	if a.attempt == attempt {
		a.state = StateErroring
		if a.connectedOnce {
			a.scheduleRetryLocked()
		} else {
			a.failStartLocked(connErr)
		}
	}
	a.mu.Unlock()

	a.safeLog("error", "adapter %s: %v", a.name, connErr)
	a.emit(Event{Kind: EventError, Err: connErr})
	return connErr
}

// tryConnect runs one attempt against the binding.
func (a *Adapter) tryConnect(ctx context.Context, uri string, attempt uint64) error {
	a.safeLog("debug", "adapter %s: connecting to %s", a.name, HideCredentials(uri))
	a.emit(Event{Kind: EventConnecting, URI: uri})

	notifier := &attemptNotifier{adapter: a, attempt: attempt}
	if err := a.binding.TryConnect(ctx, uri, notifier); err != nil {
		return err
	}
	if err := a.binding.AfterConnect(ctx); err != nil {
		return err
	}

	return a.onConnected(attempt)
}

// onConnected marks the adapter ready and releases every waiter.
func (a *Adapter) onConnected(attempt uint64) error {
	a.mu.Lock()
	if a.state == StateClosed {
		a.mu.Unlock()

		// Closed while connecting: release what the attempt just opened
		if err := a.binding.Close(context.Background()); err != nil {
			a.safeLog("warn", "adapter %s: releasing connection after close: %v", a.name, err)
		}
		return ErrAdapterClosed
	}
	if a.attempt != attempt {
		a.mu.Unlock()
		return nil
	}

	a.ready = true
	a.state = StateConnected
	a.startErr = nil
	a.connectedOnce = true
	uri := a.uri

	released := a.pending
	a.pending = newReadiness()
	close(released.done)
	a.mu.Unlock()

	a.safeLog("info", "adapter %s connected to %s", a.name, HideCredentials(uri))
	a.emit(Event{Kind: EventReady})
	a.emit(Event{Kind: EventConnected, URI: uri})
	return nil
}

func (a *Adapter) onDisconnected(attempt uint64) {
	a.mu.Lock()
	if a.attempt != attempt || a.state != StateConnected {
		a.mu.Unlock()
		return
	}

	a.ready = false
	a.state = StateDisconnected
	uri := a.uri
	a.scheduleRetryLocked()
	a.mu.Unlock()

	a.safeLog("warn", "adapter %s disconnected from %s, retrying in %s", a.name, HideCredentials(uri), a.retryDelay)
	a.emit(Event{Kind: EventDisconnected, URI: uri})
}

// onError handles a driver error on an established connection. Reports made
// while the attempt is still connecting are dropped: TryConnect's own result
// decides that attempt.
func (a *Adapter) onError(attempt uint64, err error) {
	a.mu.Lock()
	if a.attempt != attempt || a.state != StateConnected {
		a.mu.Unlock()
		return
	}

	a.ready = false
	a.state = StateErroring
	a.scheduleRetryLocked()
	a.mu.Unlock()

	a.safeLog("warn", "adapter %s got error, retrying in %s: %v", a.name, a.retryDelay, err)
	a.emit(Event{Kind: EventError, Err: err})
}

// scheduleRetryLocked arms the retry timer unless one is already pending.
func (a *Adapter) scheduleRetryLocked() {
	if a.retryTimer != nil {
		return
	}

	generation := a.attempt
	a.retryTimer = a.clock.AfterFunc(a.retryDelay, func() {
		a.retry(generation)
	})
}

func (a *Adapter) stopRetryLocked() {
	if a.retryTimer != nil {
		a.retryTimer.Stop()
		a.retryTimer = nil
	}
}

// retry re-runs TryConnect on the last URI. Failures schedule the next retry.
func (a *Adapter) retry(generation uint64) {
	a.mu.Lock()
	if a.state == StateClosed || a.attempt != generation {
		a.mu.Unlock()
		return
	}

	a.retryTimer = nil
	a.attempt++
	attempt := a.attempt
	a.state = StateConnecting
	uri := a.uri
	a.mu.Unlock()

	err := a.tryConnect(a.ctx, uri, attempt)
	if err == nil || errors.Is(err, ErrAdapterClosed) {
		return
	}

	a.mu.Lock()
	if a.attempt != attempt || a.state == StateClosed {
		a.mu.Unlock()
		return
	}
	a.state = StateErroring
	a.scheduleRetryLocked()
	a.mu.Unlock()

	a.safeLog("warn", "adapter %s: reconnection to %s failed, retrying in %s: %v",
		a.name, HideCredentials(uri), a.retryDelay, err)
	a.emit(Event{Kind: EventError, Err: err})
	a.emit(Event{Kind: EventReconnectFailed, URI: uri})
}

// failStartLocked hands a failure of the first attempt to current waiters.
func (a *Adapter) failStartLocked(err error) {
	a.startErr = err

	released := a.pending
	a.pending = newReadiness()
	released.err = err
	close(released.done)
}

// WhenReady waits until the adapter is connected. It returns at once when
// already ready. The timeout (DefaultReadyTimeout when <= 0) cancels only
// the wait, never the connection attempt.
func (a *Adapter) WhenReady(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultReadyTimeout
	}

	a.mu.Lock()
	switch {
	case a.ready:
		a.mu.Unlock()
		return nil
	case a.state == StateClosed:
		a.mu.Unlock()
		return ErrAdapterClosed
	case a.startErr != nil:
		err := a.startErr
		a.mu.Unlock()
		return err
	}
	waiter := a.pending
	a.mu.Unlock()

	timer := a.clock.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-waiter.done:
		return waiter.err
	case <-timer.Chan():
		return &TimeoutError{Adapter: a.name, Timeout: timeout}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops reconnection and releases the native handle. Closing twice
// or closing a never connected adapter is not an error.
func (a *Adapter) Close(ctx context.Context) error {
	a.mu.Lock()
	if a.state == StateClosed {
		a.mu.Unlock()
		return nil
	}

	a.state = StateClosed
	a.ready = false
	a.stopRetryLocked()
	a.cancel()

	released := a.pending
	released.err = ErrAdapterClosed
	close(released.done)
	uri := a.uri
	a.mu.Unlock()

	err := a.binding.Close(ctx)
	a.emit(Event{Kind: EventClosed, URI: uri})
	if err != nil {
		a.safeLog("error", "adapter %s: error closing connection: %v", a.name, err)
		return fmt.Errorf("failed to close %s adapter %s: %w", a.name, a.id, err)
	}

	a.safeLog("info", "adapter %s closed", a.name)
	return nil
}

// ID returns the adapter instance identifier.
func (a *Adapter) ID() string {
	return a.id
}

// Name returns the driver name the adapter was built from.
func (a *Adapter) Name() string {
	return a.name
}

// Config returns the merged configuration.
func (a *Adapter) Config() Config {
	return a.config
}

// State returns the current lifecycle state.
func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// IsReady returns whether the connection is established.
func (a *Adapter) IsReady() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ready
}

// IsConnected is an alias of IsReady.
func (a *Adapter) IsConnected() bool {
	return a.IsReady()
}

// URI returns the last derived connection URI. It may hold credentials.
func (a *Adapter) URI() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.uri
}

// Binding returns the driver binding.
func (a *Adapter) Binding() Binding {
	return a.binding
}

// Connection returns the native connection handle of the binding.
func (a *Adapter) Connection() any {
	return a.binding.Connection()
}

// Library returns the driver-level object of the binding.
func (a *Adapter) Library() (any, error) {
	return a.binding.Library()
}

// RegisterValue binds schema to a collection through the binding.
func (a *Adapter) RegisterValue(schema any, collection string, collectionName string) (any, error) {
	return a.binding.RegisterValue(schema, collection, collectionName)
}

// RegisterModel registers a value through the binding and stores it under token.
func (a *Adapter) RegisterModel(token any, schema any, collection string, collectionName string) (any, error) {
	value, err := a.RegisterValue(schema, collection, collectionName)
	if err != nil {
		return nil, err
	}
	if err := a.models.Add(&ModelBinding{Token: token, Value: value}); err != nil {
		return nil, err
	}
	return value, nil
}

// Models returns the adapter's model store.
func (a *Adapter) Models() *ModelStore {
	return a.models
}

// Subscribe returns a channel of lifecycle events and its cancel function.
// Events are dropped for a subscriber whose buffer is full.
func (a *Adapter) Subscribe() (<-chan Event, func()) {
	return a.events.subscribe()
}

func (a *Adapter) emit(e Event) {
	e.AdapterID = a.id
	e.Adapter = a.name
	e.Time = a.clock.Now()
	a.events.publish(e)
}

// safeLog logs a message if a logger is available
func (a *Adapter) safeLog(level string, format string, args ...interface{}) {
	if a.logger == nil {
		return
	}
	switch level {
	case "info":
		a.logger.Info(format, args...)
	case "error":
		a.logger.Error(format, args...)
	case "warn":
		a.logger.Warn(format, args...)
	case "debug":
		a.logger.Debug(format, args...)
	}
}

// attemptNotifier forwards binding reports for a single connection attempt.
// Reports from superseded attempts are ignored.
type attemptNotifier struct {
	adapter *Adapter
	attempt uint64
}

func (n *attemptNotifier) Disconnected() {
	n.adapter.onDisconnected(n.attempt)
}

func (n *attemptNotifier) Failed(err error) {
	n.adapter.onError(n.attempt, err)
}
