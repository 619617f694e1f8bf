package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/redbco/redb-docstore/pkg/anchor/adapter"
	"github.com/redbco/redb-docstore/pkg/health"
	"github.com/redbco/redb-docstore/pkg/logger"
)

type stubBinding struct {
	adapter.UnimplementedBinding
	fail error
}

func (b *stubBinding) TryConnect(ctx context.Context, uri string, notifier adapter.Notifier) error {
	return b.fail
}

func (b *stubBinding) AfterConnect(ctx context.Context) error {
	return nil
}

// stubDriver fails the connection of the databases listed in fail.
type stubDriver struct {
	fail map[string]error
}

func (d stubDriver) Name() string {
	return "stub"
}

func (d stubDriver) NewBinding(cfg adapter.Config) (adapter.Binding, error) {
	return &stubBinding{fail: d.fail[cfg.DB]}, nil
}

func newTestManager(t *testing.T, driver adapter.Driver) (*ConnectionManager, *Metrics, *observer.ObservedLogs) {
	t.Helper()

	level := zap.NewAtomicLevelAt(zapcore.DebugLevel)
	core, logs := observer.New(level)
	log := logger.NewWithCore("anchor", "", core, level)

	metrics, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	cm := NewConnectionManager(adapter.Config{Host: "db"},
		WithLogger(log),
		WithMetrics(metrics),
		WithRegistryOptions(adapter.WithReadyTimeout(time.Minute)),
	)
	require.NoError(t, cm.RegisterAll(driver))
	return cm, metrics, logs
}

func TestConnectionManager_LoadAll(t *testing.T) {
	cm, metrics, logs := newTestManager(t, stubDriver{})
	ctx := context.Background()

	err := cm.LoadAll(ctx, []LoadRequest{
		{Name: "stub", Config: &adapter.Config{DB: "b"}},
		{Name: "stub", Config: &adapter.Config{DB: "a"}},
		{Name: "stub", Config: &adapter.Config{DB: "a"}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"stub_a", "stub_b"}, cm.ListConnections())
	assert.Equal(t, health.StatusHealthy, cm.CheckHealth())

	info, err := cm.GetConnectionInfo("stub_a")
	require.NoError(t, err)
	assert.Equal(t, "connected", info["state"])
	assert.Equal(t, true, info["ready"])
	assert.Equal(t, "mongodb://db:27017/a", info["uri"])

	a, err := cm.GetConnection("stub", &adapter.Config{DB: "a"})
	require.NoError(t, err)
	assert.Equal(t, info["id"], a.ID())

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.ready.WithLabelValues("stub", "stub_a")) == 1
	}, 5*time.Second, time.Millisecond)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.adapters))

	require.NoError(t, cm.DisconnectAll(ctx))
	assert.Empty(t, cm.ListConnections())
	assert.Empty(t, cm.HealthChecker().GetAllChecks())
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.adapters))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.ready.WithLabelValues("stub", "stub_a")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.state.WithLabelValues("stub", "stub_a", "closed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.events.WithLabelValues("stub", "stub_a", "connected")))

	established := logs.FilterMessageSnippet("Connection established key=stub_a").All()
	assert.Len(t, established, 1)
	assert.NotEmpty(t, logs.FilterMessageSnippet("Adapter closed key=stub_b").All())
}

func TestConnectionManager_LoadAllReportsFailures(t *testing.T) {
	cause := errors.New("server selection timeout")
	cm, _, logs := newTestManager(t, stubDriver{fail: map[string]error{"down": cause}})
	ctx := context.Background()
	defer cm.DisconnectAll(ctx)

	err := cm.LoadAll(ctx, []LoadRequest{
		{Name: "stub", Config: &adapter.Config{DB: "up"}},
		{Name: "stub", Config: &adapter.Config{DB: "down"}},
		{Name: "missing"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, adapter.ErrAdapterNotFound)
	assert.True(t, adapter.IsConnectionError(err))

	assert.Equal(t, health.StatusDegraded, cm.CheckHealth())
	assert.NotEmpty(t, logs.FilterMessageSnippet("Operation failed operation=load key=stub_down").All())
}

func TestConnectionManager_GetConnection(t *testing.T) {
	cm, _, _ := newTestManager(t, stubDriver{})
	defer cm.DisconnectAll(context.Background())

	_, err := cm.GetConnection("missing", nil)
	assert.ErrorIs(t, err, adapter.ErrAdapterNotFound)

	_, err = cm.GetConnection("stub", &adapter.Config{DB: "a"})
	assert.ErrorIs(t, err, ErrConnectionNotFound)

	_, err = cm.GetConnectionInfo("stub_a")
	assert.ErrorIs(t, err, ErrConnectionNotFound)
}

func TestConnectionManager_RegisterAllDuplicate(t *testing.T) {
	cm, _, _ := newTestManager(t, stubDriver{})

	err := cm.RegisterAll(stubDriver{})
	assert.ErrorIs(t, err, adapter.ErrDuplicateAdapter)
	assert.Equal(t, []string{"stub"}, cm.Registry().Registered())
}

func TestNewMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)

	_, err = NewMetrics(reg)
	assert.Error(t, err)
}

func TestDatabaseLogger_NilLogger(t *testing.T) {
	dl := NewDatabaseLogger(nil)

	// must not panic
	dl.LogEvent("k", adapter.Event{Kind: adapter.EventError, Err: errors.New("boom")})
	dl.LogHealthCheck(DatabaseLogContext{Key: "k"}, false, errors.New("down"))
}

func TestDatabaseLogger_MasksURI(t *testing.T) {
	level := zap.NewAtomicLevelAt(zapcore.DebugLevel)
	core, logs := observer.New(level)
	dl := NewDatabaseLogger(logger.NewWithCore("anchor", "", core, level))

	dl.LogEvent("stub_a", adapter.Event{
		Kind:    adapter.EventDisconnected,
		Adapter: "stub",
		URI:     "mongodb://user:secret@h:27017/a",
	})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "[stub] Connection lost key=stub_a uri=mongodb://***:***@h:27017/a", entries[0].Message)
}
