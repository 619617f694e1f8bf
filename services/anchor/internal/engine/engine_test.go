package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/redb-docstore/pkg/anchor/adapter"
	"github.com/redbco/redb-docstore/pkg/config"
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

type stubDriver struct {
	name string
	fail error
}

func (d stubDriver) Name() string {
	return d.name
}

func (d stubDriver) NewBinding(cfg adapter.Config) (adapter.Binding, error) {
	return &stubBinding{fail: d.fail}, nil
}

func newTestEngine(t *testing.T, yaml string, drivers ...adapter.Driver) *Engine {
	t.Helper()

	cfg, err := config.Parse([]byte(yaml))
	require.NoError(t, err)

	e, err := NewEngine(cfg, WithDrivers(drivers...), WithClock(testclock.NewClock(time.Now())))
	require.NoError(t, err)
	e.SetLogger(logger.NewNop())
	return e
}

const twoAdapters = `
register: [docs, files]
load:
  - name: docs
    config: { db: app }
  - name: files
    config: { db: blobs }
`

func TestEngine_StartStop(t *testing.T) {
	e := newTestEngine(t, twoAdapters, stubDriver{name: "docs"}, stubDriver{name: "files"})
	ctx := context.Background()

	require.NoError(t, e.Start(ctx))
	assert.Error(t, e.Start(ctx))

	m := e.Manager()
	require.NotNil(t, m)
	assert.Equal(t, []string{"docs_app", "files_blobs"}, m.ListConnections())
	assert.NoError(t, e.CheckHealth())

	require.NoError(t, e.Stop(ctx))
	assert.Empty(t, m.ListConnections())
	assert.Error(t, e.CheckHealth())
	assert.NoError(t, e.Stop(ctx))
}

func TestEngine_StartFailsWhenAdapterFails(t *testing.T) {
	e := newTestEngine(t, twoAdapters, stubDriver{name: "docs"}, stubDriver{name: "files", fail: errors.New("refused")})

	err := e.Start(context.Background())
	require.Error(t, err)
	assert.True(t, adapter.IsConnectionError(err))
	assert.Nil(t, e.Manager())
}

func TestEngine_StartRejectsInvalidConfig(t *testing.T) {
	e := newTestEngine(t, "load:\n  - name: redis\n", stubDriver{name: "docs"})

	err := e.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `adapter "redis" is not registered`)
}

func TestEngine_RegistersOnlySelectedDrivers(t *testing.T) {
	e := newTestEngine(t, "register: [docs]\n", stubDriver{name: "docs"}, stubDriver{name: "files"})
	ctx := context.Background()

	require.NoError(t, e.Start(ctx))
	defer e.Stop(ctx)

	assert.Equal(t, []string{"docs"}, e.Manager().Registry().Registered())
}

func TestEngine_Handler(t *testing.T) {
	e := newTestEngine(t, twoAdapters, stubDriver{name: "docs"}, stubDriver{name: "files"})
	ctx := context.Background()
	require.NoError(t, e.Start(ctx))
	defer e.Stop(ctx)

	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body healthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, health.StatusHealthy, body.Status)
	require.Len(t, body.Checks, 2)
	assert.Equal(t, "docs_app", body.Checks[0].Name)

	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		e.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		return rec.Code == http.StatusOK &&
			strings.Contains(rec.Body.String(), `anchor_adapter_ready{adapter="docs",key="docs_app"} 1`)
	}, 5*time.Second, 10*time.Millisecond)
}

func TestEngine_Run(t *testing.T) {
	e := newTestEngine(t, twoAdapters, stubDriver{name: "docs"}, stubDriver{name: "files"})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	require.Eventually(t, func() bool { return e.CheckHealth() == nil }, 5*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop")
	}
}
