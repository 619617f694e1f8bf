package adapter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
)

const waitTimeout = 5 * time.Second

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeBinding records calls and fails TryConnect with queued errors.
type fakeBinding struct {
	mu            sync.Mutex
	connectErrs   []error
	afterErr      error
	closeErr      error
	block         chan struct{}
	uris          []string
	notifiers     []Notifier
	afterConnects int
	closes        int
	connected     bool
}

func (b *fakeBinding) TryConnect(ctx context.Context, uri string, notifier Notifier) error {
	b.mu.Lock()
	b.uris = append(b.uris, uri)
	b.notifiers = append(b.notifiers, notifier)
	block := b.block
	var err error
	if len(b.connectErrs) > 0 {
		err = b.connectErrs[0]
		b.connectErrs = b.connectErrs[1:]
	}
	b.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.connected = true
	b.mu.Unlock()
	return nil
}

func (b *fakeBinding) AfterConnect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.afterConnects++
	return b.afterErr
}

func (b *fakeBinding) Library() (any, error) {
	return "library", nil
}

func (b *fakeBinding) RegisterValue(schema any, collection string, collectionName string) (any, error) {
	if collection == "" {
		return nil, errors.New("collection required")
	}
	if collectionName != "" {
		collection = collectionName
	}
	return "model:" + collection, nil
}

func (b *fakeBinding) Connection() any {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return nil
	}
	return "connection"
}

func (b *fakeBinding) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closes++
	b.connected = false
	return b.closeErr
}

func (b *fakeBinding) connects() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.uris)
}

func (b *fakeBinding) closeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closes
}

func (b *fakeBinding) notifier(i int) Notifier {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.notifiers[i]
}

func (b *fakeBinding) lastURI() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.uris[len(b.uris)-1]
}

// fakeDriver hands out fakeBindings and keeps them for inspection.
type fakeDriver struct {
	name  string
	setup func(*fakeBinding)

	mu       sync.Mutex
	bindings []*fakeBinding
}

func (d *fakeDriver) Name() string {
	return d.name
}

func (d *fakeDriver) NewBinding(cfg Config) (Binding, error) {
	b := &fakeBinding{}
	if d.setup != nil {
		d.setup(b)
	}

	d.mu.Lock()
	d.bindings = append(d.bindings, b)
	d.mu.Unlock()
	return b, nil
}

func (d *fakeDriver) built() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.bindings)
}

func (d *fakeDriver) binding(i int) *fakeBinding {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bindings[i]
}

func newTestAdapter(t *testing.T, cfg Config, b Binding) (*Adapter, *testclock.Clock) {
	t.Helper()
	clk := testclock.NewClock(epoch)
	a, err := NewAdapter("mongodb", cfg, b, WithClock(clk))
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a, clk
}

func nextEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func eventKinds(t *testing.T, ch <-chan Event, n int) []EventKind {
	t.Helper()
	kinds := make([]EventKind, 0, n)
	for i := 0; i < n; i++ {
		kinds = append(kinds, nextEvent(t, ch).Kind)
	}
	return kinds
}
