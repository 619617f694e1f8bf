package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.mongodb.org/mongo-driver/v2/x/mongo/driver/connstring"

	"github.com/redbco/redb-docstore/pkg/anchor/adapter"
)

// defaultPingTimeout bounds the ping after connect when no connect timeout is configured.
const defaultPingTimeout = 10 * time.Second

// defaultDatabase is used when neither the URI nor the config names a database.
const defaultDatabase = "test"

var errNotConnected = errors.New("mongodb: not connected")

// Binding connects a mongo.Client and exposes it to an adapter.
type Binding struct {
	config adapter.Config

	mu     sync.RWMutex
	client *mongo.Client
	db     *mongo.Database
}

// NewBinding creates an unconnected binding.
func NewBinding(cfg adapter.Config) *Binding {
	return &Binding{config: cfg}
}

// TryConnect disconnects any previous client, then connects and pings uri.
func (b *Binding) TryConnect(ctx context.Context, uri string, notifier adapter.Notifier) error {
	b.release(ctx)

	dbName, err := b.databaseName(uri)
	if err != nil {
		return err
	}

	clientOptions := options.Client().
		ApplyURI(uri).
		SetServerMonitor(newServerMonitor(notifier))
	if b.config.AppName != "" {
		clientOptions.SetAppName(b.config.AppName)
	}
	pingTimeout := defaultPingTimeout
	if b.config.ConnectTimeout > 0 {
		clientOptions.SetConnectTimeout(b.config.ConnectTimeout)
		clientOptions.SetServerSelectionTimeout(b.config.ConnectTimeout)
		pingTimeout = b.config.ConnectTimeout
	}

	// In v2, Connect only validates options and starts monitoring
	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("error pinging database: %w", err)
	}

	b.mu.Lock()
	b.client = client
	b.db = client.Database(dbName)
	b.mu.Unlock()
	return nil
}

// databaseName returns the database of uri, falling back to the config.
func (b *Binding) databaseName(uri string) (string, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return "", fmt.Errorf("invalid connection string: %w", err)
	}
	if cs.Database != "" {
		return cs.Database, nil
	}
	if name := b.config.DatabaseName(); name != "" {
		return name, nil
	}
	return defaultDatabase, nil
}

// AfterConnect has nothing to prepare for a plain client.
func (b *Binding) AfterConnect(ctx context.Context) error {
	return nil
}

// Library returns the connected *mongo.Client.
func (b *Binding) Library() (any, error) {
	client, err := b.Client()
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Client returns the connected client.
func (b *Binding) Client() (*mongo.Client, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.client == nil {
		return nil, errNotConnected
	}
	return b.client, nil
}

// Database returns the connected database.
func (b *Binding) Database() (*mongo.Database, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.db == nil {
		return nil, errNotConnected
	}
	return b.db, nil
}

// Connection returns the *mongo.Database, nil when not connected.
func (b *Binding) Connection() any {
	db, err := b.Database()
	if err != nil {
		return nil
	}
	return db
}

// RegisterValue returns a *Model bound to collection. collectionName, when
// set, overrides the collection the model stores to.
func (b *Binding) RegisterValue(schema any, collection string, collectionName string) (any, error) {
	return NewModel(b, schema, collection, collectionName)
}

// Close disconnects the client. It is a no-op when not connected.
func (b *Binding) Close(ctx context.Context) error {
	b.mu.Lock()
	client := b.client
	b.client = nil
	b.db = nil
	b.mu.Unlock()

	if client == nil {
		return nil
	}
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("error disconnecting from database: %w", err)
	}
	return nil
}

// release drops the previous client before a new attempt.
func (b *Binding) release(ctx context.Context) {
	_ = b.Close(ctx)
}

var _ adapter.Binding = (*Binding)(nil)
