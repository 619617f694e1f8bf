package adapter

import (
	"context"
)

// Driver represents a registrable adapter type.
// Each database/driver combination (MongoDB, MongoDB GridFS, ...) must implement this interface.
type Driver interface {
	// Name returns the declared interface name the registry indexes drivers by
	Name() string

	// NewBinding returns a fresh, unconnected binding for the given merged config
	NewBinding(cfg Config) (Binding, error)
}

// Binding is the database-specific half of an adapter.
// The lifecycle is driven by Adapter; bindings only talk to the database.
type Binding interface {
	// TryConnect opens a native connection to uri, releasing any previous one.
	// The notifier reports later disconnections and driver errors for this attempt.
	TryConnect(ctx context.Context, uri string, notifier Notifier) error

	// AfterConnect runs once TryConnect succeeded, before the adapter is ready
	AfterConnect(ctx context.Context) error

	// Library returns the driver-level object callers work with
	Library() (any, error)

	// RegisterValue binds a schema to a collection and returns the driver model.
	// collectionName overrides the collection name when not empty.
	RegisterValue(schema any, collection string, collectionName string) (any, error)

	// Connection returns the native connection handle, nil when not connected
	Connection() any

	// Close releases the native connection handle
	Close(ctx context.Context) error
}

// Notifier receives connection health reports from a binding.
// Reports only take effect once the attempt they belong to has connected;
// while TryConnect or AfterConnect is still running, a failure must be
// returned from that call instead.
type Notifier interface {
	// Disconnected reports that the native connection was lost
	Disconnected()

	// Failed reports a driver error on an established connection
	Failed(err error)
}
