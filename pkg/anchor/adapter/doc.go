// Package adapter drives document database connections.
//
// A Driver is registered once per adapter type on a Registry. Loading an
// adapter merges the registry's common config with the per-call config,
// derives a cache key, and builds at most one Adapter per key:
//
//	reg := adapter.NewRegistry(adapter.Config{Host: "127.0.0.1"})
//	if err := reg.RegisterAll(mongodb.Drivers()...); err != nil {
//	    return err
//	}
//	a, err := reg.Load(ctx, "mongodb", &adapter.Config{DB: "app"})
//
// The Adapter owns the lifecycle (Idle, Connecting, Connected, Disconnected,
// Erroring, Closed). The first connection failure is returned to callers;
// once connected, disconnections and driver errors are retried on a fixed
// delay until Close. Lifecycle events are published to Subscribe channels.
//
// Database work is delegated to a Binding. UnimplementedBinding can be
// embedded by bindings that only support part of the contract.
package adapter
