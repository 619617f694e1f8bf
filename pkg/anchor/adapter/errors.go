package adapter

import (
	"errors"
	"fmt"
	"time"
)

// Standard adapter errors
var (
	// ErrInvalidConfiguration is returned when the connection configuration is missing or invalid
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrAdapterNotFound is returned when an adapter type is not registered
	ErrAdapterNotFound = errors.New("adapter not found")

	// ErrDuplicateAdapter is returned when an adapter type is registered twice
	ErrDuplicateAdapter = errors.New("adapter already registered")

	// ErrNotImplemented is returned when a binding does not provide a capability
	ErrNotImplemented = errors.New("not implemented")

	// ErrConnectionFailed is returned when a connection attempt fails
	ErrConnectionFailed = errors.New("connection failed")

	// ErrReadyTimeout is returned when an adapter does not become ready in time
	ErrReadyTimeout = errors.New("timed out waiting for adapter to be ready")

	// ErrInvalidArgument is returned when a caller passes an unusable argument
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAdapterClosed is returned when attempting to use a closed adapter
	ErrAdapterClosed = errors.New("adapter is closed")
)

// ConfigurationError is returned when a configuration error occurs.
type ConfigurationError struct {
	Adapter string
	Field   string
	Reason  string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid configuration for %s: field '%s': %s", e.Adapter, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid configuration for %s: %s", e.Adapter, e.Reason)
}

// Is checks if the error is ErrInvalidConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// NewConfigurationError creates a new ConfigurationError.
func NewConfigurationError(adapter string, field string, reason string) *ConfigurationError {
	return &ConfigurationError{
		Adapter: adapter,
		Field:   field,
		Reason:  reason,
	}
}

// UnknownAdapterError is returned when an adapter name was never registered.
type UnknownAdapterError struct {
	Name string
}

// Error implements the error interface.
func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter %s, please register it before using it", e.Name)
}

// Is checks if the error is ErrAdapterNotFound.
func (e *UnknownAdapterError) Is(target error) bool {
	return target == ErrAdapterNotFound
}

// DuplicateAdapterError is returned when an adapter name is registered twice.
type DuplicateAdapterError struct {
	Name string
}

// Error implements the error interface.
func (e *DuplicateAdapterError) Error() string {
	return fmt.Sprintf("adapter %s already exists", e.Name)
}

// Is checks if the error is ErrDuplicateAdapter.
func (e *DuplicateAdapterError) Is(target error) bool {
	return target == ErrDuplicateAdapter
}

// NotImplementedError is returned by bindings that do not fulfil part of the contract.
type NotImplementedError struct {
	Operation string
}

// Error implements the error interface.
func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("`%s` is not implemented", e.Operation)
}

// Is checks if the error is ErrNotImplemented.
func (e *NotImplementedError) Is(target error) bool {
	return target == ErrNotImplemented
}

// ConnectionError is returned when a connection error occurs.
type ConnectionError struct {
	Adapter string
	URI     string // credentials already masked
	Cause   error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect %s to %s: %v", e.Adapter, e.URI, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is ErrConnectionFailed.
func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnectionFailed
}

// NewConnectionError creates a new ConnectionError. The uri is masked before being stored.
func NewConnectionError(adapter string, uri string, cause error) *ConnectionError {
	return &ConnectionError{
		Adapter: adapter,
		URI:     HideCredentials(uri),
		Cause:   cause,
	}
}

// TimeoutError is returned by WhenReady when the deadline elapses first.
type TimeoutError struct {
	Adapter string
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("adapter %s not ready after %s", e.Adapter, e.Timeout)
}

// Is checks if the error is ErrReadyTimeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrReadyTimeout
}

// InvalidArgumentError is returned when an argument cannot be used.
type InvalidArgumentError struct {
	Argument string
	Reason   string
}

// Error implements the error interface.
func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Argument, e.Reason)
}

// Is checks if the error is ErrInvalidArgument.
func (e *InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// IsConfigurationError checks if an error is a configuration error.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}

// IsConnectionError checks if an error is a connection error.
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrConnectionFailed)
}

// IsNotImplemented checks if an error reports a missing binding capability.
func IsNotImplemented(err error) bool {
	return errors.Is(err, ErrNotImplemented)
}
