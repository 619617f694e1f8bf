package database

import (
	"fmt"

	"github.com/redbco/redb-docstore/pkg/anchor/adapter"
	"github.com/redbco/redb-docstore/pkg/logger"
)

// DatabaseLogContext provides structured context for database logging
type DatabaseLogContext struct {
	AdapterType string
	AdapterID   string
	Key         string
	URI         string // masked before formatting
	Operation   string
}

// DatabaseLogger provides unified logging for adapter lifecycles
type DatabaseLogger struct {
	logger *logger.Logger
}

// NewDatabaseLogger creates a new database logger
func NewDatabaseLogger(logger *logger.Logger) *DatabaseLogger {
	return &DatabaseLogger{
		logger: logger,
	}
}

// LogEvent logs a lifecycle event of the adapter cached under key
func (dl *DatabaseLogger) LogEvent(key string, e adapter.Event) {
	ctx := DatabaseLogContext{
		AdapterType: e.Adapter,
		AdapterID:   e.AdapterID,
		Key:         key,
		URI:         e.URI,
	}

	switch e.Kind {
	case adapter.EventConnecting:
		dl.LogConnectionAttempt(ctx)
	case adapter.EventConnected:
		dl.LogConnectionSuccess(ctx)
	case adapter.EventReady:
		dl.LogReady(ctx)
	case adapter.EventDisconnected:
		dl.LogDisconnection(ctx)
	case adapter.EventError:
		dl.LogConnectionFailure(ctx, e.Err)
	case adapter.EventReconnectFailed:
		dl.LogReconnectFailure(ctx)
	case adapter.EventClosed:
		dl.LogClosed(ctx)
	}
}

// LogConnectionAttempt logs when a connection attempt is starting
func (dl *DatabaseLogger) LogConnectionAttempt(ctx DatabaseLogContext) {
	if dl.logger == nil {
		return
	}

	message := dl.formatConnectionMessage("Attempting connection", ctx)
	dl.logger.Debug("%s", message)
}

// LogConnectionSuccess logs successful database connections
func (dl *DatabaseLogger) LogConnectionSuccess(ctx DatabaseLogContext) {
	if dl.logger == nil {
		return
	}

	message := dl.formatConnectionMessage("Connection established", ctx)
	dl.logger.Info("%s", message)
}

// LogReady logs that waiters of the adapter were released
func (dl *DatabaseLogger) LogReady(ctx DatabaseLogContext) {
	if dl.logger == nil {
		return
	}

	message := dl.formatConnectionMessage("Adapter ready", ctx)
	dl.logger.Debug("%s", message)
}

// LogConnectionFailure logs connection failures and driver errors as warnings
func (dl *DatabaseLogger) LogConnectionFailure(ctx DatabaseLogContext, err error) {
	if dl.logger == nil {
		return
	}

	message := dl.formatConnectionMessage("Connection failed", ctx)
	dl.logger.Warn("%s: %v", message, err)
}

// LogDisconnection logs a lost connection
func (dl *DatabaseLogger) LogDisconnection(ctx DatabaseLogContext) {
	if dl.logger == nil {
		return
	}

	message := dl.formatConnectionMessage("Connection lost", ctx)
	dl.logger.Warn("%s", message)
}

// LogReconnectFailure logs a failed reconnection attempt
func (dl *DatabaseLogger) LogReconnectFailure(ctx DatabaseLogContext) {
	if dl.logger == nil {
		return
	}

	message := dl.formatConnectionMessage("Reconnection failed", ctx)
	dl.logger.Warn("%s", message)
}

// LogClosed logs a closed adapter
func (dl *DatabaseLogger) LogClosed(ctx DatabaseLogContext) {
	if dl.logger == nil {
		return
	}

	message := dl.formatConnectionMessage("Adapter closed", ctx)
	dl.logger.Info("%s", message)
}

// LogOperationFailure logs failures of manager operations
func (dl *DatabaseLogger) LogOperationFailure(ctx DatabaseLogContext, err error) {
	if dl.logger == nil {
		return
	}

	message := dl.formatOperationMessage("Operation failed", ctx)
	dl.logger.Error("%s: %v", message, err)
}

// LogHealthCheck logs adapter health check results
func (dl *DatabaseLogger) LogHealthCheck(ctx DatabaseLogContext, isHealthy bool, err error) {
	if dl.logger == nil {
		return
	}

	if isHealthy {
		message := dl.formatConnectionMessage("Health check passed", ctx)
		dl.logger.Debug("%s", message)
	} else {
		message := dl.formatConnectionMessage("Health check failed", ctx)
		dl.logger.Warn("%s: %v", message, err)
	}
}

// Helper methods for formatting log messages

func (dl *DatabaseLogger) formatConnectionMessage(action string, ctx DatabaseLogContext) string {
	base := fmt.Sprintf("[%s] %s", ctx.AdapterType, action)

	if ctx.Key != "" {
		base = fmt.Sprintf("%s key=%s", base, ctx.Key)
	}
	if ctx.AdapterID != "" {
		base = fmt.Sprintf("%s adapter_id=%s", base, ctx.AdapterID)
	}
	if ctx.URI != "" {
		base = fmt.Sprintf("%s uri=%s", base, adapter.HideCredentials(ctx.URI))
	}

	return base
}

func (dl *DatabaseLogger) formatOperationMessage(action string, ctx DatabaseLogContext) string {
	base := fmt.Sprintf("[%s] %s", ctx.AdapterType, action)

	if ctx.Operation != "" {
		base = fmt.Sprintf("%s operation=%s", base, ctx.Operation)
	}
	if ctx.Key != "" {
		base = fmt.Sprintf("%s key=%s", base, ctx.Key)
	}

	return base
}
