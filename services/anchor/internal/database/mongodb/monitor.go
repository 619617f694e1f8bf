package mongodb

import (
	"go.mongodb.org/mongo-driver/v2/event"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/redbco/redb-docstore/pkg/anchor/adapter"
)

// newServerMonitor reports failed heartbeats to notifier. Network failures
// mean the connection is gone; anything else is reported as a driver error.
func newServerMonitor(notifier adapter.Notifier) *event.ServerMonitor {
	return &event.ServerMonitor{
		ServerHeartbeatFailed: func(e *event.ServerHeartbeatFailedEvent) {
			reportHeartbeatFailure(notifier, e.Failure)
		},
	}
}

func reportHeartbeatFailure(notifier adapter.Notifier, err error) {
	if notifier == nil || err == nil {
		return
	}
	if mongo.IsNetworkError(err) {
		notifier.Disconnected()
		return
	}
	notifier.Failed(err)
}
