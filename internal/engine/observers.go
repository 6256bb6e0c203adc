package engine

import (
	"context"
	"time"

	"github.com/nerrad567/gatekeeper-core/internal/dispatch"
)

// WebSocket channels carrying dispatch events.
const (
	ChannelAuditAppended = "audit.appended"
	ChannelRelayChanged  = "device.relay_changed"
)

// MetricsWriter records dispatch metrics. The InfluxDB client satisfies it.
type MetricsWriter interface {
	WriteAccessDecision(deviceID, command, outcome, reason string, redundant bool, at time.Time)
	WriteRelayTransition(deviceID, state string, at time.Time)
}

// Broadcaster pushes events to live subscribers. The API hub satisfies it.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// MetricsObserver writes an access_decision point for every dispatch and a
// relay_transition point for every state change.
func MetricsObserver(w MetricsWriter) dispatch.Observer {
	return dispatch.ObserverFunc(func(_ context.Context, res *dispatch.Result) {
		at := res.Entry.CreatedAt
		w.WriteAccessDecision(res.DeviceID, string(res.Command), string(res.Entry.Outcome),
			string(res.Reason), res.Redundant, at)
		if res.Transitioned() {
			w.WriteRelayTransition(res.DeviceID, string(res.State), at)
		}
	})
}

// BroadcastObserver publishes every audit entry on ChannelAuditAppended and
// every state change on ChannelRelayChanged.
func BroadcastObserver(b Broadcaster) dispatch.Observer {
	return dispatch.ObserverFunc(func(_ context.Context, res *dispatch.Result) {
		b.Broadcast(ChannelAuditAppended, res.Entry)
		if res.Transitioned() {
			b.Broadcast(ChannelRelayChanged, map[string]any{
				"device_id":      res.DeviceID,
				"state":          res.State,
				"previous_state": res.PreviousState,
				"audit_entry_id": res.Entry.ID,
				"actuated":       res.Actuated,
				"timestamp":      res.Entry.CreatedAt,
			})
		}
	})
}
