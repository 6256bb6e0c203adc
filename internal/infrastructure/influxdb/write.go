package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by Gatekeeper Core.
const (
	// MeasurementAccessDecision records one point per authorization decision.
	MeasurementAccessDecision = "access_decision"

	// MeasurementRelayTransition records one point per genuine relay change.
	MeasurementRelayTransition = "relay_transition"
)

// WriteAccessDecision records the outcome of a command dispatch.
//
// Tags: device_id, command, outcome, reason
// Fields: allowed (1 or 0), redundant (bool)
//
// This method is non-blocking. Points are batched and written asynchronously.
func (c *Client) WriteAccessDecision(deviceID, command, outcome, reason string, redundant bool, at time.Time) {
	if !c.IsConnected() {
		return
	}

	allowed := 0
	if outcome == "allowed" {
		allowed = 1
	}

	point := write.NewPoint(
		MeasurementAccessDecision,
		map[string]string{
			"device_id": deviceID,
			"command":   command,
			"outcome":   outcome,
			"reason":    reason,
		},
		map[string]interface{}{
			"allowed":   allowed,
			"redundant": redundant,
		},
		at,
	)

	c.writeAPI.WritePoint(point)
}

// WriteRelayTransition records a relay state change.
//
// Tags: device_id, state
// Fields: open (1 or 0)
func (c *Client) WriteRelayTransition(deviceID, state string, at time.Time) {
	if !c.IsConnected() {
		return
	}

	open := 0
	if state == "open" {
		open = 1
	}

	point := write.NewPoint(
		MeasurementRelayTransition,
		map[string]string{
			"device_id": deviceID,
			"state":     state,
		},
		map[string]interface{}{
			"open": open,
		},
		at,
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a generic point with custom measurement, tags, and fields.
// The timestamp is set to the current time.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a generic point with an explicit timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
