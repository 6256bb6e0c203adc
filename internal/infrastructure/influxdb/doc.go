// Package influxdb provides InfluxDB connectivity for Gatekeeper Core.
//
// It wraps the official influxdb-client-go v2 library for connection
// management, non-blocking point writes, and health monitoring.
//
// # Purpose
//
// Gatekeeper writes two measurements:
//   - access_decision: one point per dispatched command (allowed or denied)
//   - relay_transition: one point per genuine relay state change
//
// These complement the audit log, which remains the source of truth.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // metrics off
//	}
//	defer client.Close()
//
//	client.WriteRelayTransition("gate-north", "open", time.Now())
package influxdb
