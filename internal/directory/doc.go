// Package directory keeps authorized users in step with a remote directory.
//
// A Syncer periodically fetches a JSON snapshot of grants and reconciles
// it through the engine: missing grants are added, changed ones replaced
// and vanished ones revoked. Only users whose source is "directory" are
// considered, so grants made by operators are never removed by a sync.
// A message on the MQTT directory sync topic triggers an immediate run.
//
// Snapshot format:
//
//	{"grants": [{"external_id": "emp-42", "device_id": "gate-1",
//	             "phone_number": "+15550100", "valid_until": "2025-01-01T00:00:00Z"}]}
package directory
