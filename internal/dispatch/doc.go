// Package dispatch serialises relay commands per device.
//
// A dispatch holds the device's slot while it loads the device, evaluates
// the caller, updates relay_state and appends the audit entry, all in one
// transaction. The relay signal is sent after commit and only for a real
// state change; redundant commands are audited but not signalled.
//
// Usage:
//
//	d := dispatch.New(dispatch.Deps{
//	    DB:       db,
//	    Devices:  devices,
//	    Users:    users,
//	    Audit:    auditLog,
//	    Clock:    clock.System(),
//	    Actuator: actuator,
//	}, dispatch.Options{LockTimeout: 2 * time.Second})
//
//	res, err := d.Dispatch(ctx, "gate-1", relay.CommandActivate, "+15550100")
package dispatch
