// Package engine is the composition root of Gatekeeper Core.
//
// An Engine owns the device and user stores, the audit log and the command
// dispatcher, all over one SQLite database, and exposes the operations the
// HTTP API and the directory sync consume. Errors returned by the engine
// can be classified with KindOf.
//
// Usage:
//
//	eng := engine.New(db, engine.Options{Actuator: actuator, Logger: log})
//	eng.AddObserver(engine.BroadcastObserver(hub))
//
//	res, err := eng.DispatchCommand(ctx, deviceID, relay.CommandActivate, caller)
//	if err != nil {
//	    return err // engine.KindOf(err) says whether to retry
//	}
//	if !res.Applied() {
//	    log.Printf("rejected: %s", res.Reason)
//	}
package engine
