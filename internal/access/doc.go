// Package access holds authorized users and the policy that decides whether
// a caller may command a device.
//
// The repository stores users without interpreting their validity windows.
// The Evaluator owns that policy: it matches a caller by phone number or
// serial number and admits it only inside an inclusive [ValidFrom,
// ValidUntil] window. Devices in any_caller mode bypass the user list.
//
// Usage:
//
//	users := access.NewSQLiteRepository(db, clk)
//	decision, err := access.NewEvaluator(users).Evaluate(ctx, dev, "+15550100", clk.Now())
//	if err != nil {
//	    return err
//	}
//	if !decision.Allowed() {
//	    log.Printf("denied: %s", decision.Reason)
//	}
package access
