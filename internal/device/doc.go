// Package device stores the relay-controlled devices that callers ask to
// open or close.
//
// The repository owns every device column except relay_state, which only
// the dispatch package writes while holding the device's lock. Deleting a
// device cascades to its authorized users and audit entries.
//
// Phone numbers are normalised with NormalizePhoneNumber before storage so
// that "+1 (555) 010-2030" and "+15550102030" are the same device line.
package device
