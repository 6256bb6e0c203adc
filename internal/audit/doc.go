// Package audit is the append-only ledger of authorization decisions.
//
// Every dispatch, allowed or denied, appends exactly one Entry. Entries are
// ordered by (created_at DESC, seq DESC); seq is the insertion sequence and
// created_at is clamped so that it never moves backwards. Within a device,
// each entry stores the SHA-256 hash of its content chained to the previous
// entry's hash, so Verify can detect rows edited or removed behind the
// log's back.
//
// The dispatcher appends inside its own transaction with AppendTx so that
// the relay state change and its entry commit together.
package audit
