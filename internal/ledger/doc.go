// Package ledger implements the durable store of confirmed charges.
//
// The ledger:
//   - Is append-only; records are never mutated or deleted
//   - Enforces a structural uniqueness constraint on (time, amount, name)
//   - Distinguishes duplicate inserts (ErrDuplicate) from other failures
//   - Backs onto PostgreSQL or an embedded SQLite file
//
// All charge persistence goes through this package; no other component
// touches the backing store.
package ledger
