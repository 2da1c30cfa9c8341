// Package confirm implements the orchestration of one charge-check run.
//
// The runner:
//   - Validates the subscriber token shape before connecting
//   - Opens one relay session at a time and consumes its events
//   - Reconnects with a bounded retry budget and per-cause backoff
//   - Enforces one wall-clock deadline across all attempts
//   - Produces exactly one terminal outcome per run
package confirm
