// Package cache implements the client's materialized read cache and
// the reconciler that folds server events into it.
//
// The reconciler is the only writer of entry state. It enforces
// per-entity sequence monotonicity, which makes event application
// idempotent and tolerant of duplicate or reordered delivery after
// reconnects. The server sends full entity snapshots, so sequence gaps
// are not errors: the newest payload is authoritative.
package cache
