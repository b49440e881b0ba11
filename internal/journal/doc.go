// Package journal implements the batch writer that archives applied
// sync events to PostgreSQL.
//
// The journal is append-only. Rows are keyed by (topic, entity_id,
// sequence), so replays after a reconnect dedupe in the database via
// ON CONFLICT DO NOTHING.
package journal
