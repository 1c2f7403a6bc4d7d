// Package mysql provides the MySQL-backed store for the sync engine: the
// outbox table, per-type sync status with a last-status archive slot,
// cooldown markers and operator stop flags, plus a retention cleanup
// maintainer guarded by an advisory lock.
//
// Queued-page fetches use READ COMMITTED with FOR UPDATE SKIP LOCKED and
// mark the page as syncing in the same transaction, so the row status is
// the durable handoff between invocations.
package mysql
