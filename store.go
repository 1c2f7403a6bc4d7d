package syncpump

import (
	"context"
	"time"
)

// Store persists outbox rows and sync status. Implementations must support
// concurrent use across sync types; the engine never runs two invocations
// for the same sync type concurrently.
type Store interface {
	// TrackedIDs returns the foreign ids that already have a live outbox
	// row for the sync type, used as the candidate exclusion set.
	TrackedIDs(ctx context.Context, syncType string) (map[int64]struct{}, error)

	// Stage inserts staged rows for the given foreign ids, skipping ids
	// already tracked. Idempotent: re-staging a tracked id is a no-op.
	// Returns the number of rows actually inserted.
	Stage(ctx context.Context, syncType string, foreignIDs []int64) (int, error)

	// Promote moves all staged rows of the sync type into the queued
	// state and returns the number of rows now queued. This is the
	// durable handoff: on restart, queued rows are the retry set.
	// Implementations also return rows stranded in the syncing state by
	// a crashed run to the queue; the scheduler guarantees no chunk of
	// this sync type is in flight when Promote runs.
	Promote(ctx context.Context, syncType string) (int64, error)

	// FetchQueued returns up to limit queued rows ordered by id, marking
	// them syncing in the same transaction.
	FetchQueued(ctx context.Context, syncType string, limit int) ([]Row, error)

	// ClaimRow marks a single non-terminal (or failed) row as syncing and
	// returns it, supporting operator-forced single-record syncs.
	ClaimRow(ctx context.Context, syncType string, foreignID int64) (Row, error)

	// MarkSynced moves rows to the synced state, recording the remote id
	// for each foreign id present in remoteIDs.
	MarkSynced(ctx context.Context, syncType string, foreignIDs []int64, remoteIDs map[int64]string) error

	// MarkFailed moves rows to the failed state with the given reason.
	MarkFailed(ctx context.Context, syncType string, foreignIDs []int64, reason string) error

	// MarkIncompatible moves rows to the incompatible state with the given reason.
	MarkIncompatible(ctx context.Context, syncType string, foreignIDs []int64, reason string) error

	// PutBack returns in-flight rows to the queued state, incrementing
	// their attempt count.
	PutBack(ctx context.Context, syncType string, foreignIDs []int64) error

	// LoadStatus returns the persisted sync status, or nil when the sync
	// type has never run.
	LoadStatus(ctx context.Context, syncType string) (*SyncStatus, error)

	// SaveStatus upserts the sync status.
	SaveStatus(ctx context.Context, status *SyncStatus) error

	// ArchiveStatus copies the status into the last-status slot, done on
	// finish, cancel and halt.
	ArchiveStatus(ctx context.Context, status *SyncStatus) error

	// LoadLastStatus returns the archived status, or nil when absent.
	LoadLastStatus(ctx context.Context, syncType string) (*SyncStatus, error)

	// StopRequested reports whether an operator requested a stop. Read
	// fresh on every iteration; never cached in memory.
	StopRequested(ctx context.Context, syncType string) (bool, error)

	// SetStopRequested sets or clears the operator stop flag.
	SetStopRequested(ctx context.Context, syncType string, stop bool) error

	// Reset removes the sync status and all non-terminal rows of the sync
	// type so the next run reselects from the start.
	Reset(ctx context.Context, syncType string) error
}

// CooldownStore persists the outage cooldown marker per remote dependency.
type CooldownStore interface {
	// CooldownUntil returns the marker expiry for the dependency; the
	// zero time means no cooldown is armed.
	CooldownUntil(ctx context.Context, dependency string) (time.Time, error)
	// SetCooldown arms the marker until the given time.
	SetCooldown(ctx context.Context, dependency string, until time.Time) error
	// ClearCooldown removes the marker.
	ClearCooldown(ctx context.Context, dependency string) error
}
