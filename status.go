package syncpump

// RowStatus represents the lifecycle state of an outbox row.
//
// Rows move forward only: STAGED -> QUEUED -> SYNCING -> terminal. The one
// sanctioned reversion is the explicit put-back from SYNCING to QUEUED when
// a chunk response did not confirm the row either way.
type RowStatus int16

const (
	// RowStaged indicates the row was inserted by the preparer and awaits promotion.
	RowStaged RowStatus = 0
	// RowQueued indicates the row is durably queued for transmission.
	RowQueued RowStatus = 1
	// RowSyncing indicates the row is part of an in-flight chunk.
	RowSyncing RowStatus = 2
	// RowSynced indicates the remote confirmed the row.
	RowSynced RowStatus = 3
	// RowFailed indicates the remote rejected the row by per-record validation.
	RowFailed RowStatus = -1
	// RowIncompatible indicates a local precondition failure; never retried automatically.
	RowIncompatible RowStatus = -2
)

// String returns the lowercase name of the status.
func (s RowStatus) String() string {
	switch s {
	case RowStaged:
		return "staged"
	case RowQueued:
		return "queued"
	case RowSyncing:
		return "syncing"
	case RowSynced:
		return "synced"
	case RowFailed:
		return "failed"
	case RowIncompatible:
		return "incompatible"
	default:
		return "unknown"
	}
}

// Terminal reports whether the row can no longer change state.
func (s RowStatus) Terminal() bool {
	return s == RowSynced || s == RowFailed || s == RowIncompatible
}
