package syncpump

import "time"

// State names the lifecycle phase of a sync type.
type State string

const (
	// StateNone is the state before the first run of a sync type.
	StateNone State = "none"
	// StatePreparing indicates candidates are being selected and staged.
	StatePreparing State = "preparing"
	// StateQueuedReady indicates queued rows remain for a later invocation.
	StateQueuedReady State = "queued_ready"
	// StateSyncing indicates chunks are being transmitted.
	StateSyncing State = "syncing"
	// StateFinished indicates the queue drained with no candidates left.
	StateFinished State = "finished"
	// StateStopped indicates an operator stop took effect mid-run.
	StateStopped State = "stopped"
	// StateCancelled indicates an operator cancelled the sync.
	StateCancelled State = "cancelled"
	// StateHalted indicates an unclassifiable condition stopped this sync type.
	StateHalted State = "halted"
	// StateReset indicates an operator reset; the next run starts from scratch.
	StateReset State = "reset"
)

// SyncStatus is the persisted per-sync-type progress record read and
// updated by every run-loop iteration.
//
// The running/finished/cancelled/halted flags are derived from State and
// never stored independently; exactly one of them is true after any
// transition completes.
type SyncStatus struct {
	SyncType      string
	State         State
	CurrentRecord int64
	StartRecord   int64
	BatchLimit    int
	BatchRuns     int
	SuccessCount  int
	// FailedIDs holds foreign ids rejected by remote validation.
	// Set semantics even though persisted as an array.
	FailedIDs []int64
	// IncompatibleIDs holds foreign ids excluded by local preconditions.
	IncompatibleIDs []int64
	StartedAt       time.Time
	UpdatedAt       time.Time
	EndedAt         time.Time
}

// NewSyncStatus returns the default status created on the first run of a
// sync type.
func NewSyncStatus(syncType string, batchLimit, batchRuns int, now time.Time) *SyncStatus {
	return &SyncStatus{
		SyncType:   syncType,
		State:      StateNone,
		BatchLimit: batchLimit,
		BatchRuns:  batchRuns,
		StartedAt:  now,
		UpdatedAt:  now,
	}
}

// IsRunning reports whether the sync type is mid-run.
func (s *SyncStatus) IsRunning() bool {
	switch s.State {
	case StatePreparing, StateQueuedReady, StateSyncing:
		return true
	default:
		return false
	}
}

// IsFinished reports whether the sync type completed or was never started.
func (s *SyncStatus) IsFinished() bool {
	switch s.State {
	case StateNone, StateFinished, StateReset:
		return true
	default:
		return false
	}
}

// IsCancelled reports whether an operator stopped or cancelled the sync.
func (s *SyncStatus) IsCancelled() bool {
	return s.State == StateStopped || s.State == StateCancelled
}

// IsHalted reports whether the sync type halted on a fatal condition.
func (s *SyncStatus) IsHalted() bool {
	return s.State == StateHalted
}

// MarkPreparing transitions into candidate selection and staging.
func (s *SyncStatus) MarkPreparing(now time.Time) {
	if s.StartedAt.IsZero() || s.IsFinished() {
		s.StartedAt = now
		s.EndedAt = time.Time{}
	}
	s.State = StatePreparing
	s.UpdatedAt = now
}

// MarkSyncing transitions into chunk transmission.
func (s *SyncStatus) MarkSyncing(now time.Time) {
	s.State = StateSyncing
	s.UpdatedAt = now
}

// MarkQueuedReady records that queued rows remain for a later invocation.
func (s *SyncStatus) MarkQueuedReady(now time.Time) {
	s.State = StateQueuedReady
	s.UpdatedAt = now
}

// MarkFinished records that the queue drained with no candidates left.
func (s *SyncStatus) MarkFinished(now time.Time) {
	s.State = StateFinished
	s.UpdatedAt = now
	s.EndedAt = now
}

// MarkStopped records an operator stop taking effect.
func (s *SyncStatus) MarkStopped(now time.Time) {
	s.State = StateStopped
	s.UpdatedAt = now
	s.EndedAt = now
}

// MarkCancelled records an operator cancellation.
func (s *SyncStatus) MarkCancelled(now time.Time) {
	s.State = StateCancelled
	s.UpdatedAt = now
	s.EndedAt = now
}

// MarkHalted records a fatal halt of this sync type.
func (s *SyncStatus) MarkHalted(now time.Time) {
	s.State = StateHalted
	s.UpdatedAt = now
	s.EndedAt = now
}

// MarkReset clears progress so the next run starts from scratch, keeping
// the configured batch limits.
func (s *SyncStatus) MarkReset(now time.Time) {
	s.State = StateReset
	s.CurrentRecord = 0
	s.StartRecord = 0
	s.SuccessCount = 0
	s.FailedIDs = nil
	s.IncompatibleIDs = nil
	s.UpdatedAt = now
	s.EndedAt = now
}

// AddFailed appends a foreign id to the failed set, ignoring duplicates.
func (s *SyncStatus) AddFailed(foreignID int64) {
	s.FailedIDs = appendUnique(s.FailedIDs, foreignID)
}

// AddIncompatible appends a foreign id to the incompatible set, ignoring duplicates.
func (s *SyncStatus) AddIncompatible(foreignID int64) {
	s.IncompatibleIDs = appendUnique(s.IncompatibleIDs, foreignID)
}

// Clone returns a deep copy, used when archiving to the last-status slot.
func (s *SyncStatus) Clone() *SyncStatus {
	clone := *s
	clone.FailedIDs = append([]int64(nil), s.FailedIDs...)
	clone.IncompatibleIDs = append([]int64(nil), s.IncompatibleIDs...)

	return &clone
}

func appendUnique(ids []int64, id int64) []int64 {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}

	return append(ids, id)
}
