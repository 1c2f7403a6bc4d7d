package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopsync/syncpump"
)

// LoadStatus implements syncpump.Store; returns nil when the sync type
// has never run.
func (s *Store) LoadStatus(ctx context.Context, syncType string) (*syncpump.SyncStatus, error) {
	return s.scanStatus(s.db.QueryRowContext(ctx, s.queries.selectStatus, syncType))
}

// SaveStatus implements syncpump.Store.
func (s *Store) SaveStatus(ctx context.Context, status *syncpump.SyncStatus) error {
	args, err := statusArgs(status)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, s.queries.upsertStatus, args...); err != nil {
		return fmt.Errorf("syncpump mysql: save status failed: %w", err)
	}

	return nil
}

// ArchiveStatus implements syncpump.Store: the last-status slot holds one
// archived record per sync type, overwritten on each finish/cancel/halt.
func (s *Store) ArchiveStatus(ctx context.Context, status *syncpump.SyncStatus) error {
	args, err := statusArgs(status)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, s.queries.archiveStatus, args...); err != nil {
		return fmt.Errorf("syncpump mysql: archive status failed: %w", err)
	}

	return nil
}

// LoadLastStatus implements syncpump.Store.
func (s *Store) LoadLastStatus(ctx context.Context, syncType string) (*syncpump.SyncStatus, error) {
	return s.scanStatus(s.db.QueryRowContext(ctx, s.queries.selectArchive, syncType))
}

// StopRequested implements syncpump.Store; an absent status row means no
// stop is pending.
func (s *Store) StopRequested(ctx context.Context, syncType string) (bool, error) {
	var stop bool
	err := s.db.QueryRowContext(ctx, s.queries.selectStop, syncType).Scan(&stop)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("syncpump mysql: read stop flag failed: %w", err)
	}

	return stop, nil
}

// SetStopRequested implements syncpump.Store.
func (s *Store) SetStopRequested(ctx context.Context, syncType string, stop bool) error {
	if syncType == "" {
		return ErrSyncTypeRequired
	}

	if _, err := s.db.ExecContext(ctx, s.queries.upsertStop, syncType, syncpump.StateNone, stop); err != nil {
		return fmt.Errorf("syncpump mysql: set stop flag failed: %w", err)
	}

	return nil
}

// CooldownUntil implements syncpump.CooldownStore; an absent marker
// returns the zero time.
func (s *Store) CooldownUntil(ctx context.Context, dependency string) (time.Time, error) {
	var until time.Time
	err := s.db.QueryRowContext(ctx, s.queries.selectCooldown, dependency).Scan(&until)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("syncpump mysql: read cooldown failed: %w", err)
	}

	return until, nil
}

// SetCooldown implements syncpump.CooldownStore.
func (s *Store) SetCooldown(ctx context.Context, dependency string, until time.Time) error {
	if _, err := s.db.ExecContext(ctx, s.queries.upsertCooldown, dependency, until); err != nil {
		return fmt.Errorf("syncpump mysql: set cooldown failed: %w", err)
	}

	return nil
}

// ClearCooldown implements syncpump.CooldownStore.
func (s *Store) ClearCooldown(ctx context.Context, dependency string) error {
	if _, err := s.db.ExecContext(ctx, s.queries.deleteCooldown, dependency); err != nil {
		return fmt.Errorf("syncpump mysql: clear cooldown failed: %w", err)
	}

	return nil
}

func (s *Store) scanStatus(row *sql.Row) (*syncpump.SyncStatus, error) {
	var (
		status           syncpump.SyncStatus
		state            string
		failedJSON       []byte
		incompatibleJSON []byte
		startedAt        sql.NullTime
		updatedAt        sql.NullTime
		endedAt          sql.NullTime
	)

	err := row.Scan(
		&status.SyncType, &state, &status.CurrentRecord, &status.StartRecord,
		&status.BatchLimit, &status.BatchRuns, &status.SuccessCount,
		&failedJSON, &incompatibleJSON, &startedAt, &updatedAt, &endedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("syncpump mysql: status scan failed: %w", err)
	}

	status.State = syncpump.State(state)
	if err := json.Unmarshal(failedJSON, &status.FailedIDs); err != nil {
		return nil, fmt.Errorf("syncpump mysql: decode failed ids failed: %w", err)
	}
	if err := json.Unmarshal(incompatibleJSON, &status.IncompatibleIDs); err != nil {
		return nil, fmt.Errorf("syncpump mysql: decode incompatible ids failed: %w", err)
	}
	if startedAt.Valid {
		status.StartedAt = startedAt.Time
	}
	if updatedAt.Valid {
		status.UpdatedAt = updatedAt.Time
	}
	if endedAt.Valid {
		status.EndedAt = endedAt.Time
	}

	return &status, nil
}

func statusArgs(status *syncpump.SyncStatus) ([]any, error) {
	if status == nil || status.SyncType == "" {
		return nil, ErrSyncTypeRequired
	}

	failedJSON, err := encodeIDs(status.FailedIDs)
	if err != nil {
		return nil, err
	}
	incompatibleJSON, err := encodeIDs(status.IncompatibleIDs)
	if err != nil {
		return nil, err
	}

	return []any{
		status.SyncType, string(status.State), status.CurrentRecord, status.StartRecord,
		status.BatchLimit, status.BatchRuns, status.SuccessCount,
		failedJSON, incompatibleJSON,
		nullTime(status.StartedAt), nullTime(status.UpdatedAt), nullTime(status.EndedAt),
	}, nil
}

func encodeIDs(ids []int64) ([]byte, error) {
	if ids == nil {
		ids = []int64{}
	}
	encoded, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("syncpump mysql: encode id set failed: %w", err)
	}

	return encoded, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}

	return t
}
