package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/shopsync/syncpump"
)

const (
	maxErrorLen       = 1024
	placeholderGrowth = 2
)

// Store implements the engine's Store and CooldownStore on MySQL.
type Store struct {
	db      *sql.DB
	cfg     Config
	queries queries
}

var _ syncpump.Store = (*Store)(nil)
var _ syncpump.CooldownStore = (*Store)(nil)

// NewStore constructs a MySQL store with validated configuration.
func NewStore(db *sql.DB, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrDBRequired
	}

	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg = cfg.withDefaults()

	for _, table := range []*string{&cfg.OutboxTable, &cfg.StatusTable, &cfg.ArchiveTable, &cfg.CooldownTable} {
		name, err := sanitizeTableName(*table)
		if err != nil {
			return nil, err
		}
		*table = name
	}

	return &Store{
		db:      db,
		cfg:     cfg,
		queries: newQueries(cfg),
	}, nil
}

// MustNewStore constructs a MySQL store or panics on error.
func MustNewStore(db *sql.DB, opts ...Option) *Store {
	store, err := NewStore(db, opts...)
	if err != nil {
		panic(err)
	}

	return store
}

// TrackedIDs implements syncpump.Store.
func (s *Store) TrackedIDs(ctx context.Context, syncType string) (map[int64]struct{}, error) {
	if syncType == "" {
		return nil, ErrSyncTypeRequired
	}

	rows, err := s.db.QueryContext(ctx, s.queries.trackedIDs, syncType)
	if err != nil {
		return nil, fmt.Errorf("syncpump mysql: tracked ids query failed: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("syncpump mysql: tracked ids scan failed: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("syncpump mysql: tracked ids rows failed: %w", err)
	}

	return ids, nil
}

// Stage implements syncpump.Store. INSERT IGNORE against the unique
// (sync_type, foreign_id) key makes re-staging a tracked id a no-op.
func (s *Store) Stage(ctx context.Context, syncType string, foreignIDs []int64) (int, error) {
	if syncType == "" {
		return 0, ErrSyncTypeRequired
	}
	if len(foreignIDs) == 0 {
		return 0, nil
	}

	staged := 0
	for _, foreignID := range foreignIDs {
		id, err := uuid.NewV7()
		if err != nil {
			return staged, fmt.Errorf("syncpump mysql: generate row id failed: %w", err)
		}
		res, err := s.db.ExecContext(ctx, s.queries.stageRow, id[:], syncType, foreignID, syncpump.RowStaged)
		if err != nil {
			return staged, fmt.Errorf("syncpump mysql: stage insert failed: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return staged, fmt.Errorf("syncpump mysql: stage rows failed: %w", err)
		}
		staged += int(affected)
	}

	return staged, nil
}

// CaptureCart upserts an abandoned-cart row with its denormalized
// snapshot. Called by the cart-change capture path, not by the run loop.
// Guest carts carry no platform id; they are keyed by a synthetic
// negative foreign id derived from the checkout session key, so
// concurrent guest sessions never collide on the (sync_type, foreign_id)
// unique key.
func (s *Store) CaptureCart(
	ctx context.Context,
	syncType string,
	foreignID int64,
	sessionKey string,
	snapshot json.RawMessage,
	abandonedAt time.Time,
) error {
	if syncType == "" {
		return ErrSyncTypeRequired
	}
	if foreignID == 0 {
		if sessionKey == "" {
			return ErrCartUnidentified
		}
		foreignID = sessionForeignID(sessionKey)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("syncpump mysql: generate row id failed: %w", err)
	}

	// #nosec G201 -- table names are sanitized in NewStore.
	query := fmt.Sprintf(
		"INSERT INTO %s (id, sync_type, foreign_id, status, snapshot, session_key, abandoned_at) "+
			"VALUES (?, ?, ?, ?, ?, ?, ?) "+
			"ON DUPLICATE KEY UPDATE snapshot = VALUES(snapshot), session_key = VALUES(session_key), "+
			"abandoned_at = VALUES(abandoned_at)",
		s.cfg.OutboxTable,
	)
	if _, err := s.db.ExecContext(
		ctx, query, id[:], syncType, foreignID, syncpump.RowStaged, snapshot, sessionKey, abandonedAt,
	); err != nil {
		return fmt.Errorf("syncpump mysql: capture cart failed: %w", err)
	}

	return nil
}

// sessionForeignID maps a checkout session key into the negative int64
// range, keeping synthetic guest cart ids disjoint from platform ids.
func sessionForeignID(sessionKey string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(sessionKey))
	id := int64(h.Sum64() >> 1)
	if id == 0 {
		id = 1
	}

	return -id
}

// Promote implements syncpump.Store. Rows stranded in the syncing state by
// a crashed run are returned to the queue first; nothing of this sync type
// is in flight when Promote runs.
func (s *Store) Promote(ctx context.Context, syncType string) (int64, error) {
	if syncType == "" {
		return 0, ErrSyncTypeRequired
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("syncpump mysql: begin promote tx failed: %w", err)
	}

	if _, err := tx.ExecContext(ctx, s.queries.promoteSyncing, syncpump.RowQueued, syncType, syncpump.RowSyncing); err != nil {
		return 0, s.rollback(tx, fmt.Errorf("syncpump mysql: requeue syncing rows failed: %w", err))
	}
	if _, err := tx.ExecContext(ctx, s.queries.promoteStaged, syncpump.RowQueued, syncType, syncpump.RowStaged); err != nil {
		return 0, s.rollback(tx, fmt.Errorf("syncpump mysql: promote staged rows failed: %w", err))
	}

	var queued int64
	if err := tx.QueryRowContext(ctx, s.queries.countQueued, syncType, syncpump.RowQueued).Scan(&queued); err != nil {
		return 0, s.rollback(tx, fmt.Errorf("syncpump mysql: count queued failed: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("syncpump mysql: commit promote failed: %w", err)
	}

	return queued, nil
}

// FetchQueued implements syncpump.Store using READ COMMITTED + SKIP LOCKED,
// marking the fetched page as syncing before commit.
func (s *Store) FetchQueued(ctx context.Context, syncType string, limit int) ([]syncpump.Row, error) {
	if syncType == "" {
		return nil, ErrSyncTypeRequired
	}
	if limit <= 0 {
		return nil, ErrInvalidFetchLimit
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("syncpump mysql: begin fetch tx failed: %w", err)
	}

	rows, err := s.selectQueued(ctx, tx, syncType, limit)
	if err != nil {
		return nil, s.rollback(tx, err)
	}
	if len(rows) == 0 {
		_ = tx.Rollback()

		return nil, nil
	}

	ids := make([]int64, 0, len(rows))
	for i := range rows {
		ids = append(ids, rows[i].ForeignID)
		rows[i].Status = syncpump.RowSyncing
	}
	query, args := s.statusInQuery(s.queries.markStatusIn, syncpump.RowSyncing, syncType, ids)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, s.rollback(tx, fmt.Errorf("syncpump mysql: mark syncing failed: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("syncpump mysql: commit fetch failed: %w", err)
	}

	return rows, nil
}

func (s *Store) selectQueued(ctx context.Context, tx *sql.Tx, syncType string, limit int) ([]syncpump.Row, error) {
	res, err := tx.QueryContext(ctx, s.queries.selectQueued, syncType, syncpump.RowQueued, limit)
	if err != nil {
		return nil, fmt.Errorf("syncpump mysql: select queued failed: %w", err)
	}
	defer res.Close()

	rows := make([]syncpump.Row, 0, limit)
	for res.Next() {
		row, err := scanRow(res)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("syncpump mysql: queued rows failed: %w", err)
	}

	return rows, nil
}

// ClaimRow implements syncpump.Store for operator-forced single syncs.
func (s *Store) ClaimRow(ctx context.Context, syncType string, foreignID int64) (syncpump.Row, error) {
	if syncType == "" {
		return syncpump.Row{}, ErrSyncTypeRequired
	}

	res, err := s.db.ExecContext(ctx, s.queries.claimRow, syncpump.RowSyncing, syncType, foreignID)
	if err != nil {
		return syncpump.Row{}, fmt.Errorf("syncpump mysql: claim row failed: %w", err)
	}
	if _, err := res.RowsAffected(); err != nil {
		return syncpump.Row{}, fmt.Errorf("syncpump mysql: claim rows failed: %w", err)
	}

	row := s.db.QueryRowContext(ctx, s.queries.selectRow, syncType, foreignID)
	claimed, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return syncpump.Row{}, syncpump.ErrRowNotFound
	}
	if err != nil {
		return syncpump.Row{}, err
	}

	return claimed, nil
}

// MarkSynced implements syncpump.Store, recording remote ids per row.
func (s *Store) MarkSynced(ctx context.Context, syncType string, foreignIDs []int64, remoteIDs map[int64]string) error {
	if syncType == "" {
		return ErrSyncTypeRequired
	}

	now := s.cfg.Clock.Now()
	for _, foreignID := range foreignIDs {
		remoteID := any(nil)
		if id, ok := remoteIDs[foreignID]; ok && id != "" {
			remoteID = id
		}
		if _, err := s.db.ExecContext(
			ctx, s.queries.markSyncedOne, syncpump.RowSynced, remoteID, now, syncType, foreignID,
		); err != nil {
			return fmt.Errorf("syncpump mysql: mark synced failed: %w", err)
		}
	}

	return nil
}

// MarkFailed implements syncpump.Store.
func (s *Store) MarkFailed(ctx context.Context, syncType string, foreignIDs []int64, reason string) error {
	return s.markTerminal(ctx, syncType, foreignIDs, syncpump.RowFailed, reason)
}

// MarkIncompatible implements syncpump.Store.
func (s *Store) MarkIncompatible(ctx context.Context, syncType string, foreignIDs []int64, reason string) error {
	return s.markTerminal(ctx, syncType, foreignIDs, syncpump.RowIncompatible, reason)
}

func (s *Store) markTerminal(ctx context.Context, syncType string, foreignIDs []int64, status syncpump.RowStatus, reason string) error {
	if syncType == "" {
		return ErrSyncTypeRequired
	}
	if len(foreignIDs) == 0 {
		return nil
	}

	query := fmt.Sprintf(s.queries.markTerminal, makePlaceholders(len(foreignIDs)))
	args := make([]any, 0, len(foreignIDs)+3)
	args = append(args, status, truncate(reason), syncType)
	for _, id := range foreignIDs {
		args = append(args, id)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("syncpump mysql: mark %s failed: %w", status, err)
	}

	return nil
}

// PutBack implements syncpump.Store: syncing rows return to the queue.
func (s *Store) PutBack(ctx context.Context, syncType string, foreignIDs []int64) error {
	if syncType == "" {
		return ErrSyncTypeRequired
	}
	if len(foreignIDs) == 0 {
		return nil
	}

	query := fmt.Sprintf(s.queries.putBack, makePlaceholders(len(foreignIDs)))
	args := make([]any, 0, len(foreignIDs)+3)
	args = append(args, syncpump.RowQueued, syncType, syncpump.RowSyncing)
	for _, id := range foreignIDs {
		args = append(args, id)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("syncpump mysql: put back failed: %w", err)
	}

	return nil
}

// Reset implements syncpump.Store: drops the status row and every
// non-terminal outbox row of the sync type.
func (s *Store) Reset(ctx context.Context, syncType string) error {
	if syncType == "" {
		return ErrSyncTypeRequired
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("syncpump mysql: begin reset tx failed: %w", err)
	}

	if _, err := tx.ExecContext(
		ctx, s.queries.deletePending, syncType, syncpump.RowStaged, syncpump.RowQueued, syncpump.RowSyncing,
	); err != nil {
		return s.rollback(tx, fmt.Errorf("syncpump mysql: delete pending rows failed: %w", err))
	}
	if _, err := tx.ExecContext(ctx, s.queries.deleteStatus, syncType); err != nil {
		return s.rollback(tx, fmt.Errorf("syncpump mysql: delete status failed: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("syncpump mysql: commit reset failed: %w", err)
	}

	return nil
}

func (s *Store) rollback(tx *sql.Tx, err error) error {
	rollbackErr := tx.Rollback()
	if rollbackErr == nil || errors.Is(rollbackErr, sql.ErrTxDone) {
		return err
	}

	return errors.Join(err, fmt.Errorf("syncpump mysql: rollback failed: %w", rollbackErr))
}

func (s *Store) statusInQuery(template string, status syncpump.RowStatus, syncType string, ids []int64) (string, []any) {
	query := fmt.Sprintf(template, makePlaceholders(len(ids)))
	args := make([]any, 0, len(ids)+2)
	args = append(args, status, syncType)
	for _, id := range ids {
		args = append(args, id)
	}

	return query, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(scanner rowScanner) (syncpump.Row, error) {
	var (
		id          uuid.UUID
		syncType    string
		foreignID   int64
		status      int16
		remoteID    sql.NullString
		snapshot    []byte
		sessionKey  sql.NullString
		attempts    int
		lastError   sql.NullString
		createdAt   time.Time
		updatedAt   time.Time
		syncedAt    sql.NullTime
		abandonedAt sql.NullTime
	)

	if err := scanner.Scan(
		&id, &syncType, &foreignID, &status, &remoteID, &snapshot, &sessionKey,
		&attempts, &lastError, &createdAt, &updatedAt, &syncedAt, &abandonedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return syncpump.Row{}, err
		}

		return syncpump.Row{}, fmt.Errorf("syncpump mysql: row scan failed: %w", err)
	}

	row := syncpump.Row{
		ID:         id,
		SyncType:   syncType,
		ForeignID:  foreignID,
		Status:     syncpump.RowStatus(status),
		RemoteID:   remoteID.String,
		Snapshot:   snapshot,
		SessionKey: sessionKey.String,
		Attempts:   attempts,
		LastError:  lastError.String,
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
	}
	if syncedAt.Valid {
		row.SyncedAt = syncedAt.Time
	}
	if abandonedAt.Valid {
		row.AbandonedAt = abandonedAt.Time
	}

	return row, nil
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}

	buf := make([]byte, 0, count*placeholderGrowth)
	for i := 0; i < count; i++ {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, '?')
	}

	return string(buf)
}

func truncate(msg string) string {
	if utf8.RuneCountInString(msg) <= maxErrorLen {
		return msg
	}

	runes := []rune(msg)

	return string(runes[:maxErrorLen])
}
