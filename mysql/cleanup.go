package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopsync/syncpump"
)

const (
	defaultCleanupLimit      = 10000
	defaultCleanupEvery      = time.Hour
	defaultSyncedRetention   = 14 * 24 * time.Hour
	defaultTerminalRetention = 28 * 24 * time.Hour
	defaultCleanupLockPrefix = "syncpump:cleanup:"
)

// CleanupOptions defines one retention sweep over terminal outbox rows.
type CleanupOptions struct {
	// Now anchors the retention cutoffs (required).
	Now time.Time
	// SyncedRetention removes synced rows older than now-retention.
	SyncedRetention time.Duration
	// TerminalRetention removes any terminal row older than now-retention.
	TerminalRetention time.Duration
	// Limit caps the number of rows deleted per call (0 uses the default).
	Limit int
}

// CleanupResult reports how many rows were removed.
type CleanupResult struct {
	Synced   int64
	Terminal int64
	Orphans  int64
}

// Cleanup deletes terminal rows past their retention window, plus orphaned
// snapshot rows that lack both a foreign id and a session correlation.
func (s *Store) Cleanup(ctx context.Context, opts CleanupOptions) (CleanupResult, error) {
	if opts.Now.IsZero() {
		opts.Now = s.cfg.Clock.Now()
	}
	if opts.SyncedRetention == 0 {
		opts.SyncedRetention = defaultSyncedRetention
	}
	if opts.TerminalRetention == 0 {
		opts.TerminalRetention = defaultTerminalRetention
	}
	if opts.SyncedRetention < 0 || opts.TerminalRetention < 0 {
		return CleanupResult{}, ErrCleanupRetentionInvalid
	}
	limit := opts.Limit
	if limit == 0 {
		limit = defaultCleanupLimit
	}
	if limit < 0 {
		return CleanupResult{}, ErrCleanupLimitInvalid
	}

	var result CleanupResult
	remaining := limit

	synced, err := s.deleteTerminal(ctx,
		[]syncpump.RowStatus{syncpump.RowSynced},
		"synced_at", opts.Now.Add(-opts.SyncedRetention), remaining)
	if err != nil {
		return CleanupResult{}, err
	}
	result.Synced = synced
	remaining -= int(synced)

	terminal, err := s.deleteTerminal(ctx,
		[]syncpump.RowStatus{syncpump.RowSynced, syncpump.RowFailed, syncpump.RowIncompatible},
		"updated_at", opts.Now.Add(-opts.TerminalRetention), remaining)
	if err != nil {
		return CleanupResult{}, err
	}
	result.Terminal = terminal
	remaining -= int(terminal)

	orphans, err := s.deleteOrphans(ctx, remaining)
	if err != nil {
		return CleanupResult{}, err
	}
	result.Orphans = orphans

	return result, nil
}

func (s *Store) deleteTerminal(
	ctx context.Context,
	statuses []syncpump.RowStatus,
	tsColumn string,
	before time.Time,
	limit int,
) (int64, error) {
	if limit <= 0 {
		return 0, nil
	}

	// #nosec G201 -- table and column names are internal and sanitized.
	query := fmt.Sprintf(
		"DELETE FROM %s WHERE status IN (%s) AND %s IS NOT NULL AND %s <= ? ORDER BY id LIMIT ?",
		s.cfg.OutboxTable,
		makePlaceholders(len(statuses)),
		tsColumn,
		tsColumn,
	)
	args := make([]any, 0, len(statuses)+2)
	for _, status := range statuses {
		args = append(args, status)
	}
	args = append(args, before, limit)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("syncpump mysql: cleanup delete failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("syncpump mysql: cleanup rows failed: %w", err)
	}

	return affected, nil
}

// deleteOrphans removes snapshot rows that can never be transmitted or
// correlated: no platform foreign id (zero, or the synthetic negative
// range used for guest carts) and no checkout session key either.
func (s *Store) deleteOrphans(ctx context.Context, limit int) (int64, error) {
	if limit <= 0 {
		return 0, nil
	}

	// #nosec G201 -- table name is internal and sanitized.
	query := fmt.Sprintf(
		"DELETE FROM %s WHERE foreign_id <= 0 AND (session_key IS NULL OR session_key = '') ORDER BY id LIMIT ?",
		s.cfg.OutboxTable,
	)
	res, err := s.db.ExecContext(ctx, query, limit)
	if err != nil {
		return 0, fmt.Errorf("syncpump mysql: orphan delete failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("syncpump mysql: orphan rows failed: %w", err)
	}

	return affected, nil
}

// CleanupMaintainerConfig controls the periodic retention sweep.
type CleanupMaintainerConfig struct {
	// SyncedRetention removes synced rows older than now-retention.
	SyncedRetention time.Duration
	// TerminalRetention removes any terminal row older than now-retention.
	TerminalRetention time.Duration
	// CheckEvery is the interval between sweeps.
	CheckEvery time.Duration
	// Limit caps the number of rows deleted per sweep (0 uses the default).
	Limit int
	// LockName is the advisory lock name. Defaults to syncpump:cleanup:<table>.
	LockName string
	// Clock overrides the time source (useful for tests).
	Clock syncpump.Clock
	// Logger receives warnings about sweep failures.
	Logger syncpump.Logger
}

// CleanupMaintainer runs the periodic retention sweep, coordinating with
// other processes through a MySQL advisory lock.
type CleanupMaintainer struct {
	store *Store
	cfg   CleanupMaintainerConfig
}

// NewCleanupMaintainer creates a maintainer over an existing store.
func NewCleanupMaintainer(store *Store, cfg CleanupMaintainerConfig) (*CleanupMaintainer, error) {
	if store == nil {
		return nil, ErrDBRequired
	}
	if cfg.SyncedRetention == 0 {
		cfg.SyncedRetention = defaultSyncedRetention
	}
	if cfg.TerminalRetention == 0 {
		cfg.TerminalRetention = defaultTerminalRetention
	}
	if cfg.SyncedRetention < 0 || cfg.TerminalRetention < 0 {
		return nil, ErrCleanupRetentionInvalid
	}
	if cfg.CheckEvery <= 0 {
		cfg.CheckEvery = defaultCleanupEvery
	}
	if cfg.Limit == 0 {
		cfg.Limit = defaultCleanupLimit
	}
	if cfg.Limit < 0 {
		return nil, ErrCleanupLimitInvalid
	}
	if cfg.Clock == nil {
		cfg.Clock = store.cfg.Clock
	}
	if cfg.Logger == nil {
		cfg.Logger = syncpump.NopLogger{}
	}
	if cfg.LockName == "" {
		cfg.LockName = defaultCleanupLockPrefix + store.cfg.OutboxTable
	}

	return &CleanupMaintainer{store: store, cfg: cfg}, nil
}

// Run sweeps periodically until the context is canceled.
func (m *CleanupMaintainer) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.CheckEvery)
	defer ticker.Stop()

	if _, err := m.Ensure(ctx); err != nil {
		m.cfg.Logger.Warn("outbox cleanup failed", "err", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := m.Ensure(ctx); err != nil {
				m.cfg.Logger.Warn("outbox cleanup failed", "err", err)
			}
		}
	}
}

// Ensure executes a single sweep, skipping silently when another session
// holds the lock.
func (m *CleanupMaintainer) Ensure(ctx context.Context) (CleanupResult, error) {
	conn, err := m.store.db.Conn(ctx)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("syncpump mysql: cleanup conn failed: %w", err)
	}
	defer conn.Close()

	locked, err := m.tryLock(ctx, conn)
	if err != nil {
		return CleanupResult{}, err
	}
	if !locked {
		m.cfg.Logger.Debug("cleanup lock held by another session")

		return CleanupResult{}, nil
	}
	defer m.releaseLock(ctx, conn)

	return m.store.Cleanup(ctx, CleanupOptions{
		Now:               m.cfg.Clock.Now(),
		SyncedRetention:   m.cfg.SyncedRetention,
		TerminalRetention: m.cfg.TerminalRetention,
		Limit:             m.cfg.Limit,
	})
}

func (m *CleanupMaintainer) tryLock(ctx context.Context, conn *sql.Conn) (bool, error) {
	var got sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, 0)", m.cfg.LockName).Scan(&got); err != nil {
		return false, fmt.Errorf("syncpump mysql: acquire cleanup lock failed: %w", err)
	}
	if !got.Valid || got.Int64 == 0 {
		return false, nil
	}

	return true, nil
}

func (m *CleanupMaintainer) releaseLock(ctx context.Context, conn *sql.Conn) {
	var released sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT RELEASE_LOCK(?)", m.cfg.LockName).Scan(&released); err != nil {
		m.cfg.Logger.Warn("cleanup release lock failed", "err", err)
	}
}
