package syncpump

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Pump drives the outbox pipeline for one sync type. It is invoked
// periodically by the host scheduler and never self-schedules; overlapping
// invocations for the same sync type are prevented by the scheduler's own
// locking.
type Pump struct {
	syncType   string
	store      Store
	cooldowns  CooldownStore
	selector   Selector
	serializer Serializer
	transport  Transport
	cfg        Config
}

// NewPump constructs a Pump with defaults and optional settings.
func NewPump(
	syncType string,
	store Store,
	cooldowns CooldownStore,
	selector Selector,
	serializer Serializer,
	transport Transport,
	opts ...Option,
) *Pump {
	if syncType == "" {
		panic("syncpump: empty sync type")
	}
	if store == nil {
		panic("syncpump: nil Store")
	}
	if cooldowns == nil {
		panic("syncpump: nil CooldownStore")
	}
	if selector == nil {
		panic("syncpump: nil Selector")
	}
	if serializer == nil {
		panic("syncpump: nil Serializer")
	}
	if transport == nil {
		panic("syncpump: nil Transport")
	}

	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg = cfg.withDefaults()

	return &Pump{
		syncType:   syncType,
		store:      store,
		cooldowns:  cooldowns,
		selector:   selector,
		serializer: serializer,
		transport:  transport,
		cfg:        cfg,
	}
}

// SyncType returns the sync type this pump serves.
func (p *Pump) SyncType() string {
	return p.syncType
}

// Run executes one scheduler invocation: up to BatchRuns iterations, each
// staging a candidate page, promoting it to the queue, sending one queued
// page in weight-bounded chunks, and persisting the sync status. Classified
// failures never propagate; only store errors and a fatal halt do.
func (p *Pump) Run(ctx context.Context) error {
	gated, err := p.cooldownActive(ctx)
	if err != nil {
		return err
	}
	if gated {
		p.cfg.Logger.Info("run gated by cooldown", "sync_type", p.syncType)

		return nil
	}

	status, err := p.loadOrInitStatus(ctx)
	if err != nil {
		return err
	}

	for i := 0; i < status.BatchRuns; i++ {
		// Operator actions and the cooldown marker are read fresh from
		// the store on every iteration boundary.
		stop, err := p.store.StopRequested(ctx, p.syncType)
		if err != nil {
			return fmt.Errorf("syncpump: read stop flag failed: %w", err)
		}
		if stop {
			return p.finishStopped(ctx, status)
		}

		if i > 0 {
			gated, err = p.cooldownActive(ctx)
			if err != nil {
				return err
			}
			if gated {
				return p.persistStatus(ctx, status)
			}
		}

		progressed, err := p.runIteration(ctx, status)
		if err != nil {
			return p.handleIterationError(ctx, status, err)
		}
		if err := p.persistStatus(ctx, status); err != nil {
			return err
		}
		if !progressed {
			return p.finish(ctx, status)
		}
	}

	status.MarkQueuedReady(p.cfg.Clock.Now())

	return p.persistStatus(ctx, status)
}

// ForceSyncOne pushes a single record through the full lifecycle,
// bypassing candidate paging. Failed rows may be retried this way; the
// cooldown gate still applies.
func (p *Pump) ForceSyncOne(ctx context.Context, foreignID int64) error {
	gated, err := p.cooldownActive(ctx)
	if err != nil {
		return err
	}
	if gated {
		return ErrCooldownActive
	}

	if _, err := p.store.Stage(ctx, p.syncType, []int64{foreignID}); err != nil {
		return fmt.Errorf("syncpump: stage forced row failed: %w", err)
	}
	if _, err := p.store.Promote(ctx, p.syncType); err != nil {
		return fmt.Errorf("syncpump: promote forced row failed: %w", err)
	}

	row, err := p.store.ClaimRow(ctx, p.syncType, foreignID)
	if err != nil {
		return fmt.Errorf("syncpump: claim forced row failed: %w", err)
	}

	status, err := p.loadOrInitStatus(ctx)
	if err != nil {
		return err
	}
	status.MarkSyncing(p.cfg.Clock.Now())

	payloads, err := p.serializeRows(ctx, status, []Row{row})
	if err != nil {
		return err
	}
	if len(payloads) > 0 {
		if err := p.sendChunk(ctx, status, payloads); err != nil {
			return p.handleIterationError(ctx, status, err)
		}
	}

	// The forced record is done; syncing must not outlive the call.
	status.MarkQueuedReady(p.cfg.Clock.Now())

	return p.persistStatus(ctx, status)
}

// RequestStop asks a running pump to stop at the next iteration boundary.
func (p *Pump) RequestStop(ctx context.Context) error {
	return p.store.SetStopRequested(ctx, p.syncType, true)
}

// RequestReset archives the current status and clears all progress so the
// next run starts from scratch.
func (p *Pump) RequestReset(ctx context.Context) error {
	status, err := p.store.LoadStatus(ctx, p.syncType)
	if err != nil {
		return fmt.Errorf("syncpump: load status failed: %w", err)
	}
	if status != nil {
		status.MarkReset(p.cfg.Clock.Now())
		if err := p.store.ArchiveStatus(ctx, status); err != nil {
			return fmt.Errorf("syncpump: archive status failed: %w", err)
		}
	}

	return p.store.Reset(ctx, p.syncType)
}

// Status returns the current sync status, or nil when the type never ran.
func (p *Pump) Status(ctx context.Context) (*SyncStatus, error) {
	return p.store.LoadStatus(ctx, p.syncType)
}

// LastStatus returns the archived status from the most recent finished,
// cancelled or halted run.
func (p *Pump) LastStatus(ctx context.Context) (*SyncStatus, error) {
	return p.store.LoadLastStatus(ctx, p.syncType)
}

func (p *Pump) cooldownActive(ctx context.Context) (bool, error) {
	until, err := p.cooldowns.CooldownUntil(ctx, p.cfg.Dependency)
	if err != nil {
		return false, fmt.Errorf("syncpump: read cooldown failed: %w", err)
	}

	return !until.IsZero() && p.cfg.Clock.Now().Before(until), nil
}

func (p *Pump) loadOrInitStatus(ctx context.Context) (*SyncStatus, error) {
	status, err := p.store.LoadStatus(ctx, p.syncType)
	if err != nil {
		return nil, fmt.Errorf("syncpump: load status failed: %w", err)
	}
	if status == nil {
		status = NewSyncStatus(p.syncType, p.cfg.BatchLimit, p.cfg.BatchRuns, p.cfg.Clock.Now())
	}
	if status.BatchLimit <= 0 {
		status.BatchLimit = p.cfg.BatchLimit
	}
	if status.BatchRuns <= 0 {
		status.BatchRuns = p.cfg.BatchRuns
	}

	return status, nil
}

// runIteration performs one select/stage/promote/send cycle. It reports
// progressed=false when neither new candidates nor queued rows exist,
// which ends the run as finished.
func (p *Pump) runIteration(ctx context.Context, status *SyncStatus) (bool, error) {
	now := p.cfg.Clock.Now()

	excluded, err := p.store.TrackedIDs(ctx, p.syncType)
	if err != nil {
		return false, fmt.Errorf("syncpump: load tracked ids failed: %w", err)
	}

	candidates, err := p.selector.SelectIDs(ctx, Page{Cursor: status.CurrentRecord, Limit: status.BatchLimit}, excluded)
	if err != nil {
		return false, fmt.Errorf("syncpump: select candidates failed: %w", err)
	}
	if len(candidates) > 0 {
		status.MarkPreparing(now)
		staged, err := p.store.Stage(ctx, p.syncType, candidates)
		if err != nil {
			return false, fmt.Errorf("syncpump: stage candidates failed: %w", err)
		}
		status.CurrentRecord = maxID(candidates, status.CurrentRecord)
		p.cfg.Logger.Debug("staged candidates",
			"sync_type", p.syncType, "selected", len(candidates), "staged", staged)
	}

	promoted, err := p.store.Promote(ctx, p.syncType)
	if err != nil {
		return false, fmt.Errorf("syncpump: promote staged rows failed: %w", err)
	}
	p.cfg.Metrics.SetQueued(int(promoted))

	rows, err := p.store.FetchQueued(ctx, p.syncType, status.BatchLimit)
	if err != nil {
		return false, fmt.Errorf("syncpump: fetch queued rows failed: %w", err)
	}
	if len(rows) == 0 {
		return len(candidates) > 0, nil
	}

	status.MarkSyncing(p.cfg.Clock.Now())

	payloads, err := p.serializeRows(ctx, status, rows)
	if err != nil {
		return true, err
	}

	for _, chunk := range BuildChunks(payloads, p.cfg.WeightCeiling) {
		if err := p.sendChunk(ctx, status, chunk); err != nil {
			return true, err
		}
	}

	return true, nil
}

// serializeRows builds payloads for a page of in-flight rows, diverting
// rows that fail local preconditions to the incompatible state before any
// network call.
func (p *Pump) serializeRows(ctx context.Context, status *SyncStatus, rows []Row) ([]Payload, error) {
	payloads := make([]Payload, 0, len(rows))
	incompatible := make([]int64, 0)
	reason := ""

	for _, row := range rows {
		payload, err := p.serializer.Serialize(ctx, row)
		if err != nil {
			if errors.Is(err, ErrIncompatibleRecord) {
				incompatible = append(incompatible, row.ForeignID)
				reason = err.Error()
				status.AddIncompatible(row.ForeignID)
				p.cfg.Logger.Warn("record incompatible",
					"sync_type", p.syncType, "foreign_id", row.ForeignID, "err", err)

				continue
			}

			return nil, fmt.Errorf("syncpump: serialize foreign id %d failed: %w", row.ForeignID, err)
		}
		payloads = append(payloads, payload)
	}

	if len(incompatible) > 0 {
		if err := p.store.MarkIncompatible(ctx, p.syncType, incompatible, reason); err != nil {
			return nil, fmt.Errorf("syncpump: mark incompatible failed: %w", err)
		}
		p.cfg.Metrics.AddIncompatible(len(incompatible))
	}

	return payloads, nil
}

// sendChunk transmits one chunk and applies exactly the row and status
// transitions implied by the classified outcome. After it returns, no row
// of the chunk remains in the syncing state.
func (p *Pump) sendChunk(ctx context.Context, status *SyncStatus, chunk []Payload) error {
	start := time.Now()
	outcome, err := p.sendWithRetry(ctx, chunk)
	p.cfg.Metrics.ObserveChunkDuration(time.Since(start))

	ids := chunkForeignIDs(chunk)
	if err != nil {
		// Unclassifiable response: release the rows, then halt this
		// sync type only. The host decides what to do with the halt.
		if putBackErr := p.putBack(ctx, ids); putBackErr != nil {
			return putBackErr
		}

		return fmt.Errorf("%w: %v", ErrFatalHalt, err)
	}

	switch outcome.Kind {
	case OutcomeSuccess:
		if err := p.store.MarkSynced(ctx, p.syncType, ids, outcome.RemoteIDs); err != nil {
			return fmt.Errorf("syncpump: mark synced failed: %w", err)
		}
		status.SuccessCount += len(ids)
		p.cfg.Metrics.AddSynced(len(ids))

		return nil
	case OutcomePartialFailure:
		return p.applyPartialFailure(ctx, status, chunk, outcome.FailedIDs)
	case OutcomeOversized:
		return p.resendSplit(ctx, status, chunk)
	case OutcomeServerOutage:
		until := p.cfg.Clock.Now().Add(p.cfg.CooldownPeriod)
		if err := p.cooldowns.SetCooldown(ctx, p.cfg.Dependency, until); err != nil {
			return fmt.Errorf("syncpump: arm cooldown failed: %w", err)
		}
		p.cfg.Logger.Warn("server outage, cooldown armed",
			"sync_type", p.syncType, "status", outcome.StatusCode, "until", until)
		if err := p.putBack(ctx, ids); err != nil {
			return err
		}

		return ErrCooldownActive
	case OutcomeNetworkTimeout:
		p.cfg.Logger.Warn("network timeout, rows left queued",
			"sync_type", p.syncType, "rows", len(ids), "err", outcome.Err)

		return p.putBack(ctx, ids)
	default:
		// Unknown failures are counted on the sync status for operator
		// attention; the rows stay queued for the next attempt.
		for _, id := range ids {
			status.AddFailed(id)
		}
		p.cfg.Logger.Error("unclassified chunk failure",
			"sync_type", p.syncType, "rows", len(ids), "err", outcome.Err)

		return p.putBack(ctx, ids)
	}
}

// applyPartialFailure marks the rows named by the remote as failed and
// puts every unnamed row back in the queue: the response did not confirm
// them, so they are not assumed successful.
func (p *Pump) applyPartialFailure(ctx context.Context, status *SyncStatus, chunk []Payload, failedIDs []int64) error {
	inChunk := make(map[int64]struct{}, len(chunk))
	for _, payload := range chunk {
		inChunk[payload.ForeignID] = struct{}{}
	}

	failed := make([]int64, 0, len(failedIDs))
	for _, id := range failedIDs {
		if _, ok := inChunk[id]; !ok {
			continue
		}
		failed = append(failed, id)
		status.AddFailed(id)
	}

	failedSet := make(map[int64]struct{}, len(failed))
	for _, id := range failed {
		failedSet[id] = struct{}{}
	}
	remaining := make([]int64, 0, len(chunk))
	for _, payload := range chunk {
		if _, ok := failedSet[payload.ForeignID]; !ok {
			remaining = append(remaining, payload.ForeignID)
		}
	}

	if len(failed) > 0 {
		if err := p.store.MarkFailed(ctx, p.syncType, failed, "remote validation failed"); err != nil {
			return fmt.Errorf("syncpump: mark failed failed: %w", err)
		}
		p.cfg.Metrics.AddFailed(len(failed))
	}
	if len(remaining) > 0 {
		if err := p.putBack(ctx, remaining); err != nil {
			return err
		}
	}
	p.cfg.Logger.Info("partial validation failure",
		"sync_type", p.syncType, "failed", len(failed), "put_back", len(remaining))

	return nil
}

// resendSplit splits an oversized chunk into thirds and resends each
// sub-chunk independently, recursing through the same classification. A
// single payload that cannot be split is failed outright.
func (p *Pump) resendSplit(ctx context.Context, status *SyncStatus, chunk []Payload) error {
	subChunks := splitChunk(chunk)
	if subChunks == nil {
		id := chunk[0].ForeignID
		status.AddFailed(id)
		p.cfg.Metrics.AddFailed(1)
		p.cfg.Logger.Warn("single payload exceeds remote size limit",
			"sync_type", p.syncType, "foreign_id", id, "weight", chunk[0].Weight)

		return p.store.MarkFailed(ctx, p.syncType, []int64{id}, "payload exceeds remote size limit")
	}

	p.cfg.Logger.Info("oversized chunk split",
		"sync_type", p.syncType, "rows", len(chunk), "sub_chunks", len(subChunks))

	for _, sub := range subChunks {
		if err := p.sendChunk(ctx, status, sub); err != nil {
			return err
		}
	}

	return nil
}

// sendWithRetry performs the bounded immediate retry for network timeouts:
// a short fixed sleep, never a spin.
func (p *Pump) sendWithRetry(ctx context.Context, chunk []Payload) (Outcome, error) {
	outcome, err := p.transport.Send(ctx, p.serializer.FirstKey(), chunk)

	for attempt := 0; err == nil && outcome.Kind == OutcomeNetworkTimeout && attempt < p.cfg.TimeoutRetries; attempt++ {
		p.cfg.Logger.Warn("send timed out, retrying",
			"sync_type", p.syncType, "attempt", attempt+1, "delay", p.cfg.TimeoutRetryDelay)
		if sleepErr := p.sleep(ctx, p.cfg.TimeoutRetryDelay); sleepErr != nil {
			return outcome, nil
		}
		outcome, err = p.transport.Send(ctx, p.serializer.FirstKey(), chunk)
	}

	return outcome, err
}

func (p *Pump) putBack(ctx context.Context, foreignIDs []int64) error {
	if len(foreignIDs) == 0 {
		return nil
	}
	if err := p.store.PutBack(ctx, p.syncType, foreignIDs); err != nil {
		return fmt.Errorf("syncpump: put back failed: %w", err)
	}
	p.cfg.Metrics.AddPutBack(len(foreignIDs))

	return nil
}

// handleIterationError converts classified aborts into clean returns and
// marks the sync type halted on a fatal condition.
func (p *Pump) handleIterationError(ctx context.Context, status *SyncStatus, err error) error {
	if errors.Is(err, ErrCooldownActive) {
		status.MarkQueuedReady(p.cfg.Clock.Now())

		return p.persistStatus(ctx, status)
	}
	if errors.Is(err, ErrFatalHalt) {
		status.MarkHalted(p.cfg.Clock.Now())
		if persistErr := p.persistStatus(ctx, status); persistErr != nil {
			return errors.Join(err, persistErr)
		}
		if archiveErr := p.store.ArchiveStatus(ctx, status); archiveErr != nil {
			return errors.Join(err, archiveErr)
		}

		return err
	}

	return err
}

func (p *Pump) finish(ctx context.Context, status *SyncStatus) error {
	status.MarkFinished(p.cfg.Clock.Now())
	if err := p.persistStatus(ctx, status); err != nil {
		return err
	}
	if err := p.store.ArchiveStatus(ctx, status); err != nil {
		return fmt.Errorf("syncpump: archive status failed: %w", err)
	}
	p.cfg.Logger.Info("sync finished",
		"sync_type", p.syncType, "synced", status.SuccessCount,
		"failed", len(status.FailedIDs), "incompatible", len(status.IncompatibleIDs))

	return nil
}

func (p *Pump) finishStopped(ctx context.Context, status *SyncStatus) error {
	status.MarkStopped(p.cfg.Clock.Now())
	if err := p.persistStatus(ctx, status); err != nil {
		return err
	}
	if err := p.store.ArchiveStatus(ctx, status); err != nil {
		return fmt.Errorf("syncpump: archive status failed: %w", err)
	}
	if err := p.store.SetStopRequested(ctx, p.syncType, false); err != nil {
		return fmt.Errorf("syncpump: clear stop flag failed: %w", err)
	}
	p.cfg.Logger.Info("sync stopped by operator", "sync_type", p.syncType)

	return nil
}

func (p *Pump) persistStatus(ctx context.Context, status *SyncStatus) error {
	if err := p.store.SaveStatus(ctx, status); err != nil {
		return fmt.Errorf("syncpump: save status failed: %w", err)
	}

	return nil
}

func (p *Pump) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func maxID(ids []int64, current int64) int64 {
	max := current
	for _, id := range ids {
		if id > max {
			max = id
		}
	}

	return max
}
