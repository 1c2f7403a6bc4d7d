package mysql

import "fmt"

const rowColumns = "id, sync_type, foreign_id, status, remote_id, snapshot, session_key, " +
	"attempt_count, last_error, created_at, updated_at, synced_at, abandoned_at"

const statusColumns = "sync_type, state, current_record, start_record, batch_limit, batch_runs, " +
	"success_count, failed_ids, incompatible_ids, started_at, updated_at, ended_at"

type queries struct {
	trackedIDs     string
	stageRow       string
	promoteSyncing string
	promoteStaged  string
	countQueued    string
	selectQueued   string
	markSyncedOne  string
	claimRow       string
	selectRow      string
	markStatusIn   string
	markTerminal   string
	putBack        string
	deletePending  string

	selectStatus  string
	upsertStatus  string
	archiveStatus string
	selectArchive string
	selectStop    string
	upsertStop    string
	deleteStatus  string

	selectCooldown string
	upsertCooldown string
	deleteCooldown string
}

func newQueries(cfg Config) queries {
	outbox := cfg.OutboxTable
	status := cfg.StatusTable
	archive := cfg.ArchiveTable
	cooldown := cfg.CooldownTable

	return queries{
		trackedIDs: fmt.Sprintf(
			"SELECT foreign_id FROM %s WHERE sync_type = ?", outbox),
		stageRow: fmt.Sprintf(
			"INSERT IGNORE INTO %s (id, sync_type, foreign_id, status) VALUES (?, ?, ?, ?)", outbox),
		promoteSyncing: fmt.Sprintf(
			"UPDATE %s SET status = ? WHERE sync_type = ? AND status = ?", outbox),
		promoteStaged: fmt.Sprintf(
			"UPDATE %s SET status = ? WHERE sync_type = ? AND status = ?", outbox),
		countQueued: fmt.Sprintf(
			"SELECT COUNT(*) FROM %s WHERE sync_type = ? AND status = ?", outbox),
		selectQueued: fmt.Sprintf(
			"SELECT %s FROM %s WHERE sync_type = ? AND status = ? ORDER BY id ASC LIMIT ? FOR UPDATE SKIP LOCKED",
			rowColumns, outbox),
		markSyncedOne: fmt.Sprintf(
			"UPDATE %s SET status = ?, remote_id = ?, synced_at = ?, last_error = NULL "+
				"WHERE sync_type = ? AND foreign_id = ?", outbox),
		claimRow: fmt.Sprintf(
			"UPDATE %s SET status = ? WHERE sync_type = ? AND foreign_id = ?", outbox),
		selectRow: fmt.Sprintf(
			"SELECT %s FROM %s WHERE sync_type = ? AND foreign_id = ?", rowColumns, outbox),
		markStatusIn: fmt.Sprintf(
			"UPDATE %s SET status = ? WHERE sync_type = ? AND foreign_id IN (%%s)", outbox),
		markTerminal: fmt.Sprintf(
			"UPDATE %s SET status = ?, last_error = ?, attempt_count = attempt_count + 1 "+
				"WHERE sync_type = ? AND foreign_id IN (%%s)", outbox),
		putBack: fmt.Sprintf(
			"UPDATE %s SET status = ?, attempt_count = attempt_count + 1 "+
				"WHERE sync_type = ? AND status = ? AND foreign_id IN (%%s)", outbox),
		deletePending: fmt.Sprintf(
			"DELETE FROM %s WHERE sync_type = ? AND status IN (?, ?, ?)", outbox),

		selectStatus: fmt.Sprintf(
			"SELECT %s FROM %s WHERE sync_type = ?", statusColumns, status),
		upsertStatus: fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) "+
				"ON DUPLICATE KEY UPDATE state = VALUES(state), current_record = VALUES(current_record), "+
				"start_record = VALUES(start_record), batch_limit = VALUES(batch_limit), "+
				"batch_runs = VALUES(batch_runs), success_count = VALUES(success_count), "+
				"failed_ids = VALUES(failed_ids), incompatible_ids = VALUES(incompatible_ids), "+
				"started_at = VALUES(started_at), updated_at = VALUES(updated_at), ended_at = VALUES(ended_at)",
			status, statusColumns),
		archiveStatus: fmt.Sprintf(
			"REPLACE INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", archive, statusColumns),
		selectArchive: fmt.Sprintf(
			"SELECT %s FROM %s WHERE sync_type = ?", statusColumns, archive),
		selectStop: fmt.Sprintf(
			"SELECT stop_requested FROM %s WHERE sync_type = ?", status),
		upsertStop: fmt.Sprintf(
			"INSERT INTO %s (sync_type, state, failed_ids, incompatible_ids, stop_requested) "+
				"VALUES (?, ?, '[]', '[]', ?) ON DUPLICATE KEY UPDATE stop_requested = VALUES(stop_requested)",
			status),
		deleteStatus: fmt.Sprintf(
			"DELETE FROM %s WHERE sync_type = ?", status),

		selectCooldown: fmt.Sprintf(
			"SELECT until_at FROM %s WHERE dependency = ?", cooldown),
		upsertCooldown: fmt.Sprintf(
			"REPLACE INTO %s (dependency, until_at) VALUES (?, ?)", cooldown),
		deleteCooldown: fmt.Sprintf(
			"DELETE FROM %s WHERE dependency = ?", cooldown),
	}
}
