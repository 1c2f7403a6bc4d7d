package mysql

import "fmt"

const outboxSchemaTemplate = `CREATE TABLE IF NOT EXISTS %s (
	id BINARY(16) NOT NULL,
	sync_type VARCHAR(64) NOT NULL,
	foreign_id BIGINT NOT NULL,
	status SMALLINT NOT NULL DEFAULT 0,
	remote_id VARCHAR(64) NULL,
	snapshot JSON NULL,
	session_key VARCHAR(64) NULL,
	attempt_count INT NOT NULL DEFAULT 0,
	last_error VARCHAR(1024) NULL,
	created_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
	updated_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
	synced_at TIMESTAMP(6) NULL,
	abandoned_at TIMESTAMP(6) NULL,
	PRIMARY KEY (id),
	UNIQUE KEY uq_type_foreign (sync_type, foreign_id),
	INDEX idx_type_status_id (sync_type, status, id)
);`

const statusSchemaTemplate = `CREATE TABLE IF NOT EXISTS %s (
	sync_type VARCHAR(64) NOT NULL,
	state VARCHAR(16) NOT NULL DEFAULT 'none',
	current_record BIGINT NOT NULL DEFAULT 0,
	start_record BIGINT NOT NULL DEFAULT 0,
	batch_limit INT NOT NULL DEFAULT 0,
	batch_runs INT NOT NULL DEFAULT 0,
	success_count INT NOT NULL DEFAULT 0,
	failed_ids JSON NOT NULL,
	incompatible_ids JSON NOT NULL,
	stop_requested TINYINT(1) NOT NULL DEFAULT 0,
	started_at TIMESTAMP(6) NULL,
	updated_at TIMESTAMP(6) NULL,
	ended_at TIMESTAMP(6) NULL,
	PRIMARY KEY (sync_type)
);`

const archiveSchemaTemplate = `CREATE TABLE IF NOT EXISTS %s (
	sync_type VARCHAR(64) NOT NULL,
	state VARCHAR(16) NOT NULL,
	current_record BIGINT NOT NULL DEFAULT 0,
	start_record BIGINT NOT NULL DEFAULT 0,
	batch_limit INT NOT NULL DEFAULT 0,
	batch_runs INT NOT NULL DEFAULT 0,
	success_count INT NOT NULL DEFAULT 0,
	failed_ids JSON NOT NULL,
	incompatible_ids JSON NOT NULL,
	started_at TIMESTAMP(6) NULL,
	updated_at TIMESTAMP(6) NULL,
	ended_at TIMESTAMP(6) NULL,
	PRIMARY KEY (sync_type)
);`

const cooldownSchemaTemplate = `CREATE TABLE IF NOT EXISTS %s (
	dependency VARCHAR(64) NOT NULL,
	until_at TIMESTAMP(6) NOT NULL,
	PRIMARY KEY (dependency)
);`

// OutboxSchema returns the DDL for the outbox table.
func OutboxSchema(table string) (string, error) {
	return buildSchema(outboxSchemaTemplate, table)
}

// StatusSchema returns the DDL for the sync status table.
func StatusSchema(table string) (string, error) {
	return buildSchema(statusSchemaTemplate, table)
}

// ArchiveSchema returns the DDL for the last-status archive table.
func ArchiveSchema(table string) (string, error) {
	return buildSchema(archiveSchemaTemplate, table)
}

// CooldownSchema returns the DDL for the cooldown marker table.
func CooldownSchema(table string) (string, error) {
	return buildSchema(cooldownSchemaTemplate, table)
}

// Schemas returns the DDL for every table the store uses, in creation order.
func Schemas(cfg Config) ([]string, error) {
	cfg = cfg.withDefaults()

	statements := make([]string, 0, 4)
	for _, pair := range []struct {
		template string
		table    string
	}{
		{outboxSchemaTemplate, cfg.OutboxTable},
		{statusSchemaTemplate, cfg.StatusTable},
		{archiveSchemaTemplate, cfg.ArchiveTable},
		{cooldownSchemaTemplate, cfg.CooldownTable},
	} {
		ddl, err := buildSchema(pair.template, pair.table)
		if err != nil {
			return nil, err
		}
		statements = append(statements, ddl)
	}

	return statements, nil
}

func buildSchema(template, table string) (string, error) {
	name, err := sanitizeTableName(table)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(template, name), nil
}
