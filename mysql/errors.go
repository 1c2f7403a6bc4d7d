package mysql

import "errors"

var (
	// ErrDBRequired is returned when a nil *sql.DB is provided.
	ErrDBRequired = errors.New("syncpump mysql: db is required")
	// ErrTableNameRequired is returned when a table name is empty.
	ErrTableNameRequired = errors.New("syncpump mysql: table name is required")
	// ErrInvalidTableName is returned when a table name has disallowed characters.
	ErrInvalidTableName = errors.New("syncpump mysql: invalid table name")
	// ErrSyncTypeRequired is returned when a sync type is empty.
	ErrSyncTypeRequired = errors.New("syncpump mysql: sync type is required")
	// ErrInvalidFetchLimit is returned when a queued-page limit is not positive.
	ErrInvalidFetchLimit = errors.New("syncpump mysql: fetch limit must be positive")
	// ErrCleanupRetentionInvalid is returned when a cleanup retention is not positive.
	ErrCleanupRetentionInvalid = errors.New("syncpump mysql: cleanup retention must be positive")
	// ErrCleanupLimitInvalid is returned when the cleanup limit is negative.
	ErrCleanupLimitInvalid = errors.New("syncpump mysql: cleanup limit must be non-negative")
	// ErrCartUnidentified is returned when a cart capture carries neither a
	// foreign id nor a session key and could never be correlated.
	ErrCartUnidentified = errors.New("syncpump mysql: cart capture requires a foreign id or session key")
)
