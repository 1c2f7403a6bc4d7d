package syncpump

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Row is a stored outbox row tracking one foreign record of a sync type.
type Row struct {
	// ID is a UUIDv7 surrogate key assigned at staging time.
	ID uuid.UUID
	// SyncType partitions rows by entity type (orders, contacts, ...).
	SyncType string
	// ForeignID is the source record id; unique per sync type among live rows.
	ForeignID int64
	// Status is the row lifecycle state.
	Status RowStatus
	// RemoteID is assigned by the remote service once synced.
	RemoteID string
	// Snapshot holds denormalized payload source data for rows whose source
	// record may vanish before transmission (abandoned carts).
	Snapshot json.RawMessage
	// SessionKey correlates snapshot rows with a checkout session.
	SessionKey string
	// Attempts counts transmission attempts for the row.
	Attempts int
	// LastError is the most recent failure reason, truncated by the store.
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
	// SyncedAt is zero until the row reaches the synced state.
	SyncedAt time.Time
	// AbandonedAt is set for abandoned-cart rows only.
	AbandonedAt time.Time
}
