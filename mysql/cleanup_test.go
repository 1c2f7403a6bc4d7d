package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewCleanupMaintainerDefaults(t *testing.T) {
	store := MustNewStore(&sql.DB{})
	maintainer, err := NewCleanupMaintainer(store, CleanupMaintainerConfig{})
	if err != nil {
		t.Fatalf("expected maintainer, got %v", err)
	}
	if maintainer.cfg.SyncedRetention != defaultSyncedRetention {
		t.Fatalf("expected default synced retention")
	}
	if maintainer.cfg.TerminalRetention != defaultTerminalRetention {
		t.Fatalf("expected default terminal retention")
	}
	if maintainer.cfg.CheckEvery != defaultCleanupEvery {
		t.Fatalf("expected default check interval")
	}
	if maintainer.cfg.Limit != defaultCleanupLimit {
		t.Fatalf("expected default limit")
	}
	if !strings.Contains(maintainer.cfg.LockName, store.cfg.OutboxTable) {
		t.Fatalf("lock name = %q, want table-scoped default", maintainer.cfg.LockName)
	}
}

func TestNewCleanupMaintainerValidation(t *testing.T) {
	store := MustNewStore(&sql.DB{})
	if _, err := NewCleanupMaintainer(nil, CleanupMaintainerConfig{}); !errors.Is(err, ErrDBRequired) {
		t.Fatalf("expected ErrDBRequired, got %v", err)
	}
	if _, err := NewCleanupMaintainer(store, CleanupMaintainerConfig{SyncedRetention: -time.Hour}); !errors.Is(err, ErrCleanupRetentionInvalid) {
		t.Fatalf("expected ErrCleanupRetentionInvalid, got %v", err)
	}
	if _, err := NewCleanupMaintainer(store, CleanupMaintainerConfig{Limit: -1}); !errors.Is(err, ErrCleanupLimitInvalid) {
		t.Fatalf("expected ErrCleanupLimitInvalid, got %v", err)
	}
}

func TestCleanupOptionsValidation(t *testing.T) {
	store := MustNewStore(&sql.DB{})

	ctx := context.Background()
	if _, err := store.Cleanup(ctx, CleanupOptions{SyncedRetention: -time.Hour}); !errors.Is(err, ErrCleanupRetentionInvalid) {
		t.Fatalf("expected ErrCleanupRetentionInvalid, got %v", err)
	}
	if _, err := store.Cleanup(ctx, CleanupOptions{Limit: -1}); !errors.Is(err, ErrCleanupLimitInvalid) {
		t.Fatalf("expected ErrCleanupLimitInvalid, got %v", err)
	}
}
