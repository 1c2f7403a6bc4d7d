package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopsync/syncpump"
)

func TestNewStoreValidation(t *testing.T) {
	if _, err := NewStore(nil); !errors.Is(err, ErrDBRequired) {
		t.Fatalf("expected ErrDBRequired, got %v", err)
	}
	if _, err := NewStore(&sql.DB{}, WithOutboxTable("bad;name")); !errors.Is(err, ErrInvalidTableName) {
		t.Fatalf("expected ErrInvalidTableName, got %v", err)
	}
	if _, err := NewStore(&sql.DB{}, WithStatusTable("a..b")); !errors.Is(err, ErrInvalidTableName) {
		t.Fatalf("expected ErrInvalidTableName, got %v", err)
	}
}

func TestNewStoreDefaults(t *testing.T) {
	store := MustNewStore(&sql.DB{})

	if store.cfg.OutboxTable != "sync_outbox" {
		t.Fatalf("outbox table = %q", store.cfg.OutboxTable)
	}
	if store.cfg.StatusTable != "sync_status" {
		t.Fatalf("status table = %q", store.cfg.StatusTable)
	}
	if store.cfg.Clock == nil {
		t.Fatalf("expected default clock")
	}
}

func TestQueriesUseConfiguredTables(t *testing.T) {
	store := MustNewStore(&sql.DB{},
		WithOutboxTable("my_outbox"),
		WithStatusTable("my_status"),
		WithCooldownTable("my_cooldown"))

	if !strings.Contains(store.queries.selectQueued, "FROM my_outbox") {
		t.Fatalf("select queued = %q", store.queries.selectQueued)
	}
	if !strings.Contains(store.queries.selectQueued, "FOR UPDATE SKIP LOCKED") {
		t.Fatalf("expected SKIP LOCKED in fetch query")
	}
	if !strings.Contains(store.queries.upsertStatus, "my_status") {
		t.Fatalf("upsert status = %q", store.queries.upsertStatus)
	}
	if !strings.Contains(store.queries.selectCooldown, "my_cooldown") {
		t.Fatalf("select cooldown = %q", store.queries.selectCooldown)
	}
}

func TestStatusInQuery(t *testing.T) {
	store := MustNewStore(&sql.DB{})

	query, args := store.statusInQuery(store.queries.markStatusIn, syncpump.RowSyncing, "orders", []int64{1, 2, 3})

	if !strings.HasSuffix(query, "foreign_id IN (?,?,?)") {
		t.Fatalf("query = %q", query)
	}
	if len(args) != 5 {
		t.Fatalf("arg count = %d, want 5", len(args))
	}
	if args[0] != syncpump.RowSyncing || args[1] != "orders" {
		t.Fatalf("leading args = %v", args[:2])
	}
}

func TestMakePlaceholders(t *testing.T) {
	cases := []struct {
		count int
		want  string
	}{
		{count: 0, want: ""},
		{count: 1, want: "?"},
		{count: 3, want: "?,?,?"},
	}
	for _, tc := range cases {
		if got := makePlaceholders(tc.count); got != tc.want {
			t.Fatalf("makePlaceholders(%d) = %q, want %q", tc.count, got, tc.want)
		}
	}
}

func TestCaptureCartRequiresIdentity(t *testing.T) {
	store := MustNewStore(&sql.DB{})

	err := store.CaptureCart(context.Background(), "abandoned_carts", 0, "", nil, time.Now())
	if !errors.Is(err, ErrCartUnidentified) {
		t.Fatalf("expected ErrCartUnidentified, got %v", err)
	}
}

func TestSessionForeignID(t *testing.T) {
	a := sessionForeignID("sess-a")
	b := sessionForeignID("sess-b")

	if a >= 0 || b >= 0 {
		t.Fatalf("synthetic ids must be negative, got %d and %d", a, b)
	}
	if a == b {
		t.Fatalf("distinct sessions mapped to the same id %d", a)
	}
	if a != sessionForeignID("sess-a") {
		t.Fatal("synthetic id is not deterministic")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short"); got != "short" {
		t.Fatalf("truncate changed short message: %q", got)
	}

	long := strings.Repeat("é", maxErrorLen+10)
	got := truncate(long)
	if len([]rune(got)) != maxErrorLen {
		t.Fatalf("truncated length = %d runes, want %d", len([]rune(got)), maxErrorLen)
	}
}
