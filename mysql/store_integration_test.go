//go:build integration

package mysql_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/shopsync/syncpump"
	"github.com/shopsync/syncpump/mysql"
)

func TestStoreStagePromoteFetchIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test disabled in short mode")
	}

	ctx := context.Background()
	container, db := startMySQLContainer(t, ctx)
	t.Cleanup(func() {
		_ = db.Close()
		_ = container.Terminate(ctx)
	})

	setupSchema(t, ctx, db)

	store, err := mysql.NewStore(db)
	require.NoError(t, err)

	staged, err := store.Stage(ctx, "orders", []int64{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 3, staged)

	// Re-staging tracked ids is a no-op.
	staged, err = store.Stage(ctx, "orders", []int64{2, 3, 4})
	require.NoError(t, err)
	require.Equal(t, 1, staged)

	tracked, err := store.TrackedIDs(ctx, "orders")
	require.NoError(t, err)
	require.Len(t, tracked, 4)

	queued, err := store.Promote(ctx, "orders")
	require.NoError(t, err)
	require.EqualValues(t, 4, queued)

	rows, err := store.FetchQueued(ctx, "orders", 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.EqualValues(t, 1, rows[0].ForeignID)
	require.Equal(t, syncpump.RowSyncing, rows[0].Status)

	// The fetched page is marked syncing; the next page skips it.
	rows2, err := store.FetchQueued(ctx, "orders", 10)
	require.NoError(t, err)
	require.Len(t, rows2, 2)
	require.EqualValues(t, 3, rows2[0].ForeignID)
}

func TestStoreRowLifecycleIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test disabled in short mode")
	}

	ctx := context.Background()
	container, db := startMySQLContainer(t, ctx)
	t.Cleanup(func() {
		_ = db.Close()
		_ = container.Terminate(ctx)
	})

	setupSchema(t, ctx, db)

	store, err := mysql.NewStore(db)
	require.NoError(t, err)

	_, err = store.Stage(ctx, "orders", []int64{10, 11, 12, 13})
	require.NoError(t, err)
	_, err = store.Promote(ctx, "orders")
	require.NoError(t, err)
	rows, err := store.FetchQueued(ctx, "orders", 10)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	require.NoError(t, store.MarkSynced(ctx, "orders", []int64{10}, map[int64]string{10: "rem-10"}))
	require.NoError(t, store.MarkFailed(ctx, "orders", []int64{11}, "remote validation failed"))
	require.NoError(t, store.MarkIncompatible(ctx, "orders", []int64{12}, "missing email"))
	require.NoError(t, store.PutBack(ctx, "orders", []int64{13}))

	require.Equal(t, 1, countByStatus(t, ctx, db, syncpump.RowSynced))
	require.Equal(t, 1, countByStatus(t, ctx, db, syncpump.RowFailed))
	require.Equal(t, 1, countByStatus(t, ctx, db, syncpump.RowIncompatible))
	require.Equal(t, 1, countByStatus(t, ctx, db, syncpump.RowQueued))

	synced, err := store.ClaimRow(ctx, "orders", 10)
	require.NoError(t, err)
	require.Equal(t, "rem-10", synced.RemoteID)
	require.Equal(t, syncpump.RowSyncing, synced.Status)

	_, err = store.ClaimRow(ctx, "orders", 999)
	require.ErrorIs(t, err, syncpump.ErrRowNotFound)
}

func TestStorePromoteRequeuesStrandedSyncingIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test disabled in short mode")
	}

	ctx := context.Background()
	container, db := startMySQLContainer(t, ctx)
	t.Cleanup(func() {
		_ = db.Close()
		_ = container.Terminate(ctx)
	})

	setupSchema(t, ctx, db)

	store, err := mysql.NewStore(db)
	require.NoError(t, err)

	_, err = store.Stage(ctx, "orders", []int64{20, 21})
	require.NoError(t, err)
	_, err = store.Promote(ctx, "orders")
	require.NoError(t, err)
	rows, err := store.FetchQueued(ctx, "orders", 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, 2, countByStatus(t, ctx, db, syncpump.RowSyncing))

	// A crashed run leaves rows syncing; the next Promote requeues them.
	queued, err := store.Promote(ctx, "orders")
	require.NoError(t, err)
	require.EqualValues(t, 2, queued)
	require.Equal(t, 0, countByStatus(t, ctx, db, syncpump.RowSyncing))
}

func TestStoreStatusRoundTripIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test disabled in short mode")
	}

	ctx := context.Background()
	container, db := startMySQLContainer(t, ctx)
	t.Cleanup(func() {
		_ = db.Close()
		_ = container.Terminate(ctx)
	})

	setupSchema(t, ctx, db)

	store, err := mysql.NewStore(db)
	require.NoError(t, err)

	loaded, err := store.LoadStatus(ctx, "orders")
	require.NoError(t, err)
	require.Nil(t, loaded)

	now := time.Now().UTC().Truncate(time.Microsecond)
	status := syncpump.NewSyncStatus("orders", 25, 5, now)
	status.MarkSyncing(now)
	status.CurrentRecord = 400
	status.SuccessCount = 12
	status.AddFailed(7)
	status.AddIncompatible(8)
	require.NoError(t, store.SaveStatus(ctx, status))

	loaded, err = store.LoadStatus(ctx, "orders")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, syncpump.StateSyncing, loaded.State)
	require.EqualValues(t, 400, loaded.CurrentRecord)
	require.Equal(t, 12, loaded.SuccessCount)
	require.Equal(t, []int64{7}, loaded.FailedIDs)
	require.Equal(t, []int64{8}, loaded.IncompatibleIDs)

	status.MarkFinished(now.Add(time.Minute))
	require.NoError(t, store.SaveStatus(ctx, status))
	require.NoError(t, store.ArchiveStatus(ctx, status))

	last, err := store.LoadLastStatus(ctx, "orders")
	require.NoError(t, err)
	require.NotNil(t, last)
	require.Equal(t, syncpump.StateFinished, last.State)

	// Stop flag round trip.
	stop, err := store.StopRequested(ctx, "orders")
	require.NoError(t, err)
	require.False(t, stop)
	require.NoError(t, store.SetStopRequested(ctx, "orders", true))
	stop, err = store.StopRequested(ctx, "orders")
	require.NoError(t, err)
	require.True(t, stop)
}

func TestStoreResetIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test disabled in short mode")
	}

	ctx := context.Background()
	container, db := startMySQLContainer(t, ctx)
	t.Cleanup(func() {
		_ = db.Close()
		_ = container.Terminate(ctx)
	})

	setupSchema(t, ctx, db)

	store, err := mysql.NewStore(db)
	require.NoError(t, err)

	_, err = store.Stage(ctx, "orders", []int64{30, 31})
	require.NoError(t, err)
	_, err = store.Promote(ctx, "orders")
	require.NoError(t, err)
	require.NoError(t, store.MarkSynced(ctx, "orders", []int64{30}, nil))

	status := syncpump.NewSyncStatus("orders", 25, 5, time.Now())
	require.NoError(t, store.SaveStatus(ctx, status))

	require.NoError(t, store.Reset(ctx, "orders"))

	// Terminal rows survive; pending rows and the status are gone.
	require.Equal(t, 1, countByStatus(t, ctx, db, syncpump.RowSynced))
	require.Equal(t, 0, countByStatus(t, ctx, db, syncpump.RowQueued))
	loaded, err := store.LoadStatus(ctx, "orders")
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestStoreCooldownIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test disabled in short mode")
	}

	ctx := context.Background()
	container, db := startMySQLContainer(t, ctx)
	t.Cleanup(func() {
		_ = db.Close()
		_ = container.Terminate(ctx)
	})

	setupSchema(t, ctx, db)

	store, err := mysql.NewStore(db)
	require.NoError(t, err)

	until, err := store.CooldownUntil(ctx, "bulk-api")
	require.NoError(t, err)
	require.True(t, until.IsZero())

	want := time.Now().UTC().Add(5 * time.Minute).Truncate(time.Microsecond)
	require.NoError(t, store.SetCooldown(ctx, "bulk-api", want))
	until, err = store.CooldownUntil(ctx, "bulk-api")
	require.NoError(t, err)
	require.True(t, until.Equal(want), "until = %v, want %v", until, want)

	require.NoError(t, store.ClearCooldown(ctx, "bulk-api"))
	until, err = store.CooldownUntil(ctx, "bulk-api")
	require.NoError(t, err)
	require.True(t, until.IsZero())
}

func TestStoreCaptureCartIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test disabled in short mode")
	}

	ctx := context.Background()
	container, db := startMySQLContainer(t, ctx)
	t.Cleanup(func() {
		_ = db.Close()
		_ = container.Terminate(ctx)
	})

	setupSchema(t, ctx, db)

	store, err := mysql.NewStore(db)
	require.NoError(t, err)

	snapshot := json.RawMessage(`{"email":"cart@example.com","items":[{"name":"Widget"}]}`)
	abandoned := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, store.CaptureCart(ctx, "abandoned_carts", 88, "sess-1", snapshot, abandoned))

	// Capturing again replaces the snapshot in place.
	updated := json.RawMessage(`{"email":"cart@example.com","items":[{"name":"Widget"},{"name":"Gadget"}]}`)
	require.NoError(t, store.CaptureCart(ctx, "abandoned_carts", 88, "sess-1", updated, abandoned))

	_, err = store.Promote(ctx, "abandoned_carts")
	require.NoError(t, err)
	rows, err := store.FetchQueued(ctx, "abandoned_carts", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "sess-1", rows[0].SessionKey)
	require.JSONEq(t, string(updated), string(rows[0].Snapshot))
}

func TestStoreCaptureGuestCartsIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test disabled in short mode")
	}

	ctx := context.Background()
	container, db := startMySQLContainer(t, ctx)
	t.Cleanup(func() {
		_ = db.Close()
		_ = container.Terminate(ctx)
	})

	setupSchema(t, ctx, db)

	store, err := mysql.NewStore(db)
	require.NoError(t, err)

	first := json.RawMessage(`{"email":"a@example.com"}`)
	second := json.RawMessage(`{"email":"b@example.com"}`)
	abandoned := time.Now().UTC().Truncate(time.Microsecond)

	// Two concurrent guest sessions must land in distinct rows, and a
	// recapture for one session must replace only that session's snapshot.
	require.NoError(t, store.CaptureCart(ctx, "abandoned_carts", 0, "sess-a", first, abandoned))
	require.NoError(t, store.CaptureCart(ctx, "abandoned_carts", 0, "sess-b", second, abandoned))
	replaced := json.RawMessage(`{"email":"a@example.com","items":[{"name":"Widget"}]}`)
	require.NoError(t, store.CaptureCart(ctx, "abandoned_carts", 0, "sess-a", replaced, abandoned))

	_, err = store.Promote(ctx, "abandoned_carts")
	require.NoError(t, err)
	rows, err := store.FetchQueued(ctx, "abandoned_carts", 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	bySession := make(map[string]syncpump.Row, len(rows))
	for _, row := range rows {
		require.Negative(t, row.ForeignID)
		bySession[row.SessionKey] = row
	}
	require.JSONEq(t, string(replaced), string(bySession["sess-a"].Snapshot))
	require.JSONEq(t, string(second), string(bySession["sess-b"].Snapshot))
	require.NotEqual(t, bySession["sess-a"].ForeignID, bySession["sess-b"].ForeignID)
}

func startMySQLContainer(t *testing.T, ctx context.Context) (testcontainers.Container, *sql.DB) {
	t.Helper()
	port := nat.Port("3306/tcp")
	req := testcontainers.ContainerRequest{
		Image:        "mysql:8.0.36",
		ExposedPorts: []string{string(port)},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret",
			"MYSQL_DATABASE":      "syncpump",
		},
		WaitingFor: wait.ForSQL(port, "mysql", func(host string, port nat.Port) string {
			return fmt.Sprintf("root:secret@tcp(%s:%s)/syncpump?parseTime=true&multiStatements=true", host, port.Port())
		}).WithStartupTimeout(2 * time.Minute),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("start mysql container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("resolve host: %v", err)
	}
	mappedPort, err := container.MappedPort(ctx, port)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("resolve port: %v", err)
	}

	dsn := fmt.Sprintf("root:secret@tcp(%s:%s)/syncpump?parseTime=true&multiStatements=true", host, mappedPort.Port())
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("open db: %v", err)
	}
	return container, db
}

func setupSchema(t *testing.T, ctx context.Context, db *sql.DB) {
	t.Helper()
	statements, err := mysql.Schemas(mysql.Config{})
	require.NoError(t, err)
	for _, ddl := range statements {
		_, err = db.ExecContext(ctx, ddl)
		require.NoError(t, err)
	}
}

func countByStatus(t *testing.T, ctx context.Context, db *sql.DB, status syncpump.RowStatus) int {
	t.Helper()
	var count int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sync_outbox WHERE status = ?", status).Scan(&count)
	require.NoError(t, err)
	return count
}
