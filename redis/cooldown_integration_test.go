//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/shopsync/syncpump/redis"
)

func TestCooldownStoreRoundTripIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test disabled in short mode")
	}

	ctx := context.Background()
	container, client := startRedisContainer(t, ctx)
	t.Cleanup(func() {
		_ = client.Close()
		_ = container.Terminate(ctx)
	})

	store, err := redis.NewCooldownStore(client)
	require.NoError(t, err)

	until, err := store.CooldownUntil(ctx, "bulk-api")
	require.NoError(t, err)
	require.True(t, until.IsZero())

	want := time.Now().UTC().Add(time.Minute)
	require.NoError(t, store.SetCooldown(ctx, "bulk-api", want))
	until, err = store.CooldownUntil(ctx, "bulk-api")
	require.NoError(t, err)
	require.True(t, until.Equal(want), "until = %v, want %v", until, want)

	require.NoError(t, store.ClearCooldown(ctx, "bulk-api"))
	until, err = store.CooldownUntil(ctx, "bulk-api")
	require.NoError(t, err)
	require.True(t, until.IsZero())
}

func TestCooldownStoreExpiredMarkerIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test disabled in short mode")
	}

	ctx := context.Background()
	container, client := startRedisContainer(t, ctx)
	t.Cleanup(func() {
		_ = client.Close()
		_ = container.Terminate(ctx)
	})

	store, err := redis.NewCooldownStore(client)
	require.NoError(t, err)

	// A marker in the past is cleared, not stored.
	require.NoError(t, store.SetCooldown(ctx, "bulk-api", time.Now().Add(-time.Minute)))
	until, err := store.CooldownUntil(ctx, "bulk-api")
	require.NoError(t, err)
	require.True(t, until.IsZero())
}

func startRedisContainer(t *testing.T, ctx context.Context) (testcontainers.Container, *goredis.Client) {
	t.Helper()
	port := nat.Port("6379/tcp")
	req := testcontainers.ContainerRequest{
		Image:        "redis:7.2-alpine",
		ExposedPorts: []string{string(port)},
		WaitingFor:   wait.ForListeningPort(port).WithStartupTimeout(time.Minute),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("start redis container: %v", err)
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

	client := goredis.NewClient(&goredis.Options{Addr: host + ":" + mappedPort.Port()})
	return container, client
}
