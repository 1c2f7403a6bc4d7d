package redis

import (
	"testing"

	goredis "github.com/redis/go-redis/v9"
)

func TestNewCooldownStoreRequiresClient(t *testing.T) {
	if _, err := NewCooldownStore(nil); err == nil {
		t.Fatal("expected error for nil client")
	}
}

func TestNewCooldownStoreOptions(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})
	defer client.Close()

	store, err := NewCooldownStore(client, WithKeyPrefix("custom:"))
	if err != nil {
		t.Fatalf("new cooldown store: %v", err)
	}
	if got := store.key("bulk-api"); got != "custom:bulk-api" {
		t.Fatalf("key = %q, want custom:bulk-api", got)
	}
}

func TestDefaultKeyPrefix(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})
	defer client.Close()

	store, err := NewCooldownStore(client)
	if err != nil {
		t.Fatalf("new cooldown store: %v", err)
	}
	if got := store.key("bulk-api"); got != "syncpump:cooldown:bulk-api" {
		t.Fatalf("key = %q", got)
	}
}
