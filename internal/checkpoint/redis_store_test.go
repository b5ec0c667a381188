package checkpoint

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"

	"github.com/redis/go-redis/v9"
)

// Redis store tests need a live server; set CLAIMFLOW_TEST_REDIS_ADDR
// (e.g. "localhost:6379") to run them.
func redisTestClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("CLAIMFLOW_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CLAIMFLOW_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("redis ping failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisStore_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	store := NewRedisStore(redisTestClient(t), "claimflow-test:")

	cp := sampleCheckpoint("t-redis-1")
	t.Cleanup(func() { _ = store.Clear(ctx, cp.ThreadID) })

	if err := store.Save(ctx, cp); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Load(ctx, cp.ThreadID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(got, cp) {
		t.Fatalf("round-trip mismatch:\nsaved=%+v\nloaded=%+v", cp, got)
	}

	if err := store.Clear(ctx, cp.ThreadID); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, err := store.Load(ctx, cp.ThreadID); !errors.Is(err, ErrCheckpointNotFound) {
		t.Fatalf("expected ErrCheckpointNotFound after clear, got %v", err)
	}
}

func TestRedisStore_ListTracksIndex(t *testing.T) {
	ctx := context.Background()
	store := NewRedisStore(redisTestClient(t), "claimflow-test-list:")

	ids := []string{"t-redis-b", "t-redis-a"}
	for _, id := range ids {
		if err := store.Save(ctx, sampleCheckpoint(id)); err != nil {
			t.Fatalf("Save %s failed: %v", id, err)
		}
	}
	t.Cleanup(func() {
		for _, id := range ids {
			_ = store.Clear(ctx, id)
		}
	})

	cps, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(cps) != 2 || cps[0].ThreadID != "t-redis-a" {
		t.Fatalf("unexpected list: %+v", cps)
	}
}
