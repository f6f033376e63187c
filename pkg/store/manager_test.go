package store

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis connects to a local Redis and skips when none is running.
// The integration build tag runs the same flows against a container.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewManager(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	m := NewManager(client, Options{})
	if m.prefix != DefaultPrefix {
		t.Errorf("prefix = %q, want %q", m.prefix, DefaultPrefix)
	}
	if m.ttl != DefaultTTL {
		t.Errorf("ttl = %v, want %v", m.ttl, DefaultTTL)
	}

	m = NewManager(client, Options{TTL: -1})
	if m.ttl != 0 {
		t.Errorf("negative TTL should disable expiry, got %v", m.ttl)
	}
}

func TestNewManager_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewManager should panic with nil redis client")
		}
	}()
	NewManager(nil, Options{})
}

func TestManager_PutAndGet(t *testing.T) {
	client := setupTestRedis(t)
	runPutAndGet(t, NewManager(client, Options{TTL: time.Minute}), client)
}

func TestManager_NamesAndDelete(t *testing.T) {
	client := setupTestRedis(t)
	runNamesAndDelete(t, NewManager(client, Options{}))
}

func runPutAndGet(t *testing.T, m *Manager, client *redis.Client) {
	t.Helper()
	ctx := WithBatch(context.Background(), "batch-1")

	snap := &Snapshot{StatusCode: 200, Body: []byte("hello")}
	if err := m.Put(ctx, "greeting", snap); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := m.Put(ctx, "greeting", snap); !errors.Is(err, ErrExists) {
		t.Errorf("second Put = %v, want ErrExists", err)
	}

	var got Snapshot
	if err := m.Get(ctx, Key{Batch: "batch-1", Name: "greeting"}, &got); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got.Body) != "hello" || got.StatusCode != 200 {
		t.Errorf("Get = %+v", got)
	}

	ttl := client.TTL(ctx, "batchhttp:batch-1:greeting").Val()
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("TTL = %v, want (0, 1m]", ttl)
	}

	if err := m.Get(ctx, Key{Batch: "batch-1", Name: "missing"}, &got); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) = %v, want ErrNotFound", err)
	}
}

func runNamesAndDelete(t *testing.T, m *Manager) {
	t.Helper()
	ctx := WithBatch(context.Background(), "batch-2")

	for _, name := range []string{"a", "b", "c"} {
		if err := m.Put(ctx, name, name); err != nil {
			t.Fatalf("Put(%s) failed: %v", name, err)
		}
	}
	other := WithBatch(context.Background(), "batch-3")
	if err := m.Put(other, "x", 1); err != nil {
		t.Fatalf("Put(other) failed: %v", err)
	}

	names, err := m.Names(ctx, "batch-2")
	if err != nil {
		t.Fatalf("Names failed: %v", err)
	}
	slices.Sort(names)
	if !slices.Equal(names, []string{"a", "b", "c"}) {
		t.Errorf("Names = %v", names)
	}

	if err := m.DeleteBatch(ctx, "batch-2"); err != nil {
		t.Fatalf("DeleteBatch failed: %v", err)
	}
	names, _ = m.Names(ctx, "batch-2")
	if len(names) != 0 {
		t.Errorf("Names after delete = %v", names)
	}
	names, _ = m.Names(ctx, "batch-3")
	if len(names) != 1 {
		t.Errorf("other batch affected: %v", names)
	}
}
