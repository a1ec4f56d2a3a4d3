package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) (*Client, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	client := &Client{rdb: rdb, logger: zap.NewNop()}

	return client, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestSweepLockAcquireRelease(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	lock := NewSweepLock(client, zap.NewNop())
	ctx := context.Background()

	acquired, err := lock.Acquire(ctx, "asset-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acquired {
		t.Fatal("expected to acquire a free lock")
	}

	// Second acquire while held must fail.
	acquired, err = lock.Acquire(ctx, "asset-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acquired {
		t.Fatal("acquired a lock already held by another sweep")
	}

	if err := lock.Release(ctx, "asset-1"); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	acquired, err = lock.Acquire(ctx, "asset-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acquired {
		t.Fatal("expected to re-acquire after release")
	}
}

func TestSweepLockIndependentAssets(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	lock := NewSweepLock(client, zap.NewNop())
	ctx := context.Background()

	if ok, _ := lock.Acquire(ctx, "asset-1"); !ok {
		t.Fatal("failed to lock asset-1")
	}
	if ok, _ := lock.Acquire(ctx, "asset-2"); !ok {
		t.Fatal("asset-2 lock must be independent of asset-1")
	}
}
