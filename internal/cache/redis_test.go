package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestCache(t *testing.T) *RedisCache {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(mr.Close)
	return NewRedis(mr.Addr(), "", 0)
}

func TestRedisCacheSetGet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "v" {
		t.Errorf("got %q, want %q", got, "v")
	}
}

func TestRedisCacheGetMissingIsErrNotFound(t *testing.T) {
	c := newTestCache(t)
	_, err := c.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRedisCacheDelAndExists(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	c.Set(ctx, "a", "1", time.Minute)
	c.Set(ctx, "b", "2", time.Minute)

	n, err := c.Exists(ctx, "a", "b", "missing")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if n != 2 {
		t.Errorf("Exists = %d, want 2", n)
	}

	if err := c.Del(ctx, "a"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	n, _ = c.Exists(ctx, "a")
	if n != 0 {
		t.Errorf("Exists after Del = %d, want 0", n)
	}
}

func TestRedisCachePing(t *testing.T) {
	c := newTestCache(t)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
