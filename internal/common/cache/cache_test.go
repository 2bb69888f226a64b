package cache_test

import (
	"context"
	"testing"
	"time"

	"elevate/internal/common/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// basicOpsSuite runs the shared contract checks against one Cache
// implementation. fastForward advances expiry time for the backend.
func basicOpsSuite(t *testing.T, c cache.Cache, fastForward func(d time.Duration)) {
	ctx := context.Background()

	if err := c.Ping(ctx); err != nil {
		t.Fatalf("ping failed: %v", err)
	}

	// Missing keys read as empty, not as errors.
	if value, err := c.Get(ctx, "missing"); err != nil || value != "" {
		t.Fatalf("unexpected miss result: %q, %v", value, err)
	}

	if err := c.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if value, err := c.Get(ctx, "k"); err != nil || value != "v" {
		t.Fatalf("unexpected get result: %q, %v", value, err)
	}

	// SetNX only wins on absent keys.
	if acquired, err := c.SetNX(ctx, "k", "other", time.Minute); err != nil || acquired {
		t.Fatalf("setnx on existing key: %v, %v", acquired, err)
	}
	if acquired, err := c.SetNX(ctx, "nx", "1", time.Minute); err != nil || !acquired {
		t.Fatalf("setnx on fresh key: %v, %v", acquired, err)
	}

	// Counters.
	for want := int64(2); want <= 4; want++ {
		count, err := c.Incr(ctx, "nx")
		if err != nil || count != want {
			t.Fatalf("incr: got %d, %v, want %d", count, err, want)
		}
	}

	// TTL bookkeeping.
	if ttl, err := c.TTL(ctx, "missing"); err != nil || ttl != -2 {
		t.Fatalf("ttl of missing key: %v, %v", ttl, err)
	}
	if ttl, err := c.TTL(ctx, "k"); err != nil || ttl != -1 {
		t.Fatalf("ttl of persistent key: %v, %v", ttl, err)
	}
	if err := c.Expire(ctx, "k", time.Minute); err != nil {
		t.Fatalf("expire failed: %v", err)
	}
	if ttl, err := c.TTL(ctx, "k"); err != nil || ttl <= 0 || ttl > time.Minute {
		t.Fatalf("ttl after expire: %v, %v", ttl, err)
	}

	// Expired keys vanish.
	if err := c.Set(ctx, "short", "x", 20*time.Millisecond); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	fastForward(30 * time.Millisecond)
	if value, err := c.Get(ctx, "short"); err != nil || value != "" {
		t.Fatalf("expired key still readable: %q, %v", value, err)
	}

	if err := c.Del(ctx, "k", "nx"); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if value, err := c.Get(ctx, "k"); err != nil || value != "" {
		t.Fatalf("deleted key still readable: %q, %v", value, err)
	}
}

func TestMemoryCacheBasicOps(t *testing.T) {
	c := cache.NewMemoryCache()
	defer c.Close()
	basicOpsSuite(t, c, func(d time.Duration) { time.Sleep(d) })
}

func TestRedisCacheBasicOps(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis failed to start: %v", err)
	}
	defer mr.Close()

	c, err := cache.NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	if err != nil {
		t.Fatalf("redis cache failed: %v", err)
	}
	defer c.Close()
	basicOpsSuite(t, c, mr.FastForward)
}

func TestMemoryCacheIncrRejectsNonInteger(t *testing.T) {
	c := cache.NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "k", "not-a-number", 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if _, err := c.Incr(ctx, "k"); err == nil {
		t.Fatal("incr of non-integer value should fail")
	}
}

func TestNewRedisCacheWithConfigValidation(t *testing.T) {
	if _, err := cache.NewRedisCacheWithConfig(nil); err == nil {
		t.Fatal("nil config should be rejected")
	}
	if _, err := cache.NewRedisCacheWithConfig(&cache.RedisConfig{}); err == nil {
		t.Fatal("empty addr should be rejected")
	}
}
