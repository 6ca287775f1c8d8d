package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	c.Set(ctx, "user:1", "FR", time.Minute)

	value, ok := c.Get(ctx, "user:1")
	if !ok {
		t.Fatal("Expected cache hit")
	}
	if value != "FR" {
		t.Errorf("Expected 'FR', got '%s'", value)
	}
}

func TestMemoryCacheMiss(t *testing.T) {
	c := NewMemoryCache()

	if _, ok := c.Get(context.Background(), "missing"); ok {
		t.Error("Expected cache miss for unknown key")
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	c.Set(ctx, "user:2", "DE", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get(ctx, "user:2"); ok {
		t.Error("Expected expired entry to be a miss")
	}
}

func TestMemoryCacheOverwrite(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	c.Set(ctx, "user:3", "FR", time.Minute)
	c.Set(ctx, "user:3", "LT", time.Minute)

	value, _ := c.Get(ctx, "user:3")
	if value != "LT" {
		t.Errorf("Expected overwritten value 'LT', got '%s'", value)
	}
}
