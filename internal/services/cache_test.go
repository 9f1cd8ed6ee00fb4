package services

import (
	"context"
	"testing"
)

func TestNilCacheIsAlwaysMissing(t *testing.T) {
	var c *Cache
	ctx := context.Background()
	if err := c.Set(ctx, "k", []int{1}); err != nil {
		t.Fatalf("set: %v", err)
	}
	var dest []int
	ok, err := c.Get(ctx, "k", &dest)
	if err != nil || ok {
		t.Fatalf("get = %v, %v", ok, err)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestCacheKey(t *testing.T) {
	if got := CacheKey("journals", "u1"); got != "journals:u1" {
		t.Fatalf("CacheKey = %q", got)
	}
}
