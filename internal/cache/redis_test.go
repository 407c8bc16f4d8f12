package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/carenest-next/internal/config"
)

func TestBuildKeyUsesPrefix(t *testing.T) {
	redisPrefix = "cn"
	if got := buildKey(" lock:settlement_run "); got != "cn:lock:settlement_run" {
		t.Fatalf("unexpected key: %s", got)
	}
	if got := buildKey(""); got != "cn" {
		t.Fatalf("unexpected empty key: %s", got)
	}
}

func TestDisabledRedisIsNoop(t *testing.T) {
	if err := InitRedis(&config.RedisConfig{Enabled: false}); err != nil {
		t.Fatalf("init disabled redis failed: %v", err)
	}
	if Enabled() {
		t.Fatalf("expected redis disabled")
	}
	ctx := context.Background()
	var dest map[string]string
	found, err := GetJSON(ctx, "any", &dest)
	if err != nil || found {
		t.Fatalf("expected miss without error, got %v %v", found, err)
	}
	if err := SetJSON(ctx, "any", map[string]string{"a": "b"}, time.Minute); err != nil {
		t.Fatalf("set json should be noop: %v", err)
	}
	if err := Ping(ctx); err != nil {
		t.Fatalf("ping should be noop: %v", err)
	}
	if err := Del(ctx, "any"); err != nil {
		t.Fatalf("del should be noop: %v", err)
	}
}

func TestAcquireLockWithoutRedis(t *testing.T) {
	if err := InitRedis(nil); err != nil {
		t.Fatalf("init nil redis failed: %v", err)
	}
	lock, err := AcquireLock(context.Background(), "lock:test", time.Minute)
	if !errors.Is(err, ErrLockUnavailable) {
		t.Fatalf("expected ErrLockUnavailable, got %v", err)
	}
	if lock != nil {
		t.Fatalf("expected nil lock")
	}
	if err := ReleaseLock(context.Background(), nil); err != nil {
		t.Fatalf("release nil lock should be noop: %v", err)
	}
}
