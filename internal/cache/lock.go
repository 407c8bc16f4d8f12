package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockUnavailable Redis 未启用，无法使用分布式锁
var ErrLockUnavailable = errors.New("distributed lock unavailable")

var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock 已持有的分布式锁
type Lock struct {
	key   string
	token string
}

// Key 返回锁的完整 key
func (l *Lock) Key() string {
	if l == nil {
		return ""
	}
	return l.key
}

// AcquireLock 尝试获取分布式锁（SET NX），未获取到时返回 nil, nil
func AcquireLock(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	if !Enabled() {
		return nil, ErrLockUnavailable
	}
	if strings.TrimSpace(key) == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	fullKey := buildKey(key)
	token := uuid.NewString()
	ok, err := redisClient.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &Lock{key: fullKey, token: token}, nil
}

// ReleaseLock 释放锁，仅当锁仍由当前持有者持有时才删除
func ReleaseLock(ctx context.Context, lock *Lock) error {
	if lock == nil || !Enabled() {
		return nil
	}
	return releaseLockScript.Run(ctx, redisClient, []string{lock.key}, lock.token).Err()
}
