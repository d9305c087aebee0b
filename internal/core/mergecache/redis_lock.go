package mergecache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/agenthands/recipemerge/internal/logger"
)

const redisLockPrefix = "recipemerge:lock:"

// Deletes the lock only while it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is an advisory Locker shared by every process pointing at
// the same Redis. Locks expire after TTL so a crashed holder cannot wedge a
// key; the unique merge key in the database still decides the winner.
type RedisLocker struct {
	rdb  goredis.UniversalClient
	ttl  time.Duration
	poll time.Duration
	log  *logger.Logger
}

func NewRedisLocker(rdb goredis.UniversalClient, ttl, poll time.Duration, log *logger.Logger) *RedisLocker {
	if log == nil {
		log = logger.NewNop()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	return &RedisLocker{rdb: rdb, ttl: ttl, poll: poll, log: log.With("service", "RedisLocker")}
}

// DialRedis connects and pings.
func DialRedis(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := redisLockPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()
	for {
		ok, err := l.rdb.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, redisKey, token) })
	}, nil
}

func (l *RedisLocker) release(key, redisKey, token string) {
	// Release even when the caller's ctx is already cancelled.
	releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := releaseScript.Run(releaseCtx, l.rdb, []string{redisKey}, token).Err(); err != nil && !errors.Is(err, goredis.Nil) {
		l.log.Warn("Failed to release redis lock", "key", key, "error", err)
	}
}
