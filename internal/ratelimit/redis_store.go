package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ TokenStore = (*RedisStore)(nil)

// incrementLua increments the counter and arms the expiry only on the first
// increment, so the window does not extend on every request. Running it as a
// script keeps the increment-and-expire pair atomic across server instances.
const incrementLua = `
	local current = redis.call("INCR", KEYS[1])
	if tonumber(current) == 1 then
		redis.call("PEXPIRE", KEYS[1], ARGV[1])
	end
	return current
`

// RedisStore implements TokenStore on a shared Redis instance. It is the
// production backend: counters are visible to every server instance and
// Redis serializes the increments.
type RedisStore struct {
	client          *redis.Client
	incrementScript *redis.Script
}

// NewRedisStore creates a RedisStore. It does not ping: a dead Redis at boot
// must not prevent startup when the limiter is configured fail-open. Use Ping
// for readiness checks.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client:          client,
		incrementScript: redis.NewScript(incrementLua),
	}
}

// Ping verifies connectivity to the backing Redis.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	res, err := s.incrementScript.Run(ctx, s.client, []string{key}, ttl.Milliseconds()).Result()
	if err != nil {
		return 0, fmt.Errorf("redis increment: %w", err)
	}
	count, ok := res.(int64)
	if !ok {
		return 0, fmt.Errorf("redis increment: unexpected reply type %T", res)
	}
	return count, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (int64, error) {
	count, err := s.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get: %w", err)
	}
	return count, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
