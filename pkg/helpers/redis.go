package helpers

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient returns a client with short timeouts. Redis only backs the
// cache and the rate limiter, so a slow server must not stall requests.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})
}

// RedisGetJSON decodes key into dest. A missing key reports false with no error.
func RedisGetJSON[T any](ctx context.Context, rdb *redis.Client, key string, dest *T) (bool, error) {
	raw, err := rdb.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// Versioned keys guard read-through caches against filling in a value read
// before a concurrent write: the writer bumps the version and the filler only
// writes if the version it saw is still current.

// RedisVersion returns the current version stored at verKey, "" when unset.
func RedisVersion(ctx context.Context, rdb *redis.Client, verKey string) (string, error) {
	v, err := rdb.Get(ctx, verKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

var setIfVersionScript = redis.NewScript(`
local v = redis.call("GET", KEYS[1])
if (v or "") ~= ARGV[1] then
  return 0
end
redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
return 1
`)

// RedisSetJSONIfVersion stores value as JSON under key for ttl, but only while
// verKey still holds version. It reports whether the value was stored.
func RedisSetJSONIfVersion[T any](ctx context.Context, rdb *redis.Client, verKey, key, version string, value T, ttl time.Duration) (bool, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	n, err := setIfVersionScript.Run(ctx, rdb, []string{verKey, key}, version, b, ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

var bumpScript = redis.NewScript(`
redis.call("INCR", KEYS[1])
redis.call("PEXPIRE", KEYS[1], ARGV[1])
for i = 2, #KEYS do
  redis.call("DEL", KEYS[i])
end
return 1
`)

// RedisBumpVersion increments verKey, keeps it for verTTL and deletes keys in
// one round trip.
func RedisBumpVersion(ctx context.Context, rdb *redis.Client, verKey string, verTTL time.Duration, keys ...string) error {
	return bumpScript.Run(ctx, rdb, append([]string{verKey}, keys...), verTTL.Milliseconds()).Err()
}
