// Package rediskv implements the kv.Store contract on Redis.
//
// Layout
//
// Each logical key is a Redis hash with two fields: "v" carries the version
// and "d" the value bytes. Versions are issued by INCR on a store-wide
// counter key, so they stay unique even after a key is deleted or expires.
// TTLs from AddIfAbsent map to PEXPIRE on the hash; a later CompareAndSwap
// keeps the running expiry (HSET does not touch key TTLs).
//
// The conditional writes run as server-side Lua scripts, pre-loaded once via
// LoadScripts. Reads and deletes are single commands and need no script.
//
// Redis 6 or newer is required.
package rediskv

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/gantryq/gantry/pkg/kv"
)

// DefaultCounterKey is the version counter used unless Store overrides it.
const DefaultCounterKey = "gantry_vc"

// Store interfaces with Redis to persist versioned entries.
type Store struct {
	// Modules
	Redis *redis.Client
	// Redis scripts
	*Scripts
	// CounterKey names the store-wide version counter.
	// Empty means DefaultCounterKey.
	CounterKey string
}

var _ kv.Store = (*Store)(nil)

// Scripts holds the pre-loaded Lua server-side scripts.
type Scripts struct {
	compareAndSwap *redis.Script
	addIfAbsent    *redis.Script
}

// LoadScripts hashes the Lua scripts and pre-loads them into Redis.
func LoadScripts(ctx context.Context, r *redis.Client) (*Scripts, error) {
	s := new(Scripts)
	s.compareAndSwap = redis.NewScript(compareAndSwapScript)
	if err := s.compareAndSwap.Load(ctx, r).Err(); err != nil {
		return nil, err
	}
	s.addIfAbsent = redis.NewScript(addIfAbsentScript)
	if err := s.addIfAbsent.Load(ctx, r).Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStore pre-loads the scripts and returns a Store on the given client.
func NewStore(ctx context.Context, r *redis.Client) (*Store, error) {
	scripts, err := LoadScripts(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("failed to load kv scripts: %w", err)
	}
	return &Store{Redis: r, Scripts: scripts}, nil
}

func (s *Store) counterKey() string {
	if s.CounterKey != "" {
		return s.CounterKey
	}
	return DefaultCounterKey
}

// Get returns the value and version stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, kv.Version, error) {
	res, err := s.Redis.HMGet(ctx, key, "v", "d").Result()
	if err != nil {
		return nil, kv.NoVersion, fmt.Errorf("failed to read entry: %w", err)
	}
	if len(res) != 2 || res[0] == nil {
		return nil, kv.NoVersion, kv.ErrNotFound
	}
	verStr, ok := res[0].(string)
	if !ok {
		return nil, kv.NoVersion, fmt.Errorf("unexpected version field: %#v", res[0])
	}
	ver, err := strconv.ParseUint(verStr, 10, 64)
	if err != nil {
		return nil, kv.NoVersion, fmt.Errorf("invalid version %q: %w", verStr, err)
	}
	data, ok := res[1].(string)
	if !ok {
		return nil, kv.NoVersion, fmt.Errorf("unexpected data field: %#v", res[1])
	}
	return []byte(data), kv.Version(ver), nil
}

// compareAndSwapScript commits a value if the entry version is unchanged.
// Keys:
// 1. Entry hash
// 2. Version counter
// Arguments:
// 1. Expected version ("0" for absent)
// 2. New value
// Returns the new version, or 0 on conflict.
const compareAndSwapScript = `
local cur = redis.call("HGET", KEYS[1], "v")
if not cur then
  cur = "0"
end
if cur ~= ARGV[1] then
  return 0
end
local next = redis.call("INCR", KEYS[2])
redis.call("HSET", KEYS[1], "v", next, "d", ARGV[2])
return next
`

// CompareAndSwap writes value if the stored version still equals expect.
func (s *Store) CompareAndSwap(ctx context.Context, key string, expect kv.Version, value []byte) (kv.Version, error) {
	keys := []string{key, s.counterKey()}
	next, err := s.compareAndSwap.Run(ctx, s.Redis, keys,
		strconv.FormatUint(uint64(expect), 10), value).Int64()
	if err != nil {
		return kv.NoVersion, fmt.Errorf("failed to run compareAndSwap: %w", err)
	}
	if next == 0 {
		return kv.NoVersion, kv.ErrConflict
	}
	return kv.Version(next), nil
}

// addIfAbsentScript creates an entry with a TTL unless it exists.
// Keys:
// 1. Entry hash
// 2. Version counter
// Arguments:
// 1. Value
// 2. TTL in milliseconds (0 = no expiry)
// Returns 1 when created, 0 when the key was already present.
const addIfAbsentScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
local next = redis.call("INCR", KEYS[2])
redis.call("HSET", KEYS[1], "v", next, "d", ARGV[1])
local ttl = tonumber(ARGV[2])
if ttl > 0 then
  redis.call("PEXPIRE", KEYS[1], ttl)
end
return 1
`

// AddIfAbsent creates key with a TTL unless it already exists.
func (s *Store) AddIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0
	}
	keys := []string{key, s.counterKey()}
	created, err := s.addIfAbsent.Run(ctx, s.Redis, keys,
		value, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to run addIfAbsent: %w", err)
	}
	return created == 1, nil
}

// Delete removes key and reports whether it existed.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	count, err := s.Redis.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete entry: %w", err)
	}
	return count > 0, nil
}
