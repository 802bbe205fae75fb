// Package memkv provides an in-memory kv.Store.
//
// It backs unit tests of the queue protocol, where its manual clock makes
// TTL expiry deterministic.
package memkv

import (
	"context"
	"sync"
	"time"

	"github.com/gantryq/gantry/pkg/kv"
)

// Store is a mutex-guarded in-memory kv.Store.
//
// The zero value is ready to use. Versions come from a store-wide counter, so
// a deleted and recreated key never repeats an old version.
type Store struct {
	// Now overrides the clock used for TTL expiry. Nil means time.Now.
	Now func() time.Time

	mu      sync.Mutex
	entries map[string]entry
	lastVer kv.Version
}

type entry struct {
	value    []byte
	version  kv.Version
	expireAt time.Time // zero = no expiry
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

var _ kv.Store = (*Store)(nil)

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// live returns the entry under key, dropping it first if its TTL has lapsed.
// Callers must hold s.mu.
func (s *Store) live(key string) (entry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return entry{}, false
	}
	if !e.expireAt.IsZero() && s.now().After(e.expireAt) {
		delete(s.entries, key)
		return entry{}, false
	}
	return e, true
}

// Callers must hold s.mu.
func (s *Store) nextVersion() kv.Version {
	s.lastVer++
	return s.lastVer
}

// Get returns the value and version stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, kv.Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, kv.NoVersion, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		return nil, kv.NoVersion, kv.ErrNotFound
	}
	value := make([]byte, len(e.value))
	copy(value, e.value)
	return value, e.version, nil
}

// CompareAndSwap writes value if the stored version still equals expect.
func (s *Store) CompareAndSwap(ctx context.Context, key string, expect kv.Version, value []byte) (kv.Version, error) {
	if err := ctx.Err(); err != nil {
		return kv.NoVersion, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := kv.NoVersion
	e, ok := s.live(key)
	if ok {
		cur = e.version
	}
	if cur != expect {
		return kv.NoVersion, kv.ErrConflict
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	next := s.nextVersion()
	if s.entries == nil {
		s.entries = make(map[string]entry)
	}
	// A swap keeps the key's expiry; a create has none.
	var expireAt time.Time
	if ok {
		expireAt = e.expireAt
	}
	s.entries[key] = entry{value: stored, version: next, expireAt: expireAt}
	return next, nil
}

// AddIfAbsent creates key with a TTL unless it already exists.
func (s *Store) AddIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live(key); ok {
		return false, nil
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	var expireAt time.Time
	if ttl > 0 {
		expireAt = s.now().Add(ttl)
	}
	if s.entries == nil {
		s.entries = make(map[string]entry)
	}
	s.entries[key] = entry{value: stored, version: s.nextVersion(), expireAt: expireAt}
	return true, nil
}

// Delete removes key and reports whether it existed.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.live(key)
	delete(s.entries, key)
	return ok, nil
}
