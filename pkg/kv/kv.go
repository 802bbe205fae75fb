// Package kv defines the versioned key-value contract the queue protocol runs on.
//
// Any medium that offers the four primitives below with per-operation
// atomicity satisfies the contract. No cross-key or cross-operation ordering
// is assumed; every higher-level consistency guarantee is built client-side
// from versioned compare-and-swap.
//
// Versions
//
// Every read returns an opaque version token. Every conditional write names
// the version it read; the write commits if and only if the stored version
// still matches, and a fresh version is issued on commit. Version tokens are
// unique for the lifetime of a store keyspace: deleting or expiring a key and
// recreating it never re-issues an old token, so a stale token can never
// match by accident.
//
// The zero version NoVersion doubles as the "key absent" token. A
// CompareAndSwap that names NoVersion creates the key, and only if the key is
// still absent at commit time.
package kv

import (
	"context"
	"errors"
	"time"
)

// Version is an opaque token identifying one committed state of a key.
type Version uint64

// NoVersion is the version of an absent key.
const NoVersion Version = 0

// Contract errors.
var (
	// ErrNotFound marks a read of an absent (or expired) key.
	ErrNotFound = errors.New("key not found")
	// ErrConflict marks a conditional write that lost against a concurrent
	// writer. The stored value was not changed.
	ErrConflict = errors.New("version conflict")
)

// Store is a shared key-value medium with atomic conditional writes.
//
// Implementations must make each operation individually atomic and must
// honor TTLs passed to AddIfAbsent. They are otherwise free to store data
// however they like.
type Store interface {
	// Get returns the value and version stored under key.
	// Absent keys fail with ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, Version, error)

	// CompareAndSwap writes value if the stored version still equals expect,
	// returning the newly issued version. Passing NoVersion creates the key
	// if it is still absent. Any interleaved commit since expect was read
	// fails the write with ErrConflict.
	CompareAndSwap(ctx context.Context, key string, expect Version, value []byte) (Version, error)

	// AddIfAbsent creates key with the given TTL, but only if it does not
	// exist yet. It reports whether the key was created; false means another
	// writer holds the key. A TTL of zero or less means no expiry.
	AddIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Delete removes key and reports whether it existed.
	// Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) (bool, error)
}
