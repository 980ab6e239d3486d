// Package sync provides small concurrency helpers shared across the SDK.
package sync

import (
	"hash/fnv"
	"sync"
)

const shardCount = 64

// ShardedMutex provides fine-grained locking keyed by resource identifier.
// Operations are distributed over a fixed shard set by key hash, so two
// different identifiers rarely contend while the same identifier always
// serializes. Used to keep per-identifier read-modify-write cycles atomic.
type ShardedMutex struct {
	shards [shardCount]sync.Mutex
}

// NewShardedMutex creates a ShardedMutex.
func NewShardedMutex() *ShardedMutex {
	return &ShardedMutex{}
}

// Lock acquires the shard lock for key.
func (m *ShardedMutex) Lock(key string) {
	m.shards[m.shardFor(key)].Lock()
}

// Unlock releases the shard lock for key.
func (m *ShardedMutex) Unlock(key string) {
	m.shards[m.shardFor(key)].Unlock()
}

func (m *ShardedMutex) shardFor(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key)) //nolint:errcheck // fnv never fails
	return int(h.Sum32() % shardCount)
}
