// Package store provides RateLimiter bucket storage backends.
package store

import (
	"context"
	"sync"
	"time"

	"vericred/internal/ratelimit"
)

type memoryEntry struct {
	bucket    ratelimit.Bucket
	expiresAt time.Time
}

// Memory is an in-memory bucket store. Expired entries are evicted lazily
// on Get and Size; the limiter's sweep leans on Size for periodic cleanup.
type Memory struct {
	mu      sync.Mutex
	buckets map[string]memoryEntry

	now func() time.Time
}

// NewMemory creates an empty in-memory bucket store.
func NewMemory() *Memory {
	return &Memory{
		buckets: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns the bucket for key, or nil when absent or expired.
func (m *Memory) Get(ctx context.Context, key string) (*ratelimit.Bucket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.buckets[key]
	if !ok {
		return nil, nil
	}
	if m.now().After(entry.expiresAt) {
		delete(m.buckets, key)
		return nil, nil
	}
	b := entry.bucket
	return &b, nil
}

// Set stores the bucket with the given time-to-live.
func (m *Memory) Set(ctx context.Context, key string, bucket *ratelimit.Bucket, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buckets[key] = memoryEntry{bucket: *bucket, expiresAt: m.now().Add(ttl)}
	return nil
}

// Delete removes one bucket.
func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.buckets, key)
	return nil
}

// Clear wipes all buckets.
func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buckets = make(map[string]memoryEntry)
	return nil
}

// Size counts live buckets, evicting expired ones as it goes.
func (m *Memory) Size(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, entry := range m.buckets {
		if now.After(entry.expiresAt) {
			delete(m.buckets, key)
		}
	}
	return len(m.buckets), nil
}
