package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vericred/internal/revocation"
	dErrors "vericred/pkg/domain-errors"
)

// Memory is an in-memory Store for single-process deployments and tests.
// For shared deployments, use the Redis store instead.
type Memory struct {
	mu       sync.RWMutex
	entries  map[string]CachedCredential
	list     *revocation.List
	lastSync time.Time

	now func() time.Time
}

// NewMemory creates an empty in-memory credential cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]CachedCredential),
		now:     time.Now,
	}
}

// Get retrieves one entry, lazily evicting it when past its retention window.
func (m *Memory) Get(ctx context.Context, vcID string) (*CachedCredential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[vcID]
	if !ok {
		return nil, notFound(vcID)
	}
	if entry.Expired(m.now()) {
		delete(m.entries, vcID)
		return nil, notFound(vcID)
	}
	return &entry, nil
}

// Set inserts or replaces one entry.
func (m *Memory) Set(ctx context.Context, entry *CachedCredential) error {
	if entry == nil || entry.VCID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "cache entry needs a credential ID")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.VCID] = *entry
	return nil
}

// Delete removes one entry; absent entries are a no-op.
func (m *Memory) Delete(ctx context.Context, vcID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, vcID)
	return nil
}

// AllCredentialIDs lists the IDs of all live entries.
func (m *Memory) AllCredentialIDs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	ids := make([]string, 0, len(m.entries))
	for id, entry := range m.entries {
		if entry.Expired(now) {
			delete(m.entries, id)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// SetRevocationList replaces the cached revocation list wholesale.
func (m *Memory) SetRevocationList(ctx context.Context, list *revocation.List) error {
	if list == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "revocation list is nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *list
	copied.Bitmap = append([]byte(nil), list.Bitmap...)
	m.list = &copied
	return nil
}

// RevocationList returns the cached snapshot.
func (m *Memory) RevocationList(ctx context.Context) (*revocation.List, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.list == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "no revocation list cached yet")
	}
	copied := *m.list
	copied.Bitmap = append([]byte(nil), m.list.Bitmap...)
	return &copied, nil
}

// UpdateSyncTime records the end of a sync pass.
func (m *Memory) UpdateSyncTime(ctx context.Context, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSync = t
	return nil
}

// LastSyncTime returns the zero time when no pass has completed.
func (m *Memory) LastSyncTime(ctx context.Context) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSync, nil
}

func notFound(vcID string) error {
	return dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("credential %s not cached", vcID))
}
