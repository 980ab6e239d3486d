package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"vericred/internal/revocation"
	dErrors "vericred/pkg/domain-errors"
)

const (
	credKeyPrefix = "vericred:cred:"
	listKey       = "vericred:revocation-list"
	lastSyncKey   = "vericred:last-sync"
)

// Redis is a Store backed by a shared Redis instance, for deployments where
// several verifier processes share one cache.
type Redis struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedis creates a Redis-backed credential cache.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, now: time.Now}
}

// Get retrieves one entry. Retention is enforced by the key TTL set on
// write, so an expired entry is simply a missing key.
func (r *Redis) Get(ctx context.Context, vcID string) (*CachedCredential, error) {
	raw, err := r.client.Get(ctx, credKeyPrefix+vcID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(vcID)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "cache get: "+vcID)
	}

	var entry CachedCredential
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "cache entry corrupt: "+vcID)
	}
	return &entry, nil
}

// Set inserts or replaces one entry, deriving the key TTL from the entry's
// retention window.
func (r *Redis) Set(ctx context.Context, entry *CachedCredential) error {
	if entry == nil || entry.VCID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "cache entry needs a credential ID")
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "cache entry encode: "+entry.VCID)
	}

	var ttl time.Duration // 0 = no expiry
	if !entry.Metadata.ExpiresAt.IsZero() {
		ttl = entry.Metadata.ExpiresAt.Sub(r.now())
		if ttl <= 0 {
			// Already past retention; storing it would resurrect a dead entry.
			return nil
		}
	}
	if err := r.client.Set(ctx, credKeyPrefix+entry.VCID, raw, ttl).Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStorage, "cache set: "+entry.VCID)
	}
	return nil
}

// Delete removes one entry; absent entries are a no-op.
func (r *Redis) Delete(ctx context.Context, vcID string) error {
	if err := r.client.Del(ctx, credKeyPrefix+vcID).Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStorage, "cache delete: "+vcID)
	}
	return nil
}

// AllCredentialIDs scans the credential keyspace.
func (r *Redis) AllCredentialIDs(ctx context.Context) ([]string, error) {
	var (
		ids    []string
		cursor uint64
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, credKeyPrefix+"*", 256).Result()
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeStorage, "cache scan")
		}
		for _, k := range keys {
			ids = append(ids, k[len(credKeyPrefix):])
		}
		if next == 0 {
			return ids, nil
		}
		cursor = next
	}
}

// SetRevocationList replaces the cached revocation list wholesale.
func (r *Redis) SetRevocationList(ctx context.Context, list *revocation.List) error {
	if list == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "revocation list is nil")
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "revocation list encode")
	}
	if err := r.client.Set(ctx, listKey, raw, 0).Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStorage, "revocation list set")
	}
	return nil
}

// RevocationList returns the cached snapshot.
func (r *Redis) RevocationList(ctx context.Context) (*revocation.List, error) {
	raw, err := r.client.Get(ctx, listKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no revocation list cached yet")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "revocation list get")
	}

	var list revocation.List
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "revocation list corrupt")
	}
	return &list, nil
}

// UpdateSyncTime records the end of a sync pass.
func (r *Redis) UpdateSyncTime(ctx context.Context, t time.Time) error {
	if err := r.client.Set(ctx, lastSyncKey, t.UTC().Format(time.RFC3339Nano), 0).Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStorage, "sync time set")
	}
	return nil
}

// LastSyncTime returns the zero time when no pass has completed.
func (r *Redis) LastSyncTime(ctx context.Context) (time.Time, error) {
	raw, err := r.client.Get(ctx, lastSyncKey).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, dErrors.Wrap(err, dErrors.CodeStorage, "sync time get")
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, dErrors.Wrap(err, dErrors.CodeStorage, "sync time corrupt")
	}
	return t, nil
}
