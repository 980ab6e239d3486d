package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"vericred/internal/ratelimit"
	dErrors "vericred/pkg/domain-errors"
)

const bucketKeyPrefix = "vericred:bucket:"

// Redis is a bucket store on a shared Redis instance, for fleets of
// verifier processes enforcing one budget. Expiry rides on key TTLs, so
// Size never has to evict anything itself.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a Redis-backed bucket store.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Get returns the bucket for key, or nil when absent or expired.
func (r *Redis) Get(ctx context.Context, key string) (*ratelimit.Bucket, error) {
	raw, err := r.client.Get(ctx, bucketKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "bucket get: "+key)
	}

	var bucket ratelimit.Bucket
	if err := json.Unmarshal(raw, &bucket); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "bucket corrupt: "+key)
	}
	return &bucket, nil
}

// Set stores the bucket with the given time-to-live.
func (r *Redis) Set(ctx context.Context, key string, bucket *ratelimit.Bucket, ttl time.Duration) error {
	raw, err := json.Marshal(bucket)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "bucket encode: "+key)
	}
	if err := r.client.Set(ctx, bucketKeyPrefix+key, raw, ttl).Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStorage, "bucket set: "+key)
	}
	return nil
}

// Delete removes one bucket.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, bucketKeyPrefix+key).Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStorage, "bucket delete: "+key)
	}
	return nil
}

// Clear wipes all buckets under the limiter's key prefix.
func (r *Redis) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, bucketKeyPrefix+"*", 256).Result()
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeStorage, "bucket scan")
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return dErrors.Wrap(err, dErrors.CodeStorage, "bucket clear")
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Size counts live buckets under the limiter's key prefix.
func (r *Redis) Size(ctx context.Context) (int, error) {
	var (
		count  int
		cursor uint64
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, bucketKeyPrefix+"*", 256).Result()
		if err != nil {
			return 0, dErrors.Wrap(err, dErrors.CodeStorage, "bucket scan")
		}
		count += len(keys)
		if next == 0 {
			return count, nil
		}
		cursor = next
	}
}
