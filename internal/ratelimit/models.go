// Package ratelimit implements token-bucket admission control for the
// verification path: a single continuous-refill limiter over pluggable
// storage, and a multi-tier composition of named limiters.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	dErrors "vericred/pkg/domain-errors"
)

// Bucket is the stored state for one identifier. Tokens stay within
// [0, BurstCapacity]; Violations counts rejections since the bucket was
// last admitted, and the whole record is evicted by storage TTL.
type Bucket struct {
	Tokens     float64   `json:"tokens"`
	LastRefill time.Time `json:"last_refill"`
	Violations int       `json:"violations"`
}

// Storage is the pluggable bucket store. Implementations do not need to be
// atomic per identifier; the limiter serializes read-modify-write cycles
// itself, and that contract holds for any backend.
type Storage interface {
	// Get returns the bucket for key, or nil when absent or expired.
	Get(ctx context.Context, key string) (*Bucket, error)

	// Set stores the bucket with the given time-to-live.
	Set(ctx context.Context, key string, bucket *Bucket, ttl time.Duration) error

	// Delete removes one bucket; absent keys are a no-op.
	Delete(ctx context.Context, key string) error

	// Clear wipes all buckets.
	Clear(ctx context.Context) error

	// Size counts live buckets, evicting expired ones as it goes.
	Size(ctx context.Context) (int, error)
}

// Result reports a successful admission.
type Result struct {
	Remaining  float64   `json:"remaining"`
	Violations int       `json:"violations"`
	CheckedAt  time.Time `json:"checked_at"`
}

// RateLimitError rejects an admission attempt. It is distinct from
// validation and network errors so callers can honor RetryAfter.
type RateLimitError struct {
	Identifier string
	RetryAfter time.Duration

	// Tier names the limiter that fired inside a multi-tier check; empty
	// for a standalone limiter.
	Tier string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry after %s", e.Identifier, e.RetryAfter)
}

// Is lets errors.Is treat any two rejections as the same kind.
func (e *RateLimitError) Is(target error) bool {
	_, ok := target.(*RateLimitError)
	return ok
}

// Config tunes one limiter.
type Config struct {
	// MaxRequests per Window sets the steady refill rate.
	MaxRequests int
	Window      time.Duration

	// BurstCapacity caps the bucket; a fresh identifier starts full.
	BurstCapacity float64

	// CleanupInterval enables a periodic sweep of expired buckets when
	// positive. Lazy eviction on access happens regardless.
	CleanupInterval time.Duration

	// ExponentialBackoff switches RetryAfter from the window-derived
	// per-token delay to BackoffBase * 2^violations.
	ExponentialBackoff bool
	BackoffBase        time.Duration

	// DisableJitter removes the bounded random spread added to RetryAfter.
	// Determinism hook for tests; leave false in production so rejected
	// clients do not retry in lockstep.
	DisableJitter bool
}

func (c Config) validate() error {
	if c.MaxRequests <= 0 {
		return dErrors.New(dErrors.CodeConfiguration, "MaxRequests must be positive")
	}
	if c.Window <= 0 {
		return dErrors.New(dErrors.CodeConfiguration, "Window must be positive")
	}
	if c.BurstCapacity <= 0 {
		return dErrors.New(dErrors.CodeConfiguration, "BurstCapacity must be positive")
	}
	if c.ExponentialBackoff && c.BackoffBase <= 0 {
		return dErrors.New(dErrors.CodeConfiguration, "BackoffBase must be positive with ExponentialBackoff")
	}
	return nil
}
