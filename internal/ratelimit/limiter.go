package ratelimit

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	dErrors "vericred/pkg/domain-errors"
	psync "vericred/pkg/platform/sync"
)

// jitterFraction bounds the random spread added to RetryAfter.
const jitterFraction = 0.1

// Limiter is a continuous-refill token bucket limiter over pluggable
// storage. Buckets are created lazily per identifier and refilled on access
// at MaxRequests/Window, never by a background timer.
type Limiter struct {
	cfg     Config
	storage Storage
	locks   *psync.ShardedMutex
	logger  *slog.Logger
	now     func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

// New creates a Limiter. When CleanupInterval is positive, a sweep goroutine
// evicts expired buckets periodically until Stop is called.
func New(cfg Config, storage Storage, opts ...Option) (*Limiter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if storage == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "bucket storage is required")
	}

	l := &Limiter{
		cfg:     cfg,
		storage: storage,
		locks:   psync.NewShardedMutex(),
		logger:  slog.Default(),
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}

	if cfg.CleanupInterval > 0 {
		l.wg.Add(1)
		go l.sweep()
	}
	return l, nil
}

// CheckLimit admits or rejects one request of the given cost. A fresh
// identifier starts with a full burst. Rejections return a *RateLimitError
// carrying the identifier and a RetryAfter hint; violations accumulate in
// the stored bucket until the next successful admission.
func (l *Limiter) CheckLimit(ctx context.Context, identifier string, cost float64) (*Result, error) {
	if identifier == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "rate limit identifier cannot be empty")
	}
	if cost <= 0 {
		cost = 1
	}

	l.locks.Lock(identifier)
	defer l.locks.Unlock(identifier)

	now := l.now()
	bucket, err := l.loadAndRefill(ctx, identifier, now)
	if err != nil {
		return nil, err
	}

	if bucket.Tokens >= cost {
		bucket.Tokens -= cost
		bucket.Violations = 0
		if err := l.storage.Set(ctx, identifier, bucket, l.bucketTTL()); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeStorage, "rate limit: persist bucket")
		}
		return &Result{Remaining: bucket.Tokens, CheckedAt: now}, nil
	}

	bucket.Violations++
	if err := l.storage.Set(ctx, identifier, bucket, l.bucketTTL()); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "rate limit: persist bucket")
	}

	retryAfter := l.retryAfter(bucket.Violations, cost)
	l.logger.Debug("rate limit exceeded",
		"identifier", identifier,
		"violations", bucket.Violations,
		"retry_after", retryAfter,
	)
	return nil, &RateLimitError{Identifier: identifier, RetryAfter: retryAfter}
}

// RemainingCapacity projects the refill calculation for an identifier
// without mutating stored state. Unknown identifiers report a full burst.
func (l *Limiter) RemainingCapacity(ctx context.Context, identifier string) (float64, error) {
	bucket, err := l.storage.Get(ctx, identifier)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeStorage, "rate limit: load bucket")
	}
	if bucket == nil {
		return l.cfg.BurstCapacity, nil
	}
	return l.refilled(*bucket, l.now()).Tokens, nil
}

// Reset restores the full burst for one identifier.
func (l *Limiter) Reset(ctx context.Context, identifier string) error {
	l.locks.Lock(identifier)
	defer l.locks.Unlock(identifier)
	if err := l.storage.Delete(ctx, identifier); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStorage, "rate limit: reset bucket")
	}
	return nil
}

// Clear wipes all buckets.
func (l *Limiter) Clear(ctx context.Context) error {
	if err := l.storage.Clear(ctx); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStorage, "rate limit: clear buckets")
	}
	return nil
}

// Size counts live buckets.
func (l *Limiter) Size(ctx context.Context) (int, error) {
	n, err := l.storage.Size(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeStorage, "rate limit: count buckets")
	}
	return n, nil
}

// Stop terminates the periodic sweep, if any. Safe to call twice.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
	})
	l.wg.Wait()
}

func (l *Limiter) loadAndRefill(ctx context.Context, identifier string, now time.Time) (*Bucket, error) {
	stored, err := l.storage.Get(ctx, identifier)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "rate limit: load bucket")
	}
	if stored == nil {
		return &Bucket{Tokens: l.cfg.BurstCapacity, LastRefill: now}, nil
	}
	refilled := l.refilled(*stored, now)
	return &refilled, nil
}

// refilled applies the lazy continuous refill: MaxRequests/Window tokens per
// elapsed unit, capped at BurstCapacity.
func (l *Limiter) refilled(b Bucket, now time.Time) Bucket {
	elapsed := now.Sub(b.LastRefill)
	if elapsed > 0 {
		rate := float64(l.cfg.MaxRequests) / float64(l.cfg.Window)
		b.Tokens = math.Min(l.cfg.BurstCapacity, b.Tokens+rate*float64(elapsed))
		b.LastRefill = now
	}
	return b
}

func (l *Limiter) retryAfter(violations int, cost float64) time.Duration {
	var d time.Duration
	if l.cfg.ExponentialBackoff {
		shift := min(violations, 30)
		d = l.cfg.BackoffBase * time.Duration(1<<uint(shift))
	} else {
		// Window-derived: the time the refill needs to cover this cost.
		d = time.Duration(float64(l.cfg.Window) * cost / float64(l.cfg.MaxRequests))
	}
	if !l.cfg.DisableJitter {
		d += time.Duration(rand.Float64() * jitterFraction * float64(d))
	}
	return d
}

// bucketTTL keeps a bucket long enough to outlive a full refill plus the
// violation window, then lets storage evict it.
func (l *Limiter) bucketTTL() time.Duration {
	return 2 * l.cfg.Window
}

func (l *Limiter) sweep() {
	defer l.wg.Done()
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			// Size performs lazy eviction as it counts.
			if _, err := l.storage.Size(context.Background()); err != nil {
				l.logger.Warn("rate limit sweep failed", "error", err)
			}
		}
	}
}
