package ratelimit

import (
	"context"
	"errors"

	dErrors "vericred/pkg/domain-errors"
)

// Tier names one limiter inside a MultiTier composition, e.g. "global",
// "perVerifier", "perDID".
type Tier struct {
	Name    string
	Limiter *Limiter
}

// MultiTier evaluates several independent limiters per request. Tiers run
// in configuration order; the first rejection wins. Tokens already spent on
// earlier tiers are deliberately not rolled back: a rejected request still
// consumed real work on the tiers it passed.
type MultiTier struct {
	tiers []Tier
}

// NewMultiTier composes named limiters. Order is significant and names must
// be unique and non-empty.
func NewMultiTier(tiers ...Tier) (*MultiTier, error) {
	if len(tiers) == 0 {
		return nil, dErrors.New(dErrors.CodeConfiguration, "at least one tier is required")
	}
	seen := make(map[string]bool, len(tiers))
	for _, t := range tiers {
		if t.Name == "" {
			return nil, dErrors.New(dErrors.CodeConfiguration, "tier name cannot be empty")
		}
		if t.Limiter == nil {
			return nil, dErrors.New(dErrors.CodeConfiguration, "tier "+t.Name+" has no limiter")
		}
		if seen[t.Name] {
			return nil, dErrors.New(dErrors.CodeConfiguration, "duplicate tier "+t.Name)
		}
		seen[t.Name] = true
	}
	return &MultiTier{tiers: tiers}, nil
}

// CheckLimit admits a request against every configured tier. The
// identifiers map must carry a key for each tier; a missing key is a
// configuration error, not a rejection.
func (m *MultiTier) CheckLimit(ctx context.Context, identifiers map[string]string, cost float64) error {
	for _, tier := range m.tiers {
		id, ok := identifiers[tier.Name]
		if !ok {
			return dErrors.New(dErrors.CodeConfiguration, "unknown rate limit tier: "+tier.Name)
		}
		if _, err := tier.Limiter.CheckLimit(ctx, id, cost); err != nil {
			var rejection *RateLimitError
			if errors.As(err, &rejection) {
				rejection.Tier = tier.Name
			}
			return err
		}
	}
	return nil
}

// RemainingCapacity fans out to every tier.
func (m *MultiTier) RemainingCapacity(ctx context.Context, identifiers map[string]string) (map[string]float64, error) {
	out := make(map[string]float64, len(m.tiers))
	for _, tier := range m.tiers {
		id, ok := identifiers[tier.Name]
		if !ok {
			return nil, dErrors.New(dErrors.CodeConfiguration, "unknown rate limit tier: "+tier.Name)
		}
		remaining, err := tier.Limiter.RemainingCapacity(ctx, id)
		if err != nil {
			return nil, err
		}
		out[tier.Name] = remaining
	}
	return out, nil
}

// Clear wipes every tier's buckets.
func (m *MultiTier) Clear(ctx context.Context) error {
	for _, tier := range m.tiers {
		if err := tier.Limiter.Clear(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Stop terminates every tier's sweep goroutine.
func (m *MultiTier) Stop() {
	for _, tier := range m.tiers {
		tier.Limiter.Stop()
	}
}
