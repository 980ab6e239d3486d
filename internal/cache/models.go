// Package cache persists verified credentials and the current revocation
// list snapshot between sync passes. Entries are owned by the cache and
// mutated only by the sync engine during reconciliation.
package cache

import (
	"context"
	"time"

	"vericred/internal/revocation"
	"vericred/pkg/vc"
)

// RevocationStatus is the last known chain answer for one credential.
type RevocationStatus struct {
	IsRevoked  bool      `json:"is_revoked"`
	MerkleRoot string    `json:"merkle_root,omitempty"`
	CheckedAt  time.Time `json:"checked_at"`
}

// Metadata tracks cache bookkeeping separately from credential lifetimes.
type Metadata struct {
	CachedAt            time.Time  `json:"cached_at"`
	ExpiresAt           time.Time  `json:"expires_at"`
	IssuedAt            *time.Time `json:"issued_at,omitempty"`
	CredentialExpiresAt *time.Time `json:"credential_expires_at,omitempty"`
}

// VerificationRecord remembers the outcome of the last full verification.
type VerificationRecord struct {
	Verified   bool      `json:"verified"`
	VerifiedAt time.Time `json:"verified_at"`
	Errors     []string  `json:"errors,omitempty"`
}

// CachedCredential is one cache entry.
type CachedCredential struct {
	VCID             string              `json:"vc_id"`
	Credential       vc.Credential       `json:"credential"`
	HolderDID        vc.DID              `json:"holder_did"`
	IssuerDID        vc.DID              `json:"issuer_did"`
	RevocationStatus RevocationStatus    `json:"revocation_status"`
	Metadata         Metadata            `json:"metadata"`
	LastVerification *VerificationRecord `json:"last_verification,omitempty"`
}

// Expired reports whether the cache entry itself (not the credential) has
// outlived its retention window.
func (c *CachedCredential) Expired(now time.Time) bool {
	return !c.Metadata.ExpiresAt.IsZero() && now.After(c.Metadata.ExpiresAt)
}

// Store is the persistence contract for cached credentials and the
// revocation list snapshot. Backends must treat expired entries as absent.
type Store interface {
	// Get retrieves one entry. Missing or expired entries return a
	// not_found domain error.
	Get(ctx context.Context, vcID string) (*CachedCredential, error)

	// Set inserts or replaces one entry.
	Set(ctx context.Context, entry *CachedCredential) error

	// Delete removes one entry. Deleting an absent entry is not an error.
	Delete(ctx context.Context, vcID string) error

	// AllCredentialIDs lists the IDs of all live entries.
	AllCredentialIDs(ctx context.Context) ([]string, error)

	// SetRevocationList replaces the cached revocation list wholesale.
	SetRevocationList(ctx context.Context, list *revocation.List) error

	// RevocationList returns the cached snapshot, or not_found when no
	// sync pass has stored one yet.
	RevocationList(ctx context.Context) (*revocation.List, error)

	// UpdateSyncTime records the end of a sync pass.
	UpdateSyncTime(ctx context.Context, t time.Time) error

	// LastSyncTime returns the zero time when no pass has completed.
	LastSyncTime(ctx context.Context) (time.Time, error)
}
