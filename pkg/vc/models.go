// Package vc hosts the stable, minimal DTOs shared across the SDK for
// verifiable credential state. Keep these PII-light; they carry only what
// the revocation and cache layers need, never full credential subjects.
package vc

import (
	"strings"
	"time"

	dErrors "vericred/pkg/domain-errors"
)

// DID is a decentralized identifier naming a credential holder or issuer.
type DID string

// ParseDID validates the did: scheme prefix and the method segment.
// It does not resolve the DID; resolution is a collaborator concern.
func ParseDID(s string) (DID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "DID cannot be empty")
	}
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || parts[0] != "did" || parts[1] == "" || parts[2] == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "malformed DID: want did:<method>:<id>")
	}
	return DID(s), nil
}

func (d DID) String() string {
	return string(d)
}

// Credential is the chain-facing view of a verifiable credential. Claims are
// carried opaquely; schema validation happens in a collaborator, not here.
type Credential struct {
	ID        string         `json:"id"`
	Issuer    DID            `json:"issuer"`
	Holder    DID            `json:"holder"`
	Types     []string       `json:"types,omitempty"`
	Claims    map[string]any `json:"claims,omitempty"`
	IssuedAt  *time.Time     `json:"issued_at,omitempty"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`

	// Raw preserves the original encoding (typically a compact JWT) so a
	// verifier can re-check signatures out of band.
	Raw string `json:"raw,omitempty"`
}

// VerificationResult is the contract returned by chain-side verification.
type VerificationResult struct {
	Verified bool     `json:"verified"`
	Errors   []string `json:"errors,omitempty"`
}
