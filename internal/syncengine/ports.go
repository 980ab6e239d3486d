package syncengine

import (
	"context"

	"vericred/internal/revocation"
	"vericred/pkg/vc"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks ChainClient,Connectivity

// ChainClient is the authoritative chain collaborator. All engine
// suspension points go through it; everything else in this package is
// synchronous and CPU-bound.
type ChainClient interface {
	// GetCredential fetches the full credential by ID.
	GetCredential(ctx context.Context, vcID string) (*vc.Credential, error)

	// IsCredentialRevoked answers the current revocation status.
	IsCredentialRevoked(ctx context.Context, vcID string) (bool, error)

	// GetRevocationList fetches the published revocation list snapshot.
	GetRevocationList(ctx context.Context) (*revocation.List, error)

	// VerifyCredential performs a full chain-side verification.
	VerifyCredential(ctx context.Context, vcID string) (*vc.VerificationResult, error)
}

// Connectivity reports the network class for WiFi-only scheduling. A nil
// checker means connectivity is never a reason to skip.
type Connectivity interface {
	// IsWiFi reports whether the current link is WiFi-equivalent
	// (unmetered).
	IsWiFi(ctx context.Context) bool
}
