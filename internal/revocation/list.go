package revocation

import (
	"fmt"
	"regexp"
	"time"

	dErrors "vericred/pkg/domain-errors"
)

var merkleRootPattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// List is a chain-published revocation list snapshot. Lists are created
// wholesale on each sync pass and never patched in place.
type List struct {
	MerkleRoot       string    `json:"merkle_root"`
	Bitmap           []byte    `json:"bitmap"`
	TotalCredentials int       `json:"total_credentials"`
	RevokedCount     int       `json:"revoked_count"`
	UpdatedAt        time.Time `json:"updated_at"`
	BlockHeight      *int64    `json:"block_height,omitempty"`
}

// Validate performs the structural checks: byte-length match, count bound,
// root shape. It deliberately does not re-verify the Merkle root against
// leaf data; that is the commitment layer's job.
func (l *List) Validate() error {
	if l == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "revocation list is nil")
	}
	if !merkleRootPattern.MatchString(l.MerkleRoot) {
		return dErrors.New(dErrors.CodeValidation, "merkle root is not a 64-char hex string")
	}
	if l.RevokedCount > l.TotalCredentials {
		return dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("revoked count %d exceeds total %d", l.RevokedCount, l.TotalCredentials))
	}
	wantBytes := (l.TotalCredentials + 7) / 8
	if len(l.Bitmap) != wantBytes {
		return dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("bitmap is %d bytes, want %d for %d credentials", len(l.Bitmap), wantBytes, l.TotalCredentials))
	}
	return nil
}

// Stats is the observable roll-up of a revocation list.
type Stats struct {
	TotalCredentials int       `json:"total_credentials"`
	RevokedCount     int       `json:"revoked_count"`
	RevokedRatio     float64   `json:"revoked_ratio"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Stats summarizes the list. The revoked count is recomputed from the bitmap
// rather than trusted from the header, so drift between the two is visible.
func (l *List) Stats() Stats {
	s := Stats{
		TotalCredentials: l.TotalCredentials,
		RevokedCount:     CountSetBits(l.Bitmap),
		UpdatedAt:        l.UpdatedAt,
	}
	if l.TotalCredentials > 0 {
		s.RevokedRatio = float64(s.RevokedCount) / float64(l.TotalCredentials)
	}
	return s
}
