package merkle

import (
	"encoding/hex"
	"fmt"

	dErrors "vericred/pkg/domain-errors"
)

// Proof is an inclusion proof for one leaf. Siblings are ordered leaf to
// root. IsRevoked is carried alongside for the verifier's convenience; it is
// asserted by the revocation bitmap, not by the tree.
type Proof struct {
	VCID      string   `json:"vc_id"`
	Index     int      `json:"index"`
	Siblings  []string `json:"siblings"`
	Root      string   `json:"root"`
	IsRevoked bool     `json:"is_revoked"`
}

// Prove generates the inclusion proof for the leaf at index, walking the
// same bottom-up construction as Root and recording the sibling at each
// level. A node left unpaired at an odd-count level records its own hash,
// matching the duplicate-pairing rule in Root.
func Prove(vcID string, leafHashes []string, index int) (*Proof, error) {
	level, err := decodeLeaves(leafHashes)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(level) {
		return nil, dErrors.New(dErrors.CodeIndexOutOfRange,
			fmt.Sprintf("leaf index %d outside [0, %d)", index, len(level)))
	}

	siblings := make([]string, 0)
	current := index
	for len(level) > 1 {
		sibling := current ^ 1
		if sibling >= len(level) {
			sibling = current
		}
		siblings = append(siblings, hex.EncodeToString(level[sibling]))
		level = nextLevel(level)
		current >>= 1
	}

	return &Proof{
		VCID:     vcID,
		Index:    index,
		Siblings: siblings,
		Root:     hex.EncodeToString(level[0]),
	}, nil
}

// Verify reconstructs the root from the proof path and compares it to the
// claimed root. At each step an even index hashes current||sibling, an odd
// index hashes sibling||current, and the index halves.
//
// Verification never errors: a mismatched root, a wrong-length hash, or
// malformed hex all answer false. Callers distinguish "proof invalid" from
// "input malformed" at proof construction time, not here.
func Verify(proof *Proof, leafHash string) bool {
	if proof == nil || len(leafHash) != hashHexLen {
		return false
	}
	current, err := hex.DecodeString(leafHash)
	if err != nil {
		return false
	}

	index := proof.Index
	for _, s := range proof.Siblings {
		if len(s) != hashHexLen {
			return false
		}
		sibling, err := hex.DecodeString(s)
		if err != nil {
			return false
		}
		if index&1 == 0 {
			current = hashPair(current, sibling)
		} else {
			current = hashPair(sibling, current)
		}
		index >>= 1
	}

	return equalHex(hex.EncodeToString(current), proof.Root)
}
