// Package merkle implements the commitment layer over the revocation index:
// SHA-256 leaf hashing of credential IDs, bottom-up root construction, and
// logarithmic inclusion proofs.
//
// Tree rule: each level pairs adjacent nodes and hashes left||right as raw
// 32-byte values. An odd-count level promotes its last node by pairing it
// with itself. Proof generation and verification both depend on this exact
// rule; changing it breaks every proof already issued against chain roots.
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	dErrors "vericred/pkg/domain-errors"
)

const hashHexLen = 2 * sha256.Size

// HashCredentialID returns the hex SHA-256 leaf hash of a credential ID.
func HashCredentialID(vcID string) string {
	sum := sha256.Sum256([]byte(vcID))
	return hex.EncodeToString(sum[:])
}

// Root builds the Merkle root over the ordered leaf hashes.
func Root(leafHashes []string) (string, error) {
	level, err := decodeLeaves(leafHashes)
	if err != nil {
		return "", err
	}
	for len(level) > 1 {
		level = nextLevel(level)
	}
	return hex.EncodeToString(level[0]), nil
}

// nextLevel pairs adjacent nodes, duplicating a trailing unpaired node.
func nextLevel(level [][]byte) [][]byte {
	next := make([][]byte, 0, (len(level)+1)/2)
	for i := 0; i < len(level); i += 2 {
		left := level[i]
		right := left
		if i+1 < len(level) {
			right = level[i+1]
		}
		next = append(next, hashPair(left, right))
	}
	return next
}

func hashPair(left, right []byte) []byte {
	h := sha256.New()
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}

func decodeLeaves(leafHashes []string) ([][]byte, error) {
	if len(leafHashes) == 0 {
		return nil, dErrors.New(dErrors.CodeEmptyInput, "merkle tree needs at least one leaf")
	}
	level := make([][]byte, len(leafHashes))
	for i, lh := range leafHashes {
		if len(lh) != hashHexLen {
			return nil, dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("leaf %d is %d hex chars, want %d", i, len(lh), hashHexLen))
		}
		raw, err := hex.DecodeString(lh)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation,
				fmt.Sprintf("leaf %d is not valid hex", i))
		}
		level[i] = raw
	}
	return level, nil
}

func equalHex(a, b string) bool {
	return strings.EqualFold(a, b)
}
