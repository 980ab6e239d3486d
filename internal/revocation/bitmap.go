// Package revocation implements the positional revocation index: a bit-level
// bitmap marking revoked credential positions, its run-length wire encoding,
// and the structural checks for chain-published revocation lists.
//
// The bitmap byte layout is a compatibility contract with the chain's
// published format: bit i lives at byte i>>3, bit position i&7, LSB-first.
// Do not alter it.
package revocation

import (
	"fmt"
	"math/bits"

	dErrors "vericred/pkg/domain-errors"
)

// Bitmap is a positional bit-array over credential indices.
type Bitmap struct {
	Data    []byte
	Length  int // capacity in bits
	SetBits int
}

// NewBitmap builds a bitmap of totalSize bits with the given indices set.
// Any index outside [0, totalSize) is rejected before allocation mutates state.
func NewBitmap(revokedIndices []int, totalSize int) (*Bitmap, error) {
	if totalSize < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "bitmap size cannot be negative")
	}

	for _, idx := range revokedIndices {
		if idx < 0 || idx >= totalSize {
			return nil, dErrors.New(dErrors.CodeIndexOutOfRange,
				fmt.Sprintf("revoked index %d outside [0, %d)", idx, totalSize))
		}
	}

	b := &Bitmap{
		Data:   make([]byte, (totalSize+7)/8),
		Length: totalSize,
	}
	for _, idx := range revokedIndices {
		byteOff := idx >> 3
		mask := byte(1) << (uint(idx) & 7)
		if b.Data[byteOff]&mask == 0 {
			b.Data[byteOff] |= mask
			b.SetBits++
		}
	}
	return b, nil
}

// IsRevoked reports whether the bit at index is set.
//
// Indices outside [0, Length) are an error. A byte offset beyond the backing
// data is NOT an error: sparse or truncated bitmaps read as "not revoked".
// That defensive read is part of the published behavior; keep it.
func (b *Bitmap) IsRevoked(index int) (bool, error) {
	if index < 0 || index >= b.Length {
		return false, dErrors.New(dErrors.CodeIndexOutOfRange,
			fmt.Sprintf("bit index %d outside bitmap of %d bits", index, b.Length))
	}

	byteOff := index >> 3
	if byteOff >= len(b.Data) {
		return false, nil
	}
	mask := byte(1) << (uint(index) & 7)
	return b.Data[byteOff]&mask != 0, nil
}

// CountSetBits returns the number of set bits in a raw bitmap payload.
func CountSetBits(data []byte) int {
	n := 0
	for _, v := range data {
		n += bits.OnesCount8(v)
	}
	return n
}
