package revocation

import (
	dErrors "vericred/pkg/domain-errors"
)

// maxRun caps a single run at one unsigned byte; longer runs open a new pair.
const maxRun = 255

// Compress run-length encodes a bitmap payload as (byteValue, runLength)
// pairs. Empty input encodes to an empty stream; the decoder mirrors that.
func Compress(data []byte) []byte {
	if len(data) == 0 {
		return []byte{}
	}

	out := make([]byte, 0, 2*len(data)/maxRun+2)
	current := data[0]
	run := 1
	for _, v := range data[1:] {
		if v == current && run < maxRun {
			run++
			continue
		}
		out = append(out, current, byte(run))
		current = v
		run = 1
	}
	return append(out, current, byte(run))
}

// Decompress expands a run-length encoded stream back to the raw payload.
// The stream must be a whole number of (value, runLength) pairs with no
// zero-length runs.
func Decompress(encoded []byte) ([]byte, error) {
	if len(encoded)%2 != 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "RLE stream has a dangling half-pair")
	}

	size := 0
	for i := 1; i < len(encoded); i += 2 {
		if encoded[i] == 0 {
			return nil, dErrors.New(dErrors.CodeValidation, "RLE stream contains a zero-length run")
		}
		size += int(encoded[i])
	}

	out := make([]byte, 0, size)
	for i := 0; i < len(encoded); i += 2 {
		value, run := encoded[i], int(encoded[i+1])
		for range run {
			out = append(out, value)
		}
	}
	return out, nil
}
