package revocation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "vericred/pkg/domain-errors"
)

func TestNewBitmap(t *testing.T) {
	t.Run("allocates ceil(n/8) bytes", func(t *testing.T) {
		for _, tc := range []struct {
			size      int
			wantBytes int
		}{
			{0, 0}, {1, 1}, {7, 1}, {8, 1}, {9, 2}, {100, 13}, {1024, 128},
		} {
			b, err := NewBitmap(nil, tc.size)
			require.NoError(t, err)
			assert.Len(t, b.Data, tc.wantBytes, "size %d", tc.size)
			assert.Equal(t, tc.size, b.Length)
		}
	})

	t.Run("known layout: indices 2 and 5 of 8 give 0x24", func(t *testing.T) {
		b, err := NewBitmap([]int{2, 5}, 8)
		require.NoError(t, err)
		require.Len(t, b.Data, 1)
		assert.Equal(t, byte(0x24), b.Data[0])
		assert.Equal(t, 2, b.SetBits)
	})

	t.Run("rejects index at size", func(t *testing.T) {
		_, err := NewBitmap([]int{8}, 8)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeIndexOutOfRange))
	})

	t.Run("rejects negative index", func(t *testing.T) {
		_, err := NewBitmap([]int{-1}, 8)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeIndexOutOfRange))
	})

	t.Run("duplicate indices counted once", func(t *testing.T) {
		b, err := NewBitmap([]int{3, 3, 3}, 8)
		require.NoError(t, err)
		assert.Equal(t, 1, b.SetBits)
	})

	t.Run("rejects negative size", func(t *testing.T) {
		_, err := NewBitmap(nil, -1)
		require.Error(t, err)
	})
}

func TestBitmap_IsRevoked(t *testing.T) {
	t.Run("round trip over a sparse index set", func(t *testing.T) {
		revoked := map[int]bool{0: true, 2: true, 5: true, 63: true, 64: true, 99: true}
		indices := make([]int, 0, len(revoked))
		for i := range revoked {
			indices = append(indices, i)
		}

		b, err := NewBitmap(indices, 100)
		require.NoError(t, err)

		for i := range 100 {
			got, err := b.IsRevoked(i)
			require.NoError(t, err)
			assert.Equal(t, revoked[i], got, "index %d", i)
		}
	})

	t.Run("concrete scenario from the wire format", func(t *testing.T) {
		b, err := NewBitmap([]int{2, 5}, 8)
		require.NoError(t, err)

		got, err := b.IsRevoked(2)
		require.NoError(t, err)
		assert.True(t, got)

		got, err = b.IsRevoked(3)
		require.NoError(t, err)
		assert.False(t, got)
	})

	t.Run("rejects out-of-range index", func(t *testing.T) {
		b, err := NewBitmap(nil, 8)
		require.NoError(t, err)

		_, err = b.IsRevoked(8)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeIndexOutOfRange))

		_, err = b.IsRevoked(-1)
		require.Error(t, err)
	})

	t.Run("truncated backing data reads as not revoked", func(t *testing.T) {
		// A sparse bitmap can declare more bits than it stores. Reads past
		// the stored bytes must answer false, not fail.
		b := &Bitmap{Data: []byte{0xFF}, Length: 64}

		got, err := b.IsRevoked(5)
		require.NoError(t, err)
		assert.True(t, got)

		got, err = b.IsRevoked(40)
		require.NoError(t, err)
		assert.False(t, got)
	})
}

func TestCountSetBits(t *testing.T) {
	assert.Equal(t, 0, CountSetBits(nil))
	assert.Equal(t, 0, CountSetBits([]byte{0x00, 0x00}))
	assert.Equal(t, 8, CountSetBits([]byte{0xFF}))
	assert.Equal(t, 3, CountSetBits([]byte{0x24, 0x80}))
}
