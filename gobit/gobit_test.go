package gobit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorBigEndian(t *testing.T) {
	c := NewCursor([]byte{0x02, 0x00, 0x00, 0x01})
	mid, err := c.U1()
	require.NoError(t, err)
	assert.EqualValues(t, 2, mid)

	v, err := c.U3()
	require.NoError(t, err)
	assert.EqualValues(t, 1, v)
}

func TestCursorTruncated(t *testing.T) {
	c := NewCursor([]byte{0x01})
	_, err := c.U2()
	require.ErrorIs(t, err, ErrTruncated)
	assert.Equal(t, 0, c.Pos(), "cursor must not move on a failed read")
}

func TestCursorFloatReversal(t *testing.T) {
	// math.Pi as IEEE-754 single: payload bytes 3,2,1,0 feed float bytes
	// 0..3 (least significant first), per §4.1.
	mem := []byte{0xdb, 0x0f, 0x49, 0x40} // 3.14159274f, float bytes 0..3
	reversed := []byte{mem[3], mem[2], mem[1], mem[0]}
	c := NewCursor(reversed)
	f, err := c.F4()
	require.NoError(t, err)
	assert.InDelta(t, 3.14159274, float64(f), 1e-6)
}

func TestCursorDoubleWordSwap(t *testing.T) {
	mem := []byte{0x18, 0x2d, 0x44, 0x54, 0xfb, 0x21, 0x09, 0x40} // pi double, float bytes 0..7 (least significant first)
	var reversed [8]byte
	order := [8]int{3, 2, 1, 0, 7, 6, 5, 4}
	for i, srcIdx := range order {
		reversed[srcIdx] = mem[i] // payload byte order[i] feeds float byte i
	}
	c := NewCursor(reversed[:])
	f, err := c.F8()
	require.NoError(t, err)
	assert.InDelta(t, 3.14159265358979, f, 1e-12)
}

func TestExtractBits(t *testing.T) {
	s := []uint32{0x00000001, 0xFFFFFFFF}
	v, err := ExtractBits(s, 0, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, v)

	v, err = ExtractBits(s, 1, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 0, v)

	v, err = ExtractBits(s, 32, 4)
	require.NoError(t, err)
	assert.EqualValues(t, 0xF, v)
}

func TestExtractBitsRange(t *testing.T) {
	v, err := ExtractBits(nil, 0, 1)
	require.Error(t, err)
	assert.Zero(t, v)
}

func TestWidenTwosComplementIdempotent(t *testing.T) {
	for _, width := range []uint{4, 8, 16, 24} {
		for _, raw := range []int64{0, 1, 3, 1 << (width - 1), (1 << width) - 1} {
			once := WidenTwosComplement(raw, width)
			twice := WidenTwosComplement(once, width)
			assert.Equal(t, once, twice, "width=%d raw=%d", width, raw)
		}
	}
}

func TestWidenTwosComplementSmallValuesUnchanged(t *testing.T) {
	assert.EqualValues(t, 5, WidenTwosComplement(5, 8))
	assert.EqualValues(t, -1, WidenTwosComplement(0xFF, 8))
	assert.EqualValues(t, -128, WidenTwosComplement(0x80, 8))
}

func TestWidenSignedMagnitude(t *testing.T) {
	assert.EqualValues(t, 5, WidenSignedMagnitude(5, 8))
	// sign bit set (0x80), magnitude bits all zero: -0 == 0.
	assert.EqualValues(t, 0, WidenSignedMagnitude(0x80, 8))
	// sign bit set, magnitude 0x7F: plain magnitude, not its complement.
	assert.EqualValues(t, -127, WidenSignedMagnitude(0xFF, 8))
	assert.EqualValues(t, -1, WidenSignedMagnitude(0x81, 8))
}
