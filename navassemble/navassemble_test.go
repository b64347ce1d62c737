package navassemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeWord packs 24 data bits (inverted if prevD30 is set, matching what
// the satellite itself does before transmission) and computes the six ICD
// 20.3.5.2 parity bits, returning a word gpsParity will accept.
func encodeWord(data24 uint32, prevD29, prevD30 bool) uint32 {
	d24 := data24 & 0xFFFFFF
	if prevD30 {
		d24 ^= 0xFFFFFF
	}
	word := d24 << 6
	if prevD29 {
		word |= 1 << 31
	}
	if prevD30 {
		word |= 1 << 30
	}
	d := func(k int) uint32 { return (word >> uint(30-k)) & 1 }
	d29s := (word >> 31) & 1
	d30s := (word >> 30) & 1
	xor := func(ks ...int) uint32 {
		var v uint32
		for _, k := range ks {
			v ^= d(k)
		}
		return v
	}
	p25 := d29s ^ xor(1, 2, 3, 5, 6, 10, 11, 12, 13, 14, 17, 18, 20, 23)
	p26 := d30s ^ xor(2, 3, 4, 6, 7, 11, 12, 13, 14, 15, 18, 19, 21, 24)
	p27 := d29s ^ xor(1, 3, 4, 5, 7, 8, 12, 13, 14, 15, 16, 19, 20, 22)
	p28 := d30s ^ xor(2, 4, 5, 6, 8, 9, 13, 14, 15, 16, 17, 20, 21, 23)
	p29 := d30s ^ xor(1, 3, 5, 6, 7, 9, 10, 14, 15, 16, 17, 18, 21, 22, 24)
	p30 := d29s ^ xor(3, 5, 6, 8, 9, 10, 11, 13, 15, 19, 22, 23, 24)
	word |= p25 << 5
	word |= p26 << 4
	word |= p27 << 3
	word |= p28 << 2
	word |= p29 << 1
	word |= p30
	return word
}

// buildSubframe encodes ten words for one subframe, chaining D29*/D30*
// across words the way a real transmitter does; howData must already carry
// subframe id and TOW in its 24 data bits.
func buildSubframe(tlmData, howData uint32, rest [8]uint32) [10]uint32 {
	var words [10]uint32
	prevD29, prevD30 := false, false
	all := append([]uint32{tlmData, howData}, rest[:]...)
	for i, d := range all {
		w := encodeWord(d, prevD29, prevD30)
		words[i] = w
		prevD29 = (w>>1)&1 == 1
		prevD30 = w&1 == 1
	}
	return words
}

func howWord(id int) uint32 {
	// TOW(17)=0 | alert(1)=0 | AS(1)=0 | id(3) | spare(2)=0
	return uint32(id&0x7) << 2
}

func TestGPSChannelParityRoundTrip(t *testing.T) {
	ch := NewGPSChannel(5)

	sf1 := buildSubframe(0, howWord(1), [8]uint32{0x123456, 0x654321, 0, 0, 0, 0, 0, 0})
	require.NoError(t, ch.PutWords(sf1))

	sf2 := buildSubframe(0, howWord(2), [8]uint32{0, 0, 0, 0, 0, 0, 0, 0})
	require.NoError(t, ch.PutWords(sf2))
	assert.False(t, ch.Ready())

	sf3 := buildSubframe(0, howWord(3), [8]uint32{0, 0, 0, 0, 0, 0, 0, 0})
	require.NoError(t, ch.PutWords(sf3))
	assert.True(t, ch.Ready())

	buf, ok := ch.Ephemeris()
	require.True(t, ok)
	assert.Len(t, buf, 90)
}

func TestGPSChannelParityFailure(t *testing.T) {
	ch := NewGPSChannel(5)
	sf1 := buildSubframe(0, howWord(1), [8]uint32{0, 0, 0, 0, 0, 0, 0, 0})
	sf1[3] ^= 0x1 // flip a parity bit
	err := ch.PutWords(sf1)
	require.ErrorIs(t, err, ErrParity)
}

func TestGPSChannelNotReadyUntilThreeSubframes(t *testing.T) {
	ch := NewGPSChannel(5)
	assert.False(t, ch.Ready())
	sf1 := buildSubframe(0, howWord(1), [8]uint32{0, 0, 0, 0, 0, 0, 0, 0})
	require.NoError(t, ch.PutWords(sf1))
	_, ok := ch.Ephemeris()
	assert.False(t, ok)
}
