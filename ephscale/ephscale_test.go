package ephscale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func putBits(buf []byte, pos, length int, value uint32) {
	for i := 0; i < length; i++ {
		bit := pos + i
		shift := uint(length - 1 - i)
		v := (value >> shift) & 1
		idx := bit / 8
		off := uint(7 - bit%8)
		if v == 1 {
			buf[idx] |= 1 << off
		} else {
			buf[idx] &^= 1 << off
		}
	}
}

// buildBuffer lays out a minimal valid 3x240-bit ephemeris buffer with
// id1=1,id2=2,id3=3 and consistent iode/iodc low byte, mirroring the layout
// navassemble.GPSChannel.Ephemeris produces.
func buildBuffer() []byte {
	buf := make([]byte, 90)
	// subframe 1: id at 240*0+24+17+2 = 43
	putBits(buf, 43, 3, 1)
	// iodc0 at 240*0+24+17+2+3+2+10+2+4+6 = 70
	putBits(buf, 70, 2, 0x01)
	// iodc1 at subframe1 bit offset: after flag(1)+87 skip+tgd(8) = see layout
	// offset = 70+2(iodc0)+1(flag)+87+8(tgd) = 168
	putBits(buf, 168, 8, 0x23)

	// subframe 2: id at 240*1+24+17+2 = 283
	putBits(buf, 283, 3, 2)
	// iode at 283+3+2=288
	putBits(buf, 288, 8, 0x23)

	// subframe 3: id at 240*2+24+17+2 = 523
	putBits(buf, 523, 3, 3)
	// iode (cross-check copy) at end of subframe 3, offset computed below
	// i after id3 = 523+3+2=528; +16(cic)+32(omg0)+16(cis)+32(i0)+16(crc)+32(omega)+24(omgd) = 528+168=696
	putBits(buf, 696, 8, 0x23)
	return buf
}

func TestScaleGPSValid(t *testing.T) {
	buf := buildBuffer()
	e, err := ScaleGPS(12, buf)
	require.NoError(t, err)
	assert.Equal(t, 12, e.PRN)
	assert.Equal(t, 0x23, e.IODE)
	assert.Equal(t, 0x123, e.IODC)
}

func TestScaleGPSBadSubframeID(t *testing.T) {
	buf := buildBuffer()
	putBits(buf, 43, 3, 5) // corrupt id1
	_, err := ScaleGPS(12, buf)
	require.ErrorIs(t, err, ErrSubframeID)
}

func TestScaleGPSIODEMismatch(t *testing.T) {
	buf := buildBuffer()
	putBits(buf, 696, 8, 0x99) // subframe 3's iode copy disagrees
	_, err := ScaleGPS(12, buf)
	require.ErrorIs(t, err, ErrIODEMismatch)
}

func TestURAMeters(t *testing.T) {
	assert.Equal(t, 2.4, URAMeters(0))
	assert.Equal(t, 6144.0, URAMeters(15))
	assert.Equal(t, 6144.0, URAMeters(99))
}

func TestFitIntervalNonOverlapping(t *testing.T) {
	// the teacher's table let iodc=496 match two branches; this one must
	// resolve to exactly one.
	assert.Equal(t, 14.0, FitInterval(496, 1))
	assert.Equal(t, 4.0, FitInterval(496, 0))
	assert.Equal(t, 8.0, FitInterval(240, 1))
	assert.Equal(t, 26.0, FitInterval(505, 1))
}

func TestScaleGLOValid(t *testing.T) {
	var strs [4][11]byte
	putBits(strs[0][:], 1, 4, 1)
	putBits(strs[1][:], 1, 4, 2)
	putBits(strs[2][:], 1, 4, 3)
	putBits(strs[3][:], 1, 4, 4)
	g, err := ScaleGLO(7, strs)
	require.NoError(t, err)
	assert.Equal(t, 7, g.Slot)
}

func TestScaleGLOBadFrame(t *testing.T) {
	var strs [4][11]byte
	putBits(strs[0][:], 1, 4, 1)
	putBits(strs[1][:], 1, 4, 2)
	putBits(strs[2][:], 1, 4, 9) // should be 3
	putBits(strs[3][:], 1, 4, 4)
	_, err := ScaleGLO(7, strs)
	require.ErrorIs(t, err, ErrSubframeID)
}
