package dispatch

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSatNumberRanges(t *testing.T) {
	d := New(4, true, nil, nil, nil, nil)
	sys, prn := d.SatNumber(5)
	assert.Equal(t, SysGPS, sys)
	assert.Equal(t, 5, prn)

	sys, prn = d.SatNumber(150)
	assert.Equal(t, SysSBAS, sys)
	assert.Equal(t, 50, prn)

	sys, prn = d.SatNumber(75) // no slot learned yet -> falls back to sat-id
	assert.Equal(t, SysGLO, sys)
	assert.Equal(t, 75, prn)

	d.gloSlot[75] = 9
	sys, prn = d.SatNumber(75)
	assert.Equal(t, SysGLO, sys)
	assert.Equal(t, 9, prn)
}

// S3 from spec §8: signal-strength index clamp(min(CN0)/6, 1, 9).
func TestClampStrength(t *testing.T) {
	cases := map[float64]int{0: 1, 5: 1, 6: 1, 7: 1, 12: 2, 54: 9, 60: 9, 99: 9}
	for cn0, want := range cases {
		assert.Equal(t, want, clampStrength(cn0/6.0), "cn0=%v", cn0)
	}
}

func mid2Payload(x, y, z float64, week uint16, tow uint32, nsv uint8) []byte {
	buf := &bytes.Buffer{}
	buf.WriteByte(2)
	binary.Write(buf, binary.BigEndian, x)
	binary.Write(buf, binary.BigEndian, y)
	binary.Write(buf, binary.BigEndian, z)
	binary.Write(buf, binary.BigEndian, float32(0))
	binary.Write(buf, binary.BigEndian, float32(0))
	binary.Write(buf, binary.BigEndian, float32(0))
	binary.Write(buf, binary.BigEndian, week)
	binary.Write(buf, binary.BigEndian, tow)
	buf.WriteByte(nsv)
	return buf.Bytes()
}

func TestMID2InsufficientSats(t *testing.T) {
	d := New(4, true, nil, nil, nil, nil)
	err := d.Dispatch(mid2Payload(1, 2, 3, 2100, 43200*100, 3))
	require.ErrorIs(t, err, ErrInsufficientSats)
	assert.Nil(t, d.Position)
}

func TestMID2AcceptsOnceNSVMet(t *testing.T) {
	d := New(4, true, nil, nil, nil, nil)
	err := d.Dispatch(mid2Payload(1, 2, 3, 2100, 43200*100, 6))
	require.NoError(t, err)
	require.NotNil(t, d.Position)
	assert.Equal(t, 2100, d.Position.Week)
}

func mid28Payload(sv uint8, tSw, psr float64, sync uint8, cn0x10 uint8) []byte {
	buf := &bytes.Buffer{}
	buf.WriteByte(28)
	buf.WriteByte(1) // channel
	binary.Write(buf, binary.BigEndian, uint32(0))
	buf.WriteByte(sv)
	binary.Write(buf, binary.BigEndian, tSw)
	binary.Write(buf, binary.BigEndian, psr)
	binary.Write(buf, binary.BigEndian, float32(0)) // cfr
	binary.Write(buf, binary.BigEndian, float64(0)) // cph
	binary.Write(buf, binary.BigEndian, uint16(0))  // time in track
	buf.WriteByte(sync)
	buf.WriteByte(cn0x10)
	binary.Write(buf, binary.BigEndian, uint16(0)) // delta range interval
	return buf.Bytes()
}

func TestMID28BuffersIntoActiveEpoch(t *testing.T) {
	var closed []Epoch
	d := New(4, false, nil, func(e Epoch) { closed = append(closed, e) }, nil, nil)
	require.NoError(t, d.Dispatch(mid28Payload(5, 100.0, 20000000.0, 0xFF, 45)))
	require.NotNil(t, d.active)
	assert.Len(t, d.active.Obs, 1)
	assert.Equal(t, SysGPS, d.active.Obs[0].Sys)
	assert.Equal(t, 5, d.active.Obs[0].PRN)
}

func TestMID28DiscardsOnTimeTagMismatch(t *testing.T) {
	d := New(4, false, nil, nil, nil, nil)
	require.NoError(t, d.Dispatch(mid28Payload(5, 100.0, 0, 0xFF, 60)))
	require.NoError(t, d.Dispatch(mid28Payload(6, 200.0, 0, 0xFF, 60)))
	assert.Len(t, d.active.Obs, 1)
	assert.Equal(t, 6, d.active.Obs[0].PRN)
}

func mid7Payload(week uint16, tow uint32, nsv uint8, drift int16, bias int32) []byte {
	buf := &bytes.Buffer{}
	buf.WriteByte(7)
	binary.Write(buf, binary.BigEndian, week)
	binary.Write(buf, binary.BigEndian, tow)
	buf.WriteByte(nsv)
	binary.Write(buf, binary.BigEndian, drift)
	binary.Write(buf, binary.BigEndian, bias)
	return buf.Bytes()
}

func TestMID7ClosesEpoch(t *testing.T) {
	var closed []Epoch
	d := New(4, false, nil, func(e Epoch) { closed = append(closed, e) }, nil, nil)
	require.NoError(t, d.Dispatch(mid28Payload(5, 100.0, 0, 0xFF, 60)))
	require.NoError(t, d.Dispatch(mid7Payload(2100, 100000, 8, 0, 0)))
	require.Len(t, closed, 1)
	assert.Nil(t, d.active)
}

func TestMID7DoesNotCloseEmptyBuffer(t *testing.T) {
	var closed []Epoch
	d := New(4, false, nil, func(e Epoch) { closed = append(closed, e) }, nil, nil)
	require.NoError(t, d.Dispatch(mid7Payload(2100, 100000, 8, 0, 0)))
	assert.Empty(t, closed)
}
