/*------------------------------------------------------------------------------
* ephscale.go : mantissa -> physical ephemeris scaling (C4)
*
* Grounded bit-for-bit on gnssgo/rcvraw.go's DecodeFrameEph: same 240*n+24
* subframe offsets, same field widths and the same ICD scale-factor
* constants (renamed from the teacher's P2_nn/SC2RAD package constants into
* this package, since C3 hands ephscale the flattened buffer DecodeFrameEph
* itself indexes). GLONASS scaling is grounded the same way on
* DecodeGlostrEph's frame 1-4 field table.
*-----------------------------------------------------------------------------*/
package ephscale

import (
	"errors"

	"github.com/fxuebin/osp2rnx/gobit"
)

// semi-circle to radian and power-of-two ICD scale factors, named after
// the teacher's P2_nn constants.
const (
	sc2rad = 3.1415926535898
	p2_5   = 1.0 / 32
	p2_11  = 1.0 / 2048
	p2_19  = 1.0 / 524288
	p2_20  = 1.0 / 1048576
	p2_29  = 1.0 / 536870912
	p2_30  = 1.0 / 1073741824
	p2_31  = 1.0 / 2147483648
	p2_33  = p2_31 / 4
	p2_40  = p2_30 / 1024
	p2_43  = p2_33 / 1024
	p2_55  = p2_43 / 4096
)

// gpsURAMeters converts a GPS URA (user range accuracy) index (0-15) into
// metres per ICD-GPS-200 table 20-I.
var gpsURAMeters = [16]float64{
	2.4, 3.4, 4.85, 6.85, 9.65, 13.65, 24.0, 48.0,
	96.0, 192.0, 384.0, 768.0, 1536.0, 3072.0, 6144.0, 6144.0,
}

// URAMeters returns the accuracy bound in metres for a GPS URA index.
func URAMeters(idx int) float64 {
	if idx < 0 {
		return gpsURAMeters[15]
	}
	if idx >= len(gpsURAMeters) {
		return gpsURAMeters[len(gpsURAMeters)-1]
	}
	return gpsURAMeters[idx]
}

// ErrSubframeID is returned when the reassembled buffer's subframe ID words
// don't read 1, 2, 3 at their expected offsets -- the buffer wasn't built
// by navassemble.GPSChannel.Ephemeris, or the bit offsets have drifted.
var ErrSubframeID = errors.New("ephscale: bad subframe id")

// ErrIODEMismatch is returned when subframe 2's IODE, subframe 3's IODE
// and subframe 1's IODC low byte disagree, per §4.4's cross-check.
var ErrIODEMismatch = errors.New("ephscale: iode/iodc mismatch")

// GPSEphemeris holds one satellite's scaled broadcast ephemeris, in the
// same field grouping RINEX's broadcast-orbit record uses.
type GPSEphemeris struct {
	PRN  int
	Week int // uncorrected 10-bit transmitted week; caller adjusts to a full week

	URAIndex int
	URA      float64
	Health   int
	Code     int
	L2PFlag  int
	Flag     int

	TGD float64
	IODC int
	Toc  float64
	Af0, Af1, Af2 float64

	IODE  int
	Crs   float64
	Deln  float64
	M0    float64
	Cuc   float64
	E     float64
	Cus   float64
	SqrtA float64
	Toes  float64
	FitHours float64

	Cic   float64
	OMG0  float64
	Cis   float64
	I0    float64
	Crc   float64
	Omega float64
	OMGd  float64
	IDOT  float64

	TOW float64 // subframe 1 time-of-week, transmission time tag
}

// BroadcastOrbit lays the scaled ephemeris out as RINEX's 8x4 broadcast
// orbit matrix: row 0 holds the SV clock terms (af0, af1, af2, spare), rows
// 1-7 are broadcast-orbit lines 1-7 (§3 "broadcast orbit matrix").
func (e GPSEphemeris) BroadcastOrbit() [8][4]float64 {
	return [8][4]float64{
		{e.Af0, e.Af1, e.Af2, 0},
		{float64(e.IODE), e.Crs, e.Deln, e.M0},
		{e.Cuc, e.E, e.Cus, e.SqrtA},
		{e.Toes, e.Cic, e.OMG0, e.Cis},
		{e.I0, e.Crc, e.Omega, e.OMGd},
		{e.IDOT, float64(e.Code), float64(e.Week), float64(e.L2PFlag)},
		{e.URA, float64(e.Health), e.TGD, float64(e.IODC)},
		{e.TOW, e.FitHours, 0, 0},
	}
}

// ScaleGPS converts the flattened 720-bit (3x240) buffer produced by
// navassemble.GPSChannel.Ephemeris into a physical ephemeris, applying the
// same bit offsets and ICD scale factors DecodeFrameEph uses.
func ScaleGPS(prn int, buf []byte) (GPSEphemeris, error) {
	var e GPSEphemeris
	e.PRN = prn

	i := 240*0 + 24
	e.TOW = float64(gobit.BitsU(buf, i, 17)) * 6.0
	i += 17 + 2
	id1 := int(gobit.BitsU(buf, i, 3))
	i += 3 + 2
	e.Week = int(gobit.BitsU(buf, i, 10))
	i += 10
	e.Code = int(gobit.BitsU(buf, i, 2))
	i += 2
	e.URAIndex = int(gobit.BitsU(buf, i, 4))
	e.URA = URAMeters(e.URAIndex)
	i += 4
	e.Health = int(gobit.BitsU(buf, i, 6))
	i += 6
	iodc0 := int(gobit.BitsU(buf, i, 2))
	i += 2
	e.Flag = int(gobit.BitsU(buf, i, 1))
	i += 1 + 87
	tgd := int(gobit.BitsI(buf, i, 8))
	i += 8
	iodc1 := int(gobit.BitsU(buf, i, 8))
	i += 8
	e.Toc = float64(gobit.BitsU(buf, i, 16)) * 16.0
	i += 16
	e.Af2 = float64(gobit.BitsI(buf, i, 8)) * p2_55
	i += 8
	e.Af1 = float64(gobit.BitsI(buf, i, 16)) * p2_43
	i += 16
	e.Af0 = float64(gobit.BitsI(buf, i, 22)) * p2_31

	i = 240*1 + 24
	i += 17 + 2
	id2 := int(gobit.BitsU(buf, i, 3))
	i += 3 + 2
	e.IODE = int(gobit.BitsU(buf, i, 8))
	i += 8
	e.Crs = float64(gobit.BitsI(buf, i, 16)) * p2_5
	i += 16
	e.Deln = float64(gobit.BitsI(buf, i, 16)) * p2_43 * sc2rad
	i += 16
	e.M0 = float64(gobit.BitsI(buf, i, 32)) * p2_31 * sc2rad
	i += 32
	e.Cuc = float64(gobit.BitsI(buf, i, 16)) * p2_29
	i += 16
	e.E = float64(gobit.BitsU(buf, i, 32)) * p2_33
	i += 32
	e.Cus = float64(gobit.BitsI(buf, i, 16)) * p2_29
	i += 16
	sqrtA := float64(gobit.BitsU(buf, i, 32)) * p2_19
	i += 32
	e.Toes = float64(gobit.BitsU(buf, i, 16)) * 16.0
	i += 16
	if gobit.BitsU(buf, i, 1) > 0 {
		e.FitHours = 0.0
	} else {
		e.FitHours = 4.0
	}

	i = 240*2 + 24
	i += 17 + 2
	id3 := int(gobit.BitsU(buf, i, 3))
	i += 3 + 2
	e.Cic = float64(gobit.BitsI(buf, i, 16)) * p2_29
	i += 16
	e.OMG0 = float64(gobit.BitsI(buf, i, 32)) * p2_31 * sc2rad
	i += 32
	e.Cis = float64(gobit.BitsI(buf, i, 16)) * p2_29
	i += 16
	e.I0 = float64(gobit.BitsI(buf, i, 32)) * p2_31 * sc2rad
	i += 32
	e.Crc = float64(gobit.BitsI(buf, i, 16)) * p2_5
	i += 16
	e.Omega = float64(gobit.BitsI(buf, i, 32)) * p2_31 * sc2rad
	i += 32
	e.OMGd = float64(gobit.BitsI(buf, i, 24)) * p2_43 * sc2rad
	i += 24
	iodeSub3 := int(gobit.BitsU(buf, i, 8))
	i += 8
	e.IDOT = float64(gobit.BitsI(buf, i, 14)) * p2_43 * sc2rad

	e.SqrtA = sqrtA
	e.IODC = (iodc0 << 8) + iodc1
	e.TGD = 0
	if tgd != -128 {
		e.TGD = float64(tgd) * p2_31
	}

	if id1 != 1 || id2 != 2 || id3 != 3 {
		return GPSEphemeris{}, ErrSubframeID
	}
	if iodeSub3 != e.IODE || iodeSub3 != (e.IODC&0xFF) {
		return GPSEphemeris{}, ErrIODEMismatch
	}
	return e, nil
}

// GLOEphemeris holds one slot's scaled GLONASS immediate ephemeris.
type GLOEphemeris struct {
	Slot int
	Frame [4]int

	TkH, TkM, TkS int
	Tb            int
	Health        int
	FreqNum       int

	Pos [3]float64
	Vel [3]float64
	Acc [3]float64

	Gamma float64
	TauN  float64
	DTauN float64
	Age   int
	URAIndex int
}

// ScaleGLO converts the four raw 11-byte immediate-data strings MID-70
// carries directly into a physical ephemeris, grounded on DecodeGlostrEph's
// frame 1-4 field offsets and scale factors.
func ScaleGLO(slot int, strs [4][11]byte) (GLOEphemeris, error) {
	var g GLOEphemeris
	g.Slot = slot

	i := 1
	buf := strs[0][:]
	g.Frame[0] = int(gobit.BitsU(buf, i, 4))
	i += 4 + 2 + 2
	g.TkH = int(gobit.BitsU(buf, i, 5))
	i += 5
	g.TkM = int(gobit.BitsU(buf, i, 6))
	i += 6
	g.TkS = int(gobit.BitsU(buf, i, 1)) * 30
	i += 1
	g.Vel[0] = glosigned(buf, i, 24) * p2_20 * 1e3
	i += 24
	g.Acc[0] = glosigned(buf, i, 5) * p2_30 * 1e3
	i += 5
	g.Pos[0] = glosigned(buf, i, 27) * p2_11 * 1e3

	i = 1
	buf = strs[1][:]
	g.Frame[1] = int(gobit.BitsU(buf, i, 4))
	i += 4
	g.Health = int(gobit.BitsU(buf, i, 1))
	i += 1 + 2 + 1
	g.Tb = int(gobit.BitsU(buf, i, 7))
	i += 7 + 5
	g.Vel[1] = glosigned(buf, i, 24) * p2_20 * 1e3
	i += 24
	g.Acc[1] = glosigned(buf, i, 5) * p2_30 * 1e3
	i += 5
	g.Pos[1] = glosigned(buf, i, 27) * p2_11 * 1e3

	i = 1
	buf = strs[2][:]
	g.Frame[2] = int(gobit.BitsU(buf, i, 4))
	i += 4 + 1
	g.Gamma = glosigned(buf, i, 11) * p2_40
	i += 11 + 1 + 2 + 1
	g.Vel[2] = glosigned(buf, i, 24) * p2_20 * 1e3
	i += 24
	g.Acc[2] = glosigned(buf, i, 5) * p2_30 * 1e3
	i += 5
	g.Pos[2] = glosigned(buf, i, 27) * p2_11 * 1e3

	i = 1
	buf = strs[3][:]
	g.Frame[3] = int(gobit.BitsU(buf, i, 4))
	i += 4
	g.TauN = glosigned(buf, i, 22) * p2_30
	i += 22
	g.DTauN = glosigned(buf, i, 5) * p2_30
	i += 5
	g.Age = int(gobit.BitsU(buf, i, 5))
	i += 5 + 14 + 1
	g.URAIndex = int(gobit.BitsU(buf, i, 4))

	if g.Frame[0] != 1 || g.Frame[1] != 2 || g.Frame[2] != 3 || g.Frame[3] != 4 {
		return GLOEphemeris{}, ErrSubframeID
	}
	return g, nil
}

// BroadcastOrbit lays the scaled ephemeris out as RINEX's GLONASS broadcast
// record: [0] is the clock bias/relative-frequency-bias/message-frame-time
// triplet that shares the epoch line, [1:4] are the X/Y/Z position-velocity-
// acceleration-health/freq/age rows. [4:8] are unused for this system.
func (g GLOEphemeris) BroadcastOrbit() [8][4]float64 {
	tb := float64(g.TkH*3600 + g.TkM*60 + g.TkS)
	return [8][4]float64{
		{-g.TauN, g.Gamma, tb, 0},
		{g.Pos[0], g.Vel[0], g.Acc[0], float64(g.Health)},
		{g.Pos[1], g.Vel[1], g.Acc[1], float64(g.FreqNum)},
		{g.Pos[2], g.Vel[2], g.Acc[2], float64(g.Age)},
	}
}

// glosigned reads a sign-magnitude field the way getbitg does in rcvraw.go:
// the MSB is the sign, the remaining bits are magnitude.
func glosigned(buf []byte, pos, length int) float64 {
	v := int64(gobit.BitsU(buf, pos, length))
	return float64(gobit.WidenSignedMagnitude(v, uint(length)))
}

// FitInterval maps a GPS IODC value to a fit interval in hours, replacing
// the teacher's overlapping-range lookup (IODC 497-511 was reachable by two
// branches) with a single non-overlapping table (§9 redesign).
func FitInterval(iodc int, fitFlag float64) float64 {
	switch {
	case fitFlag == 0:
		return 4
	case iodc >= 240 && iodc <= 247:
		return 8
	case iodc >= 248 && iodc <= 255, iodc >= 496 && iodc <= 503:
		return 14
	case iodc >= 504 && iodc <= 510:
		return 26
	case iodc == 511:
		return 6
	default:
		return 6
	}
}
