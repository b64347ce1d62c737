/*------------------------------------------------------------------------------
* dispatch.go : message dispatcher (C5)
*
* Grounded on gnssgo/skytraq.go and gnssgo/crescent.go's MID-router style
* (decode_xxx per message id, dispatched from a top-level Decode_xxx switch),
* kept as one switch over the eight handled MIDs with a handler method per
* message, and on rcvraw.go's
* satellite-numbering helpers (SatNo-style system/PRN mapping).
*-----------------------------------------------------------------------------*/
package dispatch

import (
	"errors"
	"fmt"

	"github.com/fxuebin/osp2rnx/ephscale"
	"github.com/fxuebin/osp2rnx/gnsstime"
	"github.com/fxuebin/osp2rnx/gobit"
	"github.com/fxuebin/osp2rnx/logx"
	"github.com/fxuebin/osp2rnx/navassemble"
)

const (
	clight = 299792458.0
	freqL1 = 1.57542e9
)

// System identifies the GNSS constellation a satellite belongs to.
type System byte

const (
	SysNone System = 0
	SysGPS  System = 'G'
	SysGLO  System = 'R'
	SysSBAS System = 'S'
)

// ErrInsufficientSats is returned when a position fix reports fewer
// satellites than the configured minimum (§4.5 "InsufficientSats").
var ErrInsufficientSats = errors.New("dispatch: insufficient satellites")

// ErrBadLength is returned when a message payload is shorter than its
// fixed layout requires.
var ErrBadLength = errors.New("dispatch: bad payload length")

// Observation is one satellite/epoch measurement, scaled and bias-corrected,
// ready for C6's observation store.
type Observation struct {
	Sys      System
	PRN      int
	Pseudorange float64
	Phase       float64
	Doppler     float64
	CN0         float64 // carrier-to-noise, already /10
	LLI         int
	Strength    int
}

// Epoch is one completed measurement epoch: a time tag plus the
// observations buffered for it.
type Epoch struct {
	Week       int
	TOW        float64
	ClockBias  float64
	ClockDrift float64
	Obs        []Observation
}

// PositionFix is the decoded MID-2 payload, relevant fields only.
type PositionFix struct {
	X, Y, Z    float64
	VX, VY, VZ float64
	Week       int
	TOW        float64
	NSV        int
}

// Identification is the decoded MID-6 software-version payload.
type Identification struct {
	ROMVersion string
}

// Masks is the decoded MID-19 receiver mask payload.
type Masks struct {
	ElevationMaskDeg float64 // scaled by 10 in the wire format
	SNRMaskDBHz      float64
}

// GPSEphemerisSink receives completed GPS ephemerides from C4.
type GPSEphemerisSink func(ephscale.GPSEphemeris)

// GLOEphemerisSink receives completed GLONASS ephemerides from C4.
type GLOEphemerisSink func(ephscale.GLOEphemeris)

// Dispatcher is the stateful C5 pipeline: it owns the active epoch buffer,
// the GPS subframe assemblers, and the GLONASS satellite-slot table, and
// routes incoming OSP payloads by MID.
type Dispatcher struct {
	log logx.Log

	minNumSats int
	applyBias  bool

	gpsChannels map[int]*navassemble.GPSChannel // keyed by receiver channel
	gpsChanSat  map[int]int                     // channel -> PRN currently assigned
	gloSlot     map[int]int                     // receiver sat id -> GLONASS slot, installed from MID-70

	active      *Epoch
	haveFirstTOW bool
	firstTOW     float64

	Position       *PositionFix
	Identification *Identification
	Masks          *Masks

	onGPSEph GPSEphemerisSink
	onGLOEph GLOEphemerisSink
	onEpoch  func(Epoch)
}

// New builds a Dispatcher. minNumSats gates MID-2 fix acceptance;
// applyBias controls whether MID-7's clock bias is folded into the epoch
// time tag and observation corrections (§4.5 "bias correction").
func New(minNumSats int, applyBias bool, log logx.Log, onEpoch func(Epoch), onGPSEph GPSEphemerisSink, onGLOEph GLOEphemerisSink) *Dispatcher {
	if log == nil {
		log = logx.Discard()
	}
	return &Dispatcher{
		log:         log,
		minNumSats:  minNumSats,
		applyBias:   applyBias,
		gpsChannels: make(map[int]*navassemble.GPSChannel),
		gpsChanSat:  make(map[int]int),
		gloSlot:     make(map[int]int),
		onEpoch:     onEpoch,
		onGPSEph:    onGPSEph,
		onGLOEph:    onGLOEph,
	}
}

// Dispatch routes one OSP payload by its leading MID byte.
func (d *Dispatcher) Dispatch(payload []byte) error {
	if len(payload) == 0 {
		return ErrBadLength
	}
	mid := payload[0]
	switch mid {
	case 2:
		return d.handleMID2(payload)
	case 6:
		return d.handleMID6(payload)
	case 7:
		return d.handleMID7(payload)
	case 8:
		return d.handleMID8(payload)
	case 15:
		return d.handleMID15(payload)
	case 19:
		return d.handleMID19(payload)
	case 28:
		return d.handleMID28(payload)
	case 70:
		return d.handleMID70(payload)
	default:
		d.log.Debugf("dispatch: unhandled mid=%d", mid)
		return nil
	}
}

// SatNumber maps a receiver-assigned satellite id to a (system, PRN) pair
// per §6's satellite-number-range table. GLONASS ids resolve through the
// slot table populated from MID-70 ephemeris records; absent a mapping, the raw id
// is used as a fallback PRN, matching "else sat-id" in §6.
func (d *Dispatcher) SatNumber(satID int) (System, int) {
	switch {
	case satID >= 1 && satID <= 32:
		return SysGPS, satID
	case satID >= 70 && satID <= 83:
		if slot, ok := d.gloSlot[satID]; ok {
			return SysGLO, slot
		}
		return SysGLO, satID
	case satID >= 101 && satID <= 200:
		return SysSBAS, satID - 100
	default:
		return SysNone, 0
	}
}

func (d *Dispatcher) handleMID2(payload []byte) error {
	c := gobit.NewCursor(payload)
	if _, err := c.U1(); err != nil { // mid
		return ErrBadLength
	}
	x, err1 := c.F8()
	y, err2 := c.F8()
	z, err3 := c.F8()
	vx, err4 := c.F4()
	vy, err5 := c.F4()
	vz, err6 := c.F4()
	week, err7 := c.U2()
	tow, err8 := c.U4()
	nsv, err9 := c.U1()
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil ||
		err6 != nil || err7 != nil || err8 != nil || err9 != nil {
		d.log.Warnf("dispatch: mid2 short payload")
		return ErrBadLength
	}
	if int(nsv) < d.minNumSats {
		return fmt.Errorf("%w: nsv=%d min=%d", ErrInsufficientSats, nsv, d.minNumSats)
	}
	if d.Position == nil {
		d.Position = &PositionFix{
			X: x, Y: y, Z: z,
			VX: float64(vx), VY: float64(vy), VZ: float64(vz),
			Week: int(week), TOW: float64(tow) / 100.0, NSV: int(nsv),
		}
	}
	return nil
}

func (d *Dispatcher) handleMID6(payload []byte) error {
	if d.Identification != nil {
		return nil // one-shot per §4.5
	}
	d.Identification = &Identification{ROMVersion: string(payload[1:])}
	return nil
}

func (d *Dispatcher) handleMID7(payload []byte) error {
	c := gobit.NewCursor(payload)
	if _, err := c.U1(); err != nil {
		return ErrBadLength
	}
	week, e1 := c.U2()
	tow, e2 := c.U4()
	_, e3 := c.U1() // nsv, unused beyond validation
	drift, e4 := c.I2()
	bias, e5 := c.I4()
	if e1 != nil || e2 != nil || e3 != nil || e4 != nil || e5 != nil {
		d.log.Warnf("dispatch: mid7 short payload")
		return ErrBadLength
	}
	biasSec := float64(bias) * 1e-9
	if !d.applyBias {
		biasSec = 0
	}
	epochTOW := float64(tow)/1000.0 + biasSec

	if d.active != nil && len(d.active.Obs) > 0 {
		d.active.ClockBias = biasSec
		d.active.ClockDrift = float64(drift) * 1e-12
		if d.applyBias {
			// the MID-28 measurements arrived before this bias was known,
			// so the §4.5 correction is applied here, in cycles and Hz.
			for i := range d.active.Obs {
				o := &d.active.Obs[i]
				o.Pseudorange -= biasSec * clight
				o.Phase -= biasSec * freqL1 * freqL1 / clight
				o.Doppler -= d.active.ClockDrift * freqL1 / clight
			}
		}
		d.active.Week = int(week)
		d.active.TOW = epochTOW
		if d.onEpoch != nil {
			d.onEpoch(*d.active)
		}
	}
	d.active = nil
	d.haveFirstTOW = false
	return nil
}

func (d *Dispatcher) handleMID8(payload []byte) error {
	c := gobit.NewCursor(payload)
	if _, err := c.U1(); err != nil {
		return ErrBadLength
	}
	ch, e1 := c.U1()
	sv, e2 := c.U1()
	if e1 != nil || e2 != nil {
		return ErrBadLength
	}
	var words [10]uint32
	for i := range words {
		w, err := c.U4()
		if err != nil {
			d.log.Warnf("dispatch: mid8 truncated word list")
			return ErrBadLength
		}
		words[i] = w
	}
	sys, _ := d.SatNumber(int(sv))
	if sys != SysGPS {
		// GLONASS ephemeris is assembled from MID-70's immediate-data
		// strings instead (handleMID70); see DESIGN.md for why MID-8's
		// GLONASS word-to-string packing is not decoded here.
		return nil
	}
	channel, ok := d.gpsChannels[int(ch)]
	if !ok || d.gpsChanSat[int(ch)] != int(sv) {
		channel = navassemble.NewGPSChannel(int(sv))
		d.gpsChannels[int(ch)] = channel
		d.gpsChanSat[int(ch)] = int(sv)
	}
	if err := channel.PutWords(words); err != nil {
		d.log.Warnf("dispatch: mid8 parity failure ch=%d sv=%d: %v", ch, sv, err)
		return nil // element-level error, never propagates (§7)
	}
	if buf, ready := channel.Ephemeris(); ready {
		eph, err := ephscale.ScaleGPS(int(sv), buf)
		if err != nil {
			d.log.Warnf("dispatch: mid8 ephemeris scale failed sv=%d: %v", sv, err)
		} else if d.onGPSEph != nil {
			d.onGPSEph(eph)
		}
		delete(d.gpsChannels, int(ch))
	}
	return nil
}

func (d *Dispatcher) handleMID15(payload []byte) error {
	// Packed GPS ephemeris, forwarded to C4 without a parity check (§4.5):
	// the payload already carries the 90-byte flattened subframe buffer
	// navassemble.GPSChannel.Ephemeris produces.
	if len(payload) < 1+1+90 {
		return ErrBadLength
	}
	sv := int(payload[1])
	buf := payload[2 : 2+90]
	eph, err := ephscale.ScaleGPS(sv, buf)
	if err != nil {
		d.log.Warnf("dispatch: mid15 ephemeris scale failed sv=%d: %v", sv, err)
		return nil
	}
	if d.onGPSEph != nil {
		d.onGPSEph(eph)
	}
	return nil
}

func (d *Dispatcher) handleMID19(payload []byte) error {
	c := gobit.NewCursor(payload)
	if _, err := c.U1(); err != nil {
		return ErrBadLength
	}
	elev, e1 := c.U1()
	snr, e2 := c.U1()
	if e1 != nil || e2 != nil {
		return ErrBadLength
	}
	d.Masks = &Masks{
		ElevationMaskDeg: float64(elev) / 10.0,
		SNRMaskDBHz:      float64(snr),
	}
	return nil
}

func (d *Dispatcher) handleMID28(payload []byte) error {
	c := gobit.NewCursor(payload)
	if _, err := c.U1(); err != nil {
		return ErrBadLength
	}
	_, e1 := c.U1()  // channel
	tTag, e2 := c.U4()
	sv, e3 := c.U1()
	tSw, e4 := c.F8()
	psr, e5 := c.F8()
	cfr, e6 := c.F4()
	cph, e7 := c.F8()
	_, e8 := c.U2() // time in track, unused by this pipeline
	sync, e9 := c.U1()
	cn0raw, e10 := c.U1()
	_, e11 := c.U2() // delta range interval, unused
	if e1 != nil || e2 != nil || e3 != nil || e4 != nil || e5 != nil || e6 != nil ||
		e7 != nil || e8 != nil || e9 != nil || e10 != nil || e11 != nil {
		d.log.Warnf("dispatch: mid28 short payload")
		return ErrBadLength
	}
	_ = tTag

	sys, prn := d.SatNumber(int(sv))
	if sys == SysNone {
		d.log.Warnf("dispatch: mid28 unmapped satellite id=%d", sv)
		return nil
	}

	if !d.haveFirstTOW {
		d.firstTOW = tSw
		d.haveFirstTOW = true
		d.active = &Epoch{}
	} else if tSw != d.firstTOW {
		// missing MID 7 means the true receiver time is unknown (§4.5):
		// discard the stale buffer and restart with this measurement.
		d.firstTOW = tSw
		d.active = &Epoch{}
	}

	cn0 := float64(cn0raw) / 10.0
	strength := clampStrength(cn0 / 6.0)

	phase := cph
	if sync&0x02 == 0 { // sync bit 1: phase valid
		phase = 0
	}
	doppler := float64(cfr)
	if sync&0x10 == 0 { // sync bit 4: frequency valid
		doppler = 0
	}

	if d.applyBias && d.active != nil {
		bias := d.active.ClockBias
		biasRate := d.active.ClockDrift
		psr -= bias * clight
		phase -= bias * freqL1
		phase *= freqL1 / clight
		doppler -= biasRate
		doppler *= freqL1 / clight
	} else {
		phase *= freqL1 / clight
		doppler *= freqL1 / clight
	}

	d.active.Obs = append(d.active.Obs, Observation{
		Sys: sys, PRN: prn,
		Pseudorange: psr, Phase: phase, Doppler: doppler,
		CN0: cn0, LLI: 0, Strength: strength,
	})
	return nil
}

func clampStrength(v float64) int {
	i := int(v)
	if i < 1 {
		return 1
	}
	if i > 9 {
		return 9
	}
	return i
}

func (d *Dispatcher) handleMID70(payload []byte) error {
	// SID-12 GLONASS ephemeris response (§4.5); the teacher pack carries no
	// grounding source for this message (MID-70's layout is marked
	// tentative in §9's open questions), so this decodes the fields the
	// spec names and leaves unknown trailing bytes untouched.
	if len(payload) < 2 {
		return ErrBadLength
	}
	sid := payload[1]
	if sid != 12 {
		return nil
	}
	const recLen = 1 + 4*11 // sat id + four 11-byte immediate strings
	off := 2
	for off+recLen <= len(payload) {
		satID := int(payload[off])
		var strs [4][11]byte
		p := off + 1
		for i := 0; i < 4; i++ {
			copy(strs[i][:], payload[p:p+11])
			p += 11
		}
		off += recLen

		slot, ok := d.gloSlot[satID]
		if !ok {
			slot = satID
		}
		eph, err := ephscale.ScaleGLO(slot, strs)
		if err != nil {
			d.log.Warnf("dispatch: mid70 ephemeris invalid satID=%d: %v", satID, err)
			continue
		}
		d.gloSlot[satID] = eph.Slot
		if d.onGLOEph != nil {
			d.onGLOEph(eph)
		}
	}
	return nil
}

// GPSTime converts an epoch's (week, tow) into the canonical time type used
// by the rest of the pipeline.
func GPSTime(week int, tow float64) gnsstime.Time {
	return gnsstime.FromGPS(week, tow)
}
