/*------------------------------------------------------------------------------
* reader.go : RINEX reader (C7)
*
* Grounded on renix.go's ReadRnxHeader/DecodeObsHeader/Decode_ObsEpoch/
* DecodeObsData/DecodeEph for the fixed-column layouts of both RINEX 2.10
* and 3.02, re-architected per §4.7: format errors are reported line-by-line
* through the injected Log and the epoch-status return code rather than
* aborting the file, and header records are recognized by their columns
* 61-80 label text against rinexmodel's ordered table instead of the
* teacher's long string-equality if-chain in ReadRnxHeader.
*-----------------------------------------------------------------------------*/
package rinexio

import (
	"bufio"
	"errors"
	"strconv"
	"strings"

	"github.com/fxuebin/osp2rnx/gnsstime"
	"github.com/fxuebin/osp2rnx/logx"
	"github.com/fxuebin/osp2rnx/rinexmodel"
)

// EpochStatus is the small integer return-code space §4.7 specifies for
// one epoch-parsing call.
type EpochStatus int

const (
	StatusEndOfFile EpochStatus = iota
	StatusOk
	StatusOkNewEpoch
	StatusBadObs
	StatusBadEpoch
	StatusSiteEventMissingMarker
	StatusSpecialRecordError
	StatusExternalEventMissingDate
	StatusBadFlag
	StatusUnsupportedVersion
)

// ErrNoLabel is logged (not returned -- §4.7 "out-of-order records are
// logged as warnings; parsing continues") when a header line's columns
// 61-80 don't match any known label.
var ErrNoLabel = errors.New("rinexio: unrecognized header label")

// ErrDoesNotMatch is logged by ReadObsHeader, which then skips the line,
// when a label's version mask excludes the file's declared version.
// ReadNavHeader does not check label versions.
var ErrDoesNotMatch = errors.New("rinexio: label does not match file version")

func column(line string, from, to int) string {
	if from > len(line) {
		return ""
	}
	if to > len(line) {
		to = len(line)
	}
	return line[from:to]
}

func trimLabel(line string) string {
	return strings.TrimRight(column(line, 60, 80), " \r\n")
}

func labelForText(m *rinexmodel.Model, text string) (rinexmodel.Label, bool) {
	for _, rec := range m.Headers {
		if rec.Text == text {
			return rec.Label, true
		}
	}
	return 0, false
}

// ReadObsHeader parses an observation-file header from r into m, up to and
// including END OF HEADER. It never aborts on a single bad or unknown line
// (§4.7): those are logged as warnings and parsing continues.
func ReadObsHeader(r *bufio.Reader, log logx.Log, m *rinexmodel.Model) error {
	if log == nil {
		log = logx.Discard()
	}
	for {
		line, err := r.ReadString('\n')
		if line == "" && err != nil {
			return err
		}
		label := trimLabel(line)
		if label == "RINEX VERSION / TYPE" {
			ver := strings.TrimSpace(column(line, 0, 9))
			v, convErr := strconv.ParseFloat(ver, 64)
			if convErr != nil {
				log.Warnf("rinexio: bad RINEX VERSION / TYPE field %q", ver)
			} else if v < 3.0 {
				m.Target = rinexmodel.V210
			} else {
				m.Target = rinexmodel.V302
			}
			if err != nil {
				return err
			}
			continue
		}
		if label == "END OF HEADER" {
			m.Set(rinexmodel.LabelEndOfHeader, nil)
			return nil
		}
		l, ok := labelForText(m, label)
		if !ok {
			if label != "" {
				log.Warnf("%v: %q", ErrNoLabel, label)
			}
			if err != nil {
				return err
			}
			continue
		}
		mismatch := false
		for _, rec := range m.Headers {
			if rec.Label == l && rec.Versions&versionMaskFor(m.Target) == 0 {
				mismatch = true
			}
		}
		if mismatch {
			log.Warnf("%v: %q", ErrDoesNotMatch, label)
		} else {
			applyObsHeaderLine(log, m, l, line)
		}
		if err != nil {
			return err
		}
	}
}

func applyObsHeaderLine(log logx.Log, m *rinexmodel.Model, l rinexmodel.Label, line string) {
	switch l {
	case rinexmodel.LabelRunBy:
		m.Set(l, RunByInfo{Program: strings.TrimSpace(column(line, 0, 20)), RunBy: strings.TrimSpace(column(line, 20, 40))})
	case rinexmodel.LabelComment:
		m.InsertComment(rinexmodel.LabelEndOfHeader, strings.TrimRight(column(line, 0, 60), " "))
	case rinexmodel.LabelMarkerName:
		m.Set(l, MarkerInfo{Name: strings.TrimSpace(column(line, 0, 60))})
	case rinexmodel.LabelObserver:
		m.Set(l, ObserverInfo{Observer: strings.TrimSpace(column(line, 0, 20)), Agency: strings.TrimSpace(column(line, 20, 60))})
	case rinexmodel.LabelReceiver:
		m.Set(l, ReceiverInfo{
			Number:  strings.TrimSpace(column(line, 0, 20)),
			Type:    strings.TrimSpace(column(line, 20, 40)),
			Version: strings.TrimSpace(column(line, 40, 60)),
		})
	case rinexmodel.LabelAntenna:
		m.Set(l, AntennaInfo{Number: strings.TrimSpace(column(line, 0, 20)), Type: strings.TrimSpace(column(line, 20, 40))})
	case rinexmodel.LabelApproxPos:
		m.Set(l, Vec3{parseFloat(column(line, 0, 14)), parseFloat(column(line, 14, 28)), parseFloat(column(line, 28, 42))})
	case rinexmodel.LabelAntennaHen:
		m.Set(l, Vec3{parseFloat(column(line, 0, 14)), parseFloat(column(line, 14, 28)), parseFloat(column(line, 28, 42))})
	case rinexmodel.LabelTObs:
		parseObsTypesV2(log, m, column(line, 0, 60))
	case rinexmodel.LabelSysTObs:
		parseObsTypesV3(log, m, line)
	case rinexmodel.LabelInterval:
		m.Set(l, parseFloat(column(line, 0, 10)))
	case rinexmodel.LabelTimeOfFirstObs, rinexmodel.LabelTimeOfLastObs:
		year := int(parseFloat(column(line, 0, 6)))
		mon := int(parseFloat(column(line, 6, 12)))
		day := int(parseFloat(column(line, 12, 18)))
		hour := int(parseFloat(column(line, 18, 24)))
		min := int(parseFloat(column(line, 24, 30)))
		sec := parseFloat(column(line, 30, 43))
		m.Set(l, TimeSpan(gnsstime.Epoch(year, mon, day, hour, min, sec)))
	}
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

// parseObsTypesV2 reads the V2.10 "# / TYPES OF OBSERV" union list and
// seeds a synthetic 'G' system entry with it, since the V2 record carries
// no system letter.
func parseObsTypesV2(log logx.Log, m *rinexmodel.Model, body string) {
	n := int(parseFloat(column(body, 0, 6)))
	sys := m.System('G')
	for i := 0; i < n && 6+(i%9)*6+6 <= len(body); i++ {
		tok := strings.TrimSpace(column(body, 6+(i%9)*6, 6+(i%9)*6+6))
		if tok == "" {
			continue
		}
		v3 := tok
		if alias, ok := rinexmodel.V2V3Translation[tok]; ok {
			v3 = alias
		}
		sys.Observables = append(sys.Observables, v3)
	}
}

// parseObsTypesV3 reads one "SYS / # / OBS TYPES" line. It does not follow
// continuation lines (§4.8's 13-observables-per-line wrap): every system
// this pipeline's OSP decoder ever populates (GPS, GLONASS, SBAS) carries
// far fewer than 13 observables, so a file whose SYS/OBS TYPES block spans
// more than one physical line -- possible for a different upstream's Galileo
// or BeiDou block -- is read short (only its first 13 codes are kept, and
// its continuation lines are skipped), a documented scope reduction rather
// than a silent one.
func parseObsTypesV3(log logx.Log, m *rinexmodel.Model, line string) {
	letter := line[0]
	if letter == ' ' {
		return
	}
	sys := m.System(letter)
	n := int(parseFloat(column(line, 3, 6)))
	for i := 0; i < n && i < 13; i++ {
		pos := 6 + (i%13)*4
		if pos+3 > len(line) {
			break
		}
		code := strings.TrimSpace(column(line, pos, pos+3))
		if code != "" {
			sys.Observables = append(sys.Observables, code)
		}
	}
}

// ReadObsEpoch parses one observation epoch from r into m.Obs, following
// §4.7's version-specific layouts. On malformed input it logs a warning and
// returns a status describing what went wrong rather than an error, so the
// caller can keep reading subsequent epochs (§7 "epoch-level" tier).
func ReadObsEpoch(r *bufio.Reader, log logx.Log, m *rinexmodel.Model) EpochStatus {
	if log == nil {
		log = logx.Discard()
	}
	line, err := r.ReadString('\n')
	if line == "" && err != nil {
		return StatusEndOfFile
	}
	if m.Target == rinexmodel.V302 {
		return readObsEpochV3(r, log, m, line)
	}
	return readObsEpochV2(r, log, m, line)
}

func readObsEpochV3(r *bufio.Reader, log logx.Log, m *rinexmodel.Model, line string) EpochStatus {
	if len(line) == 0 || line[0] != '>' {
		log.Warnf("rinexio: expected epoch line starting with '>'")
		return StatusBadEpoch
	}
	year := int(parseFloat(column(line, 2, 6)))
	mon := int(parseFloat(column(line, 7, 9)))
	day := int(parseFloat(column(line, 10, 12)))
	hour := int(parseFloat(column(line, 13, 15)))
	min := int(parseFloat(column(line, 16, 18)))
	sec := parseFloat(column(line, 19, 29))
	flag := int(parseFloat(column(line, 31, 32)))
	nsat := int(parseFloat(column(line, 32, 35)))

	tag := gnsstime.Seconds(gnsstime.Epoch(year, mon, day, hour, min, sec))

	if flag >= 2 && flag <= 5 {
		for i := 0; i < nsat; i++ {
			if _, err := r.ReadString('\n'); err != nil {
				return StatusSpecialRecordError
			}
		}
		return StatusOkNewEpoch
	}
	if flag != 0 && flag != 1 {
		return StatusBadFlag
	}

	for i := 0; i < nsat; i++ {
		satLine, err := r.ReadString('\n')
		if satLine == "" && err != nil {
			log.Warnf("rinexio: truncated observation epoch")
			return StatusBadObs
		}
		if len(satLine) < 3 {
			continue
		}
		sys := satLine[0]
		prn := int(parseFloat(satLine[1:3]))
		entry := m.Systems[sys]
		if entry == nil {
			continue
		}
		for j, obs := range entry.Observables {
			pos := 3 + j*16
			if pos+14 > len(satLine) {
				break
			}
			val := parseFloat(column(satLine, pos, pos+14))
			lli := 0
			strength := 0
			if pos+15 <= len(satLine) {
				lli = int(column(satLine, pos+14, pos+15)[0] - '0')
				if satLine[pos+14] == ' ' {
					lli = 0
				}
			}
			if pos+16 <= len(satLine) {
				strength = int(column(satLine, pos+15, pos+16)[0] - '0')
				if satLine[pos+15] == ' ' {
					strength = 0
				}
			}
			m.AppendObs(rinexmodel.Observation{TimeTag: tag, System: sys, PRN: prn, Observable: obs, Value: val, LLI: lli, Strength: strength})
		}
	}
	return StatusOk
}

func readObsEpochV2(r *bufio.Reader, log logx.Log, m *rinexmodel.Model, line string) EpochStatus {
	year := 2000 + int(parseFloat(column(line, 1, 3)))
	mon := int(parseFloat(column(line, 4, 6)))
	day := int(parseFloat(column(line, 7, 9)))
	hour := int(parseFloat(column(line, 10, 12)))
	min := int(parseFloat(column(line, 13, 15)))
	sec := parseFloat(column(line, 15, 26))
	flag := int(parseFloat(column(line, 28, 29)))
	nsat := int(parseFloat(column(line, 29, 32)))

	tag := gnsstime.Seconds(gnsstime.Epoch(year, mon, day, hour, min, sec))

	if flag >= 2 && flag <= 5 {
		for i := 0; i < nsat; i++ {
			if _, err := r.ReadString('\n'); err != nil {
				return StatusSpecialRecordError
			}
		}
		return StatusOkNewEpoch
	}
	if flag != 0 && flag != 1 {
		return StatusBadFlag
	}

	var sats []string
	cur := line
	for i := 0; i < nsat; i++ {
		if i > 0 && i%12 == 0 {
			next, err := r.ReadString('\n')
			if next == "" && err != nil {
				return StatusBadEpoch
			}
			cur = next
		}
		off := 32 + (i%12)*3
		if off+3 > len(cur) {
			sats = append(sats, "")
			continue
		}
		sats = append(sats, strings.TrimSpace(column(cur, off, off+3)))
	}

	for _, satID := range sats {
		if len(satID) < 2 {
			continue
		}
		sys := satID[0]
		if sys == ' ' || (sys >= '0' && sys <= '9') {
			sys = 'G'
		}
		prn := int(parseFloat(satID[1:]))
		entry := m.Systems[sys]
		if entry == nil {
			continue
		}
		var obsLine string
		for j, obs := range entry.Observables {
			if j%5 == 0 {
				next, err := r.ReadString('\n')
				if next == "" && err != nil {
					log.Warnf("rinexio: truncated V2.10 observation line")
					return StatusBadObs
				}
				obsLine = next
			}
			pos := (j % 5) * 16
			if pos+14 > len(obsLine) {
				continue
			}
			val := parseFloat(column(obsLine, pos, pos+14))
			m.AppendObs(rinexmodel.Observation{TimeTag: tag, System: sys, PRN: prn, Observable: obs, Value: val})
		}
	}
	return StatusOk
}

// ReadNavHeader parses a navigation-file header (§4.7), inferring the file
// system from the V2.10 file-type byte when the caller provides one
// ('N'->GPS, 'G'->GLONASS, 'H'->SBAS, 'E'->Galileo); V3.02 files carry the
// system in the VERSION record itself, which this reader does not read, so
// no system entry is seeded for them.
func ReadNavHeader(r *bufio.Reader, log logx.Log, m *rinexmodel.Model, v210FileType byte) error {
	if log == nil {
		log = logx.Discard()
	}
	for {
		line, err := r.ReadString('\n')
		if line == "" && err != nil {
			return err
		}
		label := trimLabel(line)
		if label == "RINEX VERSION / TYPE" {
			ver := strings.TrimSpace(column(line, 0, 9))
			v, convErr := strconv.ParseFloat(ver, 64)
			if convErr == nil {
				if v < 3.0 {
					m.Target = rinexmodel.V210
				} else {
					m.Target = rinexmodel.V302
				}
			}
			if m.Target == rinexmodel.V210 {
				switch v210FileType {
				case 'N':
					m.System('G')
				case 'G':
					m.System('R')
				case 'H':
					m.System('S')
				case 'E':
					m.System('E')
				}
			}
			if err != nil {
				return err
			}
			continue
		}
		if label == "END OF HEADER" {
			m.Set(rinexmodel.LabelEndOfHeader, nil)
			return nil
		}
		if l, ok := labelForText(m, label); ok {
			switch l {
			case rinexmodel.LabelIonosphericCorr:
				m.Set(l, IonoCorr{
					Type: strings.TrimSpace(column(line, 0, 4)),
					Params: [4]float64{
						parseFloat(column(line, 5, 17)),
						parseFloat(column(line, 17, 29)),
						parseFloat(column(line, 29, 41)),
						parseFloat(column(line, 41, 53)),
					},
				})
			case rinexmodel.LabelLeapSeconds:
				m.Set(l, int(parseFloat(column(line, 0, 6))))
			}
		} else if label != "" {
			log.Warnf("%v: %q", ErrNoLabel, label)
		}
		if err != nil {
			return err
		}
	}
}

// ReadNavEpoch parses one broadcast ephemeris record (eight lines for
// GPS/Galileo, four for GLONASS/SBAS, per §4.7) into m.Nav.
func ReadNavEpoch(r *bufio.Reader, log logx.Log, m *rinexmodel.Model) EpochStatus {
	if log == nil {
		log = logx.Discard()
	}
	line, err := r.ReadString('\n')
	if line == "" && err != nil {
		return StatusEndOfFile
	}
	if len(line) < 3 {
		return StatusBadEpoch
	}
	var sys byte
	var prn int
	if line[0] >= 'A' && line[0] <= 'Z' {
		sys = line[0]
		prn = int(parseFloat(column(line, 1, 3)))
	} else {
		sys = 'G'
		prn = int(parseFloat(column(line, 0, 2)))
	}

	year := int(parseFloat(column(line, 4, 8)))
	mon := int(parseFloat(column(line, 9, 11)))
	day := int(parseFloat(column(line, 12, 14)))
	hour := int(parseFloat(column(line, 15, 17)))
	min := int(parseFloat(column(line, 18, 20)))
	sec := parseFloat(column(line, 20, 23))

	// The epoch line carries 3 more 19-column clock fields (bias, drift,
	// drift-rate) immediately after the fixed-width date, following
	// renix.go's OutRnxNavBody (epoch header, then OutNavf x3 on the same
	// line before the first newline).
	const epochWidth = 23
	orbit := [8][4]float64{}
	for c := 0; c < 3; c++ {
		pos := epochWidth + c*19
		if pos+19 > len(line) {
			continue
		}
		orbit[0][c] = parseNavField(column(line, pos, pos+19))
	}

	nlines := 7
	if sys == 'R' || sys == 'S' {
		nlines = 3
	}
	for i := 0; i < nlines; i++ {
		next, rerr := r.ReadString('\n')
		if next == "" && rerr != nil {
			return StatusBadEpoch
		}
		for c := 0; c < 4; c++ {
			pos := 4 + c*19
			if pos+19 > len(next) {
				continue
			}
			orbit[i+1][c] = parseNavField(column(next, pos, pos+19))
		}
	}

	tag := gnsstime.Seconds(gnsstime.Epoch(year, mon, day, hour, min, sec))
	ok := m.AppendNav(rinexmodel.NavRecord{TimeTag: tag, System: sys, PRN: prn, BroadcastOrbit: orbit})
	if !ok {
		log.Warnf("rinexio: duplicate navigation record sys=%c prn=%d", sys, prn)
	}
	return StatusOk
}

func parseNavField(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.Replace(s, "D", "E", 1)
	s = strings.Replace(s, "d", "E", 1)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
