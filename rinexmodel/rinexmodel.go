/*------------------------------------------------------------------------------
* rinexmodel.go : RINEX in-memory data model (C6)
*
* Re-architects gnssgo/renix.go's ad hoc struct set (Obs/Nav/Sta/RnxCtr,
* field-by-field getters, format constants scattered across the Out* and Decode*
* functions) into the label-driven table §9 asks for: header records are a
* table of (label, version mask, obligatory/optional/NA, has-data, payload)
* entries instead of dozens of individual struct fields, and observation/
* navigation storage are sortable slices instead of the teacher's fixed-size
* NFREQ-indexed arrays. Column widths and the label text itself are taken
* directly from renix.go's Out* functions (e.g. the 60+20 column split in
* OutRnxObsHeader, the 14.3 observation field in OutRnxObsf).
*-----------------------------------------------------------------------------*/
package rinexmodel

import "sort"

// Version identifies a target RINEX version.
type Version int

const (
	VUnset Version = iota
	V210
	V302
)

// VersionMask is a bitmask of which versions a header record label is
// valid for.
type VersionMask int

const (
	MaskV210 VersionMask = 1 << iota
	MaskV302
	MaskBoth = MaskV210 | MaskV302
)

// Obligation states whether a label is required, optional, or not
// applicable for a given file role.
type Obligation int

const (
	NotApplicable Obligation = iota
	Optional
	Obligatory
)

// Label enumerates the 24 RINEX header record kinds this model knows.
type Label int

const (
	LabelVersion Label = iota
	LabelRunBy
	LabelComment
	LabelMarkerName
	LabelObserver
	LabelReceiver
	LabelAntenna
	LabelApproxPos
	LabelAntennaHen
	LabelSysTObs // V3.02 "SYS / # / OBS TYPES"
	LabelTObs    // V2.10 "# / TYPES OF OBSERV"
	LabelSys
	LabelInterval
	LabelTimeOfFirstObs
	LabelTimeOfLastObs
	LabelWaveFact
	LabelSysScaleFactor
	LabelSysPhaseShift
	LabelGloSlotFrq
	LabelGloCodePhaseBias
	LabelIonosphericCorr
	LabelTimeSystemCorr
	LabelLeapSeconds
	LabelEndOfHeader
)

// HeaderRecord is one entry in the ordered header table. Payload is the
// label-specific value (a string, a []float64, a struct -- whatever the
// label needs); the writer and reader each know how to project to/from it.
type HeaderRecord struct {
	Label      Label
	Text       string // columns 61-80 label text
	Versions   VersionMask
	ObsRole    Obligation
	NavRole    Obligation
	HasData    bool
	Payload    interface{}
	// PrecedingComments holds comment lines authored to appear immediately
	// before this record, preserving insertion order (§3 "comment records").
	PrecedingComments []string
}

// SystemEntry holds one GNSS system's observable catalogue and selection
// state (§3 "GNSS system entry").
type SystemEntry struct {
	System      byte // 'G','R','E','S'
	Observables []string
	Selected    map[string]bool
	SelectedPRN []int // empty = accept all
}

// Observation is one (time, system, sat, observable) measurement (§3).
type Observation struct {
	TimeTag     float64 // seconds since GPS epoch
	System      byte
	PRN         int
	Observable  string
	Value       float64
	LLI         int
	Strength    int
}

// NavRecord is one broadcast ephemeris (§3). BroadcastOrbit[0] holds the SV
// clock bias/drift/drift-rate triplet that shares the epoch line; [1:8] hold
// the following broadcast orbit lines (only [1:4] used for GLONASS/SBAS).
type NavRecord struct {
	TimeTag       float64
	System        byte
	PRN           int
	BroadcastOrbit [8][4]float64
}

// FilterPredicate decides whether to keep an Observation/NavRecord; the
// model holds it so the writer can apply filtering without mutating
// storage mid-epoch (§4.6).
type FilterPredicate struct {
	AcceptObs func(Observation) bool
	AcceptNav func(NavRecord) bool
}

// V2V3Translation is the bidirectional V2<->V3 observable code table (§4.6).
var V2V3Translation = map[string]string{
	"L1": "L1C", "L2": "L2P", "C1": "C1C", "P1": "C1P", "P2": "C2P",
	"D1": "D1C", "D2": "D2P", "S1": "S1C", "S2": "S2P",
}

// V3ToV2 is the reverse direction of V2V3Translation, built once.
var V3ToV2 = func() map[string]string {
	m := make(map[string]string, len(V2V3Translation))
	for v2, v3 := range V2V3Translation {
		m[v3] = v2
	}
	return m
}()

// Model is the in-memory RINEX state C7/C8/C9 operate on.
type Model struct {
	Target Version

	Headers []HeaderRecord
	Systems map[byte]*SystemEntry

	Obs []Observation
	Nav []NavRecord

	Filter FilterPredicate
}

// NewModel returns an empty model with the 23-entry header table seeded
// (obligation per file role following renix.go's Out* functions; callers set
// Payload/HasData as facts are learned).
func NewModel() *Model {
	m := &Model{Systems: make(map[byte]*SystemEntry)}
	m.Headers = defaultHeaderTable()
	return m
}

// defaultHeaderTable seeds the ordered label table. Text strings are the
// exact column-61-80 text renix.go's Out* functions write (e.g.
// "RINEX VERSION / TYPE", "END OF HEADER").
func defaultHeaderTable() []HeaderRecord {
	return []HeaderRecord{
		{Label: LabelVersion, Text: "RINEX VERSION / TYPE", Versions: MaskBoth, ObsRole: Obligatory, NavRole: Obligatory},
		{Label: LabelRunBy, Text: "PGM / RUN BY / DATE", Versions: MaskBoth, ObsRole: Obligatory, NavRole: Obligatory},
		{Label: LabelComment, Text: "COMMENT", Versions: MaskBoth, ObsRole: Optional, NavRole: Optional},
		{Label: LabelMarkerName, Text: "MARKER NAME", Versions: MaskBoth, ObsRole: Obligatory, NavRole: NotApplicable},
		{Label: LabelObserver, Text: "OBSERVER / AGENCY", Versions: MaskBoth, ObsRole: Obligatory, NavRole: NotApplicable},
		{Label: LabelReceiver, Text: "REC # / TYPE / VERS", Versions: MaskBoth, ObsRole: Obligatory, NavRole: NotApplicable},
		{Label: LabelAntenna, Text: "ANT # / TYPE", Versions: MaskBoth, ObsRole: Obligatory, NavRole: NotApplicable},
		{Label: LabelApproxPos, Text: "APPROX POSITION XYZ", Versions: MaskBoth, ObsRole: Optional, NavRole: NotApplicable},
		{Label: LabelAntennaHen, Text: "ANTENNA: DELTA H/E/N", Versions: MaskBoth, ObsRole: Obligatory, NavRole: NotApplicable},
		{Label: LabelTObs, Text: "# / TYPES OF OBSERV", Versions: MaskV210, ObsRole: Obligatory, NavRole: NotApplicable},
		{Label: LabelSysTObs, Text: "SYS / # / OBS TYPES", Versions: MaskV302, ObsRole: Obligatory, NavRole: NotApplicable},
		{Label: LabelInterval, Text: "INTERVAL", Versions: MaskBoth, ObsRole: Optional, NavRole: NotApplicable},
		{Label: LabelTimeOfFirstObs, Text: "TIME OF FIRST OBS", Versions: MaskBoth, ObsRole: Obligatory, NavRole: NotApplicable},
		{Label: LabelTimeOfLastObs, Text: "TIME OF LAST OBS", Versions: MaskBoth, ObsRole: Optional, NavRole: NotApplicable},
		{Label: LabelWaveFact, Text: "WAVELENGTH FACT L1/2", Versions: MaskV210, ObsRole: Optional, NavRole: NotApplicable},
		{Label: LabelSysScaleFactor, Text: "SYS / SCALE FACTOR", Versions: MaskV302, ObsRole: Optional, NavRole: NotApplicable},
		{Label: LabelSysPhaseShift, Text: "SYS / PHASE SHIFT", Versions: MaskV302, ObsRole: Optional, NavRole: NotApplicable},
		{Label: LabelGloSlotFrq, Text: "GLONASS SLOT / FRQ #", Versions: MaskV302, ObsRole: Optional, NavRole: NotApplicable},
		{Label: LabelGloCodePhaseBias, Text: "GLONASS COD/PHS/BIS", Versions: MaskV302, ObsRole: Optional, NavRole: NotApplicable},
		{Label: LabelIonosphericCorr, Text: "IONOSPHERIC CORR", Versions: MaskV302, ObsRole: NotApplicable, NavRole: Optional},
		{Label: LabelTimeSystemCorr, Text: "TIME SYSTEM CORR", Versions: MaskV302, ObsRole: NotApplicable, NavRole: Optional},
		{Label: LabelLeapSeconds, Text: "LEAP SECONDS", Versions: MaskBoth, ObsRole: Optional, NavRole: Optional},
		{Label: LabelEndOfHeader, Text: "END OF HEADER", Versions: MaskBoth, ObsRole: Obligatory, NavRole: Obligatory, HasData: true},
	}
}

// FirstLabel returns the index of the first header record with data,
// skipping the entries that don't (§4.6 "first_label/next_label cursors").
func (m *Model) FirstLabel() int { return m.NextLabel(-1) }

// NextLabel returns the index of the next header record with data after
// index i, or -1 if none remain.
func (m *Model) NextLabel(i int) int {
	for j := i + 1; j < len(m.Headers); j++ {
		if m.Headers[j].HasData {
			return j
		}
	}
	return -1
}

// Set records payload for label, marking it as having data.
func (m *Model) Set(label Label, payload interface{}) {
	for i := range m.Headers {
		if m.Headers[i].Label == label {
			m.Headers[i].Payload = payload
			m.Headers[i].HasData = true
			return
		}
	}
}

// Get returns the payload and presence for label.
func (m *Model) Get(label Label) (interface{}, bool) {
	for i := range m.Headers {
		if m.Headers[i].Label == label {
			return m.Headers[i].Payload, m.Headers[i].HasData
		}
	}
	return nil, false
}

// AppendObs appends an observation to the store (append-then-sort, §9).
func (m *Model) AppendObs(o Observation) { m.Obs = append(m.Obs, o) }

// ClearObs empties the observation store, e.g. once a writer has drained
// one epoch.
func (m *Model) ClearObs() { m.Obs = m.Obs[:0] }

// SortObs orders observations by (time, system, satellite, observable),
// the ordering §5 requires and the writer relies on.
func (m *Model) SortObs() {
	sort.SliceStable(m.Obs, func(i, j int) bool {
		a, b := m.Obs[i], m.Obs[j]
		if a.TimeTag != b.TimeTag {
			return a.TimeTag < b.TimeTag
		}
		if a.System != b.System {
			return a.System < b.System
		}
		if a.PRN != b.PRN {
			return a.PRN < b.PRN
		}
		return a.Observable < b.Observable
	})
}

// DeleteObsWhere removes every observation matching pred.
func (m *Model) DeleteObsWhere(pred func(Observation) bool) {
	kept := m.Obs[:0]
	for _, o := range m.Obs {
		if !pred(o) {
			kept = append(kept, o)
		}
	}
	m.Obs = kept
}

// AppendNav inserts nav into the navigation store, enforcing §3's
// uniqueness invariant: a record is inserted only if no prior record
// exists with the same (time, system, satellite).
func (m *Model) AppendNav(nav NavRecord) bool {
	for _, existing := range m.Nav {
		if existing.TimeTag == nav.TimeTag && existing.System == nav.System && existing.PRN == nav.PRN {
			return false
		}
	}
	m.Nav = append(m.Nav, nav)
	return true
}

// SortNav orders navigation records by (time, system, satellite).
func (m *Model) SortNav() {
	sort.SliceStable(m.Nav, func(i, j int) bool {
		a, b := m.Nav[i], m.Nav[j]
		if a.TimeTag != b.TimeTag {
			return a.TimeTag < b.TimeTag
		}
		if a.System != b.System {
			return a.System < b.System
		}
		return a.PRN < b.PRN
	})
}

// DeleteNavWhere removes every navigation record matching pred.
func (m *Model) DeleteNavWhere(pred func(NavRecord) bool) {
	kept := m.Nav[:0]
	for _, n := range m.Nav {
		if !pred(n) {
			kept = append(kept, n)
		}
	}
	m.Nav = kept
}

// System returns (creating if absent) the SystemEntry for sys.
func (m *Model) System(sys byte) *SystemEntry {
	e, ok := m.Systems[sys]
	if !ok {
		e = &SystemEntry{System: sys, Selected: make(map[string]bool)}
		m.Systems[sys] = e
	}
	return e
}

// SystemLetters returns the populated system keys in a stable, sorted
// order, since map iteration order would otherwise make header and epoch
// output nondeterministic between runs on the same model.
func (m *Model) SystemLetters() []byte {
	letters := make([]byte, 0, len(m.Systems))
	for sys := range m.Systems {
		letters = append(letters, sys)
	}
	sort.Slice(letters, func(i, j int) bool { return letters[i] < letters[j] })
	return letters
}

// InsertComment adds a COMMENT header record carrying text, positioned
// immediately before the first occurrence of beforeLabel (or appended at
// the end if beforeLabel is absent). This is how §3's "comment payload
// remembers which following record it should precede" is realized: the
// writer re-emits the comment at the exact position recorded here (§5
// ordering guarantee), rather than grouping all comments together.
func (m *Model) InsertComment(beforeLabel Label, text string) {
	rec := HeaderRecord{
		Label:    LabelComment,
		Text:     "COMMENT",
		Versions: MaskBoth,
		ObsRole:  Optional,
		NavRole:  Optional,
		HasData:  true,
		Payload:  text,
	}
	for i := range m.Headers {
		if m.Headers[i].Label == beforeLabel {
			m.Headers = append(m.Headers, HeaderRecord{})
			copy(m.Headers[i+1:], m.Headers[i:])
			m.Headers[i] = rec
			return
		}
	}
	m.Headers = append(m.Headers, rec)
}
