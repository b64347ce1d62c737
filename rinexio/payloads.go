/*------------------------------------------------------------------------------
* payloads.go : typed payloads the reader/writer project to/from rinexmodel
* header records (C7/C8)
*
* rinexmodel.HeaderRecord.Payload is deliberately an interface{} -- §4.6 says
* "the writer and reader each know how to project to/from it"; these are the
* concrete shapes that projection uses, grounded on the fields renix.go's
* RnxOpt/Sta structs carry for the same records (opt.Prog/RunBy, opt.Marker,
* opt.Rec, opt.Ant, opt.AppPos, opt.AntDel, ...).
*-----------------------------------------------------------------------------*/
package rinexio

import "github.com/fxuebin/osp2rnx/gnsstime"

// RunByInfo backs rinexmodel.LabelRunBy ("PGM / RUN BY / DATE"); the date
// field of the emitted line is supplied by the writer (timeStrRnx, a fixed
// placeholder date), so it is not part of this payload.
type RunByInfo struct {
	Program string
	RunBy   string
}

// MarkerInfo backs rinexmodel.LabelMarkerName.
type MarkerInfo struct {
	Name   string
	Number string
}

// ObserverInfo backs an observer/agency record, grounded on
// renix.go's opt.Name[0]/opt.Name[1] ("OBSERVER / AGENCY").
type ObserverInfo struct {
	Observer string
	Agency   string
}

// ReceiverInfo backs "REC # / TYPE / VERS"; §C of SPEC_FULL.md wires MID 6's
// identification into this record (renix.go's opt.Rec[0..2]).
type ReceiverInfo struct {
	Number  string
	Type    string
	Version string
}

// AntennaInfo backs "ANT # / TYPE".
type AntennaInfo struct {
	Number string
	Type   string
}

// Vec3 backs APPROX POSITION XYZ and ANTENNA: DELTA H/E/N.
type Vec3 [3]float64

// TimeSpan backs TIME OF FIRST/LAST OBS; the two records use the same
// payload shape, distinguished by their Label.
type TimeSpan gnsstime.Time

// GloFcn backs "GLONASS SLOT / FRQ #" (V3.02 only): slot number -> carrier
// frequency number.
type GloFcn map[int]int

// IonoCorr backs "IONOSPHERIC CORR" (V3.02 nav only): the 4 alpha or 4 beta
// (or Klobuchar GPS alpha+beta, 8 total) broadcast ionosphere parameters,
// keyed by the correction-type code ("GPSA", "GPSB", "GAL").
type IonoCorr struct {
	Type   string
	Params [4]float64
}

// TimeSysCorr backs "TIME SYSTEM CORR" (V3.02 nav only).
type TimeSysCorr struct {
	Type   string // e.g. "GPUT", "GLUT"
	A0, A1 float64
	RefTow int
	RefWeek int
}
