/*------------------------------------------------------------------------------
* run.go : conversion run (wires C1-C10 plus the peripheral driver layer)
*
* Grounded on app/convbin.go's convbin(): open input, build one output file
* per product, scan, close -- generalized from the teacher's if-chain over
* input/output format enums to this system's fixed OSP-in, RINEX/RTKLIB-out
* shape, and on §7's error-tier/exit-code mapping.
*-----------------------------------------------------------------------------*/
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/fxuebin/osp2rnx/config"
	"github.com/fxuebin/osp2rnx/dispatch"
	"github.com/fxuebin/osp2rnx/ephscale"
	"github.com/fxuebin/osp2rnx/gnsstime"
	"github.com/fxuebin/osp2rnx/internal/serialio"
	"github.com/fxuebin/osp2rnx/logx"
	"github.com/fxuebin/osp2rnx/ospframe"
	"github.com/fxuebin/osp2rnx/rinexfilter"
	"github.com/fxuebin/osp2rnx/rinexio"
	"github.com/fxuebin/osp2rnx/rinexmodel"
	"github.com/fxuebin/osp2rnx/rtksol"
)

const (
	exitOK                = 0
	exitBadArgs           = 1
	exitCannotOpenInput   = 2
	exitCannotOpenOutput  = 3
	exitFilterRejectsAll  = 4
	exitEpochFormatErrors = 5
	exitOutputWriteError  = 6
	exitInternalFailure   = 7
)

// obsObservables is the fixed catalogue the OSP decoder can ever populate
// (§1 "no other receiver family"): pseudorange, carrier phase, Doppler and
// signal strength on L1, the way a single-frequency SiRF receiver reports.
var obsObservables = []string{"C1C", "L1C", "D1C", "S1C"}

// converter holds the state threaded through one conversion call: the data
// model, the output files the driver owns, and the running tallies §7's
// exit-code mapping needs at the end.
type converter struct {
	log    logx.Log
	opt    config.Options
	filter *rinexfilter.Filter

	obsModel   *rinexmodel.Model
	navModel   *rinexmodel.Model
	dispatcher *dispatch.Dispatcher

	obsFile *os.File
	navFile *os.File
	rtkFile *os.File

	headerWritten bool
	version       byte // file-system letter used for nav file naming

	epochsSeen     int
	epochsWritten  int
	epochsRejected int // dispatch.ErrInsufficientSats
	epochsBadFmt   int // other dispatch/write errors

	firstWeek int
	firstTOW  float64
	lastWeek  int
	lastTOW   float64

	rtkHeader rtksol.Header
}

func run(c *cli.Context) error {
	runID := uuid.New()
	base := logx.New()
	log := base.WithFields(logrus.Fields{"run": runID.String()})

	store := config.NewStore()
	store.Set("rnxver", c.String("rnxver"))
	store.Set("minnsat", fmt.Sprint(c.Int("minnsat")))
	store.Set("applybias", fmt.Sprint(c.Bool("applybias")))
	store.Set("outdir", c.String("outdir"))
	store.Set("prefix", c.String("prefix"))
	store.Set("obsfilter", c.String("obsfilter"))
	store.Set("satfilter", c.String("satfilter"))
	store.Set("interval", fmt.Sprint(c.Float64("interval")))

	opt, err := config.Resolve(store)
	if err != nil {
		log.Errorf("osp2rnx: %v", err)
		return cli.Exit(err, exitBadArgs)
	}
	if c.String("input") != "" && c.String("serial") != "" {
		return cli.Exit(errors.New("osp2rnx: --input and --serial are mutually exclusive"), exitBadArgs)
	}

	src, framed, closeSrc, err := openSource(log, c)
	if err != nil {
		log.Errorf("osp2rnx: %v", err)
		return cli.Exit(err, exitCannotOpenInput)
	}
	defer closeSrc()

	if err := os.MkdirAll(opt.OutDir, 0o755); err != nil {
		log.Errorf("osp2rnx: %v", err)
		return cli.Exit(err, exitCannotOpenOutput)
	}

	cv := &converter{
		log:      log,
		opt:      opt,
		filter:   rinexfilter.New(log),
		obsModel: rinexmodel.NewModel(),
		navModel: rinexmodel.NewModel(),
	}
	cv.obsModel.Target = targetVersion(opt.RnxVersion)
	cv.navModel.Target = cv.obsModel.Target

	cv.obsModel.Set(rinexmodel.LabelRunBy, rinexio.RunByInfo{Program: "osp2rnx", RunBy: opt.FilePrefix})
	cv.obsModel.Set(rinexmodel.LabelMarkerName, rinexio.MarkerInfo{Name: opt.FilePrefix})
	cv.obsModel.Set(rinexmodel.LabelObserver, rinexio.ObserverInfo{Observer: c.String("observer"), Agency: c.String("agency")})
	cv.navModel.Set(rinexmodel.LabelRunBy, rinexio.RunByInfo{Program: "osp2rnx", RunBy: opt.FilePrefix})
	if opt.IntervalSecs > 0 {
		cv.obsModel.Set(rinexmodel.LabelInterval, opt.IntervalSecs)
	}

	if satFilter, obsFilter := splitTokens(opt.SatFilter), splitTokens(opt.ObsFilter); len(satFilter) > 0 || len(obsFilter) > 0 {
		if !cv.filter.SetFilter(cv.obsModel, satFilter, obsFilter) {
			log.Errorf("osp2rnx: invalid filter token in --satfilter/--obsfilter")
			return cli.Exit(errors.New("osp2rnx: invalid filter token"), exitBadArgs)
		}
	}

	dispatcher := dispatch.New(opt.MinNumSats, opt.ApplyBias, log, cv.onEpoch, cv.onGPSEph, cv.onGLOEph)
	cv.dispatcher = dispatcher

	nextPayload := stripped(src)
	if framed {
		nextPayload = ospframe.NewFrameReader(src, c.Int("patience"), log).ReadFrame
	}

	for {
		payload, err := nextPayload()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			log.Warnf("osp2rnx: frame read: %v", err)
			cv.epochsBadFmt++
			continue
		}
		if err := dispatcher.Dispatch(payload); err != nil {
			if errors.Is(err, dispatch.ErrInsufficientSats) {
				cv.epochsRejected++
				continue
			}
			log.Warnf("osp2rnx: dispatch: %v", err)
			cv.epochsBadFmt++
			continue
		}
	}

	if err := cv.finish(dispatcher, c.Bool("rtksol")); err != nil {
		log.Errorf("osp2rnx: %v", err)
		return cli.Exit(err, exitOutputWriteError)
	}

	if code := cv.exitCode(); code != exitOK {
		return cli.Exit(fmt.Errorf("osp2rnx: conversion finished with exit code %d (written=%d rejected=%d badfmt=%d)",
			code, cv.epochsWritten, cv.epochsRejected, cv.epochsBadFmt), code)
	}
	log.Infof("osp2rnx: wrote %d epochs", cv.epochsWritten)
	return nil
}

func (cv *converter) exitCode() int {
	switch {
	case cv.epochsWritten == 0 && cv.epochsRejected == 0 && cv.epochsBadFmt == 0:
		return exitCannotOpenOutput // nothing was ever decoded: treat like "no epochs"
	case cv.epochsWritten == 0 && cv.epochsRejected > 0:
		return exitFilterRejectsAll
	case cv.epochsWritten == 0:
		return exitCannotOpenOutput
	case cv.epochsBadFmt > cv.epochsWritten:
		return exitEpochFormatErrors
	default:
		return exitOK
	}
}

func targetVersion(s string) rinexmodel.Version {
	if strings.HasPrefix(s, "2") {
		return rinexmodel.V210
	}
	return rinexmodel.V302
}

func splitTokens(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// openSource resolves --input/--serial into a byte source and whether it
// should be read in framed mode, returning a close func the caller always
// invokes (a no-op for stdin).
func openSource(log logx.Log, c *cli.Context) (io.Reader, bool, func(), error) {
	if serialPath := c.String("serial"); serialPath != "" {
		port, err := serialio.Open(log, serialPath)
		if err != nil {
			return nil, false, func() {}, err
		}
		return port, true, func() { port.Close() }, nil
	}
	if path := c.String("input"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, false, func() {}, err
		}
		return f, c.Bool("framed"), func() { f.Close() }, nil
	}
	return os.Stdin, c.Bool("framed"), func() {}, nil
}

func stripped(r io.Reader) func() ([]byte, error) {
	return func() ([]byte, error) { return ospframe.ReadStripped(r) }
}

// onEpoch converts one dispatch.Epoch into rinexmodel.Observation records,
// opens the output files on the first epoch (the file name is a pure
// function of the first epoch's time, §4.8), filters, and streams the epoch
// out immediately -- the observation store never holds more than one
// epoch's worth, per §5's resource policy.
func (cv *converter) onEpoch(e dispatch.Epoch) {
	cv.epochsSeen++
	tag := gnsstime.Seconds(gnsstime.FromGPS(e.Week, e.TOW))

	for _, o := range e.Obs {
		registerSystem(cv.obsModel, byte(o.Sys))
	}

	if !cv.headerWritten {
		if err := cv.openOutputs(e.Week, e.TOW); err != nil {
			cv.log.Errorf("osp2rnx: open outputs: %v", err)
			cv.epochsBadFmt++
			return
		}
		cv.firstWeek, cv.firstTOW = e.Week, e.TOW
		cv.obsModel.Set(rinexmodel.LabelTimeOfFirstObs, rinexio.TimeSpan(gnsstime.FromGPS(e.Week, e.TOW)))
		if id := cv.dispatcher.Identification; id != nil {
			cv.obsModel.Set(rinexmodel.LabelReceiver, rinexio.ReceiverInfo{Type: id.ROMVersion})
		}
		if err := rinexio.WriteObsHeader(cv.obsFile, cv.log, cv.obsModel); err != nil {
			cv.log.Errorf("osp2rnx: write obs header: %v", err)
			cv.epochsBadFmt++
			return
		}
		cv.headerWritten = true
	}
	cv.lastWeek, cv.lastTOW = e.Week, e.TOW

	for _, o := range e.Obs {
		appendObservation(cv.obsModel, tag, o)
	}
	cv.filter.Apply(cv.obsModel)
	if len(cv.obsModel.Obs) == 0 {
		cv.obsModel.ClearObs()
		cv.epochsRejected++
		return
	}
	cv.obsModel.SortObs()
	if err := rinexio.WriteObsEpoch(cv.obsFile, cv.obsModel, 0); err != nil {
		cv.log.Warnf("osp2rnx: write obs epoch at week=%d tow=%.3f: %v", e.Week, e.TOW, err)
		cv.epochsBadFmt++
		return
	}
	cv.epochsWritten++
}

// registerSystem makes sys known to m.SystemLetters() and gives it an
// observable set, the first time any epoch carries data for that system.
// Systems are never pre-seeded: a log that never decodes GLONASS must never
// report GLONASS in the file name or the SYS / # / OBS TYPES header.
func registerSystem(m *rinexmodel.Model, sys byte) {
	se := m.System(sys)
	if len(se.Observables) == 0 {
		se.Observables = append([]string(nil), obsObservables...)
	}
}

func appendObservation(m *rinexmodel.Model, tag float64, o dispatch.Observation) {
	sys := byte(o.Sys)
	m.AppendObs(rinexmodel.Observation{TimeTag: tag, System: sys, PRN: o.PRN, Observable: "C1C", Value: o.Pseudorange, Strength: o.Strength})
	m.AppendObs(rinexmodel.Observation{TimeTag: tag, System: sys, PRN: o.PRN, Observable: "L1C", Value: o.Phase, LLI: o.LLI, Strength: o.Strength})
	m.AppendObs(rinexmodel.Observation{TimeTag: tag, System: sys, PRN: o.PRN, Observable: "D1C", Value: o.Doppler, Strength: o.Strength})
	m.AppendObs(rinexmodel.Observation{TimeTag: tag, System: sys, PRN: o.PRN, Observable: "S1C", Value: o.CN0, Strength: o.Strength})
}

func (cv *converter) onGPSEph(eph ephscale.GPSEphemeris) {
	week := eph.Week
	if cv.firstWeek > 0 {
		week = gnsstime.ResolveWeek(eph.Week, cv.firstWeek)
	}
	tag := gnsstime.Seconds(gnsstime.FromGPS(week, eph.Toc))
	cv.navModel.AppendNav(rinexmodel.NavRecord{TimeTag: tag, System: 'G', PRN: eph.PRN, BroadcastOrbit: eph.BroadcastOrbit()})
}

// onGLOEph tags a GLONASS ephemeris with its own tk (hour/minute/second of
// day), not the unrelated currently-open observation epoch's time: tk is
// Moscow time (UTC+3, §GLOSSARY's N4/NT/tb/tk), so it is first converted to
// UTC, then anchored to the nearest calendar day around the reference epoch
// with gnsstime.AdjustDay since MID-70 carries no N4/NT day-number fields to
// pin the date directly.
func (cv *converter) onGLOEph(eph ephscale.GLOEphemeris) {
	ref := gnsstime.FromGPS(cv.firstWeek, cv.firstTOW)
	year, mon, day, _, _, _ := ref.Calendar()
	tod := gnsstime.Epoch(year, mon, day, eph.TkH, eph.TkM, float64(eph.TkS))
	utc := gnsstime.Add(tod, -3*3600)
	t := gnsstime.AdjustDay(utc, ref)
	cv.navModel.AppendNav(rinexmodel.NavRecord{TimeTag: gnsstime.Seconds(t), System: 'R', PRN: eph.Slot, BroadcastOrbit: eph.BroadcastOrbit()})
}

func (cv *converter) openOutputs(week int, tow float64) error {
	cv.version = rinexio.SysLetter(cv.obsModel)
	var obsName, navName string
	switch cv.obsModel.Target {
	case rinexmodel.V210:
		obsName = rinexio.FileNameV210(cv.opt.FilePrefix, week, tow, 'O')
		navName = rinexio.FileNameV210(cv.opt.FilePrefix, week, tow, 'N')
	default:
		spanSecs := gnsstime.Diff(gnsstime.FromGPS(week, tow), gnsstime.FromGPS(week, tow)) // always 0: the name is fixed at the first epoch
		obsName = rinexio.FileNameV302(cv.opt.FilePrefix, "0", "XXX", week, tow, cv.opt.IntervalSecs, spanSecs, cv.version, 'O')
		navName = rinexio.FileNameV302(cv.opt.FilePrefix, "0", "XXX", week, tow, cv.opt.IntervalSecs, spanSecs, cv.version, 'N')
	}

	var err error
	cv.obsFile, err = os.Create(filepath.Join(cv.opt.OutDir, obsName))
	if err != nil {
		return err
	}
	cv.navFile, err = os.Create(filepath.Join(cv.opt.OutDir, navName))
	if err != nil {
		return err
	}
	return nil
}

// finish drains the navigation store, writes the nav header/body, and
// optionally the RTKLIB position-solution file. It sets TIME OF LAST OBS on
// the observation model only; the observation header was already written at
// the first epoch, so that record does not appear in the observation file.
// Output files the driver opened are always closed here (§5 "the core holds
// borrowed handles ... driver guarantees release on all exit paths").
func (cv *converter) finish(d *dispatch.Dispatcher, writeRtk bool) error {
	if cv.obsFile != nil {
		defer cv.obsFile.Close()
	}
	if cv.navFile != nil {
		defer cv.navFile.Close()
	}
	if cv.rtkFile != nil {
		defer cv.rtkFile.Close()
	}
	if !cv.headerWritten {
		return nil // nothing was ever decoded; exitCode() reports this
	}

	cv.obsModel.Set(rinexmodel.LabelTimeOfLastObs, rinexio.TimeSpan(gnsstime.FromGPS(cv.lastWeek, cv.lastTOW)))

	cv.filter.Apply(cv.navModel)
	cv.navModel.SortNav()
	if err := rinexio.WriteNavHeader(cv.navFile, cv.log, cv.navModel, cv.version); err != nil {
		return fmt.Errorf("write nav header: %w", err)
	}
	for rinexio.WriteNavEpoch(cv.navFile, cv.navModel) {
	}

	if writeRtk && d.Position != nil {
		rtkName := fmt.Sprintf("%s.pos", strings.ToLower(cv.opt.FilePrefix))
		f, err := os.Create(filepath.Join(cv.opt.OutDir, rtkName))
		if err != nil {
			return fmt.Errorf("create rtksol file: %w", err)
		}
		cv.rtkFile = f
		ephSource := "OSP MID 15/70"
		if d.Identification != nil {
			ephSource = fmt.Sprintf("OSP MID 15/70 (receiver %s)", d.Identification.ROMVersion)
		}
		header := rtksol.Header{
			PosMode:   "single",
			SysMask:   string(cv.obsModel.SystemLetters()),
			ObsMask:   strings.Join(obsObservables, ","),
			EphSource: ephSource,
			StartWeek: cv.firstWeek, StartTOW: cv.firstTOW,
			EndWeek: cv.lastWeek, EndTOW: cv.lastTOW,
		}
		if err := rtksol.WriteHeader(cv.rtkFile, header); err != nil {
			return fmt.Errorf("write rtksol header: %w", err)
		}
		if err := rtksol.WriteEpoch(cv.rtkFile, rtksol.Epoch{
			Week: d.Position.Week, TOW: d.Position.TOW,
			X: d.Position.X, Y: d.Position.Y, Z: d.Position.Z,
			Quality: 1, NSV: d.Position.NSV,
		}); err != nil {
			return fmt.Errorf("write rtksol epoch: %w", err)
		}
	}
	return nil
}
