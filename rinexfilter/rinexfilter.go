/*------------------------------------------------------------------------------
* rinexfilter.go : observation/navigation filter engine (C9)
*
* Grounded on gnssgo/options.go's SetSysMask/opt-string parsing style for
* token validation, re-targeted at rinexmodel.Model's sortable stores per
* §4.9. Applied only at write time, never inside the save path, so that
* repeated filtering of the same model is idempotent (§8 property 6).
*-----------------------------------------------------------------------------*/
package rinexfilter

import (
	"strconv"
	"strings"

	"github.com/fxuebin/osp2rnx/logx"
	"github.com/fxuebin/osp2rnx/rinexmodel"
)

// Filter holds the validated selection state for one filtering pass:
// selected (system,PRN) tokens and selected observable codes.
type Filter struct {
	log logx.Log

	selSysSat []string // e.g. "G5", "R", "G" (bare system letter matches all PRNs)
	selObs    map[string]bool
	obsSys    map[byte]bool // systems actually named by a selObs token
}

// New returns an empty Filter (accepts everything until SetFilter narrows
// it).
func New(log logx.Log) *Filter {
	if log == nil {
		log = logx.Discard()
	}
	return &Filter{log: log, selObs: make(map[string]bool)}
}

// SetFilter validates selSysSat and selObs tokens against the header's
// declared systems/observables (§4.9 set_filter). Unknown tokens are
// logged as warnings and the call returns false, but any previously
// validated state is left untouched -- a failed call narrows nothing.
func (f *Filter) SetFilter(m *rinexmodel.Model, selSysSat, selObs []string) bool {
	ok := true
	for _, tok := range selSysSat {
		if !validSysSatToken(m, tok) {
			f.log.Warnf("rinexfilter: unknown system/satellite token %q", tok)
			ok = false
		}
	}
	for _, tok := range selObs {
		if !validObsToken(m, tok) {
			f.log.Warnf("rinexfilter: unknown observable token %q", tok)
			ok = false
		}
	}
	if !ok {
		return false
	}
	f.selSysSat = append([]string(nil), selSysSat...)
	f.selObs = make(map[string]bool, len(selObs))
	f.obsSys = make(map[byte]bool, len(selObs))
	for _, tok := range selObs {
		f.selObs[tok] = true
		f.obsSys[tok[0]] = true
	}
	return true
}

func validSysSatToken(m *rinexmodel.Model, tok string) bool {
	if tok == "" {
		return false
	}
	_, ok := m.Systems[tok[0]]
	return ok
}

func validObsToken(m *rinexmodel.Model, tok string) bool {
	// tokens look like "GC1C": system letter + observable code.
	if len(tok) < 2 {
		return false
	}
	sys, ok := m.Systems[tok[0]]
	if !ok {
		return false
	}
	obs := tok[1:]
	for _, o := range sys.Observables {
		if o == obs {
			return true
		}
	}
	return false
}

// acceptObs implements §4.9's observation filter: reject if the system
// isn't selected, the observable isn't selected, or the satellite isn't in
// the per-system selected-PRN list (empty selSysSat = accept all systems;
// empty selObs = accept all observables). The observable-type restriction
// only applies to systems actually named by a selObs token (§8 S6: selecting
// "GC1C" narrows GPS's observables but leaves every other system's
// observables unrestricted) -- a system with no selObs token of its own
// accepts all of its observables regardless of what was selected for
// other systems.
func (f *Filter) acceptObs(o rinexmodel.Observation) bool {
	if len(f.selSysSat) > 0 && !matchesSysSat(f.selSysSat, o.System, o.PRN) {
		return false
	}
	if f.obsSys[o.System] {
		tok := string(o.System) + o.Observable
		if !f.selObs[tok] {
			return false
		}
	}
	return true
}

func matchesSysSat(sel []string, sys byte, prn int) bool {
	for _, tok := range sel {
		if len(tok) == 0 || tok[0] != sys {
			continue
		}
		if len(tok) == 1 {
			return true // bare system letter matches every satellite (§4.9)
		}
		if tok[1:] == strconv.Itoa(prn) {
			return true
		}
	}
	return false
}

// acceptNav implements §4.9's navigation filter: a record survives if
// "system[PRN]" appears as a prefix in the selected list, with a bare
// system letter matching every satellite of that system.
func (f *Filter) acceptNav(n rinexmodel.NavRecord) bool {
	if len(f.selSysSat) == 0 {
		return true
	}
	token := string(n.System) + strconv.Itoa(n.PRN)
	for _, sel := range f.selSysSat {
		if sel == string(n.System) || strings.HasPrefix(token, sel) {
			return true
		}
	}
	return false
}

// Apply removes rejected observations and navigation records from m,
// applying the current selection (§4.9 "applied just before writing").
// Calling Apply twice in a row is a no-op the second time (§8 property 6).
func (f *Filter) Apply(m *rinexmodel.Model) {
	m.DeleteObsWhere(func(o rinexmodel.Observation) bool { return !f.acceptObs(o) })
	m.DeleteNavWhere(func(n rinexmodel.NavRecord) bool { return !f.acceptNav(n) })
}
