/*------------------------------------------------------------------------------
* filename.go : RINEX file-name construction (§6)
*
* No pack repo implements the V3.02 long file-name convention (renix.go's
* RepPath is a keyword-substitution template for arbitrary file paths, not
* this naming scheme); authored directly from §6's field tables and cross-
* checked against §8 scenario S5. Pure function of header facts, per §4.8
* "File-name construction is pure".
*-----------------------------------------------------------------------------*/
package rinexio

import (
	"fmt"

	"github.com/fxuebin/osp2rnx/gnsstime"
	"github.com/fxuebin/osp2rnx/rinexmodel"
)

// dayOfYear returns the 1-based day-of-year for t.
func dayOfYear(t gnsstime.Time) int {
	year, mon, day, _, _, _ := t.Calendar()
	cum := [12]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334}
	doy := cum[mon-1] + day
	if mon > 2 && year%4 == 0 {
		doy++
	}
	return doy
}

// hourLetter maps an hour-of-day (0-23) to the V2.10 file-name session
// letter: 'a' for hour 0, 'b' for hour 1, ..., per §6.
func hourLetter(hour int) byte {
	return byte('a' + hour%24)
}

// FileNameV210 builds a V2.10 file name: NNNN{DOY:03}{H}{MM:02}.{YY:02}{T}.
func FileNameV210(prefix string, week int, tow float64, fileType byte) string {
	t := gnsstime.FromGPS(week, tow)
	year, _, _, hour, min, _ := t.Calendar()
	doy := dayOfYear(t)
	return fmt.Sprintf("%s%03d%c%02d.%02d%c", prefix, doy, hourLetter(hour), min, year%100, fileType)
}

// periodUnit returns the (value, unit) pair V3.02's file-name file-period
// field uses for a TOFO-TOLO span in seconds; §6 restricts this field's
// unit to {Y,D,H,M,U} (no seconds -- file periods are never sub-minute).
func periodUnit(seconds float64) (int, byte) {
	switch {
	case seconds <= 0:
		return 0, 'U'
	case seconds < 3600:
		return int(seconds / 60), 'M'
	case seconds < 86400:
		return int(seconds / 3600), 'H'
	case seconds < 86400*366:
		return int(seconds / 86400), 'D'
	default:
		return int(seconds / (86400 * 365)), 'Y'
	}
}

// FileNameV302 builds a V3.02 long file name per §6:
// NNNNMR{CCC}_R_{YYYY}{DOY:03}{HH}{MM}_{PP}{PU}_{FF}{FU}_{C}{T}.rnx
func FileNameV302(prefix, monumentReceiver, countryCode string, week int, tow float64, interval, spanSeconds float64, sys byte, fileType byte) string {
	t := gnsstime.FromGPS(week, tow)
	year, _, _, hour, min, _ := t.Calendar()
	doy := dayOfYear(t)

	pu, puUnit := periodUnit(spanSeconds)
	fu, fuUnit := dataRateUnit(interval)

	return fmt.Sprintf("%s%s%s_R_%04d%03d%02d%02d_%02d%c_%02d%c_%c%c.rnx",
		prefix, monumentReceiver, countryCode, year, doy, hour, min, pu, puUnit, fu, fuUnit, sys, fileType)
}

// dataRateUnit returns the (value, unit) pair for the file-name data-rate
// field from an observation interval in seconds.
func dataRateUnit(interval float64) (int, byte) {
	switch {
	case interval <= 0:
		return 0, 'U'
	case interval < 1:
		return int(1.0 / interval), 'Z' // Hz-like, sub-second rate
	case interval < 60:
		return int(interval), 'S'
	case interval < 3600:
		return int(interval / 60), 'M'
	case interval < 86400:
		return int(interval / 3600), 'H'
	default:
		return int(interval / 86400), 'D'
	}
}

// SysLetter returns the single-system letter ('M' if more than one system
// is populated) used by both the V3.02 file name and the VERSION header
// record (§6).
func SysLetter(m *rinexmodel.Model) byte { return sysFileLetter(m) }
