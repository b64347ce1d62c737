/*------------------------------------------------------------------------------
* gnsstime.go : gps-week/time-of-week time representation
*
* Grounded on gnssgo/common.go (Gtime, Epoch2Time, Time2Epoch, GpsT2Time,
* Time2GpsT, TimeAdd, TimeDiff) rewritten for the extended-week, TOW-seconds
* time tag this system carries through C3/C5/C6/C10.
*-----------------------------------------------------------------------------*/
package gnsstime

import "math"

// Time is an instant expressed as whole seconds since 1970-01-01 00:00:00
// UTC (ignoring leap seconds, matching GPS time's continuous count) plus a
// sub-second fraction. It is the common currency between the nav-subframe
// assembler, the message dispatcher, and the RINEX data model.
type Time struct {
	Sec uint64  // whole seconds since the 1970 epoch
	Frac float64 // fractional second, 0 <= Frac < 1
}

var gpsEpoch = Epoch(1980, 1, 6, 0, 0, 0)

// Epoch builds a Time from a calendar date and time-of-day, mirroring
// Epoch2Time's day-count arithmetic (valid 1970-2099).
func Epoch(year, mon, day, hour, min int, sec float64) Time {
	doy := [12]int{1, 32, 60, 91, 121, 152, 182, 213, 244, 274, 305, 335}
	if year < 1970 || year > 2099 || mon < 1 || mon > 12 {
		return Time{}
	}
	days := (year-1970)*365 + (year-1969)/4 + doy[mon-1] + day - 2
	if year%4 == 0 && mon >= 3 {
		days++
	}
	whole := int(math.Floor(sec))
	return Time{
		Sec:  uint64(days*86400 + hour*3600 + min*60 + whole),
		Frac: sec - float64(whole),
	}
}

// Calendar decomposes t back into {year, month, day, hour, min, sec}.
func (t Time) Calendar() (year, mon, day, hour, min int, sec float64) {
	mdays := [48]int{
		31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31,
		31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31,
		31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31,
		31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31,
	}
	days := int(t.Sec / 86400)
	rem := int(t.Sec - uint64(days)*86400)
	m := 0
	d := days % 1461
	for ; m < 48; m++ {
		if d >= mdays[m] {
			d -= mdays[m]
		} else {
			break
		}
	}
	year = 1970 + days/1461*4 + m/12
	mon = m%12 + 1
	day = d + 1
	hour = rem / 3600
	min = rem % 3600 / 60
	sec = float64(rem%60) + t.Frac
	return
}

// FromGPS converts an extended GPS week number and time-of-week (seconds)
// into a Time, following GpsT2Time.
func FromGPS(week int, tow float64) Time {
	t := gpsEpoch
	if tow < -1e9 || tow > 1e9 {
		tow = 0
	}
	whole := int(tow)
	t.Sec += uint64(86400*7*week) + uint64(whole)
	t.Frac = tow - float64(whole)
	return t
}

// ToGPS returns the extended GPS week and time-of-week for t, following
// Time2GpsT.
func ToGPS(t Time) (week int, tow float64) {
	delta := t.Sec - gpsEpoch.Sec
	week = int(delta / (86400 * 7))
	tow = float64(delta) - float64(week*86400*7) + t.Frac
	return
}

// Add returns t advanced by sec seconds (sec may be negative), following
// TimeAdd.
func Add(t Time, sec float64) Time {
	t.Frac += sec
	whole := math.Floor(t.Frac)
	// whole may be negative; adjust Sec with care since it's unsigned.
	if whole >= 0 {
		t.Sec += uint64(whole)
	} else {
		t.Sec -= uint64(-whole)
	}
	t.Frac -= whole
	return t
}

// Diff returns t1-t2 in seconds, following TimeDiff.
func Diff(t1, t2 Time) float64 {
	return float64(t1.Sec) - float64(t2.Sec) + t1.Frac - t2.Frac
}

// Seconds returns the time tag as seconds-since-GPS-epoch used as the
// observation/navigation record sort key (§3 DATA MODEL).
func Seconds(t Time) float64 {
	return Diff(t, gpsEpoch)
}

// FromSeconds is the inverse of Seconds.
func FromSeconds(s float64) Time {
	return Add(gpsEpoch, s)
}

// ResolveWeek recovers a full GPS week from a 10-bit transmitted week
// (txWeek, 0-1023) given a reference week known to be within one rollover
// of the true value, following renix.go's AdjWeek week-handover rule
// generalized from the time domain to the week-number domain.
func ResolveWeek(txWeek, refWeek int) int {
	week := refWeek - refWeek%1024 + txWeek
	if week-refWeek > 512 {
		week -= 1024
	} else if refWeek-week > 512 {
		week += 1024
	}
	return week
}

// Before reports whether t1 strictly precedes t2.
func Before(t1, t2 Time) bool {
	return Diff(t1, t2) < 0
}

// AdjustDay nudges t by whole days so it falls within twelve hours of ref,
// following renix.go's AdjDay day-handover rule (the day-domain analog of
// AdjWeek/ResolveWeek): used when only a time-of-day is known and the
// calendar day must be inferred from a nearby reference instant.
func AdjustDay(t, ref Time) Time {
	tt := Diff(t, ref)
	if tt < -43200.0 {
		return Add(t, 86400.0)
	}
	if tt > 43200.0 {
		return Add(t, -86400.0)
	}
	return t
}
