/*------------------------------------------------------------------------------
* rtksol.go : RTKLIB position-solution text emitter (C10)
*
* Grounded on gnssgo/solution.go's OutSolHeader/OutEcef: the header comment
* line and the fixed-column x/y/z-ecef body line are the same shape, reduced
* to what this pipeline can actually report -- there is no estimator here,
* so standard-deviation, age and ratio are always the zero placeholders
* OutEcef would print for an unweighted fix.
*-----------------------------------------------------------------------------*/
package rtksol

import (
	"fmt"
	"io"

	"github.com/fxuebin/osp2rnx/gnsstime"
)

// Header carries the fixed facts the header comment block interpolates:
// position mode, the system/observable mask strings the filter engine
// validated, and the ephemeris source, plus the run's time span.
type Header struct {
	PosMode      string
	SysMask      string
	ObsMask      string
	EphSource    string
	StartWeek    int
	StartTOW     float64
	EndWeek      int
	EndTOW       float64
}

// Epoch is one position fix (§4.10): the core does not estimate
// standard-deviations, age or ratio, so the writer always emits the zero
// placeholders OutEcef prints for an unweighted solution.
type Epoch struct {
	Week    int
	TOW     float64
	X, Y, Z float64
	Quality int
	NSV     int
}

func timeStr(week int, tow float64) string {
	t := gnsstime.FromGPS(week, tow)
	year, mon, day, hour, min, sec := t.Calendar()
	return fmt.Sprintf("%04d/%02d/%02d %02d:%02d:%06.3f", year, mon, day, hour, min, sec)
}

// WriteHeader emits the RTKLIB-style comment header block, grounded on
// OutSolHeader's "%" comment lines and column-labeled field header.
func WriteHeader(w io.Writer, h Header) error {
	if _, err := fmt.Fprintf(w, "%% program   : osp2rnx\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%% pos mode  : %s\n", h.PosMode); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%% sys mask  : %s\n", h.SysMask); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%% obs mask  : %s\n", h.ObsMask); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%% ephemeris : %s\n", h.EphSource); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%% start     : %s GPST (week%04d %.3fs)\n",
		timeStr(h.StartWeek, h.StartTOW), h.StartWeek, h.StartTOW); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%% end       : %s GPST (week%04d %.3fs)\n",
		timeStr(h.EndWeek, h.EndTOW), h.EndWeek, h.EndTOW); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%%  %4s %10s %14s %14s %14s %3s %3s %8s %8s %8s %8s %8s %8s %6s %6s\n",
		"week", "tow(s)", "x-ecef(m)", "y-ecef(m)", "z-ecef(m)", "Q", "ns",
		"sdx(m)", "sdy(m)", "sdz(m)", "sdxy(m)", "sdyz(m)", "sdzx(m)", "age(s)", "ratio")
	return err
}

// WriteEpoch emits one position-solution line (§4.10): week, tow, x, y, z,
// quality, ns, then six zero standard-deviation placeholders, zero age and
// zero ratio -- the core reports a fix, not its uncertainty.
func WriteEpoch(w io.Writer, e Epoch) error {
	_, err := fmt.Fprintf(w, "%5d %10.3f %14.4f %14.4f %14.4f %3d %3d %8.4f %8.4f %8.4f %8.4f %8.4f %8.4f %6.2f %6.1f\n",
		e.Week, e.TOW, e.X, e.Y, e.Z, e.Quality, e.NSV, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0)
	return err
}
