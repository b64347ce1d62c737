/*------------------------------------------------------------------------------
* main.go : osp2rnx command-line driver
*
* Grounded on de-bkg-gognss/cmd/rnxgo's urfave/cli/v2 flag layout (SPEC_FULL.md
* §A.4), and on app/convbin.go's "thin main, one long run function" shape for
* what the teacher's own binary-to-RINEX converter looks like. The driver owns
* every open file and the byte source for the whole call (§5 "open files are
* owned by the driver"); the core packages never see an *os.File directly,
* only io.Reader/io.Writer.
*-----------------------------------------------------------------------------*/
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "osp2rnx",
		Usage: "convert a SiRF one-socket-protocol receiver log to RINEX and an RTKLIB position-solution text file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "input log file path (default: stdin)"},
			&cli.StringFlag{Name: "serial", Usage: `live serial port, "port[:baud[:bits[:parity[:stopbits]]]]"`},
			&cli.BoolFlag{Name: "framed", Usage: "input uses framed OSP messages (A0 A2 .. B0 B3); implied when --serial is set"},
			&cli.StringFlag{Name: "outdir", Aliases: []string{"o"}, Value: ".", Usage: "output directory"},
			&cli.StringFlag{Name: "prefix", Value: "STAT", Usage: "4-character station/file-name prefix"},
			&cli.StringFlag{Name: "rnxver", Value: "3.02", Usage: `target RINEX version, "2.10" or "3.02"`},
			&cli.IntFlag{Name: "minnsat", Value: 4, Usage: "minimum satellite count for a position fix to be accepted"},
			&cli.BoolFlag{Name: "applybias", Value: true, Usage: "fold the receiver clock bias into epoch time tags and observations"},
			&cli.StringFlag{Name: "satfilter", Usage: `comma-separated system/satellite tokens, e.g. "G,R5"`},
			&cli.StringFlag{Name: "obsfilter", Usage: `comma-separated system+observable tokens, e.g. "GC1C,GL1C"`},
			&cli.Float64Flag{Name: "interval", Usage: "nominal observation interval in seconds, for the header and file name"},
			&cli.BoolFlag{Name: "rtksol", Usage: "also emit an RTKLIB position-solution text file"},
			&cli.IntFlag{Name: "patience", Value: 4096, Usage: "bytes of slack the framed reader tolerates while resynchronizing"},
			&cli.StringFlag{Name: "agency", Usage: "OBSERVER / AGENCY agency field"},
			&cli.StringFlag{Name: "observer", Usage: "OBSERVER / AGENCY observer field"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
