/*------------------------------------------------------------------------------
* serialio.go : peripheral live-receiver byte source
*
* Grounded on stream.go's OpenSerial: the same "port[:baud[:bits[:parity[:
* stopbits]]]]" path grammar, reduced to what a live OSP receiver actually
* needs (no TCP relay, no FTP/HTTP proxy -- those serve stream.go's wider
* multi-protocol stream abstraction, out of this system's scope per §1).
* go.bug.st/serial replaces the teacher's github.com/tarm/goserial, which is
* unmaintained; DESIGN.md records the substitution.
*-----------------------------------------------------------------------------*/
package serialio

import (
	"fmt"
	"strconv"
	"strings"

	"go.bug.st/serial"

	"github.com/fxuebin/osp2rnx/logx"
)

// defaultBaud mirrors stream.go's OpenSerial default bit rate when the path
// carries no explicit rate.
const defaultBaud = 9600

// Open parses path as "port[:baud[:bits[:parity[:stopbits]]]]" and opens the
// named serial port, returning an io.ReadWriteCloser the driver can hand to
// ospframe the same way it hands a *os.File.
func Open(log logx.Log, path string) (serial.Port, error) {
	if log == nil {
		log = logx.Discard()
	}
	port, mode := parsePath(path)
	p, err := serial.Open(port, mode)
	if err != nil {
		return nil, fmt.Errorf("serialio: open %q: %w", port, err)
	}
	log.Infof("serialio: opened %s at %d baud", port, mode.BaudRate)
	return p, nil
}

func parsePath(path string) (string, *serial.Mode) {
	fields := strings.Split(path, ":")
	mode := &serial.Mode{BaudRate: defaultBaud, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit}
	if len(fields) == 0 {
		return path, mode
	}
	if len(fields) > 1 {
		if b, err := strconv.Atoi(fields[1]); err == nil {
			mode.BaudRate = b
		}
	}
	if len(fields) > 2 {
		if b, err := strconv.Atoi(fields[2]); err == nil {
			mode.DataBits = b
		}
	}
	if len(fields) > 3 {
		switch strings.ToUpper(fields[3]) {
		case "E":
			mode.Parity = serial.EvenParity
		case "O":
			mode.Parity = serial.OddParity
		default:
			mode.Parity = serial.NoParity
		}
	}
	if len(fields) > 4 {
		if fields[4] == "2" {
			mode.StopBits = serial.TwoStopBits
		}
	}
	return fields[0], mode
}
