package serialio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.bug.st/serial"
)

func TestParsePathDefaults(t *testing.T) {
	port, mode := parsePath("/dev/ttyUSB0")
	assert.Equal(t, "/dev/ttyUSB0", port)
	assert.Equal(t, defaultBaud, mode.BaudRate)
	assert.Equal(t, 8, mode.DataBits)
	assert.Equal(t, serial.NoParity, mode.Parity)
	assert.Equal(t, serial.OneStopBit, mode.StopBits)
}

func TestParsePathBaudOnly(t *testing.T) {
	port, mode := parsePath("COM3:115200")
	assert.Equal(t, "COM3", port)
	assert.Equal(t, 115200, mode.BaudRate)
}

func TestParsePathFull(t *testing.T) {
	port, mode := parsePath("/dev/ttyS0:4800:7:E:2")
	assert.Equal(t, "/dev/ttyS0", port)
	assert.Equal(t, 4800, mode.BaudRate)
	assert.Equal(t, 7, mode.DataBits)
	assert.Equal(t, serial.EvenParity, mode.Parity)
	assert.Equal(t, serial.TwoStopBits, mode.StopBits)
}

func TestParsePathOddParity(t *testing.T) {
	_, mode := parsePath("/dev/ttyS0:9600:8:O")
	assert.Equal(t, serial.OddParity, mode.Parity)
}

func TestParsePathGarbageBaudKeepsDefault(t *testing.T) {
	_, mode := parsePath("/dev/ttyS0:notanumber")
	assert.Equal(t, defaultBaud, mode.BaudRate)
}
