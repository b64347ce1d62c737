/*------------------------------------------------------------------------------
* ospframe.go : OSP frame reader (C2)
*
* Grounded on gnssgo/crescent.go's Input_cresf byte-wise framing (4-byte
* sliding-window sync, length read from the header, payload read in one
* shot) and on gnssgo/stream.go's byte-source abstraction, adapted to the
* SiRF "one socket protocol" A0 A2 .. B0 B3 frame and to the stripped
* length-prefixed file variant of §4.2/§6.
*-----------------------------------------------------------------------------*/
package ospframe

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/fxuebin/osp2rnx/logx"
)

const (
	maxPayload = 2048 // MAX_PAYLOAD (§5 resource policy)
	sync1      = 0xA0
	sync2      = 0xA2
	end1       = 0xB0
	end2       = 0xB3
)

var (
	// ErrBadLength is returned when a declared payload length is zero or
	// exceeds MAX_PAYLOAD.
	ErrBadLength = errors.New("ospframe: bad length")
	// ErrBadChecksum is returned when a framed message's checksum does not
	// match its payload.
	ErrBadChecksum = errors.New("ospframe: bad checksum")
	// ErrSyncLost is returned when the framed reader exhausts its patience
	// budget without finding the A0 A2 synchronization sequence.
	ErrSyncLost = errors.New("ospframe: sync lost")
	// ErrTruncated is returned on a short read anywhere inside a frame.
	ErrTruncated = errors.New("ospframe: truncated")
)

// ReadStripped reads one message from an already-decapsulated stream: a
// big-endian uint16 length followed by that many payload bytes (§4.2
// "stripped mode").
func ReadStripped(r io.Reader) ([]byte, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, ErrTruncated
	}
	length := int(binary.BigEndian.Uint16(lenBuf[:]))
	if length == 0 || length > maxPayload {
		return nil, ErrBadLength
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, ErrTruncated
	}
	return payload, nil
}

// syncState is the three-state automaton §4.2 requires for A0 A2
// synchronization, kept as three distinct states (the teacher's OSP-like
// decoders in gnssgo/*.go fold sync into a sliding 2/4-byte window with a
// one-state loop; this spec explicitly wants the states separated, see §9
// design note on the source's fall-through bug).
type syncState int

const (
	waitSync1 syncState = iota
	waitSync2
	synced
)

// FrameReader reads SiRF OSP frames (A0 A2 | len | payload | checksum |
// B0 B3) from a live or file byte source (§4.2 "framed mode").
type FrameReader struct {
	r        io.Reader
	patience int
	log      logx.Log
}

// NewFrameReader wraps r. patience bounds how many bytes one
// synchronization search may read before giving up with ErrSyncLost (zero
// or negative means no bound); a failed read ends the search with io.EOF.
func NewFrameReader(r io.Reader, patience int, log logx.Log) *FrameReader {
	if log == nil {
		log = logx.Discard()
	}
	return &FrameReader{r: r, patience: patience, log: log}
}

func (f *FrameReader) readByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(f.r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// synchronize advances the byte source to the first byte following an A0 A2
// sequence, using a three-state automaton: waitSync1 looks for 0xA0,
// waitSync2 looks for 0xA2 (staying in waitSync2 on another 0xA0 and
// falling back to waitSync1 on any other byte), synced is the terminal state.
func (f *FrameReader) synchronize() error {
	state := waitSync1
	tries := 0
	for {
		if f.patience > 0 && tries >= f.patience {
			return ErrSyncLost
		}
		b, err := f.readByte()
		if err != nil {
			return io.EOF
		}
		tries++
		switch state {
		case waitSync1:
			if b == sync1 {
				state = waitSync2
			}
		case waitSync2:
			if b == sync2 {
				state = synced
			} else if b != sync1 {
				state = waitSync1
			}
			// b == sync1 again: stay in waitSync2, matches a repeated 0xA0.
		}
		if state == synced {
			return nil
		}
	}
}

// ReadFrame reads one framed message. The checksum is the sum of payload
// bytes modulo 0x8000 (§4.2/§6); a mismatch returns ErrBadChecksum with the
// byte source left positioned past the bad frame.
func (f *FrameReader) ReadFrame() ([]byte, error) {
	if err := f.synchronize(); err != nil {
		return nil, err
	}
	var lenBuf [2]byte
	if _, err := io.ReadFull(f.r, lenBuf[:]); err != nil {
		return nil, ErrTruncated
	}
	length := int(binary.BigEndian.Uint16(lenBuf[:]))
	if length == 0 || length > maxPayload {
		return nil, ErrBadLength
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(f.r, payload); err != nil {
		return nil, ErrTruncated
	}
	var trailer [4]byte // checksum(2) + B0 B3
	if _, err := io.ReadFull(f.r, trailer[:]); err != nil {
		return nil, ErrTruncated
	}
	checksum := binary.BigEndian.Uint16(trailer[0:2])
	var sum uint32
	for _, b := range payload {
		sum += uint32(b)
	}
	if uint16(sum%0x8000) != checksum {
		f.log.Warnf("ospframe: checksum mismatch: got %#04x want %#04x", sum%0x8000, checksum)
		return nil, ErrBadChecksum
	}
	if trailer[2] != end1 || trailer[3] != end2 {
		f.log.Warnf("ospframe: missing frame trailer after payload")
	}
	return payload, nil
}
