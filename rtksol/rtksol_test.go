package rtksol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteHeaderContainsColumnLabels(t *testing.T) {
	var sb strings.Builder
	h := Header{
		PosMode:   "single",
		SysMask:   "GR",
		ObsMask:   "C1C,L1C",
		EphSource: "OSP MID 15/70",
		StartWeek: 1800, StartTOW: 0,
		EndWeek: 1800, EndTOW: 86400,
	}
	require.NoError(t, WriteHeader(&sb, h))
	out := sb.String()
	assert.Contains(t, out, "x-ecef(m)")
	assert.Contains(t, out, "ratio")
	assert.Contains(t, out, "single")
	assert.Contains(t, out, "GR")
}

func TestWriteEpochFieldCount(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, WriteEpoch(&sb, Epoch{Week: 1800, TOW: 43200.0, X: 1, Y: 2, Z: 3, Quality: 1, NSV: 9}))
	line := strings.TrimRight(sb.String(), "\n")
	fields := strings.Fields(line)
	// week tow x y z Q ns + 6 sd placeholders + age + ratio = 15
	assert.Len(t, fields, 15)
	assert.Equal(t, "1800", fields[0])
	assert.Equal(t, "1", fields[5])
	assert.Equal(t, "9", fields[6])
	assert.Equal(t, "0.0000", fields[7])
	assert.Equal(t, "0.00", fields[13])
	assert.Equal(t, "0.0", fields[14])
}
