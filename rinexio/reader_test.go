package rinexio

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fxuebin/osp2rnx/rinexmodel"
)

func TestReadObsHeaderV210SetsTargetAndObservables(t *testing.T) {
	m := rinexmodel.NewModel()
	w := newObsModel(rinexmodel.V210)
	var sb strings.Builder
	require.NoError(t, WriteObsHeader(&sb, nil, w))

	r := bufio.NewReader(strings.NewReader(sb.String()))
	require.NoError(t, ReadObsHeader(r, nil, m))
	assert.Equal(t, rinexmodel.V210, m.Target)
	sys := m.Systems['G']
	require.NotNil(t, sys)
	assert.ElementsMatch(t, []string{"C1C", "L1C", "D1C", "S1C"}, sys.Observables)
}

func TestReadObsHeaderV302ParsesApproxPos(t *testing.T) {
	m := rinexmodel.NewModel()
	w := newObsModel(rinexmodel.V302)
	var sb strings.Builder
	require.NoError(t, WriteObsHeader(&sb, nil, w))

	r := bufio.NewReader(strings.NewReader(sb.String()))
	require.NoError(t, ReadObsHeader(r, nil, m))
	pos, ok := m.Get(rinexmodel.LabelApproxPos)
	require.True(t, ok)
	v := pos.(Vec3)
	assert.InDelta(t, 100.0, v[0], 1e-6)
	assert.InDelta(t, 200.0, v[1], 1e-6)
	assert.InDelta(t, 300.0, v[2], 1e-6)
}

func TestReadObsHeaderUnknownLabelIsWarningNotAbort(t *testing.T) {
	w := newObsModel(rinexmodel.V210)
	var sb strings.Builder
	require.NoError(t, WriteObsHeader(&sb, nil, w))
	out := sb.String()
	// Splice in a bogus record the model has no label for, right before the
	// END OF HEADER line: the reader must log it and keep going rather than abort.
	eoh := strings.Repeat(" ", 60) + "END OF HEADER"
	injected := strings.Replace(out, eoh,
		"this pipeline knows nothing about this record"+strings.Repeat(" ", 15)+"SOME FUTURE LABEL\n"+eoh, 1)

	m := rinexmodel.NewModel()
	r := bufio.NewReader(strings.NewReader(injected))
	require.NoError(t, ReadObsHeader(r, nil, m))
	assert.Equal(t, rinexmodel.V210, m.Target)
}

func TestReadObsEpochBadFlagStatus(t *testing.T) {
	m := rinexmodel.NewModel()
	m.Target = rinexmodel.V302
	m.System('G')
	line := "> " + "2026" + " " + "01" + " " + "01" + " " + "00" + " " + "00" + " " + " 0.0000000" + "  " + "9" + "  1\n"
	r := bufio.NewReader(strings.NewReader(line))
	assert.Equal(t, StatusBadFlag, ReadObsEpoch(r, nil, m))
}

func TestReadObsEpochEndOfFile(t *testing.T) {
	m := rinexmodel.NewModel()
	r := bufio.NewReader(strings.NewReader(""))
	assert.Equal(t, StatusEndOfFile, ReadObsEpoch(r, nil, m))
}

func TestReadNavHeaderGlonassFileTypeSeedsSystem(t *testing.T) {
	m := rinexmodel.NewModel()
	body := "2.10           GLONASS NAV DATA                             RINEX VERSION / TYPE\n" +
		"                                                            END OF HEADER\n"
	r := bufio.NewReader(strings.NewReader(body))
	require.NoError(t, ReadNavHeader(r, nil, m, 'G'))
	assert.Equal(t, rinexmodel.V210, m.Target)
	_, ok := m.Systems['R']
	assert.True(t, ok)
}
