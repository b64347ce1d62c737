package rinexmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderTableHasSingleVersionAndEOH(t *testing.T) {
	m := NewModel()
	count := 0
	for _, h := range m.Headers {
		if h.Label == LabelVersion {
			count++
		}
	}
	assert.Equal(t, 1, count)
	eoh, ok := m.Headers[len(m.Headers)-1], true
	assert.Equal(t, LabelEndOfHeader, eoh.Label)
	assert.True(t, ok)
	assert.True(t, eoh.HasData, `"has data" flag of EOH is always true (§3)`)
}

func TestLabelCursorSkipsNoData(t *testing.T) {
	m := NewModel()
	m.Set(LabelMarkerName, "TEST")
	i := m.FirstLabel()
	require.GreaterOrEqual(t, i, 0)
	assert.Equal(t, LabelMarkerName, m.Headers[i].Label)
}

func TestAppendNavUniqueness(t *testing.T) {
	m := NewModel()
	nav := NavRecord{TimeTag: 100, System: 'G', PRN: 5}
	assert.True(t, m.AppendNav(nav))
	assert.False(t, m.AppendNav(nav), "duplicate (time,system,sat) must be rejected")
	assert.Len(t, m.Nav, 1)
}

func TestSortObsOrdering(t *testing.T) {
	m := NewModel()
	m.AppendObs(Observation{TimeTag: 1, System: 'R', PRN: 1, Observable: "C1C"})
	m.AppendObs(Observation{TimeTag: 1, System: 'G', PRN: 2, Observable: "L1C"})
	m.AppendObs(Observation{TimeTag: 1, System: 'G', PRN: 1, Observable: "C1C"})
	m.SortObs()
	assert.Equal(t, byte('G'), m.Obs[0].System)
	assert.Equal(t, 1, m.Obs[0].PRN)
	assert.Equal(t, byte('G'), m.Obs[1].System)
	assert.Equal(t, 2, m.Obs[1].PRN)
	assert.Equal(t, byte('R'), m.Obs[2].System)
}

func TestDeleteObsWhere(t *testing.T) {
	m := NewModel()
	m.AppendObs(Observation{System: 'G', PRN: 1})
	m.AppendObs(Observation{System: 'R', PRN: 2})
	m.DeleteObsWhere(func(o Observation) bool { return o.System == 'R' })
	assert.Len(t, m.Obs, 1)
	assert.Equal(t, byte('G'), m.Obs[0].System)
}

func TestV2V3TranslationBidirectional(t *testing.T) {
	assert.Equal(t, "L1C", V2V3Translation["L1"])
	assert.Equal(t, "L1", V3ToV2["L1C"])
}
