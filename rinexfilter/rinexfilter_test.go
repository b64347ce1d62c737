package rinexfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fxuebin/osp2rnx/rinexmodel"
)

func buildModel() *rinexmodel.Model {
	m := rinexmodel.NewModel()
	g := m.System('G')
	g.Observables = []string{"C1C", "L1C"}
	r := m.System('R')
	r.Observables = []string{"C1C", "L1C"}
	m.AppendObs(rinexmodel.Observation{System: 'G', PRN: 1, Observable: "C1C"})
	m.AppendObs(rinexmodel.Observation{System: 'G', PRN: 1, Observable: "L1C"})
	m.AppendObs(rinexmodel.Observation{System: 'R', PRN: 2, Observable: "C1C"})
	return m
}

// S6 from spec §8: set_filter([], ["GC1C"]) then write V3.02: records with
// sys=R are emitted; records with sys=G, obs=L1C are dropped.
func TestSetFilterS6(t *testing.T) {
	m := buildModel()
	f := New(nil)
	ok := f.SetFilter(m, nil, []string{"GC1C"})
	require.True(t, ok)
	f.Apply(m)
	require.Len(t, m.Obs, 2)
	for _, o := range m.Obs {
		if o.System == 'G' {
			assert.Equal(t, "C1C", o.Observable)
		}
	}
}

func TestSetFilterRejectsUnknownTokenWithoutClearingState(t *testing.T) {
	m := buildModel()
	f := New(nil)
	require.True(t, f.SetFilter(m, nil, []string{"GC1C"}))
	ok := f.SetFilter(m, nil, []string{"XYZ"})
	assert.False(t, ok)
	// previously validated state must survive the failed call
	f.Apply(m)
	for _, o := range m.Obs {
		if o.System == 'G' {
			assert.Equal(t, "C1C", o.Observable)
		}
	}
}

func TestFilterIdempotence(t *testing.T) {
	m1 := buildModel()
	m2 := buildModel()
	f := New(nil)
	require.True(t, f.SetFilter(m1, []string{"G"}, nil))
	require.True(t, f.SetFilter(m2, []string{"G"}, nil))
	f.Apply(m1)
	f.Apply(m2)
	f.Apply(m2) // second pass must be a no-op
	assert.Equal(t, m1.Obs, m2.Obs)
}

func TestNavFilterBareSystemMatchesAll(t *testing.T) {
	m := rinexmodel.NewModel()
	m.System('G')
	m.System('R')
	m.AppendNav(rinexmodel.NavRecord{System: 'G', PRN: 1})
	m.AppendNav(rinexmodel.NavRecord{System: 'G', PRN: 5})
	m.AppendNav(rinexmodel.NavRecord{System: 'R', PRN: 2})
	f := New(nil)
	require.True(t, f.SetFilter(m, []string{"G"}, nil))
	f.Apply(m)
	assert.Len(t, m.Nav, 2)
}
