package alert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_PreventsAnnotation(t *testing.T) {
	r := NewRegistry()

	assert.True(t, r.PreventsAnnotation(NoAnnotation))
	assert.True(t, r.PreventsAnnotation(MinusStrand))
	assert.True(t, r.PreventsAnnotation(TooDivergent))
	assert.False(t, r.PreventsAnnotation(LowCoverage))
	assert.False(t, r.PreventsAnnotation(Code("not-a-real-code")))
}

func TestRegistry_Scopes(t *testing.T) {
	r := NewRegistry()

	k, ok := r.Lookup(NoAnnotation)
	require.True(t, ok)
	assert.Equal(t, SequenceScope, k.Scope)

	k, ok = r.Lookup(EarlyStop)
	require.True(t, ok)
	assert.Equal(t, FeatureScope, k.Scope)
}

func TestStore_DuplicateRejected(t *testing.T) {
	s := NewStore(NewRegistry())
	tgt := Target{Sequence: "seq1"}

	require.NoError(t, s.Add(Instance{Code: NoAnnotation, Target: tgt}))
	err := s.Add(Instance{Code: NoAnnotation, Target: tgt})
	require.Error(t, err)
}

func TestStore_UnknownCodeRejected(t *testing.T) {
	s := NewStore(NewRegistry())
	err := s.Add(Instance{Code: Code("bogus"), Target: Target{Sequence: "seq1"}})
	require.Error(t, err)
}

func TestStore_PreventsAnnotation(t *testing.T) {
	s := NewStore(NewRegistry())
	tgt := Target{Sequence: "seq1"}
	require.NoError(t, s.Add(Instance{Code: LowCoverage, Target: tgt}))
	assert.False(t, s.PreventsAnnotation("seq1"))

	require.NoError(t, s.Add(Instance{Code: MinusStrand, Target: tgt}))
	assert.True(t, s.PreventsAnnotation("seq1"))
}

func TestStore_ForFeature(t *testing.T) {
	s := NewStore(NewRegistry())
	require.NoError(t, s.Add(Instance{Code: EarlyStop, Target: Target{Sequence: "seq1", Feature: 1}}))
	require.NoError(t, s.Add(Instance{Code: NotMultipleOf3, Target: Target{Sequence: "seq1", Feature: 2}}))

	got := s.ForFeature("seq1", 1)
	require.Len(t, got, 1)
	assert.Equal(t, EarlyStop, got[0].Code)
}

func TestRegistry_Describe(t *testing.T) {
	r := NewRegistry()
	inst := Instance{Code: EarlyStop, Target: Target{Sequence: "seq1", Feature: 1}, Detail: "corrected-stop=303"}
	desc := r.Describe(inst)
	assert.Contains(t, desc, "early-stop")
	assert.Contains(t, desc, "corrected-stop=303")
}
