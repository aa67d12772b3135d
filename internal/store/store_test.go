package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmannotate/cmannotate/internal/align"
	"github.com/cmannotate/cmannotate/internal/alert"
	"github.com/cmannotate/cmannotate/internal/classify"
	"github.com/cmannotate/cmannotate/internal/feature"
	"github.com/cmannotate/cmannotate/internal/model"
	"github.com/cmannotate/cmannotate/internal/search"
)

func testModel() *model.Model {
	return &model.Model{
		Name:   "modelA",
		Length: 900,
		Features: []model.Feature{
			{Type: model.CodingRegion, TypeIndex: 1, Product: "polymerase"},
		},
	}
}

func TestStore_ClassifyAlignBuildVerdict(t *testing.T) {
	registry := alert.NewRegistry()
	s := New(registry)

	_, err := s.AddSequence("seq1", 900)
	require.NoError(t, err)

	rec := &search.ClassificationRecord{Sequence: "seq1"}
	decision := classify.Decision{Sequence: "seq1", Model: "modelA"}
	require.NoError(t, s.SetClassification("seq1", rec, decision))
	assert.Equal(t, "modelA", s.Sequence("seq1").Model)

	require.NoError(t, s.SetAligned("seq1"))
	assert.True(t, s.Sequence("seq1").Aligned)

	m := testModel()
	require.NoError(t, s.InitFeatures("seq1", m))
	require.Len(t, s.Sequence("seq1").Features, 1)

	segs := []align.SegmentResult{{SeqStart: 1, SeqStop: 900, Strand: model.Plus}}
	require.NoError(t, s.SetSegments("seq1", 0, segs, nil))

	buildRes := feature.Result{FeatureIndex: 0, Annotated: true, Nucleotides: "ATG...TAA"}
	require.NoError(t, s.SetBuild("seq1", m, 0, buildRes))

	ff := s.Sequence("seq1").Features[0]
	assert.True(t, ff.Annotated)
	assert.Equal(t, 1, ff.NStart)
	assert.Equal(t, 900, ff.NStop)
	assert.Equal(t, model.Plus, ff.NStrand)

	pass, reasons := s.Verdict("seq1")
	assert.True(t, pass)
	assert.Empty(t, reasons)
}

func TestStore_SetBuild_MinusStrandUsesOuterSpan(t *testing.T) {
	registry := alert.NewRegistry()
	s := New(registry)
	_, err := s.AddSequence("seq1", 900)
	require.NoError(t, err)

	m := &model.Model{
		Name: "modelA",
		Features: []model.Feature{
			{Type: model.CodingRegion, TypeIndex: 1, Segments: []model.Segment{
				{Start: 1, Stop: 900, Strand: model.Minus, FeatureIndex: 0},
			}},
		},
	}
	require.NoError(t, s.InitFeatures("seq1", m))

	segs := []align.SegmentResult{
		{SeqStart: 900, SeqStop: 1, Strand: model.Minus},
	}
	require.NoError(t, s.SetSegments("seq1", 0, segs, nil))

	res := feature.Result{FeatureIndex: 0, Annotated: true}
	require.NoError(t, s.SetBuild("seq1", m, 0, res))

	ff := s.Sequence("seq1").Features[0]
	assert.Equal(t, model.Minus, ff.NStrand)
	assert.Equal(t, 1, ff.NStart)
	assert.Equal(t, 900, ff.NStop)
}

func TestStore_Verdict_FailsOnAlert(t *testing.T) {
	registry := alert.NewRegistry()
	s := New(registry)
	_, err := s.AddSequence("seq1", 900)
	require.NoError(t, err)

	m := testModel()
	require.NoError(t, s.InitFeatures("seq1", m))
	segs := []align.SegmentResult{{SeqStart: 1, SeqStop: 900, Strand: model.Plus}}
	require.NoError(t, s.SetSegments("seq1", 0, segs, nil))

	res := feature.Result{
		FeatureIndex: 0,
		Annotated:    true,
		Alerts:       []alert.Instance{{Code: alert.InvalidStart, Target: alert.Target{Sequence: "seq1", Feature: 1}}},
	}
	require.NoError(t, s.SetBuild("seq1", m, 0, res))

	pass, reasons := s.Verdict("seq1")
	assert.False(t, pass)
	require.Len(t, reasons, 1)
	assert.Equal(t, alert.InvalidStart, reasons[0].Code)
}

func TestStore_FinalizeZeroFeatureAlerts(t *testing.T) {
	registry := alert.NewRegistry()
	s := New(registry)
	_, err := s.AddSequence("seq1", 900)
	require.NoError(t, err)

	m := testModel()
	require.NoError(t, s.InitFeatures("seq1", m))
	require.NoError(t, s.FinalizeZeroFeatureAlerts(registry))

	pass, reasons := s.Verdict("seq1")
	assert.False(t, pass)
	require.Len(t, reasons, 1)
	assert.Equal(t, alert.ZeroFeaturesAnnotated, reasons[0].Code)
}

func TestStore_FinalizeZeroFeatureAlerts_SkipsPreventedSequences(t *testing.T) {
	registry := alert.NewRegistry()
	s := New(registry)
	_, err := s.AddSequence("seq1", 900)
	require.NoError(t, err)

	decision := classify.Decision{Sequence: "seq1", Alerts: []alert.Instance{
		{Code: alert.NoAnnotation, Target: alert.Target{Sequence: "seq1"}},
	}}
	require.NoError(t, s.SetClassification("seq1", &search.ClassificationRecord{Sequence: "seq1"}, decision))
	require.NoError(t, s.FinalizeZeroFeatureAlerts(registry))

	assert.False(t, s.Alerts.Has(alert.ZeroFeaturesAnnotated, alert.Target{Sequence: "seq1"}))
}

func TestStore_AddParentHasError_Idempotent(t *testing.T) {
	registry := alert.NewRegistry()
	s := New(registry)
	_, err := s.AddSequence("seq1", 900)
	require.NoError(t, err)

	require.NoError(t, s.AddParentHasError("seq1", 2))
	require.NoError(t, s.AddParentHasError("seq1", 2))

	insts := s.Alerts.ForFeature("seq1", 2)
	require.Len(t, insts, 1)
	assert.Equal(t, alert.ParentHasError, insts[0].Code)
}
