package classify

import (
	"testing"

	"github.com/cmannotate/cmannotate/internal/alert"
	"github.com/cmannotate/cmannotate/internal/model"
	"github.com/cmannotate/cmannotate/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkHit(from, to int, strand model.Strand, score, bias float64) search.Hit {
	return search.Hit{SeqFrom: from, SeqTo: to, Strand: strand, Score: score, Bias: bias}
}

func TestClassify_NoAnnotation_NoPass1Hit(t *testing.T) {
	registry := alert.NewRegistry()
	rec := &search.ClassificationRecord{Sequence: "seq1"}
	d, err := Classify(rec, 1000, DefaultThresholds(), registry)
	require.NoError(t, err)
	require.Len(t, d.Alerts, 1)
	assert.Equal(t, alert.NoAnnotation, d.Alerts[0].Code)
	assert.True(t, d.Prevented(registry))
}

func TestClassify_NoAnnotation_Pass1WithoutPass2(t *testing.T) {
	registry := alert.NewRegistry()
	rec := &search.ClassificationRecord{
		Sequence:          "seq1",
		BestOverallPass1: &search.ModelHits{Model: "modelX", Hits: []search.Hit{mkHit(1, 900, model.Plus, 500, 1)}},
	}
	d, err := Classify(rec, 900, DefaultThresholds(), registry)
	require.NoError(t, err)
	require.Len(t, d.Alerts, 1)
	assert.Equal(t, alert.NoAnnotation, d.Alerts[0].Code)
}

func TestClassify_Clean(t *testing.T) {
	registry := alert.NewRegistry()
	rec := &search.ClassificationRecord{
		Sequence:          "seq1",
		BestOverallPass1: &search.ModelHits{Model: "modelX", Hits: []search.Hit{mkHit(1, 900, model.Plus, 900, 1)}},
		BestInPass2:      &search.ModelHits{Model: "modelX", Hits: []search.Hit{mkHit(1, 900, model.Plus, 900, 1)}},
	}
	d, err := Classify(rec, 900, DefaultThresholds(), registry)
	require.NoError(t, err)
	assert.Empty(t, d.Alerts)
	assert.Equal(t, "modelX", d.Model)
}

func TestClassify_MinusStrand(t *testing.T) {
	registry := alert.NewRegistry()
	rec := &search.ClassificationRecord{
		Sequence:          "seq1",
		BestOverallPass1: &search.ModelHits{Model: "modelX", Hits: []search.Hit{mkHit(1, 900, model.Minus, 900, 1)}},
		BestInPass2:      &search.ModelHits{Model: "modelX", Hits: []search.Hit{mkHit(1, 900, model.Minus, 900, 1)}},
	}
	d, err := Classify(rec, 900, DefaultThresholds(), registry)
	require.NoError(t, err)
	require.Len(t, d.Alerts, 1)
	assert.Equal(t, alert.MinusStrand, d.Alerts[0].Code)
	assert.True(t, d.Prevented(registry))
}

func TestClassify_LowScoreVsVeryLowScore(t *testing.T) {
	registry := alert.NewRegistry()

	// score/nt = 250/1000 = 0.25: below low(0.3), above very-low(0.2).
	rec := &search.ClassificationRecord{
		Sequence:          "seq1",
		BestOverallPass1: &search.ModelHits{Model: "modelX", Hits: []search.Hit{mkHit(1, 1000, model.Plus, 250, 0)}},
		BestInPass2:      &search.ModelHits{Model: "modelX", Hits: []search.Hit{mkHit(1, 1000, model.Plus, 250, 0)}},
	}
	d, err := Classify(rec, 1000, DefaultThresholds(), registry)
	require.NoError(t, err)
	codes := codesOf(d.Alerts)
	assert.Contains(t, codes, alert.LowScore)
	assert.NotContains(t, codes, alert.VeryLowScore)

	// score/nt = 150/1000 = 0.15: below very-low(0.2). Only very-low fires.
	rec.BestInPass2.Hits[0].Score = 150
	rec.BestOverallPass1.Hits[0].Score = 150
	d, err = Classify(rec, 1000, DefaultThresholds(), registry)
	require.NoError(t, err)
	codes = codesOf(d.Alerts)
	assert.Contains(t, codes, alert.VeryLowScore)
	assert.NotContains(t, codes, alert.LowScore, "very-low-score supersedes low-score")
}

func TestClassify_UnexpectedSubgroupNotGroup(t *testing.T) {
	registry := alert.NewRegistry()
	// Scenario 4 from spec.md §8: best-overall and best-in-group are the
	// same model (group matches), but best-in-subgroup is a worse model.
	rec := &search.ClassificationRecord{
		Sequence:          "seq1",
		BestOverallPass1: &search.ModelHits{Model: "modelG", Hits: []search.Hit{mkHit(1, 1000, model.Plus, 900, 1)}},
		BestInPass2:      &search.ModelHits{Model: "modelG", Hits: []search.Hit{mkHit(1, 1000, model.Plus, 900, 1)}},
		BestInGroupPass1: &search.ModelHits{Model: "modelG", Hits: []search.Hit{mkHit(1, 1000, model.Plus, 900, 1)}},
		BestInSubgroupPass1: &search.ModelHits{Model: "modelOther", Hits: []search.Hit{mkHit(1, 1000, model.Plus, 500, 1)}},
	}
	d, err := Classify(rec, 1000, DefaultThresholds(), registry)
	require.NoError(t, err)
	codes := codesOf(d.Alerts)
	assert.Contains(t, codes, alert.UnexpectedSubgroup)
	assert.NotContains(t, codes, alert.UnexpectedGroup)
}

func TestThresholds_ValidateInvariant(t *testing.T) {
	bad := DefaultThresholds()
	bad.VeryLowScore = bad.LowScore
	require.Error(t, bad.Validate())
}

func codesOf(insts []alert.Instance) []alert.Code {
	out := make([]alert.Code, len(insts))
	for i, a := range insts {
		out[i] = a.Code
	}
	return out
}
