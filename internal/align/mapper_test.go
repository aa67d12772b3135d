package align

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cmannotate/cmannotate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildCleanAlignment builds a gap-free, fully-aligned modelLen-column
// alignment: model positions 1..modelLen map one-to-one to sequence
// positions 1..modelLen.
func buildCleanAlignment(modelLen, seqLen int) Alignment {
	cols := make([]Column, modelLen)
	for i := 0; i < modelLen; i++ {
		cols[i] = Column{ModelPos: i + 1, SeqPos: i + 1, PP: '9'}
	}
	return Alignment{Sequence: "seq1", Model: "modelX", ModelLength: modelLen, SeqLength: seqLen, Columns: cols}
}

func cdsFeature(start, stop int, strand model.Strand) *model.Feature {
	f := &model.Feature{
		Type:     model.CodingRegion,
		Segments: []model.Segment{{Start: start, Stop: stop, Strand: strand, FeatureIndex: 0}},
	}
	return f
}

func TestMapFeature_CleanFullLengthCDS(t *testing.T) {
	aln := buildCleanAlignment(10, 10)
	f := cdsFeature(1, 10, model.Plus)

	results, instances, err := MapFeature(aln, f, DefaultMinPP, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].NoHit)
	assert.Equal(t, 1, results[0].SeqStart)
	assert.Equal(t, 10, results[0].SeqStop)
	assert.True(t, results[0].FiveFlush)
	assert.True(t, results[0].ThreeFlush)
	assert.False(t, results[0].FiveTruncated)
	assert.False(t, results[0].ThreeTruncated)
	assert.Empty(t, instances)
}

func TestMapFeature_FivePrimeTruncated(t *testing.T) {
	// Model positions 1-2 align to gaps (the sequence itself is too short to
	// reach them); the rest align cleanly. Sequence is flush (position 1 is
	// the sequence's first base, landing on model position 3).
	cols := []Column{
		{ModelPos: 1, SeqPos: 0},
		{ModelPos: 2, SeqPos: 0},
		{ModelPos: 3, SeqPos: 1, PP: '9'},
		{ModelPos: 4, SeqPos: 2, PP: '9'},
		{ModelPos: 5, SeqPos: 3, PP: '9'},
	}
	aln := Alignment{Sequence: "seq1", Model: "modelX", ModelLength: 5, SeqLength: 3, Columns: cols}
	f := cdsFeature(1, 5, model.Plus)

	results, instances, err := MapFeature(aln, f, DefaultMinPP, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].SeqStart)
	assert.True(t, results[0].FiveFlush)
	assert.True(t, results[0].FiveTruncated, "sequence starts flush but at model position 3, not the nominal start 1")
	assert.Empty(t, instances, "truncation suppresses the gap/low-pp boundary alert")
}

func TestMapFeature_GapAtBoundary(t *testing.T) {
	// A leading insert (5' overhang, unattached to any model position) pushes
	// the sequence position consumed by model position 1's own column off of
	// 1, so the segment is not flush there even though model position 1
	// itself aligns to a gap. Only in that case is it a genuine boundary gap
	// rather than a truncation.
	cols := []Column{{ModelPos: 0, SeqPos: 1, PP: '9'}, {ModelPos: 1, SeqPos: 0}}
	for r := 2; r <= 10; r++ {
		cols = append(cols, Column{ModelPos: r, SeqPos: r, PP: '9'})
	}
	aln := Alignment{Sequence: "seq1", Model: "modelX", ModelLength: 10, SeqLength: 10, Columns: cols}
	f := cdsFeature(1, 10, model.Plus)

	results, instances, err := MapFeature(aln, f, DefaultMinPP, 1)
	require.NoError(t, err)
	assert.True(t, results[0].FiveBoundaryGap)
	assert.False(t, results[0].FiveFlush)
	assert.False(t, results[0].FiveTruncated)
	require.Len(t, instances, 1)
	assert.Equal(t, "gap-at-5prime-boundary", string(instances[0].Code))
}

func TestMapFeature_LowPPAtBoundary(t *testing.T) {
	aln := buildCleanAlignment(10, 10)
	aln.Columns[0].PP = '2' // probability 0.20, below the 0.8 default threshold
	f := cdsFeature(1, 10, model.Plus)

	results, instances, err := MapFeature(aln, f, DefaultMinPP, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.20, results[0].FivePP, 0.0001)
	require.Len(t, instances, 1)
	assert.Equal(t, "low-pp-at-5prime-boundary", string(instances[0].Code))
}

func TestMapFeature_InternalSegmentBoundaryNotReported(t *testing.T) {
	// Two-segment (spliced) CDS; only the feature's outermost boundaries
	// should ever generate gap/low-pp alerts, never an internal exon edge.
	// Loaded through model.Load so the five/three-prime segment indices are
	// computed the same way the real pipeline computes them.
	dir := t.TempDir()
	path := filepath.Join(dir, "model.info")
	require.NoError(t, os.WriteFile(path, []byte(`
MODEL splicedModel
length=10

FEATURE
type=CDS
coords=1..5:+,6..10:+
`), 0o644))
	store, err := model.Load(path)
	require.NoError(t, err)
	f := &store.Model("splicedModel").Features[0]

	aln := buildCleanAlignment(10, 10)
	aln.Columns[4].PP = '0' // low PP at the boundary between segment 1 and 2

	_, instances, err := MapFeature(aln, f, DefaultMinPP, 1)
	require.NoError(t, err)
	assert.Empty(t, instances, "internal splice-junction boundary never emits a boundary alert")
}

func TestMapFeature_MinusStrandFlushAtSequenceStart(t *testing.T) {
	// Minus-strand feature: model position 1 (the model's 5' end) aligns to
	// the HIGH sequence coordinate and model position 10 (the model's 3'
	// end) aligns to the LOW one, mirroring an aligner hit on the reverse
	// complement strand. Flush here means seqStart == seqLen and
	// seqStop == 1, the opposite of the plus-strand convention.
	cols := make([]Column, 10)
	for i := 0; i < 10; i++ {
		cols[i] = Column{ModelPos: i + 1, SeqPos: 10 - i, PP: '9'}
	}
	aln := Alignment{Sequence: "seq1", Model: "modelX", ModelLength: 10, SeqLength: 10, Columns: cols}
	f := cdsFeature(1, 10, model.Minus)

	results, _, err := MapFeature(aln, f, DefaultMinPP, 1)
	require.NoError(t, err)
	assert.Equal(t, 10, results[0].SeqStart)
	assert.Equal(t, 1, results[0].SeqStop)
	assert.True(t, results[0].FiveFlush)
	assert.True(t, results[0].ThreeFlush)
}

func TestMapFeature_InvalidPPCharacterIsError(t *testing.T) {
	aln := buildCleanAlignment(5, 5)
	aln.Columns[0].PP = 'x'
	f := cdsFeature(1, 5, model.Plus)

	_, _, err := MapFeature(aln, f, DefaultMinPP, 1)
	require.Error(t, err)
}

func TestCheckSanity_RejectsShortCoverage(t *testing.T) {
	aln := buildCleanAlignment(10, 20) // SeqLength claims 20 but columns only reach 10
	err := checkSanity(aln)
	require.Error(t, err)
}
