package align

import (
	"fmt"

	"github.com/cmannotate/cmannotate/internal/alert"
	"github.com/cmannotate/cmannotate/internal/model"
)

// SegmentResult is the per-segment outcome of mapping an alignment to
// sequence coordinates, per spec.md §3.
type SegmentResult struct {
	NoHit bool // min_after/max_before undefined for this segment

	SeqStart int
	SeqStop  int
	Strand   model.Strand

	FiveFlush     bool
	ThreeFlush    bool
	FiveTruncated bool
	ThreeTruncated bool

	FiveBoundaryGap  bool
	ThreeBoundaryGap bool

	// FivePP/ThreePP are posterior probabilities in [0,1], or -1 when
	// undefined (the boundary is a gap).
	FivePP  float64
	ThreePP float64
}

// bijection is the per-alignment precomputed state the mapper's steps 1-2
// build once per sequence, then reuse for every segment of the aligned
// feature.
type bijection struct {
	modelLength int
	seqLength   int

	modelPosColumn []int // index into columns for each model position 1..modelLength; -1 if missing (fatal)
	columns        []Column

	minAfter       []int // smallest satisfied model position >= r, per r; -1 undefined
	minAfterSeq    []int // minimum sequence position recorded at that position
	maxBefore      []int // largest satisfied model position <= r, per r; -1 undefined
	maxBeforeSeq   []int // maximum sequence position recorded at that position
}

// buildBijection runs steps 1-2 of the mapping procedure in spec.md §4.6.
func buildBijection(aln Alignment) (*bijection, error) {
	b := &bijection{
		modelLength:    aln.ModelLength,
		seqLength:      aln.SeqLength,
		columns:        aln.Columns,
		modelPosColumn: make([]int, aln.ModelLength+1),
	}
	for i := range b.modelPosColumn {
		b.modelPosColumn[i] = -1
	}

	satisfied := make([]bool, aln.ModelLength+1)
	minSeqAt := make([]int, aln.ModelLength+1)
	maxSeqAt := make([]int, aln.ModelLength+1)
	for i := range minSeqAt {
		minSeqAt[i] = -1
		maxSeqAt[i] = -1
	}

	lastModelPos := 0
	for colIdx, col := range aln.Columns {
		if col.ModelPos > 0 {
			if col.ModelPos > aln.ModelLength {
				return nil, fmt.Errorf("align: column %d references model position %d beyond model length %d",
					colIdx, col.ModelPos, aln.ModelLength)
			}
			if b.modelPosColumn[col.ModelPos] != -1 {
				return nil, fmt.Errorf("align: model position %d has more than one alignment column", col.ModelPos)
			}
			b.modelPosColumn[col.ModelPos] = colIdx
			lastModelPos = col.ModelPos
			if col.SeqPos > 0 {
				satisfied[col.ModelPos] = true
				markMinMax(minSeqAt, maxSeqAt, col.ModelPos, col.SeqPos)
			}
			continue
		}
		// Insert column: an insertion immediately after lastModelPos.
		if col.SeqPos > 0 && lastModelPos >= 1 {
			satisfied[lastModelPos] = true
			markMinMax(minSeqAt, maxSeqAt, lastModelPos, col.SeqPos)
		}
	}

	for r := 1; r <= aln.ModelLength; r++ {
		if b.modelPosColumn[r] == -1 {
			return nil, fmt.Errorf("align: model position %d has no alignment column", r)
		}
	}

	b.minAfter = make([]int, aln.ModelLength+2)
	b.minAfterSeq = make([]int, aln.ModelLength+2)
	best, bestSeq := -1, -1
	for r := aln.ModelLength; r >= 1; r-- {
		if satisfied[r] {
			best, bestSeq = r, minSeqAt[r]
		}
		b.minAfter[r] = best
		b.minAfterSeq[r] = bestSeq
	}

	b.maxBefore = make([]int, aln.ModelLength+2)
	b.maxBeforeSeq = make([]int, aln.ModelLength+2)
	best, bestSeq = -1, -1
	for r := 1; r <= aln.ModelLength; r++ {
		if satisfied[r] {
			best, bestSeq = r, maxSeqAt[r]
		}
		b.maxBefore[r] = best
		b.maxBeforeSeq[r] = bestSeq
	}

	return b, nil
}

func markMinMax(minSeqAt, maxSeqAt []int, r, seqPos int) {
	if minSeqAt[r] == -1 || seqPos < minSeqAt[r] {
		minSeqAt[r] = seqPos
	}
	if maxSeqAt[r] == -1 || seqPos > maxSeqAt[r] {
		maxSeqAt[r] = seqPos
	}
}

// checkSanity implements the left-to-right/right-to-left sanity checks: a
// mismatch is a fatal internal error, never a silent log.
func checkSanity(aln Alignment) error {
	maxSeen := 0
	for _, col := range aln.Columns {
		if col.SeqPos > maxSeen {
			maxSeen = col.SeqPos
		}
	}
	if maxSeen != aln.SeqLength {
		return fmt.Errorf("align: left-to-right max sequence position %d != sequence length %d for %s",
			maxSeen, aln.SeqLength, aln.Sequence)
	}

	minSeen := aln.SeqLength + 1
	for i := len(aln.Columns) - 1; i >= 0; i-- {
		col := aln.Columns[i]
		if col.SeqPos > 0 && col.SeqPos < minSeen {
			minSeen = col.SeqPos
		}
	}
	if aln.SeqLength > 0 && minSeen != 1 {
		return fmt.Errorf("align: right-to-left min sequence position %d != 1 for %s", minSeen, aln.Sequence)
	}
	return nil
}

func isFirstOnStrand(pos int, strand model.Strand, seqLen int) bool {
	if strand == model.Minus {
		return pos == seqLen
	}
	return pos == 1
}

func isLastOnStrand(pos int, strand model.Strand, seqLen int) bool {
	if strand == model.Minus {
		return pos == 1
	}
	return pos == seqLen
}

// mapSegment derives one SegmentResult from a precomputed bijection.
func mapSegment(b *bijection, seg model.Segment, minPP float64) (SegmentResult, []alert.Code, error) {
	modelStart, modelStop := seg.Start, seg.Stop
	if modelStart > modelStop {
		modelStart, modelStop = modelStop, modelStart
	}

	effStart := b.minAfter[modelStart]
	effStop := b.maxBefore[modelStop]
	if effStart == -1 || effStop == -1 {
		return SegmentResult{NoHit: true, Strand: seg.Strand}, nil, nil
	}

	seqStart := b.minAfterSeq[modelStart]
	seqStop := b.maxBeforeSeq[modelStop]

	res := SegmentResult{Strand: seg.Strand, SeqStart: seqStart, SeqStop: seqStop}
	res.FiveFlush = isFirstOnStrand(seqStart, seg.Strand, b.seqLength)
	res.ThreeFlush = isLastOnStrand(seqStop, seg.Strand, b.seqLength)
	res.FiveTruncated = res.FiveFlush && effStart != modelStart
	res.ThreeTruncated = res.ThreeFlush && effStop != modelStop

	startCol := b.columns[b.modelPosColumn[modelStart]]
	stopCol := b.columns[b.modelPosColumn[modelStop]]
	res.FiveBoundaryGap = startCol.SeqPos == 0
	res.ThreeBoundaryGap = stopCol.SeqPos == 0

	res.FivePP, res.ThreePP = -1, -1
	var codes []alert.Code
	if !res.FiveBoundaryGap {
		p, err := decodePP(startCol.PP)
		if err != nil {
			return SegmentResult{}, nil, err
		}
		res.FivePP = p
	}
	if !res.ThreeBoundaryGap {
		p, err := decodePP(stopCol.PP)
		if err != nil {
			return SegmentResult{}, nil, err
		}
		res.ThreePP = p
	}

	if !res.FiveTruncated {
		switch {
		case res.FiveBoundaryGap:
			codes = append(codes, alert.GapAt5PrimeBoundary)
		case res.FivePP < minPP:
			codes = append(codes, alert.LowPPAt5PrimeBoundary)
		}
	}
	if !res.ThreeTruncated {
		switch {
		case res.ThreeBoundaryGap:
			codes = append(codes, alert.GapAt3PrimeBoundary)
		case res.ThreePP < minPP:
			codes = append(codes, alert.LowPPAt3PrimeBoundary)
		}
	}

	return res, codes, nil
}

// DefaultMinPP is the spec's documented default posterior-probability
// boundary-quality threshold.
const DefaultMinPP = 0.8

// MapFeature maps every segment of feature against aln, returning one
// SegmentResult per segment (in feature.Segments order) and the alignment
// alerts generated at the feature's outermost (5'-most/3'-most) boundaries.
func MapFeature(aln Alignment, feature *model.Feature, minPP float64, featureTypeIndex int) ([]SegmentResult, []alert.Instance, error) {
	if err := checkSanity(aln); err != nil {
		return nil, nil, err
	}
	b, err := buildBijection(aln)
	if err != nil {
		return nil, nil, err
	}

	results := make([]SegmentResult, len(feature.Segments))
	var instances []alert.Instance
	tgt := alert.Target{Sequence: aln.Sequence, Feature: featureTypeIndex}

	fiveIdx, threeIdx := feature.FivePrimeSegment(), feature.ThreePrimeSegment()
	for i, seg := range feature.Segments {
		res, codes, err := mapSegment(b, seg, minPP)
		if err != nil {
			return nil, nil, err
		}
		results[i] = res

		for _, code := range codes {
			isFivePrimeCode := code == alert.GapAt5PrimeBoundary || code == alert.LowPPAt5PrimeBoundary
			isThreePrimeCode := code == alert.GapAt3PrimeBoundary || code == alert.LowPPAt3PrimeBoundary
			if isFivePrimeCode && i != fiveIdx {
				continue
			}
			if isThreePrimeCode && i != threeIdx {
				continue
			}
			instances = append(instances, alert.Instance{Code: code, Target: tgt})
		}
	}

	return results, instances, nil
}
