package classify

import (
	"github.com/cmannotate/cmannotate/internal/model"
	"github.com/cmannotate/cmannotate/internal/search"
)

// summary is derived from a sequence's pass-2 hits: the majority strand and
// the summed length/score/bias restricted to hits on that strand.
type summary struct {
	strand       model.Strand
	coveredLen   int
	summedScore  float64
	summedBias   float64
}

// seqRange is a half-open [Start, End) span on the sequence coordinate used
// by one hit, local to the coverage merge below.
type seqRange struct {
	Start, End int
}

func summarize(mh *search.ModelHits) summary {
	if mh == nil || len(mh.Hits) == 0 {
		return summary{}
	}

	plusLen, minusLen := 0, 0
	for _, h := range mh.Hits {
		if h.Strand == model.Minus {
			minusLen += h.Length()
		} else {
			plusLen += h.Length()
		}
	}
	strand := model.Plus
	if minusLen > plusLen {
		strand = model.Minus
	}

	var hits []seqRange
	var score, bias float64
	for _, h := range mh.Hits {
		if h.Strand != strand {
			continue
		}
		score += h.Score
		bias += h.Bias
		lo, hi := h.SeqFrom, h.SeqTo
		if lo > hi {
			lo, hi = hi, lo
		}
		hits = append(hits, seqRange{Start: lo, End: hi + 1})
	}

	return summary{
		strand:      strand,
		coveredLen:  mergedCoverage(hits),
		summedScore: score,
		summedBias:  bias,
	}
}

// mergedCoverage merges overlapping intervals by sort-then-sweep before
// summing, so hits that overlap on the sequence are not double counted.
func mergedCoverage(ranges []seqRange) int {
	if len(ranges) == 0 {
		return 0
	}

	sorted := append([]seqRange(nil), ranges...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Start < sorted[j-1].Start; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	total := 0
	curStart, curEnd := sorted[0].Start, sorted[0].End
	for _, r := range sorted[1:] {
		if r.Start <= curEnd {
			if r.End > curEnd {
				curEnd = r.End
			}
			continue
		}
		total += curEnd - curStart
		curStart, curEnd = r.Start, r.End
	}
	total += curEnd - curStart
	return total
}
