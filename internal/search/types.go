// Package search drives the two-pass homology search that classifies
// sequences against the model library, and parses its ranked results.
package search

import "github.com/cmannotate/cmannotate/internal/model"

// Hit is one line of a search results table: a scored alignment of a
// sequence to a span of a model.
type Hit struct {
	Target    string // model name
	ModelFrom int
	ModelTo   int
	SeqFrom   int
	SeqTo     int
	Strand    model.Strand
	Bias      float64
	Score     float64
	EValue    float64
}

// Length returns the number of sequence positions the hit covers.
func (h Hit) Length() int {
	if h.SeqTo >= h.SeqFrom {
		return h.SeqTo - h.SeqFrom + 1
	}
	return h.SeqFrom - h.SeqTo + 1
}

// ClassificationRecord holds, for one sequence, the five keys the spec
// requires: best-overall and second-best from pass 1, optional
// group/subgroup restricted bests from pass 1, and the single pass-2 result.
type ClassificationRecord struct {
	Sequence string

	BestOverallPass1        *ModelHits
	SecondBestDifferentModel *ModelHits
	BestInGroupPass1        *ModelHits
	BestInSubgroupPass1     *ModelHits
	BestInPass2             *ModelHits
}

// ModelHits accumulates every hit to a single model for one sequence.
type ModelHits struct {
	Model string
	Hits  []Hit
	Bias  float64 // only meaningfully populated for pass-2 (sensitive mode)
}

// TopScore returns the score of the highest-scoring hit, or 0 if empty.
func (mh *ModelHits) TopScore() float64 {
	if mh == nil || len(mh.Hits) == 0 {
		return 0
	}
	best := mh.Hits[0].Score
	for _, h := range mh.Hits[1:] {
		if h.Score > best {
			best = h.Score
		}
	}
	return best
}
