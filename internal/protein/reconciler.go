package protein

import (
	"fmt"

	"github.com/cmannotate/cmannotate/internal/alert"
	"github.com/cmannotate/cmannotate/internal/model"
)

// NucleotidePrediction is the subset of a coding-region's Feature Result the
// Reconciler needs: whether it was annotated at all, its outer (5'-most to
// 3'-most) nucleotide span, and whether its predicted stop codon was valid
// (which widens the 3' tolerance per spec.md §4.8).
type NucleotidePrediction struct {
	Annotated     bool
	Start, Stop   int // always Start <= Stop; the feature's actual 5'/3' end depends on Strand
	Strand        model.Strand
	HasValidStop  bool
}

// Result is the Reconciler's per-feature outcome: the chosen protein hit (if
// any) and the alerts it produced.
type Result struct {
	Hit    *Hit
	Alerts []alert.Instance
}

// SelectBest picks the highest-scoring hit among those whose query names
// this feature, per spec.md §4.8 ("only the highest-scoring hit per
// (sequence, feature) is kept"). A hit whose query named a feature matches
// only when its FeatureCoords equals featureCoords; full-sequence-query hits
// always match every coding-region feature of that sequence, since the
// protein aligner was run against the whole sequence.
func SelectBest(hits []Hit, sequence string, featureCoords string) *Hit {
	var best *Hit
	for i := range hits {
		h := &hits[i]
		if h.Sequence != sequence {
			continue
		}
		if !h.FullSequenceQuery && h.FeatureCoords != featureCoords {
			continue
		}
		if best == nil || h.Score > best.Score {
			best = h
		}
	}
	return best
}

// fivePrimePos and threePrimePos return a span's 5'/3'-most coordinate given
// its strand, matching the rest of the pipeline's convention that Start<=Stop
// always holds regardless of strand.
func fivePrimePos(strand model.Strand, start, stop int) int {
	if strand == model.Minus {
		return stop
	}
	return start
}
func threePrimePos(strand model.Strand, start, stop int) int {
	if strand == model.Minus {
		return start
	}
	return stop
}

// exteriorFive reports whether a is more 5'-exterior than b: further from
// the feature body on the 5' side, i.e. extending past it.
func exteriorFive(strand model.Strand, a, b int) bool {
	if strand == model.Minus {
		return a > b
	}
	return a < b
}

// exteriorThree is the 3' symmetric of exteriorFive.
func exteriorThree(strand model.Strand, a, b int) bool {
	if strand == model.Minus {
		return a < b
	}
	return a > b
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Reconcile compares a coding-region's nucleotide prediction against the
// protein-alignment hits for its sequence, per the discrepancy table in
// spec.md §4.8.
func Reconcile(seqName string, featureTypeIndex int, featureCoords string, nuc NucleotidePrediction, hits []Hit, t Thresholds) Result {
	tgt := alert.Target{Sequence: seqName, Feature: featureTypeIndex}
	best := SelectBest(hits, seqName, featureCoords)
	res := Result{Hit: best}

	switch {
	case best == nil && !nuc.Annotated:
		return res

	case best != nil && !nuc.Annotated:
		if best.Score >= t.LoneHitScore {
			res.Alerts = append(res.Alerts, alert.Instance{Code: alert.ProteinLoneHit, Target: tgt,
				Detail: fmt.Sprintf("score=%.1f", best.Score)})
		}
		return res

	case best == nil && nuc.Annotated:
		res.Alerts = append(res.Alerts, alert.Instance{Code: alert.NoProteinHit, Target: tgt})
		return res
	}

	// Both present.
	if best.Strand != nuc.Strand {
		res.Alerts = append(res.Alerts, alert.Instance{Code: alert.ConflictingStrand, Target: tgt})
		return reconcileIndelsAndStop(res, tgt, best, t)
	}

	nucFive := fivePrimePos(nuc.Strand, nuc.Start, nuc.Stop)
	protFive := fivePrimePos(best.Strand, best.SeqFrom, best.SeqTo)
	switch {
	case best.FullSequenceQuery && exteriorFive(nuc.Strand, protFive, nucFive):
		res.Alerts = append(res.Alerts, alert.Instance{Code: alert.Protein5PrimeTooLong, Target: tgt})
	case abs(protFive-nucFive) > t.FivePrimeTolerance:
		res.Alerts = append(res.Alerts, alert.Instance{Code: alert.Protein5PrimeTooShort, Target: tgt,
			Detail: fmt.Sprintf("delta=%d", protFive-nucFive)})
	}

	nucThree := threePrimePos(nuc.Strand, nuc.Start, nuc.Stop)
	protThree := threePrimePos(best.Strand, best.SeqFrom, best.SeqTo)
	threeTol := t.ThreePrimeTolerance
	if nuc.HasValidStop {
		threeTol += t.ThreePrimeToleranceBonus
	}
	switch {
	case best.FullSequenceQuery && exteriorThree(nuc.Strand, protThree, nucThree):
		res.Alerts = append(res.Alerts, alert.Instance{Code: alert.Protein3PrimeTooLong, Target: tgt})
	case abs(protThree-nucThree) > threeTol:
		res.Alerts = append(res.Alerts, alert.Instance{Code: alert.Protein3PrimeTooShort, Target: tgt,
			Detail: fmt.Sprintf("delta=%d", protThree-nucThree)})
	}

	return reconcileIndelsAndStop(res, tgt, best, t)
}

func reconcileIndelsAndStop(res Result, tgt alert.Target, best *Hit, t Thresholds) Result {
	if best.MaxInsert > t.MaxInsert {
		res.Alerts = append(res.Alerts, alert.Instance{Code: alert.ProteinLongInsert, Target: tgt,
			Detail: fmt.Sprintf("max-insert=%d", best.MaxInsert)})
	}
	if best.MaxDelete > t.MaxDelete {
		res.Alerts = append(res.Alerts, alert.Instance{Code: alert.ProteinLongDelete, Target: tgt,
			Detail: fmt.Sprintf("max-delete=%d", best.MaxDelete)})
	}
	if best.HasInternalStop {
		res.Alerts = append(res.Alerts, alert.Instance{Code: alert.ProteinTranslationStop, Target: tgt})
	}
	return res
}

// HasErrorAlert reports whether res carries any protein alert, the trigger
// for parent-has-error propagation to mature-peptide children (spec.md
// §4.8's final paragraph).
func (res Result) HasErrorAlert() bool {
	return len(res.Alerts) > 0
}
