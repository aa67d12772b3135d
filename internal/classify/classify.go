package classify

import (
	"fmt"

	"github.com/cmannotate/cmannotate/internal/alert"
	"github.com/cmannotate/cmannotate/internal/model"
	"github.com/cmannotate/cmannotate/internal/search"
)

// Decision is the Classifier's verdict for one sequence.
type Decision struct {
	Sequence string
	Model    string // chosen model name, empty if no annotation
	Alerts   []alert.Instance
}

// Prevented reports whether any alert in the decision prevents annotation.
func (d Decision) Prevented(registry *alert.Registry) bool {
	for _, a := range d.Alerts {
		if registry.PreventsAnnotation(a.Code) {
			return true
		}
	}
	return false
}

// Classify applies thresholds to one sequence's classification record and
// returns its chosen model plus every classification alert, in the decision
// order specified by spec.md §4.4.
func Classify(rec *search.ClassificationRecord, seqLen int, t Thresholds, registry *alert.Registry) (Decision, error) {
	if err := t.Validate(); err != nil {
		return Decision{}, err
	}
	d := Decision{Sequence: rec.Sequence}
	tgt := alert.Target{Sequence: rec.Sequence}

	// 1. No pass-1 hit, or a pass-1 hit with no surviving pass-2 hit.
	if rec.BestOverallPass1 == nil || rec.BestInPass2 == nil {
		d.Alerts = append(d.Alerts, alert.Instance{Code: alert.NoAnnotation, Target: tgt})
		return d, nil
	}

	d.Model = rec.BestInPass2.Model
	sum := summarize(rec.BestInPass2)
	if seqLen <= 0 {
		return Decision{}, fmt.Errorf("classify: sequence %q has non-positive length %d", rec.Sequence, seqLen)
	}
	nt := float64(seqLen)

	coverage := float64(sum.coveredLen) / nt
	if t.less(coverage, t.LowCoverage) {
		d.Alerts = append(d.Alerts, alert.Instance{Code: alert.LowCoverage, Target: tgt,
			Detail: fmt.Sprintf("coverage=%.4f", coverage)})
	}

	scorePerNT := sum.summedScore / nt
	switch {
	case t.less(scorePerNT, t.VeryLowScore):
		d.Alerts = append(d.Alerts, alert.Instance{Code: alert.VeryLowScore, Target: tgt,
			Detail: fmt.Sprintf("score/nt=%.4f", scorePerNT)})
	case t.less(scorePerNT, t.LowScore):
		d.Alerts = append(d.Alerts, alert.Instance{Code: alert.LowScore, Target: tgt,
			Detail: fmt.Sprintf("score/nt=%.4f", scorePerNT)})
	}

	if rec.SecondBestDifferentModel != nil {
		diff := (rec.BestOverallPass1.TopScore() - rec.SecondBestDifferentModel.TopScore()) / nt
		switch {
		case t.less(diff, t.VeryLowDiff):
			d.Alerts = append(d.Alerts, alert.Instance{Code: alert.VeryLowScoreDiff, Target: tgt,
				Detail: fmt.Sprintf("diff/nt=%.4f", diff)})
		case t.less(diff, t.LowDiff):
			d.Alerts = append(d.Alerts, alert.Instance{Code: alert.LowScoreDifference, Target: tgt,
				Detail: fmt.Sprintf("diff/nt=%.4f", diff)})
		}
	}

	if sum.summedScore+sum.summedBias > 0 {
		biasFrac := sum.summedBias / (sum.summedScore + sum.summedBias)
		if t.greater(biasFrac, t.BiasFraction) {
			d.Alerts = append(d.Alerts, alert.Instance{Code: alert.HighBias, Target: tgt,
				Detail: fmt.Sprintf("bias-fraction=%.4f", biasFrac)})
		}
	}

	if rec.BestInGroupPass1 != nil {
		diff := (rec.BestOverallPass1.TopScore() - rec.BestInGroupPass1.TopScore()) / nt
		if t.greater(diff, t.GroupThreshold) {
			d.Alerts = append(d.Alerts, alert.Instance{Code: alert.UnexpectedGroup, Target: tgt,
				Detail: fmt.Sprintf("diff/nt=%.4f", diff)})
		}
	}
	if rec.BestInSubgroupPass1 != nil {
		diff := (rec.BestOverallPass1.TopScore() - rec.BestInSubgroupPass1.TopScore()) / nt
		if t.greater(diff, t.GroupThreshold) {
			d.Alerts = append(d.Alerts, alert.Instance{Code: alert.UnexpectedSubgroup, Target: tgt,
				Detail: fmt.Sprintf("diff/nt=%.4f", diff)})
		}
	}

	if sum.strand == model.Minus {
		d.Alerts = append(d.Alerts, alert.Instance{Code: alert.MinusStrand, Target: tgt})
	}

	return d, nil
}
