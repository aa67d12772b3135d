package feature

import (
	"github.com/cmannotate/cmannotate/internal/alert"
	"github.com/cmannotate/cmannotate/internal/model"
)

// errorTriggeringCodes are the coding-region alerts whose presence on a
// feature marks every child mature peptide with parent-has-error.
var errorTriggeringCodes = map[alert.Code]bool{
	alert.InvalidStart: true,
	alert.InvalidStop:  true,
	alert.EarlyStop:    true,
	alert.ExtendedStop: true,
	alert.NoStopFound:  true,
}

// hasErrorAlert reports whether results contains any error-triggering code.
func hasErrorAlert(insts []alert.Instance) bool {
	for _, a := range insts {
		if errorTriggeringCodes[a.Code] {
			return true
		}
	}
	return false
}

// PropagateParentErrors walks m's parent/child feature index arrays (never
// by pointer, per the model package's design) and adds parent-has-error to
// every child of a feature whose Result carries an error-triggering alert.
// Idempotent: a child that already has parent-has-error is not duplicated.
func PropagateParentErrors(seqName string, m *model.Model, results []Result) {
	for i := range m.Features {
		f := &m.Features[i]
		if len(f.Children) == 0 {
			continue
		}
		if !hasErrorAlert(results[i].Alerts) {
			continue
		}
		for _, childIdx := range f.Children {
			child := &m.Features[childIdx]
			tgt := alert.Target{Sequence: seqName, Feature: child.TypeIndex}
			if alreadyHasParentError(results[childIdx].Alerts) {
				continue
			}
			results[childIdx].Alerts = append(results[childIdx].Alerts, alert.Instance{Code: alert.ParentHasError, Target: tgt})
		}
	}
}

func alreadyHasParentError(insts []alert.Instance) bool {
	for _, a := range insts {
		if a.Code == alert.ParentHasError {
			return true
		}
	}
	return false
}
