// Package classify applies numeric thresholds to search results to decide
// each sequence's best model and emit classification alerts.
package classify

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Thresholds holds every configurable numeric cutoff from spec.md §4.4, with
// the documented defaults.
type Thresholds struct {
	LowCoverage    float64
	LowScore       float64
	VeryLowScore   float64
	LowDiff        float64
	VeryLowDiff    float64
	BiasFraction   float64
	GroupThreshold float64
	// Epsilon absorbs floating-point boundary-precision artifacts in every
	// threshold comparison below.
	Epsilon float64
}

// DefaultThresholds returns the spec's documented default values.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LowCoverage:    0.9,
		LowScore:       0.3,
		VeryLowScore:   0.2,
		LowDiff:        0.06,
		VeryLowDiff:    0.006,
		BiasFraction:   0.25,
		GroupThreshold: 0.3,
		Epsilon:        1e-9,
	}
}

// Validate checks the invariant that each "low" threshold for score and diff
// is strictly greater than its "very-low" counterpart. A violation is a
// fatal configuration error, checked once at startup.
func (t Thresholds) Validate() error {
	if t.LowScore <= t.VeryLowScore {
		return fmt.Errorf("classify: low-score threshold (%g) must exceed very-low-score threshold (%g)", t.LowScore, t.VeryLowScore)
	}
	if t.LowDiff <= t.VeryLowDiff {
		return fmt.Errorf("classify: low-diff threshold (%g) must exceed very-low-diff threshold (%g)", t.LowDiff, t.VeryLowDiff)
	}
	return nil
}

// less reports a < b once epsilon is accounted for, absorbing
// boundary-precision artifacts as required by spec.md §4.4.
func (t Thresholds) less(a, b float64) bool {
	return a < b && !floats.EqualWithinAbs(a, b, t.Epsilon)
}

// greater reports a > b once epsilon is accounted for.
func (t Thresholds) greater(a, b float64) bool {
	return a > b && !floats.EqualWithinAbs(a, b, t.Epsilon)
}
