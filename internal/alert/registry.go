// Package alert provides the catalog of findings the pipeline can attach to
// a sequence or a feature, and the store of instances emitted during a run.
package alert

import "fmt"

// Scope says whether a Kind attaches to a whole sequence or to one feature
// of a sequence.
type Scope int

const (
	// SequenceScope alerts target a sequence as a whole.
	SequenceScope Scope = iota
	// FeatureScope alerts target one feature of a sequence.
	FeatureScope
)

func (s Scope) String() string {
	if s == FeatureScope {
		return "feature"
	}
	return "sequence"
}

// Code is a short, stable alert identifier, e.g. "no-annotation".
type Code string

// Classification alerts (per-sequence).
const (
	NoAnnotation          Code = "no-annotation"
	MinusStrand           Code = "minus-strand"
	LowCoverage           Code = "low-coverage"
	LowScore              Code = "low-score"
	VeryLowScore          Code = "very-low-score"
	LowScoreDifference    Code = "low-score-difference"
	VeryLowScoreDiff      Code = "very-low-score-difference"
	HighBias              Code = "high-bias"
	UnexpectedGroup       Code = "unexpected-group"
	UnexpectedSubgroup    Code = "unexpected-subgroup"
)

// Alignment alerts (per-feature).
const (
	GapAt5PrimeBoundary   Code = "gap-at-5prime-boundary"
	GapAt3PrimeBoundary   Code = "gap-at-3prime-boundary"
	LowPPAt5PrimeBoundary Code = "low-pp-at-5prime-boundary"
	LowPPAt3PrimeBoundary Code = "low-pp-at-3prime-boundary"
)

// Feature alerts (per-feature).
const (
	InvalidStart     Code = "invalid-start"
	NotMultipleOf3   Code = "not-multiple-of-three"
	InvalidStop      Code = "invalid-stop"
	EarlyStop        Code = "early-stop"
	ExtendedStop     Code = "extended-stop"
	NoStopFound      Code = "no-stop-found"
	ParentHasError   Code = "parent-has-error"
)

// Protein alerts (per-feature).
const (
	NoProteinHit           Code = "no-protein-hit"
	ConflictingStrand      Code = "conflicting-strand"
	Protein5PrimeTooLong   Code = "protein-5prime-too-long"
	Protein5PrimeTooShort  Code = "protein-5prime-too-short"
	Protein3PrimeTooLong   Code = "protein-3prime-too-long"
	Protein3PrimeTooShort  Code = "protein-3prime-too-short"
	ProteinLongInsert      Code = "protein-long-insert"
	ProteinLongDelete      Code = "protein-long-delete"
	ProteinTranslationStop Code = "protein-translation-stop"
	ProteinLoneHit         Code = "protein-lone-hit"
)

// Divergence alerts (per-sequence).
const (
	TooDivergent Code = "too-divergent"
)

// Annotation coverage alerts (per-sequence).
const (
	ZeroFeaturesAnnotated Code = "zero-features-annotated"
)

// Kind is one entry of the static alert catalog.
type Kind struct {
	Code               Code
	Scope              Scope
	PreventsAnnotation bool
	Description        string
}

// Registry is the build-once catalog of every alert kind the pipeline knows
// about. Every component that emits an alert consults it rather than
// hard-coding scope or prevents-annotation logic inline.
type Registry struct {
	kinds map[Code]Kind
}

// NewRegistry builds the standard alert catalog.
func NewRegistry() *Registry {
	r := &Registry{kinds: make(map[Code]Kind)}
	for _, k := range defaultKinds {
		r.kinds[k.Code] = k
	}
	return r
}

var defaultKinds = []Kind{
	{NoAnnotation, SequenceScope, true, "no pass-1 or no pass-2 hit was found for this sequence"},
	{MinusStrand, SequenceScope, true, "best-scoring hits align to the minus strand"},
	{LowCoverage, SequenceScope, false, "pass-2 summed hit length covers too little of the sequence"},
	{LowScore, SequenceScope, false, "pass-2 score per nucleotide is below the low-score threshold"},
	{VeryLowScore, SequenceScope, false, "pass-2 score per nucleotide is below the very-low-score threshold"},
	{LowScoreDifference, SequenceScope, false, "best and second-best model scores per nucleotide are too close"},
	{VeryLowScoreDiff, SequenceScope, false, "best and second-best model scores per nucleotide are critically close"},
	{HighBias, SequenceScope, false, "bias score is a large fraction of total score"},
	{UnexpectedGroup, SequenceScope, false, "best hit is not in the user-declared expected group"},
	{UnexpectedSubgroup, SequenceScope, false, "best hit is not in the user-declared expected subgroup"},

	{GapAt5PrimeBoundary, FeatureScope, false, "alignment column at the segment's 5' model boundary is a gap"},
	{GapAt3PrimeBoundary, FeatureScope, false, "alignment column at the segment's 3' model boundary is a gap"},
	{LowPPAt5PrimeBoundary, FeatureScope, false, "posterior probability at the segment's 5' boundary is low"},
	{LowPPAt3PrimeBoundary, FeatureScope, false, "posterior probability at the segment's 3' boundary is low"},

	{InvalidStart, FeatureScope, false, "predicted coding region does not begin with a valid start codon"},
	{NotMultipleOf3, FeatureScope, false, "feature length is not a multiple of three"},
	{InvalidStop, FeatureScope, false, "predicted stop codon is not a valid stop codon"},
	{EarlyStop, FeatureScope, false, "an in-frame stop codon occurs before the predicted end"},
	{ExtendedStop, FeatureScope, false, "the first in-frame stop codon occurs after the predicted end"},
	{NoStopFound, FeatureScope, false, "no in-frame stop codon was found on the sequence"},
	{ParentHasError, FeatureScope, false, "the parent coding region of this mature peptide has an error"},

	{NoProteinHit, FeatureScope, false, "nucleotide prediction exists but no protein alignment hit was found"},
	{ConflictingStrand, FeatureScope, false, "protein and nucleotide predictions are on different strands"},
	{Protein5PrimeTooLong, FeatureScope, false, "protein alignment extends past the nucleotide prediction's 5' end"},
	{Protein5PrimeTooShort, FeatureScope, false, "protein alignment 5' start differs from the nucleotide prediction beyond tolerance"},
	{Protein3PrimeTooLong, FeatureScope, false, "protein alignment extends past the nucleotide prediction's 3' end"},
	{Protein3PrimeTooShort, FeatureScope, false, "protein alignment 3' stop differs from the nucleotide prediction beyond tolerance"},
	{ProteinLongInsert, FeatureScope, false, "protein alignment contains an insertion longer than tolerance"},
	{ProteinLongDelete, FeatureScope, false, "protein alignment contains a deletion longer than tolerance"},
	{ProteinTranslationStop, FeatureScope, false, "protein alignment contains an internal stop codon"},
	{ProteinLoneHit, FeatureScope, false, "protein alignment hit exists with no supporting nucleotide prediction"},

	{TooDivergent, SequenceScope, true, "alignment of this sequence exceeded the configured memory budget"},

	{ZeroFeaturesAnnotated, SequenceScope, false, "no feature on this sequence received a nucleotide or protein prediction"},
}

// Lookup returns the Kind for code, and whether it is known.
func (r *Registry) Lookup(code Code) (Kind, bool) {
	k, ok := r.kinds[code]
	return k, ok
}

// PreventsAnnotation reports whether an alert of this code stops the Aligner
// Driver and downstream components from processing the sequence it targets.
// Unknown codes never prevent annotation.
func (r *Registry) PreventsAnnotation(code Code) bool {
	k, ok := r.kinds[code]
	return ok && k.PreventsAnnotation
}

// Describe renders a human-readable line for an alert instance, for use in
// .altlist output and feature-table ERROR: blocks.
func (r *Registry) Describe(inst Instance) string {
	k, ok := r.kinds[inst.Code]
	desc := string(inst.Code)
	if ok {
		desc = k.Description
	}
	if inst.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", inst.Code, desc, inst.Detail)
	}
	return fmt.Sprintf("%s: %s", inst.Code, desc)
}
