// Package protein reconciles a coding-region's nucleotide-level prediction
// (from internal/feature) against an independent protein-alignment search,
// flagging discrepancies between the two.
package protein

import "github.com/cmannotate/cmannotate/internal/model"

// Hit is one END_MATCH-terminated record of the protein-alignment summary
// (see spec.md §6 for the on-disk format), after its query name has been
// parsed.
type Hit struct {
	Sequence string
	// FeatureCoords is non-empty when the query named an already-extracted
	// feature sequence ("sequence:start..stop:strand") rather than the full
	// input sequence; FullSequenceQuery is the complement of this.
	FeatureCoords     string
	FullSequenceQuery bool

	Score          float64
	SeqFrom, SeqTo int
	Strand         model.Strand

	MaxInsert       int
	MaxDelete       int
	HasInternalStop bool
}

// Thresholds configures the Reconciler's tolerances, all defaulted per
// spec.md §4.8.
type Thresholds struct {
	LoneHitScore        float64
	FivePrimeTolerance  int
	ThreePrimeTolerance int
	// ThreePrimeToleranceBonus is added to ThreePrimeTolerance when the
	// nucleotide prediction has a valid stop codon.
	ThreePrimeToleranceBonus int
	MaxInsert                int
	MaxDelete                int
}

// DefaultThresholds returns spec.md §4.8's documented defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LoneHitScore:             80,
		FivePrimeTolerance:       5,
		ThreePrimeTolerance:      5,
		ThreePrimeToleranceBonus: 3,
		MaxInsert:                27,
		MaxDelete:                27,
	}
}
