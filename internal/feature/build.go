package feature

import (
	"strconv"
	"strings"

	"github.com/cmannotate/cmannotate/internal/align"
	"github.com/cmannotate/cmannotate/internal/alert"
	"github.com/cmannotate/cmannotate/internal/model"
)

// Result is one feature's built nucleotide string and the alerts the CDS
// state machine attached to it.
type Result struct {
	FeatureIndex int // index into Model.Features
	Annotated    bool
	Nucleotides  string
	Truncated5   bool
	Truncated3   bool
	// CorrectedStop is the sequence position of a corrected stop codon, or
	// "?" when no-stop-found fired. Empty when no correction was needed.
	CorrectedStop string
	Alerts        []alert.Instance
}

// Build concatenates featureIdx's segments into its nucleotide string (using
// segResults from align.MapFeature, reverse-complementing minus-strand
// segments) and runs the coding-region/mature-peptide decision table against
// it, per spec.md §4.7.
func Build(seqName string, seqBases string, m *model.Model, featureIdx int, segResults []align.SegmentResult) (Result, error) {
	f := &m.Features[featureIdx]
	res := Result{FeatureIndex: featureIdx}
	tgt := alert.Target{Sequence: seqName, Feature: f.TypeIndex}

	for _, sr := range segResults {
		if sr.NoHit {
			return res, nil // Annotated stays false
		}
	}
	res.Annotated = true

	order := concatOrder(f.Segments)
	var sb strings.Builder
	for _, idx := range order {
		seg := f.Segments[idx]
		sr := segResults[idx]
		if seg.Strand == model.Minus {
			sb.WriteString(ReverseComplement(seqBases[sr.SeqStop-1 : sr.SeqStart]))
		} else {
			sb.WriteString(seqBases[sr.SeqStart-1 : sr.SeqStop])
		}
	}
	res.Nucleotides = sb.String()

	fiveIdx, threeIdx := f.FivePrimeSegment(), f.ThreePrimeSegment()
	res.Truncated5 = segResults[fiveIdx].FiveTruncated
	res.Truncated3 = segResults[threeIdx].ThreeTruncated

	if res.Truncated5 || res.Truncated3 {
		return res, nil
	}

	if len(res.Nucleotides)%3 != 0 {
		res.Alerts = append(res.Alerts, alert.Instance{Code: alert.NotMultipleOf3, Target: tgt})
		return res, nil
	}

	switch f.Type {
	case model.CodingRegion:
		res.applyCodingTable(tgt, f, segResults[threeIdx], seqBases)
	case model.MaturePeptide:
		res.applyMaturePeptideTable(tgt)
	}

	return res, nil
}

// concatOrder returns f's segment indices in 5'->3' biological order: for a
// plus-strand feature that is declaration order (ascending model position);
// for a minus-strand feature it is the reverse.
func concatOrder(segs []model.Segment) []int {
	order := make([]int, len(segs))
	for i := range order {
		order[i] = i
	}
	if len(segs) > 0 && segs[0].Strand == model.Minus {
		for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
			order[i], order[j] = order[j], order[i]
		}
	}
	return order
}

func (res *Result) applyMaturePeptideTable(tgt alert.Target) {
	codonIdx, found := findEarlyStop(res.Nucleotides)
	if !found {
		return
	}
	res.Alerts = append(res.Alerts, alert.Instance{Code: alert.EarlyStop, Target: tgt})
	res.CorrectedStop = codonPosition(codonIdx)
}

// applyCodingTable runs the 5-case decision table in spec.md §4.7. threeSeg
// and seqBases are needed only for the extended-stop search, which continues
// past the feature's predicted 3' end on the original sequence.
func (res *Result) applyCodingTable(tgt alert.Target, f *model.Feature, threeSeg align.SegmentResult, seqBases string) {
	nt := res.Nucleotides
	startCodon := nt[0:3]
	stopCodon := nt[len(nt)-3:]

	startValid := IsStartCodon(startCodon, f.AltStartCodons...)
	stopValid := IsStopCodon(stopCodon)
	earlyIdx, earlyFound := findEarlyStop(nt[:len(nt)-3])

	switch {
	case !startValid:
		res.Alerts = append(res.Alerts, alert.Instance{Code: alert.InvalidStart, Target: tgt})

	case !stopValid && !earlyFound:
		res.Alerts = append(res.Alerts, alert.Instance{Code: alert.InvalidStop, Target: tgt})
		if pos, _, ok := findExtendedStop(seqBases, threeSeg); ok {
			res.Alerts = append(res.Alerts, alert.Instance{Code: alert.ExtendedStop, Target: tgt})
			res.CorrectedStop = pos
		} else {
			res.Alerts = append(res.Alerts, alert.Instance{Code: alert.NoStopFound, Target: tgt})
			res.CorrectedStop = "?"
		}

	case !stopValid && earlyFound:
		res.Alerts = append(res.Alerts,
			alert.Instance{Code: alert.InvalidStop, Target: tgt},
			alert.Instance{Code: alert.EarlyStop, Target: tgt})
		res.CorrectedStop = codonPosition(earlyIdx)

	case stopValid && !earlyFound:
		// case 4: clean, no alerts.

	default: // stopValid && earlyFound
		res.Alerts = append(res.Alerts, alert.Instance{Code: alert.EarlyStop, Target: tgt})
		res.CorrectedStop = codonPosition(earlyIdx)
	}
}

// findEarlyStop scans nt codon-by-codon for the first in-frame stop codon,
// returning its 0-based codon index.
func findEarlyStop(nt string) (codonIdx int, found bool) {
	for i := 0; i+3 <= len(nt); i += 3 {
		if IsStopCodon(nt[i : i+3]) {
			return i / 3, true
		}
	}
	return 0, false
}

func codonPosition(codonIdx int) string {
	return strconv.Itoa((codonIdx + 1) * 3)
}

// findExtendedStop continues scanning in-frame codons past the feature's
// predicted 3' end (threeSeg), on its strand, for the first in-frame stop
// codon on the underlying sequence. It returns the sequence position of that
// stop codon's 3'-most nucleotide.
func findExtendedStop(seqBases string, threeSeg align.SegmentResult) (pos string, codon string, ok bool) {
	if threeSeg.Strand == model.Minus {
		hi := threeSeg.SeqStop - 1
		for hi-2 >= 1 {
			lo := hi - 2
			c := ReverseComplement(seqBases[lo-1 : hi])
			if IsStopCodon(c) {
				return strconv.Itoa(lo), c, true
			}
			hi -= 3
		}
		return "", "", false
	}

	lo := threeSeg.SeqStop + 1
	for lo+2 <= len(seqBases) {
		c := seqBases[lo-1 : lo+2]
		if IsStopCodon(c) {
			return strconv.Itoa(lo + 2), c, true
		}
		lo += 3
	}
	return "", "", false
}
