// Package model parses and validates the reference model library: models,
// their features, and each feature's segment decomposition.
package model

import "fmt"

// Strand is the orientation of a segment relative to the model.
type Strand byte

const (
	Plus  Strand = '+'
	Minus Strand = '-'
)

func (s Strand) String() string { return string(s) }

// FeatureType classifies an annotated region.
type FeatureType string

const (
	CodingRegion  FeatureType = "CDS"
	MaturePeptide FeatureType = "mat_peptide"
	Gene          FeatureType = "gene"
	Other         FeatureType = "other"
)

// Segment is a contiguous model-coordinate interval belonging to one feature.
type Segment struct {
	Start          int // model position, 1-based inclusive
	Stop           int // model position, 1-based inclusive
	Strand         Strand
	FeatureIndex   int // index into Model.Features of the owning feature
}

// Length returns the number of model positions spanned by the segment.
func (s Segment) Length() int {
	if s.Stop >= s.Start {
		return s.Stop - s.Start + 1
	}
	return s.Start - s.Stop + 1
}

// Feature is one annotated region on a model.
type Feature struct {
	Type      FeatureType
	TypeIndex int // 1-based within its type
	Product   string
	Gene      string
	Segments  []Segment

	// AltStartCodons lists additional codons (beyond ATG) accepted as a
	// valid start for this feature, per spec.md §4.7.
	AltStartCodons []string

	// ParentIndex is the index into Model.Features of the polyprotein coding
	// region this mature peptide belongs to, or -1.
	ParentIndex int
	// SourceIndex is the index into Model.Features this feature duplicates
	// predictions from, or -1.
	SourceIndex int
	// Children holds the indices of features whose ParentIndex is this one,
	// populated once at load time; never walked by pointer.
	Children []int

	// Cached at load time by Load (via attachFeatures).
	length            int
	fivePrimeSegment  int
	threePrimeSegment int
}

// Length returns the feature's total nucleotide length: the sum of its
// segment lengths.
func (f *Feature) Length() int { return f.length }

// FivePrimeSegment returns the index, within f.Segments, of the segment
// closest to the feature's 5' end.
func (f *Feature) FivePrimeSegment() int { return f.fivePrimeSegment }

// ThreePrimeSegment returns the index, within f.Segments, of the segment
// closest to the feature's 3' end.
func (f *Feature) ThreePrimeSegment() int { return f.threePrimeSegment }

// Strand returns the single strand shared by every segment of a
// coding-region or mature-peptide feature. Callers must only call this after
// validation has confirmed the feature is single-stranded.
func (f *Feature) Strand() Strand {
	if len(f.Segments) == 0 {
		return Plus
	}
	return f.Segments[0].Strand
}

// Model is one reference against which sequences are classified and aligned.
type Model struct {
	Name      string
	Length    int // model length in positions
	Group     string
	Subgroup  string
	ProteinDB string // optional path to a protein database
	Features  []Feature
}

// FeaturesOfType returns the features of the given type, in type-index order.
func (m *Model) FeaturesOfType(t FeatureType) []*Feature {
	var out []*Feature
	for i := range m.Features {
		if m.Features[i].Type == t {
			out = append(out, &m.Features[i])
		}
	}
	return out
}

func (m *Model) String() string {
	return fmt.Sprintf("%s (length=%d, features=%d)", m.Name, m.Length, len(m.Features))
}
