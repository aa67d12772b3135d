package model

import "fmt"

// validateStore checks every intra-feature invariant from the data model and
// returns the first violation found, naming the offending model/feature. A
// violation here is a fatal configuration error: it must surface before any
// sequence is processed.
func validateStore(s *Store) error {
	for _, name := range s.order {
		m := s.models[name]
		if err := validateModel(m); err != nil {
			return fmt.Errorf("model %s: %w", m.Name, err)
		}
	}
	return nil
}

func validateModel(m *Model) error {
	if m.Length <= 0 {
		return fmt.Errorf("length must be positive, got %d", m.Length)
	}

	typeIndexSeen := make(map[FeatureType]int)

	for i := range m.Features {
		f := &m.Features[i]

		if len(f.Segments) == 0 {
			return fmt.Errorf("feature %d: no segments", i)
		}

		// Contiguous type-index starting from 1.
		expect := typeIndexSeen[f.Type] + 1
		if f.TypeIndex != expect {
			return fmt.Errorf("feature %d: type %s index %d is not contiguous (expected %d)",
				i, f.Type, f.TypeIndex, expect)
		}
		typeIndexSeen[f.Type] = f.TypeIndex

		// A duplicate's source index is not itself.
		if f.SourceIndex >= 0 {
			if f.SourceIndex == i {
				return fmt.Errorf("feature %d: duplicate source_idx refers to itself", i)
			}
			if f.SourceIndex < 0 || f.SourceIndex >= len(m.Features) {
				return fmt.Errorf("feature %d: duplicate source_idx %d out of range", i, f.SourceIndex)
			}
		}

		// A mature-peptide child's parent is a coding-region.
		if f.Type == MaturePeptide && f.ParentIndex >= 0 {
			if f.ParentIndex >= len(m.Features) {
				return fmt.Errorf("feature %d: parent_idx %d out of range", i, f.ParentIndex)
			}
			if m.Features[f.ParentIndex].Type != CodingRegion {
				return fmt.Errorf("feature %d: mature-peptide parent %d is not a coding region", i, f.ParentIndex)
			}
		}

		// All segments of a coding-region or mature-peptide feature must
		// share one strand. Per spec.md's open questions this is treated as
		// a configuration error rather than an internal-error path.
		if f.Type == CodingRegion || f.Type == MaturePeptide {
			strand := f.Segments[0].Strand
			for _, seg := range f.Segments {
				if seg.Strand != strand {
					return fmt.Errorf("feature %d: segments span multiple strands", i)
				}
			}
		}

		for _, seg := range f.Segments {
			if seg.Start < 1 || seg.Start > m.Length || seg.Stop < 1 || seg.Stop > m.Length {
				return fmt.Errorf("feature %d: segment %d..%d out of model bounds 1..%d",
					i, seg.Start, seg.Stop, m.Length)
			}
		}
	}
	return nil
}
