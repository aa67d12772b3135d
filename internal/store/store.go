// Package store is the central Results Store described in spec.md §3: a
// single in-memory structure, keyed by (sequence, model, feature, segment),
// that every pipeline stage writes to and the Reporter reads from. Each
// field has exactly one writer, matching the single-writer design named in
// spec.md §5 and §9 ("dynamically-keyed result dictionaries... become a
// fixed struct of named fields with clearly-typed optionals").
package store

import (
	"fmt"

	"github.com/cmannotate/cmannotate/internal/align"
	"github.com/cmannotate/cmannotate/internal/alert"
	"github.com/cmannotate/cmannotate/internal/classify"
	"github.com/cmannotate/cmannotate/internal/feature"
	"github.com/cmannotate/cmannotate/internal/model"
	"github.com/cmannotate/cmannotate/internal/protein"
	"github.com/cmannotate/cmannotate/internal/search"
)

// FeatureResult is one feature's combined outcome: its segment coordinates,
// its built nucleotide string and CDS-state-machine findings, and its
// protein reconciliation, per the Feature Result record in spec.md §3.
type FeatureResult struct {
	FeatureIndex int
	TypeIndex    int
	Type         model.FeatureType
	Product      string
	Gene         string

	Annotated     bool
	NStart, NStop int
	NStrand       model.Strand
	Truncated5    bool
	Truncated3    bool
	CorrectedStop string

	Segments []align.SegmentResult

	Protein *protein.Hit
}

// SequenceResult is one sequence's full record in the Results Store.
type SequenceResult struct {
	Name   string
	Length int

	Classification *search.ClassificationRecord
	Decision       classify.Decision

	Model    string // chosen model name, empty if none
	Aligned  bool   // the Aligner Driver produced an Alignment for this sequence
	Features []FeatureResult
}

// AnnotatedFeatureCount returns the number of features with either a
// nucleotide or a protein prediction.
func (s *SequenceResult) AnnotatedFeatureCount() int {
	n := 0
	for _, f := range s.Features {
		if f.Annotated || f.Protein != nil {
			n++
		}
	}
	return n
}

// Store is the Results Store: one SequenceResult per classified sequence,
// plus the shared Alert Store every stage writes its findings to.
type Store struct {
	Alerts    *alert.Store
	sequences map[string]*SequenceResult
	order     []string
}

// New creates an empty Results Store bound to registry.
func New(registry *alert.Registry) *Store {
	return &Store{
		Alerts:    alert.NewStore(registry),
		sequences: make(map[string]*SequenceResult),
	}
}

// AddSequence registers a sequence, fatal if called twice for the same name.
func (s *Store) AddSequence(name string, length int) (*SequenceResult, error) {
	if _, ok := s.sequences[name]; ok {
		return nil, fmt.Errorf("store: sequence %q already registered", name)
	}
	rec := &SequenceResult{Name: name, Length: length}
	s.sequences[name] = rec
	s.order = append(s.order, name)
	return rec, nil
}

// Sequence returns the record for name, or nil if unregistered.
func (s *Store) Sequence(name string) *SequenceResult {
	return s.sequences[name]
}

// Sequences returns every sequence record in registration order.
func (s *Store) Sequences() []*SequenceResult {
	out := make([]*SequenceResult, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.sequences[name])
	}
	return out
}

// SetClassification records a sequence's classification record and the
// Classifier's decision, and copies the decision's alerts into the shared
// Alert Store.
func (s *Store) SetClassification(name string, rec *search.ClassificationRecord, decision classify.Decision) error {
	seq, ok := s.sequences[name]
	if !ok {
		return fmt.Errorf("store: unknown sequence %q", name)
	}
	seq.Classification = rec
	seq.Decision = decision
	seq.Model = decision.Model
	for _, a := range decision.Alerts {
		if err := s.Alerts.Add(a); err != nil {
			return err
		}
	}
	return nil
}

// SetAligned marks that the Aligner Driver produced an Alignment for name
// (as opposed to a too-divergent alert).
func (s *Store) SetAligned(name string) error {
	seq, ok := s.sequences[name]
	if !ok {
		return fmt.Errorf("store: unknown sequence %q", name)
	}
	seq.Aligned = true
	return nil
}

// InitFeatures preallocates one FeatureResult per feature of m, in model
// feature-index order, so downstream writers (mapper, builder, reconciler)
// can address them positionally.
func (s *Store) InitFeatures(name string, m *model.Model) error {
	seq, ok := s.sequences[name]
	if !ok {
		return fmt.Errorf("store: unknown sequence %q", name)
	}
	seq.Features = make([]FeatureResult, len(m.Features))
	for i, f := range m.Features {
		seq.Features[i] = FeatureResult{
			FeatureIndex: i,
			TypeIndex:    f.TypeIndex,
			Type:         f.Type,
			Product:      f.Product,
			Gene:         f.Gene,
		}
	}
	return nil
}

// SetSegments records the Mapper's per-segment output for one feature, and
// adds the alignment alerts it produced to the shared Alert Store.
func (s *Store) SetSegments(name string, featureIdx int, segs []align.SegmentResult, alerts []alert.Instance) error {
	seq, ff, err := s.feature(name, featureIdx)
	if err != nil {
		return err
	}
	ff.Segments = segs
	for _, a := range alerts {
		if err := s.Alerts.Add(a); err != nil {
			return err
		}
	}
	seq.Features[featureIdx] = *ff
	return nil
}

// SetBuild records the Feature Builder/CDS state machine's outcome for one
// feature's nucleotide prediction, deriving the outer (5'-most to 3'-most)
// sequence coordinates from its segment results (NStart <= NStop on either
// strand; a minus-strand segment result runs SeqStart high to SeqStop low),
// and adds its alerts.
func (s *Store) SetBuild(name string, m *model.Model, featureIdx int, res feature.Result) error {
	seq, ff, err := s.feature(name, featureIdx)
	if err != nil {
		return err
	}
	ff.Annotated = res.Annotated
	ff.Truncated5 = res.Truncated5
	ff.Truncated3 = res.Truncated3
	ff.CorrectedStop = res.CorrectedStop

	if res.Annotated {
		mf := &m.Features[featureIdx]
		fiveSeg := ff.Segments[mf.FivePrimeSegment()]
		threeSeg := ff.Segments[mf.ThreePrimeSegment()]
		ff.NStrand = fiveSeg.Strand
		if fiveSeg.Strand == model.Minus {
			ff.NStart, ff.NStop = threeSeg.SeqStop, fiveSeg.SeqStart
		} else {
			ff.NStart, ff.NStop = fiveSeg.SeqStart, threeSeg.SeqStop
		}
	}

	for _, a := range res.Alerts {
		if err := s.Alerts.Add(a); err != nil {
			return err
		}
	}
	seq.Features[featureIdx] = *ff
	return nil
}

// SetProtein records the Protein Reconciler's outcome for one feature, and
// adds its alerts.
func (s *Store) SetProtein(name string, featureIdx int, res protein.Result) error {
	seq, ff, err := s.feature(name, featureIdx)
	if err != nil {
		return err
	}
	ff.Protein = res.Hit
	for _, a := range res.Alerts {
		if err := s.Alerts.Add(a); err != nil {
			return err
		}
	}
	seq.Features[featureIdx] = *ff
	return nil
}

// AddParentHasError adds a parent-has-error alert to a feature, idempotently
// (the shared Alert Store already rejects exact duplicates, so a caller that
// pre-checks with Alerts.Has can skip the call entirely; AddParentHasError
// tolerates either).
func (s *Store) AddParentHasError(name string, typeIndex int) error {
	tgt := alert.Target{Sequence: name, Feature: typeIndex}
	if s.Alerts.Has(alert.ParentHasError, tgt) {
		return nil
	}
	return s.Alerts.Add(alert.Instance{Code: alert.ParentHasError, Target: tgt})
}

func (s *Store) feature(name string, featureIdx int) (*SequenceResult, *FeatureResult, error) {
	seq, ok := s.sequences[name]
	if !ok {
		return nil, nil, fmt.Errorf("store: unknown sequence %q", name)
	}
	if featureIdx < 0 || featureIdx >= len(seq.Features) {
		return nil, nil, fmt.Errorf("store: sequence %q: feature index %d out of range", name, featureIdx)
	}
	ff := seq.Features[featureIdx]
	return seq, &ff, nil
}

// FinalizeZeroFeatureAlerts adds zero-features-annotated to every sequence
// that reached feature annotation (i.e. was not skipped by a
// prevents-annotation alert) but ended up with no annotated feature, per the
// invariant in spec.md §8. Must run after every feature-producing stage has
// written its results, and before the Reporter runs.
func (s *Store) FinalizeZeroFeatureAlerts(registry *alert.Registry) error {
	for _, seq := range s.Sequences() {
		if s.Alerts.PreventsAnnotation(seq.Name) {
			continue
		}
		if len(seq.Features) == 0 {
			continue
		}
		if seq.AnnotatedFeatureCount() > 0 {
			continue
		}
		tgt := alert.Target{Sequence: seq.Name}
		if s.Alerts.Has(alert.ZeroFeaturesAnnotated, tgt) {
			continue
		}
		if err := s.Alerts.Add(alert.Instance{Code: alert.ZeroFeaturesAnnotated, Target: tgt}); err != nil {
			return err
		}
	}
	return nil
}

// Verdict implements the PASS/FAIL rule of spec.md §4.9: a sequence passes
// iff it has at least one annotated feature, no sequence-level alerts, and
// no feature-level alerts.
func (s *Store) Verdict(name string) (pass bool, reasons []alert.Instance) {
	seq := s.sequences[name]
	if seq == nil {
		return false, nil
	}
	reasons = s.Alerts.For(name)
	if seq.AnnotatedFeatureCount() == 0 {
		pass = false
	} else {
		pass = len(reasons) == 0
	}
	return pass, reasons
}
