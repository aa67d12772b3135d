package align

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/cmannotate/cmannotate/internal/alert"
	"github.com/cmannotate/cmannotate/internal/fasta"
	"go.uber.org/zap"
)

// ErrMatrixTooLarge is returned by an Aligner when a batch's DP matrix would
// exceed the configured memory budget. The Driver treats it as a signal to
// retry the batch one sequence at a time rather than a fatal error.
var ErrMatrixTooLarge = errors.New("align: alignment matrix exceeds memory budget")

// Aligner is the external alignment engine's contract. A batch holds one or
// more sequences destined for the same model; a single call aligns all of
// them together (for throughput) or fails with ErrMatrixTooLarge if the
// combined matrix would not fit in memory.
type Aligner interface {
	Align(ctx context.Context, modelName string, seqs []fasta.Sequence) ([]Alignment, error)
}

// Driver runs an Aligner over per-model batches, isolating and retrying
// single sequences when a batch overflows memory, per spec.md §4.5.
type Driver struct {
	aligner Aligner
	log     *zap.SugaredLogger
}

// NewDriver builds a Driver. log may be nil, in which case a no-op logger is
// used.
func NewDriver(aligner Aligner, log *zap.SugaredLogger) *Driver {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Driver{aligner: aligner, log: log}
}

// Batch is one model's worth of sequences to align together.
type Batch struct {
	Model string
	Seqs  []fasta.Sequence
}

// Result is one sequence's outcome: either an Alignment, or an alert
// recording that the sequence was too divergent to align at all (and so
// never produced one).
type Result struct {
	Sequence  string
	Alignment *Alignment
	Alert     *alert.Instance // non-nil only when Alignment is nil
}

// Run aligns every batch, splitting and retrying on ErrMatrixTooLarge until
// each sequence has either aligned or been isolated as too divergent.
func (d *Driver) Run(ctx context.Context, batches []Batch) ([]Result, error) {
	var results []Result
	for _, b := range batches {
		r, err := d.runBatch(ctx, b)
		if err != nil {
			return nil, err
		}
		results = append(results, r...)
	}
	return results, nil
}

func (d *Driver) runBatch(ctx context.Context, b Batch) ([]Result, error) {
	if len(b.Seqs) == 0 {
		return nil, nil
	}

	alns, err := d.aligner.Align(ctx, b.Model, b.Seqs)
	if err == nil {
		results := make([]Result, len(alns))
		for i, a := range alns {
			aln := a
			results[i] = Result{Sequence: aln.Sequence, Alignment: &aln}
		}
		return results, nil
	}
	if !errors.Is(err, ErrMatrixTooLarge) {
		return nil, fmt.Errorf("align: model %q: %w", b.Model, err)
	}

	if len(b.Seqs) == 1 {
		d.log.Warnw("sequence too divergent to align", "sequence", b.Seqs[0].Name, "model", b.Model)
		return []Result{{
			Sequence: b.Seqs[0].Name,
			Alert:    &alert.Instance{Code: alert.TooDivergent, Target: alert.Target{Sequence: b.Seqs[0].Name}},
		}}, nil
	}

	d.log.Infow("batch matrix too large, isolating sequences", "model", b.Model, "n", len(b.Seqs))
	var out []Result
	for _, seq := range b.Seqs {
		r, err := d.runBatch(ctx, Batch{Model: b.Model, Seqs: []fasta.Sequence{seq}})
		if err != nil {
			return nil, err
		}
		out = append(out, r...)
	}
	return out, nil
}

// WriteFasta is a convenience used by callers assembling a Batch's input for
// an out-of-process Aligner implementation.
func WriteFasta(seqs []fasta.Sequence) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	if err := fasta.Write(&buf, seqs); err != nil {
		return nil, err
	}
	return &buf, nil
}
