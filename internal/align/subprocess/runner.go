// Package subprocess implements align.Aligner by invoking an external
// covariance-model alignment engine process, mirroring
// internal/search/subprocess's shape for the alignment stage's own process
// contract (spec.md §6): the engine reads a fasta batch on stdin and writes
// a Stockholm-style alignment to stdout plus a side-channel insert file to a
// path this package controls.
package subprocess

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/cmannotate/cmannotate/internal/align"
	"github.com/cmannotate/cmannotate/internal/fasta"
	"github.com/cmannotate/cmannotate/internal/model"
)

// matrixOverflowMarker is the substring the engine writes to stderr when it
// refuses a batch for exceeding the configured matrix-size budget.
const matrixOverflowMarker = "matrix exceeds"

// Aligner shells out to a configured alignment binary for each batch.
type Aligner struct {
	Binary    string
	Args      []string // extra arguments, e.g. --mxsize, -g, --sub, --notrunc
	TmpDir    string    // directory for the per-batch insert side-channel file
	ModelOf   func(name string) *model.Model
	StrandOf  func(sequence string) model.Strand
}

// NewAligner creates an Aligner that invokes binary with args for every
// batch, writing the insert side-channel file under tmpDir.
func NewAligner(binary, tmpDir string, modelOf func(string) *model.Model, strandOf func(string) model.Strand, args ...string) *Aligner {
	return &Aligner{Binary: binary, Args: args, TmpDir: tmpDir, ModelOf: modelOf, StrandOf: strandOf}
}

// Align runs the configured binary against one batch of sequences destined
// for modelName.
func (a *Aligner) Align(ctx context.Context, modelName string, seqs []fasta.Sequence) ([]align.Alignment, error) {
	m := a.ModelOf(modelName)
	if m == nil {
		return nil, fmt.Errorf("align: subprocess: unknown model %q", modelName)
	}

	insertPath, err := os.CreateTemp(a.TmpDir, "inserts-*.txt")
	if err != nil {
		return nil, fmt.Errorf("align: subprocess: create insert file: %w", err)
	}
	insertPath.Close()
	defer os.Remove(insertPath.Name())

	var input bytes.Buffer
	if err := fasta.Write(&input, seqs); err != nil {
		return nil, fmt.Errorf("align: subprocess: write batch: %w", err)
	}

	args := append(append([]string{}, a.Args...), "--ifile", insertPath.Name(), modelName)
	cmd := exec.CommandContext(ctx, a.Binary, args...)
	cmd.Stdin = &input

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if bytes.Contains(stderr.Bytes(), []byte(matrixOverflowMarker)) {
			return nil, align.ErrMatrixTooLarge
		}
		return nil, fmt.Errorf("align: subprocess: %s: %w: %s", a.Binary, err, stderr.String())
	}

	seqLengths := make(map[string]int, len(seqs))
	for _, s := range seqs {
		seqLengths[s.Name] = s.Length()
	}

	alns, err := align.ParseAlignments(&stdout, modelName, m.Length, seqLengths, a.StrandOf)
	if err != nil {
		return nil, fmt.Errorf("align: subprocess: parse alignment: %w", err)
	}

	insertFile, err := os.Open(insertPath.Name())
	if err != nil {
		return nil, fmt.Errorf("align: subprocess: open insert file: %w", err)
	}
	defer insertFile.Close()
	inserts, err := align.ParseInserts(insertFile)
	if err != nil {
		return nil, fmt.Errorf("align: subprocess: parse inserts: %w", err)
	}

	return align.AttachInserts(alns, inserts), nil
}

var _ align.Aligner = (*Aligner)(nil)
