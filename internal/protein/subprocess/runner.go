// Package subprocess invokes the external protein-alignment engine named in
// spec.md §6 and parses its summary output into protein.Hit values,
// mirroring internal/search/subprocess's "shell out, hand back stdout"
// shape for the protein reconciliation stage's own process contract.
package subprocess

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/cmannotate/cmannotate/internal/fasta"
	"github.com/cmannotate/cmannotate/internal/protein"
)

// Runner shells out to a configured protein aligner binary for a batch of
// sequences against a protein database directory.
type Runner struct {
	Binary string
	Args   []string
}

// NewRunner creates a Runner invoking binary with args, piping the batch's
// fasta on stdin and the protein database directory as a trailing argument.
func NewRunner(binary string, args ...string) *Runner {
	return &Runner{Binary: binary, Args: args}
}

// Run searches seqs against proteinDB and returns every parsed hit.
func (r *Runner) Run(ctx context.Context, proteinDB string, seqs []fasta.Sequence) ([]protein.Hit, error) {
	var input bytes.Buffer
	if err := fasta.Write(&input, seqs); err != nil {
		return nil, fmt.Errorf("protein: subprocess: write batch: %w", err)
	}

	args := append(append([]string{}, r.Args...), proteinDB)
	cmd := exec.CommandContext(ctx, r.Binary, args...)
	cmd.Stdin = &input

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("protein: subprocess: %s: %w: %s", r.Binary, err, stderr.String())
	}

	hits, err := protein.ParseSummary(&stdout)
	if err != nil {
		return nil, fmt.Errorf("protein: subprocess: parse summary: %w", err)
	}
	return hits, nil
}
