// Package subprocess implements search.Runner by invoking an external
// covariance-model search/align engine process, per the process contract in
// spec.md §6. Building, installing, or tuning that engine is out of scope;
// this package only knows how to launch it and hand back its stdout.
package subprocess

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"

	"github.com/cmannotate/cmannotate/internal/search"
)

// Runner shells out to a configured search binary for each job.
type Runner struct {
	Binary string
	Args   []string // extra arguments, e.g. mode flags distinguishing pass 1 from pass 2
}

// NewRunner creates a Runner that invokes binary with args on every job,
// piping the job's fasta input on stdin.
func NewRunner(binary string, args ...string) *Runner {
	return &Runner{Binary: binary, Args: args}
}

// Run executes the configured binary against one job and reports success
// only if the process exits cleanly and its output contains the "ok"
// completion marker the scheduler requires.
func (r *Runner) Run(ctx context.Context, job search.Job) search.JobResult {
	cmd := exec.CommandContext(ctx, r.Binary, r.Args...)
	cmd.Stdin = job.Input

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		return search.JobResult{Seq: job.Seq, Err: fmt.Errorf("subprocess: %s: %w: %s", r.Binary, err, stderr.String())}
	}

	ok := bytes.Contains(stdout.Bytes(), []byte("[ok]"))
	return search.JobResult{Seq: job.Seq, Output: io.NopCloser(bytes.NewReader(stdout.Bytes())), OK: ok}
}

var _ search.Runner = (*Runner)(nil)
