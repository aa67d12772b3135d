package search

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// Job is one unit of dispatched work: a chunk of sequences to search.
type Job struct {
	Seq   int // original chunk order, for deterministic concatenation
	Input io.Reader
}

// JobResult is the outcome of running one Job.
type JobResult struct {
	Seq    int
	Output io.Reader
	OK     bool // the job produced a completion marker
	Err    error
}

// Runner executes one job and returns its result. The out-of-scope search or
// alignment engine is invoked through this interface; a concrete
// implementation shells out to the engine per the process contract in
// spec.md §6.
type Runner interface {
	Run(ctx context.Context, job Job) JobResult
}

// Scheduler dispatches jobs to a Runner with bounded concurrency and
// collects results in submission order: a worker-pool + ordered-collect
// shape, one goroutine per job gated by a maxJobs semaphore.
type Scheduler struct {
	runner    Runner
	maxJobs   int
	maxWait   time.Duration
}

// NewScheduler creates a Scheduler bound to runner, running up to maxJobs
// jobs concurrently and waiting up to maxWait for the whole batch.
func NewScheduler(runner Runner, maxJobs int, maxWait time.Duration) *Scheduler {
	if maxJobs <= 0 {
		maxJobs = 1
	}
	return &Scheduler{runner: runner, maxJobs: maxJobs, maxWait: maxWait}
}

// RunBatch submits every job, waits up to s.maxWait for all to complete, and
// returns results indexed by Job.Seq. If the deadline elapses before every
// job reports completion, RunBatch returns a fatal error naming the
// unfinished jobs; per the spec, no partial results are returned in that
// case.
func (s *Scheduler) RunBatch(ctx context.Context, jobs []Job) ([]JobResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.maxWait)
	defer cancel()

	sem := make(chan struct{}, s.maxJobs)
	results := make([]JobResult, len(jobs))
	done := make([]bool, len(jobs))

	var wg sync.WaitGroup
	var mu sync.Mutex

	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job Job) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}
			r := s.runner.Run(ctx, job)
			mu.Lock()
			results[i] = r
			done[i] = true
			mu.Unlock()
		}(i, job)
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()

	var unfinished []int
	for i, ok := range done {
		if !ok {
			unfinished = append(unfinished, jobs[i].Seq)
		} else if !results[i].OK {
			unfinished = append(unfinished, jobs[i].Seq)
		}
	}
	if len(unfinished) > 0 {
		return nil, fmt.Errorf("search: %d job(s) did not complete within %s: chunks %v", len(unfinished), s.maxWait, unfinished)
	}

	return results, nil
}

// ConcatenateOutputs concatenates per-chunk output readers in Job.Seq order
// (original chunk order), regardless of the order results completed in.
func ConcatenateOutputs(results []JobResult) io.Reader {
	readers := make([]io.Reader, len(results))
	for i, r := range results {
		readers[i] = r.Output
	}
	return io.MultiReader(readers...)
}
