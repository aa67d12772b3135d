package search

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/cmannotate/cmannotate/internal/fasta"
	"github.com/cmannotate/cmannotate/internal/model"
	"go.uber.org/zap"
)

// Options configures the Orchestrator's parallelism policy.
type Options struct {
	ChunkKB       int           // target chunk size in KB; pass 1 chunks only once TotalLength exceeds NTBudget, pass 2 always chunks
	MaxWait       time.Duration // wall-clock budget for a batch of dispatched jobs
	MaxJobs       int           // maximum concurrently dispatched jobs
	NTBudget      int           // total-nucleotide threshold above which chunking kicks in
	ExpectedGroup    string
	ExpectedSubgroup string
}

// DefaultOptions returns the spec's documented defaults.
func DefaultOptions() Options {
	return Options{
		ChunkKB:  10_000,
		MaxWait:  500 * time.Minute,
		MaxJobs:  1,
		NTBudget: 50_000_000,
	}
}

// Orchestrator drives the two search passes.
type Orchestrator struct {
	pass1Runner Runner
	pass2Runner Runner
	opts        Options
	log         *zap.SugaredLogger
	store       *model.Store
}

// New creates an Orchestrator. pass1Runner and pass2Runner invoke the
// out-of-scope search engine in its two modes.
func New(pass1Runner, pass2Runner Runner, store *model.Store, opts Options, log *zap.SugaredLogger) *Orchestrator {
	return &Orchestrator{pass1Runner: pass1Runner, pass2Runner: pass2Runner, opts: opts, log: log, store: store}
}

// RunPass1 searches every sequence against every model and returns each
// sequence's classification record filled with the four pass-1 keys.
func (o *Orchestrator) RunPass1(ctx context.Context, seqs []fasta.Sequence) (map[string]*ClassificationRecord, error) {
	jobs := o.buildJobs(seqs)

	sched := NewScheduler(o.pass1Runner, o.opts.MaxJobs, o.opts.MaxWait)
	results, err := sched.RunBatch(ctx, jobs)
	if err != nil {
		return nil, fmt.Errorf("search: pass 1: %w", err)
	}

	merged := ConcatenateOutputs(results)
	groupOf := func(name string) string {
		if m := o.store.Model(name); m != nil {
			return m.Group
		}
		return ""
	}
	subgroupOf := func(name string) string {
		if m := o.store.Model(name); m != nil {
			return m.Subgroup
		}
		return ""
	}

	recs, err := ParsePass1(merged, groupOf, subgroupOf, o.opts.ExpectedGroup, o.opts.ExpectedSubgroup)
	if err != nil {
		return nil, fmt.Errorf("search: pass 1: %w", err)
	}
	if o.log != nil {
		o.log.Infow("pass-1 search complete", "sequences", len(seqs), "classified", len(recs))
	}
	return recs, nil
}

// RunPass2 searches, for each model with at least one pass-1 assignment,
// only the sequences assigned to it against only that model.
func (o *Orchestrator) RunPass2(ctx context.Context, seqs []fasta.Sequence, pass1 map[string]*ClassificationRecord) (map[string]*ClassificationRecord, error) {
	byModel := make(map[string][]fasta.Sequence)
	bySeq := make(map[string]fasta.Sequence, len(seqs))
	for _, s := range seqs {
		bySeq[s.Name] = s
	}
	for _, rec := range pass1 {
		if rec.BestOverallPass1 == nil {
			continue
		}
		if s, ok := bySeq[rec.Sequence]; ok {
			byModel[rec.BestOverallPass1.Model] = append(byModel[rec.BestOverallPass1.Model], s)
		}
	}

	var jobs []Job
	seq := 0
	for modelName, modelSeqs := range byModel {
		for _, chunk := range fasta.Chunk(modelSeqs, o.opts.ChunkKB) {
			var buf bytes.Buffer
			if err := fasta.Write(&buf, chunk); err != nil {
				return nil, fmt.Errorf("search: pass 2: write chunk for model %s: %w", modelName, err)
			}
			jobs = append(jobs, Job{Seq: seq, Input: &buf})
			seq++
		}
	}

	sched := NewScheduler(o.pass2Runner, o.opts.MaxJobs, o.opts.MaxWait)
	results, err := sched.RunBatch(ctx, jobs)
	if err != nil {
		return nil, fmt.Errorf("search: pass 2: %w", err)
	}

	merged := ConcatenateOutputs(results)
	recs, err := ParsePass2(merged)
	if err != nil {
		return nil, fmt.Errorf("search: pass 2: %w", err)
	}
	if o.log != nil {
		o.log.Infow("pass-2 search complete", "models", len(byModel), "classified", len(recs))
	}
	return recs, nil
}

// buildJobs chunks seqs by the configured target size once the total
// nucleotide budget is exceeded; otherwise it returns a single job.
func (o *Orchestrator) buildJobs(seqs []fasta.Sequence) []Job {
	chunkKB := o.opts.ChunkKB
	if fasta.TotalLength(seqs) <= o.opts.NTBudget {
		chunkKB = 0 // Chunk(..., 0) returns a single batch
	}

	var jobs []Job
	for i, chunk := range fasta.Chunk(seqs, chunkKB) {
		var buf bytes.Buffer
		_ = fasta.Write(&buf, chunk)
		jobs = append(jobs, Job{Seq: i, Input: &buf})
	}
	return jobs
}
