package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/cmannotate/cmannotate/internal/align"
	alignsub "github.com/cmannotate/cmannotate/internal/align/subprocess"
	"github.com/cmannotate/cmannotate/internal/alert"
	"github.com/cmannotate/cmannotate/internal/classify"
	"github.com/cmannotate/cmannotate/internal/config"
	"github.com/cmannotate/cmannotate/internal/fasta"
	"github.com/cmannotate/cmannotate/internal/feature"
	"github.com/cmannotate/cmannotate/internal/model"
	"github.com/cmannotate/cmannotate/internal/protein"
	proteinsub "github.com/cmannotate/cmannotate/internal/protein/subprocess"
	"github.com/cmannotate/cmannotate/internal/report"
	"github.com/cmannotate/cmannotate/internal/search"
	searchsub "github.com/cmannotate/cmannotate/internal/search/subprocess"
	"github.com/cmannotate/cmannotate/internal/store"
)

// The search/alignment/protein engines are out of scope (spec.md §6); these
// are the conventional binary names their real counterparts install under.
const (
	searchBinary  = "cmsearch"
	alignBinary   = "cmalign"
	proteinBinary = "hmmscan"
)

const reportBasename = "cmannotate"

// runAnnotate drives every stage named in spec.md §5, in sequence, over one
// input fasta, writing every reported artifact into cfg.OutputDir.
func runAnnotate(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	sugar := log.Sugar()

	models, err := model.Load(cfg.ModelInfo)
	if err != nil {
		return &config.ConfigError{Input: cfg.ModelInfo, Err: err}
	}
	modelsByName := make(map[string]*model.Model, len(models.Models()))
	for _, m := range models.Models() {
		modelsByName[m.Name] = m
	}

	f, err := os.Open(cfg.InputFasta)
	if err != nil {
		return &PipelineError{Component: "read input", Err: err}
	}
	seqs, err := fasta.Read(f)
	f.Close()
	if err != nil {
		return &PipelineError{Component: "read input", Err: err}
	}
	seqByName := make(map[string]fasta.Sequence, len(seqs))
	for _, s := range seqs {
		seqByName[s.Name] = s
	}

	registry := alert.NewRegistry()
	resultStore := store.New(registry)
	for _, s := range seqs {
		if _, err := resultStore.AddSequence(s.Name, s.Length()); err != nil {
			return &PipelineError{Component: "register sequences", Err: err}
		}
	}

	if err := runSearchAndClassify(ctx, cfg, sugar, models, resultStore, registry, seqs); err != nil {
		return err
	}

	if !cfg.SkipAlignment {
		if err := runAlignAndBuild(ctx, cfg, sugar, modelsByName, resultStore, registry, seqs, seqByName); err != nil {
			return err
		}
		if err := runProteinReconcile(ctx, cfg, modelsByName, resultStore, seqByName); err != nil {
			return err
		}
	}

	if err := resultStore.FinalizeZeroFeatureAlerts(registry); err != nil {
		return &PipelineError{Component: "finalize alerts", Err: err}
	}

	if cfg.KeepIntermediates {
		if err := persistIntermediates(cfg, resultStore); err != nil {
			return &PipelineError{Component: "persist intermediates", Err: err}
		}
	}

	if err := report.CommandLog(cfg.OutputDir, os.Args); err != nil {
		return &PipelineError{Component: "command log", Err: err}
	}
	writer := report.New(cfg.OutputDir, reportBasename)
	if err := writer.Write(resultStore, registry, modelsByName); err != nil {
		return &PipelineError{Component: "report", Err: err}
	}
	return nil
}

// runSearchAndClassify runs the two-pass homology search and the classifier,
// writing every sequence's classification record and decision alerts.
func runSearchAndClassify(ctx context.Context, cfg config.Config, sugar *zap.SugaredLogger, models *model.Store, resultStore *store.Store, registry *alert.Registry, seqs []fasta.Sequence) error {
	pass1Runner := searchsub.NewRunner(searchBinary, "--noali", "--tblout", "-")
	pass2Runner := searchsub.NewRunner(searchBinary, "--noali", "--tblout", "-", "--nohmmonly")
	orch := search.New(pass1Runner, pass2Runner, models, cfg.SearchOptions(), sugar)

	pass1, err := orch.RunPass1(ctx, seqs)
	if err != nil {
		return &PipelineError{Component: "search pass 1", Err: err}
	}
	pass2, err := orch.RunPass2(ctx, seqs, pass1)
	if err != nil {
		return &PipelineError{Component: "search pass 2", Err: err}
	}
	merged := mergeClassificationRecords(pass1, pass2)

	for _, s := range seqs {
		rec, ok := merged[s.Name]
		if !ok {
			rec = &search.ClassificationRecord{Sequence: s.Name}
		}
		decision, err := classify.Classify(rec, s.Length(), cfg.Classify, registry)
		if err != nil {
			return &PipelineError{Component: "classify", Err: err}
		}
		if err := resultStore.SetClassification(s.Name, rec, decision); err != nil {
			return &PipelineError{Component: "classify", Err: err}
		}
	}
	return nil
}

// mergeClassificationRecords combines the pass-1 record (which carries
// BestOverallPass1 and the group/subgroup comparison keys) with the pass-2
// record (which carries only BestInPass2) for every sequence seen in either.
func mergeClassificationRecords(pass1, pass2 map[string]*search.ClassificationRecord) map[string]*search.ClassificationRecord {
	merged := make(map[string]*search.ClassificationRecord, len(pass1))
	for name, rec := range pass1 {
		merged[name] = rec
	}
	for name, rec2 := range pass2 {
		rec, ok := merged[name]
		if !ok {
			rec = &search.ClassificationRecord{Sequence: name}
			merged[name] = rec
		}
		rec.BestInPass2 = rec2.BestInPass2
	}
	return merged
}

// strandOf always reports Plus: alert.MinusStrand prevents annotation, so no
// sequence reaching the Aligner Driver is ever on the minus strand.
func strandOf(string) model.Strand { return model.Plus }

// runAlignAndBuild batches classified sequences by model, runs the Aligner
// Driver, maps each feature's alignment to sequence coordinates, and runs
// the CDS-validation state machine over the result.
func runAlignAndBuild(ctx context.Context, cfg config.Config, sugar *zap.SugaredLogger, modelsByName map[string]*model.Model, resultStore *store.Store, registry *alert.Registry, seqs []fasta.Sequence, seqByName map[string]fasta.Sequence) error {
	batchMap := make(map[string][]fasta.Sequence)
	for _, s := range seqs {
		seq := resultStore.Sequence(s.Name)
		if seq.Decision.Model == "" || seq.Decision.Prevented(registry) {
			continue
		}
		batchMap[seq.Decision.Model] = append(batchMap[seq.Decision.Model], s)
	}
	var modelNames []string
	for name := range batchMap {
		modelNames = append(modelNames, name)
	}
	sort.Strings(modelNames)

	var batches []align.Batch
	for _, name := range modelNames {
		batches = append(batches, align.Batch{Model: name, Seqs: batchMap[name]})
	}

	aligner := alignsub.NewAligner(alignBinary, cfg.OutputDir,
		func(name string) *model.Model { return modelsByName[name] }, strandOf, alignArgs(cfg)...)
	driver := align.NewDriver(aligner, sugar)

	results, err := driver.Run(ctx, batches)
	if err != nil {
		return &PipelineError{Component: "align", Err: err}
	}

	for _, r := range results {
		if r.Alignment == nil {
			if r.Alert != nil {
				if err := resultStore.Alerts.Add(*r.Alert); err != nil {
					return &PipelineError{Component: "align", Err: err}
				}
			}
			continue
		}
		if err := resultStore.SetAligned(r.Sequence); err != nil {
			return &PipelineError{Component: "align", Err: err}
		}

		m := modelsByName[resultStore.Sequence(r.Sequence).Model]
		if err := resultStore.InitFeatures(r.Sequence, m); err != nil {
			return &PipelineError{Component: "build", Err: err}
		}

		buildResults := make([]feature.Result, len(m.Features))
		for i := range m.Features {
			ff := &m.Features[i]
			segs, alerts, err := align.MapFeature(*r.Alignment, ff, cfg.AlignMinPP(), ff.TypeIndex)
			if err != nil {
				return &PipelineError{Component: "map", Err: err}
			}
			if err := resultStore.SetSegments(r.Sequence, i, segs, alerts); err != nil {
				return &PipelineError{Component: "map", Err: err}
			}

			res, err := feature.Build(r.Sequence, seqByName[r.Sequence].Bases, m, i, segs)
			if err != nil {
				return &PipelineError{Component: "build", Err: err}
			}
			buildResults[i] = res
		}

		feature.PropagateParentErrors(r.Sequence, m, buildResults)
		for i, res := range buildResults {
			if err := resultStore.SetBuild(r.Sequence, m, i, res); err != nil {
				return &PipelineError{Component: "build", Err: err}
			}
		}
	}
	return nil
}

// alignArgs mirrors the real cmalign flags the configured tolerances name.
func alignArgs(cfg config.Config) []string {
	args := []string{
		"--mxsize", strconv.Itoa(cfg.MaxMatrixMB),
		"--tau", strconv.FormatFloat(cfg.InitialTau, 'g', -1, 64),
	}
	if cfg.FixedTau {
		args = append(args, "--fixedtau")
	}
	if cfg.SubAlignment {
		args = append(args, "--sub")
	}
	if !cfg.LocalAlignment {
		args = append(args, "-g")
	}
	return args
}

// runProteinReconcile runs the protein-alignment engine over every
// coding-region-bearing sequence and reconciles its hits against each
// coding region's nucleotide prediction.
func runProteinReconcile(ctx context.Context, cfg config.Config, modelsByName map[string]*model.Model, resultStore *store.Store, seqByName map[string]fasta.Sequence) error {
	var batch []fasta.Sequence
	for _, seq := range resultStore.Sequences() {
		if !seq.Aligned {
			continue
		}
		m := modelsByName[seq.Model]
		if len(m.FeaturesOfType(model.CodingRegion)) == 0 {
			continue
		}
		batch = append(batch, seqByName[seq.Name])
	}
	if len(batch) == 0 {
		return nil
	}

	proteinDB := cfg.ProteinDB
	runner := proteinsub.NewRunner(proteinBinary)
	hits, err := runner.Run(ctx, proteinDB, batch)
	if err != nil {
		return &PipelineError{Component: "protein", Err: err}
	}

	for _, seq := range resultStore.Sequences() {
		if !seq.Aligned {
			continue
		}
		m := modelsByName[seq.Model]
		for i := range m.Features {
			ff := &m.Features[i]
			if ff.Type != model.CodingRegion {
				continue
			}
			ffResult := seq.Features[i]

			nuc := protein.NucleotidePrediction{
				Annotated:    ffResult.Annotated,
				Start:        ffResult.NStart,
				Stop:         ffResult.NStop,
				Strand:       ffResult.NStrand,
				HasValidStop: hasValidStop(resultStore, seq.Name, ffResult.TypeIndex),
			}
			res := protein.Reconcile(seq.Name, ffResult.TypeIndex, "", nuc, hits, cfg.Protein)
			if err := resultStore.SetProtein(seq.Name, i, res); err != nil {
				return &PipelineError{Component: "protein", Err: err}
			}
			if res.HasErrorAlert() {
				for _, childIdx := range ff.Children {
					if err := resultStore.AddParentHasError(seq.Name, m.Features[childIdx].TypeIndex); err != nil {
						return &PipelineError{Component: "protein", Err: err}
					}
				}
			}
		}
	}
	return nil
}

func hasValidStop(s *store.Store, seqName string, typeIndex int) bool {
	for _, inst := range s.Alerts.ForFeature(seqName, typeIndex) {
		if inst.Code == alert.InvalidStop || inst.Code == alert.NoStopFound {
			return false
		}
	}
	return true
}

func persistIntermediates(cfg config.Config, resultStore *store.Store) error {
	db, err := store.OpenDB(fmt.Sprintf("%s/%s.duckdb", cfg.OutputDir, reportBasename))
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Persist(resultStore)
}
