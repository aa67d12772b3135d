// Package config binds the pipeline's CLI flags, an optional
// ~/.cmannotate.yaml config file, and documented defaults into one
// Config value, following the teacher's viper/yaml.v3 pattern in
// cmd/vibe-vep/config.go — wired into every flag here instead of the
// teacher's disconnected "config get/set" subcommand.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cmannotate/cmannotate/internal/align"
	"github.com/cmannotate/cmannotate/internal/classify"
	"github.com/cmannotate/cmannotate/internal/protein"
	"github.com/cmannotate/cmannotate/internal/search"
)

// Config is every flag-configurable value a run needs, merged from
// defaults, an optional config file, and explicit CLI flags (in that
// ascending priority order, viper's usual precedence).
type Config struct {
	InputFasta string
	OutputDir  string

	ForceOverwrite bool

	ModelFile  string
	ModelInfo  string
	ProteinDB  string

	ExpectedGroup    string
	ExpectedSubgroup string

	Classify classify.Thresholds

	MinPP            float64
	MaxMatrixMB      int
	InitialTau       float64
	FixedTau         bool
	SubAlignment     bool
	LocalAlignment   bool

	Protein protein.Thresholds

	Parallelize         bool
	ChunkKB              int
	MaxWaitMinutes       int
	MaxJobs              int
	SchedulerInfo        string
	TreatStderrAsFailure bool

	KeepIntermediates bool
	SkipAlignment     bool

	Verbose bool
}

// BindFlags registers every CLI flag named in spec.md §6 onto cmd, binds
// each to viper under the same dotted key, and sets the documented default.
func BindFlags(cmd *cobra.Command, v *viper.Viper) {
	flags := cmd.Flags()

	flags.Bool("force-overwrite", false, "remove the output directory if it already exists")

	flags.String("model-file", "", "override the library's default model library path")
	flags.String("model-info", "", "override the library's default model-info path")
	flags.String("protein-db", "", "override the library's default protein database directory")

	flags.String("expected-group", "", "declare the expected model group (subgroup requires this)")
	flags.String("expected-subgroup", "", "declare the expected model subgroup")

	ct := classify.DefaultThresholds()
	flags.Float64("low-cov", ct.LowCoverage, "coverage fraction below which low-coverage fires")
	flags.Float64("low-sc", ct.LowScore, "score/nt below which low-score fires")
	flags.Float64("very-low-sc", ct.VeryLowScore, "score/nt below which very-low-score fires")
	flags.Float64("low-diff", ct.LowDiff, "score-per-nt difference below which low-score-difference fires")
	flags.Float64("very-low-diff", ct.VeryLowDiff, "score-per-nt difference below which very-low-score-difference fires")
	flags.Float64("bias-fract", ct.BiasFraction, "bias fraction above which high-bias fires")
	flags.Float64("group-threshold", ct.GroupThreshold, "score-per-nt difference above which unexpected-group/subgroup fires")
	flags.Bool("group-top-only", false, "restrict group/subgroup comparison to each model's single top hit")

	flags.Float64("min-pp", align.DefaultMinPP, "posterior probability below which a boundary is flagged low-confidence")
	flags.Int("max-matrix-mb", 8192, "per-job alignment matrix memory budget in megabytes")
	flags.Float64("initial-tau", 1e-7, "initial alignment search tail-acceptance probability")
	flags.Bool("fixed-tau", false, "disable adaptive tau widening on search failure")
	flags.Bool("sub-alignment", false, "allow local sub-alignment of the query within the model")
	flags.Bool("local-alignment", false, "use local rather than global alignment mode")

	pt := protein.DefaultThresholds()
	flags.Int("alignment-tolerance-nt", pt.FivePrimeTolerance, "nucleotide tolerance for protein/nucleotide 5'/3' boundary disagreement")
	flags.Int("indel-tolerance-nt", pt.MaxInsert, "maximum protein-alignment insertion/deletion length before flagging")
	flags.Float64("lone-hit-min-score", pt.LoneHitScore, "minimum score for an unsupported protein hit to be reported")

	opts := search.DefaultOptions()
	flags.Bool("parallelize", opts.MaxJobs > 1, "run up to --max-jobs search jobs concurrently (alignment batches always run one at a time)")
	flags.Int("chunk-kb", opts.ChunkKB, "target chunk size in KB once the total-nucleotide budget is exceeded")
	flags.Int("max-wait-minutes", int(opts.MaxWait/time.Minute), "wall-clock budget, in minutes, for a batch of dispatched jobs")
	flags.Int("max-jobs", opts.MaxJobs, "maximum concurrently dispatched jobs")
	flags.String("scheduler-info", "", "path to a scheduler-specific configuration file (stored in the configuration only; no stage reads the file)")
	flags.Bool("treat-stderr-as-failure", false, "stored in the configuration only; no job runner reads it, so subprocess stderr output alone never fails a job")

	flags.Bool("keep-intermediates", false, "retain per-stage intermediate files and persist them to a queryable database")
	flags.Bool("skip-alignment", false, "reuse a previous run's alignment outputs instead of re-aligning")

	flags.BoolP("verbose", "v", false, "enable debug-level logging")

	_ = v.BindPFlags(flags)
}

// ConfigError reports a malformed or missing input discovered while
// assembling a run's configuration, before any sequence is processed
// (spec.md §7's first error plane).
type ConfigError struct {
	Input string
	Err   error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("config: %s: %v", e.Input, e.Err) }
func (e *ConfigError) Unwrap() error { return e.Err }

// Load reads viper's bound flags (plus an optional ~/.cmannotate.yaml, if
// present) into a Config, validating the group/subgroup and threshold
// invariants spec.md §6/§9 name.
func Load(v *viper.Viper, inputFasta, outputDir string) (Config, error) {
	if home, err := os.UserHomeDir(); err == nil {
		v.SetConfigFile(filepath.Join(home, ".cmannotate.yaml"))
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && !os.IsNotExist(err) {
				return Config{}, &ConfigError{Input: v.ConfigFileUsed(), Err: err}
			}
		}
	}

	cfg := Config{
		InputFasta: inputFasta,
		OutputDir:  outputDir,

		ForceOverwrite: v.GetBool("force-overwrite"),

		ModelFile: v.GetString("model-file"),
		ModelInfo: v.GetString("model-info"),
		ProteinDB: v.GetString("protein-db"),

		ExpectedGroup:    v.GetString("expected-group"),
		ExpectedSubgroup: v.GetString("expected-subgroup"),

		Classify: classify.Thresholds{
			LowCoverage:    v.GetFloat64("low-cov"),
			LowScore:       v.GetFloat64("low-sc"),
			VeryLowScore:   v.GetFloat64("very-low-sc"),
			LowDiff:        v.GetFloat64("low-diff"),
			VeryLowDiff:    v.GetFloat64("very-low-diff"),
			BiasFraction:   v.GetFloat64("bias-fract"),
			GroupThreshold: v.GetFloat64("group-threshold"),
			Epsilon:        1e-9,
		},

		MinPP:          v.GetFloat64("min-pp"),
		MaxMatrixMB:    v.GetInt("max-matrix-mb"),
		InitialTau:     v.GetFloat64("initial-tau"),
		FixedTau:       v.GetBool("fixed-tau"),
		SubAlignment:   v.GetBool("sub-alignment"),
		LocalAlignment: v.GetBool("local-alignment"),

		Protein: protein.Thresholds{
			LoneHitScore:             v.GetFloat64("lone-hit-min-score"),
			FivePrimeTolerance:       v.GetInt("alignment-tolerance-nt"),
			ThreePrimeTolerance:      v.GetInt("alignment-tolerance-nt"),
			ThreePrimeToleranceBonus: protein.DefaultThresholds().ThreePrimeToleranceBonus,
			MaxInsert:                v.GetInt("indel-tolerance-nt"),
			MaxDelete:                v.GetInt("indel-tolerance-nt"),
		},

		Parallelize:          v.GetBool("parallelize"),
		ChunkKB:              v.GetInt("chunk-kb"),
		MaxWaitMinutes:       v.GetInt("max-wait-minutes"),
		MaxJobs:              v.GetInt("max-jobs"),
		SchedulerInfo:        v.GetString("scheduler-info"),
		TreatStderrAsFailure: v.GetBool("treat-stderr-as-failure"),

		KeepIntermediates: v.GetBool("keep-intermediates"),
		SkipAlignment:     v.GetBool("skip-alignment"),

		Verbose: v.GetBool("verbose"),
	}

	if cfg.ExpectedSubgroup != "" && cfg.ExpectedGroup == "" {
		return Config{}, &ConfigError{Input: "expected-subgroup", Err: fmt.Errorf("requires --expected-group to also be set")}
	}
	if err := cfg.Classify.Validate(); err != nil {
		return Config{}, &ConfigError{Input: "classification thresholds", Err: err}
	}
	if cfg.InputFasta == "" {
		return Config{}, &ConfigError{Input: "input fasta", Err: fmt.Errorf("required")}
	}
	if cfg.OutputDir == "" {
		return Config{}, &ConfigError{Input: "output directory", Err: fmt.Errorf("required")}
	}

	return cfg, nil
}

// SearchOptions derives the search.Orchestrator's Options from the run
// configuration.
func (c Config) SearchOptions() search.Options {
	jobs := 1
	if c.Parallelize {
		jobs = c.MaxJobs
	}
	return search.Options{
		ChunkKB:          c.ChunkKB,
		MaxWait:          time.Duration(c.MaxWaitMinutes) * time.Minute,
		MaxJobs:          jobs,
		NTBudget:         search.DefaultOptions().NTBudget,
		ExpectedGroup:    c.ExpectedGroup,
		ExpectedSubgroup: c.ExpectedSubgroup,
	}
}

// AlignMinPP returns the alignment stage's minimum-posterior-probability
// cutoff, the only align-package threshold sourced from configuration
// (align.MapFeature takes it directly, no Thresholds struct of its own).
func (c Config) AlignMinPP() float64 { return c.MinPP }
