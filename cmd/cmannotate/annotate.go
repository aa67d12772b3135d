package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cmannotate/cmannotate/internal/config"
	"github.com/cmannotate/cmannotate/internal/logging"
)

// runAnnotateCommand prepares the output directory, builds the run's
// logger, and drives runAnnotate. A per-sequence FAIL verdict is not an
// error here: spec.md §7 treats the pipeline as having completed
// successfully whenever every sequence reached a verdict, and reserves a
// non-zero exit for fatal configuration or stage failures.
func runAnnotateCommand(cmd *cobra.Command, v *viper.Viper, inputFasta, outputDir string) error {
	cfg, err := config.Load(v, inputFasta, outputDir)
	if err != nil {
		return err
	}

	if err := prepareOutputDir(cfg); err != nil {
		return &PipelineError{Component: "output directory", Err: err}
	}

	log, closeLog, err := logging.New(logging.Options{Dir: cfg.OutputDir, Basename: reportBasename, Verbose: cfg.Verbose})
	if err != nil {
		return &PipelineError{Component: "logging", Err: err}
	}
	defer closeLog()

	return runAnnotate(cmd.Context(), cfg, log)
}

// prepareOutputDir creates cfg.OutputDir, or removes and recreates it first
// when --force-overwrite is set, or errors if it already exists otherwise.
func prepareOutputDir(cfg config.Config) error {
	if _, err := os.Stat(cfg.OutputDir); err == nil {
		if !cfg.ForceOverwrite {
			return fmt.Errorf("output directory %q already exists (use --force-overwrite)", cfg.OutputDir)
		}
		if err := os.RemoveAll(cfg.OutputDir); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.MkdirAll(cfg.OutputDir, 0o755)
}
