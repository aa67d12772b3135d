package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cmannotate/cmannotate/internal/config"
)

// newRootCmd builds the cmannotate root command and its subcommands, binding
// every flag named in spec.md §6 onto the annotate subcommand via
// config.BindFlags, following the teacher's one-binary-many-subcommands
// cobra layout.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cmannotate",
		Short:         "Classify and annotate nucleotide sequences against a reference model library",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	v := viper.New()
	root.AddCommand(newAnnotateCmd(v))
	root.AddCommand(newVersionCmd())
	return root
}

func newAnnotateCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annotate <input.fasta> <output-dir>",
		Short: "Classify and annotate every sequence in input.fasta",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnnotateCommand(cmd, v, args[0], args[1])
		},
	}
	config.BindFlags(cmd, v)
	return cmd
}
