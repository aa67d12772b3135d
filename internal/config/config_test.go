package config

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCmd() (*cobra.Command, *viper.Viper) {
	cmd := &cobra.Command{Use: "annotate"}
	v := viper.New()
	BindFlags(cmd, v)
	return cmd, v
}

func TestLoad_Defaults(t *testing.T) {
	cmd, v := newTestCmd()
	require.NoError(t, cmd.ParseFlags(nil))

	cfg, err := Load(v, "in.fa", "out")
	require.NoError(t, err)
	assert.Equal(t, "in.fa", cfg.InputFasta)
	assert.Equal(t, "out", cfg.OutputDir)
	assert.False(t, cfg.ForceOverwrite)
	assert.Equal(t, 0.9, cfg.Classify.LowCoverage)
	assert.Equal(t, 1, cfg.SearchOptions().MaxJobs)
}

func TestLoad_SubgroupRequiresGroup(t *testing.T) {
	cmd, v := newTestCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--expected-subgroup=foo"}))

	_, err := Load(v, "in.fa", "out")
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestLoad_MissingInputIsConfigError(t *testing.T) {
	_, v := newTestCmd()
	_, err := Load(v, "", "out")
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestLoad_ParallelizeRaisesMaxJobs(t *testing.T) {
	cmd, v := newTestCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--parallelize", "--max-jobs=4"}))

	cfg, err := Load(v, "in.fa", "out")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.SearchOptions().MaxJobs)
}

func TestLoad_FlagOverridesThreshold(t *testing.T) {
	cmd, v := newTestCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--low-cov=0.5"}))

	cfg, err := Load(v, "in.fa", "out")
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Classify.LowCoverage)
}
