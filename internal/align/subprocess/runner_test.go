package subprocess

import (
	"context"
	"testing"

	"github.com/cmannotate/cmannotate/internal/fasta"
	"github.com/cmannotate/cmannotate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAligner_UnknownModel(t *testing.T) {
	a := NewAligner("true", t.TempDir(), func(string) *model.Model { return nil }, func(string) model.Strand { return model.Plus })
	_, err := a.Align(context.Background(), "missing", []fasta.Sequence{{Name: "seq1", Bases: "ACGT"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown model")
}
