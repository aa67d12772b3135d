package subprocess

import (
	"context"
	"testing"

	"github.com/cmannotate/cmannotate/internal/fasta"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_PropagatesBinaryFailure(t *testing.T) {
	r := NewRunner("false")
	_, err := r.Run(context.Background(), "/dev/null", []fasta.Sequence{{Name: "seq1", Bases: "ACGT"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subprocess")
}
