package align

import (
	"context"
	"testing"

	"github.com/cmannotate/cmannotate/internal/alert"
	"github.com/cmannotate/cmannotate/internal/fasta"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAligner fails whenever a batch includes one of the named "poison"
// sequences together with at least one other sequence, simulating a
// matrix that only overflows memory when batched.
type fakeAligner struct {
	poison map[string]bool
	calls  int
}

func (f *fakeAligner) Align(_ context.Context, modelName string, seqs []fasta.Sequence) ([]Alignment, error) {
	f.calls++
	if len(seqs) > 1 {
		for _, s := range seqs {
			if f.poison[s.Name] {
				return nil, ErrMatrixTooLarge
			}
		}
	}
	if len(seqs) == 1 && f.poison[seqs[0].Name] {
		return nil, ErrMatrixTooLarge
	}
	out := make([]Alignment, len(seqs))
	for i, s := range seqs {
		out[i] = Alignment{Sequence: s.Name, Model: modelName, ModelLength: 10, SeqLength: len(s.Bases),
			Columns: []Column{{ModelPos: 1, SeqPos: 1, PP: '9'}}}
	}
	return out, nil
}

func TestDriver_CleanBatchAlignsTogether(t *testing.T) {
	a := &fakeAligner{poison: map[string]bool{}}
	d := NewDriver(a, nil)
	batch := Batch{Model: "modelX", Seqs: []fasta.Sequence{{Name: "s1", Bases: "ACGT"}, {Name: "s2", Bases: "ACGT"}}}

	results, err := d.Run(context.Background(), []Batch{batch})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, a.calls, "a clean batch should align in a single call")
	for _, r := range results {
		assert.NotNil(t, r.Alignment)
		assert.Nil(t, r.Alert)
	}
}

func TestDriver_IsolatesOnMemoryOverflow(t *testing.T) {
	a := &fakeAligner{poison: map[string]bool{"s2": true}}
	d := NewDriver(a, nil)
	batch := Batch{Model: "modelX", Seqs: []fasta.Sequence{
		{Name: "s1", Bases: "ACGT"},
		{Name: "s2", Bases: "ACGT"},
		{Name: "s3", Bases: "ACGT"},
	}}

	results, err := d.Run(context.Background(), []Batch{batch})
	require.NoError(t, err)
	require.Len(t, results, 3)

	byName := make(map[string]Result)
	for _, r := range results {
		byName[r.Sequence] = r
	}
	assert.NotNil(t, byName["s1"].Alignment)
	assert.NotNil(t, byName["s3"].Alignment)
	require.NotNil(t, byName["s2"].Alert)
	assert.Equal(t, alert.TooDivergent, byName["s2"].Alert.Code)
	assert.Nil(t, byName["s2"].Alignment)
}

func TestDriver_PropagatesOtherErrors(t *testing.T) {
	a := &failingAligner{}
	d := NewDriver(a, nil)
	batch := Batch{Model: "modelX", Seqs: []fasta.Sequence{{Name: "s1", Bases: "ACGT"}}}

	_, err := d.Run(context.Background(), []Batch{batch})
	require.Error(t, err)
}

type failingAligner struct{}

func (failingAligner) Align(context.Context, string, []fasta.Sequence) ([]Alignment, error) {
	return nil, assertErr{}
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
