package fasta

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_ParsesAndUppercases(t *testing.T) {
	in := ">seq1 description\nacgtACGT\nNNNN\n>seq2\nGGGG\n"
	seqs, err := Read(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, seqs, 2)
	assert.Equal(t, "seq1", seqs[0].Name)
	assert.Equal(t, "ACGTACGTNNNN", seqs[0].Bases)
	assert.Equal(t, 12, seqs[0].Length())
	assert.Equal(t, "seq2", seqs[1].Name)
	assert.Equal(t, "GGGG", seqs[1].Bases)
}

func TestRead_RejectsDuplicateNames(t *testing.T) {
	in := ">seq1\nACGT\n>seq1\nGGGG\n"
	_, err := Read(strings.NewReader(in))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestRead_RejectsReservedSubstrings(t *testing.T) {
	_, err := Read(strings.NewReader(">seq::1\nACGT\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reserved substring")
}

func TestTotalLength(t *testing.T) {
	seqs := []Sequence{{Name: "a", Bases: "ACGT"}, {Name: "b", Bases: "AC"}}
	assert.Equal(t, 6, TotalLength(seqs))
}

func TestChunk_SplitsOnBudget(t *testing.T) {
	seqs := []Sequence{
		{Name: "a", Bases: strings.Repeat("A", 3000)},
		{Name: "b", Bases: strings.Repeat("C", 3000)},
		{Name: "c", Bases: strings.Repeat("G", 3000)},
	}
	chunks := Chunk(seqs, 5) // 5000nt budget
	require.Len(t, chunks, 3) // any two sequences together exceed the budget
	assert.Len(t, chunks[0], 1)
	assert.Len(t, chunks[1], 1)
}

func TestChunk_ZeroTargetReturnsSingleBatch(t *testing.T) {
	seqs := []Sequence{{Name: "a", Bases: "ACGT"}, {Name: "b", Bases: "GGGG"}}
	chunks := Chunk(seqs, 0)
	require.Len(t, chunks, 1)
	assert.Len(t, chunks[0], 2)
}

func TestWrite_RoundTrips(t *testing.T) {
	seqs := []Sequence{{Name: "seq1", Bases: strings.Repeat("ACGT", 20)}}
	var buf strings.Builder
	require.NoError(t, Write(&buf, seqs))

	out, err := Read(strings.NewReader(buf.String()))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, seqs[0].Bases, out[0].Bases)
}
