// Package fasta provides sequence loading. Actual sequence retrieval
// (the "fasta sequence fetcher" of spec.md §1) is an out-of-scope external
// collaborator; this package only parses the fasta text format and exposes
// the fixed, immutable Sequence records the rest of the pipeline consumes.
package fasta

import (
	"fmt"
	"io"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
)

// Sequence is one immutable input sequence: name, nucleotide length, and raw
// bases. Input-set membership is fixed once Read returns.
type Sequence struct {
	Name  string
	Bases string
}

// Length returns the sequence length in nucleotides.
func (s Sequence) Length() int { return len(s.Bases) }

// reservedSubstrings are forbidden in sequence names because the pipeline
// uses them to build feature-query names (":" pairs) and path-like protein
// query names ("/").
var reservedSubstrings = []string{"::", "/"}

// Read parses every record from r using biogo's fasta reader and returns the
// immutable Sequence set. It rejects names containing the reserved
// substrings the pipeline uses internally for feature-query naming, and
// duplicate names.
func Read(r io.Reader) ([]Sequence, error) {
	sc := seqio.NewScanner(fasta.NewReader(r, linear.NewSeq("", nil, alphabet.DNA)))

	seen := make(map[string]bool)
	var out []Sequence
	for sc.Next() {
		s, ok := sc.Seq().(*linear.Seq)
		if !ok {
			return nil, fmt.Errorf("fasta: unexpected sequence type %T", sc.Seq())
		}
		name := s.ID
		if name == "" {
			return nil, fmt.Errorf("fasta: record with empty name")
		}
		for _, bad := range reservedSubstrings {
			if strings.Contains(name, bad) {
				return nil, fmt.Errorf("fasta: sequence name %q contains reserved substring %q", name, bad)
			}
		}
		if seen[name] {
			return nil, fmt.Errorf("fasta: duplicate sequence name %q", name)
		}
		seen[name] = true

		bases := make([]byte, s.Len())
		for i := 0; i < s.Len(); i++ {
			bases[i] = byte(s.Seq[i])
		}

		out = append(out, Sequence{Name: name, Bases: strings.ToUpper(string(bases))})
	}
	if err := sc.Error(); err != nil {
		return nil, fmt.Errorf("fasta: read: %w", err)
	}
	return out, nil
}

// TotalLength returns the sum of every sequence's length, used by the
// Search Orchestrator's parallelism policy to decide whether to chunk.
func TotalLength(seqs []Sequence) int {
	total := 0
	for _, s := range seqs {
		total += s.Length()
	}
	return total
}

// Chunk splits seqs into ordered batches whose cumulative length is at most
// targetKB*1000 nucleotides (a single sequence larger than that still forms
// its own chunk).
func Chunk(seqs []Sequence, targetKB int) [][]Sequence {
	if targetKB <= 0 || len(seqs) == 0 {
		if len(seqs) == 0 {
			return nil
		}
		return [][]Sequence{seqs}
	}
	budget := targetKB * 1000

	var chunks [][]Sequence
	var cur []Sequence
	curLen := 0
	for _, s := range seqs {
		if curLen > 0 && curLen+s.Length() > budget {
			chunks = append(chunks, cur)
			cur = nil
			curLen = 0
		}
		cur = append(cur, s)
		curLen += s.Length()
	}
	if len(cur) > 0 {
		chunks = append(chunks, cur)
	}
	return chunks
}

// Write serializes seqs back to fasta, 60 bases per line, in the order given.
func Write(w io.Writer, seqs []Sequence) error {
	for _, s := range seqs {
		if _, err := fmt.Fprintf(w, ">%s\n", s.Name); err != nil {
			return err
		}
		for i := 0; i < len(s.Bases); i += 60 {
			end := i + 60
			if end > len(s.Bases) {
				end = len(s.Bases)
			}
			if _, err := fmt.Fprintln(w, s.Bases[i:end]); err != nil {
				return err
			}
		}
	}
	return nil
}
