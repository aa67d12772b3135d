// Package align drives alignment of classified sequences to their chosen
// model and converts the resulting alignment into per-segment sequence
// coordinates.
package align

import "github.com/cmannotate/cmannotate/internal/model"

// Column is one column of a sequence-to-model alignment.
//
// ModelPos is the 1-based model position this column is aligned to, or 0 if
// the column is an insert (not a reference model position). SeqPos is the
// 1-based position, on the forward strand of the original sequence, of the
// residue in this column, or 0 if the column is a gap (no residue).
type Column struct {
	ModelPos int
	SeqPos   int
	PP       byte // posterior-probability character, '0'-'9' or '*'; 0 if undefined (gap)
}

// Insert is one insertion of sequence relative to the model, as reported by
// the aligner's side-channel insert file.
type Insert struct {
	ModelPosBefore int // model position immediately before the insertion
	SeqStart       int // first sequence position of the inserted run
	Len            int
}

// InsertRecord is one sequence's line from the insert side-channel file.
type InsertRecord struct {
	Sequence  string
	SpanStart int
	SpanEnd   int
	Inserts   []Insert
}

// Alignment is one sequence's alignment to a model.
type Alignment struct {
	Sequence    string
	Model       string
	ModelLength int
	SeqLength   int
	Strand      model.Strand
	Columns     []Column // in alignment column order
	Insert      InsertRecord
}
