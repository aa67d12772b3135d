package align

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/cmannotate/cmannotate/internal/model"
)

// ParseAlignments reads a Stockholm-style alignment block per model: one
// sequence line per aligned sequence, a "#=GC RF" reference-annotation line
// marking which columns are model match columns ('x') versus insert columns
// ('.'), and one "#=GR <seq> PP" posterior-probability line per sequence,
// terminated by "//". This is the wire shape real covariance-model aligners
// (e.g. Infernal's cmalign) emit.
//
// strandOf resolves each sequence's search-determined strand (the aligner
// itself only ever aligns the forward orientation of its input, so the
// mapper's sequence-position arithmetic needs to know which original strand
// that corresponds to).
func ParseAlignments(r io.Reader, modelName string, modelLength int, seqLengths map[string]int, strandOf func(string) model.Strand) ([]Alignment, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	type block struct {
		rf       strings.Builder
		seqOrder []string
		seqRes   map[string]*strings.Builder
		seqPP    map[string]*strings.Builder
	}
	cur := &block{seqRes: make(map[string]*strings.Builder), seqPP: make(map[string]*strings.Builder)}
	var blocks []*block
	lineNo := 0

	for sc.Scan() {
		lineNo++
		line := sc.Text()
		trimmed := strings.TrimRight(line, "\n")
		if trimmed == "" {
			continue
		}
		if trimmed == "//" {
			blocks = append(blocks, cur)
			cur = &block{seqRes: make(map[string]*strings.Builder), seqPP: make(map[string]*strings.Builder)}
			continue
		}
		if strings.HasPrefix(trimmed, "# ") || trimmed == "#" {
			continue
		}
		if strings.HasPrefix(trimmed, "#=GC RF") {
			fields := strings.Fields(trimmed)
			if len(fields) < 3 {
				return nil, fmt.Errorf("align: line %d: malformed #=GC RF line", lineNo)
			}
			cur.rf.WriteString(fields[2])
			continue
		}
		if strings.HasPrefix(trimmed, "#=GR") {
			fields := strings.Fields(trimmed)
			if len(fields) < 4 || fields[2] != "PP" {
				return nil, fmt.Errorf("align: line %d: malformed #=GR PP line", lineNo)
			}
			name := fields[1]
			if cur.seqPP[name] == nil {
				cur.seqPP[name] = &strings.Builder{}
			}
			cur.seqPP[name].WriteString(fields[3])
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			continue // other annotation lines (e.g. #=GF) are not consulted
		}

		fields := strings.Fields(trimmed)
		if len(fields) != 2 {
			return nil, fmt.Errorf("align: line %d: expected \"name residues\", got %d fields", lineNo, len(fields))
		}
		name, res := fields[0], fields[1]
		if cur.seqRes[name] == nil {
			cur.seqRes[name] = &strings.Builder{}
			cur.seqOrder = append(cur.seqOrder, name)
		}
		cur.seqRes[name].WriteString(res)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("align: read alignment: %w", err)
	}
	if cur.rf.Len() > 0 || len(cur.seqOrder) > 0 {
		blocks = append(blocks, cur)
	}

	// Merge all blocks (Stockholm allows wrapped multi-block alignments) into
	// one reference string and one residue+PP string per sequence, then
	// build each sequence's Alignment independently.
	var rf strings.Builder
	seqRes := make(map[string]*strings.Builder)
	seqPP := make(map[string]*strings.Builder)
	var order []string
	seen := make(map[string]bool)
	for _, b := range blocks {
		rf.WriteString(b.rf.String())
		for _, name := range b.seqOrder {
			if !seen[name] {
				seen[name] = true
				order = append(order, name)
			}
			if seqRes[name] == nil {
				seqRes[name] = &strings.Builder{}
			}
			if seqPP[name] == nil {
				seqPP[name] = &strings.Builder{}
			}
			seqRes[name].WriteString(b.seqRes[name].String())
			if pp, ok := b.seqPP[name]; ok {
				seqPP[name].WriteString(pp.String())
			}
		}
	}

	rfStr := rf.String()
	out := make([]Alignment, 0, len(order))
	for _, name := range order {
		res := seqRes[name].String()
		pp := seqPP[name].String()
		if len(res) != len(rfStr) {
			return nil, fmt.Errorf("align: sequence %q: residue string length %d does not match reference length %d", name, len(res), len(rfStr))
		}

		aln := Alignment{
			Sequence:    name,
			Model:       modelName,
			ModelLength: modelLength,
			SeqLength:   seqLengths[name],
			Strand:      strandOf(name),
		}

		modelPos := 0
		seqPos := 0
		for col := 0; col < len(rfStr); col++ {
			isMatchCol := rfStr[col] != '.' && rfStr[col] != '-'
			residue := res[col]
			hasResidue := residue != '-' && residue != '.'

			c := Column{}
			if isMatchCol {
				modelPos++
				c.ModelPos = modelPos
			}
			if hasResidue {
				seqPos++
				c.SeqPos = seqPos
			}
			if hasResidue && col < len(pp) {
				c.PP = pp[col]
			}
			aln.Columns = append(aln.Columns, c)
		}
		out = append(out, aln)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

// ParseInserts reads the aligner's side-channel insert file: one line per
// sequence of the form "seq-name length span-start span-end (rf-pos seq-pos
// len)*", per spec.md §6.
func ParseInserts(r io.Reader) (map[string]InsertRecord, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	out := make(map[string]InsertRecord)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, fmt.Errorf("align: inserts: line %d: expected at least 4 fields, got %d", lineNo, len(fields))
		}
		spanStart, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("align: inserts: line %d: span-start: %w", lineNo, err)
		}
		spanEnd, err := strconv.Atoi(fields[3])
		if err != nil {
			return nil, fmt.Errorf("align: inserts: line %d: span-end: %w", lineNo, err)
		}
		rec := InsertRecord{Sequence: fields[0], SpanStart: spanStart, SpanEnd: spanEnd}

		rest := fields[4:]
		if len(rest)%3 != 0 {
			return nil, fmt.Errorf("align: inserts: line %d: trailing insert triples malformed", lineNo)
		}
		for i := 0; i < len(rest); i += 3 {
			modelPosBefore, err := strconv.Atoi(rest[i])
			if err != nil {
				return nil, fmt.Errorf("align: inserts: line %d: rf-pos: %w", lineNo, err)
			}
			seqStart, err := strconv.Atoi(rest[i+1])
			if err != nil {
				return nil, fmt.Errorf("align: inserts: line %d: seq-pos: %w", lineNo, err)
			}
			length, err := strconv.Atoi(rest[i+2])
			if err != nil {
				return nil, fmt.Errorf("align: inserts: line %d: len: %w", lineNo, err)
			}
			rec.Inserts = append(rec.Inserts, Insert{ModelPosBefore: modelPosBefore, SeqStart: seqStart, Len: length})
		}
		out[rec.Sequence] = rec
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("align: read inserts: %w", err)
	}
	return out, nil
}

// AttachInserts copies each alignment's matching insert record (if any) in
// place, returning the same slice for convenience at call sites.
func AttachInserts(alns []Alignment, inserts map[string]InsertRecord) []Alignment {
	for i := range alns {
		if rec, ok := inserts[alns[i].Sequence]; ok {
			alns[i].Insert = rec
		}
	}
	return alns
}
