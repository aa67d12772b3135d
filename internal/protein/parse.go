package protein

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cmannotate/cmannotate/internal/model"
)

// parseQuery splits a protein aligner query name into its sequence and
// optional feature-coordinate-expression parts, per spec.md §4.8's two
// tolerated formats:
//
//	"seqname"                       -> full-sequence query
//	"seqname:1..900:+"               -> already-extracted feature query
//
// Sequence names are required (spec.md §6) never to contain "::" or "/", so
// a single ":" run that parses as a coordinate expression unambiguously
// marks the second form.
func parseQuery(query string) (sequence, coords string, fullSequence bool) {
	colon := strings.IndexByte(query, ':')
	if colon < 0 {
		return query, "", true
	}
	seq, rest := query[:colon], query[colon+1:]
	if _, err := model.ParseCoords(rest, 0); err != nil {
		return query, "", true
	}
	return seq, rest, false
}

// ParseSummary reads the protein aligner's `QACC`/`HACC`/`HSP`/`QRANGE`/
// `MAXIN`/`MAXDE`/`FRAME`/`STOP`/`SCORE`, `END_MATCH`-terminated summary
// format described in spec.md §6, returning one Hit per record.
func ParseSummary(r io.Reader) ([]Hit, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var hits []Hit
	cur := Hit{}
	have := false
	lineNo := 0

	flush := func() {
		if have {
			hits = append(hits, cur)
		}
		cur = Hit{}
		have = false
	}

	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == "END_MATCH" {
			flush()
			continue
		}

		label, val, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("protein: line %d: malformed record line %q", lineNo, line)
		}
		label, val = strings.TrimSpace(label), strings.TrimSpace(val)

		switch label {
		case "QACC":
			seq, coords, full := parseQuery(val)
			cur.Sequence = seq
			cur.FeatureCoords = coords
			cur.FullSequenceQuery = full
			have = true
		case "HACC":
			// Protein database accession; not consulted downstream.
		case "HSP":
			// HSP index; not consulted downstream (only best-scoring kept).
		case "QRANGE":
			from, to, strand, err := parseQRange(val)
			if err != nil {
				return nil, fmt.Errorf("protein: line %d: QRANGE: %w", lineNo, err)
			}
			cur.SeqFrom, cur.SeqTo, cur.Strand = from, to, strand
		case "MAXIN":
			n, err := strconv.Atoi(val)
			if err != nil {
				return nil, fmt.Errorf("protein: line %d: MAXIN: %w", lineNo, err)
			}
			cur.MaxInsert = n
		case "MAXDE":
			n, err := strconv.Atoi(val)
			if err != nil {
				return nil, fmt.Errorf("protein: line %d: MAXDE: %w", lineNo, err)
			}
			cur.MaxDelete = n
		case "FRAME":
			// Reading frame; not consulted beyond being present in the record.
		case "STOP":
			cur.HasInternalStop = val == "yes" || val == "1" || val == "true"
		case "SCORE":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return nil, fmt.Errorf("protein: line %d: SCORE: %w", lineNo, err)
			}
			cur.Score = f
		default:
			return nil, fmt.Errorf("protein: line %d: unknown record label %q", lineNo, label)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("protein: read summary: %w", err)
	}
	flush()
	return hits, nil
}

// parseQRange parses a "start-stop" query range, inferring strand from
// ordering (start > stop means minus strand), and returns it normalized to
// (min, max, strand) to match the rest of the pipeline's coordinate
// convention.
func parseQRange(s string) (from, to int, strand model.Strand, err error) {
	lo, hi, ok := strings.Cut(s, "-")
	if !ok {
		return 0, 0, 0, fmt.Errorf("expected start-stop, got %q", s)
	}
	a, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, 0, err
	}
	b, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return 0, 0, 0, err
	}
	if a <= b {
		return a, b, model.Plus, nil
	}
	return b, a, model.Minus, nil
}
