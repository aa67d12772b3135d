package search

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/cmannotate/cmannotate/internal/model"
)

// Line layout of the search engine's results table (see spec.md §6):
// query-name target-name model-from model-to seq-from seq-to strand bias score e-value
// Header and comment lines begin with '#' and are skipped.
const hitFields = 10

// ParseHits reads every hit line from r.
func ParseHits(r io.Reader) ([]queryHit, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var hits []queryHit
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < hitFields {
			return nil, fmt.Errorf("search: line %d: expected %d fields, got %d", lineNo, hitFields, len(fields))
		}

		modelFrom, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("search: line %d: model-from: %w", lineNo, err)
		}
		modelTo, err := strconv.Atoi(fields[3])
		if err != nil {
			return nil, fmt.Errorf("search: line %d: model-to: %w", lineNo, err)
		}
		seqFrom, err := strconv.Atoi(fields[4])
		if err != nil {
			return nil, fmt.Errorf("search: line %d: seq-from: %w", lineNo, err)
		}
		seqTo, err := strconv.Atoi(fields[5])
		if err != nil {
			return nil, fmt.Errorf("search: line %d: seq-to: %w", lineNo, err)
		}
		if fields[6] != "+" && fields[6] != "-" {
			return nil, fmt.Errorf("search: line %d: invalid strand %q", lineNo, fields[6])
		}
		bias, err := strconv.ParseFloat(fields[7], 64)
		if err != nil {
			return nil, fmt.Errorf("search: line %d: bias: %w", lineNo, err)
		}
		score, err := strconv.ParseFloat(fields[8], 64)
		if err != nil {
			return nil, fmt.Errorf("search: line %d: score: %w", lineNo, err)
		}
		evalue, err := strconv.ParseFloat(fields[9], 64)
		if err != nil {
			return nil, fmt.Errorf("search: line %d: e-value: %w", lineNo, err)
		}

		hits = append(hits, queryHit{
			Query: fields[0],
			Hit: Hit{
				Target:    fields[1],
				ModelFrom: modelFrom,
				ModelTo:   modelTo,
				SeqFrom:   seqFrom,
				SeqTo:     seqTo,
				Strand:    model.Strand(fields[6][0]),
				Bias:      bias,
				Score:     score,
				EValue:    evalue,
			},
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("search: read hits: %w", err)
	}
	return hits, nil
}

type queryHit struct {
	Query string
	Hit   Hit
}

// RawHit is one exported, still-unsorted hit line paired with its query
// sequence name, for callers (e.g. --keep-intermediates persistence) that
// want the raw table rather than a parsed ClassificationRecord.
type RawHit struct {
	Query string
	Hit   Hit
}

// ParseRawHits parses a results table and returns its hits in file order
// paired with their query names, without sorting or classification-record
// assembly.
func ParseRawHits(r io.Reader) ([]RawHit, error) {
	hits, err := ParseHits(r)
	if err != nil {
		return nil, err
	}
	out := make([]RawHit, len(hits))
	for i, qh := range hits {
		out[i] = RawHit{Query: qh.Query, Hit: qh.Hit}
	}
	return out, nil
}

// sortPass1 sorts in place by (sequence ascending, score descending, bias
// ascending), the explicit sort key required before a single-scan
// classification fill.
func sortPass1(hits []queryHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Query != hits[j].Query {
			return hits[i].Query < hits[j].Query
		}
		if hits[i].Hit.Score != hits[j].Hit.Score {
			return hits[i].Hit.Score > hits[j].Hit.Score
		}
		return hits[i].Hit.Bias < hits[j].Hit.Bias
	})
}

// sortPass2 sorts in place by (sequence ascending, score descending, E-value
// ascending).
func sortPass2(hits []queryHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Query != hits[j].Query {
			return hits[i].Query < hits[j].Query
		}
		if hits[i].Hit.Score != hits[j].Hit.Score {
			return hits[i].Hit.Score > hits[j].Hit.Score
		}
		return hits[i].Hit.EValue < hits[j].Hit.EValue
	})
}

// ParsePass1 parses a pass-1 (classification) results table and fills the
// four pass-1 keys of each sequence's classification record.
//
// groupOf/subgroupOf look up a model's declared group/subgroup; expectedGroup
// and expectedSubgroup are the user's optional declared expectations (empty
// string means "no expectation").
func ParsePass1(r io.Reader, groupOf, subgroupOf func(modelName string) string, expectedGroup, expectedSubgroup string) (map[string]*ClassificationRecord, error) {
	hits, err := ParseHits(r)
	if err != nil {
		return nil, err
	}
	sortPass1(hits)

	records := make(map[string]*ClassificationRecord)

	i := 0
	for i < len(hits) {
		j := i
		for j < len(hits) && hits[j].Query == hits[i].Query {
			j++
		}
		seqHits := hits[i:j]
		records[hits[i].Query] = fillPass1Record(hits[i].Query, seqHits, groupOf, subgroupOf, expectedGroup, expectedSubgroup)
		i = j
	}
	return records, nil
}

func fillPass1Record(seq string, hits []queryHit, groupOf, subgroupOf func(string) string, expectedGroup, expectedSubgroup string) *ClassificationRecord {
	rec := &ClassificationRecord{Sequence: seq}
	if len(hits) == 0 {
		return rec
	}

	topModel := hits[0].Hit.Target
	rec.BestOverallPass1 = &ModelHits{Model: topModel}

	var secondModel string
	for _, qh := range hits {
		if qh.Hit.Target == topModel {
			rec.BestOverallPass1.Hits = append(rec.BestOverallPass1.Hits, qh.Hit)
			continue
		}
		if secondModel == "" {
			secondModel = qh.Hit.Target
			rec.SecondBestDifferentModel = &ModelHits{Model: secondModel}
		}
		if qh.Hit.Target == secondModel {
			rec.SecondBestDifferentModel.Hits = append(rec.SecondBestDifferentModel.Hits, qh.Hit)
		}
	}

	if expectedGroup != "" {
		rec.BestInGroupPass1 = bestRestricted(hits, func(m string) bool { return groupOf(m) == expectedGroup })
	}
	if expectedSubgroup != "" {
		rec.BestInSubgroupPass1 = bestRestricted(hits, func(m string) bool { return subgroupOf(m) == expectedSubgroup })
	}

	return rec
}

// bestRestricted finds the best-scoring model (and accumulates its hits)
// among hits for which keep(modelName) is true. hits must already be sorted
// by score descending within the sequence.
func bestRestricted(hits []queryHit, keep func(string) bool) *ModelHits {
	var best *ModelHits
	for _, qh := range hits {
		if !keep(qh.Hit.Target) {
			continue
		}
		if best == nil {
			best = &ModelHits{Model: qh.Hit.Target}
		}
		if qh.Hit.Target == best.Model {
			best.Hits = append(best.Hits, qh.Hit)
		}
	}
	return best
}

// ParsePass2 parses a pass-2 (coverage refinement) results table. It is a
// fatal error for a sequence to have hits to more than one model in pass 2.
func ParsePass2(r io.Reader) (map[string]*ClassificationRecord, error) {
	hits, err := ParseHits(r)
	if err != nil {
		return nil, err
	}
	sortPass2(hits)

	records := make(map[string]*ClassificationRecord)
	i := 0
	for i < len(hits) {
		j := i
		for j < len(hits) && hits[j].Query == hits[i].Query {
			j++
		}
		seqHits := hits[i:j]

		model := seqHits[0].Hit.Target
		mh := &ModelHits{Model: model}
		for _, qh := range seqHits {
			if qh.Hit.Target != model {
				return nil, fmt.Errorf("search: sequence %q has pass-2 hits to more than one model (%s, %s)",
					seqHits[0].Query, model, qh.Hit.Target)
			}
			mh.Hits = append(mh.Hits, qh.Hit)
			mh.Bias += qh.Hit.Bias
		}
		records[seqHits[0].Query] = &ClassificationRecord{Sequence: seqHits[0].Query, BestInPass2: mh}
		i = j
	}
	return records, nil
}

// Merge folds pass-2 results into the pass-1-derived records.
func Merge(pass1 map[string]*ClassificationRecord, pass2 map[string]*ClassificationRecord) map[string]*ClassificationRecord {
	out := make(map[string]*ClassificationRecord, len(pass1))
	for seq, rec := range pass1 {
		out[seq] = rec
	}
	for seq, rec := range pass2 {
		r, ok := out[seq]
		if !ok {
			r = &ClassificationRecord{Sequence: seq}
			out[seq] = r
		}
		r.BestInPass2 = rec.BestInPass2
	}
	return out
}
