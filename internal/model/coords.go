package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseCoords parses a coordinate expression of the form
// "start..stop:strand,start..stop:strand,...", positions 1-based inclusive,
// strand in {+,-}. featureIndex is stamped onto every returned segment.
func ParseCoords(expr string, featureIndex int) ([]Segment, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("coords: empty coordinate expression")
	}

	parts := strings.Split(expr, ",")
	segs := make([]Segment, 0, len(parts))
	for _, part := range parts {
		seg, err := parseOneSegment(strings.TrimSpace(part), featureIndex)
		if err != nil {
			return nil, fmt.Errorf("coords: %q: %w", expr, err)
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

func parseOneSegment(part string, featureIndex int) (Segment, error) {
	colon := strings.LastIndexByte(part, ':')
	if colon < 0 {
		return Segment{}, fmt.Errorf("missing strand in %q", part)
	}
	span, strandStr := part[:colon], part[colon+1:]
	if strandStr != "+" && strandStr != "-" {
		return Segment{}, fmt.Errorf("invalid strand %q in %q", strandStr, part)
	}

	dots := strings.Index(span, "..")
	if dots < 0 {
		return Segment{}, fmt.Errorf("missing '..' in %q", part)
	}
	startStr, stopStr := span[:dots], span[dots+2:]

	start, err := strconv.Atoi(startStr)
	if err != nil {
		return Segment{}, fmt.Errorf("invalid start %q in %q", startStr, part)
	}
	stop, err := strconv.Atoi(stopStr)
	if err != nil {
		return Segment{}, fmt.Errorf("invalid stop %q in %q", stopStr, part)
	}
	if start < 1 || stop < 1 {
		return Segment{}, fmt.Errorf("non-positive coordinate in %q", part)
	}

	return Segment{
		Start:        start,
		Stop:         stop,
		Strand:       Strand(strandStr[0]),
		FeatureIndex: featureIndex,
	}, nil
}

// EncodeCoords is the inverse of ParseCoords, used for round-tripping a
// loaded model back to its text representation.
func EncodeCoords(segs []Segment) string {
	parts := make([]string, len(segs))
	for i, s := range segs {
		parts[i] = fmt.Sprintf("%d..%d:%s", s.Start, s.Stop, s.Strand)
	}
	return strings.Join(parts, ",")
}
