package model

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Store holds the parsed model library, keyed by model name.
type Store struct {
	models map[string]*Model
	order  []string // model names in declaration order
}

// NewStore creates an empty model store.
func NewStore() *Store {
	return &Store{models: make(map[string]*Model)}
}

// Model returns the named model, or nil if not present.
func (s *Store) Model(name string) *Model {
	return s.models[name]
}

// Models returns every model in declaration order.
func (s *Store) Models() []*Model {
	out := make([]*Model, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.models[name])
	}
	return out
}

// Load parses a model-info file at path and validates it. A validation
// failure is a fatal configuration error: it is returned before any
// sequence is processed, per the pipeline's error-plane design.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("model: open %s: %w", path, err)
	}
	defer f.Close()
	return parse(f, path)
}

// parsed line kinds, driven by a leading token exactly like the teacher's
// GTF loader drives on feature-type tokens.
const (
	tokenModel   = "MODEL"
	tokenFeature = "FEATURE"
)

func parse(r io.Reader, source string) (*Store, error) {
	store := NewStore()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var cur *Model
	var curFeat map[string]string
	var pendingFeatures []map[string]string

	flushFeature := func() {
		if curFeat != nil {
			pendingFeatures = append(pendingFeatures, curFeat)
			curFeat = nil
		}
	}
	flushModel := func() error {
		flushFeature()
		if cur == nil {
			return nil
		}
		if err := attachFeatures(cur, pendingFeatures); err != nil {
			return fmt.Errorf("model %s: %w", cur.Name, err)
		}
		store.models[cur.Name] = cur
		store.order = append(store.order, cur.Name)
		cur = nil
		pendingFeatures = nil
		return nil
	}

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case tokenModel:
			if err := flushModel(); err != nil {
				return nil, err
			}
			if len(fields) < 2 {
				return nil, fmt.Errorf("%s:%d: MODEL line missing name", source, lineNo)
			}
			cur = &Model{Name: fields[1]}
		case tokenFeature:
			if cur == nil {
				return nil, fmt.Errorf("%s:%d: FEATURE outside of MODEL block", source, lineNo)
			}
			flushFeature()
			curFeat = make(map[string]string)
		default:
			key, val, ok := strings.Cut(line, "=")
			if !ok {
				return nil, fmt.Errorf("%s:%d: malformed assignment %q", source, lineNo, line)
			}
			key, val = strings.TrimSpace(key), strings.TrimSpace(val)
			if curFeat != nil {
				curFeat[key] = val
			} else if cur != nil {
				if err := setModelField(cur, key, val); err != nil {
					return nil, fmt.Errorf("%s:%d: %w", source, lineNo, err)
				}
			} else {
				return nil, fmt.Errorf("%s:%d: assignment outside of MODEL block", source, lineNo)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("model: read %s: %w", source, err)
	}
	if err := flushModel(); err != nil {
		return nil, err
	}

	if err := validateStore(store); err != nil {
		return nil, err
	}
	return store, nil
}

func setModelField(m *Model, key, val string) error {
	switch key {
	case "name":
		m.Name = val
	case "length":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("model length: %w", err)
		}
		m.Length = n
	case "group":
		m.Group = val
	case "subgroup":
		m.Subgroup = val
	case "blastdb":
		m.ProteinDB = val
	case "cmfile":
		// External covariance-model file path; not consulted by this
		// pipeline (the search/align engine itself is out of scope).
	default:
		return fmt.Errorf("unknown model field %q", key)
	}
	return nil
}

// attachFeatures turns raw key=value feature maps into Feature values,
// parses their coordinate expressions, and computes the cached fields
// (length, 5'/3'-most segment) for each.
func attachFeatures(m *Model, raw []map[string]string) error {
	m.Features = make([]Feature, len(raw))
	for i, kv := range raw {
		f := Feature{ParentIndex: -1, SourceIndex: -1}

		if t, ok := kv["type"]; ok {
			f.Type = FeatureType(t)
		} else {
			return fmt.Errorf("feature %d: missing type", i)
		}
		f.Product = kv["product"]
		f.Gene = kv["gene"]
		if alt, ok := kv["alt_start"]; ok && alt != "" {
			f.AltStartCodons = strings.Split(alt, ",")
		}

		if kv["is_duplicate"] == "true" || kv["is_duplicate"] == "1" {
			src, ok := kv["source_idx"]
			if !ok {
				return fmt.Errorf("feature %d: is_duplicate set without source_idx", i)
			}
			n, err := strconv.Atoi(src)
			if err != nil {
				return fmt.Errorf("feature %d: source_idx: %w", i, err)
			}
			f.SourceIndex = n
		}
		if p, ok := kv["parent_idx_str"]; ok && p != "" {
			n, err := strconv.Atoi(p)
			if err != nil {
				return fmt.Errorf("feature %d: parent_idx_str: %w", i, err)
			}
			f.ParentIndex = n
		}

		coords, ok := kv["coords"]
		if !ok {
			return fmt.Errorf("feature %d: missing coords", i)
		}
		segs, err := ParseCoords(coords, i)
		if err != nil {
			return fmt.Errorf("feature %d: %w", i, err)
		}
		f.Segments = segs

		m.Features[i] = f
	}

	// Link children and compute cached fields, then stamp type-index.
	for i := range m.Features {
		f := &m.Features[i]
		if f.ParentIndex >= 0 && f.ParentIndex < len(m.Features) {
			m.Features[f.ParentIndex].Children = append(m.Features[f.ParentIndex].Children, i)
		}

		total := 0
		for _, s := range f.Segments {
			total += s.Length()
		}
		f.length = total

		f.fivePrimeSegment, f.threePrimeSegment = boundarySegments(f.Segments)
	}

	assignTypeIndices(m)
	return nil
}

// boundarySegments returns, within segs, the index of the segment closest to
// the feature's 5' end and the index closest to its 3' end, accounting for
// strand: on the minus strand the 5' end is the highest model coordinate.
func boundarySegments(segs []Segment) (five, three int) {
	if len(segs) == 0 {
		return 0, 0
	}
	five, three = 0, 0
	for i, s := range segs {
		if s.Strand == Minus {
			if s.Start > segs[five].Start {
				five = i
			}
			if s.Start < segs[three].Start {
				three = i
			}
		} else {
			if s.Start < segs[five].Start {
				five = i
			}
			if s.Start > segs[three].Start {
				three = i
			}
		}
	}
	return five, three
}

// assignTypeIndices stamps 1-based, per-type, contiguous TypeIndex values in
// feature declaration order.
func assignTypeIndices(m *Model) {
	counters := make(map[FeatureType]int)
	for i := range m.Features {
		t := m.Features[i].Type
		counters[t]++
		m.Features[i].TypeIndex = counters[t]
	}
}
