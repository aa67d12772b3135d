// Package report writes the Reporter's tabular summaries, feature tables,
// sequence-name lists, and alert-detail listing described in spec.md §4.9,
// grounded on the teacher's internal/output package: TabWriter's tab-
// delimited row style, ValidationWriter's passing/failing split and summary
// counts, and vcf2maf.go's "emit a block, then trailing diagnostics" shape
// for the failing-sequence feature table's ERROR: block.
package report

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cmannotate/cmannotate/internal/alert"
	"github.com/cmannotate/cmannotate/internal/model"
	"github.com/cmannotate/cmannotate/internal/store"
)

// noteworthyNotFatal is the set of alert codes that, alone, demote a feature
// to misc_feature rather than withholding it entirely: per spec.md §4.9,
// "note-worthy but not fatal" findings. Everything else is treated as fatal
// for the purposes of the passing-sequence feature table.
var noteworthyNotFatal = map[alert.Code]bool{
	alert.GapAt5PrimeBoundary:   true,
	alert.GapAt3PrimeBoundary:   true,
	alert.LowPPAt5PrimeBoundary: true,
	alert.LowPPAt3PrimeBoundary: true,
	alert.ExtendedStop:         true,
}

// Writer emits every output artifact named in spec.md §4.9/§6 into a single
// output directory, one file per artifact, under a shared basename.
type Writer struct {
	dir      string
	basename string
}

// New creates a Writer rooted at dir, naming every artifact "<basename>.<ext>".
func New(dir, basename string) *Writer {
	return &Writer{dir: dir, basename: basename}
}

func (w *Writer) path(suffix string) string {
	return filepath.Join(w.dir, w.basename+suffix)
}

func (w *Writer) create(suffix string) (*os.File, error) {
	f, err := os.Create(w.path(suffix))
	if err != nil {
		return nil, fmt.Errorf("report: create %s: %w", suffix, err)
	}
	return f, nil
}

// Write emits every artifact for the finished run: s holds every sequence's
// final result, reg resolves alert codes to scope/description, models maps
// a chosen model name to its parsed Model (for feature-type/segment lookups).
func (w *Writer) Write(s *store.Store, reg *alert.Registry, models map[string]*model.Model) error {
	seqs := s.Sequences()

	steps := []func(*store.Store, *alert.Registry, map[string]*model.Model) error{
		w.writeSeqTab,
		w.writeFtrTab,
		w.writeMdlTab,
		w.writeAPSqtable,
		w.writeAFSqtable,
		w.writeLongSqtable,
		w.writeSeqLists,
		w.writeAltList,
	}
	for _, step := range steps {
		if err := step(s, reg, models); err != nil {
			return err
		}
	}
	_ = seqs
	return nil
}

func writeTabbed(path string, header []string, rows func(w *bufio.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: create %s: %w", path, err)
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	if _, err := bw.WriteString("#" + strings.Join(header, "\t") + "\n"); err != nil {
		return err
	}
	if err := rows(bw); err != nil {
		return err
	}
	return bw.Flush()
}

// writeSeqTab emits the per-sequence tabular summary: one row per sequence
// with counts of annotated features, truncated features, and alerts, plus
// an alert-code list.
func (w *Writer) writeSeqTab(s *store.Store, reg *alert.Registry, models map[string]*model.Model) error {
	return writeTabbed(w.path(".seq.tab"),
		[]string{"seq", "length", "model", "p/f", "n_annotated", "n_truncated", "n_alerts", "alerts"},
		func(bw *bufio.Writer) error {
			for _, seq := range s.Sequences() {
				pass, reasons := s.Verdict(seq.Name)
				nTrunc := 0
				for _, f := range seq.Features {
					if f.Truncated5 || f.Truncated3 {
						nTrunc++
					}
				}
				_, err := fmt.Fprintf(bw, "%s\t%d\t%s\t%s\t%d\t%d\t%d\t%s\n",
					seq.Name, seq.Length, orDash(seq.Model), passFail(pass),
					seq.AnnotatedFeatureCount(), nTrunc, len(reasons), codeList(reasons))
				if err != nil {
					return err
				}
			}
			return nil
		})
}

// writeFtrTab emits the per-feature tabular summary: one row per feature per
// sequence.
func (w *Writer) writeFtrTab(s *store.Store, reg *alert.Registry, models map[string]*model.Model) error {
	return writeTabbed(w.path(".ftr.tab"),
		[]string{"seq", "model", "type", "type_idx", "product", "gene", "annotated", "start", "stop", "strand", "5trunc", "3trunc", "corrected_stop", "n_alerts", "alerts"},
		func(bw *bufio.Writer) error {
			for _, seq := range s.Sequences() {
				for _, f := range seq.Features {
					alerts := s.Alerts.ForFeature(seq.Name, f.TypeIndex)
					_, err := fmt.Fprintf(bw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%d\t%d\t%s\t%s\t%s\t%s\t%d\t%s\n",
						seq.Name, orDash(seq.Model), f.Type, f.TypeIndex, orDash(f.Product), orDash(f.Gene),
						boolYN(f.Annotated), f.NStart, f.NStop, strandStr(f.NStrand),
						boolYN(f.Truncated5), boolYN(f.Truncated3), orDash(f.CorrectedStop),
						len(alerts), codeList(alerts))
					if err != nil {
						return err
					}
				}
			}
			return nil
		})
}

// writeMdlTab emits the per-segment tabular summary.
func (w *Writer) writeMdlTab(s *store.Store, reg *alert.Registry, models map[string]*model.Model) error {
	return writeTabbed(w.path(".mdl.tab"),
		[]string{"seq", "model", "type", "type_idx", "seg_idx", "seq_start", "seq_stop", "strand", "5flush", "3flush", "5trunc", "3trunc"},
		func(bw *bufio.Writer) error {
			for _, seq := range s.Sequences() {
				for _, f := range seq.Features {
					for i, seg := range f.Segments {
						if seg.NoHit {
							continue
						}
						_, err := fmt.Fprintf(bw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\t%s\t%s\t%s\n",
							seq.Name, orDash(seq.Model), f.Type, f.TypeIndex, i,
							seg.SeqStart, seg.SeqStop, strandStr(seg.Strand),
							boolYN(seg.FiveFlush), boolYN(seg.ThreeFlush),
							boolYN(seg.FiveTruncated), boolYN(seg.ThreeTruncated))
						if err != nil {
							return err
						}
					}
				}
			}
			return nil
		})
}

// emittedType returns the feature type to print in a feature table, demoting
// a feature to misc_feature (and naming its original type as a note) when
// every alert it carries is note-worthy-but-not-fatal, per spec.md §4.9.
func emittedType(typ model.FeatureType, insts []alert.Instance) (model.FeatureType, string) {
	if len(insts) == 0 {
		return typ, ""
	}
	for _, a := range insts {
		if !noteworthyNotFatal[a.Code] {
			return typ, ""
		}
	}
	return "misc_feature", fmt.Sprintf("original type: %s", typ)
}

// boundaryMark returns the 5'/3' carrot used at the outermost segment of a
// truncated feature.
func boundaryMark(truncated bool, mark string) string {
	if truncated {
		return mark
	}
	return ""
}

func featureTableLine(seqName string, f store.FeatureResult, insts []alert.Instance) string {
	typ, note := emittedType(f.Type, insts)
	start := fmt.Sprintf("%s%d", boundaryMark(f.Truncated5, "<"), f.NStart)
	stop := fmt.Sprintf("%s%d", boundaryMark(f.Truncated3, ">"), f.NStop)
	fields := []string{seqName, string(typ), strconv(f.TypeIndex), start, stop, strandStr(f.NStrand), orDash(f.Product), orDash(f.Gene)}
	if note != "" {
		fields = append(fields, note)
	}
	return strings.Join(fields, "\t")
}

func strconv(n int) string { return fmt.Sprintf("%d", n) }

// writeAPSqtable emits the feature table for passing sequences: only "clean"
// features — those with no alerts at all — for sequences whose overall
// verdict is PASS.
func (w *Writer) writeAPSqtable(s *store.Store, reg *alert.Registry, models map[string]*model.Model) error {
	f, err := w.create(".ap.sqtable")
	if err != nil {
		return err
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	for _, seq := range s.Sequences() {
		pass, _ := s.Verdict(seq.Name)
		if !pass {
			continue
		}
		for _, ff := range seq.Features {
			if !ff.Annotated {
				continue
			}
			insts := s.Alerts.ForFeature(seq.Name, ff.TypeIndex)
			if len(insts) > 0 {
				continue
			}
			if _, err := fmt.Fprintln(bw, featureTableLine(seq.Name, ff, nil)); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// writeAFSqtable emits the feature table for failing sequences: the
// features it would emit, plus a trailing ERROR: block naming every
// sequence- and feature-level alert, one line each, per spec.md §4.9
// (grounded on vcf2maf.go's block-then-trailing-diagnostics pattern).
func (w *Writer) writeAFSqtable(s *store.Store, reg *alert.Registry, models map[string]*model.Model) error {
	f, err := w.create(".af.sqtable")
	if err != nil {
		return err
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	for _, seq := range s.Sequences() {
		pass, reasons := s.Verdict(seq.Name)
		if pass {
			continue
		}
		for _, ff := range seq.Features {
			if !ff.Annotated {
				continue
			}
			insts := s.Alerts.ForFeature(seq.Name, ff.TypeIndex)
			if _, err := fmt.Fprintln(bw, featureTableLine(seq.Name, ff, insts)); err != nil {
				return err
			}
		}
		for _, r := range reasons {
			k, _ := reg.Lookup(r.Code)
			detail := r.Detail
			if detail != "" {
				detail = ": " + detail
			}
			if _, err := fmt.Fprintf(bw, "ERROR: %s [%s]%s\n", r.Code, k.Description, detail); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// writeLongSqtable emits the long feature table: every sequence, every
// feature, with every alert embedded inline as a trailing note column.
func (w *Writer) writeLongSqtable(s *store.Store, reg *alert.Registry, models map[string]*model.Model) error {
	f, err := w.create(".long.sqtable")
	if err != nil {
		return err
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	for _, seq := range s.Sequences() {
		for _, ff := range seq.Features {
			insts := s.Alerts.ForFeature(seq.Name, ff.TypeIndex)
			line := featureTableLine(seq.Name, ff, insts)
			if len(insts) > 0 {
				line += "\t" + codeList(insts)
			}
			if _, err := fmt.Fprintln(bw, line); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// writeSeqLists emits the passing and failing sequence-name lists.
func (w *Writer) writeSeqLists(s *store.Store, reg *alert.Registry, models map[string]*model.Model) error {
	ap, err := w.create(".ap.seqlist")
	if err != nil {
		return err
	}
	defer ap.Close()
	af, err := w.create(".af.seqlist")
	if err != nil {
		return err
	}
	defer af.Close()

	apw, afw := bufio.NewWriter(ap), bufio.NewWriter(af)
	for _, seq := range s.Sequences() {
		pass, _ := s.Verdict(seq.Name)
		var err error
		if pass {
			_, err = fmt.Fprintln(apw, seq.Name)
		} else {
			_, err = fmt.Fprintln(afw, seq.Name)
		}
		if err != nil {
			return err
		}
	}
	if err := apw.Flush(); err != nil {
		return err
	}
	return afw.Flush()
}

// writeAltList emits the .altlist per-alert detail listing: one line per
// alert instance in the run, across every sequence, sorted by sequence name
// for reproducible output.
func (w *Writer) writeAltList(s *store.Store, reg *alert.Registry, models map[string]*model.Model) error {
	f, err := w.create(".altlist")
	if err != nil {
		return err
	}
	defer f.Close()
	bw := bufio.NewWriter(f)

	seqs := append([]string(nil), s.Alerts.Sequences()...)
	sort.Strings(seqs)
	for _, name := range seqs {
		for _, inst := range s.Alerts.For(name) {
			k, _ := reg.Lookup(inst.Code)
			detail := inst.Detail
			if detail != "" {
				detail = "\t" + detail
			}
			if _, err := fmt.Fprintf(bw, "%s\t%s\t%s\t%s%s\n", inst.Target, inst.Code, k.Scope, k.Description, detail); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

func passFail(pass bool) string {
	if pass {
		return "PASS"
	}
	return "FAIL"
}

func boolYN(b bool) string {
	if b {
		return "Y"
	}
	return "N"
}

func strandStr(s model.Strand) string {
	if s == 0 {
		return "-"
	}
	return s.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func codeList(insts []alert.Instance) string {
	if len(insts) == 0 {
		return "-"
	}
	codes := make([]string, len(insts))
	for i, a := range insts {
		codes[i] = string(a.Code)
	}
	return strings.Join(codes, ",")
}

// CommandLog appends one invocation's command line to the run's command
// file, per spec.md §6 ("a log file and a command file recording every
// invocation").
func CommandLog(dir string, args []string) error {
	f, err := os.OpenFile(filepath.Join(dir, "cmd"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("report: open command log: %w", err)
	}
	defer f.Close()
	_, err = fmt.Fprintln(f, strings.Join(args, " "))
	return err
}
