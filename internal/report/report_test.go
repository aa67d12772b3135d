package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cmannotate/cmannotate/internal/alert"
	"github.com/cmannotate/cmannotate/internal/model"
	"github.com/cmannotate/cmannotate/internal/store"
	"github.com/stretchr/testify/require"
)

func buildFixture(t *testing.T) *store.Store {
	t.Helper()
	reg := alert.NewRegistry()
	s := store.New(reg)

	clean, err := s.AddSequence("clean1", 1000)
	require.NoError(t, err)
	clean.Model = "modelA"
	require.NoError(t, s.InitFeatures("clean1", &model.Model{
		Features: []model.Feature{{Type: model.CodingRegion, TypeIndex: 1, Product: "polyprotein"}},
	}))
	clean.Features[0].Annotated = true
	clean.Features[0].NStart, clean.Features[0].NStop = 1, 900
	clean.Features[0].NStrand = model.Plus

	failing, err := s.AddSequence("bad1", 500)
	require.NoError(t, err)
	failing.Model = "modelA"
	require.NoError(t, s.InitFeatures("bad1", &model.Model{
		Features: []model.Feature{{Type: model.CodingRegion, TypeIndex: 1, Product: "polyprotein"}},
	}))
	failing.Features[0].Annotated = true
	failing.Features[0].NStart, failing.Features[0].NStop = 1, 400
	failing.Features[0].NStrand = model.Plus
	require.NoError(t, s.Alerts.Add(alert.Instance{Code: alert.InvalidStart, Target: alert.Target{Sequence: "bad1", Feature: 1}}))

	return s
}

func TestWriter_Write_ProducesAllArtifacts(t *testing.T) {
	s := buildFixture(t)
	reg := alert.NewRegistry()
	dir := t.TempDir()

	w := New(dir, "run1")
	require.NoError(t, w.Write(s, reg, map[string]*model.Model{}))

	for _, suffix := range []string{
		".seq.tab", ".ftr.tab", ".mdl.tab",
		".ap.sqtable", ".af.sqtable", ".long.sqtable",
		".ap.seqlist", ".af.seqlist", ".altlist",
	} {
		path := filepath.Join(dir, "run1"+suffix)
		info, err := os.Stat(path)
		require.NoErrorf(t, err, "expected artifact %s", suffix)
		require.Greaterf(t, info.Size(), int64(0), "expected non-empty %s", suffix)
	}
}

func TestWriter_SeqLists_SplitByVerdict(t *testing.T) {
	s := buildFixture(t)
	reg := alert.NewRegistry()
	dir := t.TempDir()
	w := New(dir, "run1")
	require.NoError(t, w.Write(s, reg, map[string]*model.Model{}))

	ap, err := os.ReadFile(filepath.Join(dir, "run1.ap.seqlist"))
	require.NoError(t, err)
	require.Contains(t, string(ap), "clean1")
	require.NotContains(t, string(ap), "bad1")

	af, err := os.ReadFile(filepath.Join(dir, "run1.af.seqlist"))
	require.NoError(t, err)
	require.Contains(t, string(af), "bad1")
	require.NotContains(t, string(af), "clean1")
}

func TestWriter_AFSqtable_HasErrorBlock(t *testing.T) {
	s := buildFixture(t)
	reg := alert.NewRegistry()
	dir := t.TempDir()
	w := New(dir, "run1")
	require.NoError(t, w.Write(s, reg, map[string]*model.Model{}))

	af, err := os.ReadFile(filepath.Join(dir, "run1.af.sqtable"))
	require.NoError(t, err)
	require.Contains(t, string(af), "ERROR: invalid-start")
}

func TestEmittedType_DemotesToMiscFeatureWhenOnlyNoteworthy(t *testing.T) {
	typ, note := emittedType(model.CodingRegion, []alert.Instance{{Code: alert.GapAt5PrimeBoundary}})
	require.Equal(t, model.FeatureType("misc_feature"), typ)
	require.Contains(t, note, "CDS")
}

func TestEmittedType_KeepsTypeWhenAnyFatalAlert(t *testing.T) {
	typ, note := emittedType(model.CodingRegion, []alert.Instance{
		{Code: alert.GapAt5PrimeBoundary}, {Code: alert.InvalidStart},
	})
	require.Equal(t, model.CodingRegion, typ)
	require.Empty(t, note)
}

func TestCommandLog_AppendsLine(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, CommandLog(dir, []string{"cmannotate", "annotate", "in.fa", "out/"}))
	require.NoError(t, CommandLog(dir, []string{"cmannotate", "annotate", "in2.fa", "out2/"}))

	data, err := os.ReadFile(filepath.Join(dir, "cmd"))
	require.NoError(t, err)
	require.Contains(t, string(data), "in.fa")
	require.Contains(t, string(data), "in2.fa")
}
