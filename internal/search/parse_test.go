package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pass1Table = `# query target modelfrom modelto seqfrom seqto strand bias score evalue
seqA modelX 1 900 1 900 + 0.1 500.0 1e-100
seqA modelY 1 900 1 900 + 0.2 300.0 1e-80
seqA modelX 901 950 901 950 + 0.0 20.0 1e-5
seqB modelY 1 800 1 800 + 0.1 400.0 1e-90
`

func TestParsePass1_AccumulatesOnlyTopModelHits(t *testing.T) {
	groupOf := func(string) string { return "" }
	subgroupOf := func(string) string { return "" }

	recs, err := ParsePass1(strings.NewReader(pass1Table), groupOf, subgroupOf, "", "")
	require.NoError(t, err)

	recA := recs["seqA"]
	require.NotNil(t, recA.BestOverallPass1)
	assert.Equal(t, "modelX", recA.BestOverallPass1.Model)
	assert.Len(t, recA.BestOverallPass1.Hits, 2, "both modelX hits should accumulate")

	require.NotNil(t, recA.SecondBestDifferentModel)
	assert.Equal(t, "modelY", recA.SecondBestDifferentModel.Model)
	assert.Len(t, recA.SecondBestDifferentModel.Hits, 1)

	recB := recs["seqB"]
	require.NotNil(t, recB.BestOverallPass1)
	assert.Equal(t, "modelY", recB.BestOverallPass1.Model)
	assert.Nil(t, recB.SecondBestDifferentModel)
}

func TestParsePass1_GroupSubgroupRestriction(t *testing.T) {
	groupOf := func(m string) string {
		if m == "modelY" {
			return "G"
		}
		return "H"
	}
	subgroupOf := func(m string) string {
		if m == "modelY" {
			return "G.II"
		}
		return ""
	}

	recs, err := ParsePass1(strings.NewReader(pass1Table), groupOf, subgroupOf, "G", "G.I")
	require.NoError(t, err)

	recA := recs["seqA"]
	require.NotNil(t, recA.BestInGroupPass1)
	assert.Equal(t, "modelY", recA.BestInGroupPass1.Model)

	// No model matches subgroup G.I, so BestInSubgroupPass1 stays nil.
	assert.Nil(t, recA.BestInSubgroupPass1)
}

const pass2Table = `seqA modelX 1 900 1 900 + 0.1 800.0 1e-200
seqB modelY 1 800 1 800 + 0.1 750.0 1e-190
`

func TestParsePass2_OneModelPerSequence(t *testing.T) {
	recs, err := ParsePass2(strings.NewReader(pass2Table))
	require.NoError(t, err)
	assert.Equal(t, "modelX", recs["seqA"].BestInPass2.Model)
	assert.Equal(t, "modelY", recs["seqB"].BestInPass2.Model)
}

func TestParsePass2_MultipleModelsIsFatal(t *testing.T) {
	bad := `seqA modelX 1 900 1 900 + 0.1 800.0 1e-200
seqA modelY 1 900 1 900 + 0.1 750.0 1e-190
`
	_, err := ParsePass2(strings.NewReader(bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "more than one model")
}

func TestParseHits_MalformedLineIsError(t *testing.T) {
	_, err := ParseHits(strings.NewReader("seqA modelX 1 900 1 900 +\n"))
	require.Error(t, err)
}
