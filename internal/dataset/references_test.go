package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReferences_List(t *testing.T) {
	recs, err := ParseReferences([]byte(`
- id: OREAS 258
  analysis_method: 4-Acid Digestion
  values:
    Fe: 10.2
    Cu: "0.35"
    Au: "<0.01"
- id: 1640
  values:
    Zn: 3
`))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "OREAS 258", recs[0].ID)
	assert.Equal(t, "4-Acid Digestion", recs[0].AnalysisMethod)
	assert.Equal(t, 10.2, recs[0].Values["Fe"])
	assert.Equal(t, 0.35, recs[0].Values["Cu"])
	assert.NotContains(t, recs[0].Values, "Au")

	assert.Equal(t, "1640", recs[1].ID)
	assert.Equal(t, 3.0, recs[1].Values["Zn"])
}

func TestParseReferences_JSONDocument(t *testing.T) {
	recs, err := ParseReferences([]byte(`{"references":[{"id":"SRM 1640a","analysis_method":"ICP-MS","values":{"Pb":12.1}}]}`))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 12.1, recs[0].Values["Pb"])
}

func TestParseReferences_Errors(t *testing.T) {
	_, err := ParseReferences([]byte(`- values: {Fe: 1}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing id")

	_, err = ParseReferences([]byte(`name: nope`))
	require.Error(t, err)

	recs, err := ParseReferences([]byte(``))
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestLoadReferences_CSV(t *testing.T) {
	path := writeFile(t, t.TempDir(), "crm.csv",
		"CRM ID,Analysis Method,Fe,Cu\n"+
			"OREAS 258,4-Acid Digestion,10.2,0.35\n"+
			"OREAS 258,Aqua Regia Digestion,9.8,\n"+
			",skip,1,1\n")

	recs, err := LoadReferences(path)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Aqua Regia Digestion", recs[1].AnalysisMethod)
	assert.Equal(t, 9.8, recs[1].Values["Fe"])
	assert.NotContains(t, recs[1].Values, "Cu")
}

func TestLoadReferences_UnsupportedExtension(t *testing.T) {
	_, err := LoadReferences("crm.xlsx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}
