package matching

import (
	"regexp"
	"testing"

	"github.com/isatislab/isatis/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQualifies(t *testing.T) {
	tests := []struct {
		name  string
		label string
		id    string
		want  bool
	}{
		{name: "id inside label", label: "OREAS 258 a", id: "oreas 258", want: true},
		{name: "label inside id", label: "258", id: "OREAS 258", want: true},
		{name: "case-insensitive", label: "srm 1640a", id: "SRM 1640A", want: true},
		{name: "unrelated", label: "OREAS 258", id: "OREAS 45e", want: false},
		{name: "empty label", label: "", id: "OREAS 258", want: false},
		{name: "empty id", label: "OREAS 258", id: " ", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Qualifies(tt.label, tt.id))
		})
	}
}

func TestMatch_DeterministicTieBreak(t *testing.T) {
	records := []models.ReferenceRecord{
		{ID: "OREAS 25", AnalysisMethod: "4-Acid Digestion"},
		{ID: "OREAS 258", AnalysisMethod: "Fire Assay"},
		{ID: "OREAS 258", AnalysisMethod: "Aqua Regia Digestion"},
		{ID: "OREAS 258", AnalysisMethod: "4-Acid Digestion"},
	}

	// Run several permutations; the winner must never change.
	for i := 0; i < len(records); i++ {
		rotated := append(append([]models.ReferenceRecord{}, records[i:]...), records[:i]...)
		got, ok := Match("OREAS 258 run2", rotated)
		require.True(t, ok)
		assert.Equal(t, "OREAS 258", got.ID)
		assert.Equal(t, "4-Acid Digestion", got.AnalysisMethod)
	}
}

func TestMatch_LexicographicFallback(t *testing.T) {
	records := []models.ReferenceRecord{
		{ID: "CRM-B", AnalysisMethod: "XRF"},
		{ID: "CRM-A", AnalysisMethod: "XRF"},
	}
	got, ok := Match("CRM-A CRM-B", records)
	require.True(t, ok)
	assert.Equal(t, "CRM-A", got.ID)
}

func TestMatch_NoMatch(t *testing.T) {
	_, ok := Match("Sample 12", []models.ReferenceRecord{{ID: "OREAS 258"}})
	assert.False(t, ok)
}

func TestElementSymbol(t *testing.T) {
	assert.Equal(t, "Fe", ElementSymbol("Fe 238.204"))
	assert.Equal(t, "Cu", ElementSymbol("Cu_1"))
	assert.Equal(t, "K", ElementSymbol("K 766.491"))
	assert.Equal(t, "", ElementSymbol("ppm"))
	assert.Equal(t, "", ElementSymbol(""))
}

func TestMatchAll_KeysReferenceBySampleColumn(t *testing.T) {
	samples := []models.Sample{
		{Label: "OREAS 258", Values: map[string]*float64{"Fe 238.204": models.Float(9.5), "Zn": models.Float(1)}},
		{Label: "Blank 1", Values: map[string]*float64{"Fe 238.204": models.Float(0.1)}},
	}
	records := []models.ReferenceRecord{
		{ID: "OREAS 258", AnalysisMethod: "4-Acid Digestion", Values: map[string]float64{"fe": 10}},
	}

	got := MatchAll(samples, records)
	require.Len(t, got, 1)
	assert.Equal(t, "OREAS 258", got[0].ReferenceID)
	require.NotNil(t, got[0].ReferenceValues["Fe 238.204"])
	assert.Equal(t, 10.0, *got[0].ReferenceValues["Fe 238.204"])
	assert.NotContains(t, got[0].ReferenceValues, "Zn")

	assert.Equal(t, []string{"Fe 238.204"}, CommonElements(got))
}

func TestFilterLabels(t *testing.T) {
	samples := []models.Sample{{Label: "OREAS 258"}, {Label: "Sample 1"}, {Label: "crm 7"}}
	got := FilterLabels(samples, regexp.MustCompile(DefaultReferencePattern))
	require.Len(t, got, 2)
	assert.Equal(t, "OREAS 258", got[0].Label)
	assert.Equal(t, "crm 7", got[1].Label)

	assert.Len(t, FilterLabels(samples, nil), 3)
}

func TestReferenceValue_CaseFoldIsDeterministic(t *testing.T) {
	rec := models.ReferenceRecord{ID: "OREAS 45", Values: map[string]float64{"FE": 1, "fE": 2, "Fe": 3, "cu": 4}}

	for i := 0; i < 50; i++ {
		v, ok := ReferenceValue(rec, "fe")
		require.True(t, ok)
		assert.Equal(t, 1.0, v, "FE sorts first")

		v, ok = ReferenceValue(rec, "Cu 324.754")
		require.True(t, ok)
		assert.Equal(t, 4.0, v)
	}

	v, ok := ReferenceValue(rec, "Fe 238.204")
	require.True(t, ok)
	assert.Equal(t, 3.0, v, "exact symbol wins over case-folded keys")

	_, ok = ReferenceValue(rec, "Zn")
	assert.False(t, ok)
}
