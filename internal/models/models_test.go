package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult(t *testing.T) {
	ok := Ok(42)
	assert.True(t, ok.Succeeded)
	assert.Equal(t, 42, ok.Data)
	assert.NoError(t, ok.Err())

	failed := Fail[int]("optimize: %s", "no samples")
	assert.False(t, failed.Succeeded)
	assert.EqualError(t, failed.Err(), "optimize: no samples")

	assert.EqualError(t, Result[int]{}.Err(), "operation failed")
}

func TestSample_Value(t *testing.T) {
	s := Sample{Label: "S1", Values: map[string]*float64{"Cu": Float(1.5), "Fe": nil}}

	v, ok := s.Value("Cu")
	assert.True(t, ok)
	assert.Equal(t, 1.5, v)

	_, ok = s.Value("Fe")
	assert.False(t, ok)
	_, ok = s.Value("Zn")
	assert.False(t, ok)

	assert.Len(t, s.Readings(), 2)
}

func TestMatchedSample_Pair(t *testing.T) {
	m := MatchedSample{
		SampleValues:    map[string]*float64{"Cu": Float(12), "Fe": Float(3), "Zn": nil},
		ReferenceValues: map[string]*float64{"Cu": Float(10), "Fe": Float(0), "Zn": Float(5)},
	}

	v, ref, ok := m.Pair("Cu")
	require.True(t, ok)
	assert.Equal(t, 12.0, v)
	assert.Equal(t, 10.0, ref)

	for _, el := range []string{"Fe", "Zn", "Mg"} {
		_, _, ok := m.Pair(el)
		assert.False(t, ok, el)
	}
}

func TestCloneValues(t *testing.T) {
	src := map[string]*float64{"Cu": Float(1), "Fe": nil}
	dst := CloneValues(src)

	*src["Cu"] = 99
	assert.Equal(t, 1.0, *dst["Cu"])
	assert.Contains(t, dst, "Fe")
	assert.Nil(t, dst["Fe"])
}

func TestCorrectionParams_Apply(t *testing.T) {
	p := CorrectionParams{Blank: 2, Scale: 0.5}
	assert.Equal(t, 4.0, p.Apply(10))
}

func TestModel_String(t *testing.T) {
	assert.Equal(t, "A (pass count)", ModelPassCount.String())
	assert.Equal(t, "C (sse)", ModelSSE.String())
	assert.Equal(t, "Z", Model("Z").String())
}

func TestParseDriftMethod(t *testing.T) {
	for _, name := range []string{"none", "linear", "stepwise", "polynomial"} {
		m, err := ParseDriftMethod(name)
		require.NoError(t, err)
		assert.Equal(t, DriftMethod(name), m)
	}

	m, err := ParseDriftMethod("")
	require.NoError(t, err)
	assert.Equal(t, DriftLinear, m)

	_, err = ParseDriftMethod("cubic")
	assert.ErrorContains(t, err, `unknown drift method "cubic"`)
}

func TestSegmentRatios_Ratio(t *testing.T) {
	r := SegmentRatios{0: {"Cu": 1.1}}
	assert.Equal(t, 1.1, r.Ratio(0, "Cu"))
	assert.Equal(t, 1.0, r.Ratio(0, "Fe"))
	assert.Equal(t, 1.0, r.Ratio(3, "Cu"))
}

func TestCorrectedSample_Corrected(t *testing.T) {
	c := CorrectedSample{
		Label:           "S1",
		OriginalValues:  map[string]*float64{"Cu": Float(10)},
		CorrectedValues: map[string]*float64{"Cu": Float(9)},
	}
	s := c.Corrected()
	assert.Equal(t, "S1", s.Label)
	v, ok := s.Value("Cu")
	require.True(t, ok)
	assert.Equal(t, 9.0, v)
}
