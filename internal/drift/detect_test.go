package drift

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isatislab/isatis/internal/models"
)

func run(labels ...string) []models.Sample {
	out := make([]models.Sample, len(labels))
	for i, l := range labels {
		out[i] = models.Sample{Label: l, Values: map[string]*float64{"Fe": models.Float(100)}}
	}
	return out
}

func runOfLength(n int, standards map[int]string) []models.Sample {
	labels := make([]string, n)
	for i := range labels {
		labels[i] = fmt.Sprintf("Sample %d", i)
		if l, ok := standards[i]; ok {
			labels[i] = l
		}
	}
	return run(labels...)
}

func TestPatterns_Classify(t *testing.T) {
	p := DefaultPatterns()
	tests := []struct {
		label  string
		kind   models.StandardKind
		number int
		ok     bool
	}{
		{label: "OREAS 45", kind: models.StandardReference, number: 45, ok: true},
		{label: "oreas 45", kind: models.StandardReference, number: 45, ok: true},
		{label: "CRM12", kind: models.StandardReference, number: 12, ok: true},
		{label: "STD 2", kind: models.StandardBase, number: 2, ok: true},
		{label: "STD check", kind: models.StandardCheck, number: 0, ok: true},
		{label: "OREAS 45 chek", kind: models.StandardCheck, number: 45, ok: true},
		{label: "STD3 cone", kind: models.StandardCone, number: 3, ok: true},
		{label: "CONE 3", kind: models.StandardCone, number: 3, ok: true},
		{label: "Cal", kind: models.StandardCone, number: 0, ok: true},
		{label: "Sample 1"},
		{label: "   "},
		{label: "Soil OREAS 45"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			kind, number, ok := p.Classify(tt.label)
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.number, number)
		})
	}
}

func TestCompilePatterns(t *testing.T) {
	p, err := CompilePatterns(`^BLK`, "", "")
	require.NoError(t, err)
	assert.True(t, p.Base.MatchString("blk 1"))
	assert.True(t, p.Cone.MatchString("cone"))

	_, err = CompilePatterns("", "(", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cone")
}

func TestDetectSegments_FewerThanTwoStandards(t *testing.T) {
	for _, standards := range []map[int]string{nil, {20: "OREAS 45"}} {
		segs := DetectSegments(runOfLength(50, standards), DefaultPatterns())
		require.Len(t, segs, 1)
		assert.Equal(t, 0, segs[0].StartIndex)
		assert.Equal(t, 49, segs[0].EndIndex)
		assert.Equal(t, 50, segs[0].SampleCount)
	}
}

func TestDetectSegments_Empty(t *testing.T) {
	assert.Empty(t, DetectSegments(nil, DefaultPatterns()))
}

func TestDetectSegments_CoverWholeRun(t *testing.T) {
	samples := runOfLength(50, map[int]string{3: "STD 1", 10: "OREAS 45", 25: "CONE 2", 40: "STD check"})

	segs := DetectSegments(samples, DefaultPatterns())
	require.Len(t, segs, 3)

	assert.Equal(t, 0, segs[0].StartIndex)
	assert.Equal(t, 49, segs[len(segs)-1].EndIndex)
	for i := 1; i < len(segs); i++ {
		assert.Equal(t, segs[i-1].EndIndex, segs[i].StartIndex, "segments share boundaries")
		assert.Equal(t, i, segs[i].SegmentIndex)
	}

	assert.Equal(t, 3, segs[0].StandardStart)
	assert.Equal(t, 10, segs[0].StandardEnd)
	assert.Equal(t, "STD 1", segs[0].StartLabel)
	assert.Equal(t, "OREAS 45", segs[0].EndLabel)
	assert.Equal(t, 40, segs[2].StandardEnd)
	assert.Equal(t, 11, segs[0].SampleCount)
	assert.Equal(t, 25, segs[2].SampleCount)

	covered := make(map[int]bool)
	for _, s := range segs {
		for r := s.StartIndex; r <= s.EndIndex; r++ {
			covered[r] = true
		}
	}
	assert.Len(t, covered, 50)
}

func TestDetectSegments_LabelsNameBracketingStandards(t *testing.T) {
	samples := runOfLength(20, map[int]string{4: "STD 1", 15: "STD 2"})

	segs := DetectSegments(samples, DefaultPatterns())
	require.Len(t, segs, 1)
	s := segs[0]

	assert.Equal(t, 0, s.StartIndex)
	assert.Equal(t, 19, s.EndIndex)
	assert.Equal(t, "STD 1", s.StartLabel)
	assert.Equal(t, "STD 2", s.EndLabel)
	assert.Equal(t, samples[s.StandardStart].Label, s.StartLabel)
	assert.Equal(t, samples[s.StandardEnd].Label, s.EndLabel)

	single := DetectSegments(runOfLength(5, nil), DefaultPatterns())
	require.Len(t, single, 1)
	assert.Empty(t, single[0].StartLabel)
	assert.Empty(t, single[0].EndLabel)
}

func TestDetectMarkers(t *testing.T) {
	samples := run("STD 1", "Sample", "CONE 2", "OREAS 45")
	markers := DetectMarkers(samples, DefaultPatterns())
	require.Len(t, markers, 3)
	assert.Equal(t, []int{0, 2, 3}, []int{markers[0].Index, markers[1].Index, markers[2].Index})
	assert.Equal(t, models.StandardCone, markers[1].Kind)
}

func TestSegmentFor_SharedRowBelongsToEarlier(t *testing.T) {
	segs := []models.DriftSegment{
		{SegmentIndex: 0, StartIndex: 0, EndIndex: 5},
		{SegmentIndex: 1, StartIndex: 5, EndIndex: 10},
	}
	s, ok := SegmentFor(segs, 5)
	require.True(t, ok)
	assert.Equal(t, 0, s.SegmentIndex)

	s, ok = SegmentFor(segs, 6)
	require.True(t, ok)
	assert.Equal(t, 1, s.SegmentIndex)

	_, ok = SegmentFor(segs, 11)
	assert.False(t, ok)
}
