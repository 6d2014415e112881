package blankscale

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isatislab/isatis/internal/evolution"
	"github.com/isatislab/isatis/internal/models"
	"github.com/isatislab/isatis/internal/statistics"
)

func TestSelect(t *testing.T) {
	tests := []struct {
		name  string
		evals []models.ModelEvaluation
		want  models.Model
	}{
		{
			name: "most passes wins",
			evals: []models.ModelEvaluation{
				{Model: models.ModelPassCount, Passed: 3, SSE: 50},
				{Model: models.ModelHuber, Passed: 4, SSE: 90},
				{Model: models.ModelSSE, Passed: 2, SSE: 1},
			},
			want: models.ModelHuber,
		},
		{
			name: "lower sse breaks pass tie",
			evals: []models.ModelEvaluation{
				{Model: models.ModelPassCount, Passed: 3, SSE: 50},
				{Model: models.ModelHuber, Passed: 3, SSE: 40},
				{Model: models.ModelSSE, Passed: 3, SSE: 45},
			},
			want: models.ModelHuber,
		},
		{
			name: "lower huber breaks sse tie",
			evals: []models.ModelEvaluation{
				{Model: models.ModelPassCount, Passed: 3, SSE: 40, Huber: 5},
				{Model: models.ModelHuber, Passed: 3, SSE: 40, Huber: 6},
				{Model: models.ModelSSE, Passed: 3, SSE: 40, Huber: 4},
			},
			want: models.ModelSSE,
		},
		{
			name: "full tie keeps model order",
			evals: []models.ModelEvaluation{
				{Model: models.ModelPassCount, Passed: 3, SSE: 40, Huber: 5},
				{Model: models.ModelHuber, Passed: 3, SSE: 40, Huber: 5},
				{Model: models.ModelSSE, Passed: 3, SSE: 40, Huber: 5},
			},
			want: models.ModelPassCount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Select(tt.evals)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.Model)
		})
	}
}

func TestSelect_Empty(t *testing.T) {
	_, ok := Select(nil)
	assert.False(t, ok)
}

func scaledData() []models.MatchedSample {
	return []models.MatchedSample{
		matched("OREAS 45", "OREAS 45", 120, 100),
		matched("OREAS 62", "OREAS 62", 240, 200),
		matched("OREAS 905", "OREAS 905", 360, 300),
	}
}

func TestOptimizeElement_SingleModelRunsPassCountOnly(t *testing.T) {
	ev := Evaluator{Data: scaledData(), Element: "Fe", Band: statistics.DefaultBand}

	params, evals, err := OptimizeElement(context.Background(), ev, false, evolution.DefaultOptions(), rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	require.Len(t, evals, 1)
	assert.Equal(t, models.ModelPassCount, evals[0].Model)
	assert.Equal(t, models.ModelPassCount, params.SelectedModel)
	assert.Equal(t, "Fe", params.Element)
}

func TestOptimizeElement_MultiModelEvaluatesAll(t *testing.T) {
	ev := Evaluator{Data: scaledData(), Element: "Fe", Band: statistics.DefaultBand}

	params, evals, err := OptimizeElement(context.Background(), ev, true, evolution.DefaultOptions(), rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	require.Len(t, evals, 3)
	for i, m := range models.Models {
		assert.Equal(t, m, evals[i].Model)
		assert.True(t, evolution.BlankBounds.Contains(evals[i].Blank))
		assert.True(t, evolution.ScaleBounds.Contains(evals[i].Scale))
		assert.Equal(t, ev.PassCount(evals[i].Blank, evals[i].Scale), evals[i].Passed)
	}

	winner, _ := Select(evals)
	assert.Equal(t, winner.Model, params.SelectedModel)
	assert.Equal(t, winner.Blank, params.Blank)
	assert.Equal(t, 3, winner.Passed)
}

func TestOptimizeElement_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ev := Evaluator{Data: scaledData(), Element: "Fe", Band: statistics.DefaultBand}
	_, _, err := OptimizeElement(ctx, ev, true, evolution.DefaultOptions(), rand.New(rand.NewSource(1)))
	require.ErrorIs(t, err, context.Canceled)
}
