package models

// Model identifies the objective used to fit blank and scale.
type Model string

const (
	// ModelPassCount maximizes the number of samples inside the tolerance band.
	ModelPassCount Model = "A"
	// ModelHuber minimizes the mean Huber loss of the diff percentages.
	ModelHuber Model = "B"
	// ModelSSE minimizes the mean squared diff percentage.
	ModelSSE Model = "C"
)

// Models lists every model in selection-priority order.
var Models = []Model{ModelPassCount, ModelHuber, ModelSSE}

func (m Model) String() string {
	switch m {
	case ModelPassCount:
		return "A (pass count)"
	case ModelHuber:
		return "B (huber)"
	case ModelSSE:
		return "C (sse)"
	default:
		return string(m)
	}
}

// CorrectionParams is the fitted correction for one element:
// corrected = (raw - Blank) * Scale.
type CorrectionParams struct {
	Element       string  `json:"element"`
	Blank         float64 `json:"blank"`
	Scale         float64 `json:"scale"`
	SelectedModel Model   `json:"selected_model"`
}

// Apply corrects a raw reading.
func (p CorrectionParams) Apply(raw float64) float64 {
	return (raw - p.Blank) * p.Scale
}

// ModelEvaluation records how one model's fitted parameters score on the
// matched samples.
type ModelEvaluation struct {
	Model       Model   `json:"model"`
	Blank       float64 `json:"blank"`
	Scale       float64 `json:"scale"`
	Fitness     float64 `json:"fitness"`
	Passed      int     `json:"passed"`
	SSE         float64 `json:"sse"`
	Huber       float64 `json:"huber"`
	Generations int     `json:"generations"`
	Converged   bool    `json:"converged"`
}

// Interval is a confidence interval around a mean.
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Mean  float64 `json:"mean"`
	Level float64 `json:"level"`
}

// ElementOptimization is the per-element summary of an optimization run.
type ElementOptimization struct {
	CorrectionParams
	PassedBefore   int               `json:"passed_before"`
	PassedAfter    int               `json:"passed_after"`
	MeanDiffBefore float64           `json:"mean_diff_before"`
	MeanDiffAfter  float64           `json:"mean_diff_after"`
	MeanDiffCI     *Interval         `json:"mean_diff_ci,omitempty"`
	Evaluations    []ModelEvaluation `json:"evaluations,omitempty"`
}

// OptimizedSample carries before/after values, diffs and pass flags for one
// matched sample.
type OptimizedSample struct {
	Label             string              `json:"label"`
	ReferenceID       string              `json:"reference_id"`
	OriginalValues    map[string]*float64 `json:"original_values"`
	ReferenceValues   map[string]*float64 `json:"reference_values"`
	OptimizedValues   map[string]*float64 `json:"optimized_values"`
	DiffPercentBefore map[string]float64  `json:"diff_percent_before"`
	DiffPercentAfter  map[string]float64  `json:"diff_percent_after"`
	PassBefore        map[string]bool     `json:"pass_before"`
	PassAfter         map[string]bool     `json:"pass_after"`
}

// OptimizationResult is the output of a blank/scale optimization.
type OptimizationResult struct {
	TotalSamples       int                            `json:"total_samples"`
	PassedBefore       int                            `json:"passed_before"`
	PassedAfter        int                            `json:"passed_after"`
	ImprovementPercent float64                        `json:"improvement_percent"`
	Elements           map[string]ElementOptimization `json:"elements"`
	OptimizedData      []OptimizedSample              `json:"optimized_data"`
}

// ManualResult is the output of applying a hand-picked blank and scale to
// one element.
type ManualResult struct {
	CorrectionParams
	PassedBefore  int               `json:"passed_before"`
	PassedAfter   int               `json:"passed_after"`
	OptimizedData []OptimizedSample `json:"optimized_data"`
}
