package statistics

import (
	"math"
	"math/rand"
	"sort"

	"github.com/isatislab/isatis/internal/models"
)

// DefaultBootstrapIterations is the number of bootstrap resamples.
const DefaultBootstrapIterations = 2000

// BootstrapMeanCI computes a percentile bootstrap confidence interval for
// the mean of values. confidenceLevel should be in (0, 1), e.g. 0.95.
// The caller owns rng; it is never shared with other calls.
// Returns a degenerate interval when fewer than 2 values exist.
func BootstrapMeanCI(values []float64, confidenceLevel float64, rng *rand.Rand) models.Interval {
	n := len(values)
	m := Mean(values)
	if n < 2 || rng == nil {
		return models.Interval{Lower: m, Upper: m, Mean: m, Level: confidenceLevel}
	}

	iters := DefaultBootstrapIterations
	bootMeans := make([]float64, iters)
	sample := make([]float64, n)
	for i := 0; i < iters; i++ {
		for j := 0; j < n; j++ {
			sample[j] = values[rng.Intn(n)]
		}
		bootMeans[i] = Mean(sample)
	}

	sort.Float64s(bootMeans)

	alpha := 1.0 - confidenceLevel
	loIdx := int(math.Floor(alpha / 2.0 * float64(iters)))
	hiIdx := int(math.Floor((1.0 - alpha/2.0) * float64(iters)))
	if hiIdx >= iters {
		hiIdx = iters - 1
	}

	return models.Interval{
		Lower: bootMeans[loIdx],
		Upper: bootMeans[hiIdx],
		Mean:  m,
		Level: confidenceLevel,
	}
}

// NewRand returns an isolated random source. A negative seed draws a seed
// from the process-wide source.
func NewRand(seed int64) *rand.Rand {
	if seed < 0 {
		return rand.New(rand.NewSource(rand.Int63()))
	}
	return rand.New(rand.NewSource(seed))
}
