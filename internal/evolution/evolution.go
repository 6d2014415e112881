// Package evolution implements a dithered differential-evolution optimizer
// over the two-dimensional (blank, scale) correction space.
//
// The strategy is best/1/bin: each mutant is built from the generation's
// best candidate plus a scaled difference of two random members, repaired
// into the search box by bounce-back, then crossed over binomially with the
// target. Selection is greedy and ties favour the trial.
package evolution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
)

// Default tuning values.
const (
	DefaultPopulationSize = 50
	DefaultMaxGenerations = 100
	DefaultCrossoverRate  = 0.7
	DefaultMinMutation    = 0.5
	DefaultMaxMutation    = 1.0
	DefaultTolerance      = 0.01
	DefaultPatience       = 10

	// MinPopulationSize is the smallest population for which two distinct
	// donors other than the target and the best always exist.
	MinPopulationSize = 4
)

// ErrNilObjective is returned when no objective function is supplied.
var ErrNilObjective = errors.New("evolution: nil objective")

// ErrNilRand is returned when no random source is supplied.
var ErrNilRand = errors.New("evolution: nil random source")

// Bounds is a closed interval.
type Bounds struct {
	Min float64
	Max float64
}

// Range returns Max - Min.
func (b Bounds) Range() float64 { return b.Max - b.Min }

// Contains reports whether v lies in [Min, Max].
func (b Bounds) Contains(v float64) bool { return v >= b.Min && v <= b.Max }

// The fixed search box.
var (
	BlankBounds = Bounds{Min: -100, Max: 100}
	ScaleBounds = Bounds{Min: 0.5, Max: 2.0}
)

// Objective scores a candidate; higher is better.
type Objective func(blank, scale float64) float64

// Candidate is a point in the search box.
type Candidate struct {
	Blank float64 `json:"blank"`
	Scale float64 `json:"scale"`
}

func (c Candidate) dim(d int) float64 {
	if d == 0 {
		return c.Blank
	}
	return c.Scale
}

func (c *Candidate) setDim(d int, v float64) {
	if d == 0 {
		c.Blank = v
		return
	}
	c.Scale = v
}

// Options tunes a run. Zero values fall back to the defaults.
type Options struct {
	PopulationSize int
	MaxGenerations int
	CrossoverRate  float64
	MinMutation    float64
	MaxMutation    float64
	Tolerance      float64
	Patience       int
	Logger         *slog.Logger
}

// DefaultOptions returns the standard tuning.
func DefaultOptions() Options {
	return Options{
		PopulationSize: DefaultPopulationSize,
		MaxGenerations: DefaultMaxGenerations,
		CrossoverRate:  DefaultCrossoverRate,
		MinMutation:    DefaultMinMutation,
		MaxMutation:    DefaultMaxMutation,
		Tolerance:      DefaultTolerance,
		Patience:       DefaultPatience,
	}
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.PopulationSize <= 0 {
		o.PopulationSize = d.PopulationSize
	}
	if o.PopulationSize < MinPopulationSize {
		o.PopulationSize = MinPopulationSize
	}
	if o.MaxGenerations <= 0 {
		o.MaxGenerations = d.MaxGenerations
	}
	if o.CrossoverRate <= 0 || o.CrossoverRate > 1 {
		o.CrossoverRate = d.CrossoverRate
	}
	if o.MinMutation <= 0 {
		o.MinMutation = d.MinMutation
	}
	if o.MaxMutation < o.MinMutation {
		o.MaxMutation = math.Max(d.MaxMutation, o.MinMutation)
	}
	if o.Tolerance <= 0 {
		o.Tolerance = d.Tolerance
	}
	if o.Patience <= 0 {
		o.Patience = d.Patience
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Solution is the outcome of a run.
type Solution struct {
	Candidate
	Fitness     float64 `json:"fitness"`
	Generations int     `json:"generations"`
	Converged   bool    `json:"converged"`
}

// BounceBack reflects v into [b.Min, b.Max] and clamps the result.
func BounceBack(v float64, b Bounds) float64 {
	r := b.Range()
	switch {
	case math.IsNaN(v):
		return b.Min
	case math.IsInf(v, -1):
		return b.Min
	case math.IsInf(v, 1):
		return b.Max
	case r <= 0:
		return b.Min
	case v < b.Min:
		v = b.Min + math.Mod(b.Min-v, r)
	case v > b.Max:
		v = b.Max - math.Mod(v-b.Max, r)
	}
	return math.Min(math.Max(v, b.Min), b.Max)
}

var bounds = [2]Bounds{BlankBounds, ScaleBounds}

// Optimize maximizes f over the search box. rng is owned by the caller and
// must not be used concurrently elsewhere. The context is checked once per
// generation; on cancellation the best solution found so far is returned
// together with the context error.
func Optimize(ctx context.Context, f Objective, opts Options, rng *rand.Rand) (Solution, error) {
	if f == nil {
		return Solution{}, ErrNilObjective
	}
	if rng == nil {
		return Solution{}, ErrNilRand
	}
	opts = opts.normalized()
	n := opts.PopulationSize

	pop := make([]Candidate, n)
	fit := make([]float64, n)
	for i := range pop {
		pop[i] = Candidate{
			Blank: BlankBounds.Min + rng.Float64()*BlankBounds.Range(),
			Scale: ScaleBounds.Min + rng.Float64()*ScaleBounds.Range(),
		}
		fit[i] = f(pop[i].Blank, pop[i].Scale)
	}

	best := argmax(fit)
	sol := Solution{Candidate: pop[best], Fitness: fit[best]}
	stall := 0

	for gen := 0; gen < opts.MaxGenerations; gen++ {
		if err := ctx.Err(); err != nil {
			return sol, fmt.Errorf("evolution: stopped after %d generations: %w", gen, err)
		}

		prevBest := fit[best]
		leader := pop[best]

		for i := 0; i < n; i++ {
			r1, r2 := pickDonors(rng, n, i, best)
			F := opts.MinMutation + rng.Float64()*(opts.MaxMutation-opts.MinMutation)

			var mutant Candidate
			for d := 0; d < 2; d++ {
				v := leader.dim(d) + F*(pop[r1].dim(d)-pop[r2].dim(d))
				mutant.setDim(d, BounceBack(v, bounds[d]))
			}

			trial := pop[i]
			forced := rng.Intn(2)
			for d := 0; d < 2; d++ {
				if d == forced || rng.Float64() < opts.CrossoverRate {
					trial.setDim(d, mutant.dim(d))
				}
			}

			tf := f(trial.Blank, trial.Scale)
			if tf >= fit[i] {
				pop[i] = trial
				fit[i] = tf
			}
		}

		best = argmax(fit)
		sol = Solution{Candidate: pop[best], Fitness: fit[best], Generations: gen + 1}

		if math.Abs(fit[best]-prevBest) < opts.Tolerance {
			stall++
		} else {
			stall = 0
		}
		if stall >= opts.Patience {
			sol.Converged = true
			opts.Logger.Debug("differential evolution converged",
				"generation", gen+1, "fitness", sol.Fitness)
			break
		}
	}

	return sol, nil
}

// pickDonors draws two distinct indices, both different from target and best.
func pickDonors(rng *rand.Rand, n, target, best int) (int, int) {
	r1 := rng.Intn(n)
	for r1 == target || r1 == best {
		r1 = rng.Intn(n)
	}
	r2 := rng.Intn(n)
	for r2 == target || r2 == best || r2 == r1 {
		r2 = rng.Intn(n)
	}
	return r1, r2
}

// argmax returns the first index of the largest value.
func argmax(v []float64) int {
	idx := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[idx] {
			idx = i
		}
	}
	return idx
}
