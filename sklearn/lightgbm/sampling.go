package lightgbm

import (
	"math/rand/v2"
	"sort"
)

// SamplingStrategy handles row bagging and feature subsampling. Each
// iteration draws from its own PCG source keyed by (seed, iteration), so the
// samples of iteration i do not depend on how earlier iterations went.
type SamplingStrategy struct {
	seed            uint64
	featureFraction float64
	baggingFraction float64
	baggingFreq     int
}

// NewSamplingStrategy creates a sampling strategy. A bagging fraction below 1
// with no bagging frequency bags every iteration.
func NewSamplingStrategy(params TrainingParams) *SamplingStrategy {
	freq := params.BaggingFreq
	if freq == 0 && params.BaggingFraction < 1 {
		freq = 1
	}
	return &SamplingStrategy{
		seed:            uint64(params.Seed),
		featureFraction: params.FeatureFraction,
		baggingFraction: params.BaggingFraction,
		baggingFreq:     freq,
	}
}

func (s *SamplingStrategy) rng(iteration int, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(s.seed, uint64(iteration)<<1|stream))
}

// SampleFeatures returns the feature indices usable in the given iteration,
// sorted ascending.
func (s *SamplingStrategy) SampleFeatures(numFeatures, iteration int) []int {
	if s.featureFraction >= 1 {
		return identity(numFeatures)
	}
	numSample := min(max(int(float64(numFeatures)*s.featureFraction), 1), numFeatures)
	return sampleWithoutReplacement(s.rng(iteration, 0), numFeatures, numSample)
}

// SampleInstances returns the row indices used to grow the tree of the given
// iteration, sorted ascending.
func (s *SamplingStrategy) SampleInstances(numInstances, iteration int) []int {
	if s.baggingFraction >= 1 || s.baggingFreq <= 0 {
		return identity(numInstances)
	}
	// LightGBM redraws the bag every baggingFreq iterations.
	epoch := iteration - iteration%s.baggingFreq
	numSample := min(max(int(float64(numInstances)*s.baggingFraction), 1), numInstances)
	return sampleWithoutReplacement(s.rng(epoch, 1), numInstances, numSample)
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// sampleWithoutReplacement runs a partial Fisher-Yates shuffle.
func sampleWithoutReplacement(r *rand.Rand, n, k int) []int {
	perm := identity(n)
	for i := 0; i < k; i++ {
		j := i + r.IntN(n-i)
		perm[i], perm[j] = perm[j], perm[i]
	}
	out := perm[:k]
	sort.Ints(out)
	return out
}
