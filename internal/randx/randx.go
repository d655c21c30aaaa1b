// Package randx holds the sampling helpers the generators share. Every
// function takes the caller's *rand.Rand; nothing here touches the global
// source, so a seeded run is reproducible end to end.
package randx

import (
	"math"
	"math/rand"
	"time"
)

// Between returns a uniform int in [lo, hi]. hi < lo yields lo.
func Between(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}

// Uniform returns a float in [lo, hi).
func Uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*rng.Float64()
}

// Chance reports true with probability p.
func Chance(rng *rand.Rand, p float64) bool {
	return rng.Float64() < p
}

// Pick returns a uniformly chosen element. It panics on an empty slice, as
// indexing would.
func Pick[T any](rng *rand.Rand, xs []T) T {
	return xs[rng.Intn(len(xs))]
}

// Shuffle permutes xs in place.
func Shuffle[T any](rng *rand.Rand, xs []T) {
	rng.Shuffle(len(xs), func(i, j int) { xs[i], xs[j] = xs[j], xs[i] })
}

// Sample returns k distinct elements of xs in random order, without
// modifying xs. k is clamped to len(xs).
func Sample[T any](rng *rand.Rand, xs []T, k int) []T {
	if k > len(xs) {
		k = len(xs)
	}
	if k <= 0 {
		return nil
	}
	cp := append([]T(nil), xs...)
	for i := 0; i < k; i++ {
		j := i + rng.Intn(len(cp)-i)
		cp[i], cp[j] = cp[j], cp[i]
	}
	return cp[:k]
}

// Weighted picks an index with probability proportional to weights. All
// weights must be >= 0 and at least one positive.
func Weighted(rng *rand.Rand, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	r := rng.Float64() * total
	for i, w := range weights {
		if r < w {
			return i
		}
		r -= w
	}
	return len(weights) - 1
}

// Pareto draws from a Pareto distribution with shape alpha and scale 1.
func Pareto(rng *rand.Rand, alpha float64) float64 {
	u := 1 - rng.Float64()
	return 1 / math.Pow(u, 1/alpha)
}

// Seconds, Minutes, Hours and Days draw a uniform duration in [lo, hi] units.
func Seconds(rng *rand.Rand, lo, hi int) time.Duration {
	return time.Duration(Between(rng, lo, hi)) * time.Second
}

func Minutes(rng *rand.Rand, lo, hi int) time.Duration {
	return time.Duration(Between(rng, lo, hi)) * time.Minute
}

func Hours(rng *rand.Rand, lo, hi int) time.Duration {
	return time.Duration(Between(rng, lo, hi)) * time.Hour
}

func Days(rng *rand.Rand, lo, hi int) time.Duration {
	return time.Duration(Between(rng, lo, hi)) * 24 * time.Hour
}

// Spread returns the offset of item i when n items are spaced evenly over
// window, first at 0 and last at window.
func Spread(window time.Duration, i, n int) time.Duration {
	if n <= 1 {
		return 0
	}
	return time.Duration(float64(window) * float64(i) / float64(n-1))
}

// HoursF converts fractional hours to a Duration.
func HoursF(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
