package tsp

import (
	"math"
	"math/rand"
	"time"
)

// improveEps is the minimum gain of a full sweep to start another one.
const improveEps = 1e-9

// TwoOpt runs a 2-opt local search from iterations random start tours
// (node 0 always first) and returns the shortest tour found with its
// length. A nil rng seeds one from the clock.
func TwoOpt(m Matrix, iterations int, rng *rand.Rand) ([]int, float64) {
	n := m.Len()
	if n == 0 {
		return []int{}, 0
	}
	if iterations < 1 {
		iterations = 1
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	var (
		best    []int
		bestLen = math.Inf(1)
	)
	for it := 0; it < iterations; it++ {
		order := make([]int, n)
		for i, v := range rng.Perm(n - 1) {
			order[i+1] = v + 1
		}

		l := Improve(m, order)
		if l < bestLen {
			best, bestLen = order, l
		}
	}
	return best, bestLen
}

// Improve applies 2-opt moves to order in place until a full sweep no
// longer shortens it and returns the final length. The first node
// stays in place.
//
// For every position i all segment ends k are evaluated and only the
// best reversal of order[i..k] is applied before moving on to i+1.
// Moves that keep the length unchanged are accepted too.
func Improve(m Matrix, order []int) float64 {
	n := len(order)
	cost := PathLength(m, order)
	last := math.Inf(1)

	for last-cost > improveEps {
		last = cost
		for i := 1; i < n-1; i++ {
			a, b := order[i-1], order[i]
			bestK, bestDelta := -1, math.Inf(1)
			for k := i + 1; k < n; k++ {
				c := order[k]
				delta := m.At(a, c) - m.At(a, b)
				if k < n-1 {
					d := order[k+1]
					delta += m.At(b, d) - m.At(c, d)
				}
				if delta < bestDelta {
					bestK, bestDelta = k, delta
				}
			}
			if bestDelta <= 0 {
				reverse(order[i : bestK+1])
				cost += bestDelta
			}
		}
	}

	// recompute to drop accumulated rounding
	return PathLength(m, order)
}

func reverse(s []int) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
