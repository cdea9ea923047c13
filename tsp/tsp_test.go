package tsp

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/mastercactapus/pcbmill/coord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomNodes(rng *rand.Rand, n int) []coord.Vec {
	nodes := make([]coord.Vec, n)
	for i := range nodes {
		nodes[i] = coord.Vec{X: rng.Float64() * 100, Y: rng.Float64() * 80}
	}
	return nodes
}

func assertPermutation(t *testing.T, n int, order []int) {
	t.Helper()
	require.Len(t, order, n)
	sorted := append([]int(nil), order...)
	sort.Ints(sorted)
	for i, v := range sorted {
		assert.Equal(t, i, v)
	}
}

func TestDistances(t *testing.T) {
	m := Distances([]coord.Vec{{}, {X: 3, Y: 4}, {X: 3}})
	assert.Equal(t, 3, m.Len())
	assert.Equal(t, 5.0, m.At(0, 1))
	assert.Equal(t, 5.0, m.At(1, 0))
	assert.Equal(t, 4.0, m.At(1, 2))
	assert.Equal(t, 0.0, m.At(2, 2))
}

func TestTwoPointDistances(t *testing.T) {
	starts := []coord.Vec{{}, {X: 10}}
	ends := []coord.Vec{{X: 10}, {X: 10, Y: 5}}
	m, err := TwoPointDistances(starts, ends)
	require.NoError(t, err)

	assert.Equal(t, 10.0, m.At(0, 0))
	assert.Equal(t, 0.0, m.At(0, 1))
	assert.Equal(t, 5.0, m.At(1, 1))
	assert.InDelta(t, 11.18034, m.At(1, 0), 1e-5)

	_, err = TwoPointDistances(starts, ends[:1])
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestGreedy_ThreeHoles(t *testing.T) {
	m := Distances([]coord.Vec{{}, {X: 10}, {X: 10, Y: 10}})
	order := Greedy(m)
	assert.Equal(t, []int{0, 1, 2}, order)
	assert.Equal(t, 20.0, PathLength(m, order))
}

func TestGreedy_TieBreak(t *testing.T) {
	// nodes 1 and 2 are equally far from the start
	m := Distances([]coord.Vec{{}, {X: 1}, {X: -1}, {X: 5}})
	assert.Equal(t, []int{0, 1, 2, 3}, Greedy(m))
}

func TestGreedy_Permutation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, n := range []int{1, 2, 7, 50} {
		order := Greedy(Distances(randomNodes(rng, n)))
		assertPermutation(t, n, order)
		assert.Equal(t, 0, order[0])
	}
	assert.Empty(t, Greedy(NewMatrix(0)))
}

func TestGreedy_TwoPoint(t *testing.T) {
	// millings: 0 goes right, 2 continues where 0 ends, 1 is far away
	starts := []coord.Vec{{}, {X: 50, Y: 50}, {X: 11}}
	ends := []coord.Vec{{X: 10}, {X: 60, Y: 50}, {X: 20}}
	m, err := TwoPointDistances(starts, ends)
	require.NoError(t, err)

	order := Greedy(m)
	assert.Equal(t, []int{0, 2, 1}, order)
	assert.InDelta(t, 1+58.3095, PathLength(m, order), 1e-3)
}

func TestTwoOpt(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	nodes := randomNodes(rng, 40)
	m := Distances(nodes)

	order, l := TwoOpt(m, 5, rng)
	assertPermutation(t, len(nodes), order)
	assert.Equal(t, 0, order[0])
	assert.InDelta(t, PathLength(m, order), l, 1e-9)
}

func TestTwoOpt_Small(t *testing.T) {
	order, l := TwoOpt(NewMatrix(0), 3, nil)
	assert.Empty(t, order)
	assert.Zero(t, l)

	order, _ = TwoOpt(Distances([]coord.Vec{{X: 1}}), 0, nil)
	assert.Equal(t, []int{0}, order)

	m := Distances([]coord.Vec{{}, {X: 10}, {X: 10, Y: 10}})
	order, l = TwoOpt(m, 3, rand.New(rand.NewSource(3)))
	assert.Equal(t, []int{0, 1, 2}, order)
	assert.Equal(t, 20.0, l)
}

func TestImprove_NeverWorse(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		m := Distances(randomNodes(rng, 30))

		order := Greedy(m)
		before := PathLength(m, order)
		after := Improve(m, order)
		assert.LessOrEqual(t, after, before+1e-9)
		assert.Equal(t, 0, order[0])
		assertPermutation(t, 30, order)

		start := append([]int{0}, rng.Perm(29)...)
		for j := 1; j < len(start); j++ {
			start[j]++
		}
		before = PathLength(m, start)
		assert.LessOrEqual(t, Improve(m, start), before+1e-9)
	}
}

func TestImprove_RemovesCrossing(t *testing.T) {
	// 0 -> 2 -> 1 -> 3 crosses itself
	nodes := []coord.Vec{{}, {X: 10}, {Y: 10}, {X: 10, Y: 10}}
	m := Distances(nodes)
	order := []int{0, 3, 2, 1}
	l := Improve(m, order)
	assert.Equal(t, 30.0, l)
}
