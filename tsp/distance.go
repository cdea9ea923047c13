// Package tsp orders nodes to minimize the travel between them.
//
// Tours are open paths that start at node 0; there is no edge back
// to the start.
package tsp

import (
	"errors"

	"github.com/mastercactapus/pcbmill/coord"
)

// ErrDimensionMismatch is returned when node sets of different size are combined.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// Matrix is a dense n×n distance matrix; At(i, j) is the cost of
// travelling from node i to node j.
type Matrix struct {
	n int
	w []float64
}

// NewMatrix creates an n×n matrix with all distances zero.
func NewMatrix(n int) Matrix {
	return Matrix{n: n, w: make([]float64, n*n)}
}

func (m Matrix) Len() int { return m.n }
func (m Matrix) At(i, j int) float64 { return m.w[i*m.n+j] }
func (m Matrix) Set(i, j int, v float64) { m.w[i*m.n+j] = v }

// Distances returns the symmetric euclidean distances between all nodes.
func Distances(nodes []coord.Vec) Matrix {
	m := NewMatrix(len(nodes))
	for i, a := range nodes {
		for j := i + 1; j < len(nodes); j++ {
			d := a.Dist(nodes[j])
			m.Set(i, j, d)
			m.Set(j, i, d)
		}
	}
	return m
}

// TwoPointDistances handles nodes with distinct start and end points
// (e.g. millings). At(i, j) is the distance from the end of node i to
// the start of node j.
func TwoPointDistances(starts, ends []coord.Vec) (Matrix, error) {
	if len(starts) != len(ends) {
		return Matrix{}, ErrDimensionMismatch
	}
	m := NewMatrix(len(starts))
	for i, e := range ends {
		for j, s := range starts {
			m.Set(i, j, e.Dist(s))
		}
	}
	return m, nil
}

// PathLength sums the distances along order.
func PathLength(m Matrix, order []int) float64 {
	var l float64
	for i := 1; i < len(order); i++ {
		l += m.At(order[i-1], order[i])
	}
	return l
}
