package optimize

import (
	"fmt"
	"math/rand"

	"github.com/charmbracelet/log"
	"github.com/mastercactapus/pcbmill/machining"
	"github.com/mastercactapus/pcbmill/tsp"
)

// Algorithm selects the tour search used for hole ordering.
type Algorithm string

const (
	// TwoOpt optimizes Iterations random start tours and keeps the best.
	TwoOpt Algorithm = "2opt"
	// Greedy is a nearest-neighbor search. Fast, moderate results.
	Greedy Algorithm = "greedy"
)

// HoleOrder minimizes the jog path between holes.
type HoleOrder struct {
	Active     bool      `toml:"active"`
	Algorithm  Algorithm `toml:"algorithm"`
	Iterations int       `toml:"iterations"`

	Rand   *rand.Rand  `toml:"-"`
	Logger *log.Logger `toml:"-"`
}

// NewHoleOrder returns a HoleOrder with default settings.
func NewHoleOrder() *HoleOrder {
	return &HoleOrder{Active: true, Algorithm: TwoOpt, Iterations: 20}
}

func (o *HoleOrder) OptimizeHoles(l *machining.HoleList) error {
	if !o.Active || l.Len() <= 1 {
		return nil
	}
	lg := logger(o.Logger)
	lg.Info("optimizing hole order", "holes", l.Len(), "algorithm", o.Algorithm, "iterations", o.Iterations)

	m := tsp.Distances(l.Centers())

	var order []int
	switch o.Algorithm {
	case TwoOpt, "":
		order, _ = tsp.TwoOpt(m, o.Iterations, o.Rand)
	case Greedy:
		order = tsp.Greedy(m)
	default:
		return &machining.InvalidArgumentError{Argument: "algorithm", Description: fmt.Sprintf("unknown algorithm %q", o.Algorithm)}
	}

	if err := l.Reorder(order); err != nil {
		return fmt.Errorf("reorder holes: %w", err)
	}
	lg.Info("hole order optimized", "length", fmt.Sprintf("%.3f", tsp.PathLength(m, order)))
	return nil
}
