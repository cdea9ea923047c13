package optimize

import (
	"github.com/charmbracelet/log"
	"github.com/mastercactapus/pcbmill/machining"
)

// Set is the optimizer configuration of a workpiece.
type Set struct {
	HoleOrder          *HoleOrder          `toml:"hole_order"`
	MillingCombination *MillingCombination `toml:"milling_combination"`
	Breakout           *Breakout           `toml:"breakout"`
	MillingOrder       *MillingOrder       `toml:"milling_order"`
}

// DefaultSet returns all optimizers with their default settings.
func DefaultSet() Set {
	return Set{
		HoleOrder:          NewHoleOrder(),
		MillingCombination: NewMillingCombination(),
		Breakout:           NewBreakout(),
		MillingOrder:       NewMillingOrder(),
	}
}

// SetLogger assigns l to every optimizer in the set.
func (s Set) SetLogger(l *log.Logger) {
	if s.HoleOrder != nil {
		s.HoleOrder.Logger = l
	}
	if s.MillingCombination != nil {
		s.MillingCombination.Logger = l
	}
	if s.Breakout != nil {
		s.Breakout.Logger = l
	}
	if s.MillingOrder != nil {
		s.MillingOrder.Logger = l
	}
}

// HoleOptimizers returns the configured hole optimizers in run order.
func (s Set) HoleOptimizers() []machining.HoleOptimizer {
	var res []machining.HoleOptimizer
	if s.HoleOrder != nil {
		res = append(res, s.HoleOrder)
	}
	return res
}

// MillingOptimizers returns the configured milling optimizers in run
// order: combine adjacent millings, insert breakouts, then order them.
func (s Set) MillingOptimizers() []machining.MillingOptimizer {
	var res []machining.MillingOptimizer
	if s.MillingCombination != nil {
		res = append(res, s.MillingCombination)
	}
	if s.Breakout != nil {
		res = append(res, s.Breakout)
	}
	if s.MillingOrder != nil {
		res = append(res, s.MillingOrder)
	}
	return res
}
