// Package board holds the workpiece: the holes and millings of one PCB.
package board

import (
	"fmt"

	"github.com/mastercactapus/pcbmill/coord"
	"github.com/mastercactapus/pcbmill/machining"
	"github.com/mastercactapus/pcbmill/optimize"
)

// Planner is a machine that can plan a whole machining cycle.
type Planner interface {
	machining.Planner

	// PreparePlanner starts a new, empty command buffer.
	PreparePlanner() error
	// FinalizePlanner terminates the program in the command buffer.
	FinalizePlanner() error
}

// Workpiece is a board to be machined.
type Workpiece struct {
	Holes    *machining.HoleList
	Millings *machining.MillingList

	// Position is the lower left corner of the board outline.
	Position coord.Vec

	// Size is the width (X) and height (Y) of the board outline.
	Size coord.Vec
}

// NewWorkpiece returns an empty workpiece using the optimizers of set.
func NewWorkpiece(size coord.Vec, set optimize.Set) *Workpiece {
	return &Workpiece{
		Holes:    machining.NewHoleList(set.HoleOptimizers()...),
		Millings: machining.NewMillingList(set.MillingOptimizers()...),
		Size:     size,
	}
}

func (w *Workpiece) AppendHole(h *machining.Hole) { w.Holes.Append(h) }
func (w *Workpiece) AppendMilling(m *machining.Milling) { w.Millings.Append(m) }

// Optimize runs all hole and milling optimizers.
func (w *Workpiece) Optimize() error {
	if err := w.Holes.Optimize(); err != nil {
		return fmt.Errorf("optimize holes: %w", err)
	}
	if err := w.Millings.Optimize(); err != nil {
		return fmt.Errorf("optimize millings: %w", err)
	}
	return nil
}

// Plan plans the complete machining cycle: all holes, then all millings.
func (w *Workpiece) Plan(p Planner) error {
	if err := p.PreparePlanner(); err != nil {
		return fmt.Errorf("prepare planner: %w", err)
	}
	w.Holes.Plan(p)
	w.Millings.Plan(p)
	if err := p.FinalizePlanner(); err != nil {
		return fmt.Errorf("finalize planner: %w", err)
	}
	return nil
}

func (w *Workpiece) Translate(offset coord.Vec) {
	w.Holes.Translate(offset)
	w.Millings.Translate(offset)
	w.Position = w.Position.Add(offset)
}

func (w *Workpiece) Transform(m coord.Matrix) {
	w.Holes.Transform(m)
	w.Millings.Transform(m)
}

// Mirror flips the board for machining from the bottom side. The
// result stays within the original board width.
func (w *Workpiece) Mirror() {
	w.Holes.Mirror()
	w.Millings.Mirror()
	shift := coord.Vec{X: w.Size.X}
	w.Holes.Translate(shift)
	w.Millings.Translate(shift)
}
