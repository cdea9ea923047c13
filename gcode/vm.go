package gcode

import (
	"fmt"

	"github.com/mastercactapus/pcbmill/coord"
)

// VM follows the position and modal state of a milling program as its
// blocks are run. Positions are in millimeters in the active work
// coordinate system.
type VM struct {
	pos coord.Point

	motion   float64
	relative bool
	inches   bool
	feed     float64
}

// codes a milling program may contain; everything else is rejected
var vmCodes = map[Word]bool{
	G(0): true, G(1): true, G(2): true, G(3): true,
	G(17): true, G(20): true, G(21): true,
	G(54): true, G(55): true,
	G(90): true, G(91): true, G(94): true,
	M(2): true, M(3): true, M(5): true, M(8): true, M(9): true,
}

// NewVM returns a VM in the power-on state (G0 G90 G21) at start.
func NewVM(start coord.Point) *VM {
	return &VM{pos: start}
}

// Pos returns the position after the last block.
func (vm *VM) Pos() coord.Point { return vm.pos }

// Relative reports whether incremental distance mode (G91) is active.
func (vm *VM) Relative() bool { return vm.relative }

func (vm *VM) Inches() bool { return vm.inches }

// Arc reports whether the active motion mode is a circular move.
func (vm *VM) Arc() bool { return vm.motion == 2 || vm.motion == 3 }

// Feed returns the last programmed feed rate.
func (vm *VM) Feed() float64 { return vm.feed }

func (vm *VM) check(w Word) error {
	switch {
	case w.IsAxis(), w.W == 'F', w.IsArcOffset() && w.W != 'K':
		return nil
	case w.W == 'G', w.W == 'M':
		if vmCodes[w] {
			return nil
		}
	}
	return fmt.Errorf("unsupported code: %s", w)
}

// Run applies b, updating the modal state before moving.
func (vm *VM) Run(b Block) error {
	err := b.Validate()
	if err != nil {
		return err
	}

	var moved bool
	for _, w := range b {
		err = vm.check(w)
		if err != nil {
			return err
		}
		switch w {
		case G(20), G(21):
			vm.inches = w.Arg == 20
		case G(90), G(91):
			vm.relative = w.Arg == 91
		}
		if w.ModalGroup() == ModalGroupMotion {
			vm.motion = w.Arg
		}
		if w.W == 'F' {
			vm.feed = w.Arg
		}
		if w.IsAxis() {
			moved = true
		}
	}
	if !moved {
		return nil
	}

	scale := 1.0
	if vm.inches {
		scale = 25.4
	}
	next := vm.pos
	if vm.relative {
		next = coord.Point{}
	}
	for _, w := range b {
		switch w.W {
		case 'X':
			next.X = w.Arg * scale
		case 'Y':
			next.Y = w.Arg * scale
		case 'Z':
			next.Z = w.Arg * scale
		}
	}
	if vm.relative {
		next = vm.pos.Add(next)
	}
	vm.pos = next

	return nil
}
