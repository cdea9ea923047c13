package tinyg

import (
	"github.com/mastercactapus/pcbmill/coord"
	"github.com/mastercactapus/pcbmill/gcode"
	"github.com/mastercactapus/pcbmill/machine"
	"github.com/mastercactapus/pcbmill/machining"
)

// Planner builds the g-code lines of a machining cycle. It does no I/O
// and can be used without a controller.
type Planner struct {
	Params machine.Params

	buf []gcode.Block
}

var _ machining.Planner = &Planner{}

func NewPlanner(p machine.Params) *Planner {
	return &Planner{Params: p}
}

func (p *Planner) add(b ...gcode.Block) { p.buf = append(p.buf, b...) }

// PreparePlanner resets the buffer to the program preamble: mm, absolute,
// workpiece coordinates (G55), XY plane, spindle on, working distance.
func (p *Planner) PreparePlanner() error {
	p.buf = p.buf[:0]
	p.add(
		gcode.Block{gcode.G(21)},
		gcode.Block{gcode.G(90)},
		gcode.Block{gcode.G(55)},
		gcode.Block{gcode.G(17)},
		gcode.Block{gcode.M(3)},
		gcode.Block{gcode.G(1), gcode.F(p.Params.JogSpeedZ), gcode.Z(0)},
	)
	return nil
}

func (p *Planner) FinalizePlanner() error {
	p.add(gcode.Block{gcode.M(2)})
	return nil
}

func (p *Planner) ToolDiameter() float64 { return p.Params.ToolDiameter }

func (p *Planner) PlanJog(pos coord.Vec) {
	p.add(gcode.Block{gcode.G(1), gcode.F(p.Params.JogSpeedXY), gcode.X(pos.X), gcode.Y(pos.Y)})
}

func (p *Planner) PlanMill(pos coord.Vec) {
	p.add(gcode.Block{gcode.G(1), gcode.F(p.Params.MillSpeedXY), gcode.X(pos.X), gcode.Y(pos.Y)})
}

func (p *Planner) PlanMillArc(start, end, center coord.Vec, ccw bool) {
	b := gcode.Block{gcode.G(2)}
	if ccw {
		b[0] = gcode.G(3)
	}
	if !start.Equal(end) {
		b = append(b, gcode.X(end.X), gcode.Y(end.Y))
	}
	off := center.Sub(start)
	b = append(b,
		gcode.I(off.X),
		gcode.J(off.Y),
		gcode.F(p.Params.MillSpeedXY),
	)
	p.add(b)
}

func (p *Planner) PlanInfeed() {
	p.add(
		gcode.Block{gcode.G(91)},
		gcode.Block{gcode.G(1), gcode.F(p.Params.InfeedSpeed), gcode.Z(-p.Params.InfeedDepth)},
		gcode.Block{gcode.G(90)},
	)
}

func (p *Planner) PlanOutfeed() {
	p.add(
		gcode.Block{gcode.G(91)},
		gcode.Block{gcode.G(1), gcode.F(p.Params.OutfeedSpeed), gcode.Z(p.Params.InfeedDepth)},
		gcode.Block{gcode.G(90)},
	)
}

// Blocks returns the planned program.
func (p *Planner) Blocks() []gcode.Block {
	res := make([]gcode.Block, len(p.buf))
	copy(res, p.buf)
	return res
}

// Commands returns the planned program as g-code lines.
func (p *Planner) Commands() []string {
	res := make([]string, len(p.buf))
	for i, b := range p.buf {
		res[i] = b.String()
	}
	return res
}

func (p *Planner) Len() int { return len(p.buf) }

func (p *Planner) Clear() { p.buf = nil }
