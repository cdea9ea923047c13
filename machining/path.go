package machining

import (
	"math"

	"github.com/charmbracelet/log"
	"github.com/mastercactapus/pcbmill/coord"
)

// lengthEps (mm) absorbs rounding when a split lands on a path end.
const lengthEps = 1e-9

// Kind identifies the shape of a Path.
type Kind int

const (
	Straight Kind = iota
	Arc
)

func (k Kind) String() string {
	switch k {
	case Straight:
		return "straight"
	case Arc:
		return "arc"
	}
	return "unknown"
}

// Path is a single milling segment.
//
// Center, Angle and CCW are only meaningful for arcs. Angle is the
// absolute opening angle in radians; a full circle has Start == End
// and Angle == 2π.
type Path struct {
	Kind       Kind
	Start, End coord.Vec

	Center coord.Vec
	Angle  float64
	CCW    bool
}

// NewStraight creates a straight path from start to end.
func NewStraight(start, end coord.Vec) *Path {
	return &Path{Kind: Straight, Start: start, End: end}
}

// NewArc creates an arc from its center parameterization.
// Use the other constructors to convert from other parameterizations.
func NewArc(start, end, center coord.Vec, angle float64, ccw bool) *Path {
	return &Path{Kind: Arc, Start: start, End: end, Center: center, Angle: math.Abs(angle), CCW: ccw}
}

// NewCircle creates a full counterclockwise circle starting at the
// leftmost point.
func NewCircle(radius float64, center coord.Vec) *Path {
	start := coord.Vec{X: center.X - radius, Y: center.Y}
	return NewArc(start, start, center, 2*math.Pi, true)
}

func checkArcAngle(angle float64) error {
	if angle <= 0 || angle >= 2*math.Pi {
		return invalidArgument("angle", "%g must be within (0, 2π)", angle)
	}
	return nil
}

// NewArcFromChord creates an arc given its chord endpoints and the
// opening angle (radians), as used by board layout formats.
func NewArcFromChord(start, end coord.Vec, angle float64, ccw bool) (*Path, error) {
	if err := checkArcAngle(angle); err != nil {
		return nil, err
	}

	// S: start, E: end, M: chord midpoint, C: center
	vSE := end.Sub(start)
	lSE := vSE.Len()
	theta := math.Abs(math.Pi/2 - angle/2)
	radius := lSE / (2 * math.Cos(theta))
	lMC := radius * math.Sin(theta)

	var vMC coord.Vec
	if (angle <= math.Pi && ccw) || (angle >= math.Pi && !ccw) {
		// center left of SE
		vMC = vSE.Perp().Mul(lMC / lSE)
	} else {
		vMC = vSE.Perp().Mul(-lMC / lSE)
	}
	center := start.Add(vSE.Mul(0.5)).Add(vMC)

	log.Debug("arc from chord", "start", start, "end", end, "deg", coord.RadToDeg(angle), "center", center, "ccw", ccw)

	return NewArc(start, end, center, angle, ccw), nil
}

// NewArcFromCenter creates an arc by rotating start around center by
// angle (radians) in the given direction.
func NewArcFromCenter(center, start coord.Vec, angle float64, ccw bool) (*Path, error) {
	if err := checkArcAngle(angle); err != nil {
		return nil, err
	}
	return arcAround(center, start, angle, ccw), nil
}

func arcAround(center, start coord.Vec, angle float64, ccw bool) *Path {
	rot := angle
	if !ccw {
		rot = -rot
	}
	end := center.Add(start.Sub(center).Rotate(rot))
	return NewArc(start, end, center, angle, ccw)
}

// Radius of an arc, zero for straight paths.
func (p *Path) Radius() float64 {
	if p.Kind != Arc {
		return 0
	}
	return p.Start.Dist(p.Center)
}

// Length returns the path length in mm.
func (p *Path) Length() float64 {
	if p.Kind == Arc {
		return p.Angle * p.Radius()
	}
	return p.Start.Dist(p.End)
}

// Clone returns an independent copy of p.
func (p *Path) Clone() *Path {
	c := *p
	return &c
}

// Reverse interchanges start and end, keeping the traced shape.
func (p *Path) Reverse() {
	p.Start, p.End = p.End, p.Start
	if p.Kind == Arc {
		p.CCW = !p.CCW
	}
}

func (p *Path) Translate(offset coord.Vec) {
	p.Start = p.Start.Add(offset)
	p.End = p.End.Add(offset)
	if p.Kind == Arc {
		p.Center = p.Center.Add(offset)
	}
}

func (p *Path) Transform(m coord.Matrix) {
	p.Start = m.Apply(p.Start)
	p.End = m.Apply(p.End)
	if p.Kind == Arc {
		p.Center = m.Apply(p.Center)
	}
}

// Mirror reflects the path about the y-axis. Arcs change their
// winding direction so that the mirrored shape is traced.
func (p *Path) Mirror() {
	p.Start.X = -p.Start.X
	p.End.X = -p.End.X
	if p.Kind == Arc {
		p.Center.X = -p.Center.X
		p.CCW = !p.CCW
	}
}

// Split walks start mm along the path, removes the following distance mm
// and returns what remains after the gap, or nil if nothing remains.
// p is shrunk in place to the part before the cut.
//
// With start == 0 the path is shortened from its beginning by distance
// and nil is returned.
func (p *Path) Split(start, distance float64) (*Path, error) {
	length := p.Length()
	if start > length+lengthEps || (start == 0 && distance > length+lengthEps) {
		return nil, invalidArgument("start", "path of length %g too short to split at %g (gap %g)", length, start, distance)
	}
	if start < 0 || distance < 0 {
		return nil, invalidArgument("distance", "negative split %g/%g", start, distance)
	}
	start = math.Min(start, length)
	if start == 0 {
		distance = math.Min(distance, length)
	}

	if p.Kind == Arc {
		return p.splitArc(start, distance, length), nil
	}

	end := p.End
	dir := p.End.Sub(p.Start).Div(length)
	cutStart := p.Start.Add(dir.Mul(start))
	cutEnd := p.Start.Add(dir.Mul(start + distance))

	if start == 0 {
		p.Start = cutEnd
		return nil, nil
	}
	p.End = cutStart
	if start+distance >= length-lengthEps {
		return nil, nil
	}
	return NewStraight(cutEnd, end), nil
}

func (p *Path) splitArc(start, distance, length float64) *Path {
	radius := p.Radius()
	end := p.End

	if start == 0 {
		// walk backwards from the end to find the new start
		rest := arcAround(p.Center, p.End, p.Angle-distance/radius, !p.CCW)
		p.Start = rest.End
		p.Angle = rest.Angle
		return nil
	}

	lead := arcAround(p.Center, p.Start, start/radius, p.CCW)
	p.End = lead.End
	p.Angle = lead.Angle
	if start+distance >= length-lengthEps {
		return nil
	}

	tail := arcAround(p.Center, end, (length-start-distance)/radius, !p.CCW)
	tail.Reverse()
	return tail
}

// plan emits the cutting move for this path; the tool is already at Start.
func (p *Path) plan(pl Planner) {
	if p.Kind == Arc {
		pl.PlanMillArc(p.Start, p.End, p.Center, p.CCW)
		return
	}
	pl.PlanMill(p.End)
}
