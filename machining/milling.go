package machining

import (
	"github.com/mastercactapus/pcbmill/coord"
)

// Milling is a continuous cut made of adjacent paths: the end of each
// path is exactly the start of the next. The start of the first path is
// the infeed point, the end of the last path the outfeed point.
type Milling struct {
	Paths []*Path
}

// NewMilling creates a milling from adjacent paths.
func NewMilling(paths ...*Path) (*Milling, error) {
	m := &Milling{}
	for _, p := range paths {
		if err := m.Append(p); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Milling) Len() int { return len(m.Paths) }

// Start returns the infeed point, ok is false for an empty milling.
func (m *Milling) Start() (pos coord.Vec, ok bool) {
	if len(m.Paths) == 0 {
		return pos, false
	}
	return m.Paths[0].Start, true
}

// End returns the outfeed point, ok is false for an empty milling.
func (m *Milling) End() (pos coord.Vec, ok bool) {
	if len(m.Paths) == 0 {
		return pos, false
	}
	return m.Paths[len(m.Paths)-1].End, true
}

// Closed reports whether the milling ends where it starts.
func (m *Milling) Closed() bool {
	s, ok := m.Start()
	if !ok {
		return false
	}
	e, _ := m.End()
	return s.Equal(e)
}

// Length is the total cut length in mm.
func (m *Milling) Length() float64 {
	var l float64
	for _, p := range m.Paths {
		l += p.Length()
	}
	return l
}

// Append adds p to the end of the milling. p must start where the
// milling currently ends.
func (m *Milling) Append(p *Path) error {
	if end, ok := m.End(); ok && !end.Equal(p.Start) {
		return invalidArgument("path", "start %v is not adjacent to milling end %v", p.Start, end)
	}
	m.Paths = append(m.Paths, p)
	return nil
}

// AppendMilling appends copies of all paths of o.
func (m *Milling) AppendMilling(o *Milling) error {
	end, ok := m.End()
	start, oOK := o.Start()
	if ok && oOK && !end.Equal(start) {
		return invalidArgument("milling", "start %v is not adjacent to milling end %v", start, end)
	}
	for _, p := range o.Paths {
		m.Paths = append(m.Paths, p.Clone())
	}
	return nil
}

// Clone returns a deep copy of m.
func (m *Milling) Clone() *Milling {
	c := &Milling{Paths: make([]*Path, len(m.Paths))}
	for i, p := range m.Paths {
		c.Paths[i] = p.Clone()
	}
	return c
}

// Reverse reverses the path order and every path.
func (m *Milling) Reverse() {
	for i, j := 0, len(m.Paths)-1; i < j; i, j = i+1, j-1 {
		m.Paths[i], m.Paths[j] = m.Paths[j], m.Paths[i]
	}
	for _, p := range m.Paths {
		p.Reverse()
	}
}

func (m *Milling) Translate(offset coord.Vec) {
	for _, p := range m.Paths {
		p.Translate(offset)
	}
}

func (m *Milling) Transform(mat coord.Matrix) {
	for _, p := range m.Paths {
		p.Transform(mat)
	}
}

func (m *Milling) Mirror() {
	for _, p := range m.Paths {
		p.Mirror()
	}
}

// Split walks start mm along the milling, removes the following
// distance mm (a breakout gap) and returns the paths after the gap as
// a new milling, or nil if nothing remains. m keeps the paths before
// the cut.
func (m *Milling) Split(start, distance float64) (*Milling, error) {
	length := m.Length()
	if start > length+lengthEps {
		return nil, invalidArgument("start", "milling of length %g too short to split at %g", length, start)
	}
	if start < 0 || distance < 0 {
		return nil, invalidArgument("distance", "negative split %g/%g", start, distance)
	}

	var (
		keep  []*Path
		tail  []*Path
		gap   = distance
		inGap = start == 0
		next  = len(m.Paths)
	)

	for i, p := range m.Paths {
		l := p.Length()
		if !inGap {
			keep = append(keep, p)
			if l <= start {
				start -= l
				inGap = start == 0
				continue
			}

			rest, err := p.Split(start, gap)
			if err != nil {
				return nil, err
			}
			if rest != nil {
				tail = append(tail, rest)
				next = i + 1
				break
			}

			// gap continues into the following paths
			gap -= l - start
			inGap = true
			if gap <= lengthEps {
				next = i + 1
				break
			}
			continue
		}

		if l <= gap+lengthEps {
			gap -= l
			continue
		}
		if _, err := p.Split(0, gap); err != nil {
			return nil, err
		}
		next = i
		break
	}

	if next < len(m.Paths) {
		tail = append(tail, m.Paths[next:]...)
	}
	m.Paths = keep
	if len(tail) == 0 {
		return nil, nil
	}
	return &Milling{Paths: tail}, nil
}

// Plan jogs to the start of the milling and cuts along all paths.
func (m *Milling) Plan(pl Planner) {
	start, ok := m.Start()
	if !ok {
		return
	}
	pl.PlanJog(start)
	pl.PlanInfeed()
	for _, p := range m.Paths {
		p.plan(pl)
	}
	pl.PlanOutfeed()
}
