package machining

import (
	"github.com/mastercactapus/pcbmill/coord"
)

// HoleOptimizer reorders or adjusts a HoleList in place.
type HoleOptimizer interface {
	OptimizeHoles(*HoleList) error
}

// MillingOptimizer reorders or adjusts a MillingList in place.
type MillingOptimizer interface {
	OptimizeMillings(*MillingList) error
}

// HoleList is an ordered set of holes; the order is the drill order.
type HoleList struct {
	Holes []*Hole

	// Active lists take part in motion planning.
	Active     bool
	Optimizers []HoleOptimizer
}

// NewHoleList returns an empty, active list.
func NewHoleList(opts ...HoleOptimizer) *HoleList {
	return &HoleList{Active: true, Optimizers: opts}
}

func (l *HoleList) Len() int { return len(l.Holes) }
func (l *HoleList) Append(h *Hole) { l.Holes = append(l.Holes, h) }
func (l *HoleList) At(i int) *Hole { return l.Holes[i] }

// Centers returns the hole centers in list order.
func (l *HoleList) Centers() []coord.Vec {
	res := make([]coord.Vec, len(l.Holes))
	for i, h := range l.Holes {
		res[i] = h.Center
	}
	return res
}

// Reorder rearranges the list so that entry i becomes the old entry order[i].
func (l *HoleList) Reorder(order []int) error {
	if err := checkPermutation(order, len(l.Holes)); err != nil {
		return err
	}
	res := make([]*Hole, len(order))
	for i, idx := range order {
		res[i] = l.Holes[idx]
	}
	l.Holes = res
	return nil
}

// Optimize runs all attached optimizers in order.
func (l *HoleList) Optimize() error {
	for _, o := range l.Optimizers {
		if err := o.OptimizeHoles(l); err != nil {
			return err
		}
	}
	return nil
}

// Plan plans every hole, unless the list is inactive.
func (l *HoleList) Plan(pl Planner) {
	if !l.Active {
		return
	}
	for _, h := range l.Holes {
		h.Plan(pl)
	}
}

func (l *HoleList) Translate(offset coord.Vec) {
	for _, h := range l.Holes {
		h.Translate(offset)
	}
}

func (l *HoleList) Transform(mat coord.Matrix) {
	for _, h := range l.Holes {
		h.Transform(mat)
	}
}

func (l *HoleList) Mirror() {
	for _, h := range l.Holes {
		h.Mirror()
	}
}

// MillingList is an ordered set of millings; the order is the cut order.
type MillingList struct {
	Millings []*Milling

	Active     bool
	Optimizers []MillingOptimizer
}

// NewMillingList returns an empty, active list.
func NewMillingList(opts ...MillingOptimizer) *MillingList {
	return &MillingList{Active: true, Optimizers: opts}
}

func (l *MillingList) Len() int { return len(l.Millings) }
func (l *MillingList) Append(m *Milling) { l.Millings = append(l.Millings, m) }
func (l *MillingList) AppendList(ms []*Milling) { l.Millings = append(l.Millings, ms...) }
func (l *MillingList) At(i int) *Milling { return l.Millings[i] }

// Pop removes and returns the milling at index i.
func (l *MillingList) Pop(i int) *Milling {
	m := l.Millings[i]
	l.Millings = append(l.Millings[:i:i], l.Millings[i+1:]...)
	return m
}

// Endpoints returns the start and end points of all millings in list
// order. Empty millings are reported at the origin.
func (l *MillingList) Endpoints() (starts, ends []coord.Vec) {
	starts = make([]coord.Vec, len(l.Millings))
	ends = make([]coord.Vec, len(l.Millings))
	for i, m := range l.Millings {
		starts[i], _ = m.Start()
		ends[i], _ = m.End()
	}
	return starts, ends
}

// Length is the total cut length of all millings.
func (l *MillingList) Length() float64 {
	var sum float64
	for _, m := range l.Millings {
		sum += m.Length()
	}
	return sum
}

func (l *MillingList) Reorder(order []int) error {
	if err := checkPermutation(order, len(l.Millings)); err != nil {
		return err
	}
	res := make([]*Milling, len(order))
	for i, idx := range order {
		res[i] = l.Millings[idx]
	}
	l.Millings = res
	return nil
}

func (l *MillingList) Optimize() error {
	for _, o := range l.Optimizers {
		if err := o.OptimizeMillings(l); err != nil {
			return err
		}
	}
	return nil
}

func (l *MillingList) Plan(pl Planner) {
	if !l.Active {
		return
	}
	for _, m := range l.Millings {
		m.Plan(pl)
	}
}

func (l *MillingList) Translate(offset coord.Vec) {
	for _, m := range l.Millings {
		m.Translate(offset)
	}
}

func (l *MillingList) Transform(mat coord.Matrix) {
	for _, m := range l.Millings {
		m.Transform(mat)
	}
}

func (l *MillingList) Mirror() {
	for _, m := range l.Millings {
		m.Mirror()
	}
}

func checkPermutation(order []int, n int) error {
	if len(order) != n {
		return invalidArgument("order", "got %d indices for %d entries", len(order), n)
	}
	seen := make([]bool, n)
	for _, idx := range order {
		if idx < 0 || idx >= n || seen[idx] {
			return invalidArgument("order", "not a permutation: %v", order)
		}
		seen[idx] = true
	}
	return nil
}
