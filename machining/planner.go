package machining

import "github.com/mastercactapus/pcbmill/coord"

// Planner receives the motion primitives of a machining traversal.
// Implementations append to a command buffer; no I/O happens here.
type Planner interface {
	// ToolDiameter is the diameter (mm) of the mounted tool.
	ToolDiameter() float64

	PlanJog(pos coord.Vec)
	PlanMill(pos coord.Vec)

	// PlanMillArc mills from start to end around center. A full circle
	// has start == end.
	PlanMillArc(start, end, center coord.Vec, ccw bool)

	PlanInfeed()
	PlanOutfeed()
}
