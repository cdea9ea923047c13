package machining

import (
	"github.com/charmbracelet/log"
	"github.com/mastercactapus/pcbmill/coord"
)

// Hole is a drill hole.
type Hole struct {
	Diameter float64
	Center   coord.Vec
}

// Plan drills the hole directly if the tool is at least as wide as the
// hole, otherwise mills a circle inside it.
func (h *Hole) Plan(pl Planner) {
	tool := pl.ToolDiameter()
	if tool >= h.Diameter {
		log.Debug("drill hole", "center", h.Center, "diameter", h.Diameter)
		pl.PlanJog(h.Center)
		pl.PlanInfeed()
		pl.PlanOutfeed()
		return
	}

	log.Debug("mill hole", "center", h.Center, "diameter", h.Diameter)
	start := h.Center.Sub(coord.Vec{X: (h.Diameter - tool) / 2})
	pl.PlanJog(start)
	pl.PlanInfeed()
	pl.PlanMillArc(start, start, h.Center, true)
	pl.PlanOutfeed()
}

func (h *Hole) Translate(offset coord.Vec) { h.Center = h.Center.Add(offset) }
func (h *Hole) Transform(mat coord.Matrix) { h.Center = mat.Apply(h.Center) }
func (h *Hole) Mirror() { h.Center.X = -h.Center.X }
