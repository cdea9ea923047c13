package tinyg

import (
	"testing"

	"github.com/mastercactapus/pcbmill/coord"
	"github.com/mastercactapus/pcbmill/machine"
	"github.com/mastercactapus/pcbmill/machining"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanner(t *testing.T) {
	p := NewPlanner(machine.DefaultParams())
	require.NoError(t, p.PreparePlanner())

	p.PlanJog(coord.Vec{X: 10, Y: 20})
	p.PlanInfeed()
	p.PlanMill(coord.Vec{X: 12.5, Y: 20})
	p.PlanMillArc(coord.Vec{X: 12.5, Y: 20}, coord.Vec{X: 12.5, Y: 22}, coord.Vec{X: 12.5, Y: 21}, false)
	p.PlanMillArc(coord.Vec{X: 1, Y: 1}, coord.Vec{X: 1, Y: 1}, coord.Vec{X: 2, Y: 1}, true)
	p.PlanOutfeed()
	require.NoError(t, p.FinalizePlanner())

	assert.Equal(t, []string{
		"G21", "G90", "G55", "G17", "M3", "G1F1000Z0",
		"G1F1000X10Y20",
		"G91", "G1F400Z-3", "G90",
		"G1F60X12.5Y20",
		"G2X12.5Y22I0J1F60",
		"G3I1J0F60",
		"G91", "G1F1000Z3", "G90",
		"M2",
	}, p.Commands())

	require.NoError(t, p.PreparePlanner())
	assert.Equal(t, 6, p.Len())
	p.Clear()
	assert.Equal(t, 0, p.Len())
}

func TestPlanner_Hole(t *testing.T) {
	params := machine.DefaultParams()
	params.ToolDiameter = 1
	p := NewPlanner(params)

	h := &machining.Hole{Diameter: 3, Center: coord.Vec{X: 5, Y: 5}}
	h.Plan(p)

	assert.Equal(t, []string{
		"G1F1000X4Y5",
		"G91", "G1F400Z-3", "G90",
		"G3I1J0F60",
		"G91", "G1F1000Z3", "G90",
	}, p.Commands())
}
