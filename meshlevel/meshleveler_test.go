package meshlevel

import (
	"strings"
	"testing"

	"github.com/mastercactapus/pcbmill/coord"
	"github.com/mastercactapus/pcbmill/gcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// probes indicate a rise of 30mm over 100mm or .3mmZ for every 1mm X
var risingProbes = []coord.Point{
	{X: -700, Y: -450, Z: -80},
	{X: -700, Y: -550, Z: -80},

	{X: -600, Y: -450, Z: -50},
	{X: -600, Y: -550, Z: -50},
}

func TestMeshLeveler(t *testing.T) {
	mesh, err := NewMesh(risingProbes)
	require.NoError(t, err)
	blocks, err := gcode.Parse(`G91 G0 X3`)
	require.NoError(t, err)

	cfg := Config{
		ZOffsetter:  mesh,
		Start:       coord.Point{X: -650, Y: -500, Z: -60},
		Granularity: 1,

		Reader: &gcode.BlocksReader{Blocks: blocks},
	}

	m := New(cfg)

	for i := 0; i < 3; i++ {
		b, err := m.Read()
		assert.NoError(t, err)
		assert.Equal(t, "G91G0X1Z0.3", b.String())
	}

	_, err = m.Read()
	assert.Error(t, err)
}

func TestLevel_Absolute(t *testing.T) {
	mesh, err := NewMesh([]coord.Point{
		{X: 0, Y: 0, Z: 0},
		{X: 10, Y: 0, Z: 1},
		{X: 0, Y: 10, Z: 0},
		{X: 10, Y: 10, Z: 1},
	})
	require.NoError(t, err)

	cmds := []string{
		"G21G90G55G17M3G1F1000Z0",
		"G1F1000X0Y5",
		"G91", "G1F400Z-3", "G90",
		"G1F60X10Y5",
		"G3I-5J0F60",
		"G91", "G1F1000Z3", "G90",
		"M2",
	}
	res, err := Level(mesh, 5, coord.Point{X: 0, Y: 5, Z: 5}, cmds)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"G21G90G55G17M3G1F1000Z0",
		"G1F1000X0Y5",
		"G91", "G1F400Z-3", "G90",
		"G1F60X5Y5Z-2.5",
		"G1F60X10Y5Z-2",
		"G3I-5J0F60",
		"G91", "G1F1000Z3", "G90",
		"M2",
	}, res)
}

func TestLevel_PlungeInPlace(t *testing.T) {
	mesh, err := NewMesh([]coord.Point{
		{X: 0, Y: 0, Z: 0},
		{X: 10, Y: 0, Z: 1},
		{X: 0, Y: 10, Z: 0},
		{X: 10, Y: 10, Z: 1},
	})
	require.NoError(t, err)

	res, err := Level(mesh, 0, coord.Point{X: 5, Y: 5}, []string{"G90G1Z0", "M3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"G90G1Z0.5", "M3"}, res)
}

func TestLevel_OutsideMesh(t *testing.T) {
	mesh, err := NewMesh(risingProbes)
	require.NoError(t, err)

	res, err := Level(mesh, 0, coord.Point{}, []string{"G1X10Y10"})
	require.NoError(t, err)
	assert.Equal(t, []string{"G1X10Y10"}, res)
}

func TestNewMesh(t *testing.T) {
	_, err := NewMesh(risingProbes[:2])
	assert.Error(t, err)

	_, err = NewMesh(append(risingProbes, risingProbes[0]))
	assert.Error(t, err)

	mesh, err := NewMesh(risingProbes)
	require.NoError(t, err)
	ok, z := mesh.OffsetZ(coord.Vec{X: -650, Y: -500})
	assert.True(t, ok)
	assert.InDelta(t, -65, z, 1e-9)

	ok, _ = mesh.OffsetZ(coord.Vec{X: 0, Y: 0})
	assert.False(t, ok)
}

func TestReadProbes(t *testing.T) {
	points, err := ReadProbes(strings.NewReader(`[{"X":1,"Y":2,"Z":-0.5},{"X":3,"Y":4,"Z":0.25}]`))
	require.NoError(t, err)
	assert.Equal(t, []coord.Point{{X: 1, Y: 2, Z: -0.5}, {X: 3, Y: 4, Z: 0.25}}, points)

	shifted := OffsetFrom(-0.5, points)
	assert.Equal(t, 0.0, shifted[0].Z)
	assert.Equal(t, -0.5, points[0].Z)
}
