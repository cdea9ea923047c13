package main

import (
	"path/filepath"
	"testing"

	"github.com/mastercactapus/pcbmill/coord"
	"github.com/mastercactapus/pcbmill/meshlevel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteProbes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probes.json")
	require.NoError(t, writeProbes(path, []coord.Point{
		{X: 0, Y: 0, Z: -0.2},
		{X: 10, Y: 0, Z: 0},
		{X: 0, Y: 10, Z: 0},
		{X: 10, Y: 10, Z: 0.2},
	}))

	mesh, err := meshlevel.LoadMesh(path, 0)
	require.NoError(t, err)
	ok, z := mesh.OffsetZ(coord.Vec{X: 0, Y: 0})
	assert.True(t, ok)
	assert.InDelta(t, -0.2, z, 1e-9)

	assert.Error(t, writeProbes(filepath.Join(t.TempDir(), "missing", "probes.json"), nil))
}

func TestProbe_NoOutput(t *testing.T) {
	_, err := execute(t, "probe", "--width", "10", "--height", "10")
	assert.ErrorContains(t, err, "no output file")
}
