package gcode

import (
	"testing"

	"github.com/mastercactapus/pcbmill/coord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, data string) []Block {
	t.Helper()
	blocks, err := Parse(data)
	require.NoError(t, err)
	return blocks
}

func TestVM_Run(t *testing.T) {
	vm := NewVM(coord.Point{})
	for _, b := range mustParse(t, "G21G90G55G17M3G1F1000Z0\nG1F1000X10Y5\nG91\nG1F400Z-3\nG90\nG3X20Y5I5J0F60\nG2I1J0F60\nM2\n") {
		require.NoError(t, vm.Run(b), b.String())
	}
	assert.Equal(t, coord.Point{X: 20, Y: 5, Z: -3}, vm.Pos())
	assert.Equal(t, 60.0, vm.Feed())
	assert.True(t, vm.Arc())
	assert.False(t, vm.Relative())
}

func TestVM_Start(t *testing.T) {
	vm := NewVM(coord.Point{X: 1, Y: 2, Z: 3})
	require.NoError(t, vm.Run(mustParse(t, "G91G1X1\n")[0]))
	assert.Equal(t, coord.Point{X: 2, Y: 2, Z: 3}, vm.Pos())
	assert.True(t, vm.Relative())
}

func TestVM_Inches(t *testing.T) {
	vm := NewVM(coord.Point{})
	require.NoError(t, vm.Run(Block{G(20), G(0), X(1)}))
	assert.True(t, vm.Inches())
	assert.InDelta(t, 25.4, vm.Pos().X, 1e-9)
}

func TestVM_Unsupported(t *testing.T) {
	vm := NewVM(coord.Point{})
	assert.ErrorContains(t, vm.Run(Block{G(38.2), Z(-1)}), "G38.2")
	assert.Error(t, vm.Run(Block{G(2), X(1), Word{W: 'K', Arg: 1}}))
	assert.Error(t, vm.Run(Block{G(0), G(1)}))
}
