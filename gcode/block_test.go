package gcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlock_String(t *testing.T) {
	b := Block{{W: 'G', Arg: 1}, {W: 'F', Arg: 1000}, {W: 'X', Arg: 10.5}, {W: 'Y', Arg: -0.00001}}
	assert.Equal(t, "G1F1000X10.5Y0", b.String())

	b = Block{{W: 'G', Arg: 28.2}, {W: 'X', Arg: 1.23456}}
	assert.Equal(t, "G28.2X1.2346", b.String())
}

func TestBlock_WithArg(t *testing.T) {
	b := Block{{W: 'G', Arg: 1}, {W: 'X', Arg: 1}}
	b = b.WithArg('X', 2)
	b = b.WithArg('Z', -1)
	assert.Equal(t, "G1X2Z-1", b.String())
	assert.True(t, b.Has(Word{W: 'G', Arg: 1}))
	assert.False(t, b.Has(Word{W: 'G', Arg: 0}))
}

func TestBlock_Validate(t *testing.T) {
	assert.NoError(t, Block{{W: 'G', Arg: 91}, {W: 'G', Arg: 1}, {W: 'Z', Arg: -3}}.Validate())
	assert.Error(t, Block{{W: 'G', Arg: 90}, {W: 'G', Arg: 91}}.Validate())
	assert.Error(t, Block{{W: 'X', Arg: 1}, {W: 'X', Arg: 2}}.Validate())
}

func TestParse(t *testing.T) {
	blocks, err := Parse("g1f1000x10y20 ; comment\n\nG3 I-1 J0 F60\n")
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "G1F1000X10Y20", blocks[0].String())
	assert.Equal(t, "G3I-1J0F60", blocks[1].String())

	_, err = Parse("G1 X1 {\n")
	assert.Error(t, err)
}
