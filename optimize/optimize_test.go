package optimize

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/mastercactapus/pcbmill/coord"
	"github.com/mastercactapus/pcbmill/machining"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(t *testing.T, x1, y1, x2, y2 float64) *machining.Milling {
	m, err := machining.NewMilling(machining.NewStraight(coord.Vec{X: x1, Y: y1}, coord.Vec{X: x2, Y: y2}))
	require.NoError(t, err)
	return m
}

func rect(t *testing.T, x, y, w, h float64) *machining.Milling {
	m, err := machining.NewMilling(
		machining.NewStraight(coord.Vec{X: x, Y: y}, coord.Vec{X: x + w, Y: y}),
		machining.NewStraight(coord.Vec{X: x + w, Y: y}, coord.Vec{X: x + w, Y: y + h}),
		machining.NewStraight(coord.Vec{X: x + w, Y: y + h}, coord.Vec{X: x, Y: y + h}),
		machining.NewStraight(coord.Vec{X: x, Y: y + h}, coord.Vec{X: x, Y: y}),
	)
	require.NoError(t, err)
	return m
}

func holes(centers ...coord.Vec) *machining.HoleList {
	l := machining.NewHoleList()
	for _, c := range centers {
		l.Append(&machining.Hole{Diameter: 1, Center: c})
	}
	return l
}

func TestHoleOrder(t *testing.T) {
	for _, alg := range []Algorithm{Greedy, TwoOpt} {
		t.Run(string(alg), func(t *testing.T) {
			l := holes(coord.Vec{}, coord.Vec{X: 10, Y: 10}, coord.Vec{X: 10})
			o := NewHoleOrder()
			o.Algorithm = alg
			o.Rand = rand.New(rand.NewSource(1))

			require.NoError(t, o.OptimizeHoles(l))
			assert.Equal(t, []coord.Vec{{}, {X: 10}, {X: 10, Y: 10}}, l.Centers())
		})
	}
}

func TestHoleOrder_Skip(t *testing.T) {
	l := holes(coord.Vec{}, coord.Vec{X: 10, Y: 10}, coord.Vec{X: 10})
	o := NewHoleOrder()
	o.Active = false
	require.NoError(t, o.OptimizeHoles(l))
	assert.Equal(t, coord.Vec{X: 10, Y: 10}, l.At(1).Center)

	o = NewHoleOrder()
	o.Algorithm = "simulated-annealing"
	assert.ErrorIs(t, o.OptimizeHoles(l), machining.ErrInvalidArgument)

	// a single hole is never touched, whatever the settings
	assert.NoError(t, o.OptimizeHoles(holes(coord.Vec{X: 3})))
}

func TestMillingCombination(t *testing.T) {
	l := machining.NewMillingList()
	l.Append(line(t, 0, 0, 1, 0))
	l.Append(line(t, 2, 0, 1, 0))
	l.Append(line(t, 10, 10, 11, 10))
	l.Append(line(t, 2, 0, 3, 0))

	require.NoError(t, NewMillingCombination().OptimizeMillings(l))
	require.Equal(t, 2, l.Len())

	first := l.At(0)
	assert.Equal(t, 3, first.Len())
	assert.Equal(t, 3.0, first.Length())
	end, _ := first.End()
	assert.Equal(t, coord.Vec{X: 3}, end)

	start, _ := l.At(1).Start()
	assert.Equal(t, coord.Vec{X: 10, Y: 10}, start)
}

func TestMillingCombination_Closed(t *testing.T) {
	l := machining.NewMillingList()
	l.Append(line(t, 0, 0, 5, 0))
	l.Append(line(t, 0, 5, 0, 0))
	l.Append(line(t, 5, 0, 5, 5))
	l.Append(line(t, 5, 5, 0, 5))

	require.NoError(t, NewMillingCombination().OptimizeMillings(l))
	require.Equal(t, 1, l.Len())
	assert.True(t, l.At(0).Closed())
	assert.Equal(t, 20.0, l.At(0).Length())

	empty := machining.NewMillingList()
	assert.NoError(t, NewMillingCombination().OptimizeMillings(empty))
}

func TestBreakout_Plan(t *testing.T) {
	o := NewBreakout()
	tests := []struct {
		length  float64
		bars    int
		spacing float64
	}{
		{length: 300, bars: 2, spacing: 148},
		{length: 204, bars: 2, spacing: 100},
		{length: 203, bars: 2, spacing: 99.5},
		{length: 305, bars: 2, spacing: 150.5},
		{length: 306, bars: 3, spacing: 100},
		{length: 1000, bars: 9, spacing: 100},
		{length: 40, bars: 2, spacing: 18},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprint(tc.length), func(t *testing.T) {
			bars, spacing, err := o.Plan(tc.length)
			require.NoError(t, err)
			assert.Equal(t, tc.bars, bars)
			assert.InDelta(t, tc.spacing, spacing, 1e-9)
		})
	}

	o.Distance, o.Size = 0, 0
	_, _, err := o.Plan(100)
	assert.ErrorIs(t, err, machining.ErrInvalidArgument)

	o = NewBreakout()
	o.MinNumber = 0
	bars, _, err := o.Plan(50)
	require.NoError(t, err)
	assert.Zero(t, bars)
}

func TestBreakout(t *testing.T) {
	l := machining.NewMillingList()
	l.Append(rect(t, 0, 0, 75, 75))

	require.NoError(t, NewBreakout().OptimizeMillings(l))
	require.Equal(t, 2, l.Len())

	a, b := l.At(0), l.At(1)
	assert.InDelta(t, 148, a.Length(), 1e-9)
	assert.InDelta(t, 148, b.Length(), 1e-9)

	aStart, _ := a.Start()
	aEnd, _ := a.End()
	bStart, _ := b.Start()
	bEnd, _ := b.End()
	assert.Equal(t, coord.Vec{}, aStart)
	assert.Equal(t, coord.Vec{X: 75, Y: 73}, aEnd)
	assert.Equal(t, coord.Vec{X: 75, Y: 75}, bStart)
	assert.Equal(t, coord.Vec{Y: 2}, bEnd)

	// two gaps of 2mm each
	assert.InDelta(t, 2, aEnd.Dist(bStart), 1e-9)
	assert.InDelta(t, 2, bEnd.Dist(aStart), 1e-9)
}

func TestBreakout_Selection(t *testing.T) {
	l := machining.NewMillingList()
	l.Append(line(t, 0, 0, 100, 0)) // open
	l.Append(rect(t, 0, 0, 5, 5))   // closed but too short
	l.Append(rect(t, 0, 0, 60, 60)) // 240
	l.Append(rect(t, 0, 0, 10, 10)) // 40, exactly the minimum

	require.NoError(t, NewBreakout().OptimizeMillings(l))

	// untouched millings keep their order, cut-outs follow from the back
	require.Equal(t, 6, l.Len())
	assert.Equal(t, 100.0, l.At(0).Length())
	assert.Equal(t, 20.0, l.At(1).Length())
	assert.InDelta(t, 18, l.At(2).Length(), 1e-9)
	assert.InDelta(t, 18, l.At(3).Length(), 1e-9)
	assert.InDelta(t, 118, l.At(4).Length(), 1e-9)
	assert.InDelta(t, 118, l.At(5).Length(), 1e-9)
}

func TestBreakout_Inactive(t *testing.T) {
	l := machining.NewMillingList()
	l.Append(rect(t, 0, 0, 75, 75))
	o := NewBreakout()
	o.Active = false
	require.NoError(t, o.OptimizeMillings(l))
	assert.Equal(t, 1, l.Len())
}

func TestMillingOrder(t *testing.T) {
	l := machining.NewMillingList()
	l.Append(line(t, 0, 0, 10, 0))
	l.Append(line(t, 50, 0, 60, 0))
	l.Append(line(t, 11, 0, 20, 0))

	require.NoError(t, NewMillingOrder().OptimizeMillings(l))
	var starts []float64
	for _, m := range l.Millings {
		s, _ := m.Start()
		starts = append(starts, s.X)
	}
	assert.Equal(t, []float64{0, 11, 50}, starts)
}
