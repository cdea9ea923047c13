package machining

import (
	"errors"
	"testing"

	"github.com/mastercactapus/pcbmill/coord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reverseHoles struct{ err error }

func (o reverseHoles) OptimizeHoles(l *HoleList) error {
	if o.err != nil {
		return o.err
	}
	order := make([]int, l.Len())
	for i := range order {
		order[i] = l.Len() - 1 - i
	}
	return l.Reorder(order)
}

func TestHoleList_Reorder(t *testing.T) {
	l := NewHoleList()
	for i := 0; i < 3; i++ {
		l.Append(&Hole{Diameter: 1, Center: coord.Vec{X: float64(i)}})
	}

	require.NoError(t, l.Reorder([]int{2, 0, 1}))
	assert.Equal(t, []coord.Vec{{X: 2}, {X: 0}, {X: 1}}, l.Centers())

	assert.ErrorIs(t, l.Reorder([]int{0, 0, 1}), ErrInvalidArgument)
	assert.ErrorIs(t, l.Reorder([]int{0, 1}), ErrInvalidArgument)
	assert.ErrorIs(t, l.Reorder([]int{0, 1, 3}), ErrInvalidArgument)
}

func TestHoleList_Optimize(t *testing.T) {
	l := NewHoleList(reverseHoles{})
	l.Append(&Hole{Center: coord.Vec{X: 1}})
	l.Append(&Hole{Center: coord.Vec{X: 2}})

	require.NoError(t, l.Optimize())
	assert.Equal(t, []coord.Vec{{X: 2}, {X: 1}}, l.Centers())

	boom := errors.New("boom")
	l.Optimizers = append(l.Optimizers, reverseHoles{err: boom})
	assert.ErrorIs(t, l.Optimize(), boom)
}

func TestHoleList_PlanInactive(t *testing.T) {
	l := NewHoleList()
	l.Append(&Hole{Diameter: 1})
	l.Active = false

	r := &recorder{tool: 1}
	l.Plan(r)
	assert.Empty(t, r.calls)

	l.Active = true
	l.Plan(r)
	assert.Len(t, r.calls, 3)
}

func TestMillingList_Pop(t *testing.T) {
	l := NewMillingList()
	for i := 0; i < 3; i++ {
		m, err := NewMilling(NewStraight(coord.Vec{X: float64(i)}, coord.Vec{X: float64(i), Y: 1}))
		require.NoError(t, err)
		l.Append(m)
	}
	first := l.At(0)
	popped := l.Pop(0)
	assert.Same(t, first, popped)
	assert.Equal(t, 2, l.Len())

	popped = l.Pop(1)
	s, _ := popped.Start()
	assert.Equal(t, coord.Vec{X: 2}, s)
	assert.Equal(t, 1, l.Len())

	starts, ends := l.Endpoints()
	assert.Equal(t, []coord.Vec{{X: 1}}, starts)
	assert.Equal(t, []coord.Vec{{X: 1, Y: 1}}, ends)
}

func TestMillingList_Mirror(t *testing.T) {
	l := NewMillingList()
	l.Append(square(t))
	l.Mirror()
	assert.Equal(t, coord.Vec{X: -10}, l.At(0).Paths[0].End)
	l.Translate(coord.Vec{X: 10})
	assert.Equal(t, coord.Vec{}, l.At(0).Paths[0].End)
	assert.Equal(t, 40.0, l.Length())
}
