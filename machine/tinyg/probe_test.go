package tinyg

import (
	"context"
	"testing"
	"time"

	"github.com/mastercactapus/pcbmill/coord"
	"github.com/mastercactapus/pcbmill/machine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTinyG_ProbeZ(t *testing.T) {
	tg, _, ctrl := newTestTinyG(t, Config{})
	n := len(waitLines(t, ctrl, 0, 11))
	ctrl.setProbeZ(-41.5)

	res, err := machine.ProbeZ(context.Background(), tg, machine.ProbeOptions{FeedRate: 40, MaxTravel: 50, RetractZ: 5})
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, coord.Point{X: 10, Y: 20, Z: -41.5}, res.Point)

	assert.Equal(t, []string{
		`{"gc":"G91G38.2Z-50F40"}`,
		`{"gc":"G90"}`,
		`{"gc":"G53G0Z5"}`,
	}, waitLines(t, ctrl, n, n+3)[:3])
}

func TestTinyG_ProbeZ_Timeout(t *testing.T) {
	tg, p, _ := newTestTinyG(t, Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := tg.ProbeZ(ctx, machine.ProbeOptions{FeedRate: 40, MaxTravel: 50})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// a late report is dropped
	p.reply(t, `{"prb":{"e":1,"x":0,"y":0,"z":-1}}`)

	require.NoError(t, tg.PreparePlanner())
	_, err = tg.ProbeZ(context.Background(), machine.ProbeOptions{FeedRate: 40, MaxTravel: 50})
	assert.ErrorIs(t, err, machine.ErrInvalidState)
}
