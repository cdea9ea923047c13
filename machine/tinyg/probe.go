package tinyg

import (
	"context"
	"fmt"

	"github.com/mastercactapus/pcbmill/coord"
	"github.com/mastercactapus/pcbmill/gcode"
	"github.com/mastercactapus/pcbmill/machine"
)

var _ machine.Prober = &TinyG{}

// ProbeZ sends a G38.2 probe down by MaxTravel followed by a rapid to
// RetractZ, and waits for the probe report.
func (t *TinyG) ProbeZ(ctx context.Context, opt machine.ProbeOptions) (machine.ProbeResult, error) {
	ch := make(chan *ProbeReport, 1)
	t.mx.Lock()
	err := machine.CheckState("probe", t.state, machine.StateInitialized, machine.StateCompleted)
	if err == nil && t.probeCh != nil {
		err = fmt.Errorf("probe already running: %w", machine.ErrInvalidState)
	}
	if err != nil {
		t.mx.Unlock()
		return machine.ProbeResult{}, err
	}
	t.probeCh = ch
	t.mx.Unlock()

	defer func() {
		t.mx.Lock()
		t.probeCh = nil
		t.mx.Unlock()
	}()

	t.log.Debug("probing", "feed", opt.FeedRate, "max_travel", opt.MaxTravel, "retract_z", opt.RetractZ)
	err = t.send(
		gcode.Block{gcode.G(91), gcode.G(38.2), gcode.Z(-opt.MaxTravel), gcode.F(opt.FeedRate)},
		gcode.Block{gcode.G(90)},
		gcode.Block{gcode.G(53), gcode.G(0), gcode.Z(opt.RetractZ)},
	)
	if err != nil {
		return machine.ProbeResult{}, err
	}

	select {
	case <-ctx.Done():
		return machine.ProbeResult{}, ctx.Err()
	case prb := <-ch:
		res := machine.ProbeResult{Point: coord.Point{X: prb.X, Y: prb.Y, Z: prb.Z}, Valid: prb.E == 1}
		t.log.Info("probe finished", "x", res.X, "y", res.Y, "z", res.Z, "valid", res.Valid)
		return res, nil
	}
}

func (t *TinyG) deliverProbe(prb *ProbeReport) {
	t.mx.Lock()
	ch := t.probeCh
	t.mx.Unlock()
	if ch == nil {
		t.log.Warn("unexpected probe report", "z", prb.Z)
		return
	}
	select {
	case ch <- prb:
	default:
	}
}
