package machine

import (
	"context"
	"errors"

	"github.com/mastercactapus/pcbmill/coord"
	"github.com/mastercactapus/pcbmill/machining"
)

// ErrProbeMissed is returned when a probe did not trigger within its travel.
var ErrProbeMissed = errors.New("probe did not trigger")

// ProbeResult is a probed point in machine coordinates.
type ProbeResult struct {
	coord.Point
	Valid bool
}

// ProbeOptions configure a straight Z probe.
type ProbeOptions struct {
	FeedRate float64

	// MaxTravel is the distance to move down before giving up.
	MaxTravel float64

	// RetractZ is the machine Z to return to after probing.
	RetractZ float64
}

func (opt ProbeOptions) validate() error {
	if opt.FeedRate <= 0 {
		return &machining.InvalidArgumentError{Argument: "feed rate", Description: "must be positive"}
	}
	if opt.MaxTravel <= 0 {
		return &machining.InvalidArgumentError{Argument: "max travel", Description: "must be positive"}
	}
	return nil
}

// Prober is implemented by machines with a probe input.
type Prober interface {
	// ProbeZ moves down from the current position until the probe
	// triggers or MaxTravel is reached, then rapids to RetractZ.
	ProbeZ(ctx context.Context, opt ProbeOptions) (ProbeResult, error)
}

// ProbeZ probes with m, if it has a probe input.
func ProbeZ(ctx context.Context, m Machine, opt ProbeOptions) (ProbeResult, error) {
	p, ok := m.(Prober)
	if !ok {
		return ProbeResult{}, ErrNotImplemented
	}
	err := opt.validate()
	if err != nil {
		return ProbeResult{}, err
	}
	return p.ProbeZ(ctx, opt)
}
