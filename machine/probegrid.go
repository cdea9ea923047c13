package machine

import (
	"context"
	"fmt"
	"math"

	"github.com/mastercactapus/pcbmill/coord"
	"github.com/mastercactapus/pcbmill/machining"
)

// probeClearance is added to the highest point of the quick scan to get
// the travel height of the grid scan.
const probeClearance = 0.2

// ProbeGridOptions configure a grid of Z probes. The grid spans
// DistanceX by DistanceY from the current position.
type ProbeGridOptions struct {
	ProbeOptions

	DistanceX, DistanceY float64
	Granularity          float64
}

func (opt ProbeGridOptions) validate() error {
	err := opt.ProbeOptions.validate()
	if err != nil {
		return err
	}
	if opt.DistanceX <= 0 || opt.DistanceY <= 0 {
		return &machining.InvalidArgumentError{Argument: "distance", Description: fmt.Sprintf("%gx%g is empty", opt.DistanceX, opt.DistanceY)}
	}
	if opt.Granularity <= 0 {
		return &machining.InvalidArgumentError{Argument: "granularity", Description: "must be positive"}
	}
	return nil
}

// quickPoints are the offsets of the preliminary scan: the corners and the center.
func (opt ProbeGridOptions) quickPoints() []coord.Vec {
	return []coord.Vec{
		{},
		{X: 0, Y: opt.DistanceY},
		{X: opt.DistanceX / 2, Y: opt.DistanceY / 2},
		{X: opt.DistanceX, Y: 0},
		{X: opt.DistanceX, Y: opt.DistanceY},
	}
}

// gridPoints returns the offsets of the grid scan in serpentine order, so
// that no two neighbouring points are farther than Granularity apart.
func (opt ProbeGridOptions) gridPoints() []coord.Vec {
	xyDist := math.Sqrt(opt.Granularity * opt.Granularity / 2)

	xCount := int(math.Ceil(opt.DistanceX / xyDist))
	yCount := int(math.Ceil(opt.DistanceY / xyDist))

	points := make([]coord.Vec, 0, (xCount+1)*(yCount+1))
	for y := 0; y <= yCount; y++ {
		for x := 0; x <= xCount; x++ {
			xVal := opt.DistanceX / float64(xCount) * float64(x)
			if y%2 != 0 {
				xVal = opt.DistanceX - xVal
			}
			points = append(points, coord.Vec{X: xVal, Y: opt.DistanceY / float64(yCount) * float64(y)})
		}
	}
	return points
}

// ProbeGrid probes a grid starting at the current position and returns
// the probed points in machine coordinates.
//
// A quick scan of the corners and the center from the current height
// finds the highest point; the grid is then scanned from just above it.
// The machine returns to the starting position afterwards.
func ProbeGrid(ctx context.Context, m Machine, opt ProbeGridOptions) ([]coord.Point, error) {
	p, ok := m.(Prober)
	if !ok {
		return nil, ErrNotImplemented
	}
	err := opt.validate()
	if err != nil {
		return nil, err
	}

	start, err := m.Position(true)
	if err != nil {
		return nil, err
	}

	probe := func(popt ProbeOptions, off coord.Vec) (coord.Point, error) {
		err := m.GoTo(ctx, coord.Point{X: start.X + off.X, Y: start.Y + off.Y}, MoveOptions{Absolute: true, KeepZ: true})
		if err != nil {
			return coord.Point{}, err
		}
		res, err := p.ProbeZ(ctx, popt)
		if err != nil {
			return coord.Point{}, fmt.Errorf("probe at %g,%g: %w", off.X, off.Y, err)
		}
		if !res.Valid {
			return coord.Point{}, fmt.Errorf("probe at %g,%g: %w", off.X, off.Y, ErrProbeMissed)
		}
		return res.Point, nil
	}

	quick := opt.ProbeOptions
	quick.RetractZ = start.Z
	maxZ := math.Inf(-1)
	for _, off := range opt.quickPoints() {
		pt, err := probe(quick, off)
		if err != nil {
			return nil, err
		}
		maxZ = math.Max(maxZ, pt.Z)
	}

	travel := maxZ + probeClearance
	grid := opt.ProbeOptions
	grid.RetractZ = travel
	grid.MaxTravel -= start.Z - travel
	err = m.GoTo(ctx, coord.Point{X: start.X, Y: start.Y, Z: travel}, MoveOptions{Absolute: true})
	if err != nil {
		return nil, err
	}

	var points []coord.Point
	for _, off := range opt.gridPoints() {
		pt, err := probe(grid, off)
		if err != nil {
			return nil, err
		}
		points = append(points, pt)
	}

	err = m.GoTo(ctx, start, MoveOptions{Absolute: true})
	if err != nil {
		return nil, err
	}
	return points, nil
}
