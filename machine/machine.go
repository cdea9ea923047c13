// Package machine defines the contract between a machining traversal and a
// CNC controller.
package machine

import (
	"context"

	"github.com/mastercactapus/pcbmill/coord"
	"github.com/mastercactapus/pcbmill/machining"
)

// Machine is a CNC controller able to plan and execute a machining cycle.
type Machine interface {
	machining.Planner

	// Initialize opens the communication and brings the controller
	// into a known state. A machine that is already initialized is
	// finalized first.
	Initialize(ctx context.Context) error
	// Finalize stops the machine and closes the communication. It is
	// safe to call on a partially initialized or finalized machine.
	Finalize() error

	State() State
	Params() Params

	// Position returns the current position in machine coordinates when
	// absolute is set, workpiece coordinates otherwise.
	Position(absolute bool) (coord.Point, error)

	PreparePlanner() error
	FinalizePlanner() error
	// ExecuteCycle sends the planned cycle and returns its ID.
	ExecuteCycle(ctx context.Context) (string, error)

	Feedhold() error
	Resume() error
	Stop() error

	Jog(ctx context.Context, dir Direction, step float64) error
	GoTo(ctx context.Context, pos coord.Point, opt MoveOptions) error
	HomingCycle(ctx context.Context) error
	Homed() bool
	SetSpindle(ctx context.Context, enable bool) error

	// SetWorkpieceOrigin places the workpiece origin at the current
	// position plus offset.
	SetWorkpieceOrigin(ctx context.Context, offset coord.Vec) error
	SetDefaultOrigin(ctx context.Context, pos coord.Point) error
}

// LaserCrosshair is implemented by machines with a laser crosshair.
type LaserCrosshair interface {
	SetLaserCrosshair(ctx context.Context, enable bool) error
}

// SetLaserCrosshair switches the crosshair of m, if it has one.
func SetLaserCrosshair(ctx context.Context, m Machine, enable bool) error {
	lc, ok := m.(LaserCrosshair)
	if !ok {
		return ErrNotImplemented
	}
	return lc.SetLaserCrosshair(ctx, enable)
}

// MoveOptions configure GoTo.
type MoveOptions struct {
	// Absolute selects machine coordinates instead of workpiece coordinates.
	Absolute bool

	// KeepZ moves X and Y only.
	KeepZ bool
}

// Direction selects the axes of a jog; each component is -1, 0 or 1.
type Direction struct {
	X, Y, Z int
}

func (d Direction) IsZero() bool { return d == Direction{} }

// Valid reports whether every component is -1, 0 or 1.
func (d Direction) Valid() bool {
	for _, v := range [...]int{d.X, d.Y, d.Z} {
		if v < -1 || v > 1 {
			return false
		}
	}
	return true
}

// GoToParkPosition moves to the park position in machine coordinates.
func GoToParkPosition(ctx context.Context, m Machine) error {
	return m.GoTo(ctx, m.Params().ParkPosition, MoveOptions{Absolute: true})
}

// GoToDefaultOrigin moves to the default workpiece origin in machine coordinates.
func GoToDefaultOrigin(ctx context.Context, m Machine) error {
	return m.GoTo(ctx, m.Params().DefaultOrigin, MoveOptions{Absolute: true})
}

// PerformAngleCorrection compares the measured position of a reference
// point with its expected workpiece coordinates ref. offset is added to
// the current position, e.g. the laser crosshair offset.
//
// The returned matrix rotates workpiece elements to cancel the error.
func PerformAngleCorrection(m Machine, ref, offset coord.Vec) (coord.Matrix, float64, error) {
	pos, err := m.Position(false)
	if err != nil {
		return coord.Matrix{}, 0, err
	}
	current := pos.XY().Add(offset)
	angle, err := coord.AngleBetween(ref, current)
	if err != nil {
		return coord.Matrix{}, 0, &machining.InvalidArgumentError{Argument: "reference", Description: err.Error()}
	}

	return coord.Rotation(angle), angle, nil
}
