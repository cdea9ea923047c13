package coord

import (
	"errors"
	"math"
)

// ErrZeroVector is returned when an angle is requested for a zero-length vector.
var ErrZeroVector = errors.New("zero vector")

// Vec is a 2D coordinate on the board plane.
//
// Equality is exact; geometry imported from the same source
// produces bit-identical shared endpoints.
type Vec struct{ X, Y float64 }

func (v Vec) Add(o Vec) Vec { return Vec{v.X + o.X, v.Y + o.Y} }
func (v Vec) Sub(o Vec) Vec { return Vec{v.X - o.X, v.Y - o.Y} }
func (v Vec) Mul(f float64) Vec { return Vec{v.X * f, v.Y * f} }
func (v Vec) Div(f float64) Vec { return Vec{v.X / f, v.Y / f} }
func (v Vec) Dot(o Vec) float64 { return v.X*o.X + v.Y*o.Y }
func (v Vec) Len() float64 { return math.Hypot(v.X, v.Y) }
func (v Vec) Dist(o Vec) float64 { return o.Sub(v).Len() }
func (v Vec) Equal(o Vec) bool { return v.X == o.X && v.Y == o.Y }
func (v Vec) IsZero() bool { return v.X == 0 && v.Y == 0 }
func (v Vec) WithZ(z float64) Point { return Point{X: v.X, Y: v.Y, Z: z} }

// Cross returns the z component of the 3D cross product v × o.
func (v Vec) Cross(o Vec) float64 { return v.X*o.Y - v.Y*o.X }

// Perp returns v rotated by +90°, i.e. ez × v.
func (v Vec) Perp() Vec { return Vec{-v.Y, v.X} }

// Rotate returns v rotated counterclockwise by angle (radians).
func (v Vec) Rotate(angle float64) Vec { return Rotation(angle).Apply(v) }

// Angle returns the direction of v measured from the positive x-axis.
func (v Vec) Angle() float64 { return math.Atan2(v.Y, v.X) }

// AngleBetween returns the signed angle that rotates a onto b.
func AngleBetween(a, b Vec) (float64, error) {
	if a.IsZero() || b.IsZero() {
		return 0, ErrZeroVector
	}
	return b.Angle() - a.Angle(), nil
}

// Matrix is a 2x2 linear map applied to board coordinates.
type Matrix [2][2]float64

// Identity is the unity transform.
func Identity() Matrix { return Matrix{{1, 0}, {0, 1}} }

// Rotation creates a counterclockwise rotation by angle (radians).
func Rotation(angle float64) Matrix {
	c, s := math.Cos(angle), math.Sin(angle)
	return Matrix{{c, -s}, {s, c}}
}

func (m Matrix) Apply(v Vec) Vec {
	return Vec{
		m[0][0]*v.X + m[0][1]*v.Y,
		m[1][0]*v.X + m[1][1]*v.Y,
	}
}

func DegToRad(angle float64) float64 { return angle * math.Pi / 180 }
func RadToDeg(angle float64) float64 { return angle * 180 / math.Pi }
