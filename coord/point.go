package coord

// Point is a position in machine space: the board plane plus Z height.
type Point struct{ X, Y, Z float64 }

func (p Point) Add(o Point) Point { return Point{p.X + o.X, p.Y + o.Y, p.Z + o.Z} }
func (p Point) Sub(o Point) Point { return Point{p.X - o.X, p.Y - o.Y, p.Z - o.Z} }
func (p Point) Mul(f float64) Point { return Point{p.X * f, p.Y * f, p.Z * f} }
func (p Point) Div(f float64) Point { return Point{p.X / f, p.Y / f, p.Z / f} }
func (p Point) Dot(o Point) float64 { return p.X*o.X + p.Y*o.Y + p.Z*o.Z }
func (p Point) Equal(o Point) bool { return p == o }

// Cross returns the 3D cross product p × o.
func (p Point) Cross(o Point) Point {
	return Point{
		X: p.Y*o.Z - p.Z*o.Y,
		Y: p.Z*o.X - p.X*o.Z,
		Z: p.X*o.Y - p.Y*o.X,
	}
}

// XY drops the Z component.
func (p Point) XY() Vec { return Vec{X: p.X, Y: p.Y} }

// DistanceXY is the distance from p to v on the board plane.
func (p Point) DistanceXY(v Vec) float64 { return p.XY().Dist(v) }
