package meshlevel

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/fogleman/delaunay"
	"github.com/mastercactapus/pcbmill/coord"
)

// Mesh is a triangulated surface built from probe points.
type Mesh struct {
	minX, minY, maxX, maxY float64
	triangles              []coord.Triangle
}

func NewMesh(points []coord.Point) (*Mesh, error) {
	if len(points) < 3 {
		return nil, errors.New("need at least 3 points to create a mesh")
	}

	points2d := make([]delaunay.Point, len(points))
	m := make(map[delaunay.Point]coord.Point, len(points))

	mesh := &Mesh{
		minX: points[0].X,
		minY: points[0].Y,
		maxX: points[0].X,
		maxY: points[0].Y,
	}
	var d delaunay.Point
	for i, p := range points {
		mesh.minX = math.Min(mesh.minX, p.X)
		mesh.minY = math.Min(mesh.minY, p.Y)
		mesh.maxX = math.Max(mesh.maxX, p.X)
		mesh.maxY = math.Max(mesh.maxY, p.Y)

		d.X = p.X
		d.Y = p.Y
		if _, ok := m[d]; ok {
			return nil, fmt.Errorf("duplicate probe point at %g,%g", p.X, p.Y)
		}
		m[d] = p
		points2d[i] = d
	}
	mesh.minX -= coord.Epsilon
	mesh.minY -= coord.Epsilon
	mesh.maxX += coord.Epsilon
	mesh.maxY += coord.Epsilon

	tri, err := delaunay.Triangulate(points2d)
	if err != nil {
		return nil, fmt.Errorf("triangulate probe points: %w", err)
	}

	mesh.triangles = make([]coord.Triangle, 0, len(tri.Triangles)/3)

	for i := 0; i < len(tri.Triangles); i += 3 {
		mesh.triangles = append(mesh.triangles, coord.Triangle{
			A: m[tri.Points[tri.Triangles[i]]],
			B: m[tri.Points[tri.Triangles[i+1]]],
			C: m[tri.Points[tri.Triangles[i+2]]],
		})
	}

	return mesh, nil
}

// OffsetZ returns the interpolated surface height at p. It returns false
// when p is outside the probed area.
func (m Mesh) OffsetZ(p coord.Vec) (bool, float64) {
	if p.X < m.minX || m.maxX < p.X || p.Y < m.minY || m.maxY < p.Y {
		return false, 0
	}
	for _, t := range m.triangles {
		if !t.Contains(p) {
			continue
		}
		return true, t.Z(p)
	}

	return false, 0
}

// ReadProbes decodes a JSON array of probe points ({"X":..,"Y":..,"Z":..}).
func ReadProbes(r io.Reader) ([]coord.Point, error) {
	var points []coord.Point
	err := json.NewDecoder(r).Decode(&points)
	if err != nil {
		return nil, fmt.Errorf("decode probe points: %w", err)
	}
	return points, nil
}

// LoadMesh reads a probe file and builds a mesh with heights relative to refZ.
func LoadMesh(path string, refZ float64) (*Mesh, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	points, err := ReadProbes(fd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return NewMesh(OffsetFrom(refZ, points))
}

// OffsetFrom returns a copy of points with every height measured from z.
func OffsetFrom(z float64, points []coord.Point) []coord.Point {
	res := make([]coord.Point, 0, len(points))
	for _, p := range points {
		p.Z -= z
		res = append(res, p)
	}
	return res
}
