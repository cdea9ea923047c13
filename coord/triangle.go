package coord

import "math"

const (
	// Epsilon is the max error (mm) when checking containment.
	Epsilon   = 0.001
	epsilonSq = Epsilon * Epsilon
)

// Triangle is a facet of a probed surface.
type Triangle struct{ A, B, C Point }

// Contains reports whether p lies inside the board-plane projection of
// the triangle, or within Epsilon of one of its edges. Both windings
// are accepted.
func (t Triangle) Contains(p Vec) bool {
	a, b, c := t.A.XY(), t.B.XY(), t.C.XY()

	if p.X < math.Min(a.X, math.Min(b.X, c.X))-Epsilon ||
		p.X > math.Max(a.X, math.Max(b.X, c.X))+Epsilon ||
		p.Y < math.Min(a.Y, math.Min(b.Y, c.Y))-Epsilon ||
		p.Y > math.Max(a.Y, math.Max(b.Y, c.Y))+Epsilon {
		return false
	}

	s1 := b.Sub(a).Cross(p.Sub(a))
	s2 := c.Sub(b).Cross(p.Sub(b))
	s3 := a.Sub(c).Cross(p.Sub(c))
	if (s1 >= 0 && s2 >= 0 && s3 >= 0) || (s1 <= 0 && s2 <= 0 && s3 <= 0) {
		return true
	}

	return segmentDistSq(a, b, p) <= epsilonSq ||
		segmentDistSq(b, c, p) <= epsilonSq ||
		segmentDistSq(c, a, p) <= epsilonSq
}

// segmentDistSq is the squared distance from p to the segment a-b.
func segmentDistSq(a, b, p Vec) float64 {
	ab := b.Sub(a)
	l := ab.Dot(ab)
	if l == 0 {
		d := p.Sub(a)
		return d.Dot(d)
	}
	u := math.Max(0, math.Min(1, p.Sub(a).Dot(ab)/l))
	d := p.Sub(a.Add(ab.Mul(u)))
	return d.Dot(d)
}

// Z will give the height of the plane defined by the triangle above p.
//
// Degenerate (vertical or collinear) triangles have no height and
// return NaN or ±Inf.
func (t Triangle) Z(p Vec) float64 {
	n := t.C.Sub(t.A).Cross(t.B.Sub(t.A))
	d := n.Dot(t.C)

	return (d - n.X*p.X - n.Y*p.Y) / n.Z
}

// Centroid is the average of the three corners.
func (t Triangle) Centroid() Point {
	return t.A.Add(t.B).Add(t.C).Div(3)
}
