// Package bsp implements constructive solid geometry on closed triangle
// meshes with binary space partitioning trees of convex polygons.
package bsp

import v3 "github.com/deadsy/sdfx/vec/v3"

// DefaultEpsilon is the thickness of a partition plane.
const DefaultEpsilon = 1e-5

// Classification of a point or polygon against a partition plane.
const (
	coplanar = 0
	front    = 1
	back     = 2
	spanning = 3
)

// Plane is the set of points p with Normal·p = W.
type Plane struct {
	Normal v3.Vec
	W      float64
}

// planeFromPoints returns the plane through a, b, c wound
// counter-clockwise, and false if the points are collinear.
func planeFromPoints(a, b, c v3.Vec) (Plane, bool) {
	n := b.Sub(a).Cross(c.Sub(a))
	l := n.Length()
	if l < 1e-12 {
		return Plane{}, false
	}
	n = n.DivScalar(l)
	return Plane{Normal: n, W: n.Dot(a)}, true
}

func (p *Plane) flip() {
	p.Normal = p.Normal.Neg()
	p.W = -p.W
}

// splitPolygon sorts poly into the four destination lists, splitting it
// in two when it spans the plane.
func (p Plane) splitPolygon(poly Polygon, eps float64, coFront, coBack, fronts, backs *[]Polygon) {
	types := make([]int, len(poly.Vertices))
	kind := coplanar
	for i, v := range poly.Vertices {
		t := p.Normal.Dot(v) - p.W
		switch {
		case t < -eps:
			types[i] = back
		case t > eps:
			types[i] = front
		default:
			types[i] = coplanar
		}
		kind |= types[i]
	}

	switch kind {
	case coplanar:
		if p.Normal.Dot(poly.Plane.Normal) > 0 {
			*coFront = append(*coFront, poly)
		} else {
			*coBack = append(*coBack, poly)
		}
	case front:
		*fronts = append(*fronts, poly)
	case back:
		*backs = append(*backs, poly)
	case spanning:
		var f, b []v3.Vec
		n := len(poly.Vertices)
		for i := 0; i < n; i++ {
			j := (i + 1) % n
			ti, tj := types[i], types[j]
			vi, vj := poly.Vertices[i], poly.Vertices[j]
			if ti != back {
				f = append(f, vi)
			}
			if ti != front {
				b = append(b, vi)
			}
			if ti|tj == spanning {
				t := (p.W - p.Normal.Dot(vi)) / p.Normal.Dot(vj.Sub(vi))
				v := vi.Add(vj.Sub(vi).MulScalar(t))
				f = append(f, v)
				b = append(b, v)
			}
		}
		if len(f) >= 3 {
			*fronts = append(*fronts, Polygon{Vertices: f, Plane: poly.Plane})
		}
		if len(b) >= 3 {
			*backs = append(*backs, Polygon{Vertices: b, Plane: poly.Plane})
		}
	}
}
