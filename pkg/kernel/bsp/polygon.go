package bsp

import v3 "github.com/deadsy/sdfx/vec/v3"

// Polygon is a convex planar polygon. Plane is the plane it lies in,
// oriented by its winding.
type Polygon struct {
	Vertices []v3.Vec
	Plane    Plane
}

// NewPolygon returns the polygon through vertices, and false when the
// first three are collinear.
func NewPolygon(vertices []v3.Vec) (Polygon, bool) {
	if len(vertices) < 3 {
		return Polygon{}, false
	}
	pl, ok := planeFromPoints(vertices[0], vertices[1], vertices[2])
	if !ok {
		return Polygon{}, false
	}
	return Polygon{Vertices: vertices, Plane: pl}, true
}

func (p Polygon) clone() Polygon {
	vs := make([]v3.Vec, len(p.Vertices))
	copy(vs, p.Vertices)
	return Polygon{Vertices: vs, Plane: p.Plane}
}

// flip reverses the winding in place.
func (p *Polygon) flip() {
	for i, j := 0, len(p.Vertices)-1; i < j; i, j = i+1, j-1 {
		p.Vertices[i], p.Vertices[j] = p.Vertices[j], p.Vertices[i]
	}
	p.Plane.flip()
}
