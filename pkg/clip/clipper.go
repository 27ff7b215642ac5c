package clip

import (
	"fmt"

	"github.com/chazu/kerf/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Side is a vertex classification against a plane.
type Side int8

const (
	Below Side = -1
	On    Side = 0
	Above Side = 1
)

func (s Side) String() string {
	switch s {
	case Below:
		return "below"
	case Above:
		return "above"
	}
	return "on"
}

// Classify labels each vertex of m as below, on, or above the plane. A
// vertex within eps of the plane is on it.
func Classify(m *kernel.Mesh, p Plane, eps float64) []Side {
	sides := make([]Side, len(m.Vertices))
	for i, v := range m.Vertices {
		d := p.Distance(v)
		switch {
		case d < -eps:
			sides[i] = Below
		case d > eps:
			sides[i] = Above
		default:
			sides[i] = On
		}
	}
	return sides
}

// CutVertex is a vertex created where a mesh edge crosses the plane.
type CutVertex struct {
	Index int
	Edge  kernel.Edge
}

// Result is a mesh partitioned across a plane. Below and Above index into
// Vertices, which holds the original vertices followed by the cut
// vertices. Both halves are open along the cross-section.
type Result struct {
	Plane    Plane
	Vertices []v3.Vec
	Sides    []Side
	Below    []kernel.Face
	Above    []kernel.Face
	Cuts     []CutVertex
	// Straddled counts the triangles the plane crossed.
	Straddled int
}

// clipper carries the growing vertex list and the edge cache that
// guarantees a crossed edge yields one shared vertex.
type clipper struct {
	res   *Result
	dist  []float64
	cache map[kernel.Edge]int
}

// Clip partitions the triangles of m across p. Triangles entirely on one
// side are copied unchanged; crossed triangles are split into one triangle
// on the minority side and two on the majority side, preserving winding.
// Triangles lying in the plane go to the side their normal faces away from.
//
// Clip fails with kernel.ErrNoIntersection when either side ends up empty.
func Clip(m *kernel.Mesh, p Plane, eps float64) (*Result, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("clip: %w", err)
	}
	if eps <= 0 {
		eps = DefaultEpsilon
	}

	c := &clipper{
		res: &Result{
			Plane:    p,
			Vertices: append(make([]v3.Vec, 0, len(m.Vertices)+len(m.Faces)/4), m.Vertices...),
			Sides:    Classify(m, p, eps),
		},
		dist:  make([]float64, len(m.Vertices)),
		cache: make(map[kernel.Edge]int),
	}
	for i, v := range m.Vertices {
		c.dist[i] = p.Distance(v)
	}

	for fi, f := range m.Faces {
		c.triangle(m, fi, f)
	}

	if len(c.res.Below) == 0 || len(c.res.Above) == 0 {
		return nil, fmt.Errorf("clip: plane %v·p=%g leaves %d triangles below and %d above: %w",
			p.Normal, p.Offset, len(c.res.Below), len(c.res.Above), kernel.ErrNoIntersection)
	}
	return c.res, nil
}

func (c *clipper) triangle(m *kernel.Mesh, fi int, f kernel.Face) {
	res := c.res
	var below, above bool
	for _, idx := range f {
		switch res.Sides[idx] {
		case Below:
			below = true
		case Above:
			above = true
		}
	}

	switch {
	case below && !above:
		res.Below = append(res.Below, f)
		return
	case above && !below:
		res.Above = append(res.Above, f)
		return
	case !below && !above:
		// In the plane: the face is the top of the material under it
		// when its normal points along the plane normal.
		if m.FaceNormal(fi).Dot(res.Plane.Normal) >= 0 {
			res.Below = append(res.Below, f)
		} else {
			res.Above = append(res.Above, f)
		}
		return
	}

	res.Straddled++

	// Walk the triangle's edges in order, emitting each corner to the
	// side(s) it belongs to and a cut vertex wherever an edge crosses.
	var lo, hi [4]int
	nlo, nhi := 0, 0
	for k := 0; k < 3; k++ {
		a, b := f[k], f[(k+1)%3]
		sa, sb := res.Sides[a], res.Sides[b]
		if sa != Above {
			lo[nlo] = a
			nlo++
		}
		if sa != Below {
			hi[nhi] = a
			nhi++
		}
		if sa*sb < 0 {
			cut := c.cut(a, b)
			lo[nlo] = cut
			nlo++
			hi[nhi] = cut
			nhi++
		}
	}
	res.Below = appendFan(res.Below, lo[:nlo])
	res.Above = appendFan(res.Above, hi[:nhi])
}

// cut returns the shared vertex where edge (a, b) meets the plane.
func (c *clipper) cut(a, b int) int {
	e := kernel.MakeEdge(a, b)
	if idx, ok := c.cache[e]; ok {
		return idx
	}
	// Interpolate from the canonical end so both triangles sharing the
	// edge compute the identical point.
	va, vb := c.res.Vertices[e.A], c.res.Vertices[e.B]
	da, db := c.dist[e.A], c.dist[e.B]
	t := da / (da - db)
	p := va.Add(vb.Sub(va).MulScalar(t))

	idx := len(c.res.Vertices)
	c.res.Vertices = append(c.res.Vertices, p)
	c.res.Sides = append(c.res.Sides, On)
	c.res.Cuts = append(c.res.Cuts, CutVertex{Index: idx, Edge: e})
	c.cache[e] = idx
	return idx
}

// appendFan triangulates a convex polygon of 3 or 4 corners.
func appendFan(dst []kernel.Face, poly []int) []kernel.Face {
	for i := 1; i+1 < len(poly); i++ {
		dst = append(dst, kernel.Face{poly[0], poly[i], poly[i+1]})
	}
	return dst
}
