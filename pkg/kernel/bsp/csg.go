package bsp

import (
	"fmt"
	"math"
	"sort"

	"github.com/chazu/kerf/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.BooleanSolidOps = (*Ops)(nil)

// Ops performs booleans by converting meshes to BSP trees and back.
type Ops struct {
	// Epsilon is the partition plane thickness; zero selects DefaultEpsilon.
	Epsilon float64
	// WeldPrecision is the grid output vertices are merged on; zero
	// selects kernel.DefaultWeldPrecision.
	WeldPrecision float64
}

// New returns Ops with default tolerances.
func New() *Ops {
	return &Ops{}
}

func (o *Ops) tree(m *kernel.Mesh) (*Node, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("bsp: %w", err)
	}
	polys := make([]Polygon, 0, len(m.Faces))
	for i := range m.Faces {
		a, b, c := m.Triangle(i)
		// Slivers have no plane to partition on.
		if p, ok := NewPolygon([]v3.Vec{a, b, c}); ok {
			polys = append(polys, p)
		}
	}
	return NewNode(polys, o.Epsilon), nil
}

func (o *Ops) operands(a, b *kernel.Mesh) (*Node, *Node, error) {
	ta, err := o.tree(a)
	if err != nil {
		return nil, nil, err
	}
	tb, err := o.tree(b)
	if err != nil {
		return nil, nil, err
	}
	return ta, tb, nil
}

// Subtract returns a minus b.
func (o *Ops) Subtract(a, b *kernel.Mesh) (*kernel.Mesh, error) {
	ta, tb, err := o.operands(a, b)
	if err != nil {
		return nil, err
	}
	ta.invert()
	ta.clipTo(tb)
	tb.clipTo(ta)
	tb.invert()
	tb.clipTo(ta)
	tb.invert()
	ta.build(tb.allPolygons())
	ta.invert()
	return o.mesh(ta.allPolygons()), nil
}

// Intersect returns the part of a inside b.
func (o *Ops) Intersect(a, b *kernel.Mesh) (*kernel.Mesh, error) {
	ta, tb, err := o.operands(a, b)
	if err != nil {
		return nil, err
	}
	ta.invert()
	tb.clipTo(ta)
	tb.invert()
	ta.clipTo(tb)
	tb.clipTo(ta)
	ta.build(tb.allPolygons())
	ta.invert()
	return o.mesh(ta.allPolygons()), nil
}

// Union returns the solid covered by a or b.
func (o *Ops) Union(a, b *kernel.Mesh) (*kernel.Mesh, error) {
	ta, tb, err := o.operands(a, b)
	if err != nil {
		return nil, err
	}
	ta.clipTo(tb)
	tb.clipTo(ta)
	tb.invert()
	tb.clipTo(ta)
	tb.invert()
	ta.build(tb.allPolygons())
	return o.mesh(ta.allPolygons()), nil
}

// mesh welds polygon corners onto a grid, inserts the welded vertices
// that fall on other polygons' edges so neighbouring fragments share
// edges, and triangulates.
func (o *Ops) mesh(polys []Polygon) *kernel.Mesh {
	w := kernel.NewWelder(o.WeldPrecision)
	loops := make([][]int, 0, len(polys))
	for _, p := range polys {
		loop := make([]int, 0, len(p.Vertices))
		for _, v := range p.Vertices {
			i := w.Vertex(v)
			if len(loop) > 0 && loop[len(loop)-1] == i {
				continue
			}
			loop = append(loop, i)
		}
		for len(loop) > 1 && loop[0] == loop[len(loop)-1] {
			loop = loop[:len(loop)-1]
		}
		if len(loop) >= 3 {
			loops = append(loops, loop)
		}
	}

	verts := w.Mesh().Vertices
	grid := newGrid(verts)
	tol := w.Precision()

	out := kernel.NewWelder(o.WeldPrecision)
	for _, loop := range loops {
		ring := make([]int, 0, len(loop))
		inserted := false
		for i := range loop {
			a, b := loop[i], loop[(i+1)%len(loop)]
			ring = append(ring, a)
			on := grid.onSegment(verts, a, b, tol)
			if len(on) > 0 {
				inserted = true
				ring = append(ring, on...)
			}
		}

		if !inserted {
			for i := 1; i+1 < len(ring); i++ {
				out.Triangle(verts[ring[0]], verts[ring[i]], verts[ring[i+1]])
			}
			continue
		}
		// Extra corners are collinear with their neighbours; fanning from
		// the centroid keeps every triangle non-degenerate.
		pts := make([]v3.Vec, len(ring))
		for i, idx := range ring {
			pts[i] = verts[idx]
		}
		c := kernel.Centroid(pts)
		for i := range pts {
			out.Triangle(c, pts[i], pts[(i+1)%len(pts)])
		}
	}
	return out.Mesh()
}

// grid buckets vertices for edge proximity queries.
type grid struct {
	cell  float64
	cells map[[3]int64][]int
}

func newGrid(verts []v3.Vec) *grid {
	g := &grid{cells: make(map[[3]int64][]int)}
	m := &kernel.Mesh{Vertices: verts}
	g.cell = m.LongestExtent() / 64
	if g.cell <= 0 {
		g.cell = 1
	}
	for i, v := range verts {
		k := g.key(v)
		g.cells[k] = append(g.cells[k], i)
	}
	return g
}

func (g *grid) key(v v3.Vec) [3]int64 {
	return [3]int64{
		int64(math.Floor(v.X / g.cell)),
		int64(math.Floor(v.Y / g.cell)),
		int64(math.Floor(v.Z / g.cell)),
	}
}

// onSegment returns the vertices strictly inside segment a-b, ordered
// from a to b.
func (g *grid) onSegment(verts []v3.Vec, a, b int, tol float64) []int {
	pa, pb := verts[a], verts[b]
	d := pb.Sub(pa)
	l2 := d.Dot(d)
	if l2 == 0 {
		return nil
	}
	pad := v3.Vec{X: tol, Y: tol, Z: tol}
	lo, hi := g.key(pa.Min(pb).Sub(pad)), g.key(pa.Max(pb).Add(pad))

	type hit struct {
		i int
		t float64
	}
	var hits []hit
	for x := lo[0]; x <= hi[0]; x++ {
		for y := lo[1]; y <= hi[1]; y++ {
			for z := lo[2]; z <= hi[2]; z++ {
				for _, i := range g.cells[[3]int64{x, y, z}] {
					if i == a || i == b {
						continue
					}
					t := verts[i].Sub(pa).Dot(d) / l2
					if t <= 0 || t >= 1 {
						continue
					}
					foot := pa.Add(d.MulScalar(t))
					if verts[i].Sub(foot).Length() <= tol {
						hits = append(hits, hit{i, t})
					}
				}
			}
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].t < hits[j].t })
	out := make([]int, len(hits))
	for i, h := range hits {
		out[i] = h.i
	}
	return out
}
