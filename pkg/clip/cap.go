package clip

import (
	"fmt"
	"math"
	"sort"

	"github.com/chazu/kerf/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// DefaultCapOffsetFactor scales a solid's longest extent into the
// distance each cap is pushed off the cutting plane.
const DefaultCapOffsetFactor = 1e-6

// directed is an oriented edge u -> v.
type directed [2]int

// openEdges returns the directed edges of faces with no reverse twin in
// the same set, sorted for deterministic traversal.
func openEdges(faces []kernel.Face) []directed {
	seen := make(map[directed]int, len(faces)*3)
	for _, f := range faces {
		for k := 0; k < 3; k++ {
			seen[directed{f[k], f[(k+1)%3]}]++
		}
	}
	var out []directed
	for e, n := range seen {
		for ; n > seen[directed{e[1], e[0]}]; n-- {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}

// loops chains open edges into closed vertex loops. Loop order follows the
// edge direction. Edges that cannot be chained are returned in rest.
func loops(edges []directed) (closed [][]int, rest []int) {
	next := make(map[int][]int, len(edges))
	for _, e := range edges {
		next[e[0]] = append(next[e[0]], e[1])
	}
	for _, e := range edges {
		start := e[0]
		if len(next[start]) == 0 {
			continue
		}
		loop := []int{start}
		cur := start
		for {
			outs := next[cur]
			if len(outs) == 0 {
				// Dead end: the side is not closed along the section.
				rest = append(rest, loop...)
				loop = nil
				break
			}
			nxt := outs[0]
			next[cur] = outs[1:]
			if nxt == start {
				break
			}
			loop = append(loop, nxt)
			cur = nxt
		}
		if loop != nil {
			closed = append(closed, loop)
		}
	}
	return closed, rest
}

// SortByAngle orders points lying in the plane with normal n by polar
// angle around their centroid, counter-clockwise seen from the n side.
// It returns the permutation of indices into pts.
func SortByAngle(pts []v3.Vec, n v3.Vec) []int {
	c := kernel.Centroid(pts)
	t, b := kernel.Basis(n)
	type keyed struct {
		i     int
		angle float64
	}
	ks := make([]keyed, len(pts))
	for i, p := range pts {
		d := p.Sub(c)
		ks[i] = keyed{i: i, angle: math.Atan2(d.Dot(b), d.Dot(t))}
	}
	sort.SliceStable(ks, func(i, j int) bool { return ks[i].angle < ks[j].angle })
	out := make([]int, len(ks))
	for i, k := range ks {
		out[i] = k.i
	}
	return out
}

// side is one half of a clip being capped.
type side struct {
	faces  []kernel.Face
	nudge  v3.Vec
	facing float64 // +1 when the cap faces along the plane normal
}

// Cap closes both halves of res and returns them as separate compacted
// meshes. Each cross-section loop is duplicated, nudged off the plane by
// offset (toward the below half's outside for the below cap, and the
// opposite way for the above cap), and closed with a fan from its
// centroid. Faces that touched a loop vertex are remapped onto the copy.
//
// Loops are recovered by chaining open edges, so any simple cross-section
// is capped, including several disjoint ones. If chaining fails the
// remaining section vertices are ordered by polar angle instead.
func Cap(res *Result, offset float64) (below, above *kernel.Mesh, err error) {
	n := res.Plane.Normal
	sides := []side{
		{faces: res.Below, nudge: n.MulScalar(offset), facing: 1},
		{faces: res.Above, nudge: n.MulScalar(-offset), facing: -1},
	}
	out := make([]*kernel.Mesh, 2)
	for i, s := range sides {
		m, err := capSide(res, s)
		if err != nil {
			return nil, nil, err
		}
		out[i] = m
	}
	return out[0], out[1], nil
}

func capSide(res *Result, s side) (*kernel.Mesh, error) {
	closed, rest := loops(openEdges(s.faces))
	if len(rest) > 0 {
		closed = append(closed, angleLoop(res, rest, s.facing))
	}
	if len(closed) == 0 {
		// Nothing crossed the plane: it runs through a gap between
		// disjoint pieces of the solid.
		if res.Straddled == 0 {
			return nil, fmt.Errorf("clip: plane passes between components without cutting: %w", kernel.ErrNoIntersection)
		}
		return nil, fmt.Errorf("clip: cut produced no cross-section: %w", kernel.ErrDegenerateGeometry)
	}

	verts := append([]v3.Vec(nil), res.Vertices...)
	remap := make(map[int]int)
	var caps []kernel.Face

	for _, loop := range closed {
		if len(loop) < 3 {
			return nil, fmt.Errorf("clip: cross-section loop has %d vertices: %w", len(loop), kernel.ErrDegenerateGeometry)
		}
		pts := make([]v3.Vec, len(loop))
		for i, idx := range loop {
			pts[i] = res.Vertices[idx]
		}
		if kernel.Polygon3DArea(pts) < 1e-12 {
			return nil, fmt.Errorf("clip: cross-section has zero area: %w", kernel.ErrDegenerateGeometry)
		}

		centre := len(verts)
		verts = append(verts, kernel.Centroid(pts).Add(s.nudge))
		for _, idx := range loop {
			if _, ok := remap[idx]; !ok {
				remap[idx] = len(verts)
				verts = append(verts, res.Vertices[idx].Add(s.nudge))
			}
		}
		// The loop runs along the half's open edges, so the cap walks
		// each edge backwards.
		for i := range loop {
			u, v := remap[loop[i]], remap[loop[(i+1)%len(loop)]]
			caps = append(caps, kernel.Face{centre, v, u})
		}
	}

	faces := make([]kernel.Face, 0, len(s.faces)+len(caps))
	for _, f := range s.faces {
		for k, idx := range f {
			if r, ok := remap[idx]; ok {
				f[k] = r
			}
		}
		faces = append(faces, f)
	}
	faces = append(faces, caps...)

	m := &kernel.Mesh{Vertices: verts, Faces: faces}
	return m.Compact(), nil
}

// angleLoop orders leftover section vertices by polar angle, reversing the
// order when the cap must face against the plane normal. The result keeps
// the convention of loops(): it runs along the half's open boundary.
func angleLoop(res *Result, idxs []int, facing float64) []int {
	uniq := make([]int, 0, len(idxs))
	seen := make(map[int]bool, len(idxs))
	for _, i := range idxs {
		if !seen[i] {
			seen[i] = true
			uniq = append(uniq, i)
		}
	}
	pts := make([]v3.Vec, len(uniq))
	for i, idx := range uniq {
		pts[i] = res.Vertices[idx]
	}
	order := SortByAngle(pts, res.Plane.Normal)
	loop := make([]int, len(order))
	for i, o := range order {
		loop[i] = uniq[o]
	}
	// A counter-clockwise loop seen from +n is walked backwards by a cap
	// facing +n, so an upward cap needs the clockwise loop.
	if facing > 0 {
		for i, j := 0, len(loop)-1; i < j; i, j = i+1, j-1 {
			loop[i], loop[j] = loop[j], loop[i]
		}
	}
	return loop
}
