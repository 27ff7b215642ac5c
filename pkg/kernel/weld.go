package kernel

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// DefaultWeldPrecision is the grid used when merging coincident vertices.
const DefaultWeldPrecision = 1e-5

type weldKey [3]int64

func quantize(v v3.Vec, precision float64) weldKey {
	return weldKey{
		int64(math.Round(v.X / precision)),
		int64(math.Round(v.Y / precision)),
		int64(math.Round(v.Z / precision)),
	}
}

// Welder collects triangle soup into an indexed mesh, merging vertices that
// fall on the same point of a precision grid.
type Welder struct {
	precision float64
	index     map[weldKey]int
	mesh      Mesh
}

// NewWelder returns a Welder; a non-positive precision selects
// DefaultWeldPrecision.
func NewWelder(precision float64) *Welder {
	if precision <= 0 {
		precision = DefaultWeldPrecision
	}
	return &Welder{precision: precision, index: make(map[weldKey]int)}
}

// Vertex returns the index of the welded vertex at p.
func (w *Welder) Vertex(p v3.Vec) int {
	k := quantize(p, w.precision)
	if i, ok := w.index[k]; ok {
		return i
	}
	i := len(w.mesh.Vertices)
	w.index[k] = i
	w.mesh.Vertices = append(w.mesh.Vertices, p)
	return i
}

// Triangle adds a triangle. Triangles that collapse after welding are
// dropped and reported as false.
func (w *Welder) Triangle(a, b, c v3.Vec) bool {
	ia, ib, ic := w.Vertex(a), w.Vertex(b), w.Vertex(c)
	if ia == ib || ib == ic || ia == ic {
		return false
	}
	w.mesh.Faces = append(w.mesh.Faces, Face{ia, ib, ic})
	return true
}

// Mesh returns the accumulated mesh.
func (w *Welder) Mesh() *Mesh {
	out := w.mesh
	return &out
}

// Weld merges coincident vertices of m.
func Weld(m *Mesh, precision float64) *Mesh {
	w := NewWelder(precision)
	for i := range m.Faces {
		w.Triangle(m.Triangle(i))
	}
	return w.Mesh()
}

// Precision returns the welding grid size.
func (w *Welder) Precision() float64 {
	return w.precision
}
